package domain

import (
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"github.com/spec-kit/store-management/pkg/errorutil"
)

// PriceScale is the number of decimal places stored for a price.
const PriceScale = 2

// MinPrice is the lowest price a product may carry.
var MinPrice = decimal.RequireFromString("0.01")

// ValidatePrice compares price exactly against MinPrice and rejects values
// the price column would have to round.
func ValidatePrice(price decimal.Decimal) error {
	if price.LessThan(MinPrice) {
		return errorutil.New(errorutil.ValidationError, "price: Price must be greater than 0")
	}
	if !price.Equal(price.Round(PriceScale)) {
		return errorutil.New(errorutil.ValidationError,
			"price: must have at most "+strconv.Itoa(PriceScale)+" decimal places")
	}
	return nil
}

// Product is the catalog aggregate.
type Product struct {
	ID          int64
	Name        string
	Description string
	Category    string
	Price       decimal.Decimal
	Quantity    int
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
