package domain

import (
	"fmt"
	"strconv"

	"github.com/shopspring/decimal"

	"github.com/spec-kit/store-management/pkg/errorutil"
)

// Update type discriminators as they appear on the wire.
const (
	UpdateTypePrice = "UpdatePriceRequest"
	UpdateTypeStock = "UpdateStockRequest"
)

// Field names reported for product updates.
const (
	FieldPrice    = "PRICE"
	FieldQuantity = "QUANTITY"
)

// UpdateCommand is a single-field product mutation. The set of variants is
// closed: SetPrice, SetStock and UnsupportedUpdate.
type UpdateCommand interface {
	Type() string
	isUpdateCommand()
}

// SetPrice replaces the product price.
type SetPrice struct {
	Price decimal.Decimal
}

// SetStock replaces the product quantity.
type SetStock struct {
	Quantity int
}

// UnsupportedUpdate carries a discriminator no variant recognizes.
type UnsupportedUpdate struct {
	RawType string
}

func (SetPrice) Type() string            { return UpdateTypePrice }
func (SetStock) Type() string            { return UpdateTypeStock }
func (u UnsupportedUpdate) Type() string { return u.RawType }

func (SetPrice) isUpdateCommand()          {}
func (SetStock) isUpdateCommand()          {}
func (UnsupportedUpdate) isUpdateCommand() {}

// Validate checks the price bound and scale.
func (c SetPrice) Validate() error {
	return ValidatePrice(c.Price)
}

// Validate checks the quantity bound.
func (c SetStock) Validate() error {
	if c.Quantity < 0 {
		return errorutil.New(errorutil.ValidationError, "quantity: Quantity must be non-negative")
	}
	return nil
}

// FieldChange describes the mutation applied by ApplyUpdate.
type FieldChange struct {
	Field    string
	OldValue string
	NewValue string
}

// ValidateUpdate runs the variant's own bound checks, if it has any.
func ValidateUpdate(cmd UpdateCommand) error {
	if v, ok := cmd.(interface{ Validate() error }); ok {
		return v.Validate()
	}
	return nil
}

// ApplyUpdate mutates exactly one field of p according to cmd. The product is
// left untouched when cmd is not a supported variant.
func ApplyUpdate(p *Product, cmd UpdateCommand) (FieldChange, error) {
	switch c := cmd.(type) {
	case SetPrice:
		change := FieldChange{Field: FieldPrice, OldValue: p.Price.String()}
		p.Price = c.Price
		change.NewValue = p.Price.String()
		return change, nil
	case SetStock:
		change := FieldChange{Field: FieldQuantity, OldValue: strconv.Itoa(p.Quantity)}
		p.Quantity = c.Quantity
		change.NewValue = strconv.Itoa(p.Quantity)
		return change, nil
	default:
		return FieldChange{}, errorutil.New(errorutil.UnsupportedUpdateType, typeName(cmd))
	}
}

func typeName(cmd UpdateCommand) string {
	if cmd == nil {
		return "null"
	}
	if t := cmd.Type(); t != "" {
		return t
	}
	return fmt.Sprintf("%T", cmd)
}
