package dto

import (
	"encoding/json"
	"fmt"
	"math"
	"time"

	"github.com/shopspring/decimal"

	"github.com/spec-kit/store-management/internal/domain"
	"github.com/spec-kit/store-management/pkg/errorutil"
)

func init() {
	// prices travel as JSON numbers, e.g. "price": 9.99
	decimal.MarshalJSONWithoutQuotes = true
}

// ProductCreateRequest payload.
type ProductCreateRequest struct {
	Name        string           `json:"name" validate:"notblank"`
	Description string           `json:"description"`
	Category    string           `json:"category"`
	Price       *decimal.Decimal `json:"price" validate:"required,dgte=0.01,dscale=2"`
	Quantity    *int             `json:"quantity" validate:"omitempty,gte=0"`
}

// ProductResponse is the public view of a product.
type ProductResponse struct {
	ID          int64           `json:"id"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Category    string          `json:"category"`
	Price       decimal.Decimal `json:"price"`
	Quantity    int             `json:"quantity"`
	CreatedAt   time.Time       `json:"createdAt"`
	UpdatedAt   time.Time       `json:"updatedAt"`
}

// ProductPagedResponse wraps one page of products with its metadata.
type ProductPagedResponse struct {
	Content          []ProductResponse `json:"content"`
	Page             int               `json:"page"`
	Size             int               `json:"size"`
	TotalElements    int64             `json:"totalElements"`
	TotalPages       int               `json:"totalPages"`
	First            bool              `json:"first"`
	Last             bool              `json:"last"`
	NumberOfElements int               `json:"numberOfElements"`
	Empty            bool              `json:"empty"`
}

// UpdatePriceRequest is the wire shape of a price update.
type UpdatePriceRequest struct {
	Type  string           `json:"type"`
	Price *decimal.Decimal `json:"price" validate:"required,dgte=0.01,dscale=2"`
}

// UpdateStockRequest is the wire shape of a stock update.
type UpdateStockRequest struct {
	Type     string `json:"type"`
	Quantity *int   `json:"quantity" validate:"required,gte=0"`
}

// ProductUpdateRequest decodes a polymorphic update body tagged by "type".
// Unknown tags decode into domain.UnsupportedUpdate so the service can reject
// them with a typed error.
type ProductUpdateRequest struct {
	Command domain.UpdateCommand
	payload any
}

// UnmarshalJSON picks the concrete request by its "type" discriminator.
func (r *ProductUpdateRequest) UnmarshalJSON(data []byte) error {
	var head struct {
		Type *string `json:"type"`
	}
	if err := json.Unmarshal(data, &head); err != nil {
		return err
	}
	if head.Type == nil {
		return fmt.Errorf("missing type discriminator")
	}

	switch *head.Type {
	case domain.UpdateTypePrice:
		var req UpdatePriceRequest
		if err := json.Unmarshal(data, &req); err != nil {
			return err
		}
		r.payload = &req
		if req.Price != nil {
			r.Command = domain.SetPrice{Price: *req.Price}
		}
	case domain.UpdateTypeStock:
		var req UpdateStockRequest
		if err := json.Unmarshal(data, &req); err != nil {
			return err
		}
		r.payload = &req
		if req.Quantity != nil {
			r.Command = domain.SetStock{Quantity: *req.Quantity}
		}
	default:
		r.payload = nil
		r.Command = domain.UnsupportedUpdate{RawType: *head.Type}
	}
	return nil
}

// Validate checks the concrete payload's constraints.
func (r *ProductUpdateRequest) Validate() error {
	if r.payload != nil {
		if err := Validate(r.payload); err != nil {
			return err
		}
	}
	if r.Command == nil {
		return errorutil.New(errorutil.ValidationError, "type: update type is required")
	}
	return nil
}

// PageRequest captures list query parameters.
type PageRequest struct {
	Page          int    `query:"page" validate:"gte=0"`
	Size          int    `query:"size" validate:"gte=1,lte=1000"`
	SortBy        string `query:"sortBy" validate:"omitempty,oneof=id name description category price quantity createdAt updatedAt"`
	SortDirection string `query:"sortDirection" validate:"omitempty,oneof=ASC DESC asc desc"`
}

// Validate checks the tags and that page*size is a representable row offset.
func (r *PageRequest) Validate() error {
	if err := Validate(r); err != nil {
		return err
	}
	if r.Page > math.MaxInt/r.Size {
		return errorutil.New(errorutil.ValidationError, "page: page * size exceeds the largest row offset")
	}
	return nil
}
