package events

import (
	"time"

	"github.com/shopspring/decimal"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventProductCreated EventType = "ProductCreatedEvent"
	EventProductUpdated EventType = "ProductUpdatedEvent"
	EventProductDeleted EventType = "ProductDeletedEvent"
)

// Header holds the fields every product event carries.
type Header struct {
	EventID        string    `json:"eventId"`
	EventType      EventType `json:"eventType"`
	ProductID      int64     `json:"productId"`
	ProductName    string    `json:"productName"`
	EventTimestamp time.Time `json:"eventTimestamp"`
}

// Meta exposes the common header.
func (h Header) Meta() Header { return h }

// ProductEvent is implemented by ProductCreated, ProductUpdated and ProductDeleted.
type ProductEvent interface {
	Meta() Header
}

// ProductCreated is emitted after a product is persisted.
type ProductCreated struct {
	Header
	Description string          `json:"description"`
	Category    string          `json:"category"`
	Price       decimal.Decimal `json:"price"`
	Quantity    int             `json:"quantity"`
	CreatedAt   time.Time       `json:"createdAt"`
}

// ProductUpdated is emitted after a single-field product update.
type ProductUpdated struct {
	Header
	FieldUpdated string `json:"fieldUpdated"`
	OldValue     string `json:"oldValue"`
	NewValue     string `json:"newValue"`
}

// ProductDeleted is emitted right before a product row is removed.
type ProductDeleted struct {
	Header
}
