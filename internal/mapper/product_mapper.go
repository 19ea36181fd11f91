package mapper

import (
	"time"

	"github.com/google/uuid"

	"github.com/spec-kit/store-management/internal/api/dto"
	"github.com/spec-kit/store-management/internal/domain"
	"github.com/spec-kit/store-management/internal/events"
	"github.com/spec-kit/store-management/internal/repository"
)

// ProductFromCreate converts a validated create request into an unsaved product.
func ProductFromCreate(req dto.ProductCreateRequest) domain.Product {
	p := domain.Product{
		Name:        req.Name,
		Description: req.Description,
		Category:    req.Category,
	}
	if req.Price != nil {
		p.Price = *req.Price
	}
	if req.Quantity != nil {
		p.Quantity = *req.Quantity
	}
	return p
}

// ProductToResponse converts a product to its public view.
func ProductToResponse(p domain.Product) dto.ProductResponse {
	return dto.ProductResponse{
		ID:          p.ID,
		Name:        p.Name,
		Description: p.Description,
		Category:    p.Category,
		Price:       p.Price,
		Quantity:    p.Quantity,
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
	}
}

// ProductPageToResponse converts a page of products, preserving its metadata.
func ProductPageToResponse(page repository.Page[domain.Product]) dto.ProductPagedResponse {
	mapped := repository.MapPage(page, ProductToResponse)
	return dto.ProductPagedResponse{
		Content:          mapped.Content,
		Page:             mapped.Page,
		Size:             mapped.Size,
		TotalElements:    mapped.TotalElements,
		TotalPages:       mapped.TotalPages,
		First:            mapped.First,
		Last:             mapped.Last,
		NumberOfElements: mapped.NumberOfElements,
		Empty:            mapped.Empty,
	}
}

func header(t events.EventType, p domain.Product) events.Header {
	return events.Header{
		EventID:        uuid.NewString(),
		EventType:      t,
		ProductID:      p.ID,
		ProductName:    p.Name,
		EventTimestamp: time.Now().UTC(),
	}
}

// ProductCreatedEvent builds the creation event for a persisted product.
func ProductCreatedEvent(p domain.Product) events.ProductCreated {
	return events.ProductCreated{
		Header:      header(events.EventProductCreated, p),
		Description: p.Description,
		Category:    p.Category,
		Price:       p.Price,
		Quantity:    p.Quantity,
		CreatedAt:   p.CreatedAt,
	}
}

// ProductUpdatedEvent builds the update event for a single field change.
func ProductUpdatedEvent(p domain.Product, change domain.FieldChange) events.ProductUpdated {
	return events.ProductUpdated{
		Header:       header(events.EventProductUpdated, p),
		FieldUpdated: change.Field,
		OldValue:     change.OldValue,
		NewValue:     change.NewValue,
	}
}

// ProductDeletedEvent builds the deletion event.
func ProductDeletedEvent(p domain.Product) events.ProductDeleted {
	return events.ProductDeleted{Header: header(events.EventProductDeleted, p)}
}
