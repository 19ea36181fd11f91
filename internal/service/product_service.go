package service

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/spec-kit/store-management/internal/api/dto"
	"github.com/spec-kit/store-management/internal/cache"
	"github.com/spec-kit/store-management/internal/domain"
	"github.com/spec-kit/store-management/internal/events"
	"github.com/spec-kit/store-management/internal/mapper"
	"github.com/spec-kit/store-management/internal/repository"
	"github.com/spec-kit/store-management/pkg/errorutil"
)

// ProductService coordinates product workflows.
type ProductService struct {
	store     repository.Store
	cache     *cache.ProductCache
	publisher events.Publisher
	logger    *zap.Logger
}

// ProductDependencies bundles collaborators for the product service.
type ProductDependencies struct {
	Store     repository.Store
	Cache     *cache.ProductCache
	Publisher events.Publisher
	Logger    *zap.Logger
}

// NewProductService constructs the service. Cache may be nil.
func NewProductService(deps ProductDependencies) *ProductService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ProductService{
		store:     deps.Store,
		cache:     deps.Cache,
		publisher: deps.Publisher,
		logger:    logger,
	}
}

// Create persists a new product and announces it.
func (s *ProductService) Create(ctx context.Context, req dto.ProductCreateRequest) (*dto.ProductResponse, error) {
	if err := dto.Validate(&req); err != nil {
		return nil, err
	}
	if err := domain.ValidatePrice(*req.Price); err != nil {
		return nil, err
	}

	product := mapper.ProductFromCreate(req)
	err := s.store.WithinTx(ctx, func(ctx context.Context, repos repository.Repositories) error {
		return repos.Products().Save(ctx, &product)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("product created", zap.Int64("product_id", product.ID), zap.String("name", product.Name))
	s.publisher.Publish(ctx, mapper.ProductCreatedEvent(product))

	resp := mapper.ProductToResponse(product)
	return &resp, nil
}

// List returns one page of products.
func (s *ProductService) List(ctx context.Context, query repository.PageQuery) (*dto.ProductPagedResponse, error) {
	var page repository.Page[domain.Product]
	err := s.store.WithinTx(ctx, func(ctx context.Context, repos repository.Repositories) error {
		var err error
		page, err = repos.Products().FindAll(ctx, query)
		return err
	})
	if err != nil {
		return nil, err
	}

	resp := mapper.ProductPageToResponse(page)
	return &resp, nil
}

// GetByID returns a product, reading through the cache.
func (s *ProductService) GetByID(ctx context.Context, id int64) (*dto.ProductResponse, error) {
	var product *domain.Product
	err := s.store.WithinTx(ctx, func(ctx context.Context, repos repository.Repositories) error {
		var err error
		product, err = s.cache.GetOrLoad(ctx, id, func(ctx context.Context) (*domain.Product, error) {
			return repos.Products().FindByID(ctx, id)
		})
		return err
	})
	if err != nil {
		return nil, productError(err, id)
	}

	resp := mapper.ProductToResponse(*product)
	return &resp, nil
}

// Update applies a single-field change and announces the old and new values.
// A rejected command leaves the row untouched.
func (s *ProductService) Update(ctx context.Context, id int64, cmd domain.UpdateCommand) (*dto.ProductResponse, error) {
	var (
		product domain.Product
		change  domain.FieldChange
	)
	err := s.store.WithinTx(ctx, func(ctx context.Context, repos repository.Repositories) error {
		current, err := repos.Products().FindByID(ctx, id)
		if err != nil {
			return productError(err, id)
		}
		if err := domain.ValidateUpdate(cmd); err != nil {
			return err
		}
		change, err = domain.ApplyUpdate(current, cmd)
		if err != nil {
			return err
		}
		if err := repos.Products().Save(ctx, current); err != nil {
			return productError(err, id)
		}
		product = *current
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.cache.Invalidate(ctx, id)
	s.logger.Info("product updated",
		zap.Int64("product_id", id),
		zap.String("field", change.Field),
		zap.String("old_value", change.OldValue),
		zap.String("new_value", change.NewValue))
	s.publisher.Publish(ctx, mapper.ProductUpdatedEvent(product, change))

	resp := mapper.ProductToResponse(product)
	return &resp, nil
}

// Delete announces the removal and then deletes the product. The event goes
// out before the row is removed, so a failed delete can still emit it.
func (s *ProductService) Delete(ctx context.Context, id int64) error {
	err := s.store.WithinTx(ctx, func(ctx context.Context, repos repository.Repositories) error {
		product, err := repos.Products().FindByID(ctx, id)
		if err != nil {
			return productError(err, id)
		}
		s.publisher.Publish(ctx, mapper.ProductDeletedEvent(*product))
		if err := repos.Products().Delete(ctx, id); err != nil {
			return productError(err, id)
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.cache.Invalidate(ctx, id)
	s.logger.Info("product deleted", zap.Int64("product_id", id))
	return nil
}

func productError(err error, id int64) error {
	if errors.Is(err, repository.ErrNotFound) {
		return errorutil.Wrap(errorutil.ProductNotFound, err, id)
	}
	return err
}
