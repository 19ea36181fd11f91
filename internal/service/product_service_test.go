package service

import (
	"context"
	"strconv"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/store-management/internal/api/dto"
	"github.com/spec-kit/store-management/internal/cache"
	"github.com/spec-kit/store-management/internal/domain"
	"github.com/spec-kit/store-management/internal/events"
	"github.com/spec-kit/store-management/internal/repository"
	"github.com/spec-kit/store-management/pkg/errorutil"
)

func createReq(name, price string, qty int) dto.ProductCreateRequest {
	p := decimal.RequireFromString(price)
	return dto.ProductCreateRequest{Name: name, Description: "A " + name, Category: "Tools", Price: &p, Quantity: &qty}
}

func TestProductService_CreateEchoesInput(t *testing.T) {
	ctx := context.Background()
	svc, publisher, _ := newProductService(t)

	resp, err := svc.Create(ctx, createReq("Widget", "9.99", 5))
	require.NoError(t, err)

	assert.NotZero(t, resp.ID)
	assert.Equal(t, "Widget", resp.Name)
	assert.Equal(t, "A Widget", resp.Description)
	assert.Equal(t, "Tools", resp.Category)
	assert.Equal(t, "9.99", resp.Price.String())
	assert.Equal(t, 5, resp.Quantity)
	assert.False(t, resp.CreatedAt.IsZero())
	assert.False(t, resp.UpdatedAt.IsZero())

	recorded := publisher.recorded()
	require.Len(t, recorded, 1)
	created, ok := recorded[0].(events.ProductCreated)
	require.True(t, ok)
	assert.Equal(t, events.EventProductCreated, created.EventType)
	assert.Equal(t, resp.ID, created.ProductID)
	assert.Equal(t, "Widget", created.ProductName)
	assert.NotEmpty(t, created.EventID)
}

func TestProductService_CreateRejectsInvalid(t *testing.T) {
	ctx := context.Background()
	svc, publisher, store := newProductService(t)

	_, err := svc.Create(ctx, createReq("", "0", -1))
	require.Error(t, err)
	assert.True(t, errorutil.IsKind(err, errorutil.ValidationError))
	assert.Empty(t, publisher.recorded())

	page, err := store.Products().FindAll(ctx, repository.NewPageQuery(0, 10, "", ""))
	require.NoError(t, err)
	assert.Zero(t, page.TotalElements)
}

func TestProductService_CreateComparesPriceExactly(t *testing.T) {
	ctx := context.Background()
	svc, publisher, store := newProductService(t)

	for _, price := range []string{"0.0099999999999999999", "9.999"} {
		_, err := svc.Create(ctx, createReq("Widget", price, 1))
		require.Error(t, err, price)
		assert.True(t, errorutil.IsKind(err, errorutil.ValidationError), price)
	}
	assert.Empty(t, publisher.recorded())

	page, err := store.Products().FindAll(ctx, repository.NewPageQuery(0, 10, "", ""))
	require.NoError(t, err)
	assert.Zero(t, page.TotalElements)

	resp, err := svc.Create(ctx, createReq("Widget", "0.01", 1))
	require.NoError(t, err)
	assert.Equal(t, "0.01", resp.Price.String())
}

func TestProductService_MissingProduct(t *testing.T) {
	ctx := context.Background()
	svc, publisher, _ := newProductService(t)

	_, err := svc.GetByID(ctx, 99)
	requireNotFound(t, err, 99)

	_, err = svc.Update(ctx, 99, domain.SetStock{Quantity: 1})
	requireNotFound(t, err, 99)

	err = svc.Delete(ctx, 99)
	requireNotFound(t, err, 99)

	assert.Empty(t, publisher.recorded())
}

func requireNotFound(t *testing.T, err error, id int64) {
	t.Helper()
	require.Error(t, err)
	appErr, ok := errorutil.Of(err)
	require.True(t, ok)
	assert.Equal(t, "PRODUCT_NOT_FOUND", appErr.Code())
	assert.Equal(t, "Product not found with id: "+strconv.FormatInt(id, 10), appErr.Message)
}

func TestProductService_UnsupportedUpdateLeavesProduct(t *testing.T) {
	ctx := context.Background()
	svc, publisher, _ := newProductService(t)
	created, err := svc.Create(ctx, createReq("Widget", "9.99", 5))
	require.NoError(t, err)

	_, err = svc.Update(ctx, created.ID, domain.UnsupportedUpdate{RawType: "UpdateColorRequest"})
	require.Error(t, err)
	appErr, ok := errorutil.Of(err)
	require.True(t, ok)
	assert.Equal(t, "UNSUPPORTED_UPDATE_TYPE", appErr.Code())
	assert.Equal(t, "Unsupported update request type: UpdateColorRequest", appErr.Message)

	got, err := svc.GetByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "9.99", got.Price.String())
	assert.Equal(t, 5, got.Quantity)
	assert.Len(t, publisher.recorded(), 1)
}

func TestProductService_UpdatePriceOnly(t *testing.T) {
	ctx := context.Background()
	svc, publisher, _ := newProductService(t)
	created, err := svc.Create(ctx, createReq("Widget", "9.99", 5))
	require.NoError(t, err)

	resp, err := svc.Update(ctx, created.ID, domain.SetPrice{Price: decimal.RequireFromString("12.50")})
	require.NoError(t, err)
	assert.Equal(t, "12.5", resp.Price.String())
	assert.Equal(t, 5, resp.Quantity)
	assert.Equal(t, "Widget", resp.Name)

	recorded := publisher.recorded()
	require.Len(t, recorded, 2)
	updated, ok := recorded[1].(events.ProductUpdated)
	require.True(t, ok)
	assert.Equal(t, domain.FieldPrice, updated.FieldUpdated)
	assert.Equal(t, "9.99", updated.OldValue)
	assert.Equal(t, "12.5", updated.NewValue)

	got, err := svc.GetByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "12.5", got.Price.String())
}

func TestProductService_UpdateRejectsOutOfBounds(t *testing.T) {
	ctx := context.Background()
	svc, publisher, _ := newProductService(t)
	created, err := svc.Create(ctx, createReq("Widget", "9.99", 5))
	require.NoError(t, err)

	_, err = svc.Update(ctx, created.ID, domain.SetPrice{Price: decimal.Zero})
	assert.True(t, errorutil.IsKind(err, errorutil.ValidationError))
	_, err = svc.Update(ctx, created.ID, domain.SetStock{Quantity: -1})
	assert.True(t, errorutil.IsKind(err, errorutil.ValidationError))
	_, err = svc.Update(ctx, created.ID, domain.SetPrice{Price: decimal.RequireFromString("10.005")})
	assert.True(t, errorutil.IsKind(err, errorutil.ValidationError))

	got, err := svc.GetByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, 5, got.Quantity)
	assert.Equal(t, "9.99", got.Price.String())
	assert.Len(t, publisher.recorded(), 1)
}

func TestProductService_WidgetLifecycle(t *testing.T) {
	ctx := context.Background()
	svc, publisher, _ := newProductService(t)

	created, err := svc.Create(ctx, createReq("Widget", "9.99", 5))
	require.NoError(t, err)

	updated, err := svc.Update(ctx, created.ID, domain.SetStock{Quantity: 12})
	require.NoError(t, err)
	assert.Equal(t, 12, updated.Quantity)
	assert.Equal(t, "9.99", updated.Price.String())

	require.NoError(t, svc.Delete(ctx, created.ID))

	_, err = svc.GetByID(ctx, created.ID)
	requireNotFound(t, err, created.ID)

	recorded := publisher.recorded()
	require.Len(t, recorded, 3)
	stock, ok := recorded[1].(events.ProductUpdated)
	require.True(t, ok)
	assert.Equal(t, "QUANTITY", stock.FieldUpdated)
	assert.Equal(t, "5", stock.OldValue)
	assert.Equal(t, "12", stock.NewValue)

	deleted, ok := recorded[2].(events.ProductDeleted)
	require.True(t, ok)
	assert.Equal(t, events.EventProductDeleted, deleted.EventType)
	assert.Equal(t, created.ID, deleted.ProductID)
	assert.Equal(t, "Widget", deleted.ProductName)
}

func TestProductService_DeletePublishesBeforeRemovingRow(t *testing.T) {
	ctx := context.Background()
	store := &txTrackingStore{Store: newStore(t)}
	publisher := &rowCheckingPublisher{store: store}
	svc := NewProductService(ProductDependencies{
		Store:     store,
		Cache:     cache.NewProductCache(nil, "product:", 0, zap.NewNop()),
		Publisher: publisher,
		Logger:    zap.NewNop(),
	})

	created, err := svc.Create(ctx, createReq("Widget", "9.99", 5))
	require.NoError(t, err)
	require.NoError(t, svc.Delete(ctx, created.ID))

	publisher.mu.Lock()
	rowPresent := append([]bool(nil), publisher.rowPresent...)
	publisher.mu.Unlock()
	assert.Equal(t, []bool{true}, rowPresent)

	recorded := publisher.recorded()
	require.Len(t, recorded, 2)
	_, ok := recorded[1].(events.ProductDeleted)
	assert.True(t, ok)

	_, err = store.Products().FindByID(ctx, created.ID)
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestProductService_List(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newProductService(t)

	empty, err := svc.List(ctx, repository.NewPageQuery(0, 10, "", ""))
	require.NoError(t, err)
	assert.Empty(t, empty.Content)
	assert.NotNil(t, empty.Content)
	assert.Equal(t, int64(0), empty.TotalElements)
	assert.True(t, empty.Empty)
	assert.True(t, empty.First)
	assert.True(t, empty.Last)

	for _, name := range []string{"Anvil", "Bolt", "Chisel"} {
		_, err := svc.Create(ctx, createReq(name, "1.00", 1))
		require.NoError(t, err)
	}

	page, err := svc.List(ctx, repository.NewPageQuery(1, 2, "name", "ASC"))
	require.NoError(t, err)
	require.Len(t, page.Content, 1)
	assert.Equal(t, "Chisel", page.Content[0].Name)
	assert.Equal(t, 1, page.Page)
	assert.Equal(t, 2, page.Size)
	assert.Equal(t, int64(3), page.TotalElements)
	assert.Equal(t, 2, page.TotalPages)
	assert.False(t, page.First)
	assert.True(t, page.Last)
	assert.Equal(t, 1, page.NumberOfElements)
}
