package repository

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/spec-kit/store-management/internal/domain"
)

func setupStore(t *testing.T) *GormStore {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	store, err := NewGormStore(context.Background(), db)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func newProduct(name, price string, qty int) *domain.Product {
	return &domain.Product{
		Name:     name,
		Category: "Tools",
		Price:    decimal.RequireFromString(price),
		Quantity: qty,
	}
}

func TestGormProducts_SaveAndFind(t *testing.T) {
	ctx := context.Background()
	store := setupStore(t)

	p := newProduct("Widget", "9.99", 5)
	require.NoError(t, store.Products().Save(ctx, p))
	assert.NotZero(t, p.ID)
	assert.False(t, p.CreatedAt.IsZero())

	found, err := store.Products().FindByID(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, "Widget", found.Name)
	assert.True(t, found.Price.Equal(decimal.RequireFromString("9.99")))
	assert.Equal(t, 5, found.Quantity)

	found.Quantity = 12
	require.NoError(t, store.Products().Save(ctx, found))

	reloaded, err := store.Products().FindByID(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, 12, reloaded.Quantity)
}

func TestGormProducts_NotFound(t *testing.T) {
	ctx := context.Background()
	store := setupStore(t)

	_, err := store.Products().FindByID(ctx, 404)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, store.Products().Delete(ctx, 404), ErrNotFound)
	assert.ErrorIs(t, store.Products().Save(ctx, &domain.Product{ID: 404, Name: "x", Price: decimal.NewFromInt(1)}), ErrNotFound)
}

func TestGormProducts_FindAllPaging(t *testing.T) {
	ctx := context.Background()
	store := setupStore(t)

	empty, err := store.Products().FindAll(ctx, NewPageQuery(0, 10, "", ""))
	require.NoError(t, err)
	assert.Empty(t, empty.Content)
	assert.Equal(t, int64(0), empty.TotalElements)
	assert.Equal(t, 0, empty.TotalPages)
	assert.True(t, empty.Empty)
	assert.True(t, empty.First)
	assert.True(t, empty.Last)

	for _, item := range []struct {
		name  string
		price string
	}{{"Bolt", "0.50"}, {"Anvil", "120.00"}, {"Chisel", "14.25"}} {
		require.NoError(t, store.Products().Save(ctx, newProduct(item.name, item.price, 1)))
	}

	page, err := store.Products().FindAll(ctx, NewPageQuery(0, 2, "price", "desc"))
	require.NoError(t, err)
	require.Len(t, page.Content, 2)
	assert.Equal(t, "Anvil", page.Content[0].Name)
	assert.Equal(t, "Chisel", page.Content[1].Name)
	assert.Equal(t, int64(3), page.TotalElements)
	assert.Equal(t, 2, page.TotalPages)
	assert.True(t, page.First)
	assert.False(t, page.Last)

	next, err := store.Products().FindAll(ctx, NewPageQuery(1, 2, "price", "DESC"))
	require.NoError(t, err)
	require.Len(t, next.Content, 1)
	assert.Equal(t, "Bolt", next.Content[0].Name)
	assert.True(t, next.Last)
	assert.Equal(t, 1, next.NumberOfElements)

	byName, err := store.Products().FindAll(ctx, NewPageQuery(0, 10, "name", "ASC"))
	require.NoError(t, err)
	assert.Equal(t, "Anvil", byName.Content[0].Name)
}

func TestGormUsers_RolesAreAdditive(t *testing.T) {
	ctx := context.Background()
	store := setupStore(t)

	userRole, err := store.Roles().FindByName(ctx, domain.RoleUser)
	require.NoError(t, err)
	adminRole, err := store.Roles().FindByName(ctx, domain.RoleAdmin)
	require.NoError(t, err)

	u := &domain.User{Username: "alice", Email: "alice@example.com", PasswordHash: "hash", Enabled: true, Roles: []domain.Role{*userRole}}
	require.NoError(t, store.Users().Save(ctx, u))
	assert.NotZero(t, u.ID)

	u.Roles = append(u.Roles, *adminRole)
	require.NoError(t, store.Users().Save(ctx, u))

	found, err := store.Users().FindByUsername(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, []string{"USER", "ADMIN"}, found.RoleNames())
	assert.True(t, found.Enabled)

	exists, err := store.Users().ExistsByEmail(ctx, "alice@example.com")
	require.NoError(t, err)
	assert.True(t, exists)
	exists, err = store.Users().ExistsByUsername(ctx, "bob")
	require.NoError(t, err)
	assert.False(t, exists)

	_, err = store.Users().FindByID(ctx, 999)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = store.Roles().FindByName(ctx, "AUDITOR")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestGormUsers_DuplicateIsConstraint(t *testing.T) {
	ctx := context.Background()
	store := setupStore(t)

	require.NoError(t, store.Users().Save(ctx, &domain.User{Username: "alice", Email: "a@example.com", PasswordHash: "h", Enabled: true}))
	err := store.Users().Save(ctx, &domain.User{Username: "alice", Email: "b@example.com", PasswordHash: "h", Enabled: true})
	assert.ErrorIs(t, err, ErrConstraint)
}

func TestGormStore_WithinTxRollsBack(t *testing.T) {
	ctx := context.Background()
	store := setupStore(t)
	boom := errors.New("boom")

	err := store.WithinTx(ctx, func(ctx context.Context, repos Repositories) error {
		require.NoError(t, repos.Products().Save(ctx, newProduct("Ghost", "1.00", 1)))
		return boom
	})
	assert.ErrorIs(t, err, boom)

	page, err := store.Products().FindAll(ctx, NewPageQuery(0, 10, "", ""))
	require.NoError(t, err)
	assert.Zero(t, page.TotalElements)
}

func TestPageQueryDefaults(t *testing.T) {
	q := NewPageQuery(-1, 0, "", "sideways")
	assert.Equal(t, PageQuery{Page: 0, Size: DefaultPageSize, SortBy: "id", Direction: SortAsc}, q)
	assert.Equal(t, 20, NewPageQuery(2, 10, "name", "asc").Offset())
	assert.Equal(t, "created_at", productOrderColumn("createdAt"))
	assert.Equal(t, "id", productOrderColumn("password"))
}

func TestPageQueryOffsetSaturates(t *testing.T) {
	q := NewPageQuery(math.MaxInt, 2, "", "")
	assert.Equal(t, math.MaxInt, q.Offset())
	assert.Equal(t, math.MaxInt, NewPageQuery(math.MaxInt, 1, "", "").Offset())
	assert.Equal(t, math.MaxInt-1, NewPageQuery(math.MaxInt/2, 2, "", "").Offset())
}

func TestNewPage_LastOnLargestPage(t *testing.T) {
	page := NewPage[int](nil, NewPageQuery(math.MaxInt, 2, "", ""), 3)
	assert.Empty(t, page.Content)
	assert.Equal(t, 2, page.TotalPages)
	assert.False(t, page.First)
	assert.True(t, page.Last)

	empty := NewPage[int](nil, NewPageQuery(0, 10, "", ""), 0)
	assert.True(t, empty.First)
	assert.True(t, empty.Last)

	middle := NewPage([]int{3, 4}, NewPageQuery(1, 2, "", ""), 5)
	assert.False(t, middle.Last)
	final := NewPage([]int{5}, NewPageQuery(2, 2, "", ""), 5)
	assert.True(t, final.Last)
}

func TestErrorClassification(t *testing.T) {
	assert.ErrorIs(t, gormError("op", gorm.ErrRecordNotFound), ErrNotFound)
	assert.ErrorIs(t, gormError("op", gorm.ErrDuplicatedKey), ErrConstraint)
	assert.ErrorIs(t, gormError("op", errors.New("disk I/O error")), ErrStorage)

	assert.ErrorIs(t, pgError("op", pgx.ErrNoRows), ErrNotFound)
	assert.ErrorIs(t, pgError("op", &pgconn.PgError{Code: "23505"}), ErrConstraint)
	assert.ErrorIs(t, pgError("op", &pgconn.PgError{Code: "40001"}), ErrStorage)
}
