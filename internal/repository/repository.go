package repository

import (
	"context"
	"errors"
	"math"
	"strings"

	"github.com/spec-kit/store-management/internal/domain"
)

var (
	// ErrNotFound reports a missing row.
	ErrNotFound = errors.New("record not found")
	// ErrConstraint reports a rejected write (unique, check, foreign key, not null).
	ErrConstraint = errors.New("constraint violation")
	// ErrStorage reports any other driver failure.
	ErrStorage = errors.New("storage failure")
)

// ProductRepository persists products.
type ProductRepository interface {
	// Save inserts when ID is zero and updates otherwise, refreshing generated columns.
	Save(ctx context.Context, product *domain.Product) error
	FindByID(ctx context.Context, id int64) (*domain.Product, error)
	FindAll(ctx context.Context, query PageQuery) (Page[domain.Product], error)
	Delete(ctx context.Context, id int64) error
}

// UserRepository persists users and their role assignments.
type UserRepository interface {
	// Save inserts or updates the user. Roles are only ever added.
	Save(ctx context.Context, user *domain.User) error
	FindByID(ctx context.Context, id int64) (*domain.User, error)
	FindByUsername(ctx context.Context, username string) (*domain.User, error)
	ExistsByUsername(ctx context.Context, username string) (bool, error)
	ExistsByEmail(ctx context.Context, email string) (bool, error)
}

// RoleRepository reads the seeded roles.
type RoleRepository interface {
	FindByName(ctx context.Context, name domain.RoleName) (*domain.Role, error)
}

// Repositories groups the repositories bound to one connection or transaction.
type Repositories interface {
	Products() ProductRepository
	Users() UserRepository
	Roles() RoleRepository
}

// Store is the persistence collaborator used by the services.
type Store interface {
	Repositories
	// WithinTx runs fn in a single transaction, committing when fn returns nil.
	WithinTx(ctx context.Context, fn func(ctx context.Context, repos Repositories) error) error
	Ping(ctx context.Context) error
	Close() error
}

// SortDirection orders a page query.
type SortDirection string

const (
	SortAsc  SortDirection = "ASC"
	SortDesc SortDirection = "DESC"
)

// Page defaults.
const (
	DefaultPageSize = 10
	DefaultSortBy   = "id"
)

var productSortColumns = map[string]string{
	"id":          "id",
	"name":        "name",
	"description": "description",
	"category":    "category",
	"price":       "price",
	"quantity":    "quantity",
	"createdAt":   "created_at",
	"updatedAt":   "updated_at",
}

// PageQuery selects one page of a sorted listing.
type PageQuery struct {
	Page      int
	Size      int
	SortBy    string
	Direction SortDirection
}

// NewPageQuery builds a query from raw request values, applying defaults.
func NewPageQuery(page, size int, sortBy, direction string) PageQuery {
	return PageQuery{
		Page:      page,
		Size:      size,
		SortBy:    sortBy,
		Direction: SortDirection(strings.ToUpper(direction)),
	}.normalize()
}

func (q PageQuery) normalize() PageQuery {
	if q.Page < 0 {
		q.Page = 0
	}
	if q.Size <= 0 {
		q.Size = DefaultPageSize
	}
	if q.SortBy == "" {
		q.SortBy = DefaultSortBy
	}
	if q.Direction != SortDesc {
		q.Direction = SortAsc
	}
	return q
}

// Offset is the number of rows skipped before this page. It saturates at
// math.MaxInt instead of wrapping.
func (q PageQuery) Offset() int {
	if q.Size > 0 && q.Page > math.MaxInt/q.Size {
		return math.MaxInt
	}
	return q.Page * q.Size
}

// productOrderColumn resolves a sortable product field to its column name.
func productOrderColumn(sortBy string) string {
	if col, ok := productSortColumns[sortBy]; ok {
		return col
	}
	return productSortColumns[DefaultSortBy]
}

// Page is one slice of a listing with its metadata.
type Page[T any] struct {
	Content          []T
	Page             int
	Size             int
	TotalElements    int64
	TotalPages       int
	First            bool
	Last             bool
	NumberOfElements int
	Empty            bool
}

// NewPage derives page metadata from the query and the total row count.
func NewPage[T any](content []T, q PageQuery, total int64) Page[T] {
	if content == nil {
		content = []T{}
	}
	totalPages := 0
	if q.Size > 0 {
		totalPages = int((total + int64(q.Size) - 1) / int64(q.Size))
	}
	return Page[T]{
		Content:          content,
		Page:             q.Page,
		Size:             q.Size,
		TotalElements:    total,
		TotalPages:       totalPages,
		First:            q.Page == 0,
		Last:             q.Page >= totalPages-1,
		NumberOfElements: len(content),
		Empty:            len(content) == 0,
	}
}

// MapPage converts page content while keeping metadata unchanged.
func MapPage[T, U any](p Page[T], fn func(T) U) Page[U] {
	out := make([]U, 0, len(p.Content))
	for _, item := range p.Content {
		out = append(out, fn(item))
	}
	return Page[U]{
		Content:          out,
		Page:             p.Page,
		Size:             p.Size,
		TotalElements:    p.TotalElements,
		TotalPages:       p.TotalPages,
		First:            p.First,
		Last:             p.Last,
		NumberOfElements: p.NumberOfElements,
		Empty:            p.Empty,
	}
}
