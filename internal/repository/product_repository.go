package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/spec-kit/store-management/internal/domain"
)

const productColumns = `id, name, description, category, price::text, quantity, created_at, updated_at`

type productRepository struct {
	db querier
}

func (r *productRepository) Save(ctx context.Context, product *domain.Product) error {
	if product.ID == 0 {
		return r.insert(ctx, product)
	}
	return r.update(ctx, product)
}

func (r *productRepository) insert(ctx context.Context, product *domain.Product) error {
	const query = `
        INSERT INTO products (name, description, category, price, quantity)
        VALUES ($1, $2, $3, $4::numeric, $5)
        RETURNING id, created_at, updated_at`
	err := r.db.QueryRow(ctx, query,
		product.Name,
		product.Description,
		product.Category,
		product.Price.String(),
		product.Quantity,
	).Scan(&product.ID, &product.CreatedAt, &product.UpdatedAt)
	if err != nil {
		return pgError("insert product", err)
	}
	return nil
}

func (r *productRepository) update(ctx context.Context, product *domain.Product) error {
	const query = `
        UPDATE products SET name=$1, description=$2, category=$3, price=$4::numeric, quantity=$5, updated_at=NOW()
        WHERE id=$6
        RETURNING updated_at`
	err := r.db.QueryRow(ctx, query,
		product.Name,
		product.Description,
		product.Category,
		product.Price.String(),
		product.Quantity,
		product.ID,
	).Scan(&product.UpdatedAt)
	if err != nil {
		return pgError("update product", err)
	}
	return nil
}

func (r *productRepository) FindByID(ctx context.Context, id int64) (*domain.Product, error) {
	query := `SELECT ` + productColumns + ` FROM products WHERE id=$1`
	product, err := scanProduct(r.db.QueryRow(ctx, query, id))
	if err != nil {
		return nil, pgError("find product", err)
	}
	return product, nil
}

func (r *productRepository) FindAll(ctx context.Context, q PageQuery) (Page[domain.Product], error) {
	q = q.normalize()

	var total int64
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM products`).Scan(&total); err != nil {
		return Page[domain.Product]{}, pgError("count products", err)
	}

	query := fmt.Sprintf(`SELECT %s FROM products ORDER BY %s %s, id ASC LIMIT $1 OFFSET $2`,
		productColumns, productOrderColumn(q.SortBy), q.Direction)
	rows, err := r.db.Query(ctx, query, q.Size, q.Offset())
	if err != nil {
		return Page[domain.Product]{}, pgError("list products", err)
	}
	defer rows.Close()

	products := make([]domain.Product, 0, q.Size)
	for rows.Next() {
		product, err := scanProduct(rows)
		if err != nil {
			return Page[domain.Product]{}, pgError("scan product", err)
		}
		products = append(products, *product)
	}
	if err := rows.Err(); err != nil {
		return Page[domain.Product]{}, pgError("list products", err)
	}
	return NewPage(products, q, total), nil
}

func (r *productRepository) Delete(ctx context.Context, id int64) error {
	cmd, err := r.db.Exec(ctx, `DELETE FROM products WHERE id=$1`, id)
	if err != nil {
		return pgError("delete product", err)
	}
	if cmd.RowsAffected() == 0 {
		return pgError("delete product", pgx.ErrNoRows)
	}
	return nil
}

func scanProduct(row pgx.Row) (*domain.Product, error) {
	var (
		product domain.Product
		price   string
	)
	if err := row.Scan(
		&product.ID,
		&product.Name,
		&product.Description,
		&product.Category,
		&price,
		&product.Quantity,
		&product.CreatedAt,
		&product.UpdatedAt,
	); err != nil {
		return nil, err
	}
	parsed, err := decimal.NewFromString(price)
	if err != nil {
		return nil, fmt.Errorf("parse price %q: %w", price, err)
	}
	product.Price = parsed
	return &product, nil
}
