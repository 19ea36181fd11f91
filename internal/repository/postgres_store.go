package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// querier is satisfied by both *pgxpool.Pool and pgx.Tx.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type pgRepositories struct {
	products ProductRepository
	users    UserRepository
	roles    RoleRepository
}

func newPgRepositories(db querier) pgRepositories {
	return pgRepositories{
		products: &productRepository{db: db},
		users:    &userRepository{db: db},
		roles:    &roleRepository{db: db},
	}
}

func (r pgRepositories) Products() ProductRepository { return r.products }
func (r pgRepositories) Users() UserRepository       { return r.users }
func (r pgRepositories) Roles() RoleRepository       { return r.roles }

// PostgresStore is the pgx-backed Store.
type PostgresStore struct {
	pgRepositories
	pool *pgxpool.Pool
}

// NewPostgresStore wraps an open pool.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pgRepositories: newPgRepositories(pool), pool: pool}
}

// WithinTx runs fn inside a read-committed transaction.
func (s *PostgresStore) WithinTx(ctx context.Context, fn func(ctx context.Context, repos Repositories) error) error {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return pgError("begin transaction", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := fn(ctx, newPgRepositories(tx)); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return pgError("commit transaction", err)
	}
	return nil
}

// Ping verifies database connectivity.
func (s *PostgresStore) Ping(ctx context.Context) error {
	if err := s.pool.Ping(ctx); err != nil {
		return pgError("ping", err)
	}
	return nil
}

// Close releases pool resources.
func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

// pgError classifies a pgx failure into ErrNotFound, ErrConstraint or ErrStorage.
func pgError(op string, err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("%s: %w", op, ErrNotFound)
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && strings.HasPrefix(pgErr.Code, "23") {
		return fmt.Errorf("%s: %w: %w", op, ErrConstraint, err)
	}
	return fmt.Errorf("%s: %w: %w", op, ErrStorage, err)
}
