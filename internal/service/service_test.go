package service

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/spec-kit/store-management/internal/cache"
	"github.com/spec-kit/store-management/internal/config"
	"github.com/spec-kit/store-management/internal/events"
	"github.com/spec-kit/store-management/internal/persistence"
	"github.com/spec-kit/store-management/internal/repository"
)

type recordingPublisher struct {
	mu     sync.Mutex
	events []events.ProductEvent
}

func (p *recordingPublisher) Publish(_ context.Context, event events.ProductEvent) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
}

func (p *recordingPublisher) recorded() []events.ProductEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]events.ProductEvent(nil), p.events...)
}

// txTrackingStore exposes the repositories of the transaction in flight.
type txTrackingStore struct {
	repository.Store
	mu      sync.Mutex
	current repository.Repositories
}

func (s *txTrackingStore) WithinTx(ctx context.Context, fn func(ctx context.Context, repos repository.Repositories) error) error {
	return s.Store.WithinTx(ctx, func(ctx context.Context, repos repository.Repositories) error {
		s.mu.Lock()
		s.current = repos
		s.mu.Unlock()
		defer func() {
			s.mu.Lock()
			s.current = nil
			s.mu.Unlock()
		}()
		return fn(ctx, repos)
	})
}

func (s *txTrackingStore) inTx() repository.Repositories {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

// rowCheckingPublisher notes whether a deleted product's row was still
// readable in the surrounding transaction when its event went out.
type rowCheckingPublisher struct {
	recordingPublisher
	store      *txTrackingStore
	rowPresent []bool
}

func (p *rowCheckingPublisher) Publish(ctx context.Context, event events.ProductEvent) {
	if deleted, ok := event.(events.ProductDeleted); ok {
		present := false
		if repos := p.store.inTx(); repos != nil {
			_, err := repos.Products().FindByID(ctx, deleted.ProductID)
			present = err == nil
		}
		p.mu.Lock()
		p.rowPresent = append(p.rowPresent, present)
		p.mu.Unlock()
	}
	p.recordingPublisher.Publish(ctx, event)
}

func newStore(t *testing.T) repository.Store {
	t.Helper()
	store, err := persistence.NewGormSQLiteStore(context.Background(), config.SQLiteConfig{Path: ":memory:"}, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func newProductService(t *testing.T) (*ProductService, *recordingPublisher, repository.Store) {
	t.Helper()
	store := newStore(t)
	publisher := &recordingPublisher{}
	svc := NewProductService(ProductDependencies{
		Store:     store,
		Cache:     cache.NewProductCache(nil, "product:", 0, zap.NewNop()),
		Publisher: publisher,
		Logger:    zap.NewNop(),
	})
	return svc, publisher, store
}

func newUserService(t *testing.T) (*UserService, repository.Store) {
	t.Helper()
	store := newStore(t)
	return NewUserService(UserDependencies{Store: store, BcryptCost: bcrypt.MinCost, Logger: zap.NewNop()}), store
}
