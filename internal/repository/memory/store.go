// Package memory provides an in-memory implementation of the catalog
// repositories, used by tests and by the service when no database is configured.
package memory

import (
	"context"
	"sync"
	"time"

	"product-catalog/internal/domain"
	"product-catalog/internal/repository"

	"github.com/google/uuid"
)

// Store is a thread-safe in-memory catalog. Transactions are serialized
// and applied copy-on-write, so a failed transaction leaves no trace.
type Store struct {
	mu      sync.RWMutex
	current *catalog
	now     func() time.Time
}

// compile-time assertion that Store implements repository.UnitOfWork
var _ repository.UnitOfWork = (*Store)(nil)

// NewStore constructs an empty Store
func NewStore() *Store {
	return &Store{current: newCatalog(), now: repository.SystemClock}
}

// WithClock replaces the time source used for updated_at
func (s *Store) WithClock(now func() time.Time) *Store {
	s.now = now
	return s
}

type catalog struct {
	products   map[uuid.UUID]*domain.Product
	categories map[uuid.UUID]domain.Category
	brands     map[uuid.UUID]domain.Brand
}

func newCatalog() *catalog {
	return &catalog{
		products:   make(map[uuid.UUID]*domain.Product),
		categories: make(map[uuid.UUID]domain.Category),
		brands:     make(map[uuid.UUID]domain.Brand),
	}
}

// clone copies the maps. Stored values are never mutated in place, so
// sharing them between catalogs is safe.
func (c *catalog) clone() *catalog {
	next := &catalog{
		products:   make(map[uuid.UUID]*domain.Product, len(c.products)),
		categories: make(map[uuid.UUID]domain.Category, len(c.categories)),
		brands:     make(map[uuid.UUID]domain.Brand, len(c.brands)),
	}
	for k, v := range c.products {
		next.products[k] = v
	}
	for k, v := range c.categories {
		next.categories[k] = v
	}
	for k, v := range c.brands {
		next.brands[k] = v
	}
	return next
}

// session routes repository calls either to an open transaction or, when
// tx is nil, to the store with one lock per call
type session struct {
	store *Store
	tx    *catalog
}

func (s *session) read(ctx context.Context, fn func(c *catalog) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s.tx != nil {
		return fn(s.tx)
	}
	s.store.mu.RLock()
	defer s.store.mu.RUnlock()
	return fn(s.store.current)
}

func (s *session) write(ctx context.Context, fn func(c *catalog) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s.tx != nil {
		return fn(s.tx)
	}
	s.store.mu.Lock()
	defer s.store.mu.Unlock()
	next := s.store.current.clone()
	if err := fn(next); err != nil {
		return err
	}
	s.store.current = next
	return nil
}

func (s *session) repositories() repository.Repositories {
	return repository.Repositories{
		Products:   &productRepository{session: s},
		Categories: &categoryRepository{session: s},
		Brands:     &brandRepository{session: s},
	}
}

// Repositories returns autocommit repositories. They must not be used from
// inside a WithinTx callback.
func (s *Store) Repositories() repository.Repositories {
	return (&session{store: s}).repositories()
}

// WithinTx runs fn against a private copy of the catalog and publishes the
// copy only when fn succeeds and ctx is still live
func (s *Store) WithinTx(ctx context.Context, fn func(ctx context.Context, repos repository.Repositories) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}
	work := s.current.clone()
	if err := fn(ctx, (&session{store: s, tx: work}).repositories()); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	s.current = work
	return nil
}

// guard answers update-engine lookups against one catalog snapshot
type guard struct {
	c *catalog
}

func (g guard) SlugTaken(_ context.Context, slug domain.Slug, excludeID uuid.UUID) (bool, error) {
	for id, p := range g.c.products {
		if id != excludeID && p.Slug() == slug {
			return true, nil
		}
	}
	return false, nil
}

func (g guard) SKUTaken(_ context.Context, sku domain.SKU, excludeID uuid.UUID) (bool, error) {
	if sku == "" {
		return false, nil
	}
	for id, p := range g.c.products {
		if id != excludeID && p.SKU() == sku {
			return true, nil
		}
	}
	return false, nil
}

func (g guard) ExistsBrand(_ context.Context, id uuid.UUID) (bool, error) {
	_, ok := g.c.brands[id]
	return ok, nil
}

func (g guard) ExistsCategory(_ context.Context, id uuid.UUID) (bool, error) {
	_, ok := g.c.categories[id]
	return ok, nil
}
