package storage

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/lumetric/attributor/internal/models"
)

// InMemoryEventStore provides in-memory storage for beacon events. It is
// intended for tests and single-node development; production deployments
// use the Postgres store.
type InMemoryEventStore struct {
	mu     sync.RWMutex
	events []*models.Event
}

// NewInMemoryEventStore creates a new in-memory event store.
func NewInMemoryEventStore() *InMemoryEventStore {
	return &InMemoryEventStore{}
}

func (s *InMemoryEventStore) SaveEvent(ctx context.Context, e *models.Event) error {
	if e == nil {
		return errors.New("nil event")
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	cp := *e
	s.events = append(s.events, &cp)
	return nil
}

func (s *InMemoryEventStore) ListEventsInWindow(ctx context.Context, from, to time.Time) ([]*models.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*models.Event, 0)
	for _, e := range s.events {
		if inWindow(e.OccurredAt, from, to) {
			cp := *e
			result = append(result, &cp)
		}
	}
	return result, nil
}

func (s *InMemoryEventStore) CountEvents(ctx context.Context) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return int64(len(s.events)), nil
}

// InMemoryOrderStore provides in-memory storage for orders, keyed by
// external order id for idempotent upserts.
type InMemoryOrderStore struct {
	mu     sync.RWMutex
	orders map[string]*models.Order // external_order_id -> order
}

// NewInMemoryOrderStore creates a new in-memory order store.
func NewInMemoryOrderStore() *InMemoryOrderStore {
	return &InMemoryOrderStore{
		orders: make(map[string]*models.Order),
	}
}

func (s *InMemoryOrderStore) UpsertOrder(ctx context.Context, o *models.Order) error {
	if o == nil {
		return errors.New("nil order")
	}
	if o.ExternalOrderID == "" {
		return errors.New("external_order_id is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	cp := *o
	if existing, ok := s.orders[o.ExternalOrderID]; ok {
		// Last write wins on price and promo code; the internal id and
		// first-seen timestamp are kept stable across retries, matching
		// the Postgres upsert which never updates occurred_at.
		cp.ID = existing.ID
		cp.OccurredAt = existing.OccurredAt
	}
	s.orders[o.ExternalOrderID] = &cp
	return nil
}

func (s *InMemoryOrderStore) ListOrdersInWindow(ctx context.Context, from, to time.Time) ([]*models.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*models.Order, 0, len(s.orders))
	for _, o := range s.orders {
		if inWindow(o.OccurredAt, from, to) {
			cp := *o
			result = append(result, &cp)
		}
	}
	return result, nil
}

func (s *InMemoryOrderStore) GetOrderByExternalID(ctx context.Context, externalID string) (*models.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	o, ok := s.orders[externalID]
	if !ok {
		return nil, nil
	}
	cp := *o
	return &cp, nil
}

// inWindow checks [from, to] inclusive. A zero from means no lower
// bound.
func inWindow(t, from, to time.Time) bool {
	if !from.IsZero() && t.Before(from) {
		return false
	}
	return !t.After(to)
}
