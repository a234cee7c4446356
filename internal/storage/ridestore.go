package storage

import (
	"context"
	"errors"
	"sync"

	"github.com/example/ride-hailing/internal/models"
)

var (
	// ErrNotFound is returned when a request or trip does not exist.
	ErrNotFound = errors.New("not found")
	// ErrActiveRide is returned by CreateRequest when the rider already has a
	// pending request or an active trip.
	ErrActiveRide = errors.New("rider has an active request or trip")
)

// RideStore persists ride requests and trips. CreateRequest must enforce the
// one-active-ride-per-rider invariant atomically; callers never pre-check.
type RideStore interface {
	CreateRequest(ctx context.Context, req *models.RideRequest) error
	GetRequest(ctx context.Context, id string) (*models.RideRequest, error)
	DeleteRequest(ctx context.Context, id string) error
	RequestByRider(ctx context.Context, rider string) (*models.RideRequest, error)

	CreateTrip(ctx context.Context, t *models.Trip) error
	TripByDriver(ctx context.Context, driver string) (*models.Trip, error)
	DeleteTrip(ctx context.Context, driver string) error
}

// MemoryStore keeps rides in maps behind one mutex, which also makes the
// request-insert invariant check atomic.
type MemoryStore struct {
	mu       sync.RWMutex
	requests map[string]*models.RideRequest // by request id
	trips    map[string]*models.Trip        // by driver username
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		requests: make(map[string]*models.RideRequest),
		trips:    make(map[string]*models.Trip),
	}
}

func (m *MemoryStore) CreateRequest(_ context.Context, req *models.RideRequest) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.requests {
		if r.Rider == req.Rider {
			return ErrActiveRide
		}
	}
	for _, t := range m.trips {
		if t.Rider == req.Rider {
			return ErrActiveRide
		}
	}
	cp := *req
	m.requests[req.ID] = &cp
	return nil
}

func (m *MemoryStore) GetRequest(_ context.Context, id string) (*models.RideRequest, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	r, ok := m.requests[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *r
	return &cp, nil
}

func (m *MemoryStore) DeleteRequest(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.requests[id]; !ok {
		return ErrNotFound
	}
	delete(m.requests, id)
	return nil
}

func (m *MemoryStore) RequestByRider(_ context.Context, rider string) (*models.RideRequest, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, r := range m.requests {
		if r.Rider == rider {
			cp := *r
			return &cp, nil
		}
	}
	return nil, ErrNotFound
}

func (m *MemoryStore) CreateTrip(_ context.Context, t *models.Trip) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.trips[t.Driver]; ok {
		return ErrActiveRide
	}
	cp := *t
	m.trips[t.Driver] = &cp
	return nil
}

func (m *MemoryStore) TripByDriver(_ context.Context, driver string) (*models.Trip, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	t, ok := m.trips[driver]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *t
	return &cp, nil
}

func (m *MemoryStore) DeleteTrip(_ context.Context, driver string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.trips[driver]; !ok {
		return ErrNotFound
	}
	delete(m.trips, driver)
	return nil
}
