package storage

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/example/ride-hailing/internal/models"
)

func newRequest(id, rider, driver string) *models.RideRequest {
	return &models.RideRequest{
		ID:        id,
		Rider:     rider,
		Driver:    driver,
		Pickup:    models.Coord{Lat: 30, Lon: 40},
		Dropoff:   models.Coord{Lat: 31, Lon: 41},
		CreatedAt: time.Now(),
	}
}

func TestMemoryStoreCreateAndGet(t *testing.T) {
	ctx := context.Background()
	m := NewMemoryStore()
	if err := m.CreateRequest(ctx, newRequest("r1", "alice", "johny")); err != nil {
		t.Fatal(err)
	}

	got, err := m.GetRequest(ctx, "r1")
	if err != nil {
		t.Fatal(err)
	}
	if got.Rider != "alice" || got.Driver != "johny" {
		t.Fatalf("wrong request: %+v", got)
	}

	byRider, err := m.RequestByRider(ctx, "alice")
	if err != nil {
		t.Fatal(err)
	}
	if byRider.ID != "r1" {
		t.Fatalf("wrong request by rider: %+v", byRider)
	}
}

func TestMemoryStoreSecondRequestSameRider(t *testing.T) {
	ctx := context.Background()
	m := NewMemoryStore()
	if err := m.CreateRequest(ctx, newRequest("r1", "alice", "johny")); err != nil {
		t.Fatal(err)
	}
	err := m.CreateRequest(ctx, newRequest("r2", "alice", "pedro"))
	if !errors.Is(err, ErrActiveRide) {
		t.Fatalf("expected ErrActiveRide, got %v", err)
	}
}

func TestMemoryStoreRequestBlockedByActiveTrip(t *testing.T) {
	ctx := context.Background()
	m := NewMemoryStore()
	trip := &models.Trip{ID: "t1", Rider: "alice", Driver: "johny", StartedAt: time.Now()}
	if err := m.CreateTrip(ctx, trip); err != nil {
		t.Fatal(err)
	}
	err := m.CreateRequest(ctx, newRequest("r1", "alice", "pedro"))
	if !errors.Is(err, ErrActiveRide) {
		t.Fatalf("expected ErrActiveRide while trip is active, got %v", err)
	}
}

func TestMemoryStoreDeleteRequestFreesRider(t *testing.T) {
	ctx := context.Background()
	m := NewMemoryStore()
	if err := m.CreateRequest(ctx, newRequest("r1", "alice", "johny")); err != nil {
		t.Fatal(err)
	}
	if err := m.DeleteRequest(ctx, "r1"); err != nil {
		t.Fatal(err)
	}
	if err := m.DeleteRequest(ctx, "r1"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound on double delete, got %v", err)
	}
	if err := m.CreateRequest(ctx, newRequest("r2", "alice", "pedro")); err != nil {
		t.Fatalf("rider should be free after delete: %v", err)
	}
}

func TestMemoryStoreTripLifecycle(t *testing.T) {
	ctx := context.Background()
	m := NewMemoryStore()
	trip := &models.Trip{ID: "t1", Rider: "alice", Driver: "johny", StartedAt: time.Now()}
	if err := m.CreateTrip(ctx, trip); err != nil {
		t.Fatal(err)
	}

	got, err := m.TripByDriver(ctx, "johny")
	if err != nil {
		t.Fatal(err)
	}
	if got.ID != "t1" || got.Rider != "alice" {
		t.Fatalf("wrong trip: %+v", got)
	}

	// one active trip per driver
	err = m.CreateTrip(ctx, &models.Trip{ID: "t2", Rider: "bob", Driver: "johny"})
	if !errors.Is(err, ErrActiveRide) {
		t.Fatalf("expected ErrActiveRide for busy driver, got %v", err)
	}

	if err := m.DeleteTrip(ctx, "johny"); err != nil {
		t.Fatal(err)
	}
	if _, err := m.TripByDriver(ctx, "johny"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}
}

func TestMemoryStoreReturnsCopies(t *testing.T) {
	ctx := context.Background()
	m := NewMemoryStore()
	if err := m.CreateRequest(ctx, newRequest("r1", "alice", "johny")); err != nil {
		t.Fatal(err)
	}
	got, _ := m.GetRequest(ctx, "r1")
	got.Rider = "mallory"

	again, _ := m.GetRequest(ctx, "r1")
	if again.Rider != "alice" {
		t.Fatal("store handed out a mutable reference")
	}
}
