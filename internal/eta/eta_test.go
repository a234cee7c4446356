package eta

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/example/ride-hailing/internal/geo"
	"github.com/example/ride-hailing/internal/models"
)

type fakeRouter struct {
	seconds float64
	err     error
	calls   int
}

func (f *fakeRouter) EstimateSeconds(_, _ models.Coord) (float64, error) {
	f.calls++
	return f.seconds, f.err
}

func TestNaiveEstimate(t *testing.T) {
	a := models.Coord{Lat: 30, Lon: 40}
	b := models.Coord{Lat: 30.1, Lon: 40}
	want := geo.DistanceKm(a, b) * 1000 / 10
	if got := EstimateSeconds(a, b, 10); math.Abs(got-want) > 1e-9 {
		t.Fatalf("expected %f, got %f", want, got)
	}
}

func TestNaiveEstimateDefaultSpeed(t *testing.T) {
	a := models.Coord{Lat: 30, Lon: 40}
	b := models.Coord{Lat: 30.1, Lon: 40}
	if EstimateSeconds(a, b, 0) != EstimateSeconds(a, b, 8.0) {
		t.Fatal("zero speed must fall back to the default")
	}
}

func TestCacheSetGet(t *testing.T) {
	c := NewCache(time.Minute)
	a := models.Coord{Lat: 1, Lon: 2}
	b := models.Coord{Lat: 3, Lon: 4}

	if _, ok := c.Get(a, b); ok {
		t.Fatal("unexpected hit on empty cache")
	}
	c.Set(a, b, 120)
	v, ok := c.Get(a, b)
	if !ok || v != 120 {
		t.Fatalf("expected 120, got %f ok=%v", v, ok)
	}
	// direction matters
	if _, ok := c.Get(b, a); ok {
		t.Fatal("reverse direction must miss")
	}
}

func TestCacheExpiry(t *testing.T) {
	c := NewCache(time.Nanosecond)
	a := models.Coord{Lat: 1, Lon: 2}
	b := models.Coord{Lat: 3, Lon: 4}
	c.Set(a, b, 120)
	time.Sleep(2 * time.Millisecond)
	if _, ok := c.Get(a, b); ok {
		t.Fatal("expected expired entry to miss")
	}
}

func TestEstimatorPrefersClientAndCaches(t *testing.T) {
	router := &fakeRouter{seconds: 99}
	e := &Estimator{Client: router, Cache: NewCache(time.Minute)}
	a := models.Coord{Lat: 1, Lon: 2}
	b := models.Coord{Lat: 3, Lon: 4}

	if got := e.PickupETASeconds(a, b); got != 99 {
		t.Fatalf("expected router value, got %f", got)
	}
	if got := e.PickupETASeconds(a, b); got != 99 {
		t.Fatalf("expected cached value, got %f", got)
	}
	if router.calls != 1 {
		t.Fatalf("expected one router call, got %d", router.calls)
	}
}

func TestEstimatorFallsBackToNaive(t *testing.T) {
	router := &fakeRouter{err: errors.New("osrm down")}
	e := &Estimator{Client: router, DefaultSpeedMps: 10}
	a := models.Coord{Lat: 30, Lon: 40}
	b := models.Coord{Lat: 30.1, Lon: 40}

	want := EstimateSeconds(a, b, 10)
	if got := e.PickupETASeconds(a, b); math.Abs(got-want) > 1e-9 {
		t.Fatalf("expected naive fallback %f, got %f", want, got)
	}
}

func TestNilEstimator(t *testing.T) {
	var e *Estimator
	if got := e.PickupETASeconds(models.Coord{}, models.Coord{}); got != 0 {
		t.Fatalf("nil estimator must return 0, got %f", got)
	}
}
