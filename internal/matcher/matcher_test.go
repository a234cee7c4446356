package matcher

import (
	"context"
	"testing"

	"github.com/example/ride-hailing/internal/geo"
	"github.com/example/ride-hailing/internal/models"
)

func setupDriver(t *testing.T, idx *geo.Index, name string, pos models.Coord, available bool) {
	t.Helper()
	ctx := context.Background()
	if err := idx.UpsertPosition(ctx, name, pos); err != nil {
		t.Fatal(err)
	}
	if err := idx.SetAvailability(ctx, name, available); err != nil {
		t.Fatal(err)
	}
}

func TestClosestAvailablePicksMinimum(t *testing.T) {
	idx := geo.NewIndex()
	target := models.Coord{Lat: 47, Lon: 45}
	// drivers at increasing distance from target
	setupDriver(t, idx, "near", models.Coord{Lat: 47.1, Lon: 45.1}, true)
	setupDriver(t, idx, "mid", models.Coord{Lat: 48, Lon: 46}, true)
	setupDriver(t, idx, "far", models.Coord{Lat: 50, Lon: 48}, true)
	setupDriver(t, idx, "farthest", models.Coord{Lat: 55, Lon: 55}, true)

	s := &Service{Directory: idx}
	name, ok, err := s.ClosestAvailable(context.Background(), target)
	if err != nil {
		t.Fatal(err)
	}
	if !ok || name != "near" {
		t.Fatalf("expected near, got %q ok=%v", name, ok)
	}
}

func TestClosestAvailableOnlyFarthestAvailable(t *testing.T) {
	idx := geo.NewIndex()
	target := models.Coord{Lat: 47, Lon: 45}
	setupDriver(t, idx, "near", models.Coord{Lat: 47.1, Lon: 45.1}, false)
	setupDriver(t, idx, "mid", models.Coord{Lat: 48, Lon: 46}, false)
	setupDriver(t, idx, "farthest", models.Coord{Lat: 55, Lon: 55}, true)

	s := &Service{Directory: idx}
	name, ok, err := s.ClosestAvailable(context.Background(), target)
	if err != nil {
		t.Fatal(err)
	}
	if !ok || name != "farthest" {
		t.Fatalf("expected farthest, got %q ok=%v", name, ok)
	}
}

func TestClosestAvailableNoneAvailable(t *testing.T) {
	idx := geo.NewIndex()
	setupDriver(t, idx, "a", models.Coord{Lat: 1, Lon: 1}, false)
	setupDriver(t, idx, "b", models.Coord{Lat: 2, Lon: 2}, false)

	s := &Service{Directory: idx}
	_, ok, err := s.ClosestAvailable(context.Background(), models.Coord{Lat: 1, Lon: 1})
	if err != nil {
		t.Fatal(err)
	}
	if ok {
		t.Fatal("expected no match")
	}
}

func TestClosestAvailableIgnoresDriversWithoutPosition(t *testing.T) {
	ctx := context.Background()
	idx := geo.NewIndex()
	// available but never reported a position
	if err := idx.SetAvailability(ctx, "invisible", true); err != nil {
		t.Fatal(err)
	}
	setupDriver(t, idx, "visible", models.Coord{Lat: 10, Lon: 10}, true)

	s := &Service{Directory: idx}
	name, ok, err := s.ClosestAvailable(ctx, models.Coord{Lat: 0, Lon: 0})
	if err != nil {
		t.Fatal(err)
	}
	if !ok || name != "visible" {
		t.Fatalf("expected visible, got %q ok=%v", name, ok)
	}

	// with only the position-less driver, there is no candidate at all
	if err := idx.SetAvailability(ctx, "visible", false); err != nil {
		t.Fatal(err)
	}
	_, ok, err = s.ClosestAvailable(ctx, models.Coord{Lat: 0, Lon: 0})
	if err != nil {
		t.Fatal(err)
	}
	if ok {
		t.Fatal("matched a driver with no recorded position")
	}
}

func TestRankedCandidatesNearestFirst(t *testing.T) {
	idx := geo.NewIndex()
	target := models.Coord{Lat: 0, Lon: 0}
	setupDriver(t, idx, "c", models.Coord{Lat: 3, Lon: 0}, true)
	setupDriver(t, idx, "a", models.Coord{Lat: 1, Lon: 0}, true)
	setupDriver(t, idx, "b", models.Coord{Lat: 2, Lon: 0}, true)

	s := &Service{Directory: idx}
	ranked, err := s.RankedCandidates(context.Background(), target)
	if err != nil {
		t.Fatal(err)
	}
	want := []string{"a", "b", "c"}
	if len(ranked) != len(want) {
		t.Fatalf("expected %v, got %v", want, ranked)
	}
	for i := range want {
		if ranked[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, ranked)
		}
	}
}
