package main

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/example/ride-hailing/internal/geo"
	"github.com/example/ride-hailing/internal/ingest"
	"github.com/example/ride-hailing/internal/models"
)

// flakyDirectory fails the first N upserts, then delegates to a real index.
type flakyDirectory struct {
	*geo.Index
	failures int
	calls    int
}

func (f *flakyDirectory) UpsertPosition(ctx context.Context, username string, pos models.Coord) error {
	f.calls++
	if f.calls <= f.failures {
		return errors.New("redis timeout")
	}
	return f.Index.UpsertPosition(ctx, username, pos)
}

func TestUpsertWithRetryEventuallySucceeds(t *testing.T) {
	ctx := context.Background()
	dir := &flakyDirectory{Index: geo.NewIndex(), failures: 2}
	update := ingest.PositionUpdate{Username: "johny", Position: models.Coord{Lat: 31, Lon: 41}}

	if err := upsertWithRetry(ctx, dir, update, 3, time.Millisecond); err != nil {
		t.Fatal(err)
	}
	if dir.calls != 3 {
		t.Fatalf("expected 3 attempts, got %d", dir.calls)
	}

	pos, err := dir.Positions(ctx, []string{"johny"})
	if err != nil {
		t.Fatal(err)
	}
	if pos["johny"] != (models.Coord{Lat: 31, Lon: 41}) {
		t.Fatalf("position not written: %v", pos)
	}
}

func TestUpsertWithRetryGivesUp(t *testing.T) {
	dir := &flakyDirectory{Index: geo.NewIndex(), failures: 10}
	update := ingest.PositionUpdate{Username: "johny", Position: models.Coord{Lat: 31, Lon: 41}}

	err := upsertWithRetry(context.Background(), dir, update, 3, time.Millisecond)
	if err == nil {
		t.Fatal("expected the final error to surface")
	}
	if dir.calls != 3 {
		t.Fatalf("expected exactly 3 attempts, got %d", dir.calls)
	}
}
