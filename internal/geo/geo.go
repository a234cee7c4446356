package geo

import (
	"context"
	"math"
	"sync"
	"time"

	"github.com/example/ride-hailing/internal/models"
)

// Directory is the driver availability/position store seen by the matcher and
// the ride lifecycle. Positions are latest-value-only; usernames with no
// recorded position are simply absent from Positions results.
type Directory interface {
	// AvailableDrivers returns drivers flagged available and not on a trip.
	AvailableDrivers(ctx context.Context) ([]string, error)
	Positions(ctx context.Context, usernames []string) (map[string]models.Coord, error)
	UpsertPosition(ctx context.Context, username string, c models.Coord) error
	SetAvailability(ctx context.Context, username string, available bool) error
	// ClaimDriver atomically flags a driver on-trip. It reports false when the
	// driver is not available or already claimed; two concurrent claims for
	// the same driver cannot both succeed.
	ClaimDriver(ctx context.Context, username string) (bool, error)
	ReleaseDriver(ctx context.Context, username string) error
}

type driverState struct {
	pos       models.Coord
	hasPos    bool
	available bool
	onTrip    bool
	updated   time.Time
}

// Index is the in-memory Directory used for tests and single-node runs.
type Index struct {
	mu      sync.RWMutex
	drivers map[string]*driverState
}

func NewIndex() *Index {
	return &Index{drivers: make(map[string]*driverState)}
}

func (g *Index) state(username string) *driverState {
	s, ok := g.drivers[username]
	if !ok {
		s = &driverState{}
		g.drivers[username] = s
	}
	return s
}

func (g *Index) AvailableDrivers(_ context.Context) ([]string, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	out := make([]string, 0, len(g.drivers))
	for name, s := range g.drivers {
		if s.available && !s.onTrip {
			out = append(out, name)
		}
	}
	return out, nil
}

func (g *Index) Positions(_ context.Context, usernames []string) (map[string]models.Coord, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	out := make(map[string]models.Coord, len(usernames))
	for _, name := range usernames {
		if s, ok := g.drivers[name]; ok && s.hasPos {
			out[name] = s.pos
		}
	}
	return out, nil
}

func (g *Index) UpsertPosition(_ context.Context, username string, c models.Coord) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	s := g.state(username)
	s.pos = c
	s.hasPos = true
	s.updated = time.Now()
	return nil
}

func (g *Index) SetAvailability(_ context.Context, username string, available bool) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.state(username).available = available
	return nil
}

func (g *Index) ClaimDriver(_ context.Context, username string) (bool, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	s, ok := g.drivers[username]
	if !ok || !s.available || s.onTrip {
		return false, nil
	}
	s.onTrip = true
	return true, nil
}

func (g *Index) ReleaseDriver(_ context.Context, username string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.state(username).onTrip = false
	return nil
}

// DistanceKm returns the great-circle distance between two points in
// kilometres using the haversine formula.
func DistanceKm(a, b models.Coord) float64 {
	const earthRadiusKm = 6371.0
	dLat := radians(b.Lat - a.Lat)
	dLon := radians(b.Lon - a.Lon)
	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(radians(a.Lat))*math.Cos(radians(b.Lat))*math.Sin(dLon/2)*math.Sin(dLon/2)
	c := 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))
	return earthRadiusKm * c
}

func radians(deg float64) float64 { return deg * math.Pi / 180 }
