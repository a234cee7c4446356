package proximity

import (
	"context"

	"github.com/example/ride-hailing/internal/geo"
	"github.com/example/ride-hailing/internal/models"
)

// DefaultRadiusKm is how close (100 m) all parties must be to a location
// before a trip may start or finish there.
const DefaultRadiusKm = 0.1

// Gate confirms that a group of users is physically present at a location.
type Gate struct {
	Directory geo.Directory
	RadiusKm  float64
}

func NewGate(dir geo.Directory) *Gate {
	return &Gate{Directory: dir, RadiusKm: DefaultRadiusKm}
}

// AllWithinRadius reports whether every named user has a recorded position
// within RadiusKm of target. A user with no recorded position cannot be
// confirmed present, so the gate fails closed.
func (g *Gate) AllWithinRadius(ctx context.Context, usernames []string, target models.Coord) (bool, error) {
	radius := g.RadiusKm
	if radius <= 0 {
		radius = DefaultRadiusKm
	}
	positions, err := g.Directory.Positions(ctx, usernames)
	if err != nil {
		return false, err
	}
	for _, name := range usernames {
		pos, ok := positions[name]
		if !ok {
			return false, nil
		}
		if geo.DistanceKm(pos, target) > radius {
			return false, nil
		}
	}
	return true, nil
}
