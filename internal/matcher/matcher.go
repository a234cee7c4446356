package matcher

import (
	"context"
	"sort"

	"github.com/example/ride-hailing/internal/geo"
	"github.com/example/ride-hailing/internal/models"
)

// Service picks the closest available driver for a pickup location. It never
// mutates driver state; claiming the chosen driver is the caller's job.
type Service struct {
	Directory geo.Directory
}

// ClosestAvailable returns the available driver nearest to pickup. Drivers
// flagged available but with no recorded position cannot be matched and are
// skipped. ok is false when no candidate remains; that is a normal outcome,
// not an error. Ties go to whichever candidate is seen first.
func (s *Service) ClosestAvailable(ctx context.Context, pickup models.Coord) (username string, ok bool, err error) {
	ranked, err := s.RankedCandidates(ctx, pickup)
	if err != nil || len(ranked) == 0 {
		return "", false, err
	}
	return ranked[0], true, nil
}

// RankedCandidates returns all matchable drivers ordered nearest-first, so a
// caller that loses a claim race can fall through to the next candidate.
func (s *Service) RankedCandidates(ctx context.Context, pickup models.Coord) ([]string, error) {
	available, err := s.Directory.AvailableDrivers(ctx)
	if err != nil {
		return nil, err
	}
	if len(available) == 0 {
		return nil, nil
	}
	positions, err := s.Directory.Positions(ctx, available)
	if err != nil {
		return nil, err
	}
	type candidate struct {
		name string
		dist float64
	}
	cands := make([]candidate, 0, len(positions))
	for _, name := range available {
		pos, ok := positions[name]
		if !ok {
			continue
		}
		cands = append(cands, candidate{name, geo.DistanceKm(pos, pickup)})
	}
	sort.SliceStable(cands, func(i, j int) bool { return cands[i].dist < cands[j].dist })
	out := make([]string, len(cands))
	for i, c := range cands {
		out[i] = c.name
	}
	return out, nil
}
