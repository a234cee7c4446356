// Package ride drives the request→trip state machine: submission and
// cancellation of ride requests, and the proximity-gated start/finish of the
// trips they become.
package ride

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"log/slog"
	"time"

	"github.com/example/ride-hailing/internal/billing"
	"github.com/example/ride-hailing/internal/dispatch"
	"github.com/example/ride-hailing/internal/eta"
	"github.com/example/ride-hailing/internal/geo"
	"github.com/example/ride-hailing/internal/matcher"
	"github.com/example/ride-hailing/internal/models"
	"github.com/example/ride-hailing/internal/observability"
	"github.com/example/ride-hailing/internal/payments"
	"github.com/example/ride-hailing/internal/proximity"
	"github.com/example/ride-hailing/internal/storage"
)

const riderRole = "rider"

type Service struct {
	Directory geo.Directory
	Matcher   *matcher.Service
	Gate      *proximity.Gate
	Store     storage.RideStore
	Users     billing.UserDirectory
	Billing   billing.Client
	Payments  payments.Payments // optional
	Notifier  dispatch.Notifier
	ETA       *eta.Estimator // optional
	Logger    *slog.Logger
	Currency  string

	// Now is overridable in tests; defaults to time.Now.
	Now func() time.Time
}

func (s *Service) clock() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

// Submit matches a rider with the closest available driver and persists the
// resulting ride request. The chosen driver is claimed atomically; when two
// submissions race for the same driver, the loser falls through to the next
// nearest candidate.
func (s *Service) Submit(ctx context.Context, rider string, pickup, dropoff models.Coord) (*models.RideRequest, error) {
	ok, err := s.Users.Exists(ctx, rider, riderRole)
	if err != nil {
		return nil, internalFailure(err)
	}
	if !ok {
		return nil, ErrRiderNotFound
	}

	candidates, err := s.Matcher.RankedCandidates(ctx, pickup)
	if err != nil {
		return nil, internalFailure(err)
	}
	driver := ""
	for _, name := range candidates {
		claimed, err := s.Directory.ClaimDriver(ctx, name)
		if err != nil {
			return nil, internalFailure(err)
		}
		if claimed {
			driver = name
			break
		}
	}
	if driver == "" {
		observability.NoDriverTotal.Inc()
		return nil, ErrNoDriverAvailable
	}

	req := &models.RideRequest{
		ID:        newID(),
		Rider:     rider,
		Driver:    driver,
		Pickup:    pickup,
		Dropoff:   dropoff,
		CreatedAt: s.clock(),
	}
	if err := s.Store.CreateRequest(ctx, req); err != nil {
		// the claim must not outlive a failed submission
		if relErr := s.Directory.ReleaseDriver(ctx, driver); relErr != nil {
			s.Logger.Error("release after failed submit", "driver", driver, "error", relErr)
		}
		if errors.Is(err, storage.ErrActiveRide) {
			return nil, ErrRequestOrTripOngoing
		}
		return nil, internalFailure(err)
	}

	observability.MatchesTotal.Inc()
	s.notifyDriver(ctx, req)
	return req, nil
}

// Cancel deletes a pending request. Only the request's rider or its assigned
// driver may cancel; the other party is told.
func (s *Service) Cancel(ctx context.Context, requestID, actor string) error {
	req, err := s.Store.GetRequest(ctx, requestID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return ErrRequestNotFound
		}
		return internalFailure(err)
	}
	if actor != req.Rider && actor != req.Driver {
		return ErrUnauthorizedAction
	}
	if err := s.Store.DeleteRequest(ctx, requestID); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			// lost a cancellation race; report it, don't swallow it
			return ErrRequestNotFound
		}
		return internalFailure(err)
	}
	if err := s.Directory.ReleaseDriver(ctx, req.Driver); err != nil {
		s.Logger.Error("release driver on cancel", "driver", req.Driver, "error", err)
	}

	other := req.Driver
	if actor == req.Driver {
		other = req.Rider
	}
	s.Notifier.Notify(other, dispatch.EventRideCancelled, map[string]any{
		"request_id":   req.ID,
		"cancelled_by": actor,
	})
	return nil
}

// StartTrip converts a request into a trip once driver and rider are both at
// the pickup location. A failed gate is a retriable outcome and leaves the
// request untouched.
func (s *Service) StartTrip(ctx context.Context, driver, requestID string) (*models.Trip, error) {
	req, err := s.Store.GetRequest(ctx, requestID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, ErrRequestNotFound
		}
		return nil, internalFailure(err)
	}
	if req.Driver != driver {
		return nil, ErrUnauthorizedForRequest
	}

	present, err := s.Gate.AllWithinRadius(ctx, []string{req.Driver, req.Rider}, req.Pickup)
	if err != nil {
		return nil, internalFailure(err)
	}
	if !present {
		return nil, ErrNotAtPickup
	}

	trip := &models.Trip{
		ID:            newID(),
		Rider:         req.Rider,
		Driver:        req.Driver,
		Pickup:        req.Pickup,
		Dropoff:       req.Dropoff,
		RequestedAt:   req.CreatedAt,
		StartedAt:     s.clock(),
		PaymentHoldID: s.holdFunds(ctx, req),
	}
	if err := s.Store.DeleteRequest(ctx, req.ID); err != nil {
		s.cancelHold(ctx, trip.PaymentHoldID)
		if errors.Is(err, storage.ErrNotFound) {
			return nil, ErrRequestNotFound
		}
		return nil, internalFailure(err)
	}
	if err := s.Store.CreateTrip(ctx, trip); err != nil {
		s.cancelHold(ctx, trip.PaymentHoldID)
		return nil, internalFailure(err)
	}

	observability.TripsStarted.Inc()
	s.Notifier.Notify(req.Rider, dispatch.EventTripStarted, map[string]any{
		"trip_id": trip.ID,
		"driver":  trip.Driver,
	})
	return trip, nil
}

// FinishTrip closes the driver's active trip once both parties are at the
// dropoff. The trip is billed first and removed only after billing succeeds,
// so a billing outage leaves the trip active and FinishTrip retriable.
func (s *Service) FinishTrip(ctx context.Context, driver string) (*models.Receipt, error) {
	trip, err := s.Store.TripByDriver(ctx, driver)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, ErrTripNotFound
		}
		return nil, internalFailure(err)
	}

	present, err := s.Gate.AllWithinRadius(ctx, []string{trip.Driver, trip.Rider}, trip.Dropoff)
	if err != nil {
		return nil, internalFailure(err)
	}
	if !present {
		return nil, ErrNotAtDropoff
	}

	now := s.clock()
	distance := trip.DistanceKm
	if distance == 0 {
		distance = geo.DistanceKm(trip.Pickup, trip.Dropoff)
	}
	details := models.TripDetails{
		TripID:        trip.ID,
		Rider:         trip.Rider,
		Driver:        trip.Driver,
		Pickup:        trip.Pickup,
		Dropoff:       trip.Dropoff,
		DistanceKm:    distance,
		WaitSeconds:   trip.StartedAt.Sub(trip.RequestedAt).Seconds(),
		TravelSeconds: now.Sub(trip.StartedAt).Seconds(),
	}
	bill, err := s.Billing.Register(ctx, details)
	if err != nil {
		return nil, dependencyFailure(err)
	}

	if err := s.Store.DeleteTrip(ctx, driver); err != nil && !errors.Is(err, storage.ErrNotFound) {
		s.Logger.Error("delete billed trip", "trip", trip.ID, "error", err)
	}
	if err := s.Directory.ReleaseDriver(ctx, driver); err != nil {
		s.Logger.Error("release driver on finish", "driver", driver, "error", err)
	}
	s.captureFunds(ctx, trip)

	observability.TripsFinished.Inc()
	s.Notifier.Notify(trip.Rider, dispatch.EventTripFinished, map[string]any{
		"trip_id": trip.ID,
		"cost":    bill.Cost,
	})
	return &models.Receipt{
		TripID:    trip.ID,
		Cost:      bill.Cost,
		Currency:  bill.Currency,
		BillingID: bill.BillingID,
	}, nil
}

func (s *Service) notifyDriver(ctx context.Context, req *models.RideRequest) {
	payload := map[string]any{
		"request_id": req.ID,
		"rider":      req.Rider,
		"pickup":     req.Pickup,
		"dropoff":    req.Dropoff,
	}
	if s.ETA != nil {
		if pos, err := s.Directory.Positions(ctx, []string{req.Driver}); err == nil {
			if p, ok := pos[req.Driver]; ok {
				payload["pickup_eta_seconds"] = s.ETA.PickupETASeconds(p, req.Pickup)
			}
		}
	}
	s.Notifier.Notify(req.Driver, dispatch.EventRideRequested, payload)
}

// holdFunds places a best-effort payment hold for the estimated fare.
func (s *Service) holdFunds(ctx context.Context, req *models.RideRequest) string {
	if s.Payments == nil || s.Billing == nil {
		return ""
	}
	estimate, err := s.Billing.Estimate(ctx, models.TripDetails{
		Rider:      req.Rider,
		Driver:     req.Driver,
		Pickup:     req.Pickup,
		Dropoff:    req.Dropoff,
		DistanceKm: geo.DistanceKm(req.Pickup, req.Dropoff),
	})
	if err != nil {
		s.Logger.Warn("fare estimate failed, skipping hold", "rider", req.Rider, "error", err)
		return ""
	}
	holdID, err := s.Payments.Hold(ctx, estimate.Cost, s.currency(estimate.Currency), req.Rider)
	if err != nil {
		s.Logger.Warn("payment hold failed", "rider", req.Rider, "error", err)
		return ""
	}
	return holdID
}

// cancelHold releases a hold whose trip never materialized.
func (s *Service) cancelHold(ctx context.Context, holdID string) {
	if s.Payments == nil || holdID == "" {
		return
	}
	if err := s.Payments.Cancel(ctx, holdID); err != nil {
		s.Logger.Warn("payment hold cancel failed", "hold", holdID, "error", err)
	}
}

func (s *Service) captureFunds(ctx context.Context, trip *models.Trip) {
	if s.Payments == nil || trip.PaymentHoldID == "" {
		return
	}
	if err := s.Payments.Capture(ctx, trip.PaymentHoldID); err != nil {
		s.Logger.Warn("payment capture failed", "trip", trip.ID, "hold", trip.PaymentHoldID, "error", err)
	}
}

func (s *Service) currency(fromBill string) string {
	if fromBill != "" {
		return fromBill
	}
	if s.Currency != "" {
		return s.Currency
	}
	return "usd"
}

func newID() string {
	b := make([]byte, 8)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}
