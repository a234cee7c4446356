package billing

import (
	"context"
	"math"

	"github.com/example/ride-hailing/internal/models"
)

// FlatRateBiller prices trips locally with a base fare plus a per-km rate.
// It stands in for the shared server in tests and single-node runs; real
// deployments bill remotely.
type FlatRateBiller struct {
	BaseFare float64
	PerKm    float64
	Currency string
}

func NewFlatRateBiller() *FlatRateBiller {
	return &FlatRateBiller{BaseFare: 2.50, PerKm: 1.20, Currency: "usd"}
}

func (f *FlatRateBiller) Estimate(_ context.Context, details models.TripDetails) (Bill, error) {
	return Bill{Cost: f.price(details), Currency: f.Currency}, nil
}

func (f *FlatRateBiller) Register(_ context.Context, details models.TripDetails) (Bill, error) {
	return Bill{Cost: f.price(details), Currency: f.Currency, BillingID: "local-" + details.TripID}, nil
}

func (f *FlatRateBiller) price(details models.TripDetails) float64 {
	cost := f.BaseFare + f.PerKm*details.DistanceKm
	return math.Round(cost*100) / 100
}

// AllowAllUsers accepts every username for every role; local runs only.
type AllowAllUsers struct{}

func (AllowAllUsers) Exists(context.Context, string, string) (bool, error) { return true, nil }
