package models

import "time"

type Coord struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// RideRequest is a matched-but-not-yet-started ride. A rider has at most one
// outstanding request or trip at any moment, and the assigned driver is
// claimed (flagged on-trip) from the moment the request is created.
type RideRequest struct {
	ID        string    `json:"id"`
	Rider     string    `json:"rider"`
	Driver    string    `json:"driver"`
	Pickup    Coord     `json:"pickup"`
	Dropoff   Coord     `json:"dropoff"`
	CreatedAt time.Time `json:"created_at"`
}

// Trip is a ride whose pickup has been confirmed. It replaces the originating
// RideRequest; the two never exist at the same time for the same pair.
type Trip struct {
	ID          string    `json:"id"`
	Rider       string    `json:"rider"`
	Driver      string    `json:"driver"`
	Pickup      Coord     `json:"pickup"`
	Dropoff     Coord     `json:"dropoff"`
	RequestedAt time.Time `json:"requested_at"`
	StartedAt   time.Time `json:"started_at"`
	DistanceKm  float64   `json:"distance_km"`
	// PaymentHoldID references the payment hold placed at trip start, if any.
	PaymentHoldID string `json:"payment_hold_id,omitempty"`
}

// TripDetails is what the billing service needs to price and record a ride.
type TripDetails struct {
	TripID        string  `json:"trip_id"`
	Rider         string  `json:"rider"`
	Driver        string  `json:"driver"`
	Pickup        Coord   `json:"pickup"`
	Dropoff       Coord   `json:"dropoff"`
	DistanceKm    float64 `json:"distance_km"`
	WaitSeconds   float64 `json:"wait_seconds"`
	TravelSeconds float64 `json:"travel_seconds"`
}

// Receipt is returned to the driver once a trip has been billed.
type Receipt struct {
	TripID    string  `json:"trip_id"`
	Cost      float64 `json:"cost"`
	Currency  string  `json:"currency"`
	BillingID string  `json:"billing_id"`
}
