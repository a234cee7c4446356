// Package billing talks to the shared server, the external system of record
// for user profiles and trip cost/billing.
package billing

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/example/ride-hailing/internal/models"
)

// Bill is the shared server's answer to a registered trip.
type Bill struct {
	Cost      float64 `json:"cost"`
	Currency  string  `json:"currency"`
	BillingID string  `json:"billing_id"`
}

// Client prices and records finished trips.
type Client interface {
	// Estimate returns the expected cost of a ride before it happens.
	Estimate(ctx context.Context, details models.TripDetails) (Bill, error)
	// Register records a finished trip and returns the final bill. A failure
	// here must surface to the caller; the trip has not been billed.
	Register(ctx context.Context, details models.TripDetails) (Bill, error)
}

// UserDirectory answers role/existence questions about users, also backed by
// the shared server.
type UserDirectory interface {
	Exists(ctx context.Context, username, role string) (bool, error)
}

// SharedServerClient is the HTTP implementation of Client and UserDirectory.
type SharedServerClient struct {
	BaseURL string
	Token   string
	Client  *http.Client
}

func NewSharedServerClient(baseURL, token string) *SharedServerClient {
	return &SharedServerClient{
		BaseURL: strings.TrimRight(baseURL, "/"),
		Token:   token,
		Client:  &http.Client{Timeout: 5 * time.Second},
	}
}

func (s *SharedServerClient) Estimate(ctx context.Context, details models.TripDetails) (Bill, error) {
	return s.postTrip(ctx, "/trips/estimate", details)
}

func (s *SharedServerClient) Register(ctx context.Context, details models.TripDetails) (Bill, error) {
	return s.postTrip(ctx, "/trips", details)
}

func (s *SharedServerClient) Exists(ctx context.Context, username, role string) (bool, error) {
	u := fmt.Sprintf("%s/users/%s?role=%s", s.BaseURL, url.PathEscape(username), url.QueryEscape(role))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return false, err
	}
	req.Header.Set("AuthToken", s.Token)
	resp, err := s.Client.Do(req)
	if err != nil {
		return false, err
	}
	defer resp.Body.Close()
	switch {
	case resp.StatusCode == http.StatusNotFound:
		return false, nil
	case resp.StatusCode >= 300:
		return false, fmt.Errorf("shared server: user lookup status %d", resp.StatusCode)
	}
	return true, nil
}

func (s *SharedServerClient) postTrip(ctx context.Context, path string, details models.TripDetails) (Bill, error) {
	body, err := json.Marshal(details)
	if err != nil {
		return Bill{}, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.BaseURL+path, strings.NewReader(string(body)))
	if err != nil {
		return Bill{}, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("AuthToken", s.Token)
	resp, err := s.Client.Do(req)
	if err != nil {
		return Bill{}, err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return Bill{}, fmt.Errorf("shared server: %s status %d", path, resp.StatusCode)
	}
	var bill Bill
	if err := json.NewDecoder(resp.Body).Decode(&bill); err != nil {
		return Bill{}, err
	}
	return bill, nil
}

// StaticUserDirectory is a fixed username→role map for tests and local runs
// without a shared server.
type StaticUserDirectory map[string]string

func (d StaticUserDirectory) Exists(_ context.Context, username, role string) (bool, error) {
	r, ok := d[username]
	return ok && r == role, nil
}
