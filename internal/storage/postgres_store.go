package storage

import (
	"context"
	"database/sql"
	"errors"

	_ "github.com/lib/pq"

	"github.com/example/ride-hailing/internal/models"
)

type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(dsn string) (*PostgresStore, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, err
	}
	// quick ping
	if err := db.Ping(); err != nil {
		return nil, err
	}
	return &PostgresStore{db: db}, nil
}

// CreateRequest inserts only when the rider has no pending request and no
// active trip, in one statement, so concurrent submissions cannot both pass.
func (p *PostgresStore) CreateRequest(ctx context.Context, req *models.RideRequest) error {
	res, err := p.db.ExecContext(ctx, `
		INSERT INTO ride_requests(id, rider, driver, pickup_lat, pickup_lon, dropoff_lat, dropoff_lon, created_at)
		SELECT $1, $2, $3, $4, $5, $6, $7, $8
		WHERE NOT EXISTS (SELECT 1 FROM ride_requests WHERE rider = $2)
		  AND NOT EXISTS (SELECT 1 FROM trips WHERE rider = $2)`,
		req.ID, req.Rider, req.Driver,
		req.Pickup.Lat, req.Pickup.Lon, req.Dropoff.Lat, req.Dropoff.Lon,
		req.CreatedAt)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrActiveRide
	}
	return nil
}

func (p *PostgresStore) GetRequest(ctx context.Context, id string) (*models.RideRequest, error) {
	row := p.db.QueryRowContext(ctx, `
		SELECT id, rider, driver, pickup_lat, pickup_lon, dropoff_lat, dropoff_lon, created_at
		FROM ride_requests WHERE id = $1`, id)
	return scanRequest(row)
}

func (p *PostgresStore) DeleteRequest(ctx context.Context, id string) error {
	res, err := p.db.ExecContext(ctx, `DELETE FROM ride_requests WHERE id = $1`, id)
	if err != nil {
		return err
	}
	return oneRowOrNotFound(res)
}

func (p *PostgresStore) RequestByRider(ctx context.Context, rider string) (*models.RideRequest, error) {
	row := p.db.QueryRowContext(ctx, `
		SELECT id, rider, driver, pickup_lat, pickup_lon, dropoff_lat, dropoff_lon, created_at
		FROM ride_requests WHERE rider = $1`, rider)
	return scanRequest(row)
}

func (p *PostgresStore) CreateTrip(ctx context.Context, t *models.Trip) error {
	res, err := p.db.ExecContext(ctx, `
		INSERT INTO trips(id, rider, driver, pickup_lat, pickup_lon, dropoff_lat, dropoff_lon,
			requested_at, started_at, distance_km, payment_hold_id)
		SELECT $1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11
		WHERE NOT EXISTS (SELECT 1 FROM trips WHERE driver = $3)`,
		t.ID, t.Rider, t.Driver,
		t.Pickup.Lat, t.Pickup.Lon, t.Dropoff.Lat, t.Dropoff.Lon,
		t.RequestedAt, t.StartedAt, t.DistanceKm, t.PaymentHoldID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrActiveRide
	}
	return nil
}

func (p *PostgresStore) TripByDriver(ctx context.Context, driver string) (*models.Trip, error) {
	row := p.db.QueryRowContext(ctx, `
		SELECT id, rider, driver, pickup_lat, pickup_lon, dropoff_lat, dropoff_lon,
			requested_at, started_at, distance_km, payment_hold_id
		FROM trips WHERE driver = $1`, driver)
	var t models.Trip
	err := row.Scan(&t.ID, &t.Rider, &t.Driver,
		&t.Pickup.Lat, &t.Pickup.Lon, &t.Dropoff.Lat, &t.Dropoff.Lon,
		&t.RequestedAt, &t.StartedAt, &t.DistanceKm, &t.PaymentHoldID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func (p *PostgresStore) DeleteTrip(ctx context.Context, driver string) error {
	res, err := p.db.ExecContext(ctx, `DELETE FROM trips WHERE driver = $1`, driver)
	if err != nil {
		return err
	}
	return oneRowOrNotFound(res)
}

func scanRequest(row *sql.Row) (*models.RideRequest, error) {
	var r models.RideRequest
	err := row.Scan(&r.ID, &r.Rider, &r.Driver,
		&r.Pickup.Lat, &r.Pickup.Lon, &r.Dropoff.Lat, &r.Dropoff.Lon,
		&r.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &r, nil
}

func oneRowOrNotFound(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
