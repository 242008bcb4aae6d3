package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/bucarabus/fleethub/internal/models"
)

// TripRepository stores scheduled runs.
type TripRepository struct {
	db *DB
}

// NewTripRepository creates a trip repository.
func NewTripRepository(db *DB) *TripRepository {
	return &TripRepository{db: db}
}

// Create inserts a trip.
func (r *TripRepository) Create(ctx context.Context, trip *models.Trip) error {
	if trip.Status == "" {
		trip.Status = models.TripAssigned
	}

	query := `
		INSERT INTO trips (route_id, plate_number, driver_id, trip_date, start_time, end_time, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id
	`
	now := time.Now()
	err := r.db.Pool.QueryRow(ctx, query,
		trip.RouteID,
		trip.PlateNumber,
		trip.DriverID,
		trip.TripDate,
		trip.StartTime,
		trip.EndTime,
		trip.Status,
		now,
		now,
	).Scan(&trip.ID)

	if err != nil {
		return fmt.Errorf("insert trip: %w", err)
	}

	trip.CreatedAt = now
	trip.UpdatedAt = now
	return nil
}

// GetByID fetches a trip by id.
func (r *TripRepository) GetByID(ctx context.Context, id int64) (*models.Trip, error) {
	query := `
		SELECT id, route_id, plate_number, driver_id, trip_date, start_time, end_time, status, created_at, updated_at
		FROM trips WHERE id = $1
	`
	trip := &models.Trip{}
	err := r.db.Pool.QueryRow(ctx, query, id).Scan(
		&trip.ID,
		&trip.RouteID,
		&trip.PlateNumber,
		&trip.DriverID,
		&trip.TripDate,
		&trip.StartTime,
		&trip.EndTime,
		&trip.Status,
		&trip.CreatedAt,
		&trip.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("get trip by id: %w", err)
	}
	return trip, nil
}

// ListByDate returns all trips scheduled on a date.
func (r *TripRepository) ListByDate(ctx context.Context, date time.Time) ([]*models.Trip, error) {
	query := `
		SELECT id, route_id, plate_number, driver_id, trip_date, start_time, end_time, status, created_at, updated_at
		FROM trips WHERE trip_date = $1 ORDER BY start_time
	`
	return r.list(ctx, query, date)
}

// ListByPlate returns a bus's trips on a date.
func (r *TripRepository) ListByPlate(ctx context.Context, plate string, date time.Time) ([]*models.Trip, error) {
	query := `
		SELECT id, route_id, plate_number, driver_id, trip_date, start_time, end_time, status, created_at, updated_at
		FROM trips WHERE plate_number = $1 AND trip_date = $2 ORDER BY start_time
	`
	return r.list(ctx, query, plate, date)
}

func (r *TripRepository) list(ctx context.Context, query string, args ...any) ([]*models.Trip, error) {
	rows, err := r.db.Pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list trips: %w", err)
	}
	defer rows.Close()

	var trips []*models.Trip
	for rows.Next() {
		trip := &models.Trip{}
		err := rows.Scan(
			&trip.ID,
			&trip.RouteID,
			&trip.PlateNumber,
			&trip.DriverID,
			&trip.TripDate,
			&trip.StartTime,
			&trip.EndTime,
			&trip.Status,
			&trip.CreatedAt,
			&trip.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan trip: %w", err)
		}
		trips = append(trips, trip)
	}

	return trips, nil
}

// SetStatus moves a trip through its lifecycle. Completing a trip stamps
// end_time.
func (r *TripRepository) SetStatus(ctx context.Context, id int64, status string) error {
	query := `UPDATE trips SET status = $1, updated_at = NOW() WHERE id = $2`
	if status == models.TripCompleted {
		query = `UPDATE trips SET status = $1, end_time = NOW(), updated_at = NOW() WHERE id = $2`
	}
	_, err := r.db.Pool.Exec(ctx, query, status, id)
	if err != nil {
		return fmt.Errorf("set trip status: %w", err)
	}
	return nil
}
