package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/bucarabus/fleethub/internal/models"
)

// GPSRepository is the durable position store. Snapshots arrive on a slow
// cadence from driver apps (directly over HTTP or via the snapshot worker)
// and are never written from the hub's broadcast path.
type GPSRepository struct {
	db *DB
}

// NewGPSRepository creates a GPS history repository.
func NewGPSRepository(db *DB) *GPSRepository {
	return &GPSRepository{db: db}
}

// SubmitSnapshot persists one position sample and returns the stored row.
func (r *GPSRepository) SubmitSnapshot(ctx context.Context, tripID int64, lat, lng float64, speed *float64, recordedAt time.Time) (*models.GPSRecord, error) {
	if recordedAt.IsZero() {
		recordedAt = time.Now()
	}

	query := `
		INSERT INTO trip_gps_history (trip_id, latitude, longitude, speed, recorded_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id
	`
	rec := &models.GPSRecord{
		TripID:     tripID,
		Latitude:   lat,
		Longitude:  lng,
		Speed:      speed,
		RecordedAt: recordedAt,
	}
	err := r.db.Pool.QueryRow(ctx, query, tripID, lat, lng, speed, recordedAt).Scan(&rec.ID)
	if err != nil {
		return nil, fmt.Errorf("insert gps snapshot: %w", err)
	}
	return rec, nil
}

// QuerySnapshots returns a trip's history ordered by time.
func (r *GPSRepository) QuerySnapshots(ctx context.Context, tripID int64) ([]*models.GPSRecord, error) {
	query := `
		SELECT id, trip_id, latitude, longitude, speed, recorded_at
		FROM trip_gps_history WHERE trip_id = $1 ORDER BY recorded_at
	`
	rows, err := r.db.Pool.Query(ctx, query, tripID)
	if err != nil {
		return nil, fmt.Errorf("query gps snapshots: %w", err)
	}
	defer rows.Close()

	var records []*models.GPSRecord
	for rows.Next() {
		rec := &models.GPSRecord{}
		err := rows.Scan(
			&rec.ID,
			&rec.TripID,
			&rec.Latitude,
			&rec.Longitude,
			&rec.Speed,
			&rec.RecordedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan gps snapshot: %w", err)
		}
		records = append(records, rec)
	}

	return records, nil
}

// Latest returns a trip's most recent sample, or nil when none exist.
func (r *GPSRepository) Latest(ctx context.Context, tripID int64) (*models.GPSRecord, error) {
	query := `
		SELECT id, trip_id, latitude, longitude, speed, recorded_at
		FROM trip_gps_history WHERE trip_id = $1 ORDER BY recorded_at DESC LIMIT 1
	`
	rec := &models.GPSRecord{}
	err := r.db.Pool.QueryRow(ctx, query, tripID).Scan(
		&rec.ID,
		&rec.TripID,
		&rec.Latitude,
		&rec.Longitude,
		&rec.Speed,
		&rec.RecordedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("get latest gps snapshot: %w", err)
	}
	return rec, nil
}

// Aggregate computes a trip's statistics entirely in SQL: total distance by
// haversine over consecutive samples, speed aggregates, and wall duration.
func (r *GPSRepository) Aggregate(ctx context.Context, tripID int64) (*models.TripStats, error) {
	query := `
		WITH points AS (
			SELECT
				latitude,
				longitude,
				speed,
				recorded_at,
				LAG(latitude) OVER w AS prev_lat,
				LAG(longitude) OVER w AS prev_lng
			FROM trip_gps_history
			WHERE trip_id = $1
			WINDOW w AS (ORDER BY recorded_at)
		),
		legs AS (
			SELECT 2 * 6371 * asin(sqrt(
				power(sin(radians(latitude - prev_lat) / 2), 2) +
				cos(radians(prev_lat)) * cos(radians(latitude)) *
				power(sin(radians(longitude - prev_lng) / 2), 2)
			)) AS km
			FROM points
			WHERE prev_lat IS NOT NULL
		)
		SELECT
			COALESCE((SELECT SUM(km) FROM legs), 0) AS total_distance_km,
			COALESCE((SELECT AVG(speed) FROM points WHERE speed IS NOT NULL), 0) AS avg_speed_kmh,
			COALESCE((SELECT MAX(speed) FROM points WHERE speed IS NOT NULL), 0) AS max_speed_kmh,
			COALESCE((SELECT EXTRACT(EPOCH FROM (MAX(recorded_at) - MIN(recorded_at))) / 60 FROM points), 0) AS duration_minutes
	`
	stats := &models.TripStats{}
	err := r.db.Pool.QueryRow(ctx, query, tripID).Scan(
		&stats.TotalDistanceKm,
		&stats.AvgSpeedKmh,
		&stats.MaxSpeedKmh,
		&stats.DurationMinutes,
	)
	if err != nil {
		return nil, fmt.Errorf("aggregate trip stats: %w", err)
	}
	return stats, nil
}
