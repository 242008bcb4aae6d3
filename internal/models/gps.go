package models

import "time"

// GPSRecord is one durable position sample of a trip. These arrive on a slow
// cadence from the driver app and never pass through the live hub.
type GPSRecord struct {
	ID         int64     `json:"id"`
	TripID     int64     `json:"trip_id"`
	Latitude   float64   `json:"lat"`
	Longitude  float64   `json:"lng"`
	Speed      *float64  `json:"speed,omitempty"`
	RecordedAt time.Time `json:"recorded_at"`
}

// TripStats is the storage-side aggregate over a trip's GPS history.
type TripStats struct {
	TotalDistanceKm float64 `json:"total_distance_km"`
	AvgSpeedKmh     float64 `json:"avg_speed_kmh"`
	MaxSpeedKmh     float64 `json:"max_speed_kmh"`
	DurationMinutes float64 `json:"duration_minutes"`
}
