package hub

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/bucarabus/fleethub/internal/models"
)

// Inbound event names.
const (
	EvBusLocation     = "bus-location"
	EvGetAllLocations = "get-all-locations"
	EvGetBusLocation  = "get-bus-location"
	EvBusStartShift   = "bus-start-shift"
	EvBusEndShift     = "bus-end-shift"
)

// Outbound event names. EvBusMoved is the legacy sender-exclusive update kept
// for older driver apps; EvLocationUpdate is the authoritative one.
const (
	EvWelcome          = "welcome"
	EvAllLocations     = "all-locations"
	EvLocationUpdate   = "location-update"
	EvBusMoved         = "bus-moved"
	EvLocationReceived = "location-received"
	EvLocationResponse = "bus-location-response"
	EvShiftStarted     = "shift-started"
	EvShiftEnded       = "shift-ended"
	EvBusDisconnected  = "bus-disconnected"
)

// Envelope is the wire frame: every message in either direction is
// {"event": ..., "data": ...}.
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// LocationPayload is the inbound bus-location body. Lat/Lng are pointers so
// a missing field is distinguishable from a legitimate zero coordinate.
type LocationPayload struct {
	PlateNumber string   `json:"plateNumber" validate:"required"`
	Lat         *float64 `json:"lat" validate:"required,gte=-90,lte=90"`
	Lng         *float64 `json:"lng" validate:"required,gte=-180,lte=180"`
	Speed       *float64 `json:"speed,omitempty" validate:"omitempty,gte=0"`
	Heading     *float64 `json:"heading,omitempty" validate:"omitempty,gte=0,lt=360"`
	RouteID     *int64   `json:"routeId,omitempty"`
	RouteName   string   `json:"routeName,omitempty"`
	RouteColor  string   `json:"routeColor,omitempty"`
	DriverID    *int64   `json:"driverId,omitempty"`
}

// StartShiftPayload is the inbound bus-start-shift body.
type StartShiftPayload struct {
	PlateNumber string `json:"plateNumber" validate:"required"`
	RouteID     int64  `json:"routeId" validate:"required"`
	DriverName  string `json:"driverName,omitempty"`
	DriverID    *int64 `json:"driverId,omitempty"`
	RouteName   string `json:"routeName,omitempty"`
}

// EndShiftPayload is the inbound bus-end-shift body.
type EndShiftPayload struct {
	PlateNumber string `json:"plateNumber" validate:"required"`
}

// PlatePayload is the inbound get-bus-location body.
type PlatePayload struct {
	PlateNumber string `json:"plateNumber" validate:"required"`
}

// WelcomePayload greets a fresh connection with aggregate stats.
type WelcomePayload struct {
	Message          string    `json:"message"`
	Timestamp        time.Time `json:"timestamp"`
	ActiveBuses      int       `json:"activeBuses"`
	ConnectedClients int       `json:"connectedClients"`
}

// LocationUpdate is the normalized broadcast emitted after a successful
// upsert. BusID duplicates PlateNumber under the name the map frontend uses.
type LocationUpdate struct {
	BusID       string    `json:"busId"`
	PlateNumber string    `json:"plateNumber"`
	Latitude    float64   `json:"latitude"`
	Longitude   float64   `json:"longitude"`
	Speed       float64   `json:"speed"`
	Heading     *float64  `json:"heading,omitempty"`
	RouteID     *int64    `json:"routeId,omitempty"`
	RouteName   string    `json:"routeName,omitempty"`
	RouteColor  string    `json:"routeColor,omitempty"`
	DriverID    *int64    `json:"driverId,omitempty"`
	Timestamp   time.Time `json:"timestamp"`
}

// LocationAck confirms receipt to the reporting bus.
type LocationAck struct {
	Success     bool   `json:"success"`
	PlateNumber string `json:"plateNumber"`
}

// LocationResponse answers a get-bus-location lookup.
type LocationResponse struct {
	PlateNumber string                 `json:"plateNumber"`
	Found       bool                   `json:"found"`
	Location    *models.LocationRecord `json:"location"`
}

// ShiftStarted announces a shift beginning. It carries no position; a bus
// only appears on the map once its first location event arrives.
type ShiftStarted struct {
	PlateNumber string    `json:"plateNumber"`
	RouteID     int64     `json:"routeId"`
	DriverName  string    `json:"driverName,omitempty"`
	StartTime   time.Time `json:"startTime"`
}

// ShiftEnded announces a shift finishing.
type ShiftEnded struct {
	PlateNumber string    `json:"plateNumber"`
	EndTime     time.Time `json:"endTime"`
}

// BusDisconnected announces that a bus dropped without ending its shift.
type BusDisconnected struct {
	PlateNumber string `json:"plateNumber"`
}

// NormalizePlate canonicalizes a plate for use as a registry key.
func NormalizePlate(plate string) string {
	return strings.ToUpper(strings.TrimSpace(plate))
}

// updateFromRecord builds the broadcast body for a registry record.
func updateFromRecord(rec models.LocationRecord) LocationUpdate {
	return LocationUpdate{
		BusID:       rec.PlateNumber,
		PlateNumber: rec.PlateNumber,
		Latitude:    rec.Latitude,
		Longitude:   rec.Longitude,
		Speed:       rec.Speed,
		Heading:     rec.Heading,
		RouteID:     rec.RouteID,
		RouteName:   rec.RouteName,
		RouteColor:  rec.RouteColor,
		DriverID:    rec.DriverID,
		Timestamp:   rec.LastUpdate,
	}
}
