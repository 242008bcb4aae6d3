package hub

import (
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/bucarabus/fleethub/internal/models"
)

// Registry errors. Both are dropped silently at the router level after a log
// entry; neither reaches a client.
var (
	ErrInvalidLocation = errors.New("invalid location")
	ErrOrphanUpdate    = errors.New("location update from unregistered connection")
)

// connLookup is the slice of the connection registry the location registry
// needs to reject orphan updates.
type connLookup interface {
	Lookup(connID string) (*Connection, bool)
}

// LocationRegistry is the authoritative live-state store: plate → latest
// position. Conflicting writers to one plate resolve by arrival order
// (last-write-wins), tracked by a monotonic sequence the registry assigns
// under its own lock.
//
// Mutation happens only on the hub's dispatch goroutine; the RWMutex lets
// Snapshot run concurrently from HTTP handlers without ever exposing a
// half-applied record.
type LocationRegistry struct {
	owners connLookup

	mu      sync.RWMutex
	records map[string]models.LocationRecord
	seq     uint64
}

// NewLocationRegistry creates an empty registry that validates ownership
// against owners.
func NewLocationRegistry(owners connLookup) *LocationRegistry {
	return &LocationRegistry{
		owners:  owners,
		records: make(map[string]models.LocationRecord),
	}
}

// Upsert validates and stores the latest position for a plate,
// unconditionally overwriting any prior record, including one owned by a
// different connection. Returns the stored record.
func (r *LocationRegistry) Upsert(p LocationPayload, ownerConnID string) (models.LocationRecord, error) {
	plate := NormalizePlate(p.PlateNumber)
	if plate == "" {
		return models.LocationRecord{}, fmt.Errorf("%w: empty plate", ErrInvalidLocation)
	}
	if p.Lat == nil || *p.Lat < -90 || *p.Lat > 90 {
		return models.LocationRecord{}, fmt.Errorf("%w: latitude out of range", ErrInvalidLocation)
	}
	if p.Lng == nil || *p.Lng < -180 || *p.Lng > 180 {
		return models.LocationRecord{}, fmt.Errorf("%w: longitude out of range", ErrInvalidLocation)
	}
	var speed float64
	if p.Speed != nil {
		if *p.Speed < 0 {
			return models.LocationRecord{}, fmt.Errorf("%w: negative speed", ErrInvalidLocation)
		}
		speed = *p.Speed
	}
	if p.Heading != nil && (*p.Heading < 0 || *p.Heading >= 360) {
		return models.LocationRecord{}, fmt.Errorf("%w: heading out of range", ErrInvalidLocation)
	}
	if _, ok := r.owners.Lookup(ownerConnID); !ok {
		return models.LocationRecord{}, fmt.Errorf("%w: conn %s", ErrOrphanUpdate, ownerConnID)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.seq++
	rec := models.LocationRecord{
		PlateNumber: plate,
		Latitude:    *p.Lat,
		Longitude:   *p.Lng,
		Speed:       speed,
		Heading:     p.Heading,
		RouteID:     p.RouteID,
		RouteName:   p.RouteName,
		RouteColor:  p.RouteColor,
		DriverID:    p.DriverID,
		LastUpdate:  time.Now(),
		Seq:         r.seq,
		OwnerConnID: ownerConnID,
	}
	r.records[plate] = rec
	return rec, nil
}

// Remove deletes the record for plate if present. Idempotent.
func (r *LocationRegistry) Remove(plate string) (models.LocationRecord, bool) {
	plate = NormalizePlate(plate)

	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.records[plate]
	if ok {
		delete(r.records, plate)
	}
	return rec, ok
}

// RemoveByOwner deletes every record owned by connID and returns the removed
// records ordered by plate. Used exclusively by the disconnect cascade.
func (r *LocationRegistry) RemoveByOwner(connID string) []models.LocationRecord {
	r.mu.Lock()
	defer r.mu.Unlock()

	var removed []models.LocationRecord
	for plate, rec := range r.records {
		if rec.OwnerConnID == connID {
			removed = append(removed, rec)
			delete(r.records, plate)
		}
	}
	sort.Slice(removed, func(i, j int) bool {
		return removed[i].PlateNumber < removed[j].PlateNumber
	})
	return removed
}

// Get returns the record for plate, if present.
func (r *LocationRegistry) Get(plate string) (models.LocationRecord, bool) {
	plate = NormalizePlate(plate)

	r.mu.RLock()
	defer r.mu.RUnlock()
	rec, ok := r.records[plate]
	return rec, ok
}

// Snapshot returns every current record as of one consistent instant,
// ordered by plate. Records are value copies; callers may hold them as long
// as they like.
func (r *LocationRegistry) Snapshot() []models.LocationRecord {
	r.mu.RLock()
	defer r.mu.RUnlock()

	records := make([]models.LocationRecord, 0, len(r.records))
	for _, rec := range r.records {
		records = append(records, rec)
	}
	sort.Slice(records, func(i, j int) bool {
		return records[i].PlateNumber < records[j].PlateNumber
	})
	return records
}

// Len returns the number of buses with a known position.
func (r *LocationRegistry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.records)
}
