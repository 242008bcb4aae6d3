package gtfsrt

import (
	"testing"
	"time"

	gtfs "github.com/MobilityData/gtfs-realtime-bindings/golang/gtfs"
	"google.golang.org/protobuf/proto"

	"github.com/bucarabus/fleethub/internal/models"
)

func floatPtr(v float64) *float64 { return &v }
func int64Ptr(v int64) *int64     { return &v }

func TestBuildVehiclePositions(t *testing.T) {
	now := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)
	records := []models.LocationRecord{
		{
			PlateNumber: "BUS1",
			Latitude:    7.12,
			Longitude:   -73.12,
			Speed:       36, // km/h
			Heading:     floatPtr(90),
			RouteID:     int64Ptr(3),
			LastUpdate:  now.Add(-5 * time.Second),
		},
		{
			PlateNumber: "BUS2",
			Latitude:    7.14,
			Longitude:   -73.13,
			LastUpdate:  now.Add(-2 * time.Second),
		},
	}

	feed := BuildVehiclePositions("bucarabus", records, now)

	if got := feed.GetHeader().GetGtfsRealtimeVersion(); got != "2.0" {
		t.Errorf("feed version %q, want 2.0", got)
	}
	if feed.GetHeader().GetIncrementality() != gtfs.FeedHeader_FULL_DATASET {
		t.Error("feed must declare a full dataset")
	}
	if got := feed.GetHeader().GetTimestamp(); got != uint64(now.Unix()) {
		t.Errorf("header timestamp %d, want %d", got, now.Unix())
	}
	if len(feed.Entity) != 2 {
		t.Fatalf("got %d entities, want 2", len(feed.Entity))
	}

	first := feed.Entity[0]
	if first.GetId() != "bucarabus:BUS1" {
		t.Errorf("entity id %q", first.GetId())
	}
	vp := first.GetVehicle()
	if vp.GetVehicle().GetLicensePlate() != "BUS1" {
		t.Errorf("license plate %q", vp.GetVehicle().GetLicensePlate())
	}
	pos := vp.GetPosition()
	if pos.GetLatitude() != 7.12 || pos.GetLongitude() != -73.12 {
		t.Errorf("position %v,%v", pos.GetLatitude(), pos.GetLongitude())
	}
	if pos.GetSpeed() != 10 { // 36 km/h is 10 m/s
		t.Errorf("speed %v m/s, want 10", pos.GetSpeed())
	}
	if pos.GetBearing() != 90 {
		t.Errorf("bearing %v, want 90", pos.GetBearing())
	}
	if vp.GetTrip().GetRouteId() != "3" {
		t.Errorf("route id %q, want 3", vp.GetTrip().GetRouteId())
	}
	if vp.GetTimestamp() != uint64(records[0].LastUpdate.Unix()) {
		t.Errorf("vehicle timestamp %d", vp.GetTimestamp())
	}

	// No heading and no route: the optional fields stay unset.
	second := feed.Entity[1].GetVehicle()
	if second.Position.Bearing != nil {
		t.Error("bearing must be omitted when the bus reports no heading")
	}
	if second.Trip != nil {
		t.Error("trip descriptor must be omitted without a route")
	}

	if _, err := proto.Marshal(feed); err != nil {
		t.Fatalf("feed must be serializable: %v", err)
	}
}

func TestBuildVehiclePositionsEmpty(t *testing.T) {
	feed := BuildVehiclePositions("bucarabus", nil, time.Now())
	if len(feed.Entity) != 0 {
		t.Fatalf("got %d entities, want 0", len(feed.Entity))
	}
	if feed.GetHeader() == nil {
		t.Fatal("header must always be present")
	}
}
