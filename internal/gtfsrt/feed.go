// Package gtfsrt encodes the hub's live snapshot as a GTFS-Realtime
// VehiclePositions feed so standard transit consumers can track the fleet.
package gtfsrt

import (
	"fmt"
	"strconv"
	"time"

	gtfs "github.com/MobilityData/gtfs-realtime-bindings/golang/gtfs"
	"google.golang.org/protobuf/proto"

	"github.com/bucarabus/fleethub/internal/models"
)

// BuildVehiclePositions converts one consistent registry snapshot into a
// full-dataset FeedMessage. Entity ids are namespaced with the agency so
// aggregators can mix feeds.
func BuildVehiclePositions(agencyID string, records []models.LocationRecord, now time.Time) *gtfs.FeedMessage {
	feed := &gtfs.FeedMessage{
		Header: &gtfs.FeedHeader{
			GtfsRealtimeVersion: proto.String("2.0"),
			Incrementality:      gtfs.FeedHeader_FULL_DATASET.Enum(),
			Timestamp:           proto.Uint64(uint64(now.Unix())),
		},
		Entity: make([]*gtfs.FeedEntity, 0, len(records)),
	}

	for _, rec := range records {
		pos := &gtfs.Position{
			Latitude:  proto.Float32(float32(rec.Latitude)),
			Longitude: proto.Float32(float32(rec.Longitude)),
			// GTFS-RT wants meters per second; the fleet reports km/h.
			Speed: proto.Float32(float32(rec.Speed / 3.6)),
		}
		if rec.Heading != nil {
			pos.Bearing = proto.Float32(float32(*rec.Heading))
		}

		vp := &gtfs.VehiclePosition{
			Vehicle: &gtfs.VehicleDescriptor{
				Id:           proto.String(rec.PlateNumber),
				LicensePlate: proto.String(rec.PlateNumber),
			},
			Position:  pos,
			Timestamp: proto.Uint64(uint64(rec.LastUpdate.Unix())),
		}
		if rec.RouteID != nil {
			vp.Trip = &gtfs.TripDescriptor{
				RouteId: proto.String(strconv.FormatInt(*rec.RouteID, 10)),
			}
		}

		feed.Entity = append(feed.Entity, &gtfs.FeedEntity{
			Id:      proto.String(fmt.Sprintf("%s:%s", agencyID, rec.PlateNumber)),
			Vehicle: vp,
		})
	}

	return feed
}
