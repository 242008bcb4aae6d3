package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"google.golang.org/protobuf/proto"

	"github.com/bucarabus/fleethub/internal/gtfsrt"
)

// LiveLocations returns the hub's current snapshot. Same data a websocket
// client gets from get-all-locations, for consumers that just poll.
func (h *Handler) LiveLocations(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"data": h.liveHub.Locations()})
}

// LiveLocation returns the live position of one bus.
func (h *Handler) LiveLocation(c *gin.Context) {
	rec, ok := h.liveHub.Location(c.Param("plate"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "No live position for this bus"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": rec})
}

// LiveStats returns the hub's aggregate counters.
func (h *Handler) LiveStats(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"data": h.liveHub.Stats()})
}

// VehiclePositionsFeed serves the live snapshot as a GTFS-RT FeedMessage
// for external consumers that speak the standard.
func (h *Handler) VehiclePositionsFeed(c *gin.Context) {
	feed := gtfsrt.BuildVehiclePositions(h.agencyID, h.liveHub.Locations(), time.Now())

	data, err := proto.Marshal(feed)
	if err != nil {
		h.logger.Error("Failed to marshal gtfs-rt feed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to build feed"})
		return
	}

	c.Data(http.StatusOK, "application/x-protobuf", data)
}
