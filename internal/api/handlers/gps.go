package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type gpsSnapshotRequest struct {
	TripID    int64     `json:"trip_id" binding:"required"`
	Lat       *float64  `json:"lat" binding:"required,gte=-90,lte=90"`
	Lng       *float64  `json:"lng" binding:"required,gte=-180,lte=180"`
	Speed     *float64  `json:"speed" binding:"omitempty,gte=0"`
	Timestamp time.Time `json:"timestamp"`
}

// SubmitGPSSnapshot persists one durable position sample. Called by the
// driver app every few minutes; failures here never touch the live
// broadcast path.
func (h *Handler) SubmitGPSSnapshot(c *gin.Context) {
	var req gpsSnapshotRequest
	if err := c.BindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid snapshot payload"})
		return
	}

	rec, err := h.gpsRepo.SubmitSnapshot(
		c.Request.Context(),
		req.TripID,
		*req.Lat,
		*req.Lng,
		req.Speed,
		req.Timestamp,
	)
	if err != nil {
		h.logger.Error("Failed to store gps snapshot", zap.Error(err), zap.Int64("trip_id", req.TripID))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to store snapshot"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": rec})
}
