package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/bucarabus/fleethub/internal/models"
)

// ListTrips returns trips for a date (?date=2026-08-30, default today),
// optionally filtered to one bus (?plate=ABC123).
func (h *Handler) ListTrips(c *gin.Context) {
	date := time.Now()
	if raw := c.Query("date"); raw != "" {
		parsed, err := time.Parse("2006-01-02", raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid date, expected YYYY-MM-DD"})
			return
		}
		date = parsed
	}

	var trips []*models.Trip
	var err error
	if plate := c.Query("plate"); plate != "" {
		trips, err = h.tripRepo.ListByPlate(c.Request.Context(), plate, date)
	} else {
		trips, err = h.tripRepo.ListByDate(c.Request.Context(), date)
	}
	if err != nil {
		h.logger.Error("Failed to list trips", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list trips"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": trips})
}

// GetTrip returns one trip.
func (h *Handler) GetTrip(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid trip ID"})
		return
	}

	trip, err := h.tripRepo.GetByID(c.Request.Context(), id)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Trip not found"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": trip})
}

type tripRequest struct {
	RouteID     int64     `json:"route_id" binding:"required"`
	PlateNumber *string   `json:"plate_number"`
	DriverID    *int64    `json:"driver_id"`
	TripDate    string    `json:"trip_date" binding:"required"`
	StartTime   time.Time `json:"start_time" binding:"required"`
}

// CreateTrip schedules a run.
func (h *Handler) CreateTrip(c *gin.Context) {
	var req tripRequest
	if err := c.BindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid trip payload"})
		return
	}

	date, err := time.Parse("2006-01-02", req.TripDate)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid trip_date, expected YYYY-MM-DD"})
		return
	}

	trip := &models.Trip{
		RouteID:     req.RouteID,
		PlateNumber: req.PlateNumber,
		DriverID:    req.DriverID,
		TripDate:    date,
		StartTime:   req.StartTime,
	}
	if err := h.tripRepo.Create(c.Request.Context(), trip); err != nil {
		h.logger.Error("Failed to create trip", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create trip"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": trip})
}

// SetTripStatus moves a trip through its lifecycle.
func (h *Handler) SetTripStatus(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid trip ID"})
		return
	}

	var req struct {
		Status string `json:"status" binding:"required,oneof=assigned running completed cancelled"`
	}
	if err := c.BindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid status payload"})
		return
	}

	if err := h.tripRepo.SetStatus(c.Request.Context(), id, req.Status); err != nil {
		h.logger.Error("Failed to set trip status", zap.Error(err), zap.Int64("trip_id", id))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to set trip status"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Trip status updated"})
}

// GetTripGPS returns the stored GPS history of a trip.
func (h *Handler) GetTripGPS(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid trip ID"})
		return
	}

	records, err := h.gpsRepo.QuerySnapshots(c.Request.Context(), id)
	if err != nil {
		h.logger.Error("Failed to query gps history", zap.Error(err), zap.Int64("trip_id", id))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to query GPS history"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": records})
}

// GetTripStats returns the storage-side aggregate over a trip's history.
func (h *Handler) GetTripStats(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid trip ID"})
		return
	}

	stats, err := h.gpsRepo.Aggregate(c.Request.Context(), id)
	if err != nil {
		h.logger.Error("Failed to aggregate trip stats", zap.Error(err), zap.Int64("trip_id", id))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to aggregate trip stats"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": stats})
}
