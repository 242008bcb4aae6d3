package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/bucarabus/fleethub/internal/models"
)

// ListBuses returns the fleet, optionally only active vehicles
// (?active=true).
func (h *Handler) ListBuses(c *gin.Context) {
	onlyActive := c.Query("active") == "true"

	buses, err := h.busRepo.List(c.Request.Context(), onlyActive)
	if err != nil {
		h.logger.Error("Failed to list buses", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list buses"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": buses})
}

// GetBus returns one bus by plate.
func (h *Handler) GetBus(c *gin.Context) {
	bus, err := h.busRepo.GetByPlate(c.Request.Context(), c.Param("plate"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Bus not found"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": bus})
}

type busRequest struct {
	PlateNumber   string     `json:"plate_number" binding:"required"`
	AmbCode       string     `json:"amb_code"`
	Capacity      int        `json:"capacity" binding:"gte=0"`
	PhotoURL      string     `json:"photo_url"`
	OwnerName     string     `json:"owner_name"`
	OwnerDocument string     `json:"owner_document"`
	SoatExpiry    *time.Time `json:"soat_expiry"`
	TechnoExpiry  *time.Time `json:"techno_expiry"`
}

// CreateBus registers a new vehicle.
func (h *Handler) CreateBus(c *gin.Context) {
	var req busRequest
	if err := c.BindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid bus payload"})
		return
	}

	bus := &models.Bus{
		PlateNumber:   req.PlateNumber,
		AmbCode:       req.AmbCode,
		Capacity:      req.Capacity,
		PhotoURL:      req.PhotoURL,
		OwnerName:     req.OwnerName,
		OwnerDocument: req.OwnerDocument,
		SoatExpiry:    req.SoatExpiry,
		TechnoExpiry:  req.TechnoExpiry,
	}
	if err := h.busRepo.Create(c.Request.Context(), bus); err != nil {
		h.logger.Error("Failed to create bus", zap.Error(err), zap.String("plate", req.PlateNumber))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create bus"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": bus})
}

// UpdateBus changes a bus's details.
func (h *Handler) UpdateBus(c *gin.Context) {
	bus, err := h.busRepo.GetByPlate(c.Request.Context(), c.Param("plate"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Bus not found"})
		return
	}

	var req busRequest
	if err := c.BindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid bus payload"})
		return
	}

	bus.AmbCode = req.AmbCode
	bus.Capacity = req.Capacity
	bus.PhotoURL = req.PhotoURL
	bus.OwnerName = req.OwnerName
	bus.OwnerDocument = req.OwnerDocument
	bus.SoatExpiry = req.SoatExpiry
	bus.TechnoExpiry = req.TechnoExpiry

	if err := h.busRepo.Update(c.Request.Context(), bus); err != nil {
		h.logger.Error("Failed to update bus", zap.Error(err), zap.String("plate", bus.PlateNumber))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update bus"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": bus})
}

// DeactivateBus soft-deletes a bus.
func (h *Handler) DeactivateBus(c *gin.Context) {
	if err := h.busRepo.Deactivate(c.Request.Context(), c.Param("plate")); err != nil {
		h.logger.Error("Failed to deactivate bus", zap.Error(err), zap.String("plate", c.Param("plate")))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to deactivate bus"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Bus deactivated"})
}

// AssignDriver assigns a driver to a bus, closing any previous assignment.
func (h *Handler) AssignDriver(c *gin.Context) {
	var req struct {
		DriverID int64 `json:"driver_id" binding:"required"`
	}
	if err := c.BindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid assignment payload"})
		return
	}

	if err := h.busRepo.AssignDriver(c.Request.Context(), c.Param("plate"), req.DriverID); err != nil {
		h.logger.Error("Failed to assign driver", zap.Error(err),
			zap.String("plate", c.Param("plate")), zap.Int64("driver_id", req.DriverID))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to assign driver"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Driver assigned"})
}
