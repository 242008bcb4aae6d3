package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/bucarabus/fleethub/internal/models"
)

// ListDrivers returns drivers, optionally only active ones (?active=true).
func (h *Handler) ListDrivers(c *gin.Context) {
	onlyActive := c.Query("active") == "true"

	drivers, err := h.driverRepo.List(c.Request.Context(), onlyActive)
	if err != nil {
		h.logger.Error("Failed to list drivers", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list drivers"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": drivers})
}

// GetDriver returns one driver.
func (h *Handler) GetDriver(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid driver ID"})
		return
	}

	driver, err := h.driverRepo.GetByID(c.Request.Context(), id)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Driver not found"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": driver})
}

type driverRequest struct {
	UserID          *int64     `json:"user_id"`
	FullName        string     `json:"full_name" binding:"required"`
	DocumentID      string     `json:"document_id" binding:"required"`
	Phone           string     `json:"phone"`
	LicenseNumber   string     `json:"license_number" binding:"required"`
	LicenseCategory string     `json:"license_category" binding:"required"`
	LicenseExpiry   *time.Time `json:"license_expiry"`
}

// CreateDriver registers a driver.
func (h *Handler) CreateDriver(c *gin.Context) {
	var req driverRequest
	if err := c.BindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid driver payload"})
		return
	}

	driver := &models.Driver{
		UserID:          req.UserID,
		FullName:        req.FullName,
		DocumentID:      req.DocumentID,
		Phone:           req.Phone,
		LicenseNumber:   req.LicenseNumber,
		LicenseCategory: req.LicenseCategory,
		LicenseExpiry:   req.LicenseExpiry,
	}
	if err := h.driverRepo.Create(c.Request.Context(), driver); err != nil {
		h.logger.Error("Failed to create driver", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create driver"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": driver})
}

// UpdateDriver changes a driver's details.
func (h *Handler) UpdateDriver(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid driver ID"})
		return
	}

	driver, err := h.driverRepo.GetByID(c.Request.Context(), id)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Driver not found"})
		return
	}

	var req driverRequest
	if err := c.BindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid driver payload"})
		return
	}

	driver.FullName = req.FullName
	driver.Phone = req.Phone
	driver.LicenseNumber = req.LicenseNumber
	driver.LicenseCategory = req.LicenseCategory
	driver.LicenseExpiry = req.LicenseExpiry

	if err := h.driverRepo.Update(c.Request.Context(), driver); err != nil {
		h.logger.Error("Failed to update driver", zap.Error(err), zap.Int64("driver_id", id))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update driver"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": driver})
}

// DeactivateDriver soft-deletes a driver.
func (h *Handler) DeactivateDriver(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid driver ID"})
		return
	}

	if err := h.driverRepo.Deactivate(c.Request.Context(), id); err != nil {
		h.logger.Error("Failed to deactivate driver", zap.Error(err), zap.Int64("driver_id", id))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to deactivate driver"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Driver deactivated"})
}
