package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/bucarabus/fleethub/internal/models"
)

// ListRoutes returns service lines, optionally only active ones
// (?active=true).
func (h *Handler) ListRoutes(c *gin.Context) {
	onlyActive := c.Query("active") == "true"

	routes, err := h.routeRepo.List(c.Request.Context(), onlyActive)
	if err != nil {
		h.logger.Error("Failed to list routes", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list routes"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": routes})
}

// GetRoute returns one route.
func (h *Handler) GetRoute(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid route ID"})
		return
	}

	route, err := h.routeRepo.GetByID(c.Request.Context(), id)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Route not found"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": route})
}

type routeRequest struct {
	Name        string        `json:"name" binding:"required"`
	Description string        `json:"description"`
	Color       string        `json:"color"`
	Fare        float64       `json:"fare" binding:"gte=0"`
	Stops       []models.Stop `json:"stops"`
}

// CreateRoute adds a service line.
func (h *Handler) CreateRoute(c *gin.Context) {
	var req routeRequest
	if err := c.BindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid route payload"})
		return
	}

	route := &models.Route{
		Name:        req.Name,
		Description: req.Description,
		Color:       req.Color,
		Fare:        req.Fare,
		Stops:       req.Stops,
	}
	if err := h.routeRepo.Create(c.Request.Context(), route); err != nil {
		h.logger.Error("Failed to create route", zap.Error(err), zap.String("name", req.Name))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create route"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": route})
}

// UpdateRoute changes a route's metadata and path.
func (h *Handler) UpdateRoute(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid route ID"})
		return
	}

	route, err := h.routeRepo.GetByID(c.Request.Context(), id)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Route not found"})
		return
	}

	var req routeRequest
	if err := c.BindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid route payload"})
		return
	}

	route.Name = req.Name
	route.Description = req.Description
	if req.Color != "" {
		route.Color = req.Color
	}
	route.Fare = req.Fare
	route.Stops = req.Stops

	if err := h.routeRepo.Update(c.Request.Context(), route); err != nil {
		h.logger.Error("Failed to update route", zap.Error(err), zap.Int64("route_id", id))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update route"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": route})
}

// DeactivateRoute soft-deletes a route.
func (h *Handler) DeactivateRoute(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid route ID"})
		return
	}

	if err := h.routeRepo.Deactivate(c.Request.Context(), id); err != nil {
		h.logger.Error("Failed to deactivate route", zap.Error(err), zap.Int64("route_id", id))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to deactivate route"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Route deactivated"})
}
