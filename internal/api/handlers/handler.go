package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/bucarabus/fleethub/internal/hub"
	"github.com/bucarabus/fleethub/internal/repository"
	"github.com/bucarabus/fleethub/pkg/ws"
)

// Handler wires the HTTP surface: CRUD over the fleet tables, GPS history,
// live-state reads, and the websocket upgrade into the hub.
type Handler struct {
	logger     *zap.Logger
	busRepo    *repository.BusRepository
	driverRepo *repository.DriverRepository
	routeRepo  *repository.RouteRepository
	tripRepo   *repository.TripRepository
	userRepo   *repository.UserRepository
	gpsRepo    *repository.GPSRepository
	liveHub    *hub.Hub
	agencyID   string
	upgrader   websocket.Upgrader
}

// NewHandler creates the HTTP handler.
func NewHandler(
	logger *zap.Logger,
	busRepo *repository.BusRepository,
	driverRepo *repository.DriverRepository,
	routeRepo *repository.RouteRepository,
	tripRepo *repository.TripRepository,
	userRepo *repository.UserRepository,
	gpsRepo *repository.GPSRepository,
	liveHub *hub.Hub,
	agencyID string,
) *Handler {
	return &Handler{
		logger:     logger,
		busRepo:    busRepo,
		driverRepo: driverRepo,
		routeRepo:  routeRepo,
		tripRepo:   tripRepo,
		userRepo:   userRepo,
		gpsRepo:    gpsRepo,
		liveHub:    liveHub,
		agencyID:   agencyID,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true // dashboard and apps connect cross-origin
			},
		},
	}
}

// RegisterRoutes binds all routes.
func (h *Handler) RegisterRoutes(r *gin.Engine) {
	api := r.Group("/api")
	{
		// Buses
		api.GET("/buses", h.ListBuses)
		api.GET("/buses/:plate", h.GetBus)
		api.POST("/buses", h.CreateBus)
		api.PUT("/buses/:plate", h.UpdateBus)
		api.DELETE("/buses/:plate", h.DeactivateBus)
		api.POST("/buses/:plate/assign", h.AssignDriver)

		// Drivers
		api.GET("/drivers", h.ListDrivers)
		api.GET("/drivers/:id", h.GetDriver)
		api.POST("/drivers", h.CreateDriver)
		api.PUT("/drivers/:id", h.UpdateDriver)
		api.DELETE("/drivers/:id", h.DeactivateDriver)

		// Routes
		api.GET("/routes", h.ListRoutes)
		api.GET("/routes/:id", h.GetRoute)
		api.POST("/routes", h.CreateRoute)
		api.PUT("/routes/:id", h.UpdateRoute)
		api.DELETE("/routes/:id", h.DeactivateRoute)

		// Trips
		api.GET("/trips", h.ListTrips)
		api.GET("/trips/:id", h.GetTrip)
		api.POST("/trips", h.CreateTrip)
		api.PUT("/trips/:id/status", h.SetTripStatus)
		api.GET("/trips/:id/gps", h.GetTripGPS)
		api.GET("/trips/:id/stats", h.GetTripStats)

		// Users
		api.GET("/users", h.ListUsers)
		api.GET("/users/:id", h.GetUser)
		api.POST("/users", h.CreateUser)
		api.PUT("/users/:id", h.UpdateUser)
		api.DELETE("/users/:id", h.DeactivateUser)

		// GPS snapshot submission (driver app, every few minutes)
		api.POST("/gps/snapshots", h.SubmitGPSSnapshot)

		// Live state (read-only views over the hub)
		api.GET("/live/locations", h.LiveLocations)
		api.GET("/live/locations/:plate", h.LiveLocation)
		api.GET("/live/stats", h.LiveStats)
	}

	// GTFS-RT feed for external consumers
	r.GET("/gtfs-rt/vehicle-positions", h.VehiclePositionsFeed)

	// WebSocket
	r.GET("/ws", h.HandleWebSocket)

	// Health check
	r.GET("/health", h.HealthCheck)
}

// HandleWebSocket upgrades the connection and hands it to the hub.
func (h *Handler) HandleWebSocket(c *gin.Context) {
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Error("Failed to upgrade websocket", zap.Error(err))
		return
	}

	client := ws.NewClient(h.liveHub, conn, h.logger)
	client.Start()
}

// HealthCheck reports liveness plus hub counters.
func (h *Handler) HealthCheck(c *gin.Context) {
	stats := h.liveHub.Stats()
	c.JSON(http.StatusOK, gin.H{
		"status":     "ok",
		"ws_clients": stats.ConnectedClients,
		"live_buses": stats.ActiveBuses,
	})
}
