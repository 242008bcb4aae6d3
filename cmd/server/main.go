package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/bucarabus/fleethub/internal/api/handlers"
	"github.com/bucarabus/fleethub/internal/config"
	"github.com/bucarabus/fleethub/internal/feed"
	"github.com/bucarabus/fleethub/internal/hub"
	"github.com/bucarabus/fleethub/internal/repository"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger := initLogger(cfg.Debug)
	defer logger.Sync()

	logger.Info("Starting fleet server", zap.String("port", cfg.ServerPort))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	db, err := repository.New(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Fatal("Failed to connect database", zap.Error(err))
	}
	defer db.Close()

	if err := db.Migrate(ctx); err != nil {
		logger.Fatal("Failed to migrate database", zap.Error(err))
	}
	logger.Info("Database migrated successfully")

	busRepo := repository.NewBusRepository(db)
	driverRepo := repository.NewDriverRepository(db)
	routeRepo := repository.NewRouteRepository(db)
	tripRepo := repository.NewTripRepository(db)
	userRepo := repository.NewUserRepository(db)
	gpsRepo := repository.NewGPSRepository(db)

	if cfg.RouteSeedFile != "" {
		if err := seedRoutes(ctx, cfg.RouteSeedFile, routeRepo, logger); err != nil {
			logger.Fatal("Failed to seed routes", zap.Error(err))
		}
	}

	liveHub := hub.New(logger)

	var publisher *feed.Publisher
	if cfg.NatsURL != "" {
		publisher, err = feed.NewPublisher(cfg.NatsURL, cfg.LocationsSubject, logger)
		if err != nil {
			logger.Fatal("Failed to connect NATS", zap.Error(err))
		}
		defer publisher.Close()
		liveHub.SetPublisher(publisher)
		logger.Info("NATS mirror enabled", zap.String("subject", cfg.LocationsSubject))
	}

	go liveHub.Run(ctx)

	handler := handlers.NewHandler(
		logger,
		busRepo,
		driverRepo,
		routeRepo,
		tripRepo,
		userRepo,
		gpsRepo,
		liveHub,
		cfg.FeedAgencyID,
	)

	if !cfg.Debug {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(corsMiddleware())

	handler.RegisterRoutes(router)

	server := &http.Server{
		Addr:    ":" + cfg.ServerPort,
		Handler: router,
	}

	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	logger.Info("Server started", zap.String("addr", server.Addr))

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	// Stop the hub first so every websocket session is closed cleanly.
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server forced to shutdown", zap.Error(err))
	}

	logger.Info("Server exited")
}

// seedRoutes upserts the YAML route network into the database.
func seedRoutes(ctx context.Context, path string, routeRepo *repository.RouteRepository, logger *zap.Logger) error {
	seeds, err := config.LoadRouteSeed(path)
	if err != nil {
		return err
	}

	for _, seed := range seeds {
		route := seed.Route()
		if err := routeRepo.Upsert(ctx, route); err != nil {
			return err
		}
		logger.Info("Route seeded", zap.String("name", route.Name), zap.Int64("route_id", route.ID))
	}
	return nil
}

// initLogger builds the process logger.
func initLogger(debug bool) *zap.Logger {
	var config zap.Config
	if debug {
		config = zap.NewDevelopmentConfig()
		config.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	} else {
		config = zap.NewProductionConfig()
	}

	logger, _ := config.Build()
	return logger
}

// corsMiddleware allows the dashboard and apps to call cross-origin.
func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}
