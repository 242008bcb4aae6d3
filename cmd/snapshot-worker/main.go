// The snapshot worker is the durable half of position tracking: it consumes
// GPS snapshots published by driver apps on NATS and writes them to the
// trip history table. It runs out-of-band from the live hub, so a slow or
// failing database never touches the broadcast path.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/nats-io/nats.go"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/bucarabus/fleethub/internal/config"
	"github.com/bucarabus/fleethub/internal/repository"
)

// snapshotMessage is the wire format on the snapshots subject.
type snapshotMessage struct {
	TripID    int64     `json:"trip_id" validate:"required"`
	Lat       *float64  `json:"lat" validate:"required,gte=-90,lte=90"`
	Lng       *float64  `json:"lng" validate:"required,gte=-180,lte=180"`
	Speed     *float64  `json:"speed,omitempty" validate:"omitempty,gte=0"`
	Timestamp time.Time `json:"timestamp"`
}

var (
	processedCount   atomic.Int64
	errorCount       atomic.Int64
	validationErrors atomic.Int64
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger := initLogger(cfg.Debug)
	defer logger.Sync()

	if cfg.NatsURL == "" {
		logger.Fatal("NATS_URL is required for the snapshot worker")
	}

	logger.Info("Starting snapshot worker",
		zap.String("subject", cfg.SnapshotsSubject),
		zap.Int("workers", cfg.WorkerCount))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	db, err := repository.New(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Fatal("Failed to connect database", zap.Error(err))
	}
	defer db.Close()

	gpsRepo := repository.NewGPSRepository(db)

	nc, err := nats.Connect(cfg.NatsURL,
		nats.Name("fleethub-snapshot-worker"),
		nats.MaxReconnects(-1),
	)
	if err != nil {
		logger.Fatal("Failed to connect NATS", zap.Error(err))
	}
	defer nc.Close()

	messages := make(chan snapshotMessage, 100)
	startWorkerPool(ctx, cfg.WorkerCount, messages, gpsRepo, logger)

	go statsReporter(ctx, cfg.StatsInterval, logger)

	validate := validator.New()
	sub, err := nc.Subscribe(cfg.SnapshotsSubject, func(msg *nats.Msg) {
		var snap snapshotMessage
		if err := json.Unmarshal(msg.Data, &snap); err != nil {
			validationErrors.Add(1)
			logger.Warn("dropping malformed snapshot", zap.Error(err))
			return
		}
		if err := validate.Struct(&snap); err != nil {
			validationErrors.Add(1)
			logger.Warn("dropping invalid snapshot",
				zap.Int64("trip_id", snap.TripID), zap.Error(err))
			return
		}
		messages <- snap
	})
	if err != nil {
		logger.Fatal("Failed to subscribe", zap.Error(err))
	}
	defer sub.Unsubscribe()

	logger.Info("Snapshot worker started")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down snapshot worker...")
	cancel()
}

// startWorkerPool launches the persisting workers.
func startWorkerPool(ctx context.Context, n int, messages <-chan snapshotMessage, gpsRepo *repository.GPSRepository, logger *zap.Logger) {
	for i := 0; i < n; i++ {
		go func(id int) {
			for {
				select {
				case snap := <-messages:
					persistSnapshot(ctx, id, snap, gpsRepo, logger)
				case <-ctx.Done():
					return
				}
			}
		}(i)
	}
}

func persistSnapshot(ctx context.Context, workerID int, snap snapshotMessage, gpsRepo *repository.GPSRepository, logger *zap.Logger) {
	_, err := gpsRepo.SubmitSnapshot(ctx, snap.TripID, *snap.Lat, *snap.Lng, snap.Speed, snap.Timestamp)
	if err != nil {
		errorCount.Add(1)
		logger.Error("Failed to store snapshot",
			zap.Int("worker", workerID),
			zap.Int64("trip_id", snap.TripID),
			zap.Error(err))
		return
	}
	processedCount.Add(1)
}

// statsReporter logs throughput counters on a fixed cadence.
func statsReporter(ctx context.Context, interval time.Duration, logger *zap.Logger) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			logger.Info("Snapshot worker stats",
				zap.Int64("processed", processedCount.Load()),
				zap.Int64("errors", errorCount.Load()),
				zap.Int64("validation_errors", validationErrors.Load()))
		case <-ctx.Done():
			return
		}
	}
}

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
