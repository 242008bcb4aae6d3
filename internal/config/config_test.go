package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	for _, key := range []string{
		"PORT", "DEBUG", "DATABASE_URL", "NATS_URL",
		"NATS_LOCATIONS_SUBJECT", "NATS_SNAPSHOTS_SUBJECT",
		"SNAPSHOT_WORKERS", "STATS_INTERVAL", "ROUTE_SEED_FILE", "FEED_AGENCY_ID",
	} {
		t.Setenv(key, "")
	}

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.ServerPort != "4000" {
		t.Errorf("ServerPort = %q, want 4000", cfg.ServerPort)
	}
	if cfg.Debug {
		t.Error("Debug should default to false")
	}
	if cfg.NatsURL != "" {
		t.Errorf("NatsURL should default to empty, got %q", cfg.NatsURL)
	}
	if cfg.LocationsSubject != "fleet.locations" {
		t.Errorf("LocationsSubject = %q", cfg.LocationsSubject)
	}
	if cfg.SnapshotsSubject != "fleet.gps.snapshots" {
		t.Errorf("SnapshotsSubject = %q", cfg.SnapshotsSubject)
	}
	if cfg.WorkerCount != 5 {
		t.Errorf("WorkerCount = %d, want 5", cfg.WorkerCount)
	}
	if cfg.StatsInterval != 120*time.Second {
		t.Errorf("StatsInterval = %v, want 2m", cfg.StatsInterval)
	}
	if cfg.FeedAgencyID != "bucarabus" {
		t.Errorf("FeedAgencyID = %q", cfg.FeedAgencyID)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("PORT", "8080")
	t.Setenv("DEBUG", "true")
	t.Setenv("NATS_URL", "nats://localhost:4222")
	t.Setenv("SNAPSHOT_WORKERS", "12")
	t.Setenv("STATS_INTERVAL", "30s")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.ServerPort != "8080" {
		t.Errorf("ServerPort = %q", cfg.ServerPort)
	}
	if !cfg.Debug {
		t.Error("Debug override not applied")
	}
	if cfg.NatsURL != "nats://localhost:4222" {
		t.Errorf("NatsURL = %q", cfg.NatsURL)
	}
	if cfg.WorkerCount != 12 {
		t.Errorf("WorkerCount = %d", cfg.WorkerCount)
	}
	if cfg.StatsInterval != 30*time.Second {
		t.Errorf("StatsInterval = %v", cfg.StatsInterval)
	}
}

func TestLoadIgnoresUnparseableValues(t *testing.T) {
	t.Setenv("DEBUG", "yes please")
	t.Setenv("SNAPSHOT_WORKERS", "many")
	t.Setenv("STATS_INTERVAL", "soon")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Debug {
		t.Error("bad bool should fall back to default")
	}
	if cfg.WorkerCount != 5 {
		t.Errorf("bad int should fall back to default, got %d", cfg.WorkerCount)
	}
	if cfg.StatsInterval != 120*time.Second {
		t.Errorf("bad duration should fall back to default, got %v", cfg.StatsInterval)
	}
}
