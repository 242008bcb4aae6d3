package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/bucarabus/fleethub/internal/models"
)

// BusRepository stores fleet vehicles, keyed by plate.
type BusRepository struct {
	db *DB
}

// NewBusRepository creates a bus repository.
func NewBusRepository(db *DB) *BusRepository {
	return &BusRepository{db: db}
}

// Create inserts a bus. Plates are stored upper-cased so the live hub and
// the database agree on the key.
func (r *BusRepository) Create(ctx context.Context, bus *models.Bus) error {
	query := `
		INSERT INTO buses (plate_number, amb_code, capacity, photo_url, owner_name, owner_document, soat_expiry, techno_expiry, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`
	now := time.Now()
	bus.PlateNumber = strings.ToUpper(strings.TrimSpace(bus.PlateNumber))
	_, err := r.db.Pool.Exec(ctx, query,
		bus.PlateNumber,
		bus.AmbCode,
		bus.Capacity,
		bus.PhotoURL,
		bus.OwnerName,
		bus.OwnerDocument,
		bus.SoatExpiry,
		bus.TechnoExpiry,
		true,
		now,
		now,
	)
	if err != nil {
		return fmt.Errorf("insert bus: %w", err)
	}

	bus.IsActive = true
	bus.CreatedAt = now
	bus.UpdatedAt = now
	return nil
}

// GetByPlate fetches a bus by plate.
func (r *BusRepository) GetByPlate(ctx context.Context, plate string) (*models.Bus, error) {
	query := `
		SELECT plate_number, amb_code, capacity, photo_url, owner_name, owner_document, soat_expiry, techno_expiry, is_active, created_at, updated_at
		FROM buses WHERE plate_number = $1
	`
	bus := &models.Bus{}
	err := r.db.Pool.QueryRow(ctx, query, strings.ToUpper(strings.TrimSpace(plate))).Scan(
		&bus.PlateNumber,
		&bus.AmbCode,
		&bus.Capacity,
		&bus.PhotoURL,
		&bus.OwnerName,
		&bus.OwnerDocument,
		&bus.SoatExpiry,
		&bus.TechnoExpiry,
		&bus.IsActive,
		&bus.CreatedAt,
		&bus.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("get bus by plate: %w", err)
	}
	return bus, nil
}

// List returns buses, optionally only active ones.
func (r *BusRepository) List(ctx context.Context, onlyActive bool) ([]*models.Bus, error) {
	query := `
		SELECT plate_number, amb_code, capacity, photo_url, owner_name, owner_document, soat_expiry, techno_expiry, is_active, created_at, updated_at
		FROM buses
	`
	if onlyActive {
		query += ` WHERE is_active = TRUE`
	}
	query += ` ORDER BY plate_number`

	rows, err := r.db.Pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list buses: %w", err)
	}
	defer rows.Close()

	var buses []*models.Bus
	for rows.Next() {
		bus := &models.Bus{}
		err := rows.Scan(
			&bus.PlateNumber,
			&bus.AmbCode,
			&bus.Capacity,
			&bus.PhotoURL,
			&bus.OwnerName,
			&bus.OwnerDocument,
			&bus.SoatExpiry,
			&bus.TechnoExpiry,
			&bus.IsActive,
			&bus.CreatedAt,
			&bus.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan bus: %w", err)
		}
		buses = append(buses, bus)
	}

	return buses, nil
}

// Update changes a bus's mutable fields.
func (r *BusRepository) Update(ctx context.Context, bus *models.Bus) error {
	query := `
		UPDATE buses
		SET amb_code = $1, capacity = $2, photo_url = $3, owner_name = $4, owner_document = $5, soat_expiry = $6, techno_expiry = $7, updated_at = $8
		WHERE plate_number = $9
	`
	bus.UpdatedAt = time.Now()
	_, err := r.db.Pool.Exec(ctx, query,
		bus.AmbCode,
		bus.Capacity,
		bus.PhotoURL,
		bus.OwnerName,
		bus.OwnerDocument,
		bus.SoatExpiry,
		bus.TechnoExpiry,
		bus.UpdatedAt,
		bus.PlateNumber,
	)
	if err != nil {
		return fmt.Errorf("update bus: %w", err)
	}
	return nil
}

// Deactivate soft-deletes a bus.
func (r *BusRepository) Deactivate(ctx context.Context, plate string) error {
	query := `UPDATE buses SET is_active = FALSE, updated_at = NOW() WHERE plate_number = $1`
	_, err := r.db.Pool.Exec(ctx, query, strings.ToUpper(strings.TrimSpace(plate)))
	if err != nil {
		return fmt.Errorf("deactivate bus: %w", err)
	}
	return nil
}

// AssignDriver closes any open assignment for the plate and opens a new one.
func (r *BusRepository) AssignDriver(ctx context.Context, plate string, driverID int64) error {
	plate = strings.ToUpper(strings.TrimSpace(plate))

	tx, err := r.db.Pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin assignment: %w", err)
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx,
		`UPDATE bus_assignments SET unassigned_at = NOW() WHERE plate_number = $1 AND unassigned_at IS NULL`,
		plate,
	)
	if err != nil {
		return fmt.Errorf("close assignment: %w", err)
	}

	_, err = tx.Exec(ctx,
		`INSERT INTO bus_assignments (plate_number, driver_id) VALUES ($1, $2)`,
		plate, driverID,
	)
	if err != nil {
		return fmt.Errorf("open assignment: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit assignment: %w", err)
	}
	return nil
}
