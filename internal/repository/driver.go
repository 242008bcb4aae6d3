package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/bucarabus/fleethub/internal/models"
)

// DriverRepository stores the operator detail behind driver accounts.
type DriverRepository struct {
	db *DB
}

// NewDriverRepository creates a driver repository.
func NewDriverRepository(db *DB) *DriverRepository {
	return &DriverRepository{db: db}
}

// Create inserts a driver.
func (r *DriverRepository) Create(ctx context.Context, driver *models.Driver) error {
	query := `
		INSERT INTO drivers (user_id, full_name, document_id, phone, license_number, license_category, license_expiry, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id
	`
	now := time.Now()
	err := r.db.Pool.QueryRow(ctx, query,
		driver.UserID,
		driver.FullName,
		driver.DocumentID,
		driver.Phone,
		driver.LicenseNumber,
		driver.LicenseCategory,
		driver.LicenseExpiry,
		true,
		now,
		now,
	).Scan(&driver.ID)

	if err != nil {
		return fmt.Errorf("insert driver: %w", err)
	}

	driver.IsActive = true
	driver.CreatedAt = now
	driver.UpdatedAt = now
	return nil
}

// GetByID fetches a driver by id.
func (r *DriverRepository) GetByID(ctx context.Context, id int64) (*models.Driver, error) {
	query := `
		SELECT id, user_id, full_name, document_id, phone, license_number, license_category, license_expiry, is_active, created_at, updated_at
		FROM drivers WHERE id = $1
	`
	driver := &models.Driver{}
	err := r.db.Pool.QueryRow(ctx, query, id).Scan(
		&driver.ID,
		&driver.UserID,
		&driver.FullName,
		&driver.DocumentID,
		&driver.Phone,
		&driver.LicenseNumber,
		&driver.LicenseCategory,
		&driver.LicenseExpiry,
		&driver.IsActive,
		&driver.CreatedAt,
		&driver.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("get driver by id: %w", err)
	}
	return driver, nil
}

// List returns drivers, optionally only active ones.
func (r *DriverRepository) List(ctx context.Context, onlyActive bool) ([]*models.Driver, error) {
	query := `
		SELECT id, user_id, full_name, document_id, phone, license_number, license_category, license_expiry, is_active, created_at, updated_at
		FROM drivers
	`
	if onlyActive {
		query += ` WHERE is_active = TRUE`
	}
	query += ` ORDER BY full_name`

	rows, err := r.db.Pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list drivers: %w", err)
	}
	defer rows.Close()

	var drivers []*models.Driver
	for rows.Next() {
		driver := &models.Driver{}
		err := rows.Scan(
			&driver.ID,
			&driver.UserID,
			&driver.FullName,
			&driver.DocumentID,
			&driver.Phone,
			&driver.LicenseNumber,
			&driver.LicenseCategory,
			&driver.LicenseExpiry,
			&driver.IsActive,
			&driver.CreatedAt,
			&driver.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan driver: %w", err)
		}
		drivers = append(drivers, driver)
	}

	return drivers, nil
}

// Update changes a driver's mutable fields.
func (r *DriverRepository) Update(ctx context.Context, driver *models.Driver) error {
	query := `
		UPDATE drivers
		SET full_name = $1, phone = $2, license_number = $3, license_category = $4, license_expiry = $5, updated_at = $6
		WHERE id = $7
	`
	driver.UpdatedAt = time.Now()
	_, err := r.db.Pool.Exec(ctx, query,
		driver.FullName,
		driver.Phone,
		driver.LicenseNumber,
		driver.LicenseCategory,
		driver.LicenseExpiry,
		driver.UpdatedAt,
		driver.ID,
	)
	if err != nil {
		return fmt.Errorf("update driver: %w", err)
	}
	return nil
}

// Deactivate soft-deletes a driver.
func (r *DriverRepository) Deactivate(ctx context.Context, id int64) error {
	query := `UPDATE drivers SET is_active = FALSE, updated_at = NOW() WHERE id = $1`
	_, err := r.db.Pool.Exec(ctx, query, id)
	if err != nil {
		return fmt.Errorf("deactivate driver: %w", err)
	}
	return nil
}
