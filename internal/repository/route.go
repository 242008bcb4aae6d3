package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/bucarabus/fleethub/internal/models"
)

// RouteRepository stores service lines. Stops live in a JSONB column; the
// dashboard edits the whole path at once so per-stop rows buy nothing.
type RouteRepository struct {
	db *DB
}

// NewRouteRepository creates a route repository.
func NewRouteRepository(db *DB) *RouteRepository {
	return &RouteRepository{db: db}
}

// Create inserts a route.
func (r *RouteRepository) Create(ctx context.Context, route *models.Route) error {
	stops, err := json.Marshal(route.Stops)
	if err != nil {
		return fmt.Errorf("marshal stops: %w", err)
	}
	if route.Color == "" {
		route.Color = "#ef4444"
	}

	query := `
		INSERT INTO routes (name, description, color, fare, stops, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id
	`
	now := time.Now()
	err = r.db.Pool.QueryRow(ctx, query,
		route.Name,
		route.Description,
		route.Color,
		route.Fare,
		stops,
		true,
		now,
		now,
	).Scan(&route.ID)

	if err != nil {
		return fmt.Errorf("insert route: %w", err)
	}

	route.IsActive = true
	route.CreatedAt = now
	route.UpdatedAt = now
	return nil
}

// Upsert inserts a route or refreshes it by name. Used by the YAML seed
// loader at startup.
func (r *RouteRepository) Upsert(ctx context.Context, route *models.Route) error {
	stops, err := json.Marshal(route.Stops)
	if err != nil {
		return fmt.Errorf("marshal stops: %w", err)
	}
	if route.Color == "" {
		route.Color = "#ef4444"
	}

	query := `
		INSERT INTO routes (name, description, color, fare, stops, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, TRUE, NOW(), NOW())
		ON CONFLICT (name) DO UPDATE SET
			description = EXCLUDED.description,
			color = EXCLUDED.color,
			fare = EXCLUDED.fare,
			stops = EXCLUDED.stops,
			updated_at = NOW()
		RETURNING id, created_at, updated_at
	`
	err = r.db.Pool.QueryRow(ctx, query,
		route.Name,
		route.Description,
		route.Color,
		route.Fare,
		stops,
	).Scan(&route.ID, &route.CreatedAt, &route.UpdatedAt)

	if err != nil {
		return fmt.Errorf("upsert route: %w", err)
	}

	route.IsActive = true
	return nil
}

// GetByID fetches a route by id.
func (r *RouteRepository) GetByID(ctx context.Context, id int64) (*models.Route, error) {
	query := `
		SELECT id, name, description, color, fare, stops, is_active, created_at, updated_at
		FROM routes WHERE id = $1
	`
	return r.scanRoute(r.db.Pool.QueryRow(ctx, query, id))
}

// List returns routes, optionally only active ones.
func (r *RouteRepository) List(ctx context.Context, onlyActive bool) ([]*models.Route, error) {
	query := `
		SELECT id, name, description, color, fare, stops, is_active, created_at, updated_at
		FROM routes
	`
	if onlyActive {
		query += ` WHERE is_active = TRUE`
	}
	query += ` ORDER BY name`

	rows, err := r.db.Pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list routes: %w", err)
	}
	defer rows.Close()

	var routes []*models.Route
	for rows.Next() {
		route, err := r.scanRoute(rows)
		if err != nil {
			return nil, err
		}
		routes = append(routes, route)
	}

	return routes, nil
}

// Update changes a route's metadata and path.
func (r *RouteRepository) Update(ctx context.Context, route *models.Route) error {
	stops, err := json.Marshal(route.Stops)
	if err != nil {
		return fmt.Errorf("marshal stops: %w", err)
	}

	query := `
		UPDATE routes SET name = $1, description = $2, color = $3, fare = $4, stops = $5, updated_at = $6
		WHERE id = $7
	`
	route.UpdatedAt = time.Now()
	_, err = r.db.Pool.Exec(ctx, query,
		route.Name,
		route.Description,
		route.Color,
		route.Fare,
		stops,
		route.UpdatedAt,
		route.ID,
	)
	if err != nil {
		return fmt.Errorf("update route: %w", err)
	}
	return nil
}

// Deactivate soft-deletes a route.
func (r *RouteRepository) Deactivate(ctx context.Context, id int64) error {
	query := `UPDATE routes SET is_active = FALSE, updated_at = NOW() WHERE id = $1`
	_, err := r.db.Pool.Exec(ctx, query, id)
	if err != nil {
		return fmt.Errorf("deactivate route: %w", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func (r *RouteRepository) scanRoute(row rowScanner) (*models.Route, error) {
	route := &models.Route{}
	var stops []byte
	err := row.Scan(
		&route.ID,
		&route.Name,
		&route.Description,
		&route.Color,
		&route.Fare,
		&stops,
		&route.IsActive,
		&route.CreatedAt,
		&route.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("scan route: %w", err)
	}
	if err := json.Unmarshal(stops, &route.Stops); err != nil {
		return nil, fmt.Errorf("unmarshal stops: %w", err)
	}
	return route, nil
}
