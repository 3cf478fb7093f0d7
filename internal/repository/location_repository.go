package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/practice-rules-api/internal/models"
)

// LocationRepository persists practice locations.
type LocationRepository struct {
	scopedStore[models.Location]
}

// NewLocationRepository constructs repository.
func NewLocationRepository(db *sqlx.DB) *LocationRepository {
	columns := []string{"id", "rule_set_id", "parent_id", "name", "created_at"}
	return &LocationRepository{scopedStore: newScopedStore[models.Location](db, "locations", columns, "name ASC, id ASC")}
}

// Create inserts a location.
func (r *LocationRepository) Create(ctx context.Context, exec sqlx.ExtContext, location *models.Location) error {
	if location == nil {
		return fmt.Errorf("location payload is nil")
	}
	if location.ID == "" {
		location.ID = uuid.NewString()
	}
	if location.CreatedAt.IsZero() {
		location.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO locations (id, rule_set_id, parent_id, name, created_at) VALUES (:id, :rule_set_id, :parent_id, :name, :created_at)`
	return r.namedExec(ctx, exec, query, location, "insert")
}

// Update renames a location.
func (r *LocationRepository) Update(ctx context.Context, exec sqlx.ExtContext, location *models.Location) error {
	const query = `UPDATE locations SET name = :name WHERE id = :id`
	return r.namedExec(ctx, exec, query, location, "update")
}
