package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/practice-rules-api/internal/models"
)

// PractitionerRepository persists practitioners.
type PractitionerRepository struct {
	scopedStore[models.Practitioner]
}

// NewPractitionerRepository constructs repository.
func NewPractitionerRepository(db *sqlx.DB) *PractitionerRepository {
	columns := []string{"id", "rule_set_id", "parent_id", "name", "title", "tags", "created_at"}
	return &PractitionerRepository{scopedStore: newScopedStore[models.Practitioner](db, "practitioners", columns, "name ASC, id ASC")}
}

// Create inserts a practitioner.
func (r *PractitionerRepository) Create(ctx context.Context, exec sqlx.ExtContext, practitioner *models.Practitioner) error {
	if practitioner == nil {
		return fmt.Errorf("practitioner payload is nil")
	}
	if practitioner.ID == "" {
		practitioner.ID = uuid.NewString()
	}
	if practitioner.Tags == nil {
		practitioner.Tags = []string{}
	}
	if practitioner.CreatedAt.IsZero() {
		practitioner.CreatedAt = time.Now().UTC()
	}
	const query = `
INSERT INTO practitioners (id, rule_set_id, parent_id, name, title, tags, created_at)
VALUES (:id, :rule_set_id, :parent_id, :name, :title, :tags, :created_at)`
	return r.namedExec(ctx, exec, query, practitioner, "insert")
}

// Update overwrites a practitioner's mutable columns.
func (r *PractitionerRepository) Update(ctx context.Context, exec sqlx.ExtContext, practitioner *models.Practitioner) error {
	const query = `UPDATE practitioners SET name = :name, title = :title, tags = :tags WHERE id = :id`
	return r.namedExec(ctx, exec, query, practitioner, "update")
}
