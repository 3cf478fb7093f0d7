package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/jmoiron/sqlx/types"

	"github.com/noah-isme/practice-rules-api/internal/models"
)

// RuleRepository persists scheduling rules.
type RuleRepository struct {
	scopedStore[models.Rule]
}

// NewRuleRepository constructs repository.
func NewRuleRepository(db *sqlx.DB) *RuleRepository {
	columns := []string{"id", "rule_set_id", "parent_id", "name", "description", "priority", "action", "enabled", "message", "condition", "zones", "created_at", "updated_at"}
	return &RuleRepository{scopedStore: newScopedStore[models.Rule](db, "rules", columns, "priority ASC, created_at ASC, id ASC")}
}

// Create inserts a rule.
func (r *RuleRepository) Create(ctx context.Context, exec sqlx.ExtContext, rule *models.Rule) error {
	if rule == nil {
		return fmt.Errorf("rule payload is nil")
	}
	if rule.RuleSetID == "" {
		return fmt.Errorf("rule_set_id is required")
	}
	if rule.ID == "" {
		rule.ID = uuid.NewString()
	}
	if len(rule.Zones) == 0 {
		rule.Zones = types.JSONText(`[]`)
	}
	now := time.Now().UTC()
	if rule.CreatedAt.IsZero() {
		rule.CreatedAt = now
	}
	rule.UpdatedAt = now

	const query = `
INSERT INTO rules (id, rule_set_id, parent_id, name, description, priority, action, enabled, message, condition, zones, created_at, updated_at)
VALUES (:id, :rule_set_id, :parent_id, :name, :description, :priority, :action, :enabled, :message, :condition, :zones, :created_at, :updated_at)`
	return r.namedExec(ctx, exec, query, rule, "insert")
}

// Update overwrites the mutable columns of a rule.
func (r *RuleRepository) Update(ctx context.Context, exec sqlx.ExtContext, rule *models.Rule) error {
	if rule == nil {
		return fmt.Errorf("rule payload is nil")
	}
	rule.UpdatedAt = time.Now().UTC()
	const query = `
UPDATE rules SET name = :name, description = :description, priority = :priority, action = :action,
	enabled = :enabled, message = :message, condition = :condition, zones = :zones, updated_at = :updated_at
WHERE id = :id`
	return r.namedExec(ctx, exec, query, rule, "update")
}

// UpdatePriority changes only the priority column.
func (r *RuleRepository) UpdatePriority(ctx context.Context, exec sqlx.ExtContext, id string, priority int) error {
	const query = `UPDATE rules SET priority = $2, updated_at = $3 WHERE id = $1`
	result, err := r.exec(exec).ExecContext(ctx, query, id, priority, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("update rule priority: %w", err)
	}
	return expectAffected(result, "rules")
}
