package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/practice-rules-api/internal/models"
)

const ruleSetColumns = `id, practice_id, version, description, saved, is_active, parent_versions, created_at, saved_at`

// RuleSetRepository persists rule set snapshots.
type RuleSetRepository struct {
	db *sqlx.DB
}

// NewRuleSetRepository constructs repository.
func NewRuleSetRepository(db *sqlx.DB) *RuleSetRepository {
	return &RuleSetRepository{db: db}
}

func (r *RuleSetRepository) exec(exec sqlx.ExtContext) sqlx.ExtContext {
	if exec != nil {
		return exec
	}
	return r.db
}

// Create inserts a rule set. The partial unique index on (practice_id) WHERE
// NOT saved rejects a second working copy.
func (r *RuleSetRepository) Create(ctx context.Context, exec sqlx.ExtContext, ruleSet *models.RuleSet) error {
	if ruleSet == nil {
		return fmt.Errorf("rule set payload is nil")
	}
	if ruleSet.PracticeID == "" {
		return fmt.Errorf("practice_id is required")
	}
	if ruleSet.ID == "" {
		ruleSet.ID = uuid.NewString()
	}
	if ruleSet.CreatedAt.IsZero() {
		ruleSet.CreatedAt = time.Now().UTC()
	}
	if ruleSet.ParentVersions == nil {
		ruleSet.ParentVersions = []string{}
	}

	const query = `
INSERT INTO rule_sets (id, practice_id, version, description, saved, is_active, parent_versions, created_at, saved_at)
VALUES (:id, :practice_id, :version, :description, :saved, :is_active, :parent_versions, :created_at, :saved_at)`
	if _, err := sqlx.NamedExecContext(ctx, r.exec(exec), query, ruleSet); err != nil {
		return fmt.Errorf("insert rule set: %w", err)
	}
	return nil
}

// FindByID loads a rule set by id.
func (r *RuleSetRepository) FindByID(ctx context.Context, exec sqlx.ExtContext, id string) (*models.RuleSet, error) {
	query := `SELECT ` + ruleSetColumns + ` FROM rule_sets WHERE id = $1`
	var ruleSet models.RuleSet
	if err := sqlx.GetContext(ctx, r.exec(exec), &ruleSet, query, id); err != nil {
		return nil, err
	}
	return &ruleSet, nil
}

// FindUnsaved returns the practice's working copy.
func (r *RuleSetRepository) FindUnsaved(ctx context.Context, exec sqlx.ExtContext, practiceID string) (*models.RuleSet, error) {
	query := `SELECT ` + ruleSetColumns + ` FROM rule_sets WHERE practice_id = $1 AND saved = FALSE`
	var ruleSet models.RuleSet
	if err := sqlx.GetContext(ctx, r.exec(exec), &ruleSet, query, practiceID); err != nil {
		return nil, err
	}
	return &ruleSet, nil
}

// FindActive returns the practice's active rule set.
func (r *RuleSetRepository) FindActive(ctx context.Context, exec sqlx.ExtContext, practiceID string) (*models.RuleSet, error) {
	query := `SELECT ` + ruleSetColumns + ` FROM rule_sets WHERE practice_id = $1 AND saved = TRUE AND is_active = TRUE`
	var ruleSet models.RuleSet
	if err := sqlx.GetContext(ctx, r.exec(exec), &ruleSet, query, practiceID); err != nil {
		return nil, err
	}
	return &ruleSet, nil
}

// ListByPractice returns the practice history, newest first.
func (r *RuleSetRepository) ListByPractice(ctx context.Context, exec sqlx.ExtContext, practiceID string) ([]models.RuleSet, error) {
	query := `SELECT ` + ruleSetColumns + ` FROM rule_sets WHERE practice_id = $1 ORDER BY created_at DESC, id ASC`
	var ruleSets []models.RuleSet
	if err := sqlx.SelectContext(ctx, r.exec(exec), &ruleSets, query, practiceID); err != nil {
		return nil, fmt.Errorf("list rule sets: %w", err)
	}
	return ruleSets, nil
}

// CountByPractice returns how many rule sets the practice has.
func (r *RuleSetRepository) CountByPractice(ctx context.Context, exec sqlx.ExtContext, practiceID string) (int, error) {
	const query = `SELECT COUNT(*) FROM rule_sets WHERE practice_id = $1`
	var count int
	if err := sqlx.GetContext(ctx, r.exec(exec), &count, query, practiceID); err != nil {
		return 0, fmt.Errorf("count rule sets: %w", err)
	}
	return count, nil
}

// MarkSaved flips an unsaved rule set to saved. Saved rows are left untouched
// and reported as sql.ErrNoRows.
func (r *RuleSetRepository) MarkSaved(ctx context.Context, exec sqlx.ExtContext, id, description string, savedAt time.Time) error {
	const query = `UPDATE rule_sets SET saved = TRUE, description = $2, saved_at = $3 WHERE id = $1 AND saved = FALSE`
	result, err := r.exec(exec).ExecContext(ctx, query, id, description, savedAt)
	if err != nil {
		return fmt.Errorf("mark rule set saved: %w", err)
	}
	return expectAffected(result, "rule_sets")
}

// Activate makes id the only active rule set of the practice in one statement,
// so no reader ever sees zero or two active rows.
func (r *RuleSetRepository) Activate(ctx context.Context, exec sqlx.ExtContext, practiceID, id string) error {
	const query = `
UPDATE rule_sets SET is_active = (id = $2)
WHERE practice_id = $1 AND saved = TRUE AND (is_active = TRUE OR id = $2)`
	result, err := r.exec(exec).ExecContext(ctx, query, practiceID, id)
	if err != nil {
		return fmt.Errorf("activate rule set: %w", err)
	}
	return expectAffected(result, "rule_sets")
}

// Delete removes a rule set row. Scoped entities must be removed first.
func (r *RuleSetRepository) Delete(ctx context.Context, exec sqlx.ExtContext, id string) error {
	const query = `DELETE FROM rule_sets WHERE id = $1 AND saved = FALSE`
	result, err := r.exec(exec).ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("delete rule set: %w", err)
	}
	return expectAffected(result, "rule_sets")
}
