package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/practice-rules-api/internal/models"
)

// BaseScheduleRepository persists weekly practitioner availability.
type BaseScheduleRepository struct {
	scopedStore[models.BaseSchedule]
}

// NewBaseScheduleRepository constructs repository.
func NewBaseScheduleRepository(db *sqlx.DB) *BaseScheduleRepository {
	columns := []string{"id", "rule_set_id", "parent_id", "practitioner_id", "location_id", "day_of_week", "start_time", "end_time", "created_at"}
	return &BaseScheduleRepository{scopedStore: newScopedStore[models.BaseSchedule](db, "base_schedules", columns, "day_of_week ASC, start_time ASC, id ASC")}
}

// Create inserts a base schedule.
func (r *BaseScheduleRepository) Create(ctx context.Context, exec sqlx.ExtContext, schedule *models.BaseSchedule) error {
	if schedule == nil {
		return fmt.Errorf("base schedule payload is nil")
	}
	if schedule.ID == "" {
		schedule.ID = uuid.NewString()
	}
	if schedule.CreatedAt.IsZero() {
		schedule.CreatedAt = time.Now().UTC()
	}
	const query = `
INSERT INTO base_schedules (id, rule_set_id, parent_id, practitioner_id, location_id, day_of_week, start_time, end_time, created_at)
VALUES (:id, :rule_set_id, :parent_id, :practitioner_id, :location_id, :day_of_week, :start_time, :end_time, :created_at)`
	return r.namedExec(ctx, exec, query, schedule, "insert")
}

// Update overwrites a base schedule's mutable columns.
func (r *BaseScheduleRepository) Update(ctx context.Context, exec sqlx.ExtContext, schedule *models.BaseSchedule) error {
	const query = `
UPDATE base_schedules SET practitioner_id = :practitioner_id, location_id = :location_id,
	day_of_week = :day_of_week, start_time = :start_time, end_time = :end_time
WHERE id = :id`
	return r.namedExec(ctx, exec, query, schedule, "update")
}

// DeleteByPractitioner removes the schedules of a practitioner in one rule set.
func (r *BaseScheduleRepository) DeleteByPractitioner(ctx context.Context, exec sqlx.ExtContext, ruleSetID, practitionerID string) (int64, error) {
	return r.deleteWhere(ctx, exec, "practitioner_id", ruleSetID, practitionerID)
}

// DeleteByLocation removes the schedules at a location in one rule set.
func (r *BaseScheduleRepository) DeleteByLocation(ctx context.Context, exec sqlx.ExtContext, ruleSetID, locationID string) (int64, error) {
	return r.deleteWhere(ctx, exec, "location_id", ruleSetID, locationID)
}

func (r *BaseScheduleRepository) deleteWhere(ctx context.Context, exec sqlx.ExtContext, column, ruleSetID, id string) (int64, error) {
	query := `DELETE FROM base_schedules WHERE rule_set_id = $1 AND ` + column + ` = $2`
	result, err := r.exec(exec).ExecContext(ctx, query, ruleSetID, id)
	if err != nil {
		return 0, fmt.Errorf("delete base schedules by %s: %w", column, err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("base schedules rows affected: %w", err)
	}
	return affected, nil
}
