package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/practice-rules-api/internal/models"
)

// AppointmentTypeRepository persists appointment types.
type AppointmentTypeRepository struct {
	scopedStore[models.AppointmentType]
}

// NewAppointmentTypeRepository constructs repository.
func NewAppointmentTypeRepository(db *sqlx.DB) *AppointmentTypeRepository {
	columns := []string{"id", "rule_set_id", "parent_id", "name", "duration_minutes", "color", "allowed_practitioner_ids", "created_at"}
	return &AppointmentTypeRepository{scopedStore: newScopedStore[models.AppointmentType](db, "appointment_types", columns, "name ASC, id ASC")}
}

// Create inserts an appointment type.
func (r *AppointmentTypeRepository) Create(ctx context.Context, exec sqlx.ExtContext, appointmentType *models.AppointmentType) error {
	if appointmentType == nil {
		return fmt.Errorf("appointment type payload is nil")
	}
	if appointmentType.ID == "" {
		appointmentType.ID = uuid.NewString()
	}
	if appointmentType.AllowedPractitionerIDs == nil {
		appointmentType.AllowedPractitionerIDs = []string{}
	}
	if appointmentType.CreatedAt.IsZero() {
		appointmentType.CreatedAt = time.Now().UTC()
	}
	const query = `
INSERT INTO appointment_types (id, rule_set_id, parent_id, name, duration_minutes, color, allowed_practitioner_ids, created_at)
VALUES (:id, :rule_set_id, :parent_id, :name, :duration_minutes, :color, :allowed_practitioner_ids, :created_at)`
	return r.namedExec(ctx, exec, query, appointmentType, "insert")
}

// Update overwrites an appointment type's mutable columns.
func (r *AppointmentTypeRepository) Update(ctx context.Context, exec sqlx.ExtContext, appointmentType *models.AppointmentType) error {
	const query = `
UPDATE appointment_types SET name = :name, duration_minutes = :duration_minutes, color = :color,
	allowed_practitioner_ids = :allowed_practitioner_ids
WHERE id = :id`
	return r.namedExec(ctx, exec, query, appointmentType, "update")
}

// FindByName looks up an appointment type by its name within one rule set.
func (r *AppointmentTypeRepository) FindByName(ctx context.Context, exec sqlx.ExtContext, ruleSetID, name string) (*models.AppointmentType, error) {
	query := `SELECT ` + r.columns + ` FROM appointment_types WHERE rule_set_id = $1 AND LOWER(name) = LOWER($2)`
	var appointmentType models.AppointmentType
	if err := sqlx.GetContext(ctx, r.exec(exec), &appointmentType, query, ruleSetID, name); err != nil {
		return nil, err
	}
	return &appointmentType, nil
}
