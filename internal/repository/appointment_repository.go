package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/practice-rules-api/internal/models"
)

// AppointmentRepository reads existing bookings for slot evaluation.
type AppointmentRepository struct {
	db *sqlx.DB
}

// NewAppointmentRepository constructs repository.
func NewAppointmentRepository(db *sqlx.DB) *AppointmentRepository {
	return &AppointmentRepository{db: db}
}

// ListInWindow returns non-cancelled appointments of the practice that overlap
// [from, to), ordered by start.
func (r *AppointmentRepository) ListInWindow(ctx context.Context, practiceID string, from, to time.Time) ([]models.Appointment, error) {
	const query = `
SELECT id, practice_id, starts_at, ends_at, appointment_type_id, practitioner_id, location_id, cancelled
FROM appointments
WHERE practice_id = $1 AND cancelled = FALSE AND starts_at < $3 AND ends_at > $2
ORDER BY starts_at ASC, id ASC`
	var appointments []models.Appointment
	if err := r.db.SelectContext(ctx, &appointments, query, practiceID, from.UTC(), to.UTC()); err != nil {
		return nil, fmt.Errorf("list appointments in window: %w", err)
	}
	return appointments, nil
}
