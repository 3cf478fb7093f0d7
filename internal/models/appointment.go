package models

import (
	"time"

	"github.com/noah-isme/practice-rules-api/pkg/condition"
)

// Appointment is an existing booking. Appointments are not versioned.
type Appointment struct {
	ID                string    `db:"id" json:"id"`
	PracticeID        string    `db:"practice_id" json:"practiceId"`
	StartsAt          time.Time `db:"starts_at" json:"start"`
	EndsAt            time.Time `db:"ends_at" json:"end"`
	AppointmentTypeID *string   `db:"appointment_type_id" json:"type,omitempty"`
	PractitionerID    *string   `db:"practitioner_id" json:"doctor,omitempty"`
	LocationID        *string   `db:"location_id" json:"location,omitempty"`
	Cancelled         bool      `db:"cancelled" json:"cancelled"`
}

// ForEvaluation renders the appointment in the evaluator's input shape.
func (a Appointment) ForEvaluation() condition.Appointment {
	return condition.Appointment{
		ID:       a.ID,
		Start:    a.StartsAt.UTC().Format(time.RFC3339),
		End:      a.EndsAt.UTC().Format(time.RFC3339),
		Type:     deref(a.AppointmentTypeID),
		Doctor:   deref(a.PractitionerID),
		Location: deref(a.LocationID),
	}
}

func deref(value *string) string {
	if value == nil {
		return ""
	}
	return *value
}
