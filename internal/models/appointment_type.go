package models

import (
	"time"

	"github.com/lib/pq"
)

// AppointmentType describes a bookable service. Names are unique per rule set.
type AppointmentType struct {
	ID                     string         `db:"id" json:"id"`
	RuleSetID              string         `db:"rule_set_id" json:"ruleSetId"`
	ParentID               *string        `db:"parent_id" json:"parentId,omitempty"`
	Name                   string         `db:"name" json:"name"`
	DurationMinutes        int            `db:"duration_minutes" json:"durationMinutes"`
	Color                  string         `db:"color" json:"color,omitempty"`
	AllowedPractitionerIDs pq.StringArray `db:"allowed_practitioner_ids" json:"allowedPractitionerIds"`
	CreatedAt              time.Time      `db:"created_at" json:"createdAt"`
}
