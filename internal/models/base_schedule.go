package models

import "time"

// BaseSchedule is a practitioner's recurring weekly availability at a location.
type BaseSchedule struct {
	ID             string    `db:"id" json:"id"`
	RuleSetID      string    `db:"rule_set_id" json:"ruleSetId"`
	ParentID       *string   `db:"parent_id" json:"parentId,omitempty"`
	PractitionerID string    `db:"practitioner_id" json:"practitionerId"`
	LocationID     string    `db:"location_id" json:"locationId"`
	DayOfWeek      int       `db:"day_of_week" json:"dayOfWeek"`
	StartTime      string    `db:"start_time" json:"startTime"`
	EndTime        string    `db:"end_time" json:"endTime"`
	CreatedAt      time.Time `db:"created_at" json:"createdAt"`
}
