package models

import (
	"time"

	"github.com/lib/pq"
)

// Practitioner is a doctor or therapist who can be booked.
type Practitioner struct {
	ID        string         `db:"id" json:"id"`
	RuleSetID string         `db:"rule_set_id" json:"ruleSetId"`
	ParentID  *string        `db:"parent_id" json:"parentId,omitempty"`
	Name      string         `db:"name" json:"name"`
	Title     string         `db:"title" json:"title,omitempty"`
	Tags      pq.StringArray `db:"tags" json:"tags"`
	CreatedAt time.Time      `db:"created_at" json:"createdAt"`
}
