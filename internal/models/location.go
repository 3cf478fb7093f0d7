package models

import "time"

// Location is a room or site where appointments take place.
type Location struct {
	ID        string    `db:"id" json:"id"`
	RuleSetID string    `db:"rule_set_id" json:"ruleSetId"`
	ParentID  *string   `db:"parent_id" json:"parentId,omitempty"`
	Name      string    `db:"name" json:"name"`
	CreatedAt time.Time `db:"created_at" json:"createdAt"`
}
