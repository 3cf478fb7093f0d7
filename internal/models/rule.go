package models

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx/types"

	"github.com/noah-isme/practice-rules-api/pkg/condition"
)

// Rule is a stored scheduling constraint scoped to one rule set.
type Rule struct {
	ID          string         `db:"id" json:"id"`
	RuleSetID   string         `db:"rule_set_id" json:"ruleSetId"`
	ParentID    *string        `db:"parent_id" json:"parentId,omitempty"`
	Name        string         `db:"name" json:"name"`
	Description string         `db:"description" json:"description"`
	Priority    int            `db:"priority" json:"priority"`
	Action      string         `db:"action" json:"action"`
	Enabled     bool           `db:"enabled" json:"enabled"`
	Message     string         `db:"message" json:"message"`
	Condition   types.JSONText `db:"condition" json:"condition"`
	Zones       types.JSONText `db:"zones" json:"zones,omitempty"`
	CreatedAt   time.Time      `db:"created_at" json:"createdAt"`
	UpdatedAt   time.Time      `db:"updated_at" json:"updatedAt"`
}

// Evaluable converts the row into the evaluator's representation.
func (r Rule) Evaluable() (condition.Rule, error) {
	var cond condition.Condition
	if err := json.Unmarshal(r.Condition, &cond); err != nil {
		return condition.Rule{}, fmt.Errorf("rule %s condition: %w", r.ID, err)
	}
	var zones []condition.Zone
	if len(r.Zones) > 0 && string(r.Zones) != "null" {
		if err := json.Unmarshal(r.Zones, &zones); err != nil {
			return condition.Rule{}, fmt.Errorf("rule %s zones: %w", r.ID, err)
		}
	}
	return condition.Rule{
		ID:        r.ID,
		Name:      r.Name,
		Priority:  r.Priority,
		Action:    condition.Action(r.Action),
		Enabled:   r.Enabled,
		Message:   r.Message,
		Condition: cond,
		Zones:     zones,
	}, nil
}
