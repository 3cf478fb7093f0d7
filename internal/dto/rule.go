package dto

import (
	"encoding/json"

	"github.com/noah-isme/practice-rules-api/pkg/condition"
)

// CreateRuleRequest adds a rule to the working copy.
type CreateRuleRequest struct {
	WorkingCopyRequest
	Name        string           `json:"name" validate:"required,max=200"`
	Description string           `json:"description" validate:"max=2000"`
	Priority    int              `json:"priority" validate:"min=0"`
	Action      string           `json:"action" validate:"required,oneof=BLOCK ALLOW"`
	Enabled     *bool            `json:"enabled"`
	Message     string           `json:"message" validate:"max=500"`
	Condition   json.RawMessage  `json:"condition" validate:"required"`
	Zones       []condition.Zone `json:"zones" validate:"omitempty,dive"`
}

// UpdateRuleRequest patches a rule. Nil fields are left unchanged.
type UpdateRuleRequest struct {
	WorkingCopyRequest
	Name        *string           `json:"name" validate:"omitempty,max=200"`
	Description *string           `json:"description" validate:"omitempty,max=2000"`
	Priority    *int              `json:"priority" validate:"omitempty,min=0"`
	Action      *string           `json:"action" validate:"omitempty,oneof=BLOCK ALLOW"`
	Enabled     *bool             `json:"enabled"`
	Message     *string           `json:"message" validate:"omitempty,max=500"`
	Condition   json.RawMessage   `json:"condition"`
	Zones       *[]condition.Zone `json:"zones"`
}

// RulePriority assigns a priority to one rule.
type RulePriority struct {
	RuleID   string `json:"ruleId" validate:"required"`
	Priority int    `json:"priority" validate:"min=0"`
}

// ReorderRulesRequest sets several priorities in one transaction.
type ReorderRulesRequest struct {
	WorkingCopyRequest
	Items []RulePriority `json:"items" validate:"required,min=1,dive"`
}

// ReorderRulesResult maps each requested rule id to the id of its copy.
type ReorderRulesResult struct {
	RuleSetID string            `json:"ruleSetId"`
	RuleIDs   map[string]string `json:"ruleIds"`
}

// ValidateConditionRequest carries an untyped condition for structural checks.
type ValidateConditionRequest struct {
	Condition json.RawMessage `json:"condition" validate:"required"`
}

// ValidateConditionResponse lists every path-qualified problem found.
type ValidateConditionResponse struct {
	Valid    bool     `json:"valid"`
	Problems []string `json:"problems"`
}
