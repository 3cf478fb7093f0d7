package dto

import (
	"github.com/noah-isme/practice-rules-api/internal/models"
	"github.com/noah-isme/practice-rules-api/pkg/versiongraph"
)

// WorkingCopyRequest selects the rule set an unsaved copy is forked from.
// An empty SourceRuleSetID means the practice's active rule set.
type WorkingCopyRequest struct {
	SourceRuleSetID string `json:"sourceRuleSetId" form:"sourceRuleSetId" validate:"omitempty,max=64"`
}

// SaveRuleSetRequest commits the unsaved rule set.
type SaveRuleSetRequest struct {
	Description string `json:"description" validate:"required,max=500"`
	SetAsActive bool   `json:"setAsActive"`
}

// DiscardResult reports what a discard removed.
type DiscardResult struct {
	RuleSetID string           `json:"ruleSetId"`
	Deleted   map[string]int64 `json:"deleted"`
}

// VersionGraphResponse pairs the rendered layout with the rule sets it shows.
type VersionGraphResponse struct {
	Layout   versiongraph.Layout `json:"layout"`
	RuleSets []models.RuleSet    `json:"ruleSets"`
}
