package models

import (
	"time"

	"github.com/lib/pq"
)

// UnsavedRuleSetDescription is the placeholder carried by a fresh working copy.
const UnsavedRuleSetDescription = "Unsaved changes"

// RuleSet is one snapshot of a practice's scheduling configuration. Saved rule
// sets are immutable; at most one unsaved rule set exists per practice.
type RuleSet struct {
	ID             string         `db:"id" json:"id"`
	PracticeID     string         `db:"practice_id" json:"practiceId"`
	Version        int            `db:"version" json:"version"`
	Description    string         `db:"description" json:"description"`
	Saved          bool           `db:"saved" json:"saved"`
	IsActive       bool           `db:"is_active" json:"isActive"`
	ParentVersions pq.StringArray `db:"parent_versions" json:"parentVersions"`
	CreatedAt      time.Time      `db:"created_at" json:"createdAt"`
	SavedAt        *time.Time     `db:"saved_at" json:"savedAt,omitempty"`
}

// RuleSetState is the lifecycle state derived from Saved and IsActive.
type RuleSetState string

const (
	RuleSetStateUnsaved RuleSetState = "UNSAVED"
	RuleSetStateSaved   RuleSetState = "SAVED"
	RuleSetStateActive  RuleSetState = "ACTIVE"
)

// State reports the lifecycle state.
func (r RuleSet) State() RuleSetState {
	switch {
	case !r.Saved:
		return RuleSetStateUnsaved
	case r.IsActive:
		return RuleSetStateActive
	default:
		return RuleSetStateSaved
	}
}

// MutationResult is returned by every copy-on-write mutation so callers can
// chain edits against the resolved working copy.
type MutationResult struct {
	EntityID  string `json:"entityId"`
	RuleSetID string `json:"ruleSetId"`
}
