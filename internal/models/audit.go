package models

import (
	"time"

	"github.com/jmoiron/sqlx/types"
)

// AuditAction constants represent rule set lifecycle events.
const (
	AuditActionRuleSetFork     = "RULE_SET_FORK"
	AuditActionRuleSetSave     = "RULE_SET_SAVE"
	AuditActionRuleSetDiscard  = "RULE_SET_DISCARD"
	AuditActionRuleSetActivate = "RULE_SET_ACTIVATE"
	AuditActionEntityCreate    = "ENTITY_CREATE"
	AuditActionEntityUpdate    = "ENTITY_UPDATE"
	AuditActionEntityDelete    = "ENTITY_DELETE"
	AuditActionRulesReorder    = "RULES_REORDER"
)

// AuditLog represents an audit trail record.
type AuditLog struct {
	ID         string         `db:"id" json:"id"`
	PracticeID string         `db:"practice_id" json:"practiceId"`
	ActorID    *string        `db:"actor_id" json:"actorId,omitempty"`
	Action     string         `db:"action" json:"action"`
	Resource   string         `db:"resource" json:"resource"`
	ResourceID *string        `db:"resource_id" json:"resourceId,omitempty"`
	RuleSetID  *string        `db:"rule_set_id" json:"ruleSetId,omitempty"`
	Details    types.JSONText `db:"details" json:"details,omitempty"`
	CreatedAt  time.Time      `db:"created_at" json:"createdAt"`
}
