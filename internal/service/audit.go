package service

import (
	"context"
	"encoding/json"

	"github.com/jmoiron/sqlx/types"
	"go.uber.org/zap"

	"github.com/noah-isme/practice-rules-api/internal/models"
)

type actorKey struct{}

// ContextWithActor records the authenticated user for audit entries.
func ContextWithActor(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, actorKey{}, userID)
}

// ActorFromContext returns the user recorded by ContextWithActor.
func ActorFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	id, _ := ctx.Value(actorKey{}).(string)
	return id
}

// auditor writes audit entries after commit. Failures are logged, never
// returned: the change they describe has already happened.
type auditor struct {
	store  auditStore
	logger *zap.Logger
}

type auditEntry struct {
	practiceID string
	action     string
	resource   string
	resourceID string
	ruleSetID  string
	details    map[string]interface{}
}

func (a auditor) record(ctx context.Context, entry auditEntry) {
	if a.store == nil {
		return
	}
	log := &models.AuditLog{
		PracticeID: entry.practiceID,
		Action:     entry.action,
		Resource:   entry.resource,
		ResourceID: optional(entry.resourceID),
		RuleSetID:  optional(entry.ruleSetID),
		ActorID:    optional(ActorFromContext(ctx)),
	}
	if len(entry.details) > 0 {
		payload, err := json.Marshal(entry.details)
		if err == nil {
			log.Details = types.JSONText(payload)
		}
	}
	if err := a.store.Create(ctx, log); err != nil {
		a.logger.Warn("failed to record audit log",
			zap.String("action", entry.action),
			zap.String("practice_id", entry.practiceID),
			zap.Error(err))
	}
}

func optional(value string) *string {
	if value == "" {
		return nil
	}
	return &value
}
