package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/noah-isme/practice-rules-api/internal/models"
	"github.com/noah-isme/practice-rules-api/pkg/database"
	appErrors "github.com/noah-isme/practice-rules-api/pkg/errors"
)

// mutationRunner executes an entity mutation against the practice's working
// copy inside one serializable transaction.
type mutationRunner struct {
	tx       database.Transactor
	ruleSets *RuleSetService
	audit    auditor
	logger   *zap.Logger
}

type mutation struct {
	practiceID      string
	sourceRuleSetID string
	resource        string
	action          string
	details         map[string]interface{}
}

// run resolves the working copy, applies fn and reports {entityId, ruleSetId}.
// fn may be invoked more than once when the transaction is retried.
func (m mutationRunner) run(ctx context.Context, mut mutation, fn func(exec sqlx.ExtContext, working *models.RuleSet) (string, error)) (*models.MutationResult, error) {
	var (
		result *models.MutationResult
		forked *models.RuleSet
	)
	err := m.tx.WithinTransaction(ctx, func(exec sqlx.ExtContext) error {
		working, created, err := m.ruleSets.ResolveWorkingRuleSet(ctx, exec, mut.practiceID, mut.sourceRuleSetID)
		if err != nil {
			return err
		}
		entityID, err := fn(exec, working)
		if err != nil {
			return err
		}
		result = &models.MutationResult{EntityID: entityID, RuleSetID: working.ID}
		forked = nil
		if created {
			forked = working
		}
		return nil
	})
	if err != nil {
		if appErrors.HasCode(err, appErrors.ErrDataIntegrity.Code) {
			m.logger.Error("working copy integrity violation",
				zap.String("practice_id", mut.practiceID),
				zap.String("resource", mut.resource),
				zap.Error(err))
		}
		return nil, translateTxError(err, fmt.Sprintf("failed to %s %s", actionVerb(mut.action), mut.resource))
	}

	if forked != nil {
		m.ruleSets.AfterFork(ctx, forked)
	}
	m.audit.record(ctx, auditEntry{
		practiceID: mut.practiceID,
		action:     mut.action,
		resource:   mut.resource,
		resourceID: result.EntityID,
		ruleSetID:  result.RuleSetID,
		details:    mut.details,
	})
	return result, nil
}

func actionVerb(action string) string {
	switch action {
	case models.AuditActionEntityCreate:
		return "create"
	case models.AuditActionEntityUpdate:
		return "update"
	case models.AuditActionEntityDelete:
		return "delete"
	case models.AuditActionRulesReorder:
		return "reorder"
	}
	return "change"
}

// resolveCopy finds the working copy's version of entityID. The id may name
// the copy itself or its direct parent in another rule set of the same
// practice; older ancestors are not followed.
func resolveCopy[T models.Scoped](ctx context.Context, exec sqlx.ExtContext, store entityStore[T], ruleSets ruleSetStore, practiceID, workingID, entityID string, notFound *appErrors.Error) (*T, error) {
	entity, err := store.FindByID(ctx, exec, entityID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(notFound, fmt.Sprintf("%s %s not found", notFoundLabel(notFound), entityID))
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load entity")
	}
	ownerID := (*entity).ScopeRuleSetID()
	if ownerID == workingID {
		return entity, nil
	}

	owner, err := ruleSets.FindByID(ctx, exec, ownerID)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load entity rule set")
	}
	if err != nil || owner.PracticeID != practiceID {
		return nil, appErrors.Clone(notFound, fmt.Sprintf("%s %s not found", notFoundLabel(notFound), entityID))
	}

	copied, err := store.FindByParent(ctx, exec, workingID, entityID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrDataIntegrity, fmt.Sprintf("%s %s has no copy in rule set %s", notFoundLabel(notFound), entityID, workingID))
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load entity copy")
	}
	return copied, nil
}

func notFoundLabel(err *appErrors.Error) string {
	switch err {
	case appErrors.ErrRuleNotFound:
		return "rule"
	case errPractitionerNotFound:
		return "practitioner"
	case errLocationNotFound:
		return "location"
	case errAppointmentTypeNotFound:
		return "appointment type"
	case errBaseScheduleNotFound:
		return "base schedule"
	}
	return "entity"
}

var (
	errPractitionerNotFound    = appErrors.Clone(appErrors.ErrNotFound, "practitioner not found")
	errLocationNotFound        = appErrors.Clone(appErrors.ErrNotFound, "location not found")
	errAppointmentTypeNotFound = appErrors.Clone(appErrors.ErrNotFound, "appointment type not found")
	errBaseScheduleNotFound    = appErrors.Clone(appErrors.ErrNotFound, "base schedule not found")
)
