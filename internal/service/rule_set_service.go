package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"github.com/jmoiron/sqlx/types"
	"go.uber.org/zap"

	"github.com/noah-isme/practice-rules-api/internal/dto"
	"github.com/noah-isme/practice-rules-api/internal/models"
	"github.com/noah-isme/practice-rules-api/pkg/condition"
	"github.com/noah-isme/practice-rules-api/pkg/database"
	appErrors "github.com/noah-isme/practice-rules-api/pkg/errors"
	"github.com/noah-isme/practice-rules-api/pkg/versiongraph"
)

const resourceRuleSet = "rule_set"

// RuleSetService owns the copy-on-write lifecycle of rule sets: forking a
// working copy, saving it, discarding it and switching the active version.
type RuleSetService struct {
	tx        database.Transactor
	stores    Stores
	cache     *CacheService
	metrics   *MetricsService
	validator *validator.Validate
	logger    *zap.Logger
	audit     auditor
	palette   []string
	now       func() time.Time
}

// NewRuleSetService constructs a RuleSetService.
func NewRuleSetService(tx database.Transactor, stores Stores, cache *CacheService, metrics *MetricsService, validate *validator.Validate, logger *zap.Logger, palette []string) *RuleSetService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &RuleSetService{
		tx:        tx,
		stores:    stores,
		cache:     cache,
		metrics:   metrics,
		validator: validate,
		logger:    logger,
		audit:     auditor{store: stores.Audit, logger: logger},
		palette:   palette,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// ResolveWorkingRuleSet returns the practice's unsaved rule set, forking one
// from sourceRuleSetID (or the active rule set when empty) if none exists.
// It must run inside the caller's transaction; forked reports whether a new
// rule set was created so the caller can announce it after commit.
func (s *RuleSetService) ResolveWorkingRuleSet(ctx context.Context, exec sqlx.ExtContext, practiceID, sourceRuleSetID string) (ruleSet *models.RuleSet, forked bool, err error) {
	unsaved, err := s.stores.RuleSets.FindUnsaved(ctx, exec, practiceID)
	if err == nil {
		return unsaved, false, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load unsaved rule set")
	}

	var source *models.RuleSet
	if sourceRuleSetID == "" {
		source, err = s.stores.RuleSets.FindActive(ctx, exec, practiceID)
		if errors.Is(err, sql.ErrNoRows) {
			return s.createInitial(ctx, exec, practiceID)
		}
		if err != nil {
			return nil, false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load active rule set")
		}
	} else {
		source, err = s.ruleSetForPractice(ctx, exec, practiceID, sourceRuleSetID)
		if err != nil {
			return nil, false, err
		}
	}

	working, err := s.fork(ctx, exec, source)
	if err != nil {
		return nil, false, err
	}
	return working, true, nil
}

// createInitial opens the very first rule set of a practice. A practice that
// already has saved history but no active version must pick a source.
func (s *RuleSetService) createInitial(ctx context.Context, exec sqlx.ExtContext, practiceID string) (*models.RuleSet, bool, error) {
	count, err := s.stores.RuleSets.CountByPractice(ctx, exec, practiceID)
	if err != nil {
		return nil, false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count rule sets")
	}
	if count > 0 {
		return nil, false, appErrors.Clone(appErrors.ErrNoActiveRuleSet, "practice has no active rule set; choose a source rule set")
	}
	ruleSet := &models.RuleSet{
		PracticeID:     practiceID,
		Version:        1,
		Description:    models.UnsavedRuleSetDescription,
		ParentVersions: []string{},
		CreatedAt:      s.now(),
	}
	if err := s.stores.RuleSets.Create(ctx, exec, ruleSet); err != nil {
		return nil, false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create rule set")
	}
	return ruleSet, true, nil
}

// fork creates the working copy and deep-copies every scoped entity. Each
// pass returns an old-to-new id map that later passes use to remap references.
func (s *RuleSetService) fork(ctx context.Context, exec sqlx.ExtContext, source *models.RuleSet) (*models.RuleSet, error) {
	working := &models.RuleSet{
		PracticeID:     source.PracticeID,
		Version:        source.Version + 1,
		Description:    models.UnsavedRuleSetDescription,
		ParentVersions: []string{source.ID},
		CreatedAt:      s.now(),
	}
	if err := s.stores.RuleSets.Create(ctx, exec, working); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create unsaved rule set")
	}

	practitionerIDs, err := copyScoped[models.Practitioner](ctx, exec, s.stores.Practitioners, source.ID, func(p models.Practitioner) (models.Practitioner, error) {
		p.ID, p.RuleSetID, p.ParentID = "", working.ID, optional(p.ID)
		p.Tags = append([]string{}, p.Tags...)
		return p, nil
	})
	if err != nil {
		return nil, err
	}
	locationIDs, err := copyScoped[models.Location](ctx, exec, s.stores.Locations, source.ID, func(l models.Location) (models.Location, error) {
		l.ID, l.RuleSetID, l.ParentID = "", working.ID, optional(l.ID)
		return l, nil
	})
	if err != nil {
		return nil, err
	}
	typeIDs, err := copyScoped[models.AppointmentType](ctx, exec, s.stores.AppointmentTypes, source.ID, func(t models.AppointmentType) (models.AppointmentType, error) {
		allowed, err := remapAll(t.AllowedPractitionerIDs, practitionerIDs, "practitioner")
		if err != nil {
			return t, err
		}
		t.ID, t.RuleSetID, t.ParentID = "", working.ID, optional(t.ID)
		t.AllowedPractitionerIDs = allowed
		return t, nil
	})
	if err != nil {
		return nil, err
	}
	if _, err := copyScoped[models.BaseSchedule](ctx, exec, s.stores.BaseSchedules, source.ID, func(b models.BaseSchedule) (models.BaseSchedule, error) {
		practitionerID, err := remap(b.PractitionerID, practitionerIDs, "practitioner")
		if err != nil {
			return b, err
		}
		locationID, err := remap(b.LocationID, locationIDs, "location")
		if err != nil {
			return b, err
		}
		b.ID, b.RuleSetID, b.ParentID = "", working.ID, optional(b.ID)
		b.PractitionerID, b.LocationID = practitionerID, locationID
		return b, nil
	}); err != nil {
		return nil, err
	}
	if _, err := copyScoped[models.Rule](ctx, exec, s.stores.Rules, source.ID, func(r models.Rule) (models.Rule, error) {
		zones, err := remapZones(r.Zones, practitionerIDs, typeIDs)
		if err != nil {
			return r, err
		}
		r.ID, r.RuleSetID, r.ParentID = "", working.ID, optional(r.ID)
		r.Zones = zones
		return r, nil
	}); err != nil {
		return nil, err
	}

	return working, nil
}

// GetOrCreateUnsavedRuleSet resolves the working copy in its own transaction.
func (s *RuleSetService) GetOrCreateUnsavedRuleSet(ctx context.Context, practiceID string, req dto.WorkingCopyRequest) (*models.RuleSet, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid working copy payload")
	}
	var (
		result *models.RuleSet
		forked bool
	)
	err := s.tx.WithinTransaction(ctx, func(exec sqlx.ExtContext) error {
		ruleSet, created, err := s.ResolveWorkingRuleSet(ctx, exec, practiceID, req.SourceRuleSetID)
		if err != nil {
			return err
		}
		result, forked = ruleSet, created
		return nil
	})
	if err != nil {
		return nil, translateTxError(err, "failed to resolve unsaved rule set")
	}
	if forked {
		s.AfterFork(ctx, result)
	}
	return result, nil
}

// AfterFork records a freshly created working copy. Call it after commit.
func (s *RuleSetService) AfterFork(ctx context.Context, ruleSet *models.RuleSet) {
	if ruleSet == nil {
		return
	}
	s.metrics.RecordFork()
	s.logger.Info("unsaved rule set created",
		zap.String("practice_id", ruleSet.PracticeID),
		zap.String("rule_set_id", ruleSet.ID),
		zap.Strings("parents", ruleSet.ParentVersions),
		zap.Int("version", ruleSet.Version))
	s.audit.record(ctx, auditEntry{
		practiceID: ruleSet.PracticeID,
		action:     models.AuditActionRuleSetFork,
		resource:   resourceRuleSet,
		resourceID: ruleSet.ID,
		ruleSetID:  ruleSet.ID,
		details:    map[string]interface{}{"parents": []string(ruleSet.ParentVersions), "version": ruleSet.Version},
	})
}

// SaveUnsavedRuleSet freezes the working copy and optionally activates it in
// the same transaction.
func (s *RuleSetService) SaveUnsavedRuleSet(ctx context.Context, practiceID string, req dto.SaveRuleSetRequest) (*models.RuleSet, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid save payload")
	}
	var saved *models.RuleSet
	err := s.tx.WithinTransaction(ctx, func(exec sqlx.ExtContext) error {
		unsaved, err := s.stores.RuleSets.FindUnsaved(ctx, exec, practiceID)
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNoUnsavedRuleSet, "no unsaved rule set to save")
		}
		if err != nil {
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load unsaved rule set")
		}
		if unsaved.Saved {
			return appErrors.Clone(appErrors.ErrRuleSetSaved, "rule set is already saved")
		}
		if err := s.stores.RuleSets.MarkSaved(ctx, exec, unsaved.ID, req.Description, s.now()); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return appErrors.Clone(appErrors.ErrNoUnsavedRuleSet, "no unsaved rule set to save")
			}
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to save rule set")
		}
		if req.SetAsActive {
			if err := s.stores.RuleSets.Activate(ctx, exec, practiceID, unsaved.ID); err != nil {
				return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to activate rule set")
			}
		}
		reloaded, err := s.stores.RuleSets.FindByID(ctx, exec, unsaved.ID)
		if err != nil {
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to reload rule set")
		}
		saved = reloaded
		return nil
	})
	if err != nil {
		return nil, translateTxError(err, "failed to save rule set")
	}

	if req.SetAsActive {
		s.cache.InvalidateKeys(ctx, ActiveRuleSetCacheKey(practiceID))
	}
	s.logger.Info("rule set saved",
		zap.String("practice_id", practiceID),
		zap.String("rule_set_id", saved.ID),
		zap.Bool("active", saved.IsActive))
	s.audit.record(ctx, auditEntry{
		practiceID: practiceID,
		action:     models.AuditActionRuleSetSave,
		resource:   resourceRuleSet,
		resourceID: saved.ID,
		ruleSetID:  saved.ID,
		details:    map[string]interface{}{"description": saved.Description, "setAsActive": req.SetAsActive},
	})
	return saved, nil
}

// DiscardUnsavedRuleSet deletes the working copy and everything scoped to it.
func (s *RuleSetService) DiscardUnsavedRuleSet(ctx context.Context, practiceID string) (*dto.DiscardResult, error) {
	var result *dto.DiscardResult
	err := s.tx.WithinTransaction(ctx, func(exec sqlx.ExtContext) error {
		unsaved, err := s.stores.RuleSets.FindUnsaved(ctx, exec, practiceID)
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNoUnsavedRuleSet, "no unsaved rule set to discard")
		}
		if err != nil {
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load unsaved rule set")
		}

		deleted := make(map[string]int64, 5)
		// Dependents first so foreign keys never dangle mid-transaction.
		steps := []struct {
			name string
			run  func(context.Context, sqlx.ExtContext, string) (int64, error)
		}{
			{"rules", s.stores.Rules.DeleteByRuleSet},
			{"baseSchedules", s.stores.BaseSchedules.DeleteByRuleSet},
			{"appointmentTypes", s.stores.AppointmentTypes.DeleteByRuleSet},
			{"locations", s.stores.Locations.DeleteByRuleSet},
			{"practitioners", s.stores.Practitioners.DeleteByRuleSet},
		}
		for _, step := range steps {
			count, err := step.run(ctx, exec, unsaved.ID)
			if err != nil {
				return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, fmt.Sprintf("failed to delete %s", step.name))
			}
			deleted[step.name] = count
		}
		if err := s.stores.RuleSets.Delete(ctx, exec, unsaved.ID); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return appErrors.Clone(appErrors.ErrNoUnsavedRuleSet, "no unsaved rule set to discard")
			}
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete rule set")
		}
		result = &dto.DiscardResult{RuleSetID: unsaved.ID, Deleted: deleted}
		return nil
	})
	if err != nil {
		return nil, translateTxError(err, "failed to discard rule set")
	}

	s.logger.Info("unsaved rule set discarded", zap.String("practice_id", practiceID), zap.String("rule_set_id", result.RuleSetID))
	details := make(map[string]interface{}, len(result.Deleted))
	for name, count := range result.Deleted {
		details[name] = count
	}
	s.audit.record(ctx, auditEntry{
		practiceID: practiceID,
		action:     models.AuditActionRuleSetDiscard,
		resource:   resourceRuleSet,
		resourceID: result.RuleSetID,
		ruleSetID:  result.RuleSetID,
		details:    details,
	})
	return result, nil
}

// ActivateRuleSet makes a saved rule set the active one. Re-activating an
// older version is how a practice rolls back.
func (s *RuleSetService) ActivateRuleSet(ctx context.Context, practiceID, ruleSetID string) (*models.RuleSet, error) {
	var activated *models.RuleSet
	err := s.tx.WithinTransaction(ctx, func(exec sqlx.ExtContext) error {
		ruleSet, err := s.ruleSetForPractice(ctx, exec, practiceID, ruleSetID)
		if err != nil {
			return err
		}
		if !ruleSet.Saved {
			return appErrors.Clone(appErrors.ErrConflict, "unsaved rule sets cannot be activated; save it first")
		}
		if !ruleSet.IsActive {
			if err := s.stores.RuleSets.Activate(ctx, exec, practiceID, ruleSet.ID); err != nil {
				return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to activate rule set")
			}
			ruleSet.IsActive = true
		}
		activated = ruleSet
		return nil
	})
	if err != nil {
		return nil, translateTxError(err, "failed to activate rule set")
	}

	s.cache.InvalidateKeys(ctx, ActiveRuleSetCacheKey(practiceID))
	s.audit.record(ctx, auditEntry{
		practiceID: practiceID,
		action:     models.AuditActionRuleSetActivate,
		resource:   resourceRuleSet,
		resourceID: activated.ID,
		ruleSetID:  activated.ID,
		details:    map[string]interface{}{"version": activated.Version},
	})
	return activated, nil
}

// GetRuleSet returns any rule set of the practice regardless of its state.
func (s *RuleSetService) GetRuleSet(ctx context.Context, practiceID, ruleSetID string) (*models.RuleSet, error) {
	return s.ruleSetForPractice(ctx, nil, practiceID, ruleSetID)
}

// GetActiveRuleSet returns the active rule set or NO_ACTIVE_RULE_SET.
func (s *RuleSetService) GetActiveRuleSet(ctx context.Context, practiceID string) (*models.RuleSet, error) {
	var cached models.RuleSet
	key := ActiveRuleSetCacheKey(practiceID)
	if hit, _ := s.cache.Get(ctx, key, &cached); hit {
		return &cached, nil
	}

	ruleSet, err := s.stores.RuleSets.FindActive(ctx, nil, practiceID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNoActiveRuleSet, "practice has no active rule set")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load active rule set")
	}
	_ = s.cache.Set(ctx, key, ruleSet, 0)
	return ruleSet, nil
}

// GetUnsavedRuleSet returns the working copy without creating one.
func (s *RuleSetService) GetUnsavedRuleSet(ctx context.Context, practiceID string) (*models.RuleSet, error) {
	ruleSet, err := s.stores.RuleSets.FindUnsaved(ctx, nil, practiceID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNoUnsavedRuleSet, "practice has no unsaved rule set")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load unsaved rule set")
	}
	return ruleSet, nil
}

// ListRuleSets returns the practice history, newest first.
func (s *RuleSetService) ListRuleSets(ctx context.Context, practiceID string) ([]models.RuleSet, error) {
	ruleSets, err := s.stores.RuleSets.ListByPractice(ctx, nil, practiceID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list rule sets")
	}
	if ruleSets == nil {
		ruleSets = []models.RuleSet{}
	}
	return ruleSets, nil
}

// ListAuditLogs returns the newest audit entries of the practice.
func (s *RuleSetService) ListAuditLogs(ctx context.Context, practiceID string, limit int) ([]models.AuditLog, error) {
	if s.stores.Audit == nil {
		return []models.AuditLog{}, nil
	}
	logs, err := s.stores.Audit.ListByPractice(ctx, practiceID, limit)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list audit logs")
	}
	if logs == nil {
		logs = []models.AuditLog{}
	}
	return logs, nil
}

// VersionGraph lays out the practice history for rendering.
func (s *RuleSetService) VersionGraph(ctx context.Context, practiceID string) (*dto.VersionGraphResponse, error) {
	ruleSets, err := s.ListRuleSets(ctx, practiceID)
	if err != nil {
		return nil, err
	}
	nodes := make([]versiongraph.Node, 0, len(ruleSets))
	for _, ruleSet := range ruleSets {
		nodes = append(nodes, versiongraph.Node{
			ID:        ruleSet.ID,
			Parents:   []string(ruleSet.ParentVersions),
			CreatedAt: ruleSet.CreatedAt,
		})
	}
	return &dto.VersionGraphResponse{
		Layout:   versiongraph.Build(nodes, s.palette),
		RuleSets: ruleSets,
	}, nil
}

// ruleSetForPractice loads a rule set and hides rule sets of other practices.
func (s *RuleSetService) ruleSetForPractice(ctx context.Context, exec sqlx.ExtContext, practiceID, ruleSetID string) (*models.RuleSet, error) {
	ruleSet, err := s.stores.RuleSets.FindByID(ctx, exec, ruleSetID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrRuleSetNotFound, fmt.Sprintf("rule set %s not found", ruleSetID))
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load rule set")
	}
	if ruleSet.PracticeID != practiceID {
		return nil, appErrors.Clone(appErrors.ErrRuleSetNotFound, fmt.Sprintf("rule set %s not found", ruleSetID))
	}
	return ruleSet, nil
}

// translateTxError keeps typed errors raised inside a transaction and wraps
// anything else, such as exhausted serialization retries.
func translateTxError(err error, message string) error {
	if database.IsRetryable(err) {
		return appErrors.Wrap(err, appErrors.ErrConflict.Code, appErrors.ErrConflict.Status, "concurrent update, please retry")
	}
	var appErr *appErrors.Error
	if errors.As(err, &appErr) {
		return appErr
	}
	return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, message)
}

// copyScoped copies every row of store in ruleSetID through clone and returns
// the old-to-new id map.
func copyScoped[T models.Scoped](ctx context.Context, exec sqlx.ExtContext, store entityStore[T], ruleSetID string, clone func(T) (T, error)) (map[string]string, error) {
	rows, err := store.ListByRuleSet(ctx, exec, ruleSetID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to read rule set for fork")
	}
	ids := make(map[string]string, len(rows))
	for _, row := range rows {
		copied, err := clone(row)
		if err != nil {
			return nil, err
		}
		if err := store.Create(ctx, exec, &copied); err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to copy rule set entity")
		}
		ids[row.EntityID()] = copied.EntityID()
	}
	return ids, nil
}

func remap(id string, ids map[string]string, kind string) (string, error) {
	mapped, ok := ids[id]
	if !ok {
		return "", appErrors.Clone(appErrors.ErrDataIntegrity, fmt.Sprintf("%s %s referenced but not present in source rule set", kind, id))
	}
	return mapped, nil
}

// remapZones points zone references at the copied entities. Ids that are not
// part of the source rule set are kept as written.
func remapZones(raw types.JSONText, practitionerIDs, typeIDs map[string]string) (types.JSONText, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return raw, nil
	}
	var zones []condition.Zone
	if err := json.Unmarshal(raw, &zones); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrDataIntegrity.Code, appErrors.ErrDataIntegrity.Status, "stored rule zones are not valid JSON")
	}
	if len(zones) == 0 {
		return raw, nil
	}
	for i := range zones {
		zones[i].Practitioners = remapKnown(zones[i].Practitioners, practitionerIDs)
		zones[i].AppointmentTypes = remapKnown(zones[i].AppointmentTypes, typeIDs)
	}
	payload, err := json.Marshal(zones)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to encode rule zones")
	}
	return types.JSONText(payload), nil
}

func remapKnown(values []string, ids map[string]string) []string {
	if len(values) == 0 {
		return values
	}
	out := make([]string, len(values))
	for i, value := range values {
		if mapped, ok := ids[value]; ok {
			out[i] = mapped
		} else {
			out[i] = value
		}
	}
	return out
}

func remapAll(values []string, ids map[string]string, kind string) ([]string, error) {
	out := make([]string, 0, len(values))
	for _, value := range values {
		mapped, err := remap(value, ids, kind)
		if err != nil {
			return nil, err
		}
		out = append(out, mapped)
	}
	return out, nil
}
