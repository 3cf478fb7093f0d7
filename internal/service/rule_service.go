package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"github.com/jmoiron/sqlx/types"
	"go.uber.org/zap"

	"github.com/noah-isme/practice-rules-api/internal/dto"
	"github.com/noah-isme/practice-rules-api/internal/models"
	"github.com/noah-isme/practice-rules-api/pkg/condition"
	"github.com/noah-isme/practice-rules-api/pkg/database"
	appErrors "github.com/noah-isme/practice-rules-api/pkg/errors"
)

const resourceRule = "rule"

// RuleService manages scheduling rules inside rule sets.
type RuleService struct {
	mutations mutationRunner
	ruleSets  *RuleSetService
	rules     ruleStore
	sets      ruleSetStore
	cache     *CacheService
	validator *validator.Validate
	logger    *zap.Logger
}

// NewRuleService constructs a RuleService.
func NewRuleService(tx database.Transactor, ruleSets *RuleSetService, stores Stores, cache *CacheService, validate *validator.Validate, logger *zap.Logger) *RuleService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &RuleService{
		mutations: mutationRunner{tx: tx, ruleSets: ruleSets, audit: auditor{store: stores.Audit, logger: logger}, logger: logger},
		ruleSets:  ruleSets,
		rules:     stores.Rules,
		sets:      stores.RuleSets,
		cache:     cache,
		validator: validate,
		logger:    logger,
	}
}

// ListRules returns the rules of any rule set of the practice in evaluation
// order. Saved rule sets are immutable and therefore served from cache.
func (s *RuleService) ListRules(ctx context.Context, practiceID, ruleSetID string) ([]models.Rule, error) {
	ruleSet, err := s.ruleSets.GetRuleSet(ctx, practiceID, ruleSetID)
	if err != nil {
		return nil, err
	}
	return s.rulesOf(ctx, ruleSet)
}

func (s *RuleService) rulesOf(ctx context.Context, ruleSet *models.RuleSet) ([]models.Rule, error) {
	key := RulesCacheKey(ruleSet.ID)
	if ruleSet.Saved {
		var cached []models.Rule
		if hit, _ := s.cache.Get(ctx, key, &cached); hit {
			return cached, nil
		}
	}
	rules, err := s.rules.ListByRuleSet(ctx, nil, ruleSet.ID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list rules")
	}
	if rules == nil {
		rules = []models.Rule{}
	}
	if ruleSet.Saved {
		_ = s.cache.Set(ctx, key, rules, 0)
	}
	return rules, nil
}

// GetRule returns a rule by id if it belongs to the practice.
func (s *RuleService) GetRule(ctx context.Context, practiceID, ruleID string) (*models.Rule, error) {
	rule, err := s.rules.FindByID(ctx, nil, ruleID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrRuleNotFound, fmt.Sprintf("rule %s not found", ruleID))
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load rule")
	}
	if _, err := s.ruleSets.GetRuleSet(ctx, practiceID, rule.RuleSetID); err != nil {
		if appErrors.HasCode(err, appErrors.ErrRuleSetNotFound.Code) {
			return nil, appErrors.Clone(appErrors.ErrRuleNotFound, fmt.Sprintf("rule %s not found", ruleID))
		}
		return nil, err
	}
	return rule, nil
}

// ValidateCondition runs the structural validator without touching storage.
func (s *RuleService) ValidateCondition(req dto.ValidateConditionRequest) dto.ValidateConditionResponse {
	problems := condition.Validate(req.Condition)
	if problems == nil {
		problems = []string{}
	}
	return dto.ValidateConditionResponse{Valid: len(problems) == 0, Problems: problems}
}

// CreateRule adds a rule to the working copy.
func (s *RuleService) CreateRule(ctx context.Context, practiceID string, req dto.CreateRuleRequest) (*models.MutationResult, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid rule payload")
	}
	cond, err := normalizeCondition(req.Condition)
	if err != nil {
		return nil, err
	}
	zones, err := encodeZones(req.Zones)
	if err != nil {
		return nil, err
	}
	enabled := true
	if req.Enabled != nil {
		enabled = *req.Enabled
	}

	return s.mutations.run(ctx, mutation{
		practiceID:      practiceID,
		sourceRuleSetID: req.SourceRuleSetID,
		resource:        resourceRule,
		action:          models.AuditActionEntityCreate,
		details:         map[string]interface{}{"name": req.Name, "action": req.Action},
	}, func(exec sqlx.ExtContext, working *models.RuleSet) (string, error) {
		rule := &models.Rule{
			RuleSetID:   working.ID,
			Name:        req.Name,
			Description: req.Description,
			Priority:    req.Priority,
			Action:      req.Action,
			Enabled:     enabled,
			Message:     req.Message,
			Condition:   cond,
			Zones:       zones,
		}
		if err := s.rules.Create(ctx, exec, rule); err != nil {
			return "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create rule")
		}
		return rule.ID, nil
	})
}

// UpdateRule patches the working copy's version of ruleID.
func (s *RuleService) UpdateRule(ctx context.Context, practiceID, ruleID string, req dto.UpdateRuleRequest) (*models.MutationResult, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid rule payload")
	}
	var (
		cond  types.JSONText
		zones types.JSONText
		err   error
	)
	if len(req.Condition) > 0 {
		if cond, err = normalizeCondition(req.Condition); err != nil {
			return nil, err
		}
	}
	if req.Zones != nil {
		if zones, err = encodeZones(*req.Zones); err != nil {
			return nil, err
		}
	}

	return s.mutations.run(ctx, mutation{
		practiceID:      practiceID,
		sourceRuleSetID: req.SourceRuleSetID,
		resource:        resourceRule,
		action:          models.AuditActionEntityUpdate,
		details:         map[string]interface{}{"requestedId": ruleID},
	}, func(exec sqlx.ExtContext, working *models.RuleSet) (string, error) {
		rule, err := resolveCopy[models.Rule](ctx, exec, s.rules, s.sets, practiceID, working.ID, ruleID, appErrors.ErrRuleNotFound)
		if err != nil {
			return "", err
		}
		if req.Name != nil {
			rule.Name = *req.Name
		}
		if req.Description != nil {
			rule.Description = *req.Description
		}
		if req.Priority != nil {
			rule.Priority = *req.Priority
		}
		if req.Action != nil {
			rule.Action = *req.Action
		}
		if req.Enabled != nil {
			rule.Enabled = *req.Enabled
		}
		if req.Message != nil {
			rule.Message = *req.Message
		}
		if cond != nil {
			rule.Condition = cond
		}
		if zones != nil {
			rule.Zones = zones
		}
		if err := s.rules.Update(ctx, exec, rule); err != nil {
			return "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update rule")
		}
		return rule.ID, nil
	})
}

// DeleteRule removes the working copy's version of ruleID.
func (s *RuleService) DeleteRule(ctx context.Context, practiceID, ruleID string, req dto.WorkingCopyRequest) (*models.MutationResult, error) {
	return s.mutations.run(ctx, mutation{
		practiceID:      practiceID,
		sourceRuleSetID: req.SourceRuleSetID,
		resource:        resourceRule,
		action:          models.AuditActionEntityDelete,
		details:         map[string]interface{}{"requestedId": ruleID},
	}, func(exec sqlx.ExtContext, working *models.RuleSet) (string, error) {
		rule, err := resolveCopy[models.Rule](ctx, exec, s.rules, s.sets, practiceID, working.ID, ruleID, appErrors.ErrRuleNotFound)
		if err != nil {
			return "", err
		}
		if err := s.rules.Delete(ctx, exec, rule.ID); err != nil {
			return "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete rule")
		}
		return rule.ID, nil
	})
}

// ReorderRules applies several priority changes in one transaction.
func (s *RuleService) ReorderRules(ctx context.Context, practiceID string, req dto.ReorderRulesRequest) (*dto.ReorderRulesResult, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid reorder payload")
	}
	seen := make(map[string]struct{}, len(req.Items))
	for _, item := range req.Items {
		if _, dup := seen[item.RuleID]; dup {
			return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("rule %s listed more than once", item.RuleID))
		}
		seen[item.RuleID] = struct{}{}
	}

	var mapping map[string]string
	result, err := s.mutations.run(ctx, mutation{
		practiceID:      practiceID,
		sourceRuleSetID: req.SourceRuleSetID,
		resource:        resourceRule,
		action:          models.AuditActionRulesReorder,
		details:         map[string]interface{}{"count": len(req.Items)},
	}, func(exec sqlx.ExtContext, working *models.RuleSet) (string, error) {
		ids := make(map[string]string, len(req.Items))
		resolved := make(map[string]string, len(req.Items))
		for _, item := range req.Items {
			rule, err := resolveCopy[models.Rule](ctx, exec, s.rules, s.sets, practiceID, working.ID, item.RuleID, appErrors.ErrRuleNotFound)
			if err != nil {
				return "", err
			}
			if first, dup := resolved[rule.ID]; dup {
				return "", appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("rules %s and %s name the same rule", first, item.RuleID))
			}
			resolved[rule.ID] = item.RuleID
			if err := s.rules.UpdatePriority(ctx, exec, rule.ID, item.Priority); err != nil {
				return "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update rule priority")
			}
			ids[item.RuleID] = rule.ID
		}
		mapping = ids
		return working.ID, nil
	})
	if err != nil {
		return nil, err
	}
	return &dto.ReorderRulesResult{RuleSetID: result.RuleSetID, RuleIDs: mapping}, nil
}

// normalizeCondition validates raw condition JSON and re-encodes it in the
// canonical wire form.
func normalizeCondition(raw json.RawMessage) (types.JSONText, error) {
	if problems := condition.Validate(raw); len(problems) > 0 {
		return nil, appErrors.WithDetails(appErrors.ErrValidation, "invalid condition", problems)
	}
	node, err := condition.Decode(raw)
	if err != nil {
		return nil, err
	}
	encoded, err := condition.Encode(node)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to encode condition")
	}
	return types.JSONText(encoded), nil
}

func encodeZones(zones []condition.Zone) (types.JSONText, error) {
	var problems []string
	for i, zone := range zones {
		bounds := [2][2]string{{"timeStart", zone.TimeStart}, {"timeEnd", zone.TimeEnd}}
		for _, bound := range bounds {
			if bound[1] == "" {
				continue
			}
			if _, err := condition.ParseTimeOfDay(bound[1]); err != nil {
				problems = append(problems, fmt.Sprintf("zones[%d]: invalid '%s' %q (expected HH:MM)", i, bound[0], bound[1]))
			}
		}
	}
	if len(problems) > 0 {
		return nil, appErrors.WithDetails(appErrors.ErrValidation, "invalid zones", problems)
	}
	if zones == nil {
		zones = []condition.Zone{}
	}
	payload, err := json.Marshal(zones)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to encode zones")
	}
	return types.JSONText(payload), nil
}
