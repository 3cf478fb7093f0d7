package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/noah-isme/practice-rules-api/internal/dto"
	"github.com/noah-isme/practice-rules-api/internal/models"
	"github.com/noah-isme/practice-rules-api/pkg/condition"
	appErrors "github.com/noah-isme/practice-rules-api/pkg/errors"
)

// EvaluationConfig tunes slot evaluation.
type EvaluationConfig struct {
	// Window is how far around a slot stored appointments are loaded.
	Window      time.Duration
	Concurrency int
	MaxSlots    int
}

// EvaluationService answers whether slots may be booked under a rule set.
type EvaluationService struct {
	ruleSets     *RuleSetService
	rules        *RuleService
	appointments appointmentStore
	metrics      *MetricsService
	logger       *zap.Logger
	cfg          EvaluationConfig
}

// NewEvaluationService constructs an EvaluationService.
func NewEvaluationService(ruleSets *RuleSetService, rules *RuleService, appointments appointmentStore, metrics *MetricsService, logger *zap.Logger, cfg EvaluationConfig) *EvaluationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Window <= 0 {
		cfg.Window = 4 * time.Hour
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 4
	}
	if cfg.MaxSlots <= 0 {
		cfg.MaxSlots = 500
	}
	return &EvaluationService{ruleSets: ruleSets, rules: rules, appointments: appointments, metrics: metrics, logger: logger, cfg: cfg}
}

// EvaluateSlot runs the rule set (the active one unless req names another)
// against one slot.
func (s *EvaluationService) EvaluateSlot(ctx context.Context, practiceID string, req dto.EvaluateSlotRequest) (*dto.EvaluateSlotResponse, error) {
	start, end, err := slotBounds(req.Slot)
	if err != nil {
		return nil, err
	}
	ruleSet, rules, err := s.loadRules(ctx, practiceID, req.RuleSetID)
	if err != nil {
		return nil, err
	}
	appointments, err := s.loadAppointments(ctx, practiceID, req.Appointments, start, end)
	if err != nil {
		return nil, err
	}

	decision, err := s.decide(rules, req.Slot, appointments, evaluationContext(req.Context, practiceID, ruleSet.ID))
	if err != nil {
		return nil, err
	}
	s.logger.Debug("slot evaluated",
		zap.String("practice_id", practiceID),
		zap.String("rule_set_id", ruleSet.ID),
		zap.String("action", string(decision.Action)),
		zap.String("rule_id", decision.RuleID))
	return &dto.EvaluateSlotResponse{RuleSetID: ruleSet.ID, Decision: decision}, nil
}

// SimulateSlots evaluates many slots concurrently against one rule set and
// returns the decisions in request order. The first failure aborts the run.
func (s *EvaluationService) SimulateSlots(ctx context.Context, practiceID string, req dto.SimulateSlotsRequest) (*dto.SimulateSlotsResponse, error) {
	if len(req.Slots) == 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "at least one slot is required")
	}
	if len(req.Slots) > s.cfg.MaxSlots {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("at most %d slots can be simulated at once", s.cfg.MaxSlots))
	}

	var earliest, latest time.Time
	for i, slot := range req.Slots {
		start, end, err := slotBounds(slot)
		if err != nil {
			return nil, appErrors.Clone(appErrors.FromError(err), fmt.Sprintf("slots[%d]: %s", i, appErrors.FromError(err).Message))
		}
		if i == 0 || start.Before(earliest) {
			earliest = start
		}
		if i == 0 || end.After(latest) {
			latest = end
		}
	}

	ruleSet, rules, err := s.loadRules(ctx, practiceID, req.RuleSetID)
	if err != nil {
		return nil, err
	}
	appointments, err := s.loadAppointments(ctx, practiceID, req.Appointments, earliest, latest)
	if err != nil {
		return nil, err
	}
	evalCtx := evaluationContext(req.Context, practiceID, ruleSet.ID)

	results := make([]dto.SimulatedSlot, len(req.Slots))
	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(s.cfg.Concurrency)
	for i := range req.Slots {
		i := i
		group.Go(func() error {
			if err := groupCtx.Err(); err != nil {
				return err
			}
			decision, err := s.decide(rules, req.Slots[i], appointments, evalCtx)
			if err != nil {
				return err
			}
			results[i] = dto.SimulatedSlot{Slot: req.Slots[i], Decision: decision}
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return nil, err
	}

	response := &dto.SimulateSlotsResponse{RuleSetID: ruleSet.ID, Results: results}
	for _, result := range results {
		if result.Decision.Action == condition.ActionBlock {
			response.Blocked++
		} else {
			response.Allowed++
		}
	}
	return response, nil
}

func (s *EvaluationService) decide(rules []condition.Rule, slot condition.Slot, appointments []condition.Appointment, ctx condition.Context) (condition.Decision, error) {
	started := time.Now()
	decision, err := condition.EvaluateRules(rules, slot, appointments, ctx)
	if err != nil {
		return condition.Decision{}, err
	}
	s.metrics.RecordEvaluation(string(decision.Action), time.Since(started))
	return decision, nil
}

func (s *EvaluationService) loadRules(ctx context.Context, practiceID, ruleSetID string) (*models.RuleSet, []condition.Rule, error) {
	var (
		ruleSet *models.RuleSet
		err     error
	)
	if ruleSetID == "" {
		ruleSet, err = s.ruleSets.GetActiveRuleSet(ctx, practiceID)
	} else {
		ruleSet, err = s.ruleSets.GetRuleSet(ctx, practiceID, ruleSetID)
	}
	if err != nil {
		return nil, nil, err
	}

	stored, err := s.rules.rulesOf(ctx, ruleSet)
	if err != nil {
		return nil, nil, err
	}
	rules := make([]condition.Rule, 0, len(stored))
	for _, row := range stored {
		rule, err := row.Evaluable()
		if err != nil {
			return nil, nil, appErrors.Wrap(err, appErrors.ErrInvalidConditionType.Code, appErrors.ErrInvalidConditionType.Status,
				fmt.Sprintf("rule %q (%s) has an unreadable condition", row.Name, row.ID))
		}
		rules = append(rules, rule)
	}
	return ruleSet, rules, nil
}

// loadAppointments uses the caller's appointments when given, otherwise the
// stored ones overlapping the slot range widened by the evaluation window.
func (s *EvaluationService) loadAppointments(ctx context.Context, practiceID string, provided []condition.Appointment, start, end time.Time) ([]condition.Appointment, error) {
	if provided != nil {
		for i, appt := range provided {
			if _, _, err := appointmentBounds(appt); err != nil {
				appErr := appErrors.FromError(err)
				return nil, appErrors.Clone(appErr, fmt.Sprintf("appointments[%d]: %s", i, appErr.Message))
			}
		}
		return provided, nil
	}
	if s.appointments == nil {
		return []condition.Appointment{}, nil
	}
	stored, err := s.appointments.ListInWindow(ctx, practiceID, start.Add(-s.cfg.Window), end.Add(s.cfg.Window))
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load appointments")
	}
	appointments := make([]condition.Appointment, 0, len(stored))
	for _, appt := range stored {
		appointments = append(appointments, appt.ForEvaluation())
	}
	return appointments, nil
}

func slotBounds(slot condition.Slot) (time.Time, time.Time, error) {
	start, err := condition.ParseDateTime(slot.Start)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	end, err := condition.ParseDateTime(slot.End)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	if !end.After(start) {
		return time.Time{}, time.Time{}, appErrors.Clone(appErrors.ErrValidation, "slot end must be after slot start")
	}
	return start, end, nil
}

func appointmentBounds(appt condition.Appointment) (time.Time, time.Time, error) {
	start, err := condition.ParseDateTime(appt.Start)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	end, err := condition.ParseDateTime(appt.End)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	return start, end, nil
}

// evaluationContext copies the caller's context and pins practiceId and
// ruleSetId to the values actually used.
func evaluationContext(extra map[string]interface{}, practiceID, ruleSetID string) condition.Context {
	ctx := make(condition.Context, len(extra)+2)
	for key, value := range extra {
		ctx[key] = value
	}
	ctx["practiceId"] = practiceID
	ctx["ruleSetId"] = ruleSetID
	return ctx
}
