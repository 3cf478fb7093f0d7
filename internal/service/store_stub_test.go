package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/noah-isme/practice-rules-api/internal/models"
	"github.com/noah-isme/practice-rules-api/pkg/database"
)

// memWorld is an in-memory database for service tests. Transactions are
// serialized and roll back by restoring a snapshot.
type memWorld struct {
	mu  sync.Mutex
	seq int

	ruleSets         *memRuleSetStore
	rules            *memRuleStore
	practitioners    *memStore[models.Practitioner]
	locations        *memStore[models.Location]
	appointmentTypes *memAppointmentTypeStore
	baseSchedules    *memBaseScheduleStore
	audit            *memAuditStore
	appointments     *memAppointmentStore
}

func newMemWorld() *memWorld {
	w := &memWorld{}
	w.ruleSets = &memRuleSetStore{world: w}
	w.rules = &memRuleStore{memStore: newMemStore(w, "rule",
		func(r *models.Rule, id string) { r.ID = id },
		func(r models.Rule) *string { return r.ParentID })}
	w.rules.less = func(a, b models.Rule) bool { return a.Priority < b.Priority }
	w.practitioners = newMemStore(w, "prac",
		func(p *models.Practitioner, id string) { p.ID = id },
		func(p models.Practitioner) *string { return p.ParentID })
	w.locations = newMemStore(w, "loc",
		func(l *models.Location, id string) { l.ID = id },
		func(l models.Location) *string { return l.ParentID })
	w.appointmentTypes = &memAppointmentTypeStore{memStore: newMemStore(w, "type",
		func(t *models.AppointmentType, id string) { t.ID = id },
		func(t models.AppointmentType) *string { return t.ParentID })}
	w.baseSchedules = &memBaseScheduleStore{memStore: newMemStore(w, "sched",
		func(b *models.BaseSchedule, id string) { b.ID = id },
		func(b models.BaseSchedule) *string { return b.ParentID })}
	w.audit = &memAuditStore{}
	w.appointments = &memAppointmentStore{}
	return w
}

func (w *memWorld) nextID(prefix string) string {
	w.seq++
	return fmt.Sprintf("%s-%d", prefix, w.seq)
}

func (w *memWorld) stores() Stores {
	return Stores{
		RuleSets:         w.ruleSets,
		Rules:            w.rules,
		Practitioners:    w.practitioners,
		Locations:        w.locations,
		AppointmentTypes: w.appointmentTypes,
		BaseSchedules:    w.baseSchedules,
		Audit:            w.audit,
	}
}

type memSnapshot struct {
	ruleSets         []models.RuleSet
	rules            []models.Rule
	practitioners    []models.Practitioner
	locations        []models.Location
	appointmentTypes []models.AppointmentType
	baseSchedules    []models.BaseSchedule
}

func (w *memWorld) snapshot() memSnapshot {
	return memSnapshot{
		ruleSets:         append([]models.RuleSet(nil), w.ruleSets.rows...),
		rules:            append([]models.Rule(nil), w.rules.rows...),
		practitioners:    append([]models.Practitioner(nil), w.practitioners.rows...),
		locations:        append([]models.Location(nil), w.locations.rows...),
		appointmentTypes: append([]models.AppointmentType(nil), w.appointmentTypes.rows...),
		baseSchedules:    append([]models.BaseSchedule(nil), w.baseSchedules.rows...),
	}
}

func (w *memWorld) restore(s memSnapshot) {
	w.ruleSets.rows = s.ruleSets
	w.rules.rows = s.rules
	w.practitioners.rows = s.practitioners
	w.locations.rows = s.locations
	w.appointmentTypes.rows = s.appointmentTypes
	w.baseSchedules.rows = s.baseSchedules
}

// WithinTransaction implements database.Transactor.
func (w *memWorld) WithinTransaction(ctx context.Context, fn database.TxFunc) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	snap := w.snapshot()
	if err := fn(nil); err != nil {
		w.restore(snap)
		return err
	}
	return nil
}

// services wires the rule set services over the in-memory world.
type testServices struct {
	world      *memWorld
	metrics    *MetricsService
	ruleSets   *RuleSetService
	rules      *RuleService
	resources  *ResourceService
	evaluation *EvaluationService
}

func newTestServices() *testServices {
	world := newMemWorld()
	metrics := NewMetricsService()
	validate := validator.New()
	logger := zap.NewNop()
	stores := world.stores()

	ruleSets := NewRuleSetService(world, stores, nil, metrics, validate, logger, nil)
	clock := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	ruleSets.now = func() time.Time {
		clock = clock.Add(time.Second)
		return clock
	}
	rules := NewRuleService(world, ruleSets, stores, nil, validate, logger)
	resources := NewResourceService(world, ruleSets, stores, validate, logger)
	evaluation := NewEvaluationService(ruleSets, rules, world.appointments, metrics, logger, EvaluationConfig{})
	return &testServices{
		world:      world,
		metrics:    metrics,
		ruleSets:   ruleSets,
		rules:      rules,
		resources:  resources,
		evaluation: evaluation,
	}
}

type memRuleSetStore struct {
	world *memWorld
	rows  []models.RuleSet
}

func (s *memRuleSetStore) Create(ctx context.Context, exec sqlx.ExtContext, ruleSet *models.RuleSet) error {
	if !ruleSet.Saved {
		for _, row := range s.rows {
			if row.PracticeID == ruleSet.PracticeID && !row.Saved {
				return errors.New("duplicate key value violates unique constraint \"rule_sets_one_unsaved\"")
			}
		}
	}
	if ruleSet.ID == "" {
		ruleSet.ID = s.world.nextID("rs")
	}
	if ruleSet.ParentVersions == nil {
		ruleSet.ParentVersions = []string{}
	}
	s.rows = append(s.rows, *ruleSet)
	return nil
}

func (s *memRuleSetStore) find(match func(models.RuleSet) bool) (*models.RuleSet, error) {
	for _, row := range s.rows {
		if match(row) {
			found := row
			return &found, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (s *memRuleSetStore) FindByID(ctx context.Context, exec sqlx.ExtContext, id string) (*models.RuleSet, error) {
	return s.find(func(r models.RuleSet) bool { return r.ID == id })
}

func (s *memRuleSetStore) FindUnsaved(ctx context.Context, exec sqlx.ExtContext, practiceID string) (*models.RuleSet, error) {
	return s.find(func(r models.RuleSet) bool { return r.PracticeID == practiceID && !r.Saved })
}

func (s *memRuleSetStore) FindActive(ctx context.Context, exec sqlx.ExtContext, practiceID string) (*models.RuleSet, error) {
	return s.find(func(r models.RuleSet) bool { return r.PracticeID == practiceID && r.IsActive })
}

func (s *memRuleSetStore) ListByPractice(ctx context.Context, exec sqlx.ExtContext, practiceID string) ([]models.RuleSet, error) {
	var out []models.RuleSet
	for _, row := range s.rows {
		if row.PracticeID == practiceID {
			out = append(out, row)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (s *memRuleSetStore) CountByPractice(ctx context.Context, exec sqlx.ExtContext, practiceID string) (int, error) {
	rows, _ := s.ListByPractice(ctx, exec, practiceID)
	return len(rows), nil
}

func (s *memRuleSetStore) MarkSaved(ctx context.Context, exec sqlx.ExtContext, id, description string, savedAt time.Time) error {
	for i := range s.rows {
		if s.rows[i].ID == id && !s.rows[i].Saved {
			s.rows[i].Saved = true
			s.rows[i].Description = description
			s.rows[i].SavedAt = &savedAt
			return nil
		}
	}
	return sql.ErrNoRows
}

func (s *memRuleSetStore) Activate(ctx context.Context, exec sqlx.ExtContext, practiceID, id string) error {
	for i := range s.rows {
		if s.rows[i].PracticeID == practiceID && s.rows[i].Saved {
			s.rows[i].IsActive = s.rows[i].ID == id
		}
	}
	return nil
}

func (s *memRuleSetStore) Delete(ctx context.Context, exec sqlx.ExtContext, id string) error {
	for i, row := range s.rows {
		if row.ID == id && !row.Saved {
			s.rows = append(s.rows[:i], s.rows[i+1:]...)
			return nil
		}
	}
	return sql.ErrNoRows
}

type memStore[T models.Scoped] struct {
	world    *memWorld
	prefix   string
	rows     []T
	setID    func(*T, string)
	parentOf func(T) *string
	less     func(a, b T) bool
}

func newMemStore[T models.Scoped](world *memWorld, prefix string, setID func(*T, string), parentOf func(T) *string) *memStore[T] {
	return &memStore[T]{world: world, prefix: prefix, setID: setID, parentOf: parentOf}
}

func (s *memStore[T]) ListByRuleSet(ctx context.Context, exec sqlx.ExtContext, ruleSetID string) ([]T, error) {
	var out []T
	for _, row := range s.rows {
		if row.ScopeRuleSetID() == ruleSetID {
			out = append(out, row)
		}
	}
	if s.less != nil {
		sort.SliceStable(out, func(i, j int) bool { return s.less(out[i], out[j]) })
	}
	return out, nil
}

func (s *memStore[T]) FindByID(ctx context.Context, exec sqlx.ExtContext, id string) (*T, error) {
	for _, row := range s.rows {
		if row.EntityID() == id {
			found := row
			return &found, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (s *memStore[T]) FindByParent(ctx context.Context, exec sqlx.ExtContext, ruleSetID, parentID string) (*T, error) {
	for _, row := range s.rows {
		if parent := s.parentOf(row); row.ScopeRuleSetID() == ruleSetID && parent != nil && *parent == parentID {
			found := row
			return &found, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (s *memStore[T]) Create(ctx context.Context, exec sqlx.ExtContext, entity *T) error {
	if (*entity).EntityID() == "" {
		s.setID(entity, s.world.nextID(s.prefix))
	}
	s.rows = append(s.rows, *entity)
	return nil
}

func (s *memStore[T]) Update(ctx context.Context, exec sqlx.ExtContext, entity *T) error {
	for i, row := range s.rows {
		if row.EntityID() == (*entity).EntityID() {
			s.rows[i] = *entity
			return nil
		}
	}
	return sql.ErrNoRows
}

func (s *memStore[T]) Delete(ctx context.Context, exec sqlx.ExtContext, id string) error {
	for i, row := range s.rows {
		if row.EntityID() == id {
			s.rows = append(s.rows[:i], s.rows[i+1:]...)
			return nil
		}
	}
	return sql.ErrNoRows
}

func (s *memStore[T]) deleteWhere(match func(T) bool) int64 {
	kept := s.rows[:0:0]
	var deleted int64
	for _, row := range s.rows {
		if match(row) {
			deleted++
			continue
		}
		kept = append(kept, row)
	}
	s.rows = kept
	return deleted
}

func (s *memStore[T]) DeleteByRuleSet(ctx context.Context, exec sqlx.ExtContext, ruleSetID string) (int64, error) {
	return s.deleteWhere(func(row T) bool { return row.ScopeRuleSetID() == ruleSetID }), nil
}

func (s *memStore[T]) count(ruleSetID string) int {
	rows, _ := s.ListByRuleSet(context.Background(), nil, ruleSetID)
	return len(rows)
}

type memRuleStore struct {
	*memStore[models.Rule]
}

func (s *memRuleStore) UpdatePriority(ctx context.Context, exec sqlx.ExtContext, id string, priority int) error {
	for i := range s.rows {
		if s.rows[i].ID == id {
			s.rows[i].Priority = priority
			return nil
		}
	}
	return sql.ErrNoRows
}

type memAppointmentTypeStore struct {
	*memStore[models.AppointmentType]
}

func (s *memAppointmentTypeStore) FindByName(ctx context.Context, exec sqlx.ExtContext, ruleSetID, name string) (*models.AppointmentType, error) {
	for _, row := range s.rows {
		if row.RuleSetID == ruleSetID && strings.EqualFold(row.Name, name) {
			found := row
			return &found, nil
		}
	}
	return nil, sql.ErrNoRows
}

type memBaseScheduleStore struct {
	*memStore[models.BaseSchedule]
}

func (s *memBaseScheduleStore) DeleteByPractitioner(ctx context.Context, exec sqlx.ExtContext, ruleSetID, practitionerID string) (int64, error) {
	return s.deleteWhere(func(b models.BaseSchedule) bool {
		return b.RuleSetID == ruleSetID && b.PractitionerID == practitionerID
	}), nil
}

func (s *memBaseScheduleStore) DeleteByLocation(ctx context.Context, exec sqlx.ExtContext, ruleSetID, locationID string) (int64, error) {
	return s.deleteWhere(func(b models.BaseSchedule) bool {
		return b.RuleSetID == ruleSetID && b.LocationID == locationID
	}), nil
}

type memAuditStore struct {
	mu   sync.Mutex
	logs []models.AuditLog
}

func (s *memAuditStore) Create(ctx context.Context, log *models.AuditLog) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.logs = append(s.logs, *log)
	return nil
}

func (s *memAuditStore) ListByPractice(ctx context.Context, practiceID string, limit int) ([]models.AuditLog, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.AuditLog
	for i := len(s.logs) - 1; i >= 0 && (limit <= 0 || len(out) < limit); i-- {
		if s.logs[i].PracticeID == practiceID {
			out = append(out, s.logs[i])
		}
	}
	return out, nil
}

func (s *memAuditStore) actions() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.logs))
	for _, log := range s.logs {
		out = append(out, log.Action)
	}
	return out
}

type memAppointmentStore struct {
	rows  []models.Appointment
	calls int
}

func (s *memAppointmentStore) ListInWindow(ctx context.Context, practiceID string, from, to time.Time) ([]models.Appointment, error) {
	s.calls++
	var out []models.Appointment
	for _, row := range s.rows {
		if row.PracticeID == practiceID && !row.Cancelled && row.StartsAt.Before(to) && row.EndsAt.After(from) {
			out = append(out, row)
		}
	}
	return out, nil
}
