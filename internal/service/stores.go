package service

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/practice-rules-api/internal/models"
)

type ruleSetStore interface {
	Create(ctx context.Context, exec sqlx.ExtContext, ruleSet *models.RuleSet) error
	FindByID(ctx context.Context, exec sqlx.ExtContext, id string) (*models.RuleSet, error)
	FindUnsaved(ctx context.Context, exec sqlx.ExtContext, practiceID string) (*models.RuleSet, error)
	FindActive(ctx context.Context, exec sqlx.ExtContext, practiceID string) (*models.RuleSet, error)
	ListByPractice(ctx context.Context, exec sqlx.ExtContext, practiceID string) ([]models.RuleSet, error)
	CountByPractice(ctx context.Context, exec sqlx.ExtContext, practiceID string) (int, error)
	MarkSaved(ctx context.Context, exec sqlx.ExtContext, id, description string, savedAt time.Time) error
	Activate(ctx context.Context, exec sqlx.ExtContext, practiceID, id string) error
	Delete(ctx context.Context, exec sqlx.ExtContext, id string) error
}

// entityStore is the persistence contract shared by every rule-set scoped
// entity. FindByID and FindByParent return sql.ErrNoRows when nothing matches.
type entityStore[T any] interface {
	ListByRuleSet(ctx context.Context, exec sqlx.ExtContext, ruleSetID string) ([]T, error)
	FindByID(ctx context.Context, exec sqlx.ExtContext, id string) (*T, error)
	FindByParent(ctx context.Context, exec sqlx.ExtContext, ruleSetID, parentID string) (*T, error)
	Create(ctx context.Context, exec sqlx.ExtContext, entity *T) error
	Update(ctx context.Context, exec sqlx.ExtContext, entity *T) error
	Delete(ctx context.Context, exec sqlx.ExtContext, id string) error
	DeleteByRuleSet(ctx context.Context, exec sqlx.ExtContext, ruleSetID string) (int64, error)
}

type ruleStore interface {
	entityStore[models.Rule]
	UpdatePriority(ctx context.Context, exec sqlx.ExtContext, id string, priority int) error
}

type appointmentTypeStore interface {
	entityStore[models.AppointmentType]
	FindByName(ctx context.Context, exec sqlx.ExtContext, ruleSetID, name string) (*models.AppointmentType, error)
}

type baseScheduleStore interface {
	entityStore[models.BaseSchedule]
	DeleteByPractitioner(ctx context.Context, exec sqlx.ExtContext, ruleSetID, practitionerID string) (int64, error)
	DeleteByLocation(ctx context.Context, exec sqlx.ExtContext, ruleSetID, locationID string) (int64, error)
}

type auditStore interface {
	Create(ctx context.Context, log *models.AuditLog) error
	ListByPractice(ctx context.Context, practiceID string, limit int) ([]models.AuditLog, error)
}

type appointmentStore interface {
	ListInWindow(ctx context.Context, practiceID string, from, to time.Time) ([]models.Appointment, error)
}

// Stores bundles the repositories the rule set services share.
type Stores struct {
	RuleSets         ruleSetStore
	Rules            ruleStore
	Practitioners    entityStore[models.Practitioner]
	Locations        entityStore[models.Location]
	AppointmentTypes appointmentTypeStore
	BaseSchedules    baseScheduleStore
	Audit            auditStore
}
