package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/noah-isme/practice-rules-api/internal/dto"
	"github.com/noah-isme/practice-rules-api/internal/models"
	"github.com/noah-isme/practice-rules-api/pkg/condition"
	"github.com/noah-isme/practice-rules-api/pkg/database"
	appErrors "github.com/noah-isme/practice-rules-api/pkg/errors"
)

const (
	resourcePractitioner    = "practitioner"
	resourceLocation        = "location"
	resourceAppointmentType = "appointment_type"
	resourceBaseSchedule    = "base_schedule"
)

// ResourceService manages the practitioners, locations, appointment types and
// base schedules scoped to rule sets.
type ResourceService struct {
	mutations mutationRunner
	ruleSets  *RuleSetService
	stores    Stores
	validator *validator.Validate
	logger    *zap.Logger
}

// NewResourceService constructs a ResourceService.
func NewResourceService(tx database.Transactor, ruleSets *RuleSetService, stores Stores, validate *validator.Validate, logger *zap.Logger) *ResourceService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &ResourceService{
		mutations: mutationRunner{tx: tx, ruleSets: ruleSets, audit: auditor{store: stores.Audit, logger: logger}, logger: logger},
		ruleSets:  ruleSets,
		stores:    stores,
		validator: validate,
		logger:    logger,
	}
}

func listScoped[T any](ctx context.Context, s *ResourceService, store entityStore[T], practiceID, ruleSetID, label string) ([]T, error) {
	if _, err := s.ruleSets.GetRuleSet(ctx, practiceID, ruleSetID); err != nil {
		return nil, err
	}
	rows, err := store.ListByRuleSet(ctx, nil, ruleSetID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list "+label)
	}
	if rows == nil {
		rows = []T{}
	}
	return rows, nil
}

// ListPractitioners returns the practitioners of any rule set of the practice.
func (s *ResourceService) ListPractitioners(ctx context.Context, practiceID, ruleSetID string) ([]models.Practitioner, error) {
	return listScoped[models.Practitioner](ctx, s, s.stores.Practitioners, practiceID, ruleSetID, "practitioners")
}

// ListLocations returns the locations of any rule set of the practice.
func (s *ResourceService) ListLocations(ctx context.Context, practiceID, ruleSetID string) ([]models.Location, error) {
	return listScoped[models.Location](ctx, s, s.stores.Locations, practiceID, ruleSetID, "locations")
}

// ListAppointmentTypes returns the appointment types of any rule set of the practice.
func (s *ResourceService) ListAppointmentTypes(ctx context.Context, practiceID, ruleSetID string) ([]models.AppointmentType, error) {
	return listScoped[models.AppointmentType](ctx, s, s.stores.AppointmentTypes, practiceID, ruleSetID, "appointment types")
}

// ListBaseSchedules returns the base schedules of any rule set of the practice.
func (s *ResourceService) ListBaseSchedules(ctx context.Context, practiceID, ruleSetID string) ([]models.BaseSchedule, error) {
	return listScoped[models.BaseSchedule](ctx, s, s.stores.BaseSchedules, practiceID, ruleSetID, "base schedules")
}

func (s *ResourceService) validate(req interface{}, label string) error {
	if err := s.validator.Struct(req); err != nil {
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid "+label+" payload")
	}
	return nil
}

// CreatePractitioner adds a practitioner to the working copy.
func (s *ResourceService) CreatePractitioner(ctx context.Context, practiceID string, req dto.PractitionerRequest) (*models.MutationResult, error) {
	if err := s.validate(req, "practitioner"); err != nil {
		return nil, err
	}
	return s.mutations.run(ctx, s.newMutation(practiceID, req.SourceRuleSetID, resourcePractitioner, models.AuditActionEntityCreate, ""),
		func(exec sqlx.ExtContext, working *models.RuleSet) (string, error) {
			practitioner := &models.Practitioner{RuleSetID: working.ID, Name: req.Name, Title: req.Title, Tags: req.Tags}
			if err := s.stores.Practitioners.Create(ctx, exec, practitioner); err != nil {
				return "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create practitioner")
			}
			return practitioner.ID, nil
		})
}

// UpdatePractitioner replaces the working copy's version of practitionerID.
func (s *ResourceService) UpdatePractitioner(ctx context.Context, practiceID, practitionerID string, req dto.PractitionerRequest) (*models.MutationResult, error) {
	if err := s.validate(req, "practitioner"); err != nil {
		return nil, err
	}
	return s.mutations.run(ctx, s.newMutation(practiceID, req.SourceRuleSetID, resourcePractitioner, models.AuditActionEntityUpdate, practitionerID),
		func(exec sqlx.ExtContext, working *models.RuleSet) (string, error) {
			practitioner, err := resolveCopy[models.Practitioner](ctx, exec, s.stores.Practitioners, s.stores.RuleSets, practiceID, working.ID, practitionerID, errPractitionerNotFound)
			if err != nil {
				return "", err
			}
			practitioner.Name, practitioner.Title = req.Name, req.Title
			if req.Tags != nil {
				practitioner.Tags = req.Tags
			}
			if err := s.stores.Practitioners.Update(ctx, exec, practitioner); err != nil {
				return "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update practitioner")
			}
			return practitioner.ID, nil
		})
}

// DeletePractitioner removes a practitioner, its base schedules and its
// entries in appointment type allow-lists.
func (s *ResourceService) DeletePractitioner(ctx context.Context, practiceID, practitionerID string, req dto.WorkingCopyRequest) (*models.MutationResult, error) {
	return s.mutations.run(ctx, s.newMutation(practiceID, req.SourceRuleSetID, resourcePractitioner, models.AuditActionEntityDelete, practitionerID),
		func(exec sqlx.ExtContext, working *models.RuleSet) (string, error) {
			practitioner, err := resolveCopy[models.Practitioner](ctx, exec, s.stores.Practitioners, s.stores.RuleSets, practiceID, working.ID, practitionerID, errPractitionerNotFound)
			if err != nil {
				return "", err
			}
			if _, err := s.stores.BaseSchedules.DeleteByPractitioner(ctx, exec, working.ID, practitioner.ID); err != nil {
				return "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete practitioner schedules")
			}
			if err := s.detachPractitioner(ctx, exec, working.ID, practitioner.ID); err != nil {
				return "", err
			}
			if err := s.stores.Practitioners.Delete(ctx, exec, practitioner.ID); err != nil {
				return "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete practitioner")
			}
			return practitioner.ID, nil
		})
}

func (s *ResourceService) detachPractitioner(ctx context.Context, exec sqlx.ExtContext, ruleSetID, practitionerID string) error {
	appointmentTypes, err := s.stores.AppointmentTypes.ListByRuleSet(ctx, exec, ruleSetID)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list appointment types")
	}
	for i := range appointmentTypes {
		appointmentType := &appointmentTypes[i]
		kept := make([]string, 0, len(appointmentType.AllowedPractitionerIDs))
		for _, id := range appointmentType.AllowedPractitionerIDs {
			if id != practitionerID {
				kept = append(kept, id)
			}
		}
		if len(kept) == len(appointmentType.AllowedPractitionerIDs) {
			continue
		}
		appointmentType.AllowedPractitionerIDs = kept
		if err := s.stores.AppointmentTypes.Update(ctx, exec, appointmentType); err != nil {
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update appointment type")
		}
	}
	return nil
}

// CreateLocation adds a location to the working copy.
func (s *ResourceService) CreateLocation(ctx context.Context, practiceID string, req dto.LocationRequest) (*models.MutationResult, error) {
	if err := s.validate(req, "location"); err != nil {
		return nil, err
	}
	return s.mutations.run(ctx, s.newMutation(practiceID, req.SourceRuleSetID, resourceLocation, models.AuditActionEntityCreate, ""),
		func(exec sqlx.ExtContext, working *models.RuleSet) (string, error) {
			location := &models.Location{RuleSetID: working.ID, Name: req.Name}
			if err := s.stores.Locations.Create(ctx, exec, location); err != nil {
				return "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create location")
			}
			return location.ID, nil
		})
}

// UpdateLocation renames the working copy's version of locationID.
func (s *ResourceService) UpdateLocation(ctx context.Context, practiceID, locationID string, req dto.LocationRequest) (*models.MutationResult, error) {
	if err := s.validate(req, "location"); err != nil {
		return nil, err
	}
	return s.mutations.run(ctx, s.newMutation(practiceID, req.SourceRuleSetID, resourceLocation, models.AuditActionEntityUpdate, locationID),
		func(exec sqlx.ExtContext, working *models.RuleSet) (string, error) {
			location, err := resolveCopy[models.Location](ctx, exec, s.stores.Locations, s.stores.RuleSets, practiceID, working.ID, locationID, errLocationNotFound)
			if err != nil {
				return "", err
			}
			location.Name = req.Name
			if err := s.stores.Locations.Update(ctx, exec, location); err != nil {
				return "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update location")
			}
			return location.ID, nil
		})
}

// DeleteLocation removes a location and the base schedules held there.
func (s *ResourceService) DeleteLocation(ctx context.Context, practiceID, locationID string, req dto.WorkingCopyRequest) (*models.MutationResult, error) {
	return s.mutations.run(ctx, s.newMutation(practiceID, req.SourceRuleSetID, resourceLocation, models.AuditActionEntityDelete, locationID),
		func(exec sqlx.ExtContext, working *models.RuleSet) (string, error) {
			location, err := resolveCopy[models.Location](ctx, exec, s.stores.Locations, s.stores.RuleSets, practiceID, working.ID, locationID, errLocationNotFound)
			if err != nil {
				return "", err
			}
			if _, err := s.stores.BaseSchedules.DeleteByLocation(ctx, exec, working.ID, location.ID); err != nil {
				return "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete location schedules")
			}
			if err := s.stores.Locations.Delete(ctx, exec, location.ID); err != nil {
				return "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete location")
			}
			return location.ID, nil
		})
}

// CreateAppointmentType adds an appointment type to the working copy.
func (s *ResourceService) CreateAppointmentType(ctx context.Context, practiceID string, req dto.AppointmentTypeRequest) (*models.MutationResult, error) {
	if err := s.validate(req, "appointment type"); err != nil {
		return nil, err
	}
	return s.mutations.run(ctx, s.newMutation(practiceID, req.SourceRuleSetID, resourceAppointmentType, models.AuditActionEntityCreate, ""),
		func(exec sqlx.ExtContext, working *models.RuleSet) (string, error) {
			if err := s.ensureUniqueTypeName(ctx, exec, working.ID, req.Name, ""); err != nil {
				return "", err
			}
			allowed, err := s.resolvePractitioners(ctx, exec, practiceID, working.ID, req.AllowedPractitionerIDs)
			if err != nil {
				return "", err
			}
			appointmentType := &models.AppointmentType{
				RuleSetID:              working.ID,
				Name:                   req.Name,
				DurationMinutes:        req.DurationMinutes,
				Color:                  req.Color,
				AllowedPractitionerIDs: allowed,
			}
			if err := s.stores.AppointmentTypes.Create(ctx, exec, appointmentType); err != nil {
				return "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create appointment type")
			}
			return appointmentType.ID, nil
		})
}

// UpdateAppointmentType replaces the working copy's version of typeID.
func (s *ResourceService) UpdateAppointmentType(ctx context.Context, practiceID, typeID string, req dto.AppointmentTypeRequest) (*models.MutationResult, error) {
	if err := s.validate(req, "appointment type"); err != nil {
		return nil, err
	}
	return s.mutations.run(ctx, s.newMutation(practiceID, req.SourceRuleSetID, resourceAppointmentType, models.AuditActionEntityUpdate, typeID),
		func(exec sqlx.ExtContext, working *models.RuleSet) (string, error) {
			appointmentType, err := resolveCopy[models.AppointmentType](ctx, exec, s.stores.AppointmentTypes, s.stores.RuleSets, practiceID, working.ID, typeID, errAppointmentTypeNotFound)
			if err != nil {
				return "", err
			}
			if err := s.ensureUniqueTypeName(ctx, exec, working.ID, req.Name, appointmentType.ID); err != nil {
				return "", err
			}
			allowed, err := s.resolvePractitioners(ctx, exec, practiceID, working.ID, req.AllowedPractitionerIDs)
			if err != nil {
				return "", err
			}
			appointmentType.Name = req.Name
			appointmentType.DurationMinutes = req.DurationMinutes
			appointmentType.Color = req.Color
			appointmentType.AllowedPractitionerIDs = allowed
			if err := s.stores.AppointmentTypes.Update(ctx, exec, appointmentType); err != nil {
				return "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update appointment type")
			}
			return appointmentType.ID, nil
		})
}

// DeleteAppointmentType removes the working copy's version of typeID.
func (s *ResourceService) DeleteAppointmentType(ctx context.Context, practiceID, typeID string, req dto.WorkingCopyRequest) (*models.MutationResult, error) {
	return s.mutations.run(ctx, s.newMutation(practiceID, req.SourceRuleSetID, resourceAppointmentType, models.AuditActionEntityDelete, typeID),
		func(exec sqlx.ExtContext, working *models.RuleSet) (string, error) {
			appointmentType, err := resolveCopy[models.AppointmentType](ctx, exec, s.stores.AppointmentTypes, s.stores.RuleSets, practiceID, working.ID, typeID, errAppointmentTypeNotFound)
			if err != nil {
				return "", err
			}
			if err := s.stores.AppointmentTypes.Delete(ctx, exec, appointmentType.ID); err != nil {
				return "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete appointment type")
			}
			return appointmentType.ID, nil
		})
}

func (s *ResourceService) ensureUniqueTypeName(ctx context.Context, exec sqlx.ExtContext, ruleSetID, name, selfID string) error {
	existing, err := s.stores.AppointmentTypes.FindByName(ctx, exec, ruleSetID, strings.TrimSpace(name))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check appointment type name")
	}
	if existing.ID == selfID {
		return nil
	}
	return appErrors.Clone(appErrors.ErrConflict, fmt.Sprintf("appointment type %q already exists", name))
}

// resolvePractitioners translates practitioner ids, possibly taken from an
// older rule set, to their copies in the working rule set.
func (s *ResourceService) resolvePractitioners(ctx context.Context, exec sqlx.ExtContext, practiceID, workingID string, ids []string) ([]string, error) {
	resolved := make([]string, 0, len(ids))
	seen := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		practitioner, err := resolveCopy[models.Practitioner](ctx, exec, s.stores.Practitioners, s.stores.RuleSets, practiceID, workingID, id, errPractitionerNotFound)
		if err != nil {
			return nil, err
		}
		if _, dup := seen[practitioner.ID]; dup {
			continue
		}
		seen[practitioner.ID] = struct{}{}
		resolved = append(resolved, practitioner.ID)
	}
	return resolved, nil
}

// CreateBaseSchedule adds a weekly availability block to the working copy.
func (s *ResourceService) CreateBaseSchedule(ctx context.Context, practiceID string, req dto.BaseScheduleRequest) (*models.MutationResult, error) {
	if err := s.validateSchedule(req); err != nil {
		return nil, err
	}
	return s.mutations.run(ctx, s.newMutation(practiceID, req.SourceRuleSetID, resourceBaseSchedule, models.AuditActionEntityCreate, ""),
		func(exec sqlx.ExtContext, working *models.RuleSet) (string, error) {
			schedule := &models.BaseSchedule{RuleSetID: working.ID}
			if err := s.applySchedule(ctx, exec, practiceID, working.ID, schedule, req); err != nil {
				return "", err
			}
			if err := s.stores.BaseSchedules.Create(ctx, exec, schedule); err != nil {
				return "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create base schedule")
			}
			return schedule.ID, nil
		})
}

// UpdateBaseSchedule replaces the working copy's version of scheduleID.
func (s *ResourceService) UpdateBaseSchedule(ctx context.Context, practiceID, scheduleID string, req dto.BaseScheduleRequest) (*models.MutationResult, error) {
	if err := s.validateSchedule(req); err != nil {
		return nil, err
	}
	return s.mutations.run(ctx, s.newMutation(practiceID, req.SourceRuleSetID, resourceBaseSchedule, models.AuditActionEntityUpdate, scheduleID),
		func(exec sqlx.ExtContext, working *models.RuleSet) (string, error) {
			schedule, err := resolveCopy[models.BaseSchedule](ctx, exec, s.stores.BaseSchedules, s.stores.RuleSets, practiceID, working.ID, scheduleID, errBaseScheduleNotFound)
			if err != nil {
				return "", err
			}
			if err := s.applySchedule(ctx, exec, practiceID, working.ID, schedule, req); err != nil {
				return "", err
			}
			if err := s.stores.BaseSchedules.Update(ctx, exec, schedule); err != nil {
				return "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update base schedule")
			}
			return schedule.ID, nil
		})
}

// DeleteBaseSchedule removes the working copy's version of scheduleID.
func (s *ResourceService) DeleteBaseSchedule(ctx context.Context, practiceID, scheduleID string, req dto.WorkingCopyRequest) (*models.MutationResult, error) {
	return s.mutations.run(ctx, s.newMutation(practiceID, req.SourceRuleSetID, resourceBaseSchedule, models.AuditActionEntityDelete, scheduleID),
		func(exec sqlx.ExtContext, working *models.RuleSet) (string, error) {
			schedule, err := resolveCopy[models.BaseSchedule](ctx, exec, s.stores.BaseSchedules, s.stores.RuleSets, practiceID, working.ID, scheduleID, errBaseScheduleNotFound)
			if err != nil {
				return "", err
			}
			if err := s.stores.BaseSchedules.Delete(ctx, exec, schedule.ID); err != nil {
				return "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete base schedule")
			}
			return schedule.ID, nil
		})
}

func (s *ResourceService) validateSchedule(req dto.BaseScheduleRequest) error {
	if err := s.validate(req, "base schedule"); err != nil {
		return err
	}
	start, err := condition.ParseTimeOfDay(req.StartTime)
	if err != nil {
		return err
	}
	end, err := condition.ParseTimeOfDay(req.EndTime)
	if err != nil {
		return err
	}
	if end <= start {
		return appErrors.Clone(appErrors.ErrValidation, "endTime must be after startTime")
	}
	return nil
}

func (s *ResourceService) applySchedule(ctx context.Context, exec sqlx.ExtContext, practiceID, workingID string, schedule *models.BaseSchedule, req dto.BaseScheduleRequest) error {
	practitioner, err := resolveCopy[models.Practitioner](ctx, exec, s.stores.Practitioners, s.stores.RuleSets, practiceID, workingID, req.PractitionerID, errPractitionerNotFound)
	if err != nil {
		return err
	}
	location, err := resolveCopy[models.Location](ctx, exec, s.stores.Locations, s.stores.RuleSets, practiceID, workingID, req.LocationID, errLocationNotFound)
	if err != nil {
		return err
	}
	schedule.PractitionerID = practitioner.ID
	schedule.LocationID = location.ID
	schedule.DayOfWeek = req.DayOfWeek
	schedule.StartTime = req.StartTime
	schedule.EndTime = req.EndTime
	return nil
}

func (s *ResourceService) newMutation(practiceID, sourceRuleSetID, resource, action, requestedID string) mutation {
	m := mutation{practiceID: practiceID, sourceRuleSetID: sourceRuleSetID, resource: resource, action: action}
	if requestedID != "" {
		m.details = map[string]interface{}{"requestedId": requestedID}
	}
	return m
}
