package service

import (
	"context"
	"encoding/json"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/practice-rules-api/internal/dto"
	"github.com/noah-isme/practice-rules-api/internal/models"
	appErrors "github.com/noah-isme/practice-rules-api/pkg/errors"
)

const practiceA = "practice-a"

func fluShotCondition() json.RawMessage {
	return json.RawMessage(`{"type":"Property","entity":"Slot","attr":"type","op":"=","value":"flu-shot","timeStart":"22:00","timeEnd":"02:00"}`)
}

// saveInitial creates the first rule set with one practitioner, one location,
// one schedule and one rule, then saves and activates it.
func saveInitial(t *testing.T, svc *testServices) (*models.RuleSet, map[string]string) {
	t.Helper()
	ctx := context.Background()

	prac, err := svc.resources.CreatePractitioner(ctx, practiceA, dto.PractitionerRequest{Name: "Dr. Ada"})
	require.NoError(t, err)
	loc, err := svc.resources.CreateLocation(ctx, practiceA, dto.LocationRequest{Name: "Room 1"})
	require.NoError(t, err)
	require.Equal(t, prac.RuleSetID, loc.RuleSetID)
	sched, err := svc.resources.CreateBaseSchedule(ctx, practiceA, dto.BaseScheduleRequest{
		PractitionerID: prac.EntityID, LocationID: loc.EntityID, DayOfWeek: 1, StartTime: "08:00", EndTime: "12:00",
	})
	require.NoError(t, err)
	typ, err := svc.resources.CreateAppointmentType(ctx, practiceA, dto.AppointmentTypeRequest{
		Name: "Flu shot", DurationMinutes: 15, AllowedPractitionerIDs: []string{prac.EntityID},
	})
	require.NoError(t, err)
	rule, err := svc.rules.CreateRule(ctx, practiceA, dto.CreateRuleRequest{
		Name: "No late flu shots", Action: "BLOCK", Message: "closed", Condition: fluShotCondition(),
	})
	require.NoError(t, err)

	saved, err := svc.ruleSets.SaveUnsavedRuleSet(ctx, practiceA, dto.SaveRuleSetRequest{Description: "initial", SetAsActive: true})
	require.NoError(t, err)
	return saved, map[string]string{
		"practitioner": prac.EntityID,
		"location":     loc.EntityID,
		"schedule":     sched.EntityID,
		"type":         typ.EntityID,
		"rule":         rule.EntityID,
	}
}

func TestRuleSetServiceCreatesInitialVersion(t *testing.T) {
	svc := newTestServices()
	ruleSet, err := svc.ruleSets.GetOrCreateUnsavedRuleSet(context.Background(), practiceA, dto.WorkingCopyRequest{})
	require.NoError(t, err)

	assert.Equal(t, 1, ruleSet.Version)
	assert.False(t, ruleSet.Saved)
	assert.Empty(t, ruleSet.ParentVersions)
	assert.Equal(t, models.RuleSetStateUnsaved, ruleSet.State())
	assert.Contains(t, svc.world.audit.actions(), models.AuditActionRuleSetFork)
	assert.EqualValues(t, 1, svc.metrics.Snapshot().Forks)
}

func TestRuleSetServiceGetOrCreateIsIdempotentUnderConcurrency(t *testing.T) {
	svc := newTestServices()
	saveInitial(t, svc)

	const callers = 10
	ids := make([]string, callers)
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			ruleSet, err := svc.ruleSets.GetOrCreateUnsavedRuleSet(context.Background(), practiceA, dto.WorkingCopyRequest{})
			if assert.NoError(t, err) {
				ids[i] = ruleSet.ID
			}
		}(i)
	}
	wg.Wait()

	for _, id := range ids {
		assert.Equal(t, ids[0], id)
	}
	unsaved := 0
	for _, rs := range svc.world.ruleSets.rows {
		if !rs.Saved {
			unsaved++
		}
	}
	assert.Equal(t, 1, unsaved)
}

func TestRuleSetServiceForkRemapsReferences(t *testing.T) {
	svc := newTestServices()
	ctx := context.Background()
	saved, ids := saveInitial(t, svc)

	working, err := svc.ruleSets.GetOrCreateUnsavedRuleSet(ctx, practiceA, dto.WorkingCopyRequest{})
	require.NoError(t, err)
	assert.Equal(t, saved.Version+1, working.Version)
	assert.Equal(t, []string{saved.ID}, []string(working.ParentVersions))

	pracCopy, err := svc.world.practitioners.FindByParent(ctx, nil, working.ID, ids["practitioner"])
	require.NoError(t, err)
	locCopy, err := svc.world.locations.FindByParent(ctx, nil, working.ID, ids["location"])
	require.NoError(t, err)
	schedCopy, err := svc.world.baseSchedules.FindByParent(ctx, nil, working.ID, ids["schedule"])
	require.NoError(t, err)
	typeCopy, err := svc.world.appointmentTypes.FindByParent(ctx, nil, working.ID, ids["type"])
	require.NoError(t, err)
	ruleCopy, err := svc.world.rules.FindByParent(ctx, nil, working.ID, ids["rule"])
	require.NoError(t, err)

	assert.Equal(t, pracCopy.ID, schedCopy.PractitionerID)
	assert.Equal(t, locCopy.ID, schedCopy.LocationID)
	assert.Equal(t, []string{pracCopy.ID}, []string(typeCopy.AllowedPractitionerIDs))
	assert.JSONEq(t, string(fluShotCondition()), string(ruleCopy.Condition))

	// The saved source is untouched.
	assert.Equal(t, 1, svc.world.rules.count(saved.ID))
	assert.Equal(t, 1, svc.world.rules.count(working.ID))
}

func TestRuleSetServiceForkFromExplicitSource(t *testing.T) {
	svc := newTestServices()
	ctx := context.Background()
	first, _ := saveInitial(t, svc)

	_, err := svc.ruleSets.GetOrCreateUnsavedRuleSet(ctx, practiceA, dto.WorkingCopyRequest{})
	require.NoError(t, err)
	second, err := svc.ruleSets.SaveUnsavedRuleSet(ctx, practiceA, dto.SaveRuleSetRequest{Description: "second", SetAsActive: true})
	require.NoError(t, err)

	branch, err := svc.ruleSets.GetOrCreateUnsavedRuleSet(ctx, practiceA, dto.WorkingCopyRequest{SourceRuleSetID: first.ID})
	require.NoError(t, err)
	assert.Equal(t, []string{first.ID}, []string(branch.ParentVersions))
	assert.Equal(t, first.Version+1, branch.Version)
	assert.NotEqual(t, second.ID, branch.ID)
}

func TestRuleSetServiceForkUnknownSource(t *testing.T) {
	svc := newTestServices()
	saveInitial(t, svc)

	_, err := svc.ruleSets.GetOrCreateUnsavedRuleSet(context.Background(), practiceA, dto.WorkingCopyRequest{SourceRuleSetID: "missing"})
	require.Error(t, err)
	assert.True(t, appErrors.HasCode(err, appErrors.ErrRuleSetNotFound.Code))

	_, err = svc.ruleSets.GetOrCreateUnsavedRuleSet(context.Background(), "practice-b", dto.WorkingCopyRequest{SourceRuleSetID: svc.world.ruleSets.rows[0].ID})
	require.Error(t, err)
	assert.True(t, appErrors.HasCode(err, appErrors.ErrRuleSetNotFound.Code))
}

func TestRuleSetServiceNoActiveRuleSet(t *testing.T) {
	svc := newTestServices()
	ctx := context.Background()
	_, err := svc.ruleSets.GetOrCreateUnsavedRuleSet(ctx, practiceA, dto.WorkingCopyRequest{})
	require.NoError(t, err)
	_, err = svc.ruleSets.SaveUnsavedRuleSet(ctx, practiceA, dto.SaveRuleSetRequest{Description: "draft"})
	require.NoError(t, err)

	_, err = svc.ruleSets.GetOrCreateUnsavedRuleSet(ctx, practiceA, dto.WorkingCopyRequest{})
	require.Error(t, err)
	assert.True(t, appErrors.HasCode(err, appErrors.ErrNoActiveRuleSet.Code))

	_, err = svc.ruleSets.GetActiveRuleSet(ctx, practiceA)
	assert.True(t, appErrors.HasCode(err, appErrors.ErrNoActiveRuleSet.Code))
}

func TestRuleSetServiceForkDataIntegrityRollsBack(t *testing.T) {
	svc := newTestServices()
	ctx := context.Background()
	saved, ids := saveInitial(t, svc)

	// Corrupt the saved schedule so it references a practitioner outside the rule set.
	for i := range svc.world.baseSchedules.rows {
		if svc.world.baseSchedules.rows[i].ID == ids["schedule"] {
			svc.world.baseSchedules.rows[i].PractitionerID = "ghost"
		}
	}

	_, err := svc.ruleSets.GetOrCreateUnsavedRuleSet(ctx, practiceA, dto.WorkingCopyRequest{})
	require.Error(t, err)
	assert.True(t, appErrors.HasCode(err, appErrors.ErrDataIntegrity.Code))

	_, err = svc.ruleSets.GetUnsavedRuleSet(ctx, practiceA)
	assert.True(t, appErrors.HasCode(err, appErrors.ErrNoUnsavedRuleSet.Code))
	assert.Len(t, svc.world.practitioners.rows, 1)
	assert.Equal(t, saved.ID, svc.world.practitioners.rows[0].RuleSetID)
}

func TestRuleSetServiceSaveWithActivationIsExclusive(t *testing.T) {
	svc := newTestServices()
	ctx := context.Background()
	first, _ := saveInitial(t, svc)
	assert.True(t, first.IsActive)
	assert.Equal(t, "initial", first.Description)
	require.NotNil(t, first.SavedAt)

	_, err := svc.ruleSets.GetOrCreateUnsavedRuleSet(ctx, practiceA, dto.WorkingCopyRequest{})
	require.NoError(t, err)
	second, err := svc.ruleSets.SaveUnsavedRuleSet(ctx, practiceA, dto.SaveRuleSetRequest{Description: "second", SetAsActive: true})
	require.NoError(t, err)
	assert.True(t, second.IsActive)

	active := 0
	for _, rs := range svc.world.ruleSets.rows {
		if rs.IsActive {
			active++
			assert.Equal(t, second.ID, rs.ID)
		}
	}
	assert.Equal(t, 1, active)

	// Roll back to the first version.
	reactivated, err := svc.ruleSets.ActivateRuleSet(ctx, practiceA, first.ID)
	require.NoError(t, err)
	assert.True(t, reactivated.IsActive)
	current, err := svc.ruleSets.GetActiveRuleSet(ctx, practiceA)
	require.NoError(t, err)
	assert.Equal(t, first.ID, current.ID)
}

func TestRuleSetServiceSaveErrors(t *testing.T) {
	svc := newTestServices()
	ctx := context.Background()

	_, err := svc.ruleSets.SaveUnsavedRuleSet(ctx, practiceA, dto.SaveRuleSetRequest{Description: "nothing"})
	assert.True(t, appErrors.HasCode(err, appErrors.ErrNoUnsavedRuleSet.Code))

	_, err = svc.ruleSets.SaveUnsavedRuleSet(ctx, practiceA, dto.SaveRuleSetRequest{})
	assert.True(t, appErrors.HasCode(err, appErrors.ErrValidation.Code))
}

func TestRuleSetServiceActivateUnsavedConflicts(t *testing.T) {
	svc := newTestServices()
	ctx := context.Background()
	working, err := svc.ruleSets.GetOrCreateUnsavedRuleSet(ctx, practiceA, dto.WorkingCopyRequest{})
	require.NoError(t, err)

	_, err = svc.ruleSets.ActivateRuleSet(ctx, practiceA, working.ID)
	assert.True(t, appErrors.HasCode(err, appErrors.ErrConflict.Code))

	_, err = svc.ruleSets.ActivateRuleSet(ctx, "practice-b", working.ID)
	assert.True(t, appErrors.HasCode(err, appErrors.ErrRuleSetNotFound.Code))
}

func TestRuleSetServiceDiscardRemovesEverything(t *testing.T) {
	svc := newTestServices()
	ctx := context.Background()
	saved, _ := saveInitial(t, svc)

	working, err := svc.ruleSets.GetOrCreateUnsavedRuleSet(ctx, practiceA, dto.WorkingCopyRequest{})
	require.NoError(t, err)

	result, err := svc.ruleSets.DiscardUnsavedRuleSet(ctx, practiceA)
	require.NoError(t, err)
	assert.Equal(t, working.ID, result.RuleSetID)
	assert.EqualValues(t, 1, result.Deleted["rules"])
	assert.EqualValues(t, 1, result.Deleted["practitioners"])

	assert.Zero(t, svc.world.rules.count(working.ID))
	assert.Zero(t, svc.world.practitioners.count(working.ID))
	assert.Zero(t, svc.world.locations.count(working.ID))
	assert.Zero(t, svc.world.appointmentTypes.count(working.ID))
	assert.Zero(t, svc.world.baseSchedules.count(working.ID))
	assert.Equal(t, 1, svc.world.rules.count(saved.ID))

	_, err = svc.ruleSets.DiscardUnsavedRuleSet(ctx, practiceA)
	assert.True(t, appErrors.HasCode(err, appErrors.ErrNoUnsavedRuleSet.Code))
	assert.Contains(t, svc.world.audit.actions(), models.AuditActionRuleSetDiscard)
}

func TestRuleSetServiceVersionGraph(t *testing.T) {
	svc := newTestServices()
	ctx := context.Background()
	first, _ := saveInitial(t, svc)
	_, err := svc.ruleSets.GetOrCreateUnsavedRuleSet(ctx, practiceA, dto.WorkingCopyRequest{})
	require.NoError(t, err)

	graph, err := svc.ruleSets.VersionGraph(ctx, practiceA)
	require.NoError(t, err)
	require.Len(t, graph.RuleSets, 2)
	assert.Equal(t, first.ID, graph.RuleSets[1].ID)
	assert.Len(t, graph.Layout.Nodes, 2)
	assert.Len(t, graph.Layout.Edges, 1)

	empty, err := svc.ruleSets.VersionGraph(ctx, "practice-empty")
	require.NoError(t, err)
	assert.Empty(t, empty.RuleSets)
	assert.Empty(t, empty.Layout.Nodes)
}

func TestTranslateTxError(t *testing.T) {
	typed := appErrors.Clone(appErrors.ErrRuleNotFound, "gone")
	assert.Same(t, typed, translateTxError(typed, "ignored"))

	internal := translateTxError(assert.AnError, "failed to do it")
	assert.True(t, appErrors.HasCode(internal, appErrors.ErrInternal.Code))
}

func TestRuleSetServiceListAuditLogs(t *testing.T) {
	svc := newTestServices()
	ctx := context.Background()
	saveInitial(t, svc)

	logs, err := svc.ruleSets.ListAuditLogs(ctx, practiceA, 2)
	require.NoError(t, err)
	require.Len(t, logs, 2)
	assert.Equal(t, models.AuditActionRuleSetSave, logs[0].Action)

	none, err := svc.ruleSets.ListAuditLogs(ctx, "practice-empty", 10)
	require.NoError(t, err)
	assert.NotNil(t, none)
	assert.Empty(t, none)
}
