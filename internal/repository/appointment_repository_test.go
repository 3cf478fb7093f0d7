package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/practice-rules-api/internal/models"
)

func TestAppointmentRepositoryListInWindow(t *testing.T) {
	db, mock, cleanup := newRuleSetRepoMock(t)
	defer cleanup()

	repo := NewAppointmentRepository(db)
	from := time.Date(2024, 3, 4, 8, 0, 0, 0, time.UTC)
	to := from.Add(8 * time.Hour)
	rows := sqlmock.NewRows([]string{"id", "practice_id", "starts_at", "ends_at", "appointment_type_id", "practitioner_id", "location_id", "cancelled"}).
		AddRow("appt-1", "practice-1", from.Add(time.Hour), from.Add(90*time.Minute), "type-1", "prac-1", nil, false)
	mock.ExpectQuery(regexp.QuoteMeta("cancelled = FALSE AND starts_at < $3 AND ends_at > $2")).
		WithArgs("practice-1", from, to).
		WillReturnRows(rows)

	appointments, err := repo.ListInWindow(context.Background(), "practice-1", from, to)
	require.NoError(t, err)
	require.Len(t, appointments, 1)

	evaluable := appointments[0].ForEvaluation()
	require.Equal(t, "appt-1", evaluable.ID)
	require.Equal(t, "2024-03-04T09:00:00Z", evaluable.Start)
	require.Equal(t, "type-1", evaluable.Type)
	require.Empty(t, evaluable.Location)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAuditRepositoryCreate(t *testing.T) {
	db, mock, cleanup := newRuleSetRepoMock(t)
	defer cleanup()

	repo := NewAuditRepository(db)
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO audit_logs")).
		WillReturnResult(sqlmock.NewResult(1, 1))

	ruleSetID := "rs-1"
	log := &models.AuditLog{PracticeID: "practice-1", Action: models.AuditActionRuleSetSave, Resource: "rule_set", RuleSetID: &ruleSetID}
	require.NoError(t, repo.Create(context.Background(), log))
	require.NotEmpty(t, log.ID)
	require.Equal(t, "{}", string(log.Details))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAuditRepositoryListClampsLimit(t *testing.T) {
	db, mock, cleanup := newRuleSetRepoMock(t)
	defer cleanup()

	repo := NewAuditRepository(db)
	mock.ExpectQuery(regexp.QuoteMeta("FROM audit_logs WHERE practice_id = $1")).
		WithArgs("practice-1", 100).
		WillReturnRows(sqlmock.NewRows([]string{"id", "practice_id", "actor_id", "action", "resource", "resource_id", "rule_set_id", "details", "created_at"}))

	logs, err := repo.ListByPractice(context.Background(), "practice-1", 0)
	require.NoError(t, err)
	require.Empty(t, logs)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCacheRepositoryWithoutClient(t *testing.T) {
	repo := NewCacheRepository(nil, nil)
	var dest []string
	require.Error(t, repo.Get(context.Background(), "rules:rs-1", &dest))
	require.NoError(t, repo.Set(context.Background(), "rules:rs-1", []string{"a"}, time.Minute))
	require.NoError(t, repo.Delete(context.Background(), "rules:rs-1"))
	require.NoError(t, repo.DeleteByPattern(context.Background(), "rules:*"))
	require.NoError(t, repo.Close())
}
