package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/practice-rules-api/internal/models"
)

func newRuleSetRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

var ruleSetRowColumns = []string{"id", "practice_id", "version", "description", "saved", "is_active", "parent_versions", "created_at", "saved_at"}

func TestRuleSetRepositoryCreateAssignsDefaults(t *testing.T) {
	db, mock, cleanup := newRuleSetRepoMock(t)
	defer cleanup()

	repo := NewRuleSetRepository(db)
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO rule_sets")).
		WillReturnResult(sqlmock.NewResult(1, 1))

	ruleSet := &models.RuleSet{PracticeID: "practice-1", Version: 1, Description: models.UnsavedRuleSetDescription}
	require.NoError(t, repo.Create(context.Background(), nil, ruleSet))
	require.NotEmpty(t, ruleSet.ID)
	require.False(t, ruleSet.CreatedAt.IsZero())
	require.NotNil(t, ruleSet.ParentVersions)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRuleSetRepositoryCreateRequiresPractice(t *testing.T) {
	db, _, cleanup := newRuleSetRepoMock(t)
	defer cleanup()

	err := NewRuleSetRepository(db).Create(context.Background(), nil, &models.RuleSet{})
	require.Error(t, err)
}

func TestRuleSetRepositoryFindUnsaved(t *testing.T) {
	db, mock, cleanup := newRuleSetRepoMock(t)
	defer cleanup()

	repo := NewRuleSetRepository(db)
	rows := sqlmock.NewRows(ruleSetRowColumns).
		AddRow("rs-2", "practice-1", 2, "Unsaved changes", false, false, "{rs-1}", time.Now(), nil)
	mock.ExpectQuery(regexp.QuoteMeta("FROM rule_sets WHERE practice_id = $1 AND saved = FALSE")).
		WithArgs("practice-1").
		WillReturnRows(rows)

	ruleSet, err := repo.FindUnsaved(context.Background(), nil, "practice-1")
	require.NoError(t, err)
	require.Equal(t, "rs-2", ruleSet.ID)
	require.Equal(t, []string{"rs-1"}, []string(ruleSet.ParentVersions))
	require.Equal(t, models.RuleSetStateUnsaved, ruleSet.State())
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRuleSetRepositoryFindActiveNoRows(t *testing.T) {
	db, mock, cleanup := newRuleSetRepoMock(t)
	defer cleanup()

	repo := NewRuleSetRepository(db)
	mock.ExpectQuery(regexp.QuoteMeta("AND is_active = TRUE")).
		WithArgs("practice-1").
		WillReturnRows(sqlmock.NewRows(ruleSetRowColumns))

	_, err := repo.FindActive(context.Background(), nil, "practice-1")
	require.ErrorIs(t, err, sql.ErrNoRows)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRuleSetRepositoryListByPractice(t *testing.T) {
	db, mock, cleanup := newRuleSetRepoMock(t)
	defer cleanup()

	repo := NewRuleSetRepository(db)
	now := time.Now()
	rows := sqlmock.NewRows(ruleSetRowColumns).
		AddRow("rs-2", "practice-1", 2, "second", true, true, "{rs-1}", now, now).
		AddRow("rs-1", "practice-1", 1, "first", true, false, "{}", now.Add(-time.Hour), now.Add(-time.Hour))
	mock.ExpectQuery(regexp.QuoteMeta("ORDER BY created_at DESC, id ASC")).
		WithArgs("practice-1").
		WillReturnRows(rows)

	list, err := repo.ListByPractice(context.Background(), nil, "practice-1")
	require.NoError(t, err)
	require.Len(t, list, 2)
	require.Equal(t, models.RuleSetStateActive, list[0].State())
	require.Equal(t, models.RuleSetStateSaved, list[1].State())
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRuleSetRepositoryMarkSavedReportsAlreadySaved(t *testing.T) {
	db, mock, cleanup := newRuleSetRepoMock(t)
	defer cleanup()

	repo := NewRuleSetRepository(db)
	mock.ExpectExec(regexp.QuoteMeta("UPDATE rule_sets SET saved = TRUE")).
		WithArgs("rs-1", "release", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.MarkSaved(context.Background(), nil, "rs-1", "release", time.Now())
	require.ErrorIs(t, err, sql.ErrNoRows)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRuleSetRepositoryActivateUsesSingleStatement(t *testing.T) {
	db, mock, cleanup := newRuleSetRepoMock(t)
	defer cleanup()

	repo := NewRuleSetRepository(db)
	mock.ExpectExec(regexp.QuoteMeta("UPDATE rule_sets SET is_active = (id = $2)")).
		WithArgs("practice-1", "rs-3").
		WillReturnResult(sqlmock.NewResult(0, 2))

	require.NoError(t, repo.Activate(context.Background(), nil, "practice-1", "rs-3"))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRuleSetRepositoryUsesProvidedExecutor(t *testing.T) {
	db, mock, cleanup := newRuleSetRepoMock(t)
	defer cleanup()

	repo := NewRuleSetRepository(db)
	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM rule_sets")).
		WithArgs("practice-1").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(3))
	mock.ExpectCommit()

	tx, err := db.Beginx()
	require.NoError(t, err)
	count, err := repo.CountByPractice(context.Background(), tx, "practice-1")
	require.NoError(t, err)
	require.Equal(t, 3, count)
	require.NoError(t, tx.Commit())
	require.NoError(t, mock.ExpectationsWereMet())
}
