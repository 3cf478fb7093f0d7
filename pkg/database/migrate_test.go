package database

import (
	"context"
	"errors"
	"testing"
	"testing/fstest"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/practice-rules-api/migrations"
)

func TestMigratorLoadSortsAndSkips(t *testing.T) {
	files := fstest.MapFS{
		"010_tables.sql": {Data: []byte("SELECT 10;")},
		"002_second.sql": {Data: []byte("SELECT 2;")},
		"001_first.sql":  {Data: []byte("SELECT 1;")},
		"README.md":      {Data: []byte("docs")},
		"draft.sql":      {Data: []byte("SELECT 0;")},
		"x_bad.sql":      {Data: []byte("SELECT 0;")},
	}
	loaded, err := NewMigrator(nil, files, nil).Load()
	require.NoError(t, err)
	require.Len(t, loaded, 3)
	assert.Equal(t, []int{1, 2, 10}, []int{loaded[0].Version, loaded[1].Version, loaded[2].Version})
	assert.Equal(t, "001_first.sql", loaded[0].Name)
	assert.Equal(t, "SELECT 1;", loaded[0].SQL)
}

func TestMigratorLoadRejectsDuplicateVersions(t *testing.T) {
	files := fstest.MapFS{
		"001_a.sql": {Data: []byte("SELECT 1;")},
		"001_b.sql": {Data: []byte("SELECT 1;")},
	}
	_, err := NewMigrator(nil, files, nil).Load()
	assert.ErrorContains(t, err, "share version 1")
}

func TestEmbeddedMigrationsLoad(t *testing.T) {
	loaded, err := NewMigrator(nil, migrations.Files, nil).Load()
	require.NoError(t, err)
	require.NotEmpty(t, loaded)
	assert.Equal(t, 1, loaded[0].Version)
	assert.Contains(t, loaded[0].SQL, "rule_sets_one_unsaved")
}

func TestMigratorUpAppliesPending(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	defer db.Close()

	files := fstest.MapFS{
		"001_first.sql":  {Data: []byte("CREATE TABLE a (id TEXT)")},
		"002_second.sql": {Data: []byte("CREATE TABLE b (id TEXT)")},
	}
	mock.ExpectExec("CREATE TABLE IF NOT EXISTS schema_migrations").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("SELECT version FROM schema_migrations").WillReturnRows(sqlmock.NewRows([]string{"version"}).AddRow(1))
	mock.ExpectBegin()
	mock.ExpectExec("CREATE TABLE b").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("INSERT INTO schema_migrations").WithArgs(2, "002_second.sql").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	count, err := NewMigrator(sqlx.NewDb(db, "sqlmock"), files, nil).Up(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, count)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMigratorUpRollsBackFailedFile(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	defer db.Close()

	files := fstest.MapFS{"001_first.sql": {Data: []byte("CREATE TABLE broken (")}}
	mock.ExpectExec("CREATE TABLE IF NOT EXISTS schema_migrations").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("SELECT version FROM schema_migrations").WillReturnRows(sqlmock.NewRows([]string{"version"}))
	mock.ExpectBegin()
	mock.ExpectExec("CREATE TABLE broken").WillReturnError(errors.New("syntax error at end of input"))
	mock.ExpectRollback()

	count, err := NewMigrator(sqlx.NewDb(db, "sqlmock"), files, nil).Up(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "apply migration 001_first.sql")
	assert.Equal(t, 0, count)
	assert.NoError(t, mock.ExpectationsWereMet())
}
