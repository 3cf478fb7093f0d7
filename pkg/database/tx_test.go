package database

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/practice-rules-api/pkg/config"
)

func newMockRunner(t *testing.T, retries int, opts ...TxOption) (*TxRunner, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewTxRunner(sqlx.NewDb(db, "sqlmock"), retries, 0, nil, opts...), mock
}

func TestWithinTransactionCommits(t *testing.T) {
	runner, mock := newMockRunner(t, 2)
	mock.ExpectBegin()
	mock.ExpectExec("UPDATE rule_sets").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := runner.WithinTransaction(context.Background(), func(exec sqlx.ExtContext) error {
		_, err := exec.ExecContext(context.Background(), "UPDATE rule_sets SET saved = TRUE")
		return err
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWithinTransactionRetriesSerializationFailures(t *testing.T) {
	retries := 0
	runner, mock := newMockRunner(t, 3, WithRetryObserver(func() { retries++ }))

	conflict := &pq.Error{Code: "40001", Message: "could not serialize access"}
	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO rule_sets").WillReturnError(conflict)
	mock.ExpectRollback()
	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO rule_sets").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	calls := 0
	err := runner.WithinTransaction(context.Background(), func(exec sqlx.ExtContext) error {
		calls++
		_, err := exec.ExecContext(context.Background(), "INSERT INTO rule_sets (id) VALUES ($1)", "rs-1")
		return err
	})
	require.NoError(t, err)
	assert.Equal(t, 2, calls)
	assert.Equal(t, 1, retries)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWithinTransactionGivesUpAfterMaxRetries(t *testing.T) {
	runner, mock := newMockRunner(t, 1)
	deadlock := &pq.Error{Code: "40P01"}
	for i := 0; i < 2; i++ {
		mock.ExpectBegin()
		mock.ExpectRollback()
	}

	err := runner.WithinTransaction(context.Background(), func(sqlx.ExtContext) error {
		return fmt.Errorf("copy rules: %w", deadlock)
	})
	require.Error(t, err)
	assert.True(t, IsRetryable(err))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWithinTransactionDoesNotRetryDomainErrors(t *testing.T) {
	runner, mock := newMockRunner(t, 5)
	mock.ExpectBegin()
	mock.ExpectRollback()

	boom := errors.New("data integrity")
	err := runner.WithinTransaction(context.Background(), func(sqlx.ExtContext) error { return boom })
	assert.ErrorIs(t, err, boom)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDSNNamesApplication(t *testing.T) {
	dsn := DSN(config.DatabaseConfig{Host: "db", Port: 5432, User: "rules", Password: "pw", Name: "practice_rules", SSLMode: "disable"})
	assert.Equal(t, "host=db port=5432 user=rules password=pw dbname=practice_rules sslmode=disable application_name=practice-rules-api", dsn)
}
