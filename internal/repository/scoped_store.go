package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
)

// scopedStore implements the queries shared by every rule-set scoped table.
// Concrete repositories embed it and add their own INSERT/UPDATE statements.
type scopedStore[T any] struct {
	db      *sqlx.DB
	table   string
	columns string
	orderBy string
}

func newScopedStore[T any](db *sqlx.DB, table string, columns []string, orderBy string) scopedStore[T] {
	return scopedStore[T]{db: db, table: table, columns: strings.Join(columns, ", "), orderBy: orderBy}
}

func (s scopedStore[T]) exec(exec sqlx.ExtContext) sqlx.ExtContext {
	if exec != nil {
		return exec
	}
	return s.db
}

// ListByRuleSet returns every row belonging to the rule set.
func (s scopedStore[T]) ListByRuleSet(ctx context.Context, exec sqlx.ExtContext, ruleSetID string) ([]T, error) {
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE rule_set_id = $1 ORDER BY %s`, s.columns, s.table, s.orderBy)
	var rows []T
	if err := sqlx.SelectContext(ctx, s.exec(exec), &rows, query, ruleSetID); err != nil {
		return nil, fmt.Errorf("list %s: %w", s.table, err)
	}
	return rows, nil
}

// FindByID loads a row by id regardless of its rule set.
func (s scopedStore[T]) FindByID(ctx context.Context, exec sqlx.ExtContext, id string) (*T, error) {
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE id = $1`, s.columns, s.table)
	var row T
	if err := sqlx.GetContext(ctx, s.exec(exec), &row, query, id); err != nil {
		return nil, err
	}
	return &row, nil
}

// FindByParent locates the copy of parentID inside ruleSetID.
func (s scopedStore[T]) FindByParent(ctx context.Context, exec sqlx.ExtContext, ruleSetID, parentID string) (*T, error) {
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE rule_set_id = $1 AND parent_id = $2`, s.columns, s.table)
	var row T
	if err := sqlx.GetContext(ctx, s.exec(exec), &row, query, ruleSetID, parentID); err != nil {
		return nil, err
	}
	return &row, nil
}

// Delete removes a single row.
func (s scopedStore[T]) Delete(ctx context.Context, exec sqlx.ExtContext, id string) error {
	query := fmt.Sprintf(`DELETE FROM %s WHERE id = $1`, s.table)
	result, err := s.exec(exec).ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("delete %s: %w", s.table, err)
	}
	return expectAffected(result, s.table)
}

// DeleteByRuleSet removes every row of the rule set and reports how many went.
func (s scopedStore[T]) DeleteByRuleSet(ctx context.Context, exec sqlx.ExtContext, ruleSetID string) (int64, error) {
	query := fmt.Sprintf(`DELETE FROM %s WHERE rule_set_id = $1`, s.table)
	result, err := s.exec(exec).ExecContext(ctx, query, ruleSetID)
	if err != nil {
		return 0, fmt.Errorf("delete %s by rule set: %w", s.table, err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("%s rows affected: %w", s.table, err)
	}
	return affected, nil
}

func (s scopedStore[T]) namedExec(ctx context.Context, exec sqlx.ExtContext, query string, arg interface{}, action string) error {
	result, err := sqlx.NamedExecContext(ctx, s.exec(exec), query, arg)
	if err != nil {
		return fmt.Errorf("%s %s: %w", action, s.table, err)
	}
	if action == "update" {
		return expectAffected(result, s.table)
	}
	return nil
}

func expectAffected(result sql.Result, table string) error {
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s rows affected: %w", table, err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}
