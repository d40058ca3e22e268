package store

import (
	"context"
	"fmt"

	"github.com/xiaot623/rolo/internal/sqlguard"
)

// maxSQLRows caps the rows returned from a raw query.
const maxSQLRows = 200

// ExecuteSQL runs a single statement. Queries holding more than one
// statement are refused before anything is prepared. readOnly selects the
// query path; otherwise the statement is executed for its effect.
func (s *SQLiteStore) ExecuteSQL(ctx context.Context, query string, readOnly bool) (*SQLResult, error) {
	if err := sqlguard.SingleStatement(query); err != nil {
		return nil, err
	}
	stmt, err := s.db.PrepareContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	if !readOnly {
		res, err := stmt.ExecContext(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to execute statement: %w", err)
		}
		out := &SQLResult{}
		out.RowsAffected, _ = res.RowsAffected()
		out.LastInsertID, _ = res.LastInsertId()
		return out, nil
	}

	rows, err := stmt.QueryContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to run query: %w", err)
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, err
	}
	out := &SQLResult{Columns: columns, Rows: [][]interface{}{}}
	for rows.Next() {
		if out.RowCount >= maxSQLRows {
			out.Truncated = true
			break
		}
		values := make([]interface{}, len(columns))
		ptrs := make([]interface{}, len(columns))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, err
		}
		for i, v := range values {
			if b, ok := v.([]byte); ok {
				values[i] = string(b)
			}
		}
		out.Rows = append(out.Rows, values)
		out.RowCount++
	}
	return out, rows.Err()
}
