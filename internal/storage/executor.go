package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"
)

// Query is one statement in a batch. A Query with a Name has its result rows
// collected under that name; unnamed queries are executed for effect only.
type Query struct {
	Name string
	SQL  string
	Args []any
}

// Row is a generic result row keyed by column name. Numeric columns come back
// as int64 or float64, text as string, NULL as nil.
type Row map[string]any

// ResultSet maps each named query in a batch to its result rows.
type ResultSet map[string][]Row

// ExecuteBatch runs the ordered query list inside one all-or-nothing
// transaction. Any statement failure rolls back the entire batch and surfaces
// the underlying error; there is no partial commit. This is the only entry
// point through which the engine and the calculators touch storage, which is
// what gives a recalculation pass read-your-writes consistency.
func (s *Store) ExecuteBatch(ctx context.Context, queries []Query) (ResultSet, error) {
	if len(queries) == 0 {
		return ResultSet{}, nil
	}

	started := time.Now()
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}

	results := make(ResultSet)
	for i, q := range queries {
		if err := runQuery(ctx, tx, q, results); err != nil {
			if rbErr := tx.Rollback(); rbErr != nil {
				slog.ErrorContext(ctx, "Rollback failed after query error",
					"index", i, "error", rbErr)
			}
			return nil, fmt.Errorf("query %d (%s): %w", i, describe(q), err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit transaction: %w", err)
	}

	slog.DebugContext(ctx, "Executed query batch",
		"queries", len(queries),
		"duration_ms", time.Since(started).Milliseconds())
	return results, nil
}

func runQuery(ctx context.Context, tx *sql.Tx, q Query, results ResultSet) error {
	if q.Name == "" {
		_, err := tx.ExecContext(ctx, q.SQL, q.Args...)
		return err
	}

	rows, err := tx.QueryContext(ctx, q.SQL, q.Args...)
	if err != nil {
		return err
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return err
	}

	collected := []Row{}
	for rows.Next() {
		vals := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range vals {
			ptrs[i] = &vals[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return err
		}
		row := make(Row, len(cols))
		for i, col := range cols {
			switch v := vals[i].(type) {
			case []byte:
				row[col] = string(v)
			default:
				row[col] = v
			}
		}
		collected = append(collected, row)
	}
	if err := rows.Err(); err != nil {
		return err
	}

	results[q.Name] = collected
	return nil
}

func describe(q Query) string {
	if q.Name != "" {
		return q.Name
	}
	if len(q.SQL) > 40 {
		return q.SQL[:40] + "..."
	}
	return q.SQL
}

// String accessors for generic rows. Missing columns and NULLs read as zero
// values; the schema declares NOT NULL on everything the engine relies on.

// Str returns the named column as a string.
func (r Row) Str(col string) string {
	if v, ok := r[col].(string); ok {
		return v
	}
	return ""
}

// Int returns the named column as an int64.
func (r Row) Int(col string) int64 {
	switch v := r[col].(type) {
	case int64:
		return v
	case float64:
		return int64(v)
	}
	return 0
}

// Float returns the named column as a float64.
func (r Row) Float(col string) float64 {
	switch v := r[col].(type) {
	case float64:
		return v
	case int64:
		return float64(v)
	}
	return 0
}

// Bool returns the named column as a bool (SQLite stores booleans as 0/1).
func (r Row) Bool(col string) bool { return r.Int(col) != 0 }
