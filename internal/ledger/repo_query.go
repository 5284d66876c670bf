package ledger

import (
	"context"
	"time"
)

// QueryResult carries raw rows for the read-only query surface. Values are
// rendered at the reporting boundary; reconciliation never consumes them.
type QueryResult struct {
	Columns []string
	Rows    [][]any
}

// Query executes an arbitrary read-only statement. Callers are responsible
// for rejecting mutating SQL before reaching the repository.
func (r *Repository) Query(ctx context.Context, sql string) (QueryResult, error) {
	rows, err := r.pool.Query(ctx, sql)
	if err != nil {
		return QueryResult{}, err
	}
	defer rows.Close()

	var result QueryResult
	for _, fd := range rows.FieldDescriptions() {
		result.Columns = append(result.Columns, fd.Name)
	}
	for rows.Next() {
		values, err := rows.Values()
		if err != nil {
			return QueryResult{}, err
		}
		result.Rows = append(result.Rows, values)
	}
	return result, rows.Err()
}

// Stats aggregates ledger totals for the status surface.
type Stats struct {
	TransactionCount int64
	SnapshotCount    int64
	EarliestDate     *time.Time
	LatestDate       *time.Time
}

// Stats returns transaction/snapshot totals and the economic date range.
func (r *Repository) Stats(ctx context.Context) (Stats, error) {
	var s Stats
	err := r.pool.QueryRow(ctx, `SELECT
	(SELECT COUNT(*) FROM transactions WHERE deleted_at IS NULL),
	(SELECT COUNT(*) FROM balance_snapshots),
	(SELECT MIN(transaction_date) FROM transactions WHERE deleted_at IS NULL),
	(SELECT MAX(transaction_date) FROM transactions WHERE deleted_at IS NULL)`).
		Scan(&s.TransactionCount, &s.SnapshotCount, &s.EarliestDate, &s.LatestDate)
	if err != nil {
		return Stats{}, err
	}
	return s, nil
}
