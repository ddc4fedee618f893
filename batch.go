package mysql

import "context"

// BatchStatement accumulates a sequence of parameter sets against a
// single prepared statement and executes them in one round trip per
// entry. Batch semantics: stop-and-report on
// the first failure, carrying the update counts observed so far.
type BatchStatement struct {
	stmt  *ServerPreparedStatement
	batch [][]any
}

// NewBatch wraps stmt for batched execution. stmt is reused across
// every AddBatch entry; it is not closed by ExecuteBatch.
func NewBatch(stmt *ServerPreparedStatement) *BatchStatement {
	return &BatchStatement{stmt: stmt}
}

// AddBatch queues one parameter set.
func (b *BatchStatement) AddBatch(args ...any) {
	b.batch = append(b.batch, args)
}

// ExecuteBatch runs every queued parameter set in order. On the first
// failure it returns a *BatchUpdateException carrying the RowsAffected
// counts of every statement that succeeded before the failure.
func (b *BatchStatement) ExecuteBatch(ctx context.Context) ([]int64, error) {
	counts := make([]int64, 0, len(b.batch))
	for _, args := range b.batch {
		res, err := b.stmt.Execute(ctx, args...)
		if err != nil {
			return counts, &BatchUpdateException{UpdateCounts: counts, Err: err}
		}
		counts = append(counts, res.RowsAffected)
	}
	b.batch = b.batch[:0]
	return counts, nil
}
