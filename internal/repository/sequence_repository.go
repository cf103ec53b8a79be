package repository

import (
	"context"
	"database/sql"
)

// Sequencer hands out strictly increasing numbers per name.
type Sequencer interface {
	Next(ctx context.Context, name string) (int64, error)
}

// SequenceRepo hands out per-name monotonic numbers from the counters
// table. Each call is one statement; MySQL's row lock on the counter makes
// concurrent callers receive distinct values without a table lock.
type SequenceRepo struct {
	db *sql.DB
}

func NewSequenceRepo(db *sql.DB) *SequenceRepo { return &SequenceRepo{db: db} }

const nextSeqSQL = `INSERT INTO counters (name, seq) VALUES (?, LAST_INSERT_ID(1))
ON DUPLICATE KEY UPDATE seq = LAST_INSERT_ID(seq + 1)`

// Next increments the named counter and returns the new value.
func (r *SequenceRepo) Next(ctx context.Context, name string) (int64, error) {
	res, err := r.db.ExecContext(ctx, nextSeqSQL, name)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}
