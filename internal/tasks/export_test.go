package tasks

import (
	"context"
	"database/sql"
	"time"
)

// DB exposes the internal *sql.DB for test helpers in tasks_test.
func (s *Store) DB() *sql.DB {
	return s.db
}

// ExecHook intercepts every statement the store executes. run executes
// extra SQL on the same handle, which is the open transaction when there
// is one. A non-nil error replaces the statement's result.
type ExecHook func(query string, run func(query string, args ...any) (sql.Result, error)) error

func (s *Store) SetExecHook(h ExecHook) {
	s.hooks.exec = func(ctx context.Context, db execer, query string, args ...any) (sql.Result, error) {
		run := func(q string, a ...any) (sql.Result, error) { return db.ExecContext(ctx, q, a...) }
		if err := h(query, run); err != nil {
			return nil, err
		}
		return db.ExecContext(ctx, query, args...)
	}
}

// SetTimeNow swaps the clock and returns a restore func.
func SetTimeNow(fn func() time.Time) func() {
	old := timeNow
	timeNow = fn
	return func() { timeNow = old }
}
