package memory

import (
	"context"
	"database/sql"
	"strings"
)

// DB exposes the internal *sql.DB for test helpers in memory_test.
// This file only compiles during `go test`.
func (s *Store) DB() *sql.DB {
	return s.db
}

// FailFTS makes every query against the FTS index fail.
func (s *Store) FailFTS(err error) {
	s.hooks.query = func(ctx context.Context, db queryer, query string, args ...any) (*sql.Rows, error) {
		if strings.Contains(query, "memories_fts") {
			return nil, err
		}
		return db.QueryContext(ctx, query, args...)
	}
}

var SanitizeFTS = sanitizeFTS
