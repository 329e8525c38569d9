package tasks_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/HendryAvila/taskmem/internal/storage"
	"github.com/HendryAvila/taskmem/internal/tasks"
)

const project = "proj-a"

// newTestStore creates a Store backed by a temp directory for isolation.
func newTestStore(t *testing.T) *tasks.Store {
	t.Helper()
	db, err := storage.Open(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	s, err := tasks.New(db, tasks.DefaultConfig())
	require.NoError(t, err)
	return s
}

func mustCreate(t *testing.T, s *tasks.Store, name string, deps ...string) *tasks.Task {
	t.Helper()
	task, err := s.Create(context.Background(), project, tasks.TaskInput{
		Name:         name,
		Description:  "Description of " + name,
		Dependencies: deps,
	}, "tester")
	require.NoError(t, err)
	return task
}

func ptr[T any](v T) *T { return &v }

const longSummary = "Implemented the feature end to end and covered it with tests."
