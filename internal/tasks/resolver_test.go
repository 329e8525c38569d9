package tasks_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/HendryAvila/taskmem/internal/cerr"
	"github.com/HendryAvila/taskmem/internal/tasks"
)

func TestDependencies_ByNameAndID(t *testing.T) {
	s := newTestStore(t)
	a := mustCreate(t, s, "schema")
	b := mustCreate(t, s, "api")

	c := mustCreate(t, s, "ui", "schema", b.ID, "  schema  ")
	assert.Equal(t, []string{a.ID, b.ID}, c.Dependencies)
}

func TestDependencies_OldestNameWins(t *testing.T) {
	s := newTestStore(t)
	first := mustCreate(t, s, "dup")
	mustCreate(t, s, "dup")

	c := mustCreate(t, s, "consumer", "dup")
	assert.Equal(t, []string{first.ID}, c.Dependencies)
}

func TestDependencies_Unresolvable(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	gone := mustCreate(t, s, "gone")
	_, err := s.Delete(ctx, project, gone.ID, "")
	require.NoError(t, err)

	cases := []struct {
		name string
		deps []string
		want string
	}{
		{"unknown name", []string{"missing"}, "Task name 'missing' not found"},
		{"deleted name", []string{"gone"}, "Task name 'gone' only matches deleted tasks"},
		{"deleted id", []string{gone.ID}, "has been deleted"},
		{"unknown id", []string{"0123456789abcdef01234567"}, "Task ID 0123456789abcdef01234567 not found"},
		{"empty entry", []string{" "}, "Dependency entry is empty"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := s.Create(ctx, project, tasks.TaskInput{Name: "x", Dependencies: tc.deps}, "")
			require.Error(t, err)
			assert.True(t, cerr.IsCode(err, cerr.InvalidArgument))
			assert.Contains(t, cerr.Message(err), tc.want)
		})
	}

	n, err := s.Count(ctx, project, "")
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestDependencies_OtherProjectInvisible(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	other, err := s.Create(ctx, "elsewhere", tasks.TaskInput{Name: "shared"}, "")
	require.NoError(t, err)

	_, err = s.Create(ctx, project, tasks.TaskInput{Name: "x", Dependencies: []string{other.ID}}, "")
	assert.True(t, cerr.IsCode(err, cerr.InvalidArgument))

	_, err = s.Create(ctx, project, tasks.TaskInput{Name: "y", Dependencies: []string{"shared"}}, "")
	assert.True(t, cerr.IsCode(err, cerr.InvalidArgument))
}
