package tasks_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDependencyGraph(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	a := mustCreate(t, s, "a")
	b := mustCreate(t, s, "b", "a")
	c := mustCreate(t, s, "c", "a")

	g, err := s.DependencyGraph(ctx, project, a.ID)
	require.NoError(t, err)
	assert.True(t, g.CanStart)
	assert.Empty(t, g.Dependencies)
	require.Len(t, g.Dependents, 2)
	assert.Equal(t, b.ID, g.Dependents[0].ID)
	assert.Equal(t, c.ID, g.Dependents[1].ID)

	g, err = s.DependencyGraph(ctx, project, b.ID)
	require.NoError(t, err)
	assert.False(t, g.CanStart)
	require.Len(t, g.Dependencies, 1)
	assert.Equal(t, "a", g.Dependencies[0].Name)

	_, err = s.Verify(ctx, project, a.ID, longSummary, 95, "")
	require.NoError(t, err)

	g, err = s.DependencyGraph(ctx, project, b.ID)
	require.NoError(t, err)
	assert.True(t, g.CanStart)
}

func TestDependencyGraph_DeletedDependencyBlocks(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	a := mustCreate(t, s, "a")
	b := mustCreate(t, s, "b", a.ID)

	_, err := s.Delete(ctx, project, a.ID, "")
	require.NoError(t, err)

	g, err := s.DependencyGraph(ctx, project, b.ID)
	require.NoError(t, err)
	assert.False(t, g.CanStart)
	assert.Empty(t, g.Dependencies)
}
