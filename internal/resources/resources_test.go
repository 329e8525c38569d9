package resources

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/HendryAvila/taskmem/internal/storage"
	"github.com/HendryAvila/taskmem/internal/tasks"
)

func readProjects(t *testing.T, h *Handler) mcp.TextResourceContents {
	t.Helper()
	req := mcp.ReadResourceRequest{}
	req.Params.URI = ProjectsURI
	contents, err := h.HandleProjects(context.Background(), req)
	require.NoError(t, err)
	require.Len(t, contents, 1)
	tc, ok := contents[0].(mcp.TextResourceContents)
	require.True(t, ok)
	return tc
}

func TestHandleProjects(t *testing.T) {
	db, err := storage.Open(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	store, err := tasks.New(db, tasks.DefaultConfig())
	require.NoError(t, err)

	ctx := context.Background()
	for _, p := range []string{"beta", "alpha", "beta"} {
		_, err := store.Create(ctx, p, tasks.TaskInput{Name: "task in " + p}, "tester")
		require.NoError(t, err)
	}

	tc := readProjects(t, NewHandler(store))
	assert.Equal(t, "application/json", tc.MIMEType)

	var idx ProjectsIndex
	require.NoError(t, json.Unmarshal([]byte(tc.Text), &idx))
	require.Equal(t, 2, idx.Count)
	assert.Equal(t, "alpha", idx.Projects[0].ProjectID)
	assert.Equal(t, 2, idx.Projects[1].TotalTasks)
}

type failingSource struct{}

func (failingSource) Projects(context.Context) ([]string, error) { return nil, errors.New("db closed") }
func (failingSource) Statistics(context.Context, string) (*tasks.Statistics, error) {
	return nil, nil
}

func TestHandleProjects_Error(t *testing.T) {
	tc := readProjects(t, NewHandler(failingSource{}))
	assert.Equal(t, "text/plain", tc.MIMEType)
	assert.Contains(t, tc.Text, "db closed")
}

func TestProjectsResource(t *testing.T) {
	r := NewHandler(failingSource{}).ProjectsResource()
	assert.Equal(t, ProjectsURI, r.URI)
}
