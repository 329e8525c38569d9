package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/HendryAvila/taskmem/internal/config"
	"github.com/HendryAvila/taskmem/internal/memory"
	"github.com/HendryAvila/taskmem/internal/resources"
	"github.com/HendryAvila/taskmem/internal/storage"
	"github.com/HendryAvila/taskmem/internal/tasks"
)

const project = "rest-proj"

func newTestServer(t *testing.T) *Server {
	t.Helper()
	db, err := storage.Open(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	taskStore, err := tasks.New(db, tasks.DefaultConfig())
	require.NoError(t, err)
	memStore, err := memory.New(db, memory.DefaultConfig(), taskStore)
	require.NoError(t, err)

	env := &config.Env{BaseEnv: config.BaseEnv{
		ProjectID: "default",
		Operator:  "api_user",
		HTTPHost:  "127.0.0.1",
		HTTPPort:  "0",
	}}
	return NewServer(env, taskStore, memStore, nil)
}

func newTestHandler(t *testing.T) http.Handler {
	t.Helper()
	return newTestServer(t).Handler()
}

func do(t *testing.T, h http.Handler, method, path string, body any, headers ...string) *httptest.ResponseRecorder {
	t.Helper()
	var rdr *bytes.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		rdr = bytes.NewReader(b)
	} else {
		rdr = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, rdr)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(ProjectHeader, project)
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

type errBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func tasksPath(suffix string) string { return "/api/v1/" + project + "/tasks" + suffix }

func createTask(t *testing.T, h http.Handler, name string) tasks.Task {
	t.Helper()
	rec := do(t, h, http.MethodPost, tasksPath(""), map[string]any{"name": name, "description": "about " + name})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	return decode[tasks.Task](t, rec)
}

func TestHealth(t *testing.T) {
	h := newTestHandler(t)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestMetricsEndpoint(t *testing.T) {
	h := newTestHandler(t)
	createTask(t, h, "A")

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "taskmem_http_requests_total")
}

func TestProjectGuard(t *testing.T) {
	h := newTestHandler(t)

	rec := do(t, h, http.MethodGet, tasksPath(""), nil, ProjectHeader, "someone-else")
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "permission_denied", decode[errBody](t, rec).Code)

	req := httptest.NewRequest(http.MethodGet, tasksPath(""), nil)
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestCreateAndGetTask(t *testing.T) {
	h := newTestHandler(t)
	created := createTask(t, h, "A")
	assert.Equal(t, project, created.ProjectID)

	rec := do(t, h, http.MethodGet, tasksPath("/"+created.ID), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, `"`+*created.CurrentVersionID+`"`, rec.Header().Get("ETag"))

	rec = do(t, h, http.MethodGet, tasksPath("/0123456789abcdef01234567"), nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(t, h, http.MethodGet, tasksPath("/not-an-id"), nil)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestCreateTask_InvalidBody(t *testing.T) {
	h := newTestHandler(t)
	req := httptest.NewRequest(http.MethodPost, tasksPath(""), strings.NewReader("{"))
	req.Header.Set(ProjectHeader, project)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	rec = do(t, h, http.MethodPost, tasksPath(""), map[string]any{"name": "A", "summary": "x"})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Contains(t, decode[errBody](t, rec).Message, "Task summary must contain at least 30 characters")
}

func TestListTasks(t *testing.T) {
	h := newTestHandler(t)
	createTask(t, h, "A")
	createTask(t, h, "B")

	rec := do(t, h, http.MethodGet, tasksPath("?limit=1"), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	list := decode[taskList](t, rec)
	assert.Equal(t, 2, list.Total)
	require.Len(t, list.Tasks, 1)
	assert.Equal(t, "A", list.Tasks[0].Name)

	rec = do(t, h, http.MethodGet, tasksPath("?limit=5000"), nil)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Contains(t, decode[errBody](t, rec).Message, "limit must be at most 1000")
}

func TestPatchTask_IfMatch(t *testing.T) {
	h := newTestHandler(t)
	task := createTask(t, h, "A")
	etag := `"` + *task.CurrentVersionID + `"`

	rec := do(t, h, http.MethodPatch, tasksPath("/"+task.ID), map[string]any{"notes": "n1"}, "If-Match", etag)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, 2, decode[tasks.Task](t, rec).VersionNumber)

	rec = do(t, h, http.MethodPatch, tasksPath("/"+task.ID), map[string]any{"notes": "n2"}, "If-Match", etag)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "aborted", decode[errBody](t, rec).Code)
}

func TestBulk(t *testing.T) {
	h := newTestHandler(t)

	rec := do(t, h, http.MethodPost, tasksPath("/bulk"), map[string]any{
		"update_mode": "append",
		"tasks": []map[string]any{
			{"name": "B", "dependencies": []string{"A"}},
			{"name": "A"},
		},
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	res := decode[tasks.BulkResult](t, rec)
	assert.Len(t, res.CreatedTasks, 2)
	assert.Equal(t, 2, res.Summary.TotalInProject)

	rec = do(t, h, http.MethodPost, tasksPath("/bulk"), map[string]any{
		"update_mode": "merge",
		"tasks":       []map[string]any{{"name": "C"}},
	})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Contains(t, decode[errBody](t, rec).Message, "update_mode must be one of")

	rec = do(t, h, http.MethodPost, tasksPath("/bulk"), map[string]any{
		"update_mode": "append",
		"tasks":       []map[string]any{{"name": "C", "dependencies": []string{"ghost"}}},
	})
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestVerifyTodosVersionsRevert(t *testing.T) {
	h := newTestHandler(t)
	task := createTask(t, h, "A")
	first := *task.CurrentVersionID

	rec := do(t, h, http.MethodPut, tasksPath("/"+task.ID+"/todos"), map[string]any{
		"todos": []map[string]any{{"content": "step one", "status": "completed"}},
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.True(t, decode[tasks.TodoResult](t, rec).AllCompleted)

	rec = do(t, h, http.MethodGet, tasksPath("/"+task.ID+"/todos"), nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = do(t, h, http.MethodPost, tasksPath("/"+task.ID+"/verify"), map[string]any{"summary": "short"})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	rec = do(t, h, http.MethodPost, tasksPath("/"+task.ID+"/verify"), map[string]any{
		"summary": "Implemented the feature end to end and covered it with tests.", "score": 95,
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.True(t, decode[tasks.VerifyResult](t, rec).Completed)

	rec = do(t, h, http.MethodGet, tasksPath("/"+task.ID+"/versions"), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[versionList](t, rec).Versions, 3)

	rec = do(t, h, http.MethodPost, tasksPath("/"+task.ID+"/revert"), map[string]any{"version_id": first})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, 4, decode[tasks.Task](t, rec).VersionNumber)

	rec = do(t, h, http.MethodPost, tasksPath("/"+task.ID+"/revert"), map[string]any{"version_id": "xyz"})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestGraphStatisticsDeletePurge(t *testing.T) {
	h := newTestHandler(t)
	a := createTask(t, h, "A")
	createTask(t, h, "B")

	rec := do(t, h, http.MethodGet, tasksPath("/"+a.ID+"/graph"), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, decode[tasks.DependencyGraph](t, rec).CanStart)

	rec = do(t, h, http.MethodGet, tasksPath("/statistics"), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 2, decode[tasks.Statistics](t, rec).TotalTasks)

	rec = do(t, h, http.MethodDelete, tasksPath("/"+a.ID), nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = do(t, h, http.MethodDelete, tasksPath(""), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, decode[tasks.ProjectPurge](t, rec).DeletedTasks)
}

func TestMemoriesCRUD(t *testing.T) {
	h := newTestHandler(t)
	base := "/api/v1/" + project + "/memories"

	rec := do(t, h, http.MethodPost, base, map[string]any{"title": "Lesson", "raw_text": "Use WAL mode.", "tags": []string{"sqlite"}})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	m := decode[memory.Memory](t, rec)

	rec = do(t, h, http.MethodPost, base, map[string]any{"raw_text": "missing title"})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Contains(t, decode[errBody](t, rec).Message, "title is required")

	rec = do(t, h, http.MethodGet, base+"?q=WAL&tags=sqlite,other", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	list := decode[memoryList](t, rec)
	assert.Equal(t, 1, list.Total)

	rec = do(t, h, http.MethodPatch, base+"/"+m.ID, map[string]any{"outcome": "fewer locks"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "fewer locks", decode[memory.Memory](t, rec).Outcome)

	rec = do(t, h, http.MethodDelete, base+"/"+m.ID, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = do(t, h, http.MethodGet, base+"/"+m.ID, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestListProjects(t *testing.T) {
	h := newTestHandler(t)
	createTask(t, h, "A")

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/projects", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	idx := decode[resources.ProjectsIndex](t, rec)
	require.Equal(t, 1, idx.Count)
	assert.Equal(t, project, idx.Projects[0].ProjectID)
}

func TestUnknownRoute(t *testing.T) {
	h := newTestHandler(t)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/nope", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
