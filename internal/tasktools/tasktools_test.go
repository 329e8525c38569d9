package tasktools

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/HendryAvila/taskmem/internal/storage"
	"github.com/HendryAvila/taskmem/internal/tasks"
	"github.com/HendryAvila/taskmem/internal/toolutil"
)

// ─── Test helpers ────────────────────────────────────────────────────────────

const project = "tools-proj"

func newTestDeps(t *testing.T) Deps {
	t.Helper()
	db, err := storage.Open(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	store, err := tasks.New(db, tasks.DefaultConfig())
	require.NoError(t, err)
	return Deps{Store: store, Defaults: toolutil.Defaults{ProjectID: project, Operator: "mcp_tool"}}
}

// makeReq builds a mcp.CallToolRequest with the given arguments.
func makeReq(args map[string]interface{}) mcp.CallToolRequest {
	req := mcp.CallToolRequest{}
	req.Params.Arguments = args
	return req
}

// resultText extracts the text content from a tool result.
func resultText(r *mcp.CallToolResult) string {
	if r == nil {
		return ""
	}
	for _, c := range r.Content {
		if tc, ok := c.(mcp.TextContent); ok {
			return tc.Text
		}
	}
	return ""
}

type envelope struct {
	Success  bool            `json:"success"`
	Data     json.RawMessage `json:"data"`
	Message  *string         `json:"message"`
	Metadata map[string]any  `json:"metadata"`
	Error    *struct {
		Message string `json:"message"`
		Code    string `json:"code"`
	} `json:"error"`
}

func call(t *testing.T, tool Tool, args map[string]interface{}) (*mcp.CallToolResult, envelope) {
	t.Helper()
	res, err := tool.Handle(context.Background(), makeReq(args))
	require.NoError(t, err)
	var env envelope
	require.NoError(t, json.Unmarshal([]byte(resultText(res)), &env))
	return res, env
}

func createTask(t *testing.T, d Deps, name string, deps ...string) tasks.Task {
	t.Helper()
	args := map[string]interface{}{"name": name, "description": "Description of " + name}
	if len(deps) > 0 {
		list := make([]interface{}, len(deps))
		for i, dep := range deps {
			list[i] = dep
		}
		args["dependencies"] = list
	}
	res, env := call(t, NewCreateTaskTool(d), args)
	require.False(t, res.IsError, resultText(res))
	var task tasks.Task
	require.NoError(t, json.Unmarshal(env.Data, &task))
	return task
}

const summary = "Implemented the feature end to end and covered it with tests."

// ─── Definitions ─────────────────────────────────────────────────────────────

func TestAll_UniqueNames(t *testing.T) {
	d := newTestDeps(t)
	seen := map[string]bool{}
	for _, tool := range All(d) {
		name := tool.Definition().Name
		assert.False(t, seen[name], "duplicate tool %s", name)
		seen[name] = true
	}
	for _, want := range []string{"create_task", "split_tasks", "verify_task", "todo_write", "revert_task"} {
		assert.True(t, seen[want], want)
	}
}

func TestSplitTasks_Definition(t *testing.T) {
	def := NewSplitTasksTool(newTestDeps(t)).Definition()
	assert.Contains(t, def.InputSchema.Required, "tasks")
	assert.Contains(t, def.InputSchema.Required, "update_mode")
}

// ─── Task CRUD ───────────────────────────────────────────────────────────────

func TestCreateTask(t *testing.T) {
	d := newTestDeps(t)
	res, env := call(t, NewCreateTaskTool(d), map[string]interface{}{
		"name":        "Write parser",
		"description": "Parse the input format",
	})
	require.False(t, res.IsError)
	assert.True(t, env.Success)
	assert.Equal(t, "Successfully created task: Write parser", *env.Message)
	assert.Equal(t, project, env.Metadata["project_id"])
	assert.Equal(t, "pending", env.Metadata["task_status"])
}

func TestCreateTask_ValidationError(t *testing.T) {
	d := newTestDeps(t)
	res, env := call(t, NewCreateTaskTool(d), map[string]interface{}{"name": "  "})
	assert.True(t, res.IsError)
	assert.False(t, env.Success)
	require.NotNil(t, env.Error)
	assert.Equal(t, "VALIDATION_ERROR", env.Error.Code)
	assert.Nil(t, env.Message)
}

func TestCreateTask_BadDependencyEntry(t *testing.T) {
	d := newTestDeps(t)
	res, env := call(t, NewCreateTaskTool(d), map[string]interface{}{
		"name":         "x",
		"dependencies": []interface{}{float64(3)},
	})
	assert.True(t, res.IsError)
	assert.Equal(t, "VALIDATION_ERROR", env.Error.Code)
}

func TestCreateTask_DependencyByName(t *testing.T) {
	d := newTestDeps(t)
	a := createTask(t, d, "A")
	b := createTask(t, d, "B", "A")
	assert.Equal(t, []string{a.ID}, b.Dependencies)
}

func TestProjectArgument(t *testing.T) {
	d := newTestDeps(t)
	res, env := call(t, NewCreateTaskTool(d), map[string]interface{}{
		"name": "elsewhere", "project_id": "other",
	})
	require.False(t, res.IsError)
	assert.Equal(t, "other", env.Metadata["project_id"])

	res, _ = call(t, NewStatisticsTool(d), map[string]interface{}{})
	require.False(t, res.IsError)
	stats, err := d.Store.Statistics(context.Background(), project)
	require.NoError(t, err)
	assert.Zero(t, stats.TotalTasks)
}

func TestAcquireTask(t *testing.T) {
	d := newTestDeps(t)
	task := createTask(t, d, "A")

	res, env := call(t, NewAcquireTaskTool(d), map[string]interface{}{"task_id": task.ID})
	require.False(t, res.IsError, resultText(res))
	var got tasks.Task
	require.NoError(t, json.Unmarshal(env.Data, &got))
	assert.Equal(t, tasks.StatusInProgress, got.Status)
	assert.Equal(t, "Task acquired and in progress", got.Notes)
}

func TestGetTask_NotFound(t *testing.T) {
	d := newTestDeps(t)
	res, env := call(t, NewGetTaskTool(d), map[string]interface{}{"task_id": "0123456789abcdef01234567"})
	assert.True(t, res.IsError)
	assert.Equal(t, "TASK_NOT_FOUND", env.Error.Code)
}

func TestGetTask_MissingID(t *testing.T) {
	d := newTestDeps(t)
	res, env := call(t, NewGetTaskTool(d), map[string]interface{}{})
	assert.True(t, res.IsError)
	assert.Equal(t, "VALIDATION_ERROR", env.Error.Code)
}

func TestListTasks(t *testing.T) {
	d := newTestDeps(t)
	for _, n := range []string{"A", "B", "C"} {
		createTask(t, d, n)
	}

	res, env := call(t, NewListTasksTool(d), map[string]interface{}{"limit": float64(2)})
	require.False(t, res.IsError)
	var rows []tasks.TaskSummary
	require.NoError(t, json.Unmarshal(env.Data, &rows))
	assert.Len(t, rows, 2)
	assert.Equal(t, "A", rows[0].Name)
	assert.EqualValues(t, 3, env.Metadata["total_count"])
	assert.Equal(t, true, env.Metadata["pagination"].(map[string]any)["has_more"])

	res, env = call(t, NewListTasksTool(d), map[string]interface{}{"limit": float64(0)})
	assert.True(t, res.IsError)
	assert.Equal(t, "VALIDATION_ERROR", env.Error.Code)
}

func TestUpdateTask_IfMatch(t *testing.T) {
	d := newTestDeps(t)
	task := createTask(t, d, "A")

	res, env := call(t, NewUpdateTaskTool(d), map[string]interface{}{
		"task_id":  task.ID,
		"notes":    "first",
		"if_match": *task.CurrentVersionID,
	})
	require.False(t, res.IsError, resultText(res))
	assert.EqualValues(t, 2, env.Metadata["version_number"])

	res, env = call(t, NewUpdateTaskTool(d), map[string]interface{}{
		"task_id":  task.ID,
		"notes":    "stale",
		"if_match": *task.CurrentVersionID,
	})
	assert.True(t, res.IsError)
	assert.Equal(t, "VERSION_CONFLICT", env.Error.Code)
}

func TestUpdateTask_CompletedRejected(t *testing.T) {
	d := newTestDeps(t)
	task := createTask(t, d, "A")
	res, env := call(t, NewUpdateTaskTool(d), map[string]interface{}{"task_id": task.ID, "status": "completed"})
	assert.True(t, res.IsError)
	assert.Equal(t, "VALIDATION_ERROR", env.Error.Code)
}

func TestDeleteTask(t *testing.T) {
	d := newTestDeps(t)
	task := createTask(t, d, "A")

	res, env := call(t, NewDeleteTaskTool(d), map[string]interface{}{"task_id": task.ID})
	require.False(t, res.IsError)
	assert.Equal(t, "soft_delete", env.Metadata["deletion_type"])

	res, env = call(t, NewGetTaskTool(d), map[string]interface{}{"task_id": task.ID})
	assert.True(t, res.IsError)
	assert.Equal(t, "TASK_NOT_FOUND", env.Error.Code)
}

// ─── split_tasks ─────────────────────────────────────────────────────────────

func TestSplitTasks_Append(t *testing.T) {
	d := newTestDeps(t)
	res, env := call(t, NewSplitTasksTool(d), map[string]interface{}{
		"update_mode": "append",
		"tasks": []interface{}{
			map[string]interface{}{"name": "B", "description": "second", "dependencies": []interface{}{"A"}},
			map[string]interface{}{"name": "A", "description": "first"},
		},
		"global_analysis_result": "shared analysis",
	})
	require.False(t, res.IsError, resultText(res))
	assert.Equal(t, "Task splitting completed using append mode", *env.Message)
	assert.Equal(t, "bulk", env.Metadata["operation_type"])

	var data struct {
		Created  []tasks.Task `json:"created"`
		AllTasks []tasks.Task `json:"all_tasks"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &data))
	require.Len(t, data.Created, 2)
	a, b := data.Created[0], data.Created[1]
	assert.Equal(t, "A", a.Name)
	assert.Equal(t, []string{a.ID}, b.Dependencies)
	assert.Equal(t, "shared analysis", b.Summary)
	assert.Len(t, data.AllTasks, 2)
}

func TestSplitTasks_JSONStringInput(t *testing.T) {
	d := newTestDeps(t)
	res, _ := call(t, NewSplitTasksTool(d), map[string]interface{}{
		"update_mode": "append",
		"tasks":       `[{"name":"A","description":"from a string"}]`,
	})
	require.False(t, res.IsError, resultText(res))
}

func TestSplitTasks_Errors(t *testing.T) {
	d := newTestDeps(t)

	res, env := call(t, NewSplitTasksTool(d), map[string]interface{}{
		"update_mode": "replace",
		"tasks":       []interface{}{map[string]interface{}{"name": "A"}},
	})
	assert.True(t, res.IsError)
	assert.Equal(t, "VALIDATION_ERROR", env.Error.Code)

	res, env = call(t, NewSplitTasksTool(d), map[string]interface{}{
		"update_mode": "append",
		"tasks":       "not json",
	})
	assert.True(t, res.IsError)
	assert.Equal(t, "VALIDATION_ERROR", env.Error.Code)

	res, env = call(t, NewSplitTasksTool(d), map[string]interface{}{
		"update_mode": "append",
		"tasks":       []interface{}{map[string]interface{}{"name": "A", "dependencies": []interface{}{"ghost"}}},
	})
	assert.True(t, res.IsError)
	assert.Equal(t, "VALIDATION_ERROR", env.Error.Code)
	assert.Contains(t, env.Error.Message, "Dependencies not found: ghost")
}

func TestSplitTasks_ClearAllBackup(t *testing.T) {
	d := newTestDeps(t)
	createTask(t, d, "old")

	res, env := call(t, NewSplitTasksTool(d), map[string]interface{}{
		"update_mode": "clearAllTasks",
		"tasks":       []interface{}{map[string]interface{}{"name": "new"}},
	})
	require.False(t, res.IsError, resultText(res))
	var data struct {
		BackupInfo *tasks.Backup `json:"backup_info"`
		AllTasks   []tasks.Task  `json:"all_tasks"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &data))
	require.NotNil(t, data.BackupInfo)
	assert.Equal(t, 1, data.BackupInfo.TaskCount)
	require.Len(t, data.AllTasks, 1)
	assert.Equal(t, "new", data.AllTasks[0].Name)
}

// ─── verify / todos ──────────────────────────────────────────────────────────

func TestVerifyTask(t *testing.T) {
	d := newTestDeps(t)
	task := createTask(t, d, "A")

	res, env := call(t, NewVerifyTaskTool(d), map[string]interface{}{
		"task_id": task.ID, "summary": "missing edge cases", "score": float64(50),
	})
	require.False(t, res.IsError, resultText(res))
	assert.Equal(t, "in_progress", env.Metadata["task_status"])
	assert.Contains(t, *env.Message, "needs improvement")

	res, env = call(t, NewVerifyTaskTool(d), map[string]interface{}{
		"task_id": task.ID, "summary": summary, "score": float64(80),
	})
	require.False(t, res.IsError, resultText(res))
	assert.Equal(t, "completed", env.Metadata["task_status"])
	assert.Contains(t, *env.Message, "create_memory")

	res, env = call(t, NewVerifyTaskTool(d), map[string]interface{}{
		"task_id": task.ID, "summary": summary, "score": float64(90),
	})
	assert.True(t, res.IsError)
	assert.Equal(t, "INVALID_STATE", env.Error.Code)
}

func TestVerifyTask_ScoreRequired(t *testing.T) {
	d := newTestDeps(t)
	task := createTask(t, d, "A")
	res, env := call(t, NewVerifyTaskTool(d), map[string]interface{}{"task_id": task.ID, "summary": summary})
	assert.True(t, res.IsError)
	assert.Equal(t, "VALIDATION_ERROR", env.Error.Code)
}

func TestVerifyTask_ScoreMustBeWhole(t *testing.T) {
	d := newTestDeps(t)
	task := createTask(t, d, "A")

	for _, score := range []interface{}{100.7, -0.5, "90"} {
		res, env := call(t, NewVerifyTaskTool(d), map[string]interface{}{
			"task_id": task.ID, "summary": summary, "score": score,
		})
		assert.True(t, res.IsError, "score %v", score)
		assert.Equal(t, "VALIDATION_ERROR", env.Error.Code, "score %v", score)
	}

	got, err := d.Store.Get(context.Background(), project, task.ID)
	require.NoError(t, err)
	assert.Equal(t, tasks.StatusPending, got.Status)
	assert.Equal(t, 1, got.VersionNumber)
}

func TestVerifyTask_CompletedWithShortSummary(t *testing.T) {
	d := newTestDeps(t)
	task := createTask(t, d, "A")
	res, _ := call(t, NewVerifyTaskTool(d), map[string]interface{}{
		"task_id": task.ID, "summary": summary, "score": float64(90),
	})
	require.False(t, res.IsError, resultText(res))

	res, env := call(t, NewVerifyTaskTool(d), map[string]interface{}{
		"task_id": task.ID, "summary": "short", "score": float64(90),
	})
	assert.True(t, res.IsError)
	assert.Equal(t, "INVALID_STATE", env.Error.Code)
}

func TestTodoWriteAndRead(t *testing.T) {
	d := newTestDeps(t)
	task := createTask(t, d, "A")

	res, env := call(t, NewTodoWriteTool(d), map[string]interface{}{
		"task_id": task.ID,
		"todos": []interface{}{
			map[string]interface{}{"content": "write code", "status": "completed"},
			map[string]interface{}{"content": "write tests"},
		},
		"notes": "halfway",
	})
	require.False(t, res.IsError, resultText(res))
	assert.Equal(t, false, env.Metadata["all_completed"])

	res, env = call(t, NewTodoReadTool(d), map[string]interface{}{"task_id": task.ID})
	require.False(t, res.IsError)
	var todos []tasks.TodoItem
	require.NoError(t, json.Unmarshal(env.Data, &todos))
	require.Len(t, todos, 2)
	assert.Equal(t, "todo_2", todos[1].ID)
	assert.Equal(t, "pending", todos[1].Status)

	res, env = call(t, NewTodoWriteTool(d), map[string]interface{}{
		"task_id": task.ID,
		"todos": []interface{}{
			map[string]interface{}{"content": "write code", "status": "completed"},
			map[string]interface{}{"content": "write tests", "status": "cancelled"},
		},
	})
	require.False(t, res.IsError)
	assert.Equal(t, true, env.Metadata["all_completed"])
	assert.Contains(t, *env.Message, "verify_task")
}

func TestTodoWrite_InvalidItem(t *testing.T) {
	d := newTestDeps(t)
	task := createTask(t, d, "A")
	res, env := call(t, NewTodoWriteTool(d), map[string]interface{}{
		"task_id": task.ID,
		"todos":   []interface{}{map[string]interface{}{"content": ""}},
	})
	assert.True(t, res.IsError)
	assert.Equal(t, "VALIDATION_ERROR", env.Error.Code)
}

// ─── versions / insight ──────────────────────────────────────────────────────

func TestVersionsAndRevert(t *testing.T) {
	d := newTestDeps(t)
	task := createTask(t, d, "A")
	original := *task.CurrentVersionID

	res, _ := call(t, NewUpdateTaskTool(d), map[string]interface{}{"task_id": task.ID, "description": "changed"})
	require.False(t, res.IsError)

	res, env := call(t, NewListVersionsTool(d), map[string]interface{}{"task_id": task.ID})
	require.False(t, res.IsError)
	var versions []tasks.TaskVersion
	require.NoError(t, json.Unmarshal(env.Data, &versions))
	require.Len(t, versions, 2)
	assert.Equal(t, 2, versions[0].VersionNumber)

	res, env = call(t, NewRevertTaskTool(d), map[string]interface{}{"task_id": task.ID, "version_id": original})
	require.False(t, res.IsError, resultText(res))
	var reverted tasks.Task
	require.NoError(t, json.Unmarshal(env.Data, &reverted))
	assert.Equal(t, "Description of A", reverted.Description)
	assert.Equal(t, 3, reverted.VersionNumber)
}

func TestDependencyGraphAndStatistics(t *testing.T) {
	d := newTestDeps(t)
	a := createTask(t, d, "A")
	b := createTask(t, d, "B", a.ID)

	res, env := call(t, NewDependencyGraphTool(d), map[string]interface{}{"task_id": b.ID})
	require.False(t, res.IsError)
	var g tasks.DependencyGraph
	require.NoError(t, json.Unmarshal(env.Data, &g))
	assert.False(t, g.CanStart)
	require.Len(t, g.Dependencies, 1)
	assert.Equal(t, "A", g.Dependencies[0].Name)

	res, env = call(t, NewStatisticsTool(d), map[string]interface{}{})
	require.False(t, res.IsError)
	var stats tasks.Statistics
	require.NoError(t, json.Unmarshal(env.Data, &stats))
	assert.Equal(t, 2, stats.TotalTasks)
	assert.Equal(t, 2, stats.Pending)
}
