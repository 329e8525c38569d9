package tasktools

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/HendryAvila/taskmem/internal/cerr"
	"github.com/HendryAvila/taskmem/internal/response"
	"github.com/HendryAvila/taskmem/internal/tasks"
	"github.com/HendryAvila/taskmem/internal/toolutil"
)

// ─── TodoReadTool ────────────────────────────────────────────────────────────

// TodoReadTool handles todo_read.
type TodoReadTool struct{ d Deps }

func NewTodoReadTool(d Deps) *TodoReadTool { return &TodoReadTool{d: d} }

func (t *TodoReadTool) Definition() mcp.Tool {
	return mcp.NewTool("todo_read",
		mcp.WithDescription("Read the todo list of a task."),
		taskIDArg(),
		projectArg(),
	)
}

func (t *TodoReadTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	const op = "todo_read"
	projectID := t.d.Defaults.ProjectOf(ctx, req)
	taskID, err := requireString(req, "task_id")
	if err != nil {
		return toolutil.Fail(ctx, op, err, taskMeta(projectID, nil)), nil
	}
	todos, err := t.d.Store.GetTodos(ctx, projectID, taskID)
	if err != nil {
		return toolutil.Fail(ctx, op, err, map[string]any{"project_id": projectID, "task_id": taskID}), nil
	}
	return toolutil.Result(op, response.ListSuccess(op, todos, len(todos), 0, len(todos),
		fmt.Sprintf("Task has %d todos", len(todos)))), nil
}

// ─── TodoWriteTool ───────────────────────────────────────────────────────────

// TodoWriteTool handles todo_write. The whole list is replaced.
type TodoWriteTool struct{ d Deps }

func NewTodoWriteTool(d Deps) *TodoWriteTool { return &TodoWriteTool{d: d} }

func (t *TodoWriteTool) Definition() mcp.Tool {
	return mcp.NewTool("todo_write",
		mcp.WithDescription(
			"Replace the todo list of a task. Each item is {content, status?, priority?, id?}; status is "+
				"pending, in_progress, completed or cancelled, priority is low, medium or high. "+
				"When every item is completed or cancelled the response says so; call verify_task next.",
		),
		taskIDArg(),
		mcp.WithArray("todos",
			mcp.Required(),
			mcp.Description("The complete todo list"),
			mcp.Items(map[string]any{"type": "object"}),
		),
		mcp.WithString("notes", mcp.Description("Progress notes stored on the task")),
		operatorArg(),
		projectArg(),
	)
}

type todoWriteArgs struct {
	Todos []tasks.TodoItem `json:"todos"`
	Notes string           `json:"notes"`
}

func (t *TodoWriteTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	const op = "todo_write"
	projectID := t.d.Defaults.ProjectOf(ctx, req)
	taskID, err := requireString(req, "task_id")
	if err != nil {
		return toolutil.Fail(ctx, op, err, taskMeta(projectID, nil)), nil
	}
	meta := map[string]any{"project_id": projectID, "task_id": taskID}

	if !toolutil.Has(req, "todos") {
		return toolutil.Fail(ctx, op, cerr.Validation("'todos' is required"), meta), nil
	}
	var args todoWriteArgs
	if err := toolutil.Decode(req, &args); err != nil {
		return toolutil.Fail(ctx, op, err, meta), nil
	}
	res, err := t.d.Store.SetTodos(ctx, projectID, taskID, args.Todos, args.Notes, t.d.Defaults.OperatorOf(req))
	if err != nil {
		return toolutil.Fail(ctx, op, err, meta), nil
	}

	meta["all_completed"] = res.AllCompleted
	msg := fmt.Sprintf("Saved %d todos", len(res.Todos))
	if res.AllCompleted {
		msg += ". All todos are completed; call verify_task to finish the task"
	}
	return toolutil.Result(op, response.Success(op, res, msg, meta)), nil
}
