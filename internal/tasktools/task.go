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

// ─── CreateTaskTool ──────────────────────────────────────────────────────────

// CreateTaskTool handles the create_task MCP tool.
type CreateTaskTool struct{ d Deps }

func NewCreateTaskTool(d Deps) *CreateTaskTool { return &CreateTaskTool{d: d} }

// Definition returns the MCP tool definition for create_task.
func (t *CreateTaskTool) Definition() mcp.Tool {
	return mcp.NewTool("create_task",
		mcp.WithDescription(
			"Create a new task in the project. Dependencies may be task IDs or exact task names; "+
				"every dependency must resolve to an active task or the call fails.",
		),
		mcp.WithString("name", mcp.Required(), mcp.Description("Short task name (max 100 characters)")),
		mcp.WithString("description", mcp.Description("What the task is about (max 5000 characters)")),
		mcp.WithString("notes", mcp.Description("Free-form notes")),
		mcp.WithString("implementation_guide", mcp.Description("How to implement the task")),
		mcp.WithString("verification_criteria", mcp.Description("How to tell the task is done")),
		stringList("dependencies", "Task IDs or names this task depends on"),
		relatedFilesArg(),
		operatorArg(),
		projectArg(),
	)
}

// Handle processes the create_task tool call.
func (t *CreateTaskTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	const op = "create_task"
	projectID := t.d.Defaults.ProjectOf(ctx, req)

	if err := checkDependencyArg(req); err != nil {
		return toolutil.Fail(ctx, op, err, taskMeta(projectID, nil)), nil
	}
	var in tasks.TaskInput
	if err := toolutil.Decode(req, &in); err != nil {
		return toolutil.Fail(ctx, op, err, taskMeta(projectID, nil)), nil
	}
	task, err := t.d.Store.Create(ctx, projectID, in, t.d.Defaults.OperatorOf(req))
	if err != nil {
		return toolutil.Fail(ctx, op, err, taskMeta(projectID, nil)), nil
	}
	return toolutil.Result(op, response.Success(op, task,
		fmt.Sprintf("Successfully created task: %s", task.Name), taskMeta(projectID, task))), nil
}

// ─── AcquireTaskTool ─────────────────────────────────────────────────────────

// AcquireTaskTool handles acquire_task: it returns the full task and moves
// it to in_progress.
type AcquireTaskTool struct{ d Deps }

func NewAcquireTaskTool(d Deps) *AcquireTaskTool { return &AcquireTaskTool{d: d} }

func (t *AcquireTaskTool) Definition() mcp.Tool {
	return mcp.NewTool("acquire_task",
		mcp.WithDescription(
			"Acquire a task before working on it. Returns the full task including its implementation guide "+
				"and verification criteria, and sets its status to in_progress.",
		),
		taskIDArg(),
		projectArg(),
	)
}

func (t *AcquireTaskTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	const op = "acquire_task"
	projectID := t.d.Defaults.ProjectOf(ctx, req)
	taskID, err := requireString(req, "task_id")
	if err != nil {
		return toolutil.Fail(ctx, op, err, taskMeta(projectID, nil)), nil
	}

	status := tasks.StatusInProgress
	notes := "Task acquired and in progress"
	task, err := t.d.Store.Update(ctx, projectID, taskID, tasks.TaskUpdate{Status: &status, Notes: &notes},
		tasks.UpdateOptions{ChangedBy: "system"})
	if err != nil {
		return toolutil.Fail(ctx, op, err, map[string]any{"project_id": projectID, "task_id": taskID}), nil
	}
	return toolutil.Result(op, response.Success(op, task,
		fmt.Sprintf("Task %s acquired", task.Name), taskMeta(projectID, task))), nil
}

// ─── GetTaskTool ─────────────────────────────────────────────────────────────

// GetTaskTool handles get_task, a read with no side effects.
type GetTaskTool struct{ d Deps }

func NewGetTaskTool(d Deps) *GetTaskTool { return &GetTaskTool{d: d} }

func (t *GetTaskTool) Definition() mcp.Tool {
	return mcp.NewTool("get_task",
		mcp.WithDescription("Read a task without changing its status."),
		taskIDArg(),
		projectArg(),
	)
}

func (t *GetTaskTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	const op = "get_task"
	projectID := t.d.Defaults.ProjectOf(ctx, req)
	taskID, err := requireString(req, "task_id")
	if err != nil {
		return toolutil.Fail(ctx, op, err, taskMeta(projectID, nil)), nil
	}
	task, err := t.d.Store.Get(ctx, projectID, taskID)
	if err != nil {
		return toolutil.Fail(ctx, op, err, map[string]any{"project_id": projectID, "task_id": taskID}), nil
	}
	return toolutil.Result(op, response.Success(op, task, "", taskMeta(projectID, task))), nil
}

// ─── ListTasksTool ───────────────────────────────────────────────────────────

// ListTasksTool handles list_tasks. Rows carry summary fields only.
type ListTasksTool struct{ d Deps }

func NewListTasksTool(d Deps) *ListTasksTool { return &ListTasksTool{d: d} }

func (t *ListTasksTool) Definition() mcp.Tool {
	statuses := make([]string, 0, len(tasks.Statuses))
	for _, s := range tasks.Statuses {
		statuses = append(statuses, string(s))
	}
	return mcp.NewTool("list_tasks",
		mcp.WithDescription("List the project's tasks in creation order, optionally filtered by status."),
		mcp.WithString("status", mcp.Description("Only tasks with this status"), mcp.Enum(statuses...)),
		mcp.WithNumber("skip", mcp.Description("Number of tasks to skip (default: 0)")),
		mcp.WithNumber("limit", mcp.Description("Maximum number of tasks to return (default: 100, max: 1000)")),
		projectArg(),
	)
}

func (t *ListTasksTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	const op = "list_tasks"
	projectID := t.d.Defaults.ProjectOf(ctx, req)
	opts := tasks.ListOptions{
		Status: tasks.Status(req.GetString("status", "")),
		Skip:   toolutil.IntArg(req, "skip", 0),
		Limit:  toolutil.IntArg(req, "limit", 100),
	}
	if opts.Limit < 1 || opts.Limit > 1000 {
		return toolutil.Fail(ctx, op, cerr.Validation("limit must be between 1 and 1000"), taskMeta(projectID, nil)), nil
	}

	list, err := t.d.Store.List(ctx, projectID, opts)
	if err != nil {
		return toolutil.Fail(ctx, op, err, taskMeta(projectID, nil)), nil
	}
	total, err := t.d.Store.Count(ctx, projectID, opts.Status)
	if err != nil {
		return toolutil.Fail(ctx, op, err, taskMeta(projectID, nil)), nil
	}

	rows := make([]tasks.TaskSummary, 0, len(list))
	for _, task := range list {
		rows = append(rows, task.Summarize())
	}
	return toolutil.Result(op, response.ListSuccess(op, rows, total, opts.Skip, opts.Limit,
		fmt.Sprintf("Retrieved %d tasks", len(rows)))), nil
}

// ─── UpdateTaskTool ──────────────────────────────────────────────────────────

// UpdateTaskTool handles update_task.
type UpdateTaskTool struct{ d Deps }

func NewUpdateTaskTool(d Deps) *UpdateTaskTool { return &UpdateTaskTool{d: d} }

func (t *UpdateTaskTool) Definition() mcp.Tool {
	return mcp.NewTool("update_task",
		mcp.WithDescription(
			"Update fields of a task. Only the supplied fields change. Status cannot be set to completed here; "+
				"use verify_task. Pass if_match with the task's current_version_id to fail instead of overwriting a concurrent change.",
		),
		taskIDArg(),
		mcp.WithString("name", mcp.Description("New task name")),
		mcp.WithString("description", mcp.Description("New description")),
		mcp.WithString("status", mcp.Description("pending, in_progress, failed or cancelled")),
		mcp.WithString("notes", mcp.Description("Why the task is being changed")),
		mcp.WithString("implementation_guide", mcp.Description("New implementation guide")),
		mcp.WithString("verification_criteria", mcp.Description("New verification criteria")),
		stringList("dependencies", "Replacement dependency list (task IDs or names)"),
		relatedFilesArg(),
		mcp.WithString("if_match", mcp.Description("Expected current_version_id")),
		mcp.WithString("message", mcp.Description("Message recorded on the version entry")),
		operatorArg(),
		projectArg(),
	)
}

func (t *UpdateTaskTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	const op = "update_task"
	projectID := t.d.Defaults.ProjectOf(ctx, req)
	taskID, err := requireString(req, "task_id")
	if err != nil {
		return toolutil.Fail(ctx, op, err, taskMeta(projectID, nil)), nil
	}
	meta := map[string]any{"project_id": projectID, "task_id": taskID}

	if err := checkDependencyArg(req); err != nil {
		return toolutil.Fail(ctx, op, err, meta), nil
	}
	var upd tasks.TaskUpdate
	if err := toolutil.Decode(req, &upd); err != nil {
		return toolutil.Fail(ctx, op, err, meta), nil
	}
	task, err := t.d.Store.Update(ctx, projectID, taskID, upd, tasks.UpdateOptions{
		ChangedBy: t.d.Defaults.OperatorOf(req),
		IfMatch:   req.GetString("if_match", ""),
		Message:   req.GetString("message", ""),
	})
	if err != nil {
		return toolutil.Fail(ctx, op, err, meta), nil
	}
	return toolutil.Result(op, response.Success(op, task,
		fmt.Sprintf("Successfully updated task: %s", task.Name), taskMeta(projectID, task))), nil
}

// ─── DeleteTaskTool ──────────────────────────────────────────────────────────

// DeleteTaskTool handles delete_task (soft delete).
type DeleteTaskTool struct{ d Deps }

func NewDeleteTaskTool(d Deps) *DeleteTaskTool { return &DeleteTaskTool{d: d} }

func (t *DeleteTaskTool) Definition() mcp.Tool {
	return mcp.NewTool("delete_task",
		mcp.WithDescription("Delete a task. The task disappears from every read but its history is kept."),
		taskIDArg(),
		operatorArg(),
		projectArg(),
	)
}

func (t *DeleteTaskTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	const op = "delete_task"
	projectID := t.d.Defaults.ProjectOf(ctx, req)
	taskID, err := requireString(req, "task_id")
	if err != nil {
		return toolutil.Fail(ctx, op, err, taskMeta(projectID, nil)), nil
	}
	meta := map[string]any{"project_id": projectID, "task_id": taskID, "deletion_type": "soft_delete"}

	if _, err := t.d.Store.Delete(ctx, projectID, taskID, t.d.Defaults.OperatorOf(req)); err != nil {
		return toolutil.Fail(ctx, op, err, meta), nil
	}
	return toolutil.Result(op, response.Success(op,
		map[string]any{"task_id": taskID, "deleted": true},
		fmt.Sprintf("Successfully deleted task %s", taskID), meta)), nil
}
