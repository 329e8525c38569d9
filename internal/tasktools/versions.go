package tasktools

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/HendryAvila/taskmem/internal/response"
	"github.com/HendryAvila/taskmem/internal/toolutil"
)

// ─── ListVersionsTool ────────────────────────────────────────────────────────

// ListVersionsTool handles list_task_versions.
type ListVersionsTool struct{ d Deps }

func NewListVersionsTool(d Deps) *ListVersionsTool { return &ListVersionsTool{d: d} }

func (t *ListVersionsTool) Definition() mcp.Tool {
	return mcp.NewTool("list_task_versions",
		mcp.WithDescription("List the version history of a task, newest first. Each entry holds a full snapshot."),
		taskIDArg(),
		mcp.WithNumber("skip", mcp.Description("Number of versions to skip (default: 0)")),
		mcp.WithNumber("limit", mcp.Description("Maximum number of versions (default: 20)")),
		projectArg(),
	)
}

func (t *ListVersionsTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	const op = "list_task_versions"
	projectID := t.d.Defaults.ProjectOf(ctx, req)
	taskID, err := requireString(req, "task_id")
	if err != nil {
		return toolutil.Fail(ctx, op, err, taskMeta(projectID, nil)), nil
	}
	skip := toolutil.IntArg(req, "skip", 0)
	limit := toolutil.IntArg(req, "limit", 20)

	versions, err := t.d.Store.ListVersions(ctx, projectID, taskID, skip, limit)
	if err != nil {
		return toolutil.Fail(ctx, op, err, map[string]any{"project_id": projectID, "task_id": taskID}), nil
	}
	return toolutil.Result(op, response.ListSuccess(op, versions, -1, skip, limit,
		fmt.Sprintf("Retrieved %d versions", len(versions)))), nil
}

// ─── RevertTaskTool ──────────────────────────────────────────────────────────

// RevertTaskTool handles revert_task.
type RevertTaskTool struct{ d Deps }

func NewRevertTaskTool(d Deps) *RevertTaskTool { return &RevertTaskTool{d: d} }

func (t *RevertTaskTool) Definition() mcp.Tool {
	return mcp.NewTool("revert_task",
		mcp.WithDescription("Restore a task's content from an earlier version. The revert is recorded as a new version."),
		taskIDArg(),
		mcp.WithString("version_id", mcp.Required(), mcp.Description("ID of the version to restore")),
		operatorArg(),
		projectArg(),
	)
}

func (t *RevertTaskTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	const op = "revert_task"
	projectID := t.d.Defaults.ProjectOf(ctx, req)
	taskID, err := requireString(req, "task_id")
	if err != nil {
		return toolutil.Fail(ctx, op, err, taskMeta(projectID, nil)), nil
	}
	versionID, err := requireString(req, "version_id")
	if err != nil {
		return toolutil.Fail(ctx, op, err, taskMeta(projectID, nil)), nil
	}
	task, err := t.d.Store.Revert(ctx, projectID, taskID, versionID, t.d.Defaults.OperatorOf(req))
	if err != nil {
		return toolutil.Fail(ctx, op, err, map[string]any{"project_id": projectID, "task_id": taskID, "version_id": versionID}), nil
	}
	return toolutil.Result(op, response.Success(op, task,
		fmt.Sprintf("Task %s reverted to version %s", task.Name, versionID), taskMeta(projectID, task))), nil
}
