package tasktools

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/HendryAvila/taskmem/internal/response"
	"github.com/HendryAvila/taskmem/internal/toolutil"
)

// DependencyGraphTool handles task_dependency_graph.
type DependencyGraphTool struct{ d Deps }

func NewDependencyGraphTool(d Deps) *DependencyGraphTool { return &DependencyGraphTool{d: d} }

func (t *DependencyGraphTool) Definition() mcp.Tool {
	return mcp.NewTool("task_dependency_graph",
		mcp.WithDescription("Show a task's direct dependencies and dependents, and whether it can start."),
		taskIDArg(),
		projectArg(),
	)
}

func (t *DependencyGraphTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	const op = "task_dependency_graph"
	projectID := t.d.Defaults.ProjectOf(ctx, req)
	taskID, err := requireString(req, "task_id")
	if err != nil {
		return toolutil.Fail(ctx, op, err, taskMeta(projectID, nil)), nil
	}
	g, err := t.d.Store.DependencyGraph(ctx, projectID, taskID)
	if err != nil {
		return toolutil.Fail(ctx, op, err, map[string]any{"project_id": projectID, "task_id": taskID}), nil
	}
	return toolutil.Result(op, response.Success(op, g, "", map[string]any{"project_id": projectID})), nil
}

// StatisticsTool handles task_statistics.
type StatisticsTool struct{ d Deps }

func NewStatisticsTool(d Deps) *StatisticsTool { return &StatisticsTool{d: d} }

func (t *StatisticsTool) Definition() mcp.Tool {
	return mcp.NewTool("task_statistics",
		mcp.WithDescription("Count the project's active tasks by status."),
		projectArg(),
	)
}

func (t *StatisticsTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	const op = "task_statistics"
	projectID := t.d.Defaults.ProjectOf(ctx, req)
	stats, err := t.d.Store.Statistics(ctx, projectID)
	if err != nil {
		return toolutil.Fail(ctx, op, err, map[string]any{"project_id": projectID}), nil
	}
	return toolutil.Result(op, response.Success(op, stats, "", map[string]any{"project_id": projectID})), nil
}
