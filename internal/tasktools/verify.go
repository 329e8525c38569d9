package tasktools

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/HendryAvila/taskmem/internal/response"
	"github.com/HendryAvila/taskmem/internal/toolutil"
)

// VerifyTaskTool handles verify_task, the only path to completed.
type VerifyTaskTool struct{ d Deps }

func NewVerifyTaskTool(d Deps) *VerifyTaskTool { return &VerifyTaskTool{d: d} }

func (t *VerifyTaskTool) Definition() mcp.Tool {
	return mcp.NewTool("verify_task",
		mcp.WithDescription(
			"Score a finished task against its verification criteria. A score of 80 or more completes the task "+
				"and stores the summary (30-1000 characters). A lower score keeps it in progress; "+
				"use the summary to describe what is missing.",
		),
		taskIDArg(),
		mcp.WithString("summary", mcp.Required(), mcp.Description("Completion summary, or improvement notes when the score is below 80")),
		mcp.WithNumber("score", mcp.Required(), mcp.Description("Completion score from 0 to 100")),
		operatorArg(),
		projectArg(),
	)
}

func (t *VerifyTaskTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	const op = "verify_task"
	projectID := t.d.Defaults.ProjectOf(ctx, req)
	taskID, err := requireString(req, "task_id")
	if err != nil {
		return toolutil.Fail(ctx, op, err, taskMeta(projectID, nil)), nil
	}
	score, err := toolutil.RequireInt(req, "score")
	if err != nil {
		return toolutil.Fail(ctx, op, err, taskMeta(projectID, nil)), nil
	}
	meta := map[string]any{"project_id": projectID, "task_id": taskID, "score": score}

	res, err := t.d.Store.Verify(ctx, projectID, taskID, req.GetString("summary", ""), score, t.d.Defaults.OperatorOf(req))
	if err != nil {
		return toolutil.Fail(ctx, op, err, meta), nil
	}
	meta["task_status"] = res.Task.Status
	meta["completed"] = res.Completed
	return toolutil.Result(op, response.Success(op, res.Task, res.Message, meta)), nil
}
