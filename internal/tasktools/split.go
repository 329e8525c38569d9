package tasktools

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/HendryAvila/taskmem/internal/response"
	"github.com/HendryAvila/taskmem/internal/tasks"
	"github.com/HendryAvila/taskmem/internal/toolutil"
)

// SplitTasksTool handles split_tasks, the bulk planning entry point.
type SplitTasksTool struct{ d Deps }

func NewSplitTasksTool(d Deps) *SplitTasksTool { return &SplitTasksTool{d: d} }

func (t *SplitTasksTool) Definition() mcp.Tool {
	return mcp.NewTool("split_tasks",
		mcp.WithDescription(
			"Create or update many tasks at once. Dependencies may name other tasks of the same batch. Modes:\n"+
				"- append: keep every existing task and add the new ones\n"+
				"- overwrite: delete unfinished tasks, keep completed ones, add the new ones\n"+
				"- selective: update unfinished tasks with the same name, add the rest\n"+
				"- clearAllTasks: like overwrite, and return a backup of the previous task list",
		),
		mcp.WithArray("tasks",
			mcp.Required(),
			mcp.Description("Task objects {name, description, implementation_guide?, verification_criteria?, notes?, dependencies?, related_files?}. A JSON string holding the array is accepted too."),
			mcp.Items(map[string]any{"type": "object"}),
		),
		mcp.WithString("update_mode",
			mcp.Required(),
			mcp.Description("How to reconcile with existing tasks"),
			mcp.Enum(string(tasks.ModeAppend), string(tasks.ModeOverwrite), string(tasks.ModeSelective), string(tasks.ModeClearAll)),
		),
		mcp.WithString("global_analysis_result",
			mcp.Description("Overall analysis stored as the summary of created tasks that have none"),
		),
		operatorArg(),
		projectArg(),
	)
}

func (t *SplitTasksTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	const op = "split_tasks"
	projectID := t.d.Defaults.ProjectOf(ctx, req)
	mode := req.GetString("update_mode", string(tasks.ModeAppend))
	analysis := req.GetString("global_analysis_result", "")
	meta := map[string]any{
		"project_id":               projectID,
		"update_mode":              mode,
		"global_analysis_provided": analysis != "",
	}

	proposals, err := decodeProposals(req.GetArguments()["tasks"])
	if err != nil {
		return toolutil.Fail(ctx, op, err, meta), nil
	}
	res, err := t.d.Store.Reconcile(ctx, projectID, tasks.ReconcileRequest{
		Tasks:          proposals,
		Mode:           tasks.UpdateMode(mode),
		GlobalAnalysis: analysis,
		ChangedBy:      t.d.Defaults.OperatorOf(req),
	})
	if err != nil {
		return toolutil.Fail(ctx, op, err, meta), nil
	}

	extra := map[string]any{
		"all_tasks":     res.AllTasks,
		"update_mode":   res.UpdateMode,
		"skipped_names": res.SkippedNames,
		"failed":        res.Failed,
		"totals":        res.Summary,
	}
	if res.BackupInfo != nil {
		extra["backup_info"] = res.BackupInfo
	}
	return toolutil.Result(op, response.BulkSuccess(op, res.CreatedTasks, res.UpdatedTasks,
		fmt.Sprintf("Task splitting completed using %s mode", mode), extra)), nil
}
