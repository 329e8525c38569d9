// Package tasktools provides the MCP tool handlers for tasks, todos and
// version history.
//
// Each tool handler follows the same pattern:
// - A struct with dependencies (tasks.Store, defaults) injected via constructor
// - Definition() returns the mcp.Tool schema
// - Handle() processes the request and returns an envelope as the result
package tasktools

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/HendryAvila/taskmem/internal/cerr"
	"github.com/HendryAvila/taskmem/internal/tasks"
	"github.com/HendryAvila/taskmem/internal/toolutil"
	"github.com/HendryAvila/taskmem/internal/validate"
)

// Deps is shared by every task tool.
type Deps struct {
	Store    *tasks.Store
	Defaults toolutil.Defaults
}

func projectArg() mcp.ToolOption {
	return mcp.WithString("project_id",
		mcp.Description("Project to operate on. Ignored when the transport already pins a project."),
	)
}

func operatorArg() mcp.ToolOption {
	return mcp.WithString("operator",
		mcp.Description("Name of the agent calling this tool; recorded as changed_by in the version history"),
	)
}

func taskIDArg() mcp.ToolOption {
	return mcp.WithString("task_id",
		mcp.Required(),
		mcp.Description("24-character hex task ID"),
	)
}

func stringList(name, desc string) mcp.ToolOption {
	return mcp.WithArray(name,
		mcp.Description(desc),
		mcp.Items(map[string]any{"type": "string"}),
	)
}

func relatedFilesArg() mcp.ToolOption {
	return mcp.WithArray("related_files",
		mcp.Description("Files relevant to the task: {path, type (TO_MODIFY|REFERENCE|CREATE|DEPENDENCY|OTHER), description?, line_start?, line_end?}"),
		mcp.Items(map[string]any{"type": "object"}),
	)
}

// checkDependencyArg rejects non-string dependency entries before decoding,
// so the caller gets a per-entry message instead of a JSON type error.
func checkDependencyArg(req mcp.CallToolRequest) error {
	raw, ok := req.GetArguments()["dependencies"]
	if !ok || raw == nil {
		return nil
	}
	list, ok := raw.([]any)
	if !ok {
		return cerr.Validation("dependencies must be an array of task IDs or names")
	}
	_, r := validate.DependencyEntries(list)
	return r.Err()
}

func taskMeta(projectID string, t *tasks.Task) map[string]any {
	m := map[string]any{"project_id": projectID}
	if t != nil {
		m["task_id"] = t.ID
		m["task_status"] = t.Status
		m["version_number"] = t.VersionNumber
	}
	return m
}

// decodeProposals accepts the tasks argument as an array or as a JSON
// string holding one.
func decodeProposals(raw any) ([]tasks.TaskInput, error) {
	var b []byte
	switch v := raw.(type) {
	case nil:
		return nil, cerr.Validation("'tasks' is required")
	case string:
		if strings.TrimSpace(v) == "" {
			return nil, cerr.Validation("'tasks' is required")
		}
		b = []byte(v)
	default:
		enc, err := json.Marshal(v)
		if err != nil {
			return nil, cerr.Validation("Invalid tasks: " + err.Error())
		}
		b = enc
	}
	var out []tasks.TaskInput
	if err := json.Unmarshal(b, &out); err != nil {
		return nil, cerr.Validation("Invalid tasks: expected an array of task objects: " + err.Error())
	}
	return out, nil
}

func requireString(req mcp.CallToolRequest, key string) (string, error) {
	v := strings.TrimSpace(req.GetString(key, ""))
	if v == "" {
		return "", cerr.Validation("'" + key + "' is required")
	}
	return v, nil
}

// Tool is the shape shared by every handler in this package.
type Tool interface {
	Definition() mcp.Tool
	Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error)
}

// All returns every task tool wired to d.
func All(d Deps) []Tool {
	return []Tool{
		NewCreateTaskTool(d),
		NewAcquireTaskTool(d),
		NewGetTaskTool(d),
		NewListTasksTool(d),
		NewUpdateTaskTool(d),
		NewDeleteTaskTool(d),
		NewSplitTasksTool(d),
		NewVerifyTaskTool(d),
		NewTodoReadTool(d),
		NewTodoWriteTool(d),
		NewListVersionsTool(d),
		NewRevertTaskTool(d),
		NewDependencyGraphTool(d),
		NewStatisticsTool(d),
	}
}
