package memtools

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/HendryAvila/taskmem/internal/memory"
	"github.com/HendryAvila/taskmem/internal/response"
	"github.com/HendryAvila/taskmem/internal/toolutil"
)

// CreateTool handles the create_memory MCP tool.
type CreateTool struct{ d Deps }

// NewCreateTool creates a CreateTool with the given dependencies.
func NewCreateTool(d Deps) *CreateTool { return &CreateTool{d: d} }

// Definition returns the MCP tool definition for create_memory.
func (t *CreateTool) Definition() mcp.Tool {
	opts := []mcp.ToolOption{
		mcp.WithDescription(
			"Record what was learned while doing a task. Call this after verify_task completes a task: " +
				"goal, actions, outcome, what helped and what to improve. Memories are searchable with query_memories.",
		),
		mcp.WithString("title",
			mcp.Required(),
			mcp.Description("Short, searchable title (max 200 characters)"),
		),
		mcp.WithString("raw_text",
			mcp.Required(),
			mcp.Description("Full text of the memory"),
		),
		mcp.WithString("task_id",
			mcp.Description("Task this memory belongs to; must be an active task of the project"),
		),
	}
	opts = append(opts, contentArgs()...)
	opts = append(opts, projectArg())
	return mcp.NewTool("create_memory", opts...)
}

// Handle processes the create_memory tool call.
func (t *CreateTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	const op = "create_memory"
	projectID := t.d.Defaults.ProjectOf(ctx, req)

	var p memory.CreateParams
	if err := toolutil.Decode(req, &p); err != nil {
		return toolutil.Fail(ctx, op, err, memoryMeta(projectID, nil)), nil
	}
	m, err := t.d.Store.Create(ctx, projectID, p)
	if err != nil {
		return toolutil.Fail(ctx, op, err, memoryMeta(projectID, nil)), nil
	}
	return toolutil.Result(op, response.Success(op, m,
		fmt.Sprintf("Memory saved: %s", m.Title), memoryMeta(projectID, m))), nil
}
