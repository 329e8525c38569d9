// Package memtools provides MCP tool handlers for the memory store.
//
// Each tool handler follows the same pattern as internal/tasktools:
// - A struct with dependencies (memory.Store) injected via constructor
// - Definition() returns the mcp.Tool schema
// - Handle() processes the request and returns an envelope as the result
//
// Tools are storage tools: they receive agent-written content and persist it.
package memtools

import (
	"context"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/HendryAvila/taskmem/internal/cerr"
	"github.com/HendryAvila/taskmem/internal/memory"
	"github.com/HendryAvila/taskmem/internal/toolutil"
)

// Deps is shared by every memory tool.
type Deps struct {
	Store    *memory.Store
	Defaults toolutil.Defaults
}

// Tool is the shape shared by every handler in this package.
type Tool interface {
	Definition() mcp.Tool
	Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error)
}

// All returns every memory tool wired to d.
func All(d Deps) []Tool {
	return []Tool{
		NewCreateTool(d),
		NewQueryTool(d),
		NewGetTool(d),
		NewUpdateTool(d),
		NewDeleteTool(d),
	}
}

func projectArg() mcp.ToolOption {
	return mcp.WithString("project_id",
		mcp.Description("Project to operate on. Ignored when the transport already pins a project."),
	)
}

func memoryIDArg() mcp.ToolOption {
	return mcp.WithString("memory_id",
		mcp.Required(),
		mcp.Description("24-character hex memory ID"),
	)
}

func stringList(name, desc string) mcp.ToolOption {
	return mcp.WithArray(name,
		mcp.Description(desc),
		mcp.Items(map[string]any{"type": "string"}),
	)
}

// contentArgs are the fields create_memory and update_memory share.
func contentArgs() []mcp.ToolOption {
	return []mcp.ToolOption{
		mcp.WithString("goal", mcp.Description("What the work set out to do")),
		stringList("actions", "Steps that were taken"),
		mcp.WithString("outcome", mcp.Description("What came of it")),
		stringList("beneficial_ops", "Actions worth repeating"),
		stringList("improvements", "What to do differently next time"),
		mcp.WithString("suggestions", mcp.Description("Advice for future work")),
		stringList("tags", "Free-form tags for filtering"),
		mcp.WithString("embedding_model", mcp.Description("Reserved; stored as given")),
	}
}

func requireString(req mcp.CallToolRequest, key string) (string, error) {
	v := strings.TrimSpace(req.GetString(key, ""))
	if v == "" {
		return "", cerr.Validation("'" + key + "' is required")
	}
	return v, nil
}

func memoryMeta(projectID string, m *memory.Memory) map[string]any {
	meta := map[string]any{"project_id": projectID}
	if m != nil {
		meta["memory_id"] = m.ID
		if m.TaskID != nil {
			meta["task_id"] = *m.TaskID
		}
	}
	return meta
}
