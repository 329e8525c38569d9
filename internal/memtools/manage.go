package memtools

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/HendryAvila/taskmem/internal/memory"
	"github.com/HendryAvila/taskmem/internal/response"
	"github.com/HendryAvila/taskmem/internal/toolutil"
)

// ─── GetTool ────────────────────────────────────────────────────────────────

// GetTool handles the get_memory MCP tool.
type GetTool struct{ d Deps }

// NewGetTool creates a GetTool with the given dependencies.
func NewGetTool(d Deps) *GetTool { return &GetTool{d: d} }

// Definition returns the MCP tool definition for get_memory.
func (t *GetTool) Definition() mcp.Tool {
	return mcp.NewTool("get_memory",
		mcp.WithDescription("Read one memory in full."),
		memoryIDArg(),
		projectArg(),
	)
}

// Handle processes the get_memory tool call.
func (t *GetTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	const op = "get_memory"
	projectID := t.d.Defaults.ProjectOf(ctx, req)
	id, err := requireString(req, "memory_id")
	if err != nil {
		return toolutil.Fail(ctx, op, err, memoryMeta(projectID, nil)), nil
	}
	m, err := t.d.Store.Get(ctx, projectID, id)
	if err != nil {
		return toolutil.Fail(ctx, op, err, memoryMeta(projectID, nil)), nil
	}
	return toolutil.Result(op, response.Success(op, m, "", memoryMeta(projectID, m))), nil
}

// ─── UpdateTool ─────────────────────────────────────────────────────────────

// UpdateTool handles the update_memory MCP tool.
type UpdateTool struct{ d Deps }

// NewUpdateTool creates an UpdateTool with the given dependencies.
func NewUpdateTool(d Deps) *UpdateTool { return &UpdateTool{d: d} }

// Definition returns the MCP tool definition for update_memory.
func (t *UpdateTool) Definition() mcp.Tool {
	opts := []mcp.ToolOption{
		mcp.WithDescription("Change fields of a memory. Only the supplied fields change; lists are replaced whole."),
		memoryIDArg(),
		mcp.WithString("title", mcp.Description("New title")),
		mcp.WithString("raw_text", mcp.Description("New text")),
	}
	opts = append(opts, contentArgs()...)
	opts = append(opts, projectArg())
	return mcp.NewTool("update_memory", opts...)
}

// Handle processes the update_memory tool call.
func (t *UpdateTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	const op = "update_memory"
	projectID := t.d.Defaults.ProjectOf(ctx, req)
	id, err := requireString(req, "memory_id")
	if err != nil {
		return toolutil.Fail(ctx, op, err, memoryMeta(projectID, nil)), nil
	}

	var p memory.UpdateParams
	if err := toolutil.Decode(req, &p); err != nil {
		return toolutil.Fail(ctx, op, err, memoryMeta(projectID, nil)), nil
	}
	m, err := t.d.Store.Update(ctx, projectID, id, p)
	if err != nil {
		return toolutil.Fail(ctx, op, err, map[string]any{"project_id": projectID, "memory_id": id}), nil
	}
	return toolutil.Result(op, response.Success(op, m,
		fmt.Sprintf("Memory %s updated", m.ID), memoryMeta(projectID, m))), nil
}

// ─── DeleteTool ─────────────────────────────────────────────────────────────

// DeleteTool handles the delete_memory MCP tool. Deletion is permanent.
type DeleteTool struct{ d Deps }

// NewDeleteTool creates a DeleteTool with the given dependencies.
func NewDeleteTool(d Deps) *DeleteTool { return &DeleteTool{d: d} }

// Definition returns the MCP tool definition for delete_memory.
func (t *DeleteTool) Definition() mcp.Tool {
	return mcp.NewTool("delete_memory",
		mcp.WithDescription("Delete a memory permanently."),
		memoryIDArg(),
		projectArg(),
	)
}

// Handle processes the delete_memory tool call.
func (t *DeleteTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	const op = "delete_memory"
	projectID := t.d.Defaults.ProjectOf(ctx, req)
	id, err := requireString(req, "memory_id")
	if err != nil {
		return toolutil.Fail(ctx, op, err, memoryMeta(projectID, nil)), nil
	}
	meta := map[string]any{"project_id": projectID, "memory_id": id, "deletion_type": "hard_delete"}
	if err := t.d.Store.Delete(ctx, projectID, id); err != nil {
		return toolutil.Fail(ctx, op, err, meta), nil
	}
	return toolutil.Result(op, response.Success(op,
		map[string]any{"memory_id": id, "deleted": true},
		fmt.Sprintf("Memory %s deleted", id), meta)), nil
}
