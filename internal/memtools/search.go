package memtools

import (
	"context"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/HendryAvila/taskmem/internal/cerr"
	"github.com/HendryAvila/taskmem/internal/memory"
	"github.com/HendryAvila/taskmem/internal/response"
	"github.com/HendryAvila/taskmem/internal/toolutil"
)

// QueryTool handles the query_memories MCP tool.
type QueryTool struct{ d Deps }

// NewQueryTool creates a QueryTool with the given dependencies.
func NewQueryTool(d Deps) *QueryTool { return &QueryTool{d: d} }

// Definition returns the MCP tool definition for query_memories.
func (t *QueryTool) Definition() mcp.Tool {
	return mcp.NewTool("query_memories",
		mcp.WithDescription(
			"Search the project's memories. With q, results are ranked by full-text relevance over title and text; "+
				"without q, the newest memories come first. Use this before starting a task to reuse earlier lessons.",
		),
		mcp.WithString("q", mcp.Description("Search text")),
		mcp.WithString("task_id", mcp.Description("Only memories of this task")),
		stringList("tags", "Only memories carrying any of these tags"),
		mcp.WithNumber("skip", mcp.Description("Number of results to skip (default: 0)")),
		mcp.WithNumber("limit", mcp.Description("Maximum number of results (default: 100, max: 1000)")),
		projectArg(),
	)
}

// Handle processes the query_memories tool call.
func (t *QueryTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	const op = "query_memories"
	projectID := t.d.Defaults.ProjectOf(ctx, req)

	var args struct {
		Tags []string `json:"tags"`
	}
	if err := toolutil.Decode(req, &args); err != nil {
		return toolutil.Fail(ctx, op, err, memoryMeta(projectID, nil)), nil
	}
	opts := memory.ListOptions{
		TaskID: strings.TrimSpace(req.GetString("task_id", "")),
		Tags:   args.Tags,
		Query:  req.GetString("q", ""),
		Skip:   toolutil.IntArg(req, "skip", 0),
		Limit:  toolutil.IntArg(req, "limit", 100),
	}
	if opts.Limit < 1 || opts.Limit > 1000 {
		return toolutil.Fail(ctx, op, cerr.Validation("limit must be between 1 and 1000"), memoryMeta(projectID, nil)), nil
	}
	if opts.Skip < 0 {
		return toolutil.Fail(ctx, op, cerr.Validation("skip must not be negative"), memoryMeta(projectID, nil)), nil
	}

	res, err := t.d.Store.List(ctx, projectID, opts)
	if err != nil {
		return toolutil.Fail(ctx, op, err, memoryMeta(projectID, nil)), nil
	}
	return toolutil.Result(op, response.ListSuccess(op, res.Memories, res.Total, opts.Skip, opts.Limit,
		fmt.Sprintf("Found %d memories", len(res.Memories)))), nil
}
