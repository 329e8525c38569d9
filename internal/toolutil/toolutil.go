// Package toolutil holds the argument and result helpers shared by the MCP
// tool packages.
package toolutil

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/HendryAvila/taskmem/internal/cerr"
	"github.com/HendryAvila/taskmem/internal/metrics"
	"github.com/HendryAvila/taskmem/internal/response"
)

type projectKey struct{}

// WithProject pins the project for every tool call made with ctx. The HTTP
// transport sets it from the X-Project-ID header.
func WithProject(ctx context.Context, projectID string) context.Context {
	return context.WithValue(ctx, projectKey{}, projectID)
}

func ProjectFromContext(ctx context.Context) string {
	p, _ := ctx.Value(projectKey{}).(string)
	return p
}

// Project resolves the project of a call: the context wins, then the
// project_id argument, then fallback.
func Project(ctx context.Context, req mcp.CallToolRequest, fallback string) string {
	if p := ProjectFromContext(ctx); p != "" {
		return p
	}
	if p := strings.TrimSpace(req.GetString("project_id", "")); p != "" {
		return p
	}
	return fallback
}

// Defaults carries the process-wide values tools fall back to.
type Defaults struct {
	ProjectID string
	Operator  string
}

// OperatorOf returns the operator argument or the configured default.
func (d Defaults) OperatorOf(req mcp.CallToolRequest) string {
	if op := strings.TrimSpace(req.GetString("operator", "")); op != "" {
		return op
	}
	return d.Operator
}

func (d Defaults) ProjectOf(ctx context.Context, req mcp.CallToolRequest) string {
	return Project(ctx, req, d.ProjectID)
}

// IntArg extracts an integer argument from a tool request, returning
// defaultVal if the key is missing or not a number (JSON numbers are float64).
func IntArg(req mcp.CallToolRequest, key string, defaultVal int) int {
	switch v := req.GetArguments()[key].(type) {
	case float64:
		return int(v)
	case int:
		return v
	}
	return defaultVal
}

// RequireInt extracts a required whole-number argument. Fractional values
// are rejected rather than truncated.
func RequireInt(req mcp.CallToolRequest, key string) (int, error) {
	raw, ok := req.GetArguments()[key]
	if !ok || raw == nil {
		return 0, cerr.Validation(fmt.Sprintf("'%s' is required", key))
	}
	switch v := raw.(type) {
	case int:
		return v, nil
	case float64:
		if v != math.Trunc(v) || math.IsInf(v, 0) || v < math.MinInt32 || v > math.MaxInt32 {
			return 0, cerr.Validation(fmt.Sprintf("'%s' must be an integer, got %v", key, v))
		}
		return int(v), nil
	}
	return 0, cerr.Validation(fmt.Sprintf("'%s' must be an integer", key))
}

// BoolArg extracts a boolean argument from a tool request.
func BoolArg(req mcp.CallToolRequest, key string, defaultVal bool) bool {
	v, ok := req.GetArguments()[key].(bool)
	if !ok {
		return defaultVal
	}
	return v
}

// Has reports whether the caller supplied key at all.
func Has(req mcp.CallToolRequest, key string) bool {
	_, ok := req.GetArguments()[key]
	return ok
}

// Decode copies the request arguments into v through JSON, so that v's
// json tags define the accepted shape.
func Decode(req mcp.CallToolRequest, v any) error {
	raw, err := json.Marshal(req.GetArguments())
	if err != nil {
		return cerr.Validation("Invalid arguments: " + err.Error())
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return cerr.Validation("Invalid arguments: " + err.Error())
	}
	return nil
}

// Result renders an envelope as a tool result and counts the call.
func Result(tool string, env *response.Envelope) *mcp.CallToolResult {
	code := "OK"
	if env.Error != nil {
		code = env.Error.Code
	}
	metrics.ToolCalls.WithLabelValues(tool, code).Inc()
	if !env.Success {
		return mcp.NewToolResultError(env.JSON())
	}
	return mcp.NewToolResultText(env.JSON())
}

// Fail renders err as a failure envelope. Server-side failures are logged
// with their stack; the caller only sees the safe message.
func Fail(ctx context.Context, tool string, err error, metadata map[string]any) *mcp.CallToolResult {
	if cerr.CodeOf(err).IsServerSide() {
		attrs := []any{"tool", tool, "error", err}
		var e *cerr.Error
		if errors.As(err, &e) && e.Stack != "" {
			attrs = append(attrs, "stack", e.Stack)
		}
		slog.ErrorContext(ctx, "tool call failed", attrs...)
	} else {
		slog.DebugContext(ctx, "tool call rejected", "tool", tool, "error", err)
	}
	return Result(tool, response.FromError(tool, err, metadata))
}
