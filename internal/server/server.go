// Package server wires all MCP components and creates the server instance.
//
// This is the composition root: it takes the concrete stores and injects
// them into the tools, prompts and resources that depend on them. No
// business logic lives here, only wiring.
package server

import (
	"context"
	"net/http"
	"strings"

	"github.com/mark3labs/mcp-go/server"

	"github.com/HendryAvila/taskmem/internal/config"
	"github.com/HendryAvila/taskmem/internal/memory"
	"github.com/HendryAvila/taskmem/internal/memtools"
	"github.com/HendryAvila/taskmem/internal/prompts"
	"github.com/HendryAvila/taskmem/internal/resources"
	"github.com/HendryAvila/taskmem/internal/tasks"
	"github.com/HendryAvila/taskmem/internal/tasktools"
	"github.com/HendryAvila/taskmem/internal/toolutil"
)

// Version is set at build time via ldflags.
var Version = "dev"

// ProjectHeader pins the project of an HTTP MCP session.
const ProjectHeader = "X-Project-ID"

// New creates and configures the MCP server with all tools, prompts,
// and resources registered.
func New(env *config.Env, taskStore *tasks.Store, memStore *memory.Store) *server.MCPServer {
	s := server.NewMCPServer(
		"taskmem",
		Version,
		server.WithToolCapabilities(true),
		server.WithResourceCapabilities(false, true),
		server.WithPromptCapabilities(true),
		server.WithRecovery(),
		server.WithInstructions(serverInstructions()),
	)

	defaults := toolutil.Defaults{ProjectID: env.ProjectID, Operator: env.Operator}

	// --- Register task tools ---

	for _, tool := range tasktools.All(tasktools.Deps{Store: taskStore, Defaults: defaults}) {
		s.AddTool(tool.Definition(), tool.Handle)
	}

	// --- Register memory tools ---

	for _, tool := range memtools.All(memtools.Deps{Store: memStore, Defaults: defaults}) {
		s.AddTool(tool.Definition(), tool.Handle)
	}

	// --- Register prompts ---

	workflow := prompts.NewWorkflowPrompt()
	s.AddPrompt(workflow.Definition(), workflow.Handle)

	// --- Register resources ---

	resourceHandler := resources.NewHandler(taskStore)
	s.AddResource(resourceHandler.ProjectsResource(), resourceHandler.HandleProjects)

	return s
}

// NewHTTPHandler serves s over streamable HTTP. The X-Project-ID header,
// when present, pins the project for every tool call of the request.
func NewHTTPHandler(s *server.MCPServer) http.Handler {
	return server.NewStreamableHTTPServer(s,
		server.WithHTTPContextFunc(ProjectFromRequest),
	)
}

// ProjectFromRequest copies the project header into ctx.
func ProjectFromRequest(ctx context.Context, r *http.Request) context.Context {
	if p := strings.TrimSpace(r.Header.Get(ProjectHeader)); p != "" {
		return toolutil.WithProject(ctx, p)
	}
	return ctx
}

// serverInstructions returns the system instructions that tell the AI
// how to use taskmem effectively.
func serverInstructions() string {
	return `You have access to taskmem, a durable task and memory store for planning and tracking work.

## Planning
- Break a goal into tasks with split_tasks. Dependencies may name other tasks of the same batch.
- update_mode decides what happens to existing tasks:
  - append keeps them
  - overwrite replaces unfinished tasks
  - selective updates unfinished tasks with the same name
  - clearAllTasks replaces unfinished tasks and returns a backup
- Completed tasks always survive.

## Executing
1. acquire_task returns the full task and marks it in_progress
2. todo_write saves your step list; send the whole list every time
3. verify_task with a score of 80 or more completes the task; below 80 it stays in progress
4. create_memory records what you learned, linked to the task

Only verify_task completes a task. update_task cannot set status=completed.

## Concurrency
Every change creates a version. Pass if_match=current_version_id to update_task
to fail with VERSION_CONFLICT instead of overwriting another agent's change.
list_task_versions and revert_task give access to history.

## Errors
Failed calls return success=false with error.code:
VALIDATION_ERROR, TASK_NOT_FOUND, MEMORY_NOT_FOUND, VERSION_CONFLICT, INVALID_STATE or OPERATION_FAILED.
Fix the input for VALIDATION_ERROR; re-read the task for VERSION_CONFLICT.`
}
