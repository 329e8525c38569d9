// Package prompts implements MCP prompt handlers for taskmem.
//
// MCP prompts are user-triggered workflows (like slash commands) that
// instruct the AI to execute a specific sequence. Unlike tools (which
// the AI calls), prompts are initiated by the user.
package prompts

import (
	"context"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
)

// WorkflowPrompt handles the task-workflow MCP prompt.
// It walks the AI through one task from acquisition to recorded memory.
type WorkflowPrompt struct{}

// NewWorkflowPrompt creates a WorkflowPrompt.
func NewWorkflowPrompt() *WorkflowPrompt {
	return &WorkflowPrompt{}
}

// Definition returns the MCP prompt definition for registration.
func (p *WorkflowPrompt) Definition() mcp.Prompt {
	return mcp.NewPrompt("task-workflow",
		mcp.WithPromptDescription(
			"Work through a task the taskmem way: acquire it, track progress with todos, "+
				"verify the result and record what was learned.",
		),
		mcp.WithArgument("task_id",
			mcp.ArgumentDescription("Task to work on. When omitted, pick the first pending task whose dependencies are completed."),
		),
	)
}

// Handle processes the task-workflow prompt request.
func (p *WorkflowPrompt) Handle(ctx context.Context, req mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
	var taskID string
	if args := req.Params.Arguments; args != nil {
		taskID = strings.TrimSpace(args["task_id"])
	}

	first := "1. Call `list_tasks` with status=pending. For each candidate call `task_dependency_graph` " +
		"and pick the first one with can_start=true, then call `acquire_task` on it\n"
	description := "Task workflow"
	if taskID != "" {
		first = fmt.Sprintf("1. Call `acquire_task` with task_id='%s'\n", taskID)
		description = fmt.Sprintf("Task workflow for %s", taskID)
	}

	return &mcp.GetPromptResult{
		Description: description,
		Messages: []mcp.PromptMessage{
			{
				Role: mcp.RoleUser,
				Content: mcp.NewTextContent(
					"Please work through one task using taskmem.\n\n" +
						first +
						"2. Call `query_memories` with words from the task name to reuse earlier lessons\n" +
						"3. Break the work into steps and save them with `todo_write`; keep the list current as you go\n" +
						"4. Do the work, following the implementation guide\n" +
						"5. When `todo_write` reports all todos completed, call `verify_task` with an honest score " +
						"against the verification criteria. Below 80, add todos for what is missing and continue\n" +
						"6. After the task is completed, call `create_memory` with task_id, goal, actions, outcome, " +
						"beneficial_ops and improvements\n\n" +
						"Never set a task to completed with `update_task`; only `verify_task` completes tasks.",
				),
			},
		},
	}, nil
}
