package tasks

import (
	"context"
	"fmt"
	"strings"

	"github.com/HendryAvila/taskmem/internal/cerr"
)

// GetTodos returns the todo list of an active task.
func (s *Store) GetTodos(ctx context.Context, projectID, taskID string) ([]TodoItem, error) {
	t, err := s.Get(ctx, projectID, taskID)
	if err != nil {
		return nil, err
	}
	return t.Todos, nil
}

// normalizeTodos fills defaults and rejects items without content.
func normalizeTodos(todos []TodoItem) ([]TodoItem, error) {
	out := make([]TodoItem, 0, len(todos))
	var problems []string
	for i, item := range todos {
		n := i + 1
		item.Content = strings.TrimSpace(item.Content)
		if item.Content == "" {
			problems = append(problems, fmt.Sprintf("Todo item %d missing content", n))
			continue
		}
		if strings.TrimSpace(item.ID) == "" {
			item.ID = fmt.Sprintf("todo_%d", n)
		}
		if item.Priority == "" {
			item.Priority = PriorityMedium
		}
		if item.Status == "" {
			item.Status = TodoPending
		}
		switch item.Priority {
		case PriorityLow, PriorityMedium, PriorityHigh:
		default:
			problems = append(problems, fmt.Sprintf("Todo item %d has invalid priority %q", n, item.Priority))
		}
		switch item.Status {
		case TodoPending, TodoInProgress, TodoCompleted, TodoCancelled:
		default:
			problems = append(problems, fmt.Sprintf("Todo item %d has invalid status %q", n, item.Status))
		}
		out = append(out, item)
	}
	if len(problems) > 0 {
		return nil, cerr.Validation(problems...)
	}
	return out, nil
}

// SetTodos replaces the whole todo list of a task and, when notes is not
// empty, its notes. The change is versioned like any update.
func (s *Store) SetTodos(ctx context.Context, projectID, taskID string, todos []TodoItem, notes, changedBy string) (*TodoResult, error) {
	items, err := normalizeTodos(todos)
	if err != nil {
		return nil, err
	}
	message := "Todos updated"
	if notes != "" {
		message = "Todos updated. Notes: " + notes
	}

	t, err := s.mutate(ctx, projectID, taskID, mutation{
		op:        OpUpdate,
		changedBy: changedBy,
		message:   message,
		apply: func(_ context.Context, _ queryer, t *Task) error {
			t.Todos = items
			if notes != "" {
				t.Notes = notes
			}
			return nil
		},
	})
	if err != nil {
		return nil, err
	}
	return &TodoResult{Todos: t.Todos, AllCompleted: allTerminal(t.Todos), Task: t}, nil
}

func allTerminal(todos []TodoItem) bool {
	if len(todos) == 0 {
		return false
	}
	for _, td := range todos {
		if !td.Terminal() {
			return false
		}
	}
	return true
}
