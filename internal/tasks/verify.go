package tasks

import (
	"context"
	"fmt"
	"strings"

	"github.com/HendryAvila/taskmem/internal/cerr"
	"github.com/HendryAvila/taskmem/internal/validate"
)

// PassingScore is the lowest verification score that completes a task.
const PassingScore = 80

// Verify scores a pending or in-progress task. A passing score completes
// the task and stores the summary; this is the only way into completed.
// The task's status is checked before the summary.
// A failing score moves a pending task to in_progress and otherwise leaves
// it untouched.
func (s *Store) Verify(ctx context.Context, projectID, taskID, summary string, score int, changedBy string) (*VerifyResult, error) {
	if err := checkTaskID(taskID); err != nil {
		return nil, err
	}
	if err := validate.TaskScore(score).Err(); err != nil {
		return nil, err
	}
	passed := score >= PassingScore

	message := fmt.Sprintf("Verified with score %d/100", score)
	if !passed && strings.TrimSpace(summary) != "" {
		message = fmt.Sprintf("Verification feedback (score %d/100): %s", score, strings.TrimSpace(summary))
	}

	t, err := s.mutate(ctx, projectID, taskID, mutation{
		op:        OpUpdate,
		changedBy: changedBy,
		message:   message,
		apply: func(_ context.Context, _ queryer, t *Task) error {
			if t.Status != StatusPending && t.Status != StatusInProgress {
				return cerr.NewError(cerr.FailedPrecondition, fmt.Sprintf(
					"Task %s has status %s. only status 'in_progress' and 'pending' can verify", t.Name, t.Status), nil)
			}
			if passed {
				if err := validate.TaskSummary(summary).Err(); err != nil {
					return err
				}
				t.Status = StatusCompleted
				t.Summary = strings.TrimSpace(summary)
				return nil
			}
			if t.Status == StatusPending {
				t.Status = StatusInProgress
				return nil
			}
			return errNoChange
		},
	})
	if err != nil {
		return nil, err
	}

	res := &VerifyResult{Task: t, Completed: passed}
	if passed {
		res.Message = fmt.Sprintf("Task %s completed successfully. next work is using `create_memory` to record it.", t.Name)
	} else {
		res.Message = fmt.Sprintf("Task %s needs improvement (score: %d/100), please use todo_write to append new todos for remaining issues", t.Name, score)
	}
	return res, nil
}
