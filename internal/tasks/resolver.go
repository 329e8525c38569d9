package tasks

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/HendryAvila/taskmem/internal/cerr"
	"github.com/HendryAvila/taskmem/internal/validate"
)

// resolveDependencies turns a list of ids and task names into ids of active
// tasks in the project. batch maps names proposed in the same bulk call to
// the ids of tasks already written; an empty id marks a batch item that
// failed. Any unresolvable entry fails the whole list.
//
// Cycles are not detected.
func resolveDependencies(ctx context.Context, q queryer, projectID string, deps []string, batch map[string]string) ([]string, error) {
	resolved := make([]string, 0, len(deps))
	seen := make(map[string]struct{}, len(deps))
	var problems []string

	batchIDs := make(map[string]struct{}, len(batch))
	for _, id := range batch {
		if id != "" {
			batchIDs[id] = struct{}{}
		}
	}

	for _, raw := range deps {
		entry := strings.TrimSpace(raw)
		if entry == "" {
			problems = append(problems, "Dependency entry is empty")
			continue
		}

		var id string
		var problem string
		var err error
		if validate.ObjectID(entry) {
			if _, ok := batchIDs[entry]; ok {
				id = entry
			} else {
				id, problem, err = resolveByID(ctx, q, projectID, entry)
			}
		} else if bid, ok := batch[entry]; ok {
			if bid == "" {
				problem = fmt.Sprintf("Task '%s' of the same batch was not created", entry)
			}
			id = bid
		} else {
			id, problem, err = resolveByName(ctx, q, projectID, entry)
		}
		if err != nil {
			return nil, cerr.Storage("resolve dependencies", err)
		}
		if problem != "" {
			problems = append(problems, problem)
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		resolved = append(resolved, id)
	}

	if len(problems) > 0 {
		return nil, cerr.Validation(problems...)
	}
	return resolved, nil
}

func resolveByID(ctx context.Context, q queryer, projectID, id string) (string, string, error) {
	var deletedAt sql.NullString
	err := q.QueryRowContext(ctx,
		`SELECT deleted_at FROM tasks WHERE id = ? AND project_id = ?`, id, projectID,
	).Scan(&deletedAt)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return "", fmt.Sprintf("Task ID %s not found", id), nil
	case err != nil:
		return "", "", err
	case deletedAt.Valid:
		return "", fmt.Sprintf("Task ID %s has been deleted", id), nil
	}
	return id, "", nil
}

// resolveByName picks the oldest active task with the exact name.
func resolveByName(ctx context.Context, q queryer, projectID, name string) (string, string, error) {
	var id string
	err := q.QueryRowContext(ctx,
		`SELECT id FROM tasks WHERE project_id = ? AND name = ? AND deleted_at IS NULL
		 ORDER BY created_at, rowid LIMIT 1`, projectID, name,
	).Scan(&id)
	if err == nil {
		return id, "", nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return "", "", err
	}

	var n int
	if err := q.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM tasks WHERE project_id = ? AND name = ?`, projectID, name,
	).Scan(&n); err != nil {
		return "", "", err
	}
	if n > 0 {
		return "", fmt.Sprintf("Task name '%s' only matches deleted tasks", name), nil
	}
	return "", fmt.Sprintf("Task name '%s' not found", name), nil
}
