package tasks

import (
	"context"
	"strings"

	"github.com/HendryAvila/taskmem/internal/cerr"
)

// DependencyGraph returns the direct dependencies and dependents of a task.
// CanStart is computed on every call: it holds iff every dependency is an
// active completed task.
func (s *Store) DependencyGraph(ctx context.Context, projectID, taskID string) (*DependencyGraph, error) {
	t, err := s.Get(ctx, projectID, taskID)
	if err != nil {
		return nil, err
	}

	g := &DependencyGraph{
		TaskID:       t.ID,
		TaskName:     t.Name,
		Dependencies: []GraphNode{},
		Dependents:   []GraphNode{},
		CanStart:     true,
	}

	if len(t.Dependencies) > 0 {
		placeholders := strings.TrimSuffix(strings.Repeat("?,", len(t.Dependencies)), ",")
		args := []any{projectID}
		for _, id := range t.Dependencies {
			args = append(args, id)
		}
		deps, err := s.queryTasks(ctx, s.db,
			`SELECT `+taskColumns+` FROM tasks t
			 WHERE t.project_id = ? AND t.deleted_at IS NULL AND t.id IN (`+placeholders+`)`,
			args...,
		)
		if err != nil {
			return nil, cerr.Storage("load dependencies", err)
		}
		byID := make(map[string]*Task, len(deps))
		for _, d := range deps {
			byID[d.ID] = d
		}
		for _, id := range t.Dependencies {
			d, ok := byID[id]
			if !ok {
				g.CanStart = false
				continue
			}
			g.Dependencies = append(g.Dependencies, GraphNode{ID: d.ID, Name: d.Name, Status: d.Status})
			if d.Status != StatusCompleted {
				g.CanStart = false
			}
		}
	}

	dependents, err := s.queryTasks(ctx, s.db,
		`SELECT `+taskColumns+` FROM tasks t, json_each(t.dependencies) j
		 WHERE t.project_id = ? AND t.deleted_at IS NULL AND j.value = ?
		 ORDER BY t.created_at, t.rowid`,
		projectID, t.ID,
	)
	if err != nil {
		return nil, cerr.Storage("load dependents", err)
	}
	for _, d := range dependents {
		g.Dependents = append(g.Dependents, GraphNode{ID: d.ID, Name: d.Name, Status: d.Status})
	}
	return g, nil
}
