package tasks

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/HendryAvila/taskmem/internal/cerr"
	"github.com/HendryAvila/taskmem/internal/metrics"
	"github.com/HendryAvila/taskmem/internal/validate"
)

// writeVersion appends the snapshot of t inside a savepoint of tx and
// returns the new version id. A failed insert rolls back to the savepoint,
// is logged, and returns "" so that the task mutation still commits.
func (s *Store) writeVersion(ctx context.Context, tx *sql.Tx, t *Task, op Operation, changedBy, message string) string {
	id := validate.NewID()
	if message == "" {
		message = fmt.Sprintf("%s task", op)
	}
	if changedBy == "" {
		changedBy = "system"
	}

	snapshot := t.clone()
	snapshot.CurrentVersionID = &id

	fail := func(err error) string {
		slog.WarnContext(ctx, "version record not written",
			"task_id", t.ID, "project_id", t.ProjectID, "operation", string(op), "error", err)
		metrics.VersionWriteFailures.WithLabelValues(string(op)).Inc()
		return ""
	}

	if _, err := s.execHook(ctx, tx, "SAVEPOINT task_version"); err != nil {
		return fail(err)
	}
	_, err := s.execHook(ctx, tx, `
		INSERT INTO task_versions (id, task_id, project_id, version_number, payload, operation, changed_by, timestamp, message)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		id, t.ID, t.ProjectID, t.VersionNumber, encodeJSON(snapshot), string(op), changedBy, Now(), message,
	)
	if err != nil {
		_, _ = tx.ExecContext(ctx, "ROLLBACK TO SAVEPOINT task_version")
		_, _ = tx.ExecContext(ctx, "RELEASE SAVEPOINT task_version")
		return fail(err)
	}
	if _, err := tx.ExecContext(ctx, "RELEASE SAVEPOINT task_version"); err != nil {
		return fail(err)
	}
	return id
}

const versionColumns = `id, task_id, project_id, version_number, payload, operation, changed_by, timestamp, message, archived`

func scanVersion(row scanner) (*TaskVersion, error) {
	var (
		v        TaskVersion
		payload  string
		op       string
		archived int
	)
	if err := row.Scan(&v.ID, &v.TaskID, &v.ProjectID, &v.VersionNumber, &payload, &op,
		&v.ChangedBy, &v.Timestamp, &v.Message, &archived); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(payload), &v.Payload); err != nil {
		return nil, fmt.Errorf("decode payload of version %s: %w", v.ID, err)
	}
	normalizeSlices(&v.Payload)
	v.Operation = Operation(op)
	v.Archived = archived != 0
	return &v, nil
}

// ListVersions returns the version records of an active task, newest first.
func (s *Store) ListVersions(ctx context.Context, projectID, taskID string, skip, limit int) ([]*TaskVersion, error) {
	if _, err := s.Get(ctx, projectID, taskID); err != nil {
		return nil, err
	}
	if skip < 0 {
		skip = 0
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+versionColumns+` FROM task_versions
		 WHERE project_id = ? AND task_id = ?
		 ORDER BY timestamp DESC, version_number DESC LIMIT ? OFFSET ?`,
		projectID, taskID, s.clampLimit(limit), skip,
	)
	if err != nil {
		return nil, cerr.Storage("list versions", err)
	}
	defer func() { _ = rows.Close() }()

	versions := []*TaskVersion{}
	for rows.Next() {
		v, err := scanVersion(rows)
		if err != nil {
			return nil, cerr.Storage("list versions", err)
		}
		versions = append(versions, v)
	}
	if err := rows.Err(); err != nil {
		return nil, cerr.Storage("list versions", err)
	}
	return versions, nil
}

// GetVersion loads one version record of a task.
func (s *Store) GetVersion(ctx context.Context, projectID, taskID, versionID string) (*TaskVersion, error) {
	if err := checkProject(projectID); err != nil {
		return nil, err
	}
	if !validate.ObjectID(versionID) {
		return nil, cerr.Validation("Invalid version ID format")
	}
	v, err := scanVersion(s.db.QueryRowContext(ctx,
		`SELECT `+versionColumns+` FROM task_versions WHERE id = ? AND task_id = ? AND project_id = ?`,
		versionID, taskID, projectID,
	))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, cerr.VersionNotFound(versionID)
	}
	if err != nil {
		return nil, cerr.Storage("load version", err)
	}
	return v, nil
}

// Revert copies the content of a past version onto the active task. The
// rollback itself is a new version; history is never truncated.
func (s *Store) Revert(ctx context.Context, projectID, taskID, versionID, changedBy string) (*Task, error) {
	if err := checkTaskID(taskID); err != nil {
		return nil, err
	}
	target, err := s.GetVersion(ctx, projectID, taskID, versionID)
	if err != nil {
		return nil, err
	}
	p := target.Payload

	return s.mutate(ctx, projectID, taskID, mutation{
		op:        OpRollback,
		changedBy: changedBy,
		message:   fmt.Sprintf("Reverted to version %s", versionID),
		apply: func(ctx context.Context, q queryer, t *Task) error {
			deps, err := resolveDependencies(ctx, q, projectID, p.Dependencies, nil)
			if err != nil {
				return err
			}
			t.Name = p.Name
			t.Description = p.Description
			t.Status = p.Status
			t.Dependencies = deps
			t.Notes = p.Notes
			t.ImplementationGuide = p.ImplementationGuide
			t.VerificationCriteria = p.VerificationCriteria
			t.RelatedFiles = p.RelatedFiles
			t.Summary = p.Summary
			t.Todos = p.Todos
			return nil
		},
	})
}
