// Package tasks implements the task lifecycle: the current-state task
// store, the append-only version log, dependency resolution, bulk
// reconciliation and the embedded todo list.
//
// Every public operation is scoped by project id and returns *cerr.Error
// for known failure modes. Soft-deleted tasks are invisible to every read
// and mutation.
package tasks

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/HendryAvila/taskmem/internal/cerr"
	"github.com/HendryAvila/taskmem/internal/metrics"
	"github.com/HendryAvila/taskmem/internal/validate"
)

// timeNow is a package-level var to allow test injection.
var timeNow = time.Now

// timestampLayout is fixed width so that lexical order is time order.
const timestampLayout = "2006-01-02T15:04:05.000000Z"

// Now returns the current UTC time in the stored timestamp format.
func Now() string {
	return timeNow().UTC().Format(timestampLayout)
}

// ─── Config ──────────────────────────────────────────────────────────────────

// Config holds task store limits.
type Config struct {
	DefaultListLimit int
	MaxListLimit     int
	// MaxRetries bounds how often a mutation without an ifMatch token is
	// retried after losing a race to a concurrent writer.
	MaxRetries int
}

// DefaultConfig returns the limits used when none are configured.
func DefaultConfig() Config {
	return Config{
		DefaultListLimit: 100,
		MaxListLimit:     1000,
		MaxRetries:       3,
	}
}

// ─── Store ───────────────────────────────────────────────────────────────────

// Store persists tasks and their version history in SQLite.
type Store struct {
	db    *sql.DB
	cfg   Config
	hooks storeHooks
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

type queryer interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type storeHooks struct {
	exec    func(ctx context.Context, db execer, query string, args ...any) (sql.Result, error)
	beginTx func(ctx context.Context, db *sql.DB) (*sql.Tx, error)
	commit  func(tx *sql.Tx) error
}

func (s *Store) execHook(ctx context.Context, db execer, query string, args ...any) (sql.Result, error) {
	if s.hooks.exec != nil {
		return s.hooks.exec(ctx, db, query, args...)
	}
	return db.ExecContext(ctx, query, args...)
}

func (s *Store) beginTxHook(ctx context.Context) (*sql.Tx, error) {
	if s.hooks.beginTx != nil {
		return s.hooks.beginTx(ctx, s.db)
	}
	return s.db.BeginTx(ctx, nil)
}

func (s *Store) commitHook(tx *sql.Tx) error {
	if s.hooks.commit != nil {
		return s.hooks.commit(tx)
	}
	return tx.Commit()
}

// New creates a Store on an open database and runs migrations.
func New(db *sql.DB, cfg Config) (*Store, error) {
	def := DefaultConfig()
	if cfg.DefaultListLimit <= 0 {
		cfg.DefaultListLimit = def.DefaultListLimit
	}
	if cfg.MaxListLimit <= 0 {
		cfg.MaxListLimit = def.MaxListLimit
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = def.MaxRetries
	}
	s := &Store{db: db, cfg: cfg}
	if err := s.migrate(context.Background()); err != nil {
		return nil, fmt.Errorf("tasks: migration: %w", err)
	}
	return s, nil
}

// ─── Migrations ──────────────────────────────────────────────────────────────

func (s *Store) migrate(ctx context.Context) error {
	schema := `
		CREATE TABLE IF NOT EXISTS tasks (
			id                    TEXT    PRIMARY KEY,
			project_id            TEXT    NOT NULL,
			name                  TEXT    NOT NULL,
			description           TEXT    NOT NULL DEFAULT '',
			status                TEXT    NOT NULL DEFAULT 'pending',
			dependencies          TEXT    NOT NULL DEFAULT '[]',
			notes                 TEXT    NOT NULL DEFAULT '',
			implementation_guide  TEXT    NOT NULL DEFAULT '',
			verification_criteria TEXT    NOT NULL DEFAULT '',
			related_files         TEXT    NOT NULL DEFAULT '[]',
			summary               TEXT    NOT NULL DEFAULT '',
			todos                 TEXT    NOT NULL DEFAULT '[]',
			version_number        INTEGER NOT NULL DEFAULT 1,
			created_at            TEXT    NOT NULL,
			updated_at            TEXT    NOT NULL,
			deleted_at            TEXT
		);

		CREATE INDEX IF NOT EXISTS idx_tasks_project_status  ON tasks(project_id, status, deleted_at);
		CREATE INDEX IF NOT EXISTS idx_tasks_project_name    ON tasks(project_id, name);
		CREATE INDEX IF NOT EXISTS idx_tasks_project_created ON tasks(project_id, created_at);

		CREATE TABLE IF NOT EXISTS task_versions (
			id             TEXT    PRIMARY KEY,
			task_id        TEXT    NOT NULL,
			project_id     TEXT    NOT NULL,
			version_number INTEGER NOT NULL,
			payload        TEXT    NOT NULL,
			operation      TEXT    NOT NULL,
			changed_by     TEXT    NOT NULL,
			timestamp      TEXT    NOT NULL,
			message        TEXT    NOT NULL DEFAULT '',
			archived       INTEGER NOT NULL DEFAULT 0
		);

		CREATE UNIQUE INDEX IF NOT EXISTS idx_versions_task_number ON task_versions(task_id, version_number);
		CREATE INDEX IF NOT EXISTS idx_versions_project_task_ts    ON task_versions(project_id, task_id, timestamp DESC);
	`
	_, err := s.execHook(ctx, s.db, schema)
	return err
}

// ─── Row mapping ─────────────────────────────────────────────────────────────

// taskColumns selects a task row. current_version_id is derived from the
// highest version_number recorded for the task.
const taskColumns = `
	t.id, t.project_id, t.name, t.description, t.status, t.dependencies, t.notes,
	t.implementation_guide, t.verification_criteria, t.related_files, t.summary, t.todos,
	(SELECT v.id FROM task_versions v WHERE v.task_id = t.id ORDER BY v.version_number DESC LIMIT 1),
	t.version_number, t.created_at, t.updated_at, t.deleted_at`

type scanner interface {
	Scan(dest ...any) error
}

func scanTask(row scanner) (*Task, error) {
	var (
		t                  Task
		status             string
		deps, files, todos string
		currentVersionID   sql.NullString
		deletedAt          sql.NullString
	)
	if err := row.Scan(
		&t.ID, &t.ProjectID, &t.Name, &t.Description, &status, &deps, &t.Notes,
		&t.ImplementationGuide, &t.VerificationCriteria, &files, &t.Summary, &todos,
		&currentVersionID, &t.VersionNumber, &t.CreatedAt, &t.UpdatedAt, &deletedAt,
	); err != nil {
		return nil, err
	}
	t.Status = Status(status)
	if currentVersionID.Valid {
		t.CurrentVersionID = &currentVersionID.String
	}
	if deletedAt.Valid {
		t.DeletedAt = &deletedAt.String
	}
	if err := json.Unmarshal([]byte(deps), &t.Dependencies); err != nil {
		return nil, fmt.Errorf("decode dependencies of %s: %w", t.ID, err)
	}
	if err := json.Unmarshal([]byte(files), &t.RelatedFiles); err != nil {
		return nil, fmt.Errorf("decode related_files of %s: %w", t.ID, err)
	}
	if err := json.Unmarshal([]byte(todos), &t.Todos); err != nil {
		return nil, fmt.Errorf("decode todos of %s: %w", t.ID, err)
	}
	normalizeSlices(&t)
	return &t, nil
}

func normalizeSlices(t *Task) {
	if t.Dependencies == nil {
		t.Dependencies = []string{}
	}
	if t.RelatedFiles == nil {
		t.RelatedFiles = []RelatedFile{}
	}
	if t.Todos == nil {
		t.Todos = []TodoItem{}
	}
}

func encodeJSON(v any) string {
	b, err := json.Marshal(v)
	if err != nil {
		// Only plain structs and slices are encoded here.
		panic(fmt.Sprintf("tasks: encode %T: %v", v, err))
	}
	return string(b)
}

func (s *Store) queryTasks(ctx context.Context, q queryer, query string, args ...any) ([]*Task, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var results []*Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		results = append(results, t)
	}
	return results, rows.Err()
}

// getActive loads an active task inside q.
func (s *Store) getActive(ctx context.Context, q queryer, projectID, taskID string) (*Task, error) {
	row := q.QueryRowContext(ctx,
		`SELECT `+taskColumns+` FROM tasks t WHERE t.id = ? AND t.project_id = ? AND t.deleted_at IS NULL`,
		taskID, projectID,
	)
	t, err := scanTask(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, cerr.TaskNotFound(taskID)
	}
	if err != nil {
		return nil, cerr.Storage("load task", err)
	}
	return t, nil
}

func checkProject(projectID string) error {
	if strings.TrimSpace(projectID) == "" {
		return cerr.Validation("Project ID is required")
	}
	return nil
}

func checkTaskID(taskID string) error {
	if !validate.ObjectID(taskID) {
		return cerr.Validation("Invalid task ID format")
	}
	return nil
}

// ─── Reads ───────────────────────────────────────────────────────────────────

// Get returns an active task.
func (s *Store) Get(ctx context.Context, projectID, taskID string) (*Task, error) {
	if err := checkProject(projectID); err != nil {
		return nil, err
	}
	if err := checkTaskID(taskID); err != nil {
		return nil, err
	}
	return s.getActive(ctx, s.db, projectID, taskID)
}

// TaskActive reports whether taskID names an active task of the project.
func (s *Store) TaskActive(ctx context.Context, projectID, taskID string) (bool, error) {
	_, err := s.Get(ctx, projectID, taskID)
	switch {
	case err == nil:
		return true, nil
	case cerr.IsCode(err, cerr.NotFound):
		return false, nil
	}
	return false, err
}

func (s *Store) clampLimit(limit int) int {
	if limit <= 0 {
		limit = s.cfg.DefaultListLimit
	}
	if limit > s.cfg.MaxListLimit {
		limit = s.cfg.MaxListLimit
	}
	return limit
}

// List returns active tasks ordered by creation time.
func (s *Store) List(ctx context.Context, projectID string, opts ListOptions) ([]*Task, error) {
	if err := checkProject(projectID); err != nil {
		return nil, err
	}
	if opts.Status != "" && !opts.Status.Valid() {
		return nil, cerr.Validation(fmt.Sprintf("Invalid status filter %q", opts.Status))
	}
	if opts.Skip < 0 {
		opts.Skip = 0
	}

	query := `SELECT ` + taskColumns + ` FROM tasks t WHERE t.project_id = ? AND t.deleted_at IS NULL`
	args := []any{projectID}
	if opts.Status != "" {
		query += " AND t.status = ?"
		args = append(args, string(opts.Status))
	}
	query += " ORDER BY t.created_at ASC, t.rowid ASC LIMIT ? OFFSET ?"
	args = append(args, s.clampLimit(opts.Limit), opts.Skip)

	list, err := s.queryTasks(ctx, s.db, query, args...)
	if err != nil {
		return nil, cerr.Storage("list tasks", err)
	}
	return list, nil
}

// Count returns the number of active tasks, optionally filtered by status.
func (s *Store) Count(ctx context.Context, projectID string, status Status) (int, error) {
	query := `SELECT COUNT(*) FROM tasks WHERE project_id = ? AND deleted_at IS NULL`
	args := []any{projectID}
	if status != "" {
		query += " AND status = ?"
		args = append(args, string(status))
	}
	var n int
	if err := s.db.QueryRowContext(ctx, query, args...).Scan(&n); err != nil {
		return 0, cerr.Storage("count tasks", err)
	}
	return n, nil
}

// Statistics counts active tasks by status.
func (s *Store) Statistics(ctx context.Context, projectID string) (*Statistics, error) {
	if err := checkProject(projectID); err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT status, COUNT(*) FROM tasks WHERE project_id = ? AND deleted_at IS NULL GROUP BY status`,
		projectID,
	)
	if err != nil {
		return nil, cerr.Storage("task statistics", err)
	}
	defer func() { _ = rows.Close() }()

	stats := &Statistics{ProjectID: projectID, StatusCounts: map[Status]int{}}
	for _, st := range Statuses {
		stats.StatusCounts[st] = 0
	}
	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, cerr.Storage("task statistics", err)
		}
		stats.StatusCounts[Status(status)] = n
		stats.TotalTasks += n
	}
	if err := rows.Err(); err != nil {
		return nil, cerr.Storage("task statistics", err)
	}
	stats.Pending = stats.StatusCounts[StatusPending]
	stats.InProgress = stats.StatusCounts[StatusInProgress]
	stats.Completed = stats.StatusCounts[StatusCompleted]
	stats.Failed = stats.StatusCounts[StatusFailed]
	stats.Cancelled = stats.StatusCounts[StatusCancelled]
	return stats, nil
}

// Projects returns every project id seen in tasks or versions, sorted.
func (s *Store) Projects(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT project_id FROM tasks
		UNION
		SELECT project_id FROM task_versions
		ORDER BY 1`)
	if err != nil {
		return nil, cerr.Storage("list projects", err)
	}
	defer func() { _ = rows.Close() }()

	projects := []string{}
	for rows.Next() {
		var p string
		if err := rows.Scan(&p); err != nil {
			return nil, cerr.Storage("list projects", err)
		}
		projects = append(projects, p)
	}
	if err := rows.Err(); err != nil {
		return nil, cerr.Storage("list projects", err)
	}
	return projects, nil
}

// ─── Create ──────────────────────────────────────────────────────────────────

// Create validates input, resolves dependencies and persists a new task
// at version 1 together with its create record.
func (s *Store) Create(ctx context.Context, projectID string, in TaskInput, changedBy string) (*Task, error) {
	return s.create(ctx, projectID, "", in, changedBy, nil)
}

// create inserts a task. id may be pre-assigned by the bulk reconciler;
// batch maps names of tasks proposed in the same batch to their ids.
func (s *Store) create(ctx context.Context, projectID, id string, in TaskInput, changedBy string, batch map[string]string) (*Task, error) {
	if err := checkProject(projectID); err != nil {
		return nil, err
	}
	res := validate.TaskInput(in.fields(), true)
	if err := res.Err(); err != nil {
		return nil, err
	}
	if id == "" {
		id = validate.NewID()
	}

	tx, err := s.beginTxHook(ctx)
	if err != nil {
		return nil, cerr.Storage("begin transaction", err)
	}
	defer func() { _ = tx.Rollback() }()

	deps, err := resolveDependencies(ctx, tx, projectID, in.Dependencies, batch)
	if err != nil {
		return nil, err
	}
	res.Merge(validate.Dependencies(deps))
	if err := res.Err(); err != nil {
		return nil, err
	}
	logWarnings(ctx, projectID, res.Warnings)

	now := Now()
	t := &Task{
		ID:                   id,
		ProjectID:            projectID,
		Name:                 strings.TrimSpace(in.Name),
		Description:          in.Description,
		Status:               StatusPending,
		Dependencies:         deps,
		Notes:                in.Notes,
		ImplementationGuide:  in.ImplementationGuide,
		VerificationCriteria: in.VerificationCriteria,
		RelatedFiles:         in.RelatedFiles,
		Summary:              in.Summary,
		VersionNumber:        1,
		CreatedAt:            now,
		UpdatedAt:            now,
	}
	if strings.TrimSpace(t.Summary) == "" {
		t.Summary = in.defaultSummary
	}
	normalizeSlices(t)

	if _, err := s.execHook(ctx, tx, `
		INSERT INTO tasks (id, project_id, name, description, status, dependencies, notes,
		                   implementation_guide, verification_criteria, related_files, summary, todos,
		                   version_number, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.ID, t.ProjectID, t.Name, t.Description, string(t.Status), encodeJSON(t.Dependencies), t.Notes,
		t.ImplementationGuide, t.VerificationCriteria, encodeJSON(t.RelatedFiles), t.Summary, encodeJSON(t.Todos),
		t.VersionNumber, t.CreatedAt, t.UpdatedAt,
	); err != nil {
		if isUniqueViolation(err) {
			return nil, cerr.NewError(cerr.AlreadyExists, fmt.Sprintf("Task %s already exists", t.ID), err)
		}
		return nil, cerr.Storage("insert task", err)
	}

	if vid := s.writeVersion(ctx, tx, t, OpCreate, changedBy, ""); vid != "" {
		t.CurrentVersionID = &vid
	}
	if err := s.commitHook(tx); err != nil {
		return nil, cerr.Storage("commit task", err)
	}
	metrics.TaskMutations.WithLabelValues(string(OpCreate)).Inc()
	return t, nil
}

// ─── Mutations ───────────────────────────────────────────────────────────────

// errLostRace marks a conditional update that matched no row because a
// concurrent writer bumped version_number first.
var errLostRace = errors.New("tasks: concurrent modification")

// errNoChange lets a mutation decide after inspection that nothing needs
// to be written.
var errNoChange = errors.New("tasks: no change")

type mutation struct {
	op        Operation
	changedBy string
	message   string
	ifMatch   string
	// apply edits t in place. It may read through q, which is the open
	// transaction.
	apply func(ctx context.Context, q queryer, t *Task) error
}

// mutate runs one read-modify-write cycle on an active task. The task row
// is rewritten under a version_number guard and the version record is
// appended in the same transaction. Without an ifMatch token a lost race
// is retried, which gives last-write-wins.
func (s *Store) mutate(ctx context.Context, projectID, taskID string, m mutation) (*Task, error) {
	if err := checkProject(projectID); err != nil {
		return nil, err
	}
	if err := checkTaskID(taskID); err != nil {
		return nil, err
	}
	for attempt := 0; ; attempt++ {
		t, err := s.mutateOnce(ctx, projectID, taskID, m)
		if !errors.Is(err, errLostRace) {
			return t, err
		}
		if m.ifMatch != "" || attempt >= s.cfg.MaxRetries {
			return nil, cerr.NewError(cerr.Aborted,
				fmt.Sprintf("Version conflict: task %s was modified concurrently", taskID), err)
		}
	}
}

func (s *Store) mutateOnce(ctx context.Context, projectID, taskID string, m mutation) (*Task, error) {
	tx, err := s.beginTxHook(ctx)
	if err != nil {
		return nil, cerr.Storage("begin transaction", err)
	}
	defer func() { _ = tx.Rollback() }()

	cur, err := s.getActive(ctx, tx, projectID, taskID)
	if err != nil {
		return nil, err
	}
	if m.ifMatch != "" && (cur.CurrentVersionID == nil || *cur.CurrentVersionID != m.ifMatch) {
		have := "none"
		if cur.CurrentVersionID != nil {
			have = *cur.CurrentVersionID
		}
		return nil, cerr.NewError(cerr.Aborted,
			fmt.Sprintf("Version conflict: task %s is at version %s, expected %s", taskID, have, m.ifMatch), nil)
	}

	next := cur.clone()
	if err := m.apply(ctx, tx, next); err != nil {
		if errors.Is(err, errNoChange) {
			return cur, nil
		}
		return nil, err
	}
	next.VersionNumber = cur.VersionNumber + 1
	next.UpdatedAt = Now()
	normalizeSlices(next)

	res, err := s.execHook(ctx, tx, `
		UPDATE tasks
		SET name = ?, description = ?, status = ?, dependencies = ?, notes = ?,
		    implementation_guide = ?, verification_criteria = ?, related_files = ?,
		    summary = ?, todos = ?, version_number = ?, updated_at = ?, deleted_at = ?
		WHERE id = ? AND project_id = ? AND version_number = ? AND deleted_at IS NULL`,
		next.Name, next.Description, string(next.Status), encodeJSON(next.Dependencies), next.Notes,
		next.ImplementationGuide, next.VerificationCriteria, encodeJSON(next.RelatedFiles),
		next.Summary, encodeJSON(next.Todos), next.VersionNumber, next.UpdatedAt, next.DeletedAt,
		taskID, projectID, cur.VersionNumber,
	)
	if err != nil {
		return nil, cerr.Storage("update task", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, errLostRace
	}

	if vid := s.writeVersion(ctx, tx, next, m.op, m.changedBy, m.message); vid != "" {
		next.CurrentVersionID = &vid
	}
	if err := s.commitHook(tx); err != nil {
		return nil, cerr.Storage("commit task", err)
	}
	metrics.TaskMutations.WithLabelValues(string(m.op)).Inc()
	return next, nil
}

func (t *Task) clone() *Task {
	c := *t
	c.Dependencies = append([]string(nil), t.Dependencies...)
	c.RelatedFiles = append([]RelatedFile(nil), t.RelatedFiles...)
	c.Todos = append([]TodoItem(nil), t.Todos...)
	return &c
}

// UpdateOptions carries the audit and concurrency parameters of an update.
type UpdateOptions struct {
	ChangedBy string
	// IfMatch, when set, must equal the task's current_version_id.
	IfMatch string
	Message string
}

// Update applies a partial update. A direct transition to completed is
// rejected; completion goes through Verify.
func (s *Store) Update(ctx context.Context, projectID, taskID string, upd TaskUpdate, opts UpdateOptions) (*Task, error) {
	return s.update(ctx, projectID, taskID, upd, opts, nil)
}

func (s *Store) update(ctx context.Context, projectID, taskID string, upd TaskUpdate, opts UpdateOptions, batch map[string]string) (*Task, error) {
	if upd.Empty() {
		return nil, cerr.Validation("No fields to update")
	}
	if err := validateUpdate(upd).Err(); err != nil {
		return nil, err
	}

	return s.mutate(ctx, projectID, taskID, mutation{
		op:        OpUpdate,
		changedBy: opts.ChangedBy,
		message:   opts.Message,
		ifMatch:   opts.IfMatch,
		apply: func(ctx context.Context, q queryer, t *Task) error {
			if upd.Dependencies != nil {
				deps, err := resolveDependencies(ctx, q, projectID, *upd.Dependencies, batch)
				if err != nil {
					return err
				}
				t.Dependencies = deps
			}
			applyUpdate(t, upd)
			return nil
		},
	})
}

func validateUpdate(upd TaskUpdate) validate.Result {
	var r validate.Result
	if upd.Name != nil {
		r.Merge(validate.Name(*upd.Name))
	}
	if upd.Description != nil {
		r.Merge(validate.Description(*upd.Description))
	}
	if upd.ImplementationGuide != nil {
		r.Merge(validate.ImplementationGuide(*upd.ImplementationGuide))
	}
	if upd.VerificationCriteria != nil {
		r.Merge(validate.VerificationCriteria(*upd.VerificationCriteria))
	}
	if upd.RelatedFiles != nil {
		r.Merge(validate.RelatedFiles(*upd.RelatedFiles))
	}
	if upd.Status != nil {
		switch {
		case !upd.Status.Valid():
			r.AddError("Invalid status %q", *upd.Status)
		case *upd.Status == StatusCompleted:
			r.AddError("Status cannot be set to completed directly; use verify_task")
		}
	}
	return r
}

func applyUpdate(t *Task, upd TaskUpdate) {
	if upd.Name != nil {
		t.Name = strings.TrimSpace(*upd.Name)
	}
	if upd.Description != nil {
		t.Description = *upd.Description
	}
	if upd.Status != nil {
		t.Status = *upd.Status
	}
	if upd.Notes != nil {
		t.Notes = *upd.Notes
	}
	if upd.ImplementationGuide != nil {
		t.ImplementationGuide = *upd.ImplementationGuide
	}
	if upd.VerificationCriteria != nil {
		t.VerificationCriteria = *upd.VerificationCriteria
	}
	if upd.RelatedFiles != nil {
		t.RelatedFiles = *upd.RelatedFiles
	}
}

// Delete soft-deletes an active task and records a delete version.
// Deleting an already deleted task reports NotFound.
func (s *Store) Delete(ctx context.Context, projectID, taskID, changedBy string) (bool, error) {
	_, err := s.mutate(ctx, projectID, taskID, mutation{
		op:        OpDelete,
		changedBy: changedBy,
		apply: func(_ context.Context, _ queryer, t *Task) error {
			now := Now()
			t.DeletedAt = &now
			return nil
		},
	})
	if err != nil {
		return false, err
	}
	return true, nil
}

// DeleteProjectTasks soft-deletes every active task of the project and
// hard-deletes all of its version records. It cannot be undone.
func (s *Store) DeleteProjectTasks(ctx context.Context, projectID string) (*ProjectPurge, error) {
	if err := checkProject(projectID); err != nil {
		return nil, err
	}
	tx, err := s.beginTxHook(ctx)
	if err != nil {
		return nil, cerr.Storage("begin transaction", err)
	}
	defer func() { _ = tx.Rollback() }()

	rows, err := tx.QueryContext(ctx,
		`SELECT id FROM tasks WHERE project_id = ? AND deleted_at IS NULL ORDER BY created_at, rowid`, projectID)
	if err != nil {
		return nil, cerr.Storage("list project tasks", err)
	}
	ids := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			_ = rows.Close()
			return nil, cerr.Storage("list project tasks", err)
		}
		ids = append(ids, id)
	}
	_ = rows.Close()
	if err := rows.Err(); err != nil {
		return nil, cerr.Storage("list project tasks", err)
	}

	now := Now()
	if _, err := s.execHook(ctx, tx,
		`UPDATE tasks SET deleted_at = ?, updated_at = ? WHERE project_id = ? AND deleted_at IS NULL`,
		now, now, projectID,
	); err != nil {
		return nil, cerr.Storage("delete project tasks", err)
	}
	res, err := s.execHook(ctx, tx, `DELETE FROM task_versions WHERE project_id = ?`, projectID)
	if err != nil {
		return nil, cerr.Storage("delete project versions", err)
	}
	versions, _ := res.RowsAffected()

	if err := s.commitHook(tx); err != nil {
		return nil, cerr.Storage("commit project delete", err)
	}
	slog.InfoContext(ctx, "project tasks purged",
		"project_id", projectID, "deleted_tasks", len(ids), "deleted_versions", versions)
	return &ProjectPurge{DeletedTasks: len(ids), DeletedVersions: int(versions), TaskIDs: ids}, nil
}

// ─── Helpers ─────────────────────────────────────────────────────────────────

func logWarnings(ctx context.Context, projectID string, warnings []string) {
	for _, w := range warnings {
		slog.DebugContext(ctx, "task input warning", "project_id", projectID, "warning", w)
	}
}

// isUniqueViolation checks if an error is a SQLite UNIQUE constraint violation.
func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
