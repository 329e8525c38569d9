// Package memory stores free-text knowledge entries that agents write after
// finishing a task, with tag filters and FTS5 text search.
package memory

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/HendryAvila/taskmem/internal/cerr"
	"github.com/HendryAvila/taskmem/internal/validate"
)

// timeNow is a package-level var to allow test injection.
var timeNow = time.Now

const timestampLayout = "2006-01-02T15:04:05.000000Z"

// Now returns the current time formatted for storage.
func Now() string {
	return timeNow().UTC().Format(timestampLayout)
}

// MaxTitleLength bounds memory titles.
const MaxTitleLength = 200

// ─── Types ───────────────────────────────────────────────────────────────────

// Memory is one knowledge entry, optionally tied to the task it came from.
type Memory struct {
	ID             string   `json:"id"`
	ProjectID      string   `json:"project_id"`
	TaskID         *string  `json:"task_id"`
	Title          string   `json:"title"`
	RawText        string   `json:"raw_text"`
	Goal           string   `json:"goal,omitempty"`
	Actions        []string `json:"actions"`
	Outcome        string   `json:"outcome,omitempty"`
	BeneficialOps  []string `json:"beneficial_ops"`
	Improvements   []string `json:"improvements"`
	Suggestions    string   `json:"suggestions,omitempty"`
	Tags           []string `json:"tags"`
	EmbeddingModel string   `json:"embedding_model,omitempty"`
	CreatedAt      string   `json:"created_at"`
	UpdatedAt      string   `json:"updated_at"`
}

// CreateParams holds the fields accepted by Create.
type CreateParams struct {
	TaskID         string   `json:"task_id,omitempty"`
	Title          string   `json:"title"`
	RawText        string   `json:"raw_text"`
	Goal           string   `json:"goal,omitempty"`
	Actions        []string `json:"actions,omitempty"`
	Outcome        string   `json:"outcome,omitempty"`
	BeneficialOps  []string `json:"beneficial_ops,omitempty"`
	Improvements   []string `json:"improvements,omitempty"`
	Suggestions    string   `json:"suggestions,omitempty"`
	Tags           []string `json:"tags,omitempty"`
	EmbeddingModel string   `json:"embedding_model,omitempty"`
}

// UpdateParams is a partial update; nil fields are left unchanged.
type UpdateParams struct {
	Title          *string   `json:"title,omitempty"`
	RawText        *string   `json:"raw_text,omitempty"`
	Goal           *string   `json:"goal,omitempty"`
	Actions        *[]string `json:"actions,omitempty"`
	Outcome        *string   `json:"outcome,omitempty"`
	BeneficialOps  *[]string `json:"beneficial_ops,omitempty"`
	Improvements   *[]string `json:"improvements,omitempty"`
	Suggestions    *string   `json:"suggestions,omitempty"`
	Tags           *[]string `json:"tags,omitempty"`
	EmbeddingModel *string   `json:"embedding_model,omitempty"`
}

func (p UpdateParams) empty() bool {
	return p.Title == nil && p.RawText == nil && p.Goal == nil && p.Actions == nil &&
		p.Outcome == nil && p.BeneficialOps == nil && p.Improvements == nil &&
		p.Suggestions == nil && p.Tags == nil && p.EmbeddingModel == nil
}

// ListOptions filters a listing. Tags match any-of. A non-empty Query
// switches to text search.
type ListOptions struct {
	TaskID string
	Tags   []string
	Query  string
	Skip   int
	Limit  int
}

// ListResult is one page plus the number of matches across all pages.
type ListResult struct {
	Memories []*Memory `json:"memories"`
	Total    int       `json:"total"`
}

// TaskChecker reports whether a task is active in a project.
type TaskChecker interface {
	TaskActive(ctx context.Context, projectID, taskID string) (bool, error)
}

// ─── Config ──────────────────────────────────────────────────────────────────

type Config struct {
	DefaultListLimit int
	MaxListLimit     int
}

func DefaultConfig() Config {
	return Config{DefaultListLimit: 100, MaxListLimit: 1000}
}

// ─── Store ───────────────────────────────────────────────────────────────────

type Store struct {
	db    *sql.DB
	cfg   Config
	tasks TaskChecker
	hooks storeHooks
}

type queryer interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

type storeHooks struct {
	query func(ctx context.Context, db queryer, query string, args ...any) (*sql.Rows, error)
}

func (s *Store) queryHook(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	if s.hooks.query != nil {
		return s.hooks.query(ctx, s.db, query, args...)
	}
	return s.db.QueryContext(ctx, query, args...)
}

// New creates a Store on an open database and runs migrations. tasks is
// consulted when a memory references a task.
func New(db *sql.DB, cfg Config, tasks TaskChecker) (*Store, error) {
	def := DefaultConfig()
	if cfg.DefaultListLimit <= 0 {
		cfg.DefaultListLimit = def.DefaultListLimit
	}
	if cfg.MaxListLimit <= 0 {
		cfg.MaxListLimit = def.MaxListLimit
	}
	s := &Store{db: db, cfg: cfg, tasks: tasks}
	if err := s.migrate(context.Background()); err != nil {
		return nil, fmt.Errorf("memory: migration: %w", err)
	}
	return s, nil
}

// ─── Migrations ──────────────────────────────────────────────────────────────

func (s *Store) migrate(ctx context.Context) error {
	schema := `
		CREATE TABLE IF NOT EXISTS memories (
			id              TEXT PRIMARY KEY,
			project_id      TEXT NOT NULL,
			task_id         TEXT,
			title           TEXT NOT NULL,
			raw_text        TEXT NOT NULL,
			goal            TEXT NOT NULL DEFAULT '',
			actions         TEXT NOT NULL DEFAULT '[]',
			outcome         TEXT NOT NULL DEFAULT '',
			beneficial_ops  TEXT NOT NULL DEFAULT '[]',
			improvements    TEXT NOT NULL DEFAULT '[]',
			suggestions     TEXT NOT NULL DEFAULT '',
			tags            TEXT NOT NULL DEFAULT '[]',
			embedding_model TEXT NOT NULL DEFAULT '',
			created_at      TEXT NOT NULL,
			updated_at      TEXT NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_memories_project_task    ON memories(project_id, task_id);
		CREATE INDEX IF NOT EXISTS idx_memories_project_created ON memories(project_id, created_at DESC);

		CREATE VIRTUAL TABLE IF NOT EXISTS memories_fts USING fts5(
			title,
			raw_text,
			content='memories',
			content_rowid='rowid'
		);

		-- Reserved for vector search; nothing reads it yet.
		CREATE TABLE IF NOT EXISTS embeddings (
			id         TEXT PRIMARY KEY,
			project_id TEXT NOT NULL,
			memory_id  TEXT NOT NULL,
			model      TEXT NOT NULL,
			vector     BLOB,
			created_at TEXT NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_embeddings_project_memory ON embeddings(project_id, memory_id);
	`
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return err
	}

	var name string
	err := s.db.QueryRowContext(ctx,
		"SELECT name FROM sqlite_master WHERE type='trigger' AND name='memories_fts_insert'",
	).Scan(&name)
	if errors.Is(err, sql.ErrNoRows) {
		triggers := `
			CREATE TRIGGER memories_fts_insert AFTER INSERT ON memories BEGIN
				INSERT INTO memories_fts(rowid, title, raw_text)
				VALUES (new.rowid, new.title, new.raw_text);
			END;

			CREATE TRIGGER memories_fts_delete AFTER DELETE ON memories BEGIN
				INSERT INTO memories_fts(memories_fts, rowid, title, raw_text)
				VALUES ('delete', old.rowid, old.title, old.raw_text);
			END;

			CREATE TRIGGER memories_fts_update AFTER UPDATE ON memories BEGIN
				INSERT INTO memories_fts(memories_fts, rowid, title, raw_text)
				VALUES ('delete', old.rowid, old.title, old.raw_text);
				INSERT INTO memories_fts(rowid, title, raw_text)
				VALUES (new.rowid, new.title, new.raw_text);
			END;
		`
		if _, err := s.db.ExecContext(ctx, triggers); err != nil {
			return err
		}
		return nil
	}
	return err
}

// ─── Row mapping ─────────────────────────────────────────────────────────────

const memoryColumns = `m.id, m.project_id, m.task_id, m.title, m.raw_text, m.goal, m.actions, m.outcome,
	m.beneficial_ops, m.improvements, m.suggestions, m.tags, m.embedding_model, m.created_at, m.updated_at`

type scanner interface {
	Scan(dest ...any) error
}

func scanMemory(row scanner) (*Memory, error) {
	var (
		m                                  Memory
		taskID                             sql.NullString
		actions, beneficial, improve, tags string
	)
	if err := row.Scan(&m.ID, &m.ProjectID, &taskID, &m.Title, &m.RawText, &m.Goal, &actions, &m.Outcome,
		&beneficial, &improve, &m.Suggestions, &tags, &m.EmbeddingModel, &m.CreatedAt, &m.UpdatedAt); err != nil {
		return nil, err
	}
	if taskID.Valid {
		m.TaskID = &taskID.String
	}
	for _, f := range []struct {
		raw string
		dst *[]string
	}{{actions, &m.Actions}, {beneficial, &m.BeneficialOps}, {improve, &m.Improvements}, {tags, &m.Tags}} {
		if err := json.Unmarshal([]byte(f.raw), f.dst); err != nil {
			return nil, fmt.Errorf("decode memory %s: %w", m.ID, err)
		}
	}
	normalize(&m)
	return &m, nil
}

func normalize(m *Memory) {
	for _, p := range []*[]string{&m.Actions, &m.BeneficialOps, &m.Improvements, &m.Tags} {
		if *p == nil {
			*p = []string{}
		}
	}
}

func encodeList(v []string) string {
	if v == nil {
		v = []string{}
	}
	b, _ := json.Marshal(v)
	return string(b)
}

func (s *Store) queryMemories(ctx context.Context, query string, args ...any) ([]*Memory, error) {
	rows, err := s.queryHook(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	results := []*Memory{}
	for rows.Next() {
		m, err := scanMemory(rows)
		if err != nil {
			return nil, err
		}
		results = append(results, m)
	}
	return results, rows.Err()
}

// ─── Validation ──────────────────────────────────────────────────────────────

func checkTitle(r *validate.Result, title string) {
	t := strings.TrimSpace(title)
	switch {
	case t == "":
		r.AddError("Memory title must not be empty")
	case utf8.RuneCountInString(t) > MaxTitleLength:
		r.AddError("Memory title is too long (max %d characters)", MaxTitleLength)
	}
}

func checkRawText(r *validate.Result, text string) {
	if strings.TrimSpace(text) == "" {
		r.AddError("Memory raw_text must not be empty")
	}
}

func cleanTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	seen := make(map[string]struct{}, len(tags))
	for _, t := range tags {
		t = strings.TrimSpace(t)
		if t == "" {
			continue
		}
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return out
}

func checkProject(projectID string) error {
	if strings.TrimSpace(projectID) == "" {
		return cerr.Validation("Project ID is required")
	}
	return nil
}

func checkMemoryID(id string) error {
	if !validate.ObjectID(id) {
		return cerr.Validation("Invalid memory ID format")
	}
	return nil
}

// ─── CRUD ────────────────────────────────────────────────────────────────────

// Create stores a memory. A task_id must name an active task of the same
// project.
func (s *Store) Create(ctx context.Context, projectID string, p CreateParams) (*Memory, error) {
	if err := checkProject(projectID); err != nil {
		return nil, err
	}
	var r validate.Result
	checkTitle(&r, p.Title)
	checkRawText(&r, p.RawText)
	taskID := strings.TrimSpace(p.TaskID)
	if taskID != "" && !validate.ObjectID(taskID) {
		r.AddError("Invalid task ID format")
	}
	if err := r.Err(); err != nil {
		return nil, err
	}
	if taskID != "" {
		if err := s.checkTask(ctx, projectID, taskID); err != nil {
			return nil, err
		}
	}

	now := Now()
	m := &Memory{
		ID:             validate.NewID(),
		ProjectID:      projectID,
		Title:          strings.TrimSpace(p.Title),
		RawText:        p.RawText,
		Goal:           p.Goal,
		Actions:        p.Actions,
		Outcome:        p.Outcome,
		BeneficialOps:  p.BeneficialOps,
		Improvements:   p.Improvements,
		Suggestions:    p.Suggestions,
		Tags:           cleanTags(p.Tags),
		EmbeddingModel: p.EmbeddingModel,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if taskID != "" {
		m.TaskID = &taskID
	}
	normalize(m)

	if _, err := s.db.ExecContext(ctx, `
		INSERT INTO memories (id, project_id, task_id, title, raw_text, goal, actions, outcome,
		                      beneficial_ops, improvements, suggestions, tags, embedding_model, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		m.ID, m.ProjectID, m.TaskID, m.Title, m.RawText, m.Goal, encodeList(m.Actions), m.Outcome,
		encodeList(m.BeneficialOps), encodeList(m.Improvements), m.Suggestions, encodeList(m.Tags),
		m.EmbeddingModel, m.CreatedAt, m.UpdatedAt,
	); err != nil {
		return nil, cerr.Storage("insert memory", err)
	}
	return m, nil
}

func (s *Store) checkTask(ctx context.Context, projectID, taskID string) error {
	if s.tasks == nil {
		return nil
	}
	ok, err := s.tasks.TaskActive(ctx, projectID, taskID)
	if err != nil {
		return err
	}
	if !ok {
		return cerr.TaskNotFound(taskID)
	}
	return nil
}

// Get returns one memory.
func (s *Store) Get(ctx context.Context, projectID, id string) (*Memory, error) {
	if err := checkProject(projectID); err != nil {
		return nil, err
	}
	if err := checkMemoryID(id); err != nil {
		return nil, err
	}
	m, err := scanMemory(s.db.QueryRowContext(ctx,
		`SELECT `+memoryColumns+` FROM memories m WHERE m.id = ? AND m.project_id = ?`, id, projectID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, cerr.MemoryNotFound(id)
	}
	if err != nil {
		return nil, cerr.Storage("load memory", err)
	}
	return m, nil
}

// Update applies a partial update.
func (s *Store) Update(ctx context.Context, projectID, id string, p UpdateParams) (*Memory, error) {
	if p.empty() {
		return nil, cerr.Validation("No fields to update")
	}
	var r validate.Result
	if p.Title != nil {
		checkTitle(&r, *p.Title)
	}
	if p.RawText != nil {
		checkRawText(&r, *p.RawText)
	}
	if err := r.Err(); err != nil {
		return nil, err
	}

	m, err := s.Get(ctx, projectID, id)
	if err != nil {
		return nil, err
	}
	if p.Title != nil {
		m.Title = strings.TrimSpace(*p.Title)
	}
	if p.RawText != nil {
		m.RawText = *p.RawText
	}
	if p.Goal != nil {
		m.Goal = *p.Goal
	}
	if p.Actions != nil {
		m.Actions = *p.Actions
	}
	if p.Outcome != nil {
		m.Outcome = *p.Outcome
	}
	if p.BeneficialOps != nil {
		m.BeneficialOps = *p.BeneficialOps
	}
	if p.Improvements != nil {
		m.Improvements = *p.Improvements
	}
	if p.Suggestions != nil {
		m.Suggestions = *p.Suggestions
	}
	if p.Tags != nil {
		m.Tags = cleanTags(*p.Tags)
	}
	if p.EmbeddingModel != nil {
		m.EmbeddingModel = *p.EmbeddingModel
	}
	m.UpdatedAt = Now()
	normalize(m)

	if _, err := s.db.ExecContext(ctx, `
		UPDATE memories
		SET title = ?, raw_text = ?, goal = ?, actions = ?, outcome = ?, beneficial_ops = ?,
		    improvements = ?, suggestions = ?, tags = ?, embedding_model = ?, updated_at = ?
		WHERE id = ? AND project_id = ?`,
		m.Title, m.RawText, m.Goal, encodeList(m.Actions), m.Outcome, encodeList(m.BeneficialOps),
		encodeList(m.Improvements), m.Suggestions, encodeList(m.Tags), m.EmbeddingModel, m.UpdatedAt,
		id, projectID,
	); err != nil {
		return nil, cerr.Storage("update memory", err)
	}
	return m, nil
}

// Delete removes a memory and its reserved embeddings permanently.
func (s *Store) Delete(ctx context.Context, projectID, id string) error {
	if err := checkProject(projectID); err != nil {
		return err
	}
	if err := checkMemoryID(id); err != nil {
		return err
	}
	res, err := s.db.ExecContext(ctx, `DELETE FROM memories WHERE id = ? AND project_id = ?`, id, projectID)
	if err != nil {
		return cerr.Storage("delete memory", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return cerr.MemoryNotFound(id)
	}
	if _, err := s.db.ExecContext(ctx,
		`DELETE FROM embeddings WHERE memory_id = ? AND project_id = ?`, id, projectID); err != nil {
		slog.WarnContext(ctx, "embedding cleanup failed", "memory_id", id, "project_id", projectID, "error", err)
	}
	return nil
}

// ─── List / Search ───────────────────────────────────────────────────────────

func (s *Store) clampLimit(limit int) int {
	if limit <= 0 {
		limit = s.cfg.DefaultListLimit
	}
	if limit > s.cfg.MaxListLimit {
		limit = s.cfg.MaxListLimit
	}
	return limit
}

// filters builds the WHERE clause shared by every listing strategy.
func filters(projectID string, opts ListOptions) (string, []any) {
	where := "m.project_id = ?"
	args := []any{projectID}
	if opts.TaskID != "" {
		where += " AND m.task_id = ?"
		args = append(args, opts.TaskID)
	}
	if tags := cleanTags(opts.Tags); len(tags) > 0 {
		where += " AND EXISTS (SELECT 1 FROM json_each(m.tags) j WHERE j.value IN (" +
			strings.TrimSuffix(strings.Repeat("?,", len(tags)), ",") + "))"
		for _, t := range tags {
			args = append(args, t)
		}
	}
	return where, args
}

// List returns memories matching the filters. With a query it searches
// the FTS5 index; if the index rejects the query it retries as a substring
// match over title and raw_text. Without a query it lists newest first.
func (s *Store) List(ctx context.Context, projectID string, opts ListOptions) (*ListResult, error) {
	if err := checkProject(projectID); err != nil {
		return nil, err
	}
	if opts.TaskID != "" {
		if err := checkMemoryTaskFilter(opts.TaskID); err != nil {
			return nil, err
		}
	}
	if opts.Skip < 0 {
		opts.Skip = 0
	}
	limit := s.clampLimit(opts.Limit)
	where, args := filters(projectID, opts)

	q := strings.TrimSpace(opts.Query)
	if q == "" {
		return s.page(ctx, `FROM memories m WHERE `+where, `ORDER BY m.created_at DESC, m.rowid DESC`, args, opts.Skip, limit)
	}

	ftsArgs := append([]any{sanitizeFTS(q)}, args...)
	res, err := s.page(ctx,
		`FROM memories_fts fts JOIN memories m ON m.rowid = fts.rowid WHERE memories_fts MATCH ? AND `+where,
		`ORDER BY fts.rank`, ftsArgs, opts.Skip, limit)
	if err == nil {
		return res, nil
	}
	slog.WarnContext(ctx, "memory text search failed, falling back to substring match",
		"project_id", projectID, "error", err)

	like := "%" + escapeLike(q) + "%"
	likeArgs := append(append([]any{}, args...), like, like)
	return s.page(ctx,
		`FROM memories m WHERE `+where+` AND (m.title LIKE ? ESCAPE '\' OR m.raw_text LIKE ? ESCAPE '\')`,
		`ORDER BY m.created_at DESC, m.rowid DESC`, likeArgs, opts.Skip, limit)
}

func (s *Store) page(ctx context.Context, from, order string, args []any, skip, limit int) (*ListResult, error) {
	items, err := s.queryMemories(ctx,
		`SELECT `+memoryColumns+` `+from+` `+order+` LIMIT ? OFFSET ?`,
		append(append([]any{}, args...), limit, skip)...)
	if err != nil {
		return nil, cerr.Storage("list memories", err)
	}
	var total int
	rows, err := s.queryHook(ctx, `SELECT COUNT(*) `+from, args...)
	if err != nil {
		return nil, cerr.Storage("count memories", err)
	}
	defer func() { _ = rows.Close() }()
	if rows.Next() {
		if err := rows.Scan(&total); err != nil {
			return nil, cerr.Storage("count memories", err)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, cerr.Storage("count memories", err)
	}
	return &ListResult{Memories: items, Total: total}, nil
}

func checkMemoryTaskFilter(taskID string) error {
	if !validate.ObjectID(taskID) {
		return cerr.Validation("Invalid task ID format")
	}
	return nil
}

// sanitizeFTS wraps each word in quotes for safe FTS5 queries.
// "fix auth bug" → `"fix" "auth" "bug"`
func sanitizeFTS(query string) string {
	words := strings.Fields(query)
	for i, w := range words {
		w = strings.ReplaceAll(w, `"`, "")
		words[i] = `"` + w + `"`
	}
	return strings.Join(words, " ")
}

func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}
