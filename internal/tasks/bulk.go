package tasks

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/HendryAvila/taskmem/internal/cerr"
	"github.com/HendryAvila/taskmem/internal/metrics"
	"github.com/HendryAvila/taskmem/internal/validate"
)

// UpdateMode selects how a batch of proposed tasks is reconciled against
// the project's current tasks.
type UpdateMode string

const (
	// ModeAppend creates every proposal and leaves existing tasks alone.
	ModeAppend UpdateMode = "append"
	// ModeOverwrite soft-deletes every unfinished task, then creates every
	// proposal. Completed tasks survive.
	ModeOverwrite UpdateMode = "overwrite"
	// ModeSelective updates unfinished tasks whose name matches a proposal
	// and creates the rest. A proposal whose name only matches completed
	// tasks is dropped.
	ModeSelective UpdateMode = "selective"
	// ModeClearAll behaves like ModeOverwrite and additionally returns a
	// backup of the tasks that were active beforehand.
	ModeClearAll UpdateMode = "clearAllTasks"
)

func (m UpdateMode) Valid() bool {
	switch m {
	case ModeAppend, ModeOverwrite, ModeSelective, ModeClearAll:
		return true
	}
	return false
}

// ReconcileRequest is one bulk call.
type ReconcileRequest struct {
	Tasks []TaskInput
	Mode  UpdateMode
	// GlobalAnalysis becomes the summary of each created task that did not
	// bring its own.
	GlobalAnalysis string
	ChangedBy      string
}

// Backup is the pre-deletion snapshot returned by ModeClearAll. It is not
// persisted anywhere else.
type Backup struct {
	ProjectID       string  `json:"project_id"`
	BackupTimestamp string  `json:"backup_timestamp"`
	TaskCount       int     `json:"task_count"`
	Tasks           []*Task `json:"tasks"`
}

type BulkFailure struct {
	Name  string `json:"name"`
	Error string `json:"error"`
}

type BulkSummary struct {
	TotalProcessed int `json:"total_processed"`
	CreatedCount   int `json:"created_count"`
	UpdatedCount   int `json:"updated_count"`
	TotalInProject int `json:"total_in_project"`
}

type BulkResult struct {
	CreatedTasks []*Task       `json:"created_tasks"`
	UpdatedTasks []*Task       `json:"updated_tasks"`
	AllTasks     []*Task       `json:"all_tasks"`
	BackupInfo   *Backup       `json:"backup_info,omitempty"`
	UpdateMode   UpdateMode    `json:"update_mode"`
	SkippedNames []string      `json:"skipped_names"`
	Failed       []BulkFailure `json:"failed"`
	Summary      BulkSummary   `json:"summary"`
}

type bulkAction int

const (
	actionCreate bulkAction = iota
	actionUpdate
	actionSkip
)

type bulkStep struct {
	input  TaskInput
	action bulkAction
	id     string
}

// Reconcile applies a batch of proposed tasks under one update mode. The
// whole batch is validated first; afterwards each item goes through the
// single-task create or update path, so every task gets its own version
// records. Creates run after the batch creates they depend on. An item
// that fails is logged and left out of the result while the rest of the
// batch proceeds; batch items depending on it fail in turn.
func (s *Store) Reconcile(ctx context.Context, projectID string, req ReconcileRequest) (*BulkResult, error) {
	if err := checkProject(projectID); err != nil {
		return nil, err
	}
	if !req.Mode.Valid() {
		return nil, cerr.Validation(fmt.Sprintf(
			"Invalid update mode %q; expected append, overwrite, selective or clearAllTasks", req.Mode))
	}

	existing, err := s.queryTasks(ctx, s.db,
		`SELECT `+taskColumns+` FROM tasks t WHERE t.project_id = ? AND t.deleted_at IS NULL
		 ORDER BY t.created_at, t.rowid`, projectID)
	if err != nil {
		return nil, cerr.Storage("load project tasks", err)
	}
	if err := prevalidateBatch(req, existing); err != nil {
		return nil, err
	}

	result := &BulkResult{
		CreatedTasks: []*Task{},
		UpdatedTasks: []*Task{},
		UpdateMode:   req.Mode,
		SkippedNames: []string{},
		Failed:       []BulkFailure{},
	}

	if req.Mode == ModeClearAll {
		result.BackupInfo = &Backup{
			ProjectID:       projectID,
			BackupTimestamp: Now(),
			TaskCount:       len(existing),
			Tasks:           existing,
		}
	}
	if req.Mode == ModeOverwrite || req.Mode == ModeClearAll {
		survivors := existing[:0:0]
		for _, t := range existing {
			if t.Status == StatusCompleted {
				survivors = append(survivors, t)
				continue
			}
			if _, err := s.Delete(ctx, projectID, t.ID, req.ChangedBy); err != nil {
				slog.WarnContext(ctx, "bulk delete failed",
					"project_id", projectID, "task_id", t.ID, "mode", string(req.Mode), "error", err)
				metrics.BulkItems.WithLabelValues(string(req.Mode), "delete_failed").Inc()
				continue
			}
			metrics.BulkItems.WithLabelValues(string(req.Mode), "deleted").Inc()
		}
		existing = survivors
	}

	steps, batch := planBatch(req, existing)
	steps, cyclic := orderSteps(steps)

	for _, step := range steps {
		name := strings.TrimSpace(step.input.Name)
		switch step.action {
		case actionSkip:
			result.SkippedNames = append(result.SkippedNames, name)
			slog.InfoContext(ctx, "bulk proposal dropped: name matches a completed task",
				"project_id", projectID, "name", name)
			metrics.BulkItems.WithLabelValues(string(req.Mode), "skipped").Inc()

		case actionCreate:
			if _, ok := cyclic[name]; ok {
				batch[name] = ""
				result.Failed = append(result.Failed, s.bulkFailure(ctx, projectID, req.Mode, name,
					cerr.Validation(fmt.Sprintf("Task '%s' is blocked by a dependency cycle inside the batch", name))))
				continue
			}
			in := step.input
			in.defaultSummary = req.GlobalAnalysis
			t, err := s.create(ctx, projectID, step.id, in, req.ChangedBy, batch)
			if err != nil {
				batch[name] = ""
				result.Failed = append(result.Failed, s.bulkFailure(ctx, projectID, req.Mode, name, err))
				continue
			}
			batch[name] = t.ID
			result.CreatedTasks = append(result.CreatedTasks, t)
			metrics.BulkItems.WithLabelValues(string(req.Mode), "created").Inc()

		case actionUpdate:
			if _, ok := cyclic[name]; ok {
				result.Failed = append(result.Failed, s.bulkFailure(ctx, projectID, req.Mode, name,
					cerr.Validation(fmt.Sprintf("Task '%s' is blocked by a dependency cycle inside the batch", name))))
				continue
			}
			t, err := s.update(ctx, projectID, step.id, proposalUpdate(step.input), UpdateOptions{
				ChangedBy: req.ChangedBy,
				Message:   fmt.Sprintf("update task (bulk %s)", req.Mode),
			}, batch)
			if err != nil {
				result.Failed = append(result.Failed, s.bulkFailure(ctx, projectID, req.Mode, name, err))
				continue
			}
			result.UpdatedTasks = append(result.UpdatedTasks, t)
			metrics.BulkItems.WithLabelValues(string(req.Mode), "updated").Inc()
		}
	}

	all, err := s.List(ctx, projectID, ListOptions{Limit: s.cfg.MaxListLimit})
	if err != nil {
		return nil, err
	}
	total, err := s.Count(ctx, projectID, "")
	if err != nil {
		return nil, err
	}
	result.AllTasks = all
	result.Summary = BulkSummary{
		TotalProcessed: len(req.Tasks),
		CreatedCount:   len(result.CreatedTasks),
		UpdatedCount:   len(result.UpdatedTasks),
		TotalInProject: total,
	}
	return result, nil
}

func (s *Store) bulkFailure(ctx context.Context, projectID string, mode UpdateMode, name string, err error) BulkFailure {
	slog.WarnContext(ctx, "bulk item failed",
		"project_id", projectID, "name", name, "mode", string(mode), "error", err)
	metrics.BulkItems.WithLabelValues(string(mode), "failed").Inc()
	return BulkFailure{Name: name, Error: cerr.Message(err)}
}

// prevalidateBatch rejects the whole batch before any write. Dependencies
// must name a task of the batch or one that survives the mode's deletions.
func prevalidateBatch(req ReconcileRequest, existing []*Task) error {
	if len(req.Tasks) == 0 {
		return cerr.Validation("No tasks provided")
	}

	var problems []string
	names := make(map[string]struct{}, len(req.Tasks))
	var dups []string
	for i, in := range req.Tasks {
		name := strings.TrimSpace(in.Name)
		if name == "" {
			problems = append(problems, fmt.Sprintf("Task #%d: name must not be empty", i+1))
			continue
		}
		if _, ok := names[name]; ok {
			dups = append(dups, name)
		}
		names[name] = struct{}{}
		if r := validate.TaskInput(in.fields(), true); !r.Valid() {
			problems = append(problems, fmt.Sprintf("Task '%s': %s", name, r.ErrorMessage()))
		}
	}
	if len(dups) > 0 {
		problems = append(problems, "Duplicate task names in batch: "+strings.Join(dups, ", "))
	}
	if len(problems) > 0 {
		return cerr.Validation(problems...)
	}

	surviving := func(t *Task) bool {
		if req.Mode == ModeOverwrite || req.Mode == ModeClearAll {
			return t.Status == StatusCompleted
		}
		return true
	}
	knownIDs := make(map[string]struct{}, len(existing))
	for _, t := range existing {
		if surviving(t) {
			names[t.Name] = struct{}{}
			knownIDs[t.ID] = struct{}{}
		}
	}

	missing := map[string]struct{}{}
	for _, in := range req.Tasks {
		for _, dep := range in.Dependencies {
			d := strings.TrimSpace(dep)
			if _, ok := names[d]; ok {
				continue
			}
			if _, ok := knownIDs[d]; ok {
				continue
			}
			missing[d] = struct{}{}
		}
	}
	if len(missing) > 0 {
		list := make([]string, 0, len(missing))
		for d := range missing {
			list = append(list, d)
		}
		sort.Strings(list)
		e := cerr.NewError(cerr.FailedPrecondition, "Dependencies not found: "+strings.Join(list, ", "), nil)
		e.Tool = cerr.ToolValidationError
		return e
	}
	return nil
}

// planBatch decides the action for every proposal. The returned map holds
// the batch names that already resolve: update targets exist, while a task
// to be created is added only once its insert has succeeded.
func planBatch(req ReconcileRequest, existing []*Task) ([]bulkStep, map[string]string) {
	byName := make(map[string][]*Task)
	for _, t := range existing {
		byName[t.Name] = append(byName[t.Name], t)
	}

	steps := make([]bulkStep, 0, len(req.Tasks))
	batch := make(map[string]string, len(req.Tasks))
	for _, in := range req.Tasks {
		name := strings.TrimSpace(in.Name)
		step := bulkStep{input: in, action: actionCreate}

		if req.Mode == ModeSelective {
			if matches := byName[name]; len(matches) > 0 {
				step.action = actionSkip
				for _, t := range matches {
					if t.Status != StatusCompleted {
						step.action = actionUpdate
						step.id = t.ID
						break
					}
				}
			}
		}
		switch step.action {
		case actionCreate:
			step.id = validate.NewID()
		case actionUpdate:
			batch[name] = step.id
		}
		steps = append(steps, step)
	}
	return steps, batch
}

// orderSteps moves every step after the batch creates it depends on,
// keeping input order otherwise. Steps that can never run because they
// wait on a cycle of creates are returned by name and stay at the end.
func orderSteps(steps []bulkStep) ([]bulkStep, map[string]struct{}) {
	pending := make(map[string]struct{})
	for _, st := range steps {
		if st.action == actionCreate {
			pending[strings.TrimSpace(st.input.Name)] = struct{}{}
		}
	}
	waits := func(st bulkStep) bool {
		if st.action == actionSkip {
			return false
		}
		self := strings.TrimSpace(st.input.Name)
		for _, dep := range st.input.Dependencies {
			d := strings.TrimSpace(dep)
			if _, ok := pending[d]; ok && d != self {
				return true
			}
		}
		return false
	}

	ordered := make([]bulkStep, 0, len(steps))
	done := make([]bool, len(steps))
	for picked := true; picked; {
		picked = false
		for i, st := range steps {
			if done[i] || waits(st) {
				continue
			}
			done[i] = true
			picked = true
			ordered = append(ordered, st)
			if st.action == actionCreate {
				delete(pending, strings.TrimSpace(st.input.Name))
			}
			break
		}
	}

	cyclic := make(map[string]struct{})
	for i, st := range steps {
		if !done[i] {
			cyclic[strings.TrimSpace(st.input.Name)] = struct{}{}
			ordered = append(ordered, st)
		}
	}
	return ordered, cyclic
}

// proposalUpdate turns a proposal into a partial update carrying the
// fields the proposal actually sets.
func proposalUpdate(in TaskInput) TaskUpdate {
	name := strings.TrimSpace(in.Name)
	upd := TaskUpdate{Name: &name}
	if in.Description != "" {
		upd.Description = &in.Description
	}
	if in.Notes != "" {
		upd.Notes = &in.Notes
	}
	if in.ImplementationGuide != "" {
		upd.ImplementationGuide = &in.ImplementationGuide
	}
	if in.VerificationCriteria != "" {
		upd.VerificationCriteria = &in.VerificationCriteria
	}
	if in.Dependencies != nil {
		deps := in.Dependencies
		upd.Dependencies = &deps
	}
	if in.RelatedFiles != nil {
		files := in.RelatedFiles
		upd.RelatedFiles = &files
	}
	return upd
}
