package tasks

import (
	"strings"

	"github.com/HendryAvila/taskmem/internal/validate"
)

// Status is the lifecycle state of a task.
type Status string

const (
	StatusPending    Status = "pending"
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
	StatusCancelled  Status = "cancelled"
)

// Statuses lists every task status in display order.
var Statuses = []Status{StatusPending, StatusInProgress, StatusCompleted, StatusFailed, StatusCancelled}

func (s Status) Valid() bool {
	for _, v := range Statuses {
		if s == v {
			return true
		}
	}
	return false
}

// Operation names the mutation a version record captures.
type Operation string

const (
	OpCreate   Operation = "create"
	OpUpdate   Operation = "update"
	OpDelete   Operation = "delete"
	OpRollback Operation = "rollback"
)

// Todo priorities and statuses.
const (
	PriorityLow    = "low"
	PriorityMedium = "medium"
	PriorityHigh   = "high"

	TodoPending    = "pending"
	TodoInProgress = "in_progress"
	TodoCompleted  = "completed"
	TodoCancelled  = "cancelled"
)

// RelatedFile is shared with the validator.
type RelatedFile = validate.RelatedFile

// TodoItem is embedded in its task and has no identity outside it.
type TodoItem struct {
	ID       string `json:"id"`
	Content  string `json:"content"`
	Priority string `json:"priority"`
	Status   string `json:"status"`
}

// Terminal reports whether the item needs no further work.
func (t TodoItem) Terminal() bool {
	return t.Status == TodoCompleted || t.Status == TodoCancelled
}

// Task is the current-state projection of a unit of work.
type Task struct {
	ID                   string        `json:"id"`
	ProjectID            string        `json:"project_id"`
	Name                 string        `json:"name"`
	Description          string        `json:"description"`
	Status               Status        `json:"status"`
	Dependencies         []string      `json:"dependencies"`
	Notes                string        `json:"notes,omitempty"`
	ImplementationGuide  string        `json:"implementation_guide,omitempty"`
	VerificationCriteria string        `json:"verification_criteria,omitempty"`
	RelatedFiles         []RelatedFile `json:"related_files"`
	Summary              string        `json:"summary,omitempty"`
	Todos                []TodoItem    `json:"todos"`
	CurrentVersionID     *string       `json:"current_version_id"`
	VersionNumber        int           `json:"version_number"`
	CreatedAt            string        `json:"created_at"`
	UpdatedAt            string        `json:"updated_at"`
	DeletedAt            *string       `json:"deleted_at,omitempty"`
}

// Active reports whether the task has not been soft-deleted.
func (t *Task) Active() bool { return t.DeletedAt == nil }

// TaskSummary is the compact row list_tasks returns.
type TaskSummary struct {
	ID           string   `json:"id"`
	Name         string   `json:"name"`
	Description  string   `json:"description"`
	Status       Status   `json:"status"`
	Dependencies []string `json:"dependencies"`
	Notes        string   `json:"notes,omitempty"`
}

func (t *Task) Summarize() TaskSummary {
	return TaskSummary{
		ID:           t.ID,
		Name:         t.Name,
		Description:  t.Description,
		Status:       t.Status,
		Dependencies: t.Dependencies,
		Notes:        t.Notes,
	}
}

// TaskInput is the shape accepted by create and by each bulk proposal.
// Dependencies may mix ids and task names.
type TaskInput struct {
	Name                 string        `json:"name" yaml:"name"`
	Description          string        `json:"description" yaml:"description"`
	Notes                string        `json:"notes,omitempty" yaml:"notes,omitempty"`
	ImplementationGuide  string        `json:"implementation_guide,omitempty" yaml:"implementation_guide,omitempty"`
	VerificationCriteria string        `json:"verification_criteria,omitempty" yaml:"verification_criteria,omitempty"`
	Dependencies         []string      `json:"dependencies,omitempty" yaml:"dependencies,omitempty"`
	RelatedFiles         []RelatedFile `json:"related_files,omitempty" yaml:"related_files,omitempty"`
	Summary              string        `json:"summary,omitempty" yaml:"summary,omitempty"`

	// defaultSummary is stored when Summary is empty. The bulk reconciler
	// puts the global analysis here; it skips the summary length check.
	defaultSummary string
}

func (in TaskInput) fields() validate.TaskFields {
	return validate.TaskFields{
		Name:                 strings.TrimSpace(in.Name),
		Description:          in.Description,
		ImplementationGuide:  in.ImplementationGuide,
		VerificationCriteria: in.VerificationCriteria,
		Dependencies:         in.Dependencies,
		RelatedFiles:         in.RelatedFiles,
		Summary:              in.Summary,
	}
}

// TaskUpdate is a partial update; nil fields are left unchanged.
type TaskUpdate struct {
	Name                 *string        `json:"name,omitempty"`
	Description          *string        `json:"description,omitempty"`
	Status               *Status        `json:"status,omitempty"`
	Notes                *string        `json:"notes,omitempty"`
	ImplementationGuide  *string        `json:"implementation_guide,omitempty"`
	VerificationCriteria *string        `json:"verification_criteria,omitempty"`
	Dependencies         *[]string      `json:"dependencies,omitempty"`
	RelatedFiles         *[]RelatedFile `json:"related_files,omitempty"`
}

// Empty reports whether the update carries no field.
func (u TaskUpdate) Empty() bool {
	return u.Name == nil && u.Description == nil && u.Status == nil && u.Notes == nil &&
		u.ImplementationGuide == nil && u.VerificationCriteria == nil &&
		u.Dependencies == nil && u.RelatedFiles == nil
}

// TaskVersion is an immutable snapshot written on every mutation.
type TaskVersion struct {
	ID            string    `json:"id"`
	TaskID        string    `json:"task_id"`
	ProjectID     string    `json:"project_id"`
	VersionNumber int       `json:"version_number"`
	Payload       Task      `json:"payload"`
	Operation     Operation `json:"operation"`
	ChangedBy     string    `json:"changed_by"`
	Timestamp     string    `json:"timestamp"`
	Message       string    `json:"message"`
	Archived      bool      `json:"archived"`
}

// ListOptions filters and pages a task listing.
type ListOptions struct {
	Status Status
	Skip   int
	Limit  int
}

// Statistics counts active tasks by status.
type Statistics struct {
	ProjectID    string         `json:"project_id"`
	TotalTasks   int            `json:"total_tasks"`
	StatusCounts map[Status]int `json:"status_counts"`
	Pending      int            `json:"pending"`
	InProgress   int            `json:"in_progress"`
	Completed    int            `json:"completed"`
	Failed       int            `json:"failed"`
	Cancelled    int            `json:"cancelled"`
}

// GraphNode is one neighbour in a dependency graph.
type GraphNode struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Status Status `json:"status"`
}

// DependencyGraph describes a task's direct neighbours.
type DependencyGraph struct {
	TaskID       string      `json:"task_id"`
	TaskName     string      `json:"task_name"`
	Dependencies []GraphNode `json:"dependencies"`
	Dependents   []GraphNode `json:"dependents"`
	CanStart     bool        `json:"can_start"`
}

// ProjectPurge reports what deleteProjectTasks removed.
type ProjectPurge struct {
	DeletedTasks    int      `json:"deleted_tasks"`
	DeletedVersions int      `json:"deleted_versions"`
	TaskIDs         []string `json:"task_ids"`
}

// VerifyResult carries the task after verification and the message shown
// to the agent.
type VerifyResult struct {
	Task      *Task  `json:"task"`
	Completed bool   `json:"completed"`
	Message   string `json:"message"`
}

// TodoResult is returned by SetTodos.
type TodoResult struct {
	Todos        []TodoItem `json:"todos"`
	AllCompleted bool       `json:"all_completed"`
	Task         *Task      `json:"-"`
}
