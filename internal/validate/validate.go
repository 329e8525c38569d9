// Package validate holds the stateless checks applied to task input before
// any storage call. Every check returns a Result carrying hard errors and
// non-fatal warnings; a Result with any error blocks the operation.
package validate

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/HendryAvila/taskmem/internal/cerr"
)

const (
	MaxNameLength         = 100
	MaxDescriptionLength  = 5000
	MaxGuideLength        = 10000
	MaxCriteriaLength     = 2000
	MinSummaryLength      = 30
	MaxSummaryLength      = 1000
	shortDescriptionLimit = 10
)

// Related file types.
const (
	FileToModify   = "TO_MODIFY"
	FileReference  = "REFERENCE"
	FileCreate     = "CREATE"
	FileDependency = "DEPENDENCY"
	FileOther      = "OTHER"
)

var fileTypes = []string{FileToModify, FileReference, FileCreate, FileDependency, FileOther}

// RelatedFile points a task at a file in the caller's workspace, optionally
// narrowed to an inclusive line range.
type RelatedFile struct {
	Path        string `json:"path" yaml:"path"`
	Type        string `json:"type" yaml:"type"`
	Description string `json:"description,omitempty" yaml:"description,omitempty"`
	LineStart   *int   `json:"line_start,omitempty" yaml:"line_start,omitempty"`
	LineEnd     *int   `json:"line_end,omitempty" yaml:"line_end,omitempty"`
}

// TaskFields is the subset of task input the validator inspects.
type TaskFields struct {
	Name                 string
	Description          string
	ImplementationGuide  string
	VerificationCriteria string
	Dependencies         []string
	RelatedFiles         []RelatedFile
	// Summary is checked only when given.
	Summary string
}

type Result struct {
	Errors   []string `json:"errors"`
	Warnings []string `json:"warnings"`
}

func (r *Result) AddError(format string, args ...any) {
	r.Errors = append(r.Errors, fmt.Sprintf(format, args...))
}

func (r *Result) AddWarning(format string, args ...any) {
	r.Warnings = append(r.Warnings, fmt.Sprintf(format, args...))
}

func (r *Result) Merge(o Result) {
	r.Errors = append(r.Errors, o.Errors...)
	r.Warnings = append(r.Warnings, o.Warnings...)
}

func (r Result) Valid() bool { return len(r.Errors) == 0 }

func (r Result) ErrorMessage() string { return strings.Join(r.Errors, "; ") }

// Err converts the result into an InvalidArgument error, or nil when valid.
func (r Result) Err() error {
	if r.Valid() {
		return nil
	}
	return cerr.Validation(r.Errors...)
}

// ObjectID reports whether id is exactly 24 hexadecimal characters.
func ObjectID(id string) bool {
	if len(id) != 24 {
		return false
	}
	_, err := primitive.ObjectIDFromHex(id)
	return err == nil
}

// NewID returns a fresh 24-hex identifier.
func NewID() string {
	return primitive.NewObjectID().Hex()
}

// Dependencies checks a resolved dependency list. Every entry must be an
// id; duplicates after trimming only warn.
func Dependencies(deps []string) Result {
	var r Result
	seen := make(map[string]struct{}, len(deps))
	dup := false
	for _, dep := range deps {
		d := strings.TrimSpace(dep)
		if !ObjectID(d) {
			r.AddError("Dependency id has invalid format (must be a 24-character hex id): %q", dep)
		}
		if _, ok := seen[d]; ok {
			dup = true
		}
		seen[d] = struct{}{}
	}
	if dup {
		r.AddWarning("Duplicate dependencies were supplied")
	}
	return r
}

// DependencyEntries checks raw dependency values as they arrive from a
// decoded JSON payload, before name resolution.
func DependencyEntries(raw []any) ([]string, Result) {
	var r Result
	out := make([]string, 0, len(raw))
	for i, v := range raw {
		s, ok := v.(string)
		if !ok {
			r.AddError("Dependency #%d must be a string: %v", i+1, v)
			continue
		}
		if strings.TrimSpace(s) == "" {
			r.AddError("Dependency #%d is empty", i+1)
			continue
		}
		out = append(out, s)
	}
	return out, r
}

func RelatedFiles(files []RelatedFile) Result {
	var r Result
	for i, f := range files {
		n := i + 1
		if strings.TrimSpace(f.Path) == "" {
			r.AddError("File #%d: path must not be empty", n)
		}
		if !validFileType(f.Type) {
			r.AddError("File #%d: invalid file type %q, valid types: %s", n, f.Type, strings.Join(fileTypes, ", "))
		}
		if (f.LineStart == nil) != (f.LineEnd == nil) {
			r.AddError("File #%d: line_start and line_end must both be provided or both omitted", n)
			continue
		}
		if f.LineStart == nil {
			continue
		}
		switch {
		case *f.LineStart > *f.LineEnd:
			r.AddError("File #%d: line_start must not be greater than line_end", n)
		case *f.LineStart < 1:
			r.AddError("File #%d: line numbers must be at least 1", n)
		}
	}
	return r
}

func validFileType(t string) bool {
	for _, ft := range fileTypes {
		if t == ft {
			return true
		}
	}
	return false
}

func Name(name string) Result {
	var r Result
	n := strings.TrimSpace(name)
	switch {
	case n == "":
		r.AddError("Task name must not be empty")
	case utf8.RuneCountInString(n) > MaxNameLength:
		r.AddError("Task name is too long (max %d characters)", MaxNameLength)
	}
	return r
}

func Description(desc string) Result {
	var r Result
	d := strings.TrimSpace(desc)
	l := utf8.RuneCountInString(d)
	switch {
	case l > MaxDescriptionLength:
		r.AddError("Task description is too long (max %d characters)", MaxDescriptionLength)
	case l > 0 && l < shortDescriptionLimit:
		r.AddWarning("Task description is short; consider adding more detail")
	}
	return r
}

func ImplementationGuide(guide string) Result {
	var r Result
	if utf8.RuneCountInString(strings.TrimSpace(guide)) > MaxGuideLength {
		r.AddError("Implementation guide is too long (max %d characters)", MaxGuideLength)
	}
	return r
}

func VerificationCriteria(criteria string) Result {
	var r Result
	if utf8.RuneCountInString(strings.TrimSpace(criteria)) > MaxCriteriaLength {
		r.AddError("Verification criteria are too long (max %d characters)", MaxCriteriaLength)
	}
	return r
}

// TaskInput aggregates the field checks. Dependencies are skipped for bulk
// input, which is checked against the whole batch instead.
func TaskInput(f TaskFields, bulk bool) Result {
	var r Result
	r.Merge(Name(f.Name))
	r.Merge(Description(f.Description))
	if !bulk && len(f.Dependencies) > 0 {
		r.Merge(Dependencies(f.Dependencies))
	}
	if len(f.RelatedFiles) > 0 {
		r.Merge(RelatedFiles(f.RelatedFiles))
	}
	r.Merge(ImplementationGuide(f.ImplementationGuide))
	r.Merge(VerificationCriteria(f.VerificationCriteria))
	if strings.TrimSpace(f.Summary) != "" {
		r.Merge(TaskSummary(f.Summary))
	}
	return r
}

func TaskScore(score int) Result {
	var r Result
	if score < 0 || score > 100 {
		r.AddError("Score must be between 0 and 100")
	}
	return r
}

func TaskSummary(summary string) Result {
	var r Result
	s := strings.TrimSpace(summary)
	l := utf8.RuneCountInString(s)
	switch {
	case s == "":
		r.AddError("Task summary must not be empty")
	case l < MinSummaryLength:
		r.AddError("Task summary must contain at least %d characters", MinSummaryLength)
	case l > MaxSummaryLength:
		r.AddError("Task summary is too long (max %d characters)", MaxSummaryLength)
	}
	return r
}
