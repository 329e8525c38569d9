// Package plan reads task plans written as YAML files.
//
// A plan looks like:
//
//	global_analysis: Split the parser out of the CLI.
//	mode: selective
//	tasks:
//	  - name: Extract lexer
//	    description: Move tokenizing into its own package
//	  - name: Wire CLI
//	    dependencies: [Extract lexer]
package plan

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/HendryAvila/taskmem/internal/cerr"
	"github.com/HendryAvila/taskmem/internal/tasks"
)

type Plan struct {
	GlobalAnalysis string            `yaml:"global_analysis"`
	Mode           tasks.UpdateMode  `yaml:"mode"`
	Tasks          []tasks.TaskInput `yaml:"tasks"`
}

// Decode parses one plan document. Unknown keys are rejected so that a
// misspelt field does not silently drop data.
func Decode(r io.Reader) (*Plan, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var p Plan
	if err := dec.Decode(&p); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, cerr.Validation("Plan is empty")
		}
		return nil, cerr.Validation("Invalid plan: " + err.Error())
	}
	if len(p.Tasks) == 0 {
		return nil, cerr.Validation("Plan has no tasks")
	}
	return &p, nil
}

func Load(path string) (*Plan, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read plan %s: %w", path, err)
	}
	return Decode(bytes.NewReader(b))
}

// Request turns the plan into a bulk reconcile call. A non-empty mode
// overrides the one in the file; with neither, the plan is appended.
func (p *Plan) Request(mode tasks.UpdateMode, changedBy string) tasks.ReconcileRequest {
	if mode == "" {
		mode = p.Mode
	}
	if mode == "" {
		mode = tasks.ModeAppend
	}
	return tasks.ReconcileRequest{
		Tasks:          p.Tasks,
		Mode:           mode,
		GlobalAnalysis: p.GlobalAnalysis,
		ChangedBy:      changedBy,
	}
}
