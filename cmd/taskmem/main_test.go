package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/HendryAvila/taskmem/internal/resources"
	"github.com/HendryAvila/taskmem/internal/tasks"
)

const planYAML = `
global_analysis: Split the parser out of the CLI so both can be tested alone.
tasks:
  - name: Extract lexer
    description: Move tokenizing into its own package
  - name: Wire CLI
    description: Call the new lexer from the command line entry point
    dependencies: [Extract lexer]
`

func run(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	root := newRootCmd()
	root.SetOut(&out)
	root.SetErr(&errOut)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), errOut.String(), err
}

func writePlan(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "plan.yaml")
	require.NoError(t, os.WriteFile(path, []byte(planYAML), 0o600))
	return path
}

func TestVersionCmd(t *testing.T) {
	out, _, err := run(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "taskmem v")
}

func TestImportAndProjects(t *testing.T) {
	t.Setenv("TASKMEM_DATA_DIR", t.TempDir())
	t.Setenv("TASKMEM_LOG_LEVEL", "error")
	path := writePlan(t)

	out, summary, err := run(t, "import", "-p", "alpha", path)
	require.NoError(t, err)
	assert.Contains(t, summary, "alpha: 2 created, 0 updated")

	var res tasks.BulkResult
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	require.Len(t, res.CreatedTasks, 2)
	assert.Equal(t, tasks.ModeAppend, res.UpdateMode)
	wire := res.CreatedTasks[1]
	require.Len(t, wire.Dependencies, 1)
	assert.Equal(t, res.CreatedTasks[0].ID, wire.Dependencies[0])

	out, _, err = run(t, "import", "--project", "alpha", "--mode", "selective", path)
	require.NoError(t, err)
	res = tasks.BulkResult{}
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	assert.Empty(t, res.CreatedTasks)
	assert.Len(t, res.UpdatedTasks, 2)
	assert.Equal(t, 2, res.Summary.TotalInProject)

	out, _, err = run(t, "projects", "--json")
	require.NoError(t, err)
	var idx resources.ProjectsIndex
	require.NoError(t, json.Unmarshal([]byte(out), &idx))
	require.Equal(t, 1, idx.Count)
	assert.Equal(t, "alpha", idx.Projects[0].ProjectID)
	assert.Equal(t, 2, idx.Projects[0].TotalTasks)
	assert.Equal(t, 2, idx.Projects[0].Pending)

	out, _, err = run(t, "projects")
	require.NoError(t, err)
	assert.Contains(t, out, "PROJECT")
	assert.Contains(t, out, "alpha")
}

func TestImport_Errors(t *testing.T) {
	t.Setenv("TASKMEM_DATA_DIR", t.TempDir())
	t.Setenv("TASKMEM_LOG_LEVEL", "error")

	_, _, err := run(t, "import", filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)

	_, _, err = run(t, "import", "--mode", "replace", writePlan(t))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Invalid update mode")

	_, _, err = run(t, "import")
	require.Error(t, err)
}
