package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/HendryAvila/taskmem/internal/plan"
	"github.com/HendryAvila/taskmem/internal/tasks"
)

func importCmd() *cobra.Command {
	var (
		projectID string
		mode      string
		operator  string
	)
	cmd := &cobra.Command{
		Use:   "import [plan.yaml]",
		Short: "Reconcile a YAML task plan into a project",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := plan.Load(args[0])
			if err != nil {
				return err
			}
			a, err := newApp(os.Stderr)
			if err != nil {
				return err
			}
			defer func() { _ = a.Close() }()

			if projectID == "" {
				projectID = a.env.ProjectID
			}
			if operator == "" {
				operator = a.env.Operator
			}
			res, err := a.tasks.Reconcile(cmd.Context(), projectID, p.Request(tasks.UpdateMode(mode), operator))
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.ErrOrStderr(), "%s: %d created, %d updated, %d skipped, %d failed (%d tasks in project)\n",
				projectID, res.Summary.CreatedCount, res.Summary.UpdatedCount,
				len(res.SkippedNames), len(res.Failed), res.Summary.TotalInProject)
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(res)
		},
	}

	cmd.Flags().StringVarP(&projectID, "project", "p", "", "Project to import into (default: TASKMEM_PROJECT_ID)")
	cmd.Flags().StringVarP(&mode, "mode", "m", "", "append, overwrite, selective or clearAllTasks (default: the plan's mode, else append)")
	cmd.Flags().StringVar(&operator, "operator", "", "changed_by recorded on every version (default: TASKMEM_OPERATOR)")
	return cmd
}
