// taskmem: durable task and memory store for LLM agents.
//
// Usage:
//
//	taskmem serve                 # MCP server over stdio
//	taskmem http                  # REST API, MCP over HTTP and /metrics
//	taskmem import plan.yaml      # reconcile a YAML plan into a project
//	taskmem projects              # list known projects
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	tmserver "github.com/HendryAvila/taskmem/internal/server"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "taskmem",
		Short:         "Task and memory store for LLM agents, served over MCP and REST",
		Version:       tmserver.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(httpCmd())
	rootCmd.AddCommand(importCmd())
	rootCmd.AddCommand(projectsCmd())
	rootCmd.AddCommand(versionCmd())
	return rootCmd
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "taskmem v%s\n", tmserver.Version)
		},
	}
}
