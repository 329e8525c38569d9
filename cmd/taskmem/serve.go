package main

import (
	"log/slog"
	"os"

	"github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"

	tmserver "github.com/HendryAvila/taskmem/internal/server"
)

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the MCP server (stdio transport)",
		Long: `Start the MCP server on stdin/stdout. Logs go to stderr.

Add to your AI tool's MCP config:

  {
    "mcpServers": {
      "taskmem": {
        "command": "taskmem",
        "args": ["serve"],
        "env": {"TASKMEM_PROJECT_ID": "my-project"}
      }
    }
  }`,
		RunE: func(cmd *cobra.Command, args []string) error {
			// stdout belongs to the protocol.
			a, err := newApp(os.Stderr)
			if err != nil {
				return err
			}
			defer func() { _ = a.Close() }()

			slog.Info("serving MCP over stdio", "project_id", a.env.ProjectID, "data_dir", a.env.DataDir)
			return server.ServeStdio(tmserver.New(a.env, a.tasks, a.memories))
		},
	}
}
