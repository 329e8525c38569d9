package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/HendryAvila/taskmem/internal/api"
	tmserver "github.com/HendryAvila/taskmem/internal/server"
)

func httpCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "http",
		Short: "Serve the REST API, MCP over streamable HTTP (/mcp) and /metrics",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(os.Stderr)
			if err != nil {
				return err
			}
			defer func() { _ = a.Close() }()

			mcpHandler := tmserver.NewHTTPHandler(tmserver.New(a.env, a.tasks, a.memories))
			srv := api.NewServer(a.env, a.tasks, a.memories, mcpHandler)

			ctx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGTERM, syscall.SIGINT)
			defer cancel()

			g, gCtx := errgroup.WithContext(ctx)
			g.Go(func() error {
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					return err
				}
				return nil
			})
			g.Go(func() error {
				<-gCtx.Done()
				slog.Info("shutting down server")
				shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
				defer shutdownCancel()
				return srv.Shutdown(shutdownCtx)
			})
			return g.Wait()
		},
	}
}
