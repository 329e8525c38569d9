// Package api serves the REST surface, the MCP streamable HTTP endpoint
// and the metrics endpoint on one listener.
package api

import (
	"context"
	"log/slog"
	"net"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"

	"github.com/HendryAvila/taskmem/internal/cerr"
	"github.com/HendryAvila/taskmem/internal/clog"
	"github.com/HendryAvila/taskmem/internal/config"
	"github.com/HendryAvila/taskmem/internal/memory"
	"github.com/HendryAvila/taskmem/internal/tasks"
)

type Server struct {
	server   *http.Server
	env      *config.Env
	tasks    *tasks.Store
	memories *memory.Store
	mcp      http.Handler
}

// NewServer builds the HTTP server. mcpHandler may be nil, in which case
// /mcp is not mounted. Request contexts are cancelled once Shutdown starts,
// which ends streaming MCP sessions.
func NewServer(env *config.Env, taskStore *tasks.Store, memStore *memory.Store, mcpHandler http.Handler) *Server {
	s := &Server{
		env:      env,
		tasks:    taskStore,
		memories: memStore,
		mcp:      mcpHandler,
	}
	base, cancel := context.WithCancel(context.Background())
	s.server = &http.Server{
		Addr:        net.JoinHostPort(env.HTTPHost, env.HTTPPort),
		Handler:     s.Handler(),
		BaseContext: func(_ net.Listener) context.Context { return base },
	}
	s.server.RegisterOnShutdown(cancel)
	return s
}

// Handler returns the complete HTTP handler, CORS included.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.RequestID,
		clog.SlogChiMiddleware(clog.WithChiFilter(func(r *http.Request) bool {
			return r.URL.Path != "/health" && r.URL.Path != "/metrics"
		})),
		middleware.Recoverer,
		routeMetrics,
	)
	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		cerr.WriteError(r.Context(), w, cerr.NewError(cerr.NotFound, "not found", nil))
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		cerr.WriteJSON(r.Context(), w, http.StatusMethodNotAllowed,
			map[string]string{"code": "method_not_allowed", "message": "method not allowed"})
	})

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	r.Handle("/metrics", promhttp.Handler())
	if s.mcp != nil {
		r.Handle("/mcp", s.mcp)
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/projects", s.listProjects)

		r.Route("/{project_id}", func(r chi.Router) {
			r.Use(projectGuard)

			r.Route("/tasks", func(r chi.Router) {
				r.Post("/", s.createTask)
				r.Get("/", s.listTasks)
				r.Delete("/", s.purgeTasks)
				r.Post("/bulk", s.bulkTasks)
				r.Get("/statistics", s.taskStatistics)

				r.Route("/{task_id}", func(r chi.Router) {
					r.Get("/", s.getTask)
					r.Patch("/", s.updateTask)
					r.Delete("/", s.deleteTask)
					r.Post("/verify", s.verifyTask)
					r.Get("/graph", s.taskGraph)
					r.Get("/versions", s.listVersions)
					r.Post("/revert", s.revertTask)
					r.Get("/todos", s.getTodos)
					r.Put("/todos", s.putTodos)
				})
			})

			r.Route("/memories", func(r chi.Router) {
				r.Post("/", s.createMemory)
				r.Get("/", s.listMemories)
				r.Get("/{memory_id}", s.getMemory)
				r.Patch("/{memory_id}", s.updateMemory)
				r.Delete("/{memory_id}", s.deleteMemory)
			})
		})
	})

	return cors.New(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{
			http.MethodGet, http.MethodPost, http.MethodPut,
			http.MethodPatch, http.MethodDelete, http.MethodOptions,
		},
		AllowedHeaders: []string{"*"},
		ExposedHeaders: []string{"ETag", "Mcp-Session-Id"},
	}).Handler(r)
}

// ListenAndServe blocks until the server stops. After Shutdown, including
// a Shutdown that ran first, it returns http.ErrServerClosed.
func (s *Server) ListenAndServe() error {
	slog.Info("starting server", "addr", s.server.Addr)
	return s.server.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

func (s *Server) operator(changedBy string) string {
	if changedBy != "" {
		return changedBy
	}
	return s.env.Operator
}
