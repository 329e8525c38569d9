package api

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/HendryAvila/taskmem/internal/cerr"
	"github.com/HendryAvila/taskmem/internal/clog"
	"github.com/HendryAvila/taskmem/internal/metrics"
)

// ProjectHeader must equal the project_id path segment.
const ProjectHeader = "X-Project-ID"

// projectGuard rejects requests whose header does not name the project in
// the path.
func projectGuard(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		projectID := chi.URLParam(r, "project_id")
		header := strings.TrimSpace(r.Header.Get(ProjectHeader))
		if header == "" || header != projectID {
			cerr.WriteError(r.Context(), w, cerr.NewError(cerr.PermissionDenied,
				"X-Project-ID header must match the project in the path", nil))
			return
		}
		clog.AddProject(r.Context(), projectID)
		next.ServeHTTP(w, r)
	})
}

// routeMetrics records request counts and latency by route pattern, so
// task ids do not explode label cardinality.
func routeMetrics(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := ""
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			route = rctx.RoutePattern()
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		metrics.ObserveHTTP(r.Method, route, status, time.Since(start))
	})
}
