package api

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/HendryAvila/taskmem/internal/cerr"
	"github.com/HendryAvila/taskmem/internal/resources"
	"github.com/HendryAvila/taskmem/internal/tasks"
)

type createTaskRequest struct {
	tasks.TaskInput
	ChangedBy string `json:"changed_by"`
}

type updateTaskRequest struct {
	tasks.TaskUpdate
	Message   string `json:"message"`
	ChangedBy string `json:"changed_by"`
}

type bulkRequest struct {
	Tasks          []tasks.TaskInput `json:"tasks" validate:"required,min=1"`
	UpdateMode     string            `json:"update_mode" validate:"required,oneof=append overwrite selective clearAllTasks"`
	GlobalAnalysis string            `json:"global_analysis_result"`
	ChangedBy      string            `json:"changed_by"`
}

type verifyRequest struct {
	Summary   string `json:"summary"`
	Score     *int   `json:"score" validate:"required,gte=0,lte=100"`
	ChangedBy string `json:"changed_by"`
}

type revertRequest struct {
	VersionID string `json:"version_id" validate:"required,len=24,hexadecimal"`
	ChangedBy string `json:"changed_by"`
}

type todosRequest struct {
	Todos     []tasks.TodoItem `json:"todos" validate:"required"`
	Notes     string           `json:"notes"`
	ChangedBy string           `json:"changed_by"`
}

type taskList struct {
	Tasks []tasks.TaskSummary `json:"tasks"`
	Total int                 `json:"total"`
	Skip  int                 `json:"skip"`
	Limit int                 `json:"limit"`
}

type versionList struct {
	Versions []*tasks.TaskVersion `json:"versions"`
	Skip     int                  `json:"skip"`
	Limit    int                  `json:"limit"`
}

func projectID(r *http.Request) string { return chi.URLParam(r, "project_id") }
func taskID(r *http.Request) string    { return chi.URLParam(r, "task_id") }

// writeTask sets ETag to the task's current version so clients can send it
// back as If-Match.
func writeTask(w http.ResponseWriter, r *http.Request, status int, t *tasks.Task) {
	if t.CurrentVersionID != nil {
		w.Header().Set("ETag", `"`+*t.CurrentVersionID+`"`)
	}
	cerr.WriteJSON(r.Context(), w, status, t)
}

func (s *Server) listProjects(w http.ResponseWriter, r *http.Request) {
	idx, err := resources.BuildIndex(r.Context(), s.tasks)
	if err != nil {
		cerr.WriteError(r.Context(), w, err)
		return
	}
	cerr.WriteJSON(r.Context(), w, http.StatusOK, idx)
}

func (s *Server) createTask(w http.ResponseWriter, r *http.Request) {
	var req createTaskRequest
	if err := decodeBody(w, r, &req); err != nil {
		cerr.WriteError(r.Context(), w, err)
		return
	}
	t, err := s.tasks.Create(r.Context(), projectID(r), req.TaskInput, s.operator(req.ChangedBy))
	if err != nil {
		cerr.WriteError(r.Context(), w, err)
		return
	}
	writeTask(w, r, http.StatusCreated, t)
}

func (s *Server) listTasks(w http.ResponseWriter, r *http.Request) {
	page, err := parsePage(r, 100)
	if err != nil {
		cerr.WriteError(r.Context(), w, err)
		return
	}
	status := tasks.Status(r.URL.Query().Get("status"))
	list, err := s.tasks.List(r.Context(), projectID(r), tasks.ListOptions{Status: status, Skip: page.Skip, Limit: page.Limit})
	if err != nil {
		cerr.WriteError(r.Context(), w, err)
		return
	}
	total, err := s.tasks.Count(r.Context(), projectID(r), status)
	if err != nil {
		cerr.WriteError(r.Context(), w, err)
		return
	}
	out := taskList{Tasks: make([]tasks.TaskSummary, 0, len(list)), Total: total, Skip: page.Skip, Limit: page.Limit}
	for _, t := range list {
		out.Tasks = append(out.Tasks, t.Summarize())
	}
	cerr.WriteJSON(r.Context(), w, http.StatusOK, out)
}

func (s *Server) purgeTasks(w http.ResponseWriter, r *http.Request) {
	res, err := s.tasks.DeleteProjectTasks(r.Context(), projectID(r))
	if err != nil {
		cerr.WriteError(r.Context(), w, err)
		return
	}
	cerr.WriteJSON(r.Context(), w, http.StatusOK, res)
}

func (s *Server) bulkTasks(w http.ResponseWriter, r *http.Request) {
	var req bulkRequest
	if err := decodeBody(w, r, &req); err != nil {
		cerr.WriteError(r.Context(), w, err)
		return
	}
	res, err := s.tasks.Reconcile(r.Context(), projectID(r), tasks.ReconcileRequest{
		Tasks:          req.Tasks,
		Mode:           tasks.UpdateMode(req.UpdateMode),
		GlobalAnalysis: req.GlobalAnalysis,
		ChangedBy:      s.operator(req.ChangedBy),
	})
	if err != nil {
		cerr.WriteError(r.Context(), w, err)
		return
	}
	cerr.WriteJSON(r.Context(), w, http.StatusOK, res)
}

func (s *Server) taskStatistics(w http.ResponseWriter, r *http.Request) {
	stats, err := s.tasks.Statistics(r.Context(), projectID(r))
	if err != nil {
		cerr.WriteError(r.Context(), w, err)
		return
	}
	cerr.WriteJSON(r.Context(), w, http.StatusOK, stats)
}

func (s *Server) getTask(w http.ResponseWriter, r *http.Request) {
	t, err := s.tasks.Get(r.Context(), projectID(r), taskID(r))
	if err != nil {
		cerr.WriteError(r.Context(), w, err)
		return
	}
	writeTask(w, r, http.StatusOK, t)
}

func (s *Server) updateTask(w http.ResponseWriter, r *http.Request) {
	var req updateTaskRequest
	if err := decodeBody(w, r, &req); err != nil {
		cerr.WriteError(r.Context(), w, err)
		return
	}
	t, err := s.tasks.Update(r.Context(), projectID(r), taskID(r), req.TaskUpdate, tasks.UpdateOptions{
		ChangedBy: s.operator(req.ChangedBy),
		IfMatch:   strings.Trim(strings.TrimSpace(r.Header.Get("If-Match")), `"`),
		Message:   req.Message,
	})
	if err != nil {
		cerr.WriteError(r.Context(), w, err)
		return
	}
	writeTask(w, r, http.StatusOK, t)
}

func (s *Server) deleteTask(w http.ResponseWriter, r *http.Request) {
	if _, err := s.tasks.Delete(r.Context(), projectID(r), taskID(r), s.operator(r.URL.Query().Get("changed_by"))); err != nil {
		cerr.WriteError(r.Context(), w, err)
		return
	}
	cerr.WriteJSON(r.Context(), w, http.StatusOK, map[string]any{"task_id": taskID(r), "deleted": true})
}

func (s *Server) verifyTask(w http.ResponseWriter, r *http.Request) {
	var req verifyRequest
	if err := decodeBody(w, r, &req); err != nil {
		cerr.WriteError(r.Context(), w, err)
		return
	}
	res, err := s.tasks.Verify(r.Context(), projectID(r), taskID(r), req.Summary, *req.Score, s.operator(req.ChangedBy))
	if err != nil {
		cerr.WriteError(r.Context(), w, err)
		return
	}
	cerr.WriteJSON(r.Context(), w, http.StatusOK, res)
}

func (s *Server) taskGraph(w http.ResponseWriter, r *http.Request) {
	g, err := s.tasks.DependencyGraph(r.Context(), projectID(r), taskID(r))
	if err != nil {
		cerr.WriteError(r.Context(), w, err)
		return
	}
	cerr.WriteJSON(r.Context(), w, http.StatusOK, g)
}

func (s *Server) listVersions(w http.ResponseWriter, r *http.Request) {
	page, err := parsePage(r, 20)
	if err != nil {
		cerr.WriteError(r.Context(), w, err)
		return
	}
	versions, err := s.tasks.ListVersions(r.Context(), projectID(r), taskID(r), page.Skip, page.Limit)
	if err != nil {
		cerr.WriteError(r.Context(), w, err)
		return
	}
	cerr.WriteJSON(r.Context(), w, http.StatusOK, versionList{Versions: versions, Skip: page.Skip, Limit: page.Limit})
}

func (s *Server) revertTask(w http.ResponseWriter, r *http.Request) {
	var req revertRequest
	if err := decodeBody(w, r, &req); err != nil {
		cerr.WriteError(r.Context(), w, err)
		return
	}
	t, err := s.tasks.Revert(r.Context(), projectID(r), taskID(r), req.VersionID, s.operator(req.ChangedBy))
	if err != nil {
		cerr.WriteError(r.Context(), w, err)
		return
	}
	writeTask(w, r, http.StatusOK, t)
}

func (s *Server) getTodos(w http.ResponseWriter, r *http.Request) {
	todos, err := s.tasks.GetTodos(r.Context(), projectID(r), taskID(r))
	if err != nil {
		cerr.WriteError(r.Context(), w, err)
		return
	}
	cerr.WriteJSON(r.Context(), w, http.StatusOK, map[string]any{"todos": todos})
}

func (s *Server) putTodos(w http.ResponseWriter, r *http.Request) {
	var req todosRequest
	if err := decodeBody(w, r, &req); err != nil {
		cerr.WriteError(r.Context(), w, err)
		return
	}
	res, err := s.tasks.SetTodos(r.Context(), projectID(r), taskID(r), req.Todos, req.Notes, s.operator(req.ChangedBy))
	if err != nil {
		cerr.WriteError(r.Context(), w, err)
		return
	}
	cerr.WriteJSON(r.Context(), w, http.StatusOK, res)
}
