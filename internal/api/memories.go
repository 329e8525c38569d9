package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/HendryAvila/taskmem/internal/cerr"
	"github.com/HendryAvila/taskmem/internal/memory"
)

type createMemoryRequest struct {
	memory.CreateParams
	Title   string `json:"title" validate:"required,max=200"`
	RawText string `json:"raw_text" validate:"required"`
}

type memoryList struct {
	Memories []*memory.Memory `json:"memories"`
	Total    int              `json:"total"`
	Skip     int              `json:"skip"`
	Limit    int              `json:"limit"`
}

func memoryID(r *http.Request) string { return chi.URLParam(r, "memory_id") }

func (s *Server) createMemory(w http.ResponseWriter, r *http.Request) {
	var req createMemoryRequest
	if err := decodeBody(w, r, &req); err != nil {
		cerr.WriteError(r.Context(), w, err)
		return
	}
	p := req.CreateParams
	p.Title = req.Title
	p.RawText = req.RawText
	m, err := s.memories.Create(r.Context(), projectID(r), p)
	if err != nil {
		cerr.WriteError(r.Context(), w, err)
		return
	}
	cerr.WriteJSON(r.Context(), w, http.StatusCreated, m)
}

func (s *Server) listMemories(w http.ResponseWriter, r *http.Request) {
	page, err := parsePage(r, 100)
	if err != nil {
		cerr.WriteError(r.Context(), w, err)
		return
	}
	q := r.URL.Query()
	res, err := s.memories.List(r.Context(), projectID(r), memory.ListOptions{
		TaskID: q.Get("task_id"),
		Tags:   listQuery(r, "tags"),
		Query:  q.Get("q"),
		Skip:   page.Skip,
		Limit:  page.Limit,
	})
	if err != nil {
		cerr.WriteError(r.Context(), w, err)
		return
	}
	cerr.WriteJSON(r.Context(), w, http.StatusOK, memoryList{
		Memories: res.Memories, Total: res.Total, Skip: page.Skip, Limit: page.Limit,
	})
}

func (s *Server) getMemory(w http.ResponseWriter, r *http.Request) {
	m, err := s.memories.Get(r.Context(), projectID(r), memoryID(r))
	if err != nil {
		cerr.WriteError(r.Context(), w, err)
		return
	}
	cerr.WriteJSON(r.Context(), w, http.StatusOK, m)
}

func (s *Server) updateMemory(w http.ResponseWriter, r *http.Request) {
	var p memory.UpdateParams
	if err := decodeBody(w, r, &p); err != nil {
		cerr.WriteError(r.Context(), w, err)
		return
	}
	m, err := s.memories.Update(r.Context(), projectID(r), memoryID(r), p)
	if err != nil {
		cerr.WriteError(r.Context(), w, err)
		return
	}
	cerr.WriteJSON(r.Context(), w, http.StatusOK, m)
}

func (s *Server) deleteMemory(w http.ResponseWriter, r *http.Request) {
	if err := s.memories.Delete(r.Context(), projectID(r), memoryID(r)); err != nil {
		cerr.WriteError(r.Context(), w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
