package http

import (
	"net/http"
	"strings"

	"pocket/internal/core"
)

func (s *Server) handleListTasks(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	var (
		tasks []core.Task
		err   error
	)
	if hasAny(q.Get, "category", "priority", "status", "date") {
		f, ferr := ParseTaskFilter(q, s.loc)
		if ferr != nil {
			writeError(w, r, ferr)
			return
		}
		tasks, err = s.deps.Tasks.Filter(r.Context(), f)
	} else {
		tasks, err = s.deps.Tasks.List(r.Context())
	}
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, nonNil(tasks))
}

func (s *Server) handleCreateTask(w http.ResponseWriter, r *http.Request) {
	var req taskRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	task, err := req.toTask(s.loc)
	if err != nil {
		writeError(w, r, err)
		return
	}
	created, err := s.deps.Tasks.Create(r.Context(), task)
	if err != nil {
		writeError(w, r, err)
		return
	}
	NewJSONResponse().Status(http.StatusCreated).
		Header("Location", "/api/tasks/"+created.ID).
		Body(created).
		Write(w)
}

func (s *Server) handleGetTask(w http.ResponseWriter, r *http.Request) {
	task, err := s.deps.Tasks.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, task)
}

func (s *Server) handleUpdateTask(w http.ResponseWriter, r *http.Request) {
	var req taskRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	task, err := req.toTask(s.loc)
	if err != nil {
		writeError(w, r, err)
		return
	}
	task.ID = r.PathValue("id")
	updated, err := s.deps.Tasks.Update(r.Context(), task)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (s *Server) handleDeleteTask(w http.ResponseWriter, r *http.Request) {
	if err := s.deps.Tasks.Delete(r.Context(), r.PathValue("id")); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleToggleTask(w http.ResponseWriter, r *http.Request) {
	task, err := s.deps.Tasks.Toggle(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, task)
}

func (s *Server) handleToggleSubtask(w http.ResponseWriter, r *http.Request) {
	task, err := s.deps.Tasks.ToggleSubtask(r.Context(), r.PathValue("id"), r.PathValue("sid"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, task)
}

func (s *Server) handleSearchTasks(w http.ResponseWriter, r *http.Request) {
	tasks, err := s.deps.Tasks.Search(r.Context(), strings.TrimSpace(r.URL.Query().Get("q")))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, nonNil(tasks))
}

func (s *Server) handleTaskStats(w http.ResponseWriter, r *http.Request) {
	st, err := s.deps.Tasks.Stats(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}
