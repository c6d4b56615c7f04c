package server

import (
	"net/http"

	"github.com/p-n-ai/tsea/internal/projects"
)

// owner returns the signed-in user id for project routes, writing 401 for
// visitors.
func (s *Server) owner(w http.ResponseWriter, r *http.Request) (string, bool) {
	if s.projects == nil {
		writeError(w, http.StatusServiceUnavailable, "projects are not enabled")
		return "", false
	}
	v, err := s.viewer(r)
	if err != nil {
		writeErr(w, r, err)
		return "", false
	}
	if v.User == nil {
		writeError(w, http.StatusUnauthorized, "login required")
		return "", false
	}
	return v.User.ID, true
}

func (s *Server) handleListProjects(w http.ResponseWriter, r *http.Request) {
	owner, ok := s.owner(w, r)
	if !ok {
		return
	}
	list := s.projects.List(owner)
	if list == nil {
		list = []projects.Project{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"projects": list})
}

func (s *Server) handleCreateProject(w http.ResponseWriter, r *http.Request) {
	owner, ok := s.owner(w, r)
	if !ok {
		return
	}
	var in projects.Input
	if err := decodeJSON(w, r, &in); err != nil {
		writeErr(w, r, err)
		return
	}
	p, err := s.projects.Create(owner, in)
	if err != nil {
		writeErr(w, r, err)
		return
	}
	w.Header().Set("Location", "/api/projects/"+p.ID)
	writeJSON(w, http.StatusCreated, p)
}

func (s *Server) handleGetProject(w http.ResponseWriter, r *http.Request) {
	owner, ok := s.owner(w, r)
	if !ok {
		return
	}
	p, err := s.projects.Get(owner, r.PathValue("id"))
	if err != nil {
		writeErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (s *Server) handleUpdateProject(w http.ResponseWriter, r *http.Request) {
	owner, ok := s.owner(w, r)
	if !ok {
		return
	}
	var in projects.Input
	if err := decodeJSON(w, r, &in); err != nil {
		writeErr(w, r, err)
		return
	}
	p, err := s.projects.Update(owner, r.PathValue("id"), in)
	if err != nil {
		writeErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (s *Server) handleDeleteProject(w http.ResponseWriter, r *http.Request) {
	owner, ok := s.owner(w, r)
	if !ok {
		return
	}
	if err := s.projects.Delete(owner, r.PathValue("id")); err != nil {
		writeErr(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
