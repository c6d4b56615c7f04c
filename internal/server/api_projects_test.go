package server_test

import (
	"net/http"
	"testing"

	"github.com/p-n-ai/tsea/internal/projects"
)

func TestProjects_RequireLogin(t *testing.T) {
	h := newHarness(t)

	resp, body := h.call(http.MethodGet, "/api/projects", nil)
	wantStatus(t, resp, body, http.StatusUnauthorized)
	resp, body = h.call(http.MethodPost, "/api/projects", map[string]string{"name": "Breakouts"})
	wantStatus(t, resp, body, http.StatusUnauthorized)
}

func TestProjects_CRUD(t *testing.T) {
	h := newHarness(t)
	h.signup(h.client, "ada@example.com")

	resp, body := h.call(http.MethodPost, "/api/projects", map[string]string{"name": " Breakouts ", "persona": "Design"})
	wantStatus(t, resp, body, http.StatusCreated)
	created := decode[projects.Project](t, body)
	if created.Name != "Breakouts" || created.Persona != "design" || created.ID == "" {
		t.Errorf("created = %+v", created)
	}
	if loc := resp.Header.Get("Location"); loc != "/api/projects/"+created.ID {
		t.Errorf("Location = %q", loc)
	}

	resp, body = h.call(http.MethodGet, "/api/projects/"+created.ID, nil)
	wantStatus(t, resp, body, http.StatusOK)

	resp, body = h.call(http.MethodPut, "/api/projects/"+created.ID, map[string]string{"name": "Range breakouts", "description": "Daily chart"})
	wantStatus(t, resp, body, http.StatusOK)
	if got := decode[projects.Project](t, body); got.Name != "Range breakouts" || got.Description != "Daily chart" {
		t.Errorf("updated = %+v", got)
	}

	resp, body = h.call(http.MethodGet, "/api/projects", nil)
	wantStatus(t, resp, body, http.StatusOK)
	if list := decode[struct{ Projects []projects.Project }](t, body).Projects; len(list) != 1 {
		t.Errorf("list = %+v, want one project", list)
	}

	resp, body = h.call(http.MethodDelete, "/api/projects/"+created.ID, nil)
	wantStatus(t, resp, body, http.StatusNoContent)
	resp, body = h.call(http.MethodGet, "/api/projects/"+created.ID, nil)
	wantStatus(t, resp, body, http.StatusNotFound)
}

func TestProjects_ScopedToOwner(t *testing.T) {
	h := newHarness(t)
	h.signup(h.client, "ada@example.com")
	_, body := h.call(http.MethodPost, "/api/projects", map[string]string{"name": "Mine"})
	mine := decode[projects.Project](t, body)

	other := h.newClient()
	h.signup(other, "grace@example.com")

	resp, body := h.callAs(other, http.MethodGet, "/api/projects/"+mine.ID, nil, nil)
	wantStatus(t, resp, body, http.StatusNotFound)
	resp, body = h.callAs(other, http.MethodDelete, "/api/projects/"+mine.ID, nil, nil)
	wantStatus(t, resp, body, http.StatusNotFound)

	_, body = h.callAs(other, http.MethodGet, "/api/projects", nil, nil)
	if list := decode[struct{ Projects []projects.Project }](t, body).Projects; list == nil || len(list) != 0 {
		t.Errorf("other user's list = %v, want empty", list)
	}
}

func TestProjects_Validation(t *testing.T) {
	h := newHarness(t)
	h.signup(h.client, "ada@example.com")

	tests := []struct {
		name string
		body any
	}{
		{"blank name", map[string]string{"name": "  "}},
		{"unknown persona", map[string]string{"name": "x", "persona": "oracle"}},
		{"malformed", "[1,2"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, body := h.call(http.MethodPost, "/api/projects", tt.body)
			wantStatus(t, resp, body, http.StatusBadRequest)
		})
	}
}
