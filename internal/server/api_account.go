package server

import (
	"crypto/subtle"
	"log/slog"
	"net/http"
	"strings"

	"github.com/p-n-ai/tsea/internal/account"
	"github.com/p-n-ai/tsea/internal/agent"
	"github.com/p-n-ai/tsea/internal/progress"
)

type credentials struct {
	Email    string `json:"email"`
	Name     string `json:"name,omitempty"`
	Password string `json:"password"`
}

type meBody struct {
	SessionID string        `json:"session_id"`
	User      *account.User `json:"user"`
	Tier      progress.Tier `json:"tier"`
	TierName  string        `json:"tier_name"`
}

func (s *Server) handleSignup(w http.ResponseWriter, r *http.Request) {
	var in credentials
	if err := decodeJSON(w, r, &in); err != nil {
		writeErr(w, r, err)
		return
	}
	u, err := s.accounts.Signup(r.Context(), in.Email, in.Name, in.Password)
	if err != nil {
		writeErr(w, r, err)
		return
	}
	s.startUserSession(w, r, u, agent.EventSignup, http.StatusCreated)
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var in credentials
	if err := decodeJSON(w, r, &in); err != nil {
		writeErr(w, r, err)
		return
	}
	u, err := s.accounts.Login(r.Context(), in.Email, in.Password)
	if err != nil {
		writeErr(w, r, err)
		return
	}
	s.startUserSession(w, r, u, agent.EventLogin, http.StatusOK)
}

// startUserSession binds the current session to u so progress made while
// browsing anonymously is kept.
func (s *Server) startUserSession(w http.ResponseWriter, r *http.Request, u account.User, event string, status int) {
	sess, token, err := s.sessions.Upgrade(sessionFrom(r.Context()), u.ID)
	if err != nil {
		writeErr(w, r, err)
		return
	}
	s.setSessionCookie(w, token)
	s.logEvent(r, agent.Event{UserID: u.ID, SessionID: sess.ID, EventType: event})
	writeJSON(w, status, meBody{SessionID: sess.ID, User: &u, Tier: u.Tier, TierName: u.Tier.DisplayName()})
}

// handleLogout starts a fresh anonymous session.
func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	_, token, err := s.sessions.Issue("")
	if err != nil {
		writeErr(w, r, err)
		return
	}
	s.setSessionCookie(w, token)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	v, err := s.viewer(r)
	if err != nil {
		writeErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, meBody{
		SessionID: v.Session.ID,
		User:      v.User,
		Tier:      v.Tier(),
		TierName:  v.Tier().DisplayName(),
	})
}

type tierChange struct {
	UserID string `json:"user_id"`
	Tier   string `json:"tier"`
}

// handleAdminTier changes a user's tier. It stands in for a billing webhook
// and is disabled when no admin token is configured.
func (s *Server) handleAdminTier(w http.ResponseWriter, r *http.Request) {
	if !s.isAdmin(r) {
		writeError(w, http.StatusUnauthorized, "admin token required")
		return
	}
	var in tierChange
	if err := decodeJSON(w, r, &in); err != nil {
		writeErr(w, r, err)
		return
	}
	tier, _ := progress.ParseTier(in.Tier)
	if err := s.accounts.SetTier(r.Context(), in.UserID, tier); err != nil {
		writeErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"user_id": in.UserID, "tier": tier.String()})
}

func (s *Server) isAdmin(r *http.Request) bool {
	if s.cfg.AdminToken == "" {
		return false
	}
	token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
	return ok && subtle.ConstantTimeCompare([]byte(token), []byte(s.cfg.AdminToken)) == 1
}

// logEvent records an analytics event. Failures never fail the request.
func (s *Server) logEvent(r *http.Request, ev agent.Event) {
	if err := s.events.LogEvent(r.Context(), ev); err != nil {
		slog.Warn("failed to log event", "event_type", ev.EventType, "error", err)
	}
}
