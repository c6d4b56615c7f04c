package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/p-n-ai/tsea/internal/account"
	"github.com/p-n-ai/tsea/internal/progress"
)

const sessionCookie = "tsea_session"

type sessionKey struct{}

// withSession attaches the caller's session to the request context, issuing
// an anonymous one when the cookie is missing, expired or forged.
func (s *Server) withSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var sess account.Session
		if c, err := r.Cookie(sessionCookie); err == nil {
			sess, err = s.sessions.Parse(c.Value)
			if err != nil {
				slog.Debug("discarding session cookie", "error", err)
			}
		}
		if sess.ID == "" {
			var token string
			var err error
			sess, token, err = s.sessions.Issue("")
			if err != nil {
				writeErr(w, r, err)
				return
			}
			s.setSessionCookie(w, token)
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), sessionKey{}, sess)))
	})
}

func (s *Server) setSessionCookie(w http.ResponseWriter, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    token,
		Path:     "/",
		MaxAge:   int(s.sessions.TTL().Seconds()),
		HttpOnly: true,
		Secure:   s.cfg.SecureCookie,
		SameSite: http.SameSiteLaxMode,
	})
}

func sessionFrom(ctx context.Context) account.Session {
	sess, _ := ctx.Value(sessionKey{}).(account.Session)
	return sess
}

// viewer is the caller of an API request.
type viewer struct {
	Session account.Session
	User    *account.User
}

// Tier is the signed-in user's tier. Visitors browse as Basic.
func (v viewer) Tier() progress.Tier {
	if v.User == nil {
		return progress.TierBasic
	}
	return v.User.Tier
}

// ChatID identifies the caller for conversations and quotas.
func (v viewer) ChatID() string {
	if v.User != nil {
		return v.User.ID
	}
	return "anon:" + v.Session.ID
}

// viewer resolves the session's user. A session naming a deleted user is
// treated as anonymous.
func (s *Server) viewer(r *http.Request) (viewer, error) {
	v := viewer{Session: sessionFrom(r.Context())}
	if v.Session.Anonymous() {
		return v, nil
	}
	u, err := s.accounts.User(r.Context(), v.Session.UserID)
	if errors.Is(err, account.ErrUserNotFound) {
		return v, nil
	}
	if err != nil {
		return v, err
	}
	v.User = &u
	return v, nil
}
