package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/p-n-ai/tsea/internal/account"
	"github.com/p-n-ai/tsea/internal/agent"
	"github.com/p-n-ai/tsea/internal/ai"
	"github.com/p-n-ai/tsea/internal/progress"
	"github.com/p-n-ai/tsea/internal/projects"
)

func TestClientIP(t *testing.T) {
	tests := []struct {
		name       string
		remote     string
		forwarded  string
		trustProxy bool
		want       string
	}{
		{"remote addr", "10.0.0.1:5555", "", false, "10.0.0.1"},
		{"forwarded ignored without trust", "10.0.0.1:5555", "203.0.113.9", false, "10.0.0.1"},
		{"forwarded first hop", "10.0.0.1:5555", " 203.0.113.9 , 10.0.0.2", true, "203.0.113.9"},
		{"trusted without header", "10.0.0.1:5555", "", true, "10.0.0.1"},
		{"ipv6", "[::1]:8080", "", false, "::1"},
		{"no port", "pipe", "", false, "pipe"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/", nil)
			r.RemoteAddr = tt.remote
			if tt.forwarded != "" {
				r.Header.Set("X-Forwarded-For", tt.forwarded)
			}
			if got := clientIP(r, tt.trustProxy); got != tt.want {
				t.Errorf("clientIP() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestMemoryRateLimiter(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	l := NewMemoryRateLimiter(3)
	l.now = func() time.Time { return now }
	ctx := context.Background()

	for i := range 3 {
		if ok, _ := l.Allow(ctx, "a"); !ok {
			t.Fatalf("request %d rejected within burst", i+1)
		}
	}
	if ok, _ := l.Allow(ctx, "a"); ok {
		t.Fatal("request over burst allowed")
	}
	if ok, _ := l.Allow(ctx, "b"); !ok {
		t.Error("keys should be limited independently")
	}

	// One token refills every 20s at 3 per minute.
	now = now.Add(21 * time.Second)
	if ok, _ := l.Allow(ctx, "a"); !ok {
		t.Error("request after refill rejected")
	}
	if ok, _ := l.Allow(ctx, "a"); ok {
		t.Error("only one token should have refilled")
	}
}

func TestMemoryRateLimiter_SweepsIdleClients(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	l := NewMemoryRateLimiter(10)
	l.now = func() time.Time { return now }

	for i := range sweepThreshold {
		l.Allow(context.Background(), fmt.Sprintf("ip-%d", i))
	}
	now = now.Add(idleAfter + time.Second)
	l.Allow(context.Background(), "fresh")

	if len(l.clients) != 1 {
		t.Errorf("clients after sweep = %d, want 1", len(l.clients))
	}
}

func TestErrorStatus(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"module not found", &progress.NotFoundError{Kind: "module", ID: "x"}, http.StatusNotFound},
		{"track locked", fmt.Errorf("module x: %w", progress.ErrTrackLocked), http.StatusForbidden},
		{"project not found", projects.ErrProjectNotFound, http.StatusNotFound},
		{"invalid project", fmt.Errorf("%w: name", projects.ErrInvalidProject), http.StatusBadRequest},
		{"credentials", account.ErrInvalidCredentials, http.StatusUnauthorized},
		{"email taken", account.ErrEmailTaken, http.StatusConflict},
		{"validation", &account.ValidationError{Field: "email"}, http.StatusBadRequest},
		{"quota", agent.ErrQuotaExceeded, http.StatusTooManyRequests},
		{"empty message", ai.ErrEmptyMessage, http.StatusBadRequest},
		{"config", fmt.Errorf("ask icator: %w", &ai.ConfigError{Reason: "no api key"}), http.StatusServiceUnavailable},
		{"upstream", fmt.Errorf("ask icator: %w", &ai.UpstreamError{Status: 500}), http.StatusBadGateway},
		{"deadline", fmt.Errorf("ask: %w", context.DeadlineExceeded), http.StatusGatewayTimeout},
		{"bad request", badRequest("field %s", "x"), http.StatusBadRequest},
		{"unexpected", errors.New("disk on fire"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, msg := errorStatus(tt.err)
			if got != tt.want {
				t.Errorf("errorStatus() = %d, want %d", got, tt.want)
			}
			if got == http.StatusInternalServerError && msg != "internal error" {
				t.Errorf("500 message = %q, must not leak detail", msg)
			}
		})
	}
}

func TestStatusRecorder(t *testing.T) {
	rec := httptest.NewRecorder()
	sr := &statusRecorder{ResponseWriter: rec}

	sr.Write([]byte("hello"))
	sr.WriteHeader(http.StatusTeapot)
	if sr.status != http.StatusOK || sr.bytes != 5 {
		t.Errorf("status = %d, bytes = %d; want 200, 5", sr.status, sr.bytes)
	}
	if _, _, err := sr.Hijack(); err == nil {
		t.Error("Hijack() on a recorder should fail")
	}
	if sr.Unwrap() != rec {
		t.Error("Unwrap() should return the wrapped writer")
	}
}
