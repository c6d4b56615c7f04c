package server

import (
	"context"
	"html/template"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"
)

var stubPages = []string{
	"/docs/terms", "/docs/privacy", "/about", "/customers", "/faq", "/contact",
	"/assistant", "/login", "/signup", "/assistants",
}

// page serves a file from the pages directory.
func (s *Server) page(name string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		path := filepath.Join(s.cfg.PagesDir, name)
		if _, err := os.Stat(path); err != nil {
			slog.Warn("page missing", "page", name, "error", err)
			handleNotFound(w, r)
			return
		}
		http.ServeFile(w, r, path)
	}
}

var immutableExt = map[string]bool{
	".png": true, ".jpg": true, ".jpeg": true, ".svg": true,
	".ico": true, ".css": true, ".js": true,
}

// static serves /public/ without directory listings. Images, styles and
// scripts are cached for a year.
func (s *Server) static() http.Handler {
	files := http.StripPrefix("/public/", http.FileServer(http.Dir(s.cfg.PublicDir)))
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasSuffix(r.URL.Path, "/") {
			handleNotFound(w, r)
			return
		}
		if immutableExt[strings.ToLower(filepath.Ext(r.URL.Path))] {
			w.Header().Set("Cache-Control", "public, max-age=31536000, immutable")
		}
		files.ServeHTTP(w, r)
	})
}

var checkoutPage = template.Must(template.New("checkout").Parse(`<!doctype html><meta charset="utf-8">
<link rel="stylesheet" href="/public/styles.css">
<div class="container" style="padding:40px 0">
  <h1>Checkout</h1>
  <p>Plan: <strong>{{.Plan}}</strong></p>
  {{- if .Coupon}}
  <p>Coupon: <strong>{{.Coupon}}</strong></p>
  {{- end}}
  <p class="muted">Payments are not enabled yet.</p>
  <p><a class="btn btn-primary" href="/">Back to site</a></p>
</div>
`))

var notFoundPage = template.Must(template.New("404").Parse(`<!doctype html><meta charset="utf-8">
<link rel="stylesheet" href="/public/styles.css">
<div class="container" style="padding:40px 0">
  <h1>404</h1>
  <p>We couldn't find <code>{{.}}</code>.</p>
  <p><a class="btn btn-primary" href="/">Go home</a></p>
</div>
`))

// handleCheckout renders the checkout stub. Unknown plans fall back to pro.
func handleCheckout(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	plan := strings.ToLower(q.Get("plan"))
	if plan != "pro" && plan != "elite" {
		plan = "pro"
	}
	data := struct{ Plan, Coupon string }{plan, q.Get("coupon")}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := checkoutPage.Execute(w, data); err != nil {
		slog.Warn("failed to render checkout", "error", err)
	}
}

func handleNotFound(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusNotFound)
	if err := notFoundPage.Execute(w, r.URL.Path); err != nil {
		slog.Warn("failed to render 404", "error", err)
	}
}

func handleHealthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleReadyz pings every configured dependency.
func (s *Server) handleReadyz(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	failed := map[string]string{}
	for name, check := range s.cfg.Checks {
		if err := check(ctx); err != nil {
			slog.Warn("readiness check failed", "component", name, "error", err)
			failed[name] = err.Error()
		}
	}
	if len(failed) > 0 {
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{"status": "unavailable", "failed": failed})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

type healthBody struct {
	OK     bool    `json:"ok"`
	Uptime float64 `json:"uptime"`
	TS     int64   `json:"ts"`
}

// handleAPIHealth reports uptime in seconds and the server clock in Unix
// milliseconds.
func (s *Server) handleAPIHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, healthBody{
		OK:     true,
		Uptime: time.Since(s.started).Seconds(),
		TS:     time.Now().UnixMilli(),
	})
}
