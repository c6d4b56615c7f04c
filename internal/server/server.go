// Package server is the HTTP surface of the app: the static site, the JSON
// API for learning, accounts, chat and projects, and health probes.
package server

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/klauspost/compress/gzhttp"

	"github.com/p-n-ai/tsea/internal/account"
	"github.com/p-n-ai/tsea/internal/agent"
	"github.com/p-n-ai/tsea/internal/chat"
	"github.com/p-n-ai/tsea/internal/progress"
	"github.com/p-n-ai/tsea/internal/projects"
)

// Config holds the collaborators and settings of a Server. Progress,
// Sessions, Accounts and Chat are required.
type Config struct {
	Progress      *progress.Engine
	ProgressStore progress.Store
	Sessions      *account.Sessions
	Accounts      *account.Service
	Chat          *agent.Engine
	Socket        *chat.WebSocket
	Projects      *projects.FileStore
	Events        agent.EventLogger
	Limiter       RateLimiter

	// Checks are pinged by /readyz, keyed by component name.
	Checks map[string]func(context.Context) error

	PublicDir    string
	PagesDir     string
	AdminToken   string
	SecureCookie bool
	TrustProxy   bool
	RateLimit    int // requests per minute, used when Limiter is nil
}

// Server routes HTTP requests.
type Server struct {
	cfg      Config
	progress *progress.Engine
	store    progress.Store
	sessions *account.Sessions
	accounts *account.Service
	chat     *agent.Engine
	socket   *chat.WebSocket
	projects *projects.FileStore
	events   agent.EventLogger
	started  time.Time
	handler  http.Handler
}

// New validates cfg and builds the route tree.
func New(cfg Config) (*Server, error) {
	switch {
	case cfg.Progress == nil:
		return nil, errors.New("server: progress engine is required")
	case cfg.Sessions == nil:
		return nil, errors.New("server: sessions are required")
	case cfg.Accounts == nil:
		return nil, errors.New("server: account service is required")
	case cfg.Chat == nil:
		return nil, errors.New("server: chat engine is required")
	}
	if cfg.ProgressStore == nil {
		cfg.ProgressStore = progress.NewMemoryStore()
	}
	if cfg.Socket == nil {
		cfg.Socket = chat.NewWebSocket(chat.Options{})
	}
	if cfg.Events == nil {
		cfg.Events = agent.NopEventLogger{}
	}
	if cfg.Limiter == nil {
		if cfg.RateLimit <= 0 {
			cfg.RateLimit = 120
		}
		cfg.Limiter = NewMemoryRateLimiter(cfg.RateLimit)
	}

	s := &Server{
		cfg:      cfg,
		progress: cfg.Progress,
		store:    cfg.ProgressStore,
		sessions: cfg.Sessions,
		accounts: cfg.Accounts,
		chat:     cfg.Chat,
		socket:   cfg.Socket,
		projects: cfg.Projects,
		events:   cfg.Events,
		started:  time.Now(),
	}
	s.handler = s.routes()
	return s, nil
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.handler.ServeHTTP(w, r)
}

func (s *Server) routes() http.Handler {
	api := http.NewServeMux()
	api.HandleFunc("GET /api/health", s.handleAPIHealth)

	api.HandleFunc("POST /api/signup", s.handleSignup)
	api.HandleFunc("POST /api/login", s.handleLogin)
	api.HandleFunc("POST /api/logout", s.handleLogout)
	api.HandleFunc("GET /api/me", s.handleMe)
	api.HandleFunc("POST /api/admin/tier", s.handleAdminTier)

	api.HandleFunc("GET /api/curriculum", s.handleCurriculum)
	api.HandleFunc("GET /api/lessons/{module}/{lesson}", s.handleLesson)
	api.HandleFunc("POST /api/lessons/{module}/{lesson}/complete", s.handleCompleteLesson)
	api.HandleFunc("GET /api/modules/{module}/quiz", s.handleQuiz)
	api.HandleFunc("POST /api/modules/{module}/quiz", s.handleGradeQuiz)
	api.HandleFunc("GET /api/progress", s.handleProgress)
	api.HandleFunc("GET /api/next", s.handleNext)
	api.HandleFunc("GET /api/progress/export.xlsx", s.handleExport)

	api.HandleFunc("POST /api/chat/{persona}", s.handleChat)
	api.HandleFunc("GET /api/chat/history/{persona}", s.handleChatHistory)
	api.HandleFunc("DELETE /api/chat/history/{persona}", s.handleChatReset)
	api.HandleFunc("GET /api/chat/usage", s.handleChatUsage)
	api.HandleFunc("GET /api/chat/ws", s.handleChatSocket)

	api.HandleFunc("GET /api/projects", s.handleListProjects)
	api.HandleFunc("POST /api/projects", s.handleCreateProject)
	api.HandleFunc("GET /api/projects/{id}", s.handleGetProject)
	api.HandleFunc("PUT /api/projects/{id}", s.handleUpdateProject)
	api.HandleFunc("DELETE /api/projects/{id}", s.handleDeleteProject)

	api.HandleFunc("/api/", func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, "no such endpoint")
	})

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", handleHealthz)
	mux.HandleFunc("GET /readyz", s.handleReadyz)
	mux.Handle("/api/", rateLimit(s.cfg.Limiter, s.cfg.TrustProxy, s.withSession(api)))
	mux.Handle("GET /public/", s.static())

	mux.HandleFunc("GET /{$}", s.page("index.html"))
	for _, path := range stubPages {
		mux.HandleFunc("GET "+path, s.page("stubs.html"))
	}
	mux.HandleFunc("GET /checkout", handleCheckout)
	mux.HandleFunc("/", handleNotFound)

	gzipped := gzhttp.GzipHandler(mux)
	root := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Upgrades need the raw connection.
		if isWebSocketUpgrade(r) {
			mux.ServeHTTP(w, r)
			return
		}
		gzipped.ServeHTTP(w, r)
	})
	return logRequests(securityHeaders(root))
}

func isWebSocketUpgrade(r *http.Request) bool {
	return strings.EqualFold(r.Header.Get("Upgrade"), "websocket")
}
