package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	_ "github.com/joho/godotenv/autoload"

	"github.com/p-n-ai/tsea/internal/account"
	"github.com/p-n-ai/tsea/internal/agent"
	"github.com/p-n-ai/tsea/internal/ai"
	"github.com/p-n-ai/tsea/internal/chat"
	"github.com/p-n-ai/tsea/internal/curriculum"
	"github.com/p-n-ai/tsea/internal/platform/cache"
	"github.com/p-n-ai/tsea/internal/platform/config"
	"github.com/p-n-ai/tsea/internal/platform/database"
	"github.com/p-n-ai/tsea/internal/progress"
	"github.com/p-n-ai/tsea/internal/projects"
	"github.com/p-n-ai/tsea/internal/server"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	slog.SetDefault(newLogger(os.Stdout, cfg.Log))

	if err := cfg.Validate(); err != nil {
		slog.Error("invalid config", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}
}

func newLogger(w io.Writer, cfg config.LogConfig) *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}
	if strings.EqualFold(cfg.Format, "text") {
		return slog.New(slog.NewTextHandler(w, opts))
	}
	return slog.New(slog.NewJSONHandler(w, opts))
}

// run serves until ctx is cancelled, then shuts down gracefully.
func run(ctx context.Context, cfg *config.Config) error {
	a, err := build(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.close()

	srv := &http.Server{
		Addr:        fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:     a.handler,
		ReadTimeout: 10 * time.Second,
		// Chat turns wait on the upstream API.
		WriteTimeout: cfg.AI.Timeout + 30*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		slog.Info("server starting", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errc <- err
		}
		close(errc)
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}
	slog.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

// app is the wired application.
type app struct {
	handler http.Handler
	closers []func()
}

func (a *app) close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
}

// build wires every component. Without a database or cache URL the app runs
// on in-memory stores.
func build(ctx context.Context, cfg *config.Config) (*app, error) {
	a := &app{}

	cur, err := curriculum.Load(cfg.Content.CurriculumPath)
	if err != nil {
		return nil, fmt.Errorf("load curriculum: %w", err)
	}

	checks := map[string]func(context.Context) error{}

	var (
		progressStore progress.Store = progress.NewMemoryStore()
		quota         ai.Quota       = ai.NewMemoryQuota()
		limiter       server.RateLimiter
	)
	if cfg.Cache.URL != "" {
		c, err := cache.New(ctx, cfg.Cache.URL)
		if err != nil {
			a.close()
			return nil, err
		}
		a.closers = append(a.closers, func() { c.Close() })
		checks["cache"] = c.HealthCheck

		progressStore = progress.NewRedisStore(c.Client, cfg.ProgressTTL)
		quota = c.Quota()
		limiter = c.RateLimiter(cfg.Server.RateLimit)
		slog.Info("cache connected")
	}

	var (
		users         account.Store           = account.NewMemoryStore()
		conversations agent.ConversationStore = agent.NewMemoryStore()
		events        agent.EventLogger       = agent.NopEventLogger{}
	)
	if cfg.Database.URL != "" {
		db, err := database.New(ctx, cfg.Database.URL, database.Options{
			MaxConns: cfg.Database.MaxConns,
			MinConns: cfg.Database.MinConns,
		})
		if err != nil {
			a.close()
			return nil, err
		}
		a.closers = append(a.closers, db.Close)
		checks["database"] = db.HealthCheck

		if err := db.Migrate(ctx); err != nil {
			a.close()
			return nil, err
		}
		if users, err = account.NewPostgresStore(db.Pool); err != nil {
			a.close()
			return nil, err
		}
		if conversations, err = agent.NewPostgresStore(db.Pool); err != nil {
			a.close()
			return nil, err
		}
		events = agent.NewPostgresEventLogger(db.Pool)
		slog.Info("database connected")
	} else {
		slog.Warn("no database configured, accounts and chat history are kept in memory")
	}

	sessions, err := account.NewSessions(cfg.Auth.SessionSecret, cfg.Auth.SessionTTL)
	if err != nil {
		a.close()
		return nil, err
	}
	if cfg.UsesDefaultSecret() {
		slog.Warn("using the default session secret; set TSEA_AUTH_SESSION_SECRET")
	}

	if !cfg.HasAIProvider() {
		slog.Warn("no AI provider configured, chat will report 503")
	}
	client := ai.NewOpenAIClient(cfg.AI.APIKey,
		ai.WithBaseURL(cfg.AI.BaseURL),
		ai.WithTimeout(cfg.AI.Timeout),
	)
	engine := agent.NewEngine(agent.EngineConfig{
		Assistant:   ai.NewAssistant(client, cfg.AssistantConfig()),
		Store:       conversations,
		Events:      events,
		Quota:       quota,
		Limits:      agent.QuotaLimits{Basic: cfg.Quota.Basic, Pro: cfg.Quota.Pro, Elite: cfg.Quota.Elite},
		TurnTimeout: cfg.AI.Timeout,
	})

	projectStore, err := projects.Open(cfg.ProjectsPath)
	if err != nil {
		a.close()
		return nil, err
	}

	srv, err := server.New(server.Config{
		Progress:      progress.NewEngine(cur),
		ProgressStore: progressStore,
		Sessions:      sessions,
		Accounts:      account.NewService(users),
		Chat:          engine,
		Socket: chat.NewWebSocket(chat.Options{
			OriginPatterns: cfg.Server.OriginPatterns,
			FrameTimeout:   cfg.AI.Timeout + 30*time.Second,
		}),
		Projects:     projectStore,
		Events:       events,
		Limiter:      limiter,
		Checks:       checks,
		PublicDir:    cfg.Content.PublicDir,
		PagesDir:     cfg.Content.PagesDir,
		AdminToken:   cfg.Auth.AdminToken,
		SecureCookie: cfg.Auth.SecureCookie,
		TrustProxy:   cfg.Server.TrustProxy,
		RateLimit:    cfg.Server.RateLimit,
	})
	if err != nil {
		a.close()
		return nil, err
	}
	a.handler = srv
	return a, nil
}
