// Package config loads application configuration from environment variables.
// All variables use the TSEA_ prefix.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/p-n-ai/tsea/internal/ai"
)

// Config holds all application configuration.
type Config struct {
	Server       ServerConfig
	Content      ContentConfig
	Database     DatabaseConfig
	Cache        CacheConfig
	AI           AIConfig
	Auth         AuthConfig
	Quota        QuotaConfig
	Log          LogConfig
	ProgressTTL  time.Duration
	ProjectsPath string
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port           int
	Host           string
	RateLimit      int // requests per minute per client on /api/
	TrustProxy     bool
	OriginPatterns []string
}

// ContentConfig locates the static site and curriculum.
type ContentConfig struct {
	PublicDir      string
	PagesDir       string
	CurriculumPath string
}

// DatabaseConfig holds PostgreSQL connection settings. An empty URL selects
// in-memory stores.
type DatabaseConfig struct {
	URL      string
	MaxConns int
	MinConns int
}

// CacheConfig holds Redis connection settings. An empty URL selects
// in-process progress storage, quotas and rate limiting.
type CacheConfig struct {
	URL string
}

// AIConfig holds the upstream inference API and persona settings.
type AIConfig struct {
	APIKey       string
	BaseURL      string
	DefaultModel string
	Generation   string // "chat" or "assistant"
	Timeout      time.Duration
	Personas     map[ai.Persona]ai.PersonaConfig
}

// AuthConfig holds session and admin settings.
type AuthConfig struct {
	SessionSecret string
	SessionTTL    time.Duration
	AdminToken    string
	SecureCookie  bool
}

// QuotaConfig holds daily chat turns per tier. -1 is unlimited.
type QuotaConfig struct {
	Basic int
	Pro   int
	Elite int
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level  string
	Format string
}

const defaultSessionSecret = "change-me-in-production"

// Load reads configuration from environment variables with TSEA_ prefix.
func Load() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Port:           envInt("TSEA_SERVER_PORT", 3000),
			Host:           envStr("TSEA_SERVER_HOST", "0.0.0.0"),
			RateLimit:      envInt("TSEA_RATE_LIMIT_PER_MINUTE", 120),
			TrustProxy:     envBool("TSEA_TRUST_PROXY", false),
			OriginPatterns: envList("TSEA_WS_ORIGIN_PATTERNS"),
		},
		Content: ContentConfig{
			PublicDir:      envStr("TSEA_PUBLIC_DIR", "./public"),
			PagesDir:       envStr("TSEA_PAGES_DIR", "./pages"),
			CurriculumPath: envStr("TSEA_CURRICULUM_PATH", "./content"),
		},
		Database: DatabaseConfig{
			URL:      envStr("TSEA_DATABASE_URL", ""),
			MaxConns: envInt("TSEA_DATABASE_MAX_CONNS", 10),
			MinConns: envInt("TSEA_DATABASE_MIN_CONNS", 1),
		},
		Cache: CacheConfig{
			URL: envStr("TSEA_CACHE_URL", ""),
		},
		AI: AIConfig{
			APIKey:       envStr("TSEA_AI_OPENAI_API_KEY", ""),
			BaseURL:      envStr("TSEA_AI_BASE_URL", "https://api.openai.com/v1"),
			DefaultModel: envStr("TSEA_AI_DEFAULT_MODEL", "gpt-4o-mini"),
			Generation:   envStr("TSEA_AI_GENERATION", "chat"),
			Timeout:      envDuration("TSEA_AI_TIMEOUT", 60*time.Second),
			Personas:     personasFromEnv(),
		},
		Auth: AuthConfig{
			SessionSecret: envStr("TSEA_AUTH_SESSION_SECRET", defaultSessionSecret),
			SessionTTL:    envDuration("TSEA_AUTH_SESSION_TTL", 30*24*time.Hour),
			AdminToken:    envStr("TSEA_AUTH_ADMIN_TOKEN", ""),
			SecureCookie:  envBool("TSEA_AUTH_SECURE_COOKIE", false),
		},
		Quota: QuotaConfig{
			Basic: envInt("TSEA_QUOTA_BASIC", 20),
			Pro:   envInt("TSEA_QUOTA_PRO", 200),
			Elite: envInt("TSEA_QUOTA_ELITE", -1),
		},
		Log: LogConfig{
			Level:  envStr("TSEA_LOG_LEVEL", "info"),
			Format: envStr("TSEA_LOG_FORMAT", "json"),
		},
		ProgressTTL:  envDuration("TSEA_PROGRESS_TTL", 90*24*time.Hour),
		ProjectsPath: envStr("TSEA_PROJECTS_PATH", "./data/projects.json"),
	}

	return cfg, nil
}

// personasFromEnv reads TSEA_AI_<PERSONA>_MODEL, _ASSISTANT_ID and _PROMPT.
func personasFromEnv() map[ai.Persona]ai.PersonaConfig {
	out := make(map[ai.Persona]ai.PersonaConfig)
	for _, p := range ai.Personas() {
		prefix := "TSEA_AI_" + strings.ToUpper(string(p)) + "_"
		pc := ai.PersonaConfig{
			Model:        envStr(prefix+"MODEL", ""),
			AssistantID:  envStr(prefix+"ASSISTANT_ID", ""),
			SystemPrompt: envStr(prefix+"PROMPT", ""),
		}
		if pc != (ai.PersonaConfig{}) {
			out[p] = pc
		}
	}
	return out
}

// Validate checks that the configuration is usable. A missing API key is
// not an error: chat then reports a configuration error per request.
func (c *Config) Validate() error {
	var errs []error

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("TSEA_SERVER_PORT must be 1-65535, got %d", c.Server.Port))
	}
	if c.Server.RateLimit <= 0 {
		errs = append(errs, fmt.Errorf("TSEA_RATE_LIMIT_PER_MINUTE must be positive, got %d", c.Server.RateLimit))
	}
	if _, ok := ai.ParseGeneration(c.AI.Generation); !ok {
		errs = append(errs, fmt.Errorf("TSEA_AI_GENERATION must be 'chat' or 'assistant', got %q", c.AI.Generation))
	}
	if c.AI.Timeout <= 0 {
		errs = append(errs, fmt.Errorf("TSEA_AI_TIMEOUT must be positive"))
	}
	if c.Auth.SessionSecret == "" {
		errs = append(errs, fmt.Errorf("TSEA_AUTH_SESSION_SECRET is required"))
	}
	if c.Auth.SessionTTL <= 0 {
		errs = append(errs, fmt.Errorf("TSEA_AUTH_SESSION_TTL must be positive"))
	}
	if c.Database.URL != "" && c.Database.MinConns > c.Database.MaxConns {
		errs = append(errs, fmt.Errorf("TSEA_DATABASE_MIN_CONNS (%d) exceeds TSEA_DATABASE_MAX_CONNS (%d)", c.Database.MinConns, c.Database.MaxConns))
	}
	for name, v := range map[string]int{"BASIC": c.Quota.Basic, "PRO": c.Quota.Pro, "ELITE": c.Quota.Elite} {
		if v < -1 {
			errs = append(errs, fmt.Errorf("TSEA_QUOTA_%s must be -1 or more, got %d", name, v))
		}
	}

	return errors.Join(errs...)
}

// UsesDefaultSecret reports whether the built-in development secret is in use.
func (c *Config) UsesDefaultSecret() bool {
	return c.Auth.SessionSecret == defaultSessionSecret
}

// HasAIProvider returns true if the inference API is configured.
func (c *Config) HasAIProvider() bool {
	return c.AI.APIKey != ""
}

// AssistantConfig converts the AI settings to the persona configuration.
func (c *Config) AssistantConfig() ai.Config {
	gen, _ := ai.ParseGeneration(c.AI.Generation)
	return ai.Config{
		DefaultModel: c.AI.DefaultModel,
		Generation:   gen,
		Personas:     c.AI.Personas,
	}
}

func envStr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		return strings.EqualFold(v, "true") || v == "1"
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

func envList(key string) []string {
	var out []string
	for _, part := range strings.Split(os.Getenv(key), ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
