// Package agent runs assistant chat turns: quota, request building, the
// upstream call, conversation history and event logging.
package agent

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/p-n-ai/tsea/internal/ai"
	"github.com/p-n-ai/tsea/internal/progress"
)

const (
	defaultTurnTimeout  = 60 * time.Second
	defaultHistoryLimit = 50
)

// ErrQuotaExceeded is returned when a user has used up the day's chat turns.
var ErrQuotaExceeded = errors.New("daily chat quota exceeded")

// QuotaLimits are the daily chat turns per tier. ai.Unlimited disables a limit.
type QuotaLimits struct {
	Basic int
	Pro   int
	Elite int
}

// DefaultQuotaLimits is used when EngineConfig.Limits is zero.
var DefaultQuotaLimits = QuotaLimits{Basic: 20, Pro: 200, Elite: ai.Unlimited}

// Limit returns the daily limit for tier. Unknown tiers get no turns.
func (q QuotaLimits) Limit(tier progress.Tier) int {
	switch tier {
	case progress.TierBasic:
		return q.Basic
	case progress.TierPro:
		return q.Pro
	case progress.TierElite:
		return q.Elite
	default:
		return 0
	}
}

// EngineConfig holds dependencies for the agent engine.
type EngineConfig struct {
	Assistant    *ai.Assistant
	Store        ConversationStore
	Events       EventLogger
	Quota        ai.Quota
	Limits       QuotaLimits
	TurnTimeout  time.Duration // bound on one upstream call (default 60s)
	HistoryLimit int           // messages returned by History (default 50)
}

// Engine is the core conversation processor.
type Engine struct {
	assistant    *ai.Assistant
	store        ConversationStore
	events       EventLogger
	quota        ai.Quota
	limits       QuotaLimits
	turnTimeout  time.Duration
	historyLimit int
}

// NewEngine creates a new agent engine.
func NewEngine(cfg EngineConfig) *Engine {
	store := cfg.Store
	if store == nil {
		store = NewMemoryStore()
	}
	events := cfg.Events
	if events == nil {
		events = NopEventLogger{}
	}
	quota := cfg.Quota
	if quota == nil {
		quota = ai.NewMemoryQuota()
	}
	limits := cfg.Limits
	if limits == (QuotaLimits{}) {
		limits = DefaultQuotaLimits
	}
	timeout := cfg.TurnTimeout
	if timeout == 0 {
		timeout = defaultTurnTimeout
	}
	historyLimit := cfg.HistoryLimit
	if historyLimit == 0 {
		historyLimit = defaultHistoryLimit
	}
	return &Engine{
		assistant:    cfg.Assistant,
		store:        store,
		events:       events,
		quota:        quota,
		limits:       limits,
		turnTimeout:  timeout,
		historyLimit: historyLimit,
	}
}

// ChatRequest is one user turn.
type ChatRequest struct {
	UserID    string
	SessionID string
	Tier      progress.Tier
	Persona   string
	Text      string
}

// ChatReply is the assistant side of a turn. Text is the placeholder when
// NoContent is set.
type ChatReply struct {
	ConversationID string     `json:"conversation_id"`
	Persona        ai.Persona `json:"persona"`
	Text           string     `json:"reply"`
	NoContent      bool       `json:"no_content"`
}

// Chat runs one turn. Persona and message problems are reported before any
// quota is consumed; upstream failures are returned as-is and never retried.
func (e *Engine) Chat(ctx context.Context, req ChatRequest) (ChatReply, error) {
	if e.assistant == nil {
		return ChatReply{}, &ai.ConfigError{Reason: "no assistant client"}
	}
	if req.UserID == "" {
		return ChatReply{}, fmt.Errorf("user_id is required")
	}

	persona, ok := ai.ParsePersona(req.Persona)
	if !ok {
		return ChatReply{}, &ai.ConfigError{Persona: ai.Persona(req.Persona), Reason: "unknown persona"}
	}
	body, err := e.assistant.Build(persona, req.Text)
	if err != nil {
		return ChatReply{}, err
	}

	allowed, err := e.quota.Consume(ctx, quotaKey(req.UserID), e.limits.Limit(req.Tier))
	if err != nil {
		return ChatReply{}, fmt.Errorf("consume quota: %w", err)
	}
	if !allowed {
		return ChatReply{}, ErrQuotaExceeded
	}

	slog.Info("chat turn",
		"user_id", req.UserID,
		"persona", persona,
		"generation", body.Generation(),
		"text_len", len(req.Text),
	)

	callCtx, cancel := context.WithTimeout(ctx, e.turnTimeout)
	reply, err := e.assistant.Send(callCtx, body)
	cancel()
	if err != nil && !errors.Is(err, ai.ErrNoContent) {
		slog.Error("assistant call failed", "persona", persona, "error", err)
		return ChatReply{}, fmt.Errorf("ask %s: %w", persona, err)
	}

	out := ChatReply{
		Persona:   persona,
		Text:      reply.TextOrPlaceholder(),
		NoContent: !reply.HasContent(),
	}
	if out.NoContent {
		slog.Warn("assistant reply had no content", "persona", persona)
	}

	out.ConversationID = e.record(ctx, req, persona, body.Model, reply, out.Text)

	if err := e.events.LogEvent(ctx, Event{
		UserID:    req.UserID,
		SessionID: req.SessionID,
		EventType: EventChatTurn,
		Data: map[string]any{
			"persona":    string(persona),
			"shape":      reply.Shape.String(),
			"no_content": out.NoContent,
			"text_len":   len(req.Text),
		},
	}); err != nil {
		slog.Warn("failed to log chat event", "error", err)
	}

	return out, nil
}

// record stores both sides of a turn. Storage failures are logged, not
// returned: the user already has the reply.
func (e *Engine) record(ctx context.Context, req ChatRequest, persona ai.Persona, model string, reply ai.Reply, text string) string {
	conv, err := e.getOrCreateConversation(ctx, req.UserID, persona)
	if err != nil {
		slog.Error("failed to get conversation", "user_id", req.UserID, "persona", persona, "error", err)
		return ""
	}

	if err := e.store.AddMessage(ctx, conv.ID, StoredMessage{
		Role:    "user",
		Content: req.Text,
	}); err != nil {
		slog.Error("failed to store user message", "error", err)
	}
	if err := e.store.AddMessage(ctx, conv.ID, StoredMessage{
		Role:    "assistant",
		Content: text,
		Model:   model,
		Shape:   reply.Shape.String(),
	}); err != nil {
		slog.Error("failed to store assistant message", "error", err)
	}
	return conv.ID
}

func (e *Engine) getOrCreateConversation(ctx context.Context, userID string, persona ai.Persona) (*Conversation, error) {
	conv, found, err := e.store.ActiveConversation(ctx, userID, persona)
	if err != nil {
		return nil, err
	}
	if found {
		return conv, nil
	}
	id, err := e.store.CreateConversation(ctx, Conversation{
		UserID:  userID,
		Persona: persona,
	})
	if err != nil {
		return nil, err
	}
	return e.store.GetConversation(ctx, id)
}

// History returns the recent messages between a user and a persona.
func (e *Engine) History(ctx context.Context, userID, personaName string) ([]StoredMessage, error) {
	persona, ok := ai.ParsePersona(personaName)
	if !ok {
		return nil, &ai.ConfigError{Persona: ai.Persona(personaName), Reason: "unknown persona"}
	}
	msgs, err := e.store.History(ctx, userID, persona, e.historyLimit)
	if err != nil {
		return nil, fmt.Errorf("load history: %w", err)
	}
	return msgs, nil
}

// Reset ends the active conversation with a persona, if any.
func (e *Engine) Reset(ctx context.Context, userID, personaName string) error {
	persona, ok := ai.ParsePersona(personaName)
	if !ok {
		return &ai.ConfigError{Persona: ai.Persona(personaName), Reason: "unknown persona"}
	}
	conv, found, err := e.store.ActiveConversation(ctx, userID, persona)
	if err != nil || !found {
		return err
	}
	return e.store.EndConversation(ctx, conv.ID)
}

// Usage reports the chat turns used today and the tier's limit.
func (e *Engine) Usage(ctx context.Context, userID string, tier progress.Tier) (used, limit int, err error) {
	used, err = e.quota.Used(ctx, quotaKey(userID))
	if err != nil {
		return 0, 0, fmt.Errorf("quota usage: %w", err)
	}
	return used, e.limits.Limit(tier), nil
}

// HealthCheck probes the upstream assistant API.
func (e *Engine) HealthCheck(ctx context.Context) error {
	if e.assistant == nil {
		return &ai.ConfigError{Reason: "no assistant client"}
	}
	return e.assistant.HealthCheck(ctx)
}

func quotaKey(userID string) string {
	return "chat:" + userID
}
