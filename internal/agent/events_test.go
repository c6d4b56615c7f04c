package agent_test

import (
	"context"
	"testing"

	"github.com/p-n-ai/tsea/internal/agent"
)

func TestMemoryEventLogger_LogEvent(t *testing.T) {
	logger := agent.NewMemoryEventLogger()

	err := logger.LogEvent(context.Background(), agent.Event{
		UserID:    "user-1",
		SessionID: "sess-1",
		EventType: agent.EventLessonCompleted,
		Data: map[string]any{
			"module": "candles",
			"lesson": "intro",
		},
	})
	if err != nil {
		t.Fatalf("LogEvent() error = %v", err)
	}

	events := logger.Events()
	if len(events) != 1 {
		t.Fatalf("len(events) = %d, want 1", len(events))
	}
	if events[0].EventType != agent.EventLessonCompleted {
		t.Errorf("EventType = %q, want lesson_completed", events[0].EventType)
	}
	if events[0].CreatedAt.IsZero() {
		t.Error("CreatedAt should be set")
	}
}

func TestMemoryEventLogger_RequiresType(t *testing.T) {
	logger := agent.NewMemoryEventLogger()
	if err := logger.LogEvent(context.Background(), agent.Event{UserID: "u"}); err == nil {
		t.Error("LogEvent() without type should fail")
	}
}

func TestMemoryEventLogger_OfType(t *testing.T) {
	logger := agent.NewMemoryEventLogger()
	ctx := context.Background()
	logger.LogEvent(ctx, agent.Event{EventType: agent.EventSignup})
	logger.LogEvent(ctx, agent.Event{EventType: agent.EventLogin})
	logger.LogEvent(ctx, agent.Event{EventType: agent.EventLogin})

	if got := logger.OfType(agent.EventLogin); len(got) != 2 {
		t.Errorf("OfType(login) = %d events, want 2", len(got))
	}
}

func TestNopEventLogger(t *testing.T) {
	if err := (agent.NopEventLogger{}).LogEvent(context.Background(), agent.Event{}); err != nil {
		t.Errorf("LogEvent() error = %v", err)
	}
}

func TestPostgresEventLogger_LogEvent_NilPool(t *testing.T) {
	logger := agent.NewPostgresEventLogger(nil)

	err := logger.LogEvent(context.Background(), agent.Event{
		UserID:    "user-1",
		EventType: agent.EventQuizGraded,
	})
	if err == nil {
		t.Fatal("expected error for nil pool")
	}
}
