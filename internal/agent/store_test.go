package agent_test

import (
	"context"
	"errors"
	"testing"

	"github.com/p-n-ai/tsea/internal/agent"
	"github.com/p-n-ai/tsea/internal/ai"
)

// testConversationStore exercises the ConversationStore contract. It is run
// against every implementation.
func testConversationStore(t *testing.T, store agent.ConversationStore) {
	ctx := context.Background()

	t.Run("create and add", func(t *testing.T) {
		id, err := store.CreateConversation(ctx, agent.Conversation{
			UserID:  "u-create",
			Persona: ai.PersonaIcator,
		})
		if err != nil {
			t.Fatalf("CreateConversation() error = %v", err)
		}
		if id == "" {
			t.Fatal("CreateConversation() returned empty ID")
		}

		if err := store.AddMessage(ctx, id, agent.StoredMessage{Role: "user", Content: "What is a pin bar?"}); err != nil {
			t.Fatalf("AddMessage() error = %v", err)
		}
		if err := store.AddMessage(ctx, id, agent.StoredMessage{Role: "assistant", Content: "A rejection candle.", Model: "m", Shape: "chat_completion"}); err != nil {
			t.Fatalf("AddMessage() error = %v", err)
		}

		got, err := store.GetConversation(ctx, id)
		if err != nil {
			t.Fatalf("GetConversation() error = %v", err)
		}
		if len(got.Messages) != 2 {
			t.Fatalf("Messages count = %d, want 2", len(got.Messages))
		}
		if got.Messages[1].Model != "m" || got.Messages[1].Shape != "chat_completion" {
			t.Errorf("assistant message = %+v", got.Messages[1])
		}
		if got.Persona != ai.PersonaIcator || got.UserID != "u-create" {
			t.Errorf("conversation = %+v", got)
		}
	})

	t.Run("active per persona", func(t *testing.T) {
		id, _ := store.CreateConversation(ctx, agent.Conversation{UserID: "u-active", Persona: ai.PersonaDesign})

		active, found, err := store.ActiveConversation(ctx, "u-active", ai.PersonaDesign)
		if err != nil || !found {
			t.Fatalf("ActiveConversation() = %v, %v", found, err)
		}
		if active.ID != id {
			t.Errorf("active ID = %q, want %q", active.ID, id)
		}

		if _, found, _ := store.ActiveConversation(ctx, "u-active", ai.PersonaEvolve); found {
			t.Error("other persona should have no active conversation")
		}
		if _, found, _ := store.ActiveConversation(ctx, "someone-else", ai.PersonaDesign); found {
			t.Error("other user should have no active conversation")
		}
	})

	t.Run("end", func(t *testing.T) {
		id, _ := store.CreateConversation(ctx, agent.Conversation{UserID: "u-end", Persona: ai.PersonaIcator})
		if err := store.EndConversation(ctx, id); err != nil {
			t.Fatalf("EndConversation() error = %v", err)
		}
		if _, found, _ := store.ActiveConversation(ctx, "u-end", ai.PersonaIcator); found {
			t.Error("ended conversation should not be active")
		}
		got, err := store.GetConversation(ctx, id)
		if err != nil || got.EndedAt == nil {
			t.Errorf("GetConversation() = %+v, %v; want EndedAt set", got, err)
		}
	})

	t.Run("history limit", func(t *testing.T) {
		id, _ := store.CreateConversation(ctx, agent.Conversation{UserID: "u-hist", Persona: ai.PersonaGenerate})
		for _, text := range []string{"one", "two", "three", "four"} {
			if err := store.AddMessage(ctx, id, agent.StoredMessage{Role: "user", Content: text}); err != nil {
				t.Fatalf("AddMessage() error = %v", err)
			}
		}

		got, err := store.History(ctx, "u-hist", ai.PersonaGenerate, 2)
		if err != nil {
			t.Fatalf("History() error = %v", err)
		}
		if len(got) != 2 || got[0].Content != "three" || got[1].Content != "four" {
			t.Errorf("History(2) = %+v, want three, four", got)
		}

		all, _ := store.History(ctx, "u-hist", ai.PersonaGenerate, 0)
		if len(all) != 4 {
			t.Errorf("History(0) = %d messages, want 4", len(all))
		}

		none, err := store.History(ctx, "nobody", ai.PersonaGenerate, 10)
		if err != nil || len(none) != 0 {
			t.Errorf("History(nobody) = %v, %v", none, err)
		}
	})

	t.Run("unknown conversation", func(t *testing.T) {
		missing := "00000000-0000-0000-0000-000000000000"
		if _, err := store.GetConversation(ctx, missing); !errors.Is(err, agent.ErrConversationNotFound) {
			t.Errorf("GetConversation() error = %v, want ErrConversationNotFound", err)
		}
		if err := store.AddMessage(ctx, missing, agent.StoredMessage{Role: "user", Content: "x"}); !errors.Is(err, agent.ErrConversationNotFound) {
			t.Errorf("AddMessage() error = %v, want ErrConversationNotFound", err)
		}
		if err := store.EndConversation(ctx, missing); !errors.Is(err, agent.ErrConversationNotFound) {
			t.Errorf("EndConversation() error = %v, want ErrConversationNotFound", err)
		}
	})

	t.Run("validation", func(t *testing.T) {
		if _, err := store.CreateConversation(ctx, agent.Conversation{Persona: ai.PersonaIcator}); err == nil {
			t.Error("CreateConversation() without user should fail")
		}
		id, _ := store.CreateConversation(ctx, agent.Conversation{UserID: "u-val", Persona: ai.PersonaIcator})
		if err := store.AddMessage(ctx, id, agent.StoredMessage{Content: "no role"}); err == nil {
			t.Error("AddMessage() without role should fail")
		}
	})
}

func TestMemoryStore(t *testing.T) {
	testConversationStore(t, agent.NewMemoryStore())
}

func TestMemoryStore_ReturnsCopies(t *testing.T) {
	ctx := context.Background()
	store := agent.NewMemoryStore()
	id, _ := store.CreateConversation(ctx, agent.Conversation{UserID: "u", Persona: ai.PersonaIcator})
	store.AddMessage(ctx, id, agent.StoredMessage{Role: "user", Content: "hi"})

	got, _ := store.GetConversation(ctx, id)
	got.Messages[0].Content = "changed"

	again, _ := store.GetConversation(ctx, id)
	if again.Messages[0].Content != "hi" {
		t.Error("mutating a returned conversation must not change the store")
	}
}

func TestNewPostgresStore_NilPool(t *testing.T) {
	if _, err := agent.NewPostgresStore(nil); err == nil {
		t.Error("NewPostgresStore(nil) should fail")
	}
}
