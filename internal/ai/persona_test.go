package ai_test

import (
	"errors"
	"testing"

	"github.com/p-n-ai/tsea/internal/ai"
)

func TestBuildRequest_Chat(t *testing.T) {
	cfg := ai.Config{
		DefaultModel: "gpt-4o-mini",
		Generation:   ai.GenerationChat,
		Personas: map[ai.Persona]ai.PersonaConfig{
			ai.PersonaDesign: {Model: "gpt-4o", SystemPrompt: "design prompt"},
		},
	}

	req, err := ai.BuildRequest(ai.PersonaDesign, "build me a breakout system", cfg)
	if err != nil {
		t.Fatalf("BuildRequest() error = %v", err)
	}
	if req.Model != "gpt-4o" {
		t.Errorf("Model = %q, want persona override", req.Model)
	}
	if len(req.Messages) != 2 {
		t.Fatalf("Messages = %+v, want system + user", req.Messages)
	}
	if req.Messages[0] != (ai.Message{Role: "system", Content: "design prompt"}) {
		t.Errorf("system message = %+v", req.Messages[0])
	}
	if req.Messages[1] != (ai.Message{Role: "user", Content: "build me a breakout system"}) {
		t.Errorf("user message = %+v", req.Messages[1])
	}
	if req.AssistantID != "" || req.Input != "" {
		t.Errorf("chat request carries assistant fields: %+v", req)
	}
}

func TestBuildRequest_ChatDefaults(t *testing.T) {
	cfg := ai.Config{DefaultModel: "gpt-4o-mini", Generation: ai.GenerationChat}

	req, err := ai.BuildRequest(ai.PersonaIcator, "what is a doji?", cfg)
	if err != nil {
		t.Fatalf("BuildRequest() error = %v", err)
	}
	if req.Model != "gpt-4o-mini" {
		t.Errorf("Model = %q, want global default", req.Model)
	}
	if req.Messages[0].Content != ai.DefaultPrompt(ai.PersonaIcator) {
		t.Error("system prompt should fall back to the built-in prompt")
	}
}

func TestBuildRequest_Assistant(t *testing.T) {
	cfg := ai.Config{
		Generation: ai.GenerationAssistant,
		Personas: map[ai.Persona]ai.PersonaConfig{
			ai.PersonaEvolve: {AssistantID: "asst_evolve"},
		},
	}

	req, err := ai.BuildRequest(ai.PersonaEvolve, "tighten my stop", cfg)
	if err != nil {
		t.Fatalf("BuildRequest() error = %v", err)
	}
	if req.AssistantID != "asst_evolve" || req.Input != "tighten my stop" {
		t.Errorf("request = %+v", req)
	}
	if req.Messages != nil {
		t.Error("assistant request must not carry messages")
	}
	if req.Generation() != ai.GenerationAssistant {
		t.Errorf("Generation() = %v", req.Generation())
	}
}

func TestBuildRequest_ConfigErrors(t *testing.T) {
	tests := []struct {
		name    string
		persona ai.Persona
		cfg     ai.Config
	}{
		{"unknown persona", ai.Persona("admin"), ai.Config{DefaultModel: "m"}},
		{"chat without any model", ai.PersonaIcator, ai.Config{Generation: ai.GenerationChat}},
		{"assistant without id", ai.PersonaIcator, ai.Config{DefaultModel: "m", Generation: ai.GenerationAssistant}},
		{"unknown generation", ai.PersonaIcator, ai.Config{DefaultModel: "m", Generation: ai.Generation(9)}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ai.BuildRequest(tt.persona, "hello", tt.cfg)
			var ce *ai.ConfigError
			if !errors.As(err, &ce) {
				t.Errorf("BuildRequest() error = %v, want *ConfigError", err)
			}
		})
	}
}

func TestBuildRequest_EmptyMessage(t *testing.T) {
	cfg := ai.Config{DefaultModel: "m"}
	if _, err := ai.BuildRequest(ai.PersonaIcator, "  \n", cfg); !errors.Is(err, ai.ErrEmptyMessage) {
		t.Errorf("BuildRequest() error = %v, want ErrEmptyMessage", err)
	}
}
