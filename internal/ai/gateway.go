// Package ai builds assistant requests for the remote inference API and
// normalizes the replies it returns.
package ai

import (
	"context"
	"strings"

	"golang.org/x/text/cases"
)

// Persona is a named assistant configuration.
type Persona string

const (
	PersonaIcator   Persona = "icator"
	PersonaEvaluate Persona = "evaluate"
	PersonaDesign   Persona = "design"
	PersonaGenerate Persona = "generate"
	PersonaEvolve   Persona = "evolve"
)

// Personas returns every known persona in display order.
func Personas() []Persona {
	return []Persona{PersonaIcator, PersonaEvaluate, PersonaDesign, PersonaGenerate, PersonaEvolve}
}

// ParsePersona resolves a persona name. Unknown names fail closed.
func ParsePersona(s string) (Persona, bool) {
	p := Persona(cases.Fold().String(strings.TrimSpace(s)))
	switch p {
	case PersonaIcator, PersonaEvaluate, PersonaDesign, PersonaGenerate, PersonaEvolve:
		return p, true
	default:
		return "", false
	}
}

// Generation selects the upstream request contract.
type Generation int

const (
	// GenerationChat sends a system+user message exchange to /chat/completions.
	GenerationChat Generation = iota
	// GenerationAssistant sends input plus a remote assistant id to /responses.
	GenerationAssistant
)

func (g Generation) String() string {
	switch g {
	case GenerationChat:
		return "chat"
	case GenerationAssistant:
		return "assistant"
	default:
		return "unknown"
	}
}

// ParseGeneration maps "chat" or "assistant" to a Generation.
func ParseGeneration(s string) (Generation, bool) {
	switch cases.Fold().String(strings.TrimSpace(s)) {
	case "chat":
		return GenerationChat, true
	case "assistant":
		return GenerationAssistant, true
	default:
		return GenerationChat, false
	}
}

// Message is one entry of a chat-completion exchange.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// RequestBody is the JSON document sent upstream. Exactly one of the
// Input/AssistantID pair or Messages is populated.
type RequestBody struct {
	Model       string    `json:"model,omitempty"`
	Input       string    `json:"input,omitempty"`
	AssistantID string    `json:"assistant_id,omitempty"`
	Messages    []Message `json:"messages,omitempty"`
}

// Generation reports which contract the body was built for.
func (r RequestBody) Generation() Generation {
	if r.AssistantID != "" {
		return GenerationAssistant
	}
	return GenerationChat
}

// Client sends a request body upstream and returns the raw response document.
type Client interface {
	Send(ctx context.Context, req RequestBody) ([]byte, error)
	HealthCheck(ctx context.Context) error
}
