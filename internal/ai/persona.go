package ai

import "strings"

// PersonaConfig is the per-persona model and prompt/identifier binding.
type PersonaConfig struct {
	Model        string
	AssistantID  string
	SystemPrompt string
}

// Config holds the statically configured assistant personas.
type Config struct {
	DefaultModel string
	Generation   Generation
	Personas     map[Persona]PersonaConfig
}

var defaultPrompts = map[Persona]string{
	PersonaIcator: "You are Icator, the TSEA trading-education assistant. Explain market concepts " +
		"clearly, use concrete chart examples, and never give personalised financial advice.",
	PersonaEvaluate: "You evaluate trading strategies. Point out risk, position sizing and " +
		"backtesting weaknesses before strengths. Be specific and brief.",
	PersonaDesign: "You help design rule-based trading strategies. Turn ideas into explicit entry, " +
		"exit and risk rules.",
	PersonaGenerate: "You generate practice scenarios and exercises for trading students, with " +
		"answers kept separate at the end.",
	PersonaEvolve: "You iterate on an existing trading strategy. Propose one focused change at a " +
		"time and explain what it should improve.",
}

// DefaultPrompt returns the built-in system prompt of a persona.
func DefaultPrompt(p Persona) string {
	return defaultPrompts[p]
}

// Resolve returns the effective configuration of a persona: configured values
// first, then the global default model and the built-in prompt.
func (c Config) Resolve(p Persona) (PersonaConfig, bool) {
	if _, ok := ParsePersona(string(p)); !ok {
		return PersonaConfig{}, false
	}
	pc := c.Personas[p]
	if pc.Model == "" {
		pc.Model = c.DefaultModel
	}
	if pc.SystemPrompt == "" {
		pc.SystemPrompt = defaultPrompts[p]
	}
	return pc, true
}

// BuildRequest builds the upstream request for a persona and user message,
// following the configured generation. It returns a *ConfigError when the
// persona is unknown or nothing callable is configured for it.
func BuildRequest(p Persona, userMessage string, cfg Config) (RequestBody, error) {
	pc, ok := cfg.Resolve(p)
	if !ok {
		return RequestBody{}, &ConfigError{Persona: p, Reason: "unknown persona"}
	}
	if strings.TrimSpace(userMessage) == "" {
		return RequestBody{}, ErrEmptyMessage
	}

	switch cfg.Generation {
	case GenerationAssistant:
		if pc.AssistantID == "" {
			return RequestBody{}, &ConfigError{Persona: p, Reason: "no assistant id"}
		}
		return RequestBody{
			Model:       pc.Model,
			Input:       userMessage,
			AssistantID: pc.AssistantID,
		}, nil
	case GenerationChat:
		if pc.Model == "" {
			return RequestBody{}, &ConfigError{Persona: p, Reason: "no model"}
		}
		return RequestBody{
			Model: pc.Model,
			Messages: []Message{
				{Role: "system", Content: pc.SystemPrompt},
				{Role: "user", Content: userMessage},
			},
		}, nil
	default:
		return RequestBody{}, &ConfigError{Persona: p, Reason: "unknown generation " + cfg.Generation.String()}
	}
}
