package ai

import (
	"context"
	"errors"
	"fmt"
)

// Assistant builds, sends and normalizes a single persona turn.
type Assistant struct {
	client Client
	cfg    Config
}

// NewAssistant creates an Assistant over client.
func NewAssistant(client Client, cfg Config) *Assistant {
	return &Assistant{client: client, cfg: cfg}
}

// Config returns the persona configuration in use.
func (a *Assistant) Config() Config {
	return a.cfg
}

// Build validates persona and message and builds the upstream request
// without sending it.
func (a *Assistant) Build(persona Persona, message string) (RequestBody, error) {
	return BuildRequest(persona, message, a.cfg)
}

// Send delivers a built request and normalizes the response. A reply that
// carries no text is returned together with ErrNoContent.
func (a *Assistant) Send(ctx context.Context, req RequestBody) (Reply, error) {
	raw, err := a.client.Send(ctx, req)
	if err != nil {
		return Reply{}, err
	}

	reply := ParseReply(raw)
	if !reply.HasContent() {
		return reply, ErrNoContent
	}
	return reply, nil
}

// Ask builds and sends a single turn to persona.
func (a *Assistant) Ask(ctx context.Context, persona Persona, message string) (Reply, error) {
	req, err := a.Build(persona, message)
	if err != nil {
		return Reply{}, err
	}
	reply, err := a.Send(ctx, req)
	if err != nil && !errors.Is(err, ErrNoContent) {
		return Reply{}, fmt.Errorf("ask %s: %w", persona, err)
	}
	return reply, err
}

// HealthCheck probes the upstream API.
func (a *Assistant) HealthCheck(ctx context.Context) error {
	return a.client.HealthCheck(ctx)
}
