package ai

import (
	"errors"
	"fmt"
)

var (
	// ErrNoContent means the upstream call succeeded but produced no usable text.
	ErrNoContent = errors.New("no content in reply")
	// ErrEmptyMessage is returned for a blank user message.
	ErrEmptyMessage = errors.New("message is empty")
)

// ConfigError reports a persona that cannot be called with the current
// configuration. It is returned before any network call.
type ConfigError struct {
	Persona Persona
	Reason  string
}

func (e *ConfigError) Error() string {
	if e.Persona == "" {
		return "assistant not configured: " + e.Reason
	}
	return fmt.Sprintf("assistant %q not configured: %s", e.Persona, e.Reason)
}

// UpstreamError reports a failed remote call: transport failure, non-success
// status or an unparseable body. It is never retried here.
type UpstreamError struct {
	Status  int // 0 when no response was received
	Message string
	Err     error
}

func (e *UpstreamError) Error() string {
	msg := "upstream call failed"
	if e.Status != 0 {
		msg += fmt.Sprintf(" (status %d)", e.Status)
	}
	if e.Message != "" {
		msg += ": " + e.Message
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *UpstreamError) Unwrap() error {
	return e.Err
}
