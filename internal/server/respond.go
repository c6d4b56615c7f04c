package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/p-n-ai/tsea/internal/account"
	"github.com/p-n-ai/tsea/internal/agent"
	"github.com/p-n-ai/tsea/internal/ai"
	"github.com/p-n-ai/tsea/internal/progress"
	"github.com/p-n-ai/tsea/internal/projects"
)

const maxBodyBytes = 64 << 10

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Warn("failed to write response", "error", err)
	}
}

type errorBody struct {
	Error string `json:"error"`
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorBody{Error: msg})
}

// writeErr maps a domain error to its HTTP status. Unexpected errors are
// logged and reported without detail.
func writeErr(w http.ResponseWriter, r *http.Request, err error) {
	status, msg := errorStatus(err)
	if status >= http.StatusInternalServerError {
		slog.Error("request failed", "method", r.Method, "path", r.URL.Path, "status", status, "error", err)
	}
	writeError(w, status, msg)
}

func errorStatus(err error) (int, string) {
	var (
		notFound  *progress.NotFoundError
		invalid   *account.ValidationError
		configErr *ai.ConfigError
		upstream  *ai.UpstreamError
		maxBytes  *http.MaxBytesError
		syntaxErr *json.SyntaxError
	)
	switch {
	case errors.As(err, &notFound):
		return http.StatusNotFound, notFound.Error()
	case errors.Is(err, progress.ErrTrackLocked):
		return http.StatusForbidden, "upgrade required to open this track"
	case errors.Is(err, projects.ErrProjectNotFound),
		errors.Is(err, agent.ErrConversationNotFound),
		errors.Is(err, account.ErrUserNotFound):
		return http.StatusNotFound, err.Error()
	case errors.Is(err, account.ErrInvalidCredentials):
		return http.StatusUnauthorized, err.Error()
	case errors.Is(err, account.ErrEmailTaken):
		return http.StatusConflict, err.Error()
	case errors.Is(err, agent.ErrQuotaExceeded):
		return http.StatusTooManyRequests, "daily chat limit reached"
	case errors.As(err, &invalid),
		errors.Is(err, projects.ErrInvalidProject),
		errors.Is(err, ai.ErrEmptyMessage),
		errors.Is(err, errBadRequest):
		return http.StatusBadRequest, err.Error()
	case errors.As(err, &maxBytes):
		return http.StatusRequestEntityTooLarge, "request body too large"
	case errors.As(err, &syntaxErr), errors.Is(err, io.EOF), errors.Is(err, io.ErrUnexpectedEOF):
		return http.StatusBadRequest, "malformed JSON body"
	case errors.As(err, &configErr):
		return http.StatusServiceUnavailable, "assistant is not configured"
	case errors.As(err, &upstream):
		return http.StatusBadGateway, "assistant unavailable"
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, "assistant timed out"
	default:
		return http.StatusInternalServerError, "internal error"
	}
}

var errBadRequest = errors.New("bad request")

func badRequest(format string, args ...any) error {
	return fmt.Errorf("%w: %s", errBadRequest, fmt.Sprintf(format, args...))
}

// decodeJSON reads a size-limited JSON body into v.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(v); err != nil {
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &typeErr) {
			return badRequest("field %s has the wrong type", typeErr.Field)
		}
		return err
	}
	return nil
}
