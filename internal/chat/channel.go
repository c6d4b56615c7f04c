// Package chat serves the live assistant channel over WebSocket.
package chat

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
)

const (
	defaultFrameTimeout = 90 * time.Second
	defaultReadLimit    = 16 << 10
)

// InboundMessage is a frame sent by the browser.
type InboundMessage struct {
	Persona string `json:"persona"`
	Message string `json:"message"`
}

// OutboundMessage is a frame sent to the browser. Typing frames precede the
// reply of each turn; Error is set instead of Reply when a turn fails.
type OutboundMessage struct {
	Persona        string `json:"persona,omitempty"`
	ConversationID string `json:"conversation_id,omitempty"`
	Reply          string `json:"reply,omitempty"`
	NoContent      bool   `json:"no_content,omitempty"`
	Typing         bool   `json:"typing,omitempty"`
	Error          string `json:"error,omitempty"`
}

// Handler answers one inbound frame.
type Handler func(ctx context.Context, msg InboundMessage) OutboundMessage

// Options configures a WebSocket channel.
type Options struct {
	// OriginPatterns are extra hosts allowed to open the socket cross-origin.
	OriginPatterns []string
	// FrameTimeout bounds the handling of one frame (default 90s).
	FrameTimeout time.Duration
	// ReadLimit caps the size of an inbound frame in bytes (default 16 KiB).
	ReadLimit int64
}

// WebSocket is the live chat channel.
type WebSocket struct {
	opts Options
}

// NewWebSocket creates a WebSocket channel.
func NewWebSocket(opts Options) *WebSocket {
	if opts.FrameTimeout == 0 {
		opts.FrameTimeout = defaultFrameTimeout
	}
	if opts.ReadLimit == 0 {
		opts.ReadLimit = defaultReadLimit
	}
	return &WebSocket{opts: opts}
}

// Serve upgrades the request and answers frames with handle until the peer
// closes or the request context ends. Frames are handled one at a time.
func (ws *WebSocket) Serve(w http.ResponseWriter, r *http.Request, handle Handler) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: ws.opts.OriginPatterns,
	})
	if err != nil {
		slog.Warn("websocket accept failed", "error", err)
		return
	}
	defer conn.CloseNow()
	conn.SetReadLimit(ws.opts.ReadLimit)

	ctx := r.Context()
	slog.Info("chat socket opened", "remote", r.RemoteAddr)

	for {
		typ, data, err := conn.Read(ctx)
		if err != nil {
			logClose(err)
			return
		}
		if err := ws.serveFrame(ctx, conn, typ, data, handle); err != nil {
			slog.Warn("chat socket write failed", "error", err)
			return
		}
	}
}

func (ws *WebSocket) serveFrame(ctx context.Context, conn *websocket.Conn, typ websocket.MessageType, data []byte, handle Handler) error {
	ctx, cancel := context.WithTimeout(ctx, ws.opts.FrameTimeout)
	defer cancel()

	if typ != websocket.MessageText {
		return wsjson.Write(ctx, conn, OutboundMessage{Error: "expected a text frame"})
	}
	var in InboundMessage
	if err := json.Unmarshal(data, &in); err != nil {
		return wsjson.Write(ctx, conn, OutboundMessage{Error: "malformed frame"})
	}

	if err := wsjson.Write(ctx, conn, OutboundMessage{Persona: in.Persona, Typing: true}); err != nil {
		return err
	}
	return wsjson.Write(ctx, conn, handle(ctx, in))
}

func logClose(err error) {
	switch websocket.CloseStatus(err) {
	case websocket.StatusNormalClosure, websocket.StatusGoingAway:
		slog.Info("chat socket closed")
	default:
		if errors.Is(err, context.Canceled) {
			slog.Info("chat socket closed", "reason", "context canceled")
			return
		}
		slog.Warn("chat socket read failed", "error", err)
	}
}
