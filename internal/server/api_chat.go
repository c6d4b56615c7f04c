package server

import (
	"context"
	"net/http"

	"github.com/p-n-ai/tsea/internal/agent"
	"github.com/p-n-ai/tsea/internal/ai"
	"github.com/p-n-ai/tsea/internal/chat"
)

type chatRequest struct {
	Message string `json:"message"`
}

// persona resolves the {persona} path value, writing 404 when unknown.
func persona(w http.ResponseWriter, r *http.Request) (ai.Persona, bool) {
	p, ok := ai.ParsePersona(r.PathValue("persona"))
	if !ok {
		writeError(w, http.StatusNotFound, "unknown persona: "+r.PathValue("persona"))
	}
	return p, ok
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	p, ok := persona(w, r)
	if !ok {
		return
	}
	var in chatRequest
	if err := decodeJSON(w, r, &in); err != nil {
		writeErr(w, r, err)
		return
	}
	v, err := s.viewer(r)
	if err != nil {
		writeErr(w, r, err)
		return
	}

	reply, err := s.chat.Chat(r.Context(), s.chatRequest(v, string(p), in.Message))
	if err != nil {
		writeErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, reply)
}

func (s *Server) chatRequest(v viewer, persona, text string) agent.ChatRequest {
	return agent.ChatRequest{
		UserID:    v.ChatID(),
		SessionID: v.Session.ID,
		Tier:      v.Tier(),
		Persona:   persona,
		Text:      text,
	}
}

func (s *Server) handleChatHistory(w http.ResponseWriter, r *http.Request) {
	p, ok := persona(w, r)
	if !ok {
		return
	}
	v, err := s.viewer(r)
	if err != nil {
		writeErr(w, r, err)
		return
	}
	msgs, err := s.chat.History(r.Context(), v.ChatID(), string(p))
	if err != nil {
		writeErr(w, r, err)
		return
	}
	if msgs == nil {
		msgs = []agent.StoredMessage{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"persona": p, "messages": msgs})
}

// handleChatReset ends the conversation so the next turn starts a new one.
func (s *Server) handleChatReset(w http.ResponseWriter, r *http.Request) {
	p, ok := persona(w, r)
	if !ok {
		return
	}
	v, err := s.viewer(r)
	if err != nil {
		writeErr(w, r, err)
		return
	}
	if err := s.chat.Reset(r.Context(), v.ChatID(), string(p)); err != nil {
		writeErr(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type usageBody struct {
	Used  int `json:"used"`
	Limit int `json:"limit"` // -1 is unlimited
}

func (s *Server) handleChatUsage(w http.ResponseWriter, r *http.Request) {
	v, err := s.viewer(r)
	if err != nil {
		writeErr(w, r, err)
		return
	}
	used, limit, err := s.chat.Usage(r.Context(), v.ChatID(), v.Tier())
	if err != nil {
		writeErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, usageBody{Used: used, Limit: limit})
}

// handleChatSocket runs chat turns over a WebSocket for the caller's session.
func (s *Server) handleChatSocket(w http.ResponseWriter, r *http.Request) {
	v, err := s.viewer(r)
	if err != nil {
		writeErr(w, r, err)
		return
	}
	s.socket.Serve(w, r, func(ctx context.Context, in chat.InboundMessage) chat.OutboundMessage {
		reply, err := s.chat.Chat(ctx, s.chatRequest(v, in.Persona, in.Message))
		if err != nil {
			_, msg := errorStatus(err)
			if _, ok := ai.ParsePersona(in.Persona); !ok {
				msg = "unknown persona: " + in.Persona
			}
			return chat.OutboundMessage{Persona: in.Persona, Error: msg}
		}
		return chat.OutboundMessage{
			Persona:        string(reply.Persona),
			ConversationID: reply.ConversationID,
			Reply:          reply.Text,
			NoContent:      reply.NoContent,
		}
	})
}
