package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/Thomaz-Klifson/car-search/internal/app"
	"github.com/Thomaz-Klifson/car-search/internal/chat"
	"github.com/Thomaz-Klifson/car-search/internal/llm"
	"github.com/Thomaz-Klifson/car-search/internal/observability"
)

// Chatter runs a conversation turn.
type Chatter interface {
	Chat(ctx context.Context, conversation []llm.Message) (*chat.TurnResult, error)
}

// ChatHandler streams conversation turns as server-sent events.
type ChatHandler struct {
	logger  *observability.Logger
	chatter Chatter
}

// NewChatHandler creates a new chat handler.
func NewChatHandler(logger *observability.Logger, chatter Chatter) *ChatHandler {
	return &ChatHandler{logger: logger, chatter: chatter}
}

// ChatRequestDTO is the body of a chat request.
type ChatRequestDTO struct {
	Messages []ChatMessageDTO `json:"messages"`
}

// ChatMessageDTO is one message of the conversation so far.
type ChatMessageDTO struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// StreamEvent is one SSE payload.
type StreamEvent struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

const (
	EventToolResults = "tool_results"
	EventText        = "text"
	EventError       = "error"
	doneSentinel     = "[DONE]"
)

// Chat handles POST /api/chat.
func (h *ChatHandler) Chat(w http.ResponseWriter, r *http.Request) {
	var req ChatRequestDTO
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}
	if len(req.Messages) == 0 {
		writeError(w, http.StatusBadRequest, "messages are required", "")
		return
	}

	conversation := make([]llm.Message, 0, len(req.Messages))
	for _, m := range req.Messages {
		conversation = append(conversation, llm.Message{
			Role:    strings.ToLower(strings.TrimSpace(m.Role)),
			Content: m.Content,
		})
	}

	result, err := h.chatter.Chat(r.Context(), conversation)
	switch {
	case errors.Is(err, chat.ErrEmptyConversation):
		writeError(w, http.StatusBadRequest, "messages are required", err.Error())
		return
	case errors.Is(err, app.ErrChatUnavailable):
		writeError(w, http.StatusServiceUnavailable, "chat unavailable", err.Error())
		return
	}

	stream := newEventStream(w)
	if err != nil {
		h.logger.Error().
			Err(err).
			Str("turn_id", observability.TurnIDFromContext(r.Context())).
			Msg("Chat turn failed")
		stream.send(StreamEvent{Type: EventError, Data: "Falha ao processar a conversa"})
		return
	}

	if len(result.ToolResults) > 0 {
		stream.send(StreamEvent{Type: EventToolResults, Data: result.ToolResults})
	}
	stream.send(StreamEvent{Type: EventText, Data: result.Text})
	stream.done()
}

type eventStream struct {
	w       http.ResponseWriter
	flusher http.Flusher
}

func newEventStream(w http.ResponseWriter) *eventStream {
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	flusher, _ := w.(http.Flusher)
	return &eventStream{w: w, flusher: flusher}
}

func (s *eventStream) send(evt StreamEvent) {
	payload, err := json.Marshal(evt)
	if err != nil {
		payload, _ = json.Marshal(StreamEvent{Type: EventError, Data: err.Error()})
	}
	s.write(string(payload))
}

func (s *eventStream) done() {
	s.write(doneSentinel)
}

func (s *eventStream) write(data string) {
	fmt.Fprintf(s.w, "data: %s\n\n", data)
	if s.flusher != nil {
		s.flusher.Flush()
	}
}
