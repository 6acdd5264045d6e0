package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync"

	"github.com/labstack/echo/v4"

	"github.com/richinex/booster/connection"
)

// sseWriter serializes events from concurrent streams onto one response.
type sseWriter struct {
	mu      sync.Mutex
	w       http.ResponseWriter
	flusher http.Flusher
}

func newSSEWriter(c echo.Context) (*sseWriter, error) {
	writer := c.Response().Writer
	flusher, ok := writer.(http.Flusher)
	if !ok {
		return nil, requestError{
			Status:  http.StatusInternalServerError,
			Message: "server does not support streaming responses",
			Type:    "server_error",
		}
	}

	header := c.Response().Header()
	header.Set("Content-Type", "text/event-stream")
	header.Set("Cache-Control", "no-cache")
	header.Set("Connection", "keep-alive")
	c.Response().WriteHeader(http.StatusOK)
	flusher.Flush()

	return &sseWriter{w: writer, flusher: flusher}, nil
}

func (s *sseWriter) event(name string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal SSE payload: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := fmt.Fprintf(s.w, "event: %s\ndata: %s\n\n", name, data); err != nil {
		return fmt.Errorf("write SSE event: %w", err)
	}
	s.flusher.Flush()
	return nil
}

type deltaEvent struct {
	Side    string `json:"side,omitempty"`
	Content string `json:"content"`
}

type errorEvent struct {
	Side      string               `json:"side,omitempty"`
	ErrorType connection.ErrorType `json:"errorType"`
	Message   string               `json:"message"`
}

type completeEvent struct {
	Side string `json:"side,omitempty"`
}

// sseHandler forwards one stream's callbacks as side-tagged events.
type sseHandler struct {
	out  *sseWriter
	side string
}

func (h sseHandler) OnData(delta string) {
	_ = h.out.event("delta", deltaEvent{Side: h.side, Content: delta})
}

func (h sseHandler) OnError(err error) {
	kind, msg := connection.Classify(err)
	_ = h.out.event("error", errorEvent{Side: h.side, ErrorType: kind, Message: msg})
}

func (h sseHandler) OnComplete() {
	_ = h.out.event("complete", completeEvent{Side: h.side})
}
