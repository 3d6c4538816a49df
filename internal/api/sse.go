package api

import (
	"encoding/json"
	"fmt"
	"net/http"
)

// sseWriter frames each chunk as a server-sent event. Headers are sent with
// the first chunk so that a fault before it can still produce a JSON error.
type sseWriter struct {
	w       http.ResponseWriter
	flusher http.Flusher
	started bool
}

func newSSEWriter(w http.ResponseWriter) *sseWriter {
	flusher, _ := w.(http.Flusher)
	return &sseWriter{w: w, flusher: flusher}
}

func (s *sseWriter) WriteChunk(v interface{}) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode chunk: %w", err)
	}

	if !s.started {
		h := s.w.Header()
		h.Set("Content-Type", "text/event-stream")
		h.Set("Cache-Control", "no-cache")
		h.Set("Connection", "keep-alive")
		h.Set("X-Accel-Buffering", "no")
		s.w.WriteHeader(http.StatusOK)
		s.started = true
	}

	// each payload is a JSON line inside one event
	if _, err := fmt.Fprintf(s.w, "data: %s\n\n\n", payload); err != nil {
		return fmt.Errorf("write chunk: %w", err)
	}
	if s.flusher != nil {
		s.flusher.Flush()
	}
	return nil
}

// Started reports whether any bytes were written.
func (s *sseWriter) Started() bool {
	return s.started
}
