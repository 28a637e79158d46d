package httpapi

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strings"

	"github.com/gallmarco/centralino/internal/orchestrator"
	"github.com/gallmarco/centralino/internal/session"
)

// handleChatStream runs one staged response flow and relays its events as a
// server-sent-event stream: one `data: <json event>` line per event, then a
// closing marker.
func (s *Server) handleChatStream(w http.ResponseWriter, r *http.Request) {
	req, ok := s.decodeChatRequest(w, r)
	if !ok {
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		respondError(w, http.StatusInternalServerError, "streaming non supportato")
		return
	}

	sessionID, history, sess := s.beginTurn(req)

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	events := s.orch.Run(r.Context(), orchestrator.Turn{
		SessionID:   sessionID,
		UserMessage: req.Message,
		History:     history,
		Level:       sess.FrustrationLevel,
	})

	var complete strings.Builder
	for ev := range events {
		if ev.Spoken() {
			complete.WriteString(ev.Data)
		}
		if err := writeSSE(w, flusher, ev); err != nil {
			// Client went away; the orchestrator sees the same ctx cancel.
			return
		}
	}

	// Accumulate-then-append: a cancelled stream must not leave a partial
	// assistant turn in the session.
	if r.Context().Err() == nil {
		reply := strings.TrimSpace(complete.String())
		if reply != "" {
			if err := s.sessions.Append(sessionID, session.RoleAssistant, reply); err != nil {
				log.Printf("stream: append assistant turn failed: %v", err)
			}
			s.archiveTurn(sessionID, string(session.RoleAssistant), reply, sess.FrustrationLevel, "")
		}
		_, _ = fmt.Fprint(w, "event: close\ndata: {}\n\n")
		flusher.Flush()
	}
}

func writeSSE(w http.ResponseWriter, flusher http.Flusher, ev orchestrator.Event) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "data: %s\n\n", payload); err != nil {
		return err
	}
	flusher.Flush()
	return nil
}
