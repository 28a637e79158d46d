package httpapi

import (
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/gallmarco/centralino/internal/orchestrator"
	"github.com/gallmarco/centralino/internal/session"
)

const (
	wsWriteTimeout = 10 * time.Second
	wsReadTimeout  = 120 * time.Second
	wsReadLimit    = 1 << 20
)

// handleChatWS is the WebSocket variant of the chat stream: the client sends
// {"message": ...} frames and receives the same typed events as the SSE
// endpoint, one JSON frame each. Turns run sequentially per connection.
func (s *Server) handleChatWS(w http.ResponseWriter, r *http.Request) {
	sessionID := strings.TrimSpace(r.URL.Query().Get("session_id"))
	if sessionID == "" {
		sessionID = uuid.NewString()
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()
	s.noteSessionEvent("ws_connected")
	defer s.noteSessionEvent("ws_disconnected")

	conn.SetReadLimit(wsReadLimit)

	for {
		_ = conn.SetReadDeadline(time.Now().Add(wsReadTimeout))
		var req chatRequest
		if err := conn.ReadJSON(&req); err != nil {
			return
		}
		if strings.TrimSpace(req.Message) == "" {
			if !s.writeWSEvent(conn, orchestrator.Event{Type: orchestrator.EventError, Data: "il messaggio è obbligatorio"}) {
				return
			}
			continue
		}

		req.SessionID = sessionID
		if !s.runWSTurn(r, conn, req) {
			return
		}
	}
}

// runWSTurn executes one flow and relays its events; returns false when the
// connection is no longer usable.
func (s *Server) runWSTurn(r *http.Request, conn *websocket.Conn, req chatRequest) bool {
	sessionID, history, sess := s.beginTurn(req)

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
		if !s.writeWSEvent(conn, ev) {
			return false
		}
	}

	if r.Context().Err() != nil {
		return false
	}
	reply := strings.TrimSpace(complete.String())
	if reply != "" {
		if err := s.sessions.Append(sessionID, session.RoleAssistant, reply); err != nil {
			log.Printf("ws: append assistant turn failed: %v", err)
		}
		s.archiveTurn(sessionID, string(session.RoleAssistant), reply, sess.FrustrationLevel, "")
	}
	return true
}

func (s *Server) writeWSEvent(conn *websocket.Conn, ev orchestrator.Event) bool {
	_ = conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
	if err := conn.WriteJSON(ev); err != nil {
		return false
	}
	return true
}
