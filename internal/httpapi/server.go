package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"net/url"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/gallmarco/centralino/internal/config"
	"github.com/gallmarco/centralino/internal/observability"
	"github.com/gallmarco/centralino/internal/orchestrator"
	"github.com/gallmarco/centralino/internal/policy"
	"github.com/gallmarco/centralino/internal/prompt"
	"github.com/gallmarco/centralino/internal/provider"
	"github.com/gallmarco/centralino/internal/session"
	"github.com/gallmarco/centralino/internal/transcript"
)

// Fixed user-facing error messages, mapped from the provider taxonomy.
const (
	msgQuotaExceeded = "Limite API raggiunto. Riprova tra qualche minuto."
	msgUnavailable   = "Problema di connessione al servizio AI."
	msgGenericError  = "Errore temporaneo del server. Riprova tra poco."
	msgNotFound      = "Sessione non trovata."
)

type Server struct {
	cfg      config.Config
	sessions *session.Store
	orch     *orchestrator.Orchestrator
	prov     provider.Completion
	archive  transcript.Store
	metrics  *observability.Metrics
	upgrader websocket.Upgrader
}

func New(cfg config.Config, sessions *session.Store, orch *orchestrator.Orchestrator, prov provider.Completion, archive transcript.Store, metrics *observability.Metrics) *Server {
	s := &Server{
		cfg:      cfg,
		sessions: sessions,
		orch:     orch,
		prov:     prov,
		archive:  archive,
		metrics:  metrics,
	}
	s.upgrader = websocket.Upgrader{
		ReadBufferSize:  4096,
		WriteBufferSize: 4096,
		CheckOrigin: func(r *http.Request) bool {
			origin := strings.TrimSpace(r.Header.Get("Origin"))
			if origin == "" {
				// Non-browser clients often omit Origin. Allow them.
				return true
			}
			return s.allowOrigin(origin)
		},
	}
	return s
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(cors.Handler(cors.Options{
		AllowOriginFunc: func(_ *http.Request, origin string) bool {
			return s.allowOrigin(origin)
		},
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: true,
	}))

	r.Get("/", s.handleRoot)
	r.Get("/health", s.handleHealth)
	r.Get("/metrics", func(w http.ResponseWriter, r *http.Request) {
		observability.MetricsHandler().ServeHTTP(w, r)
	})

	r.Route("/api", func(r chi.Router) {
		r.Get("/start_chat", s.handleStartChat)
		r.Post("/chat", s.handleChat)
		r.Post("/chat/stream", s.handleChatStream)
		r.Get("/chat/ws", s.handleChatWS)
		r.Get("/sessions/{id}", s.handleGetSession)
		r.Delete("/sessions/{id}", s.handleDeleteSession)
		r.Delete("/close_chat/{id}", s.handleDeleteSession)
		r.Get("/debug/sessions", s.handleDebugSessions)
	})

	return r
}

// allowOrigin admits the configured frontend plus vercel preview deploys.
func (s *Server) allowOrigin(origin string) bool {
	if origin == s.cfg.FrontendURL {
		return true
	}
	u, err := url.Parse(origin)
	if err != nil {
		return false
	}
	return u.Scheme == "https" && strings.HasSuffix(u.Host, ".vercel.app")
}

func (s *Server) handleRoot(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"message": "Frustrating Chatbot API v1.0"})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"status":  "healthy",
		"service": "frustrating-bot",
	})
}

func (s *Server) handleStartChat(w http.ResponseWriter, _ *http.Request) {
	sessionID := uuid.NewString()
	s.sessions.GetOrCreate(sessionID)
	s.noteSessionEvent("created")
	log.Printf("new chat, session_id: %s", sessionID)

	respondJSON(w, http.StatusOK, map[string]string{"session_id": sessionID})
}

type chatRequest struct {
	Message   string `json:"message"`
	SessionID string `json:"session_id"`
}

type chatResponse struct {
	SessionID        string `json:"session_id"`
	Role             string `json:"role"`
	Content          string `json:"content"`
	Waiting          bool   `json:"waiting"`
	Transfer         bool   `json:"transfer"`
	FunnyPersonality bool   `json:"funny_personality"`
}

// handleChat is the non-streaming turn: one completion, keyword flags, done.
func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	req, ok := s.decodeChatRequest(w, r)
	if !ok {
		return
	}

	sessionID, history, sess := s.beginTurn(req)

	sysPrompt, err := prompt.SystemPrompt(sess.FrustrationLevel)
	if err != nil {
		log.Printf("chat: prompt lookup failed: %v", err)
		respondError(w, http.StatusInternalServerError, msgGenericError)
		return
	}

	callCtx, cancel := context.WithTimeout(r.Context(), s.cfg.ProviderTimeout)
	defer cancel()
	content, err := s.prov.Complete(callCtx, provider.Request{
		SystemPrompt: sysPrompt,
		History:      toProviderMessages(history),
		UserMessage:  req.Message,
	})
	if err != nil {
		s.respondProviderError(w, err)
		return
	}

	flags := policy.DetectWaitingOrTransfer(content)

	if err := s.sessions.Append(sessionID, session.RoleAssistant, content); err != nil {
		// The session existed moments ago; losing it here is an internal bug,
		// not a caller mistake.
		log.Printf("chat: append assistant turn failed: %v", err)
		respondError(w, http.StatusInternalServerError, msgGenericError)
		return
	}
	s.archiveTurn(sessionID, string(session.RoleAssistant), content, sess.FrustrationLevel, "")

	respondJSON(w, http.StatusOK, chatResponse{
		SessionID:        sessionID,
		Role:             string(session.RoleAssistant),
		Content:          content,
		Waiting:          flags.Waiting,
		Transfer:         flags.Transfer,
		FunnyPersonality: sess.FrustrationLevel >= 3,
	})
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	sess, err := s.sessions.Get(id)
	if err != nil {
		respondError(w, http.StatusNotFound, msgNotFound)
		return
	}
	respondJSON(w, http.StatusOK, sess)
}

func (s *Server) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if !s.sessions.Delete(id) {
		respondError(w, http.StatusNotFound, msgNotFound)
		return
	}
	s.noteSessionEvent("deleted")
	log.Printf("chat closed, session_id: %s", id)
	respondJSON(w, http.StatusOK, map[string]string{"detail": "Sessione " + id + " cancellata."})
}

func (s *Server) handleDebugSessions(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, s.sessions.All())
}

// decodeChatRequest parses the body and rejects empty messages.
func (s *Server) decodeChatRequest(w http.ResponseWriter, r *http.Request) (chatRequest, bool) {
	var req chatRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "richiesta non valida")
		return chatRequest{}, false
	}
	if strings.TrimSpace(req.Message) == "" {
		respondError(w, http.StatusBadRequest, "il messaggio è obbligatorio")
		return chatRequest{}, false
	}
	return req, true
}

// beginTurn resolves the session, snapshots the pre-turn history and appends
// the user message, returning the refreshed session with the recomputed
// frustration level.
func (s *Server) beginTurn(req chatRequest) (string, []session.Message, *session.Session) {
	sessionID := strings.TrimSpace(req.SessionID)
	if sessionID == "" {
		sessionID = uuid.NewString()
	}

	created := false
	if _, err := s.sessions.Get(sessionID); errors.Is(err, session.ErrNotFound) {
		created = true
	}
	s.sessions.GetOrCreate(sessionID)
	if created {
		s.noteSessionEvent("created")
	}

	history := s.sessions.RecentHistory(sessionID, 0)

	// Append after the snapshot so the provider context carries the user
	// message exactly once.
	if err := s.sessions.Append(sessionID, session.RoleUser, req.Message); err != nil {
		log.Printf("chat: append user turn failed: %v", err)
	}
	s.archiveTurn(sessionID, string(session.RoleUser), req.Message, 0, "")

	sess, err := s.sessions.Get(sessionID)
	if err != nil {
		// GetOrCreate just succeeded; only a concurrent sweep can race us here.
		sess = s.sessions.GetOrCreate(sessionID)
	}
	return sessionID, history, sess
}

func (s *Server) respondProviderError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, provider.ErrQuotaExceeded):
		respondError(w, http.StatusTooManyRequests, msgQuotaExceeded)
	case errors.Is(err, provider.ErrUnavailable), errors.Is(err, context.DeadlineExceeded):
		respondError(w, http.StatusServiceUnavailable, msgUnavailable)
	default:
		respondError(w, http.StatusInternalServerError, msgGenericError)
	}
}

func (s *Server) archiveTurn(sessionID, role, content string, level int, pattern string) {
	if s.archive == nil || strings.TrimSpace(content) == "" {
		return
	}
	record := transcript.TurnRecord{
		SessionID:        sessionID,
		Role:             role,
		Content:          content,
		FrustrationLevel: level,
		Pattern:          pattern,
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), s.cfg.ProviderTimeout)
		defer cancel()
		if err := s.archive.SaveTurn(ctx, record); err != nil {
			log.Printf("transcript archive failed (session %s): %v", sessionID, err)
		}
	}()
}

func (s *Server) noteSessionEvent(event string) {
	if s.metrics == nil {
		return
	}
	s.metrics.SessionEvents.WithLabelValues(event).Inc()
	s.metrics.ActiveSessions.Set(float64(s.sessions.Count()))
}

func toProviderMessages(history []session.Message) []provider.Message {
	out := make([]provider.Message, 0, len(history))
	for _, m := range history {
		out = append(out, provider.Message{Role: string(m.Role), Content: m.Content})
	}
	return out
}

func decodeJSON(r *http.Request, out any) error {
	if r.Body == nil {
		return errors.New("empty body")
	}
	defer r.Body.Close()
	return json.NewDecoder(r.Body).Decode(out)
}

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func respondError(w http.ResponseWriter, status int, detail string) {
	respondJSON(w, status, map[string]string{"detail": detail})
}
