// Package api implements the coaching chat HTTP API.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/yuin/goldmark"

	"github.com/davekern/repcoach/internal/buildinfo"
	"github.com/davekern/repcoach/internal/conversation"
	"github.com/davekern/repcoach/internal/history"
	"github.com/davekern/repcoach/internal/persona"
)

// writeJSON encodes v as JSON to w, logging any errors at debug level.
// Errors here typically mean the client disconnected mid-response,
// which is not actionable but worth tracking for debugging.
func writeJSON(w http.ResponseWriter, v any, logger *slog.Logger) {
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Debug("failed to write JSON response", "error", err)
	}
}

// Server is the HTTP API server.
type Server struct {
	address string
	port    int
	engine  *conversation.Engine
	logger  *slog.Logger
	server  *http.Server
	md      goldmark.Markdown
}

// NewServer creates a new API server.
func NewServer(address string, port int, engine *conversation.Engine, logger *slog.Logger) *Server {
	return &Server{
		address: address,
		port:    port,
		engine:  engine,
		logger:  logger,
		md:      goldmark.New(),
	}
}

func (s *Server) routes() http.Handler {
	mux := http.NewServeMux()

	// Chat endpoints
	mux.HandleFunc("POST /v1/chat/message", s.handleMessage)
	mux.HandleFunc("POST /v1/chat/quickreply", s.handleQuickReply)
	mux.HandleFunc("POST /v1/chat/restart", s.handleRestart)
	mux.HandleFunc("POST /v1/chat/clear", s.handleClear)
	mux.HandleFunc("GET /v1/chat/history", s.handleHistory)
	mux.HandleFunc("GET /v1/chat/state", s.handleState)
	mux.HandleFunc("GET /v1/chat/ws", s.handleWebSocket)

	// Persona catalog
	mux.HandleFunc("GET /v1/personas", s.handlePersonas)

	// Health endpoints
	mux.HandleFunc("GET /v1/version", s.handleVersion)
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /", s.handleRoot)

	return s.withLogging(mux)
}

// Start begins serving HTTP requests.
func (s *Server) Start(ctx context.Context) error {
	s.server = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", s.address, s.port),
		Handler:      s.routes(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 120 * time.Second, // Long for slow generations
	}

	addr := s.address
	if addr == "" {
		addr = "0.0.0.0"
	}
	s.logger.Info("starting API server", "address", addr, "port", s.port)
	return s.server.ListenAndServe()
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}

func (s *Server) withLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		s.logger.Info("request",
			"method", r.Method,
			"path", r.URL.Path,
			"duration", time.Since(start),
		)
	})
}

// userID extracts the caller's identity. Writes a 401 and returns ""
// when the header is absent.
func (s *Server) userID(w http.ResponseWriter, r *http.Request) string {
	id := r.Header.Get("X-User-ID")
	if id == "" {
		s.errorResponse(w, http.StatusUnauthorized, "missing X-User-ID header")
	}
	return id
}

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, map[string]string{
		"name":    "repcoach",
		"version": buildinfo.Version,
		"status":  "ok",
	}, s.logger)
}

func (s *Server) handleVersion(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, buildinfo.Info(), s.logger)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, map[string]string{"status": "healthy"}, s.logger)
}

// MessageRequest is one free-text chat input.
type MessageRequest struct {
	Message string `json:"message"`
	Persona string `json:"persona,omitempty"`
}

// QuickReplyRequest selects one offered quick reply by id.
type QuickReplyRequest struct {
	ReplyID string `json:"reply_id"`
}

// TurnMessage is one rendered message in a turn response.
type TurnMessage struct {
	ID          string          `json:"id"`
	Sender      string          `json:"sender"`
	Type        string          `json:"type"`
	Content     string          `json:"content"`
	ContentHTML string          `json:"content_html,omitempty"`
	Payload     json.RawMessage `json:"payload,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
}

// TurnResponse is the result of one committed conversation turn.
type TurnResponse struct {
	Messages     []TurnMessage             `json:"messages"`
	QuickReplies []conversation.QuickReply `json:"quick_replies,omitempty"`
	State        conversation.State        `json:"state"`
}

func (s *Server) handleMessage(w http.ResponseWriter, r *http.Request) {
	userID := s.userID(w, r)
	if userID == "" {
		return
	}

	var req MessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.errorResponse(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Message == "" {
		s.errorResponse(w, http.StatusBadRequest, "message is required")
		return
	}

	turn, err := s.engine.SendMessage(r.Context(), userID, req.Persona, req.Message)
	if err != nil {
		s.logger.Error("send message failed", "user", userID, "error", err)
		s.errorResponse(w, http.StatusInternalServerError, "conversation error")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, s.renderTurn(turn), s.logger)
}

func (s *Server) handleQuickReply(w http.ResponseWriter, r *http.Request) {
	userID := s.userID(w, r)
	if userID == "" {
		return
	}

	var req QuickReplyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.errorResponse(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.ReplyID == "" {
		s.errorResponse(w, http.StatusBadRequest, "reply_id is required")
		return
	}

	turn, err := s.engine.SelectQuickReply(r.Context(), userID, req.ReplyID)
	if err != nil {
		s.logger.Error("quick reply failed", "user", userID, "error", err)
		s.errorResponse(w, http.StatusInternalServerError, "conversation error")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, s.renderTurn(turn), s.logger)
}

func (s *Server) handleRestart(w http.ResponseWriter, r *http.Request) {
	userID := s.userID(w, r)
	if userID == "" {
		return
	}

	turn, err := s.engine.Restart(r.Context(), userID)
	if err != nil {
		s.errorResponse(w, http.StatusInternalServerError, "conversation error")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, s.renderTurn(turn), s.logger)
}

func (s *Server) handleClear(w http.ResponseWriter, r *http.Request) {
	userID := s.userID(w, r)
	if userID == "" {
		return
	}

	if err := s.engine.ClearConversation(r.Context(), userID); err != nil {
		s.logger.Error("clear conversation failed", "user", userID, "error", err)
		s.errorResponse(w, http.StatusInternalServerError, "could not clear conversation")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, map[string]string{"status": "cleared"}, s.logger)
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	userID := s.userID(w, r)
	if userID == "" {
		return
	}

	days := 7
	if v := r.URL.Query().Get("days"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			s.errorResponse(w, http.StatusBadRequest, "days must be a positive integer")
			return
		}
		days = n
	}

	messages, err := s.engine.History(r.Context(), userID, days)
	if err != nil {
		s.errorResponse(w, http.StatusInternalServerError, "could not load history")
		return
	}

	rendered := make([]TurnMessage, 0, len(messages))
	for _, m := range messages {
		rendered = append(rendered, s.renderMessage(m))
	}

	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, map[string]any{"messages": rendered}, s.logger)
}

func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	userID := s.userID(w, r)
	if userID == "" {
		return
	}

	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, map[string]any{"state": s.engine.StateOf(userID)}, s.logger)
}

func (s *Server) handlePersonas(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, map[string]any{"personas": persona.All()}, s.logger)
}

// renderTurn converts an engine turn into the wire shape, rendering
// assistant markdown to HTML.
func (s *Server) renderTurn(turn *conversation.Turn) TurnResponse {
	resp := TurnResponse{
		QuickReplies: turn.QuickReplies,
		State:        turn.State,
	}
	for _, m := range turn.Messages {
		resp.Messages = append(resp.Messages, s.renderMessage(m))
	}
	return resp
}

func (s *Server) renderMessage(m history.ChatMessage) TurnMessage {
	out := TurnMessage{
		ID:        m.ID,
		Sender:    string(m.Sender),
		Type:      string(m.Type),
		Content:   m.Content,
		Payload:   m.Payload,
		CreatedAt: m.CreatedAt,
	}
	if m.Sender == history.SenderAssistant {
		var buf bytes.Buffer
		if err := s.md.Convert([]byte(m.Content), &buf); err != nil {
			s.logger.Debug("markdown render failed", "message", m.ID, "error", err)
		} else {
			out.ContentHTML = buf.String()
		}
	}
	return out
}

func (s *Server) errorResponse(w http.ResponseWriter, code int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	writeJSON(w, map[string]any{
		"error": map[string]any{
			"message": message,
			"code":    code,
		},
	}, s.logger)
}
