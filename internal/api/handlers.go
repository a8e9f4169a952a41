package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/lehoanglam20000/ai-agent/internal/chat"
	"github.com/lehoanglam20000/ai-agent/internal/events"
	"github.com/lehoanglam20000/ai-agent/internal/store"
)

type chatRequest struct {
	Message   string `json:"message"`
	SessionID string `json:"sessionId"`
}

type conversationMeta struct {
	ConversationID string    `json:"conversationId"`
	LeadQuality    string    `json:"leadQuality,omitempty"`
	CustomerEmail  string    `json:"customerEmail,omitempty"`
	CustomerName   string    `json:"customerName,omitempty"`
	CustomerPhone  string    `json:"customerPhone,omitempty"`
	CreatedAt      time.Time `json:"createdAt"`
}

func metaFor(conv *store.Conversation) conversationMeta {
	return conversationMeta{
		ConversationID: conv.SessionID,
		LeadQuality:    conv.LeadQuality,
		CustomerEmail:  conv.CustomerEmail,
		CustomerName:   conv.CustomerName,
		CustomerPhone:  conv.CustomerPhone,
		CreatedAt:      conv.CreatedAt,
	}
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		// An unreadable body carries no message, so it gets the same
		// answer as a missing one.
		writeError(w, http.StatusBadRequest, "Message is required", nil)
		return
	}

	result, err := s.chat.HandleTurn(r.Context(), req.Message, req.SessionID)
	switch {
	case errors.Is(err, chat.ErrEmptyMessage):
		writeError(w, http.StatusBadRequest, "Message is required", nil)
		return
	case err != nil && result != nil:
		// Completion succeeded but persistence failed. Return the reply
		// rather than discard a paid-for completion.
		s.logger.Warn("turn not persisted", "session_id", result.SessionID, "error", err)
		writeJSON(w, http.StatusOK, map[string]any{
			"response":           result.Reply,
			"sessionId":          result.SessionID,
			"conversationLength": result.HistoryLength,
			"warning":            "conversation not persisted",
		})
		return
	case err != nil:
		s.logger.Error("chat turn failed", "session_id", req.SessionID, "error", err)
		body := map[string]any{
			"error":   "Failed to get response from AI",
			"details": err.Error(),
		}
		if req.SessionID != "" {
			body["sessionId"] = req.SessionID
		}
		writeJSON(w, http.StatusInternalServerError, body)
		return
	}

	s.publish(events.SubjectTurnCompleted, events.TurnEvent{
		SessionID:     result.SessionID,
		HistoryLength: result.HistoryLength,
		Timestamp:     time.Now().UTC().Format(time.RFC3339),
	})

	writeJSON(w, http.StatusOK, map[string]any{
		"response":           result.Reply,
		"sessionId":          result.SessionID,
		"conversationLength": result.HistoryLength,
	})
}

func (s *Server) handleGetConversation(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")

	conv, err := s.store.Get(r.Context(), sessionID)
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, "Conversation not found", nil)
		return
	}
	if err != nil {
		s.logger.Error("failed to fetch conversation", "session_id", sessionID, "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to fetch conversation", err)
		return
	}
	if len(conv.Messages) == 0 {
		writeError(w, http.StatusNotFound, "Conversation not found", nil)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"conversation": conv.Messages,
		"analysis":     conv.Analysis,
		"meta":         metaFor(conv),
	})
}

func (s *Server) handleDeleteConversation(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")

	if err := s.store.Delete(r.Context(), sessionID); err != nil {
		s.logger.Error("failed to delete conversation", "session_id", sessionID, "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to delete conversation", err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"message": "Conversation cleared"})
}

func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")

	conv, err := s.analyzer.Analyze(r.Context(), sessionID)
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, "Conversation not found", nil)
		return
	}
	if err != nil {
		s.logger.Error("analysis failed", "session_id", sessionID, "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to analyze conversation", err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"analysis": conv.Analysis,
		"meta":     metaFor(conv),
	})
}

func (s *Server) handleListConversations(w http.ResponseWriter, r *http.Request) {
	summaries, err := s.store.List(r.Context())
	if err != nil {
		s.logger.Error("failed to list conversations", "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to fetch conversations", err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"conversations": summaries})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	timestamp := time.Now().UTC().Format(time.RFC3339)
	unhealthy := func(err error) {
		writeJSON(w, http.StatusInternalServerError, map[string]any{
			"status":    "ERROR",
			"timestamp": timestamp,
			"store":     "connection failed",
			"error":     err.Error(),
		})
	}

	if err := s.store.Ping(ctx); err != nil {
		unhealthy(err)
		return
	}
	count, err := s.store.Count(ctx)
	if err != nil {
		unhealthy(err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"status":             "OK",
		"timestamp":          timestamp,
		"store":              "connected",
		"totalConversations": count,
	})
}

// publish is fire-and-forget: event fanout never fails a request.
func (s *Server) publish(subject string, payload any) {
	if s.events == nil {
		return
	}
	if err := s.events.Publish(subject, payload); err != nil {
		s.logger.Warn("failed to publish event", "subject", subject, "error", err)
	}
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	body := map[string]any{"error": message}
	if err != nil {
		body["details"] = err.Error()
	}
	writeJSON(w, status, body)
}
