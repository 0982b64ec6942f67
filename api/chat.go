package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/oceanward/reefguide/internal/chat"
)

type chatRequest struct {
	SessionID string `json:"sessionId,omitempty"`
	Message   string `json:"message"`
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	resp, err := s.orchestrator.Handle(r.Context(), chat.Request{
		SessionID: req.SessionID,
		Message:   req.Message,
	})
	if err != nil {
		s.writeChatError(w, err)
		return
	}

	s.writeJSON(w, http.StatusOK, resp)
}

// writeChatError maps the orchestrator's error classes to HTTP
// statuses. Detail is withheld in production.
func (s *Server) writeChatError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, chat.ErrValidation):
		s.writeError(w, http.StatusBadRequest, s.errorDetail(err, "invalid message"))
	case errors.Is(err, chat.ErrUpstreamUnavailable):
		s.logger.Error("chat upstream failure", "error", err)
		s.writeError(w, http.StatusServiceUnavailable, "assistant temporarily unavailable")
	case errors.Is(err, chat.ErrStorage):
		s.logger.Error("chat storage failure", "error", err)
		s.writeError(w, http.StatusInternalServerError, "internal server error")
	default:
		s.logger.Error("unexpected chat failure", "error", err)
		s.writeError(w, http.StatusInternalServerError, "internal server error")
	}
}

func (s *Server) errorDetail(err error, generic string) string {
	if s.production {
		return generic
	}
	return err.Error()
}
