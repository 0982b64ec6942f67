package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/google/uuid"

	"github.com/oceanward/reefguide/internal/session"
)

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	data, err := s.sessions.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		s.logger.Error("session lookup failed", "error", err)
		s.writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	if data == nil {
		s.writeError(w, http.StatusNotFound, "session not found")
		return
	}
	s.writeJSON(w, http.StatusOK, data)
}

func (s *Server) handleExpireSession(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		s.writeError(w, http.StatusNotFound, "session not found")
		return
	}

	if err := s.sessions.Expire(r.Context(), id); err != nil {
		s.logger.Error("session expire failed", "error", err)
		s.writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleUpdateProfile(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		s.writeError(w, http.StatusNotFound, "session not found")
		return
	}

	var update session.DiverProfile
	if err := json.NewDecoder(r.Body).Decode(&update); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := s.sessions.UpdateProfile(r.Context(), id, update); err != nil {
		switch {
		case errors.Is(err, session.ErrNotFound), errors.Is(err, session.ErrExpired):
			s.writeError(w, http.StatusNotFound, "session not found")
		default:
			s.logger.Error("profile update failed", "error", err)
			s.writeError(w, http.StatusInternalServerError, "internal server error")
		}
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
