package server

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/IvanBrykalov/lookupcache/backend"
)

type errorBody struct {
	Error      string `json:"error"`
	Message    string `json:"message,omitempty"`
	RetryAfter *int   `json:"retryAfter,omitempty"`
}

func (s *Service) getUser(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(r.PathValue("id"))
	if err != nil {
		s.writeJSON(w, r, http.StatusBadRequest, errorBody{Error: "Invalid user ID"})
		return
	}

	u, err := s.Lookup(r.Context(), id)
	switch {
	case err == nil:
		s.writeJSON(w, r, http.StatusOK, u)
	case backend.IsNotFound(err):
		s.writeJSON(w, r, http.StatusNotFound, errorBody{Error: err.Error()})
	default:
		s.log.Error(r.Context(), "user lookup failed", "id", id, "error", err.Error())
		s.writeJSON(w, r, http.StatusInternalServerError, errorBody{Error: "Internal server error"})
	}
}

type createUserRequest struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

func (s *Service) createUser(w http.ResponseWriter, r *http.Request) {
	var req createUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Name == "" || req.Email == "" {
		s.writeJSON(w, r, http.StatusBadRequest, errorBody{Error: "Name and email are required"})
		return
	}

	u := s.Create(req.Name, req.Email)
	s.log.Info(r.Context(), "user created", "id", u.ID)
	s.writeJSON(w, r, http.StatusCreated, u)
}

func (s *Service) clearCache(w http.ResponseWriter, r *http.Request) {
	s.cache.Clear()
	s.log.Info(r.Context(), "cache cleared")
	s.writeJSON(w, r, http.StatusOK, map[string]string{"message": "Cache cleared successfully"})
}

func (s *Service) cacheStatus(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, r, http.StatusOK, s.Status())
}

func (s *Service) health(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, r, http.StatusOK, map[string]string{
		"status":    "ok",
		"timestamp": s.now().UTC().Format(time.RFC3339Nano),
	})
}

func (s *Service) writeJSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.log.Debug(r.Context(), "write response", "error", err.Error())
	}
}
