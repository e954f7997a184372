package server

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/flexnote/compute-broker/internal/errors"
	"github.com/flexnote/compute-broker/sessions"
)

// SessionResponse is the public view of a session. Unset optional fields
// are rendered as null.
type SessionResponse struct {
	SessionID  string    `json:"session_id"`
	UserID     *string   `json:"user_id"`
	InstanceID *string   `json:"instance_id"`
	GPUType    *string   `json:"gpu_type"`
	GPUCount   int       `json:"gpu_count"`
	Status     string    `json:"status"`
	CreatedAt  time.Time `json:"created_at"`
	ExpiresAt  time.Time `json:"expires_at"`
}

func newSessionResponse(s sessions.Session) SessionResponse {
	return SessionResponse{
		SessionID:  s.ID,
		UserID:     nullable(s.UserID),
		InstanceID: nullable(s.InstanceID),
		GPUType:    nullable(s.GPUType),
		GPUCount:   s.GPUCount,
		Status:     string(s.Status),
		CreatedAt:  s.CreatedAt,
		ExpiresAt:  s.ExpiresAt,
	}
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// CreateSessionHandler creates a session for the optional user_id query
// parameter. ttl_hours overrides the default lifetime.
func (s *Server) CreateSessionHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ttlHours, err := intQuery(r, "ttl_hours", 0)
		if err != nil {
			writeError(w, r, err)
			return
		}
		if ttlHours < 0 {
			writeError(w, r, errors.Invalidf("ttl_hours must be positive, got %d", ttlHours))
			return
		}

		session := s.compute.CreateSession(r.URL.Query().Get("user_id"), time.Duration(ttlHours)*time.Hour)
		writeJSON(w, http.StatusOK, newSessionResponse(session))
	}
}

func (s *Server) GetSessionHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		session, err := s.compute.Session(r.PathValue("id"))
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, newSessionResponse(session))
	}
}

func (s *Server) DeleteSessionHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := s.compute.DeleteSession(r.Context(), r.PathValue("id")); err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, MessageResponse{Message: "Session deleted successfully"})
	}
}

func (s *Server) ExtendSessionHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		hours, err := intQuery(r, "hours", 1)
		if err != nil {
			writeError(w, r, err)
			return
		}
		if _, err := s.compute.ExtendSession(r.PathValue("id"), hours); err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, MessageResponse{Message: fmt.Sprintf("Session extended by %d hours", hours)})
	}
}

func intQuery(r *http.Request, name string, defaultValue int) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return defaultValue, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, errors.Invalidf("%s must be an integer, got %q", name, raw)
	}
	return n, nil
}
