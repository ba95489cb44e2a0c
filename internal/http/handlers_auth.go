package http

import (
	"net/http"
	"strings"
	"time"

	"pocket/internal/core"
	"pocket/internal/log"
)

type credentialsRequest struct {
	Email       string `json:"email"`
	DisplayName string `json:"displayName"`
	Password    string `json:"password"`
}

type sessionResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
	User      core.User `json:"user"`
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	user, err := s.deps.Auth.Register(r.Context(), req.Email, sanitizeInput(req.DisplayName), req.Password)
	if err != nil {
		writeError(w, r, err)
		return
	}
	log.FromContext(r.Context()).InfoContext(r.Context(), "User registered", log.FieldUserID, user.ID)
	s.writeSession(w, r, http.StatusCreated, user)
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	user, err := s.deps.Auth.Authenticate(r.Context(), strings.TrimSpace(req.Email), req.Password)
	if err != nil {
		log.FromContext(r.Context()).WarnContext(r.Context(), "Login failed",
			log.FieldErrorType, log.ErrorTypeAuth,
			log.FieldClientIP, s.detector.ExtractClientIP(r))
		writeError(w, r, err)
		return
	}
	s.writeSession(w, r, http.StatusOK, user)
}

func (s *Server) writeSession(w http.ResponseWriter, r *http.Request, status int, user core.User) {
	token, expiresAt, err := s.deps.Tokens.Generate(user)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, status, sessionResponse{Token: token, ExpiresAt: expiresAt, User: user})
}
