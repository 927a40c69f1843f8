package server

import (
	"errors"
	"net/http"
	"time"

	"patorama/pkg/domain"
	"patorama/services/crm/internal/app"
)

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":      "OK",
		"timestamp":   time.Now().UTC().Format(time.RFC3339),
		"version":     s.version,
		"environment": s.environment,
	})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	if !s.allowRate(w, r, s.loginLimiter, "auth.login", "Too many login attempts, please try again later") {
		return
	}
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	res, err := s.app.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, app.ErrInvalidCredentials) {
			s.audit(r, "auth.login", "fail")
		}
		s.writeAppError(w, r, err)
		return
	}
	s.audit(r, "auth.login", "success", "user_id", res.User.ID)
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request, user domain.User) {
	token, _ := bearerToken(r)
	if err := s.app.Logout(r.Context(), token); err != nil {
		s.audit(r, "auth.logout", "fail", "user_id", user.ID)
		s.writeAppError(w, r, err)
		return
	}
	s.audit(r, "auth.logout", "success", "user_id", user.ID)
	writeMessage(w, http.StatusOK, "Logged out successfully")
}

func (s *Server) handleMe(w http.ResponseWriter, _ *http.Request, user domain.User) {
	writeJSON(w, http.StatusOK, s.app.Me(user))
}

func (s *Server) handleListUsers(w http.ResponseWriter, r *http.Request, user domain.User) {
	users, err := s.app.ListUsers(r.Context(), user)
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	out := make([]domain.SessionUser, 0, len(users))
	for _, u := range users {
		out = append(out, u.Session())
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleCreateUser(w http.ResponseWriter, r *http.Request, user domain.User) {
	var req app.CreateUserInput
	if !decodeJSON(w, r, &req) {
		return
	}
	created, err := s.app.CreateUser(r.Context(), user, req)
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{
		"message": "User created successfully",
		"userId":  created.ID,
	})
}

func (s *Server) handleDashboardStats(w http.ResponseWriter, r *http.Request, _ domain.User) {
	stats, err := s.app.DashboardStats(r.Context())
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}
