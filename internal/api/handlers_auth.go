package api

import (
	"net/http"
	"strings"
	"time"

	"spacehub/internal/auth"
	"spacehub/internal/config"
	"spacehub/internal/models"
	"spacehub/internal/service"
)

type authResponse struct {
	User  *models.User `json:"user"`
	Token auth.Token   `json:"token"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (s *HTTPServer) handleRegister(w http.ResponseWriter, r *http.Request) {
	var in service.RegisterInput
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	user, err := s.svc.Users.Register(r.Context(), in)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	token, err := s.issuer.Issue(user)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.setSessionCookie(w, token)
	writeJSON(w, http.StatusCreated, authResponse{User: user, Token: token})
}

func (s *HTTPServer) handleLogin(w http.ResponseWriter, r *http.Request) {
	var in loginRequest
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	user, err := s.svc.Users.Authenticate(r.Context(), in.Email, in.Password)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	token, err := s.issuer.Issue(user)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.setSessionCookie(w, token)
	writeJSON(w, http.StatusOK, authResponse{User: user, Token: token})
}

func (s *HTTPServer) handleLogout(w http.ResponseWriter, r *http.Request) {
	ClearSessionCookie(w, s.cfg.HTTP)
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (s *HTTPServer) handleMe(w http.ResponseWriter, r *http.Request) {
	user, err := s.svc.Users.Get(r.Context(), callerID(r))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

func (s *HTTPServer) handleUpdateMe(w http.ResponseWriter, r *http.Request) {
	var patch service.ProfilePatch
	if err := decodeJSON(r, &patch); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	user, err := s.svc.Users.UpdateProfile(r.Context(), callerID(r), patch)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

func (s *HTTPServer) handleTelegramCode(w http.ResponseWriter, r *http.Request) {
	code, expires, err := s.svc.Users.CreateTelegramLinkCode(r.Context(), callerID(r))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"code": code, "expiresAt": expires})
}

func (s *HTTPServer) handleCategories(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, models.Categories)
}

func (s *HTTPServer) setSessionCookie(w http.ResponseWriter, token auth.Token) {
	SetSessionCookie(w, s.cfg.HTTP, token)
}

// SetSessionCookie stores the access token in an HttpOnly cookie.
func SetSessionCookie(w http.ResponseWriter, cfg config.APIHTTPConfig, token auth.Token) {
	http.SetCookie(w, &http.Cookie{
		Name:     cfg.CookieName,
		Value:    token.Value,
		Path:     "/",
		Expires:  token.ExpiresAt,
		HttpOnly: true,
		Secure:   cfg.SecureCookies,
		SameSite: http.SameSiteLaxMode,
	})
}

func ClearSessionCookie(w http.ResponseWriter, cfg config.APIHTTPConfig) {
	http.SetCookie(w, &http.Cookie{
		Name:     cfg.CookieName,
		Value:    "",
		Path:     "/",
		Expires:  time.Unix(0, 0),
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   cfg.SecureCookies,
		SameSite: http.SameSiteLaxMode,
	})
}

func splitCSV(raw string) []string {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
