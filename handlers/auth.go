package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"excursion/auth"
	"excursion/middleware"
	"excursion/models"
	"excursion/session"
)

const msgMissingCredentials = "Veuillez remplir tous les champs"

// SessionService is the admin session manager as seen by HTTP.
type SessionService interface {
	Snapshot() session.State
	SignIn(ctx context.Context, email, password string) (*auth.Session, error)
	SignOut(ctx context.Context) error
	Refresh(ctx context.Context, refreshToken string) (*auth.Session, error)
}

type AuthHandler struct {
	sessions     SessionService
	secureCookie bool
	logger       *zap.Logger
}

func NewAuthHandler(sessions SessionService, secureCookie bool, logger *zap.Logger) *AuthHandler {
	return &AuthHandler{
		sessions:     sessions,
		secureCookie: secureCookie,
		logger:       logger,
	}
}

// Login handles admin authentication
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodPost) {
		return
	}

	var req models.AuthRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if strings.TrimSpace(req.Email) == "" || req.Password == "" {
		writeError(w, msgMissingCredentials, http.StatusBadRequest)
		return
	}

	s, err := h.sessions.SignIn(r.Context(), req.Email, req.Password)
	if err != nil {
		kind := auth.KindOf(err)
		h.logger.Info("login failed", zap.String("op", "handlers.Login"), zap.String("kind", string(kind)))
		writeJSON(w, authStatus(kind), map[string]string{
			"error": auth.MessageFor(kind),
			"code":  string(kind),
		})
		return
	}

	h.setTokenCookie(w, s.Token, s.TokenExpiresAt)
	user := s.User
	writeJSON(w, http.StatusOK, models.AuthResponse{
		Token:        s.Token,
		RefreshToken: s.RefreshToken,
		ExpiresAt:    s.TokenExpiresAt,
		User:         &user,
	})
}

// Logout ends the admin session
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodPost) {
		return
	}

	h.clearTokenCookie(w)
	if err := h.sessions.SignOut(r.Context()); err != nil {
		writeError(w, "Erreur lors de la déconnexion", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Déconnexion réussie"})
}

type RefreshTokenRequest struct {
	RefreshToken string `json:"refresh_token"`
}

type RefreshTokenResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

// RefreshToken handles token refresh
func (h *AuthHandler) RefreshToken(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodPost) {
		return
	}

	var req RefreshTokenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.RefreshToken == "" {
		writeError(w, "Refresh token is required", http.StatusBadRequest)
		return
	}

	s, err := h.sessions.Refresh(r.Context(), req.RefreshToken)
	if err != nil {
		status := http.StatusUnauthorized
		if errors.Is(err, auth.ErrNoSession) {
			status = http.StatusForbidden
		}
		writeError(w, "Invalid or expired refresh token", status)
		return
	}

	h.setTokenCookie(w, s.Token, s.TokenExpiresAt)
	writeJSON(w, http.StatusOK, RefreshTokenResponse{Token: s.Token, ExpiresAt: s.TokenExpiresAt})
}

// Session reports the admin session state.
func (h *AuthHandler) Session(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodGet) {
		return
	}
	writeJSON(w, http.StatusOK, h.sessions.Snapshot())
}

func (h *AuthHandler) setTokenCookie(w http.ResponseWriter, token string, expires time.Time) {
	http.SetCookie(w, &http.Cookie{
		Name:     middleware.TokenCookie,
		Value:    token,
		Path:     "/",
		Expires:  expires,
		HttpOnly: true,
		Secure:   h.secureCookie,
		SameSite: http.SameSiteLaxMode,
	})
}

func (h *AuthHandler) clearTokenCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     middleware.TokenCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.secureCookie,
		SameSite: http.SameSiteLaxMode,
	})
}

func authStatus(kind auth.AuthErrorKind) int {
	switch kind {
	case auth.InvalidCredentials:
		return http.StatusUnauthorized
	case auth.TooManyAttempts:
		return http.StatusTooManyRequests
	case auth.NetworkError:
		return http.StatusServiceUnavailable
	case auth.InvalidEmail:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
