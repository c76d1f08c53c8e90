package middleware

import (
	"context"
	"net/http"
	"net/url"
	"strings"

	"go.uber.org/zap"

	"excursion/audit"
	"excursion/auth"
	"excursion/models"
	"excursion/session"
)

// TokenCookie carries the access token for browser page navigation.
const TokenCookie = "admin_token"

// LoginPath is where unauthenticated page requests are sent.
const LoginPath = "/admin-login"

const (
	loadingMessage   = "Vérification des accès..."
	authErrorMessage = "Erreur d'authentification"
)

// SessionSource is what the guard needs from the session manager.
type SessionSource interface {
	Snapshot() session.State
	Authenticate(token string) (*models.AdminUser, error)
}

// RequireSession guards admin routes on the admin session state.
//
//	Loading          503, no redirect
//	Error            500 with the error, no redirect
//	Unauthenticated  401 for /api/ paths, else redirect to the login page with ?from=
//	Authenticated    the token must belong to the session; the admin is put in the context
func RequireSession(sessions SessionSource, logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			state := sessions.Snapshot()
			switch {
			case state.IsLoading:
				w.Header().Set("Retry-After", "1")
				writeError(w, loadingMessage, http.StatusServiceUnavailable)
				return
			case state.Error != "" && !state.IsLoggedIn:
				writeJSON(w, http.StatusInternalServerError, map[string]string{
					"error":   authErrorMessage,
					"details": state.Error,
				})
				return
			case !state.IsLoggedIn:
				deny(w, r, "Authentication required")
				return
			}

			token, ok := requestToken(r)
			if !ok {
				deny(w, r, "Authentication required")
				return
			}
			user, err := sessions.Authenticate(token)
			if err != nil {
				logger.Debug("rejected admin token", zap.String("op", "middleware.RequireSession"),
					zap.String("path", r.URL.Path), zap.Error(err))
				deny(w, r, "Invalid or expired token")
				return
			}

			ctx := audit.WithActor(r.Context(), user)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// GetUserFromContext retrieves the admin from the request context
func GetUserFromContext(ctx context.Context) (*models.AdminUser, bool) {
	return audit.ActorFrom(ctx)
}

func requestToken(r *http.Request) (string, bool) {
	if header := r.Header.Get("Authorization"); header != "" {
		token, err := auth.ExtractToken(header)
		return token, err == nil
	}
	if c, err := r.Cookie(TokenCookie); err == nil && c.Value != "" {
		return c.Value, true
	}
	return "", false
}

func deny(w http.ResponseWriter, r *http.Request, message string) {
	if isAPI(r) {
		writeError(w, message, http.StatusUnauthorized)
		return
	}
	http.Redirect(w, r, LoginRedirect(r.URL.RequestURI()), http.StatusFound)
}

// LoginRedirect builds the login URL remembering the requested location.
func LoginRedirect(from string) string {
	return LoginPath + "?" + url.Values{"from": {from}}.Encode()
}

func isAPI(r *http.Request) bool {
	return strings.HasPrefix(r.URL.Path, "/api/")
}
