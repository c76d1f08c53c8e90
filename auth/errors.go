package auth

import (
	"errors"
	"fmt"
)

// AuthErrorKind enumerates the sign-in failures shown to the admin.
type AuthErrorKind string

const (
	InvalidCredentials AuthErrorKind = "invalid_credentials"
	TooManyAttempts    AuthErrorKind = "too_many_attempts"
	NetworkError       AuthErrorKind = "network_error"
	InvalidEmail       AuthErrorKind = "invalid_email"
	Unknown            AuthErrorKind = "unknown"
)

// The login form displays these verbatim.
var authMessages = map[AuthErrorKind]string{
	InvalidCredentials: "Email ou mot de passe incorrect.",
	TooManyAttempts:    "Trop de tentatives infructueuses. Réessayez plus tard.",
	NetworkError:       "Erreur de connexion réseau. Vérifiez votre connexion internet.",
	InvalidEmail:       "Email invalide.",
	Unknown:            "Une erreur inconnue est survenue.",
}

// AuthError is returned by Gateway.SignIn.
type AuthError struct {
	Kind AuthErrorKind
	Err  error
}

func (e *AuthError) Error() string {
	if e.Err == nil {
		return string(e.Kind)
	}
	return fmt.Sprintf("%s: %v", e.Kind, e.Err)
}

func (e *AuthError) Unwrap() error {
	return e.Err
}

// Message returns the user-facing text for the error.
func (e *AuthError) Message() string {
	return MessageFor(e.Kind)
}

// MessageFor returns the user-facing text for kind.
func MessageFor(kind AuthErrorKind) string {
	if msg, ok := authMessages[kind]; ok {
		return msg
	}
	return authMessages[Unknown]
}

// KindOf extracts the AuthErrorKind of err, Unknown when err is not an AuthError.
func KindOf(err error) AuthErrorKind {
	var authErr *AuthError
	if errors.As(err, &authErr) {
		return authErr.Kind
	}
	return Unknown
}

func newAuthError(kind AuthErrorKind, err error) *AuthError {
	return &AuthError{Kind: kind, Err: err}
}

var (
	// ErrNoSession is returned when a token is presented while signed out.
	ErrNoSession = errors.New("no active admin session")
	// ErrSessionMismatch is returned for tokens of a previous session.
	ErrSessionMismatch = errors.New("token does not belong to the active session")
	// ErrSignOutFailed is the generic sign-out failure.
	ErrSignOutFailed = errors.New("sign out failed")
)
