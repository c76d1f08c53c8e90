package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"excursion/apperrors"
	"excursion/models"
)

// CredentialStore is the identity backend of the gateway.
type CredentialStore interface {
	GetAdminByEmail(ctx context.Context, email string) (*models.AdminUser, error)
	GetAdmin(ctx context.Context, userID string) (*models.AdminUser, error)
	GetPasswordHash(ctx context.Context, userID string) (string, error)
	TouchLastSignIn(ctx context.Context, userID string, at time.Time) error
	SaveSession(ctx context.Context, session *models.PersistedSession) error
	LoadSession(ctx context.Context) (*models.PersistedSession, error)
	ClearSession(ctx context.Context) error
}

// Session is the authenticated admin identity.
type Session struct {
	ID             string
	User           models.AdminUser
	Token          string
	TokenExpiresAt time.Time
	RefreshToken   string
	ExpiresAt      time.Time
}

func (s *Session) clone() *Session {
	if s == nil {
		return nil
	}
	c := *s
	return &c
}

// Listener receives the session after every change, nil once signed out.
type Listener func(*Session)

// ErrorListener receives failures of the identity backend while settling.
type ErrorListener func(error)

type subscription struct {
	onChange Listener
	onError  ErrorListener
}

// Gateway owns the single admin session of the process.
//
// It starts unsettled (Loading). The first Restore, SignIn or SignOut settles
// it into Authenticated or Unauthenticated and every later change is pushed
// to subscribers.
//
// Session changes and their persistence run under one transition lock, so a
// refresh can never republish a session that was signed out meanwhile.
// Listeners are called one change at a time, in the order the changes
// happened, and must not call back into the gateway.
type Gateway struct {
	store    CredentialStore
	tokens   *JWTManager
	limiter  *AttemptLimiter
	validate *validator.Validate
	logger   *zap.Logger
	now      func() time.Time

	transition sync.Mutex

	deliverMu sync.Mutex
	delivered uint64

	mu        sync.Mutex
	current   *Session
	settled   bool
	settleErr error
	version   uint64
	nextSub   int
	subs      map[int]subscription
}

func NewGateway(store CredentialStore, tokens *JWTManager, limiter *AttemptLimiter, logger *zap.Logger) *Gateway {
	return &Gateway{
		store:    store,
		tokens:   tokens,
		limiter:  limiter,
		validate: validator.New(),
		logger:   logger,
		now:      time.Now,
		subs:     make(map[int]subscription),
	}
}

// SignIn checks the credentials and opens a new session. Failures are
// always *AuthError.
func (g *Gateway) SignIn(ctx context.Context, email, password string) (*Session, error) {
	const op = "auth.SignIn"
	email = strings.ToLower(strings.TrimSpace(email))

	if err := g.validate.Var(email, "required,email"); err != nil {
		return nil, newAuthError(InvalidEmail, err)
	}
	if g.limiter.Blocked(email) {
		g.logger.Warn("sign-in locked out", zap.String("op", op), zap.String("email", email))
		return nil, newAuthError(TooManyAttempts, nil)
	}

	user, err := g.store.GetAdminByEmail(ctx, email)
	if err != nil {
		return nil, g.backendFailure(op, email, err)
	}
	hash, err := g.store.GetPasswordHash(ctx, user.UserID)
	if err != nil {
		return nil, g.backendFailure(op, email, err)
	}
	if err := CheckPassword(password, hash); err != nil {
		if errors.Is(err, ErrPasswordMismatch) {
			g.limiter.Fail(email)
			return nil, newAuthError(InvalidCredentials, err)
		}
		return nil, newAuthError(Unknown, err)
	}
	g.limiter.Reset(email)

	g.transition.Lock()
	defer g.transition.Unlock()

	now := g.now()
	user.LastSignIn = now
	session, err := g.issue(*user, uuid.NewString())
	if err != nil {
		return nil, newAuthError(Unknown, err)
	}

	if err := g.store.TouchLastSignIn(ctx, user.UserID, now); err != nil {
		g.logger.Warn("failed to record last sign-in", zap.String("op", op), zap.Error(err))
	}
	g.persist(ctx, session)
	g.publish(session)

	g.logger.Info("admin signed in", zap.String("op", op), zap.String("user_id", user.UserID))
	return session.clone(), nil
}

func (g *Gateway) backendFailure(op, email string, err error) error {
	switch apperrors.KindOf(err) {
	case apperrors.NotFound:
		g.limiter.Fail(email)
		return newAuthError(InvalidCredentials, err)
	case apperrors.NetworkError:
		return newAuthError(NetworkError, err)
	case apperrors.QuotaOrSizeExceeded:
		return newAuthError(TooManyAttempts, err)
	default:
		g.logger.Error("sign-in backend failure", zap.String("op", op), zap.Error(err))
		return newAuthError(Unknown, err)
	}
}

// SignOut ends the session. Subscribers always observe the sign-out; only
// the persisted copy can fail to clear, reported as ErrSignOutFailed.
func (g *Gateway) SignOut(ctx context.Context) error {
	const op = "auth.SignOut"
	g.transition.Lock()
	defer g.transition.Unlock()

	g.publish(nil)
	if err := g.store.ClearSession(ctx); err != nil {
		g.logger.Error("failed to clear persisted session", zap.String("op", op), zap.Error(err))
		return fmt.Errorf("%w: %v", ErrSignOutFailed, err)
	}
	g.logger.Info("admin signed out", zap.String("op", op))
	return nil
}

// Refresh mints a new access token from a refresh token of the current
// session. The session stays Authenticated.
func (g *Gateway) Refresh(ctx context.Context, refreshToken string) (*Session, error) {
	const op = "auth.Refresh"
	claims, err := g.tokens.ValidateToken(refreshToken, TokenRefresh)
	if err != nil {
		return nil, err
	}

	g.transition.Lock()
	defer g.transition.Unlock()

	current := g.CurrentSession()
	if current == nil {
		return nil, ErrNoSession
	}
	if claims.SessionID != current.ID {
		return nil, ErrSessionMismatch
	}

	token, expiresAt, err := g.tokens.GenerateToken(&current.User, current.ID)
	if err != nil {
		return nil, err
	}
	current.Token = token
	current.TokenExpiresAt = expiresAt

	g.persist(ctx, current)
	if !g.replace(current) {
		return nil, ErrNoSession
	}
	g.logger.Debug("access token refreshed", zap.String("op", op), zap.String("session_id", current.ID))
	return current.clone(), nil
}

// CurrentSession returns a snapshot of the session, nil when signed out.
// A session past its refresh window is invalidated here.
func (g *Gateway) CurrentSession() *Session {
	g.mu.Lock()
	if g.current == nil {
		g.mu.Unlock()
		return nil
	}
	if !g.now().Before(g.current.ExpiresAt) {
		g.current = nil
		g.version++
		g.mu.Unlock()
		g.logger.Info("admin session expired", zap.String("op", "auth.CurrentSession"))
		g.deliver()
		return nil
	}
	s := g.current.clone()
	g.mu.Unlock()
	return s
}

// Authenticate resolves an access token to the admin of the current session.
func (g *Gateway) Authenticate(token string) (*models.AdminUser, error) {
	claims, err := g.tokens.ValidateToken(token, TokenAccess)
	if err != nil {
		return nil, err
	}
	current := g.CurrentSession()
	if current == nil {
		return nil, ErrNoSession
	}
	if claims.SessionID != current.ID {
		return nil, ErrSessionMismatch
	}
	user := current.User
	return &user, nil
}

// Restore settles the gateway from the persisted session. A backend failure
// settles it into the error state and is returned.
func (g *Gateway) Restore(ctx context.Context) error {
	const op = "auth.Restore"
	g.transition.Lock()
	defer g.transition.Unlock()

	persisted, err := g.store.LoadSession(ctx)
	if err != nil {
		g.logger.Error("failed to load persisted session", zap.String("op", op), zap.Error(err))
		g.fail(err)
		return err
	}
	if persisted == nil {
		g.publish(nil)
		return nil
	}

	claims, err := g.tokens.ValidateToken(persisted.RefreshToken, TokenRefresh)
	if err != nil || claims.SessionID != persisted.SessionID || !g.now().Before(persisted.ExpiresAt) {
		g.logger.Info("discarding stale persisted session", zap.String("op", op))
		if err := g.store.ClearSession(ctx); err != nil {
			g.logger.Warn("failed to clear stale session", zap.String("op", op), zap.Error(err))
		}
		g.publish(nil)
		return nil
	}

	user := models.AdminUser{UserID: persisted.UserID, Email: persisted.Email}
	if stored, err := g.store.GetAdmin(ctx, persisted.UserID); err == nil {
		user = *stored
	} else {
		g.logger.Warn("admin profile unavailable, using persisted identity", zap.String("op", op), zap.Error(err))
	}

	token, tokenExpiresAt, err := g.tokens.GenerateToken(&user, persisted.SessionID)
	if err != nil {
		g.fail(err)
		return err
	}
	session := &Session{
		ID:             persisted.SessionID,
		User:           user,
		Token:          token,
		TokenExpiresAt: tokenExpiresAt,
		RefreshToken:   persisted.RefreshToken,
		ExpiresAt:      persisted.ExpiresAt,
	}
	g.publish(session)
	g.logger.Info("admin session restored", zap.String("op", op), zap.String("user_id", user.UserID))
	return nil
}

// Subscribe registers listeners for session changes. When the gateway has
// already settled the matching listener fires immediately. The returned
// function unsubscribes and may be called more than once.
func (g *Gateway) Subscribe(onChange Listener, onError ErrorListener) func() {
	g.deliverMu.Lock()
	defer g.deliverMu.Unlock()

	g.mu.Lock()
	id := g.nextSub
	g.nextSub++
	g.subs[id] = subscription{onChange: onChange, onError: onError}
	settled, settleErr, current := g.settled, g.settleErr, g.current.clone()
	g.mu.Unlock()

	if settled {
		switch {
		case settleErr != nil && onError != nil:
			onError(settleErr)
		case settleErr == nil && onChange != nil:
			onChange(current)
		}
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			g.mu.Lock()
			delete(g.subs, id)
			g.mu.Unlock()
		})
	}
}

func (g *Gateway) issue(user models.AdminUser, sessionID string) (*Session, error) {
	token, tokenExpiresAt, err := g.tokens.GenerateToken(&user, sessionID)
	if err != nil {
		return nil, err
	}
	refreshToken, expiresAt, err := g.tokens.GenerateRefreshToken(&user, sessionID)
	if err != nil {
		return nil, err
	}
	return &Session{
		ID:             sessionID,
		User:           user,
		Token:          token,
		TokenExpiresAt: tokenExpiresAt,
		RefreshToken:   refreshToken,
		ExpiresAt:      expiresAt,
	}, nil
}

func (g *Gateway) persist(ctx context.Context, s *Session) {
	err := g.store.SaveSession(ctx, &models.PersistedSession{
		SessionID:    s.ID,
		UserID:       s.User.UserID,
		Email:        s.User.Email,
		Token:        s.Token,
		RefreshToken: s.RefreshToken,
		ExpiresAt:    s.ExpiresAt,
		UpdatedAt:    g.now(),
	})
	if err != nil {
		g.logger.Warn("failed to persist session", zap.String("op", "auth.persist"), zap.Error(err))
	}
}

func (g *Gateway) publish(s *Session) {
	g.mu.Lock()
	g.current = s.clone()
	g.settled = true
	g.settleErr = nil
	g.version++
	g.mu.Unlock()
	g.deliver()
}

// replace publishes s only while it is still the current session.
func (g *Gateway) replace(s *Session) bool {
	g.mu.Lock()
	if g.current == nil || g.current.ID != s.ID {
		g.mu.Unlock()
		return false
	}
	g.current = s.clone()
	g.version++
	g.mu.Unlock()
	g.deliver()
	return true
}

func (g *Gateway) fail(err error) {
	g.mu.Lock()
	g.current = nil
	g.settled = true
	g.settleErr = err
	g.version++
	g.mu.Unlock()
	g.deliver()
}

// deliver pushes the latest state to every subscriber. A state superseded
// before its turn is skipped in favour of the newer one.
func (g *Gateway) deliver() {
	g.deliverMu.Lock()
	defer g.deliverMu.Unlock()

	g.mu.Lock()
	if g.version == g.delivered {
		g.mu.Unlock()
		return
	}
	g.delivered = g.version
	current, settleErr := g.current.clone(), g.settleErr
	subs := g.snapshotSubs()
	g.mu.Unlock()

	for _, sub := range subs {
		if settleErr != nil {
			if sub.onError != nil {
				sub.onError(settleErr)
			}
			continue
		}
		if sub.onChange != nil {
			sub.onChange(current.clone())
		}
	}
}

// snapshotSubs must be called with g.mu held.
func (g *Gateway) snapshotSubs() []subscription {
	subs := make([]subscription, 0, len(g.subs))
	for _, sub := range g.subs {
		subs = append(subs, sub)
	}
	return subs
}
