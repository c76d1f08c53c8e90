// Package session holds the single process-wide view of the admin session.
// HTTP handlers and the route guard consume the Manager; nothing else talks
// to the auth gateway.
package session

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"excursion/auth"
	"excursion/models"
)

// Gateway is the part of auth.Gateway the manager relies on.
type Gateway interface {
	Subscribe(onChange auth.Listener, onError auth.ErrorListener) func()
	SignIn(ctx context.Context, email, password string) (*auth.Session, error)
	SignOut(ctx context.Context) error
	Refresh(ctx context.Context, refreshToken string) (*auth.Session, error)
	Authenticate(token string) (*models.AdminUser, error)
	CurrentSession() *auth.Session
}

const signOutFailedMessage = "Erreur lors de la déconnexion"

// State is the published admin session state.
type State struct {
	IsLoggedIn  bool              `json:"isLoggedIn"`
	IsLoading   bool              `json:"isLoading"`
	CurrentUser *models.AdminUser `json:"currentUser"`
	Error       string            `json:"error,omitempty"`
}

// Manager subscribes once to the gateway and republishes its state.
type Manager struct {
	gateway Gateway
	logger  *zap.Logger

	mu       sync.RWMutex
	state    State
	watchers map[int]func(State)
	nextID   int

	unsubscribe func()
	closeOnce   sync.Once
}

// NewManager creates the manager and its single gateway subscription. The
// state is Loading until the gateway settles.
func NewManager(gateway Gateway, logger *zap.Logger) *Manager {
	m := &Manager{
		gateway:  gateway,
		logger:   logger,
		state:    State{IsLoading: true},
		watchers: make(map[int]func(State)),
	}
	m.unsubscribe = gateway.Subscribe(m.onSession, m.onError)
	return m
}

// Snapshot returns the current state.
func (m *Manager) Snapshot() State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state
}

// Watch registers fn for every state change and returns its cancel function.
func (m *Manager) Watch(fn func(State)) func() {
	m.mu.Lock()
	id := m.nextID
	m.nextID++
	m.watchers[id] = fn
	m.mu.Unlock()

	return func() {
		m.mu.Lock()
		delete(m.watchers, id)
		m.mu.Unlock()
	}
}

func (m *Manager) SignIn(ctx context.Context, email, password string) (*auth.Session, error) {
	return m.gateway.SignIn(ctx, email, password)
}

// SignOut ends the session. On failure the error is also published.
func (m *Manager) SignOut(ctx context.Context) error {
	if err := m.gateway.SignOut(ctx); err != nil {
		m.logger.Warn("sign out failed", zap.String("op", "session.SignOut"), zap.Error(err))
		m.update(func(s *State) { s.Error = signOutFailedMessage })
		return err
	}
	return nil
}

func (m *Manager) Refresh(ctx context.Context, refreshToken string) (*auth.Session, error) {
	return m.gateway.Refresh(ctx, refreshToken)
}

func (m *Manager) Authenticate(token string) (*models.AdminUser, error) {
	return m.gateway.Authenticate(token)
}

// Session returns the live session including tokens, nil when signed out.
func (m *Manager) Session() *auth.Session {
	return m.gateway.CurrentSession()
}

// Close drops the gateway subscription. Safe to call more than once.
func (m *Manager) Close() {
	m.closeOnce.Do(func() {
		m.unsubscribe()
		m.logger.Debug("session manager closed", zap.String("op", "session.Close"))
	})
}

func (m *Manager) onSession(s *auth.Session) {
	m.update(func(st *State) {
		st.IsLoading = false
		st.Error = ""
		st.IsLoggedIn = s != nil
		st.CurrentUser = nil
		if s != nil {
			user := s.User
			st.CurrentUser = &user
		}
	})
}

func (m *Manager) onError(err error) {
	m.logger.Error("auth state error", zap.String("op", "session.onError"), zap.Error(err))
	m.update(func(st *State) {
		st.IsLoading = false
		st.IsLoggedIn = false
		st.CurrentUser = nil
		st.Error = err.Error()
	})
}

func (m *Manager) update(mutate func(*State)) {
	m.mu.Lock()
	mutate(&m.state)
	state := m.state
	watchers := make([]func(State), 0, len(m.watchers))
	for _, fn := range m.watchers {
		watchers = append(watchers, fn)
	}
	m.mu.Unlock()

	for _, fn := range watchers {
		fn(state)
	}
}
