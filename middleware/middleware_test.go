package middleware

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"excursion/audit"
	"excursion/models"
	"excursion/session"
)

type stubSessions struct {
	state session.State
	token string
	user  *models.AdminUser
}

func (s *stubSessions) Snapshot() session.State {
	return s.state
}

func (s *stubSessions) Authenticate(token string) (*models.AdminUser, error) {
	if token != s.token {
		return nil, errors.New("bad token")
	}
	return s.user, nil
}

func guarded(t *testing.T, sessions SessionSource) (http.Handler, *bool) {
	t.Helper()
	reached := false
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reached = true
		user, ok := GetUserFromContext(r.Context())
		require.True(t, ok)
		w.Write([]byte(user.Email))
	})
	return RequireSession(sessions, zap.NewNop())(next), &reached
}

func TestRequireSession_Loading(t *testing.T) {
	h, reached := guarded(t, &stubSessions{state: session.State{IsLoading: true}})

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/admin", nil))

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), "Vérification des accès...")
	assert.Empty(t, rec.Header().Get("Location"))
	assert.False(t, *reached)
}

func TestRequireSession_Error(t *testing.T) {
	h, reached := guarded(t, &stubSessions{state: session.State{Error: "permission-denied"}})

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/admin", nil))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), "permission-denied")
	assert.Empty(t, rec.Header().Get("Location"))
	assert.False(t, *reached)
}

func TestRequireSession_UnauthenticatedPageRedirects(t *testing.T) {
	h, reached := guarded(t, &stubSessions{})

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/admin", nil))

	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "/admin-login?from=%2Fadmin", rec.Header().Get("Location"))
	assert.False(t, *reached)
}

func TestRequireSession_UnauthenticatedAPI(t *testing.T) {
	h, _ := guarded(t, &stubSessions{})

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/admin/gallery", nil))

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRequireSession_Authenticated(t *testing.T) {
	sessions := &stubSessions{
		state: session.State{IsLoggedIn: true},
		token: "good",
		user:  &models.AdminUser{UserID: "admin-1", Email: "a@b.sn"},
	}
	h, reached := guarded(t, sessions)

	req := httptest.NewRequest(http.MethodGet, "/api/admin/gallery", nil)
	req.Header.Set("Authorization", "Bearer good")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "a@b.sn", rec.Body.String())
	assert.True(t, *reached)

	page := httptest.NewRequest(http.MethodGet, "/admin", nil)
	page.AddCookie(&http.Cookie{Name: TokenCookie, Value: "good"})
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, page)
	assert.Equal(t, http.StatusOK, rec.Code)

	bad := httptest.NewRequest(http.MethodGet, "/api/admin/gallery", nil)
	bad.Header.Set("Authorization", "Bearer stale")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, bad)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestClientIP(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "10.0.0.1:5555"
	assert.Equal(t, "10.0.0.1", ClientIP(req))

	req.Header.Set("X-Forwarded-For", "41.82.1.2, 10.0.0.1")
	assert.Equal(t, "41.82.1.2", ClientIP(req))

	var seen string
	h := ClientIPMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = audit.ClientIPFrom(r.Context())
	}))
	h.ServeHTTP(httptest.NewRecorder(), req)
	assert.Equal(t, "41.82.1.2", seen)
}

func TestRateLimiter(t *testing.T) {
	rl := NewRateLimiter(2, time.Minute)
	h := rl.Middleware()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = "10.0.0.9:1234"
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		codes = append(codes, rec.Code)
	}

	assert.Equal(t, []int{200, 200, 429}, codes)
	assert.Same(t, rl.GetLimiter("10.0.0.9"), rl.GetLimiter("10.0.0.9"))
}

func TestCORSMiddleware(t *testing.T) {
	h := CORSMiddleware([]string{"https://senegal-excursion.sn"})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	req := httptest.NewRequest(http.MethodOptions, "/api/gallery", nil)
	req.Header.Set("Origin", "https://senegal-excursion.sn")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "https://senegal-excursion.sn", rec.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodGet, "/api/gallery", nil)
	req.Header.Set("Origin", "https://evil.example")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestChainOrderAndAccessLog(t *testing.T) {
	var order []string
	mark := func(name string) func(http.Handler) http.Handler {
		return func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				order = append(order, name)
				next.ServeHTTP(w, r)
			})
		}
	}
	h := Chain(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}), mark("outer"), AccessLog(zap.NewNop()), Metrics(func(*http.Request) string { return "test" }), mark("inner"))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/x", nil))

	assert.Equal(t, []string{"outer", "inner"}, order)
	assert.Equal(t, http.StatusTeapot, rec.Code)
}
