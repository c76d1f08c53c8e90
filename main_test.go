package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"excursion/assistant"
	"excursion/audit"
	"excursion/auth"
	"excursion/config"
	"excursion/db"
	"excursion/gallery"
	"excursion/media"
	"excursion/models"
	"excursion/session"
)

func demoRouter(t *testing.T) http.Handler {
	t.Helper()
	cfg := config.Load()
	cfg.Server.StaticDir = t.TempDir()
	cfg.RateLimit.Requests = 1000
	require.NoError(t, os.WriteFile(filepath.Join(cfg.Server.StaticDir, "index.html"), []byte("<html></html>"), 0o644))

	logger := zap.NewNop()
	repo := gallery.NewRepository(db.Offline{}, media.Unavailable{}, audit.Discard{}, logger)
	gateway := auth.NewGateway(db.Offline{}, auth.NewJWTManager("test", cfg.JWT.Expiration, cfg.JWT.RefreshTokenExpiration),
		auth.NewAttemptLimiter(5, cfg.Login.Lockout), logger)
	sessions := session.NewManager(gateway, logger)
	t.Cleanup(sessions.Close)
	require.NoError(t, gateway.Restore(context.Background()))

	return newRouter(cfg, logger, repo, sessions, assistant.NewProxy(nil, logger))
}

func TestRouter_DemoModeServesSamples(t *testing.T) {
	h := demoRouter(t)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/gallery", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var items []models.GalleryItem
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &items))
	assert.Len(t, items, len(gallery.Samples()))
}

func TestRouter_AdminIsGuarded(t *testing.T) {
	h := demoRouter(t)

	for _, target := range []string{"/admin", "/admin/"} {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
		assert.Equal(t, http.StatusFound, rec.Code, target)
		assert.Contains(t, rec.Header().Get("Location"), "/admin-login?from=", target)
	}

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/api/admin/gallery/delete?id=1", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRouter_DemoModeSignInIsNetworkError(t *testing.T) {
	h := demoRouter(t)

	req := httptest.NewRequest(http.MethodPost, "/api/admin/login",
		jsonBody(t, models.AuthRequest{Email: "admin@example.sn", Password: "Teranga2024"}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), "Erreur de connexion réseau.")
}

func TestRouter_HealthAndLegacyRedirect(t *testing.T) {
	h := demoRouter(t)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/tarifs", nil))
	assert.Equal(t, "/", rec.Header().Get("Location"))
}

type fakeSeedStore struct {
	admins map[string]*models.AdminUser
	hashes map[string]string
	items  []models.GalleryItem
}

func (f *fakeSeedStore) CreateAdmin(_ context.Context, admin *models.AdminUser) error {
	f.admins[admin.UserID] = admin
	return nil
}

func (f *fakeSeedStore) StorePasswordHash(_ context.Context, userID, hash string) error {
	f.hashes[userID] = hash
	return nil
}

func (f *fakeSeedStore) CreateGalleryItem(_ context.Context, item *models.GalleryItem) (string, error) {
	f.items = append(f.items, *item)
	return item.ID, nil
}

func TestSeed(t *testing.T) {
	store := &fakeSeedStore{admins: map[string]*models.AdminUser{}, hashes: map[string]string{}}
	ctx := context.Background()

	require.NoError(t, seedAdmin(ctx, store, " Admin@Example.sn ", "Teranga2024"))
	require.NoError(t, seedAdmin(ctx, store, "admin@example.sn", "Teranga2024"))
	require.Len(t, store.admins, 1)
	for id, admin := range store.admins {
		assert.Equal(t, "admin@example.sn", admin.Email)
		assert.NoError(t, auth.CheckPassword("Teranga2024", store.hashes[id]))
	}

	assert.Error(t, seedAdmin(ctx, store, "admin@example.sn", "weak"))

	n, err := seedGallery(ctx, store)
	require.NoError(t, err)
	assert.Equal(t, len(gallery.Samples()), n)
}

func jsonBody(t *testing.T, v interface{}) *bytes.Reader {
	t.Helper()
	b, err := json.Marshal(v)
	require.NoError(t, err)
	return bytes.NewReader(b)
}
