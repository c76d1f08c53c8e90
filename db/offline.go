package db

import (
	"context"
	"errors"
	"time"

	"excursion/apperrors"
	"excursion/models"
)

// ErrBackendUnconfigured is returned by Offline for every call.
var ErrBackendUnconfigured = errors.New("firebase backend is not configured")

// Offline stands in for FirestoreDB when no Firebase project is configured.
// Every call fails with NetworkError, so reads degrade to sample data and
// writes surface an error.
type Offline struct{}

func unreachable(op string) error {
	return apperrors.New(apperrors.NetworkError, op, ErrBackendUnconfigured)
}

func (Offline) ListGallery(context.Context) ([]models.GalleryItem, error) {
	return nil, unreachable("db.ListGallery")
}

func (Offline) CreateGalleryItem(context.Context, *models.GalleryItem) (string, error) {
	return "", unreachable("db.CreateGalleryItem")
}

func (Offline) GetGalleryItem(context.Context, string) (*models.GalleryItem, error) {
	return nil, unreachable("db.GetGalleryItem")
}

func (Offline) UpdateGalleryItem(context.Context, string, GalleryPatch) error {
	return unreachable("db.UpdateGalleryItem")
}

func (Offline) DeleteGalleryItem(context.Context, string) error {
	return unreachable("db.DeleteGalleryItem")
}

func (Offline) AppendAuditLog(context.Context, *models.AuditLog) error {
	return unreachable("db.AppendAuditLog")
}

func (Offline) GetAdminByEmail(context.Context, string) (*models.AdminUser, error) {
	return nil, unreachable("db.GetAdminByEmail")
}

func (Offline) GetAdmin(context.Context, string) (*models.AdminUser, error) {
	return nil, unreachable("db.GetAdmin")
}

func (Offline) GetPasswordHash(context.Context, string) (string, error) {
	return "", unreachable("db.GetPasswordHash")
}

func (Offline) TouchLastSignIn(context.Context, string, time.Time) error {
	return unreachable("db.TouchLastSignIn")
}

func (Offline) SaveSession(context.Context, *models.PersistedSession) error {
	return unreachable("db.SaveSession")
}

// LoadSession reports no persisted session so startup settles as signed out.
func (Offline) LoadSession(context.Context) (*models.PersistedSession, error) {
	return nil, nil
}

func (Offline) ClearSession(context.Context) error {
	return nil
}
