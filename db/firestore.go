package db

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"cloud.google.com/go/firestore"
	firebase "firebase.google.com/go"
	"go.uber.org/zap"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"

	"excursion/apperrors"
	"excursion/models"
)

const (
	adminsCollection    = "admins"
	passwordsCollection = "passwords"
	sessionsCollection  = "adminSessions"
	currentSessionDoc   = "current"
)

// GalleryPatch is the set of fields written by an edit. An empty Image keeps
// the stored URL.
type GalleryPatch struct {
	Title       string
	Location    models.Location
	Description string
	Image       string
	Updated     time.Time
}

// FirestoreDB wraps the Firestore client
type FirestoreDB struct {
	client *firestore.Client
	logger *zap.Logger
}

// NewFirebaseApp initializes the Firebase app shared by Firestore and Storage.
func NewFirebaseApp(ctx context.Context, projectID, bucket, credentialsPath string) (*firebase.App, error) {
	opt := option.WithCredentialsFile(credentialsPath)

	config := &firebase.Config{ProjectID: projectID, StorageBucket: bucket}
	app, err := firebase.NewApp(ctx, config, opt)
	if err != nil {
		return nil, fmt.Errorf("error initializing Firebase app: %w", err)
	}
	return app, nil
}

// NewFirestoreDB initializes a new Firestore client
func NewFirestoreDB(ctx context.Context, app *firebase.App, logger *zap.Logger) (*FirestoreDB, error) {
	client, err := app.Firestore(ctx)
	if err != nil {
		return nil, fmt.Errorf("error initializing Firestore client: %w", err)
	}

	logger.Info("connected to Firestore")

	return &FirestoreDB{
		client: client,
		logger: logger,
	}, nil
}

// Close closes the Firestore client
func (db *FirestoreDB) Close() error {
	return db.client.Close()
}

// --- Gallery Operations ---

// ListGallery returns every gallery item, most recently created first.
func (db *FirestoreDB) ListGallery(ctx context.Context) ([]models.GalleryItem, error) {
	iter := db.client.Collection(models.GalleryCollection).
		OrderBy("created", firestore.Desc).
		Documents(ctx)
	defer iter.Stop()

	items := []models.GalleryItem{}
	for {
		doc, err := iter.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, apperrors.FromBackend("db.ListGallery", err)
		}

		item, err := galleryFromDoc(doc)
		if err != nil {
			db.logger.Warn("failed to parse gallery item", zap.String("id", doc.Ref.ID), zap.Error(err))
			continue
		}
		items = append(items, item)
	}

	return items, nil
}

// CreateGalleryItem adds a record and returns the generated document ID.
func (db *FirestoreDB) CreateGalleryItem(ctx context.Context, item *models.GalleryItem) (string, error) {
	ref, _, err := db.client.Collection(models.GalleryCollection).Add(ctx, item)
	if err != nil {
		return "", apperrors.FromBackend("db.CreateGalleryItem", err)
	}
	return ref.ID, nil
}

// GetGalleryItem retrieves a gallery item by ID
func (db *FirestoreDB) GetGalleryItem(ctx context.Context, id string) (*models.GalleryItem, error) {
	doc, err := db.client.Collection(models.GalleryCollection).Doc(id).Get(ctx)
	if err != nil {
		return nil, apperrors.FromBackend("db.GetGalleryItem", err)
	}

	item, err := galleryFromDoc(doc)
	if err != nil {
		return nil, fmt.Errorf("failed to parse gallery item: %w", err)
	}
	return &item, nil
}

// UpdateGalleryItem writes the patch. Firestore rejects updates of missing
// documents with NotFound.
func (db *FirestoreDB) UpdateGalleryItem(ctx context.Context, id string, patch GalleryPatch) error {
	updates := []firestore.Update{
		{Path: "title", Value: patch.Title},
		{Path: "location", Value: string(patch.Location)},
		{Path: "description", Value: patch.Description},
		{Path: "updated", Value: patch.Updated},
	}
	if patch.Image != "" {
		updates = append(updates, firestore.Update{Path: "image", Value: patch.Image})
	}

	_, err := db.client.Collection(models.GalleryCollection).Doc(id).Update(ctx, updates)
	if err != nil {
		return apperrors.FromBackend("db.UpdateGalleryItem", err)
	}
	return nil
}

// DeleteGalleryItem deletes the metadata record only; the media object stays
// in storage.
func (db *FirestoreDB) DeleteGalleryItem(ctx context.Context, id string) error {
	_, err := db.client.Collection(models.GalleryCollection).Doc(id).Delete(ctx, firestore.Exists)
	if err != nil {
		return apperrors.FromBackend("db.DeleteGalleryItem", err)
	}
	return nil
}

func galleryFromDoc(doc *firestore.DocumentSnapshot) (models.GalleryItem, error) {
	var item models.GalleryItem
	if err := doc.DataTo(&item); err != nil {
		return item, err
	}
	item.ID = doc.Ref.ID
	item.CollectionID = doc.Ref.Parent.ID
	item.CollectionName = models.GalleryCollection
	return item, nil
}

// --- Audit Operations ---

// AppendAuditLog adds an entry to the admin audit collection.
func (db *FirestoreDB) AppendAuditLog(ctx context.Context, entry *models.AuditLog) error {
	_, _, err := db.client.Collection(models.AuditCollection).Add(ctx, entry)
	if err != nil {
		return apperrors.FromBackend("db.AppendAuditLog", err)
	}
	return nil
}

// --- Admin Operations ---

// CreateAdmin creates or replaces the admin account.
func (db *FirestoreDB) CreateAdmin(ctx context.Context, admin *models.AdminUser) error {
	_, err := db.client.Collection(adminsCollection).Doc(admin.UserID).Set(ctx, admin)
	if err != nil {
		return apperrors.FromBackend("db.CreateAdmin", err)
	}
	return nil
}

// GetAdmin retrieves an admin by ID
func (db *FirestoreDB) GetAdmin(ctx context.Context, userID string) (*models.AdminUser, error) {
	doc, err := db.client.Collection(adminsCollection).Doc(userID).Get(ctx)
	if err != nil {
		return nil, apperrors.FromBackend("db.GetAdmin", err)
	}

	var admin models.AdminUser
	if err := doc.DataTo(&admin); err != nil {
		return nil, fmt.Errorf("failed to parse admin: %w", err)
	}
	return &admin, nil
}

// GetAdminByEmail retrieves an admin by email
func (db *FirestoreDB) GetAdminByEmail(ctx context.Context, email string) (*models.AdminUser, error) {
	const op = "db.GetAdminByEmail"

	iter := db.client.Collection(adminsCollection).
		Where("email", "==", strings.ToLower(email)).
		Limit(1).
		Documents(ctx)
	defer iter.Stop()

	doc, err := iter.Next()
	if errors.Is(err, iterator.Done) {
		return nil, apperrors.New(apperrors.NotFound, op, fmt.Errorf("admin not found: %s", email))
	}
	if err != nil {
		return nil, apperrors.FromBackend(op, err)
	}

	var admin models.AdminUser
	if err := doc.DataTo(&admin); err != nil {
		return nil, fmt.Errorf("failed to parse admin: %w", err)
	}
	return &admin, nil
}

// TouchLastSignIn records a successful sign-in time.
func (db *FirestoreDB) TouchLastSignIn(ctx context.Context, userID string, at time.Time) error {
	_, err := db.client.Collection(adminsCollection).Doc(userID).Update(ctx, []firestore.Update{
		{Path: "last_sign_in", Value: at},
	})
	if err != nil {
		return apperrors.FromBackend("db.TouchLastSignIn", err)
	}
	return nil
}

// --- Password Operations ---

// StorePasswordHash stores a password hash for an admin
func (db *FirestoreDB) StorePasswordHash(ctx context.Context, userID, passwordHash string) error {
	_, err := db.client.Collection(passwordsCollection).Doc(userID).Set(ctx, map[string]interface{}{
		"user_id":       userID,
		"password_hash": passwordHash,
		"updated_at":    time.Now(),
	})
	if err != nil {
		return apperrors.FromBackend("db.StorePasswordHash", err)
	}
	return nil
}

// GetPasswordHash retrieves a password hash for an admin
func (db *FirestoreDB) GetPasswordHash(ctx context.Context, userID string) (string, error) {
	const op = "db.GetPasswordHash"

	doc, err := db.client.Collection(passwordsCollection).Doc(userID).Get(ctx)
	if err != nil {
		return "", apperrors.FromBackend(op, err)
	}

	if hash, ok := doc.Data()["password_hash"].(string); ok {
		return hash, nil
	}
	return "", apperrors.New(apperrors.NotFound, op, fmt.Errorf("password hash not found for user: %s", userID))
}

// --- Session Operations ---

// SaveSession persists the admin session so it survives restarts.
func (db *FirestoreDB) SaveSession(ctx context.Context, session *models.PersistedSession) error {
	_, err := db.client.Collection(sessionsCollection).Doc(currentSessionDoc).Set(ctx, session)
	if err != nil {
		return apperrors.FromBackend("db.SaveSession", err)
	}
	return nil
}

// LoadSession returns the persisted session, or nil when there is none.
func (db *FirestoreDB) LoadSession(ctx context.Context) (*models.PersistedSession, error) {
	doc, err := db.client.Collection(sessionsCollection).Doc(currentSessionDoc).Get(ctx)
	if err != nil {
		err = apperrors.FromBackend("db.LoadSession", err)
		if apperrors.Is(err, apperrors.NotFound) {
			return nil, nil
		}
		return nil, err
	}

	var session models.PersistedSession
	if err := doc.DataTo(&session); err != nil {
		return nil, fmt.Errorf("failed to parse session: %w", err)
	}
	return &session, nil
}

// ClearSession removes the persisted session.
func (db *FirestoreDB) ClearSession(ctx context.Context) error {
	_, err := db.client.Collection(sessionsCollection).Doc(currentSessionDoc).Delete(ctx)
	if err != nil {
		return apperrors.FromBackend("db.ClearSession", err)
	}
	return nil
}
