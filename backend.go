package main

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"excursion/audit"
	"excursion/auth"
	"excursion/config"
	"excursion/db"
	"excursion/gallery"
	"excursion/media"
)

// store is everything the application persists.
type store interface {
	gallery.RecordStore
	auth.CredentialStore
	audit.Writer
}

type backend struct {
	store store
	media media.Store
	close func() error
}

// openBackend connects Firestore and Storage, or falls back to the offline
// backend when no Firebase project is configured.
func openBackend(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*backend, error) {
	if !cfg.FirebaseEnabled() {
		logger.Warn("FIREBASE_PROJECT_ID not set, running in demo mode with sample gallery data")
		return &backend{
			store: db.Offline{},
			media: media.Unavailable{},
			close: func() error { return nil },
		}, nil
	}

	app, err := db.NewFirebaseApp(ctx, cfg.Firebase.ProjectID, cfg.Firebase.StorageBucket, cfg.Firebase.CredentialsPath)
	if err != nil {
		return nil, err
	}
	firestoreDB, err := db.NewFirestoreDB(ctx, app, logger)
	if err != nil {
		return nil, err
	}
	bucket, err := media.OpenBucket(ctx, app, cfg.Firebase.StorageBucket)
	if err != nil {
		firestoreDB.Close()
		return nil, fmt.Errorf("failed to open storage bucket: %w", err)
	}
	logger.Info("connected to Firebase Storage", zap.String("bucket", bucket.BucketName()))

	return &backend{
		store: firestoreDB,
		media: media.NewFirebaseStore(bucket, media.NewNamer(nil), logger),
		close: firestoreDB.Close,
	}, nil
}
