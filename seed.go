package main

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"excursion/auth"
	"excursion/db"
	"excursion/gallery"
	"excursion/models"
)

// seedStore is the part of FirestoreDB the seed command writes to.
type seedStore interface {
	CreateAdmin(ctx context.Context, admin *models.AdminUser) error
	StorePasswordHash(ctx context.Context, userID, passwordHash string) error
	CreateGalleryItem(ctx context.Context, item *models.GalleryItem) (string, error)
}

func seedCmd() *cobra.Command {
	var (
		email    string
		password string
		samples  bool
	)

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Create the admin account and load the sample gallery",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := bootstrap()
			if err != nil {
				return err
			}
			defer logger.Sync()

			if !cfg.FirebaseEnabled() {
				return errors.New("FIREBASE_PROJECT_ID is required to seed")
			}

			ctx := cmd.Context()
			app, err := db.NewFirebaseApp(ctx, cfg.Firebase.ProjectID, cfg.Firebase.StorageBucket, cfg.Firebase.CredentialsPath)
			if err != nil {
				return err
			}
			firestoreDB, err := db.NewFirestoreDB(ctx, app, logger)
			if err != nil {
				return err
			}
			defer firestoreDB.Close()

			logger.Info("starting database seeding")
			if err := seedAdmin(ctx, firestoreDB, email, password); err != nil {
				return err
			}
			logger.Info("admin account ready", zap.String("email", strings.ToLower(email)))

			if samples {
				n, err := seedGallery(ctx, firestoreDB)
				if err != nil {
					return err
				}
				logger.Info("sample gallery loaded", zap.Int("items", n))
			}

			logger.Info("database seeding completed")
			return nil
		},
	}

	cmd.Flags().StringVar(&email, "email", "", "Admin email")
	cmd.Flags().StringVar(&password, "password", "", "Admin password (min 8 characters, letters and digits)")
	cmd.Flags().BoolVar(&samples, "samples", true, "Load the sample gallery items")
	cmd.MarkFlagRequired("email")
	cmd.MarkFlagRequired("password")

	return cmd
}

func seedAdmin(ctx context.Context, store seedStore, email, password string) error {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return errors.New("email is required")
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	admin := &models.AdminUser{
		UserID:    adminID(email),
		Email:     email,
		CreatedAt: time.Now(),
	}
	if err := store.CreateAdmin(ctx, admin); err != nil {
		return fmt.Errorf("failed to create admin %s: %w", email, err)
	}
	if err := store.StorePasswordHash(ctx, admin.UserID, hash); err != nil {
		return fmt.Errorf("failed to store password for %s: %w", email, err)
	}
	return nil
}

func seedGallery(ctx context.Context, store seedStore) (int, error) {
	items := gallery.Samples()
	for i := range items {
		if _, err := store.CreateGalleryItem(ctx, &items[i]); err != nil {
			return i, fmt.Errorf("failed to create gallery item %q: %w", items[i].Title, err)
		}
	}
	return len(items), nil
}

// adminID derives a stable id from the email so reseeding replaces the account.
func adminID(email string) string {
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte("mailto:"+email)).String()
}
