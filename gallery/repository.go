// Package gallery implements the admin gallery data flow: listing with demo
// fallback, create/update with media upload, and record deletion.
package gallery

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"

	"excursion/apperrors"
	"excursion/audit"
	"excursion/db"
	"excursion/media"
	"excursion/models"
)

// Audit actions emitted by the repository.
const (
	ActionUpload = "gallery_upload"
	ActionUpdate = "gallery_update"
	ActionDelete = "gallery_delete"
)

var listFallbacks = promauto.NewCounter(prometheus.CounterOpts{
	Name: "gallery_list_fallback_total",
	Help: "Gallery listings served from the built-in samples.",
})

// RecordStore persists gallery metadata.
type RecordStore interface {
	ListGallery(ctx context.Context) ([]models.GalleryItem, error)
	CreateGalleryItem(ctx context.Context, item *models.GalleryItem) (string, error)
	GetGalleryItem(ctx context.Context, id string) (*models.GalleryItem, error)
	UpdateGalleryItem(ctx context.Context, id string, patch db.GalleryPatch) error
	DeleteGalleryItem(ctx context.Context, id string) error
}

type Repository struct {
	records  RecordStore
	media    media.Store
	audit    audit.Sink
	validate *validator.Validate
	logger   *zap.Logger
	now      func() time.Time
}

func NewRepository(records RecordStore, store media.Store, sink audit.Sink, logger *zap.Logger) *Repository {
	if sink == nil {
		sink = audit.Discard{}
	}
	return &Repository{
		records:  records,
		media:    store,
		audit:    sink,
		validate: validator.New(),
		logger:   logger,
		now:      time.Now,
	}
}

// List returns the gallery newest first. Any backend failure yields the
// built-in samples instead of an error.
func (r *Repository) List(ctx context.Context) []models.GalleryItem {
	const op = "gallery.List"

	items, err := r.records.ListGallery(ctx)
	if err != nil {
		listFallbacks.Inc()
		r.logger.Warn("gallery fetch failed, using sample data",
			zap.String("op", op),
			zap.String("kind", string(apperrors.KindOf(err))),
			zap.Error(err))
		return Samples()
	}

	sort.SliceStable(items, func(i, j int) bool {
		return items[i].Created.After(items[j].Created)
	})
	for i := range items {
		items[i].Kind = media.ClassifyKind(items[i].Image)
	}
	return items
}

// Create uploads file, then stores a record pointing at the returned URL.
// A record write failing after a successful upload leaves the object in
// storage.
func (r *Repository) Create(ctx context.Context, fields models.GalleryFields, file *media.Upload) (*models.GalleryItem, error) {
	const op = "gallery.Create"

	fields = normalize(fields)
	if err := r.validateFields(op, fields); err != nil {
		return nil, err
	}
	if err := validateFile(op, file); err != nil {
		return nil, err
	}

	url, err := r.upload(ctx, op, file)
	if err != nil {
		return nil, err
	}

	now := r.now()
	item := &models.GalleryItem{
		Title:       fields.Title,
		Location:    fields.Location,
		Description: fields.Description,
		Image:       url,
		Created:     now,
		Updated:     now,
	}

	id, err := r.records.CreateGalleryItem(ctx, item)
	if err != nil {
		r.logger.Error("gallery record write failed after upload",
			zap.String("op", op),
			zap.String("image", url),
			zap.Error(err))
		return nil, uploadFailed(op, err)
	}

	item.ID = id
	item.CollectionID = models.GalleryCollection
	item.CollectionName = models.GalleryCollection
	item.Kind = media.ClassifyKind(file.Name)

	r.audit.Log(audit.FromContext(ctx, ActionUpload, map[string]interface{}{
		"itemId":      id,
		"title":       fields.Title,
		"location":    string(fields.Location),
		"fileName":    file.Name,
		"fileSize":    file.Size,
		"description": fields.Description,
	}))
	r.logger.Info("gallery item created", zap.String("op", op), zap.String("id", id))

	return item, nil
}

// Update replaces the metadata of id and, when file is set, its media URL.
// The previous media object is left in storage.
func (r *Repository) Update(ctx context.Context, id string, fields models.GalleryFields, file *media.Upload) (*models.GalleryItem, error) {
	const op = "gallery.Update"

	if strings.TrimSpace(id) == "" {
		return nil, apperrors.Invalid(op, "id is required")
	}
	fields = normalize(fields)
	if err := r.validateFields(op, fields); err != nil {
		return nil, err
	}
	if file != nil {
		if err := validateFile(op, file); err != nil {
			return nil, err
		}
	}

	current, err := r.records.GetGalleryItem(ctx, id)
	if err != nil {
		return nil, apperrors.FromBackend(op, err)
	}

	patch := db.GalleryPatch{
		Title:       fields.Title,
		Location:    fields.Location,
		Description: fields.Description,
		Updated:     r.now(),
	}
	if file != nil {
		if patch.Image, err = r.upload(ctx, op, file); err != nil {
			return nil, err
		}
	}

	if err := r.records.UpdateGalleryItem(ctx, id, patch); err != nil {
		return nil, apperrors.FromBackend(op, err)
	}

	updated := *current
	updated.ID = id
	updated.Title = patch.Title
	updated.Location = patch.Location
	updated.Description = patch.Description
	updated.Updated = patch.Updated
	if patch.Image != "" {
		updated.Image = patch.Image
	}
	updated.Kind = media.ClassifyKind(updated.Image)

	r.audit.Log(audit.FromContext(ctx, ActionUpdate, map[string]interface{}{
		"itemId":      id,
		"title":       fields.Title,
		"location":    string(fields.Location),
		"fileChanged": file != nil,
	}))
	r.logger.Info("gallery item updated", zap.String("op", op), zap.String("id", id), zap.Bool("file_changed", file != nil))

	return &updated, nil
}

// Delete removes the record of id. It reports false on any failure,
// including a missing id; the media object is never deleted.
func (r *Repository) Delete(ctx context.Context, id string) bool {
	return r.Remove(ctx, id) == nil
}

// Remove is Delete with the classified failure.
func (r *Repository) Remove(ctx context.Context, id string) error {
	const op = "gallery.Delete"

	if strings.TrimSpace(id) == "" {
		return apperrors.Invalid(op, "id is required")
	}

	current, err := r.records.GetGalleryItem(ctx, id)
	if err != nil {
		r.logger.Warn("gallery delete lookup failed", zap.String("op", op), zap.String("id", id), zap.Error(err))
		return apperrors.FromBackend(op, err)
	}

	if err := r.records.DeleteGalleryItem(ctx, id); err != nil {
		r.logger.Warn("gallery delete failed",
			zap.String("op", op),
			zap.String("id", id),
			zap.String("kind", string(apperrors.KindOf(err))),
			zap.Error(err))
		return apperrors.FromBackend(op, err)
	}

	r.audit.Log(audit.FromContext(ctx, ActionDelete, map[string]interface{}{
		"itemId":   id,
		"title":    current.Title,
		"location": string(current.Location),
	}))
	r.logger.Info("gallery item deleted", zap.String("op", op), zap.String("id", id))
	return nil
}

func (r *Repository) upload(ctx context.Context, op string, file *media.Upload) (string, error) {
	url, err := r.media.Upload(ctx, *file)
	if err != nil {
		r.logger.Warn("media upload failed", zap.String("op", op), zap.String("file", file.Name), zap.Error(err))
		return "", uploadFailed(op, err)
	}
	if !strings.HasPrefix(url, "https://") && !strings.HasPrefix(url, "http://") {
		return "", uploadFailed(op, fmt.Errorf("storage returned a non URL reference %q", url))
	}
	return url, nil
}

func (r *Repository) validateFields(op string, fields models.GalleryFields) error {
	if err := r.validate.Struct(fields); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			return apperrors.Invalid(op, "%s is required", strings.ToLower(verrs[0].Field()))
		}
		return apperrors.Invalid(op, "invalid fields: %v", err)
	}
	if !fields.Location.Valid() {
		return apperrors.Invalid(op, "unknown location %q", fields.Location)
	}
	return nil
}

func validateFile(op string, file *media.Upload) error {
	if file == nil || file.Body == nil {
		return apperrors.Invalid(op, "file is required")
	}
	return nil
}

func normalize(fields models.GalleryFields) models.GalleryFields {
	fields.Title = strings.TrimSpace(fields.Title)
	fields.Location = models.Location(strings.TrimSpace(string(fields.Location)))
	fields.Description = strings.TrimSpace(fields.Description)
	return fields
}

func uploadFailed(op string, err error) error {
	kind := apperrors.KindOf(apperrors.FromBackend(op, err))
	if !errors.Is(err, apperrors.ErrUploadFailed) {
		err = errors.Join(apperrors.ErrUploadFailed, err)
	}
	return apperrors.New(kind, op, err)
}
