package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"excursion/apperrors"
	"excursion/gallery"
	"excursion/media"
	"excursion/models"
	"excursion/state"
)

// User-facing gallery messages.
const (
	msgFieldsRequired   = "Tous les champs sont obligatoires."
	msgUploadPermission = "Permission refusée. Vérifiez les règles de sécurité Firebase."
	msgUploadNetwork    = "Erreur réseau. Réessayez avec un fichier plus petit."
	msgUploadFailed     = "Erreur lors de l'upload."
	msgFileUploadFailed = "Erreur lors de l'upload du fichier"
	msgUpdateFailed     = "Erreur lors de la mise à jour."
	msgDeleteFailed     = "Erreur lors de la suppression."
	msgDeletePermission = "Permission refusée."
	msgItemNotFound     = "Élément introuvable."
)

// multipartMemory is the part of an upload kept in memory; the rest spills to disk.
const multipartMemory = 8 << 20

// GalleryService is the gallery repository as seen by HTTP.
type GalleryService interface {
	List(ctx context.Context) []models.GalleryItem
	Create(ctx context.Context, fields models.GalleryFields, file *media.Upload) (*models.GalleryItem, error)
	Update(ctx context.Context, id string, fields models.GalleryFields, file *media.Upload) (*models.GalleryItem, error)
	Remove(ctx context.Context, id string) error
}

type GalleryHandler struct {
	gallery   GalleryService
	maxUpload int64
	logger    *zap.Logger
}

func NewGalleryHandler(service GalleryService, maxUpload int64, logger *zap.Logger) *GalleryHandler {
	return &GalleryHandler{
		gallery:   service,
		maxUpload: maxUpload,
		logger:    logger,
	}
}

// List serves the public gallery, optionally filtered by ?category=.
func (h *GalleryHandler) List(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodGet) {
		return
	}
	items := gallery.Filter(h.gallery.List(r.Context()), r.URL.Query().Get("category"), true)
	writeJSON(w, http.StatusOK, items)
}

type categoriesResponse struct {
	Public    []string          `json:"public"`
	Admin     []string          `json:"admin"`
	Locations []models.Location `json:"locations"`
}

// Categories lists the filter categories and the accepted locations.
func (h *GalleryHandler) Categories(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodGet) {
		return
	}
	writeJSON(w, http.StatusOK, categoriesResponse{
		Public:    gallery.PublicCategories,
		Admin:     gallery.AdminCategories,
		Locations: models.Locations,
	})
}

// AdminList serves the admin media list.
func (h *GalleryHandler) AdminList(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodGet) {
		return
	}
	items := gallery.Filter(h.gallery.List(r.Context()), r.URL.Query().Get("category"), false)
	writeJSON(w, http.StatusOK, state.NewSuccess(items))
}

// Create handles the multipart upload form.
func (h *GalleryHandler) Create(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodPost) {
		return
	}

	fields, file, release, err := h.parseForm(w, r)
	if err != nil {
		writeFailure[models.GalleryItem](w, err, createMessage(err))
		return
	}
	defer release()

	item, err := h.gallery.Create(r.Context(), fields, file)
	if err != nil {
		writeFailure[models.GalleryItem](w, err, createMessage(err))
		return
	}
	writeJSON(w, http.StatusCreated, state.NewSuccess(*item))
}

// Update handles the edit form of ?id=. The file is optional.
func (h *GalleryHandler) Update(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodPut) {
		return
	}
	id := strings.TrimSpace(r.URL.Query().Get("id"))
	if id == "" {
		writeFailure[models.GalleryItem](w, apperrors.Invalid("gallery.Update", "id is required"), msgFieldsRequired)
		return
	}

	fields, file, release, err := h.parseForm(w, r)
	if err != nil {
		writeFailure[models.GalleryItem](w, err, updateMessage(err))
		return
	}
	defer release()

	item, err := h.gallery.Update(r.Context(), id, fields, file)
	if err != nil {
		writeFailure[models.GalleryItem](w, err, updateMessage(err))
		return
	}
	writeJSON(w, http.StatusOK, state.NewSuccess(*item))
}

// Delete removes the record of ?id=.
func (h *GalleryHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodDelete) {
		return
	}
	id := strings.TrimSpace(r.URL.Query().Get("id"))

	if err := h.gallery.Remove(r.Context(), id); err != nil {
		writeFailure[bool](w, err, deleteMessage(err))
		return
	}
	writeJSON(w, http.StatusOK, state.NewSuccess(true))
}

// parseForm reads title, location, description and the optional image part.
// The whole form is buffered in memory or temporary files; release closes
// the image part and must be called once the upload is consumed.
func (h *GalleryHandler) parseForm(w http.ResponseWriter, r *http.Request) (models.GalleryFields, *media.Upload, func(), error) {
	const op = "gallery.parseForm"
	var fields models.GalleryFields

	if r.ContentLength > h.maxUpload {
		return fields, nil, noRelease, apperrors.New(apperrors.QuotaOrSizeExceeded, op,
			fmt.Errorf("request of %d bytes exceeds %d", r.ContentLength, h.maxUpload))
	}
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUpload)

	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return fields, nil, noRelease, apperrors.New(apperrors.QuotaOrSizeExceeded, op, err)
		}
		return fields, nil, noRelease, apperrors.New(apperrors.InvalidInput, op, err)
	}

	fields = models.GalleryFields{
		Title:       r.FormValue("title"),
		Location:    models.Location(r.FormValue("location")),
		Description: r.FormValue("description"),
	}

	part, header, err := r.FormFile("image")
	if errors.Is(err, http.ErrMissingFile) {
		return fields, nil, noRelease, nil
	}
	if err != nil {
		return fields, nil, noRelease, apperrors.New(apperrors.InvalidInput, op, err)
	}

	h.logger.Debug("received gallery file",
		zap.String("op", op),
		zap.String("file", header.Filename),
		zap.Int64("size", header.Size))

	return fields, &media.Upload{
		Name:        header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Size:        header.Size,
		Body:        part,
	}, func() { _ = part.Close() }, nil
}

func noRelease() {}

func createMessage(err error) string {
	switch apperrors.KindOf(err) {
	case apperrors.InvalidInput:
		return msgFieldsRequired
	case apperrors.PermissionDenied:
		return msgUploadPermission
	case apperrors.NetworkError, apperrors.QuotaOrSizeExceeded:
		return msgUploadNetwork
	default:
		return msgUploadFailed
	}
}

func updateMessage(err error) string {
	switch {
	case apperrors.Is(err, apperrors.InvalidInput):
		return msgFieldsRequired
	case apperrors.Is(err, apperrors.NotFound):
		return msgItemNotFound
	case errors.Is(err, apperrors.ErrUploadFailed):
		return msgFileUploadFailed
	default:
		return msgUpdateFailed
	}
}

func deleteMessage(err error) string {
	switch apperrors.KindOf(err) {
	case apperrors.PermissionDenied:
		return msgDeletePermission
	case apperrors.NotFound:
		return msgItemNotFound
	default:
		return msgDeleteFailed
	}
}
