package media

import (
	"context"
	"errors"
	"io"
	"net/url"
	"path"
	"strconv"
	"strings"
	"sync"
	"time"

	"excursion/apperrors"
	"excursion/models"
)

// Namespace is the object prefix every gallery upload is stored under.
const Namespace = "gallery/"

var videoExtensions = map[string]struct{}{
	"mp4":  {},
	"webm": {},
	"ogg":  {},
	"mov":  {},
	"avi":  {},
}

// Upload is a file received from the admin panel.
type Upload struct {
	Name        string
	ContentType string
	Size        int64
	Body        io.Reader
}

// Store persists uploads and returns a publicly dereferenceable URL.
type Store interface {
	Upload(ctx context.Context, file Upload) (string, error)
}

// ClassifyKind derives the media kind from the file extension only.
// Unknown or missing extensions are images.
func ClassifyKind(filename string) models.MediaKind {
	// Download URLs carry a query string after the object name.
	if u, err := url.Parse(filename); err == nil && u.IsAbs() && u.Host != "" {
		filename = u.Path
	}
	ext := strings.ToLower(strings.TrimPrefix(path.Ext(filename), "."))
	if _, ok := videoExtensions[ext]; ok {
		return models.MediaVideo
	}
	return models.MediaImage
}

// Namer produces object names of the form gallery/<millis>_<name>. The
// millisecond prefix strictly increases across calls on the same Namer.
type Namer struct {
	mu   sync.Mutex
	last int64
	now  func() time.Time
}

func NewNamer(now func() time.Time) *Namer {
	if now == nil {
		now = time.Now
	}
	return &Namer{now: now}
}

// Next returns a fresh object name for filename.
func (n *Namer) Next(filename string) string {
	n.mu.Lock()
	ms := n.now().UnixMilli()
	if ms <= n.last {
		ms = n.last + 1
	}
	n.last = ms
	n.mu.Unlock()

	return Namespace + strconv.FormatInt(ms, 10) + "_" + cleanName(filename)
}

func cleanName(filename string) string {
	filename = strings.ReplaceAll(filename, "\\", "/")
	base := path.Base(strings.TrimSpace(filename))
	if base == "." || base == "/" || base == "" {
		return "file"
	}
	return base
}

// ErrStorageUnconfigured is returned by Unavailable.
var ErrStorageUnconfigured = errors.New("firebase storage is not configured")

// Unavailable is the Store used when no Firebase project is configured.
type Unavailable struct{}

func (Unavailable) Upload(context.Context, Upload) (string, error) {
	return "", apperrors.New(apperrors.NetworkError, "media.Upload",
		errors.Join(apperrors.ErrUploadFailed, ErrStorageUnconfigured))
}
