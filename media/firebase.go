package media

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"

	"cloud.google.com/go/storage"
	firebase "firebase.google.com/go"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"excursion/apperrors"
)

// downloadTokenKey is the object metadata key Firebase reads download tokens from.
const downloadTokenKey = "firebaseStorageDownloadTokens"

// ObjectWriter opens a writer for a new object in the bucket. Close commits
// the object; cancelling ctx abandons it.
type ObjectWriter interface {
	NewWriter(ctx context.Context, name, contentType string, metadata map[string]string) io.WriteCloser
	BucketName() string
}

// FirebaseStore uploads gallery media to the project's Firebase Storage bucket.
type FirebaseStore struct {
	bucket ObjectWriter
	namer  *Namer
	logger *zap.Logger
}

func NewFirebaseStore(bucket ObjectWriter, namer *Namer, logger *zap.Logger) *FirebaseStore {
	if namer == nil {
		namer = NewNamer(nil)
	}
	return &FirebaseStore{bucket: bucket, namer: namer, logger: logger}
}

// Upload writes the file under gallery/ and returns its Firebase download URL.
func (s *FirebaseStore) Upload(ctx context.Context, file Upload) (string, error) {
	const op = "media.Upload"

	name := s.namer.Next(file.Name)
	token := uuid.NewString()

	writeCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	w := s.bucket.NewWriter(writeCtx, name, file.ContentType, map[string]string{downloadTokenKey: token})
	if _, err := io.Copy(w, file.Body); err != nil {
		cancel()
		s.logger.Warn("media upload abandoned", zap.String("op", op), zap.String("object", name), zap.Error(err))
		return "", storageError(op, err)
	}
	if err := w.Close(); err != nil {
		return "", storageError(op, err)
	}

	s.logger.Info("media uploaded",
		zap.String("op", op),
		zap.String("object", name),
		zap.Int64("size", file.Size))

	return DownloadURL(s.bucket.BucketName(), name, token), nil
}

// DownloadURL builds the tokenised public URL Firebase serves an object from.
func DownloadURL(bucket, object, token string) string {
	return fmt.Sprintf("https://firebasestorage.googleapis.com/v0/b/%s/o/%s?alt=media&token=%s",
		bucket, url.PathEscape(object), token)
}

func storageError(op string, err error) error {
	classified := apperrors.FromBackend(op, err)
	return apperrors.New(apperrors.KindOf(classified), op, errors.Join(apperrors.ErrUploadFailed, err))
}

// GCSBucket adapts a Cloud Storage bucket handle to ObjectWriter.
type GCSBucket struct {
	Handle *storage.BucketHandle
	Name   string
}

func (b GCSBucket) NewWriter(ctx context.Context, name, contentType string, metadata map[string]string) io.WriteCloser {
	w := b.Handle.Object(name).NewWriter(ctx)
	w.ContentType = contentType
	w.Metadata = metadata
	return w
}

func (b GCSBucket) BucketName() string {
	return b.Name
}

// OpenBucket resolves the gallery bucket of the Firebase app. An empty name
// selects the app's default bucket.
func OpenBucket(ctx context.Context, app *firebase.App, name string) (GCSBucket, error) {
	client, err := app.Storage(ctx)
	if err != nil {
		return GCSBucket{}, fmt.Errorf("error initializing Storage client: %w", err)
	}

	var handle *storage.BucketHandle
	if name == "" {
		handle, err = client.DefaultBucket()
	} else {
		handle, err = client.Bucket(name)
	}
	if err != nil {
		return GCSBucket{}, fmt.Errorf("error opening bucket %q: %w", name, err)
	}
	return GCSBucket{Handle: handle, Name: handle.BucketName()}, nil
}
