package gallery

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"excursion/apperrors"
	"excursion/audit"
	"excursion/db"
	"excursion/media"
	"excursion/models"
)

type MockRecordStore struct {
	mock.Mock
}

func (m *MockRecordStore) ListGallery(ctx context.Context) ([]models.GalleryItem, error) {
	args := m.Called(ctx)
	items, _ := args.Get(0).([]models.GalleryItem)
	return items, args.Error(1)
}

func (m *MockRecordStore) CreateGalleryItem(ctx context.Context, item *models.GalleryItem) (string, error) {
	args := m.Called(ctx, item)
	return args.String(0), args.Error(1)
}

func (m *MockRecordStore) GetGalleryItem(ctx context.Context, id string) (*models.GalleryItem, error) {
	args := m.Called(ctx, id)
	item, _ := args.Get(0).(*models.GalleryItem)
	return item, args.Error(1)
}

func (m *MockRecordStore) UpdateGalleryItem(ctx context.Context, id string, patch db.GalleryPatch) error {
	args := m.Called(ctx, id, patch)
	return args.Error(0)
}

func (m *MockRecordStore) DeleteGalleryItem(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

type MockMediaStore struct {
	mock.Mock
}

func (m *MockMediaStore) Upload(ctx context.Context, file media.Upload) (string, error) {
	args := m.Called(ctx, file)
	return args.String(0), args.Error(1)
}

type recordingSink struct {
	mu     sync.Mutex
	events []audit.Event
}

func (s *recordingSink) Log(event audit.Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event)
}

var fixedNow = time.Date(2025, time.March, 10, 12, 0, 0, 0, time.UTC)

func newTestRepository() (*Repository, *MockRecordStore, *MockMediaStore, *recordingSink) {
	records := &MockRecordStore{}
	store := &MockMediaStore{}
	sink := &recordingSink{}
	repo := NewRepository(records, store, sink, zap.NewNop())
	repo.now = func() time.Time { return fixedNow }
	return repo, records, store, sink
}

func upload(name string) *media.Upload {
	return &media.Upload{Name: name, ContentType: "image/jpeg", Size: 3, Body: strings.NewReader("abc")}
}

func adminContext() context.Context {
	ctx := audit.WithActor(context.Background(), &models.AdminUser{UserID: "uid", Email: "admin@example.com"})
	return audit.WithClientIP(ctx, "203.0.113.5")
}

func TestList_SortsNewestFirst(t *testing.T) {
	repo, records, _, _ := newTestRepository()
	records.On("ListGallery", mock.Anything).Return([]models.GalleryItem{
		{ID: "old", Created: fixedNow.Add(-2 * time.Hour), Image: "https://x/a.jpg"},
		{ID: "new", Created: fixedNow, Image: "https://x/b.mp4"},
		{ID: "mid", Created: fixedNow.Add(-time.Hour), Image: "https://x/c.png"},
	}, nil)

	items := repo.List(context.Background())

	require.Len(t, items, 3)
	assert.Equal(t, []string{"new", "mid", "old"}, []string{items[0].ID, items[1].ID, items[2].ID})
	assert.Equal(t, models.MediaVideo, items[0].Kind)
	assert.Equal(t, models.MediaImage, items[1].Kind)
}

func TestList_FallsBackToSamples(t *testing.T) {
	repo, records, _, _ := newTestRepository()
	records.On("ListGallery", mock.Anything).Return(nil, status.Error(codes.Unavailable, "offline"))

	items := repo.List(context.Background())

	assert.NotEmpty(t, items)
	assert.Equal(t, Samples(), items)
	for i := 1; i < len(items); i++ {
		assert.True(t, items[i-1].Created.After(items[i].Created))
	}
}

func TestList_OfflineBackend(t *testing.T) {
	repo := NewRepository(db.Offline{}, nil, nil, zap.NewNop())
	assert.Equal(t, Samples(), repo.List(context.Background()))
}

func TestCreate_MissingInputMakesNoCalls(t *testing.T) {
	cases := map[string]struct {
		fields models.GalleryFields
		file   *media.Upload
	}{
		"title":    {models.GalleryFields{Location: models.LocationFathala}, upload("a.jpg")},
		"location": {models.GalleryFields{Title: "Lions"}, upload("a.jpg")},
		"file":     {models.GalleryFields{Title: "Lions", Location: models.LocationFathala}, nil},
		"blank":    {models.GalleryFields{Title: "   ", Location: models.LocationFathala}, upload("a.jpg")},
		"unknown":  {models.GalleryFields{Title: "Lions", Location: "Paris"}, upload("a.jpg")},
	}

	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			repo, records, store, sink := newTestRepository()

			item, err := repo.Create(adminContext(), tc.fields, tc.file)

			assert.Nil(t, item)
			assert.True(t, apperrors.Is(err, apperrors.InvalidInput), "got %v", err)
			records.AssertNotCalled(t, "CreateGalleryItem", mock.Anything, mock.Anything)
			store.AssertNotCalled(t, "Upload", mock.Anything, mock.Anything)
			assert.Empty(t, sink.events)
		})
	}
}

func TestCreate_UploadsThenPersists(t *testing.T) {
	repo, records, store, sink := newTestRepository()
	const url = "https://firebasestorage.googleapis.com/v0/b/demo/o/gallery%2F1_a.jpg?alt=media&token=t"

	store.On("Upload", mock.Anything, mock.MatchedBy(func(u media.Upload) bool { return u.Name == "a.jpg" })).
		Return(url, nil).Once()
	records.On("CreateGalleryItem", mock.Anything, mock.MatchedBy(func(item *models.GalleryItem) bool {
		return item.Image == url && item.Created.Equal(fixedNow) && item.Updated.Equal(fixedNow) && item.Title == "Pirogue"
	})).Return("doc-1", nil).Once()

	item, err := repo.Create(adminContext(), models.GalleryFields{
		Title:       " Pirogue ",
		Location:    models.LocationSineSaloum,
		Description: "Balade",
	}, upload("a.jpg"))

	require.NoError(t, err)
	assert.Equal(t, "doc-1", item.ID)
	assert.Equal(t, "Pirogue", item.Title)
	assert.Equal(t, url, item.Image)
	assert.Equal(t, models.MediaImage, item.Kind)
	store.AssertExpectations(t)
	records.AssertExpectations(t)

	require.Len(t, sink.events, 1)
	assert.Equal(t, ActionUpload, sink.events[0].Action)
	assert.Equal(t, "admin@example.com", sink.events[0].Actor.Email)
	assert.Equal(t, "203.0.113.5", sink.events[0].ClientIP)
	assert.Equal(t, "a.jpg", sink.events[0].Details["fileName"])
}

func TestCreate_ThenListIncludesItem(t *testing.T) {
	repo, records, store, _ := newTestRepository()
	var saved models.GalleryItem

	store.On("Upload", mock.Anything, mock.Anything).Return("https://cdn.example/gallery/1_a.jpg", nil)
	records.On("CreateGalleryItem", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) { saved = *args.Get(1).(*models.GalleryItem) }).
		Return("doc-9", nil)

	_, err := repo.Create(adminContext(), models.GalleryFields{Title: "Gorée", Location: models.LocationDakarGoree}, upload("a.jpg"))
	require.NoError(t, err)

	saved.ID = "doc-9"
	records.On("ListGallery", mock.Anything).Return([]models.GalleryItem{saved}, nil)

	items := repo.List(context.Background())
	require.Len(t, items, 1)
	assert.Equal(t, "Gorée", items[0].Title)
	assert.Equal(t, models.LocationDakarGoree, items[0].Location)
	assert.NotEmpty(t, items[0].Image)
}

func TestCreate_UploadFailure(t *testing.T) {
	repo, records, store, sink := newTestRepository()
	store.On("Upload", mock.Anything, mock.Anything).
		Return("", apperrors.New(apperrors.PermissionDenied, "media.Upload", errors.Join(apperrors.ErrUploadFailed, errors.New("403"))))

	_, err := repo.Create(adminContext(), models.GalleryFields{Title: "t", Location: models.LocationOther}, upload("a.jpg"))

	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrUploadFailed)
	assert.Equal(t, apperrors.PermissionDenied, apperrors.KindOf(err))
	records.AssertNotCalled(t, "CreateGalleryItem", mock.Anything, mock.Anything)
	assert.Empty(t, sink.events)
}

func TestCreate_RecordFailureAfterUpload(t *testing.T) {
	repo, records, store, sink := newTestRepository()
	store.On("Upload", mock.Anything, mock.Anything).Return("https://cdn.example/x.jpg", nil)
	records.On("CreateGalleryItem", mock.Anything, mock.Anything).
		Return("", apperrors.FromBackend("db", status.Error(codes.ResourceExhausted, "quota")))

	_, err := repo.Create(adminContext(), models.GalleryFields{Title: "t", Location: models.LocationOther}, upload("a.jpg"))

	assert.ErrorIs(t, err, apperrors.ErrUploadFailed)
	assert.Equal(t, apperrors.QuotaOrSizeExceeded, apperrors.KindOf(err))
	assert.Empty(t, sink.events)
}

func TestCreate_RejectsBareFilename(t *testing.T) {
	repo, records, store, _ := newTestRepository()
	store.On("Upload", mock.Anything, mock.Anything).Return("1_a.jpg", nil)

	_, err := repo.Create(adminContext(), models.GalleryFields{Title: "t", Location: models.LocationOther}, upload("a.jpg"))

	assert.ErrorIs(t, err, apperrors.ErrUploadFailed)
	records.AssertNotCalled(t, "CreateGalleryItem", mock.Anything, mock.Anything)
}

func TestUpdate_WithoutFileKeepsImage(t *testing.T) {
	repo, records, store, sink := newTestRepository()
	created := fixedNow.Add(-48 * time.Hour)
	records.On("GetGalleryItem", mock.Anything, "doc-1").Return(&models.GalleryItem{
		ID: "doc-1", Title: "Old", Location: models.LocationFathala, Image: "https://cdn.example/old.jpg", Created: created,
	}, nil)
	records.On("UpdateGalleryItem", mock.Anything, "doc-1", db.GalleryPatch{
		Title: "New", Location: models.LocationBandia, Description: "d", Updated: fixedNow,
	}).Return(nil)

	item, err := repo.Update(adminContext(), "doc-1", models.GalleryFields{Title: "New", Location: models.LocationBandia, Description: "d"}, nil)

	require.NoError(t, err)
	assert.Equal(t, "https://cdn.example/old.jpg", item.Image)
	assert.Equal(t, created, item.Created)
	assert.Equal(t, fixedNow, item.Updated)
	store.AssertNotCalled(t, "Upload", mock.Anything, mock.Anything)
	require.Len(t, sink.events, 1)
	assert.Equal(t, false, sink.events[0].Details["fileChanged"])
}

func TestUpdate_WithFileOverwritesImage(t *testing.T) {
	repo, records, store, sink := newTestRepository()
	records.On("GetGalleryItem", mock.Anything, "doc-1").Return(&models.GalleryItem{
		ID: "doc-1", Image: "https://cdn.example/old.jpg", Created: fixedNow,
	}, nil)
	store.On("Upload", mock.Anything, mock.Anything).Return("https://cdn.example/new.mp4", nil)
	records.On("UpdateGalleryItem", mock.Anything, "doc-1", mock.MatchedBy(func(p db.GalleryPatch) bool {
		return p.Image == "https://cdn.example/new.mp4"
	})).Return(nil)

	item, err := repo.Update(adminContext(), "doc-1", models.GalleryFields{Title: "T", Location: models.LocationOther}, upload("new.mp4"))

	require.NoError(t, err)
	assert.Equal(t, "https://cdn.example/new.mp4", item.Image)
	assert.Equal(t, models.MediaVideo, item.Kind)
	assert.Equal(t, true, sink.events[0].Details["fileChanged"])
}

func TestUpdate_NotFound(t *testing.T) {
	repo, records, store, _ := newTestRepository()
	records.On("GetGalleryItem", mock.Anything, "missing").Return(nil, status.Error(codes.NotFound, "no doc"))

	_, err := repo.Update(adminContext(), "missing", models.GalleryFields{Title: "T", Location: models.LocationOther}, upload("a.jpg"))

	assert.Equal(t, apperrors.NotFound, apperrors.KindOf(err))
	store.AssertNotCalled(t, "Upload", mock.Anything, mock.Anything)
	records.AssertNotCalled(t, "UpdateGalleryItem", mock.Anything, mock.Anything, mock.Anything)
}

func TestUpdate_UploadFailure(t *testing.T) {
	repo, records, store, _ := newTestRepository()
	records.On("GetGalleryItem", mock.Anything, "doc-1").Return(&models.GalleryItem{ID: "doc-1"}, nil)
	store.On("Upload", mock.Anything, mock.Anything).Return("", errors.New("network down"))

	_, err := repo.Update(adminContext(), "doc-1", models.GalleryFields{Title: "T", Location: models.LocationOther}, upload("a.jpg"))

	assert.ErrorIs(t, err, apperrors.ErrUploadFailed)
	records.AssertNotCalled(t, "UpdateGalleryItem", mock.Anything, mock.Anything, mock.Anything)
}

func TestDelete(t *testing.T) {
	repo, records, _, sink := newTestRepository()
	records.On("GetGalleryItem", mock.Anything, "doc-1").Return(&models.GalleryItem{ID: "doc-1", Title: "Lions", Location: models.LocationFathala}, nil)
	records.On("DeleteGalleryItem", mock.Anything, "doc-1").Return(nil)

	assert.True(t, repo.Delete(adminContext(), "doc-1"))
	require.Len(t, sink.events, 1)
	assert.Equal(t, ActionDelete, sink.events[0].Action)
	assert.Equal(t, "Lions", sink.events[0].Details["title"])
}

func TestDelete_MissingReturnsFalse(t *testing.T) {
	repo, records, _, sink := newTestRepository()
	records.On("GetGalleryItem", mock.Anything, "nope").Return(nil, status.Error(codes.NotFound, "no doc"))

	assert.NotPanics(t, func() {
		assert.False(t, repo.Delete(adminContext(), "nope"))
	})
	assert.False(t, repo.Delete(adminContext(), ""))
	records.AssertNotCalled(t, "DeleteGalleryItem", mock.Anything, mock.Anything)
	assert.Empty(t, sink.events)
}

func TestDelete_PermissionDenied(t *testing.T) {
	repo, records, _, sink := newTestRepository()
	records.On("GetGalleryItem", mock.Anything, "doc-1").Return(&models.GalleryItem{ID: "doc-1"}, nil)
	records.On("DeleteGalleryItem", mock.Anything, "doc-1").Return(status.Error(codes.PermissionDenied, "rules"))

	assert.False(t, repo.Delete(adminContext(), "doc-1"))
	assert.Empty(t, sink.events)
}

func TestRemove_ClassifiesFailures(t *testing.T) {
	repo, records, _, _ := newTestRepository()
	records.On("GetGalleryItem", mock.Anything, "nope").Return(nil, status.Error(codes.NotFound, "no doc"))
	records.On("GetGalleryItem", mock.Anything, "doc-1").Return(&models.GalleryItem{ID: "doc-1"}, nil)
	records.On("DeleteGalleryItem", mock.Anything, "doc-1").Return(status.Error(codes.PermissionDenied, "rules"))

	assert.True(t, apperrors.Is(repo.Remove(adminContext(), "nope"), apperrors.NotFound))
	assert.True(t, apperrors.Is(repo.Remove(adminContext(), "doc-1"), apperrors.PermissionDenied))
	assert.True(t, apperrors.Is(repo.Remove(adminContext(), " "), apperrors.InvalidInput))
}
