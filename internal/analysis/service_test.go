// AngelaMos | 2026
// service_test.go

package analysis_test

import (
	"context"
	"io"
	"log/slog"
	"mime/multipart"
	"net/textproto"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/angelamos/socialfinance/internal/analysis"
	"github.com/angelamos/socialfinance/internal/config"
	"github.com/angelamos/socialfinance/internal/core"
)

type mockRepo struct {
	mock.Mock
}

func (m *mockRepo) Create(ctx context.Context, a *analysis.Analysis) error {
	args := m.Called(ctx, a)
	return args.Error(0)
}

func (m *mockRepo) GetByID(ctx context.Context, id string) (*analysis.Analysis, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*analysis.Analysis), args.Error(1)
}

func (m *mockRepo) Update(ctx context.Context, a *analysis.Analysis) error {
	args := m.Called(ctx, a)
	return args.Error(0)
}

func (m *mockRepo) Delete(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *mockRepo) List(ctx context.Context, params analysis.ListAnalysesParams) ([]analysis.Analysis, int, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, 0, args.Error(2)
	}
	return args.Get(0).([]analysis.Analysis), args.Int(1), args.Error(2)
}

func (m *mockRepo) ReplaceTags(ctx context.Context, analysisID string, tags []string) error {
	args := m.Called(ctx, analysisID, tags)
	return args.Error(0)
}

func (m *mockRepo) AddImage(ctx context.Context, image *analysis.Image) error {
	args := m.Called(ctx, image)
	return args.Error(0)
}

func (m *mockRepo) CountImages(ctx context.Context, analysisID string) (int, error) {
	args := m.Called(ctx, analysisID)
	return args.Int(0), args.Error(1)
}

func (m *mockRepo) ListImages(ctx context.Context, analysisID string) ([]analysis.Image, error) {
	args := m.Called(ctx, analysisID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]analysis.Image), args.Error(1)
}

func (m *mockRepo) CountAll(ctx context.Context) (int, error) {
	args := m.Called(ctx)
	return args.Int(0), args.Error(1)
}

type mockAccess struct {
	mock.Mock
}

func (m *mockAccess) CanAccess(ctx context.Context, viewerID, creatorID string) (bool, error) {
	args := m.Called(ctx, viewerID, creatorID)
	return args.Bool(0), args.Error(1)
}

const (
	authorID = "aaaaaaaa-aaaa-4aaa-8aaa-aaaaaaaaaaaa"
	viewerID = "bbbbbbbb-bbbb-4bbb-8bbb-bbbbbbbbbbbb"
)

func newTestService(t *testing.T) (*analysis.Service, *mockRepo, *mockAccess) {
	t.Helper()

	repo := &mockRepo{}
	access := &mockAccess{}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	uploads := config.UploadConfig{Dir: t.TempDir(), MaxBytes: 1024}

	svc := analysis.NewService(repo, access, uploads, logger)
	return svc, repo, access
}

func gated(id string) *analysis.Analysis {
	return &analysis.Analysis{
		ID:            id,
		AuthorID:      authorID,
		Title:         "NVDA to 200",
		Content:       "thesis",
		SuccessStatus: analysis.StatusPending,
	}
}

func TestGet_AuthorAlwaysAllowed(t *testing.T) {
	svc, repo, access := newTestService(t)

	repo.On("GetByID", mock.Anything, "a-1").Return(gated("a-1"), nil)

	got, err := svc.Get(context.Background(), authorID, "a-1")

	require.NoError(t, err)
	assert.Equal(t, "a-1", got.ID)
	access.AssertNotCalled(t, "CanAccess", mock.Anything, mock.Anything, mock.Anything)
}

func TestGet_AnonymousAllowed(t *testing.T) {
	svc, repo, access := newTestService(t)

	repo.On("GetByID", mock.Anything, "a-1").Return(gated("a-1"), nil)

	_, err := svc.Get(context.Background(), "", "a-1")

	require.NoError(t, err)
	access.AssertNotCalled(t, "CanAccess", mock.Anything, mock.Anything, mock.Anything)
}

func TestGet_NonSubscriberForbidden(t *testing.T) {
	svc, repo, access := newTestService(t)

	repo.On("GetByID", mock.Anything, "a-1").Return(gated("a-1"), nil)
	access.On("CanAccess", mock.Anything, viewerID, authorID).Return(false, nil)

	_, err := svc.Get(context.Background(), viewerID, "a-1")

	require.ErrorIs(t, err, core.ErrForbidden)
}

func TestGet_SubscriberAllowed(t *testing.T) {
	svc, repo, access := newTestService(t)

	repo.On("GetByID", mock.Anything, "a-1").Return(gated("a-1"), nil)
	access.On("CanAccess", mock.Anything, viewerID, authorID).Return(true, nil)

	_, err := svc.Get(context.Background(), viewerID, "a-1")

	require.NoError(t, err)
}

func TestUpdate_NonAuthorForbidden(t *testing.T) {
	svc, repo, _ := newTestService(t)

	repo.On("GetByID", mock.Anything, "a-1").Return(gated("a-1"), nil)

	title := "new title"
	_, err := svc.Update(context.Background(), viewerID, "a-1",
		analysis.UpdateAnalysisRequest{Title: &title})

	require.ErrorIs(t, err, core.ErrForbidden)
	repo.AssertNotCalled(t, "Update", mock.Anything, mock.Anything)
}

func TestUpdate_PartialFieldsMerged(t *testing.T) {
	svc, repo, _ := newTestService(t)

	existing := gated("a-1")
	existing.TickerSymbol = strPtr("NVDA")

	repo.On("GetByID", mock.Anything, "a-1").Return(existing, nil)

	status := analysis.StatusSuccess
	repo.On("Update", mock.Anything, mock.MatchedBy(func(a *analysis.Analysis) bool {
		// Untouched fields survive; only success_status changes.
		return a.Title == "NVDA to 200" &&
			a.TickerSymbol != nil && *a.TickerSymbol == "NVDA" &&
			a.SuccessStatus == analysis.StatusSuccess
	})).Return(nil)

	_, err := svc.Update(context.Background(), authorID, "a-1",
		analysis.UpdateAnalysisRequest{SuccessStatus: &status})

	require.NoError(t, err)
	repo.AssertExpectations(t)
}

func TestDelete_NonAuthorForbidden(t *testing.T) {
	svc, repo, _ := newTestService(t)

	repo.On("GetByID", mock.Anything, "a-1").Return(gated("a-1"), nil)

	err := svc.Delete(context.Background(), viewerID, "a-1")

	require.ErrorIs(t, err, core.ErrForbidden)
	repo.AssertNotCalled(t, "Delete", mock.Anything, mock.Anything)
}

type fakeFile struct {
	*strings.Reader
}

func (fakeFile) Close() error { return nil }

func imageHeader(filename, contentType string, size int64) *multipart.FileHeader {
	return &multipart.FileHeader{
		Filename: filename,
		Size:     size,
		Header: textproto.MIMEHeader{
			"Content-Type": []string{contentType},
		},
	}
}

func TestAddImage_LimitReached(t *testing.T) {
	svc, repo, _ := newTestService(t)

	repo.On("GetByID", mock.Anything, "a-1").Return(gated("a-1"), nil)
	repo.On("CountImages", mock.Anything, "a-1").Return(5, nil)

	_, err := svc.AddImage(context.Background(), authorID, "a-1",
		fakeFile{strings.NewReader("x")},
		imageHeader("chart.png", "image/png", 1))

	require.ErrorIs(t, err, core.ErrInvalidState)
}

func TestAddImage_RejectsNonImage(t *testing.T) {
	svc, repo, _ := newTestService(t)

	repo.On("GetByID", mock.Anything, "a-1").Return(gated("a-1"), nil)
	repo.On("CountImages", mock.Anything, "a-1").Return(0, nil)

	_, err := svc.AddImage(context.Background(), authorID, "a-1",
		fakeFile{strings.NewReader("not an image")},
		imageHeader("notes.txt", "text/plain", 12))

	require.ErrorIs(t, err, core.ErrInvalidInput)
}

func TestAddImage_RejectsOversized(t *testing.T) {
	svc, repo, _ := newTestService(t)

	repo.On("GetByID", mock.Anything, "a-1").Return(gated("a-1"), nil)
	repo.On("CountImages", mock.Anything, "a-1").Return(0, nil)

	_, err := svc.AddImage(context.Background(), authorID, "a-1",
		fakeFile{strings.NewReader("x")},
		imageHeader("huge.png", "image/png", 10<<20))

	require.ErrorIs(t, err, core.ErrInvalidInput)
}

func TestAddImage_WritesFileAndRecord(t *testing.T) {
	svc, repo, _ := newTestService(t)

	repo.On("GetByID", mock.Anything, "a-1").Return(gated("a-1"), nil)
	repo.On("CountImages", mock.Anything, "a-1").Return(1, nil)
	repo.On("AddImage", mock.Anything, mock.MatchedBy(func(img *analysis.Image) bool {
		return img.AnalysisID == "a-1" &&
			img.Filename == "chart.png" &&
			strings.HasSuffix(img.FilePath, "a-1_chart.png")
	})).Return(nil)

	image, err := svc.AddImage(context.Background(), authorID, "a-1",
		fakeFile{strings.NewReader("png-bytes")},
		imageHeader("chart.png", "image/png", 9))

	require.NoError(t, err)

	data, err := os.ReadFile(image.FilePath)
	require.NoError(t, err)
	assert.Equal(t, "png-bytes", string(data))
	assert.Equal(t, "a-1_chart.png", filepath.Base(image.FilePath))
}

func strPtr(s string) *string {
	return &s
}
