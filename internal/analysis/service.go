// AngelaMos | 2026
// service.go

package analysis

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/angelamos/socialfinance/internal/config"
	"github.com/angelamos/socialfinance/internal/core"
)

const maxImagesPerAnalysis = 5

// AccessChecker decides whether a viewer may read content gated behind
// a creator's paid subscription.
type AccessChecker interface {
	CanAccess(ctx context.Context, viewerID, creatorID string) (bool, error)
}

type Service struct {
	repo    Repository
	access  AccessChecker
	uploads config.UploadConfig
	logger  *slog.Logger
}

func NewService(
	repo Repository,
	access AccessChecker,
	uploads config.UploadConfig,
	logger *slog.Logger,
) *Service {
	return &Service{
		repo:    repo,
		access:  access,
		uploads: uploads,
		logger:  logger,
	}
}

func (s *Service) Create(
	ctx context.Context,
	authorID string,
	req CreateAnalysisRequest,
) (*Analysis, error) {
	analysis := &Analysis{
		ID:            uuid.New().String(),
		AuthorID:      authorID,
		Title:         req.Title,
		Content:       req.Content,
		TickerSymbol:  normalizeTicker(req.TickerSymbol),
		TargetPrice:   req.TargetPrice,
		CurrentPrice:  req.CurrentPrice,
		TimeHorizon:   req.TimeHorizon,
		SuccessStatus: StatusPending,
	}

	if err := s.repo.Create(ctx, analysis); err != nil {
		return nil, err
	}

	if len(req.Tags) > 0 {
		if err := s.repo.ReplaceTags(ctx, analysis.ID, req.Tags); err != nil {
			return nil, err
		}
	}

	return s.repo.GetByID(ctx, analysis.ID)
}

// Get returns the analysis if viewerID is allowed to see it. Anonymous
// viewers and the author always pass; everyone else goes through the
// access checker.
func (s *Service) Get(
	ctx context.Context,
	viewerID, analysisID string,
) (*Analysis, error) {
	analysis, err := s.repo.GetByID(ctx, analysisID)
	if err != nil {
		return nil, err
	}

	if err := s.authorizeView(ctx, viewerID, analysis); err != nil {
		return nil, err
	}

	return analysis, nil
}

func (s *Service) authorizeView(
	ctx context.Context,
	viewerID string,
	analysis *Analysis,
) error {
	if viewerID == "" || viewerID == analysis.AuthorID {
		return nil
	}

	allowed, err := s.access.CanAccess(ctx, viewerID, analysis.AuthorID)
	if err != nil {
		return fmt.Errorf("check access: %w", err)
	}

	if !allowed {
		return fmt.Errorf("view analysis: %w", core.ErrForbidden)
	}

	return nil
}

func (s *Service) Update(
	ctx context.Context,
	userID, analysisID string,
	req UpdateAnalysisRequest,
) (*Analysis, error) {
	analysis, err := s.getOwned(ctx, userID, analysisID)
	if err != nil {
		return nil, err
	}

	if req.Title != nil {
		analysis.Title = *req.Title
	}
	if req.Content != nil {
		analysis.Content = *req.Content
	}
	if req.TickerSymbol != nil {
		analysis.TickerSymbol = normalizeTicker(req.TickerSymbol)
	}
	if req.TargetPrice != nil {
		analysis.TargetPrice = req.TargetPrice
	}
	if req.CurrentPrice != nil {
		analysis.CurrentPrice = req.CurrentPrice
	}
	if req.TimeHorizon != nil {
		analysis.TimeHorizon = req.TimeHorizon
	}
	if req.SuccessStatus != nil {
		analysis.SuccessStatus = *req.SuccessStatus
	}

	if err := s.repo.Update(ctx, analysis); err != nil {
		return nil, err
	}

	if req.Tags != nil {
		if err := s.repo.ReplaceTags(ctx, analysis.ID, *req.Tags); err != nil {
			return nil, err
		}
	}

	return s.repo.GetByID(ctx, analysis.ID)
}

func (s *Service) Delete(ctx context.Context, userID, analysisID string) error {
	analysis, err := s.getOwned(ctx, userID, analysisID)
	if err != nil {
		return err
	}

	for _, img := range analysis.Images {
		if err := os.Remove(img.FilePath); err != nil && !os.IsNotExist(err) {
			s.logger.Warn("failed to remove image file",
				"path", img.FilePath,
				"error", err,
			)
		}
	}

	return s.repo.Delete(ctx, analysis.ID)
}

func (s *Service) List(
	ctx context.Context,
	params ListAnalysesParams,
) ([]Analysis, int, error) {
	return s.repo.List(ctx, params)
}

// AddImage stores an uploaded image on disk and records it against the
// analysis. Only the author may attach images, capped at five per
// analysis.
func (s *Service) AddImage(
	ctx context.Context,
	userID, analysisID string,
	file multipart.File,
	header *multipart.FileHeader,
) (*Image, error) {
	analysis, err := s.getOwned(ctx, userID, analysisID)
	if err != nil {
		return nil, err
	}

	count, err := s.repo.CountImages(ctx, analysis.ID)
	if err != nil {
		return nil, err
	}
	if count >= maxImagesPerAnalysis {
		return nil, fmt.Errorf(
			"add image: image limit reached: %w",
			core.ErrInvalidState,
		)
	}

	if header.Size > s.uploads.MaxBytes {
		return nil, fmt.Errorf(
			"add image: file too large: %w",
			core.ErrInvalidInput,
		)
	}

	contentType := header.Header.Get("Content-Type")
	if !strings.HasPrefix(contentType, "image/") {
		return nil, fmt.Errorf(
			"add image: not an image: %w",
			core.ErrInvalidInput,
		)
	}

	filename := filepath.Base(header.Filename)
	destPath := filepath.Join(
		s.uploads.Dir,
		fmt.Sprintf("%s_%s", analysis.ID, filename),
	)

	if err := s.writeFile(destPath, file); err != nil {
		return nil, err
	}

	image := &Image{
		ID:         uuid.New().String(),
		AnalysisID: analysis.ID,
		FilePath:   destPath,
		Filename:   filename,
	}

	if err := s.repo.AddImage(ctx, image); err != nil {
		if removeErr := os.Remove(destPath); removeErr != nil {
			s.logger.Warn("failed to remove orphaned upload",
				"path", destPath,
				"error", removeErr,
			)
		}
		return nil, err
	}

	return image, nil
}

func (s *Service) ListImages(
	ctx context.Context,
	viewerID, analysisID string,
) ([]Image, error) {
	analysis, err := s.repo.GetByID(ctx, analysisID)
	if err != nil {
		return nil, err
	}

	if err := s.authorizeView(ctx, viewerID, analysis); err != nil {
		return nil, err
	}

	return analysis.Images, nil
}

func (s *Service) CountAll(ctx context.Context) (int, error) {
	return s.repo.CountAll(ctx)
}

func (s *Service) writeFile(destPath string, src io.Reader) error {
	if err := os.MkdirAll(s.uploads.Dir, 0o755); err != nil {
		return fmt.Errorf("create upload dir: %w", err)
	}

	dest, err := os.Create(destPath)
	if err != nil {
		return fmt.Errorf("create file: %w", err)
	}
	defer dest.Close()

	if _, err := io.Copy(dest, io.LimitReader(src, s.uploads.MaxBytes)); err != nil {
		return fmt.Errorf("write file: %w", err)
	}

	return nil
}

func (s *Service) getOwned(
	ctx context.Context,
	userID, analysisID string,
) (*Analysis, error) {
	analysis, err := s.repo.GetByID(ctx, analysisID)
	if err != nil {
		return nil, err
	}

	if analysis.AuthorID != userID {
		return nil, fmt.Errorf("get analysis: %w", core.ErrForbidden)
	}

	return analysis, nil
}

func normalizeTicker(ticker *string) *string {
	if ticker == nil {
		return nil
	}
	upper := strings.ToUpper(strings.TrimSpace(*ticker))
	if upper == "" {
		return nil
	}
	return &upper
}
