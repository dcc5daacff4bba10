// AngelaMos | 2026
// repository.go

package analysis

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/angelamos/socialfinance/internal/core"
)

const analysisColumns = `
	id, author_id, title, content, ticker_symbol, target_price,
	current_price, time_horizon, success_status, created_at, updated_at`

type Repository interface {
	Create(ctx context.Context, analysis *Analysis) error
	GetByID(ctx context.Context, id string) (*Analysis, error)
	Update(ctx context.Context, analysis *Analysis) error
	Delete(ctx context.Context, id string) error
	List(ctx context.Context, params ListAnalysesParams) ([]Analysis, int, error)
	ReplaceTags(ctx context.Context, analysisID string, tags []string) error
	AddImage(ctx context.Context, image *Image) error
	CountImages(ctx context.Context, analysisID string) (int, error)
	ListImages(ctx context.Context, analysisID string) ([]Image, error)
	CountAll(ctx context.Context) (int, error)
}

type repository struct {
	db core.DBTX
}

func NewRepository(db core.DBTX) Repository {
	return &repository{db: db}
}

func (r *repository) Create(ctx context.Context, analysis *Analysis) error {
	query := `
		INSERT INTO analyses (
			id, author_id, title, content, ticker_symbol, target_price,
			current_price, time_horizon, success_status
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING created_at, updated_at`

	err := r.db.GetContext(ctx, analysis, query,
		analysis.ID,
		analysis.AuthorID,
		analysis.Title,
		analysis.Content,
		analysis.TickerSymbol,
		analysis.TargetPrice,
		analysis.CurrentPrice,
		analysis.TimeHorizon,
		analysis.SuccessStatus,
	)
	if err != nil {
		return fmt.Errorf("create analysis: %w", err)
	}

	return nil
}

func (r *repository) GetByID(
	ctx context.Context,
	id string,
) (*Analysis, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM analyses
		WHERE id = $1`, analysisColumns)

	var analysis Analysis
	err := r.db.GetContext(ctx, &analysis, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("get analysis: %w", core.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get analysis: %w", err)
	}

	if err := r.attachRelations(ctx, []*Analysis{&analysis}); err != nil {
		return nil, err
	}

	return &analysis, nil
}

func (r *repository) Update(ctx context.Context, analysis *Analysis) error {
	query := `
		UPDATE analyses
		SET title = $2, content = $3, ticker_symbol = $4, target_price = $5,
		    current_price = $6, time_horizon = $7, success_status = $8,
		    updated_at = NOW()
		WHERE id = $1
		RETURNING updated_at`

	err := r.db.GetContext(ctx, &analysis.UpdatedAt, query,
		analysis.ID,
		analysis.Title,
		analysis.Content,
		analysis.TickerSymbol,
		analysis.TargetPrice,
		analysis.CurrentPrice,
		analysis.TimeHorizon,
		analysis.SuccessStatus,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("update analysis: %w", core.ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("update analysis: %w", err)
	}

	return nil
}

func (r *repository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx,
		`DELETE FROM analyses WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete analysis: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete analysis: %w", err)
	}

	if rows == 0 {
		return fmt.Errorf("delete analysis: %w", core.ErrNotFound)
	}

	return nil
}

func (r *repository) List(
	ctx context.Context,
	params ListAnalysesParams,
) ([]Analysis, int, error) {
	params.Normalize()

	conditions := []string{"1=1"}
	var args []any
	argIdx := 1

	if params.AuthorID != "" {
		conditions = append(conditions, fmt.Sprintf("author_id = $%d", argIdx))
		args = append(args, params.AuthorID)
		argIdx++
	}

	if params.Ticker != "" {
		conditions = append(conditions, fmt.Sprintf("ticker_symbol = $%d", argIdx))
		args = append(args, strings.ToUpper(params.Ticker))
		argIdx++
	}

	whereClause := strings.Join(conditions, " AND ")

	countQuery := fmt.Sprintf(
		"SELECT COUNT(*) FROM analyses WHERE %s",
		whereClause,
	)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count analyses: %w", err)
	}

	query := fmt.Sprintf(`
		SELECT %s
		FROM analyses
		WHERE %s
		ORDER BY created_at DESC
		LIMIT $%d OFFSET $%d`, analysisColumns, whereClause, argIdx, argIdx+1)

	args = append(args, params.PageSize, params.Offset())

	var analyses []Analysis
	if err := r.db.SelectContext(ctx, &analyses, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list analyses: %w", err)
	}

	refs := make([]*Analysis, len(analyses))
	for i := range analyses {
		refs[i] = &analyses[i]
	}
	if err := r.attachRelations(ctx, refs); err != nil {
		return nil, 0, err
	}

	return analyses, total, nil
}

// ReplaceTags upserts the tag vocabulary and swaps the analysis's tag
// set for the given one.
func (r *repository) ReplaceTags(
	ctx context.Context,
	analysisID string,
	tags []string,
) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM analysis_tags WHERE analysis_id = $1`, analysisID)
	if err != nil {
		return fmt.Errorf("clear analysis tags: %w", err)
	}

	for _, name := range normalizeTags(tags) {
		var tagID string
		err := r.db.GetContext(ctx, &tagID, `
			INSERT INTO tags (id, name)
			VALUES ($1, $2)
			ON CONFLICT (name) DO UPDATE SET name = EXCLUDED.name
			RETURNING id`,
			uuid.New().String(), name)
		if err != nil {
			return fmt.Errorf("upsert tag: %w", err)
		}

		_, err = r.db.ExecContext(ctx, `
			INSERT INTO analysis_tags (analysis_id, tag_id)
			VALUES ($1, $2)
			ON CONFLICT DO NOTHING`,
			analysisID, tagID)
		if err != nil {
			return fmt.Errorf("link tag: %w", err)
		}
	}

	return nil
}

func (r *repository) AddImage(ctx context.Context, image *Image) error {
	query := `
		INSERT INTO analysis_images (id, analysis_id, file_path, filename)
		VALUES ($1, $2, $3, $4)
		RETURNING created_at`

	err := r.db.GetContext(ctx, &image.CreatedAt, query,
		image.ID,
		image.AnalysisID,
		image.FilePath,
		image.Filename,
	)
	if err != nil {
		return fmt.Errorf("add image: %w", err)
	}

	return nil
}

func (r *repository) CountImages(
	ctx context.Context,
	analysisID string,
) (int, error) {
	var count int
	query := `SELECT COUNT(*) FROM analysis_images WHERE analysis_id = $1`

	if err := r.db.GetContext(ctx, &count, query, analysisID); err != nil {
		return 0, fmt.Errorf("count images: %w", err)
	}

	return count, nil
}

func (r *repository) ListImages(
	ctx context.Context,
	analysisID string,
) ([]Image, error) {
	query := `
		SELECT id, analysis_id, file_path, filename, created_at
		FROM analysis_images
		WHERE analysis_id = $1
		ORDER BY created_at`

	var images []Image
	if err := r.db.SelectContext(ctx, &images, query, analysisID); err != nil {
		return nil, fmt.Errorf("list images: %w", err)
	}

	return images, nil
}

func (r *repository) CountAll(ctx context.Context) (int, error) {
	var count int
	if err := r.db.GetContext(ctx, &count,
		`SELECT COUNT(*) FROM analyses`); err != nil {
		return 0, fmt.Errorf("count analyses: %w", err)
	}

	return count, nil
}

func (r *repository) attachRelations(
	ctx context.Context,
	analyses []*Analysis,
) error {
	if len(analyses) == 0 {
		return nil
	}

	ids := make([]string, len(analyses))
	byID := make(map[string]*Analysis, len(analyses))
	for i, a := range analyses {
		ids[i] = a.ID
		byID[a.ID] = a
		a.Tags = []string{}
		a.Images = []Image{}
	}

	query, args, err := sqlx.In(`
		SELECT id, analysis_id, file_path, filename, created_at
		FROM analysis_images
		WHERE analysis_id IN (?)
		ORDER BY created_at`, ids)
	if err != nil {
		return fmt.Errorf("build image query: %w", err)
	}

	var images []Image
	err = r.db.SelectContext(ctx, &images, r.db.Rebind(query), args...)
	if err != nil {
		return fmt.Errorf("load images: %w", err)
	}

	for _, img := range images {
		if a, ok := byID[img.AnalysisID]; ok {
			a.Images = append(a.Images, img)
		}
	}

	query, args, err = sqlx.In(`
		SELECT at.analysis_id, t.name
		FROM analysis_tags at
		JOIN tags t ON t.id = at.tag_id
		WHERE at.analysis_id IN (?)
		ORDER BY t.name`, ids)
	if err != nil {
		return fmt.Errorf("build tag query: %w", err)
	}

	var rows []struct {
		AnalysisID string `db:"analysis_id"`
		Name       string `db:"name"`
	}
	err = r.db.SelectContext(ctx, &rows, r.db.Rebind(query), args...)
	if err != nil {
		return fmt.Errorf("load tags: %w", err)
	}

	for _, row := range rows {
		if a, ok := byID[row.AnalysisID]; ok {
			a.Tags = append(a.Tags, row.Name)
		}
	}

	return nil
}

func normalizeTags(tags []string) []string {
	seen := make(map[string]struct{}, len(tags))
	out := make([]string, 0, len(tags))
	for _, tag := range tags {
		name := strings.ToLower(strings.TrimSpace(tag))
		if name == "" {
			continue
		}
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}
		out = append(out, name)
	}
	return out
}
