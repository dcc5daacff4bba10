// AngelaMos | 2026
// dto.go

package analysis

import (
	"time"
)

type CreateAnalysisRequest struct {
	Title        string   `json:"title"         validate:"required,min=1,max=200"`
	Content      string   `json:"content"       validate:"required,min=1"`
	TickerSymbol *string  `json:"ticker_symbol" validate:"omitempty,max=10"`
	TargetPrice  *float64 `json:"target_price"  validate:"required,gt=0"`
	CurrentPrice *float64 `json:"current_price" validate:"omitempty,gt=0"`
	TimeHorizon  *string  `json:"time_horizon"  validate:"required,min=1,max=50"`
	Tags         []string `json:"tags"          validate:"max=10,dive,min=1,max=50"`
}

type UpdateAnalysisRequest struct {
	Title         *string   `json:"title"          validate:"omitempty,min=1,max=200"`
	Content       *string   `json:"content"        validate:"omitempty,min=1"`
	TickerSymbol  *string   `json:"ticker_symbol"  validate:"omitempty,max=10"`
	TargetPrice   *float64  `json:"target_price"   validate:"omitempty,gt=0"`
	CurrentPrice  *float64  `json:"current_price"  validate:"omitempty,gt=0"`
	TimeHorizon   *string   `json:"time_horizon"   validate:"omitempty,max=50"`
	SuccessStatus *string   `json:"success_status" validate:"omitempty,oneof=pending success failed"`
	Tags          *[]string `json:"tags"           validate:"omitempty,max=10,dive,min=1,max=50"`
}

type ImageResponse struct {
	ID        string    `json:"id"`
	FilePath  string    `json:"file_path"`
	Filename  string    `json:"filename"`
	CreatedAt time.Time `json:"created_at"`
}

type AnalysisResponse struct {
	ID            string          `json:"id"`
	AuthorID      string          `json:"author_id"`
	Title         string          `json:"title"`
	Content       string          `json:"content"`
	TickerSymbol  *string         `json:"ticker_symbol,omitempty"`
	TargetPrice   *float64        `json:"target_price,omitempty"`
	CurrentPrice  *float64        `json:"current_price,omitempty"`
	TimeHorizon   *string         `json:"time_horizon,omitempty"`
	SuccessStatus string          `json:"success_status"`
	Tags          []string        `json:"tags"`
	Images        []ImageResponse `json:"images"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

type ListAnalysesParams struct {
	Page     int
	PageSize int
	AuthorID string
	Ticker   string
}

func (p *ListAnalysesParams) Normalize() {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.PageSize < 1 || p.PageSize > 100 {
		p.PageSize = 20
	}
}

func (p *ListAnalysesParams) Offset() int {
	return (p.Page - 1) * p.PageSize
}

func ToAnalysisResponse(a *Analysis) AnalysisResponse {
	tags := a.Tags
	if tags == nil {
		tags = []string{}
	}

	images := make([]ImageResponse, 0, len(a.Images))
	for i := range a.Images {
		images = append(images, ImageResponse{
			ID:        a.Images[i].ID,
			FilePath:  a.Images[i].FilePath,
			Filename:  a.Images[i].Filename,
			CreatedAt: a.Images[i].CreatedAt,
		})
	}

	return AnalysisResponse{
		ID:            a.ID,
		AuthorID:      a.AuthorID,
		Title:         a.Title,
		Content:       a.Content,
		TickerSymbol:  a.TickerSymbol,
		TargetPrice:   a.TargetPrice,
		CurrentPrice:  a.CurrentPrice,
		TimeHorizon:   a.TimeHorizon,
		SuccessStatus: a.SuccessStatus,
		Tags:          tags,
		Images:        images,
		CreatedAt:     a.CreatedAt,
		UpdatedAt:     a.UpdatedAt,
	}
}

func ToAnalysisResponseList(analyses []Analysis) []AnalysisResponse {
	out := make([]AnalysisResponse, 0, len(analyses))
	for i := range analyses {
		out = append(out, ToAnalysisResponse(&analyses[i]))
	}
	return out
}
