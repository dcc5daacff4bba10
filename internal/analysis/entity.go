// AngelaMos | 2026
// entity.go

package analysis

import (
	"time"
)

const (
	StatusPending = "pending"
	StatusSuccess = "success"
	StatusFailed  = "failed"
)

type Analysis struct {
	ID            string    `db:"id"`
	AuthorID      string    `db:"author_id"`
	Title         string    `db:"title"`
	Content       string    `db:"content"`
	TickerSymbol  *string   `db:"ticker_symbol"`
	TargetPrice   *float64  `db:"target_price"`
	CurrentPrice  *float64  `db:"current_price"`
	TimeHorizon   *string   `db:"time_horizon"`
	SuccessStatus string    `db:"success_status"`
	CreatedAt     time.Time `db:"created_at"`
	UpdatedAt     time.Time `db:"updated_at"`

	Images []Image  `db:"-"`
	Tags   []string `db:"-"`
}

type Image struct {
	ID         string    `db:"id"`
	AnalysisID string    `db:"analysis_id"`
	FilePath   string    `db:"file_path"`
	Filename   string    `db:"filename"`
	CreatedAt  time.Time `db:"created_at"`
}

type Tag struct {
	ID   string `db:"id"`
	Name string `db:"name"`
}

func ValidSuccessStatus(status string) bool {
	switch status {
	case StatusPending, StatusSuccess, StatusFailed:
		return true
	}
	return false
}
