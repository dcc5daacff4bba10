// AngelaMos | 2026
// dto_test.go

package analysis_test

import (
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelamos/socialfinance/internal/analysis"
)

func validCreateRequest() analysis.CreateAnalysisRequest {
	target := 150.0
	horizon := "6 months"
	return analysis.CreateAnalysisRequest{
		Title:       "AAPL to 150",
		Content:     "Services growth supports a re-rating.",
		TargetPrice: &target,
		TimeHorizon: &horizon,
	}
}

func TestCreateAnalysisRequest_Validation(t *testing.T) {
	validate := validator.New(validator.WithRequiredStructEnabled())

	require.NoError(t, validate.Struct(validCreateRequest()))

	t.Run("target price required", func(t *testing.T) {
		req := validCreateRequest()
		req.TargetPrice = nil
		assert.Error(t, validate.Struct(req))
	})

	t.Run("target price must be positive", func(t *testing.T) {
		req := validCreateRequest()
		zero := 0.0
		req.TargetPrice = &zero
		assert.Error(t, validate.Struct(req))
	})

	t.Run("time horizon required", func(t *testing.T) {
		req := validCreateRequest()
		req.TimeHorizon = nil
		assert.Error(t, validate.Struct(req))
	})

	t.Run("time horizon not blank", func(t *testing.T) {
		req := validCreateRequest()
		blank := ""
		req.TimeHorizon = &blank
		assert.Error(t, validate.Struct(req))
	})

	t.Run("ticker and current price optional", func(t *testing.T) {
		req := validCreateRequest()
		req.TickerSymbol = nil
		req.CurrentPrice = nil
		assert.NoError(t, validate.Struct(req))
	})
}
