// AngelaMos | 2026
// handler_test.go

package subscription_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/angelamos/socialfinance/internal/billing"
	"github.com/angelamos/socialfinance/internal/core"
	"github.com/angelamos/socialfinance/internal/subscription"
)

func passthrough(next http.Handler) http.Handler {
	return next
}

func newWebhookServer(t *testing.T) (*chi.Mux, *mockRepo, *mockGateway) {
	t.Helper()

	svc, repo, _, gateway := newTestService(t)
	handler := subscription.NewHandler(svc)

	router := chi.NewRouter()
	handler.RegisterRoutes(router, passthrough)

	return router, repo, gateway
}

func TestWebhook_InvalidSignature(t *testing.T) {
	router, _, gateway := newWebhookServer(t)

	gateway.On("VerifyWebhook", mock.Anything, "t=1,v1=bogus").
		Return(nil, billing.ErrInvalidSignature)

	req := httptest.NewRequest(
		http.MethodPost,
		"/subscriptions/webhook",
		strings.NewReader(`{"type":"invoice.payment_succeeded"}`),
	)
	req.Header.Set("Stripe-Signature", "t=1,v1=bogus")
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestWebhook_UnknownSubscriptionAcknowledged(t *testing.T) {
	router, repo, gateway := newWebhookServer(t)

	gateway.On("VerifyWebhook", mock.Anything, "t=1,v1=good").
		Return(&billing.Event{
			Kind:           billing.EventPaymentSucceeded,
			SubscriptionID: "sub_unknown",
		}, nil)
	repo.On("GetByRemoteID", mock.Anything, "sub_unknown").
		Return(nil, core.ErrNotFound)

	req := httptest.NewRequest(
		http.MethodPost,
		"/subscriptions/webhook",
		strings.NewReader(`{}`),
	)
	req.Header.Set("Stripe-Signature", "t=1,v1=good")
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "success", body["status"])

	repo.AssertNotCalled(t, "InsertPayment", mock.Anything, mock.Anything)
}

func TestWebhook_ProcessingErrorIsRetriable(t *testing.T) {
	router, repo, gateway := newWebhookServer(t)

	gateway.On("VerifyWebhook", mock.Anything, "t=1,v1=good").
		Return(&billing.Event{
			Kind:           billing.EventSubscriptionDeleted,
			SubscriptionID: "sub_remote_1",
		}, nil)
	repo.On("UpdateStatusByRemoteID", mock.Anything, "sub_remote_1", subscription.StatusCanceled).
		Return(int64(0), assert.AnError)

	req := httptest.NewRequest(
		http.MethodPost,
		"/subscriptions/webhook",
		strings.NewReader(`{}`),
	)
	req.Header.Set("Stripe-Signature", "t=1,v1=good")
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	// A non-2xx status makes the provider redeliver the event.
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestWebhook_LargePayloadNotTruncated(t *testing.T) {
	router, _, gateway := newWebhookServer(t)

	// An invoice event with many line items; well past 64 KiB.
	body := `{"type":"invoice.payment_succeeded","padding":"` +
		strings.Repeat("x", 200<<10) + `"}`

	gateway.On("VerifyWebhook",
		mock.MatchedBy(func(payload []byte) bool {
			return len(payload) == len(body)
		}),
		"t=1,v1=good",
	).Return(&billing.Event{Kind: billing.EventIgnored}, nil)

	req := httptest.NewRequest(
		http.MethodPost,
		"/subscriptions/webhook",
		strings.NewReader(body),
	)
	req.Header.Set("Stripe-Signature", "t=1,v1=good")
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	gateway.AssertExpectations(t)
}
