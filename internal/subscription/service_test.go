// AngelaMos | 2026
// service_test.go

package subscription_test

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/angelamos/socialfinance/internal/billing"
	"github.com/angelamos/socialfinance/internal/core"
	"github.com/angelamos/socialfinance/internal/subscription"
)

type mockRepo struct {
	mock.Mock
}

func (m *mockRepo) Create(ctx context.Context, sub *subscription.Subscription) error {
	args := m.Called(ctx, sub)
	return args.Error(0)
}

func (m *mockRepo) GetByID(ctx context.Context, id string) (*subscription.Subscription, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*subscription.Subscription), args.Error(1)
}

func (m *mockRepo) GetByRemoteID(ctx context.Context, remoteID string) (*subscription.Subscription, error) {
	args := m.Called(ctx, remoteID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*subscription.Subscription), args.Error(1)
}

func (m *mockRepo) FindActivePair(ctx context.Context, subscriberID, creatorID string) (*subscription.Subscription, error) {
	args := m.Called(ctx, subscriberID, creatorID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*subscription.Subscription), args.Error(1)
}

func (m *mockRepo) ListBySubscriber(ctx context.Context, subscriberID string) ([]subscription.Subscription, error) {
	args := m.Called(ctx, subscriberID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]subscription.Subscription), args.Error(1)
}

func (m *mockRepo) ListByCreator(ctx context.Context, creatorID string) ([]subscription.Subscription, error) {
	args := m.Called(ctx, creatorID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]subscription.Subscription), args.Error(1)
}

func (m *mockRepo) UpdateStatus(ctx context.Context, id, status string) error {
	args := m.Called(ctx, id, status)
	return args.Error(0)
}

func (m *mockRepo) UpdateStatusByRemoteID(ctx context.Context, remoteID, status string) (int64, error) {
	args := m.Called(ctx, remoteID, status)
	return args.Get(0).(int64), args.Error(1)
}

func (m *mockRepo) InsertPayment(ctx context.Context, payment *subscription.Payment) error {
	args := m.Called(ctx, payment)
	return args.Error(0)
}

func (m *mockRepo) ListPayments(ctx context.Context, subscriptionID string) ([]subscription.Payment, error) {
	args := m.Called(ctx, subscriptionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]subscription.Payment), args.Error(1)
}

func (m *mockRepo) CountActive(ctx context.Context) (int, error) {
	args := m.Called(ctx)
	return args.Int(0), args.Error(1)
}

type mockAccounts struct {
	mock.Mock
}

func (m *mockAccounts) GetAccount(ctx context.Context, id string) (*subscription.Account, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*subscription.Account), args.Error(1)
}

func (m *mockAccounts) SetBillingCustomerID(ctx context.Context, id, customerID string) error {
	args := m.Called(ctx, id, customerID)
	return args.Error(0)
}

type mockGateway struct {
	mock.Mock
}

func (m *mockGateway) CreateCustomer(ctx context.Context, email, name string) (string, error) {
	args := m.Called(ctx, email, name)
	return args.String(0), args.Error(1)
}

func (m *mockGateway) CreatePrice(ctx context.Context, amountCents int64) (string, error) {
	args := m.Called(ctx, amountCents)
	return args.String(0), args.Error(1)
}

func (m *mockGateway) CreateSubscription(ctx context.Context, customerID, priceID string) (*billing.RemoteSubscription, error) {
	args := m.Called(ctx, customerID, priceID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*billing.RemoteSubscription), args.Error(1)
}

func (m *mockGateway) CancelAtPeriodEnd(ctx context.Context, subscriptionID string) error {
	args := m.Called(ctx, subscriptionID)
	return args.Error(0)
}

func (m *mockGateway) VerifyWebhook(payload []byte, signature string) (*billing.Event, error) {
	args := m.Called(payload, signature)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*billing.Event), args.Error(1)
}

func newTestService(t *testing.T) (*subscription.Service, *mockRepo, *mockAccounts, *mockGateway) {
	t.Helper()

	repo := &mockRepo{}
	accounts := &mockAccounts{}
	gateway := &mockGateway{}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	svc := subscription.NewService(repo, accounts, gateway, logger)
	return svc, repo, accounts, gateway
}

const (
	subscriberID = "11111111-1111-4111-8111-111111111111"
	creatorID    = "22222222-2222-4222-8222-222222222222"
)

func TestSubscribe_SelfSubscription(t *testing.T) {
	svc, _, _, _ := newTestService(t)

	_, err := svc.Subscribe(context.Background(), subscriberID, subscriberID)

	require.ErrorIs(t, err, core.ErrInvalidInput)
}

func TestSubscribe_DuplicateActivePair(t *testing.T) {
	svc, repo, _, _ := newTestService(t)

	repo.On("FindActivePair", mock.Anything, subscriberID, creatorID).
		Return(&subscription.Subscription{ID: "existing"}, nil)

	_, err := svc.Subscribe(context.Background(), subscriberID, creatorID)

	require.ErrorIs(t, err, core.ErrConflict)
	repo.AssertExpectations(t)
}

func TestSubscribe_CreatorNotFound(t *testing.T) {
	svc, repo, accounts, _ := newTestService(t)

	repo.On("FindActivePair", mock.Anything, subscriberID, creatorID).
		Return(nil, core.ErrNotFound)
	accounts.On("GetAccount", mock.Anything, creatorID).
		Return(nil, core.ErrNotFound)

	_, err := svc.Subscribe(context.Background(), subscriberID, creatorID)

	require.ErrorIs(t, err, core.ErrNotFound)
}

func TestSubscribe_ZeroFeeCreator(t *testing.T) {
	svc, repo, accounts, _ := newTestService(t)

	repo.On("FindActivePair", mock.Anything, subscriberID, creatorID).
		Return(nil, core.ErrNotFound)
	accounts.On("GetAccount", mock.Anything, creatorID).
		Return(&subscription.Account{ID: creatorID, MonthlyFee: 0}, nil)

	_, err := svc.Subscribe(context.Background(), subscriberID, creatorID)

	require.ErrorIs(t, err, core.ErrInvalidState)
}

func TestSubscribe_Success_ProvisionsCustomer(t *testing.T) {
	svc, repo, accounts, gateway := newTestService(t)

	periodStart := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	periodEnd := periodStart.AddDate(0, 1, 0)

	repo.On("FindActivePair", mock.Anything, subscriberID, creatorID).
		Return(nil, core.ErrNotFound)
	accounts.On("GetAccount", mock.Anything, creatorID).
		Return(&subscription.Account{ID: creatorID, MonthlyFee: 10.0}, nil)
	accounts.On("GetAccount", mock.Anything, subscriberID).
		Return(&subscription.Account{
			ID:          subscriberID,
			Email:       "sub@example.com",
			DisplayName: "Sub Scriber",
		}, nil)
	gateway.On("CreateCustomer", mock.Anything, "sub@example.com", "Sub Scriber").
		Return("cus_123", nil)
	accounts.On("SetBillingCustomerID", mock.Anything, subscriberID, "cus_123").
		Return(nil)
	gateway.On("CreatePrice", mock.Anything, int64(1000)).
		Return("price_123", nil)
	gateway.On("CreateSubscription", mock.Anything, "cus_123", "price_123").
		Return(&billing.RemoteSubscription{
			ID:                 "sub_remote_1",
			CurrentPeriodStart: periodStart,
			CurrentPeriodEnd:   periodEnd,
		}, nil)
	repo.On("Create", mock.Anything, mock.MatchedBy(func(s *subscription.Subscription) bool {
		return s.SubscriberID == subscriberID &&
			s.CreatorID == creatorID &&
			s.Status == subscription.StatusActive &&
			s.StripeSubscriptionID == "sub_remote_1" &&
			s.CurrentPeriodStart.Equal(periodStart) &&
			s.CurrentPeriodEnd.Equal(periodEnd)
	})).Return(nil)

	sub, err := svc.Subscribe(context.Background(), subscriberID, creatorID)

	require.NoError(t, err)
	assert.Equal(t, subscription.StatusActive, sub.Status)
	repo.AssertExpectations(t)
	accounts.AssertExpectations(t)
	gateway.AssertExpectations(t)
}

func TestSubscribe_ReusesExistingCustomer(t *testing.T) {
	svc, repo, accounts, gateway := newTestService(t)

	existing := "cus_existing"

	repo.On("FindActivePair", mock.Anything, subscriberID, creatorID).
		Return(nil, core.ErrNotFound)
	accounts.On("GetAccount", mock.Anything, creatorID).
		Return(&subscription.Account{ID: creatorID, MonthlyFee: 5.5}, nil)
	accounts.On("GetAccount", mock.Anything, subscriberID).
		Return(&subscription.Account{
			ID:                subscriberID,
			BillingCustomerID: &existing,
		}, nil)
	gateway.On("CreatePrice", mock.Anything, int64(550)).
		Return("price_550", nil)
	gateway.On("CreateSubscription", mock.Anything, existing, "price_550").
		Return(&billing.RemoteSubscription{ID: "sub_remote_2"}, nil)
	repo.On("Create", mock.Anything, mock.Anything).Return(nil)

	_, err := svc.Subscribe(context.Background(), subscriberID, creatorID)

	require.NoError(t, err)
	gateway.AssertNotCalled(t, "CreateCustomer", mock.Anything, mock.Anything, mock.Anything)
}

func TestSubscribe_LostInsertRace(t *testing.T) {
	svc, repo, accounts, gateway := newTestService(t)

	repo.On("FindActivePair", mock.Anything, subscriberID, creatorID).
		Return(nil, core.ErrNotFound)
	accounts.On("GetAccount", mock.Anything, creatorID).
		Return(&subscription.Account{ID: creatorID, MonthlyFee: 10.0}, nil)
	accounts.On("GetAccount", mock.Anything, subscriberID).
		Return(&subscription.Account{
			ID:                subscriberID,
			BillingCustomerID: strPtr("cus_1"),
		}, nil)
	gateway.On("CreatePrice", mock.Anything, int64(1000)).
		Return("price_1", nil)
	gateway.On("CreateSubscription", mock.Anything, "cus_1", "price_1").
		Return(&billing.RemoteSubscription{ID: "sub_orphan"}, nil)
	repo.On("Create", mock.Anything, mock.Anything).Return(core.ErrConflict)
	gateway.On("CancelAtPeriodEnd", mock.Anything, "sub_orphan").Return(nil)

	_, err := svc.Subscribe(context.Background(), subscriberID, creatorID)

	require.ErrorIs(t, err, core.ErrConflict)
	gateway.AssertCalled(t, "CancelAtPeriodEnd", mock.Anything, "sub_orphan")
}

func TestCancel_NotOwned(t *testing.T) {
	svc, repo, _, _ := newTestService(t)

	repo.On("GetByID", mock.Anything, "sub-1").
		Return(&subscription.Subscription{
			ID:           "sub-1",
			SubscriberID: "someone-else",
			Status:       subscription.StatusActive,
		}, nil)

	err := svc.Cancel(context.Background(), subscriberID, "sub-1")

	require.ErrorIs(t, err, core.ErrNotFound)
}

func TestCancel_NonActiveStillCancels(t *testing.T) {
	svc, repo, _, gateway := newTestService(t)

	repo.On("GetByID", mock.Anything, "sub-1").
		Return(&subscription.Subscription{
			ID:                   "sub-1",
			SubscriberID:         subscriberID,
			Status:               subscription.StatusPastDue,
			StripeSubscriptionID: "sub_remote_1",
		}, nil)
	gateway.On("CancelAtPeriodEnd", mock.Anything, "sub_remote_1").Return(nil)
	repo.On("UpdateStatus", mock.Anything, "sub-1", subscription.StatusCanceled).
		Return(nil)

	err := svc.Cancel(context.Background(), subscriberID, "sub-1")

	require.NoError(t, err)
	gateway.AssertCalled(t, "CancelAtPeriodEnd", mock.Anything, "sub_remote_1")
	repo.AssertCalled(t, "UpdateStatus", mock.Anything, "sub-1",
		subscription.StatusCanceled)
}

func TestCancel_Success(t *testing.T) {
	svc, repo, _, gateway := newTestService(t)

	repo.On("GetByID", mock.Anything, "sub-1").
		Return(&subscription.Subscription{
			ID:                   "sub-1",
			SubscriberID:         subscriberID,
			Status:               subscription.StatusActive,
			StripeSubscriptionID: "sub_remote_1",
		}, nil)
	gateway.On("CancelAtPeriodEnd", mock.Anything, "sub_remote_1").Return(nil)
	repo.On("UpdateStatus", mock.Anything, "sub-1", subscription.StatusCanceled).
		Return(nil)

	err := svc.Cancel(context.Background(), subscriberID, "sub-1")

	require.NoError(t, err)
	repo.AssertExpectations(t)
	gateway.AssertExpectations(t)
}

func TestHandleWebhook_InvalidSignature(t *testing.T) {
	svc, _, _, gateway := newTestService(t)

	gateway.On("VerifyWebhook", mock.Anything, "bad-sig").
		Return(nil, billing.ErrInvalidSignature)

	err := svc.HandleWebhook(context.Background(), []byte("{}"), "bad-sig")

	require.ErrorIs(t, err, billing.ErrInvalidSignature)
}

func TestHandleWebhook_UnknownSubscription(t *testing.T) {
	svc, repo, _, gateway := newTestService(t)

	gateway.On("VerifyWebhook", mock.Anything, "sig").
		Return(&billing.Event{
			Kind:           billing.EventPaymentSucceeded,
			SubscriptionID: "sub_unknown",
		}, nil)
	repo.On("GetByRemoteID", mock.Anything, "sub_unknown").
		Return(nil, core.ErrNotFound)

	err := svc.HandleWebhook(context.Background(), []byte("{}"), "sig")

	require.NoError(t, err)
	repo.AssertNotCalled(t, "InsertPayment", mock.Anything, mock.Anything)
	repo.AssertNotCalled(t, "UpdateStatus", mock.Anything, mock.Anything, mock.Anything)
}

func TestHandleWebhook_PaymentFailed_Replay(t *testing.T) {
	svc, repo, _, gateway := newTestService(t)

	event := &billing.Event{
		Kind:           billing.EventPaymentFailed,
		SubscriptionID: "sub_remote_1",
		AmountCents:    1000,
		Currency:       "usd",
	}
	gateway.On("VerifyWebhook", mock.Anything, "sig").Return(event, nil)

	// First delivery: subscription is active, transitions to past_due.
	repo.On("GetByRemoteID", mock.Anything, "sub_remote_1").
		Return(&subscription.Subscription{
			ID:     "sub-1",
			Status: subscription.StatusActive,
		}, nil).Once()
	repo.On("UpdateStatus", mock.Anything, "sub-1", subscription.StatusPastDue).
		Return(nil).Once()
	repo.On("InsertPayment", mock.Anything, mock.MatchedBy(func(p *subscription.Payment) bool {
		return p.Status == subscription.PaymentFailed && p.AmountCents == 1000
	})).Return(nil).Twice()

	require.NoError(t, svc.HandleWebhook(context.Background(), []byte("{}"), "sig"))

	// Replay: already past_due, status write is skipped.
	repo.On("GetByRemoteID", mock.Anything, "sub_remote_1").
		Return(&subscription.Subscription{
			ID:     "sub-1",
			Status: subscription.StatusPastDue,
		}, nil).Once()

	require.NoError(t, svc.HandleWebhook(context.Background(), []byte("{}"), "sig"))

	repo.AssertExpectations(t)
}

func TestHandleWebhook_SubscriptionDeleted(t *testing.T) {
	svc, repo, _, gateway := newTestService(t)

	gateway.On("VerifyWebhook", mock.Anything, "sig").
		Return(&billing.Event{
			Kind:           billing.EventSubscriptionDeleted,
			SubscriptionID: "sub_remote_1",
		}, nil)
	repo.On("UpdateStatusByRemoteID", mock.Anything, "sub_remote_1", subscription.StatusCanceled).
		Return(int64(1), nil)

	err := svc.HandleWebhook(context.Background(), []byte("{}"), "sig")

	require.NoError(t, err)
	repo.AssertExpectations(t)
}

func TestHandleWebhook_IgnoredEvent(t *testing.T) {
	svc, repo, _, gateway := newTestService(t)

	gateway.On("VerifyWebhook", mock.Anything, "sig").
		Return(&billing.Event{Kind: billing.EventIgnored}, nil)

	err := svc.HandleWebhook(context.Background(), []byte("{}"), "sig")

	require.NoError(t, err)
	repo.AssertNotCalled(t, "GetByRemoteID", mock.Anything, mock.Anything)
}

func TestIsSubscribed_OnlyActiveCounts(t *testing.T) {
	svc, repo, _, _ := newTestService(t)

	// A past_due subscription exists, but FindActivePair only matches
	// active rows, so the check reports not subscribed.
	repo.On("FindActivePair", mock.Anything, subscriberID, creatorID).
		Return(nil, core.ErrNotFound)

	subscribed, err := svc.IsSubscribed(context.Background(), subscriberID, creatorID)

	require.NoError(t, err)
	assert.False(t, subscribed)
}

func TestCanAccess_FreeCreator(t *testing.T) {
	svc, _, accounts, _ := newTestService(t)

	accounts.On("GetAccount", mock.Anything, creatorID).
		Return(&subscription.Account{ID: creatorID, MonthlyFee: 0}, nil)

	allowed, err := svc.CanAccess(context.Background(), subscriberID, creatorID)

	require.NoError(t, err)
	assert.True(t, allowed)
}

func TestCanAccess_PaidCreatorWithoutSubscription(t *testing.T) {
	svc, repo, accounts, _ := newTestService(t)

	accounts.On("GetAccount", mock.Anything, creatorID).
		Return(&subscription.Account{ID: creatorID, MonthlyFee: 10}, nil)
	repo.On("FindActivePair", mock.Anything, subscriberID, creatorID).
		Return(nil, core.ErrNotFound)

	allowed, err := svc.CanAccess(context.Background(), subscriberID, creatorID)

	require.NoError(t, err)
	assert.False(t, allowed)
}

func TestCanAccess_PaidCreatorWithSubscription(t *testing.T) {
	svc, repo, accounts, _ := newTestService(t)

	accounts.On("GetAccount", mock.Anything, creatorID).
		Return(&subscription.Account{ID: creatorID, MonthlyFee: 10}, nil)
	repo.On("FindActivePair", mock.Anything, subscriberID, creatorID).
		Return(&subscription.Subscription{Status: subscription.StatusActive}, nil)

	allowed, err := svc.CanAccess(context.Background(), subscriberID, creatorID)

	require.NoError(t, err)
	assert.True(t, allowed)
}

func TestListPayments_NotOwned(t *testing.T) {
	svc, repo, _, _ := newTestService(t)

	repo.On("GetByID", mock.Anything, "sub-1").
		Return(&subscription.Subscription{
			ID:           "sub-1",
			SubscriberID: "someone-else",
		}, nil)

	_, err := svc.ListPayments(context.Background(), subscriberID, "sub-1")

	require.ErrorIs(t, err, core.ErrNotFound)
}

func strPtr(s string) *string {
	return &s
}
