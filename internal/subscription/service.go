// AngelaMos | 2026
// service.go

package subscription

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"

	"github.com/google/uuid"

	"github.com/angelamos/socialfinance/internal/billing"
	"github.com/angelamos/socialfinance/internal/core"
)

// Account is the slice of a user profile the billing flow needs.
type Account struct {
	ID                string
	Email             string
	DisplayName       string
	MonthlyFee        float64
	BillingCustomerID *string
}

type AccountProvider interface {
	GetAccount(ctx context.Context, id string) (*Account, error)
	SetBillingCustomerID(ctx context.Context, id, customerID string) error
}

type Service struct {
	repo     Repository
	accounts AccountProvider
	gateway  billing.Gateway
	logger   *slog.Logger
}

func NewService(
	repo Repository,
	accounts AccountProvider,
	gateway billing.Gateway,
	logger *slog.Logger,
) *Service {
	return &Service{
		repo:     repo,
		accounts: accounts,
		gateway:  gateway,
		logger:   logger,
	}
}

// Subscribe creates a paid subscription from subscriberID to creatorID,
// provisioning the remote customer, price, and subscription before the
// local row is written. The partial unique index on active pairs closes
// the race between concurrent subscribe calls.
func (s *Service) Subscribe(
	ctx context.Context,
	subscriberID, creatorID string,
) (*Subscription, error) {
	if subscriberID == creatorID {
		return nil, fmt.Errorf(
			"subscribe: cannot subscribe to yourself: %w",
			core.ErrInvalidInput,
		)
	}

	if _, err := s.repo.FindActivePair(ctx, subscriberID, creatorID); err == nil {
		return nil, fmt.Errorf("subscribe: %w", core.ErrConflict)
	} else if !errors.Is(err, core.ErrNotFound) {
		return nil, err
	}

	creator, err := s.accounts.GetAccount(ctx, creatorID)
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			return nil, fmt.Errorf("subscribe: creator: %w", core.ErrNotFound)
		}
		return nil, fmt.Errorf("get creator: %w", err)
	}

	if creator.MonthlyFee <= 0 {
		return nil, fmt.Errorf(
			"subscribe: creator does not offer subscriptions: %w",
			core.ErrInvalidState,
		)
	}

	subscriber, err := s.accounts.GetAccount(ctx, subscriberID)
	if err != nil {
		return nil, fmt.Errorf("get subscriber: %w", err)
	}

	customerID, err := s.ensureCustomer(ctx, subscriber)
	if err != nil {
		return nil, err
	}

	amountCents := int64(math.Round(creator.MonthlyFee * 100))

	priceID, err := s.gateway.CreatePrice(ctx, amountCents)
	if err != nil {
		return nil, fmt.Errorf("create price: %w", err)
	}

	remote, err := s.gateway.CreateSubscription(ctx, customerID, priceID)
	if err != nil {
		return nil, fmt.Errorf("create remote subscription: %w", err)
	}

	sub := &Subscription{
		ID:                   uuid.New().String(),
		SubscriberID:         subscriberID,
		CreatorID:            creatorID,
		Status:               StatusActive,
		StripeSubscriptionID: remote.ID,
		CurrentPeriodStart:   &remote.CurrentPeriodStart,
		CurrentPeriodEnd:     &remote.CurrentPeriodEnd,
	}

	if err := s.repo.Create(ctx, sub); err != nil {
		if errors.Is(err, core.ErrConflict) {
			// Lost the race to a concurrent subscribe. The winner's
			// subscription stands; abandon the remote one we created.
			if cancelErr := s.gateway.CancelAtPeriodEnd(ctx, remote.ID); cancelErr != nil {
				s.logger.Warn("failed to cancel orphaned remote subscription",
					"remote_id", remote.ID,
					"error", cancelErr,
				)
			}
			return nil, fmt.Errorf("subscribe: %w", core.ErrConflict)
		}
		return nil, err
	}

	s.logger.Info("subscription created",
		"subscription_id", sub.ID,
		"subscriber_id", subscriberID,
		"creator_id", creatorID,
	)

	return sub, nil
}

func (s *Service) ensureCustomer(
	ctx context.Context,
	account *Account,
) (string, error) {
	if account.BillingCustomerID != nil && *account.BillingCustomerID != "" {
		return *account.BillingCustomerID, nil
	}

	customerID, err := s.gateway.CreateCustomer(
		ctx,
		account.Email,
		account.DisplayName,
	)
	if err != nil {
		return "", fmt.Errorf("create customer: %w", err)
	}

	if err := s.accounts.SetBillingCustomerID(ctx, account.ID, customerID); err != nil {
		return "", fmt.Errorf("persist customer id: %w", err)
	}

	return customerID, nil
}

// Cancel requests end-of-period cancellation remotely and marks the local
// subscription canceled immediately, revoking content access right away.
// Any owned row can be canceled regardless of status; repeating the call
// is a no-op on the provider side.
func (s *Service) Cancel(ctx context.Context, userID, subID string) error {
	sub, err := s.getOwned(ctx, userID, subID)
	if err != nil {
		return err
	}

	if err := s.gateway.CancelAtPeriodEnd(ctx, sub.StripeSubscriptionID); err != nil {
		return fmt.Errorf("cancel remote subscription: %w", err)
	}

	if err := s.repo.UpdateStatus(ctx, sub.ID, StatusCanceled); err != nil {
		return err
	}

	s.logger.Info("subscription canceled",
		"subscription_id", sub.ID,
		"subscriber_id", userID,
	)

	return nil
}

func (s *Service) List(
	ctx context.Context,
	userID string,
) ([]Subscription, error) {
	return s.repo.ListBySubscriber(ctx, userID)
}

func (s *Service) ListSubscribers(
	ctx context.Context,
	creatorID string,
) ([]Subscription, error) {
	return s.repo.ListByCreator(ctx, creatorID)
}

func (s *Service) ListPayments(
	ctx context.Context,
	userID, subID string,
) ([]Payment, error) {
	if _, err := s.getOwned(ctx, userID, subID); err != nil {
		return nil, err
	}

	return s.repo.ListPayments(ctx, subID)
}

// IsSubscribed reports whether subscriberID holds an active subscription
// to creatorID.
func (s *Service) IsSubscribed(
	ctx context.Context,
	subscriberID, creatorID string,
) (bool, error) {
	_, err := s.repo.FindActivePair(ctx, subscriberID, creatorID)
	if errors.Is(err, core.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}

	return true, nil
}

// CanAccess reports whether viewerID may read content gated by
// creatorID. Content from creators without a monthly fee is open;
// everything else requires an active subscription.
func (s *Service) CanAccess(
	ctx context.Context,
	viewerID, creatorID string,
) (bool, error) {
	creator, err := s.accounts.GetAccount(ctx, creatorID)
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			// Author gone; nothing to gate on.
			return true, nil
		}
		return false, fmt.Errorf("get creator: %w", err)
	}

	if creator.MonthlyFee <= 0 {
		return true, nil
	}

	return s.IsSubscribed(ctx, viewerID, creatorID)
}

func (s *Service) CountActive(ctx context.Context) (int, error) {
	return s.repo.CountActive(ctx)
}

// HandleWebhook verifies and applies a billing provider event. Events
// referencing subscriptions we do not know are acknowledged and dropped,
// and status transitions are idempotent under redelivery.
func (s *Service) HandleWebhook(
	ctx context.Context,
	payload []byte,
	signature string,
) error {
	event, err := s.gateway.VerifyWebhook(payload, signature)
	if err != nil {
		return err
	}

	switch event.Kind {
	case billing.EventPaymentSucceeded:
		return s.applyPayment(ctx, event, StatusActive, PaymentSucceeded)
	case billing.EventPaymentFailed:
		return s.applyPayment(ctx, event, StatusPastDue, PaymentFailed)
	case billing.EventSubscriptionDeleted:
		rows, err := s.repo.UpdateStatusByRemoteID(
			ctx,
			event.SubscriptionID,
			StatusCanceled,
		)
		if err != nil {
			return err
		}
		if rows == 0 {
			s.logger.Debug("webhook for unknown subscription",
				"remote_id", event.SubscriptionID,
				"kind", string(event.Kind),
			)
		}
		return nil
	default:
		return nil
	}
}

func (s *Service) applyPayment(
	ctx context.Context,
	event *billing.Event,
	status, paymentStatus string,
) error {
	sub, err := s.repo.GetByRemoteID(ctx, event.SubscriptionID)
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			s.logger.Debug("webhook for unknown subscription",
				"remote_id", event.SubscriptionID,
				"kind", string(event.Kind),
			)
			return nil
		}
		return err
	}

	if sub.Status != status {
		if err := s.repo.UpdateStatus(ctx, sub.ID, status); err != nil {
			return err
		}
	}

	payment := &Payment{
		ID:              uuid.New().String(),
		SubscriptionID:  sub.ID,
		AmountCents:     event.AmountCents,
		Currency:        event.Currency,
		Status:          paymentStatus,
		PaymentIntentID: event.PaymentIntentID,
	}

	if err := s.repo.InsertPayment(ctx, payment); err != nil {
		return err
	}

	s.logger.Info("payment recorded",
		"subscription_id", sub.ID,
		"status", paymentStatus,
		"amount_cents", event.AmountCents,
	)

	return nil
}

func (s *Service) getOwned(
	ctx context.Context,
	userID, subID string,
) (*Subscription, error) {
	sub, err := s.repo.GetByID(ctx, subID)
	if err != nil {
		return nil, err
	}

	// Ownership failures are indistinguishable from missing rows to
	// avoid leaking other users' subscription IDs.
	if sub.SubscriberID != userID {
		return nil, fmt.Errorf("get subscription: %w", core.ErrNotFound)
	}

	return sub, nil
}
