// AngelaMos | 2026
// stripe.go

package billing

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	stripe "github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/client"
	"github.com/stripe/stripe-go/v76/webhook"

	"github.com/angelamos/socialfinance/internal/config"
)

// StripeGateway implements Gateway against the Stripe API. The API client is
// injected rather than configured through the SDK's package-level key.
type StripeGateway struct {
	api           *client.API
	webhookSecret string
	currency      string
	callTimeout   time.Duration
	maxAttempts   int
	retryInterval time.Duration
}

func NewStripeGateway(
	stripeCfg config.StripeConfig,
	billingCfg config.BillingConfig,
) *StripeGateway {
	return &StripeGateway{
		api:           client.New(stripeCfg.SecretKey, nil),
		webhookSecret: stripeCfg.WebhookSecret,
		currency:      billingCfg.Currency,
		callTimeout:   billingCfg.CallTimeout,
		maxAttempts:   billingCfg.MaxAttempts,
		retryInterval: billingCfg.RetryInterval,
	}
}

func (g *StripeGateway) CreateCustomer(
	ctx context.Context,
	email, name string,
) (string, error) {
	var customerID string

	err := g.withRetry(ctx, func(callCtx context.Context) error {
		params := &stripe.CustomerParams{
			Params: stripe.Params{Context: callCtx},
			Email:  stripe.String(email),
			Name:   stripe.String(name),
		}

		customer, err := g.api.Customers.New(params)
		if err != nil {
			return err
		}

		customerID = customer.ID
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("create customer: %w: %w", ErrGateway, err)
	}

	return customerID, nil
}

func (g *StripeGateway) CreatePrice(
	ctx context.Context,
	amountCents int64,
) (string, error) {
	var priceID string

	err := g.withRetry(ctx, func(callCtx context.Context) error {
		params := &stripe.PriceParams{
			Params:     stripe.Params{Context: callCtx},
			UnitAmount: stripe.Int64(amountCents),
			Currency:   stripe.String(g.currency),
			Recurring: &stripe.PriceRecurringParams{
				Interval: stripe.String(
					string(stripe.PriceRecurringIntervalMonth),
				),
			},
			ProductData: &stripe.PriceProductDataParams{
				Name: stripe.String(fmt.Sprintf(
					"Monthly Subscription - $%.2f",
					float64(amountCents)/100,
				)),
			},
		}

		price, err := g.api.Prices.New(params)
		if err != nil {
			return err
		}

		priceID = price.ID
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("create price: %w: %w", ErrGateway, err)
	}

	return priceID, nil
}

func (g *StripeGateway) CreateSubscription(
	ctx context.Context,
	customerID, priceID string,
) (*RemoteSubscription, error) {
	var remote *RemoteSubscription

	err := g.withRetry(ctx, func(callCtx context.Context) error {
		params := &stripe.SubscriptionParams{
			Params:   stripe.Params{Context: callCtx},
			Customer: stripe.String(customerID),
			Items: []*stripe.SubscriptionItemsParams{
				{Price: stripe.String(priceID)},
			},
			PaymentBehavior: stripe.String("default_incomplete"),
			PaymentSettings: &stripe.SubscriptionPaymentSettingsParams{
				SaveDefaultPaymentMethod: stripe.String("on_subscription"),
			},
		}

		sub, err := g.api.Subscriptions.New(params)
		if err != nil {
			return err
		}

		remote = &RemoteSubscription{
			ID:                 sub.ID,
			CurrentPeriodStart: time.Unix(sub.CurrentPeriodStart, 0).UTC(),
			CurrentPeriodEnd:   time.Unix(sub.CurrentPeriodEnd, 0).UTC(),
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("create subscription: %w: %w", ErrGateway, err)
	}

	return remote, nil
}

func (g *StripeGateway) CancelAtPeriodEnd(
	ctx context.Context,
	subscriptionID string,
) error {
	err := g.withRetry(ctx, func(callCtx context.Context) error {
		params := &stripe.SubscriptionParams{
			Params:            stripe.Params{Context: callCtx},
			CancelAtPeriodEnd: stripe.Bool(true),
		}

		_, err := g.api.Subscriptions.Update(subscriptionID, params)
		return err
	})
	if err != nil {
		return fmt.Errorf("cancel subscription: %w: %w", ErrGateway, err)
	}

	return nil
}

func (g *StripeGateway) VerifyWebhook(
	payload []byte,
	signature string,
) (*Event, error) {
	stripeEvent, err := webhook.ConstructEvent(
		payload,
		signature,
		g.webhookSecret,
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidSignature, err)
	}

	return normalizeEvent(stripeEvent), nil
}

func normalizeEvent(ev stripe.Event) *Event {
	event := &Event{
		Kind:         EventIgnored,
		ProviderType: string(ev.Type),
	}

	obj := map[string]any{}
	if ev.Data != nil {
		obj = ev.Data.Object
	}

	switch string(ev.Type) {
	case "invoice.payment_succeeded":
		event.Kind = EventPaymentSucceeded
		event.SubscriptionID = stringField(obj, "subscription")
		event.PaymentIntentID = stringField(obj, "payment_intent")
		event.AmountCents = int64Field(obj, "amount_paid")
		event.Currency = stringField(obj, "currency")
	case "invoice.payment_failed":
		event.Kind = EventPaymentFailed
		event.SubscriptionID = stringField(obj, "subscription")
		event.PaymentIntentID = stringField(obj, "payment_intent")
		event.AmountCents = int64Field(obj, "amount_due")
		event.Currency = stringField(obj, "currency")
	case "customer.subscription.deleted":
		event.Kind = EventSubscriptionDeleted
		event.SubscriptionID = stringField(obj, "id")
	}

	return event
}

func stringField(obj map[string]any, key string) string {
	if v, ok := obj[key].(string); ok {
		return v
	}
	return ""
}

func int64Field(obj map[string]any, key string) int64 {
	if v, ok := obj[key].(float64); ok {
		return int64(v)
	}
	return 0
}

// withRetry runs fn with a fixed per-call timeout and retries transient
// failures with exponential backoff, up to maxAttempts total attempts.
func (g *StripeGateway) withRetry(
	ctx context.Context,
	fn func(ctx context.Context) error,
) error {
	attempts := g.maxAttempts
	if attempts < 1 {
		attempts = 1
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		callCtx, cancel := context.WithTimeout(ctx, g.callTimeout)
		err := fn(callCtx)
		cancel()

		if err == nil {
			return nil
		}
		lastErr = err

		if !isTransient(err) || attempt == attempts {
			break
		}

		select {
		case <-time.After(backoffInterval(g.retryInterval, attempt)):
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	return lastErr
}

func backoffInterval(base time.Duration, attempt int) time.Duration {
	if base <= 0 {
		base = 500 * time.Millisecond
	}
	return time.Duration(float64(base) * math.Pow(2, float64(attempt-1)))
}

// isTransient treats provider 5xx and lock-timeout responses as retryable,
// along with plain transport errors. Context cancellation and client-level
// API errors (4xx) are terminal.
func isTransient(err error) bool {
	if errors.Is(err, context.Canceled) ||
		errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	var stripeErr *stripe.Error
	if errors.As(err, &stripeErr) {
		if stripeErr.HTTPStatusCode >= 500 {
			return true
		}
		return stripeErr.Code == stripe.ErrorCodeLockTimeout
	}

	return true
}

var _ Gateway = (*StripeGateway)(nil)
