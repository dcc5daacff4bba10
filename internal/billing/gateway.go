// AngelaMos | 2026
// gateway.go

package billing

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrGateway wraps any billing-provider failure surfaced to callers.
	ErrGateway = errors.New("billing gateway error")
	// ErrInvalidSignature covers bad webhook signatures and malformed payloads.
	ErrInvalidSignature = errors.New("invalid webhook signature")
)

// RemoteSubscription is the provider's view of a subscription after creation.
type RemoteSubscription struct {
	ID                 string
	CurrentPeriodStart time.Time
	CurrentPeriodEnd   time.Time
}

// EventKind is the normalized billing event type. Provider-specific event
// names are mapped onto these; anything else becomes EventIgnored.
type EventKind string

const (
	EventPaymentSucceeded    EventKind = "payment_succeeded"
	EventPaymentFailed       EventKind = "payment_failed"
	EventSubscriptionDeleted EventKind = "subscription_deleted"
	EventIgnored             EventKind = "ignored"
)

// Event is a verified, normalized webhook notification.
type Event struct {
	Kind            EventKind
	ProviderType    string
	SubscriptionID  string
	PaymentIntentID string
	AmountCents     int64
	Currency        string
}

// Gateway abstracts the external payment processor. Implementations own
// authentication, timeouts, and transient-failure retry; callers treat every
// operation as a single synchronous remote call.
type Gateway interface {
	CreateCustomer(ctx context.Context, email, name string) (string, error)
	CreatePrice(ctx context.Context, amountCents int64) (string, error)
	CreateSubscription(
		ctx context.Context,
		customerID, priceID string,
	) (*RemoteSubscription, error)
	CancelAtPeriodEnd(ctx context.Context, subscriptionID string) error
	VerifyWebhook(payload []byte, signature string) (*Event, error)
}
