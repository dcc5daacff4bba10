// AngelaMos | 2026
// entity.go

package subscription

import (
	"time"
)

const (
	StatusActive   = "active"
	StatusCanceled = "canceled"
	StatusPastDue  = "past_due"
)

type Subscription struct {
	ID                   string     `db:"id"`
	SubscriberID         string     `db:"subscriber_id"`
	CreatorID            string     `db:"creator_id"`
	Status               string     `db:"status"`
	StripeSubscriptionID string     `db:"stripe_subscription_id"`
	CurrentPeriodStart   *time.Time `db:"current_period_start"`
	CurrentPeriodEnd     *time.Time `db:"current_period_end"`
	CreatedAt            time.Time  `db:"created_at"`
	UpdatedAt            time.Time  `db:"updated_at"`
}

func (s *Subscription) IsActive() bool {
	return s.Status == StatusActive
}

type Payment struct {
	ID              string    `db:"id"`
	SubscriptionID  string    `db:"subscription_id"`
	AmountCents     int64     `db:"amount_cents"`
	Currency        string    `db:"currency"`
	Status          string    `db:"status"`
	PaymentIntentID string    `db:"payment_intent_id"`
	CreatedAt       time.Time `db:"created_at"`
}

const (
	PaymentSucceeded = "succeeded"
	PaymentFailed    = "failed"
)
