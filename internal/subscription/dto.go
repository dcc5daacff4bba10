// AngelaMos | 2026
// dto.go

package subscription

import (
	"time"
)

type SubscribeRequest struct {
	CreatorID string `json:"creator_id" validate:"required,uuid4"`
}

type SubscriptionResponse struct {
	ID                 string     `json:"id"`
	SubscriberID       string     `json:"subscriber_id"`
	CreatorID          string     `json:"creator_id"`
	Status             string     `json:"status"`
	CurrentPeriodStart *time.Time `json:"current_period_start,omitempty"`
	CurrentPeriodEnd   *time.Time `json:"current_period_end,omitempty"`
	CreatedAt          time.Time  `json:"created_at"`
}

type CheckResponse struct {
	IsSubscribed bool `json:"is_subscribed"`
}

type PaymentResponse struct {
	ID              string    `json:"id"`
	SubscriptionID  string    `json:"subscription_id"`
	AmountCents     int64     `json:"amount_cents"`
	Currency        string    `json:"currency"`
	Status          string    `json:"status"`
	PaymentIntentID string    `json:"payment_intent_id,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
}

func ToSubscriptionResponse(s *Subscription) SubscriptionResponse {
	return SubscriptionResponse{
		ID:                 s.ID,
		SubscriberID:       s.SubscriberID,
		CreatorID:          s.CreatorID,
		Status:             s.Status,
		CurrentPeriodStart: s.CurrentPeriodStart,
		CurrentPeriodEnd:   s.CurrentPeriodEnd,
		CreatedAt:          s.CreatedAt,
	}
}

func ToSubscriptionResponseList(subs []Subscription) []SubscriptionResponse {
	out := make([]SubscriptionResponse, 0, len(subs))
	for i := range subs {
		out = append(out, ToSubscriptionResponse(&subs[i]))
	}
	return out
}

func ToPaymentResponse(p *Payment) PaymentResponse {
	return PaymentResponse{
		ID:              p.ID,
		SubscriptionID:  p.SubscriptionID,
		AmountCents:     p.AmountCents,
		Currency:        p.Currency,
		Status:          p.Status,
		PaymentIntentID: p.PaymentIntentID,
		CreatedAt:       p.CreatedAt,
	}
}

func ToPaymentResponseList(payments []Payment) []PaymentResponse {
	out := make([]PaymentResponse, 0, len(payments))
	for i := range payments {
		out = append(out, ToPaymentResponse(&payments[i]))
	}
	return out
}
