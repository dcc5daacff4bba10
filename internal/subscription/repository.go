// AngelaMos | 2026
// repository.go

package subscription

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/angelamos/socialfinance/internal/core"
)

const subscriptionColumns = `
	id, subscriber_id, creator_id, status, stripe_subscription_id,
	current_period_start, current_period_end, created_at, updated_at`

type Repository interface {
	Create(ctx context.Context, sub *Subscription) error
	GetByID(ctx context.Context, id string) (*Subscription, error)
	GetByRemoteID(ctx context.Context, remoteID string) (*Subscription, error)
	FindActivePair(
		ctx context.Context,
		subscriberID, creatorID string,
	) (*Subscription, error)
	ListBySubscriber(
		ctx context.Context,
		subscriberID string,
	) ([]Subscription, error)
	ListByCreator(ctx context.Context, creatorID string) ([]Subscription, error)
	UpdateStatus(ctx context.Context, id, status string) error
	UpdateStatusByRemoteID(
		ctx context.Context,
		remoteID, status string,
	) (int64, error)
	InsertPayment(ctx context.Context, payment *Payment) error
	ListPayments(ctx context.Context, subscriptionID string) ([]Payment, error)
	CountActive(ctx context.Context) (int, error)
}

type repository struct {
	db core.DBTX
}

func NewRepository(db core.DBTX) Repository {
	return &repository{db: db}
}

func (r *repository) Create(ctx context.Context, sub *Subscription) error {
	query := `
		INSERT INTO subscriptions (
			id, subscriber_id, creator_id, status, stripe_subscription_id,
			current_period_start, current_period_end
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at, updated_at`

	err := r.db.GetContext(ctx, sub, query,
		sub.ID,
		sub.SubscriberID,
		sub.CreatorID,
		sub.Status,
		sub.StripeSubscriptionID,
		sub.CurrentPeriodStart,
		sub.CurrentPeriodEnd,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return fmt.Errorf("create subscription: %w", core.ErrConflict)
		}
		return fmt.Errorf("create subscription: %w", err)
	}

	return nil
}

func (r *repository) GetByID(
	ctx context.Context,
	id string,
) (*Subscription, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM subscriptions
		WHERE id = $1`, subscriptionColumns)

	var sub Subscription
	err := r.db.GetContext(ctx, &sub, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("get subscription: %w", core.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get subscription: %w", err)
	}

	return &sub, nil
}

func (r *repository) GetByRemoteID(
	ctx context.Context,
	remoteID string,
) (*Subscription, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM subscriptions
		WHERE stripe_subscription_id = $1`, subscriptionColumns)

	var sub Subscription
	err := r.db.GetContext(ctx, &sub, query, remoteID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("get subscription by remote id: %w", core.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get subscription by remote id: %w", err)
	}

	return &sub, nil
}

func (r *repository) FindActivePair(
	ctx context.Context,
	subscriberID, creatorID string,
) (*Subscription, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM subscriptions
		WHERE subscriber_id = $1
			AND creator_id = $2
			AND status = 'active'`, subscriptionColumns)

	var sub Subscription
	err := r.db.GetContext(ctx, &sub, query, subscriberID, creatorID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("find active subscription: %w", core.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("find active subscription: %w", err)
	}

	return &sub, nil
}

func (r *repository) ListBySubscriber(
	ctx context.Context,
	subscriberID string,
) ([]Subscription, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM subscriptions
		WHERE subscriber_id = $1
		ORDER BY created_at DESC`, subscriptionColumns)

	var subs []Subscription
	if err := r.db.SelectContext(ctx, &subs, query, subscriberID); err != nil {
		return nil, fmt.Errorf("list subscriptions: %w", err)
	}

	return subs, nil
}

func (r *repository) ListByCreator(
	ctx context.Context,
	creatorID string,
) ([]Subscription, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM subscriptions
		WHERE creator_id = $1 AND status = 'active'
		ORDER BY created_at DESC`, subscriptionColumns)

	var subs []Subscription
	if err := r.db.SelectContext(ctx, &subs, query, creatorID); err != nil {
		return nil, fmt.Errorf("list subscribers: %w", err)
	}

	return subs, nil
}

func (r *repository) UpdateStatus(
	ctx context.Context,
	id, status string,
) error {
	query := `
		UPDATE subscriptions
		SET status = $2, updated_at = NOW()
		WHERE id = $1`

	result, err := r.db.ExecContext(ctx, query, id, status)
	if err != nil {
		return fmt.Errorf("update subscription status: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update subscription status: %w", err)
	}

	if rows == 0 {
		return fmt.Errorf("update subscription status: %w", core.ErrNotFound)
	}

	return nil
}

func (r *repository) UpdateStatusByRemoteID(
	ctx context.Context,
	remoteID, status string,
) (int64, error) {
	query := `
		UPDATE subscriptions
		SET status = $2, updated_at = NOW()
		WHERE stripe_subscription_id = $1`

	result, err := r.db.ExecContext(ctx, query, remoteID, status)
	if err != nil {
		return 0, fmt.Errorf("update subscription by remote id: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("update subscription by remote id: %w", err)
	}

	return rows, nil
}

func (r *repository) InsertPayment(
	ctx context.Context,
	payment *Payment,
) error {
	query := `
		INSERT INTO payment_history (
			id, subscription_id, amount_cents, currency, status,
			payment_intent_id
		)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at`

	err := r.db.GetContext(ctx, &payment.CreatedAt, query,
		payment.ID,
		payment.SubscriptionID,
		payment.AmountCents,
		payment.Currency,
		payment.Status,
		payment.PaymentIntentID,
	)
	if err != nil {
		return fmt.Errorf("insert payment: %w", err)
	}

	return nil
}

func (r *repository) ListPayments(
	ctx context.Context,
	subscriptionID string,
) ([]Payment, error) {
	query := `
		SELECT id, subscription_id, amount_cents, currency, status,
		       payment_intent_id, created_at
		FROM payment_history
		WHERE subscription_id = $1
		ORDER BY created_at DESC`

	var payments []Payment
	err := r.db.SelectContext(ctx, &payments, query, subscriptionID)
	if err != nil {
		return nil, fmt.Errorf("list payments: %w", err)
	}

	return payments, nil
}

func (r *repository) CountActive(ctx context.Context) (int, error) {
	var count int
	query := `SELECT COUNT(*) FROM subscriptions WHERE status = 'active'`

	if err := r.db.GetContext(ctx, &count, query); err != nil {
		return 0, fmt.Errorf("count active subscriptions: %w", err)
	}

	return count, nil
}
