// internal/repository/postgres/subscription_repo.go
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"resonate-service/internal/domain/subscription"
	xerrors "resonate-service/internal/pkg/errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/lib/pq"
)

type SubscriptionRepository struct {
	db *pgxpool.Pool
}

func NewSubscriptionRepository(db *pgxpool.Pool) *SubscriptionRepository {
	return &SubscriptionRepository{db: db}
}

// CheckBilling is the primary source of truth: the account's live
// subscription joined with its plan.
func (r *SubscriptionRepository) CheckBilling(ctx context.Context, accountID string) (*subscription.Info, error) {
	query := `
		SELECT s.account_id, s.status = 'active', p.plan_type,
		       s.current_period_end, s.is_trial, s.trial_end,
		       p.device_slots, p.features
		FROM subscriptions s
		JOIN subscription_plans p ON p.id = s.plan_id
		WHERE s.account_id = $1
		ORDER BY s.created_at DESC
		LIMIT 1
	`

	var info subscription.Info
	var trialEnd sql.NullTime
	var features []string

	err := r.db.QueryRow(ctx, query, accountID).Scan(
		&info.AccountID, &info.Subscribed, &info.PlanType,
		&info.PeriodEnd, &info.IsTrial, &trialEnd,
		&info.DeviceSlots, pq.Array(&features),
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, xerrors.ErrNotSubscribed
		}
		return nil, fmt.Errorf("failed to check billing: %w", err)
	}

	if trialEnd.Valid {
		info.TrialEnd = trialEnd.Time
	}
	info.Features = features
	info.CheckedAt = time.Now()

	return &info, nil
}

// ReadPersisted returns the last snapshot written by a successful billing
// check. It is a degraded source of truth: device_slots and plan state may
// be slightly stale, which is acceptable when the live check is unavailable.
func (r *SubscriptionRepository) ReadPersisted(ctx context.Context, accountID string) (*subscription.Info, error) {
	query := `
		SELECT account_id, subscribed, plan_type, period_end,
		       is_trial, trial_end, device_slots, features, checked_at
		FROM subscription_snapshots
		WHERE account_id = $1
	`

	var info subscription.Info
	var trialEnd sql.NullTime
	var features []string

	err := r.db.QueryRow(ctx, query, accountID).Scan(
		&info.AccountID, &info.Subscribed, &info.PlanType, &info.PeriodEnd,
		&info.IsTrial, &trialEnd, &info.DeviceSlots, pq.Array(&features),
		&info.CheckedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, xerrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to read subscription snapshot: %w", err)
	}

	if trialEnd.Valid {
		info.TrialEnd = trialEnd.Time
	}
	info.Features = features

	return &info, nil
}

// SaveSnapshot upserts the snapshot row after a successful check.
func (r *SubscriptionRepository) SaveSnapshot(ctx context.Context, info *subscription.Info) error {
	query := `
		INSERT INTO subscription_snapshots (
			account_id, subscribed, plan_type, period_end,
			is_trial, trial_end, device_slots, features, checked_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (account_id) DO UPDATE SET
			subscribed = EXCLUDED.subscribed,
			plan_type = EXCLUDED.plan_type,
			period_end = EXCLUDED.period_end,
			is_trial = EXCLUDED.is_trial,
			trial_end = EXCLUDED.trial_end,
			device_slots = EXCLUDED.device_slots,
			features = EXCLUDED.features,
			checked_at = EXCLUDED.checked_at
	`

	var trialEnd sql.NullTime
	if !info.TrialEnd.IsZero() {
		trialEnd = sql.NullTime{Time: info.TrialEnd, Valid: true}
	}

	_, err := r.db.Exec(ctx, query,
		info.AccountID, info.Subscribed, info.PlanType, info.PeriodEnd,
		info.IsTrial, trialEnd, info.DeviceSlots, pq.Array(info.Features),
		info.CheckedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save subscription snapshot: %w", err)
	}

	return nil
}
