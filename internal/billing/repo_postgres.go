package billing

import (
	"context"
	"database/sql"
	"errors"
)

// PostgresRepo persists subscriptions in the subscriptions table.
//
// Assumed schema:
//
//	subscriptions(id, organization_id UNIQUE, provider_subscription_id,
//	              provider_customer_id, status, plan_id,
//	              current_period_start, current_period_end,
//	              cancel_at_period_end, created_at, updated_at)
type PostgresRepo struct {
	db *sql.DB
}

func NewPostgresRepo(db *sql.DB) *PostgresRepo { return &PostgresRepo{db: db} }

const subColumns = `id, organization_id, provider_subscription_id, provider_customer_id,
status, plan_id, current_period_start, current_period_end, cancel_at_period_end,
created_at, updated_at`

func (r *PostgresRepo) Upsert(ctx context.Context, sub Subscription) error {
	const q = `
INSERT INTO subscriptions (` + subColumns + `)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
ON CONFLICT (organization_id) DO UPDATE SET
  provider_subscription_id = EXCLUDED.provider_subscription_id,
  provider_customer_id = EXCLUDED.provider_customer_id,
  status = EXCLUDED.status,
  plan_id = EXCLUDED.plan_id,
  current_period_start = EXCLUDED.current_period_start,
  current_period_end = EXCLUDED.current_period_end,
  cancel_at_period_end = EXCLUDED.cancel_at_period_end,
  updated_at = EXCLUDED.updated_at
`
	_, err := r.db.ExecContext(ctx, q,
		sub.ID, sub.OrganizationID, sub.ProviderSubscriptionID, sub.ProviderCustomerID,
		sub.Status, sub.PlanID, sub.CurrentPeriodStart, sub.CurrentPeriodEnd,
		sub.CancelAtPeriodEnd, sub.CreatedAt, sub.UpdatedAt,
	)
	return err
}

func (r *PostgresRepo) GetByOrganization(ctx context.Context, organizationID string) (Subscription, error) {
	const q = `
SELECT ` + subColumns + `
FROM subscriptions
WHERE organization_id = $1
`
	return r.scanOne(r.db.QueryRowContext(ctx, q, organizationID))
}

func (r *PostgresRepo) FindByProviderSubscriptionID(ctx context.Context, providerSubscriptionID string) (Subscription, error) {
	const q = `
SELECT ` + subColumns + `
FROM subscriptions
WHERE provider_subscription_id = $1
`
	return r.scanOne(r.db.QueryRowContext(ctx, q, providerSubscriptionID))
}

func (r *PostgresRepo) scanOne(row *sql.Row) (Subscription, error) {
	var sub Subscription
	err := row.Scan(
		&sub.ID, &sub.OrganizationID, &sub.ProviderSubscriptionID, &sub.ProviderCustomerID,
		&sub.Status, &sub.PlanID, &sub.CurrentPeriodStart, &sub.CurrentPeriodEnd,
		&sub.CancelAtPeriodEnd, &sub.CreatedAt, &sub.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return Subscription{}, ErrNotFound
	}
	if err != nil {
		return Subscription{}, err
	}
	return sub, nil
}
