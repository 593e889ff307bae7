package billing

import "time"

// Plan is a static catalog entry. Prices are integer cents; limits are
// monthly quotas consulted by analytics and usage summaries.
type Plan struct {
	ID         string     `json:"id"`
	Name       string     `json:"name"`
	PriceCents int64      `json:"price_cents"`
	Limits     PlanLimits `json:"limits"`
}

type PlanLimits struct {
	MonthlyCalls   int64 `json:"monthly_calls"`
	MonthlyMinutes int64 `json:"monthly_minutes"`
	Agents         int   `json:"agents"`
	PhoneNumbers   int   `json:"phone_numbers"`
}

const (
	PlanFree    = "free"
	PlanStarter = "starter"
	PlanPro     = "pro"
)

var plans = map[string]Plan{
	PlanFree: {
		ID:         PlanFree,
		Name:       "Free",
		PriceCents: 0,
		Limits: PlanLimits{
			MonthlyCalls:   50,
			MonthlyMinutes: 100,
			Agents:         1,
			PhoneNumbers:   1,
		},
	},
	PlanStarter: {
		ID:         PlanStarter,
		Name:       "Starter",
		PriceCents: 2900,
		Limits: PlanLimits{
			MonthlyCalls:   500,
			MonthlyMinutes: 1000,
			Agents:         3,
			PhoneNumbers:   2,
		},
	},
	PlanPro: {
		ID:         PlanPro,
		Name:       "Pro",
		PriceCents: 9900,
		Limits: PlanLimits{
			MonthlyCalls:   5000,
			MonthlyMinutes: 10000,
			Agents:         10,
			PhoneNumbers:   5,
		},
	},
}

// PlanByID looks up a catalog plan.
func PlanByID(id string) (Plan, bool) {
	p, ok := plans[id]
	return p, ok
}

// Subscription mirrors the payment provider's subscription for one
// organization. One subscription per organization; webhook deliveries upsert.
type Subscription struct {
	ID             string `json:"id" db:"id"`
	OrganizationID string `json:"organization_id" db:"organization_id"`

	ProviderSubscriptionID string `json:"provider_subscription_id" db:"provider_subscription_id"`
	ProviderCustomerID     string `json:"provider_customer_id" db:"provider_customer_id"`

	Status SubscriptionStatus `json:"status" db:"status"`
	PlanID string             `json:"plan_id" db:"plan_id"`

	CurrentPeriodStart time.Time `json:"current_period_start" db:"current_period_start"`
	CurrentPeriodEnd   time.Time `json:"current_period_end" db:"current_period_end"`
	CancelAtPeriodEnd  bool      `json:"cancel_at_period_end" db:"cancel_at_period_end"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

type SubscriptionStatus string

const (
	SubscriptionActive   SubscriptionStatus = "active"
	SubscriptionTrialing SubscriptionStatus = "trialing"
	SubscriptionPastDue  SubscriptionStatus = "past_due"
	SubscriptionCanceled SubscriptionStatus = "canceled"
)

// IsEntitled reports whether the subscription grants paid-plan access.
func (s SubscriptionStatus) IsEntitled() bool {
	return s == SubscriptionActive || s == SubscriptionTrialing
}
