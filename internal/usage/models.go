package usage

import "time"

// UsageRecord is an immutable, append-only billing fact.
//
// Invariants:
// - Records are never updated or deleted.
// - organization_id is required for tenancy isolation.
// - One minutes record and one calls record are written per terminal call
//   transition. Re-delivered terminal events append again (at-least-once
//   billing); reconciliation happens downstream against the call event log.
type UsageRecord struct {
	ID             string `json:"id" db:"id"`
	OrganizationID string `json:"organization_id" db:"organization_id"`
	CallID         string `json:"call_id" db:"call_id"`

	MetricType MetricType `json:"metric_type" db:"metric_type"`
	Quantity   int64      `json:"quantity" db:"quantity"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

type MetricType string

const (
	MetricTypeMinutes MetricType = "minutes"
	MetricTypeCalls   MetricType = "calls"
)

// Summary aggregates usage quantities for an organization over a window.
type Summary struct {
	OrganizationID string    `json:"organization_id"`
	From           time.Time `json:"from"`
	To             time.Time `json:"to"`

	Minutes int64 `json:"minutes"`
	Calls   int64 `json:"calls"`
}
