package analytics

import (
	"context"
	"errors"
	"time"

	"github.com/aymandakir/voice-ai-call-center/internal/billing"
	"github.com/aymandakir/voice-ai-call-center/internal/calls"
	"github.com/aymandakir/voice-ai-call-center/internal/usage"
)

var ErrInvalidRange = errors.New("analytics: invalid time range")

// CallSource reads call rows. Satisfied by calls.Store.
type CallSource interface {
	ListCalls(ctx context.Context, organizationID string, f calls.ListFilter) ([]calls.Call, error)
}

// UsageSource aggregates the usage ledger. Satisfied by usage.Service.
type UsageSource interface {
	Summarize(ctx context.Context, organizationID string, from, to time.Time) (usage.Summary, error)
}

// PlanSource answers the organization's effective plan. Satisfied by
// billing.Service.
type PlanSource interface {
	PlanFor(ctx context.Context, organizationID string) (billing.Plan, error)
}

// Service computes dashboard aggregates. It only reads; all derivation
// happens at query time from the call rows and the usage ledger.
type Service struct {
	calls CallSource
	usage UsageSource
	plans PlanSource
}

func NewService(callSrc CallSource, usageSrc UsageSource, planSrc PlanSource) *Service {
	return &Service{calls: callSrc, usage: usageSrc, plans: planSrc}
}

type CallsSummary struct {
	OrganizationID string    `json:"organization_id"`
	From           time.Time `json:"from"`
	To             time.Time `json:"to"`

	Total     int                  `json:"total"`
	ByStatus  map[calls.Status]int `json:"by_status"`
	ByOutcome map[string]int       `json:"by_outcome"`

	Inbound  int `json:"inbound"`
	Outbound int `json:"outbound"`

	TotalDurationSeconds int `json:"total_duration_seconds"`

	// AvgDurationSeconds averages over ended calls only.
	AvgDurationSeconds float64 `json:"avg_duration_seconds"`
}

// CallsSummary aggregates call rows over [from, to).
func (s *Service) CallsSummary(ctx context.Context, organizationID string, from, to time.Time) (CallsSummary, error) {
	if from.IsZero() || to.IsZero() || !to.After(from) {
		return CallsSummary{}, ErrInvalidRange
	}

	rows, err := s.calls.ListCalls(ctx, organizationID, calls.ListFilter{From: from, To: to})
	if err != nil {
		return CallsSummary{}, err
	}

	out := CallsSummary{
		OrganizationID: organizationID,
		From:           from,
		To:             to,
		ByStatus:       map[calls.Status]int{},
		ByOutcome:      map[string]int{},
	}
	ended := 0
	for _, c := range rows {
		out.Total++
		out.ByStatus[c.Status]++
		if c.Outcome != "" {
			out.ByOutcome[c.Outcome]++
		}
		switch c.Direction {
		case calls.DirectionInbound:
			out.Inbound++
		case calls.DirectionOutbound:
			out.Outbound++
		}
		if c.Status == calls.StatusEnded {
			ended++
			out.TotalDurationSeconds += c.DurationSeconds
		}
	}
	if ended > 0 {
		out.AvgDurationSeconds = float64(out.TotalDurationSeconds) / float64(ended)
	}
	return out, nil
}

type UsageSummary struct {
	OrganizationID string    `json:"organization_id"`
	From           time.Time `json:"from"`
	To             time.Time `json:"to"`

	Minutes int64 `json:"minutes"`
	Calls   int64 `json:"calls"`

	Plan             billing.Plan `json:"plan"`
	MinutesRemaining int64        `json:"minutes_remaining"`
	CallsRemaining   int64        `json:"calls_remaining"`
}

// UsageSummary reports the calendar month containing at against the
// organization's plan limits. Remaining values floor at zero.
func (s *Service) UsageSummary(ctx context.Context, organizationID string, at time.Time) (UsageSummary, error) {
	from, to := usage.MonthWindow(at)

	sum, err := s.usage.Summarize(ctx, organizationID, from, to)
	if err != nil {
		return UsageSummary{}, err
	}
	plan, err := s.plans.PlanFor(ctx, organizationID)
	if err != nil {
		return UsageSummary{}, err
	}

	out := UsageSummary{
		OrganizationID:   organizationID,
		From:             from,
		To:               to,
		Minutes:          sum.Minutes,
		Calls:            sum.Calls,
		Plan:             plan,
		MinutesRemaining: remaining(plan.Limits.MonthlyMinutes, sum.Minutes),
		CallsRemaining:   remaining(plan.Limits.MonthlyCalls, sum.Calls),
	}
	return out, nil
}

func remaining(limit, used int64) int64 {
	if used >= limit {
		return 0
	}
	return limit - used
}
