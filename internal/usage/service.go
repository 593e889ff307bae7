package usage

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	ErrInvalidRecord  = errors.New("usage: invalid record")
	ErrInvalidRequest = errors.New("usage: invalid request")
)

// Repository is the persistence contract for usage records.
//
// It MUST be append-only. No Update/Delete methods are provided by design.
type Repository interface {
	Append(ctx context.Context, rec UsageRecord) error
	ListByOrganization(ctx context.Context, organizationID string, from, to time.Time) ([]UsageRecord, error)
}

type Service struct {
	repo  Repository
	clock func() time.Time
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo, clock: time.Now}
}

func (s *Service) Append(ctx context.Context, rec UsageRecord) error {
	if s.repo == nil {
		return errors.New("usage: repository not configured")
	}
	if rec.OrganizationID == "" || rec.CallID == "" {
		return ErrInvalidRecord
	}
	if rec.MetricType != MetricTypeMinutes && rec.MetricType != MetricTypeCalls {
		return ErrInvalidRecord
	}
	if rec.Quantity < 0 {
		return ErrInvalidRecord
	}

	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = s.clock().UTC()
	}
	return s.repo.Append(ctx, rec)
}

// Summarize aggregates usage over [from, to).
func (s *Service) Summarize(ctx context.Context, organizationID string, from, to time.Time) (Summary, error) {
	if organizationID == "" {
		return Summary{}, ErrInvalidRequest
	}
	if from.IsZero() || to.IsZero() || !to.After(from) {
		return Summary{}, ErrInvalidRequest
	}

	recs, err := s.repo.ListByOrganization(ctx, organizationID, from, to)
	if err != nil {
		return Summary{}, err
	}

	out := Summary{OrganizationID: organizationID, From: from, To: to}
	for _, r := range recs {
		switch r.MetricType {
		case MetricTypeMinutes:
			out.Minutes += r.Quantity
		case MetricTypeCalls:
			out.Calls += r.Quantity
		}
	}
	return out, nil
}

// MonthWindow returns the [start, end) window of the calendar month containing t.
func MonthWindow(t time.Time) (time.Time, time.Time) {
	t = t.UTC()
	start := time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
	return start, start.AddDate(0, 1, 0)
}
