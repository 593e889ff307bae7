package usage

import (
	"context"
	"errors"
	"sync"
	"time"
)

// MemoryRepo is a simple in-memory append-only repository useful for tests.
// It is not intended for production use.
type MemoryRepo struct {
	mu      sync.Mutex
	records []UsageRecord
}

func NewMemoryRepo() *MemoryRepo { return &MemoryRepo{} }

func (r *MemoryRepo) Append(ctx context.Context, rec UsageRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records = append(r.records, rec)
	return nil
}

func (r *MemoryRepo) ListByOrganization(ctx context.Context, organizationID string, from, to time.Time) ([]UsageRecord, error) {
	if organizationID == "" {
		return nil, errors.New("organization_id required")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]UsageRecord, 0)
	for _, rec := range r.records {
		if rec.OrganizationID != organizationID {
			continue
		}
		if !rec.CreatedAt.IsZero() {
			if rec.CreatedAt.Before(from) || !rec.CreatedAt.Before(to) {
				continue
			}
		}
		out = append(out, rec)
	}
	return out, nil
}

// Records returns a copy of all appended records, regardless of organization.
func (r *MemoryRepo) Records() []UsageRecord {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]UsageRecord, len(r.records))
	copy(out, r.records)
	return out
}
