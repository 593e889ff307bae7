package billing

import (
	"context"
	"sync"
)

// MemoryRepo is an in-memory subscription repository for tests and early
// development.
type MemoryRepo struct {
	mu   sync.Mutex
	subs map[string]Subscription // key: organization id
}

func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{subs: map[string]Subscription{}}
}

func (r *MemoryRepo) Upsert(ctx context.Context, sub Subscription) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.subs[sub.OrganizationID] = sub
	return nil
}

func (r *MemoryRepo) GetByOrganization(ctx context.Context, organizationID string) (Subscription, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	sub, ok := r.subs[organizationID]
	if !ok {
		return Subscription{}, ErrNotFound
	}
	return sub, nil
}

func (r *MemoryRepo) FindByProviderSubscriptionID(ctx context.Context, providerSubscriptionID string) (Subscription, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, sub := range r.subs {
		if sub.ProviderSubscriptionID == providerSubscriptionID {
			return sub, nil
		}
	}
	return Subscription{}, ErrNotFound
}
