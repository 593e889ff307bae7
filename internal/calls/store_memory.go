package calls

import (
	"context"
	"sync"

	"github.com/aymandakir/voice-ai-call-center/internal/usage"
)

// MemoryStore is an in-memory Store useful for tests and early development.
// Multi-write methods hold one lock for their whole body, mirroring the
// atomicity the Postgres implementation gets from transactions.
type MemoryStore struct {
	mu     sync.Mutex
	calls  map[string]Call // key: call id
	events []CallEvent

	// Usage receives derived usage records on FinalizeCall. Optional; tests
	// that don't care about usage may leave it nil.
	Usage *usage.MemoryRepo

	// FailWrites makes every write return the given error, for testing
	// persistence-failure paths. Nil disables.
	FailWrites error
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{calls: map[string]Call{}, Usage: usage.NewMemoryRepo()}
}

func (s *MemoryStore) CreateCall(ctx context.Context, c Call) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailWrites != nil {
		return s.FailWrites
	}
	s.calls[c.ID] = c
	return nil
}

func (s *MemoryStore) UpdateCall(ctx context.Context, c Call) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailWrites != nil {
		return s.FailWrites
	}
	if _, ok := s.calls[c.ID]; !ok {
		return ErrNotFound
	}
	s.calls[c.ID] = c
	return nil
}

func (s *MemoryStore) GetCall(ctx context.Context, organizationID, callID string) (Call, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.calls[callID]
	if !ok || c.OrganizationID != organizationID {
		return Call{}, ErrNotFound
	}
	return c, nil
}

func (s *MemoryStore) ListCalls(ctx context.Context, organizationID string, f ListFilter) ([]Call, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Call, 0)
	for _, c := range s.calls {
		if c.OrganizationID != organizationID {
			continue
		}
		if f.AgentID != "" && c.AgentID != f.AgentID {
			continue
		}
		if f.Direction != "" && c.Direction != f.Direction {
			continue
		}
		if f.Status != "" && c.Status != f.Status {
			continue
		}
		if f.Outcome != "" && c.Outcome != f.Outcome {
			continue
		}
		if !f.From.IsZero() && c.CreatedAt.Before(f.From) {
			continue
		}
		if !f.To.IsZero() && !c.CreatedAt.Before(f.To) {
			continue
		}
		out = append(out, c)
		if f.Limit > 0 && len(out) >= f.Limit {
			break
		}
	}
	return out, nil
}

func (s *MemoryStore) FindCallByProviderID(ctx context.Context, providerCallID string) (Call, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if providerCallID == "" {
		return Call{}, false, nil
	}
	for _, c := range s.calls {
		if c.ProviderCallID == providerCallID {
			return c, true, nil
		}
	}
	return Call{}, false, nil
}

func (s *MemoryStore) ListEvents(ctx context.Context, callID string) ([]CallEvent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]CallEvent, 0)
	for _, ev := range s.events {
		if ev.CallID == callID {
			out = append(out, ev)
		}
	}
	return out, nil
}

func (s *MemoryStore) CreateCallWithEvent(ctx context.Context, c Call, ev CallEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailWrites != nil {
		return s.FailWrites
	}
	s.calls[c.ID] = c
	s.events = append(s.events, ev)
	return nil
}

func (s *MemoryStore) UpdateCallWithEvent(ctx context.Context, c Call, ev *CallEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailWrites != nil {
		return s.FailWrites
	}
	if _, ok := s.calls[c.ID]; !ok {
		return ErrNotFound
	}
	s.calls[c.ID] = c
	if ev != nil {
		s.events = append(s.events, *ev)
	}
	return nil
}

func (s *MemoryStore) FinalizeCall(ctx context.Context, c Call, ev CallEvent, recs []usage.UsageRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailWrites != nil {
		return s.FailWrites
	}
	if _, ok := s.calls[c.ID]; !ok {
		return ErrNotFound
	}
	s.calls[c.ID] = c
	s.events = append(s.events, ev)
	if s.Usage != nil {
		for _, rec := range recs {
			if err := s.Usage.Append(ctx, rec); err != nil {
				return err
			}
		}
	}
	return nil
}

// Events returns a copy of all appended events, for test assertions.
func (s *MemoryStore) Events() []CallEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]CallEvent, len(s.events))
	copy(out, s.events)
	return out
}
