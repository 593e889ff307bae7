package agents

import (
	"context"
	"sync"
)

// MemoryRepo is a simple in-memory repository useful for tests and early
// development. It enforces organization isolation on reads.
type MemoryRepo struct {
	mu     sync.Mutex
	agents map[string]Agent // key: agent id
}

func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{agents: map[string]Agent{}}
}

func (r *MemoryRepo) Create(ctx context.Context, a Agent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.agents[a.ID] = a
	return nil
}

func (r *MemoryRepo) Update(ctx context.Context, a Agent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	existing, ok := r.agents[a.ID]
	if !ok || existing.OrganizationID != a.OrganizationID {
		return ErrNotFound
	}
	r.agents[a.ID] = a
	return nil
}

func (r *MemoryRepo) Delete(ctx context.Context, organizationID, agentID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	existing, ok := r.agents[agentID]
	if !ok || existing.OrganizationID != organizationID {
		return ErrNotFound
	}
	delete(r.agents, agentID)
	return nil
}

func (r *MemoryRepo) Get(ctx context.Context, organizationID, agentID string) (Agent, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.agents[agentID]
	if !ok || a.OrganizationID != organizationID {
		return Agent{}, ErrNotFound
	}
	return a, nil
}

func (r *MemoryRepo) List(ctx context.Context, organizationID string) ([]Agent, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Agent, 0)
	for _, a := range r.agents {
		if a.OrganizationID == organizationID {
			out = append(out, a)
		}
	}
	return out, nil
}

func (r *MemoryRepo) ResolveByProviderID(ctx context.Context, voiceProviderID string) (AgentRef, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, a := range r.agents {
		if a.VoiceProviderID == voiceProviderID {
			return AgentRef{AgentID: a.ID, OrganizationID: a.OrganizationID}, nil
		}
	}
	return AgentRef{}, ErrNotFound
}
