package voice

import (
	"context"
	"errors"
	"sync"

	"github.com/google/uuid"
)

// MockProvider is a deterministic stand-in for a real voice vendor, used in
// local/dev environments and tests. It records started calls and can be told
// to fail, so initiator failure paths are testable.
type MockProvider struct {
	mu      sync.Mutex
	started []StartCallRequest

	// FailNext makes the next StartOutboundCall return an error.
	FailNext bool
}

func NewMockProvider() *MockProvider { return &MockProvider{} }

func (p *MockProvider) Name() string { return "mock" }

var errMockStartFailed = errors.New("voice: mock provider start failed")

func (p *MockProvider) StartOutboundCall(ctx context.Context, req StartCallRequest) (StartCallResult, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.FailNext {
		p.FailNext = false
		return StartCallResult{}, errMockStartFailed
	}

	p.started = append(p.started, req)
	return StartCallResult{
		ProviderCallID: "mock_call_" + uuid.NewString(),
		Status:         "initiated",
	}, nil
}

// Started returns a copy of the recorded start requests.
func (p *MockProvider) Started() []StartCallRequest {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]StartCallRequest, len(p.started))
	copy(out, p.started)
	return out
}
