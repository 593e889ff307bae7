package voice

import (
	"context"
	"errors"

	"github.com/aymandakir/voice-ai-call-center/internal/config"
)

// Provider is the provider-agnostic interface for the external voice-agent
// vendor. Business logic must only depend on this abstraction; vendor SDK
// calls live in adapters.
//
// The provider is constructed once in main from config and injected wherever
// it is needed. No package-level instance exists.
type Provider interface {
	Name() string

	// StartOutboundCall asks the vendor to place a call. The vendor reports
	// progress asynchronously to CallbackURL via the voice webhook.
	StartOutboundCall(ctx context.Context, req StartCallRequest) (StartCallResult, error)
}

type StartCallRequest struct {
	// AgentID is the provider-assigned agent identifier (voice_provider_id),
	// falling back to our internal agent id for providers that accept it.
	AgentID string `json:"agent_id"`

	FromNumber  string `json:"from_number"`
	ToNumber    string `json:"to_number"`
	CallbackURL string `json:"callback_url,omitempty"`
}

type StartCallResult struct {
	ProviderCallID string `json:"provider_call_id"`

	// Status is the vendor's initial call status, normally "initiated".
	Status string `json:"status"`
}

var ErrUnknownProvider = errors.New("voice: unknown provider")

// New builds the configured provider. Real vendor adapters register here.
func New(cfg config.VoiceConfig) (Provider, error) {
	switch cfg.Provider {
	case "", "mock":
		return NewMockProvider(), nil
	default:
		return nil, ErrUnknownProvider
	}
}
