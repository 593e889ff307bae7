package calls

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/aymandakir/voice-ai-call-center/internal/agents"
	"github.com/aymandakir/voice-ai-call-center/internal/voice"
)

var (
	// ErrNoFromNumber means neither the request nor the agent carries a
	// caller id to place the call from.
	ErrNoFromNumber = errors.New("calls: no from number available")

	// ErrConcurrencyLimit means the organization's outbound cap is reached.
	ErrConcurrencyLimit = errors.New("calls: outbound concurrency limit reached")

	// ErrAgentInactive means the agent exists but is disabled.
	ErrAgentInactive = errors.New("calls: agent is inactive")
)

// e164Pattern matches international phone numbers, optional leading plus.
var e164Pattern = regexp.MustCompile(`^\+?[1-9]\d{1,14}$`)

// AgentGetter fetches one agent within an organization. Satisfied by
// agents.Service.
type AgentGetter interface {
	Get(ctx context.Context, organizationID, agentID string) (agents.Agent, error)
}

// Initiator places outbound calls through the voice provider.
//
// The call row is created before the vendor request so the webhook
// synchronizer can correlate deliveries the moment the vendor starts
// reporting. A failed start marks the row failed; rows are never deleted.
type Initiator struct {
	store    Store
	agents   AgentGetter
	provider voice.Provider
	limiter  ConcurrencyLimiter
	log      *slog.Logger

	// callbackURL is handed to the vendor for webhook deliveries.
	callbackURL string

	clock func() time.Time
	newID func() string
}

func NewInitiator(store Store, getter AgentGetter, provider voice.Provider, limiter ConcurrencyLimiter, callbackURL string, log *slog.Logger) *Initiator {
	if log == nil {
		log = slog.Default()
	}
	return &Initiator{
		store:       store,
		agents:      getter,
		provider:    provider,
		limiter:     limiter,
		log:         log,
		callbackURL: callbackURL,
		clock:       time.Now,
		newID:       uuid.NewString,
	}
}

type StartOutboundRequest struct {
	AgentID  string `json:"agent_id"`
	ToNumber string `json:"to_number"`

	// FromNumber overrides the agent's configured caller id when set.
	FromNumber string `json:"from_number,omitempty"`
}

// StartOutbound validates the request, reserves a concurrency slot and asks
// the provider to place the call. The returned Call is in status initiated
// with the vendor's call id attached, or in status failed when the vendor
// rejected the start.
func (i *Initiator) StartOutbound(ctx context.Context, organizationID string, req StartOutboundRequest) (Call, error) {
	if organizationID == "" || req.AgentID == "" {
		return Call{}, ErrInvalidArgument
	}
	to := strings.TrimSpace(req.ToNumber)
	if !e164Pattern.MatchString(to) {
		return Call{}, fmt.Errorf("%w: to_number must be E.164", ErrInvalidArgument)
	}

	agent, err := i.agents.Get(ctx, organizationID, req.AgentID)
	if err != nil {
		if errors.Is(err, agents.ErrNotFound) {
			return Call{}, fmt.Errorf("%w: agent %q", ErrAgentNotFound, req.AgentID)
		}
		return Call{}, err
	}
	if !agent.IsActive {
		return Call{}, ErrAgentInactive
	}

	from := strings.TrimSpace(req.FromNumber)
	if from == "" {
		from = strings.TrimSpace(agent.PhoneNumber)
	}
	if from == "" {
		return Call{}, ErrNoFromNumber
	}

	ok, err := i.limiter.Acquire(ctx, organizationID)
	if err != nil {
		return Call{}, err
	}
	if !ok {
		return Call{}, ErrConcurrencyLimit
	}

	now := i.clock().UTC()
	call := Call{
		ID:             i.newID(),
		OrganizationID: organizationID,
		AgentID:        agent.ID,
		Direction:      DirectionOutbound,
		FromNumber:     from,
		ToNumber:       to,
		Status:         StatusInitiated,
		StartedAt:      &now,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := i.store.CreateCall(ctx, call); err != nil {
		i.release(ctx, organizationID)
		return Call{}, err
	}

	providerAgentID := agent.VoiceProviderID
	if providerAgentID == "" {
		providerAgentID = agent.ID
	}
	result, err := i.provider.StartOutboundCall(ctx, voice.StartCallRequest{
		AgentID:     providerAgentID,
		FromNumber:  from,
		ToNumber:    to,
		CallbackURL: i.callbackURL,
	})
	if err != nil {
		i.markStartFailed(ctx, call, err)
		i.release(ctx, organizationID)
		return Call{}, fmt.Errorf("calls: provider start failed: %w", err)
	}

	call.ProviderCallID = result.ProviderCallID
	call.UpdatedAt = i.clock().UTC()
	if err := i.store.UpdateCall(ctx, call); err != nil {
		return Call{}, err
	}
	i.log.InfoContext(ctx, "outbound call started",
		"call_id", call.ID, "organization_id", organizationID,
		"agent_id", agent.ID, "provider_call_id", call.ProviderCallID)
	return call, nil
}

// markStartFailed records the vendor rejection on the row and its event log.
// The row stays as a billing-free audit fact.
func (i *Initiator) markStartFailed(ctx context.Context, call Call, cause error) {
	now := i.clock().UTC()
	call.Status = StatusFailed
	call.Outcome = "failed"
	call.EndedAt = &now
	call.UpdatedAt = now

	event := CallEvent{
		ID:         i.newID(),
		CallID:     call.ID,
		EventType:  EventTypeError,
		Data:       errorEventData(cause),
		OccurredAt: now,
	}
	if err := i.store.UpdateCallWithEvent(ctx, call, &event); err != nil {
		i.log.ErrorContext(ctx, "failed to record provider start failure",
			"call_id", call.ID, "error", err)
	}
}

func (i *Initiator) release(ctx context.Context, organizationID string) {
	if err := i.limiter.Release(ctx, organizationID); err != nil {
		i.log.WarnContext(ctx, "failed to release outbound slot",
			"organization_id", organizationID, "error", err)
	}
}

func errorEventData(cause error) []byte {
	b, _ := json.Marshal(map[string]string{"error": cause.Error()})
	return b
}
