package calls

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/aymandakir/voice-ai-call-center/internal/agents"
	"github.com/aymandakir/voice-ai-call-center/internal/usage"
)

// ErrAgentNotFound is returned when a started event references a provider
// agent id no organization owns. The webhook handler maps it to 404 so the
// vendor's retry machinery backs off.
var ErrAgentNotFound = errors.New("calls: agent not found")

// AgentResolver maps a provider-assigned agent identifier to the owning agent
// and organization. Satisfied by agents.Service.
type AgentResolver interface {
	ResolveByProviderID(ctx context.Context, voiceProviderID string) (agents.AgentRef, error)
}

// Synchronizer applies normalized provider webhook events to call state.
//
// It is the only writer of lifecycle transitions, the call event log and
// derived usage records. Per-event writes are atomic through the Store's
// multi-write methods. Deliveries are at-least-once and unordered; stale
// transitions are dropped, and a re-delivered terminal event re-applies
// (duplicate usage records are reconciled downstream, never silently hidden).
type Synchronizer struct {
	store   Store
	agents  AgentResolver
	limiter ConcurrencyLimiter
	log     *slog.Logger

	clock func() time.Time
	newID func() string
}

func NewSynchronizer(store Store, resolver AgentResolver, log *slog.Logger) *Synchronizer {
	if log == nil {
		log = slog.Default()
	}
	return &Synchronizer{
		store:  store,
		agents: resolver,
		log:    log,
		clock:  time.Now,
		newID:  uuid.NewString,
	}
}

// SetLimiter registers the outbound concurrency limiter so terminal
// transitions free the organization's slot. Optional; the slot TTL covers
// deployments without it.
func (s *Synchronizer) SetLimiter(l ConcurrencyLimiter) { s.limiter = l }

// ApplyResult reports what one delivery did.
type ApplyResult struct {
	CallID  string `json:"call_id,omitempty"`
	Created bool   `json:"-"`

	// Applied is false when the delivery was recognized but intentionally
	// dropped (unknown event, unknown call, stale transition).
	Applied bool `json:"-"`
}

// Apply routes one canonical webhook event through the lifecycle state
// machine. Recognized-but-inapplicable deliveries return a nil error with
// Applied=false; only malformed input, unknown agents and persistence
// failures surface as errors.
func (s *Synchronizer) Apply(ctx context.Context, ev WebhookEvent) (ApplyResult, error) {
	if ev.Kind == KindUnknown {
		s.log.WarnContext(ctx, "dropping unrecognized webhook event", "event", ev.Name)
		return ApplyResult{}, nil
	}
	if ev.ProviderCallID == "" {
		return ApplyResult{}, fmt.Errorf("%w: missing call id", ErrMalformedPayload)
	}

	call, found, err := s.store.FindCallByProviderID(ctx, ev.ProviderCallID)
	if err != nil {
		return ApplyResult{}, err
	}

	if ev.Kind == KindStarted {
		if found {
			// The outbound initiator already created the row; vendor retries
			// of started are also routed here. Nothing to change.
			s.log.InfoContext(ctx, "started event for existing call",
				"call_id", call.ID, "provider_call_id", ev.ProviderCallID)
			return ApplyResult{CallID: call.ID}, nil
		}
		return s.createFromStarted(ctx, ev)
	}

	if !found {
		// A non-started event for a call we never saw. Creating a row here
		// would invent tenant context we do not have.
		s.log.WarnContext(ctx, "dropping event for unknown call",
			"event", ev.Name, "provider_call_id", ev.ProviderCallID)
		return ApplyResult{}, nil
	}

	switch ev.Kind {
	case KindRinging:
		return s.transition(ctx, call, ev, StatusRinging, EventTypeRinging)
	case KindConnected:
		return s.transition(ctx, call, ev, StatusConnected, EventTypeConnected)
	case KindTranscript:
		return s.applyTranscript(ctx, call, ev)
	case KindEnded:
		return s.finalize(ctx, call, ev)
	case KindSummary:
		return s.applySummary(ctx, call, ev)
	default:
		s.log.WarnContext(ctx, "dropping unrecognized webhook event", "event", ev.Name)
		return ApplyResult{}, nil
	}
}

func (s *Synchronizer) createFromStarted(ctx context.Context, ev WebhookEvent) (ApplyResult, error) {
	ref, err := s.agents.ResolveByProviderID(ctx, ev.AgentProviderID)
	if err != nil {
		if errors.Is(err, agents.ErrNotFound) || errors.Is(err, agents.ErrInvalidArgument) {
			return ApplyResult{}, fmt.Errorf("%w: provider agent %q", ErrAgentNotFound, ev.AgentProviderID)
		}
		return ApplyResult{}, err
	}

	now := s.clock().UTC()
	call := Call{
		ID:             s.newID(),
		OrganizationID: ref.OrganizationID,
		AgentID:        ref.AgentID,
		ProviderCallID: ev.ProviderCallID,
		Direction:      ev.Direction,
		FromNumber:     ev.FromNumber,
		ToNumber:       ev.ToNumber,
		Status:         StatusInitiated,
		StartedAt:      &now,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	event := CallEvent{
		ID:         s.newID(),
		CallID:     call.ID,
		EventType:  EventTypeStarted,
		Data:       ev.Raw,
		OccurredAt: now,
	}
	if err := s.store.CreateCallWithEvent(ctx, call, event); err != nil {
		return ApplyResult{}, err
	}
	s.log.InfoContext(ctx, "call created from webhook",
		"call_id", call.ID, "organization_id", call.OrganizationID,
		"provider_call_id", call.ProviderCallID, "direction", call.Direction)
	return ApplyResult{CallID: call.ID, Created: true, Applied: true}, nil
}

func (s *Synchronizer) transition(ctx context.Context, call Call, ev WebhookEvent, next Status, et EventType) (ApplyResult, error) {
	if !CanTransition(call.Status, next) {
		s.log.WarnContext(ctx, "dropping stale transition",
			"call_id", call.ID, "from", call.Status, "to", next)
		return ApplyResult{CallID: call.ID}, nil
	}

	now := s.clock().UTC()
	call.Status = next
	if next == StatusConnected && call.ConnectedAt == nil {
		call.ConnectedAt = &now
	}
	call.UpdatedAt = now

	event := CallEvent{
		ID:         s.newID(),
		CallID:     call.ID,
		EventType:  et,
		Data:       ev.Raw,
		OccurredAt: now,
	}
	if err := s.store.UpdateCallWithEvent(ctx, call, &event); err != nil {
		return ApplyResult{}, err
	}
	return ApplyResult{CallID: call.ID, Applied: true}, nil
}

func (s *Synchronizer) applyTranscript(ctx context.Context, call Call, ev WebhookEvent) (ApplyResult, error) {
	if call.Status == StatusFailed {
		s.log.WarnContext(ctx, "dropping transcript for failed call", "call_id", call.ID)
		return ApplyResult{CallID: call.ID}, nil
	}
	if ev.Transcript == "" {
		return ApplyResult{CallID: call.ID}, nil
	}

	now := s.clock().UTC()
	// Each delivery carries the full transcript so far; the last one wins.
	call.Transcript = ev.Transcript
	call.UpdatedAt = now

	event := CallEvent{
		ID:         s.newID(),
		CallID:     call.ID,
		EventType:  EventTypeTranscript,
		Data:       ev.Raw,
		OccurredAt: now,
	}
	if err := s.store.UpdateCallWithEvent(ctx, call, &event); err != nil {
		return ApplyResult{}, err
	}
	return ApplyResult{CallID: call.ID, Applied: true}, nil
}

func (s *Synchronizer) finalize(ctx context.Context, call Call, ev WebhookEvent) (ApplyResult, error) {
	if !CanTransition(call.Status, StatusEnded) {
		s.log.WarnContext(ctx, "dropping ended event",
			"call_id", call.ID, "from", call.Status)
		return ApplyResult{CallID: call.ID}, nil
	}

	now := s.clock().UTC()
	endedAt := now
	if ev.EndedAt != nil {
		endedAt = *ev.EndedAt
	}

	wasTerminal := call.Status.IsTerminal()
	call.Status = StatusEnded
	call.EndedAt = &endedAt
	call.DurationSeconds = ev.DurationSeconds
	call.Outcome = terminalOutcome(ev)
	if ev.Transcript != "" {
		call.Transcript = ev.Transcript
	}
	if ev.Summary != "" {
		call.Summary = ev.Summary
	}
	call.UpdatedAt = now

	event := CallEvent{
		ID:         s.newID(),
		CallID:     call.ID,
		EventType:  EventTypeEnded,
		Data:       ev.Raw,
		OccurredAt: now,
	}
	recs := deriveUsage(call, now, s.newID)

	firstTerminal := !wasTerminal
	if err := s.store.FinalizeCall(ctx, call, event, recs); err != nil {
		return ApplyResult{}, err
	}
	if firstTerminal && call.Direction == DirectionOutbound && s.limiter != nil {
		if err := s.limiter.Release(ctx, call.OrganizationID); err != nil {
			s.log.WarnContext(ctx, "failed to release outbound slot",
				"organization_id", call.OrganizationID, "error", err)
		}
	}
	s.log.InfoContext(ctx, "call finalized",
		"call_id", call.ID, "organization_id", call.OrganizationID,
		"duration_seconds", call.DurationSeconds, "outcome", call.Outcome)
	return ApplyResult{CallID: call.ID, Applied: true}, nil
}

func (s *Synchronizer) applySummary(ctx context.Context, call Call, ev WebhookEvent) (ApplyResult, error) {
	if ev.Summary == "" && ev.Transcript == "" {
		return ApplyResult{CallID: call.ID}, nil
	}
	if ev.Summary != "" {
		call.Summary = ev.Summary
	}
	if ev.Transcript != "" && call.Transcript == "" {
		call.Transcript = ev.Transcript
	}
	call.UpdatedAt = s.clock().UTC()

	// Summary enrichment is not a lifecycle fact; no event row is appended.
	if err := s.store.UpdateCallWithEvent(ctx, call, nil); err != nil {
		return ApplyResult{}, err
	}
	return ApplyResult{CallID: call.ID, Applied: true}, nil
}

// terminalOutcome picks the recorded outcome for an ended call: the payload's
// explicit outcome, else its status field, else "completed".
func terminalOutcome(ev WebhookEvent) string {
	if ev.Outcome != "" {
		return ev.Outcome
	}
	if ev.Status != "" {
		return ev.Status
	}
	return "completed"
}

// deriveUsage builds the billing facts for one terminal transition: billable
// minutes round up (any started minute bills whole) plus one call count.
func deriveUsage(call Call, now time.Time, newID func() string) []usage.UsageRecord {
	minutes := int64((call.DurationSeconds + 59) / 60)
	return []usage.UsageRecord{
		{
			ID:             newID(),
			OrganizationID: call.OrganizationID,
			CallID:         call.ID,
			MetricType:     usage.MetricTypeMinutes,
			Quantity:       minutes,
			CreatedAt:      now,
		},
		{
			ID:             newID(),
			OrganizationID: call.OrganizationID,
			CallID:         call.ID,
			MetricType:     usage.MetricTypeCalls,
			Quantity:       1,
			CreatedAt:      now,
		},
	}
}
