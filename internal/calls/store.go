package calls

import (
	"context"
	"errors"
	"time"

	"github.com/aymandakir/voice-ai-call-center/internal/usage"
)

var (
	ErrNotFound        = errors.New("calls: not found")
	ErrInvalidArgument = errors.New("calls: invalid argument")
)

// Store is the persistence contract for calls and their event log.
//
// The synchronizer owns the Call/CallEvent/UsageRecord write path exclusively;
// the outbound initiator only creates calls and attaches the provider call id
// (or marks failure) once.
//
// The multi-write methods (CreateCallWithEvent, UpdateCallWithEvent,
// FinalizeCall) must apply all of their writes atomically: a webhook delivery
// either lands fully or not at all. The Postgres implementation wraps them in
// a transaction.
type Store interface {
	CreateCall(ctx context.Context, c Call) error
	UpdateCall(ctx context.Context, c Call) error
	GetCall(ctx context.Context, organizationID, callID string) (Call, error)
	ListCalls(ctx context.Context, organizationID string, f ListFilter) ([]Call, error)

	// FindCallByProviderID resolves the external correlation key. The webhook
	// carries no tenant context, so this lookup is global by design.
	FindCallByProviderID(ctx context.Context, providerCallID string) (Call, bool, error)

	ListEvents(ctx context.Context, callID string) ([]CallEvent, error)

	CreateCallWithEvent(ctx context.Context, c Call, ev CallEvent) error
	UpdateCallWithEvent(ctx context.Context, c Call, ev *CallEvent) error
	FinalizeCall(ctx context.Context, c Call, ev CallEvent, recs []usage.UsageRecord) error
}

// ListFilter narrows ListCalls results. Zero values mean "no constraint".
type ListFilter struct {
	AgentID   string
	Direction Direction
	Status    Status
	Outcome   string
	From      time.Time
	To        time.Time
	Limit     int
}
