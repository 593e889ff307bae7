package calls

import (
	"encoding/json"
	"time"
)

// Call represents one tenant-scoped telephone interaction between an AI agent
// and a human.
//
// Multi-tenant invariant: OrganizationID is required on every row and never
// changes after creation.
//
// ProviderCallID is the voice vendor's identifier and the sole external
// correlation key; it is unique across calls once assigned. Outbound calls are
// created without it and receive it from the vendor after the start request.
//
// Status moves forward only: initiated -> ringing -> connected -> ended, or
// directly to failed. No code path moves a call back to an earlier state.
type Call struct {
	ID             string `json:"id" db:"id"`
	OrganizationID string `json:"organization_id" db:"organization_id"`
	AgentID        string `json:"agent_id" db:"agent_id"`

	ProviderCallID string `json:"provider_call_id,omitempty" db:"provider_call_id"`

	Direction  Direction `json:"direction" db:"direction"`
	FromNumber string    `json:"from_number" db:"from_number"`
	ToNumber   string    `json:"to_number" db:"to_number"`

	Status Status `json:"status" db:"status"`

	StartedAt   *time.Time `json:"started_at,omitempty" db:"started_at"`
	ConnectedAt *time.Time `json:"connected_at,omitempty" db:"connected_at"`
	EndedAt     *time.Time `json:"ended_at,omitempty" db:"ended_at"`

	// DurationSeconds is meaningful only once the call has ended.
	DurationSeconds int `json:"duration_seconds" db:"duration_seconds"`

	// Outcome is set on the terminal transition (completed, no_answer, busy,
	// failed, voicemail, answered_human).
	Outcome string `json:"outcome,omitempty" db:"outcome"`

	Transcript string   `json:"transcript,omitempty" db:"transcript"`
	Summary    string   `json:"summary,omitempty" db:"summary"`
	Tags       []string `json:"tags,omitempty" db:"tags"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

type Status string

const (
	StatusInitiated Status = "initiated"
	StatusRinging   Status = "ringing"
	StatusConnected Status = "connected"
	StatusEnded     Status = "ended"
	StatusFailed    Status = "failed"
)

// IsTerminal reports whether no further lifecycle transitions are expected.
func (s Status) IsTerminal() bool {
	return s == StatusEnded || s == StatusFailed
}

// statusRank orders statuses along the lifecycle. failed is reachable from
// any non-terminal state, so it shares the terminal rank with ended.
func statusRank(s Status) int {
	switch s {
	case StatusInitiated:
		return 0
	case StatusRinging:
		return 1
	case StatusConnected:
		return 2
	case StatusEnded, StatusFailed:
		return 3
	default:
		return -1
	}
}

// CanTransition reports whether a call may move from to next. Transitions are
// monotonic; re-applying the current terminal state is allowed so that
// re-delivered terminal events remain observable (at-least-once delivery).
func CanTransition(from, next Status) bool {
	fr, nr := statusRank(from), statusRank(next)
	if fr < 0 || nr < 0 {
		return false
	}
	if from == StatusFailed {
		// failed is a dead end; not even ended may overwrite it.
		return false
	}
	if from == StatusEnded {
		return next == StatusEnded
	}
	return nr > fr
}

type Direction string

const (
	DirectionInbound  Direction = "inbound"
	DirectionOutbound Direction = "outbound"
)

// CallEvent is an immutable, append-only lifecycle fact.
//
// Invariants:
// - Events are never updated or deleted.
// - Exactly one event is appended per recognized webhook transition.
// - OccurredAt reflects receipt order, not necessarily true call-time order.
type CallEvent struct {
	ID     string `json:"id" db:"id"`
	CallID string `json:"call_id" db:"call_id"`

	EventType EventType `json:"event_type" db:"event_type"`

	// Data holds the raw (or partial) webhook body for audit and replay.
	Data json.RawMessage `json:"data,omitempty" db:"data"`

	OccurredAt time.Time `json:"occurred_at" db:"occurred_at"`
}

type EventType string

const (
	EventTypeStarted    EventType = "started"
	EventTypeRinging    EventType = "ringing"
	EventTypeConnected  EventType = "connected"
	EventTypeTranscript EventType = "transcript"
	EventTypeEnded      EventType = "ended"
	EventTypeError      EventType = "error"
)
