package calls

import (
	"encoding/json"
	"errors"
	"strings"
	"time"
)

// Voice vendors disagree on event names and payload field names. Everything
// inbound is normalized into one canonical WebhookEvent here, before any
// business logic runs; the synchronizer never touches raw payload shapes.

type EventKind string

const (
	KindStarted    EventKind = "started"
	KindRinging    EventKind = "ringing"
	KindConnected  EventKind = "connected"
	KindTranscript EventKind = "transcript"
	KindEnded      EventKind = "ended"
	KindSummary    EventKind = "summary"
	KindUnknown    EventKind = "unknown"
)

// WebhookEvent is the canonical form of one inbound voice-provider delivery.
type WebhookEvent struct {
	Kind EventKind

	// Name is the vendor's raw event name, kept for logging.
	Name string

	ProviderCallID string

	// AgentProviderID references the agent by the vendor's identifier; only
	// meaningful on started events that may create a call.
	AgentProviderID string

	Direction  Direction
	FromNumber string
	ToNumber   string

	DurationSeconds int
	EndedAt         *time.Time
	Outcome         string
	Status          string

	Transcript string
	Summary    string

	// Raw is the full webhook body, stored on the event log for audit.
	Raw json.RawMessage
}

var ErrMalformedPayload = errors.New("calls: malformed webhook payload")

var eventKinds = map[string]EventKind{
	"call-started":    KindStarted,
	"call.initiated":  KindStarted,
	"call-ringing":    KindRinging,
	"call.ringing":    KindRinging,
	"call-connected":  KindConnected,
	"call.connected":  KindConnected,
	"call-ended":      KindEnded,
	"call.ended":      KindEnded,
	"transcript":      KindTranscript,
	"call.transcript": KindTranscript,
	"call-summary":    KindSummary,
	"call.summary":    KindSummary,
}

type webhookBody struct {
	Event  string       `json:"event"`
	CallID string       `json:"call_id"`
	Call   *webhookCall `json:"call"`
}

type webhookCall struct {
	ID          string `json:"id"`
	AgentID     string `json:"agent_id"`
	AssistantID string `json:"assistant_id"`

	From       string `json:"from"`
	FromNumber string `json:"from_number"`
	To         string `json:"to"`
	ToNumber   string `json:"to_number"`

	Direction string `json:"direction"`

	Duration        int `json:"duration"`
	DurationSeconds int `json:"duration_seconds"`

	EndedAt string `json:"ended_at"`

	Outcome    string `json:"outcome"`
	Status     string `json:"status"`
	Transcript string `json:"transcript"`
	Summary    string `json:"summary"`
}

// ParseWebhookEvent normalizes a raw webhook body into a canonical event.
// Unrecognized event names yield KindUnknown (handled as a logged no-op);
// an unparseable body yields ErrMalformedPayload.
func ParseWebhookEvent(body []byte) (WebhookEvent, error) {
	var b webhookBody
	if err := json.Unmarshal(body, &b); err != nil {
		return WebhookEvent{}, ErrMalformedPayload
	}

	kind, ok := eventKinds[strings.ToLower(strings.TrimSpace(b.Event))]
	if !ok {
		kind = KindUnknown
	}

	ev := WebhookEvent{
		Kind: kind,
		Name: b.Event,
		Raw:  json.RawMessage(body),
	}

	ev.ProviderCallID = b.CallID
	if c := b.Call; c != nil {
		if ev.ProviderCallID == "" {
			ev.ProviderCallID = c.ID
		}
		ev.AgentProviderID = firstNonEmpty(c.AgentID, c.AssistantID)
		ev.FromNumber = firstNonEmpty(c.From, c.FromNumber)
		ev.ToNumber = firstNonEmpty(c.To, c.ToNumber)
		ev.Direction = parseDirection(c.Direction)

		ev.DurationSeconds = c.Duration
		if ev.DurationSeconds == 0 {
			ev.DurationSeconds = c.DurationSeconds
		}
		if c.EndedAt != "" {
			if ts, err := time.Parse(time.RFC3339, c.EndedAt); err == nil {
				utc := ts.UTC()
				ev.EndedAt = &utc
			}
		}
		ev.Outcome = c.Outcome
		ev.Status = c.Status
		ev.Transcript = c.Transcript
		ev.Summary = c.Summary
	}

	return ev, nil
}

func parseDirection(s string) Direction {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "outbound":
		return DirectionOutbound
	case "inbound":
		return DirectionInbound
	default:
		// Provider-initiated calls without a direction are inbound.
		return DirectionInbound
	}
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
