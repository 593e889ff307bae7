package calls

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/aymandakir/voice-ai-call-center/internal/agents"
	"github.com/aymandakir/voice-ai-call-center/internal/usage"
)

type stubResolver map[string]agents.AgentRef

func (r stubResolver) ResolveByProviderID(_ context.Context, voiceProviderID string) (agents.AgentRef, error) {
	ref, ok := r[voiceProviderID]
	if !ok {
		return agents.AgentRef{}, agents.ErrNotFound
	}
	return ref, nil
}

func newTestSync(t *testing.T) (*Synchronizer, *MemoryStore) {
	t.Helper()
	store := NewMemoryStore()
	resolver := stubResolver{
		"va-9": {AgentID: "agent-9", OrganizationID: "org-A"},
	}
	return NewSynchronizer(store, resolver, slog.New(slog.NewTextHandler(io.Discard, nil))), store
}

func apply(t *testing.T, s *Synchronizer, body string) ApplyResult {
	t.Helper()
	ev, err := ParseWebhookEvent([]byte(body))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	res, err := s.Apply(context.Background(), ev)
	if err != nil {
		t.Fatalf("apply %q: %v", ev.Name, err)
	}
	return res
}

func TestSynchronizer_FullLifecycle(t *testing.T) {
	s, store := newTestSync(t)
	ctx := context.Background()

	res := apply(t, s, `{"event":"call.initiated","call":{"id":"ext-1","agent_id":"va-9","from":"+15550001111","to":"+15550002222"}}`)
	if !res.Created || !res.Applied {
		t.Fatalf("expected call created, got %+v", res)
	}
	callID := res.CallID

	apply(t, s, `{"event":"call-ringing","call_id":"ext-1"}`)
	apply(t, s, `{"event":"call-connected","call_id":"ext-1"}`)
	apply(t, s, `{"event":"call-ended","call_id":"ext-1","call":{"duration":125,"outcome":"completed"}}`)

	call, err := store.GetCall(ctx, "org-A", callID)
	if err != nil {
		t.Fatalf("get call: %v", err)
	}
	if call.Status != StatusEnded {
		t.Fatalf("expected ended, got %s", call.Status)
	}
	if call.AgentID != "agent-9" || call.OrganizationID != "org-A" {
		t.Fatalf("unexpected ownership: %+v", call)
	}
	if call.DurationSeconds != 125 || call.Outcome != "completed" {
		t.Fatalf("unexpected terminal fields: %+v", call)
	}
	if call.StartedAt == nil || call.ConnectedAt == nil || call.EndedAt == nil {
		t.Fatalf("expected all lifecycle timestamps set: %+v", call)
	}

	events, err := store.ListEvents(ctx, callID)
	if err != nil {
		t.Fatalf("list events: %v", err)
	}
	if len(events) != 4 {
		t.Fatalf("expected 4 events, got %d", len(events))
	}
	want := []EventType{EventTypeStarted, EventTypeRinging, EventTypeConnected, EventTypeEnded}
	for i, et := range want {
		if events[i].EventType != et {
			t.Fatalf("event %d: expected %s, got %s", i, et, events[i].EventType)
		}
	}

	// 125 seconds bills 3 whole minutes plus one call.
	recs := store.Usage.Records()
	if len(recs) != 2 {
		t.Fatalf("expected 2 usage records, got %d", len(recs))
	}
	byMetric := map[usage.MetricType]int64{}
	for _, r := range recs {
		if r.OrganizationID != "org-A" || r.CallID != callID {
			t.Fatalf("usage record not attributed: %+v", r)
		}
		byMetric[r.MetricType] = r.Quantity
	}
	if byMetric[usage.MetricTypeMinutes] != 3 || byMetric[usage.MetricTypeCalls] != 1 {
		t.Fatalf("unexpected usage quantities: %v", byMetric)
	}
}

func TestSynchronizer_UnknownAgent(t *testing.T) {
	s, store := newTestSync(t)

	ev, err := ParseWebhookEvent([]byte(`{"event":"call-started","call":{"id":"ext-x","agent_id":"va-missing"}}`))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	_, err = s.Apply(context.Background(), ev)
	if !errors.Is(err, ErrAgentNotFound) {
		t.Fatalf("expected ErrAgentNotFound, got %v", err)
	}
	if _, found, _ := store.FindCallByProviderID(context.Background(), "ext-x"); found {
		t.Fatalf("expected no call row created")
	}
}

func TestSynchronizer_UnknownCallDropped(t *testing.T) {
	s, store := newTestSync(t)

	res := apply(t, s, `{"event":"call-ended","call_id":"never-seen","call":{"duration":30}}`)
	if res.Applied || res.CallID != "" {
		t.Fatalf("expected drop, got %+v", res)
	}
	if len(store.Usage.Records()) != 0 {
		t.Fatalf("expected no usage records")
	}
}

func TestSynchronizer_BackwardTransitionDropped(t *testing.T) {
	s, store := newTestSync(t)
	ctx := context.Background()

	res := apply(t, s, `{"event":"call-started","call":{"id":"ext-2","agent_id":"va-9"}}`)
	apply(t, s, `{"event":"call-connected","call_id":"ext-2"}`)

	// Late ringing after connected must not rewind the lifecycle.
	out := apply(t, s, `{"event":"call-ringing","call_id":"ext-2"}`)
	if out.Applied {
		t.Fatalf("expected stale transition dropped")
	}

	call, err := store.GetCall(ctx, "org-A", res.CallID)
	if err != nil {
		t.Fatalf("get call: %v", err)
	}
	if call.Status != StatusConnected {
		t.Fatalf("expected connected preserved, got %s", call.Status)
	}
	events, _ := store.ListEvents(ctx, res.CallID)
	if len(events) != 2 {
		t.Fatalf("expected no event appended for dropped transition, got %d", len(events))
	}
}

func TestSynchronizer_DuplicateEndedReappliesUsage(t *testing.T) {
	s, store := newTestSync(t)

	apply(t, s, `{"event":"call-started","call":{"id":"ext-3","agent_id":"va-9"}}`)
	apply(t, s, `{"event":"call-ended","call_id":"ext-3","call":{"duration":61}}`)
	apply(t, s, `{"event":"call-ended","call_id":"ext-3","call":{"duration":61}}`)

	// At-least-once delivery: the duplicate terminal event re-applies and
	// appends usage again. Reconciliation against the event log is the
	// downstream consumer's job.
	if got := len(store.Usage.Records()); got != 4 {
		t.Fatalf("expected 4 usage records after duplicate ended, got %d", got)
	}
	events := store.Events()
	var ended int
	for _, ev := range events {
		if ev.EventType == EventTypeEnded {
			ended++
		}
	}
	if ended != 2 {
		t.Fatalf("expected both terminal deliveries on the event log, got %d", ended)
	}
}

func TestSynchronizer_SummaryUpdatesWithoutEvent(t *testing.T) {
	s, store := newTestSync(t)
	ctx := context.Background()

	res := apply(t, s, `{"event":"call-started","call":{"id":"ext-4","agent_id":"va-9"}}`)
	apply(t, s, `{"event":"call-ended","call_id":"ext-4","call":{"duration":10}}`)
	apply(t, s, `{"event":"call-summary","call_id":"ext-4","call":{"summary":"caller booked a demo"}}`)

	call, err := store.GetCall(ctx, "org-A", res.CallID)
	if err != nil {
		t.Fatalf("get call: %v", err)
	}
	if call.Summary != "caller booked a demo" {
		t.Fatalf("expected summary stored, got %q", call.Summary)
	}
	events, _ := store.ListEvents(ctx, res.CallID)
	if len(events) != 2 {
		t.Fatalf("summary must not append an event, got %d events", len(events))
	}
}

func TestSynchronizer_TranscriptLastDeliveryWins(t *testing.T) {
	s, store := newTestSync(t)
	ctx := context.Background()

	res := apply(t, s, `{"event":"call-started","call":{"id":"ext-5","agent_id":"va-9"}}`)
	apply(t, s, `{"event":"transcript","call_id":"ext-5","call":{"transcript":"hello"}}`)
	apply(t, s, `{"event":"transcript","call_id":"ext-5","call":{"transcript":"final transcript"}}`)

	call, err := store.GetCall(ctx, "org-A", res.CallID)
	if err != nil {
		t.Fatalf("get call: %v", err)
	}
	if call.Transcript != "final transcript" {
		t.Fatalf("expected last transcript to overwrite, got %q", call.Transcript)
	}
	events, _ := store.ListEvents(ctx, res.CallID)
	if len(events) != 3 {
		t.Fatalf("expected started + 2 transcript events, got %d", len(events))
	}
}

func TestSynchronizer_EmptyTranscriptIsNoop(t *testing.T) {
	s, store := newTestSync(t)
	ctx := context.Background()

	res := apply(t, s, `{"event":"call-started","call":{"id":"ext-9","agent_id":"va-9"}}`)
	apply(t, s, `{"event":"transcript","call_id":"ext-9","call":{"transcript":"kept"}}`)
	before, err := store.GetCall(ctx, "org-A", res.CallID)
	if err != nil {
		t.Fatalf("get call: %v", err)
	}

	out := apply(t, s, `{"event":"transcript","call_id":"ext-9"}`)
	if out.Applied {
		t.Fatalf("expected transcript-less delivery dropped, got %+v", out)
	}

	after, _ := store.GetCall(ctx, "org-A", res.CallID)
	if after.Transcript != "kept" {
		t.Fatalf("expected transcript untouched, got %q", after.Transcript)
	}
	if !after.UpdatedAt.Equal(before.UpdatedAt) {
		t.Fatalf("expected updated_at untouched on no-op")
	}
	events, _ := store.ListEvents(ctx, res.CallID)
	if len(events) != 2 {
		t.Fatalf("expected no event appended for empty transcript, got %d", len(events))
	}
}

func TestSynchronizer_OutcomeFallback(t *testing.T) {
	s, store := newTestSync(t)
	ctx := context.Background()

	res := apply(t, s, `{"event":"call-started","call":{"id":"ext-6","agent_id":"va-9"}}`)
	apply(t, s, `{"event":"call-ended","call_id":"ext-6","call":{"duration":5,"status":"no_answer"}}`)

	call, err := store.GetCall(ctx, "org-A", res.CallID)
	if err != nil {
		t.Fatalf("get call: %v", err)
	}
	if call.Outcome != "no_answer" {
		t.Fatalf("expected status used as outcome fallback, got %q", call.Outcome)
	}

	res2 := apply(t, s, `{"event":"call-started","call":{"id":"ext-7","agent_id":"va-9"}}`)
	apply(t, s, `{"event":"call-ended","call_id":"ext-7","call":{"duration":5}}`)
	call2, _ := store.GetCall(ctx, "org-A", res2.CallID)
	if call2.Outcome != "completed" {
		t.Fatalf("expected default outcome completed, got %q", call2.Outcome)
	}
}

func TestSynchronizer_MissingCallID(t *testing.T) {
	s, _ := newTestSync(t)

	ev, err := ParseWebhookEvent([]byte(`{"event":"call-ended"}`))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if _, err := s.Apply(context.Background(), ev); !errors.Is(err, ErrMalformedPayload) {
		t.Fatalf("expected ErrMalformedPayload, got %v", err)
	}
}

func TestSynchronizer_StartedForExistingCallIsNoop(t *testing.T) {
	s, store := newTestSync(t)
	ctx := context.Background()

	res := apply(t, s, `{"event":"call-started","call":{"id":"ext-8","agent_id":"va-9"}}`)
	dup := apply(t, s, `{"event":"call-started","call":{"id":"ext-8","agent_id":"va-9"}}`)
	if dup.Created || dup.Applied {
		t.Fatalf("expected duplicate started to be a no-op, got %+v", dup)
	}
	if dup.CallID != res.CallID {
		t.Fatalf("expected existing call id returned")
	}
	events, _ := store.ListEvents(ctx, res.CallID)
	if len(events) != 1 {
		t.Fatalf("expected single started event, got %d", len(events))
	}
}
