package httpapi

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/aymandakir/voice-ai-call-center/internal/agents"
	"github.com/aymandakir/voice-ai-call-center/internal/billing"
	"github.com/aymandakir/voice-ai-call-center/internal/calls"
	"github.com/aymandakir/voice-ai-call-center/internal/usage"
)

func postWebhook(f *fixture, path, body string, headers map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	return w
}

func TestVoiceWebhook_Lifecycle(t *testing.T) {
	f := newFixture(t)
	f.seedAgent(t, agents.Agent{
		ID: "agent-9", OrganizationID: "org-A", Name: "Receptionist",
		VoiceProviderID: "va-9", IsActive: true,
	})

	w := postWebhook(f, "/webhooks/voice",
		`{"event":"call.initiated","call":{"id":"ext-1","agent_id":"va-9","from":"+15550001111","to":"+15550002222"}}`, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("started: expected 200, got %d: %s", w.Code, w.Body.String())
	}
	var resp struct {
		Received bool   `json:"received"`
		CallID   string `json:"call_id"`
	}
	decode(t, w, &resp)
	if !resp.Received || resp.CallID == "" {
		t.Fatalf("unexpected ack: %+v", resp)
	}

	for _, body := range []string{
		`{"event":"call-ringing","call_id":"ext-1"}`,
		`{"event":"call-connected","call_id":"ext-1"}`,
		`{"event":"call-ended","call_id":"ext-1","call":{"duration":125,"outcome":"completed"}}`,
	} {
		if w := postWebhook(f, "/webhooks/voice", body, nil); w.Code != http.StatusOK {
			t.Fatalf("%s: expected 200, got %d", body, w.Code)
		}
	}

	ctx := context.Background()
	call, err := f.store.GetCall(ctx, "org-A", resp.CallID)
	if err != nil {
		t.Fatalf("get call: %v", err)
	}
	if call.Status != calls.StatusEnded || call.DurationSeconds != 125 {
		t.Fatalf("unexpected call: %+v", call)
	}

	events, _ := f.store.ListEvents(ctx, resp.CallID)
	if len(events) != 4 {
		t.Fatalf("expected 4 events, got %d", len(events))
	}

	recs := f.store.Usage.Records()
	if len(recs) != 2 {
		t.Fatalf("expected 2 usage records, got %d", len(recs))
	}
	for _, r := range recs {
		if r.MetricType == usage.MetricTypeMinutes && r.Quantity != 3 {
			t.Fatalf("expected 125s to bill 3 minutes, got %d", r.Quantity)
		}
	}
}

func TestVoiceWebhook_UnknownAgent404(t *testing.T) {
	f := newFixture(t)

	w := postWebhook(f, "/webhooks/voice",
		`{"event":"call-started","call":{"id":"ext-x","agent_id":"va-unknown"}}`, nil)
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d: %s", w.Code, w.Body.String())
	}
	if _, found, _ := f.store.FindCallByProviderID(context.Background(), "ext-x"); found {
		t.Fatalf("expected no call row")
	}
}

func TestVoiceWebhook_Malformed400(t *testing.T) {
	f := newFixture(t)

	if w := postWebhook(f, "/webhooks/voice", `{not json`, nil); w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for bad json, got %d", w.Code)
	}
	// Recognized event without any call id.
	if w := postWebhook(f, "/webhooks/voice", `{"event":"call-ended"}`, nil); w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for missing call id, got %d", w.Code)
	}
}

func TestVoiceWebhook_UnknownEventAcknowledged(t *testing.T) {
	f := newFixture(t)

	w := postWebhook(f, "/webhooks/voice", `{"event":"call.hold","call_id":"ext-1"}`, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 ack for unknown event, got %d", w.Code)
	}
}

func TestVoiceWebhook_StoreFailure500(t *testing.T) {
	f := newFixture(t)
	f.seedAgent(t, agents.Agent{
		ID: "agent-9", OrganizationID: "org-A", VoiceProviderID: "va-9", IsActive: true,
	})
	f.store.FailWrites = errors.New("disk on fire")

	w := postWebhook(f, "/webhooks/voice",
		`{"event":"call-started","call":{"id":"ext-1","agent_id":"va-9"}}`, nil)
	if w.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500 so the vendor retries, got %d", w.Code)
	}
}

func billingSig(body string) string {
	mac := hmac.New(sha256.New, []byte(testBillingSecret))
	mac.Write([]byte(body))
	return hex.EncodeToString(mac.Sum(nil))
}

func TestBillingWebhook_SignatureEnforced(t *testing.T) {
	f := newFixture(t)
	body := `{"type":"checkout.session.completed","data":{"object":{
		"client_reference_id":"org-A","subscription":"sub_1","metadata":{"plan_id":"pro"}}}}`

	w := postWebhook(f, "/webhooks/billing", body, nil)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without signature, got %d", w.Code)
	}
	w = postWebhook(f, "/webhooks/billing", body, map[string]string{
		billingSignatureHeader: "deadbeef",
	})
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 with bad signature, got %d", w.Code)
	}

	w = postWebhook(f, "/webhooks/billing", body, map[string]string{
		billingSignatureHeader: billingSig(body),
	})
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 with valid signature, got %d: %s", w.Code, w.Body.String())
	}

	sub, err := f.billing.GetByOrganization(context.Background(), "org-A")
	if err != nil {
		t.Fatalf("expected subscription stored: %v", err)
	}
	if sub.PlanID != billing.PlanPro || sub.Status != billing.SubscriptionActive {
		t.Fatalf("unexpected subscription: %+v", sub)
	}
}
