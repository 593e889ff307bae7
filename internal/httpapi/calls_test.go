package httpapi

import (
	"context"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/aymandakir/voice-ai-call-center/internal/agents"
	"github.com/aymandakir/voice-ai-call-center/internal/calls"
	"github.com/aymandakir/voice-ai-call-center/internal/rbac"
)

func seedOutboundAgent(t *testing.T, f *fixture) {
	t.Helper()
	f.seedAgent(t, agents.Agent{
		ID: "agent-1", OrganizationID: "org-A", Name: "Sales",
		VoiceProviderID: "va-1", PhoneNumber: "+15550009999", IsActive: true,
	})
}

func TestStartOutboundCallEndpoint(t *testing.T) {
	f := newFixture(t)
	seedOutboundAgent(t, f)
	tok := f.token(t, "org-A", rbac.RoleMember)

	w := f.do(t, http.MethodPost, "/v1/calls/outbound", tok, gin.H{
		"agent_id":  "agent-1",
		"to_number": "+15550002222",
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", w.Code, w.Body.String())
	}
	var call calls.Call
	decode(t, w, &call)
	if call.Direction != calls.DirectionOutbound || call.ProviderCallID == "" {
		t.Fatalf("unexpected call: %+v", call)
	}
	if len(f.provider.Started()) != 1 {
		t.Fatalf("expected provider invoked once")
	}
}

func TestStartOutboundCall_Validation(t *testing.T) {
	f := newFixture(t)
	seedOutboundAgent(t, f)
	tok := f.token(t, "org-A", rbac.RoleMember)

	w := f.do(t, http.MethodPost, "/v1/calls/outbound", tok, gin.H{
		"agent_id":  "agent-1",
		"to_number": "not-a-number",
	})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}

	w = f.do(t, http.MethodPost, "/v1/calls/outbound", tok, gin.H{
		"agent_id":  "agent-missing",
		"to_number": "+15550002222",
	})
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404 unknown agent, got %d", w.Code)
	}

	// Other tenants cannot use the agent.
	other := f.token(t, "org-B", rbac.RoleMember)
	w = f.do(t, http.MethodPost, "/v1/calls/outbound", other, gin.H{
		"agent_id":  "agent-1",
		"to_number": "+15550002222",
	})
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404 across orgs, got %d", w.Code)
	}
}

func TestStartOutboundCall_ConcurrencyLimit429(t *testing.T) {
	f := newFixture(t)
	seedOutboundAgent(t, f)
	f.limiter.reject = true
	tok := f.token(t, "org-A", rbac.RoleMember)

	w := f.do(t, http.MethodPost, "/v1/calls/outbound", tok, gin.H{
		"agent_id":  "agent-1",
		"to_number": "+15550002222",
	})
	if w.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d: %s", w.Code, w.Body.String())
	}
}

func TestStartOutboundCall_ProviderFailure502(t *testing.T) {
	f := newFixture(t)
	seedOutboundAgent(t, f)
	f.provider.FailNext = true
	tok := f.token(t, "org-A", rbac.RoleMember)

	w := f.do(t, http.MethodPost, "/v1/calls/outbound", tok, gin.H{
		"agent_id":  "agent-1",
		"to_number": "+15550002222",
	})
	if w.Code != http.StatusBadGateway {
		t.Fatalf("expected 502, got %d: %s", w.Code, w.Body.String())
	}
	// The failed attempt must still be auditable.
	rows, _ := f.store.ListCalls(context.Background(), "org-A", calls.ListFilter{Status: calls.StatusFailed})
	if len(rows) != 1 {
		t.Fatalf("expected failed row preserved, got %d", len(rows))
	}
}

func TestListAndGetCalls(t *testing.T) {
	f := newFixture(t)
	seedOutboundAgent(t, f)
	tok := f.token(t, "org-A", rbac.RoleMember)

	w := f.do(t, http.MethodPost, "/v1/calls/outbound", tok, gin.H{
		"agent_id":  "agent-1",
		"to_number": "+15550002222",
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("start: %d", w.Code)
	}
	var call calls.Call
	decode(t, w, &call)

	w = f.do(t, http.MethodGet, "/v1/calls?direction=outbound", tok, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("list: expected 200, got %d", w.Code)
	}
	var list struct {
		Calls []calls.Call `json:"calls"`
	}
	decode(t, w, &list)
	if len(list.Calls) != 1 {
		t.Fatalf("expected 1 call, got %d", len(list.Calls))
	}

	w = f.do(t, http.MethodGet, "/v1/calls/"+call.ID, tok, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("get: expected 200, got %d", w.Code)
	}
	var detail struct {
		Call   calls.Call        `json:"call"`
		Events []calls.CallEvent `json:"events"`
	}
	decode(t, w, &detail)
	if detail.Call.ID != call.ID {
		t.Fatalf("unexpected call in detail: %+v", detail.Call)
	}

	// Other tenants get 404, never someone else's call.
	other := f.token(t, "org-B", rbac.RoleMember)
	w = f.do(t, http.MethodGet, "/v1/calls/"+call.ID, other, nil)
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404 across orgs, got %d", w.Code)
	}

	w = f.do(t, http.MethodGet, "/v1/calls?limit=bogus", tok, nil)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for bad limit, got %d", w.Code)
	}
}
