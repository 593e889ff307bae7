package billing

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"
)

const testSecret = "whsec_test"

func newTestService() (*Service, *MemoryRepo) {
	repo := NewMemoryRepo()
	svc := NewService(repo, testSecret, slog.New(slog.NewTextHandler(io.Discard, nil)))
	return svc, repo
}

func sign(body string) string {
	mac := hmac.New(sha256.New, []byte(testSecret))
	mac.Write([]byte(body))
	return hex.EncodeToString(mac.Sum(nil))
}

func TestVerifySignature(t *testing.T) {
	svc, _ := newTestService()
	body := `{"type":"invoice.paid"}`

	if err := svc.VerifySignature([]byte(body), sign(body)); err != nil {
		t.Fatalf("expected valid signature accepted: %v", err)
	}
	if err := svc.VerifySignature([]byte(body), sign(body+"x")); !errors.Is(err, ErrBadSignature) {
		t.Fatalf("expected ErrBadSignature, got %v", err)
	}
	if err := svc.VerifySignature([]byte(body), ""); !errors.Is(err, ErrBadSignature) {
		t.Fatalf("expected empty signature rejected, got %v", err)
	}
}

func TestHandleEvent_CheckoutCompleted(t *testing.T) {
	svc, repo := newTestService()
	ctx := context.Background()

	body := `{"type":"checkout.session.completed","data":{"object":{
		"client_reference_id":"org-A","customer":"cus_1","subscription":"sub_1",
		"metadata":{"plan_id":"pro"}}}}`
	if err := svc.HandleEvent(ctx, []byte(body)); err != nil {
		t.Fatalf("handle: %v", err)
	}

	sub, err := repo.GetByOrganization(ctx, "org-A")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if sub.Status != SubscriptionActive || sub.PlanID != PlanPro {
		t.Fatalf("unexpected subscription: %+v", sub)
	}
	if sub.ProviderSubscriptionID != "sub_1" || sub.ProviderCustomerID != "cus_1" {
		t.Fatalf("provider refs not stored: %+v", sub)
	}
}

func TestHandleEvent_CheckoutUnknownPlanDefaultsToStarter(t *testing.T) {
	svc, repo := newTestService()
	ctx := context.Background()

	body := `{"type":"checkout.session.completed","data":{"object":{
		"client_reference_id":"org-A","subscription":"sub_1",
		"metadata":{"plan_id":"platinum"}}}}`
	if err := svc.HandleEvent(ctx, []byte(body)); err != nil {
		t.Fatalf("handle: %v", err)
	}
	sub, _ := repo.GetByOrganization(ctx, "org-A")
	if sub.PlanID != PlanStarter {
		t.Fatalf("expected starter fallback, got %q", sub.PlanID)
	}
}

func TestHandleEvent_SubscriptionUpdated(t *testing.T) {
	svc, repo := newTestService()
	ctx := context.Background()

	checkout := `{"type":"checkout.session.completed","data":{"object":{
		"client_reference_id":"org-A","subscription":"sub_1","metadata":{"plan_id":"starter"}}}}`
	if err := svc.HandleEvent(ctx, []byte(checkout)); err != nil {
		t.Fatalf("checkout: %v", err)
	}

	update := `{"type":"customer.subscription.updated","data":{"object":{
		"id":"sub_1","status":"past_due","current_period_start":1756512000,
		"current_period_end":1759104000,"cancel_at_period_end":true}}}`
	if err := svc.HandleEvent(ctx, []byte(update)); err != nil {
		t.Fatalf("update: %v", err)
	}

	sub, _ := repo.GetByOrganization(ctx, "org-A")
	if sub.Status != SubscriptionPastDue || !sub.CancelAtPeriodEnd {
		t.Fatalf("unexpected subscription: %+v", sub)
	}
	if !sub.CurrentPeriodStart.Equal(time.Unix(1756512000, 0).UTC()) {
		t.Fatalf("period start not synced: %v", sub.CurrentPeriodStart)
	}
}

func TestHandleEvent_SubscriptionDeleted(t *testing.T) {
	svc, repo := newTestService()
	ctx := context.Background()

	checkout := `{"type":"checkout.session.completed","data":{"object":{
		"client_reference_id":"org-A","subscription":"sub_1","metadata":{"plan_id":"pro"}}}}`
	if err := svc.HandleEvent(ctx, []byte(checkout)); err != nil {
		t.Fatalf("checkout: %v", err)
	}
	deleted := `{"type":"customer.subscription.deleted","data":{"object":{"id":"sub_1","status":"active"}}}`
	if err := svc.HandleEvent(ctx, []byte(deleted)); err != nil {
		t.Fatalf("deleted: %v", err)
	}

	sub, _ := repo.GetByOrganization(ctx, "org-A")
	if sub.Status != SubscriptionCanceled {
		t.Fatalf("expected canceled, got %s", sub.Status)
	}
}

func TestHandleEvent_UnknownTypeAcknowledged(t *testing.T) {
	svc, _ := newTestService()
	if err := svc.HandleEvent(context.Background(), []byte(`{"type":"charge.refunded","data":{"object":{}}}`)); err != nil {
		t.Fatalf("expected unknown type acknowledged, got %v", err)
	}
}

func TestHandleEvent_UpdateForUnknownSubscriptionIsNoop(t *testing.T) {
	svc, repo := newTestService()
	update := `{"type":"customer.subscription.updated","data":{"object":{"id":"sub_missing","status":"active"}}}`
	if err := svc.HandleEvent(context.Background(), []byte(update)); err != nil {
		t.Fatalf("expected graceful no-op, got %v", err)
	}
	if _, err := repo.GetByOrganization(context.Background(), "org-A"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected nothing stored")
	}
}

func TestHandleEvent_Malformed(t *testing.T) {
	svc, _ := newTestService()
	if err := svc.HandleEvent(context.Background(), []byte(`{nope`)); !errors.Is(err, ErrMalformedPayload) {
		t.Fatalf("expected ErrMalformedPayload, got %v", err)
	}
}

func TestPlanFor(t *testing.T) {
	svc, repo := newTestService()
	ctx := context.Background()

	p, err := svc.PlanFor(ctx, "org-A")
	if err != nil || p.ID != PlanFree {
		t.Fatalf("expected free plan without subscription, got %+v err=%v", p, err)
	}

	repo.Upsert(ctx, Subscription{OrganizationID: "org-A", Status: SubscriptionActive, PlanID: PlanPro})
	p, _ = svc.PlanFor(ctx, "org-A")
	if p.ID != PlanPro {
		t.Fatalf("expected pro plan, got %q", p.ID)
	}

	repo.Upsert(ctx, Subscription{OrganizationID: "org-A", Status: SubscriptionCanceled, PlanID: PlanPro})
	p, _ = svc.PlanFor(ctx, "org-A")
	if p.ID != PlanFree {
		t.Fatalf("expected canceled subscription to fall back to free, got %q", p.ID)
	}
}
