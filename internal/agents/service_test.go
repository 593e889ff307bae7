package agents

import (
	"context"
	"errors"
	"testing"
)

func TestService_CreateAppliesDefaults(t *testing.T) {
	svc := NewService(NewMemoryRepo())

	a, err := svc.Create(context.Background(), "org-1", CreateRequest{
		Name:            "Support Agent",
		Instructions:    "Answer support questions politely.",
		VoiceProviderID: "va-9",
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if a.ID == "" || a.OrganizationID != "org-1" {
		t.Fatalf("unexpected agent: %+v", a)
	}
	if a.Language != "en" || a.Model != "gpt-4" || a.Temperature != 0.7 {
		t.Fatalf("defaults not applied: %+v", a)
	}
	if !a.IsActive {
		t.Fatalf("expected new agent active")
	}
}

func TestService_CreateRejectsInvalid(t *testing.T) {
	svc := NewService(NewMemoryRepo())

	tooHot := 3.0
	cases := []CreateRequest{
		{Name: "", Instructions: "Long enough instructions."},
		{Name: "x", Instructions: "short"},
		{Name: "x", Instructions: "Long enough instructions.", Temperature: &tooHot},
	}
	for i, req := range cases {
		if _, err := svc.Create(context.Background(), "org-1", req); !errors.Is(err, ErrInvalidArgument) {
			t.Fatalf("case %d: expected ErrInvalidArgument, got %v", i, err)
		}
	}
}

func TestService_CreateKeepsExplicitZeroTemperature(t *testing.T) {
	svc := NewService(NewMemoryRepo())

	zero := 0.0
	a, err := svc.Create(context.Background(), "org-1", CreateRequest{
		Name:         "Deterministic",
		Instructions: "Answer with fixed phrasing only.",
		Temperature:  &zero,
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if a.Temperature != 0 {
		t.Fatalf("expected explicit temperature 0 preserved, got %v", a.Temperature)
	}
}

func TestService_GetEnforcesOrganizationScope(t *testing.T) {
	repo := NewMemoryRepo()
	svc := NewService(repo)

	a, err := svc.Create(context.Background(), "org-1", CreateRequest{
		Name:         "a",
		Instructions: "Long enough instructions.",
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	if _, err := svc.Get(context.Background(), "org-2", a.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for foreign org, got %v", err)
	}
	if _, err := svc.Get(context.Background(), "org-1", a.ID); err != nil {
		t.Fatalf("expected ok for owner org, got %v", err)
	}
}

func TestService_ResolveByProviderID(t *testing.T) {
	repo := NewMemoryRepo()
	svc := NewService(repo)

	a, err := svc.Create(context.Background(), "org-A", CreateRequest{
		Name:            "a",
		Instructions:    "Long enough instructions.",
		VoiceProviderID: "va-9",
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	ref, err := svc.ResolveByProviderID(context.Background(), "va-9")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if ref.AgentID != a.ID || ref.OrganizationID != "org-A" {
		t.Fatalf("unexpected ref: %+v", ref)
	}

	if _, err := svc.ResolveByProviderID(context.Background(), "va-unknown"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestService_UpdatePartial(t *testing.T) {
	svc := NewService(NewMemoryRepo())

	a, err := svc.Create(context.Background(), "org-1", CreateRequest{
		Name:         "before",
		Instructions: "Long enough instructions.",
		PhoneNumber:  "+15550001111",
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	name := "after"
	inactive := false
	got, err := svc.Update(context.Background(), "org-1", a.ID, UpdateRequest{Name: &name, IsActive: &inactive})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if got.Name != "after" || got.IsActive {
		t.Fatalf("unexpected update result: %+v", got)
	}
	if got.PhoneNumber != "+15550001111" {
		t.Fatalf("untouched field changed: %+v", got)
	}
}
