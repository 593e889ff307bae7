package billing

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

var (
	ErrNotFound         = errors.New("billing: not found")
	ErrBadSignature     = errors.New("billing: invalid webhook signature")
	ErrMalformedPayload = errors.New("billing: malformed webhook payload")
)

// Repository persists subscriptions. One row per organization.
type Repository interface {
	Upsert(ctx context.Context, sub Subscription) error
	GetByOrganization(ctx context.Context, organizationID string) (Subscription, error)
	FindByProviderSubscriptionID(ctx context.Context, providerSubscriptionID string) (Subscription, error)
}

// Service syncs subscription state from payment-provider webhooks and answers
// plan-limit lookups for the rest of the system.
type Service struct {
	repo   Repository
	secret []byte
	log    *slog.Logger

	clock func() time.Time
	newID func() string
}

func NewService(repo Repository, webhookSecret string, log *slog.Logger) *Service {
	if log == nil {
		log = slog.Default()
	}
	return &Service{
		repo:   repo,
		secret: []byte(webhookSecret),
		log:    log,
		clock:  time.Now,
		newID:  uuid.NewString,
	}
}

// VerifySignature checks the hex HMAC-SHA256 of the raw body against the
// signature header using a constant-time compare.
func (s *Service) VerifySignature(body []byte, signature string) error {
	if len(s.secret) == 0 || signature == "" {
		return ErrBadSignature
	}
	mac := hmac.New(sha256.New, s.secret)
	mac.Write(body)
	want := hex.EncodeToString(mac.Sum(nil))
	if !hmac.Equal([]byte(want), []byte(signature)) {
		return ErrBadSignature
	}
	return nil
}

// webhookEnvelope is the provider's generic event wrapper.
type webhookEnvelope struct {
	Type string `json:"type"`
	Data struct {
		Object json.RawMessage `json:"object"`
	} `json:"data"`
}

type checkoutSession struct {
	ClientReferenceID string `json:"client_reference_id"`
	Customer          string `json:"customer"`
	Subscription      string `json:"subscription"`
	Metadata          struct {
		PlanID string `json:"plan_id"`
	} `json:"metadata"`
}

type providerSubscription struct {
	ID                 string `json:"id"`
	Status             string `json:"status"`
	CurrentPeriodStart int64  `json:"current_period_start"`
	CurrentPeriodEnd   int64  `json:"current_period_end"`
	CancelAtPeriodEnd  bool   `json:"cancel_at_period_end"`
	Metadata           struct {
		PlanID string `json:"plan_id"`
	} `json:"metadata"`
}

// HandleEvent applies one verified webhook delivery. Unknown event types are
// logged and acknowledged so the provider stops retrying them.
func (s *Service) HandleEvent(ctx context.Context, body []byte) error {
	var env webhookEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		return ErrMalformedPayload
	}

	switch env.Type {
	case "checkout.session.completed":
		return s.handleCheckoutCompleted(ctx, env.Data.Object)
	case "customer.subscription.updated":
		return s.handleSubscriptionUpdated(ctx, env.Data.Object, "")
	case "customer.subscription.deleted":
		return s.handleSubscriptionUpdated(ctx, env.Data.Object, SubscriptionCanceled)
	case "invoice.paid", "invoice.payment_failed":
		s.log.InfoContext(ctx, "billing invoice event received", "type", env.Type)
		return nil
	default:
		s.log.WarnContext(ctx, "ignoring unrecognized billing event", "type", env.Type)
		return nil
	}
}

func (s *Service) handleCheckoutCompleted(ctx context.Context, object json.RawMessage) error {
	var sess checkoutSession
	if err := json.Unmarshal(object, &sess); err != nil {
		return ErrMalformedPayload
	}
	if sess.ClientReferenceID == "" || sess.Subscription == "" {
		return fmt.Errorf("%w: checkout session missing references", ErrMalformedPayload)
	}

	planID := sess.Metadata.PlanID
	if _, ok := PlanByID(planID); !ok {
		planID = PlanStarter
	}

	now := s.clock().UTC()
	sub := Subscription{
		ID:                     s.newID(),
		OrganizationID:         sess.ClientReferenceID,
		ProviderSubscriptionID: sess.Subscription,
		ProviderCustomerID:     sess.Customer,
		Status:                 SubscriptionActive,
		PlanID:                 planID,
		CurrentPeriodStart:     now,
		CurrentPeriodEnd:       now.AddDate(0, 1, 0),
		CreatedAt:              now,
		UpdatedAt:              now,
	}
	if existing, err := s.repo.GetByOrganization(ctx, sub.OrganizationID); err == nil {
		sub.ID = existing.ID
		sub.CreatedAt = existing.CreatedAt
	}
	if err := s.repo.Upsert(ctx, sub); err != nil {
		return err
	}
	s.log.InfoContext(ctx, "subscription activated",
		"organization_id", sub.OrganizationID, "plan_id", sub.PlanID)
	return nil
}

// handleSubscriptionUpdated syncs period and status from the provider object.
// forceStatus overrides the payload status (used for deletion events).
func (s *Service) handleSubscriptionUpdated(ctx context.Context, object json.RawMessage, forceStatus SubscriptionStatus) error {
	var ps providerSubscription
	if err := json.Unmarshal(object, &ps); err != nil {
		return ErrMalformedPayload
	}
	if ps.ID == "" {
		return fmt.Errorf("%w: subscription id missing", ErrMalformedPayload)
	}

	sub, err := s.repo.FindByProviderSubscriptionID(ctx, ps.ID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			// Updates can race checkout completion across provider retries.
			s.log.WarnContext(ctx, "subscription update for unknown subscription",
				"provider_subscription_id", ps.ID)
			return nil
		}
		return err
	}

	if forceStatus != "" {
		sub.Status = forceStatus
	} else if ps.Status != "" {
		sub.Status = SubscriptionStatus(ps.Status)
	}
	if ps.CurrentPeriodStart > 0 {
		sub.CurrentPeriodStart = time.Unix(ps.CurrentPeriodStart, 0).UTC()
	}
	if ps.CurrentPeriodEnd > 0 {
		sub.CurrentPeriodEnd = time.Unix(ps.CurrentPeriodEnd, 0).UTC()
	}
	sub.CancelAtPeriodEnd = ps.CancelAtPeriodEnd
	if _, ok := PlanByID(ps.Metadata.PlanID); ok {
		sub.PlanID = ps.Metadata.PlanID
	}
	sub.UpdatedAt = s.clock().UTC()

	if err := s.repo.Upsert(ctx, sub); err != nil {
		return err
	}
	s.log.InfoContext(ctx, "subscription updated",
		"organization_id", sub.OrganizationID, "status", sub.Status, "plan_id", sub.PlanID)
	return nil
}

// PlanFor returns the organization's effective plan. Organizations without an
// entitled subscription fall back to the free plan.
func (s *Service) PlanFor(ctx context.Context, organizationID string) (Plan, error) {
	sub, err := s.repo.GetByOrganization(ctx, organizationID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			p, _ := PlanByID(PlanFree)
			return p, nil
		}
		return Plan{}, err
	}
	if !sub.Status.IsEntitled() {
		p, _ := PlanByID(PlanFree)
		return p, nil
	}
	p, ok := PlanByID(sub.PlanID)
	if !ok {
		p, _ = PlanByID(PlanFree)
	}
	return p, nil
}

// SubscriptionFor returns the stored subscription, ErrNotFound when the
// organization never checked out.
func (s *Service) SubscriptionFor(ctx context.Context, organizationID string) (Subscription, error) {
	return s.repo.GetByOrganization(ctx, organizationID)
}
