package agents

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

var (
	ErrNotFound        = errors.New("agents: not found")
	ErrInvalidArgument = errors.New("agents: invalid argument")
)

// Repository abstracts agent persistence. All reads and writes are
// organization-scoped except ResolveByProviderID, which is keyed by the
// provider-assigned identifier (webhooks carry no tenant context).
type Repository interface {
	Create(ctx context.Context, a Agent) error
	Update(ctx context.Context, a Agent) error
	Delete(ctx context.Context, organizationID, agentID string) error
	Get(ctx context.Context, organizationID, agentID string) (Agent, error)
	List(ctx context.Context, organizationID string) ([]Agent, error)
	ResolveByProviderID(ctx context.Context, voiceProviderID string) (AgentRef, error)
}

type Service struct {
	repo  Repository
	clock func() time.Time
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo, clock: time.Now}
}

type CreateRequest struct {
	Name         string `json:"name"`
	Persona      string `json:"persona,omitempty"`
	Language     string `json:"language,omitempty"`
	Instructions string `json:"instructions"`
	Model        string `json:"model,omitempty"`

	// Temperature is a pointer so an explicit 0 (deterministic agent) is
	// distinguishable from an omitted field.
	Temperature *float64 `json:"temperature,omitempty"`

	FirstMessage    string `json:"first_message,omitempty"`
	VoiceProviderID string `json:"voice_provider_id,omitempty"`
	PhoneNumber     string `json:"phone_number,omitempty"`
}

type UpdateRequest struct {
	Name         *string  `json:"name,omitempty"`
	Persona      *string  `json:"persona,omitempty"`
	Language     *string  `json:"language,omitempty"`
	Instructions *string  `json:"instructions,omitempty"`
	Model        *string  `json:"model,omitempty"`
	Temperature  *float64 `json:"temperature,omitempty"`
	FirstMessage *string  `json:"first_message,omitempty"`
	PhoneNumber  *string  `json:"phone_number,omitempty"`
	IsActive     *bool    `json:"is_active,omitempty"`
}

func (s *Service) Create(ctx context.Context, organizationID string, req CreateRequest) (Agent, error) {
	if organizationID == "" {
		return Agent{}, ErrInvalidArgument
	}
	name := strings.TrimSpace(req.Name)
	if name == "" || len(name) > 100 {
		return Agent{}, ErrInvalidArgument
	}
	if len(req.Instructions) < 10 || len(req.Instructions) > 5000 {
		return Agent{}, ErrInvalidArgument
	}
	if req.Temperature != nil && (*req.Temperature < 0 || *req.Temperature > 2) {
		return Agent{}, ErrInvalidArgument
	}

	now := s.clock().UTC()
	a := Agent{
		ID:              uuid.NewString(),
		OrganizationID:  organizationID,
		Name:            name,
		Persona:         req.Persona,
		Language:        defaultStr(req.Language, "en"),
		Instructions:    req.Instructions,
		Model:           defaultStr(req.Model, "gpt-4"),
		Temperature:     defaultTemp(req.Temperature),
		FirstMessage:    req.FirstMessage,
		VoiceProviderID: req.VoiceProviderID,
		PhoneNumber:     req.PhoneNumber,
		IsActive:        true,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if err := s.repo.Create(ctx, a); err != nil {
		return Agent{}, err
	}
	return a, nil
}

func (s *Service) Update(ctx context.Context, organizationID, agentID string, req UpdateRequest) (Agent, error) {
	if organizationID == "" || agentID == "" {
		return Agent{}, ErrInvalidArgument
	}
	a, err := s.repo.Get(ctx, organizationID, agentID)
	if err != nil {
		return Agent{}, err
	}

	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" || len(name) > 100 {
			return Agent{}, ErrInvalidArgument
		}
		a.Name = name
	}
	if req.Persona != nil {
		a.Persona = *req.Persona
	}
	if req.Language != nil {
		a.Language = *req.Language
	}
	if req.Instructions != nil {
		if len(*req.Instructions) < 10 || len(*req.Instructions) > 5000 {
			return Agent{}, ErrInvalidArgument
		}
		a.Instructions = *req.Instructions
	}
	if req.Model != nil {
		a.Model = *req.Model
	}
	if req.Temperature != nil {
		if *req.Temperature < 0 || *req.Temperature > 2 {
			return Agent{}, ErrInvalidArgument
		}
		a.Temperature = *req.Temperature
	}
	if req.FirstMessage != nil {
		a.FirstMessage = *req.FirstMessage
	}
	if req.PhoneNumber != nil {
		a.PhoneNumber = *req.PhoneNumber
	}
	if req.IsActive != nil {
		a.IsActive = *req.IsActive
	}
	a.UpdatedAt = s.clock().UTC()

	if err := s.repo.Update(ctx, a); err != nil {
		return Agent{}, err
	}
	return a, nil
}

func (s *Service) Get(ctx context.Context, organizationID, agentID string) (Agent, error) {
	if organizationID == "" || agentID == "" {
		return Agent{}, ErrInvalidArgument
	}
	return s.repo.Get(ctx, organizationID, agentID)
}

func (s *Service) List(ctx context.Context, organizationID string) ([]Agent, error) {
	if organizationID == "" {
		return nil, ErrInvalidArgument
	}
	return s.repo.List(ctx, organizationID)
}

func (s *Service) Delete(ctx context.Context, organizationID, agentID string) error {
	if organizationID == "" || agentID == "" {
		return ErrInvalidArgument
	}
	return s.repo.Delete(ctx, organizationID, agentID)
}

// ResolveByProviderID maps a provider-assigned agent identifier to the owning
// agent and organization. Used by the webhook synchronizer when a call record
// must be created for a provider-initiated call.
func (s *Service) ResolveByProviderID(ctx context.Context, voiceProviderID string) (AgentRef, error) {
	if voiceProviderID == "" {
		return AgentRef{}, ErrInvalidArgument
	}
	return s.repo.ResolveByProviderID(ctx, voiceProviderID)
}

func defaultStr(v, def string) string {
	if strings.TrimSpace(v) == "" {
		return def
	}
	return v
}

func defaultTemp(v *float64) float64 {
	if v == nil {
		return 0.7
	}
	return *v
}
