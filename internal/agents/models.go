package agents

import "time"

// Agent is a tenant-scoped AI voice agent configuration.
//
// Multi-tenant invariant: OrganizationID is required on every row and never
// changes after creation.
//
// VoiceProviderID is the external identifier assigned by the voice provider;
// inbound webhook events reference agents by this id, not by our primary key.
type Agent struct {
	ID             string `json:"id" db:"id"`
	OrganizationID string `json:"organization_id" db:"organization_id"`

	Name         string  `json:"name" db:"name"`
	Persona      string  `json:"persona,omitempty" db:"persona"`
	Language     string  `json:"language" db:"language"`
	Instructions string  `json:"instructions" db:"instructions"`
	Model        string  `json:"model" db:"model"`
	Temperature  float64 `json:"temperature" db:"temperature"`
	FirstMessage string  `json:"first_message,omitempty" db:"first_message"`

	VoiceProviderID string `json:"voice_provider_id,omitempty" db:"voice_provider_id"`

	// PhoneNumber is the provisioned E.164 number used as the default
	// from-number for outbound calls. Empty if none is assigned.
	PhoneNumber string `json:"phone_number,omitempty" db:"phone_number"`

	IsActive bool `json:"is_active" db:"is_active"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// AgentRef is the minimal resolution result used by the call lifecycle
// synchronizer to attribute provider-created calls to a tenant.
type AgentRef struct {
	AgentID        string `json:"agent_id"`
	OrganizationID string `json:"organization_id"`
}
