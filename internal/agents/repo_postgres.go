package agents

import (
	"context"
	"database/sql"
	"errors"
)

// PostgresRepo persists agents in the agents table.
//
// Assumed schema:
//   agents(id, organization_id, name, persona, language, instructions, model,
//          temperature, first_message, voice_provider_id, phone_number,
//          is_active, created_at, updated_at)
// with UNIQUE (voice_provider_id) WHERE voice_provider_id <> ''.
type PostgresRepo struct {
	db *sql.DB
}

func NewPostgresRepo(db *sql.DB) *PostgresRepo { return &PostgresRepo{db: db} }

const agentColumns = `
id, organization_id, name, persona, language, instructions, model,
temperature, first_message, voice_provider_id, phone_number, is_active,
created_at, updated_at`

func (r *PostgresRepo) Create(ctx context.Context, a Agent) error {
	const q = `
INSERT INTO agents (
  id, organization_id, name, persona, language, instructions, model,
  temperature, first_message, voice_provider_id, phone_number, is_active,
  created_at, updated_at
) VALUES (
  $1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14
)
`
	_, err := r.db.ExecContext(ctx, q,
		a.ID,
		a.OrganizationID,
		a.Name,
		a.Persona,
		a.Language,
		a.Instructions,
		a.Model,
		a.Temperature,
		a.FirstMessage,
		a.VoiceProviderID,
		a.PhoneNumber,
		a.IsActive,
		a.CreatedAt,
		a.UpdatedAt,
	)
	return err
}

func (r *PostgresRepo) Update(ctx context.Context, a Agent) error {
	const q = `
UPDATE agents
SET name = $3, persona = $4, language = $5, instructions = $6, model = $7,
    temperature = $8, first_message = $9, phone_number = $10, is_active = $11,
    updated_at = $12
WHERE organization_id = $1 AND id = $2
`
	res, err := r.db.ExecContext(ctx, q,
		a.OrganizationID,
		a.ID,
		a.Name,
		a.Persona,
		a.Language,
		a.Instructions,
		a.Model,
		a.Temperature,
		a.FirstMessage,
		a.PhoneNumber,
		a.IsActive,
		a.UpdatedAt,
	)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *PostgresRepo) Delete(ctx context.Context, organizationID, agentID string) error {
	const q = `DELETE FROM agents WHERE organization_id = $1 AND id = $2`
	res, err := r.db.ExecContext(ctx, q, organizationID, agentID)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *PostgresRepo) Get(ctx context.Context, organizationID, agentID string) (Agent, error) {
	q := `SELECT ` + agentColumns + ` FROM agents WHERE organization_id = $1 AND id = $2`
	return scanAgent(r.db.QueryRowContext(ctx, q, organizationID, agentID))
}

func (r *PostgresRepo) List(ctx context.Context, organizationID string) ([]Agent, error) {
	q := `SELECT ` + agentColumns + ` FROM agents WHERE organization_id = $1 ORDER BY created_at DESC`
	rows, err := r.db.QueryContext(ctx, q, organizationID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]Agent, 0)
	for rows.Next() {
		a, err := scanAgent(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (r *PostgresRepo) ResolveByProviderID(ctx context.Context, voiceProviderID string) (AgentRef, error) {
	const q = `SELECT id, organization_id FROM agents WHERE voice_provider_id = $1 LIMIT 1`
	var ref AgentRef
	if err := r.db.QueryRowContext(ctx, q, voiceProviderID).Scan(&ref.AgentID, &ref.OrganizationID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return AgentRef{}, ErrNotFound
		}
		return AgentRef{}, err
	}
	return ref, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAgent(row rowScanner) (Agent, error) {
	var a Agent
	err := row.Scan(
		&a.ID,
		&a.OrganizationID,
		&a.Name,
		&a.Persona,
		&a.Language,
		&a.Instructions,
		&a.Model,
		&a.Temperature,
		&a.FirstMessage,
		&a.VoiceProviderID,
		&a.PhoneNumber,
		&a.IsActive,
		&a.CreatedAt,
		&a.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Agent{}, ErrNotFound
		}
		return Agent{}, err
	}
	return a, nil
}
