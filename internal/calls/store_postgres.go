package calls

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"strconv"
	"strings"

	"github.com/aymandakir/voice-ai-call-center/internal/usage"
	"github.com/aymandakir/voice-ai-call-center/pkg/utils"
)

// PostgresStore persists calls, call events and usage records.
//
// Assumed schema:
//
//	calls(id, organization_id, agent_id, provider_call_id, direction,
//	      from_number, to_number, status, started_at, connected_at, ended_at,
//	      duration_seconds, outcome, transcript, summary, tags, created_at, updated_at)
//	call_events(id, call_id, event_type, data, occurred_at)
//
// tags is jsonb; call_events.data is jsonb. Multi-write methods run inside a
// single transaction so a webhook delivery lands fully or not at all.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore { return &PostgresStore{db: db} }

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

const callColumns = `id, organization_id, agent_id, provider_call_id, direction,
from_number, to_number, status, started_at, connected_at, ended_at,
duration_seconds, outcome, transcript, summary, tags, created_at, updated_at`

func insertCall(ctx context.Context, ex execer, c Call) error {
	tags, err := json.Marshal(c.Tags)
	if err != nil {
		return err
	}
	const q = `
INSERT INTO calls (` + callColumns + `)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18)
`
	_, err = ex.ExecContext(ctx, q,
		c.ID, c.OrganizationID, c.AgentID, nullString(c.ProviderCallID),
		c.Direction, c.FromNumber, c.ToNumber, c.Status,
		c.StartedAt, c.ConnectedAt, c.EndedAt,
		c.DurationSeconds, c.Outcome, c.Transcript, c.Summary,
		tags, c.CreatedAt, c.UpdatedAt,
	)
	return err
}

func updateCall(ctx context.Context, ex execer, c Call) error {
	tags, err := json.Marshal(c.Tags)
	if err != nil {
		return err
	}
	const q = `
UPDATE calls SET
  provider_call_id = $2, status = $3,
  started_at = $4, connected_at = $5, ended_at = $6,
  duration_seconds = $7, outcome = $8, transcript = $9, summary = $10,
  tags = $11, updated_at = $12
WHERE id = $1
`
	res, err := ex.ExecContext(ctx, q,
		c.ID, nullString(c.ProviderCallID), c.Status,
		c.StartedAt, c.ConnectedAt, c.EndedAt,
		c.DurationSeconds, c.Outcome, c.Transcript, c.Summary,
		tags, c.UpdatedAt,
	)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func insertEvent(ctx context.Context, ex execer, ev CallEvent) error {
	const q = `
INSERT INTO call_events (id, call_id, event_type, data, occurred_at)
VALUES ($1,$2,$3,$4,$5)
`
	data := ev.Data
	if data == nil {
		data = json.RawMessage("{}")
	}
	_, err := ex.ExecContext(ctx, q, ev.ID, ev.CallID, ev.EventType, []byte(data), ev.OccurredAt)
	return err
}

func insertUsage(ctx context.Context, ex execer, rec usage.UsageRecord) error {
	const q = `
INSERT INTO usage_records (id, organization_id, call_id, metric_type, quantity, created_at)
VALUES ($1,$2,$3,$4,$5,$6)
`
	_, err := ex.ExecContext(ctx, q,
		rec.ID, rec.OrganizationID, rec.CallID, rec.MetricType, rec.Quantity, rec.CreatedAt)
	return err
}

func (s *PostgresStore) CreateCall(ctx context.Context, c Call) error {
	return insertCall(ctx, s.db, c)
}

func (s *PostgresStore) UpdateCall(ctx context.Context, c Call) error {
	return updateCall(ctx, s.db, c)
}

func (s *PostgresStore) GetCall(ctx context.Context, organizationID, callID string) (Call, error) {
	const q = `
SELECT ` + callColumns + `
FROM calls
WHERE organization_id = $1 AND id = $2
`
	row := s.db.QueryRowContext(ctx, q, organizationID, callID)
	c, err := scanCall(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Call{}, ErrNotFound
	}
	return c, err
}

func (s *PostgresStore) ListCalls(ctx context.Context, organizationID string, f ListFilter) ([]Call, error) {
	var b strings.Builder
	b.WriteString(`SELECT ` + callColumns + ` FROM calls WHERE organization_id = $1`)
	args := []any{organizationID}

	add := func(clause string, v any) {
		args = append(args, v)
		b.WriteString(" AND " + clause + " $" + strconv.Itoa(len(args)))
	}
	if f.AgentID != "" {
		add("agent_id =", f.AgentID)
	}
	if f.Direction != "" {
		add("direction =", f.Direction)
	}
	if f.Status != "" {
		add("status =", f.Status)
	}
	if f.Outcome != "" {
		add("outcome =", f.Outcome)
	}
	if !f.From.IsZero() {
		add("created_at >=", f.From)
	}
	if !f.To.IsZero() {
		add("created_at <", f.To)
	}
	b.WriteString(" ORDER BY created_at DESC")
	if f.Limit > 0 {
		args = append(args, f.Limit)
		b.WriteString(" LIMIT $" + strconv.Itoa(len(args)))
	}

	rows, err := s.db.QueryContext(ctx, b.String(), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]Call, 0)
	for rows.Next() {
		c, err := scanCall(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (s *PostgresStore) FindCallByProviderID(ctx context.Context, providerCallID string) (Call, bool, error) {
	if providerCallID == "" {
		return Call{}, false, nil
	}
	const q = `
SELECT ` + callColumns + `
FROM calls
WHERE provider_call_id = $1
`
	row := s.db.QueryRowContext(ctx, q, providerCallID)
	c, err := scanCall(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Call{}, false, nil
	}
	if err != nil {
		return Call{}, false, err
	}
	return c, true, nil
}

func (s *PostgresStore) ListEvents(ctx context.Context, callID string) ([]CallEvent, error) {
	const q = `
SELECT id, call_id, event_type, data, occurred_at
FROM call_events
WHERE call_id = $1
ORDER BY occurred_at, id
`
	rows, err := s.db.QueryContext(ctx, q, callID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]CallEvent, 0)
	for rows.Next() {
		var ev CallEvent
		var data []byte
		if err := rows.Scan(&ev.ID, &ev.CallID, &ev.EventType, &data, &ev.OccurredAt); err != nil {
			return nil, err
		}
		ev.Data = json.RawMessage(data)
		out = append(out, ev)
	}
	return out, rows.Err()
}

func (s *PostgresStore) CreateCallWithEvent(ctx context.Context, c Call, ev CallEvent) error {
	return utils.WithTx(ctx, s.db, nil, func(ctx context.Context, tx *sql.Tx) error {
		if err := insertCall(ctx, tx, c); err != nil {
			return err
		}
		return insertEvent(ctx, tx, ev)
	})
}

func (s *PostgresStore) UpdateCallWithEvent(ctx context.Context, c Call, ev *CallEvent) error {
	return utils.WithTx(ctx, s.db, nil, func(ctx context.Context, tx *sql.Tx) error {
		if err := updateCall(ctx, tx, c); err != nil {
			return err
		}
		if ev == nil {
			return nil
		}
		return insertEvent(ctx, tx, *ev)
	})
}

func (s *PostgresStore) FinalizeCall(ctx context.Context, c Call, ev CallEvent, recs []usage.UsageRecord) error {
	return utils.WithTx(ctx, s.db, nil, func(ctx context.Context, tx *sql.Tx) error {
		if err := updateCall(ctx, tx, c); err != nil {
			return err
		}
		if err := insertEvent(ctx, tx, ev); err != nil {
			return err
		}
		for _, rec := range recs {
			if err := insertUsage(ctx, tx, rec); err != nil {
				return err
			}
		}
		return nil
	})
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCall(row rowScanner) (Call, error) {
	var (
		c          Call
		providerID sql.NullString
		tags       []byte
	)
	err := row.Scan(
		&c.ID, &c.OrganizationID, &c.AgentID, &providerID, &c.Direction,
		&c.FromNumber, &c.ToNumber, &c.Status,
		&c.StartedAt, &c.ConnectedAt, &c.EndedAt,
		&c.DurationSeconds, &c.Outcome, &c.Transcript, &c.Summary,
		&tags, &c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		return Call{}, err
	}
	c.ProviderCallID = providerID.String
	if len(tags) > 0 {
		if err := json.Unmarshal(tags, &c.Tags); err != nil {
			return Call{}, err
		}
	}
	return c, nil
}

// nullString maps "" to NULL so the partial unique index on provider_call_id
// only applies once the vendor id is known.
func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

var _ Store = (*PostgresStore)(nil)
var _ Store = (*MemoryStore)(nil)
