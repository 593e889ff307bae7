package usage

import (
	"context"
	"database/sql"
	"time"
)

// PostgresRepo persists usage records in the usage_records table.
//
// Assumed schema:
//   usage_records(id, organization_id, call_id, metric_type, quantity, created_at)
// with an INSERT-only policy.
type PostgresRepo struct {
	db *sql.DB
}

func NewPostgresRepo(db *sql.DB) *PostgresRepo { return &PostgresRepo{db: db} }

func (r *PostgresRepo) Append(ctx context.Context, rec UsageRecord) error {
	const q = `
INSERT INTO usage_records (id, organization_id, call_id, metric_type, quantity, created_at)
VALUES ($1,$2,$3,$4,$5,$6)
`
	_, err := r.db.ExecContext(ctx, q,
		rec.ID,
		rec.OrganizationID,
		rec.CallID,
		rec.MetricType,
		rec.Quantity,
		rec.CreatedAt,
	)
	return err
}

func (r *PostgresRepo) ListByOrganization(ctx context.Context, organizationID string, from, to time.Time) ([]UsageRecord, error) {
	const q = `
SELECT id, organization_id, call_id, metric_type, quantity, created_at
FROM usage_records
WHERE organization_id = $1 AND created_at >= $2 AND created_at < $3
ORDER BY created_at
`
	rows, err := r.db.QueryContext(ctx, q, organizationID, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]UsageRecord, 0)
	for rows.Next() {
		var rec UsageRecord
		if err := rows.Scan(
			&rec.ID,
			&rec.OrganizationID,
			&rec.CallID,
			&rec.MetricType,
			&rec.Quantity,
			&rec.CreatedAt,
		); err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}
