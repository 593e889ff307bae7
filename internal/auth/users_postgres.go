package auth

import (
	"context"
	"database/sql"
	"errors"
)

// PostgresUserRepo reads accounts from the users table.
//
// Assumed schema:
//
//	users(id, organization_id, email UNIQUE, password_hash, role, is_active, created_at)
type PostgresUserRepo struct {
	db *sql.DB
}

func NewPostgresUserRepo(db *sql.DB) *PostgresUserRepo { return &PostgresUserRepo{db: db} }

const userColumns = `id, organization_id, email, password_hash, role, is_active, created_at`

func (r *PostgresUserRepo) FindByEmail(ctx context.Context, email string) (User, error) {
	const q = `
SELECT ` + userColumns + `
FROM users
WHERE lower(email) = lower($1)
`
	return r.scanOne(r.db.QueryRowContext(ctx, q, email))
}

func (r *PostgresUserRepo) FindByID(ctx context.Context, userID string) (User, error) {
	const q = `
SELECT ` + userColumns + `
FROM users
WHERE id = $1
`
	return r.scanOne(r.db.QueryRowContext(ctx, q, userID))
}

func (r *PostgresUserRepo) scanOne(row *sql.Row) (User, error) {
	var u User
	err := row.Scan(
		&u.ID, &u.OrganizationID, &u.Email, &u.PasswordHash,
		&u.Role, &u.IsActive, &u.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return User{}, ErrUserNotFound
	}
	if err != nil {
		return User{}, err
	}
	return u, nil
}
