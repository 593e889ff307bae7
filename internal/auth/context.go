package auth

import (
	"context"
	"errors"
)

type ctxKey int

const (
	ctxUserID ctxKey = iota
	ctxOrganizationID
	ctxRole
)

// Identity is the authenticated caller as seen by services.
type Identity struct {
	UserID         string
	OrganizationID string
	Role           string
}

func WithIdentity(ctx context.Context, userID, organizationID, role string) context.Context {
	ctx = context.WithValue(ctx, ctxUserID, userID)
	ctx = context.WithValue(ctx, ctxOrganizationID, organizationID)
	ctx = context.WithValue(ctx, ctxRole, role)
	return ctx
}

func UserID(ctx context.Context) (string, error) {
	v := ctx.Value(ctxUserID)
	if s, ok := v.(string); ok && s != "" {
		return s, nil
	}
	return "", errors.New("user_id not in context")
}

func OrganizationID(ctx context.Context) (string, error) {
	v := ctx.Value(ctxOrganizationID)
	if s, ok := v.(string); ok && s != "" {
		return s, nil
	}
	return "", errors.New("organization_id not in context")
}

func Role(ctx context.Context) (string, error) {
	v := ctx.Value(ctxRole)
	if s, ok := v.(string); ok && s != "" {
		return s, nil
	}
	return "", errors.New("role not in context")
}

// IdentityFrom assembles the full identity, erroring if any part is missing.
func IdentityFrom(ctx context.Context) (Identity, error) {
	uid, err := UserID(ctx)
	if err != nil {
		return Identity{}, err
	}
	oid, err := OrganizationID(ctx)
	if err != nil {
		return Identity{}, err
	}
	role, err := Role(ctx)
	if err != nil {
		return Identity{}, err
	}
	return Identity{UserID: uid, OrganizationID: oid, Role: role}, nil
}
