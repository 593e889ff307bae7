package auth

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"
)

var (
	ErrUserNotFound = errors.New("auth: user not found")

	// ErrInvalidCredentials covers both unknown emails and wrong passwords so
	// login responses cannot be used to enumerate accounts.
	ErrInvalidCredentials = errors.New("auth: invalid credentials")
)

// User is an account within one organization.
type User struct {
	ID             string `json:"id" db:"id"`
	OrganizationID string `json:"organization_id" db:"organization_id"`

	Email        string `json:"email" db:"email"`
	PasswordHash string `json:"-" db:"password_hash"`
	Role         string `json:"role" db:"role"`
	IsActive     bool   `json:"is_active" db:"is_active"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// UserRepository reads accounts for authentication. Email lookup is global;
// emails are unique across organizations.
type UserRepository interface {
	FindByEmail(ctx context.Context, email string) (User, error)
	FindByID(ctx context.Context, userID string) (User, error)
}

// HashPassword produces a bcrypt hash for storage.
func HashPassword(plain string) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(plain), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// LoginService exchanges credentials for a token pair.
type LoginService struct {
	users  UserRepository
	tokens *Manager
	log    *slog.Logger

	clock func() time.Time
}

func NewLoginService(users UserRepository, tokens *Manager, log *slog.Logger) *LoginService {
	if log == nil {
		log = slog.Default()
	}
	return &LoginService{users: users, tokens: tokens, log: log, clock: time.Now}
}

func (s *LoginService) Login(ctx context.Context, email, password string) (TokenPair, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || password == "" {
		return TokenPair{}, ErrInvalidCredentials
	}

	u, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return TokenPair{}, ErrInvalidCredentials
		}
		return TokenPair{}, err
	}
	if !u.IsActive {
		return TokenPair{}, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		return TokenPair{}, ErrInvalidCredentials
	}

	pair, err := s.tokens.IssuePair(s.clock(), u.ID, u.OrganizationID, u.Role)
	if err != nil {
		return TokenPair{}, err
	}
	s.log.InfoContext(ctx, "user logged in",
		"user_id", u.ID, "organization_id", u.OrganizationID)
	return pair, nil
}

// Refresh exchanges a valid refresh token for a fresh pair. The role is
// re-read from storage so revoked privileges do not survive rotation.
func (s *LoginService) Refresh(ctx context.Context, refreshToken string) (TokenPair, error) {
	claims, err := s.tokens.Verify(refreshToken, TokenTypeRefresh, s.clock())
	if err != nil {
		return TokenPair{}, ErrInvalidCredentials
	}

	u, err := s.users.FindByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return TokenPair{}, ErrInvalidCredentials
		}
		return TokenPair{}, err
	}
	if !u.IsActive {
		return TokenPair{}, ErrInvalidCredentials
	}
	return s.tokens.IssuePair(s.clock(), u.ID, u.OrganizationID, u.Role)
}
