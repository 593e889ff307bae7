package auth

import (
	"context"
	"strings"
	"sync"
)

// MemoryUserRepo is an in-memory user repository for tests and early
// development.
type MemoryUserRepo struct {
	mu    sync.Mutex
	users map[string]User // key: user id
}

func NewMemoryUserRepo() *MemoryUserRepo {
	return &MemoryUserRepo{users: map[string]User{}}
}

func (r *MemoryUserRepo) Add(u User) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.users[u.ID] = u
}

func (r *MemoryUserRepo) FindByEmail(ctx context.Context, email string) (User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	email = strings.ToLower(email)
	for _, u := range r.users {
		if strings.ToLower(u.Email) == email {
			return u, nil
		}
	}
	return User{}, ErrUserNotFound
}

func (r *MemoryUserRepo) FindByID(ctx context.Context, userID string) (User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[userID]
	if !ok {
		return User{}, ErrUserNotFound
	}
	return u, nil
}
