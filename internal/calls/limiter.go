package calls

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/aymandakir/voice-ai-call-center/internal/config"
	"github.com/aymandakir/voice-ai-call-center/pkg/utils"
)

// ConcurrencyLimiter caps simultaneous outbound calls per organization.
type ConcurrencyLimiter interface {
	// Acquire reserves one slot. false means the cap is reached.
	Acquire(ctx context.Context, organizationID string) (bool, error)
	Release(ctx context.Context, organizationID string) error
}

// RedisLimiter implements ConcurrencyLimiter on a shared Redis counter so the
// cap holds across API replicas. Slots carry a TTL; a crashed process cannot
// leak an organization's capacity forever.
type RedisLimiter struct {
	rdb   *redis.Client
	limit int
	ttl   time.Duration
}

func NewRedisLimiter(rdb *redis.Client, cfg config.OutboundConfig) *RedisLimiter {
	return &RedisLimiter{
		rdb:   rdb,
		limit: cfg.MaxConcurrentPerOrg,
		ttl:   cfg.ConcurrencyTTL,
	}
}

func (l *RedisLimiter) key(organizationID string) string {
	return "outbound_cap:" + organizationID
}

func (l *RedisLimiter) Acquire(ctx context.Context, organizationID string) (bool, error) {
	return utils.AcquireConcurrencyCap(ctx, l.rdb, l.key(organizationID), l.limit, l.ttl)
}

func (l *RedisLimiter) Release(ctx context.Context, organizationID string) error {
	return utils.ReleaseConcurrencyCap(ctx, l.rdb, l.key(organizationID))
}

var _ ConcurrencyLimiter = (*RedisLimiter)(nil)
