package app

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// RateLimitScope names the action a counter throttles.
type RateLimitScope string

// GrantWishScope throttles grant attempts per donor.
const GrantWishScope RateLimitScope = "grant_wish"

// RateLimitDecision is the state of a window after one attempt was counted.
type RateLimitDecision struct {
	Attempts   int
	Limit      int
	RetryAfter time.Duration
}

// Allowed reports whether the counted attempt fits inside the window.
func (d RateLimitDecision) Allowed() bool {
	return d.Limit <= 0 || d.Attempts <= d.Limit
}

// RetryAfterSeconds rounds the remaining window up to whole seconds, at least 1.
func (d RateLimitDecision) RetryAfterSeconds() int {
	secs := int((d.RetryAfter + time.Second - 1) / time.Second)
	if secs < 1 {
		return 1
	}
	return secs
}

// openWindowScript starts the window with its expiry on the first attempt only;
// INCR keeps the TTL, so later attempts never extend it.
var openWindowScript = redis.NewScript(`
redis.call("SET", KEYS[1], 0, "PX", ARGV[1], "NX")
local attempts = redis.call("INCR", KEYS[1])
return {attempts, redis.call("PTTL", KEYS[1])}
`)

// RedisRateLimiter keeps one fixed-window counter per scope and user in Redis,
// so every API instance shares the same budget.
type RedisRateLimiter struct {
	client redis.UniversalClient
	prefix string
}

// NewRedisRateLimiter namespaces keys under prefix.
func NewRedisRateLimiter(client redis.UniversalClient, prefix string) *RedisRateLimiter {
	prefix = strings.TrimRight(strings.TrimSpace(prefix), ":")
	if prefix == "" {
		prefix = "wishchain:rate_limit"
	}
	return &RedisRateLimiter{client: client, prefix: prefix}
}

// windowKey is <prefix>:<scope>:<user id>.
func (r *RedisRateLimiter) windowKey(scope RateLimitScope, userID uuid.UUID) string {
	return r.prefix + ":" + string(scope) + ":" + userID.String()
}

// Consume counts one attempt by userID in scope.
func (r *RedisRateLimiter) Consume(ctx context.Context, scope RateLimitScope, userID uuid.UUID, limit int, window time.Duration) (RateLimitDecision, error) {
	decision := RateLimitDecision{Limit: limit}
	if limit <= 0 || window <= 0 || scope == "" || userID == uuid.Nil {
		return decision, nil
	}
	if window < time.Second {
		window = time.Second
	}

	reply, err := openWindowScript.Run(ctx, r.client, []string{r.windowKey(scope, userID)}, window.Milliseconds()).Int64Slice()
	if err != nil {
		return decision, fmt.Errorf("rate limit %s: %w", scope, err)
	}
	if len(reply) != 2 {
		return decision, fmt.Errorf("rate limit %s: expected 2 values, got %d", scope, len(reply))
	}

	decision.Attempts = int(reply[0])
	decision.RetryAfter = window
	if ttl := reply[1]; ttl > 0 {
		decision.RetryAfter = time.Duration(ttl) * time.Millisecond
	}
	return decision, nil
}
