/**
 * @description
 * Core business logic for WishChain. Service coordinates registration,
 * authentication, wish creation, the grant-wish transaction and the read-only
 * dashboards on top of the store.
 *
 * @dependencies
 * - log/slog: Structured logging, injected by main.
 * - internal/store: Repository interface and sentinel errors.
 */
package app

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/wishchain/wishchain-backend/internal/store"
)

// RateLimiter counts attempts per scope and user in a fixed window.
type RateLimiter interface {
	Consume(ctx context.Context, scope RateLimitScope, userID uuid.UUID, limit int, window time.Duration) (RateLimitDecision, error)
}

// Service provides the core business logic.
type Service struct {
	repo     store.Repository
	sessions *SessionManager
	logger   *slog.Logger
	exchange string

	limiter        RateLimiter
	grantRateLimit int

	hashPassword    func(password string) (string, error)
	comparePassword func(hash, password string) error
	now             func() time.Time
}

// NewService creates a new service instance.
func NewService(repo store.Repository, sessions *SessionManager, logger *slog.Logger, exchange string) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		repo:     repo,
		sessions: sessions,
		logger:   logger,
		exchange: exchange,
		hashPassword: func(password string) (string, error) {
			hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
			return string(hash), err
		},
		comparePassword: func(hash, password string) error {
			return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
		},
		now: time.Now,
	}
}

// SetGrantRateLimiter enables per-donor grant rate limiting. A nil limiter or
// non-positive limit disables it.
func (s *Service) SetGrantRateLimiter(limiter RateLimiter, perMinute int) {
	s.limiter = limiter
	s.grantRateLimit = perMinute
}
