/**
 * @description
 * PostgreSQL data access for WishChain. A single PostgresRepository backs every
 * entity (users, profiles, wishes, donations, geography and the event outbox);
 * the methods are split across files by entity.
 *
 * @dependencies
 * - github.com/jackc/pgx/v5: PostgreSQL driver and connection pool.
 * - internal/domain: Domain models returned by the repository.
 */

package store

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/wishchain/wishchain-backend/internal/domain"
)

var (
	ErrUserNotFound         = errors.New("user not found")
	ErrWishNotFound         = errors.New("wish not found")
	ErrWishAlreadyFulfilled = errors.New("wish already fulfilled")
	ErrAlreadyGranted       = errors.New("wish already granted by donor")
	ErrWishNotGrantable     = errors.New("wish is not open for granting")
	ErrEmailTaken           = errors.New("email already registered")
	ErrProfileNotFound      = errors.New("profile not found")
)

const uniqueViolationCode = "23505"

// Repository defines the entity operations used by the app services.
type Repository interface {
	RegisterUser(ctx context.Context, params RegisterUserParams) (*domain.User, error)
	FindUserByEmail(ctx context.Context, email string) (*domain.User, error)
	FindUserByID(ctx context.Context, userID uuid.UUID) (*domain.User, error)
	FindWisherProfile(ctx context.Context, userID uuid.UUID) (*domain.WisherProfile, error)
	FindDonorProfile(ctx context.Context, userID uuid.UUID) (*domain.DonorProfile, error)

	CreateWish(ctx context.Context, wish *domain.Wish) error
	FindWishByID(ctx context.Context, wishID uuid.UUID) (*domain.Wish, error)
	ListWishes(ctx context.Context) ([]domain.Wish, error)
	ListWishesByOwner(ctx context.Context, ownerID uuid.UUID) ([]domain.Wish, error)
	ExpirePendingWishes(ctx context.Context, cutoff time.Time) (int64, error)

	GrantWish(ctx context.Context, params GrantWishParams) (*domain.GrantOutcome, error)
	ListDonationsByDonor(ctx context.Context, donorID uuid.UUID) ([]domain.Donation, error)

	ListCountries(ctx context.Context) ([]domain.Country, error)
	FindCountry(ctx context.Context, query string) (*domain.Country, error)
	CountryExists(ctx context.Context, code2 string) (bool, error)
	ListCitiesByCountry(ctx context.Context, code2 string) ([]domain.City, error)
}

// OutboxRepository is the slice of the store used by the outbox dispatcher.
type OutboxRepository interface {
	ClaimOutboxMessages(ctx context.Context, limit int, lease time.Duration) ([]OutboxMessage, error)
	MarkOutboxPublished(ctx context.Context, id int64) error
	MarkOutboxFailed(ctx context.Context, id int64, retryAfter time.Duration, reason string) error
}

var (
	_ Repository       = (*PostgresRepository)(nil)
	_ OutboxRepository = (*PostgresRepository)(nil)
)

// PostgresRepository is the PostgreSQL implementation used by the app services.
type PostgresRepository struct {
	db *pgxpool.Pool
}

// NewPostgresRepository creates a new repository over an open pool.
func NewPostgresRepository(db *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func isUniqueViolation(err error, constraint string) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) || pgErr.Code != uniqueViolationCode {
		return false
	}
	return constraint == "" || pgErr.ConstraintName == constraint
}

func stringPtr[T ~string](v *T) *string {
	if v == nil {
		return nil
	}
	s := string(*v)
	return &s
}

func typedPtr[T ~string](v *string) *T {
	if v == nil {
		return nil
	}
	t := T(*v)
	return &t
}
