package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/wishchain/wishchain-backend/internal/domain"
)

// RegisterUserParams carries one registration. Exactly one profile is set,
// matching the user's role.
type RegisterUserParams struct {
	User          *domain.User
	WisherProfile *domain.WisherProfile
	DonorProfile  *domain.DonorProfile
	Exchange      string
}

const userColumns = `id, email, first_name, last_name, role, country, city, phone_number,
	language_preference, password_hash, created_at, updated_at`

// RegisterUser inserts the user, get-or-creates its role profile and enqueues a
// user.registered event, all in one transaction. A taken email yields ErrEmailTaken.
func (r *PostgresRepository) RegisterUser(ctx context.Context, params RegisterUserParams) (*domain.User, error) {
	if params.User == nil {
		return nil, errors.New("user is required")
	}

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	user := *params.User
	user.Email = strings.ToLower(strings.TrimSpace(user.Email))

	err = tx.QueryRow(ctx, `
		INSERT INTO users (email, first_name, last_name, role, country, city, phone_number, language_preference, password_hash)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id, created_at, updated_at
	`,
		user.Email,
		user.FirstName,
		user.LastName,
		string(user.Role),
		user.Country,
		user.City,
		user.PhoneNumber,
		user.LanguagePreference,
		user.PasswordHash,
	).Scan(&user.ID, &user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err, "users_email_key") {
			return nil, ErrEmailTaken
		}
		return nil, fmt.Errorf("failed to insert user: %w", err)
	}

	switch {
	case params.WisherProfile != nil:
		if err := upsertWisherProfileTx(ctx, tx, user.ID, params.WisherProfile); err != nil {
			return nil, err
		}
	case params.DonorProfile != nil:
		if err := upsertDonorProfileTx(ctx, tx, user.ID, params.DonorProfile); err != nil {
			return nil, err
		}
	}

	event := domain.UserRegisteredEvent{
		UserID:     user.ID.String(),
		Role:       user.Role,
		Country:    user.Country,
		Language:   user.LanguagePreference,
		OccurredAt: time.Now().UTC(),
	}
	if err := appendOutboxEvent(ctx, tx, params.Exchange, event); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit registration: %w", err)
	}
	return &user, nil
}

func upsertWisherProfileTx(ctx context.Context, tx pgx.Tx, userID uuid.UUID, profile *domain.WisherProfile) error {
	_, err := tx.Exec(ctx, `
		INSERT INTO wisher_profiles (user_id, household_size, income_bracket, id_document)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (user_id)
		DO UPDATE SET
			household_size = EXCLUDED.household_size,
			income_bracket = EXCLUDED.income_bracket,
			updated_at = NOW()
	`, userID, profile.HouseholdSize, stringPtr(profile.IncomeBracket), profile.IDDocument)
	if err != nil {
		return fmt.Errorf("failed to upsert wisher profile: %w", err)
	}
	return nil
}

func upsertDonorProfileTx(ctx context.Context, tx pgx.Tx, userID uuid.UUID, profile *domain.DonorProfile) error {
	focus := profile.GivingFocus
	if focus == nil {
		focus = []string{}
	}
	_, err := tx.Exec(ctx, `
		INSERT INTO donor_profiles (user_id, display_name, hear_about, giving_focus, show_display_name, is_anonymous, visibility)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (user_id)
		DO UPDATE SET
			display_name = EXCLUDED.display_name,
			hear_about = EXCLUDED.hear_about,
			giving_focus = EXCLUDED.giving_focus,
			show_display_name = EXCLUDED.show_display_name,
			is_anonymous = EXCLUDED.is_anonymous,
			updated_at = NOW()
	`,
		userID,
		profile.DisplayName,
		stringPtr(profile.HearAbout),
		focus,
		profile.ShowDisplayName,
		profile.IsAnonymous,
		profile.Visibility,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert donor profile: %w", err)
	}
	return nil
}

// FindUserByEmail looks a user up by case-insensitive email.
func (r *PostgresRepository) FindUserByEmail(ctx context.Context, email string) (*domain.User, error) {
	row := r.db.QueryRow(ctx,
		`SELECT `+userColumns+` FROM users WHERE email = $1`,
		strings.ToLower(strings.TrimSpace(email)),
	)
	return scanUser(row)
}

// FindUserByID looks a user up by id.
func (r *PostgresRepository) FindUserByID(ctx context.Context, userID uuid.UUID) (*domain.User, error) {
	row := r.db.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, userID)
	return scanUser(row)
}

func scanUser(row pgx.Row) (*domain.User, error) {
	var (
		u    domain.User
		role string
	)
	err := row.Scan(
		&u.ID, &u.Email, &u.FirstName, &u.LastName, &role, &u.Country, &u.City,
		&u.PhoneNumber, &u.LanguagePreference, &u.PasswordHash, &u.CreatedAt, &u.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	u.Role = domain.Role(role)
	return &u, nil
}

// FindWisherProfile returns the wisher profile of a user, or ErrProfileNotFound.
func (r *PostgresRepository) FindWisherProfile(ctx context.Context, userID uuid.UUID) (*domain.WisherProfile, error) {
	var (
		p       domain.WisherProfile
		bracket *string
	)
	err := r.db.QueryRow(ctx, `
		SELECT user_id, verified_by, household_size, income_bracket, id_document, created_at, updated_at
		FROM wisher_profiles
		WHERE user_id = $1
	`, userID).Scan(&p.UserID, &p.VerifiedBy, &p.HouseholdSize, &bracket, &p.IDDocument, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrProfileNotFound
		}
		return nil, err
	}
	p.IncomeBracket = typedPtr[domain.IncomeBracket](bracket)
	return &p, nil
}

// FindDonorProfile returns the donor profile of a user, or ErrProfileNotFound.
func (r *PostgresRepository) FindDonorProfile(ctx context.Context, userID uuid.UUID) (*domain.DonorProfile, error) {
	var (
		p         domain.DonorProfile
		hearAbout *string
	)
	err := r.db.QueryRow(ctx, `
		SELECT user_id, display_name, hear_about, giving_focus, show_display_name, is_anonymous,
		       visibility, impact_score, total_donations, created_at, updated_at
		FROM donor_profiles
		WHERE user_id = $1
	`, userID).Scan(
		&p.UserID, &p.DisplayName, &hearAbout, &p.GivingFocus, &p.ShowDisplayName, &p.IsAnonymous,
		&p.Visibility, &p.ImpactScore, &p.TotalDonations, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrProfileNotFound
		}
		return nil, err
	}
	p.HearAbout = typedPtr[domain.HearAboutSource](hearAbout)
	if p.GivingFocus == nil {
		p.GivingFocus = []string{}
	}
	return &p, nil
}
