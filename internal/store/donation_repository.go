package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/wishchain/wishchain-backend/internal/domain"
)

// GrantWishParams identifies one grant attempt.
type GrantWishParams struct {
	WishID   uuid.UUID
	DonorID  uuid.UUID
	Notes    *string
	Exchange string
}

// GrantWish records a donation, fulfils the wish and bumps the donor's totals
// in a single transaction. The wish row is locked for the duration, and the
// (wish_id, donor_id) constraint plus the pending-only status update catch any
// attempt that slips past the checks.
func (r *PostgresRepository) GrantWish(ctx context.Context, params GrantWishParams) (*domain.GrantOutcome, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	// 1. Lock the wish row
	var (
		title    string
		status   string
		wisherID uuid.UUID
	)
	err = tx.QueryRow(ctx, `
		SELECT title, status, user_id
		FROM wishes
		WHERE id = $1
		FOR UPDATE
	`, params.WishID).Scan(&title, &status, &wisherID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrWishNotFound
		}
		return nil, fmt.Errorf("failed to get and lock wish: %w", err)
	}

	if domain.WishStatus(status) == domain.WishFulfilled {
		return nil, ErrWishAlreadyFulfilled
	}

	// 2. Reject a second grant by the same donor
	var alreadyGranted bool
	err = tx.QueryRow(ctx, `
		SELECT EXISTS (SELECT 1 FROM donations WHERE wish_id = $1 AND donor_id = $2)
	`, params.WishID, params.DonorID).Scan(&alreadyGranted)
	if err != nil {
		return nil, fmt.Errorf("failed to check existing donations: %w", err)
	}
	if alreadyGranted {
		return nil, ErrAlreadyGranted
	}

	if domain.WishStatus(status) != domain.WishPending {
		return nil, ErrWishNotGrantable
	}

	// 3. Insert the donation
	var donation domain.Donation
	err = tx.QueryRow(ctx, `
		INSERT INTO donations (wish_id, donor_id, notes)
		VALUES ($1, $2, $3)
		ON CONFLICT (wish_id, donor_id) DO NOTHING
		RETURNING id, wish_id, donor_id, notes, created_at, updated_at
	`, params.WishID, params.DonorID, params.Notes).Scan(
		&donation.ID, &donation.WishID, &donation.DonorID, &donation.Notes, &donation.CreatedAt, &donation.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAlreadyGranted
		}
		return nil, fmt.Errorf("failed to insert donation: %w", err)
	}

	// 4. Fulfil the wish
	tag, err := tx.Exec(ctx, `
		UPDATE wishes
		SET status = 'fulfilled', updated_at = NOW()
		WHERE id = $1 AND status = 'pending'
	`, params.WishID)
	if err != nil {
		return nil, fmt.Errorf("failed to update wish status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return nil, ErrWishAlreadyFulfilled
	}

	// 5. Get-or-create the donor profile and recompute the impact score
	if _, err := tx.Exec(ctx, `
		INSERT INTO donor_profiles (user_id)
		VALUES ($1)
		ON CONFLICT (user_id) DO NOTHING
	`, params.DonorID); err != nil {
		return nil, fmt.Errorf("failed to ensure donor profile: %w", err)
	}

	outcome := &domain.GrantOutcome{Donation: donation, WishTitle: title}
	err = tx.QueryRow(ctx, `
		UPDATE donor_profiles
		SET total_donations = total_donations + 1,
			impact_score = (total_donations + 1) * $2,
			updated_at = NOW()
		WHERE user_id = $1
		RETURNING total_donations, impact_score
	`, params.DonorID, domain.ImpactPointsPerDonation).Scan(&outcome.TotalDonations, &outcome.ImpactScore)
	if err != nil {
		return nil, fmt.Errorf("failed to update donor totals: %w", err)
	}

	// 6. Publish wish.granted with the commit
	event := domain.WishGrantedEvent{
		WishID:         params.WishID.String(),
		WisherID:       wisherID.String(),
		DonorID:        params.DonorID.String(),
		DonationID:     donation.ID.String(),
		TotalDonations: outcome.TotalDonations,
		OccurredAt:     time.Now().UTC(),
	}
	if err := appendOutboxEvent(ctx, tx, params.Exchange, event); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit grant: %w", err)
	}
	return outcome, nil
}

// ListDonationsByDonor returns a donor's donations, newest first.
func (r *PostgresRepository) ListDonationsByDonor(ctx context.Context, donorID uuid.UUID) ([]domain.Donation, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, wish_id, donor_id, notes, created_at, updated_at
		FROM donations
		WHERE donor_id = $1
		ORDER BY created_at DESC, id
	`, donorID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	donations := []domain.Donation{}
	for rows.Next() {
		var d domain.Donation
		if err := rows.Scan(&d.ID, &d.WishID, &d.DonorID, &d.Notes, &d.CreatedAt, &d.UpdatedAt); err != nil {
			return nil, err
		}
		donations = append(donations, d)
	}
	return donations, rows.Err()
}
