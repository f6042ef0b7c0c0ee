package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/wishchain/wishchain-backend/internal/store"
)

// maxDonationNotes is counted in characters, not bytes.
const maxDonationNotes = 1000

// GrantResult is returned after a donor grants a wish.
type GrantResult struct {
	WishID         uuid.UUID `json:"wish_id"`
	WishTitle      string    `json:"wish_title"`
	DonationID     uuid.UUID `json:"donation_id"`
	TotalDonations int       `json:"total_donations"`
	ImpactScore    float64   `json:"impact_score"`
	Message        string    `json:"message"`
}

// ConflictMessage is the user-facing text for an expected grant conflict.
func ConflictMessage(err error) (string, bool) {
	switch {
	case errors.Is(err, store.ErrWishAlreadyFulfilled):
		return "This wish has already been fulfilled.", true
	case errors.Is(err, store.ErrAlreadyGranted):
		return "You have already granted this wish.", true
	case errors.Is(err, store.ErrWishNotGrantable):
		return "This wish is no longer open for granting.", true
	}
	return "", false
}

// GrantWish records donorID fulfilling wishID. The donation, the status change
// and the donor's totals are committed together or not at all. Conflicts and
// a missing wish are returned as store sentinel errors.
func (s *Service) GrantWish(ctx context.Context, wishID, donorID uuid.UUID, notes string) (*GrantResult, error) {
	donor, err := s.repo.FindUserByID(ctx, donorID)
	if err != nil {
		if errors.Is(err, store.ErrUserNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to load donor: %w", err)
	}
	if !donor.IsDonor() {
		return nil, ErrForbiddenRole
	}

	if err := s.consumeGrantRateLimit(ctx, donorID); err != nil {
		return nil, err
	}

	var notesPtr *string
	if trimmed := truncateRunes(strings.TrimSpace(notes), maxDonationNotes); trimmed != "" {
		notesPtr = &trimmed
	}

	outcome, err := s.repo.GrantWish(ctx, store.GrantWishParams{
		WishID:   wishID,
		DonorID:  donorID,
		Notes:    notesPtr,
		Exchange: s.exchange,
	})
	if err != nil {
		if msg, ok := ConflictMessage(err); ok {
			s.logger.Info("grant rejected", "component", "grant", "wish_id", wishID, "user_id", donorID, "reason", msg)
			return nil, err
		}
		if errors.Is(err, store.ErrWishNotFound) {
			return nil, err
		}
		s.logger.Error("grant failed", "component", "grant", "wish_id", wishID, "user_id", donorID, "error", err)
		return nil, fmt.Errorf("failed to grant wish: %w", err)
	}

	s.logger.Info("wish granted",
		"component", "grant",
		"wish_id", wishID,
		"user_id", donorID,
		"donation_id", outcome.Donation.ID,
		"total_donations", outcome.TotalDonations,
	)
	return &GrantResult{
		WishID:         wishID,
		WishTitle:      outcome.WishTitle,
		DonationID:     outcome.Donation.ID,
		TotalDonations: outcome.TotalDonations,
		ImpactScore:    outcome.ImpactScore,
		Message:        fmt.Sprintf("You have successfully granted the wish: %q", outcome.WishTitle),
	}, nil
}

// consumeGrantRateLimit fails open: limiter errors are logged and the grant proceeds.
func (s *Service) consumeGrantRateLimit(ctx context.Context, donorID uuid.UUID) error {
	if s.limiter == nil || s.grantRateLimit <= 0 {
		return nil
	}
	decision, err := s.limiter.Consume(ctx, GrantWishScope, donorID, s.grantRateLimit, time.Minute)
	if err != nil {
		s.logger.Warn("grant rate limiter unavailable", "component", "grant", "user_id", donorID, "error", err)
		return nil
	}
	if !decision.Allowed() {
		return &RateLimitError{RetryAfterSeconds: decision.RetryAfterSeconds()}
	}
	return nil
}

// truncateRunes keeps at most max characters of s.
func truncateRunes(s string, max int) string {
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	runes := 0
	for i := range s {
		if runes == max {
			return s[:i]
		}
		runes++
	}
	return s
}
