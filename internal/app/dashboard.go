package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/wishchain/wishchain-backend/internal/domain"
	"github.com/wishchain/wishchain-backend/internal/store"
)

// DonatePage lists every wish with global counts.
type DonatePage struct {
	Wishes               []domain.Wish `json:"wishes"`
	PendingWishesCount   int           `json:"pending_wishes_count"`
	FulfilledWishesCount int           `json:"fulfilled_wishes_count"`
	TotalWishesCount     int           `json:"total_wishes_count"`
}

// DonorDashboard is the donate page plus the caller's own giving record.
type DonorDashboard struct {
	DonatePage
	Profile   *domain.DonorProfile `json:"profile,omitempty"`
	Donations []domain.Donation    `json:"donations"`
}

// WisherDashboard lists the caller's wishes with counts scoped to them.
type WisherDashboard struct {
	Wishes          []domain.Wish         `json:"wishes"`
	TotalWishes     int                   `json:"total_wishes"`
	PendingWishes   int                   `json:"pending_wishes"`
	FulfilledWishes int                   `json:"fulfilled_wishes"`
	IsVerified      bool                  `json:"is_verified"`
	Profile         *domain.WisherProfile `json:"profile,omitempty"`
}

// GetDonatePage returns all wishes, newest first, with status counts taken
// from the same listing.
func (s *Service) GetDonatePage(ctx context.Context) (*DonatePage, error) {
	wishes, err := s.repo.ListWishes(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list wishes: %w", err)
	}
	counts := domain.CountWishStatuses(wishes)
	return &DonatePage{
		Wishes:               wishes,
		PendingWishesCount:   counts.Pending,
		FulfilledWishesCount: counts.Fulfilled,
		TotalWishesCount:     counts.Total,
	}, nil
}

// GetDonorDashboard returns the donate page together with the donor's profile
// and donations. A missing profile is not an error.
func (s *Service) GetDonorDashboard(ctx context.Context, donorID uuid.UUID) (*DonorDashboard, error) {
	page, err := s.GetDonatePage(ctx)
	if err != nil {
		return nil, err
	}

	dashboard := &DonorDashboard{DonatePage: *page, Donations: []domain.Donation{}}
	profile, err := s.repo.FindDonorProfile(ctx, donorID)
	switch {
	case err == nil:
		dashboard.Profile = profile
	case !errors.Is(err, store.ErrProfileNotFound):
		return nil, fmt.Errorf("failed to load donor profile: %w", err)
	}

	donations, err := s.repo.ListDonationsByDonor(ctx, donorID)
	if err != nil {
		return nil, fmt.Errorf("failed to list donations: %w", err)
	}
	dashboard.Donations = donations
	return dashboard, nil
}

// GetWisherDashboard returns the wisher's wishes and counts.
func (s *Service) GetWisherDashboard(ctx context.Context, wisherID uuid.UUID) (*WisherDashboard, error) {
	wishes, err := s.repo.ListWishesByOwner(ctx, wisherID)
	if err != nil {
		return nil, fmt.Errorf("failed to list wishes: %w", err)
	}
	counts := domain.CountWishStatuses(wishes)

	dashboard := &WisherDashboard{
		Wishes:          wishes,
		TotalWishes:     counts.Total,
		PendingWishes:   counts.Pending,
		FulfilledWishes: counts.Fulfilled,
	}
	profile, err := s.repo.FindWisherProfile(ctx, wisherID)
	switch {
	case err == nil:
		dashboard.Profile = profile
		dashboard.IsVerified = profile.IsVerified()
	case !errors.Is(err, store.ErrProfileNotFound):
		return nil, fmt.Errorf("failed to load wisher profile: %w", err)
	}
	return dashboard, nil
}
