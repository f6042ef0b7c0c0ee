package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/wishchain/wishchain-backend/internal/domain"
	"github.com/wishchain/wishchain-backend/internal/store"
)

// CreateWishRequest is the wisher's input for a new wish.
type CreateWishRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

// CreateWish validates the input and stores a pending wish owned by ownerID.
// Only wishers may create wishes.
func (s *Service) CreateWish(ctx context.Context, ownerID uuid.UUID, req CreateWishRequest) (*domain.Wish, error) {
	title := strings.TrimSpace(req.Title)
	description := strings.TrimSpace(req.Description)

	errs := ValidationErrors{}
	switch {
	case title == "":
		errs.add("title", msgRequired)
	case utf8.RuneCountInString(title) > domain.MaxWishTitleLength:
		errs.add("title", fmt.Sprintf("Ensure this value has at most %d characters.", domain.MaxWishTitleLength))
	}
	if description == "" {
		errs.add("description", msgRequired)
	}
	if err := errs.orNil(); err != nil {
		return nil, err
	}

	owner, err := s.repo.FindUserByID(ctx, ownerID)
	if err != nil {
		if errors.Is(err, store.ErrUserNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to load wish owner: %w", err)
	}
	if !owner.IsWisher() {
		return nil, ErrForbiddenRole
	}

	wish := &domain.Wish{
		Title:       title,
		Description: description,
		UserID:      owner.ID,
		Status:      domain.WishPending,
	}
	if err := s.repo.CreateWish(ctx, wish); err != nil {
		return nil, err
	}

	s.logger.Info("wish created", "component", "wishes", "wish_id", wish.ID, "user_id", owner.ID)
	return wish, nil
}

// GetWish returns a single wish.
func (s *Service) GetWish(ctx context.Context, wishID uuid.UUID) (*domain.Wish, error) {
	return s.repo.FindWishByID(ctx, wishID)
}

// ExpireStaleWishes marks pending wishes older than maxAge days as expired.
// A non-positive maxAge disables expiry.
func (s *Service) ExpireStaleWishes(ctx context.Context, maxAgeDays int) (int64, error) {
	if maxAgeDays <= 0 {
		return 0, nil
	}
	cutoff := s.now().UTC().AddDate(0, 0, -maxAgeDays)
	return s.repo.ExpirePendingWishes(ctx, cutoff)
}
