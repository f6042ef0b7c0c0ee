package domain

import (
	"time"

	"github.com/google/uuid"
)

// WishStatus is the lifecycle state of a wish.
type WishStatus string

const (
	WishPending   WishStatus = "pending"
	WishFulfilled WishStatus = "fulfilled"
	WishExpired   WishStatus = "expired"
)

// MaxWishTitleLength bounds the title of a wish.
const MaxWishTitleLength = 200

// Wish is a request for help owned by a wisher.
type Wish struct {
	ID          uuid.UUID  `json:"id"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	UserID      uuid.UUID  `json:"user_id"`
	Status      WishStatus `json:"status"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// WishCounts summarises wishes by status.
type WishCounts struct {
	Total     int `json:"total"`
	Pending   int `json:"pending"`
	Fulfilled int `json:"fulfilled"`
}

// CountWishStatuses tallies an already-loaded list so the counts always agree
// with the wishes shown next to them. Expired wishes only add to Total.
func CountWishStatuses(wishes []Wish) WishCounts {
	counts := WishCounts{Total: len(wishes)}
	for _, w := range wishes {
		switch w.Status {
		case WishPending:
			counts.Pending++
		case WishFulfilled:
			counts.Fulfilled++
		}
	}
	return counts
}

// Donation records a donor granting a wish. (wish, donor) is unique.
type Donation struct {
	ID        uuid.UUID `json:"id"`
	WishID    uuid.UUID `json:"wish_id"`
	DonorID   uuid.UUID `json:"donor_id"`
	Notes     *string   `json:"notes,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// GrantOutcome is what the store reports back after a committed grant.
type GrantOutcome struct {
	Donation       Donation `json:"donation"`
	WishTitle      string   `json:"wish_title"`
	TotalDonations int      `json:"total_donations"`
	ImpactScore    float64  `json:"impact_score"`
}
