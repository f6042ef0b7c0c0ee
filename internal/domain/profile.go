package domain

import (
	"time"

	"github.com/google/uuid"
)

// IncomeBracket is a coarse classification derived from household size.
type IncomeBracket string

const (
	IncomeBelowAverage IncomeBracket = "below_average"
	IncomeAverage      IncomeBracket = "average"
	IncomeAboveAverage IncomeBracket = "above_average"
)

// IncomeBracketForHouseholdSize maps a household size to its income bracket.
// Sizes up to 2 are below average, 3-4 average, 5 and above above average.
func IncomeBracketForHouseholdSize(size int) IncomeBracket {
	switch {
	case size <= 2:
		return IncomeBelowAverage
	case size <= 4:
		return IncomeAverage
	default:
		return IncomeAboveAverage
	}
}

// WisherProfile is the 1:1 extension of a wisher user.
type WisherProfile struct {
	UserID        uuid.UUID      `json:"user_id"`
	VerifiedBy    *uuid.UUID     `json:"verified_by,omitempty"`
	HouseholdSize *int           `json:"household_size,omitempty"`
	IncomeBracket *IncomeBracket `json:"income_bracket,omitempty"`
	IDDocument    *string        `json:"id_document,omitempty"`
	CreatedAt     time.Time      `json:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at"`
}

// IsVerified reports whether a partner organisation has verified the wisher.
func (p WisherProfile) IsVerified() bool {
	return p.VerifiedBy != nil
}

// HearAboutSource records how a donor found WishChain.
type HearAboutSource string

const (
	HearAboutSearch HearAboutSource = "search"
	HearAboutSocial HearAboutSource = "social"
	HearAboutFriend HearAboutSource = "friend"
	HearAboutNews   HearAboutSource = "news"
	HearAboutOther  HearAboutSource = "other"
)

// Valid reports whether the source is one of the known choices.
func (s HearAboutSource) Valid() bool {
	switch s {
	case HearAboutSearch, HearAboutSocial, HearAboutFriend, HearAboutNews, HearAboutOther:
		return true
	}
	return false
}

// GivingFocusCategories are the causes a donor can select.
var GivingFocusCategories = []string{"children", "education", "food", "health", "shelter"}

// ImpactPointsPerDonation is the score weight of a single granted wish.
const ImpactPointsPerDonation = 10

// ImpactScoreFor returns the impact score for a donation count.
func ImpactScoreFor(totalDonations int) float64 {
	return float64(totalDonations * ImpactPointsPerDonation)
}

// DonorProfile is the 1:1 extension of a donor user.
type DonorProfile struct {
	UserID          uuid.UUID        `json:"user_id"`
	DisplayName     string           `json:"display_name"`
	HearAbout       *HearAboutSource `json:"hear_about,omitempty"`
	GivingFocus     []string         `json:"giving_focus"`
	ShowDisplayName bool             `json:"show_display_name"`
	IsAnonymous     bool             `json:"is_anonymous"`
	Visibility      bool             `json:"visibility"`
	ImpactScore     float64          `json:"impact_score"`
	TotalDonations  int              `json:"total_donations"`
	CreatedAt       time.Time        `json:"created_at"`
	UpdatedAt       time.Time        `json:"updated_at"`
}

// NewDonorProfile returns a profile with the registration defaults applied.
func NewDonorProfile(userID uuid.UUID) DonorProfile {
	return DonorProfile{
		UserID:          userID,
		GivingFocus:     []string{},
		ShowDisplayName: true,
		Visibility:      true,
	}
}

// Partner is an organisation that can verify wishers.
type Partner struct {
	ID                      uuid.UUID `json:"id"`
	OrganizationName        string    `json:"organization_name"`
	OrganizationDescription *string   `json:"organization_description,omitempty"`
	Website                 *string   `json:"website,omitempty"`
	IsVerified              bool      `json:"is_verified"`
	CreatedAt               time.Time `json:"created_at"`
	UpdatedAt               time.Time `json:"updated_at"`
}
