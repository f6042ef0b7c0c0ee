package domain

import "time"

const (
	RoutingKeyUserRegistered = "user.registered"
	RoutingKeyWishGranted    = "wish.granted"
)

// Event is a domain fact published on the events exchange. The routing key
// travels with the event so it cannot be paired with the wrong payload.
type Event interface {
	RoutingKey() string
}

// UserRegisteredEvent is published after a user and their profile are committed.
type UserRegisteredEvent struct {
	UserID     string    `json:"user_id"`
	Role       Role      `json:"role"`
	Country    string    `json:"country"`
	Language   string    `json:"language"`
	OccurredAt time.Time `json:"occurred_at"`
}

func (UserRegisteredEvent) RoutingKey() string { return RoutingKeyUserRegistered }

// WishGrantedEvent is published after a grant transaction commits.
type WishGrantedEvent struct {
	WishID         string    `json:"wish_id"`
	WisherID       string    `json:"wisher_id"`
	DonorID        string    `json:"donor_id"`
	DonationID     string    `json:"donation_id"`
	TotalDonations int       `json:"total_donations"`
	OccurredAt     time.Time `json:"occurred_at"`
}

func (WishGrantedEvent) RoutingKey() string { return RoutingKeyWishGranted }
