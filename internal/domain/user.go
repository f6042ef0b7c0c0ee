/**
 * @description
 * Core identity models for WishChain. A User is either a wisher (asks for help)
 * or a donor (grants wishes); each role carries its own 1:1 profile record.
 */
package domain

import (
	"time"

	"github.com/google/uuid"
)

// Role defines the type of a user account.
type Role string

const (
	RoleUnset  Role = ""
	RoleWisher Role = "wisher"
	RoleDonor  Role = "donor"
)

// DefaultLanguage is used whenever a registration omits the language preference.
const DefaultLanguage = "en"

// SupportedLanguages lists the accepted language preference codes.
var SupportedLanguages = []string{"en", "fr", "ar"}

// User represents the core user model in our system.
type User struct {
	ID                 uuid.UUID `json:"id"`
	Email              string    `json:"email"`
	FirstName          string    `json:"first_name"`
	LastName           string    `json:"last_name"`
	Role               Role      `json:"role"`
	Country            string    `json:"country"`
	City               string    `json:"city"`
	PhoneNumber        string    `json:"phone_number,omitempty"`
	LanguagePreference string    `json:"language_preference"`
	PasswordHash       string    `json:"-"`
	CreatedAt          time.Time `json:"created_at"`
	UpdatedAt          time.Time `json:"updated_at"`
}

// FullName joins first and last name the way they were entered at registration.
func (u User) FullName() string {
	if u.LastName == "" {
		return u.FirstName
	}
	return u.FirstName + " " + u.LastName
}

// IsWisher reports whether the user registered as a wisher.
func (u User) IsWisher() bool { return u.Role == RoleWisher }

// IsDonor reports whether the user registered as a donor.
func (u User) IsDonor() bool { return u.Role == RoleDonor }
