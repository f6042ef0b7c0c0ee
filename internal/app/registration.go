package app

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/wishchain/wishchain-backend/internal/domain"
	"github.com/wishchain/wishchain-backend/internal/store"
)

const (
	maxFullNameLength    = 150
	maxCityLength        = 100
	maxPhoneLength       = 20
	maxDisplayNameLength = 100
	minPasswordLength    = 8

	msgRequired      = "This field is required."
	msgInvalidChoice = "Select a valid choice."
)

var (
	wisherUserTypes          = []string{"individual", "parent", "teacher", "community"}
	wisherHelpCategories     = []string{"education", "food", "health", "shelter", "other"}
	wisherContactPreferences = []string{"email", "phone", "whatsapp"}
)

// IdentityFields are the inputs shared by every registration.
type IdentityFields struct {
	FullName             string `json:"full_name"`
	Email                string `json:"email"`
	Password             string `json:"password1"`
	PasswordConfirmation string `json:"password2"`
	Country              string `json:"country"`
	City                 string `json:"city"`
	Language             string `json:"language"`
	TermsAccepted        bool   `json:"terms_accepted"`
}

// RegistrationRequest is either a WisherRegistration or a DonorRegistration.
type RegistrationRequest interface {
	identityFields() IdentityFields
	role() domain.Role
}

// WisherRegistration registers a person asking for help.
type WisherRegistration struct {
	IdentityFields
	UserType          string   `json:"user_type"`
	HouseholdSize     *int     `json:"household_size"`
	HelpNeeded        []string `json:"help_needed"`
	ContactPreference string   `json:"contact_preference"`
	PhoneNumber       string   `json:"phone_number"`
	HasChildren       bool     `json:"has_children"`
}

func (r WisherRegistration) identityFields() IdentityFields { return r.IdentityFields }
func (WisherRegistration) role() domain.Role               { return domain.RoleWisher }

// DonorRegistration registers a donor. ShowDisplayName defaults to true when omitted.
type DonorRegistration struct {
	IdentityFields
	DisplayName     string   `json:"display_name"`
	HearAbout       string   `json:"hear_about"`
	GivingFocus     []string `json:"giving_focus"`
	ShowDisplayName *bool    `json:"show_display_name"`
	IsAnonymous     bool     `json:"is_anonymous"`
}

func (r DonorRegistration) identityFields() IdentityFields { return r.IdentityFields }
func (DonorRegistration) role() domain.Role               { return domain.RoleDonor }

// RegistrationResult is returned after a successful registration.
type RegistrationResult struct {
	User       *domain.User `json:"user"`
	Session    *Session     `json:"session"`
	RedirectTo string       `json:"redirect_to"`
}

// SplitFullName splits on the first whitespace run. A single word becomes the
// first name with an empty last name.
func SplitFullName(fullName string) (first, last string) {
	trimmed := strings.TrimSpace(fullName)
	idx := strings.IndexFunc(trimmed, unicode.IsSpace)
	if idx < 0 {
		return trimmed, ""
	}
	return trimmed[:idx], strings.TrimLeftFunc(trimmed[idx:], unicode.IsSpace)
}

// Register validates the request and persists the user with its role profile.
// The user row and the profile are written in one transaction.
func (s *Service) Register(ctx context.Context, req RegistrationRequest) (*RegistrationResult, error) {
	if req == nil {
		return nil, errors.New("registration request is required")
	}

	identity := req.identityFields()
	errs := ValidationErrors{}
	if err := s.validateIdentity(ctx, identity, &errs); err != nil {
		s.logger.Error("registration validation failed", "component", "registration", "role", req.role(), "error", err)
		return nil, fmt.Errorf("failed to validate registration: %w", err)
	}

	params := store.RegisterUserParams{Exchange: s.exchange}
	switch r := req.(type) {
	case WisherRegistration:
		params.WisherProfile = validateWisherProfile(r, &errs)
	case *WisherRegistration:
		params.WisherProfile = validateWisherProfile(*r, &errs)
	case DonorRegistration:
		params.DonorProfile = validateDonorProfile(r, &errs)
	case *DonorRegistration:
		params.DonorProfile = validateDonorProfile(*r, &errs)
	default:
		return nil, fmt.Errorf("unsupported registration request %T", req)
	}
	if err := errs.orNil(); err != nil {
		return nil, err
	}

	hash, err := s.hashPassword(identity.Password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	first, last := SplitFullName(identity.FullName)
	params.User = &domain.User{
		Email:              normalizeEmail(identity.Email),
		FirstName:          first,
		LastName:           last,
		Role:               req.role(),
		Country:            strings.ToUpper(strings.TrimSpace(identity.Country)),
		City:               strings.TrimSpace(identity.City),
		LanguagePreference: languageOrDefault(identity.Language),
		PasswordHash:       hash,
	}
	if w, ok := wisherRequest(req); ok {
		params.User.PhoneNumber = strings.TrimSpace(w.PhoneNumber)
	}

	user, err := s.repo.RegisterUser(ctx, params)
	if err != nil {
		if errors.Is(err, store.ErrEmailTaken) {
			return nil, ValidationErrors{{Field: "email", Message: "A user with that email already exists."}}
		}
		s.logger.Error("registration failed", "component", "registration", "role", req.role(), "error", err)
		return nil, fmt.Errorf("failed to register user: %w", err)
	}

	session, err := s.sessions.Issue(user, true)
	if err != nil {
		return nil, fmt.Errorf("failed to issue session: %w", err)
	}

	s.logger.Info("user registered", "component", "registration", "user_id", user.ID, "role", user.Role)
	return &RegistrationResult{User: user, Session: session, RedirectTo: RedirectPathForRole(user.Role)}, nil
}

func wisherRequest(req RegistrationRequest) (WisherRegistration, bool) {
	switch r := req.(type) {
	case WisherRegistration:
		return r, true
	case *WisherRegistration:
		return *r, true
	}
	return WisherRegistration{}, false
}

// validateIdentity adds field errors to errs. A non-nil return is a lookup
// failure, not a validation problem.
func (s *Service) validateIdentity(ctx context.Context, id IdentityFields, errs *ValidationErrors) error {
	fullName := strings.TrimSpace(id.FullName)
	switch {
	case fullName == "":
		errs.add("full_name", msgRequired)
	case utf8.RuneCountInString(fullName) > maxFullNameLength:
		errs.add("full_name", fmt.Sprintf("Ensure this value has at most %d characters.", maxFullNameLength))
	}

	email := normalizeEmail(id.Email)
	if email == "" {
		errs.add("email", msgRequired)
	} else if addr, err := mail.ParseAddress(email); err != nil || addr.Address != email {
		errs.add("email", "Enter a valid email address.")
	}

	switch {
	case id.Password == "":
		errs.add("password1", msgRequired)
	case utf8.RuneCountInString(id.Password) < minPasswordLength:
		errs.add("password1", fmt.Sprintf("This password is too short. It must contain at least %d characters.", minPasswordLength))
	}
	if id.PasswordConfirmation == "" {
		errs.add("password2", msgRequired)
	} else if id.Password != "" && id.Password != id.PasswordConfirmation {
		errs.add("password2", "The two password fields didn't match.")
	}

	country := strings.TrimSpace(id.Country)
	if country == "" {
		errs.add("country", msgRequired)
	} else {
		exists, err := s.repo.CountryExists(ctx, country)
		if err != nil {
			return fmt.Errorf("failed to look up country %q: %w", country, err)
		}
		if !exists {
			errs.add("country", msgInvalidChoice)
		}
	}

	if utf8.RuneCountInString(strings.TrimSpace(id.City)) > maxCityLength {
		errs.add("city", fmt.Sprintf("Ensure this value has at most %d characters.", maxCityLength))
	}

	if lang := strings.TrimSpace(id.Language); lang != "" && !contains(domain.SupportedLanguages, lang) {
		errs.add("language", msgInvalidChoice)
	}

	if !id.TermsAccepted {
		errs.add("terms_accepted", msgRequired)
	}
	return nil
}

func validateWisherProfile(r WisherRegistration, errs *ValidationErrors) *domain.WisherProfile {
	if strings.TrimSpace(r.Country) != "" && strings.TrimSpace(r.City) == "" {
		errs.add("city", "Please enter your city or region")
	}

	userType := strings.TrimSpace(r.UserType)
	if userType == "" {
		errs.add("user_type", msgRequired)
	} else if !contains(wisherUserTypes, userType) {
		errs.add("user_type", msgInvalidChoice)
	}

	for _, help := range r.HelpNeeded {
		if !contains(wisherHelpCategories, help) {
			errs.add("help_needed", fmt.Sprintf("Select a valid choice. %s is not one of the available choices.", help))
			break
		}
	}

	if pref := strings.TrimSpace(r.ContactPreference); pref != "" && !contains(wisherContactPreferences, pref) {
		errs.add("contact_preference", msgInvalidChoice)
	}

	if utf8.RuneCountInString(strings.TrimSpace(r.PhoneNumber)) > maxPhoneLength {
		errs.add("phone_number", fmt.Sprintf("Ensure this value has at most %d characters.", maxPhoneLength))
	}

	profile := &domain.WisherProfile{}
	if r.HouseholdSize != nil {
		size := *r.HouseholdSize
		if size < 1 {
			errs.add("household_size", "Ensure this value is greater than or equal to 1.")
			return profile
		}
		bracket := domain.IncomeBracketForHouseholdSize(size)
		profile.HouseholdSize = &size
		profile.IncomeBracket = &bracket
	}
	return profile
}

func validateDonorProfile(r DonorRegistration, errs *ValidationErrors) *domain.DonorProfile {
	profile := domain.NewDonorProfile(uuid.Nil)

	displayName := strings.TrimSpace(r.DisplayName)
	if utf8.RuneCountInString(displayName) > maxDisplayNameLength {
		errs.add("display_name", fmt.Sprintf("Ensure this value has at most %d characters.", maxDisplayNameLength))
	}
	profile.DisplayName = displayName

	if hearAbout := strings.TrimSpace(r.HearAbout); hearAbout != "" {
		source := domain.HearAboutSource(hearAbout)
		if !source.Valid() {
			errs.add("hear_about", msgInvalidChoice)
		} else {
			profile.HearAbout = &source
		}
	}

	seen := map[string]bool{}
	for _, focus := range r.GivingFocus {
		if !contains(domain.GivingFocusCategories, focus) {
			errs.add("giving_focus", fmt.Sprintf("Select a valid choice. %s is not one of the available choices.", focus))
			break
		}
		if !seen[focus] {
			seen[focus] = true
			profile.GivingFocus = append(profile.GivingFocus, focus)
		}
	}

	if r.ShowDisplayName != nil {
		profile.ShowDisplayName = *r.ShowDisplayName
	}
	profile.IsAnonymous = r.IsAnonymous
	return &profile
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func languageOrDefault(lang string) string {
	if lang = strings.TrimSpace(lang); lang == "" {
		return domain.DefaultLanguage
	}
	return lang
}

func contains(values []string, v string) bool {
	for _, candidate := range values {
		if candidate == v {
			return true
		}
	}
	return false
}
