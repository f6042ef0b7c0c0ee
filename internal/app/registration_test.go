package app

import (
	"context"
	"errors"
	"testing"

	"github.com/wishchain/wishchain-backend/internal/domain"
)

func validIdentity() IdentityFields {
	return IdentityFields{
		FullName:             "Ada Lovelace",
		Email:                "Ada@Example.com",
		Password:             "analytical-engine",
		PasswordConfirmation: "analytical-engine",
		Country:              "gb",
		City:                 "London",
		TermsAccepted:        true,
	}
}

func intPtr(v int) *int { return &v }

func requireFieldError(t *testing.T, err error, field string) ValidationErrors {
	t.Helper()
	var verrs ValidationErrors
	if !errors.As(err, &verrs) {
		t.Fatalf("expected ValidationErrors, got %v", err)
	}
	if !verrs.Has(field) {
		t.Fatalf("expected error on %q, got %v", field, verrs)
	}
	return verrs
}

func TestSplitFullName(t *testing.T) {
	tests := []struct {
		input string
		first string
		last  string
	}{
		{input: "Ada Lovelace", first: "Ada", last: "Lovelace"},
		{input: "Madonna", first: "Madonna", last: ""},
		{input: "", first: "", last: ""},
		{input: "   ", first: "", last: ""},
		{input: "  Ada   King Lovelace ", first: "Ada", last: "King Lovelace"},
		{input: "Ada\tLovelace", first: "Ada", last: "Lovelace"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			first, last := SplitFullName(tt.input)
			if first != tt.first || last != tt.last {
				t.Fatalf("SplitFullName(%q) = (%q, %q), want (%q, %q)", tt.input, first, last, tt.first, tt.last)
			}
		})
	}
}

func TestRegister_DonorCreatesZeroedProfile(t *testing.T) {
	repo := newMemRepo()
	svc := newTestService(repo)

	result, err := svc.Register(context.Background(), DonorRegistration{
		IdentityFields: validIdentity(),
		DisplayName:    "Anonymous Angel",
		HearAbout:      "friend",
		GivingFocus:    []string{"children", "food", "children"},
	})
	if err != nil {
		t.Fatalf("Register returned error: %v", err)
	}

	user := result.User
	if user.Role != domain.RoleDonor {
		t.Fatalf("expected donor role, got %q", user.Role)
	}
	if user.Email != "ada@example.com" {
		t.Fatalf("expected lowercased email, got %q", user.Email)
	}
	if user.FirstName != "Ada" || user.LastName != "Lovelace" {
		t.Fatalf("unexpected name split: %q %q", user.FirstName, user.LastName)
	}
	if user.Country != "GB" {
		t.Fatalf("expected uppercased country, got %q", user.Country)
	}
	if user.LanguagePreference != "en" {
		t.Fatalf("expected default language en, got %q", user.LanguagePreference)
	}
	if user.PasswordHash != "hashed:analytical-engine" {
		t.Fatalf("expected hashed password to be stored, got %q", user.PasswordHash)
	}

	profile, ok := repo.donorProfiles[user.ID]
	if !ok {
		t.Fatal("expected donor profile to be created")
	}
	if len(repo.wisherProfiles) != 0 {
		t.Fatal("did not expect a wisher profile")
	}
	if profile.TotalDonations != 0 || profile.ImpactScore != 0 {
		t.Fatalf("expected zeroed stats, got %d / %v", profile.TotalDonations, profile.ImpactScore)
	}
	if !profile.ShowDisplayName || profile.IsAnonymous {
		t.Fatalf("expected default visibility flags, got show=%t anon=%t", profile.ShowDisplayName, profile.IsAnonymous)
	}
	if len(profile.GivingFocus) != 2 {
		t.Fatalf("expected duplicate focus collapsed, got %v", profile.GivingFocus)
	}
	if profile.HearAbout == nil || *profile.HearAbout != domain.HearAboutFriend {
		t.Fatalf("expected hear_about friend, got %v", profile.HearAbout)
	}
	if result.Session == nil || result.Session.Token == "" {
		t.Fatal("expected a session for the new user")
	}
	if result.RedirectTo != "/donations/dashboard" {
		t.Fatalf("unexpected redirect %q", result.RedirectTo)
	}
}

func TestRegister_DonorCityIsOptional(t *testing.T) {
	repo := newMemRepo()
	svc := newTestService(repo)

	identity := validIdentity()
	identity.City = ""
	hide := false
	result, err := svc.Register(context.Background(), DonorRegistration{IdentityFields: identity, ShowDisplayName: &hide, IsAnonymous: true})
	if err != nil {
		t.Fatalf("Register returned error: %v", err)
	}
	profile := repo.donorProfiles[result.User.ID]
	if profile.ShowDisplayName || !profile.IsAnonymous {
		t.Fatalf("expected explicit flags to be kept, got show=%t anon=%t", profile.ShowDisplayName, profile.IsAnonymous)
	}
}

func TestRegister_WisherIncomeBracket(t *testing.T) {
	tests := []struct {
		size int
		want domain.IncomeBracket
	}{
		{size: 1, want: domain.IncomeBelowAverage},
		{size: 2, want: domain.IncomeBelowAverage},
		{size: 3, want: domain.IncomeAverage},
		{size: 4, want: domain.IncomeAverage},
		{size: 5, want: domain.IncomeAboveAverage},
		{size: 12, want: domain.IncomeAboveAverage},
	}

	for _, tt := range tests {
		t.Run(string(tt.want), func(t *testing.T) {
			repo := newMemRepo()
			svc := newTestService(repo)

			result, err := svc.Register(context.Background(), WisherRegistration{
				IdentityFields: validIdentity(),
				UserType:       "parent",
				HouseholdSize:  intPtr(tt.size),
				PhoneNumber:    " +441234567 ",
			})
			if err != nil {
				t.Fatalf("Register returned error: %v", err)
			}
			profile := repo.wisherProfiles[result.User.ID]
			if profile == nil || profile.IncomeBracket == nil {
				t.Fatal("expected wisher profile with income bracket")
			}
			if *profile.IncomeBracket != tt.want {
				t.Fatalf("size %d: expected %s, got %s", tt.size, tt.want, *profile.IncomeBracket)
			}
			if result.User.PhoneNumber != "+441234567" {
				t.Fatalf("expected trimmed phone number, got %q", result.User.PhoneNumber)
			}
		})
	}
}

func TestRegister_WisherWithoutHouseholdSize(t *testing.T) {
	repo := newMemRepo()
	svc := newTestService(repo)

	result, err := svc.Register(context.Background(), WisherRegistration{IdentityFields: validIdentity(), UserType: "individual"})
	if err != nil {
		t.Fatalf("Register returned error: %v", err)
	}
	profile := repo.wisherProfiles[result.User.ID]
	if profile == nil {
		t.Fatal("expected wisher profile")
	}
	if profile.HouseholdSize != nil || profile.IncomeBracket != nil {
		t.Fatalf("expected no bracket without household size, got %v", profile.IncomeBracket)
	}
}

func TestRegister_WisherRequiresCityWhenCountryChosen(t *testing.T) {
	repo := newMemRepo()
	svc := newTestService(repo)

	identity := validIdentity()
	identity.City = "   "
	_, err := svc.Register(context.Background(), WisherRegistration{IdentityFields: identity, UserType: "parent"})

	verrs := requireFieldError(t, err, "city")
	for _, fe := range verrs {
		if fe.Field == "city" && fe.Message != "Please enter your city or region" {
			t.Fatalf("unexpected city message %q", fe.Message)
		}
	}
	if repo.registerCalls != 0 {
		t.Fatal("validation errors must not reach the store")
	}
}

func TestRegister_ReportsEveryFieldError(t *testing.T) {
	repo := newMemRepo()
	svc := newTestService(repo)

	_, err := svc.Register(context.Background(), WisherRegistration{
		IdentityFields: IdentityFields{
			Email:                "not-an-email",
			Password:             "short",
			PasswordConfirmation: "different",
			Country:              "ZZ",
			City:                 "Somewhere",
			Language:             "de",
		},
		UserType:          "astronaut",
		HouseholdSize:     intPtr(0),
		ContactPreference: "pigeon",
		HelpNeeded:        []string{"food", "space"},
	})

	verrs := requireFieldError(t, err, "full_name")
	for _, field := range []string{
		"email", "password1", "password2", "country", "language", "terms_accepted",
		"user_type", "household_size", "contact_preference", "help_needed",
	} {
		if !verrs.Has(field) {
			t.Fatalf("expected error on %q, got %v", field, verrs)
		}
	}
	if repo.registerCalls != 0 {
		t.Fatal("validation errors must not reach the store")
	}
}

func TestRegister_TermsMustBeAccepted(t *testing.T) {
	svc := newTestService(newMemRepo())

	identity := validIdentity()
	identity.TermsAccepted = false
	_, err := svc.Register(context.Background(), DonorRegistration{IdentityFields: identity})
	requireFieldError(t, err, "terms_accepted")
}

func TestRegister_PasswordMismatch(t *testing.T) {
	svc := newTestService(newMemRepo())

	identity := validIdentity()
	identity.PasswordConfirmation = "analytical-engine2"
	_, err := svc.Register(context.Background(), DonorRegistration{IdentityFields: identity})
	verrs := requireFieldError(t, err, "password2")
	if verrs[0].Message != "The two password fields didn't match." {
		t.Fatalf("unexpected message %q", verrs[0].Message)
	}
}

func TestRegister_InvalidDonorChoices(t *testing.T) {
	svc := newTestService(newMemRepo())

	_, err := svc.Register(context.Background(), DonorRegistration{
		IdentityFields: validIdentity(),
		HearAbout:      "billboard",
		GivingFocus:    []string{"art"},
	})
	verrs := requireFieldError(t, err, "hear_about")
	if !verrs.Has("giving_focus") {
		t.Fatalf("expected giving_focus error, got %v", verrs)
	}
}

func TestRegister_KeepsExplicitLanguage(t *testing.T) {
	svc := newTestService(newMemRepo())

	identity := validIdentity()
	identity.Language = "fr"
	result, err := svc.Register(context.Background(), &WisherRegistration{IdentityFields: identity, UserType: "teacher"})
	if err != nil {
		t.Fatalf("Register returned error: %v", err)
	}
	if result.User.LanguagePreference != "fr" {
		t.Fatalf("expected fr, got %q", result.User.LanguagePreference)
	}
	if result.User.Role != domain.RoleWisher {
		t.Fatalf("expected wisher role, got %q", result.User.Role)
	}
}

func TestRegister_DuplicateEmailIsFieldError(t *testing.T) {
	repo := newMemRepo()
	svc := newTestService(repo)

	if _, err := svc.Register(context.Background(), DonorRegistration{IdentityFields: validIdentity()}); err != nil {
		t.Fatalf("first Register returned error: %v", err)
	}
	identity := validIdentity()
	identity.Email = "ADA@example.com"
	_, err := svc.Register(context.Background(), DonorRegistration{IdentityFields: identity})
	requireFieldError(t, err, "email")
	if len(repo.users) != 1 {
		t.Fatalf("expected a single user, got %d", len(repo.users))
	}
}

func TestRegister_StoreFailureIsNotValidation(t *testing.T) {
	repo := newMemRepo()
	repo.registerErr = errors.New("connection reset")
	svc := newTestService(repo)

	_, err := svc.Register(context.Background(), WisherRegistration{IdentityFields: validIdentity(), UserType: "parent"})
	if err == nil {
		t.Fatal("expected error")
	}
	var verrs ValidationErrors
	if errors.As(err, &verrs) {
		t.Fatalf("store failure must not surface as validation error: %v", verrs)
	}
}

// countryLookupDownRepo fails every country lookup.
type countryLookupDownRepo struct {
	*memRepo
	err error
}

func (r *countryLookupDownRepo) CountryExists(ctx context.Context, code2 string) (bool, error) {
	return false, r.err
}

func TestRegister_CountryLookupFailureIsInternal(t *testing.T) {
	lookupErr := errors.New("connection refused")
	repo := &countryLookupDownRepo{memRepo: newMemRepo(), err: lookupErr}
	svc := newTestService(repo)

	_, err := svc.Register(context.Background(), DonorRegistration{IdentityFields: validIdentity()})
	if !errors.Is(err, lookupErr) {
		t.Fatalf("expected the lookup error to be returned, got %v", err)
	}
	var verrs ValidationErrors
	if errors.As(err, &verrs) {
		t.Fatalf("lookup failure must not surface as validation error: %v", verrs)
	}
	if repo.registerCalls != 0 {
		t.Fatal("store must not be called after a failed lookup")
	}
}
