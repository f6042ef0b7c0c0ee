package store

import (
	"errors"
	"fmt"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/wishchain/wishchain-backend/internal/domain"
)

func TestIsUniqueViolation(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		constraint string
		want       bool
	}{
		{
			name: "nil error",
			err:  nil,
			want: false,
		},
		{
			name: "plain error",
			err:  errors.New("boom"),
			want: false,
		},
		{
			name:       "matching constraint",
			err:        &pgconn.PgError{Code: "23505", ConstraintName: "users_email_key"},
			constraint: "users_email_key",
			want:       true,
		},
		{
			name:       "wrapped matching constraint",
			err:        fmt.Errorf("insert: %w", &pgconn.PgError{Code: "23505", ConstraintName: "users_email_key"}),
			constraint: "users_email_key",
			want:       true,
		},
		{
			name:       "other constraint",
			err:        &pgconn.PgError{Code: "23505", ConstraintName: "donations_wish_donor_key"},
			constraint: "users_email_key",
			want:       false,
		},
		{
			name: "any constraint when unspecified",
			err:  &pgconn.PgError{Code: "23505", ConstraintName: "donations_wish_donor_key"},
			want: true,
		},
		{
			name: "foreign key violation",
			err:  &pgconn.PgError{Code: "23503", ConstraintName: "users_email_key"},
			want: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := isUniqueViolation(tt.err, tt.constraint); got != tt.want {
				t.Fatalf("expected %t, got %t", tt.want, got)
			}
		})
	}
}

func TestNullableEnumConversion(t *testing.T) {
	if stringPtr[domain.HearAboutSource](nil) != nil {
		t.Fatal("expected nil for nil enum")
	}
	source := domain.HearAboutFriend
	if got := stringPtr(&source); got == nil || *got != "friend" {
		t.Fatalf("expected \"friend\", got %v", got)
	}

	if typedPtr[domain.IncomeBracket](nil) != nil {
		t.Fatal("expected nil for nil string")
	}
	raw := "average"
	if got := typedPtr[domain.IncomeBracket](&raw); got == nil || *got != domain.IncomeAverage {
		t.Fatalf("expected average bracket, got %v", got)
	}
}

func TestReferenceCitiesCoverEveryCountry(t *testing.T) {
	for _, country := range ReferenceCountries {
		cities := ReferenceCities[country.Code2]
		if len(cities) != 5 {
			t.Fatalf("expected 5 cities for %s, got %d", country.Code2, len(cities))
		}
		if len(country.Code3) != 3 {
			t.Fatalf("expected 3-letter code for %s, got %q", country.Code2, country.Code3)
		}
	}
	if len(ReferenceCities) != len(ReferenceCountries) {
		t.Fatalf("expected city lists only for reference countries, got %d lists", len(ReferenceCities))
	}
}

func TestOutboxErrorText(t *testing.T) {
	short := "channel closed"
	if got := outboxErrorText(short); got != short {
		t.Fatalf("expected short reason unchanged, got %q", got)
	}

	long := "x" + strings.Repeat("é", maxOutboxErrorLength)
	got := outboxErrorText(long)
	if len(got) > maxOutboxErrorLength {
		t.Fatalf("expected at most %d bytes, got %d", maxOutboxErrorLength, len(got))
	}
	if !utf8.ValidString(got) {
		t.Fatal("truncated reason must stay valid UTF-8")
	}
	if !strings.HasPrefix(long, got) {
		t.Fatal("expected a prefix of the original reason")
	}
}
