package store

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/wishchain/wishchain-backend/internal/domain"
)

// ReferenceCountries are seeded on startup together with ReferenceCities.
var ReferenceCountries = []domain.Country{
	{Code2: "US", Code3: "USA", Name: "United States"},
	{Code2: "CA", Code3: "CAN", Name: "Canada"},
	{Code2: "GB", Code3: "GBR", Name: "United Kingdom"},
	{Code2: "DE", Code3: "DEU", Name: "Germany"},
	{Code2: "FR", Code3: "FRA", Name: "France"},
}

// ReferenceCities maps a country code to the cities seeded for it.
var ReferenceCities = map[string][]string{
	"US": {"New York", "Los Angeles", "Chicago", "Houston", "Phoenix"},
	"CA": {"Toronto", "Vancouver", "Montreal", "Calgary", "Ottawa"},
	"GB": {"London", "Manchester", "Birmingham", "Glasgow", "Liverpool"},
	"DE": {"Berlin", "Munich", "Hamburg", "Cologne", "Frankfurt"},
	"FR": {"Paris", "Marseille", "Lyon", "Toulouse", "Nice"},
}

// SeedGeography inserts the reference countries and cities. Safe to run repeatedly.
func (r *PostgresRepository) SeedGeography(ctx context.Context) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	for _, country := range ReferenceCountries {
		if _, err := tx.Exec(ctx, `
			INSERT INTO countries (code2, code3, name)
			VALUES ($1, $2, $3)
			ON CONFLICT (code2) DO NOTHING
		`, country.Code2, country.Code3, country.Name); err != nil {
			return fmt.Errorf("failed to seed country %s: %w", country.Code2, err)
		}

		for _, city := range ReferenceCities[country.Code2] {
			if _, err := tx.Exec(ctx, `
				INSERT INTO cities (country_code, name)
				VALUES ($1, $2)
				ON CONFLICT (country_code, name) DO NOTHING
			`, country.Code2, city); err != nil {
				return fmt.Errorf("failed to seed city %s/%s: %w", country.Code2, city, err)
			}
		}
	}

	return tx.Commit(ctx)
}

// ListCountries returns every known country ordered by name.
func (r *PostgresRepository) ListCountries(ctx context.Context) ([]domain.Country, error) {
	rows, err := r.db.Query(ctx, `SELECT code2, code3, name FROM countries ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	countries := []domain.Country{}
	for rows.Next() {
		var c domain.Country
		if err := rows.Scan(&c.Code2, &c.Code3, &c.Name); err != nil {
			return nil, err
		}
		countries = append(countries, c)
	}
	return countries, rows.Err()
}

// FindCountry resolves a country by its alpha-2 code first, then by a
// case-insensitive name match. It returns nil when nothing matches.
func (r *PostgresRepository) FindCountry(ctx context.Context, query string) (*domain.Country, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, nil
	}

	lookups := []string{
		`SELECT code2, code3, name FROM countries WHERE code2 = UPPER($1)`,
		`SELECT code2, code3, name FROM countries WHERE LOWER(name) = LOWER($1) ORDER BY code2 LIMIT 1`,
	}
	for _, lookup := range lookups {
		var c domain.Country
		err := r.db.QueryRow(ctx, lookup, query).Scan(&c.Code2, &c.Code3, &c.Name)
		if err == nil {
			return &c, nil
		}
		if !errors.Is(err, pgx.ErrNoRows) {
			return nil, err
		}
	}
	return nil, nil
}

// CountryExists reports whether code2 names a known country.
func (r *PostgresRepository) CountryExists(ctx context.Context, code2 string) (bool, error) {
	var exists bool
	err := r.db.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM countries WHERE code2 = UPPER($1))`,
		strings.TrimSpace(code2),
	).Scan(&exists)
	return exists, err
}

// ListCitiesByCountry returns the cities of a country ordered by name.
func (r *PostgresRepository) ListCitiesByCountry(ctx context.Context, code2 string) ([]domain.City, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, country_code, name, region
		FROM cities
		WHERE country_code = $1
		ORDER BY name
	`, code2)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	cities := []domain.City{}
	for rows.Next() {
		var c domain.City
		if err := rows.Scan(&c.ID, &c.CountryCode, &c.Name, &c.Region); err != nil {
			return nil, err
		}
		cities = append(cities, c)
	}
	return cities, rows.Err()
}
