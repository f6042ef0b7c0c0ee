package app

import (
	"context"
	"errors"
	"strings"

	"github.com/wishchain/wishchain-backend/internal/domain"
)

// ErrCountryRequired is returned when a city lookup has no country.
var ErrCountryRequired = errors.New("country code is required")

// CityOption is a city as offered to a registration form.
type CityOption struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	DisplayName string `json:"display_name"`
}

// ListCountries returns every known country sorted by name.
func (s *Service) ListCountries(ctx context.Context) ([]domain.Country, error) {
	return s.repo.ListCountries(ctx)
}

// ListCities resolves query as a country code or name and returns its cities.
// An unknown country yields an empty list.
func (s *Service) ListCities(ctx context.Context, query string) ([]CityOption, error) {
	query = strings.ToUpper(strings.TrimSpace(query))
	if query == "" {
		return nil, ErrCountryRequired
	}

	country, err := s.repo.FindCountry(ctx, query)
	if err != nil {
		return nil, err
	}
	options := []CityOption{}
	if country == nil {
		return options, nil
	}

	cities, err := s.repo.ListCitiesByCountry(ctx, country.Code2)
	if err != nil {
		return nil, err
	}
	for _, city := range cities {
		options = append(options, CityOption{ID: city.ID, Name: city.Name, DisplayName: city.DisplayName()})
	}
	return options, nil
}
