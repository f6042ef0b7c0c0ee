package app

import (
	"context"
	"io"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/wishchain/wishchain-backend/internal/domain"
	"github.com/wishchain/wishchain-backend/internal/store"
)

// memRepo is an in-memory store.Repository. GrantWish holds the mutex for the
// whole transition, mirroring the row lock taken by the Postgres store.
type memRepo struct {
	store.Repository

	mu             sync.Mutex
	users          map[uuid.UUID]*domain.User
	wisherProfiles map[uuid.UUID]*domain.WisherProfile
	donorProfiles  map[uuid.UUID]*domain.DonorProfile
	wishes         map[uuid.UUID]*domain.Wish
	donations      []domain.Donation
	countries      []domain.Country
	cities         map[string][]domain.City

	registerCalls int
	grantCalls    int
	expireCutoff  time.Time
	registerErr   error
	grantErr      error
}

func newMemRepo() *memRepo {
	return &memRepo{
		users:          map[uuid.UUID]*domain.User{},
		wisherProfiles: map[uuid.UUID]*domain.WisherProfile{},
		donorProfiles:  map[uuid.UUID]*domain.DonorProfile{},
		wishes:         map[uuid.UUID]*domain.Wish{},
		countries:      append([]domain.Country(nil), store.ReferenceCountries...),
		cities:         map[string][]domain.City{},
	}
}

func (m *memRepo) RegisterUser(ctx context.Context, params store.RegisterUserParams) (*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.registerCalls++
	if m.registerErr != nil {
		return nil, m.registerErr
	}
	for _, u := range m.users {
		if u.Email == params.User.Email {
			return nil, store.ErrEmailTaken
		}
	}

	user := *params.User
	user.ID = uuid.New()
	user.CreatedAt = time.Now()
	user.UpdatedAt = user.CreatedAt
	m.users[user.ID] = &user

	if params.WisherProfile != nil {
		p := *params.WisherProfile
		p.UserID = user.ID
		m.wisherProfiles[user.ID] = &p
	}
	if params.DonorProfile != nil {
		p := *params.DonorProfile
		p.UserID = user.ID
		m.donorProfiles[user.ID] = &p
	}
	return &user, nil
}

func (m *memRepo) addUser(role domain.Role, email string) *domain.User {
	m.mu.Lock()
	defer m.mu.Unlock()
	u := &domain.User{ID: uuid.New(), Email: email, Role: role, LanguagePreference: domain.DefaultLanguage}
	m.users[u.ID] = u
	return u
}

func (m *memRepo) addWish(owner uuid.UUID, title string, status domain.WishStatus) *domain.Wish {
	m.mu.Lock()
	defer m.mu.Unlock()
	w := &domain.Wish{ID: uuid.New(), Title: title, Description: title, UserID: owner, Status: status, CreatedAt: time.Now()}
	m.wishes[w.ID] = w
	return w
}

func (m *memRepo) FindUserByEmail(ctx context.Context, email string) (*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Email == strings.ToLower(email) {
			copied := *u
			return &copied, nil
		}
	}
	return nil, store.ErrUserNotFound
}

func (m *memRepo) FindUserByID(ctx context.Context, userID uuid.UUID) (*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[userID]
	if !ok {
		return nil, store.ErrUserNotFound
	}
	copied := *u
	return &copied, nil
}

func (m *memRepo) FindWisherProfile(ctx context.Context, userID uuid.UUID) (*domain.WisherProfile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.wisherProfiles[userID]
	if !ok {
		return nil, store.ErrProfileNotFound
	}
	copied := *p
	return &copied, nil
}

func (m *memRepo) FindDonorProfile(ctx context.Context, userID uuid.UUID) (*domain.DonorProfile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.donorProfiles[userID]
	if !ok {
		return nil, store.ErrProfileNotFound
	}
	copied := *p
	return &copied, nil
}

func (m *memRepo) CreateWish(ctx context.Context, wish *domain.Wish) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	wish.ID = uuid.New()
	wish.CreatedAt = time.Now()
	wish.UpdatedAt = wish.CreatedAt
	copied := *wish
	m.wishes[wish.ID] = &copied
	return nil
}

func (m *memRepo) FindWishByID(ctx context.Context, wishID uuid.UUID) (*domain.Wish, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	w, ok := m.wishes[wishID]
	if !ok {
		return nil, store.ErrWishNotFound
	}
	copied := *w
	return &copied, nil
}

func (m *memRepo) listWishes(match func(domain.Wish) bool) []domain.Wish {
	wishes := []domain.Wish{}
	for _, w := range m.wishes {
		if match(*w) {
			wishes = append(wishes, *w)
		}
	}
	sort.Slice(wishes, func(i, j int) bool { return wishes[i].CreatedAt.After(wishes[j].CreatedAt) })
	return wishes
}

func (m *memRepo) ListWishes(ctx context.Context) ([]domain.Wish, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.listWishes(func(domain.Wish) bool { return true }), nil
}

func (m *memRepo) ListWishesByOwner(ctx context.Context, ownerID uuid.UUID) ([]domain.Wish, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.listWishes(func(w domain.Wish) bool { return w.UserID == ownerID }), nil
}

func (m *memRepo) ExpirePendingWishes(ctx context.Context, cutoff time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.expireCutoff = cutoff
	var n int64
	for _, w := range m.wishes {
		if w.Status == domain.WishPending && w.CreatedAt.Before(cutoff) {
			w.Status = domain.WishExpired
			n++
		}
	}
	return n, nil
}

func (m *memRepo) GrantWish(ctx context.Context, params store.GrantWishParams) (*domain.GrantOutcome, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.grantCalls++
	if m.grantErr != nil {
		return nil, m.grantErr
	}

	w, ok := m.wishes[params.WishID]
	if !ok {
		return nil, store.ErrWishNotFound
	}
	if w.Status == domain.WishFulfilled {
		return nil, store.ErrWishAlreadyFulfilled
	}
	for _, d := range m.donations {
		if d.WishID == params.WishID && d.DonorID == params.DonorID {
			return nil, store.ErrAlreadyGranted
		}
	}
	if w.Status != domain.WishPending {
		return nil, store.ErrWishNotGrantable
	}

	donation := domain.Donation{ID: uuid.New(), WishID: params.WishID, DonorID: params.DonorID, Notes: params.Notes, CreatedAt: time.Now()}
	m.donations = append(m.donations, donation)
	w.Status = domain.WishFulfilled

	profile, ok := m.donorProfiles[params.DonorID]
	if !ok {
		p := domain.NewDonorProfile(params.DonorID)
		profile = &p
		m.donorProfiles[params.DonorID] = profile
	}
	profile.TotalDonations++
	profile.ImpactScore = domain.ImpactScoreFor(profile.TotalDonations)

	return &domain.GrantOutcome{
		Donation:       donation,
		WishTitle:      w.Title,
		TotalDonations: profile.TotalDonations,
		ImpactScore:    profile.ImpactScore,
	}, nil
}

func (m *memRepo) ListDonationsByDonor(ctx context.Context, donorID uuid.UUID) ([]domain.Donation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	donations := []domain.Donation{}
	for _, d := range m.donations {
		if d.DonorID == donorID {
			donations = append(donations, d)
		}
	}
	return donations, nil
}

func (m *memRepo) donationCount(wishID uuid.UUID) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, d := range m.donations {
		if d.WishID == wishID {
			n++
		}
	}
	return n
}

func (m *memRepo) ListCountries(ctx context.Context) ([]domain.Country, error) {
	countries := append([]domain.Country(nil), m.countries...)
	sort.Slice(countries, func(i, j int) bool { return countries[i].Name < countries[j].Name })
	return countries, nil
}

func (m *memRepo) FindCountry(ctx context.Context, query string) (*domain.Country, error) {
	for _, c := range m.countries {
		if strings.EqualFold(c.Code2, query) || strings.EqualFold(c.Name, query) {
			copied := c
			return &copied, nil
		}
	}
	return nil, nil
}

func (m *memRepo) CountryExists(ctx context.Context, code2 string) (bool, error) {
	for _, c := range m.countries {
		if strings.EqualFold(c.Code2, strings.TrimSpace(code2)) {
			return true, nil
		}
	}
	return false, nil
}

func (m *memRepo) ListCitiesByCountry(ctx context.Context, code2 string) ([]domain.City, error) {
	return append([]domain.City{}, m.cities[code2]...), nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestService(repo store.Repository) *Service {
	sessions := NewSessionManager("test-signing-key", 24*time.Hour, time.Hour)
	svc := NewService(repo, sessions, discardLogger(), "wishchain_events")
	svc.hashPassword = func(password string) (string, error) { return "hashed:" + password, nil }
	svc.comparePassword = func(hash, password string) error {
		if hash != "hashed:"+password {
			return ErrInvalidCredentials
		}
		return nil
	}
	return svc
}
