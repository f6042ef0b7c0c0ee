package app

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/wishchain/wishchain-backend/internal/domain"
	"github.com/wishchain/wishchain-backend/internal/store"
)

// LoginResult is returned after a successful login.
type LoginResult struct {
	User       *domain.User `json:"user"`
	Session    *Session     `json:"session"`
	RedirectTo string       `json:"redirect_to"`
}

// RedirectPathForRole is where a client should land after signing in.
func RedirectPathForRole(role domain.Role) string {
	switch role {
	case domain.RoleWisher:
		return "/wishes/dashboard"
	case domain.RoleDonor:
		return "/donations/dashboard"
	default:
		return "/"
	}
}

// Authenticate checks an email and password pair. Unknown emails and wrong
// passwords both yield ErrInvalidCredentials.
func (s *Service) Authenticate(ctx context.Context, email, password string) (*domain.User, error) {
	email = normalizeEmail(email)
	if email == "" || password == "" {
		return nil, ErrInvalidCredentials
	}

	user, err := s.repo.FindUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, store.ErrUserNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("failed to look up user: %w", err)
	}
	if err := s.comparePassword(user.PasswordHash, password); err != nil {
		return nil, ErrInvalidCredentials
	}
	return user, nil
}

// Login authenticates the credentials and issues a session.
func (s *Service) Login(ctx context.Context, email, password string, remember bool) (*LoginResult, error) {
	user, err := s.Authenticate(ctx, email, password)
	if err != nil {
		if errors.Is(err, ErrInvalidCredentials) {
			s.logger.Info("login rejected", "component", "auth", "email_domain", emailDomain(email))
		}
		return nil, err
	}

	session, err := s.sessions.Issue(user, remember)
	if err != nil {
		return nil, fmt.Errorf("failed to issue session: %w", err)
	}
	return &LoginResult{User: user, Session: session, RedirectTo: RedirectPathForRole(user.Role)}, nil
}

// CurrentUser loads the user behind a session.
func (s *Service) CurrentUser(ctx context.Context, userID uuid.UUID) (*domain.User, error) {
	return s.repo.FindUserByID(ctx, userID)
}

func emailDomain(email string) string {
	if at := strings.LastIndex(email, "@"); at >= 0 {
		return strings.ToLower(email[at+1:])
	}
	return ""
}
