package app

import (
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/wishchain/wishchain-backend/internal/domain"
)

const sessionIssuer = "wishchain"

// SessionClaims are the claims carried by a session token.
type SessionClaims struct {
	Role  domain.Role `json:"role"`
	Email string      `json:"email"`
	jwt.RegisteredClaims
}

// Session is an issued token together with its expiry.
type Session struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

// SessionPrincipal is the authenticated caller extracted from a token.
type SessionPrincipal struct {
	UserID uuid.UUID
	Role   domain.Role
	Email  string
}

// SessionManager issues and verifies HS256 session tokens.
type SessionManager struct {
	key      []byte
	ttl      time.Duration
	shortTTL time.Duration
	now      func() time.Time
}

// NewSessionManager creates a manager. shortTTL is used for sessions that
// should not be remembered.
func NewSessionManager(signingKey string, ttl, shortTTL time.Duration) *SessionManager {
	if shortTTL <= 0 || shortTTL > ttl {
		shortTTL = ttl
	}
	return &SessionManager{
		key:      []byte(signingKey),
		ttl:      ttl,
		shortTTL: shortTTL,
		now:      time.Now,
	}
}

// Issue signs a token for user.
func (m *SessionManager) Issue(user *domain.User, remember bool) (*Session, error) {
	if user == nil || user.ID == uuid.Nil {
		return nil, errors.New("cannot issue session without a user")
	}

	ttl := m.ttl
	if !remember {
		ttl = m.shortTTL
	}
	now := m.now().UTC()
	expiresAt := now.Add(ttl)

	claims := SessionClaims{
		Role:  user.Role,
		Email: user.Email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID.String(),
			Issuer:    sessionIssuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.key)
	if err != nil {
		return nil, err
	}
	return &Session{Token: signed, ExpiresAt: expiresAt}, nil
}

// Verify validates a token and returns the caller it identifies.
func (m *SessionManager) Verify(tokenString string) (*SessionPrincipal, error) {
	tokenString = strings.TrimSpace(tokenString)
	if tokenString == "" {
		return nil, ErrInvalidSession
	}

	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(sessionIssuer),
		jwt.WithExpirationRequired(),
		jwt.WithLeeway(30*time.Second),
		jwt.WithTimeFunc(m.now),
	)
	claims := &SessionClaims{}
	token, err := parser.ParseWithClaims(tokenString, claims, func(*jwt.Token) (any, error) {
		return m.key, nil
	})
	if err != nil || !token.Valid {
		return nil, ErrInvalidSession
	}

	userID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return nil, ErrInvalidSession
	}
	return &SessionPrincipal{UserID: userID, Role: claims.Role, Email: claims.Email}, nil
}
