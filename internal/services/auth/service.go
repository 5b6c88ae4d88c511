package auth

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v4"

	"github.com/mcoot/skillmatch/internal/dependencies/clock"
	"github.com/mcoot/skillmatch/internal/model"
)

// Errors
var (
	ErrInvalidSession = errors.New("invalid or expired session")
	ErrMissingPlayer  = errors.New("session needs a player id")
)

// Session is a player's bearer token and the claims it carries
type Session struct {
	Token     string
	PlayerID  model.PlayerID
	CreatedAt time.Time
	ExpiresAt time.Time
}

// Config holds configuration for the auth service
type Config struct {
	// Secret signs and verifies HS256 tokens
	Secret          string
	Issuer          string
	Audience        string
	SessionDuration time.Duration
}

// DefaultConfig returns default auth configuration
func DefaultConfig() Config {
	return Config{
		Issuer:          "skillmatch",
		Audience:        "skillmatch-api",
		SessionDuration: 24 * time.Hour,
	}
}

// Service issues and validates player session tokens. Tokens are signed JWTs
// whose subject is the player ID, so nothing is kept server-side.
type Service struct {
	clock           clock.Clock
	secret          []byte
	issuer          string
	audience        string
	sessionDuration time.Duration
}

// New creates a new auth Service. Empty fields other than Secret take defaults.
func New(clock clock.Clock, cfg Config) *Service {
	defaults := DefaultConfig()
	if cfg.Issuer == "" {
		cfg.Issuer = defaults.Issuer
	}
	if cfg.Audience == "" {
		cfg.Audience = defaults.Audience
	}
	if cfg.SessionDuration == 0 {
		cfg.SessionDuration = defaults.SessionDuration
	}
	return &Service{
		clock:           clock,
		secret:          []byte(cfg.Secret),
		issuer:          cfg.Issuer,
		audience:        cfg.Audience,
		sessionDuration: cfg.SessionDuration,
	}
}

// CreateSession signs a token for playerID. The caller vouches for the identity.
func (s *Service) CreateSession(playerID model.PlayerID) (*Session, error) {
	if playerID == "" {
		return nil, ErrMissingPlayer
	}

	now := s.clock.Now()
	claims := jwt.RegisteredClaims{
		ID:        generateID(),
		Issuer:    s.issuer,
		Subject:   string(playerID),
		Audience:  jwt.ClaimStrings{s.audience},
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(s.sessionDuration)),
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return nil, fmt.Errorf("sign session: %w", err)
	}

	return &Session{
		Token:     token,
		PlayerID:  playerID,
		CreatedAt: claims.IssuedAt.Time,
		ExpiresAt: claims.ExpiresAt.Time,
	}, nil
}

// ValidateSession checks a token's signature, issuer, audience and expiry
// against the service clock and returns the session it describes
func (s *Service) ValidateSession(token string) (*Session, error) {
	claims := &jwt.RegisteredClaims{}
	_, err := jwt.ParseWithClaims(token, claims,
		func(t *jwt.Token) (any, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
			}
			return s.secret, nil
		},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		// time claims are checked below against the injected clock
		jwt.WithoutClaimsValidation(),
	)
	if err != nil {
		return nil, ErrInvalidSession
	}

	now := s.clock.Now()
	switch {
	case claims.Subject == "",
		!claims.VerifyExpiresAt(now, true),
		!claims.VerifyNotBefore(now, false),
		!claims.VerifyIssuer(s.issuer, true),
		!claims.VerifyAudience(s.audience, true):
		return nil, ErrInvalidSession
	}

	session := &Session{
		Token:     token,
		PlayerID:  model.PlayerID(claims.Subject),
		ExpiresAt: claims.ExpiresAt.Time,
	}
	if claims.IssuedAt != nil {
		session.CreatedAt = claims.IssuedAt.Time
	}
	return session, nil
}

// generateID returns a random token ID
func generateID() string {
	b := make([]byte, 16)
	_, _ = rand.Read(b)
	return base64.RawURLEncoding.EncodeToString(b)
}
