// Package auth provides session tokens, password hashing, and the HTTP
// middleware that enforces authentication.
//
// AUTHENTICATION FLOW OVERVIEW:
//  1. User POSTs email + password to /api/signin
//  2. The auth service checks the bcrypt hash and issues a JWT
//  3. The JWT is stored in the HttpOnly "token" cookie for 24 hours
//  4. On later requests, RequireAuth (API) or Gateway (pages) reads the
//     cookie, verifies it, and puts the user ID in the request context
//
// JWT STRUCTURE (three base64-encoded parts separated by dots):
//
//	HEADER.PAYLOAD.SIGNATURE
//	- Header: {"alg":"HS256","typ":"JWT"}
//	- Payload: {"sub":"<userID>","jti":"<tokenID>","iss":"npmmer","iat":…,"exp":…}
//	- Signature: HMAC-SHA256(header+"."+payload, secretKey)
//
// Validation needs only the secret, no store lookup. The jti claim gives each
// token its own identity so the service can revoke one before it expires.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/xid"

	"github.com/aryan2621/Npmmer/internal/apperror"
)

// DefaultTokenTTL is how long a session token stays valid after sign-in.
const DefaultTokenTTL = 24 * time.Hour

const issuer = "npmmer"

// TokenService handles JWT creation and validation.
//
// It holds the HMAC secret key used to sign and verify tokens.
// The same secret must be used for both operations.
type TokenService struct {
	secret []byte
	ttl    time.Duration
}

// Token is a freshly signed session token together with the claims the
// caller needs for the cookie and for revocation.
type Token struct {
	Value     string
	ID        string
	UserID    string
	ExpiresAt time.Time
}

// Claims are the verified contents of a session token.
type Claims struct {
	TokenID   string
	UserID    string
	ExpiresAt time.Time
}

// NewTokenService creates a TokenService with the given secret and lifetime.
// A zero ttl means DefaultTokenTTL.
// Example secret: JWT_SECRET=$(openssl rand -hex 32)
func NewTokenService(secret string, ttl time.Duration) (*TokenService, error) {
	if len(secret) < 16 {
		return nil, errors.New("auth: JWT secret must be at least 16 characters")
	}
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}
	return &TokenService{secret: []byte(secret), ttl: ttl}, nil
}

// TTL returns the lifetime of tokens issued by Generate.
func (s *TokenService) TTL() time.Duration {
	return s.ttl
}

type claims struct {
	jwt.RegisteredClaims
}

// Generate creates and signs a new token for userID with the service's TTL.
func (s *TokenService) Generate(userID string) (*Token, error) {
	return s.GenerateWithDuration(userID, s.ttl)
}

// GenerateWithDuration creates a token with a custom expiry duration.
// Tests use a negative duration to mint already-expired tokens.
func (s *TokenService) GenerateWithDuration(userID string, d time.Duration) (*Token, error) {
	if userID == "" {
		return nil, errors.New("auth: cannot issue a token without a subject")
	}

	now := time.Now()
	tok := &Token{
		ID:     xid.New().String(),
		UserID: userID,
		// JWT timestamps have one-second resolution.
		ExpiresAt: now.Add(d).Truncate(time.Second),
	}

	c := claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        tok.ID,
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(tok.ExpiresAt),
			Issuer:    issuer,
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString(s.secret)
	if err != nil {
		return nil, fmt.Errorf("auth: signing token: %w", err)
	}
	tok.Value = signed

	return tok, nil
}

// Parse verifies a token string and returns its claims.
//
// VALIDATION CHECKS (performed by the jwt library):
//   - Signature is valid (wasn't tampered with)
//   - Token is not expired (ExpiresAt is in the future)
//   - Issuer matches "npmmer"
//   - Algorithm is HS256 (an alg=none token is rejected)
//
// Errors are apperror.ErrExpiredToken for an expired but otherwise valid
// token, and apperror.ErrInvalidToken for everything else.
func (s *TokenService) Parse(tokenStr string) (*Claims, error) {
	if tokenStr == "" {
		return nil, apperror.InvalidToken("session token is empty")
	}

	token, err := jwt.ParseWithClaims(
		tokenStr,
		&claims{},
		func(token *jwt.Token) (any, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
			}
			return s.secret, nil
		},
		jwt.WithValidMethods([]string{"HS256"}),
		jwt.WithIssuer(issuer),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, apperror.ExpiredToken()
		}
		return nil, apperror.InvalidToken("session token is invalid: " + err.Error())
	}

	c, ok := token.Claims.(*claims)
	if !ok || !token.Valid {
		return nil, apperror.InvalidToken("session token has invalid claims")
	}
	if c.Subject == "" {
		return nil, apperror.InvalidToken("session token has no subject")
	}

	return &Claims{
		TokenID:   c.ID,
		UserID:    c.Subject,
		ExpiresAt: c.ExpiresAt.Time,
	}, nil
}

// Validate is Parse reduced to the user ID.
func (s *TokenService) Validate(tokenStr string) (string, error) {
	c, err := s.Parse(tokenStr)
	if err != nil {
		return "", err
	}
	return c.UserID, nil
}
