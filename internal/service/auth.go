// AuthService is the business logic layer for authentication. It sits between
// the HTTP handlers and the repository/auth utilities:
//
//	AuthHandler (HTTP) → AuthService (business rules) → UserRepository (DB)
//	                   ↘ TokenService (JWT), PasswordService (bcrypt)
//	                   ↘ TokenDenylist (revoked token IDs)
//
// KEY RESPONSIBILITIES:
//   - Register accounts with bcrypt-hashed passwords
//   - Check credentials and issue session tokens
//   - Verify tokens on every request, including the revocation check
//   - Revoke a token on sign-out

package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/rs/xid"

	"github.com/aryan2621/Npmmer/internal/apperror"
	"github.com/aryan2621/Npmmer/internal/auth"
	"github.com/aryan2621/Npmmer/internal/model"
	"github.com/aryan2621/Npmmer/internal/repository"
)

// Account field limits.
const (
	MaxUserNameLength = 100
	MaxEmailLength    = 254
)

// AuthService handles the authentication business logic.
//
// DEPENDENCIES (injected via NewAuthService):
//   - users      repository.UserRepository  → read/write user records
//   - tokens     *auth.TokenService         → generate/validate JWTs
//   - passwords  *auth.PasswordService      → bcrypt hashing
//   - denylist   repository.TokenDenylist   → revoked token IDs
//   - logger     *slog.Logger               → structured logging
type AuthService struct {
	users     repository.UserRepository
	tokens    *auth.TokenService
	passwords *auth.PasswordService
	denylist  repository.TokenDenylist
	logger    *slog.Logger
}

// AuthService is what the auth middleware and gateway verify cookies with.
var _ auth.TokenVerifier = (*AuthService)(nil)

// NewAuthService creates an AuthService with all required dependencies.
// Call this in server.go when wiring the dependency graph.
func NewAuthService(
	users repository.UserRepository,
	tokens *auth.TokenService,
	passwords *auth.PasswordService,
	denylist repository.TokenDenylist,
	logger *slog.Logger,
) *AuthService {
	return &AuthService{
		users:     users,
		tokens:    tokens,
		passwords: passwords,
		denylist:  denylist,
		logger:    logger,
	}
}

// RegisterInput is the signup payload after JSON decoding.
// ID is optional; the service generates one when it is empty.
type RegisterInput struct {
	ID       string
	Name     string
	Email    string
	Password string
}

// AuthResult is returned by authentication operations.
// It bundles the user record and the issued token together so the caller
// (the HTTP handler) can set the cookie and respond in one step.
type AuthResult struct {
	User  *model.User
	Token *auth.Token
}

// Register validates and stores a new account.
//
// The email pre-check gives a clean DuplicateUser in the common case; two
// concurrent signups for the same email are still settled by the store's
// unique index, which reports the same error.
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*model.User, error) {
	name := strings.TrimSpace(in.Name)
	email := normalizeEmail(in.Email)
	id := strings.TrimSpace(in.ID)

	if name == "" {
		return nil, apperror.ValidationFailed("name", "name is required")
	}
	if len(name) > MaxUserNameLength {
		return nil, apperror.ValidationFailed("name",
			fmt.Sprintf("name must be %d characters or less", MaxUserNameLength))
	}
	if email == "" {
		return nil, apperror.ValidationFailed("email", "email is required")
	}
	if len(email) > MaxEmailLength || !strings.Contains(email, "@") {
		return nil, apperror.ValidationFailed("email", "email is not valid")
	}
	if in.Password == "" {
		return nil, apperror.ValidationFailed("password", "password is required")
	}

	_, err := s.users.GetUserByEmail(ctx, email)
	switch {
	case err == nil:
		return nil, apperror.DuplicateUser(email)
	case !errors.Is(err, apperror.ErrNotFound):
		return nil, fmt.Errorf("service/auth: checking email: %w", err)
	}

	hash, err := s.passwords.Hash(in.Password)
	if err != nil {
		return nil, err
	}

	if id == "" {
		id = xid.New().String()
	}
	user := &model.User{
		ID:           id,
		Name:         name,
		Email:        email,
		PasswordHash: hash,
	}

	if err := s.users.Create(ctx, user); err != nil {
		var appErr *apperror.AppError
		if !errors.As(err, &appErr) {
			s.logger.Error("failed to create user", slog.String("error", err.Error()))
		}
		return nil, fmt.Errorf("service/auth: creating user: %w", err)
	}

	s.logger.Info("user registered", slog.String("userID", user.ID))

	// The hash has done its job; keep it out of anything the caller returns.
	user.PasswordHash = ""
	return user, nil
}

// Authenticate checks an email/password pair and issues a session token.
//
// An unknown email is apperror.ErrNotFound and a wrong password is
// apperror.ErrInvalidCredentials.
func (s *AuthService) Authenticate(ctx context.Context, email, password string) (*AuthResult, error) {
	email = normalizeEmail(email)
	if email == "" {
		return nil, apperror.ValidationFailed("email", "email is required")
	}
	if password == "" {
		return nil, apperror.ValidationFailed("password", "password is required")
	}

	user, err := s.users.GetUserByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("service/auth: looking up user: %w", err)
	}

	if err := s.passwords.Verify(user.PasswordHash, password); err != nil {
		if errors.Is(err, apperror.ErrInvalidCredentials) {
			s.logger.Info("sign-in rejected", slog.String("userID", user.ID))
		}
		return nil, err
	}

	token, err := s.tokens.Generate(user.ID)
	if err != nil {
		return nil, fmt.Errorf("service/auth: generating token for user %s: %w", user.ID, err)
	}

	s.logger.Info("user signed in", slog.String("userID", user.ID))

	user.PasswordHash = ""
	return &AuthResult{User: user, Token: token}, nil
}

// VerifyToken validates a session token and returns the user ID it encodes.
//
// The signature and expiry check needs only the secret; the denylist lookup
// catches tokens revoked by sign-out before their natural expiry.
func (s *AuthService) VerifyToken(ctx context.Context, tokenStr string) (string, error) {
	claims, err := s.tokens.Parse(tokenStr)
	if err != nil {
		return "", fmt.Errorf("service/auth: %w", err)
	}

	revoked, err := s.denylist.IsRevoked(ctx, claims.TokenID)
	if err != nil {
		return "", fmt.Errorf("service/auth: checking denylist: %w", err)
	}
	if revoked {
		return "", apperror.InvalidToken("session token has been revoked")
	}

	return claims.UserID, nil
}

// Revoke puts the token on the denylist until it expires.
// Tokens that already fail verification are ignored: they can't be used anyway.
func (s *AuthService) Revoke(ctx context.Context, tokenStr string) error {
	claims, err := s.tokens.Parse(tokenStr)
	if err != nil {
		return nil
	}

	if err := s.denylist.Revoke(ctx, claims.TokenID, claims.ExpiresAt); err != nil {
		return fmt.Errorf("service/auth: revoking token: %w", err)
	}

	s.logger.Info("session revoked", slog.String("userID", claims.UserID))
	return nil
}

// GetUserByID returns the user for the given internal ID.
//
// Used by the /api/me handler after the middleware has verified the cookie.
func (s *AuthService) GetUserByID(ctx context.Context, id string) (*model.User, error) {
	if id == "" {
		return nil, apperror.ValidationFailed("id", "user ID is required")
	}

	user, err := s.users.GetUserByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("service/auth: fetching user %s: %w", id, err)
	}

	user.PasswordHash = ""
	return user, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
