package auth

import (
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"

	"github.com/aryan2621/Npmmer/internal/apperror"
)

// DefaultCost is the bcrypt work factor used when none is configured.
// Cost 10 means 2^10 key-expansion rounds.
const DefaultCost = 10

// MaxPasswordBytes is bcrypt's input limit; longer inputs would be silently truncated.
const MaxPasswordBytes = 72

// PasswordService provides bcrypt hashing and verification.
//
// bcrypt generates a random salt per hash and embeds it, together with the
// cost, in the output:
//
//	$2a$10$<22-char salt><31-char hash>
type PasswordService struct {
	cost int
}

// NewPasswordService creates a PasswordService. cost <= 0 selects DefaultCost.
// Tests pass bcrypt.MinCost (4) to keep hashing fast.
func NewPasswordService(cost int) (*PasswordService, error) {
	if cost <= 0 {
		cost = DefaultCost
	}
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		return nil, fmt.Errorf("auth: bcrypt cost must be between %d and %d", bcrypt.MinCost, bcrypt.MaxCost)
	}
	return &PasswordService{cost: cost}, nil
}

// Hash hashes the given plaintext password with bcrypt.
//
// Returns a validation error if the plaintext is longer than 72 bytes.
func (p *PasswordService) Hash(plaintext string) (string, error) {
	if len(plaintext) > MaxPasswordBytes {
		return "", apperror.ValidationFailed("password",
			fmt.Sprintf("password must be %d bytes or fewer", MaxPasswordBytes))
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(plaintext), p.cost)
	if err != nil {
		return "", fmt.Errorf("auth: hashing password: %w", err)
	}

	return string(hashed), nil
}

// Verify checks whether a plaintext password matches a stored bcrypt hash.
//
// A mismatch is apperror.ErrInvalidCredentials. A malformed hash is an
// ordinary error, since it means the stored record is broken.
func (p *PasswordService) Verify(hash, plaintext string) error {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(plaintext))
	if err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return apperror.InvalidCredentials()
		}
		return fmt.Errorf("auth: comparing password hash: %w", err)
	}
	return nil
}
