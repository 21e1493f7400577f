// Package repository declares the storage interfaces the service layer depends on.
// Implementations live in subpackages (sqlite, redis) and are injected by the server.
package repository

import (
	"context"
	"time"

	"github.com/aryan2621/Npmmer/internal/model"
)

// UserRepository is the credential store.
//
// Create must return apperror.ErrDuplicateUser when the email is taken and
// apperror.ErrConflict when the ID is taken. Lookups return apperror.ErrNotFound.
type UserRepository interface {
	Create(ctx context.Context, user *model.User) error
	GetUserByID(ctx context.Context, id string) (*model.User, error)
	GetUserByEmail(ctx context.Context, email string) (*model.User, error)
}

// FavoriteRepository is the favorites store.
//
// Create must return apperror.ErrDuplicateName when another record has the same
// package name. Delete of a missing ID is not an error.
type FavoriteRepository interface {
	Create(ctx context.Context, fav *model.Favorite) error
	GetByID(ctx context.Context, id string) (*model.Favorite, error)
	ListByUser(ctx context.Context, userID string) ([]model.Favorite, error)
	UpdateReason(ctx context.Context, id, reason string) error
	Delete(ctx context.Context, id string) error
}

// TokenDenylist records revoked session token IDs until the token would have
// expired anyway.
type TokenDenylist interface {
	Revoke(ctx context.Context, tokenID string, expiresAt time.Time) error
	IsRevoked(ctx context.Context, tokenID string) (bool, error)
}
