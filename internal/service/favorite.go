// Package service contains the business logic layer of the application.
//
// THE THREE-LAYER ARCHITECTURE:
//
//	Handler (HTTP layer)     → parses requests, writes responses
//	Service (Business layer) → validates, enforces rules, orchestrates
//	Repository (Data layer)  → reads/writes to the database
//
// Services take repository interfaces, never concrete stores, so tests inject
// in-memory fakes and the server injects the SQLite (and Redis) implementations.
//
// Every favorites operation receives the authenticated user's ID explicitly.
// Reads and writes on a record owned by someone else fail with
// apperror.ErrForbidden.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/rs/xid"

	"github.com/aryan2621/Npmmer/internal/apperror"
	"github.com/aryan2621/Npmmer/internal/model"
	"github.com/aryan2621/Npmmer/internal/repository"
)

// Validation limits for saved packages.
const (
	MaxPackageNameLength = 214 // npm's own limit
	MaxVersionLength     = 256
	MaxReasonLength      = 2000
)

// FavoriteService handles business logic for a user's saved packages.
type FavoriteService struct {
	repo   repository.FavoriteRepository
	logger *slog.Logger
	now    func() time.Time
}

// NewFavoriteService creates a new FavoriteService.
func NewFavoriteService(repo repository.FavoriteRepository, logger *slog.Logger) *FavoriteService {
	return &FavoriteService{
		repo:   repo,
		logger: logger,
		now:    time.Now,
	}
}

// List returns the user's favorites in insertion order.
// A user with no favorites gets an empty, non-nil slice.
func (s *FavoriteService) List(ctx context.Context, userID string) ([]model.Favorite, error) {
	if userID == "" {
		return nil, apperror.ValidationFailed("user", "user ID is required")
	}

	favs, err := s.repo.ListByUser(ctx, userID)
	if err != nil {
		s.logger.Error("failed to list favorites",
			slog.String("userID", userID),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("listing favorites: %w", err)
	}
	if favs == nil {
		favs = []model.Favorite{}
	}

	return favs, nil
}

// Get returns one favorite owned by userID.
func (s *FavoriteService) Get(ctx context.Context, userID, id string) (*model.Favorite, error) {
	return s.owned(ctx, userID, id)
}

// Create validates draft, fills in defaults, stamps the owner and stores it.
//
// Whatever draft.User holds is ignored; the owner is always userID. A name
// that is already saved (by anyone) is apperror.ErrDuplicateName.
func (s *FavoriteService) Create(ctx context.Context, userID string, draft model.Favorite) (*model.Favorite, error) {
	if userID == "" {
		return nil, apperror.ValidationFailed("user", "user ID is required")
	}

	fav := model.Favorite{
		ID:                     strings.TrimSpace(draft.ID),
		Name:                   strings.TrimSpace(draft.Name),
		Version:                strings.TrimSpace(draft.Version),
		Description:            strings.TrimSpace(draft.Description),
		ReasonForBeingFavorite: strings.TrimSpace(draft.ReasonForBeingFavorite),
		Date:                   strings.TrimSpace(draft.Date),
		User:                   userID,
	}

	if fav.Name == "" {
		return nil, apperror.ValidationFailed("name", "package name is required")
	}
	if len(fav.Name) > MaxPackageNameLength {
		return nil, apperror.ValidationFailed("name",
			fmt.Sprintf("package name must be %d characters or less", MaxPackageNameLength))
	}
	if fav.Version == "" {
		return nil, apperror.ValidationFailed("version", "package version is required")
	}
	if len(fav.Version) > MaxVersionLength {
		return nil, apperror.ValidationFailed("version",
			fmt.Sprintf("package version must be %d characters or less", MaxVersionLength))
	}
	if len(fav.ReasonForBeingFavorite) > MaxReasonLength {
		return nil, apperror.ValidationFailed("reasonForBeingFavorite",
			fmt.Sprintf("reason must be %d characters or less", MaxReasonLength))
	}

	if fav.ID == "" {
		fav.ID = xid.New().String()
	}
	if fav.Description == "" {
		fav.Description = model.DefaultDescription
	}
	if fav.ReasonForBeingFavorite == "" {
		fav.ReasonForBeingFavorite = model.DefaultReason
	}
	if fav.Date == "" {
		fav.Date = s.now().UTC().Format(model.DateLayout)
	}

	if err := s.repo.Create(ctx, &fav); err != nil {
		var appErr *apperror.AppError
		if !errors.As(err, &appErr) {
			s.logger.Error("failed to create favorite",
				slog.String("name", fav.Name),
				slog.String("error", err.Error()),
			)
		}
		return nil, fmt.Errorf("creating favorite: %w", err)
	}

	s.logger.Info("favorite created",
		slog.String("id", fav.ID),
		slog.String("name", fav.Name),
		slog.String("userID", userID),
	)

	return &fav, nil
}

// Update replaces the note on a favorite the user owns. Every other field is
// fixed at creation.
func (s *FavoriteService) Update(ctx context.Context, userID, id, reason string) (*model.Favorite, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, apperror.ValidationFailed("reasonForBeingFavorite", "reason is required")
	}
	if len(reason) > MaxReasonLength {
		return nil, apperror.ValidationFailed("reasonForBeingFavorite",
			fmt.Sprintf("reason must be %d characters or less", MaxReasonLength))
	}

	fav, err := s.owned(ctx, userID, id)
	if err != nil {
		return nil, err
	}

	if err := s.repo.UpdateReason(ctx, fav.ID, reason); err != nil {
		s.logger.Error("failed to update favorite",
			slog.String("id", fav.ID),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("updating favorite: %w", err)
	}
	fav.ReasonForBeingFavorite = reason

	s.logger.Info("favorite updated", slog.String("id", fav.ID))

	return fav, nil
}

// Delete removes a favorite the user owns. Deleting an ID that does not
// exist succeeds.
func (s *FavoriteService) Delete(ctx context.Context, userID, id string) error {
	_, err := s.owned(ctx, userID, id)
	if errors.Is(err, apperror.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		s.logger.Error("failed to delete favorite",
			slog.String("id", id),
			slog.String("error", err.Error()),
		)
		return fmt.Errorf("deleting favorite: %w", err)
	}

	s.logger.Info("favorite deleted", slog.String("id", id))
	return nil
}

// owned fetches a favorite and checks that userID owns it.
func (s *FavoriteService) owned(ctx context.Context, userID, id string) (*model.Favorite, error) {
	if userID == "" {
		return nil, apperror.ValidationFailed("user", "user ID is required")
	}
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, apperror.ValidationFailed("id", "package ID is required")
	}

	fav, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if fav.User != userID {
		s.logger.Warn("favorite ownership check failed",
			slog.String("id", id),
			slog.String("userID", userID),
		)
		return nil, apperror.Forbidden("you do not own this package")
	}

	return fav, nil
}
