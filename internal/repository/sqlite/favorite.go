package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/aryan2621/Npmmer/internal/apperror"
	"github.com/aryan2621/Npmmer/internal/model"
	"github.com/aryan2621/Npmmer/internal/repository"
)

// compile-time check that *FavoriteDB implements repository.FavoriteRepository
var _ repository.FavoriteRepository = (*FavoriteDB)(nil)

// FavoriteDB is the packages-table view of the shared pool.
type FavoriteDB struct {
	conn *sql.DB
}

// Favorites returns the favorites store backed by this database.
func (db *DB) Favorites() *FavoriteDB {
	return &FavoriteDB{conn: db.conn}
}

const favoriteColumns = `id, name, version, description, reason, date, user_id`

// Create inserts a saved package. ID, defaults and owner are filled in by the
// service before it gets here.
//
// Two constraints can fire: the primary key on id and the global UNIQUE index
// on name. They map to different errors so the caller can tell a retried
// request from a genuine name clash.
func (f *FavoriteDB) Create(ctx context.Context, fav *model.Favorite) error {
	_, err := f.conn.ExecContext(ctx,
		`INSERT INTO packages (`+favoriteColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		fav.ID,
		fav.Name,
		fav.Version,
		fav.Description,
		fav.ReasonForBeingFavorite,
		fav.Date,
		fav.User,
	)
	if err != nil {
		switch {
		case uniqueViolation(err, "packages.name"):
			return apperror.DuplicateName(fav.Name)
		case uniqueViolation(err, "packages.id"):
			return apperror.Conflict("package", fav.ID)
		}
		return fmt.Errorf("sqlite: creating package %s: %w", fav.ID, err)
	}

	return nil
}

// GetByID retrieves a single saved package by its ID.
// Returns apperror.ErrNotFound if it doesn't exist.
func (f *FavoriteDB) GetByID(ctx context.Context, id string) (*model.Favorite, error) {
	var fav model.Favorite

	err := f.conn.QueryRowContext(ctx,
		`SELECT `+favoriteColumns+` FROM packages WHERE id = ?`,
		id,
	).Scan(
		&fav.ID,
		&fav.Name,
		&fav.Version,
		&fav.Description,
		&fav.ReasonForBeingFavorite,
		&fav.Date,
		&fav.User,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("package", id)
		}
		return nil, fmt.Errorf("sqlite: getting package %s: %w", id, err)
	}

	return &fav, nil
}

// ListByUser returns every package the user saved, in insertion order.
// A user with no favorites gets an empty (non-nil) slice.
func (f *FavoriteDB) ListByUser(ctx context.Context, userID string) ([]model.Favorite, error) {
	rows, err := f.conn.QueryContext(ctx,
		`SELECT `+favoriteColumns+`
		 FROM packages
		 WHERE user_id = ?
		 ORDER BY rowid`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing packages for user %s: %w", userID, err)
	}
	// CRITICAL: always close rows when done!
	defer rows.Close()

	favs := []model.Favorite{}
	for rows.Next() {
		var fav model.Favorite
		if err := rows.Scan(
			&fav.ID, &fav.Name, &fav.Version, &fav.Description,
			&fav.ReasonForBeingFavorite, &fav.Date, &fav.User,
		); err != nil {
			return nil, fmt.Errorf("sqlite: scanning package row: %w", err)
		}
		favs = append(favs, fav)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating packages: %w", err)
	}

	return favs, nil
}

// UpdateReason overwrites the note on a saved package. No other column is
// writable after creation.
func (f *FavoriteDB) UpdateReason(ctx context.Context, id, reason string) error {
	result, err := f.conn.ExecContext(ctx,
		`UPDATE packages SET reason = ? WHERE id = ?`,
		reason,
		id,
	)
	if err != nil {
		return fmt.Errorf("sqlite: updating package %s: %w", id, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return apperror.NotFound("package", id)
	}

	return nil
}

// Delete removes a saved package. Deleting an ID that does not exist is a
// successful no-op.
func (f *FavoriteDB) Delete(ctx context.Context, id string) error {
	if _, err := f.conn.ExecContext(ctx, `DELETE FROM packages WHERE id = ?`, id); err != nil {
		return fmt.Errorf("sqlite: deleting package %s: %w", id, err)
	}
	return nil
}
