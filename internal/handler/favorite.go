package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/aryan2621/Npmmer/internal/auth"
	"github.com/aryan2621/Npmmer/internal/model"
)

// FavoriteService is the subset of service.FavoriteService the handlers call.
type FavoriteService interface {
	List(ctx context.Context, userID string) ([]model.Favorite, error)
	Get(ctx context.Context, userID, id string) (*model.Favorite, error)
	Create(ctx context.Context, userID string, draft model.Favorite) (*model.Favorite, error)
	Update(ctx context.Context, userID, id, reason string) (*model.Favorite, error)
	Delete(ctx context.Context, userID, id string) error
}

// FavoriteHandler manages the signed-in user's saved packages.
//
// Every route sits behind auth.RequireAuth, so the user ID in the context is
// the only identity the handlers pass down. The "user" field of a request
// body is never trusted.
type FavoriteHandler struct {
	favorites FavoriteService
	logger    *slog.Logger
}

// NewFavoriteHandler creates a new FavoriteHandler.
func NewFavoriteHandler(favorites FavoriteService, logger *slog.Logger) *FavoriteHandler {
	return &FavoriteHandler{favorites: favorites, logger: logger}
}

// HandleList returns the caller's favorites.
//
// HTTP: GET /api/packages
//
// RESPONSE FORMAT:
//
//	[
//	  {"id":"…","name":"left-pad","version":"1.0.0","description":"…",
//	   "reasonForBeingFavorite":"classic","date":"…","user":"…"},
//	  ...
//	]
//
// A user with no favorites gets [] (never null).
func (h *FavoriteHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}

	favs, err := h.favorites.List(r.Context(), userID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, favs)
}

// HandleCreate saves a package.
//
// HTTP: POST /api/package
// REQUEST BODY: a favorite record; id, description, note and date are optional.
func (h *FavoriteHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}

	var draft model.Favorite
	if err := decodeJSON(w, r, &draft); err != nil {
		writeError(w, err)
		return
	}

	if _, err := h.favorites.Create(r.Context(), userID, draft); err != nil {
		writeError(w, err)
		return
	}

	writeMessage(w, http.StatusOK, "Package saved")
}

// HandleGet returns one of the caller's favorites.
//
// HTTP: GET /api/package/{id}
func (h *FavoriteHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}

	fav, err := h.favorites.Get(r.Context(), userID, chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, fav)
}

// HandleUpdate changes the note on a favorite.
//
// HTTP: PUT /api/package/{id}
// REQUEST BODY: a favorite record; only reasonForBeingFavorite is applied.
func (h *FavoriteHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}

	var body model.Favorite
	if err := decodeJSON(w, r, &body); err != nil {
		writeError(w, err)
		return
	}

	id := chi.URLParam(r, "id")
	if _, err := h.favorites.Update(r.Context(), userID, id, body.ReasonForBeingFavorite); err != nil {
		writeError(w, err)
		return
	}

	writeMessage(w, http.StatusOK, "Package updated")
}

// HandleDelete removes a favorite. Deleting an unknown ID succeeds.
//
// HTTP: DELETE /api/package/{id}
func (h *FavoriteHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}

	if err := h.favorites.Delete(r.Context(), userID, chi.URLParam(r, "id")); err != nil {
		writeError(w, err)
		return
	}

	writeMessage(w, http.StatusOK, "Package deleted")
}

func (h *FavoriteHandler) userID(w http.ResponseWriter, r *http.Request) (string, bool) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		h.logger.Error("favorites route reached without an authenticated user",
			slog.String("path", r.URL.Path),
		)
		writeJSON(w, http.StatusUnauthorized, ErrorResponse{Error: "unauthorized", Message: "valid authentication required"})
	}
	return userID, ok
}
