package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/aryan2621/Npmmer/internal/apperror"
	"github.com/aryan2621/Npmmer/internal/registry"
)

// Searcher queries the package registry. *registry.Client implements it.
type Searcher interface {
	Search(ctx context.Context, text string, size int) (*registry.SearchResult, error)
}

// SearchHandler proxies registry searches for the add page.
type SearchHandler struct {
	registry Searcher
	logger   *slog.Logger
}

// NewSearchHandler creates a new SearchHandler.
func NewSearchHandler(registry Searcher, logger *slog.Logger) *SearchHandler {
	return &SearchHandler{registry: registry, logger: logger}
}

// HandleSearch runs a registry text search.
//
// HTTP: GET /api/search?text=left-pad&size=20
func (h *SearchHandler) HandleSearch(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	size := 0
	if raw := q.Get("size"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			writeError(w, apperror.ValidationFailed("size", "size must be a non-negative integer"))
			return
		}
		size = n
	}

	result, err := h.registry.Search(r.Context(), q.Get("text"), size)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}
