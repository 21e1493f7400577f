// Package handler contains HTTP request handlers for the npmmer application.
//
// WHAT IS A HANDLER?
// In Go, an HTTP handler is anything that implements the http.Handler interface:
//
//	type Handler interface {
//	    ServeHTTP(ResponseWriter, *Request)
//	}
//
// Or more commonly, we use http.HandlerFunc, a function with the right signature
// that automatically satisfies the Handler interface. Chi's router accepts these directly.
//
// HANDLER RESPONSIBILITIES:
// 1. Parse the incoming HTTP request (query params, body, headers)
// 2. Call the service layer (or render templates)
// 3. Write the HTTP response (status code, headers, body)
//
// Handlers should NOT contain business logic: they are the "glue" between HTTP and your app.
package handler

import (
	"embed"
	"fmt"
	"html/template"
	"log/slog"
	"net/http"

	"github.com/aryan2621/Npmmer/internal/auth"
	"github.com/aryan2621/Npmmer/internal/model"
)

//go:embed templates/*.html
var templateFS embed.FS

// pageNames are the templates that pair with base.html to form a page.
var pageNames = []string{"home", "add", "login", "signup"}

// PageHandler renders the HTML pages. The request gateway in front of it
// decides who may see which page; by the time a handler runs, protected pages
// always have a user ID in the context.
type PageHandler struct {
	pages     map[string]*template.Template
	favorites FavoriteService
	logger    *slog.Logger
}

// NewPageHandler parses every page template once at startup.
//
// TEMPLATE COMPOSITION:
// base.html defines the overall page structure with a {{template "content" .}}
// placeholder; each page file defines its own "content". Pages are parsed into
// separate template sets so the "content" definitions don't overwrite each other.
func NewPageHandler(favorites FavoriteService, logger *slog.Logger) (*PageHandler, error) {
	pages := make(map[string]*template.Template, len(pageNames))
	for _, name := range pageNames {
		tmpl, err := template.ParseFS(templateFS, "templates/base.html", "templates/"+name+".html")
		if err != nil {
			return nil, fmt.Errorf("handler: parsing %s template: %w", name, err)
		}
		pages[name] = tmpl
	}

	return &PageHandler{
		pages:     pages,
		favorites: favorites,
		logger:    logger,
	}, nil
}

type pageData struct {
	Title     string
	SignedIn  bool
	Favorites []model.Favorite
}

// HandleHome lists the user's saved packages.
//
// HTTP: GET /
func (h *PageHandler) HandleHome(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserIDFromContext(r.Context())

	favs, err := h.favorites.List(r.Context(), userID)
	if err != nil {
		h.logger.Error("home page: listing favorites", slog.String("error", err.Error()))
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	h.render(w, "home", pageData{Title: "My favorite packages", SignedIn: true, Favorites: favs})
}

// HandleAdd serves the search-and-save page.
//
// HTTP: GET /add
func (h *PageHandler) HandleAdd(w http.ResponseWriter, r *http.Request) {
	h.render(w, "add", pageData{Title: "Add a favorite", SignedIn: true})
}

// HandleLogin serves the sign-in form.
//
// HTTP: GET /login
func (h *PageHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	h.render(w, "login", pageData{Title: "Sign in"})
}

// HandleSignup serves the registration form.
//
// HTTP: GET /signup
func (h *PageHandler) HandleSignup(w http.ResponseWriter, r *http.Request) {
	h.render(w, "signup", pageData{Title: "Create an account"})
}

func (h *PageHandler) render(w http.ResponseWriter, name string, data pageData) {
	// Set content type header BEFORE writing the body
	w.Header().Set("Content-Type", "text/html; charset=utf-8")

	if err := h.pages[name].ExecuteTemplate(w, "base", data); err != nil {
		h.logger.Error("failed to render template",
			slog.String("page", name),
			slog.String("error", err.Error()),
		)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
	}
}
