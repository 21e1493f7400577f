package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aryan2621/Npmmer/internal/apperror"
	"github.com/aryan2621/Npmmer/internal/auth"
	"github.com/aryan2621/Npmmer/internal/handler"
	"github.com/aryan2621/Npmmer/internal/model"
	"github.com/aryan2621/Npmmer/internal/registry"
	"github.com/aryan2621/Npmmer/internal/service"
)

var logger = slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))

// =========================================================================
// STUBS
// =========================================================================

// StubAuth records its inputs and returns canned results.
type StubAuth struct {
	Registered service.RegisterInput
	Revoked    string

	RegisterErr error
	AuthResult  *service.AuthResult
	AuthErr     error
	User        *model.User
	UserErr     error
	RevokeErr   error
}

func (s *StubAuth) Register(_ context.Context, in service.RegisterInput) (*model.User, error) {
	s.Registered = in
	if s.RegisterErr != nil {
		return nil, s.RegisterErr
	}
	return &model.User{ID: in.ID, Name: in.Name, Email: in.Email}, nil
}

func (s *StubAuth) Authenticate(_ context.Context, _, _ string) (*service.AuthResult, error) {
	return s.AuthResult, s.AuthErr
}

func (s *StubAuth) Revoke(_ context.Context, token string) error {
	s.Revoked = token
	return s.RevokeErr
}

func (s *StubAuth) GetUserByID(_ context.Context, _ string) (*model.User, error) {
	return s.User, s.UserErr
}

// StubFavorites records the last call and returns canned results.
type StubFavorites struct {
	UserID string
	ID     string
	Reason string
	Draft  model.Favorite

	Favs []model.Favorite
	Fav  *model.Favorite
	Err  error
}

func (s *StubFavorites) List(_ context.Context, userID string) ([]model.Favorite, error) {
	s.UserID = userID
	return s.Favs, s.Err
}

func (s *StubFavorites) Get(_ context.Context, userID, id string) (*model.Favorite, error) {
	s.UserID, s.ID = userID, id
	return s.Fav, s.Err
}

func (s *StubFavorites) Create(_ context.Context, userID string, draft model.Favorite) (*model.Favorite, error) {
	s.UserID, s.Draft = userID, draft
	return &draft, s.Err
}

func (s *StubFavorites) Update(_ context.Context, userID, id, reason string) (*model.Favorite, error) {
	s.UserID, s.ID, s.Reason = userID, id, reason
	return s.Fav, s.Err
}

func (s *StubFavorites) Delete(_ context.Context, userID, id string) error {
	s.UserID, s.ID = userID, id
	return s.Err
}

type StubSearcher struct {
	Text   string
	Size   int
	Result *registry.SearchResult
	Err    error
}

func (s *StubSearcher) Search(_ context.Context, text string, size int) (*registry.SearchResult, error) {
	s.Text, s.Size = text, size
	return s.Result, s.Err
}

// =========================================================================
// HELPERS
// =========================================================================

// signedIn attaches an authenticated user ID, as RequireAuth would.
func signedIn(req *http.Request, userID string) *http.Request {
	return req.WithContext(auth.WithUserID(req.Context(), userID))
}

// withURLParam injects a chi route parameter without going through a router.
func withURLParam(req *http.Request, key, value string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add(key, value)
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))
}

func decodeBody(t *testing.T, rr *httptest.ResponseRecorder, dst any) {
	t.Helper()
	require.NoError(t, json.NewDecoder(rr.Body).Decode(dst))
}

// =========================================================================
// AUTH HANDLER
// =========================================================================

func TestAuthHandler_HandleSignup(t *testing.T) {
	t.Run("created", func(t *testing.T) {
		stub := &StubAuth{}
		h := handler.NewAuthHandler(stub, false, logger)

		body := `{"id":"u1","name":"A","email":"a@x.com","password":"secret123"}`
		req := httptest.NewRequest(http.MethodPost, "/api/signup", bytes.NewBufferString(body))
		rr := httptest.NewRecorder()

		h.HandleSignup(rr, req)

		assert.Equal(t, http.StatusCreated, rr.Code)
		var res handler.MessageResponse
		decodeBody(t, rr, &res)
		assert.Equal(t, "User created", res.Message)
		assert.Equal(t, service.RegisterInput{ID: "u1", Name: "A", Email: "a@x.com", Password: "secret123"}, stub.Registered)
	})

	t.Run("duplicate email", func(t *testing.T) {
		stub := &StubAuth{RegisterErr: apperror.DuplicateUser("a@x.com")}
		h := handler.NewAuthHandler(stub, false, logger)

		req := httptest.NewRequest(http.MethodPost, "/api/signup", bytes.NewBufferString(`{"name":"A","email":"a@x.com","password":"p"}`))
		rr := httptest.NewRecorder()

		h.HandleSignup(rr, req)

		assert.Equal(t, http.StatusConflict, rr.Code)
		var res handler.ErrorResponse
		decodeBody(t, rr, &res)
		assert.Equal(t, "conflict", res.Error)
	})

	t.Run("invalid JSON", func(t *testing.T) {
		h := handler.NewAuthHandler(&StubAuth{}, false, logger)

		req := httptest.NewRequest(http.MethodPost, "/api/signup", bytes.NewBufferString(`{"name":`))
		rr := httptest.NewRecorder()

		h.HandleSignup(rr, req)

		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})

	t.Run("empty body", func(t *testing.T) {
		h := handler.NewAuthHandler(&StubAuth{}, false, logger)

		req := httptest.NewRequest(http.MethodPost, "/api/signup", http.NoBody)
		rr := httptest.NewRecorder()

		h.HandleSignup(rr, req)

		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})

	t.Run("oversized body", func(t *testing.T) {
		h := handler.NewAuthHandler(&StubAuth{}, false, logger)

		huge := `{"name":"` + strings.Repeat("a", 2<<20) + `"}`
		req := httptest.NewRequest(http.MethodPost, "/api/signup", strings.NewReader(huge))
		rr := httptest.NewRecorder()

		h.HandleSignup(rr, req)

		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})
}

func TestAuthHandler_HandleSignin(t *testing.T) {
	t.Run("sets cookie and returns user", func(t *testing.T) {
		expires := time.Now().Add(24 * time.Hour)
		stub := &StubAuth{AuthResult: &service.AuthResult{
			User:  &model.User{ID: "u1", Name: "A", Email: "a@x.com", PasswordHash: "$2a$10$secret"},
			Token: &auth.Token{Value: "jwt-value", ID: "jti", UserID: "u1", ExpiresAt: expires},
		}}
		h := handler.NewAuthHandler(stub, true, logger)

		req := httptest.NewRequest(http.MethodPost, "/api/signin", bytes.NewBufferString(`{"email":"a@x.com","password":"secret123"}`))
		rr := httptest.NewRecorder()

		h.HandleSignin(rr, req)

		assert.Equal(t, http.StatusOK, rr.Code)
		assert.NotContains(t, rr.Body.String(), "secret", "password hash must never be serialized")

		var user map[string]any
		decodeBody(t, rr, &user)
		assert.Equal(t, map[string]any{"id": "u1", "name": "A", "email": "a@x.com"}, user)

		cookies := rr.Result().Cookies()
		require.Len(t, cookies, 1)
		assert.Equal(t, "token", cookies[0].Name)
		assert.Equal(t, "jwt-value", cookies[0].Value)
		assert.True(t, cookies[0].HttpOnly)
		assert.True(t, cookies[0].Secure)
	})

	t.Run("wrong password", func(t *testing.T) {
		h := handler.NewAuthHandler(&StubAuth{AuthErr: apperror.InvalidCredentials()}, false, logger)

		req := httptest.NewRequest(http.MethodPost, "/api/signin", bytes.NewBufferString(`{"email":"a@x.com","password":"nope"}`))
		rr := httptest.NewRecorder()

		h.HandleSignin(rr, req)

		assert.Equal(t, http.StatusUnauthorized, rr.Code)
		assert.Empty(t, rr.Result().Cookies())
	})

	t.Run("unknown email", func(t *testing.T) {
		h := handler.NewAuthHandler(&StubAuth{AuthErr: apperror.NotFound("user", "b@x.com")}, false, logger)

		req := httptest.NewRequest(http.MethodPost, "/api/signin", bytes.NewBufferString(`{"email":"b@x.com","password":"nope"}`))
		rr := httptest.NewRecorder()

		h.HandleSignin(rr, req)

		assert.Equal(t, http.StatusNotFound, rr.Code)
	})

	t.Run("store failure is a generic 500", func(t *testing.T) {
		h := handler.NewAuthHandler(&StubAuth{AuthErr: errors.New("sqlite: database is locked")}, false, logger)

		req := httptest.NewRequest(http.MethodPost, "/api/signin", bytes.NewBufferString(`{"email":"a@x.com","password":"p"}`))
		rr := httptest.NewRecorder()

		h.HandleSignin(rr, req)

		assert.Equal(t, http.StatusInternalServerError, rr.Code)
		assert.NotContains(t, rr.Body.String(), "sqlite", "internal details must not leak")
	})
}

func TestAuthHandler_HandleSignout(t *testing.T) {
	stub := &StubAuth{}
	h := handler.NewAuthHandler(stub, false, logger)

	req := httptest.NewRequest(http.MethodPost, "/api/signout", nil)
	req.AddCookie(&http.Cookie{Name: auth.CookieName, Value: "jwt-value"})
	rr := httptest.NewRecorder()

	h.HandleSignout(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "jwt-value", stub.Revoked)

	cookies := rr.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, "token", cookies[0].Name)
	assert.Empty(t, cookies[0].Value)
	assert.Less(t, cookies[0].MaxAge, 0)
}

func TestAuthHandler_HandleSignout_NoCookie(t *testing.T) {
	stub := &StubAuth{}
	h := handler.NewAuthHandler(stub, false, logger)

	rr := httptest.NewRecorder()
	h.HandleSignout(rr, httptest.NewRequest(http.MethodPost, "/api/signout", nil))

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Empty(t, stub.Revoked)
}

func TestAuthHandler_HandleMe(t *testing.T) {
	stub := &StubAuth{User: &model.User{ID: "u1", Name: "A", Email: "a@x.com"}}
	h := handler.NewAuthHandler(stub, false, logger)

	rr := httptest.NewRecorder()
	h.HandleMe(rr, signedIn(httptest.NewRequest(http.MethodGet, "/api/me", nil), "u1"))

	assert.Equal(t, http.StatusOK, rr.Code)
	var user model.User
	decodeBody(t, rr, &user)
	assert.Equal(t, "a@x.com", user.Email)

	rr = httptest.NewRecorder()
	h.HandleMe(rr, httptest.NewRequest(http.MethodGet, "/api/me", nil))
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

// =========================================================================
// FAVORITE HANDLER
// =========================================================================

func TestFavoriteHandler_HandleList(t *testing.T) {
	t.Run("empty list is []", func(t *testing.T) {
		stub := &StubFavorites{Favs: []model.Favorite{}}
		h := handler.NewFavoriteHandler(stub, logger)

		rr := httptest.NewRecorder()
		h.HandleList(rr, signedIn(httptest.NewRequest(http.MethodGet, "/api/packages", nil), "u1"))

		assert.Equal(t, http.StatusOK, rr.Code)
		assert.JSONEq(t, `[]`, rr.Body.String())
		assert.Equal(t, "u1", stub.UserID)
	})

	t.Run("anonymous", func(t *testing.T) {
		h := handler.NewFavoriteHandler(&StubFavorites{}, logger)

		rr := httptest.NewRecorder()
		h.HandleList(rr, httptest.NewRequest(http.MethodGet, "/api/packages", nil))

		assert.Equal(t, http.StatusUnauthorized, rr.Code)
	})
}

func TestFavoriteHandler_HandleCreate(t *testing.T) {
	t.Run("saved", func(t *testing.T) {
		stub := &StubFavorites{}
		h := handler.NewFavoriteHandler(stub, logger)

		body := `{"name":"left-pad","version":"1.0.0","reasonForBeingFavorite":"classic","user":"someone-else"}`
		req := signedIn(httptest.NewRequest(http.MethodPost, "/api/package", bytes.NewBufferString(body)), "u1")
		rr := httptest.NewRecorder()

		h.HandleCreate(rr, req)

		assert.Equal(t, http.StatusOK, rr.Code)
		assert.JSONEq(t, `{"message":"Package saved"}`, rr.Body.String())
		assert.Equal(t, "u1", stub.UserID, "owner comes from the session, not the body")
		assert.Equal(t, "left-pad", stub.Draft.Name)
	})

	t.Run("duplicate name", func(t *testing.T) {
		h := handler.NewFavoriteHandler(&StubFavorites{Err: apperror.DuplicateName("left-pad")}, logger)

		req := signedIn(httptest.NewRequest(http.MethodPost, "/api/package", bytes.NewBufferString(`{"name":"left-pad","version":"1"}`)), "u1")
		rr := httptest.NewRecorder()

		h.HandleCreate(rr, req)

		assert.Equal(t, http.StatusConflict, rr.Code)
		var res handler.ErrorResponse
		decodeBody(t, rr, &res)
		assert.Equal(t, "package left-pad is already saved", res.Message)
	})

	t.Run("validation", func(t *testing.T) {
		h := handler.NewFavoriteHandler(&StubFavorites{Err: apperror.ValidationFailed("name", "package name is required")}, logger)

		req := signedIn(httptest.NewRequest(http.MethodPost, "/api/package", bytes.NewBufferString(`{}`)), "u1")
		rr := httptest.NewRecorder()

		h.HandleCreate(rr, req)

		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})
}

func TestFavoriteHandler_HandleGet(t *testing.T) {
	fav := &model.Favorite{ID: "p1", Name: "left-pad", User: "u1"}
	stub := &StubFavorites{Fav: fav}
	h := handler.NewFavoriteHandler(stub, logger)

	req := withURLParam(httptest.NewRequest(http.MethodGet, "/api/package/p1", nil), "id", "p1")
	rr := httptest.NewRecorder()
	h.HandleGet(rr, signedIn(req, "u1"))

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "p1", stub.ID)

	var got model.Favorite
	decodeBody(t, rr, &got)
	assert.Equal(t, *fav, got)
}

func TestFavoriteHandler_HandleUpdate(t *testing.T) {
	t.Run("only the note is passed down", func(t *testing.T) {
		stub := &StubFavorites{Fav: &model.Favorite{}}
		h := handler.NewFavoriteHandler(stub, logger)

		body := `{"name":"renamed","version":"9.9.9","reasonForBeingFavorite":"a better reason"}`
		req := withURLParam(httptest.NewRequest(http.MethodPut, "/api/package/p1", bytes.NewBufferString(body)), "id", "p1")
		rr := httptest.NewRecorder()

		h.HandleUpdate(rr, signedIn(req, "u1"))

		assert.Equal(t, http.StatusOK, rr.Code)
		assert.JSONEq(t, `{"message":"Package updated"}`, rr.Body.String())
		assert.Equal(t, "p1", stub.ID)
		assert.Equal(t, "a better reason", stub.Reason)
	})

	t.Run("someone else's favorite", func(t *testing.T) {
		h := handler.NewFavoriteHandler(&StubFavorites{Err: apperror.Forbidden("you do not own this package")}, logger)

		req := withURLParam(httptest.NewRequest(http.MethodPut, "/api/package/p1", bytes.NewBufferString(`{"reasonForBeingFavorite":"mine now"}`)), "id", "p1")
		rr := httptest.NewRecorder()

		h.HandleUpdate(rr, signedIn(req, "u2"))

		assert.Equal(t, http.StatusForbidden, rr.Code)
	})

	t.Run("missing", func(t *testing.T) {
		h := handler.NewFavoriteHandler(&StubFavorites{Err: apperror.NotFound("package", "nope")}, logger)

		req := withURLParam(httptest.NewRequest(http.MethodPut, "/api/package/nope", bytes.NewBufferString(`{"reasonForBeingFavorite":"x"}`)), "id", "nope")
		rr := httptest.NewRecorder()

		h.HandleUpdate(rr, signedIn(req, "u1"))

		assert.Equal(t, http.StatusNotFound, rr.Code)
	})
}

func TestFavoriteHandler_HandleDelete(t *testing.T) {
	stub := &StubFavorites{}
	h := handler.NewFavoriteHandler(stub, logger)

	req := withURLParam(httptest.NewRequest(http.MethodDelete, "/api/package/p1", nil), "id", "p1")
	rr := httptest.NewRecorder()

	h.HandleDelete(rr, signedIn(req, "u1"))

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"message":"Package deleted"}`, rr.Body.String())
	assert.Equal(t, "u1", stub.UserID)
	assert.Equal(t, "p1", stub.ID)
}

// =========================================================================
// SEARCH HANDLER
// =========================================================================

func TestSearchHandler_HandleSearch(t *testing.T) {
	t.Run("proxies the query", func(t *testing.T) {
		stub := &StubSearcher{Result: &registry.SearchResult{
			Objects: []registry.SearchObject{{Package: registry.Package{Name: "left-pad", Version: "1.3.0"}}},
			Total:   1,
		}}
		h := handler.NewSearchHandler(stub, logger)

		rr := httptest.NewRecorder()
		h.HandleSearch(rr, httptest.NewRequest(http.MethodGet, "/api/search?text=left&size=5", nil))

		assert.Equal(t, http.StatusOK, rr.Code)
		assert.Equal(t, "left", stub.Text)
		assert.Equal(t, 5, stub.Size)

		var res registry.SearchResult
		decodeBody(t, rr, &res)
		require.Len(t, res.Objects, 1)
		assert.Equal(t, "left-pad", res.Objects[0].Package.Name)
	})

	t.Run("bad size", func(t *testing.T) {
		h := handler.NewSearchHandler(&StubSearcher{}, logger)

		rr := httptest.NewRecorder()
		h.HandleSearch(rr, httptest.NewRequest(http.MethodGet, "/api/search?text=left&size=lots", nil))

		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})

	t.Run("registry down", func(t *testing.T) {
		h := handler.NewSearchHandler(&StubSearcher{Err: apperror.Upstream("package registry is unreachable")}, logger)

		rr := httptest.NewRecorder()
		h.HandleSearch(rr, httptest.NewRequest(http.MethodGet, "/api/search?text=left", nil))

		assert.Equal(t, http.StatusBadGateway, rr.Code)
	})
}

// =========================================================================
// PAGE HANDLER
// =========================================================================

func TestPageHandler(t *testing.T) {
	stub := &StubFavorites{Favs: []model.Favorite{{ID: "p1", Name: "left-pad", Version: "1.0.0", ReasonForBeingFavorite: "<b>classic</b>"}}}
	h, err := handler.NewPageHandler(stub, logger)
	require.NoError(t, err)

	t.Run("home lists favorites escaped", func(t *testing.T) {
		rr := httptest.NewRecorder()
		h.HandleHome(rr, signedIn(httptest.NewRequest(http.MethodGet, "/", nil), "u1"))

		assert.Equal(t, http.StatusOK, rr.Code)
		assert.Contains(t, rr.Header().Get("Content-Type"), "text/html")
		assert.Contains(t, rr.Body.String(), "left-pad")
		assert.Contains(t, rr.Body.String(), "&lt;b&gt;classic&lt;/b&gt;")
		assert.Equal(t, "u1", stub.UserID)
	})

	t.Run("each page renders its own content", func(t *testing.T) {
		pages := map[string]http.HandlerFunc{
			`id="search"`: h.HandleAdd,
			`id="login"`:  h.HandleLogin,
			`id="signup"`: h.HandleSignup,
		}
		for marker, fn := range pages {
			rr := httptest.NewRecorder()
			fn(rr, httptest.NewRequest(http.MethodGet, "/", nil))

			assert.Equal(t, http.StatusOK, rr.Code)
			assert.Contains(t, rr.Body.String(), marker)
		}
	})

	t.Run("home fails cleanly", func(t *testing.T) {
		h, err := handler.NewPageHandler(&StubFavorites{Err: errors.New("boom")}, logger)
		require.NoError(t, err)

		rr := httptest.NewRecorder()
		h.HandleHome(rr, signedIn(httptest.NewRequest(http.MethodGet, "/", nil), "u1"))

		assert.Equal(t, http.StatusInternalServerError, rr.Code)
	})
}
