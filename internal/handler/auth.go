package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/aryan2621/Npmmer/internal/auth"
	"github.com/aryan2621/Npmmer/internal/model"
	"github.com/aryan2621/Npmmer/internal/service"
)

// AuthService is the subset of service.AuthService the handlers call.
// Tests substitute a stub.
type AuthService interface {
	Register(ctx context.Context, in service.RegisterInput) (*model.User, error)
	Authenticate(ctx context.Context, email, password string) (*service.AuthResult, error)
	Revoke(ctx context.Context, token string) error
	GetUserByID(ctx context.Context, id string) (*model.User, error)
}

// AuthHandler manages signup, sign-in, sign-out and the current-user lookup.
//
// HANDLER RESPONSIBILITIES:
//   - HandleSignup  → create an account
//   - HandleSignin  → check credentials, set the session cookie
//   - HandleSignout → revoke the token and clear the cookie
//   - HandleMe      → return the currently signed-in user's profile
type AuthHandler struct {
	auth          AuthService
	secureCookies bool
	logger        *slog.Logger
}

// NewAuthHandler creates an AuthHandler. secureCookies marks the session
// cookie Secure and should be set whenever the site is served over HTTPS.
func NewAuthHandler(svc AuthService, secureCookies bool, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{
		auth:          svc,
		secureCookies: secureCookies,
		logger:        logger,
	}
}

type signupRequest struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type signinRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// HandleSignup creates an account.
//
// HTTP: POST /api/signup
// REQUEST BODY: {"id": "optional", "name": "A", "email": "a@x.com", "password": "secret123"}
func (h *AuthHandler) HandleSignup(w http.ResponseWriter, r *http.Request) {
	var req signupRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, err)
		return
	}

	_, err := h.auth.Register(r.Context(), service.RegisterInput{
		ID:       req.ID,
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		writeError(w, err)
		return
	}

	writeMessage(w, http.StatusCreated, "User created")
}

// HandleSignin checks credentials and sets the session cookie.
//
// HTTP: POST /api/signin
// REQUEST BODY: {"email": "a@x.com", "password": "secret123"}
// RESPONSE: the user record; the JWT travels only in the HttpOnly cookie.
func (h *AuthHandler) HandleSignin(w http.ResponseWriter, r *http.Request) {
	var req signinRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, err)
		return
	}

	result, err := h.auth.Authenticate(r.Context(), req.Email, req.Password)
	if err != nil {
		writeError(w, err)
		return
	}

	auth.SetSessionCookie(w, result.Token.Value, result.Token.ExpiresAt, h.secureCookies)
	writeJSON(w, http.StatusOK, result.User)
}

// HandleSignout revokes the caller's token and tells the browser to drop it.
//
// HTTP: POST /api/signout
//
// Signing out without a cookie (or with a dead one) still succeeds: the end
// state the caller asked for already holds.
func (h *AuthHandler) HandleSignout(w http.ResponseWriter, r *http.Request) {
	if token := auth.TokenFromRequest(r); token != "" {
		if err := h.auth.Revoke(r.Context(), token); err != nil {
			h.logger.Error("signout: revoking token", slog.String("error", err.Error()))
			writeError(w, err)
			return
		}
	}

	auth.ClearSessionCookie(w, h.secureCookies)
	writeMessage(w, http.StatusOK, "Signed out")
}

// HandleMe returns the currently authenticated user's profile.
//
// HTTP: GET /api/me
// Auth: Required (RequireAuth middleware sets userID in context)
func (h *AuthHandler) HandleMe(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		// Should never happen on a RequireAuth-protected route, but be safe.
		writeJSON(w, http.StatusUnauthorized, ErrorResponse{Error: "unauthorized", Message: "valid authentication required"})
		return
	}

	user, err := h.auth.GetUserByID(r.Context(), userID)
	if err != nil {
		h.logger.Warn("HandleMe: user lookup failed", slog.String("userID", userID))
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, user)
}
