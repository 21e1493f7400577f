package auth

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/aryan2621/Npmmer/internal/apperror"
)

// Paths the gateway treats specially.
const (
	LoginPath  = "/login"
	SignupPath = "/signup"
	HomePath   = "/"
)

// Decision is what the gateway does with one request.
type Decision int

const (
	// Allow lets the request through to the page handler.
	Allow Decision = iota
	// RedirectLogin sends an anonymous visitor to the login page.
	RedirectLogin
	// RedirectHome sends a signed-in user away from login/signup.
	RedirectHome
	// RedirectLoginClearCookie sends the visitor to login and deletes their
	// unusable token.
	RedirectLoginClearCookie
)

func (d Decision) String() string {
	switch d {
	case Allow:
		return "allow"
	case RedirectLogin:
		return "redirect_login"
	case RedirectHome:
		return "redirect_home"
	case RedirectLoginClearCookie:
		return "redirect_login_clear_cookie"
	}
	return "unknown"
}

// IsPublicPath reports whether path is one of the pages anonymous visitors may
// see. The comparison ignores case.
func IsPublicPath(path string) bool {
	switch strings.ToLower(path) {
	case LoginPath, SignupPath:
		return true
	}
	return false
}

// Decide is the gateway's state machine:
//
//	no token,      public    → Allow
//	no token,      protected → RedirectLogin
//	valid token,   public    → RedirectHome
//	valid token,   protected → Allow
//	invalid token, any       → RedirectLoginClearCookie
func Decide(hasToken, tokenValid bool, path string) Decision {
	public := IsPublicPath(path)
	switch {
	case hasToken && !tokenValid:
		return RedirectLoginClearCookie
	case hasToken && public:
		return RedirectHome
	case !hasToken && !public:
		return RedirectLogin
	}
	return Allow
}

// Gateway guards the HTML pages. It runs Decide once per request, carries the
// user ID into the context when the visitor is signed in, and performs the
// redirects. It is mounted only on the page routes; API routes use RequireAuth.
//
// Only a token that fails verification (apperror.ErrUnauthorized) is treated
// as invalid. Any other verifier error means the session could not be checked,
// so the gateway answers 503 and leaves the cookie alone.
func Gateway(verifier TokenVerifier, secureCookies bool, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := TokenFromRequest(r)
			hasToken := token != ""

			var userID string
			valid := false
			if hasToken {
				id, err := verifier.VerifyToken(r.Context(), token)
				switch {
				case err == nil:
					userID, valid = id, true
				case errors.Is(err, apperror.ErrUnauthorized):
					logger.Debug("gateway rejected session token",
						slog.String("path", r.URL.Path),
						slog.String("error", err.Error()),
					)
				default:
					logger.Error("gateway could not verify session token",
						slog.String("path", r.URL.Path),
						slog.String("error", err.Error()),
					)
					http.Error(w, "Service Unavailable", http.StatusServiceUnavailable)
					return
				}
			}

			switch Decide(hasToken, valid, r.URL.Path) {
			case RedirectLoginClearCookie:
				ClearSessionCookie(w, secureCookies)
				http.Redirect(w, r, LoginPath, http.StatusSeeOther)
			case RedirectLogin:
				http.Redirect(w, r, LoginPath, http.StatusSeeOther)
			case RedirectHome:
				http.Redirect(w, r, HomePath, http.StatusSeeOther)
			default:
				if valid {
					r = r.WithContext(WithUserID(r.Context(), userID))
				}
				next.ServeHTTP(w, r)
			}
		})
	}
}
