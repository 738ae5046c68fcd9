package middleware

import (
	"net/http"

	"github.com/parlabot/parlabot/internal/httputil"
	"github.com/parlabot/parlabot/pkg/auth"
)

// RequireAdmin creates middleware that gates admin-only operations.
// An account is an administrator if its username is in the configured
// allowlist or its is_admin flag is set. The decision uses the current
// account state, not the token claims, so a demotion applies immediately.
//
// If the account has an enrolled TOTP secret, a valid X-TOTP-Code header
// is additionally required.
func RequireAdmin(users auth.UserStore, allowlist map[string]struct{}) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userID, ok := GetUserID(r.Context())
			if !ok {
				httputil.Error(w, http.StatusUnauthorized, "missing authorization")
				return
			}

			user, err := users.GetByID(r.Context(), userID)
			if err != nil {
				httputil.Error(w, http.StatusInternalServerError, "failed to load account")
				return
			}

			_, allowlisted := allowlist[user.Username]
			if !allowlisted && !user.IsAdmin {
				httputil.Error(w, http.StatusForbidden, "permission denied")
				return
			}

			if user.TOTPSecret != nil {
				code := r.Header.Get("X-TOTP-Code")
				if code == "" || !auth.ValidateTOTP(code, *user.TOTPSecret) {
					httputil.Error(w, http.StatusForbidden, "valid TOTP code required")
					return
				}
			}

			next.ServeHTTP(w, r)
		})
	}
}
