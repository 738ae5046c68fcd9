// Package session implements token refresh and logout endpoints.
package session

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/parlabot/parlabot/internal/http/middleware"
	"github.com/parlabot/parlabot/internal/httputil"
	"github.com/parlabot/parlabot/pkg/auth"
	"github.com/parlabot/parlabot/pkg/domain"
)

// Handler handles session lifecycle endpoints.
type Handler struct {
	logger         *slog.Logger
	sessionService *auth.SessionService
	cookieConfig   httputil.CookieConfig
}

// NewHandler creates a new session handler.
func NewHandler(logger *slog.Logger, sessionService *auth.SessionService) *Handler {
	return &Handler{
		logger:         logger,
		sessionService: sessionService,
		cookieConfig:   httputil.DefaultCookieConfig(),
	}
}

// RefreshRequest represents a token refresh request.
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// refreshToken reads the refresh token from the request body, falling
// back to the refresh_token cookie.
func (h *Handler) refreshToken(r *http.Request) string {
	var req RefreshRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err == nil && req.RefreshToken != "" {
		return req.RefreshToken
	}
	if cookie, err := r.Cookie("refresh_token"); err == nil {
		return cookie.Value
	}
	return ""
}

// Refresh exchanges a refresh token for a new access token.
// POST /v1/auth/refresh
func (h *Handler) Refresh(w http.ResponseWriter, r *http.Request) {
	token := h.refreshToken(r)
	if token == "" {
		httputil.Error(w, http.StatusBadRequest, "refresh token is required")
		return
	}

	tokens, err := h.sessionService.RefreshSession(r.Context(), token)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrSessionNotFound),
			errors.Is(err, domain.ErrSessionExpired),
			errors.Is(err, domain.ErrSessionRevoked):
			httputil.Error(w, http.StatusUnauthorized, "invalid or expired refresh token")
		default:
			h.logger.Error("refresh failed", "error", err)
			httputil.Error(w, http.StatusInternalServerError, "refresh failed")
		}
		return
	}

	httputil.SetAuthCookies(w, tokens.AccessToken, tokens.RefreshToken,
		h.sessionService.AccessTokenTTL(), h.sessionService.RefreshTokenTTL(), h.cookieConfig)
	httputil.JSON(w, http.StatusOK, tokens)
}

// Logout revokes the current session.
// POST /v1/auth/logout
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	if token := h.refreshToken(r); token != "" {
		if err := h.sessionService.RevokeSession(r.Context(), token); err != nil &&
			!errors.Is(err, domain.ErrSessionNotFound) {
			h.logger.Error("logout failed", "error", err)
		}
	}

	httputil.ClearAuthCookies(w, h.cookieConfig)
	httputil.JSON(w, http.StatusOK, map[string]string{"status": "logged out"})
}

// LogoutAll revokes every session belonging to the authenticated user.
// POST /v1/auth/logout/all
func (h *Handler) LogoutAll(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		httputil.Error(w, http.StatusUnauthorized, "authentication required")
		return
	}

	if err := h.sessionService.RevokeAllSessions(r.Context(), userID); err != nil {
		h.logger.Error("logout all failed", "error", err, "user_id", userID)
		httputil.Error(w, http.StatusInternalServerError, "logout failed")
		return
	}

	httputil.ClearAuthCookies(w, h.cookieConfig)
	httputil.JSON(w, http.StatusOK, map[string]string{"status": "all sessions revoked"})
}
