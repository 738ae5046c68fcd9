// Package me implements the authenticated profile endpoint.
package me

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/parlabot/parlabot/internal/http/middleware"
	"github.com/parlabot/parlabot/internal/httputil"
	"github.com/parlabot/parlabot/pkg/auth"
	"github.com/parlabot/parlabot/pkg/domain"
)

// Handler handles profile endpoints.
type Handler struct {
	logger *slog.Logger
	users  auth.UserStore
}

// NewHandler creates a new profile handler.
func NewHandler(logger *slog.Logger, users auth.UserStore) *Handler {
	return &Handler{logger: logger, users: users}
}

// ProfileResponse is the authenticated user's view of their account.
type ProfileResponse struct {
	ID          string     `json:"id"`
	Username    string     `json:"username"`
	IsPremium   bool       `json:"is_premium"`
	IsAdmin     bool       `json:"is_admin,omitempty"`
	LastLoginAt *time.Time `json:"last_login_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}

// GetMe returns the authenticated user's profile. Entitlement flags come
// from the store, not the token, so a fresh redemption is visible
// immediately.
// GET /v1/me
func (h *Handler) GetMe(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		httputil.Error(w, http.StatusUnauthorized, "authentication required")
		return
	}

	user, err := h.users.GetByID(r.Context(), userID)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			httputil.Error(w, http.StatusUnauthorized, "account no longer exists")
			return
		}
		h.logger.Error("failed to load profile", "error", err, "user_id", userID)
		httputil.Error(w, http.StatusInternalServerError, "failed to load profile")
		return
	}

	httputil.JSON(w, http.StatusOK, ProfileResponse{
		ID:          user.ID.String(),
		Username:    user.Username,
		IsPremium:   user.IsPremium,
		IsAdmin:     user.IsAdmin,
		LastLoginAt: user.LastLoginAt,
		CreatedAt:   user.CreatedAt,
	})
}
