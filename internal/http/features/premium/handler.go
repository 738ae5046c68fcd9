// Package premium implements the key redemption endpoint.
package premium

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/parlabot/parlabot/internal/http/middleware"
	"github.com/parlabot/parlabot/internal/httputil"
	"github.com/parlabot/parlabot/pkg/domain"
	"github.com/parlabot/parlabot/pkg/premium"
)

// Handler handles premium entitlement endpoints.
type Handler struct {
	logger  *slog.Logger
	service *premium.Service
}

// NewHandler creates a new premium handler.
func NewHandler(logger *slog.Logger, service *premium.Service) *Handler {
	return &Handler{logger: logger, service: service}
}

// RedeemRequest represents a key redemption request.
type RedeemRequest struct {
	Key string `json:"key"`
}

// Redeem redeems a premium key for the authenticated user.
// POST /v1/premium/redeem
func (h *Handler) Redeem(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.GetClaims(r.Context())
	if !ok {
		httputil.Error(w, http.StatusUnauthorized, "authentication required")
		return
	}

	var req RedeemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Key == "" {
		httputil.Error(w, http.StatusBadRequest, "key is required")
		return
	}

	err := h.service.Redeem(r.Context(), claims.Username, req.Key)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrKeyNotFound):
			httputil.Error(w, http.StatusNotFound, "key not found")
		case errors.Is(err, domain.ErrKeyAlreadyUsed):
			httputil.Error(w, http.StatusConflict, "key already used")
		case errors.Is(err, domain.ErrKeyExpired):
			httputil.Error(w, http.StatusGone, "key expired")
		case errors.Is(err, domain.ErrUserNotFound):
			httputil.Error(w, http.StatusUnauthorized, "account no longer exists")
		default:
			h.logger.Error("redemption failed", "error", err, "username", claims.Username)
			httputil.Error(w, http.StatusInternalServerError, "redemption failed")
		}
		return
	}

	h.logger.Info("premium key redeemed", "username", claims.Username)
	httputil.JSON(w, http.StatusOK, map[string]any{
		"status":     "redeemed",
		"is_premium": true,
	})
}
