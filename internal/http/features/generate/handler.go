// Package generate implements the guarded text generation endpoint. Tier
// selection happens here: the account's current entitlement decides which
// backend model serves the request.
package generate

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/parlabot/parlabot/internal/config"
	"github.com/parlabot/parlabot/internal/http/middleware"
	"github.com/parlabot/parlabot/internal/httputil"
	"github.com/parlabot/parlabot/pkg/auth"
	"github.com/parlabot/parlabot/pkg/domain"
	"github.com/parlabot/parlabot/pkg/inference"
)

// Backend is the inference surface the handler depends on.
type Backend interface {
	Generate(ctx context.Context, req inference.Request) (*inference.Result, error)
}

// Handler handles generation requests.
type Handler struct {
	logger  *slog.Logger
	backend Backend
	users   auth.UserStore
	cfg     config.InferenceConfig
}

// NewHandler creates a new generation handler.
func NewHandler(logger *slog.Logger, backend Backend, users auth.UserStore, cfg config.InferenceConfig) *Handler {
	return &Handler{logger: logger, backend: backend, users: users, cfg: cfg}
}

// GenerateRequest represents a generation request.
type GenerateRequest struct {
	Prompt      string  `json:"prompt"`
	MaxTokens   int     `json:"max_tokens,omitempty"`
	Temperature float64 `json:"temperature,omitempty"`
	TopP        float64 `json:"top_p,omitempty"`
}

// GenerateResponse represents a generation response.
type GenerateResponse struct {
	Text  string `json:"text"`
	Model string `json:"model"`
	Tier  string `json:"tier"`
}

// Generate proxies a prompt to the backend. The entitlement is read from
// the store at request time, not from the token, so a ban or a fresh
// premium grant takes effect immediately.
// POST /v1/generate
func (h *Handler) Generate(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		httputil.Error(w, http.StatusUnauthorized, "authentication required")
		return
	}

	var req GenerateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Prompt == "" {
		httputil.Error(w, http.StatusBadRequest, "prompt is required")
		return
	}

	user, err := h.users.GetByID(r.Context(), userID)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			httputil.Error(w, http.StatusUnauthorized, "account no longer exists")
			return
		}
		h.logger.Error("user lookup failed", "error", err, "user_id", userID)
		httputil.Error(w, http.StatusInternalServerError, "generation failed")
		return
	}
	if user.Banned {
		httputil.Error(w, http.StatusForbidden, "account banned")
		return
	}

	model, tier := h.cfg.FreeModel, "free"
	if user.IsPremium {
		model, tier = h.cfg.PremiumModel, "premium"
	}

	maxTokens := req.MaxTokens
	if maxTokens <= 0 || maxTokens > h.cfg.MaxTokensCap {
		maxTokens = h.cfg.MaxTokensCap
	}

	result, err := h.backend.Generate(r.Context(), inference.Request{
		Model:       model,
		Prompt:      req.Prompt,
		MaxTokens:   maxTokens,
		Temperature: req.Temperature,
		TopP:        req.TopP,
	})
	if err != nil {
		if errors.Is(err, inference.ErrBackend) {
			h.logger.Error("backend request failed", "error", err, "model", model)
			httputil.Error(w, http.StatusBadGateway, "generation backend unavailable")
			return
		}
		h.logger.Error("generation failed", "error", err)
		httputil.Error(w, http.StatusInternalServerError, "generation failed")
		return
	}

	httputil.JSON(w, http.StatusOK, GenerateResponse{
		Text:  result.Text,
		Model: result.Model,
		Tier:  tier,
	})
}
