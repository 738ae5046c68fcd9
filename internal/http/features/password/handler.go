// Package password implements registration and login endpoints.
package password

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/parlabot/parlabot/internal/httputil"
	"github.com/parlabot/parlabot/pkg/auth"
	"github.com/parlabot/parlabot/pkg/domain"
)

// Handler handles password authentication endpoints.
type Handler struct {
	logger          *slog.Logger
	passwordService *auth.PasswordService
	sessionService  *auth.SessionService
	cookieConfig    httputil.CookieConfig
}

// NewHandler creates a new password handler.
func NewHandler(logger *slog.Logger, passwordService *auth.PasswordService, sessionService *auth.SessionService) *Handler {
	return &Handler{
		logger:          logger,
		passwordService: passwordService,
		sessionService:  sessionService,
		cookieConfig:    httputil.DefaultCookieConfig(),
	}
}

// RegisterRequest represents a registration request.
type RegisterRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// LoginRequest represents a login request.
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// Register handles account registration.
// POST /v1/auth/register
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.Username == "" || req.Password == "" {
		httputil.Error(w, http.StatusBadRequest, "username and password are required")
		return
	}

	user, err := h.passwordService.Register(r.Context(), req.Username, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrUserAlreadyExists):
			httputil.Error(w, http.StatusConflict, "username already taken")
		case errors.Is(err, domain.ErrInvalidUsername):
			httputil.Error(w, http.StatusBadRequest, "invalid username: must be 3-80 characters, alphanumeric/underscore/hyphen, start with alphanumeric")
		case errors.Is(err, domain.ErrWeakPassword):
			httputil.Error(w, http.StatusBadRequest, "password too short")
		default:
			h.logger.Error("registration failed", "error", err)
			httputil.Error(w, http.StatusInternalServerError, "registration failed")
		}
		return
	}

	tokens, err := h.sessionService.IssueSession(r.Context(), user, auth.IssueSessionOpts{
		IP:        r.RemoteAddr,
		UserAgent: r.UserAgent(),
	})
	if err != nil {
		h.logger.Error("failed to issue session", "error", err, "user_id", user.ID)
		httputil.Error(w, http.StatusInternalServerError, "failed to issue session")
		return
	}

	h.writeTokens(w, tokens, http.StatusCreated)
}

// Login handles account login, applying the lockout policy.
// POST /v1/auth/login
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.Username == "" || req.Password == "" {
		httputil.Error(w, http.StatusBadRequest, "username and password are required")
		return
	}

	user, err := h.passwordService.Authenticate(r.Context(), req.Username, req.Password, r.RemoteAddr)
	if err != nil {
		var locked *domain.LockedError
		switch {
		case errors.As(err, &locked):
			httputil.JSON(w, http.StatusForbidden, map[string]any{
				"error":               "account temporarily locked due to too many failed login attempts",
				"retry_after_minutes": locked.RetryAfterMinutes(),
			})
		case errors.Is(err, domain.ErrAccountBanned):
			httputil.Error(w, http.StatusForbidden, "account banned")
		case errors.Is(err, domain.ErrInvalidCredentials):
			httputil.Error(w, http.StatusUnauthorized, "invalid username or password")
		default:
			h.logger.Error("authentication failed", "error", err, "username", req.Username)
			httputil.Error(w, http.StatusInternalServerError, "authentication failed")
		}
		return
	}

	tokens, err := h.sessionService.IssueSession(r.Context(), user, auth.IssueSessionOpts{
		IP:        r.RemoteAddr,
		UserAgent: r.UserAgent(),
	})
	if err != nil {
		h.logger.Error("failed to issue session", "error", err, "user_id", user.ID)
		httputil.Error(w, http.StatusInternalServerError, "failed to issue session")
		return
	}

	h.writeTokens(w, tokens, http.StatusOK)
}

func (h *Handler) writeTokens(w http.ResponseWriter, tokens *domain.TokenPair, status int) {
	httputil.SetAuthCookies(w, tokens.AccessToken, tokens.RefreshToken,
		h.sessionService.AccessTokenTTL(), h.sessionService.RefreshTokenTTL(), h.cookieConfig)
	httputil.JSON(w, status, tokens)
}
