package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/parlabot/parlabot/internal/config"
	"github.com/parlabot/parlabot/internal/http/features/admin"
	"github.com/parlabot/parlabot/internal/http/features/generate"
	"github.com/parlabot/parlabot/internal/http/features/me"
	"github.com/parlabot/parlabot/internal/http/features/password"
	"github.com/parlabot/parlabot/internal/http/features/premium"
	"github.com/parlabot/parlabot/internal/http/features/session"
	"github.com/parlabot/parlabot/internal/http/middleware"
	"github.com/parlabot/parlabot/internal/httputil"
	"github.com/parlabot/parlabot/pkg/auth"
	premiumsvc "github.com/parlabot/parlabot/pkg/premium"
)

// RouterConfig holds configuration for the router.
type RouterConfig struct {
	Logger          *slog.Logger
	PasswordService *auth.PasswordService
	SessionService  *auth.SessionService
	PremiumService  *premiumsvc.Service
	Users           auth.UserStore
	Backend         generate.Backend
	AdminAllowlist  map[string]struct{}
	RateLimitConfig config.RateLimitConfig
	SecurityHeaders config.SecurityHeadersConfig
	Inference       config.InferenceConfig
	MaxRequestBody  int64
	AllowedOrigins  []string
}

// NewRouter creates a new HTTP router with all routes registered.
func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	// Apply global middleware
	r.Use(middleware.Recover(cfg.Logger))
	r.Use(middleware.Logging(cfg.Logger))
	r.Use(middleware.SecurityHeaders(cfg.SecurityHeaders))
	r.Use(middleware.RequestSizeLimit(cfg.MaxRequestBody))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-TOTP-Code"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Health check
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		httputil.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	// Create rate limiters for different endpoint types
	rateLimiters := middleware.CreateRateLimiters(cfg.RateLimitConfig, cfg.Logger)

	// Registration and login
	passwordHandler := password.NewHandler(cfg.Logger, cfg.PasswordService, cfg.SessionService)
	r.Group(func(r chi.Router) {
		r.Use(rateLimiters["auth"])
		r.Post("/v1/auth/register", passwordHandler.Register)
		r.Post("/v1/auth/login", passwordHandler.Login)
	})

	// Session lifecycle
	sessionHandler := session.NewHandler(cfg.Logger, cfg.SessionService)
	r.Group(func(r chi.Router) {
		r.Use(rateLimiters["refresh"])
		r.Post("/v1/auth/refresh", sessionHandler.Refresh)
	})
	r.Post("/v1/auth/logout", sessionHandler.Logout)
	r.With(middleware.Auth(cfg.SessionService)).Post("/v1/auth/logout/all", sessionHandler.LogoutAll)

	// Profile
	meHandler := me.NewHandler(cfg.Logger, cfg.Users)
	r.With(middleware.Auth(cfg.SessionService)).Get("/v1/me", meHandler.GetMe)

	// Premium key redemption
	premiumHandler := premium.NewHandler(cfg.Logger, cfg.PremiumService)
	r.Group(func(r chi.Router) {
		r.Use(middleware.Auth(cfg.SessionService))
		r.Use(rateLimiters["redeem"])
		r.Post("/v1/premium/redeem", premiumHandler.Redeem)
	})

	// Text generation
	generateHandler := generate.NewHandler(cfg.Logger, cfg.Backend, cfg.Users, cfg.Inference)
	r.Group(func(r chi.Router) {
		r.Use(middleware.Auth(cfg.SessionService))
		r.Use(rateLimiters["generate"])
		r.Post("/v1/generate", generateHandler.Generate)
	})

	// Administration
	adminHandler := admin.NewHandler(cfg.Logger, cfg.PremiumService, cfg.Users)
	r.Group(func(r chi.Router) {
		r.Use(middleware.Auth(cfg.SessionService))
		r.Use(middleware.RequireAdmin(cfg.Users, cfg.AdminAllowlist))
		r.Post("/v1/admin/keys", adminHandler.CreateKey)
		r.Get("/v1/admin/keys", adminHandler.ListKeys)
		r.Delete("/v1/admin/keys/{key}", adminHandler.RevokeKey)
		r.Post("/v1/admin/users/{username}/admin", adminHandler.SetAdmin)
	})

	return r
}
