package httpserver

import (
	"log/slog"
	"net/http"
	"slices"

	"github.com/yndnr/tuamail-go/internal/server/httpserver/handler"
	"github.com/yndnr/tuamail-go/internal/telemetry/metric"
)

// RouterConfig holds configuration for the HTTP router.
type RouterConfig struct {
	// Handler carries the service, loop and status collaborators.
	Handler handler.Config

	// Logger for request logging.
	Logger *slog.Logger

	// Metrics records per-route request metrics when non-nil.
	Metrics *metric.Registry

	// RateLimitRPS is the per-IP rate limit (requests/second). <= 0 disables it.
	RateLimitRPS   float64
	RateLimitBurst int

	// AdminAllowList is the IP/CIDR allowlist for admin API (empty = no restriction).
	AdminAllowList []string

	// EnableAudit enables audit logging for all requests.
	EnableAudit bool
}

// DefaultRouterConfig returns default router configuration.
func DefaultRouterConfig() *RouterConfig {
	return &RouterConfig{
		Logger:         slog.Default(),
		RateLimitRPS:   50,
		RateLimitBurst: 100,
		EnableAudit:    true,
	}
}

// NewRouter creates and configures the HTTP router with all routes and
// middleware. It returns the router and the handler behind it.
func NewRouter(cfg *RouterConfig) (http.Handler, *handler.Handler) {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Handler.Logger == nil {
		cfg.Handler.Logger = cfg.Logger
	}
	h := handler.New(cfg.Handler)

	base := []Middleware{
		Metrics(cfg.Metrics),
		RequestID(),
		Recover(cfg.Logger),
	}
	if cfg.EnableAudit {
		base = append(base, Audit(cfg.Logger))
	}

	mux := http.NewServeMux()

	// Health and metrics endpoints: no caller required
	public := Chain(h, base...)
	mux.Handle("GET /health", public)
	mux.Handle("GET /ready", public)
	if cfg.Handler.Metrics != nil {
		mux.Handle("GET /metrics", public)
	}

	// Business API endpoints: caller required, rate limited
	business := Chain(h, slices.Concat(base, []Middleware{
		RateLimit(cfg.RateLimitRPS, cfg.RateLimitBurst),
		Caller(),
	})...)

	mux.Handle("POST /v1/users/me", business)

	mux.Handle("POST /v1/mail", business)
	mux.Handle("GET /v1/mail/inbox", business)
	mux.Handle("GET /v1/mail/sent", business)
	mux.Handle("GET /v1/mail/starred", business)
	mux.Handle("GET /v1/mail/starred/keys", business)
	mux.Handle("POST /v1/mail/{sender}/{timestamp}/read", business)
	mux.Handle("PUT /v1/mail/{sender}/{timestamp}/star", business)
	mux.Handle("GET /v1/mail/{sender}/{timestamp}/star", business)

	mux.Handle("POST /v1/chats/{other}/messages", business)
	mux.Handle("GET /v1/chats/{other}/messages", business)
	mux.Handle("POST /v1/chats/{other}/read", business)
	mux.Handle("GET /v1/chats", business)

	mux.Handle("PUT /v1/reminders/{sender}/{timestamp}", business)
	mux.Handle("DELETE /v1/reminders/{sender}/{timestamp}", business)
	mux.Handle("POST /v1/reminders/{sender}/{timestamp}/dismiss", business)
	mux.Handle("GET /v1/reminders", business)
	mux.Handle("GET /v1/reminders/due", business)

	// Admin API endpoints: optional network ACL
	admin := Chain(h, slices.Concat(base, []Middleware{
		NetworkACL(&NetworkACLConfig{
			AllowList: cfg.AdminAllowList,
			Logger:    cfg.Logger,
		}),
	})...)
	mux.Handle("GET /admin/v1/snapshot", admin)

	return mux, h
}
