package server

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httprate"
	"go.uber.org/zap"

	"github.com/bagdasarian/seatkeeper/internal/handler"
)

type RouterConfig struct {
	Validator *handler.TokenValidator
	// InviteRateLimit - запросов в минуту на создание и принятие приглашений.
	InviteRateLimit int
	Logger          *zap.Logger
}

func NewRouter(h *handler.Handler, cfg RouterConfig) http.Handler {
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(requestLogger(cfg.Logger))

	inviteLimit := rateLimit(cfg.InviteRateLimit, cfg.Logger)

	r.Get("/health", h.Health)

	r.Route("/v1", func(r chi.Router) {
		r.Post("/webhooks/stripe", h.StripeWebhook)
		r.With(h.OptionalSession(cfg.Validator)).Get("/access", h.CheckAccess)

		r.Group(func(r chi.Router) {
			r.Use(h.RequireSession(cfg.Validator))

			r.Get("/entitlement", h.GetEntitlement)
			r.Get("/license", h.GetOwnedLicense)
			r.Get("/memberships", h.ListMemberships)
			r.Get("/templates", h.ListTemplates)
			r.Delete("/members/{memberID}", h.RemoveMember)
			r.Post("/invites/auto-accept", h.AutoAccept)

			r.With(inviteLimit).Post("/licenses/{licenseID}/invites", h.CreateInvite)
			r.With(inviteLimit).Post("/invites/accept", h.AcceptInvite)
		})
	})

	return r
}

func rateLimit(perMinute int, logger *zap.Logger) func(http.Handler) http.Handler {
	return httprate.Limit(
		perMinute,
		time.Minute,
		httprate.WithKeyFuncs(httprate.KeyByIP, httprate.KeyByEndpoint),
		httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
			logger.Warn("rate limit exceeded",
				zap.String("ip", r.RemoteAddr),
				zap.String("path", r.URL.Path),
			)
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusTooManyRequests)
			w.Write([]byte(`{"error":{"code":"RATE_LIMITED","message":"rate limit exceeded, please try again later"}}`))
		}),
	)
}

func requestLogger(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			next.ServeHTTP(ww, r)
			logger.Debug("http request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Duration("duration", time.Since(start)),
				zap.String("request_id", middleware.GetReqID(r.Context())),
			)
		})
	}
}
