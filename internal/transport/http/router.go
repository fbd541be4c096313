package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/time/rate"

	"github.com/callready/funnel-api/internal/application/admin"
	"github.com/callready/funnel-api/internal/application/lead"
	"github.com/callready/funnel-api/internal/application/otp"
	"github.com/callready/funnel-api/internal/config"
	"github.com/callready/funnel-api/internal/transport/http/handler"
	appmiddleware "github.com/callready/funnel-api/internal/transport/http/middleware"
)

// NewRouter builds and returns the application router.
func NewRouter(cfg *config.Config, deps *Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.RequestID)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	// 5 requests/second, burst of 10 — applied to the public funnel endpoints.
	sensitiveRL := appmiddleware.NewRateLimiter(rate.Limit(5), 10)

	otpSvc := otp.NewService(otp.ServiceDeps{
		Repo:      deps.OTPRepo,
		SMSSender: deps.SMSSender,
	})

	leadDeps := lead.ServiceDeps{
		ContactRepo:   deps.ContactRepo,
		LeadRepo:      deps.LeadRepo,
		EventRepo:     deps.EventRepo,
		Dispatcher:    deps.Dispatcher,
		Mailer:        deps.Mailer,
		AlertEmail:    cfg.AlertEmail,
		WebhookURL:    cfg.WebhookURL,
		SiteKey:       cfg.SiteKey,
		DefaultFunnel: cfg.DefaultFunnelType,
	}
	// keep the interface nil when no archive is configured
	if deps.Archive != nil {
		leadDeps.Archive = deps.Archive
	}
	leadSvc := lead.NewService(leadDeps)

	healthH := handler.NewHealthHandler()
	otpH := handler.NewOTPHandler(otpSvc, !cfg.IsProduction())
	leadH := handler.NewLeadHandler(leadSvc)

	r.Route("/v1", func(r chi.Router) {
		r.Get("/health-check/{action}", healthH.Ping)

		r.With(sensitiveRL.Limit).Post("/otp/send", otpH.Send)
		r.With(sensitiveRL.Limit).Post("/otp/verify", otpH.Verify)
		r.Post("/leads/capture-email", leadH.CaptureEmail)
		r.With(sensitiveRL.Limit).Post("/leads/verify-and-forward", leadH.VerifyAndForward)

		if cfg.AdminEnabled() && deps.JWTProvider != nil {
			adminSvc := admin.NewService(admin.ServiceDeps{
				LeadService:  leadSvc,
				Signer:       deps.JWTProvider,
				Username:     cfg.AdminUsername,
				PasswordHash: cfg.AdminPasswordHash,
			})
			adminH := handler.NewAdminHandler(adminSvc)

			r.With(sensitiveRL.Limit).Post("/admin/login", adminH.Login)
			r.Group(func(r chi.Router) {
				r.Use(appmiddleware.Auth(deps.JWTProvider))
				r.Get("/admin/leads", adminH.ListLeads)
				r.Post("/admin/leads/{id}/resend", adminH.ResendWebhook)
			})
		}
	})

	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	return r
}
