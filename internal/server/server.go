// Package server exposes the onboarding portal over HTTP.
package server

import (
	"net/http"
	"strings"

	"filippo.io/csrf"
	"github.com/go-chi/chi/v5"
	"github.com/rs/cors"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/telodox/portal/internal/auth"
	"github.com/telodox/portal/internal/billing"
	httpx "github.com/telodox/portal/internal/http"
	"github.com/telodox/portal/internal/logger"
	"github.com/telodox/portal/internal/models"
	"github.com/telodox/portal/internal/notify"
	"github.com/telodox/portal/internal/onboarding"
	"github.com/telodox/portal/internal/store"
	"github.com/telodox/portal/internal/tenant"
)

// Config holds the HTTP surface settings.
type Config struct {
	// BaseDomain is the apex domain tenants are addressed under, e.g. telodox.com.
	BaseDomain  string
	Development bool
	CORSOrigins []string
	Tracing     bool
}

// Deps are the collaborators the handlers call into. Payments and WebhookSecret are
// optional; without them the billing routes answer with an error.
type Deps struct {
	Stores        *store.Stores
	Verifier      auth.TokenVerifier
	Notifier      notify.Notifier
	Payments      billing.PaymentProvider
	WebhookSecret string
}

type Server struct {
	cfg        Config
	stores     *store.Stores
	guard      *auth.Guard
	resolver   *tenant.Resolver
	onboarding *onboarding.Service
	tenants    *tenant.Service
	checkout   *billing.CheckoutService
	webhook    http.Handler
}

func New(cfg Config, deps Deps) *Server {
	s := &Server{
		cfg:        cfg,
		stores:     deps.Stores,
		guard:      auth.NewGuard(deps.Verifier, deps.Stores.Users),
		resolver:   tenant.NewResolver(deps.Stores.Tenants, cfg.BaseDomain, cfg.Development),
		onboarding: onboarding.NewService(deps.Stores, deps.Notifier),
		tenants:    tenant.NewService(deps.Stores.Tenants, deps.Stores.Users),
	}
	if deps.Payments != nil {
		s.checkout = billing.NewCheckoutService(deps.Payments, deps.Stores.Users)
	}
	if deps.WebhookSecret != "" {
		s.webhook = billing.NewWebhookHandler(deps.WebhookSecret, deps.Stores.Users, deps.Stores.Tenants)
	}
	return s
}

// Handler builds the complete request pipeline: request logging and client IP
// capture, CORS for /api routes, CSRF protection for pages, and tracing when enabled.
func (s *Server) Handler(log zerolog.Logger) http.Handler {
	r := chi.NewRouter()
	r.Use(logger.RequestLogger(log), httpx.ClientIPMiddleware())

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		httpx.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	// Webhooks arrive on the apex domain and carry no tenant context.
	r.Post("/api/stripe/webhook", s.stripeWebhook)

	r.Group(func(r chi.Router) {
		r.Use(s.resolver.Middleware)

		r.Route("/api", func(r chi.Router) {
			r.Post("/early-access", s.joinWaitlist)

			r.Route("/forms", func(r chi.Router) {
				r.Use(s.guard.RequireSession(auth.API))
				r.Post("/auto-save", s.autoSave)
				r.Post("/submit", s.submit)
				r.Get("/submissions/{id}", s.getSubmission)
			})

			r.Route("/applications", func(r chi.Router) {
				r.With(s.guard.RequireRoles(auth.API, models.RoleTenantOwner, models.RoleSuperAdmin)).
					Get("/", s.listApplications)
				r.With(s.guard.RequireSession(auth.API)).
					Post("/{id}/stages/{stage}/approve", s.approveStage)
				r.With(s.guard.RequireSession(auth.API)).
					Post("/{id}/stages/{stage}/reject", s.rejectStage)
			})

			r.Route("/tenants", func(r chi.Router) {
				r.Post("/check-subdomain", s.checkSubdomain)
				r.With(s.guard.RequireSession(auth.API)).Post("/create-free", s.createFreeTenant)
			})

			r.With(s.guard.RequireSuperAdmin(auth.API)).Get("/admin/tenants", s.listTenants)

			r.Route("/stripe", func(r chi.Router) {
				r.Use(s.guard.RequireSession(auth.API))
				r.Post("/create-checkout", s.createCheckout)
				r.Post("/verify-session", s.verifySession)
			})
		})

		r.Get(auth.LoginPath, s.loginPage)
		r.With(s.guard.RequireTenantMember(auth.Page)).Get("/dashboard", s.dashboardPage)
		r.With(s.guard.RequireSuperAdmin(auth.Page)).Get("/admin", s.adminPage)
	})

	api := withCORS(s.cfg.CORSOrigins, r)
	pages := csrf.New().Handler(r)

	var handler http.Handler = http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		// API routes get CORS, HTML routes get CSRF
		if isAPIRoute(req.URL.Path) {
			api.ServeHTTP(w, req)
			return
		}
		pages.ServeHTTP(w, req)
	})

	if s.cfg.Tracing {
		handler = otelhttp.NewHandler(handler, "portal")
	}

	return handler
}

func isAPIRoute(path string) bool {
	return path == "/api" || strings.HasPrefix(path, "/api/")
}

func withCORS(allowedOrigins []string, h http.Handler) http.Handler {
	middleware := cors.New(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders:   []string{"Authorization", "Content-Type", logger.RequestIDHeader},
		ExposedHeaders:   []string{logger.RequestIDHeader},
		AllowCredentials: true, // session cookie
	})
	return middleware.Handler(h)
}

// actorFrom builds the service caller from the guard's request context.
func actorFrom(r *http.Request) onboarding.Actor {
	ctx := r.Context()
	actor := onboarding.Actor{Profile: auth.ProfileFromContext(ctx)}
	if session := auth.SessionFromContext(ctx); session != nil {
		actor.UserID = session.UserID
	}
	return actor
}
