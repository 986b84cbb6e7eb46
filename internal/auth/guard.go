package auth

import (
	"context"
	"html/template"
	"net/http"
	"net/url"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/telodox/portal/internal/apierr"
	httpx "github.com/telodox/portal/internal/http"
	"github.com/telodox/portal/internal/models"
	"github.com/telodox/portal/internal/tenant"
)

// LoginPath is where page navigations without a session are sent.
const LoginPath = "/auth/login"

// Mode selects how guard failures are reported.
type Mode int

const (
	// API failures are JSON 401/403 responses.
	API Mode = iota
	// Page failures redirect to login, or render a 403 page for role failures.
	Page
)

// ProfileLoader fetches a user's stored profile.
type ProfileLoader interface {
	Get(ctx context.Context, userID uuid.UUID) (*models.User, error)
}

// Guard protects routes with session, role and tenant membership checks.
type Guard struct {
	verifier TokenVerifier
	profiles ProfileLoader
}

func NewGuard(verifier TokenVerifier, profiles ProfileLoader) *Guard {
	return &Guard{verifier: verifier, profiles: profiles}
}

// RequireSession verifies the caller's access token and binds the session and the
// stored profile to the request context. A profile that cannot be loaded is left
// unset, so role checks further down fail closed.
func (g *Guard) RequireSession(mode Mode) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			token, ok := TokenFromRequest(r)
			if !ok {
				unauthenticated(w, r, mode)
				return
			}

			session, err := g.verifier.Verify(ctx, token)
			if err != nil {
				zerolog.Ctx(ctx).Debug().Err(err).Msg("session rejected")
				unauthenticated(w, r, mode)
				return
			}

			ctx = WithSession(ctx, session)

			profile, err := g.profiles.Get(ctx, session.UserID)
			if err != nil {
				zerolog.Ctx(ctx).Warn().Err(err).Str("user_id", session.UserID.String()).Msg("profile lookup failed")
			} else {
				ctx = WithProfile(ctx, profile)
			}

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireRoles requires a session and, when roles is non-empty, a profile role in
// the allow-list.
func (g *Guard) RequireRoles(mode Mode, roles ...models.Role) func(http.Handler) http.Handler {
	return g.requireProfile(mode, func(r *http.Request, u *models.User) bool {
		if len(roles) == 0 {
			return true
		}
		return HasRole(u, roles...)
	})
}

// RequireSuperAdmin gates platform operator routes.
func (g *Guard) RequireSuperAdmin(mode Mode) func(http.Handler) http.Handler {
	return g.requireProfile(mode, func(r *http.Request, u *models.User) bool {
		return IsSuperAdmin(u)
	})
}

// RequireTenantMember requires the profile's tenant to be the tenant resolved from
// the host. Requests without a resolved tenant are refused.
func (g *Guard) RequireTenantMember(mode Mode) func(http.Handler) http.Handler {
	return g.requireProfile(mode, func(r *http.Request, u *models.User) bool {
		t := tenant.FromContext(r.Context())
		return t != nil && u.BelongsTo(t.TenantID)
	})
}

func (g *Guard) requireProfile(mode Mode, allow func(*http.Request, *models.User) bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		check := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !allow(r, ProfileFromContext(r.Context())) {
				forbidden(w, r, mode)
				return
			}
			next.ServeHTTP(w, r)
		})
		return g.RequireSession(mode)(check)
	}
}

func unauthenticated(w http.ResponseWriter, r *http.Request, mode Mode) {
	if mode == Page {
		http.Redirect(w, r, LoginRedirect(r), http.StatusFound)
		return
	}
	httpx.WriteError(w, r, apierr.New(apierr.Unauthenticated, "authentication required"))
}

func forbidden(w http.ResponseWriter, r *http.Request, mode Mode) {
	if mode == Page {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.WriteHeader(http.StatusForbidden)
		_ = forbiddenPage.Execute(w, r.URL.Path)
		return
	}
	httpx.WriteError(w, r, apierr.New(apierr.Forbidden, "insufficient permissions"))
}

// LoginRedirect builds the login URL that returns the caller to the page they asked for.
func LoginRedirect(r *http.Request) string {
	return LoginPath + "?redirect=" + url.QueryEscape(r.URL.RequestURI())
}

var forbiddenPage = template.Must(template.New("forbidden").Parse(`<!DOCTYPE html>
<html lang="en">
<head><meta charset="utf-8"><title>Access denied</title></head>
<body>
<h1>403 - Access denied</h1>
<p>You do not have permission to view {{.}}.</p>
<p><a href="/">Return home</a></p>
</body>
</html>
`))
