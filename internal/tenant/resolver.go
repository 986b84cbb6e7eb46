package tenant

import (
	"context"
	"errors"
	"net"
	"net/http"
	"strings"

	"github.com/rs/zerolog"
	"github.com/telodox/portal/internal/apierr"
	httpx "github.com/telodox/portal/internal/http"
	"github.com/telodox/portal/internal/models"
	"github.com/telodox/portal/internal/store"
	"github.com/telodox/portal/internal/telemetry"
)

// HostKind classifies a request host relative to the base application domain.
type HostKind int

const (
	// HostRoot is the root portal: the base domain, www, bare localhost or a host
	// unrelated to the base domain.
	HostRoot HostKind = iota
	// HostTenant carries a single-label tenant subdomain.
	HostTenant
	// HostForeign is under the base domain but is not a tenant address, e.g. a.b.<base>.
	HostForeign
)

func (k HostKind) String() string {
	switch k {
	case HostTenant:
		return "tenant"
	case HostForeign:
		return "foreign"
	default:
		return "root"
	}
}

var localHosts = []string{"localhost", "127.0.0.1"}

// ExtractSubdomain returns the tenant subdomain addressed by host. Matching ignores
// case and any port.
func ExtractSubdomain(host, baseDomain string) (string, HostKind) {
	host = normalizeHost(host)
	base := normalizeHost(baseDomain)

	host = strings.TrimPrefix(host, "www.")

	for _, local := range localHosts {
		if host == local {
			return "", HostRoot
		}
		if label, ok := strings.CutSuffix(host, "."+local); ok {
			if isLabel(label) {
				return label, HostTenant
			}
			return "", HostRoot
		}
	}

	if base == "" || host == base {
		return "", HostRoot
	}

	label, ok := strings.CutSuffix(host, "."+base)
	if !ok {
		return "", HostRoot
	}
	if isLabel(label) {
		return label, HostTenant
	}
	return "", HostForeign
}

func normalizeHost(host string) string {
	host = strings.ToLower(strings.TrimSpace(host))
	if h, _, err := net.SplitHostPort(host); err == nil {
		host = h
	}
	return strings.TrimSuffix(host, ".")
}

func isLabel(s string) bool {
	return s != "" && !strings.Contains(s, ".")
}

// Resolution is the outcome of resolving a host.
type Resolution struct {
	Kind      HostKind
	Subdomain string
	Tenant    *models.Tenant // nil unless Kind is HostTenant
}

// Resolver maps request hosts onto tenants.
type Resolver struct {
	tenants     store.TenantStore
	baseDomain  string
	development bool
}

func NewResolver(tenants store.TenantStore, baseDomain string, development bool) *Resolver {
	return &Resolver{
		tenants:     tenants,
		baseDomain:  normalizeHost(baseDomain),
		development: development,
	}
}

// Resolve looks up the tenant addressed by host. A tenant subdomain with no matching
// tenant fails with a NotFound error; so does a store failure, which is logged.
func (r *Resolver) Resolve(ctx context.Context, host string) (*Resolution, error) {
	subdomain, kind := ExtractSubdomain(host, r.baseDomain)
	res := &Resolution{Kind: kind, Subdomain: subdomain}
	if kind != HostTenant {
		return res, nil
	}

	t, err := r.tenants.GetBySubdomain(ctx, subdomain)
	if err != nil {
		if !errors.Is(err, store.ErrTenantNotFound) {
			zerolog.Ctx(ctx).Error().Err(err).Str("subdomain", subdomain).Msg("tenant lookup failed")
		}
		return res, apierr.Wrap(apierr.NotFound, "tenant not found", err)
	}

	res.Tenant = t
	return res, nil
}

// skippedPrefixes are tenant-agnostic route trees.
var skippedPrefixes = []string{"/auth", "/admin"}

// Middleware resolves the tenant for every request outside the auth and admin trees
// and binds it with WithTenant.
//
// In production an unknown tenant is a 404 and a foreign host under the base domain
// is redirected to the canonical root portal. In development both degrade to no
// tenant with a warning.
func (r *Resolver) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		ctx := req.Context()
		if skipResolution(req.URL.Path) {
			next.ServeHTTP(w, req)
			return
		}

		metrics := telemetry.GetMetrics()
		log := zerolog.Ctx(ctx)

		res, err := r.Resolve(ctx, req.Host)
		switch {
		case err != nil && r.development:
			log.Warn().Err(err).Str("host", req.Host).Msg("tenant resolution failed, continuing without tenant")
			telemetry.Count(ctx, metrics.TenantResolutionsTotal, "outcome", "degraded")
			next.ServeHTTP(w, req)
			return
		case err != nil:
			outcome := "not_found"
			if !errors.Is(err, store.ErrTenantNotFound) {
				outcome = "error"
			}
			telemetry.Count(ctx, metrics.TenantResolutionsTotal, "outcome", outcome)
			httpx.WriteError(w, req, err)
			return
		}

		switch res.Kind {
		case HostTenant:
			telemetry.Count(ctx, metrics.TenantResolutionsTotal, "outcome", "resolved")
			log.UpdateContext(func(c zerolog.Context) zerolog.Context {
				return c.Str("tenant_id", res.Tenant.TenantID.String())
			})
			next.ServeHTTP(w, req.WithContext(WithTenant(ctx, res.Tenant)))
		case HostForeign:
			if r.development {
				telemetry.Count(ctx, metrics.TenantResolutionsTotal, "outcome", "degraded")
				next.ServeHTTP(w, req)
				return
			}
			telemetry.Count(ctx, metrics.TenantResolutionsTotal, "outcome", "redirect")
			http.Redirect(w, req, r.CanonicalURL(req.URL.RequestURI()), http.StatusFound)
		default:
			telemetry.Count(ctx, metrics.TenantResolutionsTotal, "outcome", "root")
			next.ServeHTTP(w, req)
		}
	})
}

// CanonicalURL is the root portal address for path.
func (r *Resolver) CanonicalURL(path string) string {
	return "https://www." + r.baseDomain + path
}

func skipResolution(path string) bool {
	for _, prefix := range skippedPrefixes {
		if path == prefix || strings.HasPrefix(path, prefix+"/") {
			return true
		}
	}
	return false
}
