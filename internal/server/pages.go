package server

import (
	"html/template"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/telodox/portal/internal/auth"
	"github.com/telodox/portal/internal/models"
	"github.com/telodox/portal/internal/tenant"
)

var pageTemplates = template.Must(template.New("pages").Parse(`
{{define "head"}}<!DOCTYPE html>
<html lang="en">
<head><meta charset="utf-8"><title>{{.}}</title></head>
<body>{{end}}

{{define "login"}}{{template "head" "Sign in"}}
<h1>Sign in</h1>
<div id="login" data-redirect="{{.}}"></div>
</body>
</html>{{end}}

{{define "dashboard"}}{{template "head" .Tenant.Name}}
<h1>{{.Tenant.Name}}</h1>
<p>Signed in as {{.User.Email}}</p>
<p>{{len .Applications}} onboarding applications</p>
</body>
</html>{{end}}

{{define "admin"}}{{template "head" "Platform administration"}}
<h1>Tenants</h1>
<ul>
{{range .}}<li>{{.Name}} ({{.Subdomain}}) - {{.SubscriptionStatus}}</li>
{{end}}</ul>
</body>
</html>{{end}}
`))

func renderPage(w http.ResponseWriter, r *http.Request, name string, data any) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := pageTemplates.ExecuteTemplate(w, name, data); err != nil {
		zerolog.Ctx(r.Context()).Error().Err(err).Str("page", name).Msg("failed to render page")
	}
}

// loginPage is the shell the hosted auth provider's browser client mounts into.
func (s *Server) loginPage(w http.ResponseWriter, r *http.Request) {
	redirect := r.URL.Query().Get("redirect")
	if redirect == "" {
		redirect = "/dashboard"
	}
	renderPage(w, r, "login", redirect)
}

type dashboardData struct {
	Tenant       *models.Tenant
	User         *models.User
	Applications []*models.Application
}

func (s *Server) dashboardPage(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	data := dashboardData{
		Tenant: tenant.FromContext(ctx),
		User:   auth.ProfileFromContext(ctx),
	}

	apps, err := s.stores.Applications.ListByTenant(ctx, data.Tenant.TenantID)
	if err != nil {
		zerolog.Ctx(ctx).Error().Err(err).Msg("failed to list applications")
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}
	data.Applications = apps

	renderPage(w, r, "dashboard", data)
}

func (s *Server) adminPage(w http.ResponseWriter, r *http.Request) {
	tenants, err := s.tenants.List(r.Context())
	if err != nil {
		zerolog.Ctx(r.Context()).Error().Err(err).Msg("failed to list tenants")
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}
	renderPage(w, r, "admin", tenants)
}
