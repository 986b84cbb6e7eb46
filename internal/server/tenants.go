package server

import (
	"net/http"

	"github.com/telodox/portal/internal/apierr"
	"github.com/telodox/portal/internal/auth"
	httpx "github.com/telodox/portal/internal/http"
	"github.com/telodox/portal/internal/models"
	"github.com/telodox/portal/internal/tenant"
)

type checkSubdomainRequest struct {
	Subdomain string `json:"subdomain"`
}

func (s *Server) checkSubdomain(w http.ResponseWriter, r *http.Request) {
	var req checkSubdomainRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.WriteError(w, r, err)
		return
	}

	availability, err := s.tenants.CheckSubdomain(r.Context(), req.Subdomain)
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}

	httpx.WriteData(w, http.StatusOK, availability)
}

func (s *Server) createFreeTenant(w http.ResponseWriter, r *http.Request) {
	var req tenant.CreateFreeRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.WriteError(w, r, err)
		return
	}

	profile := auth.ProfileFromContext(r.Context())
	if profile == nil {
		httpx.WriteError(w, r, apierr.New(apierr.Forbidden, "user profile not found"))
		return
	}

	t, err := s.tenants.CreateFree(r.Context(), profile, req)
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}

	httpx.WriteData(w, http.StatusCreated, map[string]any{
		"tenant":  t,
		"message": "Tenant created successfully",
	})
}

func (s *Server) listTenants(w http.ResponseWriter, r *http.Request) {
	tenants, err := s.tenants.List(r.Context())
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	if tenants == nil {
		tenants = []*models.Tenant{}
	}

	httpx.WriteData(w, http.StatusOK, tenants)
}
