package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/telodox/portal/internal/apierr"
	httpx "github.com/telodox/portal/internal/http"
	"github.com/telodox/portal/internal/models"
	"github.com/telodox/portal/internal/tenant"
)

// listApplications returns the applications of the tenant resolved from the host.
func (s *Server) listApplications(w http.ResponseWriter, r *http.Request) {
	t := tenant.FromContext(r.Context())
	if t == nil {
		httpx.WriteError(w, r, apierr.New(apierr.Validation, "tenant context required"))
		return
	}

	apps, err := s.onboarding.ListApplications(r.Context(), actorFrom(r), t.TenantID)
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	if apps == nil {
		apps = []*models.Application{}
	}

	httpx.WriteData(w, http.StatusOK, apps)
}

func (s *Server) approveStage(w http.ResponseWriter, r *http.Request) {
	id, err := uuidParam(r, "id")
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}

	app, err := s.onboarding.ApproveStage(r.Context(), actorFrom(r), id, models.FormType(chi.URLParam(r, "stage")))
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}

	httpx.WriteData(w, http.StatusOK, app)
}

type rejectRequest struct {
	Reason string `json:"reason"`
}

func (s *Server) rejectStage(w http.ResponseWriter, r *http.Request) {
	id, err := uuidParam(r, "id")
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}

	var req rejectRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.WriteError(w, r, err)
		return
	}

	app, err := s.onboarding.RejectStage(r.Context(), actorFrom(r), id, models.FormType(chi.URLParam(r, "stage")), req.Reason)
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}

	httpx.WriteData(w, http.StatusOK, app)
}
