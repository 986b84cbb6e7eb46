package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/telodox/portal/internal/apierr"
	httpx "github.com/telodox/portal/internal/http"
	"github.com/telodox/portal/internal/models"
	"github.com/telodox/portal/internal/onboarding"
)

type saveResponse struct {
	Submission *models.FormSubmission `json:"submission"`
	Message    string                 `json:"message"`
}

func (s *Server) autoSave(w http.ResponseWriter, r *http.Request) {
	var req onboarding.SaveRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.WriteError(w, r, err)
		return
	}

	sub, err := s.onboarding.AutoSave(r.Context(), actorFrom(r), req)
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}

	httpx.WriteData(w, http.StatusOK, saveResponse{Submission: sub, Message: "Form auto-saved successfully"})
}

func (s *Server) submit(w http.ResponseWriter, r *http.Request) {
	var req onboarding.SaveRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.WriteError(w, r, err)
		return
	}

	sub, err := s.onboarding.Submit(r.Context(), actorFrom(r), req)
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}

	httpx.WriteData(w, http.StatusOK, saveResponse{Submission: sub, Message: "Form submitted successfully"})
}

func (s *Server) getSubmission(w http.ResponseWriter, r *http.Request) {
	id, err := uuidParam(r, "id")
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}

	sub, err := s.onboarding.Get(r.Context(), actorFrom(r), id)
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}

	httpx.WriteData(w, http.StatusOK, map[string]any{"submission": sub})
}

func uuidParam(r *http.Request, name string) (uuid.UUID, error) {
	raw := chi.URLParam(r, name)
	if raw == "" {
		return uuid.Nil, apierr.New(apierr.Validation, name+" is required")
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, apierr.Wrap(apierr.Validation, "invalid "+name, err)
	}
	return id, nil
}
