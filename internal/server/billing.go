package server

import (
	"net/http"

	"github.com/telodox/portal/internal/apierr"
	"github.com/telodox/portal/internal/auth"
	"github.com/telodox/portal/internal/billing"
	httpx "github.com/telodox/portal/internal/http"
)

var errPaymentsDisabled = apierr.New(apierr.External, "payments are not configured")

func (s *Server) createCheckout(w http.ResponseWriter, r *http.Request) {
	if s.checkout == nil {
		httpx.WriteError(w, r, errPaymentsDisabled)
		return
	}

	var req billing.CheckoutRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.WriteError(w, r, err)
		return
	}

	url, err := s.checkout.CreateCheckout(r.Context(), auth.ProfileFromContext(r.Context()), req, requestOrigin(r))
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}

	httpx.WriteData(w, http.StatusOK, map[string]string{"url": url})
}

type verifySessionRequest struct {
	SessionID string `json:"sessionId"`
}

func (s *Server) verifySession(w http.ResponseWriter, r *http.Request) {
	if s.checkout == nil {
		httpx.WriteError(w, r, errPaymentsDisabled)
		return
	}

	var req verifySessionRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.WriteError(w, r, err)
		return
	}

	result, err := s.checkout.VerifySession(r.Context(), auth.ProfileFromContext(r.Context()), req.SessionID)
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, result)
}

func (s *Server) stripeWebhook(w http.ResponseWriter, r *http.Request) {
	if s.webhook == nil {
		httpx.WriteError(w, r, errPaymentsDisabled)
		return
	}
	s.webhook.ServeHTTP(w, r)
}

// requestOrigin is the scheme and host the caller used, honouring a TLS terminating proxy.
func requestOrigin(r *http.Request) string {
	scheme := "http"
	if r.TLS != nil || r.Header.Get("X-Forwarded-Proto") == "https" {
		scheme = "https"
	}
	return scheme + "://" + r.Host
}
