package server

import (
	"errors"
	"maps"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/telodox/portal/internal/apierr"
	"github.com/telodox/portal/internal/forms"
	httpx "github.com/telodox/portal/internal/http"
	"github.com/telodox/portal/internal/models"
	"github.com/telodox/portal/internal/store"
)

const defaultWaitlistSource = "manual"

type waitlistRequest struct {
	Email    string         `json:"email"`
	Source   string         `json:"source"`
	Referrer string         `json:"referrer"`
	Metadata map[string]any `json:"metadata"`
}

type waitlistResponse struct {
	Success    bool   `json:"success"`
	Message    string `json:"message"`
	TotalCount int    `json:"totalCount"`
}

// joinWaitlist records an early-access signup.
func (s *Server) joinWaitlist(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req waitlistRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.WriteError(w, r, err)
		return
	}

	email := strings.ToLower(strings.TrimSpace(req.Email))
	if !forms.IsEmail(email) {
		httpx.WriteError(w, r, apierr.New(apierr.Validation, "Valid email address is required"))
		return
	}

	id, err := uuid.NewV7()
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}

	entry := &models.WaitlistEntry{
		EntryID:   id,
		Email:     email,
		Source:    req.Source,
		IPAddress: httpx.ClientIPFromContext(ctx),
		UserAgent: r.UserAgent(),
		Status:    models.WaitlistStatusActive,
		CreatedAt: time.Now().UTC(),
	}
	if entry.Source == "" {
		entry.Source = defaultWaitlistSource
	}
	if req.Referrer != "" {
		entry.Referrer = &req.Referrer
	}

	entry.Metadata = make(map[string]any, len(req.Metadata)+2)
	maps.Copy(entry.Metadata, req.Metadata)
	entry.Metadata["ip_address"] = entry.IPAddress
	entry.Metadata["user_agent"] = entry.UserAgent

	if err := s.stores.Waitlist.Create(ctx, entry); err != nil {
		if errors.Is(err, store.ErrWaitlistEmailExists) {
			httpx.WriteError(w, r, apierr.Wrap(apierr.Conflict, "This email is already on the waitlist", err))
			return
		}
		httpx.WriteError(w, r, err)
		return
	}

	total, err := s.stores.Waitlist.CountActive(ctx)
	if err != nil {
		// the signup is stored; a missing count is not worth failing it
		zerolog.Ctx(ctx).Warn().Err(err).Msg("failed to count waitlist entries")
	}

	zerolog.Ctx(ctx).Info().Str("source", entry.Source).Msg("waitlist signup")

	httpx.WriteJSON(w, http.StatusCreated, waitlistResponse{
		Success:    true,
		Message:    "Successfully added to waitlist",
		TotalCount: total,
	})
}
