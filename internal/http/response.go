package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rs/zerolog"
	"github.com/telodox/portal/internal/apierr"
)

type errorBody struct {
	Code    string   `json:"code"`
	Message string   `json:"message"`
	Details []string `json:"details,omitempty"`
}

type errorEnvelope struct {
	Error errorBody `json:"error"`
}

// WriteJSON encodes payload with the given status.
func WriteJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

// WriteData wraps payload in a {"data": ...} envelope.
func WriteData(w http.ResponseWriter, status int, payload any) {
	WriteJSON(w, status, map[string]any{"data": payload})
}

// WriteError renders err as the error envelope. Unclassified errors become a 500 and
// their text is logged, never returned.
func WriteError(w http.ResponseWriter, r *http.Request, err error) {
	var apiErr *apierr.Error
	if !errors.As(err, &apiErr) {
		apiErr = apierr.Wrap(apierr.Internal, "internal server error", err)
	}

	status := apiErr.StatusCode()
	if status >= http.StatusInternalServerError {
		zerolog.Ctx(r.Context()).Error().Err(err).Int("status", status).Msg("request failed")
	}

	WriteJSON(w, status, errorEnvelope{Error: errorBody{
		Code:    apiErr.Kind.String(),
		Message: apiErr.Message,
		Details: apiErr.Details,
	}})
}

// DecodeJSON reads a JSON request body into v.
func DecodeJSON(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return apierr.Wrap(apierr.Validation, "invalid request body", err)
	}
	return nil
}
