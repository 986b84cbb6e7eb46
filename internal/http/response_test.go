package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/telodox/portal/internal/apierr"
)

func TestWriteError(t *testing.T) {
	t.Run("classified error with details", func(t *testing.T) {
		w := httptest.NewRecorder()
		r := httptest.NewRequest(http.MethodPost, "/api/forms/submit", nil)

		WriteError(w, r, apierr.Invalid("form validation failed", []string{"Company is required"}))

		require.Equal(t, http.StatusBadRequest, w.Code)
		require.Equal(t, "application/json", w.Header().Get("Content-Type"))

		var body map[string]map[string]any
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
		require.Equal(t, "validation_error", body["error"]["code"])
		require.Equal(t, "form validation failed", body["error"]["message"])
		require.Equal(t, []any{"Company is required"}, body["error"]["details"])
	})

	t.Run("unclassified error hides cause", func(t *testing.T) {
		w := httptest.NewRecorder()
		r := httptest.NewRequest(http.MethodGet, "/", nil)

		WriteError(w, r, errors.New("connection refused to 10.0.0.1"))

		require.Equal(t, http.StatusInternalServerError, w.Code)
		require.NotContains(t, w.Body.String(), "10.0.0.1")
		require.NotContains(t, w.Body.String(), "details")
	})
}

func TestWriteData(t *testing.T) {
	w := httptest.NewRecorder()
	WriteData(w, http.StatusOK, map[string]bool{"available": true})

	require.Equal(t, http.StatusOK, w.Code)
	require.JSONEq(t, `{"data":{"available":true}}`, w.Body.String())
}

func TestDecodeJSON(t *testing.T) {
	var v struct {
		Email string `json:"email"`
	}

	r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"email":"a@b.co"}`))
	require.NoError(t, DecodeJSON(r, &v))
	require.Equal(t, "a@b.co", v.Email)

	r = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{`))
	err := DecodeJSON(r, &v)
	require.True(t, apierr.Is(err, apierr.Validation))
}
