package apierr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestKindStatusCode(t *testing.T) {
	tests := []struct {
		kind   Kind
		status int
		code   string
	}{
		{Validation, http.StatusBadRequest, "validation_error"},
		{Signature, http.StatusBadRequest, "invalid_signature"},
		{Unauthenticated, http.StatusUnauthorized, "unauthenticated"},
		{Forbidden, http.StatusForbidden, "forbidden"},
		{NotFound, http.StatusNotFound, "not_found"},
		{Conflict, http.StatusConflict, "conflict"},
		{External, http.StatusBadGateway, "external_error"},
		{Internal, http.StatusInternalServerError, "internal_error"},
	}

	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			require.Equal(t, tt.status, tt.kind.StatusCode())
			require.Equal(t, tt.code, tt.kind.String())
		})
	}
}

func TestKindOf(t *testing.T) {
	base := errors.New("boom")

	wrapped := fmt.Errorf("outer: %w", Wrap(Conflict, "already submitted", base))
	require.Equal(t, Conflict, KindOf(wrapped))
	require.True(t, Is(wrapped, Conflict))
	require.ErrorIs(t, wrapped, base)

	require.Equal(t, Internal, KindOf(base))
	require.False(t, Is(base, Validation))
}

func TestInvalid(t *testing.T) {
	err := Invalid("validation failed", []string{"Name is required"})
	require.Equal(t, Validation, err.Kind)
	require.Equal(t, []string{"Name is required"}, err.Details)
	require.Equal(t, "validation_error: validation failed", err.Error())
}
