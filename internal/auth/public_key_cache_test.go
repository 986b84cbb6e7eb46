package auth

import (
	"context"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPublicKeyCache_GetKey(t *testing.T) {
	privateKey, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)

	var fetches atomic.Int32
	jwks := newJWKSServer(t, "key-1", &privateKey.PublicKey)
	counting := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fetches.Add(1)
		http.Redirect(w, r, jwks.URL, http.StatusTemporaryRedirect)
	}))
	defer counting.Close()

	cache := NewPublicKeyCache(counting.URL, nil)
	ctx := context.Background()

	key, err := cache.GetKey(ctx, "key-1")
	require.NoError(t, err)
	require.True(t, key.Equal(&privateKey.PublicKey))

	_, err = cache.GetKey(ctx, "key-1")
	require.NoError(t, err)
	require.EqualValues(t, 1, fetches.Load(), "second lookup is served from cache")

	_, err = cache.GetKey(ctx, "rotated")
	require.ErrorContains(t, err, "kid not found")
	require.EqualValues(t, 2, fetches.Load(), "unknown kid forces a refetch")
}

func TestPublicKeyCache_errors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	_, err := NewPublicKeyCache(srv.URL, srv.Client()).GetKey(context.Background(), "any")
	require.ErrorContains(t, err, "JWKS request failed")
}

func TestJSONWebKey_publicKey(t *testing.T) {
	_, err := jsonWebKey{Kty: "RSA"}.publicKey()
	require.ErrorContains(t, err, "unsupported key type")

	_, err = jsonWebKey{Kty: "EC", Crv: "P-384"}.publicKey()
	require.ErrorContains(t, err, "unsupported curve")

	_, err = jsonWebKey{Kty: "EC", Crv: "P-256", X: "!!", Y: "AA"}.publicKey()
	require.ErrorContains(t, err, "failed to decode x")
}
