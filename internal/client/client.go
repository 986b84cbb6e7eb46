// Package client builds outbound HTTP clients.
package client

import (
	"net/http"
	"time"

	"github.com/gregjones/httpcache"
	"github.com/gregjones/httpcache/diskcache"
)

const defaultTimeout = 10 * time.Second

// NewCachingHTTPClient creates an HTTP client that honours Cache-Control on responses.
// It is used for the auth provider's JWKS endpoint. An empty cacheDir keeps the cache
// in memory; otherwise entries persist on disk across restarts.
func NewCachingHTTPClient(cacheDir string) *http.Client {
	var cache httpcache.Cache = httpcache.NewMemoryCache()
	if cacheDir != "" {
		cache = diskcache.New(cacheDir)
	}

	return &http.Client{
		Transport: httpcache.NewTransport(cache),
		Timeout:   defaultTimeout,
	}
}
