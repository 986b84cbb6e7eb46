package postgres

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPoolConfig_ApplyDefaults(t *testing.T) {
	cfg := &PoolConfig{ConnString: "postgres://localhost/portal"}
	cfg.ApplyDefaults()

	require.EqualValues(t, 20, cfg.MaxConns)
	require.EqualValues(t, 2, cfg.MinConns)
	require.EqualValues(t, 60, cfg.StartupTimeout)
	require.NoError(t, cfg.Validate())
}

func TestPoolConfig_Validate(t *testing.T) {
	require.ErrorContains(t, (&PoolConfig{}).Validate(), "connection string is required")
	require.ErrorContains(t, (&PoolConfig{ConnString: "postgres://x", MinConns: 5, MaxConns: 1}).Validate(), "exceeds max conns")
}

func TestNewPool_invalidConfig(t *testing.T) {
	_, err := NewPool(context.Background(), nil)
	require.Error(t, err)

	_, err = NewPool(context.Background(), &PoolConfig{})
	require.ErrorContains(t, err, "invalid pool config")

	_, err = NewPool(context.Background(), &PoolConfig{ConnString: "::not a dsn::"})
	require.ErrorContains(t, err, "failed to parse connection string")
}
