package commands

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/telodox/portal/internal/auth"
	"github.com/telodox/portal/internal/client"
	"github.com/telodox/portal/internal/notify"
	postgresstore "github.com/telodox/portal/internal/store/postgres"
)

type PostgresStoreFlags struct {
	// Connection Configuration
	ConnString string `help:"PostgreSQL connection string" env:"POSTGRES_CONNECTION_STRING"`

	// Connection Pool Configuration
	MaxConns        int32 `help:"maximum number of connections in pool" default:"20"`
	MinConns        int32 `help:"minimum number of connections in pool" default:"2"`
	MaxConnLifetime int32 `help:"maximum connection lifetime in seconds" default:"3600"`
	MaxConnIdleTime int32 `help:"maximum connection idle time in seconds" default:"1800"`
	StartupTimeout  int32 `help:"seconds to keep retrying the database at startup" default:"60" env:"TELODOX_POSTGRES_STARTUP_TIMEOUT"`

	// Migration Configuration
	AutoMigrate bool `help:"run database migrations on startup" default:"false" env:"TELODOX_POSTGRES_AUTO_MIGRATE"`
}

func (s *PostgresStoreFlags) Validate() error {
	if s.ConnString == "" {
		return errors.New("PostgreSQL connection string is required (--postgres-conn-string or POSTGRES_CONNECTION_STRING)")
	}
	return nil
}

// connect opens the shared pool and applies migrations when requested.
func (s *PostgresStoreFlags) connect(ctx context.Context, migrate bool) (*pgxpool.Pool, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}

	pool, err := postgresstore.NewPool(ctx, &postgresstore.PoolConfig{
		ConnString:      s.ConnString,
		MaxConns:        s.MaxConns,
		MinConns:        s.MinConns,
		MaxConnLifetime: s.MaxConnLifetime,
		MaxConnIdleTime: s.MaxConnIdleTime,
		StartupTimeout:  s.StartupTimeout,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	if migrate {
		if err := postgresstore.RunMigrations(ctx, pool); err != nil {
			pool.Close()
			return nil, fmt.Errorf("failed to run migrations: %w", err)
		}
	}

	return pool, nil
}

// AuthFlags configure verification of the hosted auth provider's access tokens.
type AuthFlags struct {
	JWTSecret   string `help:"shared secret for HS256 access tokens" env:"SUPABASE_JWT_SECRET"`
	JWKSURL     string `help:"JWKS URL for ES256 access tokens, takes precedence over the secret" env:"SUPABASE_JWKS_URL"`
	JWTAudience string `help:"expected access token audience" default:"authenticated" env:"SUPABASE_JWT_AUDIENCE"`
	JWKSCache   string `help:"directory for the on-disk JWKS HTTP cache, in memory when empty" env:"TELODOX_JWKS_CACHE_DIR"`
}

func (a *AuthFlags) Validate() error {
	if a.JWTSecret == "" && a.JWKSURL == "" {
		return errors.New("either a JWT secret (SUPABASE_JWT_SECRET) or a JWKS URL (SUPABASE_JWKS_URL) is required")
	}
	return nil
}

func (a *AuthFlags) verifier() (*auth.Verifier, error) {
	if err := a.Validate(); err != nil {
		return nil, err
	}
	if a.JWKSURL != "" {
		keys := auth.NewPublicKeyCache(a.JWKSURL, client.NewCachingHTTPClient(a.JWKSCache))
		return auth.NewJWKSVerifier(keys, a.JWTAudience)
	}
	return auth.NewSecretVerifier([]byte(a.JWTSecret), a.JWTAudience)
}

// StripeFlags enable checkout and the billing webhook. Both are optional.
type StripeFlags struct {
	SecretKey     string `help:"Stripe secret API key" env:"STRIPE_SECRET_KEY"`
	WebhookSecret string `help:"Stripe webhook signing secret" env:"STRIPE_WEBHOOK_SECRET"`
}

// SESFlags enable e-mail notifications through Amazon SES. Without a sender address
// notifications are only logged.
type SESFlags struct {
	Region          string `help:"SES region" env:"SES_REGION"`
	FromEmail       string `help:"sender address for notification e-mails" env:"SES_FROM_EMAIL"`
	AccessKeyID     string `help:"static AWS access key id, default credential chain when empty" env:"SES_ACCESS_KEY_ID"`
	SecretAccessKey string `help:"static AWS secret access key" env:"SES_SECRET_ACCESS_KEY"`
}

func (s *SESFlags) Validate() error {
	if (s.AccessKeyID == "") != (s.SecretAccessKey == "") {
		return errors.New("SES access key id and secret access key must be set together")
	}
	return nil
}

func (s *SESFlags) notifier(ctx context.Context) (notify.Notifier, error) {
	if s.FromEmail == "" {
		return notify.LogNotifier{}, nil
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return notify.NewSESNotifier(ctx, notify.SESConfig{
		Region:          s.Region,
		FromEmail:       s.FromEmail,
		AccessKeyID:     s.AccessKeyID,
		SecretAccessKey: s.SecretAccessKey,
	})
}
