package commands

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/telodox/portal/internal/billing"
	"github.com/telodox/portal/internal/bootstrap"
	"github.com/telodox/portal/internal/logger"
	"github.com/telodox/portal/internal/server"
	"github.com/telodox/portal/internal/store"
	memorystore "github.com/telodox/portal/internal/store/memory"
	postgresstore "github.com/telodox/portal/internal/store/postgres"
	"github.com/telodox/portal/internal/telemetry"
)

type ServeCmd struct {
	// Server configuration
	Listen string `help:"HTTP server listen address" default:"0.0.0.0:443" env:"TELODOX_LISTEN"`
	Cert   string `help:"path to TLS cert file" default:"" env:"TELODOX_TLS_CERT"`
	Key    string `help:"path to TLS key file" default:"" env:"TELODOX_TLS_KEY"`
	Domain string `help:"apex domain tenants are served under" default:"telodox.com" env:"APP_DOMAIN"`

	// CORS configuration
	CORSOrigins []string `help:"allowed CORS origins for API requests" default:"https://telodox.com" env:"TELODOX_CORS_ORIGINS"`

	// Development and operational modes
	Development bool    `help:"development mode: plain HTTP allowed, unknown tenants degrade to the root site" default:"false" env:"TELODOX_DEVELOPMENT"`
	Tracing     bool    `help:"enable tracing" default:"false" env:"TELODOX_TRACING"`
	SampleRatio float64 `help:"fraction of traces to keep" default:"1" env:"TELODOX_TRACE_SAMPLE_RATIO"`

	// Store configuration
	StoreType     string             `help:"store type (memory or postgres)" default:"memory" env:"TELODOX_STORE_TYPE" enum:"memory,postgres"`
	PostgresStore PostgresStoreFlags `embed:"" prefix:"postgres-"`
	SeedFile      string             `help:"YAML fixtures loaded into the store at startup" type:"existingfile" env:"TELODOX_SEED_FILE"`

	Auth   AuthFlags   `embed:"" prefix:"auth-"`
	Stripe StripeFlags `embed:"" prefix:"stripe-"`
	SES    SESFlags    `embed:"" prefix:"ses-"`
}

func (c *ServeCmd) Run(globals *Globals) error {
	log := logger.Setup(globals.Debug)
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = log.WithContext(ctx)

	log.Info().Str("version", globals.Version).Bool("debug", globals.Debug).Msg("Starting server")

	if c.Tracing {
		log.Info().Msg("Tracing is enabled")
		shutdown, err := telemetry.InitTelemetry(ctx, telemetry.Config{
			ServiceName: "telodox-portal",
			Version:     globals.Version,
			SampleRatio: c.SampleRatio,
		})
		if err != nil {
			log.Warn().Err(err).Msg("Failed to initialize telemetry, continuing without metrics")
			shutdown = func(ctx context.Context) error { return nil }
		}
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := shutdown(shutdownCtx); err != nil {
				log.Error().Err(err).Msg("Failed to shutdown telemetry")
			}
		}()
	}

	verifier, err := c.Auth.verifier()
	if err != nil {
		return fmt.Errorf("failed to configure token verification: %w", err)
	}

	var stores *store.Stores
	switch c.StoreType {
	case "postgres":
		pool, err := c.PostgresStore.connect(ctx, c.PostgresStore.AutoMigrate)
		if err != nil {
			return err
		}
		defer pool.Close()
		stores = postgresstore.NewStores(pool)
		log.Info().Bool("auto_migrate", c.PostgresStore.AutoMigrate).Msg("Using PostgreSQL stores with shared connection pool")
	default:
		stores = memorystore.NewStores()
		log.Info().Msg("Using in-memory stores")
	}

	if c.SeedFile != "" {
		if err := seed(ctx, log, stores, c.SeedFile); err != nil {
			return err
		}
	}

	notifier, err := c.SES.notifier(ctx)
	if err != nil {
		return fmt.Errorf("failed to configure notifications: %w", err)
	}

	deps := server.Deps{
		Stores:        stores,
		Verifier:      verifier,
		Notifier:      notifier,
		WebhookSecret: c.Stripe.WebhookSecret,
	}
	if c.Stripe.SecretKey != "" {
		deps.Payments = billing.NewStripeProvider(c.Stripe.SecretKey)
	} else {
		log.Warn().Msg("Stripe is not configured, checkout is disabled")
	}

	srv := server.New(server.Config{
		BaseDomain:  c.Domain,
		Development: c.Development,
		CORSOrigins: c.CORSOrigins,
		Tracing:     c.Tracing,
	}, deps)

	useTLS, err := c.validateTLS()
	if err != nil {
		return err
	}

	httpServer := configureHTTPServer(c.Listen, srv.Handler(log))

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", c.Listen).Str("domain", c.Domain).Bool("tls", useTLS).Msg("Starting HTTP server")
		if useTLS {
			errCh <- httpServer.ListenAndServeTLS(c.Cert, c.Key)
			return
		}
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	log.Info().Msg("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return httpServer.Shutdown(shutdownCtx)
}

// validateTLS requires a certificate outside development mode.
func (c *ServeCmd) validateTLS() (bool, error) {
	if c.Cert == "" && c.Key == "" && c.Development {
		return false, nil
	}
	if c.Cert == "" || c.Key == "" {
		return false, errors.New("TLS certificate and key are required (--cert and --key)")
	}
	if _, err := os.Stat(c.Cert); err != nil {
		return false, fmt.Errorf("TLS certificate not found at %s: %w", c.Cert, err)
	}
	if _, err := os.Stat(c.Key); err != nil {
		return false, fmt.Errorf("TLS key not found at %s: %w", c.Key, err)
	}
	return true, nil
}

func seed(ctx context.Context, log zerolog.Logger, stores *store.Stores, path string) error {
	fixtures, err := bootstrap.LoadFixtures(path)
	if err != nil {
		return err
	}
	res, err := bootstrap.Bootstrap(ctx, bootstrap.Config{Stores: stores, Fixtures: fixtures})
	if err != nil {
		return fmt.Errorf("failed to seed store: %w", err)
	}
	log.Info().
		Int("tenants", res.Tenants).
		Int("users", res.Users).
		Int("templates", res.Templates).
		Int("applications", res.Applications).
		Int("skipped", res.Skipped).
		Str("file", path).
		Msg("Seed fixtures applied")
	return nil
}
