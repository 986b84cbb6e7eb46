package commands

import (
	"context"

	"github.com/telodox/portal/internal/logger"
)

// MigrateCmd applies the embedded schema migrations to PostgreSQL.
type MigrateCmd struct {
	PostgresStore PostgresStoreFlags `embed:"" prefix:"postgres-"`
}

func (c *MigrateCmd) Run(ctx context.Context, globals *Globals) error {
	log := logger.Setup(globals.Debug)
	ctx = log.WithContext(ctx)

	pool, err := c.PostgresStore.connect(ctx, true)
	if err != nil {
		return err
	}
	defer pool.Close()

	log.Info().Msg("Database migrations completed")
	return nil
}
