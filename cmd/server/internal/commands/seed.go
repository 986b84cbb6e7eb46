package commands

import (
	"context"

	"github.com/telodox/portal/internal/logger"
	postgresstore "github.com/telodox/portal/internal/store/postgres"
)

// SeedCmd loads YAML fixtures into PostgreSQL. Existing tenants and users are skipped,
// so the command is safe to re-run.
type SeedCmd struct {
	File          string             `arg:"" help:"YAML fixtures file" type:"existingfile"`
	Migrate       bool               `help:"run database migrations before seeding" default:"true" negatable:""`
	PostgresStore PostgresStoreFlags `embed:"" prefix:"postgres-"`
}

func (c *SeedCmd) Run(ctx context.Context, globals *Globals) error {
	log := logger.Setup(globals.Debug)
	ctx = log.WithContext(ctx)

	pool, err := c.PostgresStore.connect(ctx, c.Migrate)
	if err != nil {
		return err
	}
	defer pool.Close()

	return seed(ctx, log, postgresstore.NewStores(pool), c.File)
}
