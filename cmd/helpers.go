package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/mirage-db/mirage/database"
	"github.com/mirage-db/mirage/runner"
	"github.com/mirage-db/mirage/schema"
	"github.com/mirage-db/mirage/utils"
)

// newRunner builds a runner against the configured migrations directory.
// Commands that never touch the live database pass connect=false and get a
// runner without an executor or introspector.
func newRunner(ctx context.Context, connect bool) (*runner.Runner, *utils.Config, error) {
	cfg, err := utils.LoadConfig()
	if err != nil {
		return nil, nil, err
	}

	if !connect {
		return runner.New(cfg.MigrationsDir, nil, nil), cfg, nil
	}

	session, err := database.Connect(ctx)
	if err != nil {
		return nil, nil, err
	}
	return runner.New(cfg.MigrationsDir, session, session), cfg, nil
}

// loadDeclaredSchema reads the snapshot the code declares, from the
// configured schema file.
func loadDeclaredSchema(cfg *utils.Config) (*schema.SchemaSnapshot, error) {
	if _, err := os.Stat(cfg.SchemaFile); err != nil {
		return nil, fmt.Errorf("schema file %s not found; run 'mirage init' first", cfg.SchemaFile)
	}
	return schema.LoadFile(cfg.SchemaFile)
}
