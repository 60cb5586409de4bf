package app

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/vmud/newshub/internal/cli"
	"github.com/vmud/newshub/internal/company"
	"github.com/vmud/newshub/internal/db"
)

func runMigrate(args []string) int {
	fs := flag.NewFlagSet("migrate", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	envLoader := cli.AddEnvFlag(fs, ".env", "Path to the .env file")
	timeout := fs.Duration("timeout", time.Minute, "Command timeout")
	skipSeed := fs.Bool("skip-seed", false, "Apply the schema without seeding tracked companies")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}

	cfg, logger, ok := loadRuntime(envLoader)
	if !ok {
		return 1
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	// NewPool applies the schema.
	pool, err := db.NewPool(ctx, cfg)
	if err != nil {
		logger.Error().Err(err).Msg("migration failed")
		fmt.Fprintf(os.Stderr, "Migration failed: %v\n", err)
		return 1
	}
	defer pool.Close()

	if !*skipSeed {
		dir, err := company.LoadDirectory(cfg.CompaniesFile)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Load companies: %v\n", err)
			return 1
		}
		if err := ensureCompanies(ctx, pool, dir, logger); err != nil {
			logger.Error().Err(err).Msg("company seed failed")
			fmt.Fprintf(os.Stderr, "Company seed failed: %v\n", err)
			return 1
		}
	}

	logger.Info().Bool("seeded", !*skipSeed).Msg("migration complete")
	fmt.Println("ok: schema applied")
	return 0
}
