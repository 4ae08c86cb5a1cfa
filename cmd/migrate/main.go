// Package main applies the embedded expedition schema migrations.
package main

import (
	"errors"
	"flag"
	"fmt"
	"log"
	"time"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"go.uber.org/zap"

	"github.com/cory-johannsen/delve/internal/config"
	"github.com/cory-johannsen/delve/internal/observability"
	"github.com/cory-johannsen/delve/migrations"
)

func main() {
	configPath := flag.String("config", "configs/dev.yaml", "path to configuration file")
	direction := flag.String("direction", "up", "migration direction: up or down")
	steps := flag.Int("steps", 0, "number of steps (0 = all)")
	flag.Parse()

	// delved validates the whole file; the migrator needs only logging and
	// database, so it reads those two sections directly.
	v := config.NewViper()
	v.SetConfigFile(*configPath)
	if err := v.ReadInConfig(); err != nil {
		log.Fatalf("reading config: %v", err)
	}
	var logCfg config.LoggingConfig
	var dbCfg config.DatabaseConfig
	if err := v.UnmarshalKey("logging", &logCfg); err != nil {
		log.Fatalf("parsing logging config: %v", err)
	}
	if err := v.UnmarshalKey("database", &dbCfg); err != nil {
		log.Fatalf("parsing database config: %v", err)
	}

	logger, err := observability.NewLogger(logCfg)
	if err != nil {
		log.Fatalf("initializing logger: %v", err)
	}
	defer logger.Sync()

	if err := run(dbCfg, *direction, *steps, logger); err != nil {
		logger.Fatal("migrating expedition schema", zap.Error(err))
	}
}

// run moves the schema at dbCfg in direction by steps, or all the way when
// steps is zero.
func run(dbCfg config.DatabaseConfig, direction string, steps int, logger *zap.Logger) error {
	start := time.Now()
	if direction != "up" && direction != "down" {
		return fmt.Errorf("invalid direction %q: must be up or down", direction)
	}

	src, err := iofs.New(migrations.FS, ".")
	if err != nil {
		return fmt.Errorf("opening embedded migrations: %w", err)
	}
	m, err := migrate.NewWithSourceInstance("iofs", src, dbCfg.DSN())
	if err != nil {
		return fmt.Errorf("creating migrator for %s:%d/%s: %w", dbCfg.Host, dbCfg.Port, dbCfg.Name, err)
	}
	defer m.Close()

	switch {
	case steps > 0 && direction == "down":
		err = m.Steps(-steps)
	case steps > 0:
		err = m.Steps(steps)
	case direction == "down":
		err = m.Down()
	default:
		err = m.Up()
	}
	changed := !errors.Is(err, migrate.ErrNoChange)
	if err != nil && changed {
		return fmt.Errorf("migrating %s: %w", direction, err)
	}

	version, dirty, _ := m.Version()
	logger.Info("expedition schema migrated",
		zap.String("direction", direction),
		zap.Bool("changed", changed),
		zap.Uint("version", version),
		zap.Bool("dirty", dirty),
		zap.Duration("elapsed", time.Since(start)),
	)
	return nil
}
