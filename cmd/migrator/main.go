// migrator накатывает (или откатывает) миграции Postgres из каталога migrations/postgres.
// Для SQLite не нужен: схема применяется при открытии хранилища.
package main

import (
	"errors"
	"flag"
	"log/slog"
	"os"
	"strings"

	"github.com/golang-migrate/migrate/v4"

	"github.com/piyushmaurya04/expense-tracker/internal/config"
	"github.com/piyushmaurya04/expense-tracker/internal/storage/postgres"
)

func main() {
	var (
		configPath string
		dir        string
		down       bool
		steps      int
	)
	flag.StringVar(&configPath, "config", "", "path to config file (or use CONFIG_PATH env)")
	flag.StringVar(&dir, "path", "migrations/postgres", "migrations directory")
	flag.BoolVar(&down, "down", false, "roll migrations back instead of applying")
	flag.IntVar(&steps, "steps", 0, "number of migrations to apply/roll back (0 = all)")
	flag.Parse()

	log := slog.New(slog.NewTextHandler(os.Stdout, nil))

	cfg := config.MustLoad(configPath)
	if !strings.EqualFold(cfg.DB.Driver, config.DriverPostgres) {
		log.Info("migrations_skipped", slog.String("driver", cfg.DB.Driver))
		return
	}

	m, err := postgres.NewMigrator(dir, cfg.DB.DatabaseURL)
	if err != nil {
		log.Error("migrator_init_failed", slog.String("err", err.Error()))
		os.Exit(1)
	}
	defer m.Close()

	switch {
	case steps > 0 && down:
		err = m.Steps(-steps)
	case steps > 0:
		err = m.Steps(steps)
	case down:
		err = m.Down()
	default:
		err = m.Up()
	}

	if err != nil {
		if errors.Is(err, migrate.ErrNoChange) {
			log.Info("no_migrations_to_apply")
			return
		}

		log.Error("migration_failed", slog.String("err", err.Error()))
		os.Exit(1)
	}

	version, dirty, err := m.Version()
	if err != nil && !errors.Is(err, migrate.ErrNilVersion) {
		log.Error("migration_version_failed", slog.String("err", err.Error()))
		os.Exit(1)
	}

	log.Info("migrations_applied",
		slog.Uint64("version", uint64(version)),
		slog.Bool("dirty", dirty),
		slog.Bool("down", down),
	)
}
