package postgres

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/pgx/v5" // драйвер pgx5://
	_ "github.com/golang-migrate/migrate/v4/source/file"     // источник file://
)

// NewMigrator создает golang-migrate для каталога миграций dir и DSN dbURL.
// DSN вида postgres:// или postgresql:// переводится в схему драйвера pgx5://.
func NewMigrator(dir, dbURL string) (*migrate.Migrate, error) {
	const op = "storage.postgres.NewMigrator"

	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	m, err := migrate.New("file://"+filepath.ToSlash(abs), pgx5URL(dbURL))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return m, nil
}

// MigrateUp применяет все миграции; отсутствие изменений не ошибка.
func MigrateUp(dir, dbURL string) error {
	const op = "storage.postgres.MigrateUp"

	m, err := NewMigrator(dir, dbURL)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	defer m.Close()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

func pgx5URL(dbURL string) string {
	for _, prefix := range []string{"postgres://", "postgresql://"} {
		if strings.HasPrefix(dbURL, prefix) {
			return "pgx5://" + strings.TrimPrefix(dbURL, prefix)
		}
	}

	return dbURL
}
