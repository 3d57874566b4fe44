// Package sqlite реализует storage.Storage поверх встроенной SQLite
// (modernc.org/sqlite, без cgo). Схема накатывается goose-миграциями из
// встроенного каталога migrations при открытии.
package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/piyushmaurya04/expense-tracker/internal/storage"

	"github.com/pressly/goose/v3"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

//go:embed migrations/*.sql
var migrations embed.FS

// MemoryPath — путь для БД в памяти (тесты, локальный запуск).
const MemoryPath = ":memory:"

// timeLayout — формат хранения отметок времени (UTC).
const timeLayout = time.RFC3339Nano

type Storage struct {
	db  *sql.DB
	now func() time.Time
}

// New открывает (и при необходимости создает) БД по пути path и накатывает миграции.
func New(ctx context.Context, logger *slog.Logger, path string) (*Storage, error) {
	const op = "storage.sqlite.New"

	dsn := path
	if path != MemoryPath {
		const userOnlyDirPerms = 0o700
		if err := os.MkdirAll(filepath.Dir(path), userOnlyDirPerms); err != nil {
			return nil, fmt.Errorf("%s: create db parent directory: %w", op, err)
		}
		dsn += "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	} else {
		dsn += "?_pragma=foreign_keys(1)"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	// одно соединение: :memory: живёт в пределах соединения, а запись в SQLite всё равно последовательна.
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if err := migrate(ctx, logger, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &Storage{db: db, now: time.Now}, nil
}

func migrate(ctx context.Context, logger *slog.Logger, db *sql.DB) error {
	fsys, err := fs.Sub(migrations, "migrations")
	if err != nil {
		return err
	}

	provider, err := goose.NewProvider(goose.DialectSQLite3, db, fsys)
	if err != nil {
		return fmt.Errorf("goose provider: %w", err)
	}

	results, err := provider.Up(ctx)
	if err != nil {
		return fmt.Errorf("goose up: %w", err)
	}

	for _, r := range results {
		logger.Debug("sqlite_migration_applied",
			slog.Int64("version", r.Source.Version),
			slog.Duration("dur", r.Duration),
		)
	}

	return nil
}

// Ping проверяет доступность БД.
func (s *Storage) Ping(ctx context.Context) error {
	const op = "storage.sqlite.Ping"

	if err := s.db.PingContext(ctx); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

// Close закрывает БД.
func (s *Storage) Close() {
	_ = s.db.Close()
}

// uniqueViolation мапит нарушение уникальности в sentinel-ошибку storage.
// Возвращает nil, если err не является unique violation.
func uniqueViolation(err error) error {
	var sqlErr *sqlite.Error
	if !errors.As(err, &sqlErr) {
		return nil
	}

	// SQLite не сообщает имя ограничения, только колонку: "UNIQUE constraint failed: users.username".
	msg := sqlErr.Error()
	if sqlErr.Code() != sqlite3.SQLITE_CONSTRAINT_UNIQUE && !strings.Contains(msg, "UNIQUE constraint failed") {
		return nil
	}

	switch {
	case strings.Contains(msg, "users.username"):
		return storage.ErrUsernameExists
	case strings.Contains(msg, "users.email"):
		return storage.ErrEmailExists
	default:
		return storage.ErrAlreadyExists
	}
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse time %q: %w", s, err)
	}

	return t.UTC(), nil
}

// Проверка на соответствие интерфейсу Storage.
var _ storage.Storage = (*Storage)(nil)
