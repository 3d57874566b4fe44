package postgres

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/piyushmaurya04/expense-tracker/internal/models"

	"github.com/stretchr/testify/require"
	tc "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

// Файл общих хелперов интеграционных тестов пакета postgres:
// - поднимает реальный PostgreSQL через testcontainers-go (образ postgres:16-alpine);
// - применяет миграции из ./migrations/postgres через golang-migrate (MigrateUp).
//
// Запуск локально:
//   GO_TEST_INTEGRATION=1 go test ./internal/storage/postgres -v -race -count=1

// repoRootFromThisFile — определяет корень репозитория относительно текущего файла тестов.
func repoRootFromThisFile() string {
	// internal/storage/postgres/... -> подняться на 3 уровня до корня.
	_, thisFile, _, _ := runtime.Caller(0)
	return filepath.Clean(filepath.Join(filepath.Dir(thisFile), "..", "..", ".."))
}

// startPostgres — поднимает временный экземпляр PostgreSQL, применяет миграции
// и возвращает инициализированное хранилище и функцию очистки.
// Если переменная окружения GO_TEST_INTEGRATION не установлена — тест пропускается.
func startPostgres(t *testing.T) (*Storage, func()) {
	t.Helper()
	if os.Getenv("GO_TEST_INTEGRATION") == "" {
		t.Skip("integration tests are disabled (set GO_TEST_INTEGRATION=1)")
	}

	ctx := context.Background()
	req := tc.ContainerRequest{
		Image:        "postgres:16-alpine",
		Env:          map[string]string{"POSTGRES_USER": "user", "POSTGRES_PASSWORD": "pass", "POSTGRES_DB": "db"},
		ExposedPorts: []string{"5432/tcp"},
		WaitingFor: wait.ForLog("database system is ready to accept connections").
			WithOccurrence(2).
			WithStartupTimeout(60 * time.Second),
	}
	c, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{ContainerRequest: req, Started: true})
	require.NoError(t, err)

	host, err := c.Host(ctx)
	require.NoError(t, err)
	port, err := c.MappedPort(ctx, "5432/tcp")
	require.NoError(t, err)
	dsn := fmt.Sprintf("postgres://user:pass@%s:%s/db?sslmode=disable", host, port.Port())

	require.NoError(t, MigrateUp(filepath.Join(repoRootFromThisFile(), "migrations", "postgres"), dsn))

	st, err := New(ctx, dsn)
	require.NoError(t, err)

	cleanup := func() {
		st.Close()
		_ = c.Terminate(context.Background())
	}
	return st, cleanup
}

// mustUser — создает пользователя с уникальными username/email.
func mustUser(t *testing.T, st *Storage, name string) *models.User {
	t.Helper()

	u := &models.User{
		Username:     name,
		Email:        name + "@example.com",
		PasswordHash: "hash",
	}
	require.NoError(t, st.SaveUser(context.Background(), u))
	require.NotZero(t, u.ID)

	return u
}

func TestPgx5URL(t *testing.T) {
	t.Parallel()

	require.Equal(t, "pgx5://u:p@h:5432/db", pgx5URL("postgres://u:p@h:5432/db"))
	require.Equal(t, "pgx5://u:p@h/db", pgx5URL("postgresql://u:p@h/db"))
	require.Equal(t, "pgx5://h/db", pgx5URL("pgx5://h/db"))
}
