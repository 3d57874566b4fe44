package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/piyushmaurya04/expense-tracker/internal/models"
	"github.com/piyushmaurya04/expense-tracker/internal/storage"

	"github.com/stretchr/testify/require"
)

// Интеграционные тесты refresh_token.go:
// замена токенов пользователя в транзакции, поиск, удаление и идемпотентность.

func newToken(userID int64, hash string, ttl time.Duration) *models.RefreshToken {
	now := time.Now().UTC().Truncate(time.Microsecond)
	return &models.RefreshToken{
		TokenHash: hash,
		UserID:    userID,
		CreatedAt: now,
		ExpiresAt: now.Add(ttl),
	}
}

// TestIntegration_ReplaceRefreshToken_KeepsSingleToken — новый токен вытесняет прежний.
func TestIntegration_ReplaceRefreshToken_KeepsSingleToken(t *testing.T) {
	st, cleanup := startPostgres(t)
	defer cleanup()

	ctx := context.Background()
	u := mustUser(t, st, "erin")

	first := newToken(u.ID, "a1", time.Hour)
	require.NoError(t, st.ReplaceRefreshToken(ctx, first))

	got, err := st.RefreshTokenByHash(ctx, "a1")
	require.NoError(t, err)
	require.Equal(t, u.ID, got.UserID)
	require.WithinDuration(t, first.ExpiresAt, got.ExpiresAt, time.Millisecond)

	require.NoError(t, st.ReplaceRefreshToken(ctx, newToken(u.ID, "b2", time.Hour)))

	_, err = st.RefreshTokenByHash(ctx, "a1")
	require.ErrorIs(t, err, storage.ErrNotFound)

	_, err = st.RefreshTokenByHash(ctx, "b2")
	require.NoError(t, err)
}

// TestIntegration_ReplaceRefreshToken_FailedInsertKeepsOldToken — при ошибке вставки
// удаление старого токена откатывается.
func TestIntegration_ReplaceRefreshToken_FailedInsertKeepsOldToken(t *testing.T) {
	st, cleanup := startPostgres(t)
	defer cleanup()

	ctx := context.Background()
	a := mustUser(t, st, "frank")
	b := mustUser(t, st, "grace")

	require.NoError(t, st.ReplaceRefreshToken(ctx, newToken(a.ID, "fa", time.Hour)))
	require.NoError(t, st.ReplaceRefreshToken(ctx, newToken(b.ID, "gb", time.Hour)))

	// хэш уже занят пользователем b -> unique violation внутри транзакции a.
	err := st.ReplaceRefreshToken(ctx, newToken(a.ID, "gb", time.Hour))
	require.ErrorIs(t, err, storage.ErrAlreadyExists)

	got, err := st.RefreshTokenByHash(ctx, "fa")
	require.NoError(t, err)
	require.Equal(t, a.ID, got.UserID)
}

// TestIntegration_DeleteRefreshTokens — удаление по хэшу и по пользователю, идемпотентно.
func TestIntegration_DeleteRefreshTokens(t *testing.T) {
	st, cleanup := startPostgres(t)
	defer cleanup()

	ctx := context.Background()
	u := mustUser(t, st, "heidi")

	require.NoError(t, st.ReplaceRefreshToken(ctx, newToken(u.ID, "h1", time.Hour)))
	require.NoError(t, st.DeleteRefreshToken(ctx, "h1"))
	require.NoError(t, st.DeleteRefreshToken(ctx, "h1"))

	_, err := st.RefreshTokenByHash(ctx, "h1")
	require.ErrorIs(t, err, storage.ErrNotFound)

	require.NoError(t, st.ReplaceRefreshToken(ctx, newToken(u.ID, "h2", time.Hour)))
	require.NoError(t, st.DeleteUserRefreshTokens(ctx, u.ID))
	require.NoError(t, st.DeleteUserRefreshTokens(ctx, u.ID))

	_, err = st.RefreshTokenByHash(ctx, "h2")
	require.ErrorIs(t, err, storage.ErrNotFound)
}

// TestIntegration_DeleteExpiredRefreshTokens — чистятся только просроченные токены.
func TestIntegration_DeleteExpiredRefreshTokens(t *testing.T) {
	st, cleanup := startPostgres(t)
	defer cleanup()

	ctx := context.Background()
	a := mustUser(t, st, "ivan")
	b := mustUser(t, st, "judy")

	require.NoError(t, st.ReplaceRefreshToken(ctx, newToken(a.ID, "stale", -time.Minute)))
	require.NoError(t, st.ReplaceRefreshToken(ctx, newToken(b.ID, "fresh", time.Hour)))

	n, err := st.DeleteExpiredRefreshTokens(ctx, time.Now().UTC())
	require.NoError(t, err)
	require.EqualValues(t, 1, n)

	_, err = st.RefreshTokenByHash(ctx, "stale")
	require.ErrorIs(t, err, storage.ErrNotFound)
	_, err = st.RefreshTokenByHash(ctx, "fresh")
	require.NoError(t, err)
}
