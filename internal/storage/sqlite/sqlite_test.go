package sqlite

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/piyushmaurya04/expense-tracker/internal/models"
	"github.com/piyushmaurya04/expense-tracker/internal/storage"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

// Тесты пакета sqlite работают на настоящей встроенной БД (:memory:),
// поэтому не требуют Docker и запускаются всегда.

func newStorage(t *testing.T) *Storage {
	t.Helper()

	st, err := New(context.Background(), slog.New(slog.NewTextHandler(io.Discard, nil)), MemoryPath)
	require.NoError(t, err)
	t.Cleanup(st.Close)

	return st
}

func mustUser(t *testing.T, st *Storage) *models.User {
	t.Helper()

	u := &models.User{
		Username:     gofakeit.LetterN(12),
		Email:        gofakeit.LetterN(10) + "@example.com",
		PasswordHash: "hash",
	}
	require.NoError(t, st.SaveUser(context.Background(), u))
	require.NotZero(t, u.ID)

	return u
}

func day(t *testing.T, s string) time.Time {
	t.Helper()
	d, err := models.ParseDate(s)
	require.NoError(t, err)
	return d
}

func TestNew_FileDatabase_MigratesOnce(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "nested", "tracker.db")
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	st, err := New(context.Background(), logger, path)
	require.NoError(t, err)
	u := mustUser(t, st)
	st.Close()

	// повторное открытие: миграции уже применены, данные на месте.
	st, err = New(context.Background(), logger, path)
	require.NoError(t, err)
	defer st.Close()

	got, err := st.UserByID(context.Background(), u.ID)
	require.NoError(t, err)
	require.Equal(t, u.Username, got.Username)
	require.NoError(t, st.Ping(context.Background()))
}

func TestUsers_SaveAndLookup(t *testing.T) {
	t.Parallel()

	st := newStorage(t)
	fixed := time.Date(2025, 10, 1, 12, 0, 0, 0, time.UTC)
	st.now = func() time.Time { return fixed }

	ctx := context.Background()
	u := mustUser(t, st)
	require.Equal(t, fixed, u.CreatedAt)

	byName, err := st.UserByUsername(ctx, u.Username)
	require.NoError(t, err)
	require.Equal(t, u.ID, byName.ID)
	require.Equal(t, fixed, byName.CreatedAt)

	byEmail, err := st.UserByEmail(ctx, u.Email)
	require.NoError(t, err)
	require.Equal(t, u.ID, byEmail.ID)

	_, err = st.UserByID(ctx, u.ID+100)
	require.ErrorIs(t, err, storage.ErrNotFound)
}

func TestUsers_UniqueViolations(t *testing.T) {
	t.Parallel()

	st := newStorage(t)
	ctx := context.Background()
	u := mustUser(t, st)

	err := st.SaveUser(ctx, &models.User{Username: u.Username, Email: "new@example.com", PasswordHash: "h"})
	require.ErrorIs(t, err, storage.ErrUsernameExists)

	err = st.SaveUser(ctx, &models.User{Username: "newname", Email: u.Email, PasswordHash: "h"})
	require.ErrorIs(t, err, storage.ErrEmailExists)
}

func TestUsers_Update(t *testing.T) {
	t.Parallel()

	st := newStorage(t)
	ctx := context.Background()
	a := mustUser(t, st)
	b := mustUser(t, st)

	a.Username = "renamed"
	require.NoError(t, st.UpdateUser(ctx, a))

	got, err := st.UserByUsername(ctx, "renamed")
	require.NoError(t, err)
	require.Equal(t, a.ID, got.ID)

	a.Username = b.Username
	require.ErrorIs(t, st.UpdateUser(ctx, a), storage.ErrUsernameExists)

	require.ErrorIs(t, st.UpdateUser(ctx, &models.User{ID: 9999, Username: "x", Email: "x@x.io"}), storage.ErrNotFound)
}

func TestRefreshTokens_ReplaceFindDelete(t *testing.T) {
	t.Parallel()

	st := newStorage(t)
	ctx := context.Background()
	u := mustUser(t, st)
	now := time.Now().UTC()

	first := &models.RefreshToken{TokenHash: "h1", UserID: u.ID, CreatedAt: now, ExpiresAt: now.Add(time.Hour)}
	require.NoError(t, st.ReplaceRefreshToken(ctx, first))

	got, err := st.RefreshTokenByHash(ctx, "h1")
	require.NoError(t, err)
	require.Equal(t, u.ID, got.UserID)
	require.True(t, first.ExpiresAt.Equal(got.ExpiresAt))

	second := &models.RefreshToken{TokenHash: "h2", UserID: u.ID, CreatedAt: now, ExpiresAt: now.Add(time.Hour)}
	require.NoError(t, st.ReplaceRefreshToken(ctx, second))

	_, err = st.RefreshTokenByHash(ctx, "h1")
	require.ErrorIs(t, err, storage.ErrNotFound)

	require.NoError(t, st.DeleteRefreshToken(ctx, "h2"))
	require.NoError(t, st.DeleteRefreshToken(ctx, "h2"))
	_, err = st.RefreshTokenByHash(ctx, "h2")
	require.ErrorIs(t, err, storage.ErrNotFound)

	require.NoError(t, st.DeleteUserRefreshTokens(ctx, u.ID))
}

func TestRefreshTokens_FailedReplaceRollsBack(t *testing.T) {
	t.Parallel()

	st := newStorage(t)
	ctx := context.Background()
	a := mustUser(t, st)
	b := mustUser(t, st)
	now := time.Now().UTC()

	require.NoError(t, st.ReplaceRefreshToken(ctx, &models.RefreshToken{TokenHash: "ta", UserID: a.ID, CreatedAt: now, ExpiresAt: now.Add(time.Hour)}))
	require.NoError(t, st.ReplaceRefreshToken(ctx, &models.RefreshToken{TokenHash: "tb", UserID: b.ID, CreatedAt: now, ExpiresAt: now.Add(time.Hour)}))

	err := st.ReplaceRefreshToken(ctx, &models.RefreshToken{TokenHash: "tb", UserID: a.ID, CreatedAt: now, ExpiresAt: now.Add(time.Hour)})
	require.ErrorIs(t, err, storage.ErrAlreadyExists)

	got, err := st.RefreshTokenByHash(ctx, "ta")
	require.NoError(t, err)
	require.Equal(t, a.ID, got.UserID)
}

func TestRefreshTokens_DeleteExpired(t *testing.T) {
	t.Parallel()

	st := newStorage(t)
	ctx := context.Background()
	a := mustUser(t, st)
	b := mustUser(t, st)
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	// дробная часть секунд у одного токена и её отсутствие у границы.
	require.NoError(t, st.ReplaceRefreshToken(ctx, &models.RefreshToken{
		TokenHash: "old", UserID: a.ID, CreatedAt: now, ExpiresAt: now.Add(-500 * time.Millisecond),
	}))
	require.NoError(t, st.ReplaceRefreshToken(ctx, &models.RefreshToken{
		TokenHash: "live", UserID: b.ID, CreatedAt: now, ExpiresAt: now.Add(500 * time.Millisecond),
	}))

	n, err := st.DeleteExpiredRefreshTokens(ctx, now)
	require.NoError(t, err)
	require.EqualValues(t, 1, n)

	_, err = st.RefreshTokenByHash(ctx, "old")
	require.ErrorIs(t, err, storage.ErrNotFound)
	_, err = st.RefreshTokenByHash(ctx, "live")
	require.NoError(t, err)
}

func TestRecords_CRUD_Filters_And_Isolation(t *testing.T) {
	t.Parallel()

	st := newStorage(t)
	ctx := context.Background()
	a := mustUser(t, st)
	b := mustUser(t, st)

	recs := []*models.Record{
		{Kind: models.KindExpense, UserID: a.ID, Title: "coffee", Category: "food", Amount: decimal.RequireFromString("3.50"), Date: day(t, "2025-10-01")},
		{Kind: models.KindExpense, UserID: a.ID, Title: "rent", Category: "home", Amount: decimal.RequireFromString("900"), Date: day(t, "2025-10-05")},
		{Kind: models.KindExpense, UserID: b.ID, Title: "book", Category: "food", Amount: decimal.RequireFromString("12.25"), Date: day(t, "2025-10-03")},
		{Kind: models.KindIncome, UserID: a.ID, Title: "salary", Amount: decimal.RequireFromString("2500.10"), Date: day(t, "2025-10-01")},
	}
	for _, r := range recs {
		require.NoError(t, st.SaveRecord(ctx, r))
		require.NotZero(t, r.ID)
	}

	got, err := st.RecordByID(ctx, models.KindExpense, recs[0].ID)
	require.NoError(t, err)
	require.Equal(t, "coffee", got.Title)
	require.True(t, decimal.RequireFromString("3.5").Equal(got.Amount))
	require.Equal(t, "2025-10-01", got.Date.Format(models.DateLayout))

	// расходы и доходы живут в разных таблицах.
	_, err = st.RecordByID(ctx, models.KindIncome, recs[2].ID)
	require.ErrorIs(t, err, storage.ErrNotFound)

	list, err := st.ListRecords(ctx, models.KindExpense, a.ID, models.RecordFilter{})
	require.NoError(t, err)
	require.Len(t, list, 2)
	require.Equal(t, "rent", list[0].Title)
	for _, r := range list {
		require.Equal(t, a.ID, r.UserID)
	}

	food, err := st.ListRecords(ctx, models.KindExpense, a.ID, models.RecordFilter{Category: "food"})
	require.NoError(t, err)
	require.Len(t, food, 1)

	from, to := day(t, "2025-10-01"), day(t, "2025-10-04")
	ranged, err := st.ListRecords(ctx, models.KindExpense, a.ID, models.RecordFilter{From: &from, To: &to})
	require.NoError(t, err)
	require.Len(t, ranged, 1)
	require.Equal(t, "coffee", ranged[0].Title)

	total, err := st.SumRecords(ctx, models.KindExpense, a.ID, "")
	require.NoError(t, err)
	require.Equal(t, "903.5", total.String())

	income, err := st.SumRecords(ctx, models.KindIncome, a.ID, "")
	require.NoError(t, err)
	require.Equal(t, "2500.1", income.String())

	none, err := st.SumRecords(ctx, models.KindExpense, a.ID, "travel")
	require.NoError(t, err)
	require.True(t, none.IsZero())

	n, err := st.CountRecords(ctx, models.KindExpense, b.ID)
	require.NoError(t, err)
	require.EqualValues(t, 1, n)

	foreign := *recs[2]
	foreign.UserID = a.ID
	require.ErrorIs(t, st.UpdateRecord(ctx, &foreign), storage.ErrNotFound)
	require.ErrorIs(t, st.DeleteRecord(ctx, models.KindExpense, recs[2].ID, a.ID), storage.ErrNotFound)

	recs[0].Title = "espresso"
	recs[0].Amount = decimal.RequireFromString("4")
	require.NoError(t, st.UpdateRecord(ctx, recs[0]))

	got, err = st.RecordByID(ctx, models.KindExpense, recs[0].ID)
	require.NoError(t, err)
	require.Equal(t, "espresso", got.Title)
	require.Equal(t, "4", got.Amount.String())

	require.NoError(t, st.DeleteRecord(ctx, models.KindExpense, recs[1].ID, a.ID))
	_, err = st.RecordByID(ctx, models.KindExpense, recs[1].ID)
	require.ErrorIs(t, err, storage.ErrNotFound)
}

func TestRecords_UnknownKind(t *testing.T) {
	t.Parallel()

	st := newStorage(t)

	_, err := st.RecordByID(context.Background(), models.RecordKind("loan"), 1)
	require.Error(t, err)
	require.NotErrorIs(t, err, storage.ErrNotFound)
}
