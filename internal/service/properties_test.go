package service

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/piyushmaurya04/expense-tracker/internal/models"
	"github.com/piyushmaurya04/expense-tracker/internal/storage/sqlite"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

// Сквозные тесты сервиса на встроенной SQLite: проверяют поведение
// сессий и владения записями без моков хранилища.

type liveSvc struct {
	*Service
	st  *sqlite.Storage
	now time.Time
}

func newLiveSvc(t *testing.T) *liveSvc {
	t.Helper()

	st, err := sqlite.New(context.Background(), slog.New(slog.NewTextHandler(io.Discard, nil)), sqlite.MemoryPath)
	require.NoError(t, err)
	t.Cleanup(st.Close)

	svc, err := New(st, testCfg())
	require.NoError(t, err)

	l := &liveSvc{Service: svc, st: st, now: fixedNow}
	svc.now = func() time.Time { return l.now }

	return l
}

type identity struct {
	username, email, password string
}

func fakeIdentity() identity {
	return identity{
		username: gofakeit.LetterN(10),
		email:    strings.ToLower(gofakeit.LetterN(8)) + "@example.com",
		password: gofakeit.Password(true, true, true, false, false, 12),
	}
}

func (l *liveSvc) mustLogin(t *testing.T, id identity) *models.Session {
	t.Helper()

	_, err := l.Register(context.Background(), id.username, id.email, id.password)
	require.NoError(t, err)

	sess, err := l.Login(context.Background(), id.username, id.password)
	require.NoError(t, err)

	return sess
}

func TestLive_RegisterThenLogin_ReturnsMatchingPrincipal(t *testing.T) {
	t.Parallel()

	l := newLiveSvc(t)

	for i := 0; i < 5; i++ {
		id := fakeIdentity()

		user, err := l.Register(context.Background(), id.username, id.email, id.password)
		require.NoError(t, err)

		sess, err := l.Login(context.Background(), id.username, id.password)
		require.NoError(t, err)

		require.Equal(t, user.ID, sess.Principal.ID)
		require.Equal(t, id.username, sess.Principal.Username)
		require.Equal(t, id.email, sess.Principal.Email)
		require.False(t, sess.Principal.CreatedAt.IsZero())
	}
}

func TestLive_Register_UniquenessReportedUsernameFirst(t *testing.T) {
	t.Parallel()

	l := newLiveSvc(t)
	id := fakeIdentity()

	_, err := l.Register(context.Background(), id.username, id.email, id.password)
	require.NoError(t, err)

	_, err = l.Register(context.Background(), id.username, id.email, id.password)
	require.ErrorIs(t, err, ErrUsernameTaken)

	_, err = l.Register(context.Background(), "other"+id.username, id.email, id.password)
	require.ErrorIs(t, err, ErrEmailTaken)
}

func TestLive_Login_EnumerationResistant(t *testing.T) {
	t.Parallel()

	l := newLiveSvc(t)
	id := fakeIdentity()
	l.mustLogin(t, id)

	_, wrongPass := l.Login(context.Background(), id.username, id.password+"x")
	_, noUser := l.Login(context.Background(), "nobody"+id.username, id.password)

	require.ErrorIs(t, wrongPass, ErrBadCredentials)
	require.Equal(t, KindOf(wrongPass), KindOf(noUser))
	require.Equal(t, wrongPass.Error(), noUser.Error())
}

func TestLive_Refresh_KeepsRefreshTokenAndSubject(t *testing.T) {
	t.Parallel()

	l := newLiveSvc(t)
	id := fakeIdentity()
	sess := l.mustLogin(t, id)

	l.now = l.now.Add(time.Hour)

	again, err := l.Refresh(context.Background(), sess.RefreshToken)
	require.NoError(t, err)
	require.Equal(t, sess.RefreshToken, again.RefreshToken)
	require.NotEqual(t, sess.AccessToken, again.AccessToken)

	subject, err := l.tokens.Verify(again.AccessToken, l.now)
	require.NoError(t, err)
	require.Equal(t, id.username, subject)

	// токен не ротируется: повторный refresh той же строкой тоже проходит.
	_, err = l.Refresh(context.Background(), sess.RefreshToken)
	require.NoError(t, err)
}

func TestLive_Refresh_ExpiredTokenIsDeleted(t *testing.T) {
	t.Parallel()

	l := newLiveSvc(t)
	sess := l.mustLogin(t, fakeIdentity())

	l.now = l.now.Add(7*24*time.Hour + time.Second)

	_, err := l.Refresh(context.Background(), sess.RefreshToken)
	require.ErrorIs(t, err, ErrTokenExpired)

	_, err = l.refresh.FindByToken(context.Background(), sess.RefreshToken)
	require.ErrorIs(t, err, ErrTokenNotFound)

	_, err = l.Refresh(context.Background(), sess.RefreshToken)
	require.ErrorIs(t, err, ErrTokenNotFound)
}

func TestLive_SecondLogin_InvalidatesFirstRefreshToken(t *testing.T) {
	t.Parallel()

	l := newLiveSvc(t)
	id := fakeIdentity()
	first := l.mustLogin(t, id)

	second, err := l.Login(context.Background(), id.username, id.password)
	require.NoError(t, err)
	require.NotEqual(t, first.RefreshToken, second.RefreshToken)

	_, err = l.Refresh(context.Background(), first.RefreshToken)
	require.ErrorIs(t, err, ErrTokenNotFound)

	_, err = l.Refresh(context.Background(), second.RefreshToken)
	require.NoError(t, err)
}

func TestLive_Ownership_ForeignRowsForbiddenAndHidden(t *testing.T) {
	t.Parallel()

	l := newLiveSvc(t)
	ctx := context.Background()

	a := l.mustLogin(t, fakeIdentity()).Principal
	b := l.mustLogin(t, fakeIdentity()).Principal

	in := models.RecordInput{
		Title:  gofakeit.ProductName(),
		Amount: decimal.RequireFromString("42.00"),
		Date:   time.Date(2025, 2, 2, 0, 0, 0, 0, time.UTC),
	}

	recA, err := l.CreateRecord(ctx, a, models.KindExpense, in)
	require.NoError(t, err)
	recB, err := l.CreateRecord(ctx, b, models.KindExpense, in)
	require.NoError(t, err)
	require.Equal(t, b.ID, recB.UserID)

	_, err = l.Record(ctx, a, models.KindExpense, recB.ID)
	require.ErrorIs(t, err, ErrForbidden)

	_, err = l.UpdateRecord(ctx, a, models.KindExpense, recB.ID, in)
	require.ErrorIs(t, err, ErrForbidden)

	err = l.DeleteRecord(ctx, a, models.KindExpense, recB.ID)
	require.ErrorIs(t, err, ErrForbidden)

	_, err = l.Record(ctx, a, models.KindExpense, recB.ID+1000)
	require.ErrorIs(t, err, ErrRecordNotFound)

	list, err := l.ListRecords(ctx, a, models.KindExpense, models.RecordFilter{})
	require.NoError(t, err)
	require.Len(t, list, 1)
	require.Equal(t, recA.ID, list[0].ID)

	// строка B не пострадала.
	got, err := l.Record(ctx, b, models.KindExpense, recB.ID)
	require.NoError(t, err)
	require.Equal(t, in.Title, got.Title)

	total, err := l.TotalRecords(ctx, a, models.KindExpense, "")
	require.NoError(t, err)
	require.True(t, total.Equal(decimal.NewFromInt(42)))
}

func TestLive_Logout_AccessTokenStillAuthenticates(t *testing.T) {
	t.Parallel()

	l := newLiveSvc(t)
	sess := l.mustLogin(t, fakeIdentity())

	require.NoError(t, l.Logout(context.Background(), sess.Principal.ID))
	require.NoError(t, l.Logout(context.Background(), sess.Principal.ID))

	_, err := l.Refresh(context.Background(), sess.RefreshToken)
	require.ErrorIs(t, err, ErrTokenNotFound)

	l.now = l.now.Add(23 * time.Hour)
	p, err := l.Authenticate(context.Background(), sess.AccessToken)
	require.NoError(t, err)
	require.Equal(t, sess.Principal.ID, p.ID)

	l.now = l.now.Add(2 * time.Hour)
	_, err = l.Authenticate(context.Background(), sess.AccessToken)
	require.ErrorIs(t, err, ErrUnauthorized)
}

func TestLive_UpdateProfile(t *testing.T) {
	t.Parallel()

	l := newLiveSvc(t)
	ctx := context.Background()

	a := l.mustLogin(t, fakeIdentity()).Principal
	bID := fakeIdentity()
	b := l.mustLogin(t, bID).Principal

	_, err := l.UpdateProfile(ctx, a.ID, ProfileUpdate{Username: &bID.username})
	require.ErrorIs(t, err, ErrUsernameTaken)

	_, err = l.UpdateProfile(ctx, a.ID, ProfileUpdate{Email: &bID.email})
	require.ErrorIs(t, err, ErrEmailTaken)

	_, err = l.UpdateProfile(ctx, b.ID, ProfileUpdate{Username: &bID.username, Email: &bID.email})
	require.NoError(t, err)

	newName := "renamed" + a.Username
	u, err := l.UpdateProfile(ctx, a.ID, ProfileUpdate{Username: &newName})
	require.NoError(t, err)
	require.Equal(t, newName, u.Username)

	stored, err := l.Profile(ctx, a.ID)
	require.NoError(t, err)
	require.Equal(t, newName, stored.Username)
	require.Equal(t, a.Email, stored.Email)
}
