package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/piyushmaurya04/expense-tracker/internal/models"
	"github.com/piyushmaurya04/expense-tracker/internal/storage"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

// Интеграционные тесты records.go: CRUD, фильтры, агрегаты и изоляция владельцев.

func day(s string) time.Time {
	d, err := models.ParseDate(s)
	if err != nil {
		panic(err)
	}
	return d
}

func TestIntegration_Records_CRUD_And_Isolation(t *testing.T) {
	st, cleanup := startPostgres(t)
	defer cleanup()

	ctx := context.Background()
	a := mustUser(t, st, "ivan")
	b := mustUser(t, st, "judy")

	recs := []*models.Record{
		{Kind: models.KindExpense, UserID: a.ID, Title: "coffee", Category: "food", Amount: decimal.RequireFromString("3.50"), Date: day("2025-10-01")},
		{Kind: models.KindExpense, UserID: a.ID, Title: "rent", Category: "home", Amount: decimal.RequireFromString("900"), Date: day("2025-10-05")},
		{Kind: models.KindExpense, UserID: b.ID, Title: "book", Category: "food", Amount: decimal.RequireFromString("12.25"), Date: day("2025-10-03")},
		{Kind: models.KindIncome, UserID: a.ID, Title: "salary", Amount: decimal.RequireFromString("2500"), Date: day("2025-10-01")},
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

	from, to := day("2025-10-02"), day("2025-10-05")
	ranged, err := st.ListRecords(ctx, models.KindExpense, a.ID, models.RecordFilter{From: &from, To: &to})
	require.NoError(t, err)
	require.Len(t, ranged, 1)
	require.Equal(t, "rent", ranged[0].Title)

	total, err := st.SumRecords(ctx, models.KindExpense, a.ID, "")
	require.NoError(t, err)
	require.True(t, decimal.RequireFromString("903.5").Equal(total), total.String())

	empty, err := st.SumRecords(ctx, models.KindExpense, a.ID, "travel")
	require.NoError(t, err)
	require.True(t, empty.IsZero())

	n, err := st.CountRecords(ctx, models.KindIncome, a.ID)
	require.NoError(t, err)
	require.EqualValues(t, 1, n)

	// чужая запись не обновляется и не удаляется.
	foreign := *recs[2]
	foreign.UserID = a.ID
	foreign.Title = "hijack"
	require.ErrorIs(t, st.UpdateRecord(ctx, &foreign), storage.ErrNotFound)
	require.ErrorIs(t, st.DeleteRecord(ctx, models.KindExpense, recs[2].ID, a.ID), storage.ErrNotFound)

	recs[0].Title = "espresso"
	require.NoError(t, st.UpdateRecord(ctx, recs[0]))
	require.NoError(t, st.DeleteRecord(ctx, models.KindExpense, recs[1].ID, a.ID))

	_, err = st.RecordByID(ctx, models.KindExpense, recs[1].ID)
	require.ErrorIs(t, err, storage.ErrNotFound)
}
