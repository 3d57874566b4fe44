package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/piyushmaurya04/expense-tracker/internal/models"
	"github.com/piyushmaurya04/expense-tracker/internal/storage"

	"github.com/shopspring/decimal"
)

// Суммы хранятся в копейках (INTEGER): SUM без потерь точности.
func toCents(d decimal.Decimal) int64 {
	return d.Shift(2).Round(0).IntPart()
}

func fromCents(c int64) decimal.Decimal {
	return decimal.New(c, -2)
}

func recordColumns(t storage.Table) string {
	return "id, user_id, title, category, amount_cents, " + t.DateCol + ", note, created_at"
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(row scanner, kind models.RecordKind) (*models.Record, error) {
	var (
		rec             = models.Record{Kind: kind}
		cents           int64
		date, createdAt string
	)

	if err := row.Scan(&rec.ID, &rec.UserID, &rec.Title, &rec.Category, &cents, &date, &rec.Note, &createdAt); err != nil {
		return nil, err
	}

	var err error
	if rec.Date, err = models.ParseDate(date); err != nil {
		return nil, err
	}
	if rec.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	rec.Amount = fromCents(cents)

	return &rec, nil
}

// SaveRecord создает запись.
func (s *Storage) SaveRecord(ctx context.Context, rec *models.Record) error {
	const op = "storage.sqlite.SaveRecord"

	t, err := storage.TableFor(rec.Kind)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	createdAt := s.now().UTC()
	query := fmt.Sprintf(
		`INSERT INTO %s(user_id, title, category, amount_cents, %s, note, created_at) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		t.Name, t.DateCol,
	)

	res, err := s.db.ExecContext(ctx, query,
		rec.UserID,
		rec.Title,
		rec.Category,
		toCents(rec.Amount),
		rec.Date.Format(models.DateLayout),
		rec.Note,
		formatTime(createdAt),
	)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if rec.ID, err = res.LastInsertId(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	rec.CreatedAt = createdAt

	return nil
}

// RecordByID находит запись по ID.
func (s *Storage) RecordByID(ctx context.Context, kind models.RecordKind, id int64) (*models.Record, error) {
	const op = "storage.sqlite.RecordByID"

	t, err := storage.TableFor(kind)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	query := fmt.Sprintf(`SELECT %s FROM %s WHERE id = ?`, recordColumns(t), t.Name)

	rec, err := scanRecord(s.db.QueryRowContext(ctx, query, id), kind)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%s: %w", op, storage.ErrNotFound)
		}

		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return rec, nil
}

// UpdateRecord обновляет изменяемые поля записи владельца.
func (s *Storage) UpdateRecord(ctx context.Context, rec *models.Record) error {
	const op = "storage.sqlite.UpdateRecord"

	t, err := storage.TableFor(rec.Kind)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	query := fmt.Sprintf(
		`UPDATE %s SET title = ?, category = ?, amount_cents = ?, %s = ?, note = ? WHERE id = ? AND user_id = ?`,
		t.Name, t.DateCol,
	)

	res, err := s.db.ExecContext(ctx, query,
		rec.Title,
		rec.Category,
		toCents(rec.Amount),
		rec.Date.Format(models.DateLayout),
		rec.Note,
		rec.ID,
		rec.UserID,
	)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%s: %w", op, storage.ErrNotFound)
	}

	return nil
}

// DeleteRecord удаляет запись владельца.
func (s *Storage) DeleteRecord(ctx context.Context, kind models.RecordKind, id, userID int64) error {
	const op = "storage.sqlite.DeleteRecord"

	t, err := storage.TableFor(kind)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	res, err := s.db.ExecContext(ctx, fmt.Sprintf(`DELETE FROM %s WHERE id = ? AND user_id = ?`, t.Name), id, userID)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%s: %w", op, storage.ErrNotFound)
	}

	return nil
}

// ListRecords возвращает записи владельца по фильтру.
func (s *Storage) ListRecords(ctx context.Context, kind models.RecordKind, userID int64, f models.RecordFilter) ([]models.Record, error) {
	const op = "storage.sqlite.ListRecords"

	t, err := storage.TableFor(kind)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	where := []string{"user_id = ?"}
	args := []any{userID}

	if f.Category != "" {
		where = append(where, "category = ?")
		args = append(args, f.Category)
	}
	// даты хранятся как YYYY-MM-DD, поэтому строковое сравнение корректно.
	if f.From != nil {
		where = append(where, t.DateCol+" >= ?")
		args = append(args, f.From.Format(models.DateLayout))
	}
	if f.To != nil {
		where = append(where, t.DateCol+" <= ?")
		args = append(args, f.To.Format(models.DateLayout))
	}

	query := fmt.Sprintf(`SELECT %s FROM %s WHERE %s ORDER BY %s DESC, id DESC`,
		recordColumns(t), t.Name, strings.Join(where, " AND "), t.DateCol)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	out := make([]models.Record, 0)
	for rows.Next() {
		rec, err := scanRecord(rows, kind)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		out = append(out, *rec)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return out, nil
}

// SumRecords возвращает сумму записей владельца.
func (s *Storage) SumRecords(ctx context.Context, kind models.RecordKind, userID int64, category string) (decimal.Decimal, error) {
	const op = "storage.sqlite.SumRecords"

	t, err := storage.TableFor(kind)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%s: %w", op, err)
	}

	query := fmt.Sprintf(`SELECT COALESCE(SUM(amount_cents), 0) FROM %s WHERE user_id = ?`, t.Name)
	args := []any{userID}
	if category != "" {
		query += ` AND category = ?`
		args = append(args, category)
	}

	var cents int64
	if err := s.db.QueryRowContext(ctx, query, args...).Scan(&cents); err != nil {
		return decimal.Zero, fmt.Errorf("%s: %w", op, err)
	}

	return fromCents(cents), nil
}

// CountRecords возвращает количество записей владельца.
func (s *Storage) CountRecords(ctx context.Context, kind models.RecordKind, userID int64) (int64, error) {
	const op = "storage.sqlite.CountRecords"

	t, err := storage.TableFor(kind)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	var n int64
	if err := s.db.QueryRowContext(ctx, fmt.Sprintf(`SELECT COUNT(*) FROM %s WHERE user_id = ?`, t.Name), userID).Scan(&n); err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	return n, nil
}
