package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/piyushmaurya04/expense-tracker/internal/models"
	"github.com/piyushmaurya04/expense-tracker/internal/storage"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

// recordColumns возвращает список колонок в порядке scanRecord.
func recordColumns(t storage.Table) string {
	return "id, user_id, title, category, amount, " + t.DateCol + ", note, created_at"
}

func scanRecord(row pgx.Row, kind models.RecordKind) (*models.Record, error) {
	rec := models.Record{Kind: kind}
	if err := row.Scan(
		&rec.ID,
		&rec.UserID,
		&rec.Title,
		&rec.Category,
		&rec.Amount,
		&rec.Date,
		&rec.Note,
		&rec.CreatedAt,
	); err != nil {
		return nil, err
	}

	rec.CreatedAt = rec.CreatedAt.UTC()

	return &rec, nil
}

// SaveRecord создает запись.
func (s *Storage) SaveRecord(ctx context.Context, rec *models.Record) error {
	const op = "storage.postgres.SaveRecord"

	t, err := storage.TableFor(rec.Kind)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	query := fmt.Sprintf(`
		INSERT INTO %s(user_id, title, category, amount, %s, note)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at
	`, t.Name, t.DateCol)

	err = s.db.QueryRow(ctx, query,
		rec.UserID,
		rec.Title,
		rec.Category,
		rec.Amount,
		rec.Date,
		rec.Note,
	).Scan(&rec.ID, &rec.CreatedAt)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	rec.CreatedAt = rec.CreatedAt.UTC()

	return nil
}

// RecordByID находит запись по ID.
func (s *Storage) RecordByID(ctx context.Context, kind models.RecordKind, id int64) (*models.Record, error) {
	const op = "storage.postgres.RecordByID"

	t, err := storage.TableFor(kind)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	query := fmt.Sprintf(`SELECT %s FROM %s WHERE id = $1`, recordColumns(t), t.Name)

	rec, err := scanRecord(s.db.QueryRow(ctx, query, id), kind)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%s: %w", op, storage.ErrNotFound)
		}

		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return rec, nil
}

// UpdateRecord обновляет изменяемые поля записи владельца.
func (s *Storage) UpdateRecord(ctx context.Context, rec *models.Record) error {
	const op = "storage.postgres.UpdateRecord"

	t, err := storage.TableFor(rec.Kind)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	query := fmt.Sprintf(`
		UPDATE %s
		SET title = $3, category = $4, amount = $5, %s = $6, note = $7
		WHERE id = $1 AND user_id = $2
	`, t.Name, t.DateCol)

	cmdTag, err := s.db.Exec(ctx, query,
		rec.ID,
		rec.UserID,
		rec.Title,
		rec.Category,
		rec.Amount,
		rec.Date,
		rec.Note,
	)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if cmdTag.RowsAffected() == 0 {
		return fmt.Errorf("%s: %w", op, storage.ErrNotFound)
	}

	return nil
}

// DeleteRecord удаляет запись владельца.
func (s *Storage) DeleteRecord(ctx context.Context, kind models.RecordKind, id, userID int64) error {
	const op = "storage.postgres.DeleteRecord"

	t, err := storage.TableFor(kind)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	cmdTag, err := s.db.Exec(ctx, fmt.Sprintf(`DELETE FROM %s WHERE id = $1 AND user_id = $2`, t.Name), id, userID)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if cmdTag.RowsAffected() == 0 {
		return fmt.Errorf("%s: %w", op, storage.ErrNotFound)
	}

	return nil
}

// ListRecords возвращает записи владельца по фильтру.
func (s *Storage) ListRecords(ctx context.Context, kind models.RecordKind, userID int64, f models.RecordFilter) ([]models.Record, error) {
	const op = "storage.postgres.ListRecords"

	t, err := storage.TableFor(kind)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	where := []string{"user_id = $1"}
	args := []any{userID}

	if f.Category != "" {
		args = append(args, f.Category)
		where = append(where, fmt.Sprintf("category = $%d", len(args)))
	}
	if f.From != nil {
		args = append(args, *f.From)
		where = append(where, fmt.Sprintf("%s >= $%d", t.DateCol, len(args)))
	}
	if f.To != nil {
		args = append(args, *f.To)
		where = append(where, fmt.Sprintf("%s <= $%d", t.DateCol, len(args)))
	}

	query := fmt.Sprintf(`SELECT %s FROM %s WHERE %s ORDER BY %s DESC, id DESC`,
		recordColumns(t), t.Name, strings.Join(where, " AND "), t.DateCol)

	rows, err := s.db.Query(ctx, query, args...)
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
	const op = "storage.postgres.SumRecords"

	t, err := storage.TableFor(kind)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%s: %w", op, err)
	}

	query := fmt.Sprintf(`SELECT COALESCE(SUM(amount), 0) FROM %s WHERE user_id = $1`, t.Name)
	args := []any{userID}
	if category != "" {
		query += ` AND category = $2`
		args = append(args, category)
	}

	var total decimal.Decimal
	if err := s.db.QueryRow(ctx, query, args...).Scan(&total); err != nil {
		return decimal.Zero, fmt.Errorf("%s: %w", op, err)
	}

	return total, nil
}

// CountRecords возвращает количество записей владельца.
func (s *Storage) CountRecords(ctx context.Context, kind models.RecordKind, userID int64) (int64, error) {
	const op = "storage.postgres.CountRecords"

	t, err := storage.TableFor(kind)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	var n int64
	if err := s.db.QueryRow(ctx, fmt.Sprintf(`SELECT COUNT(*) FROM %s WHERE user_id = $1`, t.Name), userID).Scan(&n); err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	return n, nil
}
