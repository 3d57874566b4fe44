package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/piyushmaurya04/expense-tracker/internal/models"
	"github.com/piyushmaurya04/expense-tracker/internal/pkg/log"
	"github.com/piyushmaurya04/expense-tracker/internal/storage"

	"github.com/shopspring/decimal"
)

// Ограничения полей записи; совпадают с размерами колонок в схеме.
const (
	maxTitleLen    = 100
	maxCategoryLen = 50
	maxNoteLen     = 500
)

// maxAmount — верхняя граница суммы для NUMERIC(10,2).
var maxAmount = decimal.New(1, 8)

// CreateRecord создаёт запись. Владелец всегда берётся из принципала.
func (s *Service) CreateRecord(ctx context.Context, p models.Principal, kind models.RecordKind, in models.RecordInput) (*models.Record, error) {
	const op = "service.records.CreateRecord"

	if err := validKind(kind); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	in, err := normalizeInput(in)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	rec := &models.Record{
		Kind:     kind,
		UserID:   p.ID,
		Title:    in.Title,
		Category: in.Category,
		Amount:   in.Amount,
		Date:     in.Date,
		Note:     in.Note,
	}

	if err := s.storage.SaveRecord(ctx, rec); err != nil {
		log.From(ctx).Error("record_save_failed",
			slog.String("op", op),
			slog.String("kind", kind.String()),
			slog.Int64("user_id", p.ID),
			slog.String("err", err.Error()),
		)
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	log.From(ctx).Info("record_created",
		slog.String("op", op),
		slog.String("kind", kind.String()),
		slog.Int64("user_id", p.ID),
		slog.Int64("record_id", rec.ID),
	)

	return rec, nil
}

// Record возвращает запись владельца.
func (s *Service) Record(ctx context.Context, p models.Principal, kind models.RecordKind, id int64) (*models.Record, error) {
	const op = "service.records.Record"

	rec, err := s.ownedRecord(ctx, p, kind, id)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return rec, nil
}

// UpdateRecord полностью заменяет изменяемые поля записи владельца.
func (s *Service) UpdateRecord(ctx context.Context, p models.Principal, kind models.RecordKind, id int64, in models.RecordInput) (*models.Record, error) {
	const op = "service.records.UpdateRecord"

	// чужая запись отвечает Forbidden независимо от тела.
	rec, err := s.ownedRecord(ctx, p, kind, id)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	in, err = normalizeInput(in)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	rec.Title = in.Title
	rec.Category = in.Category
	rec.Amount = in.Amount
	rec.Date = in.Date
	rec.Note = in.Note

	if err := s.storage.UpdateRecord(ctx, rec); err != nil {
		// строка удалена между проверкой владельца и обновлением.
		if errors.Is(err, storage.ErrNotFound) {
			return nil, fmt.Errorf("%s: %w", op, ErrRecordNotFound)
		}

		return nil, fmt.Errorf("%s: %w", op, err)
	}

	log.From(ctx).Info("record_updated",
		slog.String("op", op),
		slog.String("kind", kind.String()),
		slog.Int64("record_id", id),
	)

	return rec, nil
}

// DeleteRecord удаляет запись владельца.
func (s *Service) DeleteRecord(ctx context.Context, p models.Principal, kind models.RecordKind, id int64) error {
	const op = "service.records.DeleteRecord"

	if _, err := s.ownedRecord(ctx, p, kind, id); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if err := s.storage.DeleteRecord(ctx, kind, id, p.ID); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return fmt.Errorf("%s: %w", op, ErrRecordNotFound)
		}

		return fmt.Errorf("%s: %w", op, err)
	}

	log.From(ctx).Info("record_deleted",
		slog.String("op", op),
		slog.String("kind", kind.String()),
		slog.Int64("record_id", id),
	)

	return nil
}

// ListRecords возвращает записи владельца по фильтру.
// Границы диапазона дат включительные; начало не может быть позже конца.
func (s *Service) ListRecords(ctx context.Context, p models.Principal, kind models.RecordKind, f models.RecordFilter) ([]models.Record, error) {
	const op = "service.records.ListRecords"

	if err := validKind(kind); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if f.From != nil && f.To != nil && f.From.After(*f.To) {
		return nil, fmt.Errorf("%s: %w", op, ValidationError(map[string]string{
			"startDate": "must not be after endDate",
		}))
	}

	f.Category = strings.TrimSpace(f.Category)

	recs, err := s.storage.ListRecords(ctx, kind, p.ID, f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return recs, nil
}

// TotalRecords возвращает сумму записей владельца; пустая category — по всем.
func (s *Service) TotalRecords(ctx context.Context, p models.Principal, kind models.RecordKind, category string) (decimal.Decimal, error) {
	const op = "service.records.TotalRecords"

	if err := validKind(kind); err != nil {
		return decimal.Zero, fmt.Errorf("%s: %w", op, err)
	}

	total, err := s.storage.SumRecords(ctx, kind, p.ID, strings.TrimSpace(category))
	if err != nil {
		return decimal.Zero, fmt.Errorf("%s: %w", op, err)
	}

	return total, nil
}

// CountRecords возвращает количество записей владельца.
func (s *Service) CountRecords(ctx context.Context, p models.Principal, kind models.RecordKind) (int64, error) {
	const op = "service.records.CountRecords"

	if err := validKind(kind); err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	n, err := s.storage.CountRecords(ctx, kind, p.ID)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	return n, nil
}

// ownedRecord загружает запись и проверяет владельца.
// Отсутствующая строка — ErrRecordNotFound, чужая — ErrForbidden.
func (s *Service) ownedRecord(ctx context.Context, p models.Principal, kind models.RecordKind, id int64) (*models.Record, error) {
	if err := validKind(kind); err != nil {
		return nil, err
	}

	rec, err := s.storage.RecordByID(ctx, kind, id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, ErrRecordNotFound
		}

		return nil, err
	}

	if rec.UserID != p.ID {
		log.From(ctx).Warn("record_access_denied",
			slog.String("kind", kind.String()),
			slog.Int64("record_id", id),
			slog.Int64("user_id", p.ID),
		)
		return nil, ErrForbidden
	}

	return rec, nil
}

func validKind(kind models.RecordKind) error {
	if !kind.Valid() {
		return ErrInvalidArgument
	}

	return nil
}

// normalizeInput обрезает пробелы и проверяет поля записи.
func normalizeInput(in models.RecordInput) (models.RecordInput, error) {
	in.Title = strings.TrimSpace(in.Title)
	in.Category = strings.TrimSpace(in.Category)
	in.Note = strings.TrimSpace(in.Note)

	fields := map[string]string{}

	switch {
	case in.Title == "":
		fields["title"] = "must not be blank"
	case utf8.RuneCountInString(in.Title) > maxTitleLen:
		fields["title"] = fmt.Sprintf("must be at most %d characters", maxTitleLen)
	}

	if utf8.RuneCountInString(in.Category) > maxCategoryLen {
		fields["category"] = fmt.Sprintf("must be at most %d characters", maxCategoryLen)
	}
	if utf8.RuneCountInString(in.Note) > maxNoteLen {
		fields["note"] = fmt.Sprintf("must be at most %d characters", maxNoteLen)
	}

	switch {
	case !in.Amount.IsPositive():
		fields["amount"] = "must be greater than 0"
	case !in.Amount.Equal(in.Amount.Truncate(2)):
		fields["amount"] = "must have at most 2 decimal places"
	case in.Amount.GreaterThanOrEqual(maxAmount):
		fields["amount"] = "must be less than 100000000"
	}

	if in.Date.IsZero() {
		fields["date"] = "must not be null"
	}

	if len(fields) > 0 {
		return in, ValidationError(fields)
	}

	return in, nil
}
