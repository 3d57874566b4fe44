package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/piyushmaurya04/expense-tracker/internal/models"
	"github.com/piyushmaurya04/expense-tracker/internal/storage"
)

// ReplaceRefreshToken удаляет все refresh-токены пользователя и сохраняет новый
// в одной транзакции.
func (s *Storage) ReplaceRefreshToken(ctx context.Context, token *models.RefreshToken) error {
	const op = "storage.sqlite.ReplaceRefreshToken"

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM refresh_tokens WHERE user_id = ?`, token.UserID); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO refresh_tokens(token_hash, user_id, expires_at, created_at) VALUES (?, ?, ?, ?)`,
		token.TokenHash,
		token.UserID,
		formatTime(token.ExpiresAt),
		formatTime(token.CreatedAt),
	)
	if err != nil {
		if uerr := uniqueViolation(err); uerr != nil {
			return fmt.Errorf("%s: %w", op, uerr)
		}

		return fmt.Errorf("%s: %w", op, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

// RefreshTokenByHash находит refresh-токен по его хэшу.
func (s *Storage) RefreshTokenByHash(ctx context.Context, hash string) (*models.RefreshToken, error) {
	const op = "storage.sqlite.RefreshTokenByHash"

	var (
		token                models.RefreshToken
		expiresAt, createdAt string
	)

	err := s.db.QueryRowContext(ctx,
		`SELECT token_hash, user_id, expires_at, created_at FROM refresh_tokens WHERE token_hash = ?`,
		hash,
	).Scan(&token.TokenHash, &token.UserID, &expiresAt, &createdAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%s: %w", op, storage.ErrNotFound)
		}

		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if token.ExpiresAt, err = parseTime(expiresAt); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if token.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &token, nil
}

// DeleteRefreshToken удаляет refresh-токен по хэшу.
func (s *Storage) DeleteRefreshToken(ctx context.Context, hash string) error {
	const op = "storage.sqlite.DeleteRefreshToken"

	if _, err := s.db.ExecContext(ctx, `DELETE FROM refresh_tokens WHERE token_hash = ?`, hash); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

// DeleteUserRefreshTokens удаляет все refresh-токены пользователя.
func (s *Storage) DeleteUserRefreshTokens(ctx context.Context, userID int64) error {
	const op = "storage.sqlite.DeleteUserRefreshTokens"

	if _, err := s.db.ExecContext(ctx, `DELETE FROM refresh_tokens WHERE user_id = ?`, userID); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

// DeleteExpiredRefreshTokens удаляет просроченные refresh-токены.
// Сравнение идёт через julianday: RFC3339Nano с переменной дробной частью
// нельзя сравнивать как строки.
func (s *Storage) DeleteExpiredRefreshTokens(ctx context.Context, before time.Time) (int64, error) {
	const op = "storage.sqlite.DeleteExpiredRefreshTokens"

	res, err := s.db.ExecContext(ctx,
		`DELETE FROM refresh_tokens WHERE julianday(expires_at) < julianday(?)`,
		formatTime(before),
	)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	return n, nil
}
