package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/piyushmaurya04/expense-tracker/internal/models"
	"github.com/piyushmaurya04/expense-tracker/internal/storage"

	"github.com/jackc/pgx/v5"
)

// ReplaceRefreshToken удаляет все refresh-токены пользователя и сохраняет новый
// в одной транзакции: промежуточное состояние без токена снаружи не видно.
func (s *Storage) ReplaceRefreshToken(ctx context.Context, token *models.RefreshToken) error {
	const op = "storage.postgres.ReplaceRefreshToken"

	err := pgx.BeginFunc(ctx, s.db, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `DELETE FROM refresh_tokens WHERE user_id = $1`, token.UserID); err != nil {
			return err
		}

		query := `
			INSERT INTO refresh_tokens(token_hash, user_id, expires_at, created_at)
			VALUES ($1, $2, $3, $4)
		`

		_, err := tx.Exec(ctx, query,
			token.TokenHash,
			token.UserID,
			token.ExpiresAt,
			token.CreatedAt,
		)

		return err
	})

	if err != nil {
		if uerr := uniqueViolation(err); uerr != nil {
			return fmt.Errorf("%s: %w", op, uerr)
		}

		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

// RefreshTokenByHash находит refresh-токен по его хэшу.
func (s *Storage) RefreshTokenByHash(ctx context.Context, hash string) (*models.RefreshToken, error) {
	const op = "storage.postgres.RefreshTokenByHash"

	query := `
		SELECT token_hash, user_id, expires_at, created_at
		FROM refresh_tokens
		WHERE token_hash = $1
	`

	var token models.RefreshToken
	err := s.db.QueryRow(ctx, query, hash).Scan(
		&token.TokenHash,
		&token.UserID,
		&token.ExpiresAt,
		&token.CreatedAt,
	)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%s: %w", op, storage.ErrNotFound)
		}

		return nil, fmt.Errorf("%s: %w", op, err)
	}

	token.ExpiresAt = token.ExpiresAt.UTC()
	token.CreatedAt = token.CreatedAt.UTC()

	return &token, nil
}

// DeleteRefreshToken удаляет refresh-токен по хэшу.
func (s *Storage) DeleteRefreshToken(ctx context.Context, hash string) error {
	const op = "storage.postgres.DeleteRefreshToken"

	if _, err := s.db.Exec(ctx, `DELETE FROM refresh_tokens WHERE token_hash = $1`, hash); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

// DeleteUserRefreshTokens удаляет все refresh-токены пользователя.
func (s *Storage) DeleteUserRefreshTokens(ctx context.Context, userID int64) error {
	const op = "storage.postgres.DeleteUserRefreshTokens"

	if _, err := s.db.Exec(ctx, `DELETE FROM refresh_tokens WHERE user_id = $1`, userID); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

// DeleteExpiredRefreshTokens удаляет просроченные refresh-токены.
func (s *Storage) DeleteExpiredRefreshTokens(ctx context.Context, before time.Time) (int64, error) {
	const op = "storage.postgres.DeleteExpiredRefreshTokens"

	tag, err := s.db.Exec(ctx, `DELETE FROM refresh_tokens WHERE expires_at < $1`, before.UTC())
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	return tag.RowsAffected(), nil
}
