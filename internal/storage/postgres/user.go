package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/piyushmaurya04/expense-tracker/internal/models"
	"github.com/piyushmaurya04/expense-tracker/internal/storage"

	"github.com/jackc/pgx/v5"
)

const userColumns = `id, username, email, password_hash, created_at`

// SaveUser создает нового пользователя в БД.
func (s *Storage) SaveUser(ctx context.Context, user *models.User) error {
	const op = "storage.postgres.SaveUser"

	query := `
		INSERT INTO users(username, email, password_hash)
		VALUES ($1, $2, $3)
		RETURNING id, created_at
	`

	err := s.db.QueryRow(ctx, query,
		user.Username,
		user.Email,
		user.PasswordHash,
	).Scan(&user.ID, &user.CreatedAt)

	if err != nil {
		if uerr := uniqueViolation(err); uerr != nil {
			return fmt.Errorf("%s: %w", op, uerr)
		}

		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

// UserByID находит пользователя по ID.
func (s *Storage) UserByID(ctx context.Context, id int64) (*models.User, error) {
	const op = "storage.postgres.UserByID"

	return s.userBy(ctx, op, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
}

// UserByUsername находит пользователя по username.
func (s *Storage) UserByUsername(ctx context.Context, username string) (*models.User, error) {
	const op = "storage.postgres.UserByUsername"

	return s.userBy(ctx, op, `SELECT `+userColumns+` FROM users WHERE username = $1`, username)
}

// UserByEmail находит пользователя по email.
func (s *Storage) UserByEmail(ctx context.Context, email string) (*models.User, error) {
	const op = "storage.postgres.UserByEmail"

	return s.userBy(ctx, op, `SELECT `+userColumns+` FROM users WHERE email = $1`, email)
}

// UpdateUser обновляет username и email пользователя.
func (s *Storage) UpdateUser(ctx context.Context, user *models.User) error {
	const op = "storage.postgres.UpdateUser"

	query := `
		UPDATE users
		SET username = $2, email = $3
		WHERE id = $1
	`

	cmdTag, err := s.db.Exec(ctx, query, user.ID, user.Username, user.Email)
	if err != nil {
		if uerr := uniqueViolation(err); uerr != nil {
			return fmt.Errorf("%s: %w", op, uerr)
		}

		return fmt.Errorf("%s: %w", op, err)
	}

	if cmdTag.RowsAffected() == 0 {
		return fmt.Errorf("%s: %w", op, storage.ErrNotFound)
	}

	return nil
}

func (s *Storage) userBy(ctx context.Context, op, query string, arg any) (*models.User, error) {
	var user models.User
	err := s.db.QueryRow(ctx, query, arg).Scan(
		&user.ID,
		&user.Username,
		&user.Email,
		&user.PasswordHash,
		&user.CreatedAt,
	)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%s: %w", op, storage.ErrNotFound)
		}

		return nil, fmt.Errorf("%s: %w", op, err)
	}

	user.CreatedAt = user.CreatedAt.UTC()

	return &user, nil
}
