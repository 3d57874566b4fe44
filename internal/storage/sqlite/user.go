package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/piyushmaurya04/expense-tracker/internal/models"
	"github.com/piyushmaurya04/expense-tracker/internal/storage"
)

const userColumns = `id, username, email, password_hash, created_at`

// SaveUser создает нового пользователя в БД.
func (s *Storage) SaveUser(ctx context.Context, user *models.User) error {
	const op = "storage.sqlite.SaveUser"

	createdAt := s.now().UTC()

	res, err := s.db.ExecContext(ctx,
		`INSERT INTO users(username, email, password_hash, created_at) VALUES (?, ?, ?, ?)`,
		user.Username,
		user.Email,
		user.PasswordHash,
		formatTime(createdAt),
	)
	if err != nil {
		if uerr := uniqueViolation(err); uerr != nil {
			return fmt.Errorf("%s: %w", op, uerr)
		}

		return fmt.Errorf("%s: %w", op, err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	user.ID = id
	user.CreatedAt = createdAt

	return nil
}

// UserByID находит пользователя по ID.
func (s *Storage) UserByID(ctx context.Context, id int64) (*models.User, error) {
	const op = "storage.sqlite.UserByID"

	return s.userBy(ctx, op, `SELECT `+userColumns+` FROM users WHERE id = ?`, id)
}

// UserByUsername находит пользователя по username.
func (s *Storage) UserByUsername(ctx context.Context, username string) (*models.User, error) {
	const op = "storage.sqlite.UserByUsername"

	return s.userBy(ctx, op, `SELECT `+userColumns+` FROM users WHERE username = ?`, username)
}

// UserByEmail находит пользователя по email.
func (s *Storage) UserByEmail(ctx context.Context, email string) (*models.User, error) {
	const op = "storage.sqlite.UserByEmail"

	return s.userBy(ctx, op, `SELECT `+userColumns+` FROM users WHERE email = ?`, email)
}

// UpdateUser обновляет username и email пользователя.
func (s *Storage) UpdateUser(ctx context.Context, user *models.User) error {
	const op = "storage.sqlite.UpdateUser"

	res, err := s.db.ExecContext(ctx,
		`UPDATE users SET username = ?, email = ? WHERE id = ?`,
		user.Username, user.Email, user.ID,
	)
	if err != nil {
		if uerr := uniqueViolation(err); uerr != nil {
			return fmt.Errorf("%s: %w", op, uerr)
		}

		return fmt.Errorf("%s: %w", op, err)
	}

	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%s: %w", op, storage.ErrNotFound)
	}

	return nil
}

func (s *Storage) userBy(ctx context.Context, op, query string, arg any) (*models.User, error) {
	var (
		user      models.User
		createdAt string
	)

	err := s.db.QueryRowContext(ctx, query, arg).Scan(
		&user.ID,
		&user.Username,
		&user.Email,
		&user.PasswordHash,
		&createdAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%s: %w", op, storage.ErrNotFound)
		}

		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if user.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &user, nil
}
