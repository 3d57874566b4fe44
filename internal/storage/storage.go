// Package storage задаёт контракты хранилища и общие ошибки для всех реализаций
// (postgres, sqlite). Реализации обязаны мапить ошибки драйвера в sentinel-ошибки
// этого пакета, чтобы сервисный слой не зависел от конкретной БД.
package storage

import (
	"context"
	"errors"
	"time"

	"github.com/piyushmaurya04/expense-tracker/internal/models"

	"github.com/shopspring/decimal"
)

var (
	// ErrNotFound — запись не найдена (пользователь/токен/запись).
	ErrNotFound = errors.New("not found")
	// ErrUsernameExists — нарушение уникальности username.
	ErrUsernameExists = errors.New("username already exists")
	// ErrEmailExists — нарушение уникальности email.
	ErrEmailExists = errors.New("email already exists")
	// ErrAlreadyExists — прочие нарушения уникальности (например, хэш refresh-токена).
	ErrAlreadyExists = errors.New("already exists")
)

// UserStorage выполняет операции над пользователями.
type UserStorage interface {
	// SaveUser создает нового пользователя; заполняет ID и CreatedAt.
	SaveUser(ctx context.Context, user *models.User) error
	// UserByID находит пользователя по ID.
	UserByID(ctx context.Context, id int64) (*models.User, error)
	// UserByUsername находит пользователя по username.
	UserByUsername(ctx context.Context, username string) (*models.User, error)
	// UserByEmail находит пользователя по email.
	UserByEmail(ctx context.Context, email string) (*models.User, error)
	// UpdateUser обновляет username и email пользователя.
	UpdateUser(ctx context.Context, user *models.User) error
}

// RefreshTokenStorage выполняет операции над refresh-токенами.
type RefreshTokenStorage interface {
	// ReplaceRefreshToken в одной транзакции удаляет все токены token.UserID
	// и сохраняет новый.
	ReplaceRefreshToken(ctx context.Context, token *models.RefreshToken) error
	// RefreshTokenByHash находит refresh-токен по хэшу.
	RefreshTokenByHash(ctx context.Context, hash string) (*models.RefreshToken, error)
	// DeleteRefreshToken удаляет токен по хэшу; отсутствие токена не ошибка.
	DeleteRefreshToken(ctx context.Context, hash string) error
	// DeleteUserRefreshTokens удаляет все токены пользователя; идемпотентно.
	DeleteUserRefreshTokens(ctx context.Context, userID int64) error
	// DeleteExpiredRefreshTokens удаляет токены с expires_at < before;
	// возвращает число удалённых строк.
	DeleteExpiredRefreshTokens(ctx context.Context, before time.Time) (int64, error)
}

// RecordStorage выполняет операции над расходами и доходами.
// Все выборки по владельцу фильтруются по userID на уровне запроса.
type RecordStorage interface {
	// SaveRecord создает запись; заполняет ID и CreatedAt.
	SaveRecord(ctx context.Context, rec *models.Record) error
	// RecordByID находит запись по ID без учёта владельца.
	RecordByID(ctx context.Context, kind models.RecordKind, id int64) (*models.Record, error)
	// UpdateRecord обновляет запись (id, user_id); ErrNotFound, если строки нет.
	UpdateRecord(ctx context.Context, rec *models.Record) error
	// DeleteRecord удаляет запись (id, user_id); ErrNotFound, если строки нет.
	DeleteRecord(ctx context.Context, kind models.RecordKind, id, userID int64) error
	// ListRecords возвращает записи владельца по фильтру, новые первыми.
	ListRecords(ctx context.Context, kind models.RecordKind, userID int64, f models.RecordFilter) ([]models.Record, error)
	// SumRecords возвращает сумму amount записей владельца (category опционально).
	SumRecords(ctx context.Context, kind models.RecordKind, userID int64, category string) (decimal.Decimal, error)
	// CountRecords возвращает количество записей владельца.
	CountRecords(ctx context.Context, kind models.RecordKind, userID int64) (int64, error)
}

// Storage задает контракт работы с БД.
type Storage interface {
	UserStorage
	RefreshTokenStorage
	RecordStorage
	// Ping проверяет доступность БД.
	Ping(ctx context.Context) error
	Close()
}
