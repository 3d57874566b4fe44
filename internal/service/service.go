// service содержит бизнес-логику трекера:
// регистрацию/аутентификацию пользователей, выпуск/проверку токенов,
// принадлежность записей и работу с хранилищем через интерфейсы из пакета storage.
//
// Основные аспекты:
//   - Пакет не хранит состояние запроса внутри Service; экземпляр Service
//     безопасен для конкурентного использования из разных горутин при условии,
//     что переданное хранилище (storage.Storage) потокобезопасно.
//   - Принципал передаётся в методы явно, а не через глобальный контекст.
//   - Ошибки возвращаются как *Error с категорией Kind (см. errors.go) и
//     далее маппятся транспортом на HTTP-статусы.
package service

import (
	"context"
	"fmt"
	"time"

	"github.com/piyushmaurya04/expense-tracker/internal/config"
	"github.com/piyushmaurya04/expense-tracker/internal/lib/jwt"
	"github.com/piyushmaurya04/expense-tracker/internal/lib/password"
	"github.com/piyushmaurya04/expense-tracker/internal/storage"
)

// Service описывает бизнес-логику трекера.
type Service struct {
	storage storage.Storage
	tokens  *jwt.Codec
	hasher  *password.Hasher
	refresh *RefreshTokens
	cfg     config.AuthConfig
	now     func() time.Time
}

// New создаёт новый экземпляр Service.
func New(st storage.Storage, cfg config.AuthConfig) (*Service, error) {
	const op = "service.New"

	codec, err := jwt.New(cfg.JWTSecret, cfg.AccessTokenTTL, cfg.Issuer)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	s := &Service{
		storage: st,
		tokens:  codec,
		hasher:  password.NewHasher(cfg.BcryptCost),
		cfg:     cfg,
		now:     func() time.Time { return time.Now().UTC() },
	}
	s.refresh = NewRefreshTokens(st, cfg.RefreshTokenTTL, s.clock)

	return s, nil
}

func (s *Service) clock() time.Time {
	return s.now()
}

// Ping проверяет доступность хранилища.
func (s *Service) Ping(ctx context.Context) error {
	return s.storage.Ping(ctx)
}

// PurgeExpiredRefreshTokens удаляет истёкшие refresh-токены всех пользователей.
// Вызывается фоновым janitor'ом; на проверку токенов не влияет.
func (s *Service) PurgeExpiredRefreshTokens(ctx context.Context) (int64, error) {
	return s.refresh.PurgeExpired(ctx)
}
