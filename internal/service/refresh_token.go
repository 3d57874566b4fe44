package service

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/piyushmaurya04/expense-tracker/internal/models"
	"github.com/piyushmaurya04/expense-tracker/internal/pkg/log"
	"github.com/piyushmaurya04/expense-tracker/internal/storage"
)

// ErrRefreshTokenCollision — исчерпаны попытки сгенерировать уникальный refresh-токен.
// Транспорт: HTTP 500.
var ErrRefreshTokenCollision = errors.New("refresh token collision")

// RefreshTokens управляет refresh-токенами: у пользователя не больше одного
// живого токена, истёкшие токены удаляются при проверке.
type RefreshTokens struct {
	storage storage.RefreshTokenStorage
	ttl     time.Duration
	now     func() time.Time
}

// NewRefreshTokens создаёт хранилище refresh-токенов со временем жизни ttl.
func NewRefreshTokens(st storage.RefreshTokenStorage, ttl time.Duration, now func() time.Time) *RefreshTokens {
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}

	return &RefreshTokens{storage: st, ttl: ttl, now: now}
}

// hashToken возвращает SHA-256 от открытого значения токена (base64url).
func hashToken(plain string) string {
	sum := sha256.Sum256([]byte(plain))
	return base64.RawURLEncoding.EncodeToString(sum[:])
}

// Create удаляет все токены пользователя и выпускает новый.
// Удаление и вставка выполняются атомарно в хранилище.
func (r *RefreshTokens) Create(ctx context.Context, userID int64) (*models.RefreshToken, error) {
	const (
		op          = "service.refresh_token.Create"
		maxAttempts = 5
	)

	lg := log.From(ctx)

	for attempt := 0; attempt < maxAttempts; attempt++ {
		b := make([]byte, 32)
		if _, err := rand.Read(b); err != nil {
			lg.Error("refresh_rand_failed",
				slog.String("op", op),
				slog.String("err", err.Error()),
			)
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		plain := base64.RawURLEncoding.EncodeToString(b)

		now := r.now()
		token := &models.RefreshToken{
			Token:     plain,
			TokenHash: hashToken(plain),
			UserID:    userID,
			CreatedAt: now,
			ExpiresAt: now.Add(r.ttl),
		}

		if err := r.storage.ReplaceRefreshToken(ctx, token); err != nil {
			if errors.Is(err, storage.ErrAlreadyExists) {
				// Редкая коллизия — пробуем сгенерировать заново.
				continue
			}

			lg.Error("save_refresh_token_failed",
				slog.String("op", op),
				slog.String("err", err.Error()),
			)
			return nil, fmt.Errorf("%s: %w", op, err)
		}

		return token, nil
	}

	lg.Error("refresh_collision_exceeded",
		slog.String("op", op),
	)

	return nil, fmt.Errorf("%s: %w", op, ErrRefreshTokenCollision)
}

// FindByToken находит токен по открытому значению.
// Возвращённая запись содержит то же открытое значение в Token.
func (r *RefreshTokens) FindByToken(ctx context.Context, plain string) (*models.RefreshToken, error) {
	const op = "service.refresh_token.FindByToken"

	if plain == "" {
		return nil, fmt.Errorf("%s: %w", op, ErrTokenNotFound)
	}

	token, err := r.storage.RefreshTokenByHash(ctx, hashToken(plain))
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			log.From(ctx).Warn("refresh_lookup_not_found",
				slog.String("op", op),
			)
			return nil, fmt.Errorf("%s: %w", op, ErrTokenNotFound)
		}

		log.From(ctx).Error("refresh_lookup_failed",
			slog.String("op", op),
			slog.String("err", err.Error()),
		)
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	token.Token = plain

	return token, nil
}

// VerifyNotExpired возвращает токен, если он не истёк к текущему моменту.
// Истёкший токен удаляется до возврата ErrTokenExpired.
func (r *RefreshTokens) VerifyNotExpired(ctx context.Context, token *models.RefreshToken) (*models.RefreshToken, error) {
	const op = "service.refresh_token.VerifyNotExpired"

	if !token.Expired(r.now()) {
		return token, nil
	}

	lg := log.From(ctx)
	lg.Warn("refresh_expired",
		slog.String("op", op),
		slog.Int64("user_id", token.UserID),
	)

	if err := r.storage.DeleteRefreshToken(ctx, token.TokenHash); err != nil {
		lg.Error("refresh_expired_delete_failed",
			slog.String("op", op),
			slog.String("err", err.Error()),
		)
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return nil, fmt.Errorf("%s: %w", op, ErrTokenExpired)
}

// DeleteAllForUser удаляет все токены пользователя; отсутствие токенов не ошибка.
func (r *RefreshTokens) DeleteAllForUser(ctx context.Context, userID int64) error {
	const op = "service.refresh_token.DeleteAllForUser"

	if err := r.storage.DeleteUserRefreshTokens(ctx, userID); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

// PurgeExpired удаляет все истёкшие к текущему моменту токены.
func (r *RefreshTokens) PurgeExpired(ctx context.Context) (int64, error) {
	const op = "service.refresh_token.PurgeExpired"

	n, err := r.storage.DeleteExpiredRefreshTokens(ctx, r.now())
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	return n, nil
}
