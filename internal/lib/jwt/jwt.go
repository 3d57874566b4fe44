// Package jwt выпускает и проверяет access-токены (HS256).
// Проверка не требует хранилища: достаточно подписи и срока действия.
package jwt

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	// ErrInvalidToken — подпись, формат или claims токена некорректны.
	ErrInvalidToken = errors.New("invalid token")
	// ErrTokenExpired — срок действия токена истёк.
	ErrTokenExpired = errors.New("token expired")
)

// Codec кодирует и проверяет access-токены с общим симметричным ключом.
type Codec struct {
	secret []byte
	ttl    time.Duration
	issuer string
}

// New создает Codec. Пустой секрет недопустим.
func New(secret string, ttl time.Duration, issuer string) (*Codec, error) {
	if secret == "" {
		return nil, errors.New("lib.jwt.New: empty signing secret")
	}
	if ttl <= 0 {
		return nil, errors.New("lib.jwt.New: ttl must be positive")
	}

	return &Codec{secret: []byte(secret), ttl: ttl, issuer: issuer}, nil
}

// Issue выпускает токен с subject, iat=now и exp=now+ttl.
// NumericDate хранит целые секунды, поэтому now усекается до секунды и
// возвращаемый expiresAt совпадает с exp внутри токена.
func (c *Codec) Issue(subject string, now time.Time) (string, time.Time, error) {
	const op = "lib.jwt.Issue"

	now = now.Truncate(time.Second)
	expiresAt := now.Add(c.ttl)
	claims := jwt.RegisteredClaims{
		Subject:   subject,
		Issuer:    c.issuer,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(expiresAt),
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(c.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("%s: %w", op, err)
	}

	return signed, expiresAt, nil
}

// Verify проверяет подпись, алгоритм, issuer и срок действия токена на момент now
// и возвращает subject. Токен отвергается только при now > exp: момент
// истечения ещё валиден. Допуск на рассинхронизацию часов не применяется.
func (c *Codec) Verify(token string, now time.Time) (string, error) {
	const op = "lib.jwt.Verify"

	claims := &jwt.RegisteredClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims,
		func(*jwt.Token) (any, error) {
			return c.secret, nil
		},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		// claims проверяем сами: библиотека отвергает токен уже при now == exp.
		jwt.WithoutClaimsValidation(),
	)
	if err != nil {
		return "", fmt.Errorf("%s: %w: %v", op, ErrInvalidToken, err)
	}

	if !parsed.Valid || claims.Subject == "" || claims.Issuer != c.issuer || claims.ExpiresAt == nil {
		return "", fmt.Errorf("%s: %w", op, ErrInvalidToken)
	}

	if now.After(claims.ExpiresAt.Time) {
		return "", fmt.Errorf("%s: %w", op, ErrTokenExpired)
	}

	return claims.Subject, nil
}
