// Package password проверяет пароли по необратимому bcrypt-хэшу.
// Открытый пароль не логируется и не сохраняется.
package password

import (
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// ErrTooLong — bcrypt учитывает только первые 72 байта пароля.
var ErrTooLong = errors.New("password is longer than 72 bytes")

// Hasher хэширует и сверяет пароли с заданной стоимостью bcrypt.
type Hasher struct {
	cost int
}

// NewHasher создает Hasher; cost вне [bcrypt.MinCost, bcrypt.MaxCost]
// заменяется на bcrypt.DefaultCost.
func NewHasher(cost int) *Hasher {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}

	return &Hasher{cost: cost}
}

// Hash возвращает bcrypt-хэш пароля. Соль случайна: два вызова на одном
// входе дают разные хэши.
func (h *Hasher) Hash(plain string) (string, error) {
	const op = "lib.password.Hash"

	b, err := bcrypt.GenerateFromPassword([]byte(plain), h.cost)
	if err != nil {
		if errors.Is(err, bcrypt.ErrPasswordTooLong) {
			return "", fmt.Errorf("%s: %w", op, ErrTooLong)
		}

		return "", fmt.Errorf("%s: %w", op, err)
	}

	return string(b), nil
}

// Verify сообщает, соответствует ли пароль хэшу.
// Повреждённый хэш считается несовпадением.
func (h *Hasher) Verify(plain, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plain)) == nil
}
