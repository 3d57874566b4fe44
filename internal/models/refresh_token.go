package models

import "time"

// RefreshToken — долгоживущий refresh-токен пользователя.
//
// Описание:
//   - Token — открытое значение, которое видит только клиент;
//     в хранилище попадает лишь его SHA-256 хэш (TokenHash);
//   - у пользователя в каждый момент не больше одного живого токена.
type RefreshToken struct {
	Token     string
	TokenHash string
	UserID    int64
	ExpiresAt time.Time
	CreatedAt time.Time
}

// Expired сообщает, истёк ли токен к моменту now.
func (t *RefreshToken) Expired(now time.Time) bool {
	return now.After(t.ExpiresAt)
}
