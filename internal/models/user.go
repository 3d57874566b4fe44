package models

import "time"

// User — учётная запись пользователя.
// PasswordHash хранится только в виде bcrypt-хэша и наружу не отдаётся.
type User struct {
	ID           int64
	Username     string
	Email        string
	PasswordHash string
	CreatedAt    time.Time
}

// Principal — аутентифицированная личность, привязанная к запросу.
// Выводится из проверенного access-токена, не хранится и пароля не содержит.
type Principal struct {
	ID        int64
	Username  string
	Email     string
	CreatedAt time.Time
}

// Principal возвращает публичное представление пользователя.
func (u *User) Principal() Principal {
	return Principal{
		ID:        u.ID,
		Username:  u.Username,
		Email:     u.Email,
		CreatedAt: u.CreatedAt,
	}
}
