package models

import "time"

// TokenTypeBearer — фиксированная метка типа токена в ответах login/refresh.
const TokenTypeBearer = "Bearer"

// Session — результат успешного login/refresh.
//
// Описание:
//   - AccessToken — короткоживущий JWT для доступа к API;
//   - RefreshToken — строка, которую клиент предъявляет для выпуска нового
//     access-токена; при refresh возвращается без изменений;
//   - AccessExpiresAt — момент истечения access-токена (UTC);
//   - Principal — публичные поля пользователя.
type Session struct {
	AccessToken     string
	RefreshToken    string
	AccessExpiresAt time.Time
	Principal       Principal
}
