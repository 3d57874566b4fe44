// Package redact готовит персональные данные к записи в лог.
package redact

import "strings"

// Email маскирует локальную часть адреса, оставляя первые две руны и домен.
func Email(s string) string {
	parts := strings.Split(s, "@")
	if len(parts) != 2 {
		return "***"
	}

	return mask(parts[0]) + "@" + parts[1]
}

// Username маскирует имя пользователя так же, как локальную часть e-mail.
func Username(s string) string {
	return mask(s)
}

func mask(s string) string {
	r := []rune(s)
	if len(r) > 2 {
		return string(r[:2]) + "***"
	}

	return "***"
}
