// Package auth переносит аутентифицированного принципала через context.Context
// в пределах одного запроса. Глобального состояния нет.
package auth

import (
	"context"

	"github.com/piyushmaurya04/expense-tracker/internal/models"
)

type principalKey struct{}

// WithPrincipal возвращает контекст с привязанным принципалом.
func WithPrincipal(ctx context.Context, p models.Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

// FromContext возвращает принципала запроса; ok=false, если запрос не аутентифицирован.
func FromContext(ctx context.Context) (models.Principal, bool) {
	p, ok := ctx.Value(principalKey{}).(models.Principal)
	return p, ok
}
