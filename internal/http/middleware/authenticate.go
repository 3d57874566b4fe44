package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/piyushmaurya04/expense-tracker/internal/auth"
	apierrors "github.com/piyushmaurya04/expense-tracker/internal/http/errors"
	"github.com/piyushmaurya04/expense-tracker/internal/models"
	logctx "github.com/piyushmaurya04/expense-tracker/internal/pkg/log"
	"github.com/piyushmaurya04/expense-tracker/internal/service"
)

// Authenticator восстанавливает принципала по access-токену.
type Authenticator interface {
	Authenticate(ctx context.Context, accessToken string) (models.Principal, error)
}

// Authenticate — шлюз аутентификации запроса.
// Вынимает Bearer-токен из Authorization; при успешной проверке кладёт принципала
// в контекст (auth.WithPrincipal). Отсутствующий или невалидный токен ошибкой
// здесь не считается: запрос идёт дальше без принципала, а отказ формирует RequirePrincipal.
// Неклассифицированная ошибка проверки сразу отдаётся через apierrors.WriteError.
func Authenticate(a Authenticator) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := bearerToken(r.Header.Get("Authorization"))
			if !ok {
				next.ServeHTTP(w, r)
				return
			}

			p, err := a.Authenticate(r.Context(), token)
			if err != nil {
				// Сбой проверки (например, недоступно хранилище) — это 500, а не анонимный запрос.
				if service.KindOf(err) != service.KindUnauthorized {
					apierrors.WriteError(w, r, err)
					return
				}

				logctx.From(r.Context()).Debug("bearer_rejected",
					slog.String("path", r.URL.Path),
					slog.String("err", err.Error()),
				)
				next.ServeHTTP(w, r)
				return
			}

			reportUser(r.Context(), p.ID)

			// логи обработчиков ниже по цепочке несут user_id.
			ctx := logctx.With(auth.WithPrincipal(r.Context(), p), slog.Int64("user_id", p.ID))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequirePrincipal отвечает 401, если шлюз не положил принципала в контекст.
func RequirePrincipal() Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if _, ok := auth.FromContext(r.Context()); !ok {
				apierrors.WriteError(w, r, service.ErrUnauthorized)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func bearerToken(header string) (string, bool) {
	const prefix = "Bearer "
	if len(header) <= len(prefix) || !strings.EqualFold(header[:len(prefix)], prefix) {
		return "", false
	}

	token := strings.TrimSpace(header[len(prefix):])
	return token, token != ""
}
