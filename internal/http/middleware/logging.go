package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	logctx "github.com/piyushmaurya04/expense-tracker/internal/pkg/log"
)

// userSinkKey — ключ ячейки, в которую Authenticate записывает id принципала,
// чтобы внешний Logging мог добавить его в итоговую запись.
type userSinkKey struct{}

// Logging кладёт request-scoped логгер в контекст и пишет одну запись на запрос.
// Должен стоять после RequestID, чтобы request_id попал в атрибуты.
func Logging(l *slog.Logger) Middleware {
	if l == nil {
		l = slog.Default()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			reqLogger := l
			if rid := r.Header.Get(HeaderRequestID); rid != "" {
				reqLogger = reqLogger.With(slog.String("request_id", rid))
			}

			var userID int64
			ctx := logctx.Into(r.Context(), reqLogger)
			ctx = context.WithValue(ctx, userSinkKey{}, &userID)
			r = r.WithContext(ctx)

			sw := newStatusWriter(w)
			start := time.Now()
			next.ServeHTTP(sw, r)

			attrs := []slog.Attr{
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.Int("status", sw.Status()),
				slog.Duration("dur", time.Since(start)),
				slog.Int("bytes", sw.count),
			}
			if userID != 0 {
				attrs = append(attrs, slog.Int64("user_id", userID))
			}

			logctx.From(ctx).LogAttrs(ctx, slog.LevelInfo, "http", attrs...)
		})
	}
}

// reportUser сообщает Logging id аутентифицированного пользователя.
func reportUser(ctx context.Context, id int64) {
	if dst, ok := ctx.Value(userSinkKey{}).(*int64); ok {
		*dst = id
	}
}
