// errors стандартизирует ответы об ошибках HTTP-слоя трекера.
// На вход принимает ошибку сервисного слоя, на выход даёт:
//   - HTTP-статус, выбранный только по service.Kind;
//   - безопасное message (текст *service.Error) и машинный code;
//   - ошибки валидации по полям в fields.
//
// Неклассифицированные ошибки отдаются как 500/internal, причина
// пишется только в серверный лог.
package errors

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"log/slog"
	"net/http"

	"github.com/piyushmaurya04/expense-tracker/internal/pkg/log"
	"github.com/piyushmaurya04/expense-tracker/internal/service"
)

// Нестандартный код часто используемый для "клиент закрыл соединение".
const StatusClientClosedRequest = 499

// APIError — единый формат для фронта.
// Code — короткий стабильный код для машиночитаемой обработки на FE.
// Message — безопасное человекочитаемое описание.
// RequestID — прокидывается из X-Request-Id, если есть (для трассировки).
type APIError struct {
	Status    int               `json:"status"`
	Code      string            `json:"code"`
	Message   string            `json:"message"`
	RequestID string            `json:"request_id,omitempty"`
	Fields    map[string]string `json:"fields,omitempty"`
}

// ErrorResponse — корневой объект в ответе.
type ErrorResponse struct {
	Error APIError `json:"error"`
}

// ToHTTP конвертирует ошибку сервиса в HTTP-статус и унифицированный ответ.
//
// Поведение:
//   - err == nil - программная ошибка вызова: 500/internal;
//   - context.Canceled - 499, context.DeadlineExceeded - 504;
//   - *service.Error - статус по Kind, message и fields из ошибки;
//   - прочее - 500/internal без деталей.
func ToHTTP(err error) (int, ErrorResponse) {
	if err == nil {
		return internal()
	}

	var se *service.Error
	if stderrors.As(err, &se) {
		status := statusFromKind(se.Kind)
		return status, ErrorResponse{
			Error: APIError{
				Status:  status,
				Code:    se.Kind.String(),
				Message: se.Message,
				Fields:  se.Fields,
			},
		}
	}

	switch {
	case stderrors.Is(err, context.Canceled):
		return StatusClientClosedRequest, ErrorResponse{
			Error: APIError{Status: StatusClientClosedRequest, Code: "canceled", Message: "canceled"},
		}
	case stderrors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, ErrorResponse{
			Error: APIError{Status: http.StatusGatewayTimeout, Code: "deadline_exceeded", Message: "deadline exceeded"},
		}
	}

	return internal()
}

// WriteError — хелпер для HTTP-хендлеров.
// Пишет корректный статус/тело, добавляет request_id из заголовка, если он есть.
// Внутренние ошибки логируются с исходной причиной.
func WriteError(w http.ResponseWriter, r *http.Request, err error) {
	status, resp := ToHTTP(err)

	if status >= http.StatusInternalServerError && err != nil {
		log.From(r.Context()).Error("request_failed",
			slog.Int("status", status),
			slog.String("path", r.URL.Path),
			slog.String("err", err.Error()),
		)
	}

	// Прокидываем request_id для фронта, чтобы он мог репортить баги с привязкой.
	if rid := r.Header.Get("X-Request-Id"); rid != "" {
		resp.Error.RequestID = rid
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(resp)
}

func internal() (int, ErrorResponse) {
	return http.StatusInternalServerError, ErrorResponse{
		Error: APIError{
			Status:  http.StatusInternalServerError,
			Code:    "internal",
			Message: "internal error",
		},
	}
}

// statusFromKind — маппинг категорий сервиса на HTTP:
//   - Validation -> 400
//   - BadCredentials, Unauthorized -> 401
//   - Forbidden -> 403
//   - NotFound -> 404
//   - Conflict -> 409
//   - прочее -> 500
func statusFromKind(k service.Kind) int {
	switch k {
	case service.KindValidation:
		return http.StatusBadRequest
	case service.KindBadCredentials, service.KindUnauthorized:
		return http.StatusUnauthorized
	case service.KindForbidden:
		return http.StatusForbidden
	case service.KindNotFound:
		return http.StatusNotFound
	case service.KindConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
