package service

import (
	"errors"
	"sort"
	"strings"
)

// Kind — категория ошибки сервиса. Транспорт выбирает статус только по Kind,
// текст сообщения на маршрутизацию не влияет.
type Kind int

const (
	KindInternal Kind = iota
	KindValidation
	KindBadCredentials
	KindUnauthorized
	KindForbidden
	KindNotFound
	KindConflict
)

// String возвращает машинную метку категории (поле code в ответе).
func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation_failed"
	case KindBadCredentials:
		return "bad_credentials"
	case KindUnauthorized:
		return "unauthorized"
	case KindForbidden:
		return "forbidden"
	case KindNotFound:
		return "not_found"
	case KindConflict:
		return "conflict"
	default:
		return "internal"
	}
}

// Error — типизированная ошибка сервиса с категорией и безопасным для клиента текстом.
// Fields заполняется только для KindValidation.
type Error struct {
	Kind    Kind
	Message string
	Fields  map[string]string
}

func (e *Error) Error() string {
	if len(e.Fields) == 0 {
		return e.Message
	}

	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+e.Fields[k])
	}

	return e.Message + ": " + strings.Join(parts, "; ")
}

var (
	// ErrBadCredentials — неизвестный username или неверный пароль.
	// Оба случая неразличимы для клиента. Транспорт: HTTP 401.
	ErrBadCredentials = &Error{Kind: KindBadCredentials, Message: "invalid username or password"}

	// ErrUsernameTaken — username уже занят другим пользователем. Транспорт: HTTP 409.
	ErrUsernameTaken = &Error{Kind: KindConflict, Message: "username is already taken"}

	// ErrEmailTaken — e-mail уже занят другим пользователем. Транспорт: HTTP 409.
	ErrEmailTaken = &Error{Kind: KindConflict, Message: "email is already in use"}

	// ErrTokenNotFound — refresh-токен отсутствует (никогда не выдавался,
	// вытеснен новым входом, удалён при logout или по истечении). Транспорт: HTTP 404.
	ErrTokenNotFound = &Error{Kind: KindNotFound, Message: "refresh token not found"}

	// ErrTokenExpired — срок refresh-токена истёк; токен удалён. Транспорт: HTTP 401.
	ErrTokenExpired = &Error{Kind: KindUnauthorized, Message: "refresh token was expired, please make a new login request"}

	// ErrUnauthorized — нет валидного access-токена. Транспорт: HTTP 401.
	ErrUnauthorized = &Error{Kind: KindUnauthorized, Message: "full authentication is required to access this resource"}

	// ErrForbidden — запись принадлежит другому пользователю. Транспорт: HTTP 403.
	ErrForbidden = &Error{Kind: KindForbidden, Message: "you don't have permission to access this record"}

	// ErrRecordNotFound — записи с таким id нет. Транспорт: HTTP 404.
	ErrRecordNotFound = &Error{Kind: KindNotFound, Message: "record not found"}

	// ErrUserNotFound — пользователь не найден. Транспорт: HTTP 404.
	ErrUserNotFound = &Error{Kind: KindNotFound, Message: "user not found"}

	// ErrInvalidArgument — некорректный ввод без разбивки по полям. Транспорт: HTTP 400.
	ErrInvalidArgument = &Error{Kind: KindValidation, Message: "invalid argument"}
)

// ValidationError возвращает ошибку KindValidation с сообщениями по полям.
func ValidationError(fields map[string]string) *Error {
	return &Error{Kind: KindValidation, Message: "validation failed", Fields: fields}
}

// KindOf возвращает категорию ошибки; неклассифицированные ошибки — KindInternal.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}

	return KindInternal
}
