// handlers содержит REST-обработчики трекера: идентичность (/api/auth),
// записи расходов и доходов, health-эндпойнты.
package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/piyushmaurya04/expense-tracker/internal/auth"
	apierrors "github.com/piyushmaurya04/expense-tracker/internal/http/errors"
	"github.com/piyushmaurya04/expense-tracker/internal/models"
	"github.com/piyushmaurya04/expense-tracker/internal/service"
)

// AuthService — операции идентичности и сессий.
type AuthService interface {
	Register(ctx context.Context, username, email, password string) (*models.User, error)
	Login(ctx context.Context, username, password string) (*models.Session, error)
	Refresh(ctx context.Context, refreshToken string) (*models.Session, error)
	Logout(ctx context.Context, userID int64) error
	Profile(ctx context.Context, userID int64) (*models.User, error)
	UpdateProfile(ctx context.Context, userID int64, upd service.ProfileUpdate) (*models.User, error)
}

// RecordService — операции над записями владельца.
type RecordService interface {
	CreateRecord(ctx context.Context, p models.Principal, kind models.RecordKind, in models.RecordInput) (*models.Record, error)
	Record(ctx context.Context, p models.Principal, kind models.RecordKind, id int64) (*models.Record, error)
	UpdateRecord(ctx context.Context, p models.Principal, kind models.RecordKind, id int64, in models.RecordInput) (*models.Record, error)
	DeleteRecord(ctx context.Context, p models.Principal, kind models.RecordKind, id int64) error
	ListRecords(ctx context.Context, p models.Principal, kind models.RecordKind, f models.RecordFilter) ([]models.Record, error)
	TotalRecords(ctx context.Context, p models.Principal, kind models.RecordKind, category string) (decimal.Decimal, error)
	CountRecords(ctx context.Context, p models.Principal, kind models.RecordKind) (int64, error)
}

// Pinger проверяет доступность хранилища.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Handlers агрегирует зависимости обработчиков.
type Handlers struct {
	auth     AuthService
	records  RecordService
	db       Pinger
	dbDriver string
}

// New создаёт обработчики. dbDriver попадает в ответ /api/health/db.
func New(a AuthService, r RecordService, db Pinger, dbDriver string) *Handlers {
	return &Handlers{auth: a, records: r, db: db, dbDriver: dbDriver}
}

// messageResponse — ответ с текстовым сообщением.
type messageResponse struct {
	Message string `json:"message"`
}

// writeJSON — единый ответ JSON с нужным Content-Type.
// Ошибки выводим через apierrors.WriteError.
func writeJSON(w http.ResponseWriter, status int, value any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(value)
}

// decodeStrict — строгий JSON-декодер: запрещаем неизвестные поля.
// Поэтому клиент не может передать, например, владельца записи.
func decodeStrict(r *http.Request, value any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(value)
}

// decodeAndValidate декодирует тело и проверяет теги validate.
// Битый JSON — ErrInvalidArgument, нарушения тегов — ошибка валидации по полям.
func decodeAndValidate(r *http.Request, value any) error {
	if err := decodeStrict(r, value); err != nil {
		return service.ErrInvalidArgument
	}
	return validateStruct(value)
}

// principal достаёт принципала, положенного шлюзом аутентификации.
func principal(w http.ResponseWriter, r *http.Request) (models.Principal, bool) {
	p, ok := auth.FromContext(r.Context())
	if !ok {
		apierrors.WriteError(w, r, service.ErrUnauthorized)
	}
	return p, ok
}

// pathID разбирает положительный числовой {id} из пути.
func pathID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, service.ValidationError(map[string]string{"id": "must be a positive integer"})
	}
	return id, nil
}
