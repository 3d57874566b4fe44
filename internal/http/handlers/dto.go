package handlers

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"

	"github.com/piyushmaurya04/expense-tracker/internal/models"
)

type registerRequest struct {
	Username string `json:"username" validate:"required,min=3,max=20"`
	Email    string `json:"email" validate:"required,max=50,email"`
	Password string `json:"password" validate:"required,min=6,max=40"`
}

type loginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken" validate:"required"`
}

type updateProfileRequest struct {
	Username *string `json:"username" validate:"omitempty,min=3,max=20"`
	Email    *string `json:"email" validate:"omitempty,max=50,email"`
}

// sessionResponse — ответ login/refresh.
type sessionResponse struct {
	AccessToken  string `json:"accessToken"`
	TokenType    string `json:"tokenType"`
	RefreshToken string `json:"refreshToken"`
	ID           int64  `json:"id"`
	Username     string `json:"username"`
	Email        string `json:"email"`
	CreatedAt    string `json:"createdAt"`
}

func sessionFromModel(s *models.Session) sessionResponse {
	return sessionResponse{
		AccessToken:  s.AccessToken,
		TokenType:    models.TokenTypeBearer,
		RefreshToken: s.RefreshToken,
		ID:           s.Principal.ID,
		Username:     s.Principal.Username,
		Email:        s.Principal.Email,
		CreatedAt:    s.Principal.CreatedAt.UTC().Format(time.RFC3339),
	}
}

type userResponse struct {
	ID        int64  `json:"id"`
	Username  string `json:"username"`
	Email     string `json:"email"`
	CreatedAt string `json:"createdAt"`
}

func userFromModel(u *models.User) userResponse {
	return userResponse{
		ID:        u.ID,
		Username:  u.Username,
		Email:     u.Email,
		CreatedAt: u.CreatedAt.UTC().Format(time.RFC3339),
	}
}

// recordRequest — тело создания/обновления записи. Поля владельца нет:
// он всегда берётся из принципала.
type recordRequest struct {
	Title    string           `json:"title" validate:"required,max=100"`
	Category string           `json:"category" validate:"max=50"`
	Amount   *decimal.Decimal `json:"amount" validate:"required"`
	Date     string           `json:"date" validate:"required,datetime=2006-01-02"`
	Note     string           `json:"note" validate:"max=500"`
}

func (r recordRequest) toInput() (models.RecordInput, error) {
	d, err := models.ParseDate(r.Date)
	if err != nil {
		return models.RecordInput{}, err
	}

	return models.RecordInput{
		Title:    r.Title,
		Category: r.Category,
		Amount:   *r.Amount,
		Date:     d,
		Note:     r.Note,
	}, nil
}

type recordResponse struct {
	ID        int64       `json:"id"`
	Title     string      `json:"title"`
	Category  string      `json:"category"`
	Amount    json.Number `json:"amount"`
	Date      string      `json:"date"`
	Note      string      `json:"note"`
	CreatedAt string      `json:"createdAt"`
	Username  string      `json:"username"`
}

// money рендерит сумму как JSON-число с двумя знаками после запятой.
func money(d decimal.Decimal) json.Number {
	return json.Number(d.StringFixed(2))
}

func recordFromModel(rec *models.Record, owner string) recordResponse {
	return recordResponse{
		ID:        rec.ID,
		Title:     rec.Title,
		Category:  rec.Category,
		Amount:    money(rec.Amount),
		Date:      rec.Date.Format(models.DateLayout),
		Note:      rec.Note,
		CreatedAt: rec.CreatedAt.UTC().Format(time.RFC3339),
		Username:  owner,
	}
}

type totalResponse struct {
	Total json.Number `json:"total"`
}

type countResponse struct {
	Count int64 `json:"count"`
}
