package models

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// RecordKind — тип финансовой записи.
type RecordKind string

const (
	KindExpense RecordKind = "expense"
	KindIncome  RecordKind = "income"
)

// Valid сообщает, известен ли тип.
func (k RecordKind) Valid() bool {
	return k == KindExpense || k == KindIncome
}

// String реализует fmt.Stringer.
func (k RecordKind) String() string {
	return string(k)
}

// DateLayout — формат даты записи (без времени).
const DateLayout = "2006-01-02"

// Record — расход или доход, принадлежащий одному пользователю.
// UserID проставляется из принципала при создании и никогда не меняется.
type Record struct {
	ID        int64
	Kind      RecordKind
	UserID    int64
	Title     string
	Category  string
	Amount    decimal.Decimal
	Date      time.Time
	Note      string
	CreatedAt time.Time
}

// RecordInput — изменяемые клиентом поля записи.
type RecordInput struct {
	Title    string
	Category string
	Amount   decimal.Decimal
	Date     time.Time
	Note     string
}

// RecordFilter — условия выборки записей владельца.
// Нулевые поля не ограничивают выборку; From/To включительно.
type RecordFilter struct {
	Category string
	From     *time.Time
	To       *time.Time
}

// ParseDate разбирает дату в формате YYYY-MM-DD (UTC).
func ParseDate(s string) (time.Time, error) {
	d, err := time.ParseInLocation(DateLayout, s, time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: want YYYY-MM-DD", s)
	}

	return d, nil
}
