package storage

import (
	"fmt"

	"github.com/piyushmaurya04/expense-tracker/internal/models"
)

// Table описывает таблицу записей определённого типа.
// Имена берутся только из этого списка и безопасны для подстановки в SQL.
type Table struct {
	Name    string
	DateCol string
}

var tables = map[models.RecordKind]Table{
	models.KindExpense: {Name: "expenses", DateCol: "expense_date"},
	models.KindIncome:  {Name: "incomes", DateCol: "income_date"},
}

// TableFor возвращает таблицу для типа записи.
func TableFor(kind models.RecordKind) (Table, error) {
	t, ok := tables[kind]
	if !ok {
		return Table{}, fmt.Errorf("unknown record kind %q", kind)
	}

	return t, nil
}
