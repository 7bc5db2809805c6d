package reports

import (
	"time"

	"contable-backend/models"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type CategoryLine struct {
	Category string          `json:"category"`
	Amount   decimal.Decimal `json:"amount"`
}

type IncomeStatementResponse struct {
	From              string          `json:"from"`
	To                string          `json:"to"`
	TotalIncome       decimal.Decimal `json:"total_income"`
	TotalExpense      decimal.Decimal `json:"total_expense"`
	NetResult         decimal.Decimal `json:"net_result"`
	IncomeByCategory  []CategoryLine  `json:"income_by_category"`
	ExpenseByCategory []CategoryLine  `json:"expense_by_category"`
}

// GetIncomeStatement sums income and expense entries over the date range,
// grouped by category. Plain aggregation, nothing more.
func GetIncomeStatement(db *gorm.DB, from, to time.Time) (*IncomeStatementResponse, error) {
	type row struct {
		Kind     models.TransactionKind
		Category string
		Amount   decimal.Decimal
	}
	var rows []row
	err := db.Model(&models.AppTransaction{}).
		Select("kind, category, SUM(amount) as amount").
		Where("date >= ? AND date <= ?", from, to).
		Group("kind, category").
		Order("kind, category").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	out := &IncomeStatementResponse{
		From:         from.Format("2006-01-02"),
		To:           to.Format("2006-01-02"),
		TotalIncome:  decimal.Zero,
		TotalExpense: decimal.Zero,
	}
	for _, r := range rows {
		line := CategoryLine{Category: r.Category, Amount: r.Amount}
		if r.Kind == models.KindIncome {
			out.TotalIncome = out.TotalIncome.Add(r.Amount)
			out.IncomeByCategory = append(out.IncomeByCategory, line)
		} else {
			out.TotalExpense = out.TotalExpense.Add(r.Amount)
			out.ExpenseByCategory = append(out.ExpenseByCategory, line)
		}
	}
	out.NetResult = out.TotalIncome.Sub(out.TotalExpense)
	return out, nil
}
