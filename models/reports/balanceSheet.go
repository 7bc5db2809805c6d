package reports

import (
	"time"

	"contable-backend/models"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type BalanceSheetResponse struct {
	AsOf            string          `json:"as_of"`
	Cash            decimal.Decimal `json:"cash"`
	AccountsPayable decimal.Decimal `json:"accounts_payable"`
	Equity          decimal.Decimal `json:"equity"`
}

// GetBalanceSheet snapshots the books at a date: cash is cumulative income
// minus expense, accounts payable the open remaining balances, equity the
// difference.
func GetBalanceSheet(db *gorm.DB, asOf time.Time) (*BalanceSheetResponse, error) {
	sumKind := func(kind models.TransactionKind) (decimal.Decimal, error) {
		var v decimal.NullDecimal
		err := db.Model(&models.AppTransaction{}).
			Select("SUM(amount)").
			Where("kind = ? AND date <= ?", kind, asOf).
			Scan(&v).Error
		if err != nil || !v.Valid {
			return decimal.Zero, err
		}
		return v.Decimal, nil
	}

	income, err := sumKind(models.KindIncome)
	if err != nil {
		return nil, err
	}
	expense, err := sumKind(models.KindExpense)
	if err != nil {
		return nil, err
	}

	var payable decimal.NullDecimal
	err = db.Model(&models.Invoice{}).
		Select("SUM(remaining_balance)").
		Where("status <> ? AND issue_date <= ?", models.InvoiceStatusPaid, asOf).
		Scan(&payable).Error
	if err != nil {
		return nil, err
	}
	ap := decimal.Zero
	if payable.Valid {
		ap = payable.Decimal
	}

	cash := income.Sub(expense)
	return &BalanceSheetResponse{
		AsOf:            asOf.Format("2006-01-02"),
		Cash:            cash,
		AccountsPayable: ap,
		Equity:          cash.Sub(ap),
	}, nil
}
