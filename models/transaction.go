package models

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type TransactionKind string

const (
	KindIncome  TransactionKind = "income"
	KindExpense TransactionKind = "expense"
)

// AppTransaction is an income or expense record owned by the data-entry side
// of the system. The reconciliation matcher only ever flips IsReconciled and
// stamps ReconciledDate/BankConcept; it never creates or deletes these rows.
type AppTransaction struct {
	ID             uint            `json:"id" gorm:"primaryKey"`
	Date           time.Time       `json:"date" gorm:"not null;index"`
	Amount         decimal.Decimal `json:"amount" gorm:"type:numeric(12,2)"`
	Kind           TransactionKind `json:"kind" gorm:"type:varchar(10);not null;index"`
	Category       string          `json:"category"`
	Description    string          `json:"description"`
	IsReconciled   bool            `json:"is_reconciled" gorm:"not null;default:false;index"`
	ReconciledDate *time.Time      `json:"reconciled_date"`
	BankConcept    string          `json:"bank_concept"`
	CreatedAt      time.Time       `json:"created_at"`
}

// DayString renders the transaction date the way bank rows carry it.
func (t *AppTransaction) DayString() string {
	return t.Date.Format("2006-01-02")
}

// NewAppTransaction validates and builds an unreconciled income/expense entry.
func NewAppTransaction(kind TransactionKind, date time.Time, amount decimal.Decimal, category, description string) (*AppTransaction, error) {
	if kind != KindIncome && kind != KindExpense {
		return nil, NewValidationError("kind", "kind must be income or expense")
	}
	if !amount.IsPositive() {
		return nil, NewValidationError("amount", "amount must be greater than zero")
	}
	return &AppTransaction{
		Date:        date,
		Amount:      amount.Round(2),
		Kind:        kind,
		Category:    strings.TrimSpace(category),
		Description: strings.TrimSpace(description),
	}, nil
}

// DeleteAppTransaction refuses to drop a reconciled record; its bank link
// would dangle inside a statement session otherwise.
func DeleteAppTransaction(tx *gorm.DB, id uint) error {
	var txn AppTransaction
	err := tx.First(&txn, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return NewNotFoundError("transaction", fmt.Sprint(id))
	}
	if err != nil {
		return wrapStore("load transaction", err)
	}
	if txn.IsReconciled {
		return NewConflictError("transaction is reconciled; delete the statement session first")
	}
	if err := tx.Delete(&txn).Error; err != nil {
		return wrapStore("delete transaction", err)
	}
	return nil
}
