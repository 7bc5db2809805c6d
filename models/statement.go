package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// ColumnMapping tells the importer which source columns carry the three
// required logical fields. Column names come from the file's header row.
type ColumnMapping struct {
	Date    string `json:"date" validate:"required"`
	Amount  string `json:"amount" validate:"required"`
	Concept string `json:"concept" validate:"required"`
}

// BankStatementSession is one imported bank statement under reconciliation.
// At most one non-finalized session exists system-wide; creation enforces it
// with a transactional check and a partial unique index in the schema.
type BankStatementSession struct {
	ID               uint              `json:"id" gorm:"primaryKey"`
	SessionNumber    string            `json:"session_number" gorm:"size:16;uniqueIndex;not null"`
	FileName         string            `json:"file_name" gorm:"not null"`
	UploadDate       time.Time         `json:"upload_date" gorm:"not null"`
	ColumnMapping    datatypes.JSON    `json:"column_mapping"`
	IsFinalized      bool              `json:"is_finalized" gorm:"not null;default:false;index"`
	FinalizedDate    *time.Time        `json:"finalized_date"`
	AutoMatchedCount int               `json:"auto_matched_count"`
	Transactions     []BankTransaction `json:"transactions" gorm:"foreignKey:SessionID;constraint:OnDelete:CASCADE"`
	CreatedAt        time.Time         `json:"created_at"`
}

// BankTransaction is one statement row inside a session. Amount is signed:
// positive is a credit (income side), negative a debit (expense side). Rows
// are never individually deleted; the session is their only lifecycle exit.
type BankTransaction struct {
	ID           string          `json:"id" gorm:"primaryKey;size:36"`
	SessionID    uint            `json:"-" gorm:"index;not null"`
	RowIndex     int             `json:"row_index"`
	Date         string          `json:"date" gorm:"size:10;not null"`
	Amount       decimal.Decimal `json:"amount" gorm:"type:numeric(12,2)"`
	Concept      string          `json:"concept"`
	IsReconciled bool            `json:"is_reconciled" gorm:"not null;default:false;index"`
	LinkedAppTxn *uint           `json:"linked_app_transaction_id" gorm:"column:linked_app_txn_id"`
	IsMultiMatch bool            `json:"is_multi_match" gorm:"not null;default:false"`
	Notes        string          `json:"notes"`
	RawRow       datatypes.JSON  `json:"raw_row"`
}

func (bt *BankTransaction) BeforeCreate(tx *gorm.DB) error {
	if bt.ID == "" {
		bt.ID = uuid.NewString()
	}
	return nil
}

// ExpectedKind maps the amount sign to the application-side transaction kind.
func (bt *BankTransaction) ExpectedKind() TransactionKind {
	if bt.Amount.Sign() > 0 {
		return KindIncome
	}
	return KindExpense
}

// AbsAmount is the unsigned amount used for exact matching.
func (bt *BankTransaction) AbsAmount() decimal.Decimal {
	return bt.Amount.Abs()
}
