package models

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ExcludedNote marks bank rows reconciled without an application counterpart
// (bank fees, interest).
const ExcludedNote = "sin contrapartida"

// AutoMatchStatement pairs bank rows against the unreconciled application
// pool: same kind (from the amount sign), exactly equal absolute amount, and
// exactly equal day string. Bank rows are processed in file order; a matched
// application transaction leaves the pool so it cannot match twice. Both
// sides are mutated in place. Returns the number of matched pairs.
func AutoMatchStatement(bankTxns []BankTransaction, pool []*AppTransaction, reconciledAt time.Time) int {
	matched := 0
	for i := range bankTxns {
		bt := &bankTxns[i]
		if bt.IsReconciled {
			continue
		}
		kind := bt.ExpectedKind()
		abs := bt.AbsAmount()
		for _, at := range pool {
			if at.IsReconciled {
				continue
			}
			if at.Kind != kind || !at.Amount.Equal(abs) || at.DayString() != bt.Date {
				continue
			}
			linked := at.ID
			bt.IsReconciled = true
			bt.LinkedAppTxn = &linked
			at.IsReconciled = true
			stamp := reconciledAt
			at.ReconciledDate = &stamp
			at.BankConcept = bt.Concept
			matched++
			break
		}
	}
	return matched
}

// FilterBankTransactionsByKind is a display projection; it never mutates.
// Empty kind returns the input unchanged.
func FilterBankTransactionsByKind(txns []BankTransaction, kind TransactionKind) []BankTransaction {
	if kind == "" {
		return txns
	}
	out := make([]BankTransaction, 0, len(txns))
	for _, bt := range txns {
		if bt.ExpectedKind() == kind {
			out = append(out, bt)
		}
	}
	return out
}

// ActiveSession returns the single non-finalized session with its rows, or a
// NotFoundError when none is open.
func ActiveSession(tx *gorm.DB) (*BankStatementSession, error) {
	var session BankStatementSession
	err := tx.Preload("Transactions", func(db *gorm.DB) *gorm.DB {
		return db.Order("row_index ASC")
	}).Where("is_finalized = ?", false).First(&session).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, NewNotFoundError("session", "active")
	}
	if err != nil {
		return nil, wrapStore("load session", err)
	}
	return &session, nil
}

// StartSession creates the statement session: refuses if one is already open
// (row-locked check; the partial unique index backs it up), runs the
// auto-match pass over the unreconciled application pool, mints the C-NNN
// session number and commits session, rows and application-side flags in the
// caller's transaction.
func StartSession(tx *gorm.DB, fileName string, mapping ColumnMapping, bankTxns []BankTransaction, now time.Time) (*BankStatementSession, error) {
	if len(bankTxns) == 0 {
		return nil, NewValidationError("file", "statement has no usable rows")
	}

	var open []BankStatementSession
	if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("is_finalized = ?", false).
		Find(&open).Error; err != nil {
		return nil, wrapStore("check open session", err)
	}
	if len(open) > 0 {
		return nil, NewConflictError("a bank statement session is already open; finalize or delete it first")
	}

	var loaded []AppTransaction
	if err := tx.Where("is_reconciled = ?", false).Order("date ASC, id ASC").Find(&loaded).Error; err != nil {
		return nil, wrapStore("load unreconciled transactions", err)
	}
	pool := make([]*AppTransaction, len(loaded))
	for i := range loaded {
		pool[i] = &loaded[i]
	}

	matched := AutoMatchStatement(bankTxns, pool, now)

	seq, err := NextSequence(tx, ReconciliationSequence)
	if err != nil {
		return nil, err
	}
	mappingJSON, err := json.Marshal(mapping)
	if err != nil {
		return nil, wrapStore("encode mapping", err)
	}

	session := BankStatementSession{
		SessionNumber:    FormatSessionNumber(seq),
		FileName:         fileName,
		UploadDate:       now,
		ColumnMapping:    datatypes.JSON(mappingJSON),
		IsFinalized:      false,
		AutoMatchedCount: matched,
		Transactions:     bankTxns,
	}
	if err := tx.Create(&session).Error; err != nil {
		// Two concurrent starts can both pass the empty-table lock; the
		// loser trips the partial unique index instead.
		if isOpenSessionConflict(err) {
			return nil, NewConflictError("a bank statement session is already open; finalize or delete it first")
		}
		return nil, wrapStore("create session", err)
	}

	for _, at := range pool {
		if !at.IsReconciled {
			continue
		}
		if err := tx.Model(&AppTransaction{}).Where("id = ?", at.ID).Updates(map[string]any{
			"is_reconciled":   true,
			"reconciled_date": at.ReconciledDate,
			"bank_concept":    at.BankConcept,
		}).Error; err != nil {
			return nil, wrapStore("flag transaction reconciled", err)
		}
	}
	return &session, nil
}

// isOpenSessionConflict reports whether err is the unique violation raised by
// idx_one_open_statement_session, the schema-level backstop for the single
// open session.
func isOpenSessionConflict(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) &&
		pgErr.Code == "23505" &&
		pgErr.ConstraintName == "idx_one_open_statement_session"
}

func pendingBankTransaction(tx *gorm.DB, session *BankStatementSession, bankTxID string) (*BankTransaction, error) {
	var bt BankTransaction
	err := tx.Where("id = ? AND session_id = ?", bankTxID, session.ID).First(&bt).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, NewNotFoundError("bank transaction", bankTxID)
	}
	if err != nil {
		return nil, wrapStore("load bank transaction", err)
	}
	if bt.IsReconciled {
		return nil, NewNotFoundError("pending bank transaction", bankTxID)
	}
	return &bt, nil
}

func pendingAppTransaction(tx *gorm.DB, appTxID uint) (*AppTransaction, error) {
	var at AppTransaction
	err := tx.First(&at, "id = ?", appTxID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, NewNotFoundError("transaction", fmt.Sprint(appTxID))
	}
	if err != nil {
		return nil, wrapStore("load transaction", err)
	}
	if at.IsReconciled {
		return nil, NewNotFoundError("pending transaction", fmt.Sprint(appTxID))
	}
	return &at, nil
}

// ManualMatch links one pending bank row to one pending application
// transaction. Both updates commit in the caller's transaction, so no
// half-matched state can survive a failure.
func ManualMatch(tx *gorm.DB, bankTxID string, appTxID uint, now time.Time) error {
	session, err := ActiveSession(tx)
	if err != nil {
		return err
	}
	bt, err := pendingBankTransaction(tx, session, bankTxID)
	if err != nil {
		return err
	}
	at, err := pendingAppTransaction(tx, appTxID)
	if err != nil {
		return err
	}

	if err := tx.Model(&AppTransaction{}).Where("id = ?", at.ID).Updates(map[string]any{
		"is_reconciled":   true,
		"reconciled_date": now,
		"bank_concept":    bt.Concept,
	}).Error; err != nil {
		return wrapStore("flag transaction reconciled", err)
	}
	if err := tx.Model(&BankTransaction{}).Where("id = ?", bt.ID).Updates(map[string]any{
		"is_reconciled":     true,
		"linked_app_txn_id": at.ID,
	}).Error; err != nil {
		return wrapStore("flag bank transaction reconciled", err)
	}
	return nil
}

// MultiMatchResult reports both sides' amounts so callers can warn on
// mismatched sums; the match is allowed regardless (explicit policy).
type MultiMatchResult struct {
	BankTotal decimal.Decimal `json:"bank_total"`
	AppAmount decimal.Decimal `json:"app_amount"`
	Matched   int             `json:"matched"`
}

// MultiMatch links several pending bank rows to one pending application
// transaction. No amount-equality guard between the bank-side sum and the
// application amount; the result carries both figures.
func MultiMatch(tx *gorm.DB, appTxID uint, bankTxIDs []string, now time.Time) (*MultiMatchResult, error) {
	if len(bankTxIDs) == 0 {
		return nil, NewValidationError("bank_transaction_ids", "no bank transactions selected")
	}
	session, err := ActiveSession(tx)
	if err != nil {
		return nil, err
	}
	at, err := pendingAppTransaction(tx, appTxID)
	if err != nil {
		return nil, err
	}

	bankTotal := decimal.Zero
	selected := make([]*BankTransaction, 0, len(bankTxIDs))
	seen := make(map[string]bool, len(bankTxIDs))
	for _, id := range bankTxIDs {
		if seen[id] {
			continue
		}
		seen[id] = true
		bt, err := pendingBankTransaction(tx, session, id)
		if err != nil {
			return nil, err
		}
		selected = append(selected, bt)
		bankTotal = bankTotal.Add(bt.AbsAmount())
	}

	concept := fmt.Sprintf("%d movimientos bancarios", len(selected))
	if err := tx.Model(&AppTransaction{}).Where("id = ?", at.ID).Updates(map[string]any{
		"is_reconciled":   true,
		"reconciled_date": now,
		"bank_concept":    concept,
	}).Error; err != nil {
		return nil, wrapStore("flag transaction reconciled", err)
	}
	for _, bt := range selected {
		if err := tx.Model(&BankTransaction{}).Where("id = ?", bt.ID).Updates(map[string]any{
			"is_reconciled":     true,
			"linked_app_txn_id": at.ID,
			"is_multi_match":    true,
		}).Error; err != nil {
			return nil, wrapStore("flag bank transaction reconciled", err)
		}
	}
	return &MultiMatchResult{BankTotal: bankTotal, AppAmount: at.Amount, Matched: len(selected)}, nil
}

// ExcludeBankTransaction marks a bank-only row reconciled with no linked
// application record, removing it from the pending pool.
func ExcludeBankTransaction(tx *gorm.DB, bankTxID, note string) error {
	session, err := ActiveSession(tx)
	if err != nil {
		return err
	}
	bt, err := pendingBankTransaction(tx, session, bankTxID)
	if err != nil {
		return err
	}
	if note == "" {
		note = ExcludedNote
	}
	if err := tx.Model(&BankTransaction{}).Where("id = ?", bt.ID).Updates(map[string]any{
		"is_reconciled": true,
		"notes":         note,
	}).Error; err != nil {
		return wrapStore("exclude bank transaction", err)
	}
	return nil
}

// FinalizeSession closes the active session. Rows still pending stay
// unreconciled and attached to the finalized session; a fresh import is the
// only way to work them again.
func FinalizeSession(tx *gorm.DB, now time.Time) (*BankStatementSession, error) {
	session, err := ActiveSession(tx)
	if err != nil {
		var nf *NotFoundError
		if errors.As(err, &nf) {
			return nil, NewConflictError("no open bank statement session to finalize")
		}
		return nil, err
	}
	if err := tx.Model(&BankStatementSession{}).Where("id = ?", session.ID).Updates(map[string]any{
		"is_finalized":   true,
		"finalized_date": now,
	}).Error; err != nil {
		return nil, wrapStore("finalize session", err)
	}
	session.IsFinalized = true
	session.FinalizedDate = &now
	return session, nil
}

// DeleteActiveSession unmatches everything the session reconciled: every
// linked application transaction gets its flags reverted, then the session
// and its rows are removed. One transaction, so a failure leaves both sides
// intact.
func DeleteActiveSession(tx *gorm.DB) error {
	session, err := ActiveSession(tx)
	if err != nil {
		var nf *NotFoundError
		if errors.As(err, &nf) {
			return NewConflictError("no open bank statement session to delete")
		}
		return err
	}

	for _, bt := range session.Transactions {
		if bt.LinkedAppTxn == nil {
			continue
		}
		if err := tx.Model(&AppTransaction{}).Where("id = ?", *bt.LinkedAppTxn).Updates(map[string]any{
			"is_reconciled":   false,
			"reconciled_date": nil,
			"bank_concept":    "",
		}).Error; err != nil {
			return wrapStore("revert transaction flags", err)
		}
	}
	if err := tx.Where("session_id = ?", session.ID).Delete(&BankTransaction{}).Error; err != nil {
		return wrapStore("delete bank transactions", err)
	}
	if err := tx.Delete(&BankStatementSession{}, "id = ?", session.ID).Error; err != nil {
		return wrapStore("delete session", err)
	}
	return nil
}
