package controllers

import (
	"time"

	"contable-backend/middlewares"
	"contable-backend/models"

	"github.com/gofiber/fiber/v2"
)

// POST /api/reconciliation/session
//
// Multipart form: the statement file plus date_column/amount_column/
// concept_column. Parses the full file, runs the auto-match pass and opens
// the one allowed session.
func StartSession(c *fiber.Ctx) error {
	fileName, data, err := readUpload(c)
	if err != nil {
		return err
	}
	mapping := models.ColumnMapping{
		Date:    c.FormValue("date_column"),
		Amount:  c.FormValue("amount_column"),
		Concept: c.FormValue("concept_column"),
	}
	if err := middlewares.ValidateStruct(mapping); err != nil {
		return err
	}

	headers, rows, err := models.ParseStatementFile(fileName, data)
	if err != nil {
		return err
	}
	bankTxns, skipped, err := models.BuildBankTransactions(headers, rows, mapping)
	if err != nil {
		return err
	}

	tx := middlewares.RequestDB(c)
	session, err := models.StartSession(tx, fileName, mapping, bankTxns, time.Now().UTC())
	if err != nil {
		return err
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"session":            session,
		"auto_matched_count": session.AutoMatchedCount,
		"skipped_rows":       skipped,
	})
}

// GET /api/reconciliation/session?kind=
//
// The active session with both pending pools. Kind filtering is a pure
// projection for display; it never mutates.
func GetSession(c *fiber.Ctx) error {
	db := middlewares.RequestDB(c)
	session, err := models.ActiveSession(db)
	if err != nil {
		return err
	}

	kind := models.TransactionKind(c.Query("kind"))
	pendingBank := make([]models.BankTransaction, 0)
	for _, bt := range session.Transactions {
		if !bt.IsReconciled {
			pendingBank = append(pendingBank, bt)
		}
	}
	pendingBank = models.FilterBankTransactionsByKind(pendingBank, kind)

	q := db.Model(&models.AppTransaction{}).Where("is_reconciled = ?", false).Order("date ASC, id ASC")
	if kind != "" {
		q = q.Where("kind = ?", kind)
	}
	var pendingApp []models.AppTransaction
	if err := q.Find(&pendingApp).Error; err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, "could not load pending transactions")
	}

	return c.JSON(fiber.Map{
		"session":      session,
		"pending_bank": pendingBank,
		"pending_app":  pendingApp,
	})
}

type ManualMatchDTO struct {
	BankTransactionID string `json:"bank_transaction_id" validate:"required"`
	TransactionID     uint   `json:"transaction_id" validate:"required"`
}

// POST /api/reconciliation/match
func ManualMatch(c *fiber.Ctx) error {
	var in ManualMatchDTO
	if err := middlewares.BindAndValidate(c, &in); err != nil {
		return err
	}
	tx := middlewares.RequestDB(c)
	if err := models.ManualMatch(tx, in.BankTransactionID, in.TransactionID, time.Now().UTC()); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"message": "matched"})
}

type MultiMatchDTO struct {
	TransactionID      uint     `json:"transaction_id" validate:"required"`
	BankTransactionIDs []string `json:"bank_transaction_ids" validate:"required,min=1"`
}

// POST /api/reconciliation/multi-match
//
// Several bank rows against one application transaction. Mismatched sums are
// allowed; the response carries both figures so the caller can warn.
func MultiMatch(c *fiber.Ctx) error {
	var in MultiMatchDTO
	if err := middlewares.BindAndValidate(c, &in); err != nil {
		return err
	}
	tx := middlewares.RequestDB(c)
	result, err := models.MultiMatch(tx, in.TransactionID, in.BankTransactionIDs, time.Now().UTC())
	if err != nil {
		return err
	}

	resp := fiber.Map{"result": result}
	if !result.BankTotal.Equal(result.AppAmount) {
		resp["warning"] = "bank rows do not sum to the transaction amount"
	}
	return c.JSON(resp)
}

type ExcludeDTO struct {
	BankTransactionID string `json:"bank_transaction_id" validate:"required"`
	Notes             string `json:"notes" validate:"omitempty"`
}

// POST /api/reconciliation/exclude
func Exclude(c *fiber.Ctx) error {
	var in ExcludeDTO
	if err := middlewares.BindAndValidate(c, &in); err != nil {
		return err
	}
	tx := middlewares.RequestDB(c)
	if err := models.ExcludeBankTransaction(tx, in.BankTransactionID, in.Notes); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"message": "excluded"})
}

// POST /api/reconciliation/finalize
func Finalize(c *fiber.Ctx) error {
	tx := middlewares.RequestDB(c)
	session, err := models.FinalizeSession(tx, time.Now().UTC())
	if err != nil {
		return err
	}
	return c.JSON(session)
}

// DELETE /api/reconciliation/session
//
// Unmatches everything the active session reconciled and removes it.
func DeleteSession(c *fiber.Ctx) error {
	tx := middlewares.RequestDB(c)
	if err := models.DeleteActiveSession(tx); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"message": "session deleted"})
}

// GET /api/reconciliation/sessions
func GetSessionHistory(c *fiber.Ctx) error {
	db := middlewares.RequestDB(c)
	var sessions []models.BankStatementSession
	if err := db.Where("is_finalized = ?", true).Order("id DESC").Find(&sessions).Error; err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, "could not load sessions")
	}
	return c.JSON(sessions)
}
