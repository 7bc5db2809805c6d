package controllers

import (
	"strconv"

	"contable-backend/middlewares"
	"contable-backend/models"
	"contable-backend/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
)

type TransactionCreateDTO struct {
	Kind        string          `json:"kind" validate:"required,oneof=income expense"`
	Date        string          `json:"date" validate:"required,ymd"`
	Amount      decimal.Decimal `json:"amount"`
	Category    string          `json:"category" validate:"omitempty"`
	Description string          `json:"description" validate:"omitempty"`
}

// POST /api/transaction
func CreateTransaction(c *fiber.Ctx) error {
	var in TransactionCreateDTO
	if err := middlewares.BindAndValidate(c, &in); err != nil {
		return err
	}
	date, err := utils.ParseDay(in.Date)
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid date")
	}

	txn, err := models.NewAppTransaction(models.TransactionKind(in.Kind), date, in.Amount, in.Category, in.Description)
	if err != nil {
		return err
	}

	db := middlewares.RequestDB(c)
	if err := db.Create(txn).Error; err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "could not create transaction")
	}
	return c.Status(fiber.StatusCreated).JSON(txn)
}

// GET /api/transactions?kind=&reconciled=
func GetTransactions(c *fiber.Ctx) error {
	db := middlewares.RequestDB(c)
	q := db.Model(&models.AppTransaction{}).Order("date ASC, id ASC")
	if kind := c.Query("kind"); kind != "" {
		q = q.Where("kind = ?", kind)
	}
	if rec := c.Query("reconciled"); rec != "" {
		q = q.Where("is_reconciled = ?", rec == "true")
	}

	var txns []models.AppTransaction
	if err := q.Find(&txns).Error; err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, "could not load transactions")
	}
	return c.JSON(txns)
}

// DELETE /api/transaction/:id
func DeleteTransaction(c *fiber.Ctx) error {
	id, err := strconv.ParseUint(c.Params("id"), 10, 32)
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid transaction id")
	}
	if err := models.DeleteAppTransaction(middlewares.RequestDB(c), uint(id)); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"message": "transaction deleted"})
}
