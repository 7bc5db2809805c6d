package controllers

import (
	"strconv"
	"time"

	"contable-backend/middlewares"
	"contable-backend/models"
	"contable-backend/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
)

type PaymentCreateDTO struct {
	SupplierName string          `json:"supplier_name" validate:"required,min=1"`
	InvoiceIDs   []uint          `json:"invoice_ids" validate:"required,min=1"`
	TotalAmount  decimal.Decimal `json:"total_amount"`
	Date         string          `json:"date" validate:"omitempty,ymd"`
}

// POST /api/payments
//
// Applies the amount oldest invoice first. When the amount exceeds the
// selected balances the payment is still accepted; the excess lands on no
// invoice and is reported back as unallocated_amount.
func CreatePayment(c *fiber.Ctx) error {
	var in PaymentCreateDTO
	if err := middlewares.BindAndValidate(c, &in); err != nil {
		return err
	}

	date := time.Now().UTC()
	if in.Date != "" {
		d, err := utils.ParseDay(in.Date)
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid date")
		}
		date = d
	}

	tx := middlewares.RequestDB(c)
	payment, unallocated, err := models.ApplyPayment(tx, in.SupplierName, in.InvoiceIDs, in.TotalAmount, date)
	if err != nil {
		return err
	}

	resp := fiber.Map{
		"payment":            payment,
		"unallocated_amount": unallocated,
	}
	if unallocated.IsPositive() {
		resp["warning"] = "payment exceeds the selected invoices' balances; the excess was not applied"
	}
	return c.Status(fiber.StatusCreated).JSON(resp)
}

// GET /api/payments?supplier=
func GetPayments(c *fiber.Ctx) error {
	db := middlewares.RequestDB(c)
	q := db.Model(&models.Payment{}).Preload("Allocations").Order("sequence_number DESC")
	if supplier := c.Query("supplier"); supplier != "" {
		q = q.Where("supplier_name = ?", supplier)
	}

	var payments []models.Payment
	if err := q.Find(&payments).Error; err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, "could not load payments")
	}
	return c.JSON(payments)
}

// DELETE /api/payment/:id
//
// Deleting a payment is its reversal: every allocation is restored onto its
// invoice before the record disappears.
func DeletePayment(c *fiber.Ctx) error {
	id, err := strconv.ParseUint(c.Params("id"), 10, 32)
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid payment id")
	}
	if err := models.ReversePayment(middlewares.RequestDB(c), uint(id)); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"message": "payment reversed"})
}
