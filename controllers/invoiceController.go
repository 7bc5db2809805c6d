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

type InvoiceCreateDTO struct {
	SupplierName  string          `json:"supplier_name" validate:"required,min=1"`
	Branch        string          `json:"branch" validate:"required,min=1"`
	InvoiceNumber string          `json:"invoice_number" validate:"omitempty"`
	IssueDate     string          `json:"issue_date" validate:"required,ymd"`
	DueDate       string          `json:"due_date" validate:"omitempty,ymd"`
	TotalAmount   decimal.Decimal `json:"total_amount"`
}

// POST /api/invoice
func CreateInvoice(c *fiber.Ctx) error {
	var in InvoiceCreateDTO
	if err := middlewares.BindAndValidate(c, &in); err != nil {
		return err
	}

	issueDate, err := utils.ParseDay(in.IssueDate)
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid issue_date")
	}
	var dueDate *time.Time
	if in.DueDate != "" {
		d, err := utils.ParseDay(in.DueDate)
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid due_date")
		}
		dueDate = &d
	}

	invoice, err := models.NewInvoice(in.SupplierName, in.Branch, in.InvoiceNumber, issueDate, dueDate, in.TotalAmount)
	if err != nil {
		return err
	}

	db := middlewares.RequestDB(c)
	if err := db.Create(invoice).Error; err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "could not create invoice")
	}
	return c.Status(fiber.StatusCreated).JSON(invoice)
}

// GET /api/invoices?supplier=&status=
func GetInvoices(c *fiber.Ctx) error {
	db := middlewares.RequestDB(c)
	q := db.Model(&models.Invoice{}).Order("issue_date ASC, id ASC")
	if supplier := c.Query("supplier"); supplier != "" {
		q = q.Where("supplier_name = ?", supplier)
	}
	if status := c.Query("status"); status != "" {
		q = q.Where("status = ?", status)
	}

	var invoices []models.Invoice
	if err := q.Find(&invoices).Error; err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, "could not load invoices")
	}
	return c.JSON(invoices)
}

// GET /api/invoices/outstanding
func GetOutstanding(c *fiber.Ctx) error {
	db := middlewares.RequestDB(c)
	var invoices []models.Invoice
	if err := db.Where("status <> ?", models.InvoiceStatusPaid).Find(&invoices).Error; err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, "could not load invoices")
	}
	return c.JSON(models.GroupOutstandingBySupplier(invoices, time.Now().UTC()))
}

// DELETE /api/invoice/:id
func DeleteInvoice(c *fiber.Ctx) error {
	id, err := strconv.ParseUint(c.Params("id"), 10, 32)
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid invoice id")
	}
	if err := models.DeleteInvoice(middlewares.RequestDB(c), uint(id)); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"message": "invoice deleted"})
}
