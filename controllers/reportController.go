package controllers

import (
	"time"

	"contable-backend/middlewares"
	"contable-backend/models/reports"
	"contable-backend/utils"

	"github.com/gofiber/fiber/v2"
)

// GET /api/reports/income-statement?from=YYYY-MM-DD&to=YYYY-MM-DD
func IncomeStatement(c *fiber.Ctx) error {
	from, err := utils.ParseDay(c.Query("from"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid from date")
	}
	to, err := utils.ParseDay(c.Query("to"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid to date")
	}
	if to.Before(from) {
		return fiber.NewError(fiber.StatusBadRequest, "to date precedes from date")
	}

	out, err := reports.GetIncomeStatement(middlewares.RequestDB(c), from, to)
	if err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, "could not build income statement")
	}
	return c.JSON(out)
}

// GET /api/reports/balance-sheet?asOf=YYYY-MM-DD (defaults to today)
func BalanceSheet(c *fiber.Ctx) error {
	asOf := time.Now().UTC()
	if s := c.Query("asOf"); s != "" {
		d, err := utils.ParseDay(s)
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid asOf date")
		}
		asOf = d
	}

	out, err := reports.GetBalanceSheet(middlewares.RequestDB(c), asOf)
	if err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, "could not build balance sheet")
	}
	return c.JSON(out)
}
