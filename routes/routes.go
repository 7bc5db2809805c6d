package routes

import (
	"github.com/gofiber/fiber/v2"

	"contable-backend/controllers"
	"contable-backend/middlewares"
)

// Register wires all HTTP routes.
func Register(app *fiber.App) {
	api := app.Group("/api")

	// All endpoints require a bearer token from the identity provider
	api.Use(middlewares.IsAuthenticated())

	// Idempotency guard FIRST (not tied to the request TX)
	api.Use(middlewares.Idempotency())

	// Then the per-request transaction for mutating methods
	api.Use(middlewares.Tx())

	// Accounts payable: invoices
	api.Post("/invoice", controllers.CreateInvoice)
	api.Get("/invoices", controllers.GetInvoices)
	api.Get("/invoices/outstanding", controllers.GetOutstanding)
	api.Delete("/invoice/:id", controllers.DeleteInvoice)

	// Accounts payable: payments (delete = reversal)
	api.Post("/payments", controllers.CreatePayment)
	api.Get("/payments", controllers.GetPayments)
	api.Delete("/payment/:id", controllers.DeletePayment)

	// Income/expense entries consumed by the matcher
	api.Post("/transaction", controllers.CreateTransaction)
	api.Get("/transactions", controllers.GetTransactions)
	api.Delete("/transaction/:id", controllers.DeleteTransaction)

	// Bank statement import + reconciliation
	api.Post("/statements/preview", controllers.PreviewStatement)
	api.Post("/reconciliation/session", controllers.StartSession)
	api.Get("/reconciliation/session", controllers.GetSession)
	api.Delete("/reconciliation/session", controllers.DeleteSession)
	api.Post("/reconciliation/match", controllers.ManualMatch)
	api.Post("/reconciliation/multi-match", controllers.MultiMatch)
	api.Post("/reconciliation/exclude", controllers.Exclude)
	api.Post("/reconciliation/finalize", controllers.Finalize)
	api.Get("/reconciliation/sessions", controllers.GetSessionHistory)

	// Reports
	api.Get("/reports/income-statement", controllers.IncomeStatement)
	api.Get("/reports/balance-sheet", controllers.BalanceSheet)
}
