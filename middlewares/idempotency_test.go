package middlewares

import (
	"bytes"
	"io"
	"net/http/httptest"
	"testing"

	"contable-backend/database"
	"contable-backend/models"

	"github.com/gofiber/fiber/v2"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func idempotencyTestApp(t *testing.T, handler fiber.Handler) *fiber.App {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := db.AutoMigrate(&models.IdempotencyKey{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	database.DB = db

	app := fiber.New()
	app.Use(func(c *fiber.Ctx) error {
		c.Locals("userID", "user-1")
		return c.Next()
	})
	app.Use(Idempotency())
	app.Post("/api/payments", handler)
	return app
}

func postPayment(t *testing.T, app *fiber.App, key, body string) (int, string) {
	t.Helper()
	req := httptest.NewRequest(fiber.MethodPost, "/api/payments", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", fiber.MIMEApplicationJSON)
	if key != "" {
		req.Header.Set("Idempotency-Key", key)
	}
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	return resp.StatusCode, string(raw)
}

func TestIdempotencyReplayRunsHandlerOnce(t *testing.T) {
	executed := 0
	app := idempotencyTestApp(t, func(c *fiber.Ctx) error {
		executed++
		return c.Status(fiber.StatusCreated).JSON(fiber.Map{"execution": executed})
	})

	body := `{"supplier_name":"Acme","total_amount":"120.00"}`
	firstStatus, firstBody := postPayment(t, app, "pay-001", body)
	secondStatus, secondBody := postPayment(t, app, "pay-001", body)

	if executed != 1 {
		t.Fatalf("handler ran %d times for one key, want 1", executed)
	}
	if firstStatus != fiber.StatusCreated || secondStatus != firstStatus {
		t.Fatalf("expected both requests to report %d, got %d then %d", fiber.StatusCreated, firstStatus, secondStatus)
	}
	if secondBody != firstBody {
		t.Fatalf("replay body %q differs from original %q", secondBody, firstBody)
	}
}

func TestIdempotencyDistinctKeysRunIndependently(t *testing.T) {
	executed := 0
	app := idempotencyTestApp(t, func(c *fiber.Ctx) error {
		executed++
		return c.SendStatus(fiber.StatusCreated)
	})

	body := `{"supplier_name":"Acme","total_amount":"120.00"}`
	postPayment(t, app, "pay-001", body)
	postPayment(t, app, "pay-002", body)

	if executed != 2 {
		t.Fatalf("distinct keys must each run the handler, got %d executions", executed)
	}
}

func TestIdempotencyKeyReuseWithDifferentBody(t *testing.T) {
	app := idempotencyTestApp(t, func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusCreated)
	})

	postPayment(t, app, "pay-001", `{"total_amount":"120.00"}`)
	status, _ := postPayment(t, app, "pay-001", `{"total_amount":"999.00"}`)

	if status != fiber.StatusConflict {
		t.Fatalf("key reuse with a different body should be %d, got %d", fiber.StatusConflict, status)
	}
}
