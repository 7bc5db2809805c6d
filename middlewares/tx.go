package middlewares

import (
	"contable-backend/config"
	"contable-backend/database"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

// Tx opens a per-request DB transaction for mutating methods: committed when
// the handler chain succeeds, rolled back on error or panic. This is what
// makes a manual match's two-sided write all-or-nothing.
func Tx() fiber.Handler {
	return func(c *fiber.Ctx) (err error) {
		switch c.Method() {
		case fiber.MethodPost, fiber.MethodPut, fiber.MethodPatch, fiber.MethodDelete:
		default:
			return c.Next()
		}

		tx := database.DB.Begin()
		if tx.Error != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "failed to begin transaction")
		}

		defer func() {
			if r := recover(); r != nil {
				_ = tx.Rollback()
				panic(r) // re-panic after rollback so Fiber's handler can catch
			}
			if err != nil {
				_ = tx.Rollback()
				return
			}
			if e := tx.Commit().Error; e != nil {
				config.LogError("middlewares", "Tx", c.Path(), e)
				err = fiber.NewError(fiber.StatusInternalServerError, "transaction commit failed")
			}
		}()

		c.Locals("tx", tx)
		err = c.Next()
		return err
	}
}

// RequestDB returns the per-request transaction when one is open, else the
// shared connection (read-only handlers).
func RequestDB(c *fiber.Ctx) *gorm.DB {
	if v := c.Locals("tx"); v != nil {
		if tx, ok := v.(*gorm.DB); ok && tx != nil {
			return tx
		}
	}
	return database.DB
}
