package middlewares

import (
	"errors"

	"contable-backend/config"
	"contable-backend/models"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
)

// ErrorHandler centralizes error responses: domain errors map onto the HTTP
// taxonomy, validator errors become per-field maps, everything else is a
// sanitized 500.
func ErrorHandler(c *fiber.Ctx, err error) error {
	// Fiber errors keep their status + message
	if fe, ok := err.(*fiber.Error); ok {
		return c.Status(fe.Code).JSON(fiber.Map{"message": fe.Message})
	}

	// Validator errors (422 + per-field info)
	if ve, ok := err.(validator.ValidationErrors); ok {
		out := make(map[string]string, len(ve))
		for _, fe := range ve {
			out[fe.Field()] = fe.Tag()
		}
		return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{
			"message": "validation failed",
			"errors":  out,
		})
	}

	// Domain taxonomy
	var validationErr *models.ValidationError
	if errors.As(err, &validationErr) {
		return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{"message": validationErr.Error()})
	}
	var notFoundErr *models.NotFoundError
	if errors.As(err, &notFoundErr) {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"message": notFoundErr.Error()})
	}
	var conflictErr *models.ConflictError
	if errors.As(err, &conflictErr) {
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"message": conflictErr.Error()})
	}
	var storeErr *models.StoreError
	if errors.As(err, &storeErr) {
		config.LogError("http", "ErrorHandler", c.Path(), storeErr)
		return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{"message": "storage backend failure"})
	}

	config.LogError("http", "ErrorHandler", c.Path(), err)
	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
		"message": "internal server error",
	})
}
