package controllers

import (
	"io"

	"contable-backend/models"
	"contable-backend/utils"

	"github.com/gofiber/fiber/v2"
)

func readUpload(c *fiber.Ctx) (string, []byte, error) {
	fh, err := c.FormFile("file")
	if err != nil {
		return "", nil, fiber.NewError(fiber.StatusBadRequest, "statement file is required")
	}
	f, err := fh.Open()
	if err != nil {
		return "", nil, fiber.NewError(fiber.StatusBadRequest, "could not open uploaded file")
	}
	defer f.Close()
	data, err := io.ReadAll(f)
	if err != nil {
		return "", nil, fiber.NewError(fiber.StatusBadRequest, "could not read uploaded file")
	}
	return fh.Filename, data, nil
}

// POST /api/statements/preview?rows=N
//
// Parses the head of the uploaded statement so the user can map the date,
// amount and concept columns.
func PreviewStatement(c *fiber.Ctx) error {
	fileName, data, err := readUpload(c)
	if err != nil {
		return err
	}

	headers, rows, err := models.ParseStatementFile(fileName, data)
	if err != nil {
		return err
	}
	n := utils.ParseIntDefault(c.Query("rows"), 10)
	return c.JSON(models.PreviewStatement(headers, rows, n))
}
