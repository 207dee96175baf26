package handlers

import (
	"errors"
	"log"

	"gudang/internal/repositories"
	"gudang/internal/services"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
)

// handleServiceError maps service-layer errors onto HTTP responses with a
// structured `{error, ...context}` body. Insufficient-stock failures carry
// the currently available stock so the caller can act on it.
func handleServiceError(c *fiber.Ctx, err error) error {
	var stockErr *services.InsufficientStockError
	if errors.As(err, &stockErr) {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": stockErr.Error(),
			"stock": stockErr.Available,
		})
	}

	switch {
	case errors.Is(err, services.ErrProductNotFound),
		errors.Is(err, services.ErrTransactionNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": err.Error(),
		})
	case errors.Is(err, services.ErrInvalidQuantity),
		errors.Is(err, services.ErrInvalidTimestamp),
		errors.Is(err, services.ErrInvalidStock):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": err.Error(),
		})
	case errors.Is(err, services.ErrProductHasTransactions):
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{
			"error": err.Error(),
		})
	case errors.Is(err, repositories.ErrConflict),
		errors.Is(err, repositories.ErrLockTimeout):
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
			"error": err.Error(),
			"retry": true,
		})
	}

	log.Printf("Unhandled service error: %v", err)
	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
		"error": err.Error(),
	})
}

// validationErrorResponse renders validator failures as a field→reason map.
func validationErrorResponse(c *fiber.Ctx, err error) error {
	validationErrors := err.(validator.ValidationErrors)
	errorMessages := make(map[string]string)
	for _, e := range validationErrors {
		errorMessages[e.Field()] = "failed on the '" + e.Tag() + "' tag"
	}
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
		"error":  "validation failed",
		"fields": errorMessages,
	})
}
