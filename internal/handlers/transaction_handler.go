package handlers

import (
	"log"
	"strconv"
	"time"

	"gudang/internal/repositories"
	"gudang/internal/services"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
)

// TransactionHandler handles HTTP requests for transactions.
type TransactionHandler struct {
	ledger   *services.InventoryLedger
	validate *validator.Validate
}

// NewTransactionHandler creates a new TransactionHandler.
func NewTransactionHandler(ledger *services.InventoryLedger) *TransactionHandler {
	return &TransactionHandler{
		ledger:   ledger,
		validate: validator.New(),
	}
}

// RegisterRoutes registers the transaction routes with the Fiber app.
func (h *TransactionHandler) RegisterRoutes(router fiber.Router) {
	transactionRoutes := router.Group("/transactions")
	transactionRoutes.Post("/", h.HandleRecordTransaction)
	transactionRoutes.Get("/", h.HandleListTransactions)
	transactionRoutes.Get("/:id", h.HandleGetTransactionByID)
	transactionRoutes.Put("/:id", h.HandleUpdateTransaction)
	transactionRoutes.Delete("/:id", h.HandleReverseTransaction)
}

// RecordTransactionRequest represents the request body for recording a sale.
type RecordTransactionRequest struct {
	ProductID       string `json:"product_id" validate:"required,uuid"`
	Quantity        int    `json:"quantity" validate:"required,gt=0"`
	TransactionDate string `json:"transaction_date" validate:"required"`
}

// HandleRecordTransaction records a sale and decrements the product's stock.
func (h *TransactionHandler) HandleRecordTransaction(c *fiber.Ctx) error {
	var req RecordTransactionRequest
	if err := c.BodyParser(&req); err != nil {
		log.Printf("Error parsing record transaction request body: %v", err)
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "invalid request body",
		})
	}
	if err := h.validate.Struct(req); err != nil {
		return validationErrorResponse(c, err)
	}

	transaction, err := h.ledger.RecordTransaction(c.UserContext(), services.RecordTransactionInput{
		ProductID:       req.ProductID,
		Quantity:        req.Quantity,
		TransactionDate: req.TransactionDate,
	})
	if err != nil {
		log.Printf("Error recording transaction: %v", err)
		return handleServiceError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(transaction)
}

// HandleListTransactions retrieves transactions. Optional query parameters:
// date_start/date_end (RFC 3339), quantity_min/quantity_max, sort_by_date
// (asc/desc). Absent parameters apply no constraint.
func (h *TransactionHandler) HandleListTransactions(c *fiber.Ctx) error {
	var filter repositories.TransactionFilter

	if v := c.Query("date_start"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "date_start must be a valid RFC 3339 timestamp",
			})
		}
		filter.DateFrom = &t
	}
	if v := c.Query("date_end"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "date_end must be a valid RFC 3339 timestamp",
			})
		}
		filter.DateTo = &t
	}
	if v := c.Query("quantity_min"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "quantity_min must be an integer",
			})
		}
		filter.QuantityMin = &n
	}
	if v := c.Query("quantity_max"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "quantity_max must be an integer",
			})
		}
		filter.QuantityMax = &n
	}

	sort := repositories.TransactionSort{
		ByDate: parseSortDirection(c.Query("sort_by_date")),
	}

	transactions, err := h.ledger.ListTransactions(c.UserContext(), filter, sort)
	if err != nil {
		log.Printf("Error listing transactions: %v", err)
		return handleServiceError(c, err)
	}
	return c.JSON(transactions)
}

// HandleGetTransactionByID retrieves a single transaction by its ID.
func (h *TransactionHandler) HandleGetTransactionByID(c *fiber.Ctx) error {
	transaction, err := h.ledger.GetTransactionByID(c.UserContext(), c.Params("id"))
	if err != nil {
		return handleServiceError(c, err)
	}
	return c.JSON(transaction)
}

// UpdateTransactionRequest represents a partial transaction edit.
type UpdateTransactionRequest struct {
	ProductID       *string `json:"product_id" validate:"omitempty,uuid"`
	Quantity        *int    `json:"quantity" validate:"omitempty,gt=0"`
	TransactionDate *string `json:"transaction_date"`
}

// HandleUpdateTransaction applies a partial edit and reconciles the
// affected product stock.
func (h *TransactionHandler) HandleUpdateTransaction(c *fiber.Ctx) error {
	var req UpdateTransactionRequest
	if err := c.BodyParser(&req); err != nil {
		log.Printf("Error parsing update transaction request body: %v", err)
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "invalid request body",
		})
	}
	if err := h.validate.Struct(req); err != nil {
		return validationErrorResponse(c, err)
	}

	transaction, err := h.ledger.UpdateTransaction(c.UserContext(), c.Params("id"), services.UpdateTransactionInput{
		ProductID:       req.ProductID,
		Quantity:        req.Quantity,
		TransactionDate: req.TransactionDate,
	})
	if err != nil {
		log.Printf("Error updating transaction %s: %v", c.Params("id"), err)
		return handleServiceError(c, err)
	}
	return c.JSON(transaction)
}

// HandleReverseTransaction deletes a transaction and restores the
// product's stock by its quantity.
func (h *TransactionHandler) HandleReverseTransaction(c *fiber.Ctx) error {
	if err := h.ledger.ReverseTransaction(c.UserContext(), c.Params("id")); err != nil {
		log.Printf("Error reversing transaction %s: %v", c.Params("id"), err)
		return handleServiceError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}
