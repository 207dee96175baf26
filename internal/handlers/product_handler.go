package handlers

import (
	"log"

	"gudang/internal/models"
	"gudang/internal/repositories"
	"gudang/internal/services"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
)

// ProductHandler handles HTTP requests for products.
type ProductHandler struct {
	service  *services.ProductService
	ledger   *services.InventoryLedger
	validate *validator.Validate
}

// NewProductHandler creates a new ProductHandler. The ledger handles the
// stock-delta endpoint so every stock mutation shares one discipline.
func NewProductHandler(service *services.ProductService, ledger *services.InventoryLedger) *ProductHandler {
	return &ProductHandler{
		service:  service,
		ledger:   ledger,
		validate: validator.New(),
	}
}

// RegisterRoutes registers the product routes with the Fiber app.
func (h *ProductHandler) RegisterRoutes(router fiber.Router) {
	productRoutes := router.Group("/products")
	productRoutes.Post("/", h.HandleCreateProduct)
	productRoutes.Get("/", h.HandleListProducts)
	productRoutes.Get("/:id", h.HandleGetProductByID)
	productRoutes.Put("/:id", h.HandleUpdateProduct)
	productRoutes.Patch("/:id/stock", h.HandleAdjustStock)
	productRoutes.Delete("/:id", h.HandleDeleteProduct)
}

// CreateProductRequest represents the request body for product creation.
type CreateProductRequest struct {
	Name  string `json:"name" validate:"required,min=1,max=100"`
	Type  string `json:"type" validate:"required,min=1,max=100"`
	Stock int    `json:"stock" validate:"gte=0"`
}

// HandleCreateProduct creates a new product.
func (h *ProductHandler) HandleCreateProduct(c *fiber.Ctx) error {
	var req CreateProductRequest
	if err := c.BodyParser(&req); err != nil {
		log.Printf("Error parsing create product request body: %v", err)
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "invalid request body",
		})
	}
	if err := h.validate.Struct(req); err != nil {
		return validationErrorResponse(c, err)
	}

	product := &models.Product{
		Name:  req.Name,
		Type:  req.Type,
		Stock: req.Stock,
	}
	if err := h.service.CreateProduct(c.UserContext(), product); err != nil {
		log.Printf("Error creating product: %v", err)
		return handleServiceError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(product)
}

// HandleListProducts retrieves products. The optional `search` query
// parameter matches against name and type; `sort_by_name` accepts
// asc/desc; anything else means unsorted.
func (h *ProductHandler) HandleListProducts(c *fiber.Ctx) error {
	search := c.Query("search")
	filter := repositories.ProductFilter{
		NameContains: search,
		TypeContains: search,
	}
	sort := repositories.ProductSort{
		ByName: parseSortDirection(c.Query("sort_by_name")),
	}

	products, err := h.service.ListProducts(c.UserContext(), filter, sort)
	if err != nil {
		log.Printf("Error listing products: %v", err)
		return handleServiceError(c, err)
	}
	return c.JSON(products)
}

// HandleGetProductByID retrieves a single product by its ID.
func (h *ProductHandler) HandleGetProductByID(c *fiber.Ctx) error {
	product, err := h.service.GetProductByID(c.UserContext(), c.Params("id"))
	if err != nil {
		return handleServiceError(c, err)
	}
	return c.JSON(product)
}

// UpdateProductRequest represents a partial product edit.
type UpdateProductRequest struct {
	Name  *string `json:"name" validate:"omitempty,min=1,max=100"`
	Type  *string `json:"type" validate:"omitempty,min=1,max=100"`
	Stock *int    `json:"stock" validate:"omitempty,gte=0"`
}

// HandleUpdateProduct applies a partial edit to a product.
func (h *ProductHandler) HandleUpdateProduct(c *fiber.Ctx) error {
	var req UpdateProductRequest
	if err := c.BodyParser(&req); err != nil {
		log.Printf("Error parsing update product request body: %v", err)
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "invalid request body",
		})
	}
	if err := h.validate.Struct(req); err != nil {
		return validationErrorResponse(c, err)
	}

	product, err := h.service.UpdateProduct(c.UserContext(), c.Params("id"), services.UpdateProductInput{
		Name:  req.Name,
		Type:  req.Type,
		Stock: req.Stock,
	})
	if err != nil {
		log.Printf("Error updating product %s: %v", c.Params("id"), err)
		return handleServiceError(c, err)
	}
	return c.JSON(product)
}

// AdjustStockRequest carries a signed stock delta. The pointer separates a
// missing delta from an explicit zero; a zero delta is rejected by ne=0
// because it would adjust nothing.
type AdjustStockRequest struct {
	Delta *int `json:"delta" validate:"required,ne=0"`
}

// HandleAdjustStock applies a signed delta to a product's stock.
func (h *ProductHandler) HandleAdjustStock(c *fiber.Ctx) error {
	var req AdjustStockRequest
	if err := c.BodyParser(&req); err != nil {
		log.Printf("Error parsing adjust stock request body: %v", err)
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "invalid request body",
		})
	}
	if err := h.validate.Struct(req); err != nil {
		return validationErrorResponse(c, err)
	}

	product, err := h.ledger.AdjustStock(c.UserContext(), c.Params("id"), *req.Delta)
	if err != nil {
		log.Printf("Error adjusting stock for product %s: %v", c.Params("id"), err)
		return handleServiceError(c, err)
	}
	return c.JSON(product)
}

// HandleDeleteProduct deletes a product. Deletion is rejected with 409
// while transactions still reference the product.
func (h *ProductHandler) HandleDeleteProduct(c *fiber.Ctx) error {
	if err := h.service.DeleteProduct(c.UserContext(), c.Params("id")); err != nil {
		log.Printf("Error deleting product %s: %v", c.Params("id"), err)
		return handleServiceError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// parseSortDirection reads a sort query parameter; anything other than
// asc/desc means no ordering, never an error.
func parseSortDirection(value string) repositories.SortDirection {
	switch value {
	case "asc":
		return repositories.SortAsc
	case "desc":
		return repositories.SortDesc
	}
	return repositories.SortNone
}
