package repositories

import (
	"context"

	"gudang/internal/models"
)

// ProductRepository defines the interface for product data access.
type ProductRepository interface {
	List(ctx context.Context, filter ProductFilter, sort ProductSort) ([]models.Product, error)
	GetByID(ctx context.Context, id string) (*models.Product, error)
	// GetByIDForUpdate reads the product with a per-row write lock so the
	// caller's read-check-write sequence inside RunAtomic is serialized
	// against concurrent atomic units touching the same product.
	GetByIDForUpdate(ctx context.Context, id string) (*models.Product, error)
	Create(ctx context.Context, product *models.Product) error
	Update(ctx context.Context, product *models.Product) error
	Delete(ctx context.Context, id string) error
}
