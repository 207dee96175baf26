package repositories

import (
	"context"

	"gudang/internal/models"
)

// TransactionRepository defines the interface for transaction data access.
type TransactionRepository interface {
	List(ctx context.Context, filter TransactionFilter, sort TransactionSort) ([]models.Transaction, error)
	GetByID(ctx context.Context, id string) (*models.Transaction, error)
	Create(ctx context.Context, transaction *models.Transaction) error
	Update(ctx context.Context, transaction *models.Transaction) error
	Delete(ctx context.Context, id string) error
	// CountByProductID reports how many transactions reference a product.
	// Used by the product deletion policy.
	CountByProductID(ctx context.Context, productID string) (int64, error)
}
