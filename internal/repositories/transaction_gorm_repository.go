package repositories

import (
	"context"
	"fmt"

	"gudang/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GORMTransactionRepository is a GORM implementation of TransactionRepository.
type GORMTransactionRepository struct {
	db *gorm.DB
}

// NewGORMTransactionRepository creates a new instance of GORMTransactionRepository.
func NewGORMTransactionRepository(db *gorm.DB) *GORMTransactionRepository {
	return &GORMTransactionRepository{
		db: db,
	}
}

// List retrieves transactions matching the filter, ordered per the sort option.
func (r *GORMTransactionRepository) List(ctx context.Context, filter TransactionFilter, sort TransactionSort) ([]models.Transaction, error) {
	q := r.db.WithContext(ctx)

	if filter.DateFrom != nil {
		q = q.Where("transaction_date >= ?", *filter.DateFrom)
	}
	if filter.DateTo != nil {
		q = q.Where("transaction_date <= ?", *filter.DateTo)
	}
	if filter.QuantityMin != nil {
		q = q.Where("quantity >= ?", *filter.QuantityMin)
	}
	if filter.QuantityMax != nil {
		q = q.Where("quantity <= ?", *filter.QuantityMax)
	}

	switch sort.ByDate {
	case SortAsc:
		q = q.Order("transaction_date asc").Order("quantity asc")
	case SortDesc:
		q = q.Order("transaction_date desc").Order("quantity desc")
	}

	var transactions []models.Transaction
	if err := q.Find(&transactions).Error; err != nil {
		return nil, fmt.Errorf("failed to list transactions: %w", mapStorageError(err))
	}
	return transactions, nil
}

// GetByID retrieves a single transaction by its ID from the database.
func (r *GORMTransactionRepository) GetByID(ctx context.Context, id string) (*models.Transaction, error) {
	var transaction models.Transaction
	if err := r.db.WithContext(ctx).First(&transaction, "id = ?", id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, fmt.Errorf("transaction with ID %s: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get transaction by ID %s: %w", id, mapStorageError(err))
	}
	return &transaction, nil
}

// Create creates a new transaction in the database.
func (r *GORMTransactionRepository) Create(ctx context.Context, transaction *models.Transaction) error {
	if transaction.ID == "" {
		transaction.ID = uuid.New().String()
	}
	if err := r.db.WithContext(ctx).Create(transaction).Error; err != nil {
		return fmt.Errorf("failed to create transaction: %w", mapStorageError(err))
	}
	return nil
}

// Update updates an existing transaction in the database.
func (r *GORMTransactionRepository) Update(ctx context.Context, transaction *models.Transaction) error {
	res := r.db.WithContext(ctx).Save(transaction)
	if res.Error != nil {
		return fmt.Errorf("failed to update transaction: %w", mapStorageError(res.Error))
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("transaction with ID %s: %w", transaction.ID, ErrNotFound)
	}
	return nil
}

// Delete deletes a transaction by its ID from the database.
func (r *GORMTransactionRepository) Delete(ctx context.Context, id string) error {
	res := r.db.WithContext(ctx).Delete(&models.Transaction{}, "id = ?", id)
	if res.Error != nil {
		return fmt.Errorf("failed to delete transaction: %w", mapStorageError(res.Error))
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("transaction with ID %s: %w", id, ErrNotFound)
	}
	return nil
}

// CountByProductID reports how many transactions reference the given product.
func (r *GORMTransactionRepository) CountByProductID(ctx context.Context, productID string) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&models.Transaction{}).Where("product_id = ?", productID).Count(&count).Error; err != nil {
		return 0, fmt.Errorf("failed to count transactions for product %s: %w", productID, mapStorageError(err))
	}
	return count, nil
}
