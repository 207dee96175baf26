package repositories

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"gudang/internal/models"

	"github.com/google/uuid"
)

// MockTransactionRepository is an in-memory implementation of TransactionRepository.
type MockTransactionRepository struct {
	transactions map[string]models.Transaction
	mu           sync.RWMutex
}

// NewMockTransactionRepository creates a new instance of MockTransactionRepository.
func NewMockTransactionRepository() *MockTransactionRepository {
	return &MockTransactionRepository{
		transactions: make(map[string]models.Transaction),
	}
}

// List returns transactions matching the filter, ordered per the sort option.
func (r *MockTransactionRepository) List(_ context.Context, filter TransactionFilter, sortSpec TransactionSort) ([]models.Transaction, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	transactionList := make([]models.Transaction, 0, len(r.transactions))
	for _, t := range r.transactions {
		if !matchTransaction(t, filter) {
			continue
		}
		transactionList = append(transactionList, t)
	}

	switch sortSpec.ByDate {
	case SortAsc:
		sort.Slice(transactionList, func(i, j int) bool {
			a, b := transactionList[i], transactionList[j]
			if !a.TransactionDate.Equal(b.TransactionDate) {
				return a.TransactionDate.Before(b.TransactionDate)
			}
			return a.Quantity < b.Quantity
		})
	case SortDesc:
		sort.Slice(transactionList, func(i, j int) bool {
			a, b := transactionList[i], transactionList[j]
			if !a.TransactionDate.Equal(b.TransactionDate) {
				return a.TransactionDate.After(b.TransactionDate)
			}
			return a.Quantity > b.Quantity
		})
	}
	return transactionList, nil
}

func matchTransaction(t models.Transaction, filter TransactionFilter) bool {
	if filter.DateFrom != nil && t.TransactionDate.Before(*filter.DateFrom) {
		return false
	}
	if filter.DateTo != nil && t.TransactionDate.After(*filter.DateTo) {
		return false
	}
	if filter.QuantityMin != nil && t.Quantity < *filter.QuantityMin {
		return false
	}
	if filter.QuantityMax != nil && t.Quantity > *filter.QuantityMax {
		return false
	}
	return true
}

// GetByID returns a transaction by its ID.
func (r *MockTransactionRepository) GetByID(_ context.Context, id string) (*models.Transaction, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	transaction, ok := r.transactions[id]
	if !ok {
		return nil, fmt.Errorf("transaction with ID %s: %w", id, ErrNotFound)
	}
	return &transaction, nil
}

// Create adds a new transaction.
func (r *MockTransactionRepository) Create(_ context.Context, transaction *models.Transaction) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if transaction.ID == "" {
		transaction.ID = uuid.New().String()
	}
	r.transactions[transaction.ID] = *transaction
	return nil
}

// Update modifies an existing transaction.
func (r *MockTransactionRepository) Update(_ context.Context, transaction *models.Transaction) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, ok := r.transactions[transaction.ID]
	if !ok {
		return fmt.Errorf("transaction with ID %s: %w", transaction.ID, ErrNotFound)
	}
	r.transactions[transaction.ID] = *transaction
	return nil
}

// Delete removes a transaction by its ID.
func (r *MockTransactionRepository) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, ok := r.transactions[id]
	if !ok {
		return fmt.Errorf("transaction with ID %s: %w", id, ErrNotFound)
	}
	delete(r.transactions, id)
	return nil
}

// CountByProductID reports how many transactions reference the given product.
func (r *MockTransactionRepository) CountByProductID(_ context.Context, productID string) (int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var count int64
	for _, t := range r.transactions {
		if t.ProductID == productID {
			count++
		}
	}
	return count, nil
}
