package repositories

import (
	"context"
	"sync"
)

// MockStore is an in-memory Store for tests and local development. RunAtomic
// serializes on a single mutex, which is the in-memory analogue of the
// database's transaction isolation: no two atomic units ever interleave.
type MockStore struct {
	products     *MockProductRepository
	transactions *MockTransactionRepository
	mu           sync.Mutex
}

// NewMockStore creates an empty in-memory Store.
func NewMockStore() *MockStore {
	return &MockStore{
		products:     NewMockProductRepository(),
		transactions: NewMockTransactionRepository(),
	}
}

// Products returns the in-memory product repository.
func (s *MockStore) Products() ProductRepository {
	return s.products
}

// Transactions returns the in-memory transaction repository.
func (s *MockStore) Transactions() TransactionRepository {
	return s.transactions
}

// RunAtomic executes fn under the store-wide mutex. Writes apply in place
// with no rollback, so callers must perform every check before their first
// write, which is how the ledger is written. Must not be nested.
func (s *MockStore) RunAtomic(ctx context.Context, fn func(Store) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn(s)
}
