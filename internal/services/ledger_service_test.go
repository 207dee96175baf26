package services_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"gudang/internal/models"
	"gudang/internal/repositories"
	"gudang/internal/services"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

// MockEventPublisher is a mock implementation of services.EventPublisher.
type MockEventPublisher struct {
	mock.Mock
}

func (m *MockEventPublisher) PublishInventoryEvent(event string, data map[string]interface{}) error {
	args := m.Called(event, data)
	return args.Error(0)
}

// conflictStore wraps a Store and fails the first N RunAtomic calls with
// ErrConflict, simulating serialization failures under contention.
type conflictStore struct {
	repositories.Store
	failures int
}

func (s *conflictStore) RunAtomic(ctx context.Context, fn func(repositories.Store) error) error {
	if s.failures > 0 {
		s.failures--
		return repositories.ErrConflict
	}
	return s.Store.RunAtomic(ctx, fn)
}

func seedProduct(t *testing.T, store repositories.Store, name string, stock int) *models.Product {
	t.Helper()
	product := &models.Product{Name: name, Type: "Hardware", Stock: stock}
	err := store.Products().Create(context.Background(), product)
	assert.NoError(t, err)
	return product
}

func TestInventoryLedger_RecordTransaction(t *testing.T) {
	store := repositories.NewMockStore()
	mockPub := new(MockEventPublisher)
	ledger := services.NewInventoryLedger(store, mockPub, 0)
	product := seedProduct(t, store, "Widget", 5)

	mockPub.On("PublishInventoryEvent", "transaction.recorded", mock.Anything).Return(nil).Once()

	transaction, err := ledger.RecordTransaction(context.Background(), services.RecordTransactionInput{
		ProductID:       product.ID,
		Quantity:        3,
		TransactionDate: "2024-05-01T10:00:00Z",
	})
	assert.NoError(t, err)
	assert.NotEmpty(t, transaction.ID)
	assert.Equal(t, product.ID, transaction.ProductID)
	assert.Equal(t, 3, transaction.Quantity)

	stored, err := store.Products().GetByID(context.Background(), product.ID)
	assert.NoError(t, err)
	assert.Equal(t, 2, stored.Stock)

	// A second sale of 3 must fail: only 2 units remain.
	_, err = ledger.RecordTransaction(context.Background(), services.RecordTransactionInput{
		ProductID:       product.ID,
		Quantity:        3,
		TransactionDate: "2024-05-01T11:00:00Z",
	})
	assert.ErrorIs(t, err, services.ErrInsufficientStock)
	var stockErr *services.InsufficientStockError
	assert.ErrorAs(t, err, &stockErr)
	assert.Equal(t, 2, stockErr.Available)
	assert.Equal(t, 3, stockErr.Requested)

	// The failed call must leave stock and the transaction log untouched.
	stored, err = store.Products().GetByID(context.Background(), product.ID)
	assert.NoError(t, err)
	assert.Equal(t, 2, stored.Stock)
	transactions, err := store.Transactions().List(context.Background(), repositories.TransactionFilter{}, repositories.TransactionSort{})
	assert.NoError(t, err)
	assert.Len(t, transactions, 1)

	mockPub.AssertExpectations(t)
}

func TestInventoryLedger_RecordTransaction_Validation(t *testing.T) {
	store := repositories.NewMockStore()
	ledger := services.NewInventoryLedger(store, nil, 0)
	product := seedProduct(t, store, "Widget", 5)

	_, err := ledger.RecordTransaction(context.Background(), services.RecordTransactionInput{
		ProductID:       product.ID,
		Quantity:        0,
		TransactionDate: "2024-05-01T10:00:00Z",
	})
	assert.ErrorIs(t, err, services.ErrInvalidQuantity)

	_, err = ledger.RecordTransaction(context.Background(), services.RecordTransactionInput{
		ProductID:       product.ID,
		Quantity:        -4,
		TransactionDate: "2024-05-01T10:00:00Z",
	})
	assert.ErrorIs(t, err, services.ErrInvalidQuantity)

	_, err = ledger.RecordTransaction(context.Background(), services.RecordTransactionInput{
		ProductID:       product.ID,
		Quantity:        1,
		TransactionDate: "not-a-date",
	})
	assert.ErrorIs(t, err, services.ErrInvalidTimestamp)

	_, err = ledger.RecordTransaction(context.Background(), services.RecordTransactionInput{
		ProductID:       "0e3b4f9e-0000-0000-0000-000000000000",
		Quantity:        1,
		TransactionDate: "2024-05-01T10:00:00Z",
	})
	assert.ErrorIs(t, err, services.ErrProductNotFound)

	// None of the failed calls may have written anything.
	stored, err := store.Products().GetByID(context.Background(), product.ID)
	assert.NoError(t, err)
	assert.Equal(t, 5, stored.Stock)
	transactions, err := store.Transactions().List(context.Background(), repositories.TransactionFilter{}, repositories.TransactionSort{})
	assert.NoError(t, err)
	assert.Empty(t, transactions)
}

func TestInventoryLedger_RecordTransaction_ExactStock(t *testing.T) {
	store := repositories.NewMockStore()
	ledger := services.NewInventoryLedger(store, nil, 0)
	product := seedProduct(t, store, "Widget", 1)

	_, err := ledger.RecordTransaction(context.Background(), services.RecordTransactionInput{
		ProductID:       product.ID,
		Quantity:        1,
		TransactionDate: "2024-05-01T10:00:00Z",
	})
	assert.NoError(t, err)

	stored, err := store.Products().GetByID(context.Background(), product.ID)
	assert.NoError(t, err)
	assert.Equal(t, 0, stored.Stock)
}

func TestInventoryLedger_ConcurrentRecordTransactions(t *testing.T) {
	const stock = 5
	const callers = 20

	store := repositories.NewMockStore()
	ledger := services.NewInventoryLedger(store, nil, 0)
	product := seedProduct(t, store, "Widget", stock)

	var wg sync.WaitGroup
	results := make(chan error, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := ledger.RecordTransaction(context.Background(), services.RecordTransactionInput{
				ProductID:       product.ID,
				Quantity:        1,
				TransactionDate: "2024-05-01T10:00:00Z",
			})
			results <- err
		}()
	}
	wg.Wait()
	close(results)

	var succeeded, outOfStock int
	for err := range results {
		switch {
		case err == nil:
			succeeded++
		case errors.Is(err, services.ErrInsufficientStock):
			outOfStock++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}

	assert.Equal(t, stock, succeeded)
	assert.Equal(t, callers-stock, outOfStock)

	stored, err := store.Products().GetByID(context.Background(), product.ID)
	assert.NoError(t, err)
	assert.Equal(t, 0, stored.Stock)
	assert.GreaterOrEqual(t, stored.Stock, 0)

	transactions, err := store.Transactions().List(context.Background(), repositories.TransactionFilter{}, repositories.TransactionSort{})
	assert.NoError(t, err)
	assert.Len(t, transactions, stock)
}

func TestInventoryLedger_ReverseTransaction(t *testing.T) {
	store := repositories.NewMockStore()
	mockPub := new(MockEventPublisher)
	ledger := services.NewInventoryLedger(store, mockPub, 0)
	product := seedProduct(t, store, "Widget", 5)

	mockPub.On("PublishInventoryEvent", "transaction.recorded", mock.Anything).Return(nil).Once()
	mockPub.On("PublishInventoryEvent", "transaction.reversed", mock.Anything).Return(nil).Once()

	transaction, err := ledger.RecordTransaction(context.Background(), services.RecordTransactionInput{
		ProductID:       product.ID,
		Quantity:        3,
		TransactionDate: "2024-05-01T10:00:00Z",
	})
	assert.NoError(t, err)

	err = ledger.ReverseTransaction(context.Background(), transaction.ID)
	assert.NoError(t, err)

	stored, err := store.Products().GetByID(context.Background(), product.ID)
	assert.NoError(t, err)
	assert.Equal(t, 5, stored.Stock)

	_, err = ledger.GetTransactionByID(context.Background(), transaction.ID)
	assert.ErrorIs(t, err, services.ErrTransactionNotFound)

	err = ledger.ReverseTransaction(context.Background(), transaction.ID)
	assert.ErrorIs(t, err, services.ErrTransactionNotFound)

	mockPub.AssertExpectations(t)
}

func TestInventoryLedger_UpdateTransaction_Quantity(t *testing.T) {
	store := repositories.NewMockStore()
	ledger := services.NewInventoryLedger(store, nil, 0)
	product := seedProduct(t, store, "Widget", 10)

	transaction, err := ledger.RecordTransaction(context.Background(), services.RecordTransactionInput{
		ProductID:       product.ID,
		Quantity:        4,
		TransactionDate: "2024-05-01T10:00:00Z",
	})
	assert.NoError(t, err)

	// Raising the quantity from 4 to 7 should leave stock at 3.
	newQuantity := 7
	updated, err := ledger.UpdateTransaction(context.Background(), transaction.ID, services.UpdateTransactionInput{
		Quantity: &newQuantity,
	})
	assert.NoError(t, err)
	assert.Equal(t, 7, updated.Quantity)

	stored, err := store.Products().GetByID(context.Background(), product.ID)
	assert.NoError(t, err)
	assert.Equal(t, 3, stored.Stock)

	// 3 in stock + 7 held by the transaction = 10 available; 11 must fail
	// and leave everything untouched.
	tooMany := 11
	_, err = ledger.UpdateTransaction(context.Background(), transaction.ID, services.UpdateTransactionInput{
		Quantity: &tooMany,
	})
	assert.ErrorIs(t, err, services.ErrInsufficientStock)

	stored, err = store.Products().GetByID(context.Background(), product.ID)
	assert.NoError(t, err)
	assert.Equal(t, 3, stored.Stock)
	unchanged, err := ledger.GetTransactionByID(context.Background(), transaction.ID)
	assert.NoError(t, err)
	assert.Equal(t, 7, unchanged.Quantity)
}

func TestInventoryLedger_UpdateTransaction_SwitchProduct(t *testing.T) {
	store := repositories.NewMockStore()
	ledger := services.NewInventoryLedger(store, nil, 0)
	first := seedProduct(t, store, "Widget", 10)
	second := seedProduct(t, store, "Gadget", 2)

	transaction, err := ledger.RecordTransaction(context.Background(), services.RecordTransactionInput{
		ProductID:       first.ID,
		Quantity:        4,
		TransactionDate: "2024-05-01T10:00:00Z",
	})
	assert.NoError(t, err)

	// Moving the sale to the second product restores the first and
	// decrements the second.
	newQuantity := 2
	updated, err := ledger.UpdateTransaction(context.Background(), transaction.ID, services.UpdateTransactionInput{
		ProductID: &second.ID,
		Quantity:  &newQuantity,
	})
	assert.NoError(t, err)
	assert.Equal(t, second.ID, updated.ProductID)

	storedFirst, err := store.Products().GetByID(context.Background(), first.ID)
	assert.NoError(t, err)
	assert.Equal(t, 10, storedFirst.Stock)
	storedSecond, err := store.Products().GetByID(context.Background(), second.ID)
	assert.NoError(t, err)
	assert.Equal(t, 0, storedSecond.Stock)
}

func TestInventoryLedger_UpdateTransaction_NotFound(t *testing.T) {
	store := repositories.NewMockStore()
	ledger := services.NewInventoryLedger(store, nil, 0)

	quantity := 1
	_, err := ledger.UpdateTransaction(context.Background(), "8c1f2e7a-0000-0000-0000-000000000000", services.UpdateTransactionInput{
		Quantity: &quantity,
	})
	assert.ErrorIs(t, err, services.ErrTransactionNotFound)
}

func TestInventoryLedger_AdjustStock(t *testing.T) {
	store := repositories.NewMockStore()
	ledger := services.NewInventoryLedger(store, nil, 0)
	product := seedProduct(t, store, "Widget", 5)

	adjusted, err := ledger.AdjustStock(context.Background(), product.ID, 7)
	assert.NoError(t, err)
	assert.Equal(t, 12, adjusted.Stock)

	adjusted, err = ledger.AdjustStock(context.Background(), product.ID, -12)
	assert.NoError(t, err)
	assert.Equal(t, 0, adjusted.Stock)

	_, err = ledger.AdjustStock(context.Background(), product.ID, -1)
	assert.ErrorIs(t, err, services.ErrInvalidStock)
	stored, err := store.Products().GetByID(context.Background(), product.ID)
	assert.NoError(t, err)
	assert.Equal(t, 0, stored.Stock)

	_, err = ledger.AdjustStock(context.Background(), "2d9a6b1c-0000-0000-0000-000000000000", 1)
	assert.ErrorIs(t, err, services.ErrProductNotFound)
}

func TestInventoryLedger_RetriesConflicts(t *testing.T) {
	inner := repositories.NewMockStore()
	store := &conflictStore{Store: inner, failures: 2}
	ledger := services.NewInventoryLedger(store, nil, 3)
	product := seedProduct(t, inner, "Widget", 5)

	// Two conflicts, then success on the third attempt.
	_, err := ledger.RecordTransaction(context.Background(), services.RecordTransactionInput{
		ProductID:       product.ID,
		Quantity:        1,
		TransactionDate: "2024-05-01T10:00:00Z",
	})
	assert.NoError(t, err)

	stored, err := inner.Products().GetByID(context.Background(), product.ID)
	assert.NoError(t, err)
	assert.Equal(t, 4, stored.Stock)
}

func TestInventoryLedger_SurfacesExhaustedConflicts(t *testing.T) {
	inner := repositories.NewMockStore()
	store := &conflictStore{Store: inner, failures: 10}
	ledger := services.NewInventoryLedger(store, nil, 3)
	product := seedProduct(t, inner, "Widget", 5)

	start := time.Now()
	_, err := ledger.RecordTransaction(context.Background(), services.RecordTransactionInput{
		ProductID:       product.ID,
		Quantity:        1,
		TransactionDate: "2024-05-01T10:00:00Z",
	})
	elapsed := time.Since(start)
	assert.ErrorIs(t, err, repositories.ErrConflict)

	// Three attempts back off twice (10ms + 20ms); the final failure must
	// surface without paying a third backoff.
	assert.Less(t, elapsed, 60*time.Millisecond)

	stored, err := inner.Products().GetByID(context.Background(), product.ID)
	assert.NoError(t, err)
	assert.Equal(t, 5, stored.Stock)
}

func TestInventoryLedger_CancelledContext(t *testing.T) {
	store := repositories.NewMockStore()
	ledger := services.NewInventoryLedger(store, nil, 0)
	product := seedProduct(t, store, "Widget", 5)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := ledger.RecordTransaction(ctx, services.RecordTransactionInput{
		ProductID:       product.ID,
		Quantity:        1,
		TransactionDate: "2024-05-01T10:00:00Z",
	})
	assert.ErrorIs(t, err, context.Canceled)

	// The aborted call must not have written anything.
	stored, err := store.Products().GetByID(context.Background(), product.ID)
	assert.NoError(t, err)
	assert.Equal(t, 5, stored.Stock)
	transactions, err := store.Transactions().List(context.Background(), repositories.TransactionFilter{}, repositories.TransactionSort{})
	assert.NoError(t, err)
	assert.Empty(t, transactions)
}

func TestInventoryLedger_CancelledDuringRetryBackoff(t *testing.T) {
	inner := repositories.NewMockStore()
	store := &conflictStore{Store: inner, failures: 1}
	ledger := services.NewInventoryLedger(store, nil, 3)
	product := seedProduct(t, inner, "Widget", 5)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	// The first attempt conflicts; the backoff wait must observe the
	// cancelled context instead of retrying.
	_, err := ledger.RecordTransaction(ctx, services.RecordTransactionInput{
		ProductID:       product.ID,
		Quantity:        1,
		TransactionDate: "2024-05-01T10:00:00Z",
	})
	assert.ErrorIs(t, err, context.Canceled)

	stored, err := inner.Products().GetByID(context.Background(), product.ID)
	assert.NoError(t, err)
	assert.Equal(t, 5, stored.Stock)
}
