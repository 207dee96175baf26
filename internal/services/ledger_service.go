package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"gudang/internal/models"
	"gudang/internal/repositories"
)

const (
	defaultMaxAttempts  = 3
	defaultRetryBackoff = 10 * time.Millisecond
)

// EventPublisher publishes inventory events to the message broker.
// Implementations must be safe for concurrent use.
type EventPublisher interface {
	PublishInventoryEvent(event string, data map[string]interface{}) error
}

// InventoryLedger owns the invariant that a product's stock never goes
// negative as a result of recorded transactions. Every stock mutation runs
// inside a single atomic unit against the store, with the product row
// locked for the duration of the check-and-write sequence.
type InventoryLedger struct {
	store       repositories.Store
	publisher   EventPublisher
	maxAttempts int
	backoff     time.Duration
}

// NewInventoryLedger creates a new InventoryLedger. publisher may be nil,
// in which case events are not published. maxAttempts bounds how often a
// conflicted atomic unit is retried; values below 1 fall back to the default.
func NewInventoryLedger(store repositories.Store, publisher EventPublisher, maxAttempts int) *InventoryLedger {
	if maxAttempts < 1 {
		maxAttempts = defaultMaxAttempts
	}
	return &InventoryLedger{
		store:       store,
		publisher:   publisher,
		maxAttempts: maxAttempts,
		backoff:     defaultRetryBackoff,
	}
}

// RecordTransactionInput carries the caller-supplied fields for a new
// transaction. TransactionDate is an RFC 3339 timestamp string.
type RecordTransactionInput struct {
	ProductID       string
	Quantity        int
	TransactionDate string
}

// UpdateTransactionInput carries a partial edit; nil fields are unchanged.
type UpdateTransactionInput struct {
	ProductID       *string
	Quantity        *int
	TransactionDate *string
}

// RecordTransaction creates a transaction and decrements the product's
// stock as one atomic unit. The stock check happens under the product's row
// lock, so concurrent calls against the same product serialize and can
// never jointly drive stock negative. On insufficient stock nothing is
// written and the error carries the currently available quantity.
func (s *InventoryLedger) RecordTransaction(ctx context.Context, input RecordTransactionInput) (*models.Transaction, error) {
	if input.Quantity <= 0 {
		return nil, fmt.Errorf("quantity %d: %w", input.Quantity, ErrInvalidQuantity)
	}
	date, err := time.Parse(time.RFC3339, input.TransactionDate)
	if err != nil {
		return nil, fmt.Errorf("transaction_date %q: %w", input.TransactionDate, ErrInvalidTimestamp)
	}

	var created *models.Transaction
	err = runAtomicWithRetry(ctx, s.store, s.maxAttempts, s.backoff, func(store repositories.Store) error {
		product, err := store.Products().GetByIDForUpdate(ctx, input.ProductID)
		if err != nil {
			if errors.Is(err, repositories.ErrNotFound) {
				return fmt.Errorf("product %s: %w", input.ProductID, ErrProductNotFound)
			}
			return err
		}

		if product.Stock < input.Quantity {
			return &InsufficientStockError{
				ProductID: product.ID,
				Available: product.Stock,
				Requested: input.Quantity,
			}
		}

		product.Stock -= input.Quantity
		if err := store.Products().Update(ctx, product); err != nil {
			return err
		}

		transaction := &models.Transaction{
			ProductID:       product.ID,
			Quantity:        input.Quantity,
			TransactionDate: date,
		}
		if err := store.Transactions().Create(ctx, transaction); err != nil {
			return err
		}
		created = transaction
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.publishEvent("transaction.recorded", map[string]interface{}{
		"transaction_id": created.ID,
		"product_id":     created.ProductID,
		"quantity":       created.Quantity,
	})
	return created, nil
}

// UpdateTransaction applies a partial edit to a transaction and reconciles
// the affected product stock in the same atomic unit: the old product gets
// its old quantity back, the (possibly different) new product is
// decremented by the new quantity after a sufficiency check.
func (s *InventoryLedger) UpdateTransaction(ctx context.Context, id string, input UpdateTransactionInput) (*models.Transaction, error) {
	if input.Quantity != nil && *input.Quantity <= 0 {
		return nil, fmt.Errorf("quantity %d: %w", *input.Quantity, ErrInvalidQuantity)
	}
	var date *time.Time
	if input.TransactionDate != nil {
		parsed, err := time.Parse(time.RFC3339, *input.TransactionDate)
		if err != nil {
			return nil, fmt.Errorf("transaction_date %q: %w", *input.TransactionDate, ErrInvalidTimestamp)
		}
		date = &parsed
	}

	var updated *models.Transaction
	err := runAtomicWithRetry(ctx, s.store, s.maxAttempts, s.backoff, func(store repositories.Store) error {
		transaction, err := store.Transactions().GetByID(ctx, id)
		if err != nil {
			if errors.Is(err, repositories.ErrNotFound) {
				return fmt.Errorf("transaction %s: %w", id, ErrTransactionNotFound)
			}
			return err
		}

		oldProductID, oldQuantity := transaction.ProductID, transaction.Quantity
		newProductID, newQuantity := oldProductID, oldQuantity
		if input.ProductID != nil {
			newProductID = *input.ProductID
		}
		if input.Quantity != nil {
			newQuantity = *input.Quantity
		}

		if err := s.reconcileStock(ctx, store, oldProductID, oldQuantity, newProductID, newQuantity); err != nil {
			return err
		}

		transaction.ProductID = newProductID
		transaction.Quantity = newQuantity
		if date != nil {
			transaction.TransactionDate = *date
		}
		if err := store.Transactions().Update(ctx, transaction); err != nil {
			return err
		}
		updated = transaction
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.publishEvent("transaction.reconciled", map[string]interface{}{
		"transaction_id": updated.ID,
		"product_id":     updated.ProductID,
		"quantity":       updated.Quantity,
	})
	return updated, nil
}

// reconcileStock moves the stock effect of a transaction from (oldProduct,
// oldQuantity) to (newProduct, newQuantity) under row locks. When two
// distinct products are involved they are locked in ID order so two
// concurrent reconciliations cannot deadlock. All checks run before the
// first write.
func (s *InventoryLedger) reconcileStock(ctx context.Context, store repositories.Store, oldProductID string, oldQuantity int, newProductID string, newQuantity int) error {
	lockProduct := func(id string) (*models.Product, error) {
		product, err := store.Products().GetByIDForUpdate(ctx, id)
		if err != nil {
			if errors.Is(err, repositories.ErrNotFound) {
				return nil, fmt.Errorf("product %s: %w", id, ErrProductNotFound)
			}
			return nil, err
		}
		return product, nil
	}

	if oldProductID == newProductID {
		product, err := lockProduct(oldProductID)
		if err != nil {
			return err
		}
		available := product.Stock + oldQuantity
		if available < newQuantity {
			return &InsufficientStockError{ProductID: product.ID, Available: available, Requested: newQuantity}
		}
		product.Stock = available - newQuantity
		return store.Products().Update(ctx, product)
	}

	firstID, secondID := oldProductID, newProductID
	if secondID < firstID {
		firstID, secondID = secondID, firstID
	}
	byID := make(map[string]*models.Product, 2)
	for _, id := range []string{firstID, secondID} {
		product, err := lockProduct(id)
		if err != nil {
			return err
		}
		byID[id] = product
	}

	oldProduct, newProduct := byID[oldProductID], byID[newProductID]
	if newProduct.Stock < newQuantity {
		return &InsufficientStockError{ProductID: newProduct.ID, Available: newProduct.Stock, Requested: newQuantity}
	}
	oldProduct.Stock += oldQuantity
	newProduct.Stock -= newQuantity
	if err := store.Products().Update(ctx, oldProduct); err != nil {
		return err
	}
	return store.Products().Update(ctx, newProduct)
}

// ReverseTransaction deletes a transaction and restores the referenced
// product's stock by its quantity, atomically.
func (s *InventoryLedger) ReverseTransaction(ctx context.Context, id string) error {
	var productID string
	var quantity int
	err := runAtomicWithRetry(ctx, s.store, s.maxAttempts, s.backoff, func(store repositories.Store) error {
		transaction, err := store.Transactions().GetByID(ctx, id)
		if err != nil {
			if errors.Is(err, repositories.ErrNotFound) {
				return fmt.Errorf("transaction %s: %w", id, ErrTransactionNotFound)
			}
			return err
		}

		product, err := store.Products().GetByIDForUpdate(ctx, transaction.ProductID)
		if err != nil {
			if errors.Is(err, repositories.ErrNotFound) {
				return fmt.Errorf("product %s: %w", transaction.ProductID, ErrProductNotFound)
			}
			return err
		}
		product.Stock += transaction.Quantity
		if err := store.Products().Update(ctx, product); err != nil {
			return err
		}

		if err := store.Transactions().Delete(ctx, transaction.ID); err != nil {
			return err
		}
		productID, quantity = transaction.ProductID, transaction.Quantity
		return nil
	})
	if err != nil {
		return err
	}

	s.publishEvent("transaction.reversed", map[string]interface{}{
		"transaction_id": id,
		"product_id":     productID,
		"quantity":       quantity,
	})
	return nil
}

// AdjustStock applies a signed delta to a product's stock under the same
// per-product discipline as transaction recording. Fails with
// ErrInvalidStock if the result would be negative.
func (s *InventoryLedger) AdjustStock(ctx context.Context, productID string, delta int) (*models.Product, error) {
	var adjusted *models.Product
	err := runAtomicWithRetry(ctx, s.store, s.maxAttempts, s.backoff, func(store repositories.Store) error {
		product, err := store.Products().GetByIDForUpdate(ctx, productID)
		if err != nil {
			if errors.Is(err, repositories.ErrNotFound) {
				return fmt.Errorf("product %s: %w", productID, ErrProductNotFound)
			}
			return err
		}

		newStock := product.Stock + delta
		if newStock < 0 {
			return fmt.Errorf("stock %d with delta %d: %w", product.Stock, delta, ErrInvalidStock)
		}
		product.Stock = newStock
		if err := store.Products().Update(ctx, product); err != nil {
			return err
		}
		adjusted = product
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.publishEvent("stock.adjusted", map[string]interface{}{
		"product_id": adjusted.ID,
		"delta":      delta,
		"stock":      adjusted.Stock,
	})
	return adjusted, nil
}

// GetTransactionByID retrieves a single transaction by its ID.
func (s *InventoryLedger) GetTransactionByID(ctx context.Context, id string) (*models.Transaction, error) {
	transaction, err := s.store.Transactions().GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, fmt.Errorf("transaction %s: %w", id, ErrTransactionNotFound)
		}
		return nil, err
	}
	return transaction, nil
}

// ListTransactions retrieves transactions matching the filter.
func (s *InventoryLedger) ListTransactions(ctx context.Context, filter repositories.TransactionFilter, sort repositories.TransactionSort) ([]models.Transaction, error) {
	return s.store.Transactions().List(ctx, filter, sort)
}

// publishEvent publishes an inventory event best-effort. A broker failure
// is logged, never surfaced: the business operation already committed.
func (s *InventoryLedger) publishEvent(event string, data map[string]interface{}) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.PublishInventoryEvent(event, data); err != nil {
		log.Printf("Warning: Failed to publish %s event: %v", event, err)
	}
}

// runAtomicWithRetry runs fn through Store.RunAtomic, retrying conflicted
// attempts with doubling backoff up to maxAttempts before surfacing the
// conflict. fn may execute more than once and must not carry state between
// attempts.
func runAtomicWithRetry(ctx context.Context, store repositories.Store, maxAttempts int, backoff time.Duration, fn func(repositories.Store) error) error {
	var err error
	for attempt := 0; attempt < maxAttempts; attempt++ {
		err = store.RunAtomic(ctx, fn)
		if !errors.Is(err, repositories.ErrConflict) {
			return err
		}
		if attempt == maxAttempts-1 {
			break // no point backing off before giving up
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}
		backoff *= 2
	}
	return fmt.Errorf("giving up after %d attempts: %w", maxAttempts, err)
}
