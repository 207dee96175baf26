package repositories

import (
	"context"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"
)

// lockWaitTimeout bounds how long an atomic unit waits on a contended row
// lock before the database cancels the statement. Without it postgres waits
// forever and a blocked caller never sees ErrLockTimeout.
const lockWaitTimeout = 5 * time.Second

// GORMStore is a GORM-backed Store. The same type serves both the top-level
// store (bound to the connection pool) and the transaction-scoped store
// handed to RunAtomic callbacks (bound to a *gorm.DB transaction).
type GORMStore struct {
	db           *gorm.DB
	products     *GORMProductRepository
	transactions *GORMTransactionRepository
}

// NewGORMStore creates a Store backed by the given GORM handle.
func NewGORMStore(db *gorm.DB) *GORMStore {
	return &GORMStore{
		db:           db,
		products:     NewGORMProductRepository(db),
		transactions: NewGORMTransactionRepository(db),
	}
}

// Products returns the product repository bound to this store.
func (s *GORMStore) Products() ProductRepository {
	return s.products
}

// Transactions returns the transaction repository bound to this store.
func (s *GORMStore) Transactions() TransactionRepository {
	return s.transactions
}

// RunAtomic executes fn inside a database transaction. The repositories on
// the Store passed to fn operate on that transaction, so fn's reads and
// writes commit together or roll back together. Context cancellation
// aborts the transaction with a rollback. On postgres the transaction
// carries a bounded lock_timeout, so waiting on a contended row lock
// surfaces as ErrLockTimeout instead of blocking indefinitely; sqlite has
// no per-transaction lock timeout and relies on its busy handler.
func (s *GORMStore) RunAtomic(ctx context.Context, fn func(Store) error) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if tx.Dialector.Name() == "postgres" {
			stmt := fmt.Sprintf("SET LOCAL lock_timeout = '%dms'", lockWaitTimeout.Milliseconds())
			if err := tx.Exec(stmt).Error; err != nil {
				return err
			}
		}
		return fn(NewGORMStore(tx))
	})
	if err != nil {
		return mapStorageError(err)
	}
	return nil
}

// mapStorageError translates driver-level failures into the repository
// sentinels. Serialization failures and deadlock victims are safe to retry
// as a whole atomic unit, so they surface as ErrConflict.
func mapStorageError(err error) error {
	if err == nil {
		return nil
	}
	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "could not serialize"),
		strings.Contains(msg, "deadlock"),
		strings.Contains(msg, "database is locked"):
		return ErrConflict
	case strings.Contains(msg, "lock timeout"),
		strings.Contains(msg, "lock wait timeout"):
		return ErrLockTimeout
	}
	return err
}
