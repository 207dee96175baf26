package repositories

import "context"

// Store bundles the entity repositories with the transactional-execution
// primitive that the inventory ledger's correctness depends on.
type Store interface {
	Products() ProductRepository
	Transactions() TransactionRepository

	// RunAtomic executes fn so that all of its reads and writes commit
	// together or not at all, isolated from concurrent RunAtomic calls
	// touching the same rows. fn receives a Store whose repositories are
	// bound to the atomic unit; returning an error rolls everything back.
	// Must not be nested.
	RunAtomic(ctx context.Context, fn func(Store) error) error
}
