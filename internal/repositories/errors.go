package repositories

import "errors"

// Sentinel errors shared by all repository implementations. Services match
// on these with errors.Is and translate them into their own taxonomy.
var (
	// ErrNotFound indicates the requested row does not exist.
	ErrNotFound = errors.New("record not found")

	// ErrConflict indicates the atomic unit lost a race with a concurrent
	// one (serialization failure, deadlock victim, optimistic lock miss).
	// Callers may retry the whole RunAtomic block.
	ErrConflict = errors.New("concurrent modification conflict")

	// ErrLockTimeout indicates a row lock could not be acquired within the
	// database's lock-wait timeout.
	ErrLockTimeout = errors.New("lock wait timeout")
)
