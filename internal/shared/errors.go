package shared

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound indicates the requested record does not exist.
	ErrNotFound = errors.New("not found")
	// ErrDuplicate indicates a uniqueness violation.
	ErrDuplicate = errors.New("duplicate")
	// ErrCycle indicates a role inheritance cycle.
	ErrCycle = errors.New("role cycle")
	// ErrAuth indicates authentication failure. It covers both unknown users
	// and wrong passwords so callers cannot enumerate accounts.
	ErrAuth = errors.New("authentication failed")
	// ErrLocked indicates the account reached the lockout threshold.
	ErrLocked = errors.New("account locked")
	// ErrExpired indicates a token past its configured window.
	ErrExpired = errors.New("expired")
)

// StorageError wraps a backend failure. It is the only error kind callers may
// retry; all other kinds are definitional outcomes.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage: %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

// Storage wraps err as a StorageError, keeping nil errors nil.
func Storage(op string, err error) error {
	if err == nil {
		return nil
	}
	return &StorageError{Op: op, Err: err}
}

// IsRetryable reports whether the caller may retry the failed operation.
func IsRetryable(err error) bool {
	var se *StorageError
	return errors.As(err, &se)
}
