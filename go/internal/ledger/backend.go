package ledger

import (
	"context"
	"errors"
	"fmt"
	"io"
)

// ErrLedgerNotFound is returned by Backend.OpenLedger when no ledger exists yet.
var ErrLedgerNotFound = errors.New("ledger not found")

// TempLedger is a freshly created, not yet visible ledger version.
type TempLedger interface {
	io.Writer
	// Close flushes the content. The temp is still not visible afterwards.
	Close() error
	// Discard removes the temp. It is safe to call after Close or after a
	// failed ReplaceLedger.
	Discard() error
}

// Backend is the storage contract the store persists through. Readers of the
// primary ledger must see either the previous or the new complete content
// while ReplaceLedger runs.
type Backend interface {
	OpenLedger(ctx context.Context) (io.ReadCloser, error)
	CreateTempLedger(ctx context.Context) (TempLedger, error)
	ReplaceLedger(ctx context.Context, temp TempLedger) error
}

// StorageError wraps an I/O failure during a ledger load or commit. The ledger
// is left at its last committed state.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("ledger %s failed: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }
