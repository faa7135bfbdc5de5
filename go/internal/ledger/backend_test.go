package ledger

import (
	"bytes"
	"context"
	"errors"
	"io"
	"sync"
)

// memBackend keeps the ledger in memory and can be told to fail each step.
type memBackend struct {
	mu      sync.Mutex
	primary []byte
	exists  bool

	openErr    error
	createErr  error
	replaceErr error
	replaces   int
	discarded  int
}

type memTemp struct {
	b      *memBackend
	buf    bytes.Buffer
	closed bool
}

func (t *memTemp) Write(p []byte) (int, error) { return t.buf.Write(p) }
func (t *memTemp) Close() error                { t.closed = true; return nil }
func (t *memTemp) Discard() error {
	t.b.mu.Lock()
	defer t.b.mu.Unlock()
	t.b.discarded++
	return nil
}

func (b *memBackend) OpenLedger(context.Context) (io.ReadCloser, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.openErr != nil {
		return nil, b.openErr
	}
	if !b.exists {
		return nil, ErrLedgerNotFound
	}
	return io.NopCloser(bytes.NewReader(append([]byte(nil), b.primary...))), nil
}

func (b *memBackend) CreateTempLedger(context.Context) (TempLedger, error) {
	if b.createErr != nil {
		return nil, b.createErr
	}
	return &memTemp{b: b}, nil
}

func (b *memBackend) ReplaceLedger(_ context.Context, temp TempLedger) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.replaceErr != nil {
		return b.replaceErr
	}
	t, ok := temp.(*memTemp)
	if !ok || !t.closed {
		return errors.New("unexpected temp ledger")
	}
	b.primary = append([]byte(nil), t.buf.Bytes()...)
	b.exists = true
	b.replaces++
	return nil
}

func (b *memBackend) content() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return string(b.primary)
}
