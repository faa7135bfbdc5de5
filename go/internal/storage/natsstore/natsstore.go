// Package natsstore keeps the ledger and uploads in a JetStream object store.
//
// Object stores have no rename, so every ledger version is written as a new
// object and a key-value entry names the current one. The entry is advanced
// with a compare-and-swap on its revision, which makes the switch to a new
// version atomic for readers and rejects a concurrent writer.
package natsstore

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go/jetstream"
	"github.com/rs/zerolog/log"

	"github.com/mcdev12/fileupload/go/internal/ledger"
)

const (
	currentKey   = "ledger.current"
	ledgerPrefix = "ledger/"
	uploadPrefix = "uploads/"
)

var errNoPointer = errors.New("no current ledger pointer")

// pointer is the key-value entry naming the current ledger object.
type pointer interface {
	load(ctx context.Context) (name string, revision uint64, err error)
	swap(ctx context.Context, name string, revision uint64) (uint64, error)
}

// objects is the blob side of the store.
type objects interface {
	put(ctx context.Context, name string, r io.Reader) error
	get(ctx context.Context, name string) (io.ReadCloser, error)
	remove(ctx context.Context, name string) error
}

// Store is a ledger.Backend and upload store on JetStream.
type Store struct {
	ptr  pointer
	objs objects

	mu       sync.Mutex
	revision uint64 // pointer revision last read or written, 0 when none exists
	current  string
}

// New creates or binds the KV and object store buckets named bucket.
func New(ctx context.Context, js jetstream.JetStream, bucket string) (*Store, error) {
	kv, err := js.CreateOrUpdateKeyValue(ctx, jetstream.KeyValueConfig{
		Bucket:      bucket,
		Description: "Current ledger version",
		History:     5,
		Storage:     jetstream.FileStorage,
	})
	if err != nil {
		return nil, fmt.Errorf("create key-value bucket: %w", err)
	}

	obj, err := js.CreateOrUpdateObjectStore(ctx, jetstream.ObjectStoreConfig{
		Bucket:      bucket,
		Description: "Ledger versions and uploaded files",
		Storage:     jetstream.FileStorage,
	})
	if err != nil {
		return nil, fmt.Errorf("create object store: %w", err)
	}

	log.Info().Str("bucket", bucket).Msg("Bound JetStream submission storage")
	return newStore(kvPointer{kv: kv}, objectStore{store: obj}), nil
}

func newStore(p pointer, o objects) *Store {
	return &Store{ptr: p, objs: o}
}

// OpenLedger reads the object named by the pointer entry.
func (s *Store) OpenLedger(ctx context.Context) (io.ReadCloser, error) {
	name, rev, err := s.ptr.load(ctx)
	if errors.Is(err, errNoPointer) {
		s.setCurrent("", 0)
		return nil, ledger.ErrLedgerNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("read ledger pointer: %w", err)
	}

	// The revision is kept even when the object cannot be read, so a store
	// opened leniently can still advance the pointer.
	s.setCurrent(name, rev)
	rc, err := s.objs.get(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("read ledger object %s: %w", name, err)
	}
	return rc, nil
}

func (s *Store) setCurrent(name string, rev uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.current, s.revision = name, rev
}

type tempObject struct {
	s        *Store
	ctx      context.Context
	name     string
	buf      bytes.Buffer
	uploaded bool
}

func (t *tempObject) Write(p []byte) (int, error) { return t.buf.Write(p) }

// Close uploads the buffered version under its own name. It is not visible
// until the pointer names it.
func (t *tempObject) Close() error {
	if err := t.s.objs.put(t.ctx, t.name, bytes.NewReader(t.buf.Bytes())); err != nil {
		return fmt.Errorf("upload ledger version: %w", err)
	}
	t.uploaded = true
	return nil
}

func (t *tempObject) Discard() error {
	if !t.uploaded {
		return nil
	}
	return t.s.objs.remove(context.WithoutCancel(t.ctx), t.name)
}

// CreateTempLedger starts a new ledger version object.
func (s *Store) CreateTempLedger(ctx context.Context) (ledger.TempLedger, error) {
	return &tempObject{s: s, ctx: ctx, name: ledgerPrefix + uuid.NewString()}, nil
}

// ReplaceLedger points the current entry at temp if no other writer moved it
// since this store last saw it. The previous version is deleted best effort.
func (s *Store) ReplaceLedger(ctx context.Context, temp ledger.TempLedger) error {
	t, ok := temp.(*tempObject)
	if !ok || t.s != s {
		return fmt.Errorf("temp ledger of type %T does not belong to this store", temp)
	}
	if !t.uploaded {
		return errors.New("temp ledger was not closed")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	rev, err := s.ptr.swap(ctx, t.name, s.revision)
	if err != nil {
		return fmt.Errorf("advance ledger pointer from revision %d: %w", s.revision, err)
	}

	previous := s.current
	s.current, s.revision = t.name, rev
	if previous != "" {
		if err := s.objs.remove(ctx, previous); err != nil {
			log.Warn().Err(err).Str("object", previous).Msg("Failed to delete previous ledger version")
		}
	}
	return nil
}

func uploadName(dir, name string) (string, error) {
	for _, part := range []string{dir, name} {
		if part == "" || part == "." || part == ".." || strings.Contains(part, "/") {
			return "", fmt.Errorf("invalid upload path component %q", part)
		}
	}
	return uploadPrefix + dir + "/" + name, nil
}

// StoreUploadedFile writes r as the object uploads/dir/name.
func (s *Store) StoreUploadedFile(ctx context.Context, r io.Reader, dir, name string) error {
	obj, err := uploadName(dir, name)
	if err != nil {
		return err
	}
	if err := s.objs.put(ctx, obj, r); err != nil {
		return fmt.Errorf("store upload %s: %w", obj, err)
	}
	return nil
}

// RemoveUploadedFile deletes the object uploads/dir/name.
func (s *Store) RemoveUploadedFile(ctx context.Context, dir, name string) error {
	obj, err := uploadName(dir, name)
	if err != nil {
		return err
	}
	if err := s.objs.remove(ctx, obj); err != nil {
		return fmt.Errorf("remove upload %s: %w", obj, err)
	}
	return nil
}

type kvPointer struct {
	kv jetstream.KeyValue
}

func (p kvPointer) load(ctx context.Context) (string, uint64, error) {
	entry, err := p.kv.Get(ctx, currentKey)
	if errors.Is(err, jetstream.ErrKeyNotFound) {
		return "", 0, errNoPointer
	}
	if err != nil {
		return "", 0, err
	}
	return string(entry.Value()), entry.Revision(), nil
}

func (p kvPointer) swap(ctx context.Context, name string, revision uint64) (uint64, error) {
	if revision == 0 {
		return p.kv.Create(ctx, currentKey, []byte(name))
	}
	return p.kv.Update(ctx, currentKey, []byte(name), revision)
}

type objectStore struct {
	store jetstream.ObjectStore
}

func (o objectStore) put(ctx context.Context, name string, r io.Reader) error {
	_, err := o.store.Put(ctx, jetstream.ObjectMeta{Name: name}, r)
	return err
}

func (o objectStore) get(ctx context.Context, name string) (io.ReadCloser, error) {
	return o.store.Get(ctx, name)
}

func (o objectStore) remove(ctx context.Context, name string) error {
	err := o.store.Delete(ctx, name)
	if errors.Is(err, jetstream.ErrObjectNotFound) {
		return nil
	}
	return err
}
