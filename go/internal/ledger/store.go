package ledger

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/mcdev12/fileupload/go/internal/models"
)

// ErrDuplicateID is returned by Commit when the ledger already holds the ID.
var ErrDuplicateID = errors.New("submission ID already committed")

// Options control how a Store is opened.
type Options struct {
	// Strict makes Open fail on an unreadable ledger instead of starting empty.
	Strict bool
}

// Store is the in-memory ledger plus its persisted copy. Every Commit rewrites
// the whole ledger through the backend while holding the store's mutex.
type Store struct {
	backend Backend

	mu      sync.Mutex
	records []models.Submission
	ids     map[int]struct{}
}

// Open loads the existing ledger from backend. A missing ledger starts empty.
func Open(ctx context.Context, backend Backend, opts Options) (*Store, error) {
	s := &Store{backend: backend, ids: make(map[int]struct{})}

	records, err := load(ctx, backend)
	switch {
	case errors.Is(err, ErrLedgerNotFound):
		log.Info().Msg("No existing ledger found, starting empty")
		return s, nil
	case err != nil && opts.Strict:
		return nil, err
	case err != nil:
		log.Error().Err(err).Msg("Failed to load ledger, starting empty")
		return s, nil
	}

	for _, r := range records {
		s.ids[r.ID] = struct{}{}
	}
	s.records = records
	log.Info().Int("records", len(records)).Int("max_id", s.maxIDLocked()).Msg("Loaded ledger")
	return s, nil
}

func load(ctx context.Context, backend Backend) ([]models.Submission, error) {
	rc, err := backend.OpenLedger(ctx)
	if err != nil {
		if errors.Is(err, ErrLedgerNotFound) {
			return nil, err
		}
		return nil, &StorageError{Op: "open", Err: err}
	}
	defer rc.Close()

	records, err := Decode(rc)
	if err != nil {
		return nil, &StorageError{Op: "load", Err: err}
	}
	sort.SliceStable(records, func(i, j int) bool { return records[i].ID < records[j].ID })
	for i := 1; i < len(records); i++ {
		if records[i].ID == records[i-1].ID {
			return nil, &StorageError{Op: "load", Err: fmt.Errorf("%w: %d", ErrDuplicateID, records[i].ID)}
		}
	}
	return records, nil
}

// Commit appends rec and persists the entire ledger. If persisting fails the
// in-memory ledger is restored to its previous state.
func (s *Store) Commit(ctx context.Context, rec models.Submission) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, dup := s.ids[rec.ID]; dup {
		return fmt.Errorf("%w: %d", ErrDuplicateID, rec.ID)
	}

	s.records = append(s.records, rec)
	if err := s.persistLocked(ctx); err != nil {
		s.records = s.records[:len(s.records)-1]
		log.Error().Err(err).Int("submission_id", rec.ID).Msg("Ledger commit failed")
		return err
	}
	s.ids[rec.ID] = struct{}{}

	log.Debug().Int("submission_id", rec.ID).Int("records", len(s.records)).Msg("Committed submission")
	return nil
}

func (s *Store) persistLocked(ctx context.Context) error {
	temp, err := s.backend.CreateTempLedger(ctx)
	if err != nil {
		return &StorageError{Op: "create temp", Err: err}
	}

	if err := Encode(temp, s.records); err != nil {
		_ = temp.Close()
		discard(temp)
		return &StorageError{Op: "write temp", Err: err}
	}
	if err := temp.Close(); err != nil {
		discard(temp)
		return &StorageError{Op: "close temp", Err: err}
	}
	if err := s.backend.ReplaceLedger(ctx, temp); err != nil {
		discard(temp)
		return &StorageError{Op: "replace", Err: err}
	}
	return nil
}

func discard(temp TempLedger) {
	if err := temp.Discard(); err != nil {
		log.Warn().Err(err).Msg("Failed to discard temp ledger")
	}
}

// Records returns a snapshot of the committed records in commit order.
func (s *Store) Records() []models.Submission {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.Submission(nil), s.records...)
}

// MaxID returns the highest committed ID, or -1 for an empty ledger.
func (s *Store) MaxID() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.maxIDLocked()
}

func (s *Store) maxIDLocked() int {
	highest := -1
	for _, r := range s.records {
		if r.ID > highest {
			highest = r.ID
		}
	}
	return highest
}

// Len returns the number of committed records.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.records)
}
