// Package fsstore keeps the ledger and uploaded files on a local filesystem.
// Ledger versions are swapped in with rename, so the temp file is created in
// the ledger's own directory.
package fsstore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/mcdev12/fileupload/go/internal/ledger"
)

// Store is a filesystem ledger.Backend and upload store.
type Store struct {
	root       string
	ledgerPath string
	backupPath string

	// replaced in tests to inject failures
	rename func(oldpath, newpath string) error
	link   func(oldpath, newpath string) error
}

// New returns a Store rooted at root. The ledger lives at root/ledgerFileName.
func New(root, ledgerFileName string) (*Store, error) {
	if strings.ContainsAny(ledgerFileName, `/\`) || ledgerFileName == "" {
		return nil, fmt.Errorf("invalid ledger file name %q", ledgerFileName)
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create submission root: %w", err)
	}
	return &Store{
		root:       root,
		ledgerPath: filepath.Join(root, ledgerFileName),
		backupPath: filepath.Join(root, BackupName(ledgerFileName)),
		rename:     os.Rename,
		link:       os.Link,
	}, nil
}

// BackupName derives "<stem>-old.<ext>" from a ledger file name.
func BackupName(name string) string {
	ext := filepath.Ext(name)
	return strings.TrimSuffix(name, ext) + "-old" + ext
}

// LedgerPath returns the primary ledger path.
func (s *Store) LedgerPath() string { return s.ledgerPath }

// OpenLedger opens the primary ledger for reading.
func (s *Store) OpenLedger(ctx context.Context) (io.ReadCloser, error) {
	f, err := os.Open(s.ledgerPath)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, ledger.ErrLedgerNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open ledger: %w", err)
	}
	return f, nil
}

type tempFile struct {
	f    *os.File
	path string
}

func (t *tempFile) Write(p []byte) (int, error) { return t.f.Write(p) }

func (t *tempFile) Close() error {
	if err := t.f.Sync(); err != nil {
		_ = t.f.Close()
		return fmt.Errorf("failed to sync temp ledger: %w", err)
	}
	return t.f.Close()
}

func (t *tempFile) Discard() error {
	_ = t.f.Close()
	if err := os.Remove(t.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}

// CreateTempLedger creates a temp file next to the primary ledger.
func (s *Store) CreateTempLedger(ctx context.Context) (ledger.TempLedger, error) {
	base := filepath.Base(s.ledgerPath)
	pattern := strings.TrimSuffix(base, filepath.Ext(base)) + "-*.tmp"
	f, err := os.CreateTemp(filepath.Dir(s.ledgerPath), pattern)
	if err != nil {
		return nil, fmt.Errorf("failed to create temp ledger: %w", err)
	}
	return &tempFile{f: f, path: f.Name()}, nil
}

// ReplaceLedger makes temp the primary ledger. The current primary is first
// hard linked to the backup name so that the primary path always names a
// complete ledger, then temp is renamed over it.
func (s *Store) ReplaceLedger(ctx context.Context, temp ledger.TempLedger) error {
	t, ok := temp.(*tempFile)
	if !ok {
		return fmt.Errorf("temp ledger of type %T does not belong to this store", temp)
	}

	hasPrimary := true
	if _, err := os.Stat(s.ledgerPath); errors.Is(err, fs.ErrNotExist) {
		hasPrimary = false
	} else if err != nil {
		return fmt.Errorf("failed to stat ledger: %w", err)
	}

	if hasPrimary {
		if err := s.backup(); err != nil {
			return err
		}
	}
	if err := s.rename(t.path, s.ledgerPath); err != nil {
		return fmt.Errorf("failed to move temp ledger into place: %w", err)
	}
	if hasPrimary {
		if err := os.Remove(s.backupPath); err != nil && !errors.Is(err, fs.ErrNotExist) {
			log.Warn().Err(err).Str("path", s.backupPath).Msg("Failed to remove ledger backup")
		}
	}
	return nil
}

func (s *Store) backup() error {
	if err := os.Remove(s.backupPath); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to remove stale ledger backup: %w", err)
	}
	err := s.link(s.ledgerPath, s.backupPath)
	if err == nil {
		return nil
	}
	log.Debug().Err(err).Msg("Hard link unavailable, copying ledger backup")
	if err := copyFile(s.ledgerPath, s.backupPath); err != nil {
		return fmt.Errorf("failed to back up ledger: %w", err)
	}
	return nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		return err
	}
	return out.Close()
}
