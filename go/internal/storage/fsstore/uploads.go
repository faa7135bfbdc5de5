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
)

func checkName(kind, name string) error {
	if name == "" || name == "." || name == ".." || strings.ContainsAny(name, `/\`) {
		return fmt.Errorf("invalid %s name %q", kind, name)
	}
	return nil
}

func (s *Store) uploadPath(dir, name string) (string, error) {
	if err := checkName("directory", dir); err != nil {
		return "", err
	}
	if err := checkName("file", name); err != nil {
		return "", err
	}
	return filepath.Join(s.root, dir, name), nil
}

// StoreUploadedFile copies r to root/dir/name. The bytes are written to a temp
// file in the same directory and renamed into place once complete.
func (s *Store) StoreUploadedFile(ctx context.Context, r io.Reader, dir, name string) error {
	dst, err := s.uploadPath(dir, name)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return fmt.Errorf("failed to create upload directory: %w", err)
	}

	f, err := os.CreateTemp(filepath.Dir(dst), "."+name+"-*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create upload temp file: %w", err)
	}
	tmp := f.Name()

	if _, err := io.Copy(f, r); err != nil {
		_ = f.Close()
		_ = os.Remove(tmp)
		return fmt.Errorf("failed to write upload %s: %w", name, err)
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("failed to close upload %s: %w", name, err)
	}
	if err := s.rename(tmp, dst); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("failed to move upload %s into place: %w", name, err)
	}
	return nil
}

// RemoveUploadedFile deletes a stored upload. A missing file is not an error.
func (s *Store) RemoveUploadedFile(ctx context.Context, dir, name string) error {
	p, err := s.uploadPath(dir, name)
	if err != nil {
		return err
	}
	if err := os.Remove(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to remove upload %s: %w", name, err)
	}
	return nil
}
