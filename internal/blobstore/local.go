package blobstore

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// LocalStore is a directory on local disk. Writes go to a temp file in the
// same directory and are renamed into place when the writer is closed, the
// same temp-then-rename discipline as the teacher's pmtiles.Writer (tmpFile
// + rename at Finalize): nothing appears under the final name before Close.
type LocalStore struct {
	dir string
}

// NewLocalStore returns a Store rooted at dir, creating it if necessary.
func NewLocalStore(dir string) (*LocalStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("blobstore: mkdir %s: %w", dir, err)
	}
	return &LocalStore{dir: dir}, nil
}

func (s *LocalStore) Open(name string) (io.ReadCloser, error) {
	f, err := os.Open(filepath.Join(s.dir, name))
	if err != nil {
		return nil, fmt.Errorf("blobstore: open %s: %w", name, err)
	}
	return f, nil
}

func (s *LocalStore) Create(name string) (io.WriteCloser, error) {
	final := filepath.Join(s.dir, name)
	tmp, err := os.CreateTemp(s.dir, filepath.Base(final)+".tmp-*")
	if err != nil {
		return nil, fmt.Errorf("blobstore: create temp for %s: %w", name, err)
	}
	return &publishOnClose{tmp: tmp, final: final}, nil
}

// publishOnClose renames its temp file to its final name on Close if
// anything was written to it, and removes the temp file instead if nothing
// was ever written or closing or renaming fails. A writer closed after a
// partial write is still published under the final name.
type publishOnClose struct {
	tmp     *os.File
	final   string
	written bool
}

func (p *publishOnClose) Write(b []byte) (int, error) {
	p.written = true
	return p.tmp.Write(b)
}

func (p *publishOnClose) Close() error {
	if err := p.tmp.Close(); err != nil {
		os.Remove(p.tmp.Name())
		return fmt.Errorf("blobstore: closing temp file: %w", err)
	}
	if !p.written {
		return os.Remove(p.tmp.Name())
	}
	if err := os.Rename(p.tmp.Name(), p.final); err != nil {
		os.Remove(p.tmp.Name())
		return fmt.Errorf("blobstore: publishing %s: %w", p.final, err)
	}
	return nil
}
