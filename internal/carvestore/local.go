// Package carvestore implements the two carve storage backends a feature
// recorder writes through: a local filesystem layout matching the spec's
// default, and an object-storage layout backed by MinIO/S3.
package carvestore

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
)

// Local is the default carve storage backend: files under
// {outdir}/{relPath}, directories created on demand.
type Local struct {
	outdir string
	dirs   *lru.Cache[string, struct{}]
}

// NewLocal returns a Local store rooted at outdir. dirCacheSize bounds the
// number of already-created shard directories it remembers; this cache is
// a syscall-avoidance optimization only (see DESIGN.md), never a
// correctness-critical set, so eviction is harmless.
func NewLocal(outdir string, dirCacheSize int) (*Local, error) {
	if dirCacheSize <= 0 {
		dirCacheSize = 256
	}
	cache, err := lru.New[string, struct{}](dirCacheSize)
	if err != nil {
		return nil, fmt.Errorf("carvestore: new local: %w", err)
	}
	return &Local{outdir: outdir, dirs: cache}, nil
}

// Write creates relPath (and its parent directories, idempotently) under
// the store's outdir using exclusive create, so a TOCTOU race with a
// concurrent carve of the same path surfaces as os.ErrExist rather than
// silently overwriting a file another caller is still writing. The
// wrapped error is returned as is; feature.Recorder.Carve passes it on to
// its caller as a carve failure.
func (s *Local) Write(relPath string, header, data []byte, mtime time.Time) error {
	full := filepath.Join(s.outdir, relPath)
	dir := filepath.Dir(full)
	if _, ok := s.dirs.Get(dir); !ok {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("carvestore: mkdir %s: %w", dir, err)
		}
		s.dirs.Add(dir, struct{}{})
	}

	f, err := os.OpenFile(full, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("carvestore: create %s: %w", full, err)
	}
	defer f.Close()

	if _, err := f.Write(header); err != nil {
		return fmt.Errorf("carvestore: write header %s: %w", full, err)
	}
	if _, err := f.Write(data); err != nil {
		return fmt.Errorf("carvestore: write data %s: %w", full, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("carvestore: close %s: %w", full, err)
	}

	if !mtime.IsZero() {
		if err := os.Chtimes(full, mtime, mtime); err != nil {
			return fmt.Errorf("carvestore: chtimes %s: %w", full, err)
		}
	}
	return nil
}
