package sbuf

import (
	"crypto/sha1" //nolint:gosec // content-identity hash for dedup, not a security boundary
	"encoding/hex"
	"fmt"
	"io"
	"os"
)

// Hash returns the hex SHA1 digest of this view's bytes, computing it on
// first call and returning the memoized value on subsequent calls. Used
// by the scanner set's seen-set and by carve idempotence.
func (s *Buf) Hash() string {
	s.hashMu.Lock()
	defer s.hashMu.Unlock()
	if s.hashSet {
		return s.hashHex
	}
	sum := sha1.Sum(s.data) //nolint:gosec
	s.hashHex = hex.EncodeToString(sum[:])
	s.hashSet = true
	return s.hashHex
}

// WriteTo writes length bytes starting at loc to w, failing if that
// range is out of bounds.
func (s *Buf) WriteTo(w io.Writer, loc, length int) (int64, error) {
	window, err := s.Substr(loc, length)
	if err != nil {
		return 0, fmt.Errorf("sbuf: write: %w", err)
	}
	n, err := w.Write(window)
	return int64(n), err
}

// WriteFile writes length bytes starting at loc to a newly created file
// at path, truncating any existing content.
func (s *Buf) WriteFile(path string, loc, length int) error {
	window, err := s.Substr(loc, length)
	if err != nil {
		return fmt.Errorf("sbuf: write %s: %w", path, err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return fmt.Errorf("sbuf: write %s: %w", path, err)
	}
	defer f.Close()
	if _, err := f.Write(window); err != nil {
		return fmt.Errorf("sbuf: write %s: %w", path, err)
	}
	return f.Close()
}
