package sbuf

import (
	"bytes"
	"fmt"

	"github.com/forensix/scancore/internal/buf"
)

// Find returns the offset of the first occurrence of b at or after start,
// or -1 if none exists.
func (s *Buf) Find(b byte, start int) int {
	if start < 0 || start >= len(s.data) {
		return -1
	}
	idx := bytes.IndexByte(s.data[start:], b)
	if idx < 0 {
		return -1
	}
	return start + idx
}

// FindBytes returns the offset of the first occurrence of needle at or
// after start, or -1 if none exists.
func (s *Buf) FindBytes(needle []byte, start int) int {
	if start < 0 || start > len(s.data) {
		return -1
	}
	idx := bytes.Index(s.data[start:], needle)
	if idx < 0 {
		return -1
	}
	return start + idx
}

// Substr returns a zero-copy window [off, off+length) of the buffer,
// failing if that range is out of bounds.
func (s *Buf) Substr(off, length int) ([]byte, error) {
	window, ok := buf.Slice(s.data, off, length)
	if !ok {
		return nil, fmt.Errorf("sbuf: substr(%d,%d): %w", off, length, ErrRange)
	}
	return window, nil
}

// IsConstant reports whether every byte in [off, off+length) equals b.
// Out-of-range inputs report false rather than erroring, matching At's
// look-ahead-friendly behavior.
func (s *Buf) IsConstant(off, length int, b byte) bool {
	window, err := s.Substr(off, length)
	if err != nil {
		return false
	}
	for _, c := range window {
		if c != b {
			return false
		}
	}
	return true
}

// Window returns a zero-copy byte slice [off, off+length) for the caller
// to decode directly, the Go-idiomatic replacement for a raw
// get_struct_ptr<T>: no pointer cast, just a bounds-checked slice, or
// (nil, false) if the range doesn't fit.
func (s *Buf) Window(off, length int) ([]byte, bool) {
	w, err := s.Substr(off, length)
	if err != nil {
		return nil, false
	}
	return w, true
}

// GetLine scans forward from pos for the next newline-delimited line
// within the page (never the margin). It returns the line's start
// offset, its length excluding the trailing newline, the offset to
// resume scanning from, and whether a line was found. A line starts at
// pos==0 or immediately after a '\n'.
func (s *Buf) GetLine(pos int) (start, length, next int, ok bool) {
	if pos < 0 || pos >= s.pagesize {
		return 0, 0, pos, false
	}
	nl := bytes.IndexByte(s.data[pos:s.pagesize], '\n')
	if nl < 0 {
		return 0, 0, pos, false
	}
	lineEnd := pos + nl
	return pos, lineEnd - pos, lineEnd + 1, true
}

// FindNgramSize returns the smallest ngram length k <= max such that the
// entire buffer is k-periodic (every byte equals the one k positions
// earlier), or 0 if no such k exists. k must be shorter than the buffer,
// so the pattern repeats at least once. This is used to suppress scanners
// on buffers of degenerate repeated content (e.g. a disk wipe pattern).
func (s *Buf) FindNgramSize(max int) int {
	n := len(s.data)
	if n == 0 {
		return 0
	}
	if max >= n {
		max = n - 1
	}
	for k := 1; k <= max; k++ {
		periodic := true
		for i := k; i < n; i++ {
			if s.data[i] != s.data[i-k] {
				periodic = false
				break
			}
		}
		if periodic {
			return k
		}
	}
	return 0
}
