// Package sbuf implements the "safer buffer": a reference-counted,
// parent-pointed, bounds-checked view over binary data. Every sbuf is
// immutable once constructed; slicing never copies bytes.
package sbuf

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/forensix/scancore/internal/buf"
	"github.com/forensix/scancore/internal/mmap"
	"github.com/forensix/scancore/pos0"
)

// ErrRange is returned by a typed read when the requested width would
// extend past the end of the buffer.
var ErrRange = errors.New("sbuf: read past end of buffer")

// ErrClosed is returned by any operation attempted on a buffer after
// Close has released it.
var ErrClosed = errors.New("sbuf: use of buffer after close")

// ByteOrder selects little- or big-endian decoding for a typed read.
type ByteOrder uint8

const (
	LittleEndian ByteOrder = iota
	BigEndian
)

// root is the shared state of one memory region: the bytes themselves,
// how to release them, and a single reference count shared by every
// descendant sliced from it (see Buf.Children).
type root struct {
	children  atomic.Int64
	dispose   func() error
	disposeMu sync.Mutex
	disposed  bool
}

// release runs dispose exactly once. Called only on the root Buf's Close,
// and only once children has reached zero.
func (r *root) release() error {
	r.disposeMu.Lock()
	defer r.disposeMu.Unlock()
	if r.disposed || r.dispose == nil {
		r.disposed = true
		return nil
	}
	r.disposed = true
	return r.dispose()
}

// Buf is one bounded view over binary data. The zero value is not usable;
// construct with NewRoot, MapFile, FromString, or by slicing an existing Buf
// with Child/ChildRange.
type Buf struct {
	position pos0.Position
	data     []byte // data[0:pagesize] is the page, data[pagesize:bufsize] is the margin
	pagesize int
	parent   *Buf
	root     *root
	closed   atomic.Bool

	hashMu  sync.Mutex
	hashHex string
	hashSet bool
}

// NewRoot constructs a root buffer that owns data directly: no parent, and
// dispose (which may be nil) is invoked at most once, when the root itself
// is closed with no children outstanding. A root closed while children
// are live is leaked: dispose never runs for it.
func NewRoot(p pos0.Position, data []byte, pagesize int, dispose func() error) (*Buf, error) {
	if pagesize < 0 || pagesize > len(data) {
		return nil, fmt.Errorf("sbuf: invalid pagesize %d for bufsize %d", pagesize, len(data))
	}
	return &Buf{
		position: p,
		data:     data,
		pagesize: pagesize,
		root:     &root{dispose: dispose},
	}, nil
}

// MapFile memory-maps path read-only and wraps it as a root buffer whose
// dispose action unmaps it. The entire file is both page and margin.
func MapFile(path string) (*Buf, error) {
	data, closeFn, err := mmap.Map(path)
	if err != nil {
		return nil, fmt.Errorf("sbuf: map %s: %w", path, err)
	}
	return NewRoot(pos0.Top(), data, len(data), closeFn)
}

// FromString wraps the bytes of s as a root buffer with no disposal
// action, for use in tests and scanner examples.
func FromString(s string) *Buf {
	data := []byte(s)
	b, _ := NewRoot(pos0.Top(), data, len(data), nil)
	return b
}

// Pos0 returns the position of byte 0 of this view.
func (b *Buf) Pos0() pos0.Position { return b.position }

// BufSize returns the total number of readable bytes in this view,
// page plus margin.
func (b *Buf) BufSize() int { return len(b.data) }

// PageSize returns the page portion of this view; bytes in
// [PageSize, BufSize) are margin.
func (b *Buf) PageSize() int { return b.pagesize }

// Depth returns the recursion depth of this view's position.
func (b *Buf) Depth() int { return b.position.Depth() }

// Parent returns the buffer this view was sliced from, or nil if this is
// a root buffer.
func (b *Buf) Parent() *Buf { return b.parent }

// Children returns the number of live descendants sharing this view's
// backing memory (see the type-level comment on root for why this is a
// single tree-wide counter rather than a per-node one).
func (b *Buf) Children() int64 { return b.root.children.Load() }

// Child returns the view beginning off bytes into b: pos0 advances by
// off, bufsize shrinks to bufsize-off (clamped at 0), and the page
// shrinks with it — once off reaches the page boundary the child has no
// page left, only margin.
func (b *Buf) Child(off int) (*Buf, error) {
	if b.closed.Load() {
		return nil, ErrClosed
	}
	if off < 0 {
		return nil, fmt.Errorf("sbuf: negative child offset %d", off)
	}
	if off > len(b.data) {
		off = len(b.data)
	}
	newPage := b.pagesize - off
	if newPage < 0 {
		newPage = 0
	}
	child := &Buf{
		position: b.position.Add(int64(off)),
		data:     b.data[off:],
		pagesize: newPage,
		parent:   b,
		root:     b.root,
	}
	b.root.children.Add(1)
	return child, nil
}

// ChildRange returns the view [off, off+length) of b, with length clamped
// to what remains of b past off. The whole clamped range is page (no
// margin) since the caller has explicitly bounded it.
func (b *Buf) ChildRange(off, length int) (*Buf, error) {
	if b.closed.Load() {
		return nil, ErrClosed
	}
	if off < 0 || length < 0 {
		return nil, fmt.Errorf("sbuf: negative range (off=%d, length=%d)", off, length)
	}
	if off > len(b.data) {
		return nil, fmt.Errorf("sbuf: child range offset %d beyond bufsize %d", off, len(b.data))
	}
	end, ok := buf.AddOverflowSafe(off, length)
	if !ok || end > len(b.data) {
		end = len(b.data)
	}
	sub := b.data[off:end]
	child := &Buf{
		position: b.position.Add(int64(off)),
		data:     sub,
		pagesize: len(sub),
		parent:   b,
		root:     b.root,
	}
	b.root.children.Add(1)
	return child, nil
}

// Close releases this view's reference. On a non-root view this only
// decrements the shared descendant count. On a root view, if descendants
// remain outstanding the buffer is leaked and an error is returned rather
// than freeing memory still reachable through a live child — freeing it
// would be a use-after-free, which this type exists to prevent.
func (b *Buf) Close() error {
	if b.closed.Swap(true) {
		return nil
	}
	if b.parent != nil {
		b.root.children.Add(-1)
		return nil
	}
	if n := b.root.children.Load(); n > 0 {
		return fmt.Errorf("sbuf: closing root buffer with %d live children outstanding; leaking rather than freeing", n)
	}
	return b.root.release()
}

// Bytes returns the view's backing bytes directly, zero-copy. Exists for
// callers that need the raw region as a whole — carving and hashing —
// rather than a bounds-checked window of it.
func (b *Buf) Bytes() []byte { return b.data }

// At returns the byte at offset i, or 0 if i is out of range. Unlike the
// typed readers, this never fails — it exists for scanners doing
// speculative look-ahead where a short read is routine, not exceptional.
func (b *Buf) At(i int) byte {
	if i < 0 || i >= len(b.data) {
		return 0
	}
	return b.data[i]
}
