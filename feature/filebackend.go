package feature

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/forensix/scancore/pos0"
)

// FileBackend is the default Backend: one tab-delimited text file per
// recorder under outdir, matching the external-interfaces line format
// "pos0<TAB>feature<TAB>context<LF>". When context is empty (always so
// for a recorder with NoContext set) the line is "pos0<TAB>feature<TAB><LF>":
// the second tab is still written.
type FileBackend struct {
	outdir string

	mu    sync.Mutex
	files map[string]*bufio.Writer
	raw   map[string]*os.File
}

// NewFileBackend returns a FileBackend rooted at outdir. outdir must
// already exist; the backend creates one file per recorder lazily, on
// first write.
func NewFileBackend(outdir string) *FileBackend {
	return &FileBackend{
		outdir: outdir,
		files:  map[string]*bufio.Writer{},
		raw:    map[string]*os.File{},
	}
}

func (b *FileBackend) writer(recorder string) (*bufio.Writer, error) {
	if w, ok := b.files[recorder]; ok {
		return w, nil
	}
	path := filepath.Join(b.outdir, recorder+".txt")
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("feature: open %s: %w", path, err)
	}
	w := bufio.NewWriter(f)
	b.files[recorder] = w
	b.raw[recorder] = f
	return w, nil
}

// Write appends one line for recorder. context may be empty (the
// NoContext case), in which case the line ends with the second tab.
func (b *FileBackend) Write(recorder string, p pos0.Position, feat, context string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	w, err := b.writer(recorder)
	if err != nil {
		return err
	}
	if context == "" {
		if _, err := fmt.Fprintf(w, "%s\t%s\t\n", p.String(), feat); err != nil {
			return fmt.Errorf("feature: write %s: %w", recorder, err)
		}
		return nil
	}
	if _, err := fmt.Fprintf(w, "%s\t%s\t%s\n", p.String(), feat, context); err != nil {
		return fmt.Errorf("feature: write %s: %w", recorder, err)
	}
	return nil
}

// Flush flushes recorder's buffered writer, if it has been opened.
func (b *FileBackend) Flush(recorder string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	w, ok := b.files[recorder]
	if !ok {
		return nil
	}
	if err := w.Flush(); err != nil {
		return fmt.Errorf("feature: flush %s: %w", recorder, err)
	}
	return nil
}

// Close flushes and closes every file this backend has opened.
func (b *FileBackend) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	for name, w := range b.files {
		if err := w.Flush(); err != nil {
			return fmt.Errorf("feature: close %s: %w", name, err)
		}
	}
	for name, f := range b.raw {
		if err := f.Close(); err != nil {
			return fmt.Errorf("feature: close %s: %w", name, err)
		}
	}
	return nil
}
