package feature

import (
	"crypto/md5"  //nolint:gosec // content-identity hash for carve dedup, not a security boundary
	"crypto/sha1" //nolint:gosec
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/forensix/scancore/config"
	"github.com/forensix/scancore/histogram"
	"github.com/forensix/scancore/sbuf"
)

// Set is the feature recorder set: a named collection of recorders, a
// distinguished alert recorder, and the seen-set used to deduplicate
// sbufs before dispatch.
type Set struct {
	mu        sync.RWMutex
	recorders map[string]*Recorder
	order     []string

	outdir               string
	disabled             bool
	pedantic             bool
	hashAlgorithm        config.HashAlgorithm
	contextWindowDefault int
	debug                config.DebugFlags

	backend    Backend
	carveStore CarveStore

	stoplist *StopList

	seenMu  sync.Mutex
	seenSet map[string]struct{}
}

// Options configures a new Set.
type Options struct {
	Outdir               string // config.NoOutdir disables every recorder
	HashAlgorithm        config.HashAlgorithm
	ContextWindowDefault int
	Pedantic             bool

	// Debug carries the environment-driven debug bits (see config.DebugFlags);
	// Debug.Scanner enables a log line for every feature written by any
	// recorder in this set (spec.md §6, SCANNER_SET_DEBUG_SCANNER).
	Debug config.DebugFlags

	// Backend is the sink every recorder in this set writes through.
	// Exactly one backend must be supplied; there is no way to mix file
	// and SQL recorders within a single set.
	Backend Backend

	// CarveStore is where Carve writes header+data bytes. May be nil if
	// no recorder in this set carves.
	CarveStore CarveStore
}

// NewSet constructs an empty feature recorder set from opts.
func NewSet(opts Options) (*Set, error) {
	if opts.Backend == nil {
		return nil, fmt.Errorf("feature: %w: no backend supplied", ErrBackendConflict)
	}
	if opts.HashAlgorithm == "" {
		opts.HashAlgorithm = config.SHA1
	}
	return &Set{
		recorders:            map[string]*Recorder{},
		outdir:               opts.Outdir,
		disabled:             opts.Outdir == config.NoOutdir,
		pedantic:             opts.Pedantic,
		hashAlgorithm:        opts.HashAlgorithm,
		contextWindowDefault: opts.ContextWindowDefault,
		debug:                opts.Debug,
		backend:              opts.Backend,
		carveStore:           opts.CarveStore,
		seenSet:              map[string]struct{}{},
	}, nil
}

func (s *Set) hash(data []byte) string {
	switch s.hashAlgorithm {
	case config.MD5:
		sum := md5.Sum(data) //nolint:gosec
		return hex.EncodeToString(sum[:])
	case config.SHA256:
		sum := sha256.Sum256(data)
		return hex.EncodeToString(sum[:])
	default:
		sum := sha1.Sum(data) //nolint:gosec
		return hex.EncodeToString(sum[:])
	}
}

// CreateFeatureRecorder creates and returns a recorder from def. Fails if
// a recorder with this name already exists.
func (s *Set) CreateFeatureRecorder(def Def) (*Recorder, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.recorders[def.Name]; ok {
		return nil, fmt.Errorf("feature: %w: %s", ErrDuplicateRecorder, def.Name)
	}
	r := newRecorder(def, s, s.backend)
	s.recorders[def.Name] = r
	s.order = append(s.order, def.Name)
	return r, nil
}

// NamedFeatureRecorder returns the recorder registered under name.
func (s *Set) NamedFeatureRecorder(name string) (*Recorder, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.recorders[name]
	if !ok {
		return nil, fmt.Errorf("feature: %w: %s", ErrNoSuchRecorder, name)
	}
	return r, nil
}

// GetAlertRecorder returns the well-known recorder named "alerts".
func (s *Set) GetAlertRecorder() (*Recorder, error) { return s.NamedFeatureRecorder("alerts") }

// AttachStopList wires sl into the set. Fails if the alert recorder has
// not been created yet: a stop-list's failures are reported through it,
// so a set that can divert to a stop-list but has no alert recorder is a
// construction-time bug, not a runtime one.
func (s *Set) AttachStopList(sl *StopList) error {
	if _, err := s.GetAlertRecorder(); err != nil {
		return fmt.Errorf("feature: attach stop-list: %w", ErrStoplistDivergence)
	}
	if _, err := s.NamedFeatureRecorder(sl.RecorderName); err != nil {
		return fmt.Errorf("feature: attach stop-list: %w", err)
	}
	s.stoplist = sl
	return nil
}

// HistogramAdd dispatches to the named recorder's HistogramAdd.
func (s *Set) HistogramAdd(recorder string, def histogram.Def) error {
	r, err := s.NamedFeatureRecorder(recorder)
	if err != nil {
		return err
	}
	return r.HistogramAdd(def)
}

// CheckPreviouslyProcessed hashes s's bytes (SHA1, independent of the
// set's configured hash_algorithm — this is a fixed internal identity
// hash) and inserts it into the seen-set. It returns whether the hash was
// already present.
func (s *Set) CheckPreviouslyProcessed(buf *sbuf.Buf) bool {
	h := buf.Hash()
	s.seenMu.Lock()
	defer s.seenMu.Unlock()
	_, seen := s.seenSet[h]
	if !seen {
		s.seenSet[h] = struct{}{}
	}
	return seen
}

// Recorders returns every recorder in registration order.
func (s *Set) Recorders() []*Recorder {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*Recorder, 0, len(s.order))
	for _, name := range s.order {
		out = append(out, s.recorders[name])
	}
	return out
}

// DumpNameCountStats writes "<name>\t<features_written>\n" for every
// recorder, in registration order.
func (s *Set) DumpNameCountStats(w io.Writer) error {
	for _, r := range s.Recorders() {
		if _, err := fmt.Fprintf(w, "%s\t%d\n", r.Name(), r.FeaturesWritten()); err != nil {
			return fmt.Errorf("feature: dump stats: %w", err)
		}
	}
	return nil
}

// HistogramsGenerate materializes every recorder's histograms to
// "{outdir}/{recorder}_{histogram}.txt". If the set's backend implements
// HistogramGenerator (the SQL backend's GROUP BY path), that strategy is
// used instead of the recorder's in-memory multiset, per the design note
// that the backend hides its histogram strategy behind the recorder
// interface.
func (s *Set) HistogramsGenerate() error {
	if s.disabled {
		return nil
	}
	gen, _ := s.backend.(HistogramGenerator)
	for _, r := range s.Recorders() {
		for _, h := range r.Histograms() {
			def := h.Def()
			path := filepath.Join(s.outdir, fmt.Sprintf("%s_%s.txt", r.Name(), def.Name))
			f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
			if err != nil {
				return fmt.Errorf("feature: histogram %s/%s: %w", r.Name(), def.Name, err)
			}
			if gen != nil {
				err = gen.GenerateHistogram(r.Name(), def, f)
			} else {
				err = h.Generate(f)
			}
			closeErr := f.Close()
			if err != nil {
				return fmt.Errorf("feature: histogram %s/%s: %w", r.Name(), def.Name, err)
			}
			if closeErr != nil {
				return fmt.Errorf("feature: histogram %s/%s: %w", r.Name(), def.Name, closeErr)
			}
		}
	}
	return nil
}

// Shutdown flushes every recorder's backend state and closes the shared
// backend.
func (s *Set) Shutdown() error {
	for _, r := range s.Recorders() {
		if err := r.Flush(); err != nil {
			return err
		}
	}
	if err := s.backend.Close(); err != nil {
		return fmt.Errorf("feature: shutdown: %w", err)
	}
	return nil
}
