package feature

import (
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"unicode/utf8"

	"github.com/forensix/scancore/histogram"
	"github.com/forensix/scancore/pos0"
	"github.com/forensix/scancore/sbuf"
)

// Recorder is one named feature sink: the write pipeline in §4.2 of the
// feature-recorder contract, plus carving and histogram attachment.
type Recorder struct {
	def     Def
	set     *Set
	backend Backend

	featuresWritten atomic.Int64
	carvedFileCount atomic.Int64

	histMu     sync.Mutex
	histograms map[string]*histogram.Histogram

	carveMu    sync.Mutex
	carveCache map[string]struct{}
}

func newRecorder(def Def, set *Set, backend Backend) *Recorder {
	if def.MaxFeatureSize == 0 {
		def.MaxFeatureSize = defaultMaxFeatureSize
	}
	if def.MaxContextSize == 0 {
		def.MaxContextSize = defaultMaxContextSize
	}
	return &Recorder{
		def:        def,
		set:        set,
		backend:    backend,
		histograms: map[string]*histogram.Histogram{},
		carveCache: map[string]struct{}{},
	}
}

// Name returns the recorder's name.
func (r *Recorder) Name() string { return r.def.Name }

// Def returns the definition this recorder was created from.
func (r *Recorder) Def() Def { return r.def }

// FeaturesWritten returns the number of features this recorder has
// accepted into its pipeline, including ones later routed to a stoplist
// recorder instead of this recorder's own sink.
func (r *Recorder) FeaturesWritten() int64 { return r.featuresWritten.Load() }

// CarvedFileCount returns the number of distinct files this recorder has
// carved (cache hits do not increment it).
func (r *Recorder) CarvedFileCount() int64 { return r.carvedFileCount.Load() }

func (r *Recorder) contextWindow() int {
	if r.def.ContextWindow > 0 {
		return r.def.ContextWindow
	}
	return r.set.contextWindowDefault
}

// HistogramAdd attaches a histogram definition to this recorder. Forbidden
// once the recorder has written its first feature. Adding a definition
// whose Name matches an existing histogram on this recorder is a no-op:
// the two declarations are treated as the same histogram, mirroring how
// the scanner set merges duplicate recorder declarations by name.
func (r *Recorder) HistogramAdd(def histogram.Def) error {
	if r.featuresWritten.Load() > 0 {
		return fmt.Errorf("feature: recorder %s: %w", r.def.Name, ErrHistogramAfterWrite)
	}
	r.histMu.Lock()
	defer r.histMu.Unlock()
	if _, ok := r.histograms[def.Name]; ok {
		return nil
	}
	r.histograms[def.Name] = histogram.New(def)
	return nil
}

// Histogram returns the named histogram attached to this recorder, or nil.
func (r *Recorder) Histogram(name string) *histogram.Histogram {
	r.histMu.Lock()
	defer r.histMu.Unlock()
	return r.histograms[name]
}

// Histograms returns every histogram attached to this recorder.
func (r *Recorder) Histograms() []*histogram.Histogram {
	r.histMu.Lock()
	defer r.histMu.Unlock()
	out := make([]*histogram.Histogram, 0, len(r.histograms))
	for _, h := range r.histograms {
		out = append(out, h)
	}
	return out
}

// Write runs the canonical write pipeline: pedantic assertion, quoting,
// truncation, stop-list routing, histogram update, sink emission.
func (r *Recorder) Write(p pos0.Position, feat, context string) error {
	if r.set.disabled {
		return nil
	}

	if r.set.pedantic {
		if strings.ContainsAny(feat, "\t\n\r") || strings.ContainsAny(context, "\t\n\r") {
			return fmt.Errorf("feature: recorder %s: raw delimiter byte in feature/context: %w", r.def.Name, ErrPedantic)
		}
		if len(feat) > r.def.MaxFeatureSize || (!r.def.NoContext && len(context) > r.def.MaxContextSize) {
			return fmt.Errorf("feature: recorder %s: feature/context exceeds configured maximum: %w", r.def.Name, ErrPedantic)
		}
	}

	mode := r.def.quoteMode()
	qFeature := quote(feat, mode)
	qContext := ""
	if !r.def.NoContext {
		qContext = quote(context, mode)
	}

	qFeature = truncate(qFeature, r.def.MaxFeatureSize)
	if !r.def.NoContext {
		qContext = truncate(qContext, r.def.MaxContextSize)
	}

	if qFeature == "" {
		if r.set.pedantic {
			return fmt.Errorf("feature: recorder %s: feature empty after quoting: %w", r.def.Name, ErrPedantic)
		}
		slog.Debug("feature dropped: empty after quoting", "recorder", r.def.Name, "pos0", p.String())
		return nil
	}

	r.featuresWritten.Add(1)

	if sl := r.set.stoplist; sl != nil && !r.def.NoStoplist && sl.RecorderName != r.def.Name && sl.Match(feat, context) {
		target, err := r.set.NamedFeatureRecorder(sl.RecorderName)
		if err != nil {
			return fmt.Errorf("feature: stop-list route: %w", err)
		}
		return target.writeDirect(p, qFeature, qContext)
	}

	for _, h := range r.Histograms() {
		h.Add(qFeature)
	}

	if err := r.backend.Write(r.def.Name, p, qFeature, qContext); err != nil {
		return fmt.Errorf("feature: recorder %s: %w", r.def.Name, err)
	}
	if r.set.debug.Scanner {
		slog.Debug("feature written", "recorder", r.def.Name, "pos0", p.String(), "feature", qFeature)
	}
	return nil
}

// writeDirect emits an already-quoted triple without re-running the
// pipeline: used when a feature is routed to the stop-list recorder, which
// must not re-quote or re-count against the original recorder's histogram.
func (r *Recorder) writeDirect(p pos0.Position, qFeature, qContext string) error {
	if r.set.disabled {
		return nil
	}
	r.featuresWritten.Add(1)
	for _, h := range r.Histograms() {
		h.Add(qFeature)
	}
	if err := r.backend.Write(r.def.Name, p, qFeature, qContext); err != nil {
		return fmt.Errorf("feature: recorder %s: %w", r.def.Name, err)
	}
	if r.set.debug.Scanner {
		slog.Debug("feature written", "recorder", r.def.Name, "pos0", p.String(), "feature", qFeature)
	}
	return nil
}

// WriteBuf computes the context window around [pos, pos+length) of s and
// delegates to Write. Positions in s's margin are silently dropped: the
// surrounding page will re-scan them.
func (r *Recorder) WriteBuf(s *sbuf.Buf, pos, length int) error {
	if pos >= s.PageSize() && pos < s.BufSize() {
		return nil
	}
	w := r.contextWindow()
	feat, err := s.Substr(pos, length)
	if err != nil {
		return fmt.Errorf("feature: write_buf: %w", err)
	}
	p := s.Pos0().Add(int64(pos))
	if r.def.NoContext {
		return r.Write(p, string(feat), "")
	}
	start := pos - w
	if start < 0 {
		start = 0
	}
	end := pos + length + w
	if end > s.BufSize() {
		end = s.BufSize()
	}
	ctx, err := s.Substr(start, end-start)
	if err != nil {
		return fmt.Errorf("feature: write_buf context: %w", err)
	}
	return r.Write(p, string(feat), string(ctx))
}

// Flush drains this recorder's buffered writer state, if the backend
// buffers per recorder.
func (r *Recorder) Flush() error { return r.backend.Flush(r.def.Name) }

func truncate(s string, max int) string {
	if max <= 0 || len(s) <= max {
		return s
	}
	// Trim on a rune boundary so truncation never splits a multi-byte
	// UTF-8 sequence, even though the escaped text is mostly ASCII.
	cut := max
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}
