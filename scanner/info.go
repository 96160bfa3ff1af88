// Package scanner implements the scanner orchestrator: registration,
// the phased lifecycle, and the dispatch loop that feeds sbufs to
// registered scanners.
package scanner

import (
	"github.com/forensix/scancore/feature"
	"github.com/forensix/scancore/histogram"
	"github.com/forensix/scancore/sbuf"
)

// Flags are the per-scanner gating bits the dispatch loop consults.
type Flags struct {
	DefaultEnabled  bool // added to the enabled set at registration
	NoAll           bool // immune to the ALL_SCANNERS bulk command
	NoUsage         bool // suppressed from any usage/help listing
	ScanNgramBuffer bool // still invoked on a buffer find_ngram_size flagged as periodic
	Depth0Only      bool // only invoked at sbuf.Depth() == 0
	ScanSeenBefore  bool // still invoked on a previously-seen sbuf
	FindScanner     bool // marks this as a "find"-style scanner (informational only)
}

// HistogramDecl attaches a histogram definition to one of this scanner's
// declared recorders.
type HistogramDecl struct {
	RecorderName string
	Def          histogram.Def
}

// Info is the metadata a scanner fixes at registration: AddScanner calls
// Info() exactly once and never again.
type Info struct {
	Name        string
	Author      string
	Description string
	URL         string
	Version     string
	PathPrefix  string

	Flags Flags

	FeatureRecorders []feature.Def
	Histograms       []HistogramDecl
}

// Params is passed to Scan for one dispatch. Phase distinguishes the two
// calls a scanner receives during a run: PhaseScan carries a live Buf to
// process; PhaseShutdown carries a nil Buf and is a cue to flush any
// scanner-local buffering (the scan loop never calls Scan during
// PHASE_INIT — a scanner populates its Info() once at registration
// instead, the Go-idiomatic stand-in for the source's synthetic INIT
// scanner_params).
type Params struct {
	Phase     Phase
	Buf       *sbuf.Buf
	Recorders *feature.Set
	RunID     string
	Set       *Set // the owning scanner set, for scanners that recurse via Set.ProcessSbuf
}

// Scanner is the external contract (C8): a registered content scanner
// declares its metadata once via Info, then processes sbufs via Scan,
// which may recurse by calling Set.ProcessSbuf on children it constructs.
type Scanner interface {
	Info() Info
	Scan(p *Params) error
}
