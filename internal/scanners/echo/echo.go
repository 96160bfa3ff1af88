// Package echo implements the minimal reference scanner used to exercise
// the scanner/feature-recorder pipeline end to end: the "echo" scanner
// from spec.md §8 scenario 1. It writes one "hit" feature per dispatched
// buffer to its own recorder, regardless of buffer content.
package echo

import (
	"github.com/forensix/scancore/feature"
	"github.com/forensix/scancore/scanner"
)

// Name is the scanner's registered name and its feature recorder's name.
const Name = "echo"

// Scanner is the reference implementation of the C8 scanner contract.
type Scanner struct{}

// New returns an echo scanner ready to register with a scanner.Set.
func New() *Scanner { return &Scanner{} }

// Info declares the echo scanner's metadata: one feature recorder, no
// histograms, enabled by default so a driver sees output with zero
// configuration.
func (s *Scanner) Info() scanner.Info {
	return scanner.Info{
		Name:        Name,
		Author:      "scancore",
		Description: "writes one \"hit\" feature per dispatched buffer; demonstrates the scanner contract",
		Version:     "1.0",
		Flags: scanner.Flags{
			DefaultEnabled:  true,
			ScanNgramBuffer: true,
		},
		FeatureRecorders: []feature.Def{
			{Name: Name},
		},
	}
}

// Scan writes "hit" at offset 0 of the dispatched buffer. Ignored during
// the shutdown message (p.Buf is nil then).
func (s *Scanner) Scan(p *scanner.Params) error {
	if p.Phase != scanner.PhaseScan || p.Buf == nil {
		return nil
	}
	r, err := p.Recorders.NamedFeatureRecorder(Name)
	if err != nil {
		return err
	}
	return r.Write(p.Buf.Pos0(), "hit", "")
}
