package scanner

import (
	"encoding/hex"
	"fmt"
	"time"

	"github.com/forensix/scancore/pos0"
	"github.com/forensix/scancore/sbuf"
)

// ProcessSbuf dispatches one sbuf through every enabled, gating-eligible
// scanner in registration order, then closes it. SCAN-only. Takes
// ownership of buf: it is closed when this call returns, which requires
// buf.Children() == 0 at that point — a scanner that leaks a child view
// is a bug this asserts against rather than silently tolerates.
func (s *Set) ProcessSbuf(buf *sbuf.Buf) error {
	if err := s.requirePhase(PhaseScan); err != nil {
		return err
	}
	defer func() {
		if n := buf.Children(); n != 0 {
			s.alertf("INTERNAL_ERROR", "sbuf at %s closed with %d live children outstanding", buf.Pos0().String(), n)
		}
		_ = buf.Close()
	}()

	if s.cfg.Debug.NoScanners {
		return nil
	}

	if s.cfg.Debug.DumpData {
		s.log.Debug("sbuf dump", "pos0", buf.Pos0().String(), "bufsize", buf.BufSize(), "hex", hex.EncodeToString(buf.Bytes()))
	}

	depth := buf.Depth()
	// spec.md §4.3 step 1 and the original (scanner_set.cpp) both read
	// "depth >= max_depth"; that reading is inconsistent with spec.md §8
	// scenario 3, where a recursive scanner must still run at depth 2 to
	// produce the depth-3 child that gets rejected. ">" is used here so
	// every depth up to and including max_depth is dispatched and only
	// the first buffer beyond it is rejected.
	if depth > s.cfg.MaxDepth {
		s.alertf("MAX_DEPTH_REACHED", "depth %d at %s", depth, buf.Pos0().String())
		return nil
	}
	for {
		cur := s.maxDepthSeen.Load()
		if int64(depth) <= cur || s.maxDepthSeen.CompareAndSwap(cur, int64(depth)) {
			break
		}
	}

	seen := s.recorders.CheckPreviouslyProcessed(buf)
	if seen {
		s.dupBytesEncountered.Add(int64(buf.BufSize()))
		if s.cfg.DupDataAlerts {
			s.alertf("DUP_SBUF", "%s", buf.Hash())
		}
	}

	ngram := buf.FindNgramSize(s.cfg.MaxNgramSize)

	s.mu.RLock()
	order := append([]string(nil), s.order...)
	s.mu.RUnlock()

	for _, name := range order {
		s.mu.RLock()
		enabled := s.enabled[name]
		info := s.infos[name]
		sc := s.scanners[name]
		st := s.stats[name]
		s.mu.RUnlock()

		if !enabled {
			continue
		}
		if ngram > 0 && !info.Flags.ScanNgramBuffer {
			continue
		}
		if depth > 0 && info.Flags.Depth0Only {
			continue
		}
		if seen && !info.Flags.ScanSeenBefore {
			continue
		}

		if s.cfg.Debug.PrintSteps {
			s.log.Debug("dispatching scanner", "scanner", name, "pos0", buf.Pos0().String(), "depth", depth)
		}

		start := time.Now()
		s.invoke(name, sc, &Params{Phase: PhaseScan, Buf: buf, Recorders: s.recorders, RunID: s.runID, Set: s})
		st.Calls.Add(1)
		st.Nanos.Add(int64(time.Since(start)))
	}
	return nil
}

// invoke runs one scanner behind an exception boundary: a panic or a
// returned error is logged to the alert recorder and never propagated, so
// one scanner's failure cannot contaminate its siblings.
func (s *Set) invoke(name string, sc Scanner, p *Params) {
	defer func() {
		if r := recover(); r != nil {
			if err, ok := r.(error); ok {
				s.alertf("exception", "<exception scanner='%s'>%s</exception>", name, err.Error())
			} else {
				s.alertf("exception", "<unknown_exception scanner='%s'/>", name)
			}
		}
	}()
	if err := sc.Scan(p); err != nil {
		s.alertf("exception", "<exception scanner='%s'>%s</exception>", name, err.Error())
	}
}

func (s *Set) alertf(kind, format string, args ...any) {
	r, err := s.recorders.GetAlertRecorder()
	if err != nil {
		s.log.Warn("alert dropped: no alert recorder", "kind", kind)
		return
	}
	body := fmt.Sprintf(format, args...)
	msg := body
	if len(body) == 0 || body[0] != '<' {
		msg = kind + " " + body
	}
	_ = r.Write(pos0.Top(), msg, "")
}

// Shutdown invokes every enabled scanner with a SHUTDOWN message (best
// effort; scanners that don't need shutdown handling simply ignore a nil
// Buf), flushes the recorder set, materializes histograms, and emits the
// per-scanner stats report. SCAN-only; transitions to PHASE_SHUTDOWN.
func (s *Set) Shutdown() error {
	if err := s.requirePhase(PhaseScan); err != nil {
		return err
	}
	s.phase.Store(int32(PhaseShutdown))

	s.mu.RLock()
	order := append([]string(nil), s.order...)
	s.mu.RUnlock()
	for _, name := range order {
		s.mu.RLock()
		enabled := s.enabled[name]
		sc := s.scanners[name]
		s.mu.RUnlock()
		if !enabled {
			continue
		}
		s.invoke(name, sc, &Params{Phase: PhaseShutdown, Recorders: s.recorders, RunID: s.runID, Set: s})
	}

	if err := s.recorders.HistogramsGenerate(); err != nil {
		return fmt.Errorf("scanner: shutdown: %w", err)
	}
	if err := s.recorders.Shutdown(); err != nil {
		return fmt.Errorf("scanner: shutdown: %w", err)
	}
	for _, snap := range s.StatsSnapshot() {
		s.log.Info("scanner stats", "scanner", snap.Scanner, "calls", snap.Calls, "nanos", snap.Nanos)
	}
	return nil
}
