package scanner

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/forensix/scancore/config"
	"github.com/forensix/scancore/feature"
)

// Set is the scanner orchestrator: registration, the phase state
// machine, and the dispatch loop.
type Set struct {
	cfg       *config.Config
	recorders *feature.Set
	log       *slog.Logger

	phase atomic.Int32

	mu       sync.RWMutex
	scanners map[string]Scanner
	order    []string
	infos    map[string]Info
	enabled  map[string]bool
	stats    map[string]*Stats

	maxDepthSeen        atomic.Int64
	dupBytesEncountered atomic.Int64

	runID string
}

// NewSet constructs a scanner set in PHASE_INIT, owning recorders (the
// feature recorder set it dispatches writes into). log defaults to a
// discarding logger if nil.
func NewSet(cfg *config.Config, recorders *feature.Set, log *slog.Logger) *Set {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	return &Set{
		cfg:       cfg,
		recorders: recorders,
		log:       log,
		scanners:  map[string]Scanner{},
		infos:     map[string]Info{},
		enabled:   map[string]bool{},
		stats:     map[string]*Stats{},
	}
}

// Phase returns the set's current phase.
func (s *Set) Phase() Phase { return Phase(s.phase.Load()) }

func (s *Set) requirePhase(want Phase) error {
	if got := s.Phase(); got != want {
		return fatalf("%w: want %s, have %s", ErrWrongPhase, want, got)
	}
	return nil
}

// AddScanner registers s. INIT-only. Calls s.Info() exactly once; a
// scanner that returns an empty Name is a fatal registration error.
func (s *Set) AddScanner(sc Scanner) error {
	if err := s.requirePhase(PhaseInit); err != nil {
		return err
	}
	info := sc.Info()
	if info.Name == "" {
		return fatalf("%w: scanner populated no info", ErrMissingInfo)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.scanners[info.Name]; ok {
		return fatalf("%w: %s", ErrAlreadyRegistered, info.Name)
	}
	s.scanners[info.Name] = sc
	s.infos[info.Name] = info
	s.order = append(s.order, info.Name)
	s.stats[info.Name] = &Stats{}
	if info.Flags.DefaultEnabled {
		s.enabled[info.Name] = true
	}
	if s.cfg.Debug.Register {
		s.log.Debug("scanner registered", "scanner", info.Name, "default_enabled", info.Flags.DefaultEnabled)
	}
	return nil
}

// ApplyScannerCommands resolves the configuration's queued enable/disable
// commands in order, then creates the alert recorder and every feature
// recorder/histogram declared by an enabled scanner's info. Transitions
// the set from PHASE_INIT to PHASE_ENABLED.
func (s *Set) ApplyScannerCommands() error {
	if err := s.requirePhase(PhaseInit); err != nil {
		return err
	}

	s.mu.Lock()
	for _, cmd := range s.cfg.Commands {
		if cmd.Scanner == config.AllScanners {
			for _, name := range s.order {
				if s.infos[name].Flags.NoAll {
					continue
				}
				s.enabled[name] = cmd.Enable
			}
			continue
		}
		if _, ok := s.scanners[cmd.Scanner]; !ok {
			s.mu.Unlock()
			return fatalf("%w: %s", ErrNoSuchScanner, cmd.Scanner)
		}
		s.enabled[cmd.Scanner] = cmd.Enable
	}
	enabledNames := make([]string, 0, len(s.order))
	for _, name := range s.order {
		if s.enabled[name] {
			enabledNames = append(enabledNames, name)
		}
	}
	infos := make([]Info, 0, len(enabledNames))
	for _, name := range enabledNames {
		infos = append(infos, s.infos[name])
	}
	s.mu.Unlock()

	if _, err := s.recorders.GetAlertRecorder(); err != nil {
		if _, createErr := s.recorders.CreateFeatureRecorder(feature.Def{Name: "alerts", NoContext: true}); createErr != nil {
			return fmt.Errorf("scanner: create alert recorder: %w", createErr)
		}
	}

	for _, info := range infos {
		for _, def := range info.FeatureRecorders {
			if _, err := s.recorders.CreateFeatureRecorder(def); err != nil && !errors.Is(err, feature.ErrDuplicateRecorder) {
				return fmt.Errorf("scanner: create_feature_recorder %s: %w", def.Name, err)
			}
		}
		for _, hd := range info.Histograms {
			if err := s.recorders.HistogramAdd(hd.RecorderName, hd.Def); err != nil {
				return fmt.Errorf("scanner: histogram_add %s/%s: %w", hd.RecorderName, hd.Def.Name, err)
			}
		}
	}

	s.phase.Store(int32(PhaseEnabled))
	return nil
}

// PhaseScan transitions the set from PHASE_ENABLED to PHASE_SCAN, stamping
// a fresh run ID that is logged on entry and passed to every subsequent
// dispatch in Params.RunID. Alerts do not carry it.
func (s *Set) PhaseScan() error {
	if err := s.requirePhase(PhaseEnabled); err != nil {
		return err
	}
	s.runID = uuid.NewString()
	s.phase.Store(int32(PhaseScan))
	s.log.Info("scan phase entered", "run_id", s.runID)
	return nil
}

// RunID returns the current run's ID, valid from PhaseScan onward.
func (s *Set) RunID() string { return s.runID }

// Enabled reports whether name is currently in the enabled set. Valid
// from PHASE_ENABLED onward; always false for an unregistered name.
func (s *Set) Enabled(name string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.enabled[name]
}

// StatsSnapshot returns a point-in-time copy of every scanner's stats, in
// registration order.
func (s *Set) StatsSnapshot() []Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Snapshot, 0, len(s.order))
	for _, name := range s.order {
		st := s.stats[name]
		out = append(out, Snapshot{Scanner: name, Calls: st.Calls.Load(), Nanos: st.Nanos.Load()})
	}
	return out
}

// MaxDepthSeen returns the deepest sbuf depth dispatched so far.
func (s *Set) MaxDepthSeen() int64 { return s.maxDepthSeen.Load() }

// DupBytesEncountered returns the total size of sbufs whose content hash
// had been seen before.
func (s *Set) DupBytesEncountered() int64 { return s.dupBytesEncountered.Load() }
