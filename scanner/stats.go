package scanner

import "sync/atomic"

// Stats accumulates per-scanner dispatch timing, one instance per
// registered scanner, updated only with atomics so the scan phase never
// takes the scanner-database lock.
type Stats struct {
	Calls atomic.Int64
	Nanos atomic.Int64
}

// Snapshot is a point-in-time copy of Stats suitable for logging or the
// shutdown report.
type Snapshot struct {
	Scanner string
	Calls   int64
	Nanos   int64
}
