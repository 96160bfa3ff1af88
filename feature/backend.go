package feature

import (
	"io"
	"time"

	"github.com/forensix/scancore/histogram"
	"github.com/forensix/scancore/pos0"
)

// Backend is the sink a recorder's write pipeline emits triples to. The
// file backend and the SQL backend (internal/sqlsink) both implement it;
// a recorder is written against the interface and never knows which one
// it has, per the design note that the backend choice hides behind the
// recorder contract.
type Backend interface {
	Write(recorder string, p pos0.Position, feature, context string) error
	Flush(recorder string) error
	Close() error
}

// HistogramGenerator is an optional Backend capability: a backend that
// can materialize a histogram itself (e.g. the SQL backend's GROUP BY)
// rather than relying on the recorder's in-memory histogram.Histogram.
// A backend that doesn't implement it falls back to the in-memory path.
type HistogramGenerator interface {
	GenerateHistogram(recorder string, def histogram.Def, w io.Writer) error
}

// CarveStore is where a recorder's Carve writes the header+data bytes of
// a carved file. internal/carvestore provides a local-filesystem and a
// MinIO-backed implementation.
type CarveStore interface {
	Write(relPath string, header, data []byte, mtime time.Time) error
}
