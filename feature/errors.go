package feature

import "errors"

// ErrNoSuchRecorder is returned by NamedFeatureRecorder for a name that was
// never created with CreateFeatureRecorder.
var ErrNoSuchRecorder = errors.New("feature: no such recorder")

// ErrDuplicateRecorder is returned by CreateFeatureRecorder for a name
// already present in the set.
var ErrDuplicateRecorder = errors.New("feature: duplicate recorder")

// ErrBackendConflict is returned by NewSet when no backend is supplied; a
// set writes through exactly one backend.
var ErrBackendConflict = errors.New("feature: exactly one backend must be selected")

// ErrHistogramAfterWrite is returned by HistogramAdd once the recorder has
// emitted at least one feature.
var ErrHistogramAfterWrite = errors.New("feature: histogram added after first write")

// ErrPedantic wraps a pedantic-mode violation: a scanner bug, not a user
// data issue, per the error taxonomy's "fatal, not caught" treatment.
var ErrPedantic = errors.New("feature: pedantic violation")

// ErrStoplistDivergence is returned by AttachStopList when no alert
// recorder exists yet.
var ErrStoplistDivergence = errors.New("feature: stop-list configured without an alert recorder")
