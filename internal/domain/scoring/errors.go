package scoring

import "errors"

// ErrNoBodyMass reports that a relative metric was requested for a lift with
// no bodyweight on record. Callers skip such lifts rather than fail them.
var ErrNoBodyMass = errors.New("no body mass on record")
