package metrics

import (
	"errors"
)

// Sentinel kinds for metrics errors.
var (
	ErrNotInitialized = errors.New("metrics manager not initialized")
)
