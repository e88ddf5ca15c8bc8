package attack

import (
	"errors"
	"fmt"
)

var (
	// ErrDetectionFailure means the oracle did not behave like a
	// deterministic ECB oracle with length-revealing padding.
	ErrDetectionFailure = errors.New("detection failure")

	// ErrRecoveryIncomplete marks a partial result: recovery stopped before
	// the estimated secret length was reached.
	ErrRecoveryIncomplete = errors.New("recovery incomplete")
)

func detectionFailure(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrDetectionFailure, fmt.Sprintf(format, args...))
}
