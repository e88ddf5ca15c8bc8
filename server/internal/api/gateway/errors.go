package gateway

import (
	"errors"

	"EcbBreaker/server/internal/attack"
	"EcbBreaker/server/internal/oracle"
	"EcbBreaker/server/internal/pkg/encryption"
	"EcbBreaker/server/internal/pkg/encryption/modes"
	"EcbBreaker/server/internal/pkg/encryption/padding"
	"EcbBreaker/server/internal/pkg/helpers"
	"EcbBreaker/server/internal/services/challenge"
)

// clientError is a malformed request.
type clientError struct {
	msg string
}

func (e *clientError) Error() string {
	return e.msg
}

func isInvalidInput(err error) bool {
	for _, target := range []error{
		encryption.ErrInvalidKeySize,
		encryption.ErrUnknownAlgorithm,
		modes.ErrUnknownMode,
		padding.ErrUnknownPadding,
		helpers.ErrInvalidHex,
		helpers.ErrMissingField,
		helpers.ErrRequestTooLarge,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

func isDetectionFailure(err error) bool {
	return errors.Is(err, attack.ErrDetectionFailure)
}

func isRateLimited(err error) bool {
	return errors.Is(err, oracle.ErrBudgetExceeded) || errors.Is(err, challenge.ErrTooManySessions)
}
