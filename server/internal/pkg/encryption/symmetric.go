package encryption

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidKeySize   = errors.New("invalid key size")
	ErrInvalidBlockSize = errors.New("invalid block size")
	ErrUnknownAlgorithm = errors.New("unknown algorithm")
)

// KeyLengthError reports a key that is not exactly one block long for the
// selected algorithm.
type KeyLengthError struct {
	Algorithm string
	Got       int
	Want      int
}

func (e *KeyLengthError) Error() string {
	return fmt.Sprintf("invalid key length for %s: %d (expected %d)", e.Algorithm, e.Got, e.Want)
}

func (e *KeyLengthError) Unwrap() error {
	return ErrInvalidKeySize
}
