package helpers

import (
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"EcbBreaker/server/internal/protocol"
)

// Upper bounds on request sizes. Recovery costs 257 oracle queries per
// secret byte.
const (
	MaxUnknownLength       = 1024
	MaxAttackerInputLength = 1024
)

var (
	ErrInvalidHex      = errors.New("invalid hex")
	ErrRequestTooLarge = errors.New("request too large")
	ErrMissingField    = errors.New("missing field")
)

// DecodeHex decodes a hex field, ignoring surrounding whitespace and an
// optional 0x prefix.
func DecodeHex(field, value string) ([]byte, error) {
	value = strings.TrimPrefix(strings.TrimSpace(value), "0x")
	b, err := hex.DecodeString(value)
	if err != nil {
		return nil, fmt.Errorf("%w in %s: %v", ErrInvalidHex, field, err)
	}
	return b, nil
}

// ValidateDemoRequest checks sizes and decodes the key of a demo request.
// Key length against the cipher is checked later, by the oracle.
func ValidateDemoRequest(req *protocol.DemoRequest) ([]byte, error) {
	if len(req.Unknown) > MaxUnknownLength {
		return nil, fmt.Errorf("%w: unknown is %d bytes (max %d)", ErrRequestTooLarge, len(req.Unknown), MaxUnknownLength)
	}
	if len(req.AttackerInput) > MaxAttackerInputLength {
		return nil, fmt.Errorf("%w: attacker_input is %d bytes (max %d)", ErrRequestTooLarge, len(req.AttackerInput), MaxAttackerInputLength)
	}
	return DecodeHex("key", req.KeyHex)
}

// ValidateChallengeRequest checks the secret of a challenge request.
func ValidateChallengeRequest(req *protocol.ChallengeCreateRequest) error {
	if req.Secret == "" {
		return fmt.Errorf("%w: secret", ErrMissingField)
	}
	if len(req.Secret) > MaxUnknownLength {
		return fmt.Errorf("%w: secret is %d bytes (max %d)", ErrRequestTooLarge, len(req.Secret), MaxUnknownLength)
	}
	return nil
}
