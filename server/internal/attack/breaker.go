// Package attack recovers the unknown suffix an ECB encryption oracle
// appends to attacker input, one byte at a time.
package attack

import (
	"bytes"
	"context"

	"EcbBreaker/server/internal/oracle"
)

const (
	// MinBlockSize and MaxBlockSize bound the block sizes the detector accepts.
	MinBlockSize = 2
	MaxBlockSize = 256
	// MaxProbeLength bounds the block size search.
	MaxProbeLength = 2 * MaxBlockSize

	DefaultFiller byte = 'A'
)

// Breaker holds the state for attacking one oracle.
type Breaker struct {
	Oracle oracle.Oracle

	// Prefix is sent at the start of every query. It is attacker-controlled,
	// so its content is known; only its length matters to the attack.
	Prefix []byte

	// Filler pads queries into block alignment. Zero selects DefaultFiller.
	Filler byte

	// Workers bounds concurrent dictionary queries; 0 or 1 queries serially.
	Workers int

	// Log receives the narration. Nil discards it.
	Log *StepLog
}

// NewBreaker returns a breaker for o with an empty prefix.
func NewBreaker(o oracle.Oracle) *Breaker {
	return &Breaker{Oracle: o, Filler: DefaultFiller, Log: NewStepLog()}
}

func (b *Breaker) filler() byte {
	if b.Filler == 0 {
		return DefaultFiller
	}
	return b.Filler
}

func (b *Breaker) log() *StepLog {
	if b.Log == nil {
		b.Log = NewStepLog()
	}
	return b.Log
}

// probe returns prefix || filler*pad || tail in a fresh buffer.
func (b *Breaker) probe(pad int, tail []byte) []byte {
	buf := make([]byte, 0, len(b.Prefix)+pad+len(tail)+1)
	buf = append(buf, b.Prefix...)
	buf = append(buf, bytes.Repeat([]byte{b.filler()}, pad)...)
	return append(buf, tail...)
}

func (b *Breaker) query(ctx context.Context, pad int) ([]byte, error) {
	return b.Oracle.Encrypt(ctx, b.probe(pad, nil))
}

// DetectBlockSize grows the input one byte at a time and returns the first
// jump in ciphertext length. Padding rounds up to the next block boundary,
// so the jump is exactly one block.
func (b *Breaker) DetectBlockSize(ctx context.Context) (int, error) {
	ciphertext, err := b.query(ctx, 0)
	if err != nil {
		return 0, err
	}
	prevLen := len(ciphertext)
	if prevLen == 0 {
		return 0, detectionFailure("oracle returned an empty ciphertext")
	}

	for n := 1; n <= MaxProbeLength; n++ {
		ciphertext, err := b.query(ctx, n)
		if err != nil {
			return 0, err
		}
		delta := len(ciphertext) - prevLen
		switch {
		case delta < 0:
			return 0, detectionFailure("ciphertext shrank from %d to %d bytes", prevLen, len(ciphertext))
		case delta > 0 && delta < MinBlockSize:
			return 0, detectionFailure("ciphertext grows byte by byte; not a block cipher")
		case delta > 0:
			if delta > MaxBlockSize || len(ciphertext)%delta != 0 {
				return 0, detectionFailure("ciphertext length %d is not a multiple of jump %d", len(ciphertext), delta)
			}
			return delta, nil
		}
	}
	return 0, detectionFailure("no ciphertext length change within %d input bytes", MaxProbeLength)
}

// EstimateSecretLength finds how many filler bytes k push the ciphertext
// over the next block boundary. Those k bytes were the free padding, so the
// plaintext before them was L0 - k bytes long.
func (b *Breaker) EstimateSecretLength(ctx context.Context, blockSize int) (int, error) {
	ciphertext, err := b.query(ctx, 0)
	if err != nil {
		return 0, err
	}
	initLen := len(ciphertext)

	for k := 1; k <= blockSize; k++ {
		ciphertext, err := b.query(ctx, k)
		if err != nil {
			return 0, err
		}
		if len(ciphertext) > initLen {
			n := initLen - k - len(b.Prefix)
			if n < 0 {
				return 0, detectionFailure("negative secret length %d", n)
			}
			return n, nil
		}
	}
	return 0, detectionFailure("no ciphertext length change within %d input bytes", blockSize)
}

// CheckDeterministic returns a detection failure if two identical queries
// produce different ciphertexts.
func (b *Breaker) CheckDeterministic(ctx context.Context) error {
	first, err := b.query(ctx, 0)
	if err != nil {
		return err
	}
	second, err := b.query(ctx, 0)
	if err != nil {
		return err
	}
	if !bytes.Equal(first, second) {
		return detectionFailure("oracle is not deterministic")
	}
	return nil
}

// DetectECB sends three blocks of filler; wherever the prefix ends, at least
// two of them fill whole blocks, and under ECB those encrypt identically.
func (b *Breaker) DetectECB(ctx context.Context, blockSize int) error {
	ciphertext, err := b.query(ctx, 3*blockSize)
	if err != nil {
		return err
	}
	if !HasIdenticalBlocks(ciphertext, blockSize) {
		return detectionFailure("ECB mode not detected")
	}
	return nil
}

// Report is the outcome of a full attack.
type Report struct {
	BlockSize    int
	SecretLength int
	Recovery     *Recovery
}

// Run detects the oracle parameters and recovers the secret. Detection
// failures abort the run; an incomplete recovery does not.
func (b *Breaker) Run(ctx context.Context) (*Report, error) {
	steps := b.log()

	blockSize, err := b.DetectBlockSize(ctx)
	if err != nil {
		return nil, err
	}
	steps.Appendf("Detected block size: %d", blockSize)

	if err := b.CheckDeterministic(ctx); err != nil {
		return nil, err
	}
	if err := b.DetectECB(ctx, blockSize); err != nil {
		return nil, err
	}
	steps.Append("ECB detected via repeated-block heuristic")

	secretLen, err := b.EstimateSecretLength(ctx, blockSize)
	if err != nil {
		return nil, err
	}
	steps.Appendf("Estimated secret length: %d", secretLen)

	rec, err := b.Recover(ctx, blockSize, secretLen)
	if err != nil {
		return nil, err
	}
	return &Report{BlockSize: blockSize, SecretLength: secretLen, Recovery: rec}, nil
}
