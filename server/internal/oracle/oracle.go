// Package oracle provides the encryption oracle the attack queries: a value
// that owns a fixed key and a fixed unknown suffix and encrypts
// input || suffix on request.
package oracle

import (
	"context"
	"crypto/cipher"
	"crypto/rand"
	"fmt"

	"EcbBreaker/server/internal/pkg/encryption"
	"EcbBreaker/server/internal/pkg/encryption/modes"
	"EcbBreaker/server/internal/pkg/encryption/padding"
)

// Oracle encrypts attacker-controlled input together with material the
// caller cannot see.
type Oracle interface {
	Encrypt(ctx context.Context, input []byte) ([]byte, error)
}

// Func adapts an ordinary function to the Oracle interface.
type Func func(ctx context.Context, input []byte) ([]byte, error)

func (f Func) Encrypt(ctx context.Context, input []byte) ([]byte, error) {
	return f(ctx, input)
}

// Config selects the cipher, mode and padding of a BlockCipherOracle.
// Empty Mode and Padding select ECB and PKCS7.
type Config struct {
	Algorithm string
	Mode      string
	Padding   string
	Key       []byte
	Suffix    []byte
}

// BlockCipherOracle encrypts input || suffix under a fixed key.
type BlockCipherOracle struct {
	block  cipher.Block
	mode   modes.Mode
	padder padding.Padder
	suffix []byte
}

// New builds an oracle from cfg. The key must be exactly one block long for
// the chosen algorithm.
func New(cfg Config) (*BlockCipherOracle, error) {
	block, err := encryption.NewBlock(cfg.Algorithm, cfg.Key)
	if err != nil {
		return nil, err
	}
	mode, err := modes.GetMode(cfg.Mode)
	if err != nil {
		return nil, err
	}
	padder, err := padding.GetPadder(cfg.Padding)
	if err != nil {
		return nil, err
	}
	return NewFromBlock(block, cfg.Suffix, mode, padder)
}

// NewFromBlock builds an oracle around an already keyed block cipher.
func NewFromBlock(block cipher.Block, suffix []byte, mode modes.Mode, padder padding.Padder) (*BlockCipherOracle, error) {
	if bs := block.BlockSize(); bs <= 0 || bs > 0xff {
		return nil, fmt.Errorf("%w: %d", encryption.ErrInvalidBlockSize, bs)
	}
	return &BlockCipherOracle{
		block:  block,
		mode:   mode,
		padder: padder,
		suffix: append([]byte(nil), suffix...),
	}, nil
}

// Encrypt returns the encryption of input || suffix. Modes that need an IV
// get a fresh random one per call.
func (o *BlockCipherOracle) Encrypt(ctx context.Context, input []byte) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	plaintext := make([]byte, 0, len(input)+len(o.suffix))
	plaintext = append(plaintext, input...)
	plaintext = append(plaintext, o.suffix...)

	padded, err := o.padder.Pad(plaintext, o.block.BlockSize())
	if err != nil {
		return nil, fmt.Errorf("pad failed: %w", err)
	}

	var iv []byte
	if o.mode.RequiresIV() {
		iv = make([]byte, o.block.BlockSize())
		if _, err := rand.Read(iv); err != nil {
			return nil, fmt.Errorf("iv generation failed: %w", err)
		}
	}
	return o.mode.Encrypt(o.block, padded, iv)
}
