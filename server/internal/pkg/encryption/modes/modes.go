package modes

import (
	"crypto/cipher"
	"errors"
	"fmt"

	"github.com/andreburgaud/crypt2go/ecb"
)

var ErrUnknownMode = errors.New("unknown mode")

// Mode interface defines the encryption mode contract. Plaintext and
// ciphertext lengths must be multiples of the block size.
type Mode interface {
	Encrypt(block cipher.Block, plaintext []byte, iv []byte) ([]byte, error)
	Decrypt(block cipher.Block, ciphertext []byte, iv []byte) ([]byte, error)
	RequiresIV() bool
	Name() string
}

func checkLength(block cipher.Block, buf []byte, what string) error {
	if bs := block.BlockSize(); len(buf)%bs != 0 {
		return fmt.Errorf("%s length must be multiple of block size (%d)", what, bs)
	}
	return nil
}

// ECBMode - Electronic Codebook Mode (no IV required)
type ECBMode struct{}

func (e *ECBMode) Name() string {
	return "ECB"
}

func (e *ECBMode) RequiresIV() bool {
	return false
}

func (e *ECBMode) Encrypt(block cipher.Block, plaintext []byte, iv []byte) ([]byte, error) {
	if err := checkLength(block, plaintext, "plaintext"); err != nil {
		return nil, err
	}
	ciphertext := make([]byte, len(plaintext))
	ecb.NewECBEncrypter(block).CryptBlocks(ciphertext, plaintext)
	return ciphertext, nil
}

func (e *ECBMode) Decrypt(block cipher.Block, ciphertext []byte, iv []byte) ([]byte, error) {
	if err := checkLength(block, ciphertext, "ciphertext"); err != nil {
		return nil, err
	}
	plaintext := make([]byte, len(ciphertext))
	ecb.NewECBDecrypter(block).CryptBlocks(plaintext, ciphertext)
	return plaintext, nil
}

// CBCMode - Cipher Block Chaining Mode
type CBCMode struct{}

func (c *CBCMode) Name() string {
	return "CBC"
}

func (c *CBCMode) RequiresIV() bool {
	return true
}

func (c *CBCMode) Encrypt(block cipher.Block, plaintext []byte, iv []byte) ([]byte, error) {
	if len(iv) != block.BlockSize() {
		return nil, fmt.Errorf("IV length must be %d", block.BlockSize())
	}
	if err := checkLength(block, plaintext, "plaintext"); err != nil {
		return nil, err
	}
	ciphertext := make([]byte, len(plaintext))
	cipher.NewCBCEncrypter(block, iv).CryptBlocks(ciphertext, plaintext)
	return ciphertext, nil
}

func (c *CBCMode) Decrypt(block cipher.Block, ciphertext []byte, iv []byte) ([]byte, error) {
	if len(iv) != block.BlockSize() {
		return nil, fmt.Errorf("IV length must be %d", block.BlockSize())
	}
	if err := checkLength(block, ciphertext, "ciphertext"); err != nil {
		return nil, err
	}
	plaintext := make([]byte, len(ciphertext))
	cipher.NewCBCDecrypter(block, iv).CryptBlocks(plaintext, ciphertext)
	return plaintext, nil
}

// GetMode returns the mode registered under modeName. An empty name selects ECB.
func GetMode(modeName string) (Mode, error) {
	switch modeName {
	case "", "ECB":
		return &ECBMode{}, nil
	case "CBC":
		return &CBCMode{}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownMode, modeName)
	}
}
