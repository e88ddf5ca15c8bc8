package padding

import (
	"crypto/rand"
	"errors"
	"fmt"

	c2gpadding "github.com/andreburgaud/crypt2go/padding"
)

var (
	ErrInvalidPadding   = errors.New("invalid padding")
	ErrUnknownPadding   = errors.New("unknown padding")
	ErrInvalidBlockSize = errors.New("invalid block size")
)

// Padder interface defines the padding contract. Every scheme here appends
// between 1 and blockSize bytes, so the padded length always moves to the
// next block boundary.
type Padder interface {
	Pad(data []byte, blockSize int) ([]byte, error)
	Unpad(data []byte, blockSize int) ([]byte, error)
	Name() string
}

func padLen(data []byte, blockSize int) (int, error) {
	if blockSize <= 0 || blockSize > 0xff {
		return 0, fmt.Errorf("%w: %d", ErrInvalidBlockSize, blockSize)
	}
	return blockSize - len(data)%blockSize, nil
}

// dup returns a copy of data with room for one extra block.
func dup(data []byte, blockSize int) []byte {
	out := make([]byte, len(data), len(data)+blockSize)
	copy(out, data)
	return out
}

// trailer validates the length byte shared by PKCS7, ANSI X.923 and ISO 10126.
func trailer(data []byte, blockSize int) (int, error) {
	if len(data) == 0 || len(data)%blockSize != 0 {
		return 0, fmt.Errorf("%w: length %d", ErrInvalidPadding, len(data))
	}
	n := int(data[len(data)-1])
	if n == 0 || n > blockSize {
		return 0, fmt.Errorf("%w: length byte %d", ErrInvalidPadding, n)
	}
	return n, nil
}

// ZeroPadding - Pad with zero bytes, always at least one.
type ZeroPadding struct{}

func (z *ZeroPadding) Name() string {
	return "ZEROS"
}

func (z *ZeroPadding) Pad(data []byte, blockSize int) ([]byte, error) {
	n, err := padLen(data, blockSize)
	if err != nil {
		return nil, err
	}
	return append(dup(data, blockSize), make([]byte, n)...), nil
}

// Unpad strips trailing zeros; data that itself ends in zeros is ambiguous.
func (z *ZeroPadding) Unpad(data []byte, blockSize int) ([]byte, error) {
	if len(data) == 0 || len(data)%blockSize != 0 {
		return nil, fmt.Errorf("%w: length %d", ErrInvalidPadding, len(data))
	}
	i := len(data) - 1
	for i >= 0 && data[i] == 0 {
		i--
	}
	return data[:i+1], nil
}

// PKCS7Padding - PKCS#7 padding scheme
type PKCS7Padding struct{}

func (p *PKCS7Padding) Name() string {
	return "PKCS7"
}

func (p *PKCS7Padding) Pad(data []byte, blockSize int) ([]byte, error) {
	if _, err := padLen(data, blockSize); err != nil {
		return nil, err
	}
	return c2gpadding.NewPkcs7Padding(blockSize).Pad(dup(data, blockSize))
}

func (p *PKCS7Padding) Unpad(data []byte, blockSize int) ([]byte, error) {
	if _, err := trailer(data, blockSize); err != nil {
		return nil, err
	}
	out, err := c2gpadding.NewPkcs7Padding(blockSize).Unpad(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPadding, err)
	}
	return out, nil
}

// ANSIX923Padding - ANSI X.923 padding scheme
type ANSIX923Padding struct{}

func (a *ANSIX923Padding) Name() string {
	return "ANSI_X923"
}

func (a *ANSIX923Padding) Pad(data []byte, blockSize int) ([]byte, error) {
	n, err := padLen(data, blockSize)
	if err != nil {
		return nil, err
	}
	// All zeros except last byte which is the padding length
	pad := make([]byte, n)
	pad[n-1] = byte(n)
	return append(dup(data, blockSize), pad...), nil
}

func (a *ANSIX923Padding) Unpad(data []byte, blockSize int) ([]byte, error) {
	n, err := trailer(data, blockSize)
	if err != nil {
		return nil, err
	}
	for i := len(data) - n; i < len(data)-1; i++ {
		if data[i] != 0 {
			return nil, ErrInvalidPadding
		}
	}
	return data[:len(data)-n], nil
}

// ISO10126Padding - ISO 10126 padding scheme
type ISO10126Padding struct{}

func (i *ISO10126Padding) Name() string {
	return "ISO_10126"
}

func (i *ISO10126Padding) Pad(data []byte, blockSize int) ([]byte, error) {
	n, err := padLen(data, blockSize)
	if err != nil {
		return nil, err
	}
	// Random bytes except last byte which is the padding length
	pad := make([]byte, n)
	if _, err := rand.Read(pad[:n-1]); err != nil {
		return nil, err
	}
	pad[n-1] = byte(n)
	return append(dup(data, blockSize), pad...), nil
}

func (i *ISO10126Padding) Unpad(data []byte, blockSize int) ([]byte, error) {
	n, err := trailer(data, blockSize)
	if err != nil {
		return nil, err
	}
	return data[:len(data)-n], nil
}

// GetPadder returns a Padder implementation for the given padding name.
// An empty name selects PKCS7.
func GetPadder(paddingName string) (Padder, error) {
	switch paddingName {
	case "", "PKCS7":
		return &PKCS7Padding{}, nil
	case "ZEROS":
		return &ZeroPadding{}, nil
	case "ANSI_X923":
		return &ANSIX923Padding{}, nil
	case "ISO_10126":
		return &ISO10126Padding{}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownPadding, paddingName)
	}
}
