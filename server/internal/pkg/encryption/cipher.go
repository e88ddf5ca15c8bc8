package encryption

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/des"
	"fmt"
	"sort"
	"strings"
)

const (
	AESBlockSize = aes.BlockSize // 128-bit blocks (16 bytes)
	DESBlockSize = des.BlockSize // 64-bit blocks (8 bytes)
	RC6BlockSize = 16            // 128-bit blocks (16 bytes)
)

// Algorithm describes a block cipher the oracle can be built on. Keys are
// always exactly one block long.
type Algorithm struct {
	Name      string
	BlockSize int
	newBlock  func(key []byte) (cipher.Block, error)
}

var algorithms = map[string]Algorithm{
	"AES": {Name: "AES", BlockSize: AESBlockSize, newBlock: aes.NewCipher},
	"DES": {Name: "DES", BlockSize: DESBlockSize, newBlock: des.NewCipher},
	"RC6": {Name: "RC6", BlockSize: RC6BlockSize, newBlock: func(key []byte) (cipher.Block, error) {
		return NewRC6(key)
	}},
}

// Lookup returns the algorithm registered under name (case-insensitive).
func Lookup(name string) (Algorithm, error) {
	alg, ok := algorithms[strings.ToUpper(name)]
	if !ok {
		return Algorithm{}, fmt.Errorf("%w: %q", ErrUnknownAlgorithm, name)
	}
	return alg, nil
}

// Algorithms lists the registered algorithm names in sorted order.
func Algorithms() []string {
	names := make([]string, 0, len(algorithms))
	for name := range algorithms {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// NewBlock validates the key length and returns the keyed block cipher.
func (a Algorithm) NewBlock(key []byte) (cipher.Block, error) {
	if len(key) != a.BlockSize {
		return nil, &KeyLengthError{Algorithm: a.Name, Got: len(key), Want: a.BlockSize}
	}
	return a.newBlock(key)
}

// NewBlock looks up the named algorithm and keys it.
func NewBlock(name string, key []byte) (cipher.Block, error) {
	alg, err := Lookup(name)
	if err != nil {
		return nil, err
	}
	return alg.NewBlock(key)
}
