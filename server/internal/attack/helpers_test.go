package attack

import (
	"context"
	"crypto/cipher"
	"testing"

	"EcbBreaker/server/internal/oracle"
	"EcbBreaker/server/internal/pkg/encryption/modes"
	"EcbBreaker/server/internal/pkg/encryption/padding"
)

// toyBlock is a keyed byte permutation with an arbitrary block size. It is
// injective, which is all the attack needs from a block cipher.
type toyBlock struct{ key []byte }

func newToyBlock(blockSize int) toyBlock {
	key := make([]byte, blockSize)
	for i := range key {
		key[i] = byte(31*i + 7)
	}
	return toyBlock{key: key}
}

func (t toyBlock) BlockSize() int { return len(t.key) }

func (t toyBlock) Encrypt(dst, src []byte) {
	n := len(t.key)
	tmp := make([]byte, n)
	for i := 0; i < n; i++ {
		tmp[i] = (src[(i+1)%n]^t.key[i])*167 + 13
	}
	copy(dst, tmp)
}

func (t toyBlock) Decrypt(dst, src []byte) {
	n := len(t.key)
	tmp := make([]byte, n)
	for i := 0; i < n; i++ {
		// 23 is the inverse of 167 mod 256.
		tmp[(i+1)%n] = ((src[i] - 13) * 23) ^ t.key[i]
	}
	copy(dst, tmp)
}

// lossyBlock drops the low bit of the last byte of every block, so guesses
// v and v^1 always collide there.
type lossyBlock struct{ toyBlock }

func (l lossyBlock) Encrypt(dst, src []byte) {
	n := l.BlockSize()
	tmp := append([]byte(nil), src[:n]...)
	tmp[n-1] &^= 1
	l.toyBlock.Encrypt(dst, tmp)
}

func newTestOracle(t *testing.T, block cipher.Block, suffix []byte) *oracle.BlockCipherOracle {
	t.Helper()
	o, err := oracle.NewFromBlock(block, suffix, &modes.ECBMode{}, &padding.PKCS7Padding{})
	if err != nil {
		t.Fatalf("NewFromBlock failed: %v", err)
	}
	return o
}

func newAESOracle(t *testing.T, key, suffix []byte) *oracle.BlockCipherOracle {
	t.Helper()
	o, err := oracle.New(oracle.Config{Algorithm: "AES", Key: key, Suffix: suffix})
	if err != nil {
		t.Fatalf("oracle.New failed: %v", err)
	}
	return o
}

// counting wraps an oracle and counts queries without limiting them.
func counting(o oracle.Oracle, n *int) oracle.Func {
	return func(ctx context.Context, input []byte) ([]byte, error) {
		*n++
		return o.Encrypt(ctx, input)
	}
}
