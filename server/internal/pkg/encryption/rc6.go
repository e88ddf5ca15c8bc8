package encryption

import (
	"encoding/binary"
	"fmt"
	"math/bits"
)

const (
	rc6Rounds    = 20
	rc6TableSize = 2*rc6Rounds + 4
)

// RC6 is RC6-32/20 with a 128-bit block. It implements cipher.Block.
type RC6 struct {
	s [rc6TableSize]uint32
}

// NewRC6 creates a new RC6 cipher with the given key
func NewRC6(key []byte) (*RC6, error) {
	if len(key) < 16 || len(key) > 32 {
		return nil, fmt.Errorf("%w: RC6 key must be between 16 and 32 bytes, got %d", ErrInvalidKeySize, len(key))
	}

	c := &RC6{}
	c.expandKey(key)
	return c, nil
}

// BlockSize returns the block size of RC6
func (r *RC6) BlockSize() int {
	return RC6BlockSize
}

// Encrypt encrypts the first block of src into dst.
func (r *RC6) Encrypt(dst, src []byte) {
	if len(src) < RC6BlockSize || len(dst) < RC6BlockSize {
		panic("rc6: input not full block")
	}

	a := binary.LittleEndian.Uint32(src[0:4])
	b := binary.LittleEndian.Uint32(src[4:8])
	c := binary.LittleEndian.Uint32(src[8:12])
	d := binary.LittleEndian.Uint32(src[12:16])

	b += r.s[0]
	d += r.s[1]
	for i := 1; i <= rc6Rounds; i++ {
		t := bits.RotateLeft32(b*(2*b+1), 5)
		u := bits.RotateLeft32(d*(2*d+1), 5)
		a = bits.RotateLeft32(a^t, int(u&31)) + r.s[2*i]
		c = bits.RotateLeft32(c^u, int(t&31)) + r.s[2*i+1]
		a, b, c, d = b, c, d, a
	}
	a += r.s[2*rc6Rounds+2]
	c += r.s[2*rc6Rounds+3]

	binary.LittleEndian.PutUint32(dst[0:4], a)
	binary.LittleEndian.PutUint32(dst[4:8], b)
	binary.LittleEndian.PutUint32(dst[8:12], c)
	binary.LittleEndian.PutUint32(dst[12:16], d)
}

// Decrypt decrypts the first block of src into dst.
func (r *RC6) Decrypt(dst, src []byte) {
	if len(src) < RC6BlockSize || len(dst) < RC6BlockSize {
		panic("rc6: input not full block")
	}

	a := binary.LittleEndian.Uint32(src[0:4])
	b := binary.LittleEndian.Uint32(src[4:8])
	c := binary.LittleEndian.Uint32(src[8:12])
	d := binary.LittleEndian.Uint32(src[12:16])

	c -= r.s[2*rc6Rounds+3]
	a -= r.s[2*rc6Rounds+2]
	for i := rc6Rounds; i >= 1; i-- {
		a, b, c, d = d, a, b, c
		u := bits.RotateLeft32(d*(2*d+1), 5)
		t := bits.RotateLeft32(b*(2*b+1), 5)
		c = bits.RotateLeft32(c-r.s[2*i+1], -int(t&31)) ^ u
		a = bits.RotateLeft32(a-r.s[2*i], -int(u&31)) ^ t
	}
	d -= r.s[1]
	b -= r.s[0]

	binary.LittleEndian.PutUint32(dst[0:4], a)
	binary.LittleEndian.PutUint32(dst[4:8], b)
	binary.LittleEndian.PutUint32(dst[8:12], c)
	binary.LittleEndian.PutUint32(dst[12:16], d)
}

// expandKey derives the round key table from the user key.
func (r *RC6) expandKey(key []byte) {
	words := (len(key) + 3) / 4
	l := make([]uint32, words)
	for i, k := range key {
		l[i/4] |= uint32(k) << uint((i%4)*8)
	}

	const (
		p32 = 0xB7E15163
		q32 = 0x9E3779B9
	)
	r.s[0] = p32
	for i := 1; i < rc6TableSize; i++ {
		r.s[i] = r.s[i-1] + q32
	}

	var a, b uint32
	i, j := 0, 0
	for k := 0; k < 3*rc6TableSize; k++ {
		r.s[i] = bits.RotateLeft32(r.s[i]+a+b, 3)
		a = r.s[i]
		l[j] = bits.RotateLeft32(l[j]+a+b, int((a+b)&31))
		b = l[j]
		i = (i + 1) % rc6TableSize
		j = (j + 1) % words
	}
}
