package bits

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestZeroInitializesAllBytes(t *testing.T) {
	b := New(4)
	assert.Equal(t, []byte{0, 0, 0, 0}, b.Bytes())
}

func TestGetSetRoundtrip(t *testing.T) {
	b := New(2)
	b.Set(0, true)
	b.Set(15, true)
	assert.True(t, b.Get(0))
	assert.True(t, b.Get(15))
	assert.False(t, b.Get(1))
	b.Set(0, false)
	assert.False(t, b.Get(0))
}

func TestGetSetLittleEndianWithinByte(t *testing.T) {
	b := New(1)
	b.Set(0, true)
	assert.Equal(t, byte(0x01), b.Bytes()[0])
	b.Zero()
	b.Set(7, true)
	assert.Equal(t, byte(0x80), b.Bytes()[0])
}

func TestXorInPlace(t *testing.T) {
	a := FromBytes([]byte{0xAA, 0x55})
	c := FromBytes([]byte{0x0F, 0xF0})
	a.XorInPlace(c)
	assert.Equal(t, []byte{0xA5, 0xA5}, a.Bytes())
}

func TestXorIsAssociativeCommutativeAndSelfInverse(t *testing.T) {
	a := FromBytes([]byte{1, 2, 3, 4})
	b := FromBytes([]byte{5, 6, 7, 8})
	c := FromBytes([]byte{9, 10, 11, 12})

	left := Xor(Xor(a, b), c)
	right := Xor(a, Xor(b, c))
	assert.True(t, left.Equal(right))

	assert.True(t, Xor(a, b).Equal(Xor(b, a)))

	zero := Xor(a, a)
	assert.Equal(t, []byte{0, 0, 0, 0}, zero.Bytes())
}

func TestEqualPanicsOnWidthMismatch(t *testing.T) {
	a := New(2)
	b := New(3)
	assert.Panics(t, func() { a.Equal(b) })
}

func TestCloneIsIndependent(t *testing.T) {
	a := FromBytes([]byte{1, 2, 3})
	c := a.Clone()
	c.Bytes()[0] = 99
	require.Equal(t, byte(1), a.Bytes()[0])
}

func TestNewSliceAllocatesDistinctBuffers(t *testing.T) {
	s := NewSlice(3, 4)
	require.Len(t, s, 3)
	s[0].Set(0, true)
	assert.False(t, s[1].Get(0))
}
