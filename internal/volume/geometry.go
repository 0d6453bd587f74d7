// Package volume implements Geometry/Mapper (byte<->stripe<->chunk
// translation) and Volume, the top of the core: it composes an Array with a
// Stripe scratch and Geometry into byte-level read/write, admin operations,
// health queries, and rebuild helpers.
package volume

import (
	"fmt"

	"github.com/Jan-Chojnacki/Stripe-Slinger/internal/layout"
)

// Geometry describes the chunk and stripe sizes derived from a stripe
// layout: bytes_per_chunk = N, bytes_per_stripe = DATA*N.
type Geometry struct {
	BytesPerChunk  int
	BytesPerStripe int
}

// NewGeometry derives a Geometry from a stripe's Data() count and the chunk
// width the array stores per cell.
func NewGeometry(s layout.Stripe, chunkWidth int) Geometry {
	return Geometry{BytesPerChunk: chunkWidth, BytesPerStripe: s.Data() * chunkWidth}
}

// LocateByte resolves (base+delta) into (stripe index, in-stripe byte
// offset). Overflow of base+delta is a programmer error.
func LocateByte(base int64, delta int64, geom Geometry) (int64, int) {
	if delta < 0 {
		panic("volume: negative byte delta")
	}
	absolute := base + delta
	if absolute < base {
		panic("volume: byte offset overflow")
	}
	stripeBytes := int64(geom.BytesPerStripe)
	stripe := absolute / stripeBytes
	inStripe := int(absolute % stripeBytes)
	return stripe, inStripe
}

// StripeByteOffset returns the per-disk byte offset of stripe index s,
// given the chunk width N. Overflow is a programmer error.
func StripeByteOffset(stripeIndex int64, chunkWidth int) int64 {
	off := stripeIndex * int64(chunkWidth)
	if stripeIndex != 0 && off/stripeIndex != int64(chunkWidth) {
		panic(fmt.Sprintf("volume: stripe offset overflow at stripe %d", stripeIndex))
	}
	return off
}
