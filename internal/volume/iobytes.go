package volume

import (
	"github.com/Jan-Chojnacki/Stripe-Slinger/internal/bits"
	"github.com/Jan-Chojnacki/Stripe-Slinger/internal/raidmetrics"
)

func recordRaidOp(op string, bytes int64) {
	raidmetrics.Current().RecordRaidOp(raidmetrics.RaidOp{Op: op, Bytes: bytes})
}

// walk implements the stripe-bounded-segment byte IO algorithm shared by
// WriteBytes and ReadBytes: for every touched stripe it loads the current
// contents (triggering reconstruction on read), hands the DATA chunk view
// to fn for the in-range byte span, and on writes re-encodes and stores
// the stripe back.
func (v *Volume) walk(byteOff int64, total int64, write bool, fn func(chunks [][]byte, inStripe, written, take int)) {
	op := "read_bytes"
	if write {
		op = "write_bytes"
	}

	var written int64
	for written < total {
		s, inStripe := LocateByte(byteOff, written, v.geom)
		stripeBytes := v.geom.BytesPerStripe
		take := stripeBytes - inStripe
		if remaining := total - written; take > remaining {
			take = int(remaining)
		}

		diskOff := StripeByteOffset(s, v.geom.BytesPerChunk)
		v.array.Read(diskOff, v.stripe)

		chunks := bits.NewSlice(v.stripe.Data(), v.geom.BytesPerChunk)
		v.stripe.Read(chunks)
		chunkBytes := make([][]byte, len(chunks))
		for i := range chunks {
			chunkBytes[i] = chunks[i].Bytes()
		}

		fn(chunkBytes, inStripe, int(written), take)

		if write {
			v.stripe.Write(chunks)
			v.array.Write(diskOff, v.stripe)
		}

		written += int64(take)
	}

	recordRaidOp(op, total)
}
