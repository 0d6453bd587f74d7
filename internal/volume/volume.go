package volume

import (
	"errors"
	"fmt"

	"github.com/Jan-Chojnacki/Stripe-Slinger/internal/layout"
	"github.com/Jan-Chojnacki/Stripe-Slinger/internal/raidarray"
	"github.com/Jan-Chojnacki/Stripe-Slinger/internal/raidmetrics"
)

// Environmental errors surfaced from admin operations. These are never
// expected to be silenced: callers decide whether to abort or report them.
var (
	ErrDiskIndexOutOfRange = errors.New("volume: disk index out of range")
	ErrDiskMissing         = errors.New("volume: disk is missing")
	ErrDiskNotUntrusted    = errors.New("volume: disk is not untrusted, nothing to rebuild")
)

// DiskStatus is a read-only snapshot of one disk's health.
type DiskStatus struct {
	Index     int
	Missing   bool
	Untrusted bool
}

// Volume composes an Array, a Stripe scratch, and the Geometry derived from
// it into byte-level read/write, administrative operations, health
// queries, and background-rebuild helpers. It is the only object adapters
// talk to. Volume does no locking of its own: callers serialize every call
// behind one exclusive lock.
type Volume struct {
	array  *raidarray.Array
	stripe layout.Stripe
	geom   Geometry
}

// New takes ownership of array and stripe and derives their Geometry.
func New(array *raidarray.Array, stripe layout.Stripe) *Volume {
	return &Volume{array: array, stripe: stripe, geom: NewGeometry(stripe, array.Width())}
}

// LogicalCapacityBytes returns disk_len * DATA, the addressable byte range.
func (v *Volume) LogicalCapacityBytes() int64 {
	return v.array.DiskLen() * int64(v.stripe.Data())
}

// DiskLen returns the fixed length of every disk in the array.
func (v *Volume) DiskLen() int64 { return v.array.DiskLen() }

// StripesNeededForLogicalEnd returns ceil(min(end, capacity) / bytes_per_stripe).
func (v *Volume) StripesNeededForLogicalEnd(end int64) int64 {
	capacity := v.LogicalCapacityBytes()
	if end > capacity {
		end = capacity
	}
	if end <= 0 {
		return 0
	}
	stripeBytes := int64(v.geom.BytesPerStripe)
	return (end + stripeBytes - 1) / stripeBytes
}

// DiskStatuses returns a snapshot of every disk's health, in disk-index order.
func (v *Volume) DiskStatuses() []DiskStatus {
	out := make([]DiskStatus, v.array.Disks())
	for i := range out {
		d := v.array.Disk(i)
		out[i] = DiskStatus{Index: i, Missing: d.IsMissing(), Untrusted: d.IsUntrusted()}
	}
	return out
}

// DiskStatusString returns the Array's human-readable per-disk summary.
func (v *Volume) DiskStatusString() string { return v.array.StatusString() }

// FailedDisks returns the count of currently missing disks.
func (v *Volume) FailedDisks() int {
	n := 0
	for _, s := range v.DiskStatuses() {
		if s.Missing {
			n++
		}
	}
	return n
}

// AnyNeedsRebuild reports whether any disk is currently untrusted.
func (v *Volume) AnyNeedsRebuild() bool {
	for _, s := range v.DiskStatuses() {
		if s.Untrusted {
			return true
		}
	}
	return false
}

// FailDisk fails disk i.
func (v *Volume) FailDisk(i int) error {
	if err := v.checkIndex(i); err != nil {
		return err
	}
	return v.array.FailDisk(i)
}

// ReplaceDisk replaces disk i with a fresh, untrusted image.
func (v *Volume) ReplaceDisk(i int) error {
	if err := v.checkIndex(i); err != nil {
		return err
	}
	return v.array.ReplaceDisk(i)
}

func (v *Volume) checkIndex(i int) error {
	if i < 0 || i >= v.array.Disks() {
		return fmt.Errorf("%w: %d (have %d disks)", ErrDiskIndexOutOfRange, i, v.array.Disks())
	}
	return nil
}

// ClearNeedsRebuildAll clears Untrusted on every operational disk.
func (v *Volume) ClearNeedsRebuildAll() {
	for i := 0; i < v.array.Disks(); i++ {
		d := v.array.Disk(i)
		if !d.IsMissing() {
			d.MarkTrusted()
		}
	}
}

// ClearNeedsRebuildDisk clears Untrusted on disk i if it is operational.
func (v *Volume) ClearNeedsRebuildDisk(i int) error {
	if err := v.checkIndex(i); err != nil {
		return err
	}
	d := v.array.Disk(i)
	if !d.IsMissing() {
		d.MarkTrusted()
	}
	return nil
}

// RepairStripe loads stripe s, which triggers the Array's reconstruction
// and read-repair protocol as a side effect.
func (v *Volume) RepairStripe(s int64) {
	off := StripeByteOffset(s, v.geom.BytesPerChunk)
	v.array.Read(off, v.stripe)
	raidmetrics.Current().RecordRaidOp(raidmetrics.RaidOp{Op: "repair_stripe"})
}

// RebuildAllUpto repairs every stripe up to end, in ascending order, and
// clears every disk's Untrusted flag, but only if the layout supports
// restore and some disk actually needs it.
func (v *Volume) RebuildAllUpto(end int64) {
	if _, ok := layout.SupportsRestore(v.stripe); !ok {
		return
	}
	if !v.AnyNeedsRebuild() {
		return
	}
	n := v.StripesNeededForLogicalEnd(end)
	for s := int64(0); s < n; s++ {
		v.RepairStripe(s)
	}
	v.ClearNeedsRebuildAll()
}

// RebuildDiskUpto repairs every stripe up to end, in ascending order, then
// clears only disk i's Untrusted flag. Fails if i is out of range, disk i
// is missing, or disk i is not currently untrusted.
func (v *Volume) RebuildDiskUpto(i int, end int64) error {
	if err := v.checkIndex(i); err != nil {
		return err
	}
	d := v.array.Disk(i)
	if d.IsMissing() {
		return fmt.Errorf("%w: disk %d", ErrDiskMissing, i)
	}
	if !d.IsUntrusted() {
		return fmt.Errorf("%w: disk %d", ErrDiskNotUntrusted, i)
	}

	n := v.StripesNeededForLogicalEnd(end)
	for s := int64(0); s < n; s++ {
		v.RepairStripe(s)
	}
	d.MarkTrusted()
	return nil
}

// WriteBytes writes payload at byteOff, walking stripe-bounded segments and
// performing a read-modify-write on each touched stripe (required for
// correct partial-stripe updates under RAID3). A range that straddles the
// end of the logical capacity writes only its in-range prefix; an offset
// at or past capacity writes nothing.
func (v *Volume) WriteBytes(byteOff int64, payload []byte) {
	n := v.inRangeLen(byteOff, int64(len(payload)))
	if n == 0 {
		return
	}
	v.walk(byteOff, n, true, func(chunks [][]byte, inStripe, written, take int) {
		for k := 0; k < take; k++ {
			chunkIdx, chunkOff := chunkPosition(inStripe+k, v.geom.BytesPerChunk)
			chunks[chunkIdx][chunkOff] = payload[written+k]
		}
	})
}

// ReadBytes reads len(out) bytes starting at byteOff into out, walking
// stripe-bounded segments and reconstructing any degraded stripe along the
// way (via Array.Read's reconstruction protocol). A range that straddles
// the end of the logical capacity fills only its in-range prefix, leaving
// the rest of out untouched; an offset at or past capacity copies nothing.
func (v *Volume) ReadBytes(byteOff int64, out []byte) {
	n := v.inRangeLen(byteOff, int64(len(out)))
	if n == 0 {
		return
	}
	v.walk(byteOff, n, false, func(chunks [][]byte, inStripe, written, take int) {
		for k := 0; k < take; k++ {
			chunkIdx, chunkOff := chunkPosition(inStripe+k, v.geom.BytesPerChunk)
			out[written+k] = chunks[chunkIdx][chunkOff]
		}
	})
}

// inRangeLen clips a [byteOff, byteOff+length) request to the in-range
// prefix of the logical capacity, returning 0 if byteOff is already at or
// past capacity.
func (v *Volume) inRangeLen(byteOff, length int64) int64 {
	if byteOff < 0 || length <= 0 {
		return 0
	}
	capacity := v.LogicalCapacityBytes()
	if byteOff >= capacity {
		return 0
	}
	if remaining := capacity - byteOff; length > remaining {
		return remaining
	}
	return length
}

func chunkPosition(inStripeByte int, chunkWidth int) (int, int) {
	return inStripeByte / chunkWidth, inStripeByte % chunkWidth
}
