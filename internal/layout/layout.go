// Package layout defines the stripe contract shared by RAID0, RAID1, and
// RAID3, and the optional restore/scrub capability some layouts add.
//
// Whether a given stripe supports reconstruction is not part of the Stripe
// contract itself: a layout that can restore and scrub also implements
// Restorer, checked with `r, ok := stripe.(Restorer)`. Layouts with no
// redundancy, like RAID0, simply don't implement it.
package layout

import "github.com/Jan-Chojnacki/Stripe-Slinger/internal/bits"

// Stripe is the capability set every RAID layout variant implements: a
// logical data view (Write/Read) and a raw per-disk view (WriteRaw/ReadRaw)
// used by the array layer for bulk stripe IO.
type Stripe interface {
	// Data returns the number of logical data chunks this stripe exposes.
	Data() int
	// Disks returns the total number of per-disk cells this stripe uses.
	Disks() int
	// Write encodes data (len == Data()) into the stripe, computing any
	// redundancy (e.g. RAID3 parity, RAID1 mirrors).
	Write(data []bits.Bits)
	// Read decodes the stripe's logical data view into out (len == Data()).
	Read(out []bits.Bits)
	// WriteRaw copies data (len == Disks()) directly into the per-disk
	// cells with no redundancy logic.
	WriteRaw(data []bits.Bits)
	// ReadRaw copies the per-disk cells (len == Disks()) into out with no
	// decoding.
	ReadRaw(out []bits.Bits)
}

// Restorer is implemented by stripe layouts that can reconstruct a single
// cell from the others, and validate/repair their own redundancy.
type Restorer interface {
	// Restore rebuilds cell i from the stripe's other cells.
	Restore(i int)
	// Scrub validates the stripe's internal redundancy, repairs it in
	// place, and returns the indices of cells that disagreed with the
	// repaired value.
	Scrub() []int
}

// SupportsRestore reports whether s also implements Restorer.
func SupportsRestore(s Stripe) (Restorer, bool) {
	r, ok := s.(Restorer)
	return r, ok
}
