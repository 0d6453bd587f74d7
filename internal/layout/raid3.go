package layout

import (
	"fmt"

	"github.com/Jan-Chojnacki/Stripe-Slinger/internal/bits"
)

// RAID3 stores D-1 data chunks plus one XOR parity chunk: Data() == D-1,
// Disks() == D, parity lives at index D-1. It implements Restorer: the
// parity cell can be recomputed, or any single data cell reconstructed from
// the rest.
type RAID3 struct {
	cells     []bits.Bits
	disks     int
	width     int
	parityIdx int
}

// NewRAID3 returns a zero-initialized RAID3 stripe over disks disks (at
// least 2: 1 data + 1 parity), each cell width bytes wide.
func NewRAID3(disks, width int) *RAID3 {
	return &RAID3{cells: bits.NewSlice(disks, width), disks: disks, width: width, parityIdx: disks - 1}
}

func (r *RAID3) Data() int  { return r.disks - 1 }
func (r *RAID3) Disks() int { return r.disks }

func (r *RAID3) Write(data []bits.Bits) {
	if len(data) != r.Data() {
		panic(fmt.Sprintf("layout: RAID3 expects %d chunks, got %d", r.Data(), len(data)))
	}
	for i := 0; i < r.Data(); i++ {
		r.cells[i].CopyFrom(data[i])
	}
	r.writeParity()
}

func (r *RAID3) WriteRaw(data []bits.Bits) {
	if len(data) != r.Disks() {
		panic(fmt.Sprintf("layout: RAID3 expects %d chunks, got %d", r.Disks(), len(data)))
	}
	for i := 0; i < r.Disks(); i++ {
		r.cells[i].CopyFrom(data[i])
	}
}

func (r *RAID3) Read(out []bits.Bits) {
	if len(out) != r.Data() {
		panic(fmt.Sprintf("layout: output buffer must be %d chunks, got %d", r.Data(), len(out)))
	}
	for i := 0; i < r.Data(); i++ {
		out[i].CopyFrom(r.cells[i])
	}
}

func (r *RAID3) ReadRaw(out []bits.Bits) {
	if len(out) != r.Disks() {
		panic(fmt.Sprintf("layout: output buffer must be %d chunks, got %d", r.Disks(), len(out)))
	}
	for i := 0; i < r.Disks(); i++ {
		out[i].CopyFrom(r.cells[i])
	}
}

// Restore rebuilds cell i: the parity cell is recomputed from the data
// cells; any data cell is reconstructed as the XOR of all the other cells
// (parity included).
func (r *RAID3) Restore(i int) {
	if i < 0 || i >= r.disks {
		panic(fmt.Sprintf("layout: RAID3 has %d disks, %d is not a valid index", r.disks, i))
	}
	if i == r.parityIdx {
		r.writeParity()
		return
	}
	acc := bits.New(r.width)
	for j := 0; j < r.disks; j++ {
		if j != i {
			acc.XorInPlace(r.cells[j])
		}
	}
	r.cells[i].CopyFrom(acc)
}

// Scrub recomputes parity from the data cells; if it disagrees with the
// stored parity, the parity cell is overwritten and its index returned.
// Otherwise it returns an empty slice.
func (r *RAID3) Scrub() []int {
	p := bits.New(r.width)
	for i := 0; i < r.parityIdx; i++ {
		p.XorInPlace(r.cells[i])
	}
	if r.cells[r.parityIdx].Equal(p) {
		return nil
	}
	r.cells[r.parityIdx].CopyFrom(p)
	return []int{r.parityIdx}
}

func (r *RAID3) writeParity() {
	p := bits.New(r.width)
	for i := 0; i < r.parityIdx; i++ {
		p.XorInPlace(r.cells[i])
	}
	r.cells[r.parityIdx].CopyFrom(p)
}
