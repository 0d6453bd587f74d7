package layout

import (
	"fmt"

	"github.com/Jan-Chojnacki/Stripe-Slinger/internal/bits"
)

// RAID0 stripes raw blocks across D disks with no redundancy: Data() ==
// Disks() == D. It does not implement Restorer.
type RAID0 struct {
	cells []bits.Bits
	disks int
	width int
}

// NewRAID0 returns a zero-initialized RAID0 stripe over disks disks, each
// cell width bytes wide.
func NewRAID0(disks, width int) *RAID0 {
	return &RAID0{cells: bits.NewSlice(disks, width), disks: disks, width: width}
}

func (r *RAID0) Data() int  { return r.disks }
func (r *RAID0) Disks() int { return r.disks }

func (r *RAID0) Write(data []bits.Bits) {
	if len(data) != r.Data() {
		panic(fmt.Sprintf("layout: RAID0 expects %d chunks, got %d", r.Data(), len(data)))
	}
	for i := 0; i < r.Data(); i++ {
		r.cells[i].CopyFrom(data[i])
	}
}

func (r *RAID0) WriteRaw(data []bits.Bits) {
	if len(data) != r.Disks() {
		panic(fmt.Sprintf("layout: RAID0 expects %d chunks, got %d", r.Disks(), len(data)))
	}
	for i := 0; i < r.Disks(); i++ {
		r.cells[i].CopyFrom(data[i])
	}
}

func (r *RAID0) Read(out []bits.Bits) {
	if len(out) != r.Data() {
		panic(fmt.Sprintf("layout: output buffer must be %d chunks, got %d", r.Data(), len(out)))
	}
	for i := 0; i < r.Data(); i++ {
		out[i].CopyFrom(r.cells[i])
	}
}

func (r *RAID0) ReadRaw(out []bits.Bits) {
	if len(out) != r.Disks() {
		panic(fmt.Sprintf("layout: output buffer must be %d chunks, got %d", r.Disks(), len(out)))
	}
	for i := 0; i < r.Disks(); i++ {
		out[i].CopyFrom(r.cells[i])
	}
}
