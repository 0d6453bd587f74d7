package layout

import (
	"fmt"

	"github.com/Jan-Chojnacki/Stripe-Slinger/internal/bits"
)

// RAID1 mirrors a single logical block across D disks: Data() == 1,
// Disks() == D. It implements Restorer: any surviving copy restores a
// missing one, and Scrub performs a majority vote across copies.
type RAID1 struct {
	cells []bits.Bits
	disks int
	width int
}

// NewRAID1 returns a zero-initialized RAID1 stripe mirrored across disks
// disks, each cell width bytes wide.
func NewRAID1(disks, width int) *RAID1 {
	return &RAID1{cells: bits.NewSlice(disks, width), disks: disks, width: width}
}

func (r *RAID1) Data() int  { return 1 }
func (r *RAID1) Disks() int { return r.disks }

func (r *RAID1) Write(data []bits.Bits) {
	if len(data) != r.Data() {
		panic(fmt.Sprintf("layout: RAID1 expects %d chunk, got %d", r.Data(), len(data)))
	}
	for i := 0; i < r.disks; i++ {
		r.cells[i].CopyFrom(data[0])
	}
}

func (r *RAID1) WriteRaw(data []bits.Bits) {
	if len(data) != r.Disks() {
		panic(fmt.Sprintf("layout: RAID1 expects %d chunks, got %d", r.Disks(), len(data)))
	}
	for i := 0; i < r.disks; i++ {
		r.cells[i].CopyFrom(data[i])
	}
}

func (r *RAID1) Read(out []bits.Bits) {
	if len(out) != r.Data() {
		panic(fmt.Sprintf("layout: output buffer must be %d chunk, got %d", r.Data(), len(out)))
	}
	if r.disks > 0 {
		out[0].CopyFrom(r.cells[0])
	}
}

func (r *RAID1) ReadRaw(out []bits.Bits) {
	if len(out) != r.Disks() {
		panic(fmt.Sprintf("layout: output buffer must be %d chunks, got %d", r.Disks(), len(out)))
	}
	for i := 0; i < r.disks; i++ {
		out[i].CopyFrom(r.cells[i])
	}
}

// Restore copies any surviving cell j != i into cell i. Panics if i is out
// of range or there is no alternate cell to copy from (D < 2).
func (r *RAID1) Restore(i int) {
	if i < 0 || i >= r.disks {
		panic(fmt.Sprintf("layout: RAID1 has %d disks, %d is not a valid index", r.disks, i))
	}
	for j := 0; j < r.disks; j++ {
		if j != i {
			r.cells[i].CopyFrom(r.cells[j])
			return
		}
	}
	panic("layout: RAID1 requires at least two drives to restore")
}

// Scrub picks the value with the highest multiplicity across all copies
// (ties broken by the first-seen value), overwrites every disagreeing cell,
// and returns their indices.
func (r *RAID1) Scrub() []int {
	counts := make(map[string]int, r.disks)
	order := make([]string, 0, r.disks)
	for i := 0; i < r.disks; i++ {
		key := string(r.cells[i].Bytes())
		if _, seen := counts[key]; !seen {
			order = append(order, key)
		}
		counts[key]++
	}

	best := order[0]
	bestCount := counts[best]
	for _, key := range order[1:] {
		if counts[key] > bestCount {
			best = key
			bestCount = counts[key]
		}
	}

	bestVal := bits.FromBytes([]byte(best))
	var rewritten []int
	for i := 0; i < r.disks; i++ {
		if string(r.cells[i].Bytes()) != best {
			r.cells[i].CopyFrom(bestVal)
			rewritten = append(rewritten, i)
		}
	}
	return rewritten
}
