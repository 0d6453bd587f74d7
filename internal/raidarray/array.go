// Package raidarray implements Array, the stripe-granular IO layer that
// composes a fixed set of Disks with a Stripe layout and performs
// transparent reconstruction and read-repair on the read path.
package raidarray

import (
	"fmt"

	"github.com/Jan-Chojnacki/Stripe-Slinger/internal/bits"
	"github.com/Jan-Chojnacki/Stripe-Slinger/internal/clock"
	"github.com/Jan-Chojnacki/Stripe-Slinger/internal/layout"
	"github.com/Jan-Chojnacki/Stripe-Slinger/internal/raiddisk"
	"github.com/Jan-Chojnacki/Stripe-Slinger/internal/raidmetrics"
)

// Array is a fixed-size collection of Disks with stripe-aware read/write
// that reconstructs degraded cells transparently. It has no knowledge of
// which concrete layout it is serving; it reconstructs using only a
// stripe's Data/Disks counts and whether it implements layout.Restorer.
type Array struct {
	disks []*raiddisk.Disk
	width int
}

// Open creates D disks at paths, each preallocated to length bytes, each
// cell width bytes wide.
func Open(paths []string, length int64, width int, clk clock.Clock) (*Array, error) {
	disks := make([]*raiddisk.Disk, len(paths))
	for i, p := range paths {
		d, err := raiddisk.OpenPrealloc(p, length, clk)
		if err != nil {
			return nil, fmt.Errorf("raidarray: open disk %d: %w", i, err)
		}
		disks[i] = d
	}
	return &Array{disks: disks, width: width}, nil
}

// Disks returns the number of disks D in the array.
func (a *Array) Disks() int { return len(a.disks) }

// Width returns the per-cell chunk width N.
func (a *Array) Width() int { return a.width }

// DiskLen returns the length of disk 0; all disks share the same length.
func (a *Array) DiskLen() int64 {
	if len(a.disks) == 0 {
		return 0
	}
	return a.disks[0].Len()
}

func (a *Array) checkIndex(i int) {
	if i < 0 || i >= len(a.disks) {
		panic(fmt.Sprintf("raidarray: disk index %d out of range [0,%d)", i, len(a.disks)))
	}
}

// FailDisk fails disk i.
func (a *Array) FailDisk(i int) error {
	a.checkIndex(i)
	return a.disks[i].Fail()
}

// ReplaceDisk replaces disk i with a fresh, untrusted, zero-filled image.
func (a *Array) ReplaceDisk(i int) error {
	a.checkIndex(i)
	return a.disks[i].Replace()
}

// Disk returns the disk at index i, for status queries.
func (a *Array) Disk(i int) *raiddisk.Disk {
	a.checkIndex(i)
	return a.disks[i]
}

// StatusString returns a human-readable one-line-per-disk summary.
func (a *Array) StatusString() string {
	s := ""
	for i, d := range a.disks {
		state := "OK"
		if d.IsMissing() {
			state = "FAILED"
		} else if d.IsUntrusted() {
			state = "UNTRUSTED"
		}
		s += fmt.Sprintf("disk%d: %s image_exists=%v path=%s\n", i, state, d.ImageExists(), d.Path())
	}
	return s
}

// Write writes stripe s's raw per-disk cells to offset off on each
// non-missing disk. A disk that receives a full chunk write becomes
// trusted; a short (end-of-disk-truncated) write never clears Untrusted.
func (a *Array) Write(off int64, s layout.Stripe) {
	cells := bits.NewSlice(s.Disks(), a.width)
	s.ReadRaw(cells)

	for i, d := range a.disks {
		if d.IsMissing() {
			continue
		}
		n := d.WriteAt(off, cells[i].Bytes())
		raidmetrics.Current().RecordDiskOp(raidmetrics.DiskOp{
			DiskID: raidmetrics.DiskID(i), Op: "write", Bytes: int64(n),
		})
		if n == a.width {
			d.MarkTrusted()
		}
	}
}

// Read loads stripe s's cells from offset off, reconstructing any degraded
// cells via the stripe's restore/scrub capability and writing repaired
// cells back to their operational disks (read-repair).
func (a *Array) Read(off int64, s layout.Stripe) {
	disks := s.Disks()
	supportsRestore := false
	var restorer layout.Restorer
	if r, ok := layout.SupportsRestore(s); ok {
		restorer, supportsRestore = r, true
	}

	raw := bits.NewSlice(disks, a.width)
	degraded := make([]bool, disks)
	for i := 0; i < disks; i++ {
		d := a.disks[i]
		missing := d.IsMissing()
		untrusted := supportsRestore && d.IsUntrusted()
		if missing || untrusted {
			degraded[i] = true
			raw[i].Zero()
			continue
		}
		n := d.ReadAt(off, raw[i].Bytes())
		raidmetrics.Current().RecordDiskOp(raidmetrics.DiskOp{
			DiskID: raidmetrics.DiskID(i), Op: "read", Bytes: int64(n),
		})
	}

	s.WriteRaw(raw)

	repaired := map[int]bool{}
	if supportsRestore {
		if s.Data() == 1 {
			// mirror-like: every degraded cell can be restored independently.
			for i := 0; i < disks; i++ {
				if degraded[i] {
					restorer.Restore(i)
					repaired[i] = true
				}
			}
		} else {
			// single-parity-like (DATA+1 == DISKS), and any other redundancy
			// pattern: restore only if exactly one cell is degraded.
			degradedCount, only := 0, -1
			for i, g := range degraded {
				if g {
					degradedCount++
					only = i
				}
			}
			if degradedCount == 1 {
				restorer.Restore(only)
				repaired[only] = true
			}
		}

		for _, idx := range restorer.Scrub() {
			repaired[idx] = true
		}
	}

	if len(repaired) > 0 {
		fresh := bits.NewSlice(disks, a.width)
		s.ReadRaw(fresh)
		for i := range repaired {
			d := a.disks[i]
			if d.IsMissing() {
				continue
			}
			d.WriteAt(off, fresh[i].Bytes())
		}
	}
}
