// Package raiddisk implements the Disk primitive: one backing image
// memory-mapped at a fixed length, with the operational/missing/untrusted
// lifecycle an Array depends on.
//
// The mapping is a shared read/write unix.Mmap of the whole image, released
// with unix.Munmap when the disk fails. Writes are not flushed explicitly;
// durability is left to the OS page cache.
package raiddisk

import (
	"fmt"
	"os"
	"sync"

	"golang.org/x/sys/unix"

	"github.com/Jan-Chojnacki/Stripe-Slinger/internal/clock"
)

// Disk represents one backing image. It is not safe for concurrent use;
// callers serialize access the way Volume/Array do (see package volume).
type Disk struct {
	mu sync.Mutex

	path  string
	file  *os.File
	data  []byte // nil when not operational
	len   int64
	clock clock.Clock

	// Untrusted is true when this disk's contents may not be authoritative:
	// set on a brand-new image, on replace, and cleared by a full-chunk
	// write or by the owning Volume's rebuild/clear operations.
	Untrusted bool
}

// OpenPrealloc opens or creates the image at path, sets its length to length
// bytes, and maps it. A disk that did not previously exist, or whose image
// was empty, starts Untrusted.
func OpenPrealloc(path string, length int64, clk clock.Clock) (*Disk, error) {
	info, statErr := os.Stat(path)
	existed := statErr == nil
	prevLen := int64(0)
	if existed {
		prevLen = info.Size()
	}

	file, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0o644)
	if err != nil {
		return nil, fmt.Errorf("raiddisk: open %s: %w", path, err)
	}

	if err := file.Truncate(length); err != nil {
		file.Close()
		return nil, fmt.Errorf("raiddisk: truncate %s to %d: %w", path, length, err)
	}

	data, err := mapFile(file, length)
	if err != nil {
		file.Close()
		return nil, fmt.Errorf("raiddisk: mmap %s: %w", path, err)
	}

	return &Disk{
		path:      path,
		file:      file,
		data:      data,
		len:       length,
		clock:     clk,
		Untrusted: !existed || prevLen == 0,
	}, nil
}

func mapFile(file *os.File, length int64) ([]byte, error) {
	if length == 0 {
		return []byte{}, nil
	}
	if int64(int(length)) != length {
		return nil, fmt.Errorf("raiddisk: length %d exceeds addressable size", length)
	}
	data, err := unix.Mmap(int(file.Fd()), 0, int(length), unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		return nil, err
	}
	return data, nil
}

// Path returns the on-host path of the backing image.
func (d *Disk) Path() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.path
}

// Len returns the disk's fixed length in bytes.
func (d *Disk) Len() int64 {
	return d.len
}

// IsOperational reports whether the mapping is live.
func (d *Disk) IsOperational() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.data != nil && d.file != nil
}

// IsMissing reports whether the array should treat this disk as absent:
// either the mapping has been dropped, or the underlying image has been
// unlinked from the host filesystem (zero hard links).
func (d *Disk) IsMissing() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.data == nil || d.file == nil {
		return true
	}
	var stat unix.Stat_t
	if err := unix.Fstat(int(d.file.Fd()), &stat); err != nil {
		return true
	}
	return stat.Nlink == 0
}

// ReadAt copies min(len(buf), Len-off) bytes starting at off into buf and
// returns the count. Returns 0 if the disk is not operational or off is out
// of range; never an error.
func (d *Disk) ReadAt(off int64, buf []byte) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.data == nil || off < 0 || off >= d.len {
		return 0
	}
	end := off + int64(len(buf))
	if end > d.len {
		end = d.len
	}
	n := copy(buf, d.data[off:end])
	return n
}

// WriteAt copies min(len(data), Len-off) bytes from data to offset off and
// returns the count. Symmetric short-copy semantics to ReadAt.
func (d *Disk) WriteAt(off int64, data []byte) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.data == nil || off < 0 || off >= d.len {
		return 0
	}
	end := off + int64(len(data))
	if end > d.len {
		end = d.len
	}
	n := copy(d.data[off:end], data)
	return n
}

// Fail drops the mapping and file handle, and renames the on-host image to
// a timestamped "failed" sibling if it still exists, so the removal is
// observable externally even while other handles to the old inode remain
// open.
func (d *Disk) Fail() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, err := os.Stat(d.path); err == nil {
		ts := d.clock.Now().Unix()
		failedPath := fmt.Sprintf("%s.failed.%d", d.path, ts)
		_ = os.Rename(d.path, failedPath)
	}

	var unmapErr error
	if d.data != nil {
		unmapErr = unix.Munmap(d.data)
		d.data = nil
	}
	if d.file != nil {
		_ = d.file.Close()
		d.file = nil
	}
	if unmapErr != nil {
		return fmt.Errorf("raiddisk: munmap %s: %w", d.path, unmapErr)
	}
	return nil
}

// Replace recreates a zero-filled image of the original length at the
// original path, remaps it, and marks the disk Untrusted so the RAID layer
// rebuilds its contents.
func (d *Disk) Replace() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	file, err := os.OpenFile(d.path, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return fmt.Errorf("raiddisk: recreate %s: %w", d.path, err)
	}
	if err := file.Truncate(d.len); err != nil {
		file.Close()
		return fmt.Errorf("raiddisk: truncate %s to %d: %w", d.path, d.len, err)
	}
	data, err := mapFile(file, d.len)
	if err != nil {
		file.Close()
		return fmt.Errorf("raiddisk: mmap %s: %w", d.path, err)
	}

	d.file = file
	d.data = data
	d.Untrusted = true
	return nil
}

// MarkTrusted clears Untrusted, e.g. after a full-chunk write succeeds or a
// rebuild pass completes.
func (d *Disk) MarkTrusted() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.Untrusted = false
}

// IsUntrusted reports the current value of Untrusted under the disk's lock.
func (d *Disk) IsUntrusted() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.Untrusted
}

// ImageExists reports whether the on-host image file is present, regardless
// of whether this Disk's mapping is live. Used only for status reporting.
func (d *Disk) ImageExists() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	_, err := os.Stat(d.path)
	return err == nil
}

