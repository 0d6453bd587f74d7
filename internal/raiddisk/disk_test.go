package raiddisk

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Jan-Chojnacki/Stripe-Slinger/internal/clock"
)

func tempDiskPath(t *testing.T) string {
	t.Helper()
	return filepath.Join(t.TempDir(), "disk.img")
}

func TestOpenPreallocNewImageIsUntrusted(t *testing.T) {
	path := tempDiskPath(t)
	d, err := OpenPrealloc(path, 1024, clock.RealClock{})
	require.NoError(t, err)
	assert.True(t, d.Untrusted)
	assert.Equal(t, int64(1024), d.Len())
	assert.True(t, d.IsOperational())
	assert.False(t, d.IsMissing())
}

func TestReopenExistingNonEmptyImageIsTrusted(t *testing.T) {
	path := tempDiskPath(t)
	d, err := OpenPrealloc(path, 1024, clock.RealClock{})
	require.NoError(t, err)
	d.WriteAt(0, []byte{1, 2, 3})
	d.MarkTrusted()

	d2, err := OpenPrealloc(path, 1024, clock.RealClock{})
	require.NoError(t, err)
	assert.False(t, d2.Untrusted)
}

func TestReadWriteAtRoundtrip(t *testing.T) {
	d, err := OpenPrealloc(tempDiskPath(t), 16, clock.RealClock{})
	require.NoError(t, err)

	n := d.WriteAt(4, []byte{9, 8, 7, 6})
	assert.Equal(t, 4, n)

	buf := make([]byte, 4)
	n = d.ReadAt(4, buf)
	assert.Equal(t, 4, n)
	assert.Equal(t, []byte{9, 8, 7, 6}, buf)
}

func TestReadWriteAtShortCopyPastEnd(t *testing.T) {
	d, err := OpenPrealloc(tempDiskPath(t), 10, clock.RealClock{})
	require.NoError(t, err)

	n := d.WriteAt(8, []byte{1, 2, 3, 4})
	assert.Equal(t, 2, n)

	buf := make([]byte, 4)
	n = d.ReadAt(8, buf)
	assert.Equal(t, 2, n)
}

func TestReadWriteAtFullyOutOfRangeIsZero(t *testing.T) {
	d, err := OpenPrealloc(tempDiskPath(t), 10, clock.RealClock{})
	require.NoError(t, err)

	assert.Equal(t, 0, d.WriteAt(20, []byte{1}))
	assert.Equal(t, 0, d.ReadAt(20, make([]byte, 1)))
}

func TestFailRenamesImageAndDropsMapping(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "disk.img")
	clk := clock.NewSimulatedClock(time.Unix(1700000000, 0))
	d, err := OpenPrealloc(path, 16, clk)
	require.NoError(t, err)

	require.NoError(t, d.Fail())

	assert.False(t, d.IsOperational())
	assert.True(t, d.IsMissing())
	_, statErr := os.Stat(path)
	assert.True(t, os.IsNotExist(statErr))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Contains(t, entries[0].Name(), "disk.img.failed.1700000000")
}

func TestReplaceRecreatesZeroedImageAndMarksUntrusted(t *testing.T) {
	path := tempDiskPath(t)
	d, err := OpenPrealloc(path, 8, clock.RealClock{})
	require.NoError(t, err)
	d.WriteAt(0, []byte{1, 2, 3, 4})
	d.MarkTrusted()

	require.NoError(t, d.Fail())
	require.NoError(t, d.Replace())

	assert.True(t, d.Untrusted)
	assert.True(t, d.IsOperational())
	buf := make([]byte, 8)
	d.ReadAt(0, buf)
	assert.Equal(t, make([]byte, 8), buf)
}

func TestMarkTrustedClearsFlag(t *testing.T) {
	d, err := OpenPrealloc(tempDiskPath(t), 8, clock.RealClock{})
	require.NoError(t, err)
	require.True(t, d.IsUntrusted())
	d.MarkTrusted()
	assert.False(t, d.IsUntrusted())
}

func TestZeroLengthDiskIsOperationalButAlwaysShortCopies(t *testing.T) {
	d, err := OpenPrealloc(tempDiskPath(t), 0, clock.RealClock{})
	require.NoError(t, err)
	assert.True(t, d.IsOperational())
	assert.Equal(t, 0, d.WriteAt(0, []byte{1}))
	assert.Equal(t, 0, d.ReadAt(0, make([]byte, 1)))
}
