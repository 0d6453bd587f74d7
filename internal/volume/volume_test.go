package volume

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/Jan-Chojnacki/Stripe-Slinger/internal/clock"
	"github.com/Jan-Chojnacki/Stripe-Slinger/internal/layout"
	"github.com/Jan-Chojnacki/Stripe-Slinger/internal/raidarray"
)

func diskPaths(dir string, n int) []string {
	paths := make([]string, n)
	for i := range paths {
		paths[i] = filepath.Join(dir, "disk"+string(rune('0'+i))+".img")
	}
	return paths
}

func sequence(n int) []byte {
	out := make([]byte, n)
	for i := range out {
		out[i] = byte(i)
	}
	return out
}

func TestRAID0Roundtrip(t *testing.T) {
	dir := t.TempDir()
	paths := diskPaths(dir, 3)
	clk := clock.NewSimulatedClock(time.Unix(1700000000, 0))

	arr, err := raidarray.Open(paths, 1024, 4, clk)
	require.NoError(t, err)
	vol := New(arr, layout.NewRAID0(3, 4))

	payload := sequence(40)
	vol.WriteBytes(0, payload)

	arr2, err := raidarray.Open(paths, 1024, 4, clk)
	require.NoError(t, err)
	vol2 := New(arr2, layout.NewRAID0(3, 4))

	out := make([]byte, 40)
	vol2.ReadBytes(0, out)
	require.Equal(t, payload, out)
}

func TestRAID0PartialOverwrite(t *testing.T) {
	dir := t.TempDir()
	clk := clock.NewSimulatedClock(time.Unix(1700000000, 0))
	arr, err := raidarray.Open(diskPaths(dir, 3), 1024, 4, clk)
	require.NoError(t, err)
	vol := New(arr, layout.NewRAID0(3, 4))

	first := make([]byte, 30)
	for i := range first {
		first[i] = byte(i + 1) // [1..31) i.e. values 1..30
	}
	vol.WriteBytes(0, first)

	second := make([]byte, 20)
	for i := range second {
		second[i] = byte(200 + i) // [200..220) i.e. values 200..219
	}
	vol.WriteBytes(5, second)

	out := make([]byte, 30)
	vol.ReadBytes(0, out)

	expected := []byte{1, 2, 3, 4, 5}
	for i := 0; i < 20; i++ {
		expected = append(expected, byte(200+i))
	}
	expected = append(expected, 26, 27, 28, 29, 30)
	require.Equal(t, expected, out)
}

func TestRAID1Restore(t *testing.T) {
	dir := t.TempDir()
	clk := clock.NewSimulatedClock(time.Unix(1700000000, 0))
	arr, err := raidarray.Open(diskPaths(dir, 3), 1024, 4, clk)
	require.NoError(t, err)
	vol := New(arr, layout.NewRAID1(3, 4))

	payload := []byte("hello-raid1-mirror")
	vol.WriteBytes(0, payload)

	require.NoError(t, vol.FailDisk(1))

	out := make([]byte, len(payload))
	vol.ReadBytes(0, out)
	require.Equal(t, payload, out)

	require.NoError(t, vol.ReplaceDisk(1))
	require.NoError(t, vol.RebuildDiskUpto(1, int64(len(payload))))

	d0 := make([]byte, 4)
	d1 := make([]byte, 4)
	arr.Disk(0).ReadAt(0, d0)
	arr.Disk(1).ReadAt(0, d1)
	require.Equal(t, d0, d1)
}

func TestRAID3SingleDiskLossAndRecovery(t *testing.T) {
	dir := t.TempDir()
	clk := clock.NewSimulatedClock(time.Unix(1700000000, 0))
	arr, err := raidarray.Open(diskPaths(dir, 4), 4096, 4, clk)
	require.NoError(t, err)
	vol := New(arr, layout.NewRAID3(4, 4))

	payload := sequence(48)
	vol.WriteBytes(0, payload)

	require.NoError(t, vol.FailDisk(2))
	out := make([]byte, 48)
	vol.ReadBytes(0, out)
	require.Equal(t, payload, out)

	require.NoError(t, vol.ReplaceDisk(2))
	require.NoError(t, vol.RebuildDiskUpto(2, 48))

	require.NoError(t, vol.FailDisk(0))
	out2 := make([]byte, 48)
	vol.ReadBytes(0, out2)
	require.Equal(t, payload, out2)
}

func TestRAID3ScrubOfParityCorruption(t *testing.T) {
	dir := t.TempDir()
	clk := clock.NewSimulatedClock(time.Unix(1700000000, 0))
	arr, err := raidarray.Open(diskPaths(dir, 4), 4096, 4, clk)
	require.NoError(t, err)
	vol := New(arr, layout.NewRAID3(4, 4))

	payload := sequence(48)
	vol.WriteBytes(0, payload)

	tamper := []byte{0xFF}
	arr.Disk(3).WriteAt(0, tamper)

	out := make([]byte, 48)
	vol.ReadBytes(0, out)
	require.Equal(t, payload, out)

	parityByte0 := make([]byte, 1)
	arr.Disk(3).ReadAt(0, parityByte0)

	expected := payload[0] ^ payload[4] ^ payload[8]
	require.Equal(t, expected, parityByte0[0])
}

func TestRAID0DoubleFailureIsNotMasked(t *testing.T) {
	dir := t.TempDir()
	clk := clock.NewSimulatedClock(time.Unix(1700000000, 0))
	arr, err := raidarray.Open(diskPaths(dir, 3), 1024, 4, clk)
	require.NoError(t, err)
	vol := New(arr, layout.NewRAID0(3, 4))

	payload := sequence(24)
	vol.WriteBytes(0, payload)

	require.NoError(t, vol.FailDisk(1))

	out := make([]byte, 24)
	require.NotPanics(t, func() { vol.ReadBytes(0, out) })

	require.Equal(t, payload[0:4], out[0:4])
	require.Equal(t, payload[8:12], out[8:12])
	require.Equal(t, []byte{0, 0, 0, 0}, out[4:8])
	require.Equal(t, 1, vol.FailedDisks())
}

func TestReadPastCapacityIsShortCopy(t *testing.T) {
	dir := t.TempDir()
	clk := clock.NewSimulatedClock(time.Unix(1700000000, 0))
	arr, err := raidarray.Open(diskPaths(dir, 2), 16, 4, clk)
	require.NoError(t, err)
	vol := New(arr, layout.NewRAID0(2, 4))

	capacity := vol.LogicalCapacityBytes()
	require.Equal(t, int64(32), capacity)

	out := []byte{9, 9, 9, 9}
	require.NotPanics(t, func() { vol.ReadBytes(capacity, out) })
	require.Equal(t, []byte{9, 9, 9, 9}, out) // untouched: fully out of range
}

func TestStripesNeededForLogicalEndBoundaries(t *testing.T) {
	dir := t.TempDir()
	clk := clock.NewSimulatedClock(time.Unix(1700000000, 0))
	arr, err := raidarray.Open(diskPaths(dir, 2), 16, 4, clk)
	require.NoError(t, err)
	vol := New(arr, layout.NewRAID0(2, 4))

	require.Equal(t, int64(0), vol.StripesNeededForLogicalEnd(0))
	capacity := vol.LogicalCapacityBytes()
	require.Equal(t, capacity/int64(vol.geom.BytesPerStripe), vol.StripesNeededForLogicalEnd(capacity))
}

func TestRebuildDiskUptoFailsWhenDiskNotUntrusted(t *testing.T) {
	dir := t.TempDir()
	clk := clock.NewSimulatedClock(time.Unix(1700000000, 0))
	arr, err := raidarray.Open(diskPaths(dir, 3), 1024, 4, clk)
	require.NoError(t, err)
	vol := New(arr, layout.NewRAID1(3, 4))
	vol.ClearNeedsRebuildAll()

	err = vol.RebuildDiskUpto(1, 64)
	require.ErrorIs(t, err, ErrDiskNotUntrusted)
}

func TestRebuildDiskUptoFailsOnInvalidIndex(t *testing.T) {
	dir := t.TempDir()
	clk := clock.NewSimulatedClock(time.Unix(1700000000, 0))
	arr, err := raidarray.Open(diskPaths(dir, 3), 1024, 4, clk)
	require.NoError(t, err)
	vol := New(arr, layout.NewRAID1(3, 4))

	err = vol.RebuildDiskUpto(9, 64)
	require.ErrorIs(t, err, ErrDiskIndexOutOfRange)
}
