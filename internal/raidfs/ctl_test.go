package raidfs

import (
	"testing"

	"github.com/jacobsa/fuse"
	"github.com/stretchr/testify/require"
)

func TestRunControlCommandStatusIsNoop(t *testing.T) {
	fs := newTestFileSystem(t)
	require.NoError(t, fs.runControlCommand("status"))
}

func TestRunControlCommandEmptyIsInvalid(t *testing.T) {
	fs := newTestFileSystem(t)
	require.Equal(t, fuse.EINVAL, fs.runControlCommand(""))
}

func TestRunControlCommandUnknownVerbIsInvalid(t *testing.T) {
	fs := newTestFileSystem(t)
	require.Equal(t, fuse.EINVAL, fs.runControlCommand("frobnicate 0"))
}

func TestRunControlCommandFailDisk(t *testing.T) {
	fs := newTestFileSystem(t)
	require.NoError(t, fs.runControlCommand("fail 0"))
	require.True(t, fs.vol.DiskStatuses()[0].Missing)
}

func TestRunControlCommandFailMissingArgIsInvalid(t *testing.T) {
	fs := newTestFileSystem(t)
	require.Equal(t, fuse.EINVAL, fs.runControlCommand("fail"))
}

func TestRunControlCommandFailNonNumericIsInvalid(t *testing.T) {
	fs := newTestFileSystem(t)
	require.Equal(t, fuse.EINVAL, fs.runControlCommand("fail abc"))
}

func TestRunControlCommandFailOutOfRangeReturnsEINVAL(t *testing.T) {
	fs := newTestFileSystem(t)
	require.Equal(t, fuse.EINVAL, fs.runControlCommand("fail 99"))
}

func TestRunControlCommandReplaceThenRebuild(t *testing.T) {
	fs := newTestFileSystem(t)
	require.NoError(t, fs.runControlCommand("fail 0"))
	require.NoError(t, fs.runControlCommand("replace 0"))
	require.True(t, fs.vol.DiskStatuses()[0].Untrusted)

	require.NoError(t, fs.runControlCommand("rebuild 0"))
	require.False(t, fs.vol.DiskStatuses()[0].Untrusted)
}

func TestRunControlCommandRebuildAll(t *testing.T) {
	fs := newTestFileSystem(t)
	require.NoError(t, fs.runControlCommand("fail 0"))
	require.NoError(t, fs.runControlCommand("replace 0"))
	require.NoError(t, fs.runControlCommand("rebuild-all"))
	require.False(t, fs.vol.AnyNeedsRebuild())
}

func TestStatusTextReportsDegradedCount(t *testing.T) {
	fs := newTestFileSystem(t)
	require.NoError(t, fs.runControlCommand("fail 0"))
	require.Contains(t, fs.statusText(), "disks degraded: 1")
}
