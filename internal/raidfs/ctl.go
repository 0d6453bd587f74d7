package raidfs

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/jacobsa/fuse"

	"github.com/Jan-Chojnacki/Stripe-Slinger/internal/logger"
	"github.com/Jan-Chojnacki/Stripe-Slinger/internal/raidmetrics"
)

// runControlCommand parses and executes one .raidctl write. Recognized
// commands: "fail <n>", "replace <n>", "rebuild <n>", "rebuild-all",
// "status". Unknown commands are a write-time error; "status" is a no-op
// kept for symmetry with reads, which always return the latest snapshot
// regardless of the last command written.
//
// LOCKS_REQUIRED(fs.mu)
func (fs *FileSystem) runControlCommand(cmd string) error {
	fields := strings.Fields(cmd)
	if len(fields) == 0 {
		return fuse.EINVAL
	}

	switch fields[0] {
	case "status":
		return nil

	case "rebuild-all":
		fs.vol.RebuildAllUpto(fs.vol.LogicalCapacityBytes())
		fs.recordDiskStates()
		logger.Infof("raidfs[%s]: rebuild-all complete", fs.mountTag)
		return nil

	case "fail", "replace", "rebuild":
		if len(fields) != 2 {
			return fuse.EINVAL
		}
		idx, err := strconv.Atoi(fields[1])
		if err != nil || idx < 0 {
			return fuse.EINVAL
		}
		return fs.runDiskCommand(fields[0], idx)

	default:
		return fuse.EINVAL
	}
}

func (fs *FileSystem) runDiskCommand(verb string, idx int) error {
	var err error
	switch verb {
	case "fail":
		err = fs.vol.FailDisk(idx)
	case "replace":
		err = fs.vol.ReplaceDisk(idx)
	case "rebuild":
		err = fs.vol.RebuildDiskUpto(idx, fs.vol.LogicalCapacityBytes())
	}
	if err != nil {
		logger.Warnf("raidfs[%s]: %s %d failed: %v", fs.mountTag, verb, idx, err)
		return fuse.EINVAL
	}

	fs.recordDiskStates()
	logger.Infof("raidfs[%s]: %s %d ok", fs.mountTag, verb, idx)
	return nil
}

func (fs *FileSystem) recordDiskStates() {
	sink := raidmetrics.Current()
	for _, st := range fs.vol.DiskStatuses() {
		sink.RecordDiskState(raidmetrics.DiskState{
			DiskID:    raidmetrics.DiskID(st.Index),
			Missing:   st.Missing,
			Untrusted: st.Untrusted,
		})
	}
}

// statusText is the full body returned by a read of .raidctl: the command
// summary followed by the volume's current disk status table.
func (fs *FileSystem) statusText() string {
	var b strings.Builder
	b.WriteString("raidctl commands:\n")
	b.WriteString("  fail <n>        - hot-remove disk n\n")
	b.WriteString("  replace <n>     - swap in a fresh image for disk n\n")
	b.WriteString("  rebuild <n>     - rebuild disk n from redundancy\n")
	b.WriteString("  rebuild-all     - rebuild every untrusted disk\n")
	b.WriteString("  status          - no-op, read returns this snapshot\n\n")
	b.WriteString(fmt.Sprintf("disks degraded: %d\n", fs.vol.FailedDisks()))
	b.WriteString(fmt.Sprintf("rebuild pending: %t\n\n", fs.vol.AnyNeedsRebuild()))
	b.WriteString(fs.vol.DiskStatusString())
	return b.String()
}
