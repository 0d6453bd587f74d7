package raidfs

import (
	"context"

	"github.com/Jan-Chojnacki/Stripe-Slinger/internal/logger"
)

// statusLogBatch is how many stripes the rebuild loop repairs between
// progress log lines;
// logging every stripe would be far too noisy for a volume of any size.
const statusLogBatch = 64

// RunRebuildWorker walks repair_stripe across the whole volume in ascending
// order, holding fs.mu around each stripe exactly like every foreground
// FUSE operation does, so a rebuild never races a concurrent read or
// write. It returns once the pass completes or ctx is canceled.
//
// The worker returns at once unless some disk still needs rebuilding
// (Volume.AnyNeedsRebuild); it makes a single pass and is called once per
// mount rather than looping.
func (fs *FileSystem) RunRebuildWorker(ctx context.Context) {
	fs.mu.Lock()
	needsWork := fs.vol.AnyNeedsRebuild()
	fs.mu.Unlock()
	if !needsWork {
		return
	}

	logger.Infof("raidfs[%s]: background rebuild starting", fs.mountTag)

	end := fs.vol.LogicalCapacityBytes()
	total := fs.vol.StripesNeededForLogicalEnd(end)

	for s := int64(0); s < total; s++ {
		select {
		case <-ctx.Done():
			logger.Infof("raidfs[%s]: background rebuild canceled at stripe %d/%d", fs.mountTag, s, total)
			return
		default:
		}

		fs.mu.Lock()
		fs.vol.RepairStripe(s)
		fs.mu.Unlock()

		if (s+1)%statusLogBatch == 0 || s+1 == total {
			logger.Debugf("raidfs[%s]: rebuild progress %d/%d stripes, status:\n%s",
				fs.mountTag, s+1, total, fs.vol.DiskStatusString())
		}
	}

	fs.mu.Lock()
	fs.vol.ClearNeedsRebuildAll()
	fs.recordDiskStates()
	fs.mu.Unlock()

	logger.Infof("raidfs[%s]: background rebuild complete", fs.mountTag)
}
