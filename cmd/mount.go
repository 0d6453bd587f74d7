package cmd

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"

	"github.com/jacobsa/fuse"
	"github.com/jacobsa/fuse/fuseutil"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/Jan-Chojnacki/Stripe-Slinger/internal/cfg"
	"github.com/Jan-Chojnacki/Stripe-Slinger/internal/clock"
	"github.com/Jan-Chojnacki/Stripe-Slinger/internal/layout"
	"github.com/Jan-Chojnacki/Stripe-Slinger/internal/logger"
	"github.com/Jan-Chojnacki/Stripe-Slinger/internal/raidarray"
	"github.com/Jan-Chojnacki/Stripe-Slinger/internal/raidfs"
	"github.com/Jan-Chojnacki/Stripe-Slinger/internal/raidmetrics"
	"github.com/Jan-Chojnacki/Stripe-Slinger/internal/volume"
)

// runMount assembles the array, volume, and FUSE adapter described by c and
// serves them at mountPoint until the mount is unmounted or ctx is canceled.
func runMount(ctx context.Context, c cfg.Config, mountPoint string) error {
	if err := logger.Init(c.Logging); err != nil {
		return fmt.Errorf("init logger: %w", err)
	}

	if c.Metrics.Enabled {
		sink, err := raidmetrics.NewOpenCensusSink(prometheus.NewRegistry())
		if err != nil {
			return fmt.Errorf("init metrics sink: %w", err)
		}
		raidmetrics.SetSink(sink)
		go serveMetrics(c.Metrics.Address, sink)
	}

	array, err := raidarray.Open(c.Volume.DiskPaths, c.Volume.DiskLength, c.Volume.ChunkWidth, clock.RealClock{})
	if err != nil {
		return fmt.Errorf("open array: %w", err)
	}

	stripe, err := newStripe(c.Volume.Layout, array.Disks(), c.Volume.ChunkWidth)
	if err != nil {
		return err
	}

	vol := volume.New(array, stripe)

	adapter, err := raidfs.New(vol, currentUID(), currentGID())
	if err != nil {
		return fmt.Errorf("init filesystem adapter: %w", err)
	}

	rebuildCtx, cancelRebuild := context.WithCancel(ctx)
	defer cancelRebuild()
	go adapter.RunRebuildWorker(rebuildCtx)

	server := fuseutil.NewFileSystemServer(adapter)
	mountCfg := &fuse.MountConfig{
		FSName:     "stripeslinger",
		Subtype:    "raidfs",
		VolumeName: fmt.Sprintf("raid-%s", c.Volume.Layout),
	}

	logger.Infof("mounting %s volume (mount %s) at %s", c.Volume.Layout, adapter.MountTag(), mountPoint)
	mfs, err := fuse.Mount(mountPoint, server, mountCfg)
	if err != nil {
		return fmt.Errorf("mount: %w", err)
	}

	registerSIGINTHandler(mountPoint)

	if err := mfs.Join(ctx); err != nil {
		return fmt.Errorf("serve: %w", err)
	}
	return nil
}

// registerSIGINTHandler unmounts mountPoint in response to an interrupt so
// a Ctrl-C leaves no stale mount behind.
func registerSIGINTHandler(mountPoint string) {
	signalChan := make(chan os.Signal, 1)
	signal.Notify(signalChan, os.Interrupt)

	go func() {
		for range signalChan {
			logger.Infof("received interrupt, attempting to unmount %s", mountPoint)
			if err := fuse.Unmount(mountPoint); err != nil {
				logger.Errorf("failed to unmount in response to interrupt: %v", err)
				continue
			}
			logger.Infof("unmounted %s", mountPoint)
			return
		}
	}()
}

func newStripe(name string, disks, chunkWidth int) (layout.Stripe, error) {
	switch name {
	case "raid0":
		return layout.NewRAID0(disks, chunkWidth), nil
	case "raid1":
		return layout.NewRAID1(disks, chunkWidth), nil
	case "raid3":
		return layout.NewRAID3(disks, chunkWidth), nil
	default:
		return nil, fmt.Errorf("cmd: unknown volume layout %q", name)
	}
}

func serveMetrics(addr string, sink *raidmetrics.OpenCensusSink) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", sink.Exporter())
	logger.Infof("serving metrics on %s", addr)
	if err := http.ListenAndServe(addr, mux); err != nil {
		logger.Errorf("metrics server stopped: %v", err)
	}
}
