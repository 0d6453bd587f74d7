// Package raidmetrics defines the process-wide, emission-only metrics sink
// the core reports through: disk ops, RAID-level ops, and disk-state
// samples. The core never reads metrics back; it only emits.
package raidmetrics

import (
	"fmt"
	"sync"
	"sync/atomic"
)

// DiskOp describes a single read or write against one disk.
type DiskOp struct {
	DiskID         string
	Op             string // "read" or "write"
	Bytes          int64
	LatencySeconds float64
	Error          bool
}

// RaidOp describes a single logical Volume-level operation.
type RaidOp struct {
	Op             string
	Bytes          int64
	LatencySeconds float64
	Error          bool
}

// DiskState is a point-in-time health sample for one disk, emitted on admin
// operations (fail/replace/rebuild).
type DiskState struct {
	DiskID    string
	Missing   bool
	Untrusted bool
}

// Sink receives metric samples. Implementations must be safe for concurrent
// use: emission may come from a foreground caller and a background rebuild
// worker holding the same Volume lock at different times, but never
// simultaneously blocks IO on the sink being slow.
type Sink interface {
	RecordDiskOp(DiskOp)
	RecordRaidOp(RaidOp)
	RecordDiskState(DiskState)
}

// DiskID formats the canonical disk-id string for index i.
func DiskID(i int) string {
	return fmt.Sprintf("disk%d", i)
}

type noopSink struct{}

func (noopSink) RecordDiskOp(DiskOp)       {}
func (noopSink) RecordRaidOp(RaidOp)       {}
func (noopSink) RecordDiskState(DiskState) {}

// NewNoopSink returns a Sink that discards every sample.
func NewNoopSink() Sink { return noopSink{} }

var (
	current atomic.Value // holds sinkBox
	setOnce sync.Once
)

func init() {
	current.Store(sinkBox{NewNoopSink()})
}

type sinkBox struct{ Sink }

// SetSink installs the process-wide sink. It may be called at most once;
// subsequent calls are no-ops and return false. This matches the
// single-writer-at-startup lifecycle: an adapter wires a real sink during
// bootstrap, and the core emits into whatever is installed at that point.
func SetSink(s Sink) bool {
	installed := false
	setOnce.Do(func() {
		current.Store(sinkBox{s})
		installed = true
	})
	return installed
}

// Current returns the installed sink, or a no-op sink if none was set.
func Current() Sink {
	return current.Load().(sinkBox).Sink
}
