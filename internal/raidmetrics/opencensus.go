package raidmetrics

import (
	"context"
	"fmt"

	ocprom "contrib.go.opencensus.io/exporter/prometheus"
	"github.com/prometheus/client_golang/prometheus"
	"go.opencensus.io/stats"
	"go.opencensus.io/stats/view"
	"go.opencensus.io/tag"
)

var (
	keyDiskID = tag.MustNewKey("disk_id")
	keyOp     = tag.MustNewKey("op")
)

// OpenCensusSink records disk and RAID op metrics as OpenCensus measures
// exported through a Prometheus registry, mirroring the dual-exporter
// pattern used for request/ops metrics elsewhere in this stack: OpenCensus
// owns aggregation, Prometheus owns scraping.
type OpenCensusSink struct {
	diskOpBytes      *stats.Int64Measure
	diskOpLatency    *stats.Float64Measure
	diskOpErrorCount *stats.Int64Measure

	raidOpBytes      *stats.Int64Measure
	raidOpLatency    *stats.Float64Measure
	raidOpErrorCount *stats.Int64Measure

	diskMissing   *stats.Int64Measure
	diskUntrusted *stats.Int64Measure

	exporter *ocprom.Exporter
}

// NewOpenCensusSink registers the RAID views against reg and returns a Sink
// backed by them. The Prometheus exporter an HTTP handler can serve
// /metrics from is available through Exporter.
func NewOpenCensusSink(reg *prometheus.Registry) (*OpenCensusSink, error) {
	s := &OpenCensusSink{
		diskOpBytes:      stats.Int64("raid/disk_op_bytes", "Bytes moved per disk operation.", stats.UnitBytes),
		diskOpLatency:    stats.Float64("raid/disk_op_latency", "Latency of a disk operation.", stats.UnitMilliseconds),
		diskOpErrorCount: stats.Int64("raid/disk_op_error_count", "Count of failed disk operations.", stats.UnitDimensionless),
		raidOpBytes:      stats.Int64("raid/raid_op_bytes", "Bytes moved per volume-level operation.", stats.UnitBytes),
		raidOpLatency:    stats.Float64("raid/raid_op_latency", "Latency of a volume-level operation.", stats.UnitMilliseconds),
		raidOpErrorCount: stats.Int64("raid/raid_op_error_count", "Count of failed volume-level operations.", stats.UnitDimensionless),
		diskMissing:      stats.Int64("raid/disk_missing", "1 if the disk is currently missing, else 0.", stats.UnitDimensionless),
		diskUntrusted:    stats.Int64("raid/disk_untrusted", "1 if the disk is currently untrusted, else 0.", stats.UnitDimensionless),
	}

	if err := view.Register(
		&view.View{Name: "raid/disk_op_bytes", Measure: s.diskOpBytes, Aggregation: view.Sum(), TagKeys: []tag.Key{keyDiskID, keyOp}},
		&view.View{Name: "raid/disk_op_latency", Measure: s.diskOpLatency, Aggregation: view.Distribution(0, 1, 5, 10, 25, 50, 100, 250, 500, 1000), TagKeys: []tag.Key{keyDiskID, keyOp}},
		&view.View{Name: "raid/disk_op_error_count", Measure: s.diskOpErrorCount, Aggregation: view.Count(), TagKeys: []tag.Key{keyDiskID, keyOp}},
		&view.View{Name: "raid/raid_op_bytes", Measure: s.raidOpBytes, Aggregation: view.Sum(), TagKeys: []tag.Key{keyOp}},
		&view.View{Name: "raid/raid_op_latency", Measure: s.raidOpLatency, Aggregation: view.Distribution(0, 1, 5, 10, 25, 50, 100, 250, 500, 1000), TagKeys: []tag.Key{keyOp}},
		&view.View{Name: "raid/raid_op_error_count", Measure: s.raidOpErrorCount, Aggregation: view.Count(), TagKeys: []tag.Key{keyOp}},
		&view.View{Name: "raid/disk_missing", Measure: s.diskMissing, Aggregation: view.LastValue(), TagKeys: []tag.Key{keyDiskID}},
		&view.View{Name: "raid/disk_untrusted", Measure: s.diskUntrusted, Aggregation: view.LastValue(), TagKeys: []tag.Key{keyDiskID}},
	); err != nil {
		return nil, fmt.Errorf("raidmetrics: register views: %w", err)
	}

	exporter, err := ocprom.NewExporter(ocprom.Options{Registry: reg})
	if err != nil {
		return nil, fmt.Errorf("raidmetrics: new prometheus exporter: %w", err)
	}
	view.RegisterExporter(exporter)
	s.exporter = exporter
	return s, nil
}

// Exporter returns the underlying Prometheus exporter, an http.Handler.
func (s *OpenCensusSink) Exporter() *ocprom.Exporter { return s.exporter }

func (s *OpenCensusSink) RecordDiskOp(op DiskOp) {
	ctx, err := tag.New(context.Background(), tag.Upsert(keyDiskID, op.DiskID), tag.Upsert(keyOp, op.Op))
	if err != nil {
		return
	}
	stats.Record(ctx, s.diskOpBytes.M(op.Bytes))
	stats.Record(ctx, s.diskOpLatency.M(op.LatencySeconds*1000))
	if op.Error {
		stats.Record(ctx, s.diskOpErrorCount.M(1))
	}
}

func (s *OpenCensusSink) RecordRaidOp(op RaidOp) {
	ctx, err := tag.New(context.Background(), tag.Upsert(keyOp, op.Op))
	if err != nil {
		return
	}
	stats.Record(ctx, s.raidOpBytes.M(op.Bytes))
	stats.Record(ctx, s.raidOpLatency.M(op.LatencySeconds*1000))
	if op.Error {
		stats.Record(ctx, s.raidOpErrorCount.M(1))
	}
}

func (s *OpenCensusSink) RecordDiskState(state DiskState) {
	ctx, err := tag.New(context.Background(), tag.Upsert(keyDiskID, state.DiskID))
	if err != nil {
		return
	}
	missing, untrusted := int64(0), int64(0)
	if state.Missing {
		missing = 1
	}
	if state.Untrusted {
		untrusted = 1
	}
	stats.Record(ctx, s.diskMissing.M(missing))
	stats.Record(ctx, s.diskUntrusted.M(untrusted))
}
