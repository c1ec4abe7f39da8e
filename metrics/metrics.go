// Package metrics exports run counters in the Prometheus text format.
//
// Metrics implements pipeline.Observer. A batch run has no scrape endpoint,
// so the registry is written once to a textfile at the end of the run.
package metrics

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/katalvlaran/voxelgwas/pipeline"
	"github.com/katalvlaran/voxelgwas/recovery"
	"github.com/katalvlaran/voxelgwas/sumstats"
)

// Metrics holds one run's collectors on a private registry.
type Metrics struct {
	reg *prometheus.Registry

	skipped   *prometheus.CounterVec
	qcDropped *prometheus.CounterVec
	snps      prometheus.Counter
	blocks    prometheus.Counter
	rows      prometheus.Counter
	invalid   prometheus.Counter
	blockRows prometheus.Histogram
	elapsed   prometheus.Gauge
	hits      prometheus.Gauge
}

// New registers the collectors on a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	f := promauto.With(reg)

	return &Metrics{
		reg: reg,
		skipped: f.NewCounterVec(prometheus.CounterOpts{
			Name: "voxelgwas_records_skipped_total",
			Help: "Records skipped, by cause",
		}, []string{"cause"}),
		qcDropped: f.NewCounterVec(prometheus.CounterOpts{
			Name: "voxelgwas_qc_dropped_total",
			Help: "SNPs removed by summary-statistics QC, by reason",
		}, []string{"reason"}),
		snps: f.NewCounter(prometheus.CounterOpts{
			Name: "voxelgwas_snps_total",
			Help: "SNPs taken from the stream and written in blocks",
		}),
		blocks: f.NewCounter(prometheus.CounterOpts{
			Name: "voxelgwas_blocks_total",
			Help: "SNP blocks written",
		}),
		rows: f.NewCounter(prometheus.CounterOpts{
			Name: "voxelgwas_rows_total",
			Help: "Significant voxel rows written",
		}),
		invalid: f.NewCounter(prometheus.CounterOpts{
			Name: "voxelgwas_invalid_voxels_total",
			Help: "Voxels excluded for non-positive variance",
		}),
		blockRows: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "voxelgwas_block_rows",
			Help:    "Rows written per SNP block",
			Buckets: prometheus.ExponentialBuckets(1, 4, 10),
		}),
		elapsed: f.NewGauge(prometheus.GaugeOpts{
			Name: "voxelgwas_run_seconds",
			Help: "Wall time of the run",
		}),
		hits: f.NewGauge(prometheus.GaugeOpts{
			Name: "voxelgwas_snps_with_hits",
			Help: "SNPs with at least one significant voxel",
		}),
	}
}

// Registry returns the private registry.
func (m *Metrics) Registry() *prometheus.Registry { return m.reg }

// RecordSkipped implements pipeline.Observer.
func (m *Metrics) RecordSkipped(_ *sumstats.Record, err error) {
	cause := "other"
	switch {
	case sumstats.IsRecordError(err):
		cause = "parse"
	case errors.Is(err, recovery.ErrMalformedRecord):
		cause = "malformed"
	}
	m.skipped.WithLabelValues(cause).Inc()
}

// BlockDone implements pipeline.Observer.
func (m *Metrics) BlockDone(b pipeline.BlockStats) {
	m.blocks.Inc()
	m.snps.Add(float64(b.SNPs))
	m.rows.Add(float64(b.Rows))
	m.invalid.Add(float64(b.Invalid))
	m.blockRows.Observe(float64(b.Rows))
}

// ObserveQC records the drop counts of q.
func (m *Metrics) ObserveQC(q *sumstats.QC) {
	for _, r := range sumstats.Reasons() {
		m.qcDropped.WithLabelValues(r.String()).Add(float64(q.Dropped(r)))
	}
}

// ObserveSummary records the end-of-run values.
func (m *Metrics) ObserveSummary(s pipeline.Summary) {
	m.elapsed.Set(s.Elapsed.Seconds())
	m.hits.Set(float64(s.SNPsWithHits))
}

// WriteFile writes the registry to path in the text exposition format.
func (m *Metrics) WriteFile(path string) error {
	return prometheus.WriteToTextfile(path, m.reg)
}
