package metrics_test

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/katalvlaran/voxelgwas/metrics"
	"github.com/katalvlaran/voxelgwas/pipeline"
	"github.com/katalvlaran/voxelgwas/recovery"
	"github.com/katalvlaran/voxelgwas/sumstats"
)

var _ pipeline.Observer = (*metrics.Metrics)(nil)

func TestObserverCounts(t *testing.T) {
	m := metrics.New()
	m.RecordSkipped(nil, &sumstats.RecordError{Line: 3, Err: sumstats.ErrField})
	m.RecordSkipped(&sumstats.Record{}, fmt.Errorf("rs1: %w", recovery.ErrMalformedRecord))
	m.RecordSkipped(&sumstats.Record{}, fmt.Errorf("rs2: %w", recovery.ErrMalformedRecord))
	m.BlockDone(pipeline.BlockStats{SNPs: 10, Rows: 4, Invalid: 2})
	m.BlockDone(pipeline.BlockStats{SNPs: 5, Rows: 1})
	m.ObserveSummary(pipeline.Summary{Elapsed: 2 * time.Second, SNPsWithHits: 3})

	q := sumstats.NewQC(sumstats.NewSliceStream(), sumstats.QCOptions{})
	m.ObserveQC(q)

	path := filepath.Join(t.TempDir(), "run.prom")
	require.NoError(t, m.WriteFile(path))
	b, err := os.ReadFile(path)
	require.NoError(t, err)
	text := string(b)

	for _, want := range []string{
		`voxelgwas_records_skipped_total{cause="parse"} 1`,
		`voxelgwas_records_skipped_total{cause="malformed"} 2`,
		`voxelgwas_snps_total 15`,
		`voxelgwas_rows_total 5`,
		`voxelgwas_invalid_voxels_total 2`,
		`voxelgwas_blocks_total 2`,
		`voxelgwas_run_seconds 2`,
		`voxelgwas_snps_with_hits 3`,
		`voxelgwas_qc_dropped_total{reason="maf"} 0`,
	} {
		require.True(t, strings.Contains(text, want), "missing %q in\n%s", want, text)
	}
}
