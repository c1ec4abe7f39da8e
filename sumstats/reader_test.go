package sumstats_test

import (
	"context"
	"errors"
	"io"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/katalvlaran/voxelgwas/dataio"
	"github.com/katalvlaran/voxelgwas/sumstats"
)

const sample = `SNP CHR POS A1 A2 N BETA1 BETA2 SE1 SE2
rs1 1 100 a g 1000 0.5 -0.2 0.1 0.1
rs2 1 200 C T NA 0.1 0.2 0.3 0.4

rs3 2 300 A C 900 0.1 x 0.1 0.1
rs4 2 400 A C 900 0.1 0.2
`

// drain reads s to EOF, collecting records and recoverable errors.
func drain(t *testing.T, s sumstats.Stream) ([]*sumstats.Record, []error) {
	t.Helper()
	var (
		recs []*sumstats.Record
		errs []error
	)
	for {
		rec, err := s.Next(context.Background())
		if errors.Is(err, io.EOF) {
			return recs, errs
		}
		if err != nil {
			require.True(t, sumstats.IsRecordError(err), "fatal: %v", err)
			errs = append(errs, err)
			continue
		}
		recs = append(recs, rec)
	}
}

func TestReaderParsesRows(t *testing.T) {
	r, err := sumstats.NewReader(strings.NewReader(sample), sumstats.DefaultSchema())
	require.NoError(t, err)
	require.Equal(t, 2, r.Components())

	recs, errs := drain(t, r)
	require.Len(t, recs, 2)
	require.Len(t, errs, 2)

	rs1 := recs[0]
	require.Equal(t, "rs1", rs1.SNP)
	require.Equal(t, "1", rs1.Chr)
	require.EqualValues(t, 100, rs1.Pos)
	require.Equal(t, "A", rs1.A1)
	require.Equal(t, "G", rs1.A2)
	require.Equal(t, 1000.0, rs1.N)
	require.Equal(t, []float64{0.5, -0.2}, rs1.Beta)
	require.Equal(t, []float64{0.1, 0.1}, rs1.SE)
	require.True(t, math.IsNaN(rs1.MAF))

	require.True(t, math.IsNaN(recs[1].N), "NA parses as missing")

	var re *sumstats.RecordError
	require.ErrorAs(t, errs[0], &re)
	require.Equal(t, 5, re.Line)
	require.Equal(t, "rs3", re.SNP)
	require.ErrorIs(t, errs[0], sumstats.ErrField)
	require.ErrorIs(t, errs[1], sumstats.ErrField)
}

func TestReaderSchemaValidation(t *testing.T) {
	cases := []struct {
		name   string
		header string
		mod    func(*sumstats.Schema)
	}{
		{"missing SNP", "CHR POS A1 A2 N BETA1 SE1", nil},
		{"no effects", "SNP CHR POS A1 A2 N", nil},
		{"unpaired SE", "SNP CHR POS A1 A2 N BETA1 BETA2 SE1", nil},
		{"duplicate", "SNP CHR POS A1 A2 N N BETA1 SE1", nil},
		{"no N", "SNP CHR POS A1 A2 BETA1 SE1", func(s *sumstats.Schema) { s.N = "" }},
		{"missing optional named", "SNP CHR POS A1 A2 N BETA1 SE1", func(s *sumstats.Schema) { s.MAF = "FRQ" }},
		{"empty", "", nil},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			s := sumstats.DefaultSchema()
			if tc.mod != nil {
				tc.mod(&s)
			}
			_, err := sumstats.NewReader(strings.NewReader(tc.header+"\n"), s)
			require.ErrorIs(t, err, sumstats.ErrSchema)
		})
	}
}

func TestReaderFixedNAndOddsRatio(t *testing.T) {
	s := sumstats.DefaultSchema()
	s.N = ""
	s.FixedN = 5000
	s.MAF = "FRQ"
	s.Effect = sumstats.EffectOddsRatio
	in := "SNP CHR POS A1 A2 FRQ BETA1 SE1\nrs1 1 1 A G 0.3 2.0 0.1\nrs2 1 2 A G 0.3 -1 0.1\n"

	r, err := sumstats.NewReader(strings.NewReader(in), s)
	require.NoError(t, err)
	recs, errs := drain(t, r)
	require.Len(t, recs, 1)
	require.Equal(t, 5000.0, recs[0].N)
	require.Equal(t, 0.3, recs[0].MAF)
	require.InDelta(t, math.Log(2), recs[0].Beta[0], 1e-15)
	require.Len(t, errs, 1, "non-positive odds ratio")
}

// TestReaderMissingOddsRatio reads an NA odds ratio as NaN so QC drops the
// SNP as non-finite instead of the reader failing the row.
func TestReaderMissingOddsRatio(t *testing.T) {
	s := sumstats.DefaultSchema()
	s.N = ""
	s.FixedN = 5000
	s.Effect = sumstats.EffectOddsRatio
	in := "SNP CHR POS A1 A2 BETA1 SE1\nrs1 1 1 A G NA 0.1\nrs2 1 2 A G 1.5 0.1\n"

	r, err := sumstats.NewReader(strings.NewReader(in), s)
	require.NoError(t, err)
	recs, errs := drain(t, r)
	require.Empty(t, errs)
	require.Len(t, recs, 2)
	require.True(t, math.IsNaN(recs[0].Beta[0]))

	r, err = sumstats.NewReader(strings.NewReader(in), s)
	require.NoError(t, err)
	q := sumstats.NewQC(r, sumstats.QCOptions{})
	recs, errs = drain(t, q)
	require.Empty(t, errs)
	require.Len(t, recs, 1)
	require.Equal(t, "rs2", recs[0].SNP)
	require.InDelta(t, math.Log(1.5), recs[0].Beta[0], 1e-15)
	require.Equal(t, 1, q.Dropped(sumstats.NonFinite))
}

func TestOpenFileCompressed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ldr.txt.zst")
	f, err := os.Create(path)
	require.NoError(t, err)
	w, err := dataio.NewWriter(f, dataio.Zstd)
	require.NoError(t, err)
	_, err = io.WriteString(w, sample)
	require.NoError(t, err)
	require.NoError(t, w.Close())
	require.NoError(t, f.Close())

	r, err := sumstats.OpenFile(path, sumstats.DefaultSchema())
	require.NoError(t, err)
	defer r.Close()
	recs, _ := drain(t, r)
	require.Len(t, recs, 2)
}

func TestParseEffectKind(t *testing.T) {
	k, err := sumstats.ParseEffectKind("OR")
	require.NoError(t, err)
	require.Equal(t, sumstats.EffectOddsRatio, k)
	_, err = sumstats.ParseEffectKind("logit")
	require.ErrorIs(t, err, sumstats.ErrSchema)
}

func TestReaderCancelled(t *testing.T) {
	r, err := sumstats.NewReader(strings.NewReader(sample), sumstats.DefaultSchema())
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = r.Next(ctx)
	require.ErrorIs(t, err, context.Canceled)
}
