package sumstats

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/katalvlaran/voxelgwas/dataio"
)

// Reader is a Stream over whitespace-delimited text.
type Reader struct {
	sc     *bufio.Scanner
	schema Schema
	l      layout
	line   int
	closer io.Closer
}

// NewReader reads and validates the header of r against schema.
func NewReader(r io.Reader, schema Schema) (*Reader, error) {
	sc := dataio.NewScanner(r)
	line := 0
	for sc.Scan() {
		line++
		if strings.TrimSpace(sc.Text()) == "" {
			continue
		}
		l, err := schema.resolve(strings.Fields(sc.Text()))
		if err != nil {
			return nil, err
		}
		return &Reader{sc: sc, schema: schema, l: l, line: line}, nil
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}

	return nil, fmt.Errorf("missing header: %w", ErrSchema)
}

// OpenFile opens path (compressed by extension) and returns a Reader that
// closes the file on Close.
func OpenFile(path string, schema Schema) (*Reader, error) {
	rc, err := dataio.Open(path)
	if err != nil {
		return nil, err
	}
	r, err := NewReader(rc, schema)
	if err != nil {
		_ = rc.Close()
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	r.closer = rc

	return r, nil
}

// Components returns the number of LDRs present in the header.
func (r *Reader) Components() int { return len(r.l.beta) }

// Close releases the underlying file, if any.
func (r *Reader) Close() error {
	if r.closer == nil {
		return nil
	}

	return r.closer.Close()
}

// Next implements Stream.
func (r *Reader) Next(ctx context.Context) (*Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	for r.sc.Scan() {
		r.line++
		text := r.sc.Text()
		if strings.TrimSpace(text) == "" {
			continue
		}
		rec, err := r.parse(strings.Fields(text))
		if err != nil {
			return nil, err
		}
		return rec, nil
	}
	if err := r.sc.Err(); err != nil {
		return nil, err
	}

	return nil, io.EOF
}

func (r *Reader) parse(f []string) (*Record, error) {
	l := r.l
	if len(f) != l.width {
		return nil, &RecordError{Line: r.line, Err: fmt.Errorf("%d fields, header has %d: %w", len(f), l.width, ErrField)}
	}
	rec := &Record{
		SNP:  f[l.snp],
		Chr:  f[l.chr],
		A1:   strings.ToUpper(f[l.a1]),
		A2:   strings.ToUpper(f[l.a2]),
		MAF:  math.NaN(),
		Info: math.NaN(),
		Beta: make([]float64, len(l.beta)),
		SE:   make([]float64, len(l.se)),
	}
	fail := func(col string, err error) error {
		return &RecordError{Line: r.line, SNP: rec.SNP, Err: fmt.Errorf("%s: %v: %w", col, err, ErrField)}
	}

	var err error
	if rec.Pos, err = strconv.ParseInt(f[l.pos], 10, 64); err != nil {
		return nil, fail(r.schema.Pos, err)
	}
	if l.n >= 0 {
		if rec.N, err = parseNum(f[l.n]); err != nil {
			return nil, fail(r.schema.N, err)
		}
	} else {
		rec.N = r.schema.FixedN
	}
	if l.maf >= 0 {
		if rec.MAF, err = parseNum(f[l.maf]); err != nil {
			return nil, fail(r.schema.MAF, err)
		}
	}
	if l.info >= 0 {
		if rec.Info, err = parseNum(f[l.info]); err != nil {
			return nil, fail(r.schema.Info, err)
		}
	}
	for j, c := range l.beta {
		v, err := parseNum(f[c])
		if err != nil {
			return nil, fail(fmt.Sprintf("%s%d", r.schema.EffectPrefix, j+1), err)
		}
		// a missing odds ratio stays NaN for QC to count as non-finite
		if r.schema.Effect == EffectOddsRatio && !math.IsNaN(v) {
			if !(v > 0) {
				return nil, fail(fmt.Sprintf("%s%d", r.schema.EffectPrefix, j+1), fmt.Errorf("odds ratio %g not positive", v))
			}
			v = math.Log(v)
		}
		rec.Beta[j] = v
	}
	for j, c := range l.se {
		if rec.SE[j], err = parseNum(f[c]); err != nil {
			return nil, fail(fmt.Sprintf("%s%d", r.schema.SEPrefix, j+1), err)
		}
	}

	return rec, nil
}

// parseNum accepts the missing-value markers of the LDR GWAS tools as NaN.
func parseNum(s string) (float64, error) {
	switch s {
	case "NA", "NaN", "nan", ".", "NONE", "-9":
		return math.NaN(), nil
	}

	return strconv.ParseFloat(s, 64)
}
