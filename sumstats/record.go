package sumstats

import (
	"context"
	"errors"
	"fmt"
	"io"

	"gonum.org/v1/gonum/mat"
)

// Record is one SNP of LDR summary statistics.
type Record struct {
	SNP  string
	Chr  string
	Pos  int64
	A1   string
	A2   string
	N    float64
	MAF  float64 // NaN when the source has no MAF column
	Info float64 // NaN when the source has no INFO column

	// Beta and SE hold one value per LDR, in basis component order. They may
	// be longer than the number of components retained by the engine.
	Beta []float64
	SE   []float64

	// Scale is an explicit residual scale c such that Cov(β) = c·Σ. Zero
	// means "derive it from SE".
	Scale float64

	// Cov is an explicit K×K sampling covariance of Beta. When set it takes
	// precedence over every scalar variance model.
	Cov *mat.SymDense
}

// Stream is a lazy, single-pass, finite sequence of Records.
//
// Next returns io.EOF after the last record. A *RecordError reports a
// problem confined to one row; the caller may count it and continue. Any
// other error is fatal for the stream.
type Stream interface {
	Next(ctx context.Context) (*Record, error)
}

// ErrField reports a field that could not be parsed or is out of domain.
var ErrField = errors.New("sumstats: invalid field")

// ErrSchema reports a header that does not satisfy the Schema.
var ErrSchema = errors.New("sumstats: schema mismatch")

// RecordError is a recoverable, per-row error.
type RecordError struct {
	Line int    // 1-based line number, 0 when not file-backed
	SNP  string // SNP id when it could be read
	Err  error
}

func (e *RecordError) Error() string {
	if e.SNP != "" {
		return fmt.Sprintf("sumstats: line %d (%s): %v", e.Line, e.SNP, e.Err)
	}

	return fmt.Sprintf("sumstats: line %d: %v", e.Line, e.Err)
}

func (e *RecordError) Unwrap() error { return e.Err }

// IsRecordError reports whether err is a recoverable per-row error.
func IsRecordError(err error) bool {
	var re *RecordError

	return errors.As(err, &re)
}

// SliceStream serves records from memory.
type SliceStream struct {
	recs []*Record
	pos  int
}

// NewSliceStream returns a Stream over recs.
func NewSliceStream(recs ...*Record) *SliceStream {
	return &SliceStream{recs: recs}
}

// Next implements Stream.
func (s *SliceStream) Next(ctx context.Context) (*Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s.pos >= len(s.recs) {
		return nil, io.EOF
	}
	r := s.recs[s.pos]
	s.pos++

	return r, nil
}
