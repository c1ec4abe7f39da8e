package sumstats

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Reason names why QC dropped a SNP.
type Reason int

const (
	NonFinite    Reason = iota // missing or infinite effect, SE or N
	NonPositiveN               // N ≤ 0 or below MinN
	Ambiguous                  // strand-ambiguous or not a biallelic SNP
	LowMAF
	LowInfo
	NotExtracted
	OutOfRange
	Duplicate // SNP id already emitted; the first passing copy is kept
	numReasons
)

var reasonNames = [...]string{
	NonFinite:    "non-finite",
	NonPositiveN: "sample-size",
	Ambiguous:    "ambiguous-or-non-snp",
	LowMAF:       "maf",
	LowInfo:      "info",
	NotExtracted: "not-extracted",
	OutOfRange:   "out-of-range",
	Duplicate:    "duplicate",
}

func (r Reason) String() string {
	if r < 0 || r >= numReasons {
		return "unknown"
	}

	return reasonNames[r]
}

// Reasons lists every Reason in reporting order.
func Reasons() []Reason {
	out := make([]Reason, numReasons)
	for i := range out {
		out[i] = Reason(i)
	}

	return out
}

// Range is an inclusive genomic interval on one chromosome.
type Range struct {
	Chr        string
	Start, End int64
}

// Contains reports whether chr:pos falls inside r.
func (r Range) Contains(chr string, pos int64) bool {
	return chr == r.Chr && pos >= r.Start && pos <= r.End
}

// ParseRange parses "CHR:START,CHR:END", e.g. "3:1000000,3:2000000".
func ParseRange(s string) (Range, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 2 {
		return Range{}, fmt.Errorf("range %q: want CHR:START,CHR:END: %w", s, ErrField)
	}
	c1, p1, err := splitLocus(parts[0])
	if err != nil {
		return Range{}, fmt.Errorf("range %q: %w", s, err)
	}
	c2, p2, err := splitLocus(parts[1])
	if err != nil {
		return Range{}, fmt.Errorf("range %q: %w", s, err)
	}
	if c1 != c2 {
		return Range{}, fmt.Errorf("range %q: spans chromosomes %s and %s: %w", s, c1, c2, ErrField)
	}
	if p1 > p2 {
		return Range{}, fmt.Errorf("range %q: start after end: %w", s, ErrField)
	}

	return Range{Chr: c1, Start: p1, End: p2}, nil
}

func splitLocus(s string) (string, int64, error) {
	chr, pos, ok := strings.Cut(strings.TrimSpace(s), ":")
	if !ok || chr == "" {
		return "", 0, fmt.Errorf("locus %q: %w", s, ErrField)
	}
	p, err := strconv.ParseInt(pos, 10, 64)
	if err != nil || p < 0 {
		return "", 0, fmt.Errorf("locus %q: %w", s, ErrField)
	}

	return chr, p, nil
}

// QCOptions holds the single-pass pruning rules. Zero values disable the
// optional rules.
type QCOptions struct {
	MinMAF  float64
	MinInfo float64
	MinN    float64
	Extract map[string]struct{} // nil keeps every SNP
	Range   *Range
	// KeepAmbiguous disables the strand-ambiguity and non-SNP rule.
	KeepAmbiguous bool
}

// QC is a Stream that drops records failing QCOptions.
type QC struct {
	src     Stream
	opt     QCOptions
	seen    map[string]struct{}
	dropped [numReasons]int
}

// NewQC wraps src.
func NewQC(src Stream, opt QCOptions) *QC {
	return &QC{src: src, opt: opt, seen: make(map[string]struct{})}
}

// Dropped returns how many records were removed for reason r.
func (q *QC) Dropped(r Reason) int { return q.dropped[r] }

// DroppedTotal returns the number of removed records.
func (q *QC) DroppedTotal() int {
	n := 0
	for _, d := range q.dropped {
		n += d
	}

	return n
}

// Next implements Stream. Per-row errors of the source pass through.
func (q *QC) Next(ctx context.Context) (*Record, error) {
	for {
		rec, err := q.src.Next(ctx)
		if err != nil {
			return nil, err
		}
		if r, drop := q.check(rec); drop {
			q.dropped[r]++
			continue
		}
		if _, dup := q.seen[rec.SNP]; dup {
			q.dropped[Duplicate]++
			continue
		}
		q.seen[rec.SNP] = struct{}{}

		return rec, nil
	}
}

func (q *QC) check(rec *Record) (Reason, bool) {
	o := &q.opt
	if o.Extract != nil {
		if _, ok := o.Extract[rec.SNP]; !ok {
			return NotExtracted, true
		}
	}
	if o.Range != nil && !o.Range.Contains(rec.Chr, rec.Pos) {
		return OutOfRange, true
	}
	if !finite(rec.N) || !allFinite(rec.Beta) || !allFinite(rec.SE) {
		return NonFinite, true
	}
	if rec.N <= 0 || rec.N < o.MinN {
		return NonPositiveN, true
	}
	if !o.KeepAmbiguous && !unambiguous(rec.A1, rec.A2) {
		return Ambiguous, true
	}
	// a missing MAF or INFO only fails when a minimum is requested
	if o.MinMAF > 0 && !(rec.MAF >= o.MinMAF) {
		return LowMAF, true
	}
	if o.MinInfo > 0 && !(rec.Info >= o.MinInfo) {
		return LowInfo, true
	}

	return 0, false
}

var complement = map[string]string{"A": "T", "T": "A", "C": "G", "G": "C"}

// unambiguous reports a single-base, non-palindromic allele pair.
func unambiguous(a1, a2 string) bool {
	c, ok := complement[a2]
	if !ok {
		return false
	}
	_, ok = complement[a1]

	return ok && c != a1 && a1 != a2
}

func finite(v float64) bool { return !math.IsNaN(v) && !math.IsInf(v, 0) }

func allFinite(v []float64) bool {
	for _, x := range v {
		if !finite(x) {
			return false
		}
	}

	return true
}
