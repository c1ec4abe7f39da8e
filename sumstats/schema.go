package sumstats

import (
	"fmt"
	"strconv"
	"strings"
)

// EffectKind selects how the effect columns are read.
type EffectKind int

const (
	// EffectBeta reads effects as-is (null value 0).
	EffectBeta EffectKind = iota
	// EffectOddsRatio reads odds ratios and stores log(OR) (null value 1).
	EffectOddsRatio
)

// ParseEffectKind accepts "beta" and "or" (case-insensitive).
func ParseEffectKind(s string) (EffectKind, error) {
	switch strings.ToLower(s) {
	case "beta", "":
		return EffectBeta, nil
	case "or":
		return EffectOddsRatio, nil
	default:
		return 0, fmt.Errorf("effect kind %q: %w", s, ErrSchema)
	}
}

// Schema names the columns of a summary-statistics header.
//
// Effect and SE columns are numbered: EffectPrefix+"1".."m" and
// SEPrefix+"1".."m" must both exist for the same m ≥ 1, numbered
// contiguously from 1.
type Schema struct {
	SNP  string
	Chr  string
	Pos  string
	A1   string
	A2   string
	N    string // empty: use FixedN
	MAF  string // optional
	Info string // optional

	EffectPrefix string
	SEPrefix     string
	Effect       EffectKind

	FixedN float64 // sample size when N is empty
}

// DefaultSchema returns the column names written by the LDR GWAS step.
func DefaultSchema() Schema {
	return Schema{
		SNP:          "SNP",
		Chr:          "CHR",
		Pos:          "POS",
		A1:           "A1",
		A2:           "A2",
		N:            "N",
		EffectPrefix: "BETA",
		SEPrefix:     "SE",
	}
}

// layout is a Schema resolved against one header.
type layout struct {
	snp, chr, pos, a1, a2 int
	n, maf, info          int // -1 when absent
	beta, se              []int
	width                 int
}

// resolve validates the header once and returns column positions.
func (s Schema) resolve(header []string) (layout, error) {
	idx := make(map[string]int, len(header))
	for i, h := range header {
		if _, dup := idx[h]; dup {
			return layout{}, fmt.Errorf("duplicate column %q: %w", h, ErrSchema)
		}
		idx[h] = i
	}
	need := func(name, role string) (int, error) {
		if name == "" {
			return -1, fmt.Errorf("no column configured for %s: %w", role, ErrSchema)
		}
		i, ok := idx[name]
		if !ok {
			return -1, fmt.Errorf("%s column %q (case sensitive) not in header: %w", role, name, ErrSchema)
		}
		return i, nil
	}
	opt := func(name, role string) (int, error) {
		if name == "" {
			return -1, nil
		}
		return need(name, role)
	}

	var l layout
	var err error
	if l.snp, err = need(s.SNP, "SNP"); err != nil {
		return l, err
	}
	if l.chr, err = need(s.Chr, "CHR"); err != nil {
		return l, err
	}
	if l.pos, err = need(s.Pos, "POS"); err != nil {
		return l, err
	}
	if l.a1, err = need(s.A1, "A1"); err != nil {
		return l, err
	}
	if l.a2, err = need(s.A2, "A2"); err != nil {
		return l, err
	}
	if l.n, err = opt(s.N, "N"); err != nil {
		return l, err
	}
	if l.n < 0 && !(s.FixedN > 0) {
		return l, fmt.Errorf("either an N column or a positive fixed N is required: %w", ErrSchema)
	}
	if l.maf, err = opt(s.MAF, "MAF"); err != nil {
		return l, err
	}
	if l.info, err = opt(s.Info, "INFO"); err != nil {
		return l, err
	}

	l.beta = numbered(idx, s.EffectPrefix)
	l.se = numbered(idx, s.SEPrefix)
	if len(l.beta) == 0 {
		return l, fmt.Errorf("no %s1.. effect columns: %w", s.EffectPrefix, ErrSchema)
	}
	if len(l.beta) != len(l.se) {
		return l, fmt.Errorf("%d effect columns but %d SE columns: %w", len(l.beta), len(l.se), ErrSchema)
	}
	l.width = len(header)

	return l, nil
}

// numbered collects prefix1, prefix2, ... until the first gap.
func numbered(idx map[string]int, prefix string) []int {
	if prefix == "" {
		return nil
	}
	var out []int
	for j := 1; ; j++ {
		i, ok := idx[prefix+strconv.Itoa(j)]
		if !ok {
			return out
		}
		out = append(out, i)
	}
}
