// Package signif decides which recovered voxels are reported.
//
// A voxel passes when p ≤ τ (inclusive). The Policy decides what a SNP emits
// from its passing voxels:
//
//	All     every passing voxel, in basis order, without buffering
//	Best    the single smallest p; ties go to the lowest voxel position
//	Ranked  every passing voxel by ascending p, ties in basis order
//
// A Selector holds at most one SNP's passing voxels.
package signif

import (
	"errors"
	"fmt"
	"math"
	"slices"
	"strings"

	"github.com/katalvlaran/voxelgwas/recovery"
)

// ErrThreshold reports τ outside (0, 1].
var ErrThreshold = errors.New("signif: threshold must be in (0, 1]")

// Policy selects what a SNP emits.
type Policy int

const (
	All Policy = iota
	Best
	Ranked
)

func (p Policy) String() string {
	switch p {
	case All:
		return "all"
	case Best:
		return "best"
	case Ranked:
		return "ranked"
	default:
		return fmt.Sprintf("Policy(%d)", int(p))
	}
}

// ParsePolicy accepts the String forms.
func ParsePolicy(s string) (Policy, error) {
	switch strings.ToLower(s) {
	case "all", "":
		return All, nil
	case "best":
		return Best, nil
	case "ranked":
		return Ranked, nil
	default:
		return 0, fmt.Errorf("signif: unknown policy %q", s)
	}
}

// Filter is an immutable threshold and policy.
type Filter struct {
	tau    float64
	policy Policy
}

// NewFilter validates τ and returns a Filter.
func NewFilter(tau float64, policy Policy) (*Filter, error) {
	if math.IsNaN(tau) || tau <= 0 || tau > 1 {
		return nil, fmt.Errorf("%w: %g", ErrThreshold, tau)
	}
	if policy < All || policy > Ranked {
		return nil, fmt.Errorf("signif: unknown policy %d", int(policy))
	}

	return &Filter{tau: tau, policy: policy}, nil
}

// Threshold returns τ.
func (f *Filter) Threshold() float64 { return f.tau }

// Policy returns the emission policy.
func (f *Filter) Policy() Policy { return f.policy }

// Pass reports p ≤ τ.
func (f *Filter) Pass(p float64) bool { return p <= f.tau }

// NewSelector returns a per-goroutine Selector.
func (f *Filter) NewSelector() *Selector {
	return &Selector{f: f}
}

// Selector applies a Filter to one SNP at a time. Not safe for concurrent use.
type Selector struct {
	f       *Filter
	buf     []recovery.VoxelResult
	best    recovery.VoxelResult
	hasBest bool
	emit    func(recovery.VoxelResult)
}

// Begin starts a SNP. Under All, passing voxels go straight to emit.
func (s *Selector) Begin(emit func(recovery.VoxelResult)) {
	s.emit = emit
	s.buf = s.buf[:0]
	s.hasBest = false
}

// Offer considers one voxel. Voxels must be offered in basis order.
func (s *Selector) Offer(r recovery.VoxelResult) {
	if !s.f.Pass(r.P) {
		return
	}
	switch s.f.policy {
	case All:
		s.emit(r)
	case Best:
		// strict less keeps the first (lowest position) among ties
		if !s.hasBest || r.P < s.best.P {
			s.best, s.hasBest = r, true
		}
	case Ranked:
		s.buf = append(s.buf, r)
	}
}

// Finish flushes the buffered voxels of the current SNP.
func (s *Selector) Finish() {
	switch s.f.policy {
	case Best:
		if s.hasBest {
			s.emit(s.best)
		}
	case Ranked:
		slices.SortStableFunc(s.buf, func(a, b recovery.VoxelResult) int {
			switch {
			case a.P < b.P:
				return -1
			case a.P > b.P:
				return 1
			default:
				return 0
			}
		})
		for _, r := range s.buf {
			s.emit(r)
		}
	}
	s.buf = s.buf[:0]
	s.hasBest = false
	s.emit = nil
}
