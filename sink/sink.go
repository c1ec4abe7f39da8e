// Package sink receives significant voxel results.
//
// A Sink sees SNPs in input order. Commit makes the output visible; Abort
// discards it. After either call the Sink rejects writes.
package sink

import (
	"errors"
	"slices"
	"sync"

	"github.com/katalvlaran/voxelgwas/recovery"
	"github.com/katalvlaran/voxelgwas/sumstats"
)

// ErrClosed is returned by a Sink after Commit or Abort.
var ErrClosed = errors.New("sink: closed")

// SNPResult is the emitted voxels of one SNP with its passthrough fields.
type SNPResult struct {
	Record *sumstats.Record
	Voxels []recovery.VoxelResult
}

// Sink is the result consumer.
type Sink interface {
	Write(r SNPResult) error
	Commit() error
	Abort() error
}

// Memory keeps results in memory.
type Memory struct {
	mu        sync.Mutex
	results   []SNPResult
	committed bool
	aborted   bool
}

// NewMemory returns an empty Memory sink.
func NewMemory() *Memory { return &Memory{} }

// Write implements Sink. The voxel slice is copied.
func (m *Memory) Write(r SNPResult) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.committed || m.aborted {
		return ErrClosed
	}
	r.Voxels = slices.Clone(r.Voxels)
	m.results = append(m.results, r)

	return nil
}

// Commit implements Sink.
func (m *Memory) Commit() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.committed || m.aborted {
		return ErrClosed
	}
	m.committed = true

	return nil
}

// Abort implements Sink and drops everything written.
func (m *Memory) Abort() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.committed {
		return ErrClosed
	}
	m.aborted = true
	m.results = nil

	return nil
}

// Results returns what was written.
func (m *Memory) Results() []SNPResult {
	m.mu.Lock()
	defer m.mu.Unlock()

	return slices.Clone(m.results)
}

// Committed reports whether Commit succeeded.
func (m *Memory) Committed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.committed
}

// Aborted reports whether Abort was called.
func (m *Memory) Aborted() bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.aborted
}

// Rows returns the number of voxel rows written.
func (m *Memory) Rows() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, r := range m.results {
		n += len(r.Voxels)
	}

	return n
}
