package pipeline

import (
	"fmt"
	"runtime"

	"github.com/katalvlaran/voxelgwas/sumstats"
)

// DefaultBlockSize is the number of SNPs per block.
const DefaultBlockSize = 256

// Observer receives run events. Implementations must be safe for concurrent
// use; events are delivered from the writer goroutine in input order.
type Observer interface {
	// RecordSkipped reports a record that produced no statistics. rec is nil
	// when the row could not be parsed.
	RecordSkipped(rec *sumstats.Record, err error)
	// BlockDone reports a block handed to the sink.
	BlockDone(b BlockStats)
}

// BlockStats summarizes one written block.
type BlockStats struct {
	Seq     int
	SNPs    int
	Skipped int
	Invalid int
	Rows    int
}

// NopObserver ignores every event.
type NopObserver struct{}

func (NopObserver) RecordSkipped(*sumstats.Record, error) {}
func (NopObserver) BlockDone(BlockStats)                  {}

// Option configures New.
type Option func(*options)

type options struct {
	workers int
	block   int
	obs     Observer
	onBlock func(seq int) // called by a worker before it starts a block
}

func defaultOptions() options {
	return options{workers: runtime.GOMAXPROCS(0), block: DefaultBlockSize, obs: NopObserver{}}
}

// WithWorkers sets the number of recovery goroutines. Panics if n < 1.
func WithWorkers(n int) Option {
	if n < 1 {
		panic(fmt.Sprintf("pipeline: WithWorkers(%d): must be ≥ 1", n))
	}

	return func(o *options) { o.workers = n }
}

// WithBlockSize sets SNPs per block. Panics if n < 1.
func WithBlockSize(n int) Option {
	if n < 1 {
		panic(fmt.Sprintf("pipeline: WithBlockSize(%d): must be ≥ 1", n))
	}

	return func(o *options) { o.block = n }
}

// WithObserver installs an event Observer. nil restores NopObserver.
func WithObserver(obs Observer) Option {
	return func(o *options) {
		if obs == nil {
			obs = NopObserver{}
		}
		o.obs = obs
	}
}

// MultiObserver fans events out to several observers in order.
type MultiObserver []Observer

func (m MultiObserver) RecordSkipped(rec *sumstats.Record, err error) {
	for _, o := range m {
		o.RecordSkipped(rec, err)
	}
}

func (m MultiObserver) BlockDone(b BlockStats) {
	for _, o := range m {
		o.BlockDone(b)
	}
}
