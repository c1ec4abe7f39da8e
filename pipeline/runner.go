package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/katalvlaran/voxelgwas/recovery"
	"github.com/katalvlaran/voxelgwas/signif"
	"github.com/katalvlaran/voxelgwas/sink"
	"github.com/katalvlaran/voxelgwas/sumstats"
)

// ErrNilComponent is returned by New when the engine, filter or sink is nil.
var ErrNilComponent = errors.New("pipeline: nil component")

// Summary describes a finished or failed run.
type Summary struct {
	RunID         string
	SNPsRead      int // records and unparsable rows taken from the stream
	Excluded      int // records the stream itself removed, see DropCounter
	SNPsProcessed int // records recovered
	Malformed     int // unparsable rows and records rejected by the engine
	InvalidVoxels int // voxels dropped for non-positive variance, summed over SNPs
	Rows          int // voxel rows written
	SNPsWithHits  int
	Elapsed       time.Duration
}

// DropCounter is implemented by streams that filter records before handing
// them out, such as *sumstats.QC. Run copies DroppedTotal into
// Summary.Excluded.
type DropCounter interface {
	DroppedTotal() int
}

// Runner wires an Engine, a Filter and a Sink.
type Runner struct {
	engine *recovery.Engine
	filter *signif.Filter
	sink   sink.Sink
	opt    options
}

// New returns a Runner.
func New(engine *recovery.Engine, filter *signif.Filter, out sink.Sink, opts ...Option) (*Runner, error) {
	if engine == nil || filter == nil || out == nil {
		return nil, ErrNilComponent
	}
	o := defaultOptions()
	for _, fn := range opts {
		fn(&o)
	}

	return &Runner{engine: engine, filter: filter, sink: out, opt: o}, nil
}

// item is one stream entry: a record or a per-row read error.
type item struct {
	rec     *sumstats.Record
	err     error
	voxels  []recovery.VoxelResult
	invalid int
}

type block struct {
	seq   int
	items []item
}

// Run consumes stream to the end and commits the sink, or aborts it on the
// first fatal error. The Summary is filled in both cases.
//
// Stages:
//  1. Reader: stream → numbered blocks of at most BlockSize entries.
//  2. Workers: recover and select each block with private scratch state.
//  3. Writer: reorder by sequence number, write, report, count.
//
// At most 2×workers blocks are between the reader and the end of flush, so a
// slow block holds back the reader instead of growing the reorder buffer.
func (r *Runner) Run(ctx context.Context, stream sumstats.Stream) (Summary, error) {
	start := time.Now()
	sum := Summary{RunID: uuid.NewString()}

	g, gctx := errgroup.WithContext(ctx)
	blocks := make(chan *block, r.opt.workers)
	done := make(chan *block, r.opt.workers)
	slots := make(chan struct{}, r.maxInFlight())

	g.Go(func() error {
		defer close(blocks)
		n, err := r.read(gctx, stream, blocks, slots)
		sum.SNPsRead = n

		return err
	})

	var wg sync.WaitGroup
	for i := 0; i < r.opt.workers; i++ {
		wg.Add(1)
		g.Go(func() error {
			defer wg.Done()
			return r.work(gctx, blocks, done)
		})
	}
	go func() {
		wg.Wait()
		close(done)
	}()

	g.Go(func() error {
		return r.write(ctx, done, slots, &sum)
	})

	err := g.Wait()
	sum.Elapsed = time.Since(start)
	if dc, ok := stream.(DropCounter); ok {
		sum.Excluded = dc.DroppedTotal()
	}
	if err != nil {
		if aerr := r.sink.Abort(); aerr != nil {
			err = errors.Join(err, aerr)
		}
		return sum, fmt.Errorf("pipeline: run %s: %w", sum.RunID, err)
	}
	if err := r.sink.Commit(); err != nil {
		return sum, fmt.Errorf("pipeline: run %s: %w", sum.RunID, err)
	}

	return sum, nil
}

func (r *Runner) maxInFlight() int { return 2 * r.opt.workers }

// read batches the stream. Per-row errors travel with the block so the
// writer can report them in order. Each block takes a slot that the writer
// returns after flushing it.
func (r *Runner) read(ctx context.Context, stream sumstats.Stream, out chan<- *block, slots chan<- struct{}) (int, error) {
	n, seq := 0, 0
	b := &block{}
	send := func() error {
		b.seq = seq
		select {
		case slots <- struct{}{}:
		case <-ctx.Done():
			return ctx.Err()
		}
		select {
		case out <- b:
		case <-ctx.Done():
			return ctx.Err()
		}
		seq++
		b = &block{items: make([]item, 0, r.opt.block)}

		return nil
	}
	for {
		rec, err := stream.Next(ctx)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil && !sumstats.IsRecordError(err) {
			return n, err
		}
		n++
		b.items = append(b.items, item{rec: rec, err: err})
		if len(b.items) == r.opt.block {
			if err := send(); err != nil {
				return n, err
			}
		}
	}
	if len(b.items) > 0 {
		return n, send()
	}

	return n, nil
}

func (r *Runner) work(ctx context.Context, in <-chan *block, out chan<- *block) error {
	w := r.engine.NewWorker()
	sel := r.filter.NewSelector()
	for b := range in {
		if err := ctx.Err(); err != nil {
			return err
		}
		if r.opt.onBlock != nil {
			r.opt.onBlock(b.seq)
		}
		for i := range b.items {
			it := &b.items[i]
			if it.err != nil {
				continue
			}
			sel.Begin(func(v recovery.VoxelResult) { it.voxels = append(it.voxels, v) })
			st, err := w.Recover(it.rec, sel.Offer)
			if err != nil {
				if !errors.Is(err, recovery.ErrMalformedRecord) {
					return err
				}
				it.err = err
				it.voxels = nil
				sel.Finish()
				continue
			}
			sel.Finish()
			it.invalid = st.Invalid
		}
		select {
		case out <- b:
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	return nil
}

// write drains finished blocks in sequence order. It checks the caller's
// context between blocks.
func (r *Runner) write(ctx context.Context, in <-chan *block, slots <-chan struct{}, sum *Summary) error {
	pending := make(map[int]*block)
	next := 0
	for b := range in {
		pending[b.seq] = b
		for {
			nb, ok := pending[next]
			if !ok {
				break
			}
			delete(pending, next)
			next++
			if err := ctx.Err(); err != nil {
				return err
			}
			if err := r.flush(nb, sum); err != nil {
				return err
			}
			<-slots
		}
	}

	return nil
}

func (r *Runner) flush(b *block, sum *Summary) error {
	bs := BlockStats{Seq: b.seq, SNPs: len(b.items)}
	for _, it := range b.items {
		if it.err != nil {
			bs.Skipped++
			r.opt.obs.RecordSkipped(it.rec, it.err)
			continue
		}
		bs.Invalid += it.invalid
		if len(it.voxels) == 0 {
			continue
		}
		if err := r.sink.Write(sink.SNPResult{Record: it.rec, Voxels: it.voxels}); err != nil {
			return err
		}
		bs.Rows += len(it.voxels)
		sum.SNPsWithHits++
	}
	sum.SNPsProcessed += bs.SNPs - bs.Skipped
	sum.Malformed += bs.Skipped
	sum.InvalidVoxels += bs.Invalid
	sum.Rows += bs.Rows
	r.opt.obs.BlockDone(bs)

	return nil
}
