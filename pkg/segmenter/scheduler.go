package segmenter

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"

	"polsarseg/internal/models"
	"polsarseg/pkg/raster"
	"polsarseg/pkg/regiongrowing"
	"polsarseg/pkg/segment"
)

// schedulerState is shared by all workers of a run. One mutex guards the
// blocks status, the abort flag and the running workers counter.
type schedulerState struct {
	mu      sync.Mutex
	blocks  []models.SegmentsBlock
	abort   bool
	running int
	errs    []error

	// cancel stops the context handed to the strategies, so blocks in
	// progress see the abort at their next row or merge loop check
	cancel context.CancelFunc
}

// fail records err, raises the abort flag and cancels in-progress blocks.
// Cancellations caused by an earlier failure are not recorded again.
func (st *schedulerState) fail(err error) {
	st.mu.Lock()
	defer st.mu.Unlock()
	if st.abort && errors.Is(err, context.Canceled) {
		return
	}
	st.abort = true
	st.errs = append(st.errs, err)
	if st.cancel != nil {
		st.cancel()
	}
}

// claim moves block idx to UnderSegmentation. It returns false when the run
// is aborting or the block was already taken.
func (st *schedulerState) claim(idx int) (*models.SegmentsBlock, bool) {
	st.mu.Lock()
	defer st.mu.Unlock()
	if st.abort {
		return nil, false
	}
	b := &st.blocks[idx]
	if b.Status != models.BlockNotProcessed {
		return nil, false
	}
	if err := b.Advance(models.BlockUnderSegmentation); err != nil {
		return nil, false
	}
	return b, true
}

// finish marks a claimed block as segmented.
func (st *schedulerState) finish(b *models.SegmentsBlock) error {
	st.mu.Lock()
	defer st.mu.Unlock()
	return b.Advance(models.BlockSegmented)
}

func (st *schedulerState) aborted() bool {
	st.mu.Lock()
	defer st.mu.Unlock()
	return st.abort
}

// blockResult is sent to the coordinator every time a block is segmented.
type blockResult struct {
	index  int
	worker int
	stats  regiongrowing.Stats
}

// job bundles what every worker needs to segment blocks.
type job struct {
	in             raster.Raster
	bands          []int
	out            raster.Writer
	ids            *segment.IDManager
	strategyName   string
	strategyParams any
	log            logrus.FieldLogger
}

// runWorkers segments every block of st with workers goroutines. Block
// indices are handed out through a channel in row-major order, so each
// block is claimed exactly once; completions are reported on results,
// which is closed once every worker has exited.
func runWorkers(ctx context.Context, st *schedulerState, j *job, workers int) <-chan blockResult {
	ctx, cancel := context.WithCancel(ctx)

	work := make(chan int, len(st.blocks))
	for i := range st.blocks {
		work <- i
	}
	close(work)

	results := make(chan blockResult, len(st.blocks))

	st.mu.Lock()
	st.running = workers
	st.cancel = cancel
	st.mu.Unlock()

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(worker int) {
			defer wg.Done()
			defer func() {
				st.mu.Lock()
				st.running--
				st.mu.Unlock()
			}()
			segmentBlocks(ctx, st, j, worker, work, results)
		}(w)
	}

	go func() {
		wg.Wait()
		cancel()
		close(results)
	}()

	return results
}

// segmentBlocks is the body of one worker.
func segmentBlocks(ctx context.Context, st *schedulerState, j *job, worker int, work <-chan int, results chan<- blockResult) {
	// Strategy construction is serialized with the other shared state
	st.mu.Lock()
	strategy, err := NewStrategy(j.strategyName)
	if err == nil {
		err = strategy.Initialize(j.strategyParams)
	}
	st.mu.Unlock()
	if err != nil {
		st.fail(fmt.Errorf("worker %d: initializing strategy: %w", worker, err))
		return
	}

	for idx := range work {
		if err := ctx.Err(); err != nil {
			st.fail(err)
			return
		}

		b, ok := st.claim(idx)
		if !ok {
			if st.aborted() {
				return
			}
			continue
		}

		log := j.log.WithFields(logrus.Fields{
			"worker":    worker,
			"block_row": b.MatrixRow,
			"block_col": b.MatrixCol,
		})
		log.Debug("Segmenting block")

		writer := raster.NewBlockWriter(j.out, b.StartX, b.StartY, b.Width, b.Height)
		stats, err := strategy.Execute(ctx, j.ids, j.in, j.bands, writer, 0, b)
		if err != nil {
			log.WithError(err).Error("Block segmentation failed")
			st.fail(fmt.Errorf("block (%d,%d): %w", b.MatrixRow, b.MatrixCol, err))
			return
		}

		if err := st.finish(b); err != nil {
			st.fail(err)
			return
		}
		log.WithFields(logrus.Fields{
			"segments": stats.Segments,
			"merges":   stats.Merges,
		}).Debug("Block segmented")

		results <- blockResult{index: idx, worker: worker, stats: stats}
	}
}

// collect drains results and reports the run outcome.
func collect(st *schedulerState, results <-chan blockResult) ([]regiongrowing.Stats, error) {
	stats := make([]regiongrowing.Stats, len(st.blocks))
	for res := range results {
		stats[res.index] = res.stats
	}

	st.mu.Lock()
	defer st.mu.Unlock()
	if len(st.errs) > 0 {
		return stats, fmt.Errorf("%w: %w", ErrAborted, errors.Join(st.errs...))
	}
	for i := range st.blocks {
		if st.blocks[i].Status != models.BlockSegmented {
			return stats, fmt.Errorf("%w: block (%d,%d) left %s", ErrAborted,
				st.blocks[i].MatrixRow, st.blocks[i].MatrixCol, st.blocks[i].Status)
		}
	}
	return stats, nil
}
