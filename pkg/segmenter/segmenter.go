package segmenter

import (
	"context"
	"fmt"
	"runtime"
	"time"

	"github.com/sirupsen/logrus"
	"gonum.org/v1/gonum/stat"

	"polsarseg/pkg/raster"
	"polsarseg/pkg/regiongrowing"
	"polsarseg/pkg/segment"
)

// Segmenter is the multi-level segmenter orchestrator.
//
// Typical use:
//
//	seg := segmenter.New()
//	if err := seg.Initialize(params); err != nil { ... }
//	out := &segmenter.OutputParameters{}
//	if err := seg.Execute(ctx, out); err != nil { ... }
//	labels := out.OutputRaster
type Segmenter struct {
	// params are the validated input parameters
	params InputParameters

	// initialized is set by a successful Initialize
	initialized bool

	// log is the logger taken from the parameters
	log logrus.FieldLogger
}

// New creates an uninitialized segmenter.
func New() *Segmenter {
	return &Segmenter{}
}

// Initialize validates params, including the strategy specific ones, and
// stores them for Execute.
//
// Parameters:
//   - params: input raster, bands, strategy and concurrency settings
//
// Returns:
//   - an error wrapping ErrInvalidParameter or the strategy error when the
//     parameters cannot be used
func (s *Segmenter) Initialize(params InputParameters) error {
	s.Reset()

	if err := params.Validate(); err != nil {
		return err
	}

	strategy, err := NewStrategy(params.StrategyName)
	if err != nil {
		return err
	}
	if err := strategy.Initialize(params.StrategyParams); err != nil {
		return fmt.Errorf("invalid %s parameters: %w", params.StrategyName, err)
	}

	params.InputRasterBands = append([]int(nil), params.InputRasterBands...)
	s.params = params
	s.log = params.Logger
	if s.log == nil {
		s.log = logrus.StandardLogger()
	}
	s.initialized = true
	return nil
}

// IsInitialized reports whether Initialize succeeded.
func (s *Segmenter) IsInitialized() bool {
	return s.initialized
}

// Reset clears the stored parameters.
func (s *Segmenter) Reset() {
	s.params = InputParameters{}
	s.initialized = false
	s.log = nil
}

// workers returns the number of workers to run.
func (s *Segmenter) workers() int {
	if !s.params.EnableThreadedProcessing {
		return 1
	}
	if s.params.MaxThreads > 0 {
		return s.params.MaxThreads
	}
	return runtime.NumCPU()
}

// blockGrid builds the blocks to segment.
func (s *Segmenter) blockGrid(workers int) (*blockGrid, error) {
	in := s.params.InputRaster
	geom := raster.GeometryOf(in)
	if !s.params.EnableBlockProcessing {
		return singleBlockGrid(geom), nil
	}

	total := geom.Pixels()
	maxPixels := total
	if s.params.MaxBlockSize > 0 {
		maxPixels = min(total, s.params.MaxBlockSize*s.params.MaxBlockSize)
	} else if workers > 1 {
		maxPixels = (total + workers - 1) / workers
	}
	// Blocks may shrink to a quarter of the bound so that overlaps still fit
	minPixels := max(1, min(maxPixels/4, minBlockPixels))

	g, err := calcBestBlockSize(geom.Rows, geom.Cols, minPixels, maxPixels, s.params.BlocksOverlapPercent)
	if err != nil {
		return nil, err
	}

	strategy, err := NewStrategy(s.params.StrategyName)
	if err != nil {
		return nil, err
	}
	if err := strategy.Initialize(s.params.StrategyParams); err != nil {
		return nil, err
	}
	if opt := strategy.OptimalBlocksOverlapSize(); opt > 0 {
		g.hOverlap = max(g.hOverlap, min(opt, g.width/4))
		g.vOverlap = max(g.vOverlap, min(opt, g.height/4))
		g.expandedWidth = g.width + 2*g.hOverlap
		g.expandedHeight = g.height + 2*g.vOverlap
	}
	if mem, err := strategy.MemUsageEstimation(len(s.params.InputRasterBands), g.expandedWidth*g.expandedHeight); err == nil {
		s.log.WithField("bytes_per_block", int64(mem)).Debug("Estimated block memory usage")
	}

	return buildBlockGrid(in, s.params.InputRasterBands, g)
}

// Execute segments the input raster and stores a single band label raster
// in out.OutputRaster. Label 0 marks pixels not assigned to any segment.
//
// Cancelling ctx aborts the run; workers stop before claiming another
// block and between pixel rows and merge steps of the current one. A
// failing block stops the blocks in progress the same way.
func (s *Segmenter) Execute(ctx context.Context, out *OutputParameters) error {
	if !s.initialized {
		return ErrNotInitialized
	}
	if out == nil {
		return fmt.Errorf("%w: nil output parameters", ErrInvalidParameter)
	}
	started := time.Now()

	workers := s.workers()
	grid, err := s.blockGrid(workers)
	if err != nil {
		return err
	}
	workers = min(workers, len(grid.blocks))

	s.log.WithFields(logrus.Fields{
		"rows":        s.params.InputRaster.Rows(),
		"cols":        s.params.InputRaster.Cols(),
		"block_rows":  grid.rows,
		"block_cols":  grid.cols,
		"workers":     workers,
		"strategy":    s.params.StrategyName,
		"input_bands": len(s.params.InputRasterBands),
	}).Info("Starting segmentation")

	if s.params.CutOffLinesFile != "" {
		if err := grid.lines.WriteTIFF(s.params.CutOffLinesFile, raster.GeometryOf(s.params.InputRaster)); err != nil {
			return fmt.Errorf("writing cut-off lines: %w", err)
		}
		s.log.WithField("file", s.params.CutOffLinesFile).Info("Cut-off lines saved")
	}

	factory := out.Factory
	if factory == nil {
		factory = raster.NewMemoryFactory
	}
	labels, err := factory(raster.GeometryOf(s.params.InputRaster), 1, out.Info)
	if err != nil {
		return fmt.Errorf("creating output raster: %w", err)
	}

	st := &schedulerState{blocks: grid.blocks}
	j := &job{
		in:             s.params.InputRaster,
		bands:          s.params.InputRasterBands,
		out:            labels,
		ids:            segment.NewIDManager(),
		strategyName:   s.params.StrategyName,
		strategyParams: s.params.StrategyParams,
		log:            s.log,
	}

	blockStats, err := collect(st, runWorkers(ctx, st, j, workers))
	if err != nil {
		s.log.WithError(err).Error("Segmentation failed")
		return err
	}

	out.OutputRaster = labels
	out.Summary = summarize(blockStats)
	s.log.WithFields(logrus.Fields{
		"segments":          out.Summary.Segments,
		"merges":            out.Summary.Merges,
		"mean_segment_size": out.Summary.MeanSegmentSize,
		"elapsed":           time.Since(started).String(),
	}).Info("Segmentation finished")
	return nil
}

func summarize(blockStats []regiongrowing.Stats) Summary {
	sum := Summary{Blocks: len(blockStats), BlockStats: blockStats}

	var sizes, weights []float64
	for _, bs := range blockStats {
		sum.Segments += bs.Segments
		sum.Merges += bs.Merges
		if bs.Segments > 0 {
			sizes = append(sizes, float64(bs.OwnedPixels)/float64(bs.Segments))
			weights = append(weights, float64(bs.Segments))
		}
	}
	if len(sizes) > 0 {
		sum.MeanSegmentSize = stat.Mean(sizes, weights)
	}
	return sum
}
