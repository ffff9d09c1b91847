// Package segmenter implements the multi-level, block parallel segmenter:
// it splits the input raster into blocks separated by edge-following
// cut-off profiles, segments every block with a pluggable strategy on a
// pool of workers and writes the resulting segment IDs to a label raster.
package segmenter

import (
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"polsarseg/pkg/raster"
	"polsarseg/pkg/regiongrowing"
)

var (
	// ErrInvalidParameter is returned for invalid segmenter parameters
	ErrInvalidParameter = errors.New("invalid segmenter parameter")

	// ErrNotInitialized is returned when executing before a successful Initialize
	ErrNotInitialized = errors.New("segmenter not initialized")

	// ErrAborted is returned when the segmentation run was aborted
	ErrAborted = errors.New("segmentation aborted")
)

// MaxBlocksOverlapPercent is the largest allowed blocks overlap.
const MaxBlocksOverlapPercent = 25

// InputParameters holds the segmenter execution parameters.
type InputParameters struct {
	// InputRaster is the raster to segment. It must allow concurrent reads.
	InputRaster raster.Raster

	// InputRasterBands lists, in order, the bands used as pixel features.
	InputRasterBands []int

	// StrategyName selects the registered merge strategy.
	StrategyName string

	// StrategyParams is handed to the strategy Initialize method; nil
	// selects the strategy defaults.
	StrategyParams any

	// EnableThreadedProcessing runs several workers concurrently.
	EnableThreadedProcessing bool

	// MaxThreads is the maximum number of workers, 0 means one per CPU.
	MaxThreads int

	// EnableBlockProcessing splits the raster into blocks.
	EnableBlockProcessing bool

	// MaxBlockSize is the maximum lateral size in pixels of an expanded
	// block. 0 lets the segmenter choose from the raster size and the
	// number of workers.
	MaxBlockSize int

	// BlocksOverlapPercent is the overlap between neighboring blocks as a
	// percentage of the block size, in [0, 25].
	BlocksOverlapPercent int

	// CutOffLinesFile, when set, receives a TIFF image of the cut-off
	// profiles used to split the raster.
	CutOffLinesFile string

	// Logger receives progress information; nil uses the logrus standard logger.
	Logger logrus.FieldLogger
}

// DefaultInputParameters returns parameters for a single threaded, single
// block Wishart segmentation. The input raster and bands must still be set.
func DefaultInputParameters() InputParameters {
	return InputParameters{
		StrategyName:             DefaultStrategyName,
		EnableThreadedProcessing: false,
		MaxThreads:               0,
		EnableBlockProcessing:    false,
		MaxBlockSize:             0,
		BlocksOverlapPercent:     0,
	}
}

// Validate checks the parameters that do not depend on the strategy.
func (p *InputParameters) Validate() error {
	if p.InputRaster == nil {
		return fmt.Errorf("%w: missing input raster", ErrInvalidParameter)
	}
	if p.InputRaster.Rows() <= 0 || p.InputRaster.Cols() <= 0 {
		return fmt.Errorf("%w: empty input raster", ErrInvalidParameter)
	}
	if len(p.InputRasterBands) == 0 {
		return fmt.Errorf("%w: no input bands", ErrInvalidParameter)
	}
	for _, band := range p.InputRasterBands {
		if band < 0 || band >= p.InputRaster.Bands() {
			return fmt.Errorf("%w: band %d not in [0,%d)", ErrInvalidParameter, band, p.InputRaster.Bands())
		}
	}
	if p.MaxThreads < 0 {
		return fmt.Errorf("%w: max threads %d", ErrInvalidParameter, p.MaxThreads)
	}
	if p.MaxBlockSize < 0 {
		return fmt.Errorf("%w: max block size %d", ErrInvalidParameter, p.MaxBlockSize)
	}
	if p.BlocksOverlapPercent < 0 || p.BlocksOverlapPercent > MaxBlocksOverlapPercent {
		return fmt.Errorf("%w: blocks overlap %d%% not in [0,%d]", ErrInvalidParameter,
			p.BlocksOverlapPercent, MaxBlocksOverlapPercent)
	}
	if p.StrategyName == "" {
		return fmt.Errorf("%w: missing strategy name", ErrInvalidParameter)
	}
	return nil
}

// OutputParameters describes the label raster to create and receives the
// results of Execute.
type OutputParameters struct {
	// Factory creates the output raster; nil uses an in-memory raster.
	Factory raster.Factory

	// Info is handed to Factory.
	Info map[string]string

	// OutputRaster is the generated single band label raster.
	OutputRaster raster.ReadWriter

	// Summary describes the finished run.
	Summary Summary
}

// Summary reports what a segmentation run produced.
type Summary struct {
	// Blocks is the number of segmented blocks
	Blocks int

	// Segments is the number of segments over all blocks
	Segments int

	// Merges is the number of accepted merges over all blocks
	Merges int

	// MeanSegmentSize is the average segment size in pixels
	MeanSegmentSize float64

	// BlockStats holds the per block statistics in grid order
	BlockStats []regiongrowing.Stats
}
