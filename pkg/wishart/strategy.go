package wishart

import (
	"context"
	"fmt"
	"unsafe"

	"polsarseg/internal/models"
	"polsarseg/pkg/raster"
	"polsarseg/pkg/regiongrowing"
	"polsarseg/pkg/segment"
)

// StrategyName is the registry name of the Wishart region growing strategy.
const StrategyName = "RegionGrowingWishart"

// Strategy is the Wishart region growing segmentation strategy. Each worker
// owns its own instance.
type Strategy struct {
	params      Params
	initialized bool
	engine      *regiongrowing.Engine
}

// NewStrategy returns an uninitialized strategy.
func NewStrategy() *Strategy {
	return &Strategy{}
}

// Initialize validates and stores the parameters. It accepts Params or
// *Params; nil selects the defaults.
func (s *Strategy) Initialize(params any) error {
	s.Reset()

	var p Params
	switch v := params.(type) {
	case nil:
		p = DefaultParams()
	case Params:
		p = v
	case *Params:
		if v == nil {
			p = DefaultParams()
		} else {
			p = *v
		}
	default:
		return fmt.Errorf("%w: unexpected parameters type %T", ErrInvalidParameter, params)
	}

	if err := p.Validate(); err != nil {
		return err
	}
	s.params = p
	s.initialized = true
	return nil
}

// Reset drops the parameters and the cached engine.
func (s *Strategy) Reset() {
	s.params = Params{}
	s.initialized = false
	s.engine = nil
}

// Params returns the active parameters.
func (s *Strategy) Params() Params {
	return s.params
}

// Execute segments one block.
func (s *Strategy) Execute(ctx context.Context, ids *segment.IDManager, in raster.Raster, bands []int,
	out raster.Writer, outBand int, block *models.SegmentsBlock) (regiongrowing.Stats, error) {
	if !s.initialized {
		return regiongrowing.Stats{}, fmt.Errorf("%w: strategy not initialized", ErrInvalidParameter)
	}

	if s.engine == nil {
		looks, err := s.params.EffectiveLooks(len(bands))
		if err != nil {
			return regiongrowing.Stats{}, err
		}
		merger, err := NewMerger(len(bands), looks)
		if err != nil {
			return regiongrowing.Stats{}, err
		}
		s.engine, err = regiongrowing.NewEngine(merger, regiongrowing.Params{
			Connectivity:     s.params.Connectivity,
			MinSegmentSize:   s.params.MinSegmentSize,
			GrowingLimit:     s.params.RegionGrowingLimit,
			GrowingThreshold: s.params.RegionGrowingConfLevel / 100,
			MergingLimit:     s.params.RegionMergingLimit,
			MergingThreshold: s.params.RegionMergingConfLevel / 100,
		})
		if err != nil {
			return regiongrowing.Stats{}, err
		}
	}

	return s.engine.Run(ctx, block, in, bands, ids, out, outBand)
}

// MemUsageEstimation returns the approximate number of bytes needed to
// segment pixels pixels with the given number of bands.
func (s *Strategy) MemUsageEstimation(bands, pixels int) (float64, error) {
	if !s.initialized {
		return 0, fmt.Errorf("%w: strategy not initialized", ErrInvalidParameter)
	}
	features := float64(pixels) * float64(bands) * float64(unsafe.Sizeof(complex128(0)))
	records := float64(pixels) * float64(unsafe.Sizeof(segment.Segment{})+6*unsafe.Sizeof(segment.Handle(0)))
	ids := float64(pixels) * float64(unsafe.Sizeof(models.SegmentID(0)))
	return features + records + ids, nil
}

// OptimalBlocksOverlapSize returns the overlap in pixels the strategy wants
// between blocks; zero lets the caller decide.
func (s *Strategy) OptimalBlocksOverlapSize() int {
	return 0
}
