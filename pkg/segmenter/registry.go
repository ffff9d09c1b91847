package segmenter

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"polsarseg/internal/models"
	"polsarseg/pkg/raster"
	"polsarseg/pkg/regiongrowing"
	"polsarseg/pkg/segment"
	"polsarseg/pkg/wishart"
)

// DefaultStrategyName is the strategy used when none is configured.
const DefaultStrategyName = wishart.StrategyName

// Strategy segments single blocks. Every worker builds its own instance,
// so implementations need not be safe for concurrent use.
type Strategy interface {
	// Initialize validates and stores the strategy specific parameters.
	Initialize(params any) error

	// Execute segments block, writing segment IDs into outBand of out.
	Execute(ctx context.Context, ids *segment.IDManager, in raster.Raster, bands []int,
		out raster.Writer, outBand int, block *models.SegmentsBlock) (regiongrowing.Stats, error)

	// MemUsageEstimation returns the bytes needed for a block of pixels pixels.
	MemUsageEstimation(bands, pixels int) (float64, error)

	// OptimalBlocksOverlapSize returns the preferred blocks overlap in
	// pixels, 0 for no preference.
	OptimalBlocksOverlapSize() int
}

// StrategyFactory builds a new strategy instance.
type StrategyFactory func() Strategy

var (
	registryMu sync.RWMutex
	registry   = map[string]StrategyFactory{
		wishart.StrategyName: func() Strategy { return wishart.NewStrategy() },
	}
)

// RegisterStrategy makes a strategy available under name.
func RegisterStrategy(name string, factory StrategyFactory) error {
	if name == "" || factory == nil {
		return fmt.Errorf("%w: empty strategy registration", ErrInvalidParameter)
	}
	registryMu.Lock()
	defer registryMu.Unlock()
	if _, ok := registry[name]; ok {
		return fmt.Errorf("%w: strategy %q already registered", ErrInvalidParameter, name)
	}
	registry[name] = factory
	return nil
}

// NewStrategy builds the strategy registered under name.
func NewStrategy(name string) (Strategy, error) {
	registryMu.RLock()
	factory, ok := registry[name]
	registryMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: unknown strategy %q", ErrInvalidParameter, name)
	}
	return factory(), nil
}

// Strategies lists the registered strategy names.
func Strategies() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
