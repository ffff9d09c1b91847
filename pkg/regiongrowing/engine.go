package regiongrowing

import (
	"context"
	"errors"
	"fmt"
	"math"

	"polsarseg/internal/models"
	"polsarseg/pkg/cutoff"
	"polsarseg/pkg/raster"
	"polsarseg/pkg/segment"
)

// ErrInvalidParameter is returned for an unusable engine configuration.
var ErrInvalidParameter = errors.New("invalid region growing parameter")

// Params drives the merge phases.
type Params struct {
	// Connectivity selects the pixel neighborhood used to link segments
	Connectivity models.Connectivity

	// MinSegmentSize forces merges of smaller segments in a final phase
	MinSegmentSize int

	// GrowingLimit is the maximum number of region growing cycles
	GrowingLimit int

	// GrowingThreshold is the dissimilarity below which growing merges happen
	GrowingThreshold float64

	// MergingLimit is the maximum number of region merging cycles
	MergingLimit int

	// MergingThreshold is the dissimilarity below which merging happens
	MergingThreshold float64
}

// Validate checks the phase parameters.
func (p Params) Validate() error {
	switch {
	case p.Connectivity != models.VonNeumann && p.Connectivity != models.Moore:
		return fmt.Errorf("%w: connectivity %v", ErrInvalidParameter, p.Connectivity)
	case p.MinSegmentSize <= 0:
		return fmt.Errorf("%w: minimum segment size %d", ErrInvalidParameter, p.MinSegmentSize)
	case p.GrowingLimit <= 0:
		return fmt.Errorf("%w: growing limit %d", ErrInvalidParameter, p.GrowingLimit)
	case p.MergingLimit <= 0:
		return fmt.Errorf("%w: merging limit %d", ErrInvalidParameter, p.MergingLimit)
	case math.IsNaN(p.GrowingThreshold) || math.IsNaN(p.MergingThreshold):
		return fmt.Errorf("%w: NaN threshold", ErrInvalidParameter)
	}
	return nil
}

// Stats summarizes one block run.
type Stats struct {
	OwnedPixels int
	Segments    int
	Merges      int
	Cycles      int
}

// Engine segments one block at a time. An Engine is not safe for
// concurrent use; each worker owns one and reuses its arena across blocks.
type Engine struct {
	params Params
	merger Merger

	arena segment.Arena
	list  *segment.ActiveList

	// ids is the block-sized matrix of segment IDs, 0 for unowned pixels
	ids    []models.SegmentID
	width  int
	height int

	candidate, best segment.Handle
	idm             *segment.IDManager
	iteration       int
	stats           Stats
}

// NewEngine returns an engine using merger for the dissimilarity model.
func NewEngine(merger Merger, params Params) (*Engine, error) {
	if merger == nil {
		return nil, fmt.Errorf("%w: nil merger", ErrInvalidParameter)
	}
	if err := params.Validate(); err != nil {
		return nil, err
	}
	return &Engine{params: params, merger: merger}, nil
}

// Run segments block, reading features from the given bands of in and
// writing the resulting segment IDs into outBand of out in full raster
// coordinates. IDs come from idm, which may be shared across engines.
func (e *Engine) Run(ctx context.Context, block *models.SegmentsBlock, in raster.Raster, bands []int,
	idm *segment.IDManager, out raster.Writer, outBand int) (Stats, error) {
	if err := e.Initialize(ctx, block, in, bands, idm); err != nil {
		return Stats{}, err
	}
	if err := e.Grow(ctx); err != nil {
		return e.stats, err
	}
	if err := e.Flush(block, out, outBand); err != nil {
		return e.stats, err
	}
	return e.stats, nil
}

// Initialize creates one segment per owned pixel of block, in row-major
// order, and links it to its already created neighbors.
func (e *Engine) Initialize(ctx context.Context, block *models.SegmentsBlock, in raster.Raster, bands []int,
	idm *segment.IDManager) error {
	if idm == nil {
		return fmt.Errorf("%w: nil id manager", ErrInvalidParameter)
	}
	if len(bands) != e.merger.FeaturesSize() {
		return fmt.Errorf("%w: %d bands for %d features", ErrInvalidParameter, len(bands), e.merger.FeaturesSize())
	}
	if block.Width <= 0 || block.Height <= 0 {
		return fmt.Errorf("%w: empty block %dx%d", ErrInvalidParameter, block.Width, block.Height)
	}
	if err := cutoff.ValidateBlockProfiles(block); err != nil {
		return err
	}

	e.idm = idm
	e.width, e.height = block.Width, block.Height
	e.iteration = 0
	e.stats = Stats{}

	pixels := block.Pixels()
	if err := e.arena.Initialize(pixels+segment.AuxiliarySegments, len(bands)); err != nil {
		return fmt.Errorf("initializing segments pool: %w", err)
	}
	e.list = segment.NewActiveList(&e.arena)

	aux := make([]segment.Handle, segment.AuxiliarySegments)
	for i := range aux {
		h, err := e.arena.Next()
		if err != nil {
			return err
		}
		e.arena.At(h).Disabled = true
		aux[i] = h
	}
	e.candidate, e.best = aux[0], aux[1]

	if cap(e.ids) < pixels {
		e.ids = make([]models.SegmentID, pixels)
	} else {
		e.ids = e.ids[:pixels]
		for i := range e.ids {
			e.ids[i] = models.NoSegment
		}
	}

	handles := make([]segment.Handle, pixels)
	rowIDs := make([]models.SegmentID, 0, e.width)

	for row := 0; row < e.height; row++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		var err error
		rowIDs, err = idm.NewIDs(e.width, rowIDs[:0])
		if err != nil {
			return fmt.Errorf("allocating segment ids: %w", err)
		}
		used := 0

		for col := 0; col < e.width; col++ {
			idx := row*e.width + col
			handles[idx] = segment.Nil
			if !block.Owns(col, row) {
				continue
			}

			h, err := e.arena.Next()
			if err != nil {
				return err
			}
			s := e.arena.At(h)
			s.ID = rowIDs[used]
			used++
			s.Size = 1
			s.XStart, s.XBound = col, col+1
			s.YStart, s.YBound = row, row+1

			for i, band := range bands {
				v, err := in.Value(block.StartX+col, block.StartY+row, band)
				if err != nil {
					return fmt.Errorf("reading pixel features: %w", err)
				}
				s.Features[i] = v
			}

			e.linkInitial(handles, h, col, row)
			e.list.PushBack(h)
			handles[idx] = h
			e.ids[idx] = s.ID
			e.stats.OwnedPixels++
		}

		if used < len(rowIDs) {
			if err := idm.Release(rowIDs[used:]...); err != nil {
				return fmt.Errorf("releasing unused segment ids: %w", err)
			}
		}
	}

	e.stats.Segments = e.list.Len()
	return nil
}

// linkInitial links h to the previously created pixels around (col, row).
func (e *Engine) linkInitial(handles []segment.Handle, h segment.Handle, col, row int) {
	link := func(c, r int) {
		if c < 0 || r < 0 || c >= e.width {
			return
		}
		if n := handles[r*e.width+c]; n != segment.Nil {
			e.arena.Link(h, n)
		}
	}
	link(col, row-1)
	link(col-1, row)
	if e.params.Connectivity == models.Moore {
		link(col-1, row-1)
		link(col+1, row-1)
	}
}

// Grow runs the region growing, region merging and minimum size phases.
func (e *Engine) Grow(ctx context.Context) error {
	if e.list == nil {
		return fmt.Errorf("%w: engine not initialized", ErrInvalidParameter)
	}

	phases := []struct {
		limit     int
		threshold float64
		forced    bool
	}{
		{e.params.GrowingLimit, e.params.GrowingThreshold, false},
		{e.params.MergingLimit, e.params.MergingThreshold, false},
	}
	for _, ph := range phases {
		for i := 0; i < ph.limit; i++ {
			merges, err := e.cycle(ctx, ph.threshold, ph.forced)
			if err != nil {
				return err
			}
			if merges == 0 {
				break
			}
		}
	}

	if e.params.MinSegmentSize > 1 {
		for {
			merges, err := e.cycle(ctx, math.Inf(1), true)
			if err != nil {
				return err
			}
			if merges == 0 {
				break
			}
		}
	}

	e.stats.Segments = e.list.Len()
	return nil
}

// cycle walks the active list once. Every segment not yet merged in this
// cycle is merged with its most similar neighbor that was not merged
// either, provided the dissimilarity is below threshold. In forced mode
// only undersized segments are considered, and they take their most
// similar neighbor whatever its score or merge state.
func (e *Engine) cycle(ctx context.Context, threshold float64, forced bool) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	e.iteration++
	e.stats.Cycles++

	merges := 0
	for h := e.list.Head(); h != segment.Nil; {
		if err := ctx.Err(); err != nil {
			e.stats.Merges += merges
			return merges, err
		}
		next := e.list.Next(h)
		s := e.arena.At(h)

		if s.MergeIteration == e.iteration || (forced && s.Size >= e.params.MinSegmentSize) {
			h = next
			continue
		}

		bestScore, bestNeighbor := math.Inf(1), segment.Nil
		for _, n := range s.Neighbors {
			ns := e.arena.At(n)
			if !forced && ns.MergeIteration == e.iteration {
				continue
			}
			score := e.merger.Dissimilarity(s, ns, e.arena.At(e.candidate))
			if bestNeighbor == segment.Nil || score < bestScore {
				bestScore, bestNeighbor = score, n
				e.candidate, e.best = e.best, e.candidate
			}
		}

		if bestNeighbor != segment.Nil && (forced || bestScore < threshold) {
			survivor, err := e.merge(h, bestNeighbor, e.best)
			if err != nil {
				return merges, err
			}
			merges++
			// When h survives, its absorbed neighbor may have been next
			if survivor == h && next == bestNeighbor {
				next = e.list.Next(h)
			}
		}
		h = next
	}

	e.stats.Merges += merges
	return merges, nil
}

// merge folds the smaller of h1 and h2 into the larger one using the
// previewed features and returns the survivor.
func (e *Engine) merge(h1, h2, preview segment.Handle) (segment.Handle, error) {
	survivor, absorbed := h1, h2
	if e.arena.At(h2).Size > e.arena.At(h1).Size {
		survivor, absorbed = h2, h1
	}
	sv, ab := e.arena.At(survivor), e.arena.At(absorbed)

	e.merger.MergeFeatures(sv, ab, e.arena.At(preview))

	for y := ab.YStart; y < ab.YBound; y++ {
		row := e.ids[y*e.width : (y+1)*e.width]
		for x := ab.XStart; x < ab.XBound; x++ {
			if row[x] == ab.ID {
				row[x] = sv.ID
			}
		}
	}

	sv.Size += ab.Size
	sv.XStart = min(sv.XStart, ab.XStart)
	sv.XBound = max(sv.XBound, ab.XBound)
	sv.YStart = min(sv.YStart, ab.YStart)
	sv.YBound = max(sv.YBound, ab.YBound)
	sv.MergeIteration = e.iteration
	ab.MergeIteration = e.iteration

	released := ab.ID
	e.arena.Absorb(e.list, survivor, absorbed)
	ab.ID = models.NoSegment
	if err := e.idm.Release(released); err != nil {
		return survivor, fmt.Errorf("releasing merged segment id: %w", err)
	}
	return survivor, nil
}

// Flush writes the IDs matrix into out at the block origin. Unowned pixels
// are left untouched.
func (e *Engine) Flush(block *models.SegmentsBlock, out raster.Writer, band int) error {
	if block.Width != e.width || block.Height != e.height {
		return fmt.Errorf("%w: block %dx%d does not match engine state %dx%d",
			ErrInvalidParameter, block.Width, block.Height, e.width, e.height)
	}
	for row := 0; row < e.height; row++ {
		for col := 0; col < e.width; col++ {
			id := e.ids[row*e.width+col]
			if id == models.NoSegment {
				continue
			}
			if err := out.SetValue(block.StartX+col, block.StartY+row, band, complex(float64(id), 0)); err != nil {
				return fmt.Errorf("writing segment ids: %w", err)
			}
		}
	}
	return nil
}

// Active returns the segments currently in the active list.
func (e *Engine) Active() []*segment.Segment {
	if e.list == nil {
		return nil
	}
	out := make([]*segment.Segment, 0, e.list.Len())
	for h := e.list.Head(); h != segment.Nil; h = e.list.Next(h) {
		out = append(out, e.arena.At(h))
	}
	return out
}

// IDAt returns the segment ID of the block-local pixel (col, row).
func (e *Engine) IDAt(col, row int) models.SegmentID {
	return e.ids[row*e.width+col]
}
