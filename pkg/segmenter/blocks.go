package segmenter

import (
	"errors"
	"fmt"
	"math"

	"polsarseg/internal/models"
	"polsarseg/pkg/cutoff"
	"polsarseg/pkg/raster"
)

const (
	// minBlockPixels is the smallest expanded block the size search tries
	minBlockPixels = 256

	// profileAntiSmoothing bounds the per-pixel movement of the cut-off profiles
	profileAntiSmoothing = 3
)

// blockGeometry describes the blocks of a grid. Non-expanded sizes are the
// grid pitch; expanded sizes add the overlap on both sides.
type blockGeometry struct {
	width, height                 int
	hOverlap, vOverlap            int
	expandedWidth, expandedHeight int
}

// calcBestBlockSize searches the smallest integer split factor whose
// expanded blocks hold at most maxPixels pixels.
func calcBestBlockSize(rows, cols, minPixels, maxPixels, overlapPercent int) (blockGeometry, error) {
	if minPixels <= 0 || minPixels > maxPixels {
		return blockGeometry{}, fmt.Errorf("%w: block pixels range [%d,%d]", ErrInvalidParameter, minPixels, maxPixels)
	}

	maxScale := float64(rows) * float64(cols) / float64(minPixels)
	for scale := 1.0; scale <= maxScale; scale++ {
		var g blockGeometry
		g.height = int(math.Ceil(float64(rows) / scale))
		g.width = int(math.Ceil(float64(cols) / scale))
		g.hOverlap = overlapPercent * g.width / 100
		g.vOverlap = overlapPercent * g.height / 100
		g.expandedHeight = g.height + 2*g.vOverlap
		g.expandedWidth = g.width + 2*g.hOverlap

		if g.expandedWidth*g.expandedHeight <= maxPixels {
			return g, nil
		}
	}
	return blockGeometry{}, fmt.Errorf("%w: no block size of at most %d pixels fits a %dx%d raster",
		ErrInvalidParameter, maxPixels, rows, cols)
}

// blockGrid is the row-major matrix of segments blocks plus the image
// profiles separating them.
type blockGrid struct {
	rows, cols int
	blocks     []models.SegmentsBlock
	lines      cutoff.Lines
}

// singleBlockGrid covers the whole raster with one block.
func singleBlockGrid(geom raster.Geometry) *blockGrid {
	b := models.SegmentsBlock{Width: geom.Cols, Height: geom.Rows}
	b.ResetProfiles()
	return &blockGrid{rows: 1, cols: 1, blocks: []models.SegmentsBlock{b}}
}

// buildBlockGrid lays out the blocks of g over in and computes the cut-off
// profiles between them.
func buildBlockGrid(in raster.Raster, bands []int, g blockGeometry) (*blockGrid, error) {
	rows, cols := in.Rows(), in.Cols()
	grid := &blockGrid{
		rows: (rows + g.height - 1) / g.height,
		cols: (cols + g.width - 1) / g.width,
	}

	for r := 0; r+1 < grid.rows; r++ {
		center := (r + 1) * g.height
		profile, err := cutoff.Horizontal(in, bands, center, profileParams(g.vOverlap))
		if errors.Is(err, cutoff.ErrInvalidProfile) {
			profile = cutoff.Straight(cols, center)
		} else if err != nil {
			return nil, fmt.Errorf("generating horizontal profile %d: %w", r, err)
		}
		grid.lines.HorizontalCenters = append(grid.lines.HorizontalCenters, center)
		grid.lines.Horizontal = append(grid.lines.Horizontal, profile)
	}

	for c := 0; c+1 < grid.cols; c++ {
		center := (c + 1) * g.width
		profile, err := cutoff.Vertical(in, bands, center, profileParams(g.hOverlap))
		if errors.Is(err, cutoff.ErrInvalidProfile) {
			profile = cutoff.Straight(rows, center)
		} else if err != nil {
			return nil, fmt.Errorf("generating vertical profile %d: %w", c, err)
		}
		grid.lines.VerticalCenters = append(grid.lines.VerticalCenters, center)
		grid.lines.Vertical = append(grid.lines.Vertical, profile)
	}

	grid.blocks = make([]models.SegmentsBlock, 0, grid.rows*grid.cols)
	for r := 0; r < grid.rows; r++ {
		startY := max(0, r*g.height-g.vOverlap)
		boundY := min(rows, (r+1)*g.height+g.vOverlap)
		for c := 0; c < grid.cols; c++ {
			startX := max(0, c*g.width-g.hOverlap)
			boundX := min(cols, (c+1)*g.width+g.hOverlap)

			b := models.SegmentsBlock{
				StartX:    startX,
				StartY:    startY,
				Width:     boundX - startX,
				Height:    boundY - startY,
				MatrixRow: r,
				MatrixCol: c,
			}
			if err := cutoff.UpdateBlockProfiles(grid.lines.Horizontal, grid.lines.Vertical, &b); err != nil {
				return nil, err
			}
			grid.blocks = append(grid.blocks, b)
		}
	}

	return grid, nil
}

func profileParams(overlap int) cutoff.Params {
	return cutoff.Params{
		PixelNeighborhoodSize: overlap / 2,
		TileNeighborhoodSize:  overlap,
		AntiSmoothingFactor:   profileAntiSmoothing,
	}
}
