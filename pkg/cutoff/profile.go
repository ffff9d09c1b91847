// Package cutoff computes the edge-following seam lines used to split a
// raster into segmentation blocks, converts them into per-block ownership
// profiles and renders them for inspection.
package cutoff

import (
	"errors"
	"fmt"
	"math/cmplx"

	"gonum.org/v1/gonum/floats"

	"polsarseg/pkg/raster"
)

// ErrInvalidProfile is returned when a profile cannot be generated or does
// not match the block it is applied to.
var ErrInvalidProfile = errors.New("invalid cut-off profile")

// Params controls the profile search.
type Params struct {
	// PixelNeighborhoodSize is the half-width of the window straddling each
	// candidate cut point
	PixelNeighborhoodSize int

	// TileNeighborhoodSize is the search half-range around the profile center
	TileNeighborhoodSize int

	// AntiSmoothingFactor bounds how far the profile may move between two
	// adjacent elements
	AntiSmoothingFactor int
}

// Validate checks the search parameters.
func (p Params) Validate() error {
	if p.AntiSmoothingFactor <= 0 {
		return fmt.Errorf("%w: anti-smoothing factor must be positive", ErrInvalidProfile)
	}
	if p.PixelNeighborhoodSize < 0 {
		return fmt.Errorf("%w: negative pixel neighborhood", ErrInvalidProfile)
	}
	if p.TileNeighborhoodSize < p.PixelNeighborhoodSize {
		return fmt.Errorf("%w: tile neighborhood %d smaller than pixel neighborhood %d",
			ErrInvalidProfile, p.TileNeighborhoodSize, p.PixelNeighborhoodSize)
	}
	return nil
}

// sampler reads a pixel given its position along the profile and across it.
type sampler func(along, cross, band int) (complex128, error)

// Horizontal returns a profile with one row index per raster column,
// following the strongest local edges around the row center.
func Horizontal(r raster.Raster, bands []int, center int, p Params) ([]int, error) {
	sample := func(along, cross, band int) (complex128, error) {
		return r.Value(along, cross, band)
	}
	return generate(sample, r.Cols(), r.Rows(), bands, center, p)
}

// Vertical returns a profile with one column index per raster row,
// following the strongest local edges around the column center.
func Vertical(r raster.Raster, bands []int, center int, p Params) ([]int, error) {
	sample := func(along, cross, band int) (complex128, error) {
		return r.Value(cross, along, band)
	}
	return generate(sample, r.Rows(), r.Cols(), bands, center, p)
}

func generate(sample sampler, length, crossDim int, bands []int, center int, p Params) ([]int, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	if center < 0 || center >= crossDim {
		return nil, fmt.Errorf("%w: center %d outside [0,%d)", ErrInvalidProfile, center, crossDim)
	}

	pnb := p.PixelNeighborhoodSize
	tileStart := max(0, min(crossDim-1, center-p.TileNeighborhoodSize))
	tileBound := max(0, min(crossDim, center+p.TileNeighborhoodSize+1))
	tileSize := tileBound - tileStart
	if tileSize < 1+2*pnb {
		return nil, fmt.Errorf("%w: tile of %d pixels cannot hold a %d pixel neighborhood",
			ErrInvalidProfile, tileSize, 1+2*pnb)
	}

	minStart := tileStart + pnb
	maxBound := tileBound - pnb
	windowSize := float64(2*pnb + 1)

	// tile holds the tile buffer of the current element, one slice per band
	tile := make([][]complex128, len(bands))
	for i := range tile {
		tile[i] = make([]complex128, tileSize)
	}
	diffs := make([]float64, pnb)

	profile := make([]int, length)
	for elem := 0; elem < length; elem++ {
		for i, band := range bands {
			for c := 0; c < tileSize; c++ {
				v, err := sample(elem, tileStart+c, band)
				if err != nil {
					return nil, fmt.Errorf("reading profile tile: %w", err)
				}
				tile[i][c] = v
			}
		}

		start, bound := minStart, maxBound
		if elem > 0 {
			start = max(profile[elem-1]-p.AntiSmoothingFactor, minStart)
			bound = min(profile[elem-1]+1+p.AntiSmoothingFactor, maxBound)
		}

		best, bestIdx := 0.0, start
		for cand := start; cand < bound; cand++ {
			sum := 0.0
			for i := range bands {
				for o := 0; o < pnb; o++ {
					before := cand - pnb + o - tileStart
					after := cand + pnb - o - tileStart
					diffs[o] = cmplx.Abs(tile[i][before] - tile[i][after])
				}
				sum += floats.Sum(diffs) / windowSize
			}
			if sum > best {
				best, bestIdx = sum, cand
			}
		}
		profile[elem] = bestIdx
	}

	return profile, nil
}

// Straight returns the profile of a straight cut at center.
func Straight(length, center int) []int {
	profile := make([]int, length)
	for i := range profile {
		profile[i] = center
	}
	return profile
}
