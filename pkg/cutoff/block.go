package cutoff

import (
	"fmt"

	"polsarseg/internal/models"
)

// UpdateBlockProfiles derives the four block-local edge profiles of b from
// the image profiles. horizontal[i] is the seam between block rows i and
// i+1, vertical[j] the seam between block columns j and j+1.
//
// The seam pixel belongs to the block after it: top and left profiles hold
// the first owned row or column, bottom and right profiles the last one.
// Edges on the raster border get the degenerate values 0 and extent-1.
func UpdateBlockProfiles(horizontal, vertical [][]int, b *models.SegmentsBlock) error {
	if b.MatrixCol > len(vertical) {
		return fmt.Errorf("%w: block column %d beyond %d vertical profiles",
			ErrInvalidProfile, b.MatrixCol, len(vertical))
	}
	if b.MatrixRow > len(horizontal) {
		return fmt.Errorf("%w: block row %d beyond %d horizontal profiles",
			ErrInvalidProfile, b.MatrixRow, len(horizontal))
	}

	var err error
	if b.MatrixRow > 0 {
		b.TopCutOffProfile, err = localize(horizontal[b.MatrixRow-1], b.StartX, b.Width, b.StartY, b.Height, 0)
	} else {
		b.TopCutOffProfile = filledProfile(b.Width, 0)
	}
	if err != nil {
		return fmt.Errorf("top profile of block (%d,%d): %w", b.MatrixRow, b.MatrixCol, err)
	}

	if b.MatrixRow < len(horizontal) {
		b.BottomCutOffProfile, err = localize(horizontal[b.MatrixRow], b.StartX, b.Width, b.StartY, b.Height, -1)
	} else {
		b.BottomCutOffProfile = filledProfile(b.Width, b.Height-1)
	}
	if err != nil {
		return fmt.Errorf("bottom profile of block (%d,%d): %w", b.MatrixRow, b.MatrixCol, err)
	}

	if b.MatrixCol > 0 {
		b.LeftCutOffProfile, err = localize(vertical[b.MatrixCol-1], b.StartY, b.Height, b.StartX, b.Width, 0)
	} else {
		b.LeftCutOffProfile = filledProfile(b.Height, 0)
	}
	if err != nil {
		return fmt.Errorf("left profile of block (%d,%d): %w", b.MatrixRow, b.MatrixCol, err)
	}

	if b.MatrixCol < len(vertical) {
		b.RightCutOffProfile, err = localize(vertical[b.MatrixCol], b.StartY, b.Height, b.StartX, b.Width, -1)
	} else {
		b.RightCutOffProfile = filledProfile(b.Height, b.Width-1)
	}
	if err != nil {
		return fmt.Errorf("right profile of block (%d,%d): %w", b.MatrixRow, b.MatrixCol, err)
	}

	return ValidateBlockProfiles(b)
}

// ValidateBlockProfiles checks that b has either no profiles at all or four
// profiles matching its extent with values inside the block.
func ValidateBlockProfiles(b *models.SegmentsBlock) error {
	if !b.HasProfiles() {
		return nil
	}
	profiles := []struct {
		name           string
		values         []int
		length, extent int
	}{
		{"top", b.TopCutOffProfile, b.Width, b.Height},
		{"bottom", b.BottomCutOffProfile, b.Width, b.Height},
		{"left", b.LeftCutOffProfile, b.Height, b.Width},
		{"right", b.RightCutOffProfile, b.Height, b.Width},
	}
	for _, p := range profiles {
		if len(p.values) != p.length {
			return fmt.Errorf("%w: %s profile of block (%d,%d) has %d elements, want %d",
				ErrInvalidProfile, p.name, b.MatrixRow, b.MatrixCol, len(p.values), p.length)
		}
		for i, v := range p.values {
			if v < 0 || v > p.extent {
				return fmt.Errorf("%w: %s profile of block (%d,%d) element %d is %d",
					ErrInvalidProfile, p.name, b.MatrixRow, b.MatrixCol, i, v)
			}
		}
	}
	return nil
}

// localize copies the span [alongStart, alongStart+length) of an image
// profile into block coordinates, shifting by crossStart and shift, clamped
// to [0, extent].
func localize(profile []int, alongStart, length, crossStart, extent, shift int) ([]int, error) {
	if len(profile) == 0 {
		return nil, fmt.Errorf("%w: empty profile", ErrInvalidProfile)
	}
	if alongStart+length > len(profile) {
		return nil, fmt.Errorf("%w: profile of %d elements does not cover [%d,%d)",
			ErrInvalidProfile, len(profile), alongStart, alongStart+length)
	}

	local := make([]int, length)
	for i := range local {
		v := profile[alongStart+i] - crossStart + shift
		local[i] = max(0, min(extent, v))
	}
	return local, nil
}

func filledProfile(length, value int) []int {
	out := make([]int, length)
	for i := range out {
		out[i] = value
	}
	return out
}
