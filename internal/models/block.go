package models

import (
	"errors"
	"fmt"
)

// SegmentID identifies a segment across the whole output raster.
// Zero is reserved for pixels that belong to no segment.
type SegmentID uint32

// NoSegment is the reserved background/no-data label.
const NoSegment SegmentID = 0

// BlockStatus is the processing state of a segments block.
type BlockStatus int

const (
	BlockNotProcessed BlockStatus = iota
	BlockUnderSegmentation
	BlockSegmented
)

// ErrInvalidTransition is returned when a block status would move backwards
// or skip a state.
var ErrInvalidTransition = errors.New("invalid block status transition")

func (s BlockStatus) String() string {
	switch s {
	case BlockNotProcessed:
		return "not-processed"
	case BlockUnderSegmentation:
		return "under-segmentation"
	case BlockSegmented:
		return "segmented"
	default:
		return fmt.Sprintf("BlockStatus(%d)", int(s))
	}
}

// SegmentsBlock describes one unit of segmentation work: a rectangular window
// of the input raster plus the cut-off profiles that decide which of its
// pixels this block owns.
type SegmentsBlock struct {
	// StartX and StartY are the block origin in full raster coordinates
	StartX, StartY int

	// Width and Height are the block extent in pixels
	Width, Height int

	// MatrixRow and MatrixCol locate the block inside the blocks grid
	MatrixRow, MatrixCol int

	// Status is the processing state; it only ever moves forward
	Status BlockStatus

	// TopCutOffProfile holds, for each block column, the first owned row
	TopCutOffProfile []int

	// BottomCutOffProfile holds, for each block column, the last owned row
	BottomCutOffProfile []int

	// LeftCutOffProfile holds, for each block row, the first owned column
	LeftCutOffProfile []int

	// RightCutOffProfile holds, for each block row, the last owned column
	RightCutOffProfile []int
}

// Advance moves the block to the next status. Only
// NotProcessed -> UnderSegmentation -> Segmented is allowed.
func (b *SegmentsBlock) Advance(to BlockStatus) error {
	if to != b.Status+1 || to > BlockSegmented {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, b.Status, to)
	}
	b.Status = to
	return nil
}

// Pixels returns the number of pixels covered by the block window.
func (b *SegmentsBlock) Pixels() int {
	return b.Width * b.Height
}

// HasProfiles reports whether any cut-off profile is set.
func (b *SegmentsBlock) HasProfiles() bool {
	return b.TopCutOffProfile != nil || b.BottomCutOffProfile != nil ||
		b.LeftCutOffProfile != nil || b.RightCutOffProfile != nil
}

// Owns reports whether the block-local pixel (col, row) lies inside the
// block's cut-off profiles. Blocks without profiles own every pixel; a
// profile too short to cover the pixel excludes it.
func (b *SegmentsBlock) Owns(col, row int) bool {
	if col < 0 || row < 0 || col >= b.Width || row >= b.Height {
		return false
	}
	if !b.HasProfiles() {
		return true
	}
	if col >= len(b.TopCutOffProfile) || col >= len(b.BottomCutOffProfile) ||
		row >= len(b.LeftCutOffProfile) || row >= len(b.RightCutOffProfile) {
		return false
	}
	return row >= b.TopCutOffProfile[col] &&
		row <= b.BottomCutOffProfile[col] &&
		col >= b.LeftCutOffProfile[row] &&
		col <= b.RightCutOffProfile[row]
}

// OwnedPixels counts the pixels this block owns.
func (b *SegmentsBlock) OwnedPixels() int {
	count := 0
	for row := 0; row < b.Height; row++ {
		for col := 0; col < b.Width; col++ {
			if b.Owns(col, row) {
				count++
			}
		}
	}
	return count
}

// ResetProfiles sets degenerate profiles that exclude nothing.
func (b *SegmentsBlock) ResetProfiles() {
	b.TopCutOffProfile = filled(b.Width, 0)
	b.BottomCutOffProfile = filled(b.Width, b.Height-1)
	b.LeftCutOffProfile = filled(b.Height, 0)
	b.RightCutOffProfile = filled(b.Height, b.Width-1)
}

func filled(n, v int) []int {
	s := make([]int, n)
	for i := range s {
		s[i] = v
	}
	return s
}
