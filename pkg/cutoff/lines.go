package cutoff

import (
	"fmt"
	"image"
	"image/color"
	"os"

	"golang.org/x/image/tiff"

	"polsarseg/pkg/raster"
)

// Lines is the full set of image profiles of a blocks grid.
type Lines struct {
	// HorizontalCenters[i] is the center row of Horizontal[i]
	HorizontalCenters []int
	Horizontal        [][]int

	// VerticalCenters[j] is the center column of Vertical[j]
	VerticalCenters []int
	Vertical        [][]int
}

// Image renders the profile centers and the profiles themselves as white
// pixels over a black image of the raster geometry.
func (l *Lines) Image(geom raster.Geometry) (*image.Gray, error) {
	if geom.Rows <= 0 || geom.Cols <= 0 {
		return nil, fmt.Errorf("%w: %dx%d", raster.ErrInvalidGeometry, geom.Rows, geom.Cols)
	}
	if len(l.HorizontalCenters) != len(l.Horizontal) || len(l.VerticalCenters) != len(l.Vertical) {
		return nil, fmt.Errorf("%w: centers and profiles count mismatch", ErrInvalidProfile)
	}

	img := image.NewGray(image.Rect(0, 0, geom.Cols, geom.Rows))
	white := color.Gray{Y: 255}

	for i, center := range l.HorizontalCenters {
		if center < 0 || center >= geom.Rows {
			return nil, fmt.Errorf("%w: horizontal center %d", ErrInvalidProfile, center)
		}
		for col := 0; col < geom.Cols; col++ {
			img.SetGray(col, center, white)
		}
		for col, row := range l.Horizontal[i] {
			if col >= geom.Cols || row < 0 || row >= geom.Rows {
				return nil, fmt.Errorf("%w: horizontal element (%d,%d)", ErrInvalidProfile, col, row)
			}
			img.SetGray(col, row, white)
		}
	}

	for j, center := range l.VerticalCenters {
		if center < 0 || center >= geom.Cols {
			return nil, fmt.Errorf("%w: vertical center %d", ErrInvalidProfile, center)
		}
		for row := 0; row < geom.Rows; row++ {
			img.SetGray(center, row, white)
		}
		for row, col := range l.Vertical[j] {
			if row >= geom.Rows || col < 0 || col >= geom.Cols {
				return nil, fmt.Errorf("%w: vertical element (%d,%d)", ErrInvalidProfile, col, row)
			}
			img.SetGray(col, row, white)
		}
	}

	return img, nil
}

// WriteTIFF renders the lines and saves them as an 8-bit TIFF file.
func (l *Lines) WriteTIFF(path string, geom raster.Geometry) error {
	img, err := l.Image(geom)
	if err != nil {
		return err
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("error creating cut-off lines file: %v", err)
	}
	defer f.Close()

	if err := tiff.Encode(f, img, &tiff.Options{Compression: tiff.Deflate}); err != nil {
		return fmt.Errorf("error encoding cut-off lines: %v", err)
	}
	return f.Close()
}
