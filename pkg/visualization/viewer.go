// Package visualization renders segmentation label rasters as color images.
package visualization

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"os"
	"path/filepath"
	"sort"

	"github.com/disintegration/imaging"
	"github.com/lucasb-eyer/go-colorful"
	"golang.org/x/image/tiff"

	"polsarseg/pkg/raster"
)

// ErrNoLabels is returned when a label band holds no segment at all.
var ErrNoLabels = errors.New("label raster holds no segments")

// Viewer renders one band of a label raster. Label 0 marks pixels outside
// any segment and is drawn black; every other label gets its own color.
type Viewer struct {
	// labels holds the label band in row-major order
	labels []uint32

	// dimensions of the label raster
	width  int
	height int

	// palette maps a label to its color
	palette map[uint32]color.Color

	// overlay, when set, is drawn in white over the labels
	overlay *image.Gray
}

// NewViewer reads the label band of r and builds a palette with one color
// per distinct label.
func NewViewer(r raster.Raster, band int) (*Viewer, error) {
	if band < 0 || band >= r.Bands() {
		return nil, fmt.Errorf("%w: band %d of %d", raster.ErrBandOutOfRange, band, r.Bands())
	}

	v := &Viewer{
		labels: make([]uint32, r.Rows()*r.Cols()),
		width:  r.Cols(),
		height: r.Rows(),
	}

	distinct := make(map[uint32]struct{})
	for row := 0; row < v.height; row++ {
		for col := 0; col < v.width; col++ {
			value, err := r.Value(col, row, band)
			if err != nil {
				return nil, err
			}
			label := uint32(real(value))
			v.labels[row*v.width+col] = label
			if label != 0 {
				distinct[label] = struct{}{}
			}
		}
	}
	if len(distinct) == 0 {
		return nil, ErrNoLabels
	}

	// Sorted so the same labels always get the same colors
	sorted := make([]uint32, 0, len(distinct))
	for label := range distinct {
		sorted = append(sorted, label)
	}
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

	colors := colorful.FastWarmPalette(len(sorted))
	v.palette = make(map[uint32]color.Color, len(sorted))
	for i, label := range sorted {
		v.palette[label] = colors[i]
	}

	return v, nil
}

// Segments returns the number of distinct non-zero labels.
func (v *Viewer) Segments() int {
	return len(v.palette)
}

// SetOverlay draws the non-black pixels of overlay in white over the labels.
// The overlay must match the label raster dimensions.
func (v *Viewer) SetOverlay(overlay *image.Gray) error {
	if overlay == nil {
		v.overlay = nil
		return nil
	}
	b := overlay.Bounds()
	if b.Dx() != v.width || b.Dy() != v.height {
		return fmt.Errorf("overlay is %dx%d, labels are %dx%d", b.Dx(), b.Dy(), v.width, v.height)
	}
	v.overlay = overlay
	return nil
}

// LoadOverlay reads a cut-off lines TIFF file and sets it as the overlay
func (v *Viewer) LoadOverlay(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("error opening overlay: %v", err)
	}
	defer f.Close()

	img, err := tiff.Decode(f)
	if err != nil {
		return fmt.Errorf("error decoding overlay: %v", err)
	}
	gray, ok := img.(*image.Gray)
	if !ok {
		b := img.Bounds()
		gray = image.NewGray(image.Rect(0, 0, b.Dx(), b.Dy()))
		for y := 0; y < b.Dy(); y++ {
			for x := 0; x < b.Dx(); x++ {
				gray.Set(x, y, img.At(b.Min.X+x, b.Min.Y+y))
			}
		}
	}
	return v.SetOverlay(gray)
}

// Render draws the labels, and the overlay if any, at the raster size
func (v *Viewer) Render() *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, v.width, v.height))
	black := color.NRGBA{A: 255}
	white := color.NRGBA{R: 255, G: 255, B: 255, A: 255}

	for y := 0; y < v.height; y++ {
		for x := 0; x < v.width; x++ {
			if v.overlay != nil && v.overlay.GrayAt(x, y).Y != 0 {
				img.SetNRGBA(x, y, white)
				continue
			}
			label := v.labels[y*v.width+x]
			if label == 0 {
				img.SetNRGBA(x, y, black)
				continue
			}
			img.Set(x, y, v.palette[label])
		}
	}

	return img
}

// Save renders the labels and writes them to filename. The format follows
// the file extension. A positive width scales the image preserving its
// aspect ratio; nearest neighbor sampling keeps segment colors exact.
func (v *Viewer) Save(filename string, width int) error {
	var img image.Image = v.Render()
	if width > 0 && width != v.width {
		img = imaging.Resize(img, width, 0, imaging.NearestNeighbor)
	}

	if dir := filepath.Dir(filename); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("error creating preview directory: %v", err)
		}
	}
	if err := imaging.Save(img, filename); err != nil {
		return fmt.Errorf("error saving preview: %w", err)
	}
	return nil
}
