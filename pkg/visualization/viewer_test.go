package visualization

import (
	"errors"
	"image"
	"image/color"
	"os"
	"path/filepath"
	"testing"

	"github.com/disintegration/imaging"
	"golang.org/x/image/tiff"

	"polsarseg/pkg/cutoff"
	"polsarseg/pkg/raster"
)

// labelRaster builds a 4x4 raster whose left half is label 5 and right
// half label 9, with the top-left pixel left unlabeled.
func labelRaster(t *testing.T) *raster.Memory {
	t.Helper()

	r, err := raster.NewMemory(raster.Geometry{Rows: 4, Cols: 4}, 1)
	if err != nil {
		t.Fatal(err)
	}
	for row := 0; row < 4; row++ {
		for col := 0; col < 4; col++ {
			label := 5.0
			if col >= 2 {
				label = 9
			}
			if row == 0 && col == 0 {
				label = 0
			}
			if err := r.SetValue(col, row, 0, complex(label, 0)); err != nil {
				t.Fatal(err)
			}
		}
	}
	return r
}

func sameColor(a, b color.Color) bool {
	r1, g1, b1, a1 := a.RGBA()
	r2, g2, b2, a2 := b.RGBA()
	return r1 == r2 && g1 == g2 && b1 == b2 && a1 == a2
}

// TestNewViewer verifies the palette has one color per label
func TestNewViewer(t *testing.T) {
	viewer, err := NewViewer(labelRaster(t), 0)
	if err != nil {
		t.Fatalf("NewViewer failed: %v", err)
	}
	if viewer.Segments() != 2 {
		t.Errorf("Expected 2 segments, got %d", viewer.Segments())
	}
	if viewer.width != 4 || viewer.height != 4 {
		t.Errorf("Expected 4x4 viewer, got %dx%d", viewer.width, viewer.height)
	}

	if _, err := NewViewer(labelRaster(t), 1); !errors.Is(err, raster.ErrBandOutOfRange) {
		t.Errorf("Expected ErrBandOutOfRange, got %v", err)
	}

	empty, err := raster.NewMemory(raster.Geometry{Rows: 2, Cols: 2}, 1)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := NewViewer(empty, 0); !errors.Is(err, ErrNoLabels) {
		t.Errorf("Expected ErrNoLabels, got %v", err)
	}
}

// TestRender verifies label colors and the unlabeled pixel
func TestRender(t *testing.T) {
	viewer, err := NewViewer(labelRaster(t), 0)
	if err != nil {
		t.Fatal(err)
	}
	img := viewer.Render()

	if got := img.NRGBAAt(0, 0); got != (color.NRGBA{A: 255}) {
		t.Errorf("Expected black for label 0, got %v", got)
	}
	if !sameColor(img.At(0, 1), img.At(1, 3)) {
		t.Error("Expected the same color within a segment")
	}
	if sameColor(img.At(1, 1), img.At(2, 1)) {
		t.Error("Expected different colors for different segments")
	}
	if !sameColor(img.At(2, 0), img.At(3, 3)) {
		t.Error("Expected the same color within the right segment")
	}
}

// TestOverlay verifies cut-off lines are drawn over the labels
func TestOverlay(t *testing.T) {
	viewer, err := NewViewer(labelRaster(t), 0)
	if err != nil {
		t.Fatal(err)
	}

	lines := cutoff.Lines{
		HorizontalCenters: []int{2},
		Horizontal:        [][]int{{2, 2, 2, 2}},
	}
	overlay, err := lines.Image(raster.Geometry{Rows: 4, Cols: 4})
	if err != nil {
		t.Fatal(err)
	}
	if err := viewer.SetOverlay(overlay); err != nil {
		t.Fatalf("SetOverlay failed: %v", err)
	}

	img := viewer.Render()
	white := color.NRGBA{R: 255, G: 255, B: 255, A: 255}
	for x := 0; x < 4; x++ {
		if got := img.NRGBAAt(x, 2); got != white {
			t.Errorf("Expected white overlay at (%d,2), got %v", x, got)
		}
	}
	if img.NRGBAAt(1, 1) == white {
		t.Error("Overlay should not cover rows without lines")
	}

	if err := viewer.SetOverlay(image.NewGray(image.Rect(0, 0, 3, 4))); err == nil {
		t.Error("Expected an error for a mismatched overlay")
	}
}

// TestLoadOverlay verifies the overlay can be read back from a TIFF file
func TestLoadOverlay(t *testing.T) {
	viewer, err := NewViewer(labelRaster(t), 0)
	if err != nil {
		t.Fatal(err)
	}

	lines := cutoff.Lines{
		VerticalCenters: []int{1},
		Vertical:        [][]int{{1, 1, 1, 1}},
	}
	path := filepath.Join(t.TempDir(), "lines.tif")
	if err := lines.WriteTIFF(path, raster.Geometry{Rows: 4, Cols: 4}); err != nil {
		t.Fatal(err)
	}
	if err := viewer.LoadOverlay(path); err != nil {
		t.Fatalf("LoadOverlay failed: %v", err)
	}
	if viewer.overlay.GrayAt(1, 3).Y == 0 {
		t.Error("Expected the vertical line in the overlay")
	}
	if viewer.overlay.GrayAt(3, 3).Y != 0 {
		t.Error("Unexpected overlay pixel away from the line")
	}

	if err := viewer.LoadOverlay(filepath.Join(t.TempDir(), "missing.tif")); err == nil {
		t.Error("Expected an error for a missing overlay file")
	}
}

// TestSave verifies previews are written and scaled
func TestSave(t *testing.T) {
	viewer, err := NewViewer(labelRaster(t), 0)
	if err != nil {
		t.Fatal(err)
	}
	dir := t.TempDir()

	t.Run("png scaled", func(t *testing.T) {
		path := filepath.Join(dir, "preview", "labels.png")
		if err := viewer.Save(path, 8); err != nil {
			t.Fatalf("Save failed: %v", err)
		}
		img, err := imaging.Open(path)
		if err != nil {
			t.Fatalf("Failed to open preview: %v", err)
		}
		if b := img.Bounds(); b.Dx() != 8 || b.Dy() != 8 {
			t.Errorf("Expected 8x8 preview, got %dx%d", b.Dx(), b.Dy())
		}
		if !sameColor(img.At(0, 0), color.NRGBA{A: 255}) {
			t.Error("Expected the unlabeled pixel to stay black after scaling")
		}
	})

	t.Run("tiff native size", func(t *testing.T) {
		path := filepath.Join(dir, "labels.tif")
		if err := viewer.Save(path, 0); err != nil {
			t.Fatalf("Save failed: %v", err)
		}
		f, err := os.Open(path)
		if err != nil {
			t.Fatal(err)
		}
		defer f.Close()
		img, err := tiff.Decode(f)
		if err != nil {
			t.Fatalf("Failed to decode preview: %v", err)
		}
		if b := img.Bounds(); b.Dx() != 4 || b.Dy() != 4 {
			t.Errorf("Expected 4x4 preview, got %dx%d", b.Dx(), b.Dy())
		}
	})

	t.Run("unknown format", func(t *testing.T) {
		if err := viewer.Save(filepath.Join(dir, "labels.xyz"), 0); err == nil {
			t.Error("Expected an error for an unsupported extension")
		}
	})
}
