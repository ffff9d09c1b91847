package cutoff

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"golang.org/x/image/tiff"

	"polsarseg/internal/models"
	"polsarseg/pkg/raster"
)

// newRaster builds a single band raster from a value function.
func newRaster(t *testing.T, rows, cols int, value func(col, row int) float64) *raster.Memory {
	t.Helper()
	r, err := raster.NewMemory(raster.Geometry{Rows: rows, Cols: cols}, 1)
	if err != nil {
		t.Fatalf("NewMemory failed: %v", err)
	}
	for row := 0; row < rows; row++ {
		for col := 0; col < cols; col++ {
			if err := r.SetValue(col, row, 0, complex(value(col, row), 0)); err != nil {
				t.Fatalf("SetValue failed: %v", err)
			}
		}
	}
	return r
}

func TestProfileLengthAndRange(t *testing.T) {
	r := newRaster(t, 10, 12, func(col, row int) float64 {
		return float64((col*7 + row*13) % 11)
	})

	for k := 1; k <= 3; k++ {
		p := Params{PixelNeighborhoodSize: k, TileNeighborhoodSize: k, AntiSmoothingFactor: 2}

		h, err := Horizontal(r, []int{0}, 5, p)
		if err != nil {
			t.Fatalf("Horizontal with k=%d failed: %v", k, err)
		}
		if len(h) != r.Cols() {
			t.Errorf("k=%d: expected %d horizontal elements, got %d", k, r.Cols(), len(h))
		}
		for i, v := range h {
			if v < 0 || v >= r.Rows() {
				t.Errorf("k=%d: horizontal element %d = %d out of range", k, i, v)
			}
		}

		v, err := Vertical(r, []int{0}, 6, p)
		if err != nil {
			t.Fatalf("Vertical with k=%d failed: %v", k, err)
		}
		if len(v) != r.Rows() {
			t.Errorf("k=%d: expected %d vertical elements, got %d", k, r.Rows(), len(v))
		}
		for i, c := range v {
			if c < 0 || c >= r.Cols() {
				t.Errorf("k=%d: vertical element %d = %d out of range", k, i, c)
			}
		}
	}
}

func TestProfileFollowsEdge(t *testing.T) {
	// Step edge between rows 6 and 7
	r := newRaster(t, 14, 8, func(col, row int) float64 {
		if row >= 7 {
			return 10
		}
		return 0
	})

	p := Params{PixelNeighborhoodSize: 2, TileNeighborhoodSize: 4, AntiSmoothingFactor: 1}
	h, err := Horizontal(r, []int{0}, 5, p)
	if err != nil {
		t.Fatalf("Horizontal failed: %v", err)
	}
	// Rows 6 and 7 both straddle the edge with every pixel pair; the first wins
	for i, v := range h {
		if v != 6 {
			t.Errorf("element %d: expected row 6, got %d", i, v)
		}
	}
}

func TestProfileAntiSmoothing(t *testing.T) {
	// Edge jumps from row 4 to row 11 halfway across the image
	r := newRaster(t, 16, 12, func(col, row int) float64 {
		edge := 4
		if col >= 6 {
			edge = 11
		}
		if row >= edge {
			return 5
		}
		return 0
	})

	p := Params{PixelNeighborhoodSize: 1, TileNeighborhoodSize: 6, AntiSmoothingFactor: 2}
	h, err := Horizontal(r, []int{0}, 7, p)
	if err != nil {
		t.Fatalf("Horizontal failed: %v", err)
	}
	for i := 1; i < len(h); i++ {
		if d := h[i] - h[i-1]; d > 2 || d < -2 {
			t.Errorf("profile jumps %d between elements %d and %d", d, i-1, i)
		}
	}
}

func TestProfileInvalidParams(t *testing.T) {
	r := newRaster(t, 3, 6, func(col, row int) float64 { return 1 })

	tests := []struct {
		name   string
		center int
		params Params
	}{
		{"zero anti-smoothing", 1, Params{PixelNeighborhoodSize: 1, TileNeighborhoodSize: 1, AntiSmoothingFactor: 0}},
		{"center out of bounds", 3, Params{PixelNeighborhoodSize: 1, TileNeighborhoodSize: 1, AntiSmoothingFactor: 1}},
		{"tile smaller than pixel neighborhood", 1, Params{PixelNeighborhoodSize: 2, TileNeighborhoodSize: 1, AntiSmoothingFactor: 1}},
		{"tile cannot hold the window", 1, Params{PixelNeighborhoodSize: 2, TileNeighborhoodSize: 2, AntiSmoothingFactor: 1}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := Horizontal(r, []int{0}, tc.center, tc.params); !errors.Is(err, ErrInvalidProfile) {
				t.Errorf("expected ErrInvalidProfile, got %v", err)
			}
		})
	}
}

func TestUpdateBlockProfilesCoverage(t *testing.T) {
	const rows, cols = 20, 24
	const blockH, blockW, overlap = 10, 12, 2

	// Wavy seams that stay inside the overlap area
	hProfile := make([]int, cols)
	for i := range hProfile {
		hProfile[i] = blockH - 1 + i%3
	}
	vProfile := make([]int, rows)
	for i := range vProfile {
		vProfile[i] = blockW + 1 - i%3
	}
	horizontal := [][]int{hProfile}
	vertical := [][]int{vProfile}

	owners := make([]int, rows*cols)
	for r := 0; r < 2; r++ {
		for c := 0; c < 2; c++ {
			startY := max(0, r*blockH-overlap)
			boundY := min(rows, (r+1)*blockH+overlap)
			startX := max(0, c*blockW-overlap)
			boundX := min(cols, (c+1)*blockW+overlap)
			b := &models.SegmentsBlock{
				StartX: startX, StartY: startY,
				Width: boundX - startX, Height: boundY - startY,
				MatrixRow: r, MatrixCol: c,
			}
			if err := UpdateBlockProfiles(horizontal, vertical, b); err != nil {
				t.Fatalf("block (%d,%d): %v", r, c, err)
			}
			for y := 0; y < b.Height; y++ {
				for x := 0; x < b.Width; x++ {
					if b.Owns(x, y) {
						owners[(y+startY)*cols+x+startX]++
					}
				}
			}
		}
	}

	for i, n := range owners {
		if n != 1 {
			t.Errorf("pixel (%d,%d) owned by %d blocks", i%cols, i/cols, n)
		}
	}
}

func TestUpdateBlockProfilesErrors(t *testing.T) {
	b := &models.SegmentsBlock{Width: 4, Height: 4, MatrixRow: 2}
	if err := UpdateBlockProfiles([][]int{{1, 1, 1, 1}}, nil, b); !errors.Is(err, ErrInvalidProfile) {
		t.Errorf("expected ErrInvalidProfile for missing profile, got %v", err)
	}

	b = &models.SegmentsBlock{StartX: 2, Width: 4, Height: 4, MatrixRow: 1}
	if err := UpdateBlockProfiles([][]int{{1, 1, 1, 1}}, nil, b); !errors.Is(err, ErrInvalidProfile) {
		t.Errorf("expected ErrInvalidProfile for short profile, got %v", err)
	}

	b = &models.SegmentsBlock{Width: 4, Height: 4}
	if err := UpdateBlockProfiles(nil, nil, b); err != nil {
		t.Fatalf("single block failed: %v", err)
	}
	if b.OwnedPixels() != 16 {
		t.Errorf("single block should own all 16 pixels, got %d", b.OwnedPixels())
	}
}

func TestValidateBlockProfiles(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(b *models.SegmentsBlock)
		wantErr bool
	}{
		{"no profiles", func(b *models.SegmentsBlock) {}, false},
		{"degenerate profiles", func(b *models.SegmentsBlock) { b.ResetProfiles() }, false},
		{"only top profile", func(b *models.SegmentsBlock) { b.TopCutOffProfile = []int{0, 0, 0, 0} }, true},
		{"short right profile", func(b *models.SegmentsBlock) {
			b.ResetProfiles()
			b.RightCutOffProfile = b.RightCutOffProfile[:2]
		}, true},
		{"value outside block", func(b *models.SegmentsBlock) {
			b.ResetProfiles()
			b.LeftCutOffProfile[1] = 7
		}, true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			b := &models.SegmentsBlock{Width: 4, Height: 3}
			tc.modify(b)
			err := ValidateBlockProfiles(b)
			if tc.wantErr && !errors.Is(err, ErrInvalidProfile) {
				t.Errorf("expected ErrInvalidProfile, got %v", err)
			}
			if !tc.wantErr && err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}
}

func TestLinesImage(t *testing.T) {
	geom := raster.Geometry{Rows: 6, Cols: 8}
	lines := &Lines{
		HorizontalCenters: []int{3},
		Horizontal:        [][]int{{2, 2, 3, 4, 4, 3, 2, 2}},
		VerticalCenters:   []int{4},
		Vertical:          [][]int{{4, 4, 4, 4, 4, 4}},
	}

	img, err := lines.Image(geom)
	if err != nil {
		t.Fatalf("Image failed: %v", err)
	}
	for col, row := range lines.Horizontal[0] {
		if img.GrayAt(col, row).Y != 255 {
			t.Errorf("profile element (%d,%d) not drawn", col, row)
		}
	}
	if img.GrayAt(0, 0).Y != 0 {
		t.Error("background pixel should be black")
	}

	path := filepath.Join(t.TempDir(), "lines.tif")
	if err := lines.WriteTIFF(path, geom); err != nil {
		t.Fatalf("WriteTIFF failed: %v", err)
	}
	f, err := os.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	decoded, err := tiff.Decode(f)
	if err != nil {
		t.Fatalf("decoding written TIFF failed: %v", err)
	}
	if b := decoded.Bounds(); b.Dx() != 8 || b.Dy() != 6 {
		t.Errorf("unexpected TIFF bounds %v", b)
	}

	bad := &Lines{HorizontalCenters: []int{9}, Horizontal: [][]int{{0}}}
	if _, err := bad.Image(geom); !errors.Is(err, ErrInvalidProfile) {
		t.Errorf("expected ErrInvalidProfile, got %v", err)
	}
}
