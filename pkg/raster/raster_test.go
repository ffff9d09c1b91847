package raster

import (
	"bytes"
	"encoding/binary"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
)

// TestMemoryRaster checks indexing and bounds handling
func TestMemoryRaster(t *testing.T) {
	m, err := NewMemory(Geometry{Rows: 3, Cols: 4}, 2)
	if err != nil {
		t.Fatalf("Failed to create raster: %v", err)
	}

	if m.Rows() != 3 || m.Cols() != 4 || m.Bands() != 2 {
		t.Errorf("Unexpected dimensions %dx%dx%d", m.Rows(), m.Cols(), m.Bands())
	}

	if err := m.SetValue(3, 2, 1, complex(1.5, -2)); err != nil {
		t.Fatalf("Failed to set value: %v", err)
	}
	v, err := m.Value(3, 2, 1)
	if err != nil {
		t.Fatalf("Failed to get value: %v", err)
	}
	if v != complex(1.5, -2) {
		t.Errorf("Expected (1.5-2i), got %v", v)
	}

	if _, err := m.Value(4, 0, 0); !errors.Is(err, ErrOutOfBounds) {
		t.Errorf("Expected ErrOutOfBounds, got %v", err)
	}
	if _, err := m.Value(0, 0, 2); !errors.Is(err, ErrBandOutOfRange) {
		t.Errorf("Expected ErrBandOutOfRange, got %v", err)
	}

	if _, err := NewMemory(Geometry{Rows: 0, Cols: 4}, 1); !errors.Is(err, ErrInvalidGeometry) {
		t.Errorf("Expected ErrInvalidGeometry, got %v", err)
	}
}

// TestBlockWriter verifies writes are limited to the block window
func TestBlockWriter(t *testing.T) {
	m, _ := NewMemory(Geometry{Rows: 4, Cols: 4}, 1)
	w := NewBlockWriter(m, 2, 2, 2, 2)

	if err := w.SetValue(3, 3, 0, 7); err != nil {
		t.Errorf("Expected write inside window to succeed: %v", err)
	}
	if err := w.SetValue(1, 3, 0, 7); !errors.Is(err, ErrOutOfBounds) {
		t.Errorf("Expected write outside window to fail, got %v", err)
	}

	// Concurrent writers on disjoint windows
	var wg sync.WaitGroup
	for q := 0; q < 4; q++ {
		wg.Add(1)
		go func(q int) {
			defer wg.Done()
			x0, y0 := (q%2)*2, (q/2)*2
			bw := NewBlockWriter(m, x0, y0, 2, 2)
			for y := y0; y < y0+2; y++ {
				for x := x0; x < x0+2; x++ {
					if err := bw.SetValue(x, y, 0, complex(float64(q+1), 0)); err != nil {
						t.Errorf("Quadrant %d write failed: %v", q, err)
					}
				}
			}
		}(q)
	}
	wg.Wait()

	v, _ := m.Value(3, 0, 0)
	if real(v) != 2 {
		t.Errorf("Expected quadrant 1 label 2 at (3,0), got %v", v)
	}
}

// TestRawRoundTrip writes a raster in the raw format and reads it back
func TestRawRoundTrip(t *testing.T) {
	geom := Geometry{Rows: 2, Cols: 3}
	m, _ := NewMemory(geom, 2)
	for b := 0; b < 2; b++ {
		for y := 0; y < 2; y++ {
			for x := 0; x < 3; x++ {
				m.SetValue(x, y, b, complex(float64(x+y), float64(b)))
			}
		}
	}

	var buf bytes.Buffer
	if err := Encode(&buf, m); err != nil {
		t.Fatalf("Failed to encode: %v", err)
	}
	if buf.Len() != 2*3*2*16 {
		t.Errorf("Expected %d bytes, got %d", 2*3*2*16, buf.Len())
	}

	path := filepath.Join(t.TempDir(), "in.raw")
	if err := os.WriteFile(path, buf.Bytes(), 0644); err != nil {
		t.Fatalf("Failed to write file: %v", err)
	}
	back, err := ReadRaw(path, geom, 2)
	if err != nil {
		t.Fatalf("Failed to read raster: %v", err)
	}
	v, _ := back.Value(2, 1, 1)
	if v != complex(3, 1) {
		t.Errorf("Expected (3+1i), got %v", v)
	}

	if _, err := Decode(bytes.NewReader(buf.Bytes()[:20]), geom, 2); err == nil {
		t.Errorf("Expected truncated input to fail")
	}
}

// TestWriteLabels checks the uint32 label dump
func TestWriteLabels(t *testing.T) {
	m, _ := NewMemory(Geometry{Rows: 1, Cols: 2}, 1)
	m.SetValue(0, 0, 0, 5)
	m.SetValue(1, 0, 0, 70000)

	path := filepath.Join(t.TempDir(), "labels.raw")
	if err := WriteLabels(path, m, 0); err != nil {
		t.Fatalf("Failed to write labels: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read labels: %v", err)
	}
	if len(data) != 8 {
		t.Fatalf("Expected 8 bytes, got %d", len(data))
	}
	if got := binary.LittleEndian.Uint32(data[4:]); got != 70000 {
		t.Errorf("Expected label 70000, got %d", got)
	}
}
