// Package raster defines the raster accessor contract consumed by the
// segmenter and provides an in-memory implementation.
package raster

import (
	"errors"
	"fmt"
)

var (
	// ErrOutOfBounds is returned for pixel coordinates outside the raster
	ErrOutOfBounds = errors.New("pixel out of raster bounds")

	// ErrBandOutOfRange is returned for an invalid band index
	ErrBandOutOfRange = errors.New("band out of range")

	// ErrInvalidGeometry is returned when a raster cannot be created
	ErrInvalidGeometry = errors.New("invalid raster geometry")
)

// Geometry describes the pixel grid of a raster.
type Geometry struct {
	Rows int
	Cols int
}

// Pixels returns the pixel count of the grid.
func (g Geometry) Pixels() int {
	return g.Rows * g.Cols
}

// Raster gives read access to complex per-pixel, per-band values.
// Implementations must allow concurrent readers.
type Raster interface {
	Rows() int
	Cols() int
	Bands() int
	Value(col, row, band int) (complex128, error)
}

// Writer sets values in a raster.
type Writer interface {
	SetValue(col, row, band int, v complex128) error
}

// ReadWriter is a raster that can also be written.
type ReadWriter interface {
	Raster
	Writer
}

// Factory creates a new raster with the given geometry and band count.
// The info map carries implementation specific connection details.
type Factory func(geom Geometry, bands int, info map[string]string) (ReadWriter, error)

// GeometryOf returns the geometry of r.
func GeometryOf(r Raster) Geometry {
	return Geometry{Rows: r.Rows(), Cols: r.Cols()}
}

// Memory is a band-sequential complex raster held in RAM.
// Reads are safe from many goroutines; writes to distinct pixels are too.
type Memory struct {
	rows  int
	cols  int
	bands int
	data  []complex128
}

// NewMemory allocates a zeroed in-memory raster.
func NewMemory(geom Geometry, bands int) (*Memory, error) {
	if geom.Rows <= 0 || geom.Cols <= 0 || bands <= 0 {
		return nil, fmt.Errorf("%w: %dx%d with %d bands", ErrInvalidGeometry, geom.Rows, geom.Cols, bands)
	}
	return &Memory{
		rows:  geom.Rows,
		cols:  geom.Cols,
		bands: bands,
		data:  make([]complex128, geom.Pixels()*bands),
	}, nil
}

// NewMemoryFactory is a Factory producing Memory rasters; info is ignored.
func NewMemoryFactory(geom Geometry, bands int, info map[string]string) (ReadWriter, error) {
	return NewMemory(geom, bands)
}

func (m *Memory) Rows() int  { return m.rows }
func (m *Memory) Cols() int  { return m.cols }
func (m *Memory) Bands() int { return m.bands }

func (m *Memory) index(col, row, band int) (int, error) {
	if col < 0 || row < 0 || col >= m.cols || row >= m.rows {
		return 0, fmt.Errorf("%w: (%d,%d) in %dx%d", ErrOutOfBounds, col, row, m.cols, m.rows)
	}
	if band < 0 || band >= m.bands {
		return 0, fmt.Errorf("%w: %d of %d", ErrBandOutOfRange, band, m.bands)
	}
	return band*m.rows*m.cols + row*m.cols + col, nil
}

// Value returns the value at (col, row) in band.
func (m *Memory) Value(col, row, band int) (complex128, error) {
	idx, err := m.index(col, row, band)
	if err != nil {
		return 0, err
	}
	return m.data[idx], nil
}

// SetValue stores v at (col, row) in band.
func (m *Memory) SetValue(col, row, band int, v complex128) error {
	idx, err := m.index(col, row, band)
	if err != nil {
		return err
	}
	m.data[idx] = v
	return nil
}

// Band returns the backing slice of one band in row-major order.
func (m *Memory) Band(band int) ([]complex128, error) {
	if band < 0 || band >= m.bands {
		return nil, fmt.Errorf("%w: %d of %d", ErrBandOutOfRange, band, m.bands)
	}
	size := m.rows * m.cols
	return m.data[band*size : (band+1)*size], nil
}

// BlockWriter is a writer handle restricted to one rectangular window of the
// target raster. Each worker gets its own handle for the block it owns.
type BlockWriter struct {
	target         Writer
	startX, startY int
	boundX, boundY int
}

// NewBlockWriter scopes target to the window starting at (startX, startY)
// with the given width and height.
func NewBlockWriter(target Writer, startX, startY, width, height int) *BlockWriter {
	return &BlockWriter{
		target: target,
		startX: startX,
		startY: startY,
		boundX: startX + width,
		boundY: startY + height,
	}
}

// SetValue writes through to the target when (col, row), in full raster
// coordinates, lies inside the window.
func (w *BlockWriter) SetValue(col, row, band int, v complex128) error {
	if col < w.startX || col >= w.boundX || row < w.startY || row >= w.boundY {
		return fmt.Errorf("%w: (%d,%d) outside block window [%d,%d)x[%d,%d)",
			ErrOutOfBounds, col, row, w.startX, w.boundX, w.startY, w.boundY)
	}
	return w.target.SetValue(col, row, band, v)
}
