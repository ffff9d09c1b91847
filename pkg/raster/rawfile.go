package raster

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"os"
)

// ReadRaw loads a band-sequential file of little-endian complex128 values
// (real part then imaginary part, both float64) into a Memory raster.
func ReadRaw(path string, geom Geometry, bands int) (*Memory, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("error opening raster file: %w", err)
	}
	defer f.Close()

	return Decode(bufio.NewReader(f), geom, bands)
}

// Decode reads a raw band-sequential complex raster from r.
func Decode(r io.Reader, geom Geometry, bands int) (*Memory, error) {
	m, err := NewMemory(geom, bands)
	if err != nil {
		return nil, err
	}

	var buf [16]byte
	for i := range m.data {
		if _, err := io.ReadFull(r, buf[:]); err != nil {
			return nil, fmt.Errorf("error reading value %d of %d: %w", i, len(m.data), err)
		}
		re := math.Float64frombits(binary.LittleEndian.Uint64(buf[:8]))
		im := math.Float64frombits(binary.LittleEndian.Uint64(buf[8:]))
		m.data[i] = complex(re, im)
	}
	return m, nil
}

// Encode writes r in the raw band-sequential complex format read by Decode.
func Encode(w io.Writer, r Raster) error {
	bw := bufio.NewWriter(w)
	var buf [16]byte
	for band := 0; band < r.Bands(); band++ {
		for row := 0; row < r.Rows(); row++ {
			for col := 0; col < r.Cols(); col++ {
				v, err := r.Value(col, row, band)
				if err != nil {
					return err
				}
				binary.LittleEndian.PutUint64(buf[:8], math.Float64bits(real(v)))
				binary.LittleEndian.PutUint64(buf[8:], math.Float64bits(imag(v)))
				if _, err := bw.Write(buf[:]); err != nil {
					return err
				}
			}
		}
	}
	return bw.Flush()
}

// WriteLabels stores the real part of one band as little-endian uint32
// labels in row-major order.
func WriteLabels(path string, r Raster, band int) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("error creating label file: %w", err)
	}
	defer f.Close()

	bw := bufio.NewWriter(f)
	var buf [4]byte
	for row := 0; row < r.Rows(); row++ {
		for col := 0; col < r.Cols(); col++ {
			v, err := r.Value(col, row, band)
			if err != nil {
				return err
			}
			binary.LittleEndian.PutUint32(buf[:], uint32(real(v)))
			if _, err := bw.Write(buf[:]); err != nil {
				return fmt.Errorf("error writing label file: %w", err)
			}
		}
	}
	if err := bw.Flush(); err != nil {
		return fmt.Errorf("error writing label file: %w", err)
	}
	return f.Close()
}
