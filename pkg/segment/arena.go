// Package segment holds the segment records used by region growing: a
// pre-allocated arena of segments addressed by stable handles, their
// adjacency sets, the per-block active segments list and the shared
// segment ID manager.
package segment

import (
	"errors"
	"fmt"
	"math"

	"polsarseg/internal/models"
)

var (
	// ErrInvalidCapacity is returned when an arena is initialized with no room
	ErrInvalidCapacity = errors.New("invalid arena capacity")

	// ErrArenaExhausted is returned when every arena slot is in use
	ErrArenaExhausted = errors.New("segment arena exhausted")
)

// AuxiliarySegments is the number of scratch segments a region growing run
// takes from the arena for merge previews.
const AuxiliarySegments = 3

// Handle addresses a segment inside its arena.
type Handle int32

// Nil is the handle of no segment.
const Nil Handle = -1

// Segment is a region of merged pixels.
type Segment struct {
	// ID is the global segment identifier, NoSegment for scratch segments
	ID models.SegmentID

	// Size is the number of pixels in the segment
	Size int

	// Bounding box in block-local pixel coordinates, bounds exclusive
	XStart, XBound int
	YStart, YBound int

	// Features is the segment feature vector; it aliases arena storage
	Features []complex128

	// MergeIteration is the last merge cycle that touched the segment
	MergeIteration int

	// Disabled marks a segment absorbed by a neighbor
	Disabled bool

	// Neighbors is the adjacency set
	Neighbors []Handle

	prev, next Handle
}

// HasNeighbor reports whether h is in the adjacency set.
func (s *Segment) HasNeighbor(h Handle) bool {
	for _, n := range s.Neighbors {
		if n == h {
			return true
		}
	}
	return false
}

// AddNeighbor inserts h into the adjacency set, ignoring duplicates.
func (s *Segment) AddNeighbor(h Handle) {
	if !s.HasNeighbor(h) {
		s.Neighbors = append(s.Neighbors, h)
	}
}

// RemoveNeighbor deletes h from the adjacency set.
func (s *Segment) RemoveNeighbor(h Handle) {
	for i, n := range s.Neighbors {
		if n == h {
			last := len(s.Neighbors) - 1
			s.Neighbors[i] = s.Neighbors[last]
			s.Neighbors = s.Neighbors[:last]
			return
		}
	}
}

// Arena is a fixed-capacity pool of segments and their feature storage.
// Segments are never freed one by one; Reset recycles the whole pool.
type Arena struct {
	segments     []Segment
	features     []complex128
	featuresSize int
	used         int
}

// Initialize prepares the arena for capacity segments with featuresSize
// complex features each. Existing storage is reused when large enough.
func (a *Arena) Initialize(capacity, featuresSize int) error {
	if capacity <= 0 {
		return fmt.Errorf("%w: %d", ErrInvalidCapacity, capacity)
	}
	if featuresSize < 0 {
		return fmt.Errorf("%w: features size %d", ErrInvalidCapacity, featuresSize)
	}
	if featuresSize > 0 && capacity > math.MaxInt32/featuresSize {
		return fmt.Errorf("%w: %d segments of %d features", ErrInvalidCapacity, capacity, featuresSize)
	}

	total := capacity * featuresSize
	if cap(a.features) < total {
		a.features = make([]complex128, total)
	} else {
		a.features = a.features[:total]
	}
	if cap(a.segments) < capacity {
		a.segments = make([]Segment, capacity)
	} else {
		a.segments = a.segments[:capacity]
	}

	a.featuresSize = featuresSize
	for i := range a.segments {
		a.segments[i].Features = a.features[i*featuresSize : (i+1)*featuresSize : (i+1)*featuresSize]
	}
	a.used = 0
	return nil
}

// Next hands out a fresh segment in O(1).
func (a *Arena) Next() (Handle, error) {
	if a.used >= len(a.segments) {
		return Nil, fmt.Errorf("%w: capacity %d", ErrArenaExhausted, len(a.segments))
	}
	h := Handle(a.used)
	a.used++

	s := &a.segments[h]
	s.ID = models.NoSegment
	s.Size = 0
	s.XStart, s.XBound, s.YStart, s.YBound = 0, 0, 0, 0
	for i := range s.Features {
		s.Features[i] = 0
	}
	s.MergeIteration = 0
	s.Disabled = false
	s.Neighbors = s.Neighbors[:0]
	s.prev, s.next = Nil, Nil
	return h, nil
}

// At returns the segment behind h.
func (a *Arena) At(h Handle) *Segment {
	return &a.segments[h]
}

// Reset makes every slot available again without releasing memory.
func (a *Arena) Reset() {
	a.used = 0
}

// Used returns the number of handed out segments.
func (a *Arena) Used() int { return a.used }

// Capacity returns the number of segment slots.
func (a *Arena) Capacity() int { return len(a.segments) }

// FeaturesSize returns the feature vector length of every segment.
func (a *Arena) FeaturesSize() int { return a.featuresSize }

// Link makes a and b neighbors of each other.
func (a *Arena) Link(h1, h2 Handle) {
	if h1 == h2 {
		return
	}
	a.segments[h1].AddNeighbor(h2)
	a.segments[h2].AddNeighbor(h1)
}

// Unlink removes the adjacency between h1 and h2 in both directions.
func (a *Arena) Unlink(h1, h2 Handle) {
	a.segments[h1].RemoveNeighbor(h2)
	a.segments[h2].RemoveNeighbor(h1)
}

// Absorb rewires the adjacency graph after absorbed was merged into
// survivor: every other neighbor of absorbed becomes a neighbor of survivor,
// absorbed loses all its links, is removed from the active list and is
// disabled. Geometry and features are the merger's business.
func (a *Arena) Absorb(list *ActiveList, survivor, absorbed Handle) {
	abs := &a.segments[absorbed]
	for _, n := range abs.Neighbors {
		a.segments[n].RemoveNeighbor(absorbed)
		if n != survivor {
			a.Link(survivor, n)
		}
	}
	abs.Neighbors = abs.Neighbors[:0]
	if list != nil {
		list.Remove(absorbed)
	}
	abs.Disabled = true
}
