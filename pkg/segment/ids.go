package segment

import (
	"errors"
	"fmt"
	"math"
	"sync"

	"polsarseg/internal/models"
)

var (
	// ErrInvalidID is returned when releasing an ID that was never issued
	// or is already free
	ErrInvalidID = errors.New("invalid segment id")

	// ErrIDsExhausted is returned when the 32-bit ID space is used up
	ErrIDsExhausted = errors.New("segment ids exhausted")
)

// IDManager issues segment IDs shared by all workers of a run. ID 0 is
// never issued. Released IDs are handed out again before new ones.
type IDManager struct {
	mu       sync.Mutex
	last     models.SegmentID
	free     []models.SegmentID
	released []bool
}

// NewIDManager returns a manager with no issued IDs.
func NewIDManager() *IDManager {
	return &IDManager{}
}

// NewID issues one ID.
func (m *IDManager) NewID() (models.SegmentID, error) {
	ids, err := m.NewIDs(1, nil)
	if err != nil {
		return models.NoSegment, err
	}
	return ids[0], nil
}

// NewIDs appends n IDs to dst and returns the extended slice. The batch is
// taken under a single lock.
func (m *IDManager) NewIDs(n int, dst []models.SegmentID) ([]models.SegmentID, error) {
	if n < 0 {
		return dst, fmt.Errorf("negative id count %d", n)
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	for ; n > 0 && len(m.free) > 0; n-- {
		id := m.free[len(m.free)-1]
		m.free = m.free[:len(m.free)-1]
		m.released[id] = false
		dst = append(dst, id)
	}
	if uint64(m.last)+uint64(n) > math.MaxUint32 {
		return dst, fmt.Errorf("%w: %d requested after %d", ErrIDsExhausted, n, m.last)
	}
	for ; n > 0; n-- {
		m.last++
		dst = append(dst, m.last)
	}
	return dst, nil
}

// Release returns ids to the free pool.
func (m *IDManager) Release(ids ...models.SegmentID) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, id := range ids {
		if id == models.NoSegment || id > m.last {
			return fmt.Errorf("%w: %d", ErrInvalidID, id)
		}
		if int(id) >= len(m.released) {
			grown := make([]bool, int(m.last)+1)
			copy(grown, m.released)
			m.released = grown
		}
		if m.released[id] {
			return fmt.Errorf("%w: %d released twice", ErrInvalidID, id)
		}
		m.released[id] = true
		m.free = append(m.free, id)
	}
	return nil
}

// InUse returns the number of issued IDs not released.
func (m *IDManager) InUse() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return int(m.last) - len(m.free)
}
