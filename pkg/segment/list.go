package segment

// ActiveList is an intrusive doubly linked list of the enabled segments of a
// block, threaded through the arena records.
type ActiveList struct {
	arena      *Arena
	head, tail Handle
	count      int
}

// NewActiveList returns an empty list over arena.
func NewActiveList(arena *Arena) *ActiveList {
	return &ActiveList{arena: arena, head: Nil, tail: Nil}
}

// PushBack appends h.
func (l *ActiveList) PushBack(h Handle) {
	s := l.arena.At(h)
	s.prev = l.tail
	s.next = Nil
	if l.tail != Nil {
		l.arena.At(l.tail).next = h
	} else {
		l.head = h
	}
	l.tail = h
	l.count++
}

// Remove unlinks h in O(1). Removing a handle twice is a no-op.
func (l *ActiveList) Remove(h Handle) {
	s := l.arena.At(h)
	if s.prev == Nil && s.next == Nil && l.head != h {
		return
	}
	if s.prev != Nil {
		l.arena.At(s.prev).next = s.next
	} else {
		l.head = s.next
	}
	if s.next != Nil {
		l.arena.At(s.next).prev = s.prev
	} else {
		l.tail = s.prev
	}
	s.prev, s.next = Nil, Nil
	l.count--
}

// Head returns the first active segment or Nil.
func (l *ActiveList) Head() Handle { return l.head }

// Next returns the segment after h or Nil.
func (l *ActiveList) Next(h Handle) Handle { return l.arena.At(h).next }

// Len returns the number of active segments.
func (l *ActiveList) Len() int { return l.count }

// TotalSize sums the pixel counts of all active segments.
func (l *ActiveList) TotalSize() int {
	total := 0
	for h := l.head; h != Nil; h = l.Next(h) {
		total += l.arena.At(h).Size
	}
	return total
}

// Handles returns the active handles in list order.
func (l *ActiveList) Handles() []Handle {
	out := make([]Handle, 0, l.count)
	for h := l.head; h != Nil; h = l.Next(h) {
		out = append(out, h)
	}
	return out
}
