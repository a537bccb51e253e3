package dispatch

import "sync"

// Slot is a single-value latest-wins buffer. Put overwrites whatever is
// there, read or not; Take empties it.
type Slot[T any] struct {
	mu   sync.Mutex
	v    T
	full bool
	drop uint64
}

// Put stores v and reports whether an unread value was overwritten.
func (s *Slot[T]) Put(v T) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	overwrote := s.full
	if overwrote {
		s.drop++
	}
	s.v, s.full = v, true
	return overwrote
}

// Take returns the stored value and clears the slot.
func (s *Slot[T]) Take() (T, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var zero T
	if !s.full {
		return zero, false
	}
	v := s.v
	s.v, s.full = zero, false
	return v, true
}

// Clear discards any unread value.
func (s *Slot[T]) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	var zero T
	s.v, s.full = zero, false
}

// Dropped counts values overwritten before anyone took them.
func (s *Slot[T]) Dropped() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.drop
}
