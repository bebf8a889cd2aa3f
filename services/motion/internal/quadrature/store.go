// services/motion/internal/quadrature/store.go
package quadrature

import (
	"sync/atomic"

	"anglectl-go/x/mathx"
)

// RangeMode selects the bound policy applied on every position update.
type RangeMode uint8

const (
	// Bounded clamps to [min, max]; an update past a bound saturates.
	Bounded RangeMode = iota
	// Wrapped takes updates modulo (max - min + 1), wrapping through
	// the opposite bound.
	Wrapped
)

// Store is the single position counter shared between the decoder
// (interrupt context) and the sequencer task. It is one atomic scalar;
// readers never observe a torn value and no path blocks.
type Store struct {
	pos      int32
	min, max int32
	mode     RangeMode
}

func NewStore(min, max int32, mode RangeMode) *Store {
	if max < min {
		min, max = max, min
	}
	return &Store{pos: min, min: min, max: max, mode: mode}
}

func (s *Store) Min() int32      { return s.min }
func (s *Store) Max() int32      { return s.max }
func (s *Store) Mode() RangeMode { return s.mode }

// Load returns the latest committed position.
func (s *Store) Load() int32 { return atomic.LoadInt32(&s.pos) }

// Set stores an absolute position, normalised by the range policy.
// Used by the sequencer's explicit reset, never by the decoder.
func (s *Store) Set(v int32) { atomic.StoreInt32(&s.pos, s.normalize(v)) }

// Add applies a signed delta from the decoder. The CAS loop keeps the
// ISR's read-modify-write from clobbering a concurrent sequencer reset.
func (s *Store) Add(delta int32) {
	for {
		old := atomic.LoadInt32(&s.pos)
		if atomic.CompareAndSwapInt32(&s.pos, old, s.normalize(old+delta)) {
			return
		}
	}
}

func (s *Store) normalize(v int32) int32 {
	if s.mode == Wrapped {
		return s.min + mathx.WrapMod(v-s.min, s.max-s.min+1)
	}
	return mathx.Clamp(v, s.min, s.max)
}
