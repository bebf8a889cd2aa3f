// services/motion/internal/quadrature/decoder.go
package quadrature

// Channel tags which encoder line an edge arrived on. Each hardware
// interrupt binding passes its own tag so no runtime pin comparison is
// needed to work out which line fired.
type Channel uint8

const (
	ChanA Channel = iota // CLK
	ChanB                // DT
)

// transitions maps (previous<<2 | current) 2-bit A/B states to a signed
// half-step delta. Gray-code order 00→01→11→10→00 counts +1 per edge;
// the reverse walk counts -1. Entries of 0 are either no motion
// (repeated state) or an illegal two-bits-changed transition, i.e.
// contact noise, and must not move the position.
var transitions = [16]int8{
	0, +1, -1, 0, // from 00
	-1, 0, 0, +1, // from 01
	+1, 0, 0, -1, // from 10
	0, -1, +1, 0, // from 11
}

// Config fixes the decoder's behaviour at construction.
type Config struct {
	// HalfStep counts every valid transition as one half-step,
	// doubling resolution to two counts per physical detent.
	HalfStep bool
	// Reverse flips the counting direction.
	Reverse bool
}

// Decoder is the interrupt-driven quadrature state machine. OnEdge and
// OnLevels run in interrupt context: they touch only the decoder's own
// state bytes and the atomic Store, and never allocate, log or block.
// All edge deliveries must come from a single interrupt context; only
// the Store is shared across contexts.
type Decoder struct {
	store    *Store
	state    uint8 // last observed (A<<1 | B)
	acc      int8  // sub-step accumulator in full-step mode
	halfStep bool
	reverse  bool
}

func NewDecoder(store *Store, cfg Config) *Decoder {
	return &Decoder{store: store, halfStep: cfg.HalfStep, reverse: cfg.Reverse}
}

// Prime records the current channel levels without counting, so the
// first real edge is decoded against a true previous state.
func (d *Decoder) Prime(a, b bool) {
	d.state = pack(a, b)
	d.acc = 0
}

// OnEdge consumes one qualifying edge on a single channel.
func (d *Decoder) OnEdge(ch Channel, level bool) {
	s := d.state
	var next uint8
	if ch == ChanA {
		next = s&0b01 | pack(level, false)
	} else {
		next = s&0b10 | pack(false, level)
	}
	d.apply(next)
}

// OnLevels consumes a simultaneous sample of both channels, as taken
// by an interrupt handler that reads both lines on any edge.
func (d *Decoder) OnLevels(a, b bool) {
	d.apply(pack(a, b))
}

func (d *Decoder) apply(next uint8) {
	delta := transitions[d.state<<2|next]
	d.state = next
	if delta == 0 {
		return // duplicate or illegal transition: discard
	}
	if d.reverse {
		delta = -delta
	}
	if d.halfStep {
		d.store.Add(int32(delta))
		return
	}
	// Full-step mode commits one count per two half-steps.
	d.acc += delta
	if d.acc == 2 || d.acc == -2 {
		d.store.Add(int32(d.acc / 2))
		d.acc = 0
	}
}

func pack(a, b bool) uint8 {
	var s uint8
	if a {
		s |= 0b10
	}
	if b {
		s |= 0b01
	}
	return s
}
