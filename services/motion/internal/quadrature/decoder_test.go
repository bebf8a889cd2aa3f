// services/motion/internal/quadrature/decoder_test.go
package quadrature

import "testing"

// Gray-code walks used by most tests. States are (A<<1 | B).
var (
	cwCycle  = []uint8{0b00, 0b01, 0b11, 0b10, 0b00}
	ccwCycle = []uint8{0b00, 0b10, 0b11, 0b01, 0b00}
)

func driveStates(d *Decoder, states []uint8) {
	for _, s := range states {
		d.OnLevels(s&0b10 != 0, s&0b01 != 0)
	}
}

func TestDecoder_ValidCycleCountsHalfSteps(t *testing.T) {
	st := NewStore(0, 720, Bounded)
	d := NewDecoder(st, Config{HalfStep: true})

	driveStates(d, cwCycle[1:]) // start from primed 00
	if got := st.Load(); got != 4 {
		t.Fatalf("CW cycle: position = %d, want 4", got)
	}

	driveStates(d, ccwCycle[1:])
	if got := st.Load(); got != 0 {
		t.Fatalf("after CCW cycle: position = %d, want 0", got)
	}
}

func TestDecoder_DeltaSumMatchesTable(t *testing.T) {
	st := NewStore(-1000, 1000, Bounded)
	d := NewDecoder(st, Config{HalfStep: true})

	// A mixed walk with direction changes; expected value is the
	// signed sum of per-transition table deltas.
	walk := []uint8{0b01, 0b11, 0b10, 0b11, 0b01, 0b00, 0b01, 0b11}
	want := int32(0)
	prev := uint8(0)
	for _, s := range walk {
		want += int32(transitions[prev<<2|s])
		prev = s
	}

	driveStates(d, walk)
	if got := st.Load(); got != want {
		t.Fatalf("position = %d, want %d", got, want)
	}
}

func TestDecoder_IllegalTransitionsDiscarded(t *testing.T) {
	st := NewStore(0, 720, Bounded)
	d := NewDecoder(st, Config{HalfStep: true})

	// Two bits changing at once is contention noise.
	d.OnLevels(true, true) // 00 -> 11
	d.OnLevels(false, false)
	d.OnLevels(true, true)
	if got := st.Load(); got != 0 {
		t.Fatalf("illegal transitions moved position to %d", got)
	}

	// Repeated states (bounce without a level change) are discarded too.
	d.Prime(false, false)
	d.OnLevels(false, true) // +1
	d.OnLevels(false, true)
	d.OnLevels(false, true)
	if got := st.Load(); got != 1 {
		t.Fatalf("bounced state: position = %d, want 1", got)
	}
}

func TestDecoder_OnEdgePerChannel(t *testing.T) {
	st := NewStore(0, 720, Bounded)
	d := NewDecoder(st, Config{HalfStep: true})
	d.Prime(false, false)

	// The same CW walk delivered as per-channel edge callbacks.
	d.OnEdge(ChanB, true)  // 00 -> 01
	d.OnEdge(ChanA, true)  // 01 -> 11
	d.OnEdge(ChanB, false) // 11 -> 10
	d.OnEdge(ChanA, false) // 10 -> 00
	if got := st.Load(); got != 4 {
		t.Fatalf("position = %d, want 4", got)
	}

	// A duplicate edge report must not count.
	d.OnEdge(ChanA, false)
	if got := st.Load(); got != 4 {
		t.Fatalf("duplicate edge moved position to %d", got)
	}
}

func TestDecoder_FullStepModeHalvesResolution(t *testing.T) {
	st := NewStore(0, 360, Bounded)
	d := NewDecoder(st, Config{HalfStep: false})

	driveStates(d, cwCycle[1:]) // 4 half-steps
	if got := st.Load(); got != 2 {
		t.Fatalf("full-step position = %d, want 2", got)
	}

	// A jiggle that nets zero half-steps leaves the count alone.
	driveStates(d, []uint8{0b01, 0b00})
	if got := st.Load(); got != 2 {
		t.Fatalf("after jiggle: position = %d, want 2", got)
	}
}

func TestDecoder_Reverse(t *testing.T) {
	st := NewStore(-100, 100, Bounded)
	d := NewDecoder(st, Config{HalfStep: true, Reverse: true})

	driveStates(d, cwCycle[1:])
	if got := st.Load(); got != -4 {
		t.Fatalf("reversed CW cycle: position = %d, want -4", got)
	}
}

func TestDecoder_BoundedSaturates(t *testing.T) {
	st := NewStore(0, 5, Bounded)
	d := NewDecoder(st, Config{HalfStep: true})

	for i := 0; i < 3; i++ {
		driveStates(d, cwCycle[1:]) // +4 per cycle
	}
	if got := st.Load(); got != 5 {
		t.Fatalf("bounded position = %d, want saturation at 5", got)
	}

	driveStates(d, ccwCycle[1:])
	if got := st.Load(); got != 1 {
		t.Fatalf("after CCW from bound: position = %d, want 1", got)
	}
}

func TestDecoder_WrappedModulo(t *testing.T) {
	st := NewStore(0, 3, Wrapped) // range of 4
	d := NewDecoder(st, Config{HalfStep: true})

	// 6 valid CW half-steps: 6 mod 4 = 2.
	driveStates(d, cwCycle[1:])
	driveStates(d, cwCycle[1:3])
	if got := st.Load(); got != 2 {
		t.Fatalf("wrapped position = %d, want 2", got)
	}

	// Wrap backwards through the opposite bound.
	st2 := NewStore(0, 3, Wrapped)
	d2 := NewDecoder(st2, Config{HalfStep: true})
	driveStates(d2, ccwCycle[1:2])
	if got := st2.Load(); got != 3 {
		t.Fatalf("backward wrap: position = %d, want 3", got)
	}
}

func TestDecoder_PrimeDoesNotCount(t *testing.T) {
	st := NewStore(0, 720, Bounded)
	d := NewDecoder(st, Config{HalfStep: true})

	d.Prime(true, true)
	if got := st.Load(); got != 0 {
		t.Fatalf("Prime moved position to %d", got)
	}
	// First edge after priming decodes against the primed state.
	d.OnLevels(true, false) // 11 -> 10 is +1
	if got := st.Load(); got != 1 {
		t.Fatalf("post-prime edge: position = %d, want 1", got)
	}
}
