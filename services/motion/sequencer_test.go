package motion

import (
	"context"
	"sync"
	"testing"
	"time"

	"anglectl-go/errcode"
	"anglectl-go/services/motion/internal/quadrature"
	"anglectl-go/types"
)

// fakeActuator records the last level set, safe to read from the test
// goroutine while the sequencer writes it.
type fakeActuator struct {
	mu sync.Mutex
	on bool
}

func (f *fakeActuator) SetLevel(level bool) {
	f.mu.Lock()
	f.on = level
	f.mu.Unlock()
}

func (f *fakeActuator) On() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.on
}

type seqFixture struct {
	store  *quadrature.Store
	act    *fakeActuator
	seq    *Sequencer
	tags   chan string
	cancel context.CancelFunc
}

func newSeqFixture(t *testing.T) (*seqFixture, context.Context) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	f := &seqFixture{
		store:  quadrature.NewStore(0, 720, quadrature.Bounded),
		act:    &fakeActuator{},
		tags:   make(chan string, 256),
		cancel: cancel,
	}
	f.seq = NewSequencer(f.store, f.act, SequencerConfig{
		ActivePoll: 2 * time.Millisecond,
		IdlePoll:   5 * time.Millisecond,
		ResetBelow: 4,
		RearmAbove: 10,
	}, func(_ Snapshot, tag string) {
		select {
		case f.tags <- tag:
		default:
		}
	})
	go f.seq.Run(ctx)
	return f, ctx
}

// waitTag blocks until the named tag arrives, skipping everything else.
func (f *seqFixture) waitTag(t *testing.T, want string) {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		select {
		case tag := <-f.tags:
			if tag == want {
				return
			}
		case <-deadline:
			t.Fatalf("timed out waiting for %q event", want)
		}
	}
}

// expectNoTag asserts the named tag does not arrive within d.
func (f *seqFixture) expectNoTag(t *testing.T, d time.Duration, unwanted string) {
	t.Helper()
	deadline := time.After(d)
	for {
		select {
		case tag := <-f.tags:
			if tag == unwanted {
				t.Fatalf("unexpected %q event", unwanted)
			}
		case <-deadline:
			return
		}
	}
}

func (f *seqFixture) state(t *testing.T, ctx context.Context) types.SeqState {
	t.Helper()
	snap, err := f.seq.Status(ctx)
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	return snap.State
}

func TestSequenceEndToEnd(t *testing.T) {
	f, ctx := newSeqFixture(t)

	// set 45,90 → 90 and 180 half-steps
	if err := f.seq.Start(ctx, []int32{90, 180}); err != nil {
		t.Fatalf("start: %v", err)
	}
	f.waitTag(t, "started")

	f.store.Add(90)
	f.waitTag(t, "target_reached")
	if !f.act.On() {
		t.Fatal("actuator should be on after first target")
	}

	// Still past target: output stays latched on across polls.
	f.store.Add(5)
	time.Sleep(20 * time.Millisecond)
	if !f.act.On() {
		t.Fatal("actuator must stay latched until near-zero reset")
	}

	// Back near zero: reset, advance to the second target.
	f.store.Add(-95)
	f.waitTag(t, "reset")
	if f.act.On() {
		t.Fatal("actuator should be off after reset")
	}
	if got := f.store.Load(); got != 0 {
		t.Fatalf("position after reset = %d, want 0", got)
	}

	f.store.Add(180)
	f.waitTag(t, "target_reached")
	f.store.Add(-180)
	f.waitTag(t, "completed")
	if got := f.state(t, ctx); got != types.SeqCompleted {
		t.Fatalf("state = %v, want completed", got)
	}
	if f.act.On() {
		t.Fatal("actuator should be off when completed")
	}
}

func TestStartRejectsEmptyTargets(t *testing.T) {
	f, ctx := newSeqFixture(t)
	if err := f.seq.Start(ctx, nil); errcode.Of(err) != errcode.EmptyTargets {
		t.Fatalf("err = %v, want empty_targets", err)
	}
	if got := f.state(t, ctx); got != types.SeqIdle {
		t.Fatalf("state = %v, want idle", got)
	}
}

func TestStopIsIdempotent(t *testing.T) {
	f, ctx := newSeqFixture(t)

	if err := f.seq.Start(ctx, []int32{90}); err != nil {
		t.Fatalf("start: %v", err)
	}
	f.store.Add(90)
	f.waitTag(t, "target_reached")

	if err := f.seq.Stop(ctx); err != nil {
		t.Fatalf("stop: %v", err)
	}
	f.waitTag(t, "stopped")
	if f.act.On() {
		t.Fatal("actuator should be off after stop")
	}
	if got := f.state(t, ctx); got != types.SeqIdle {
		t.Fatalf("state = %v, want idle", got)
	}

	// A second stop with nothing running is a no-op, not an error.
	if err := f.seq.Stop(ctx); err != nil {
		t.Fatalf("second stop: %v", err)
	}
	if got := f.state(t, ctx); got != types.SeqIdle {
		t.Fatalf("state after second stop = %v, want idle", got)
	}
	if f.act.On() {
		t.Fatal("actuator must remain off")
	}
}

func TestStartReplacesActiveSequence(t *testing.T) {
	f, ctx := newSeqFixture(t)

	if err := f.seq.Start(ctx, []int32{600}); err != nil {
		t.Fatalf("start: %v", err)
	}
	f.waitTag(t, "started")

	if err := f.seq.Start(ctx, []int32{40}); err != nil {
		t.Fatalf("restart: %v", err)
	}
	f.waitTag(t, "started")

	snap, err := f.seq.Status(ctx)
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	if len(snap.Targets) != 1 || snap.Targets[0] != 40 {
		t.Fatalf("targets = %v, want [40]", snap.Targets)
	}

	f.store.Add(40)
	f.waitTag(t, "target_reached")
}

func TestCompletedLeavesPositionAlone(t *testing.T) {
	f, ctx := newSeqFixture(t)

	if err := f.seq.Start(ctx, []int32{50}); err != nil {
		t.Fatalf("start: %v", err)
	}
	f.store.Add(50)
	f.waitTag(t, "target_reached")
	f.store.Add(-50)
	f.waitTag(t, "completed")

	// Knob keeps turning after completion: counter follows, but the
	// sequencer neither fires nor resets.
	f.store.Add(30)
	time.Sleep(30 * time.Millisecond)
	if got := f.store.Load(); got != 30 {
		t.Fatalf("position = %d, want 30", got)
	}
	if got := f.state(t, ctx); got != types.SeqCompleted {
		t.Fatalf("state = %v, want completed", got)
	}
	if f.act.On() {
		t.Fatal("actuator must stay off after completion")
	}
}

func TestRearmGuardBlocksImmediateReset(t *testing.T) {
	f, ctx := newSeqFixture(t)

	// Second target of 0 fires at once after the reset; the re-arm
	// latch must hold the reset off until position has been above 10.
	if err := f.seq.Start(ctx, []int32{50, 0}); err != nil {
		t.Fatalf("start: %v", err)
	}
	f.store.Add(50)
	f.waitTag(t, "target_reached")
	f.store.Add(-50)
	f.waitTag(t, "reset")

	f.waitTag(t, "target_reached") // pos 0 >= target 0
	f.expectNoTag(t, 30*time.Millisecond, "reset")
	if got := f.state(t, ctx); got != types.SeqTriggered {
		t.Fatalf("state = %v, want triggered (reset latched)", got)
	}

	// Rise past the re-arm threshold, come back down: now it resets.
	f.store.Add(20)
	time.Sleep(20 * time.Millisecond)
	f.store.Add(-20)
	f.waitTag(t, "completed")
	if f.act.On() {
		t.Fatal("actuator should be off when completed")
	}
}

func TestCancelForcesActuatorOff(t *testing.T) {
	f, ctx := newSeqFixture(t)

	if err := f.seq.Start(ctx, []int32{10}); err != nil {
		t.Fatalf("start: %v", err)
	}
	f.store.Add(10)
	f.waitTag(t, "target_reached")

	f.cancel()
	time.Sleep(20 * time.Millisecond)
	if f.act.On() {
		t.Fatal("actuator must be driven off on shutdown")
	}
}
