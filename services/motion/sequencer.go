// services/motion/sequencer.go
package motion

import (
	"context"
	"time"

	"anglectl-go/errcode"
	"anglectl-go/services/motion/internal/quadrature"
	"anglectl-go/types"
	"anglectl-go/x/strconvx"
	"anglectl-go/x/timex"
)

// SequencerConfig centralises timings and thresholds (half-steps).
type SequencerConfig struct {
	ActivePoll time.Duration // poll cadence while a sequence runs
	IdlePoll   time.Duration // poll cadence while idle/completed
	ResetBelow int32         // near-zero threshold
	RearmAbove int32         // clear threshold for re-latching
}

func (c *SequencerConfig) applyDefaults() {
	if c.ActivePoll <= 0 {
		c.ActivePoll = 50 * time.Millisecond
	}
	if c.IdlePoll <= 0 {
		c.IdlePoll = 200 * time.Millisecond
	}
	if c.ResetBelow <= 0 {
		c.ResetBelow = 4 // < 2° at 0.5° per half-step
	}
	if c.RearmAbove <= 0 {
		c.RearmAbove = 10 // > 5°
	}
}

// Snapshot is the sequencer's externally visible state at one poll.
type Snapshot struct {
	State       types.SeqState
	Position    int32
	Targets     []int32
	TargetIndex int
	OutputOn    bool
}

// Notify receives a snapshot after every observable change. The tag
// names what happened: "target_reached", "reset", "completed",
// "stopped", "started" or "position".
type Notify func(s Snapshot, tag string)

// Sequencer owns all sequence state. It runs as exactly one goroutine;
// commands arrive over a channel, so a new sequence replaces the old
// one without two tasks ever owning the actuator. The decoder shares
// nothing with it beyond the position store.
type Sequencer struct {
	store  *quadrature.Store
	act    Actuator
	cfg    SequencerConfig
	notify Notify
	cmds   chan seqCmd
}

type seqCmd struct {
	kind    uint8 // 'r'un, 's'top, 'q'uery, 'd'ebug
	targets []int32
	debug   bool
	errCh   chan error
	snapCh  chan Snapshot
}

func NewSequencer(store *quadrature.Store, act Actuator, cfg SequencerConfig, notify Notify) *Sequencer {
	cfg.applyDefaults()
	if notify == nil {
		notify = func(Snapshot, string) {}
	}
	return &Sequencer{
		store:  store,
		act:    act,
		cfg:    cfg,
		notify: notify,
		cmds:   make(chan seqCmd, 4),
	}
}

// Start begins a new sequence, replacing any active one. An empty
// queue is rejected without touching the running state.
func (s *Sequencer) Start(ctx context.Context, targets []int32) error {
	if len(targets) == 0 {
		return errcode.EmptyTargets
	}
	return s.send(ctx, seqCmd{kind: 'r', targets: targets, errCh: make(chan error, 1)})
}

// Stop halts any running sequence and forces the actuator off.
// Idempotent when already idle.
func (s *Sequencer) Stop(ctx context.Context) error {
	return s.send(ctx, seqCmd{kind: 's', errCh: make(chan error, 1)})
}

// SetDebug toggles per-poll position logging.
func (s *Sequencer) SetDebug(ctx context.Context, on bool) error {
	return s.send(ctx, seqCmd{kind: 'd', debug: on, errCh: make(chan error, 1)})
}

// Status returns the current snapshot.
func (s *Sequencer) Status(ctx context.Context) (Snapshot, error) {
	c := seqCmd{kind: 'q', snapCh: make(chan Snapshot, 1)}
	select {
	case s.cmds <- c:
	case <-ctx.Done():
		return Snapshot{}, ctx.Err()
	}
	select {
	case snap := <-c.snapCh:
		return snap, nil
	case <-ctx.Done():
		return Snapshot{}, ctx.Err()
	}
}

func (s *Sequencer) send(ctx context.Context, c seqCmd) error {
	select {
	case s.cmds <- c:
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case err := <-c.errCh:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Run is the sequencer task. It blocks until ctx is cancelled and
// leaves the actuator off on every exit path.
func (s *Sequencer) Run(ctx context.Context) {
	var (
		state        = types.SeqIdle
		targets      []int32
		idx          int
		triggered    bool
		resetLatched bool
		outputOn     bool
		debug        bool
		lastPos      = s.store.Load()
	)

	snap := func() Snapshot {
		return Snapshot{
			State:       state,
			Position:    s.store.Load(),
			Targets:     targets,
			TargetIndex: idx,
			OutputOn:    outputOn,
		}
	}
	setOutput := func(on bool) {
		s.act.SetLevel(on)
		outputOn = on
	}

	timer := time.NewTimer(s.cfg.IdlePoll)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			s.act.SetLevel(false)
			return

		case c := <-s.cmds:
			switch c.kind {
			case 'r':
				// Replace any active sequence; never overlap.
				targets = c.targets
				idx = 0
				triggered = false
				resetLatched = false
				setOutput(false)
				state = types.SeqRunning
				c.errCh <- nil
				s.notify(snap(), "started")
			case 's':
				setOutput(false)
				targets = nil
				idx = 0
				triggered = false
				resetLatched = false
				state = types.SeqIdle
				c.errCh <- nil
				s.notify(snap(), "stopped")
			case 'd':
				debug = c.debug
				c.errCh <- nil
			case 'q':
				c.snapCh <- snap()
			}

		case <-timer.C:
			pos := s.store.Load()

			if debug {
				println("Debug: pos", pos, "angle", angleStr(pos),
					"state", string(state))
			}

			// Edge-triggered fire: the actuator latches on and stays
			// on until the explicit near-zero reset below.
			if state == types.SeqRunning && !triggered && pos >= targets[idx] {
				setOutput(true)
				triggered = true
				state = types.SeqTriggered
				s.notify(snap(), "target_reached")
				println("Info: target reached:", angleStr(targets[idx]), "deg")
			}

			// Return-to-origin reset. Latched so one pass through the
			// near-zero band cannot fire twice before the mechanism
			// has actually moved away again.
			if state == types.SeqTriggered && pos < s.cfg.ResetBelow && !resetLatched {
				state = types.SeqResetting
				s.store.Set(0)
				resetLatched = true
				triggered = false
				setOutput(false)
				idx++
				if idx >= len(targets) {
					state = types.SeqCompleted
					s.notify(snap(), "completed")
					println("Info: all targets completed")
				} else {
					state = types.SeqRunning
					s.notify(snap(), "reset")
					println("Info: position reset, awaiting target", idx)
				}
				pos = 0
			}

			if pos > s.cfg.RearmAbove {
				resetLatched = false
			}

			if pos != lastPos {
				s.notify(snap(), "position")
			}
			lastPos = pos
		}

		interval := s.cfg.IdlePoll
		if state == types.SeqRunning || state == types.SeqTriggered {
			interval = s.cfg.ActivePoll
		}
		timex.ResetTimer(timer, interval)
	}
}

func angleStr(halfSteps int32) string {
	return strconvx.FormatFloat(float64(halfSteps)/2, 'f', 1, 32)
}
