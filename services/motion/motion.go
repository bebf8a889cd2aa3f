// services/motion/motion.go
package motion

import (
	"context"
	"time"

	"anglectl-go/bus"
	"anglectl-go/errcode"
	"anglectl-go/hw"
	"anglectl-go/services/motion/internal/quadrature"
	"anglectl-go/types"
	"anglectl-go/x/mathx"
	"anglectl-go/x/timex"
)

// -----------------------------------------------------------------------------
// Entry point
// -----------------------------------------------------------------------------

// Run starts the motion service. It waits for a retained MotionConfig
// on "config/motion", claims the encoder and actuator pins, binds the
// decoder to the two channel interrupts and then serves sequence
// control requests until ctx is cancelled.
func Run(ctx context.Context, conn *bus.Connection, pins hw.PinFactory) {
	s := &service{
		conn: conn,
		pins: pins,
	}
	s.loop(ctx)
}

type service struct {
	conn *bus.Connection
	pins hw.PinFactory

	store *quadrature.Store
	seq   *Sequencer
}

// -----------------------------------------------------------------------------
// Main loop
// -----------------------------------------------------------------------------

func (s *service) loop(ctx context.Context) {
	cfgSub := s.conn.Subscribe(bus.T("config", "motion"))
	setSub := s.conn.Subscribe(bus.T("motion", "sequence", "set"))
	stopSub := s.conn.Subscribe(bus.T("motion", "sequence", "stop"))
	dbgSub := s.conn.Subscribe(bus.T("motion", "debug"))
	defer s.conn.Unsubscribe(cfgSub)
	defer s.conn.Unsubscribe(setSub)
	defer s.conn.Unsubscribe(stopSub)
	defer s.conn.Unsubscribe(dbgSub)

	for {
		select {
		case <-ctx.Done():
			println("Info: motion service stopping")
			return

		case msg := <-cfgSub.Channel():
			if s.seq != nil {
				println("Info: motion already configured, ignoring config update")
				continue
			}
			cfg, err := decodeMotionConfig(msg.Payload)
			if err != nil {
				println("Error: motion config:", err.Error())
				continue
			}
			if err := s.setup(ctx, cfg); err != nil {
				println("Error: motion setup:", err.Error())
				continue
			}
			println("Info: motion configured, pins A/B/out:",
				cfg.PinA, cfg.PinB, cfg.PinOut)

		case msg := <-setSub.Channel():
			s.handleSet(ctx, msg)

		case msg := <-stopSub.Channel():
			if s.seq == nil {
				s.reply(msg, errcode.NotConfigured, "")
				continue
			}
			err := s.seq.Stop(ctx)
			s.reply(msg, errcode.Of(err), "")

		case msg := <-dbgSub.Channel():
			if s.seq == nil {
				s.reply(msg, errcode.NotConfigured, "")
				continue
			}
			on, ok := msg.Payload.(bool)
			if !ok {
				s.reply(msg, errcode.InvalidPayload, "want bool")
				continue
			}
			err := s.seq.SetDebug(ctx, on)
			s.reply(msg, errcode.Of(err), "")
		}
	}
}

func (s *service) handleSet(ctx context.Context, msg *bus.Message) {
	if s.seq == nil {
		s.reply(msg, errcode.NotConfigured, "")
		return
	}
	var targets []int32
	switch p := msg.Payload.(type) {
	case types.SequenceRequest:
		targets = p.Targets
	case []int32:
		targets = p
	default:
		s.reply(msg, errcode.InvalidPayload, "want SequenceRequest")
		return
	}
	if len(targets) == 0 {
		s.reply(msg, errcode.EmptyTargets, "")
		return
	}
	// Targets outside the counter range could never fire; pin them to
	// the reachable band like the original angle validation did.
	clamped := make([]int32, len(targets))
	for i, t := range targets {
		clamped[i] = mathx.Clamp(t, s.store.Min(), s.store.Max())
	}
	err := s.seq.Start(ctx, clamped)
	s.reply(msg, errcode.Of(err), "")
}

func (s *service) reply(msg *bus.Message, code errcode.Code, detail string) {
	rep := types.CommandReply{OK: code == errcode.OK, Detail: detail}
	if !rep.OK {
		rep.Err = string(code)
	}
	s.conn.Reply(msg, rep, false)
}

// -----------------------------------------------------------------------------
// Hardware setup
// -----------------------------------------------------------------------------

func (s *service) setup(ctx context.Context, cfg types.MotionConfig) error {
	pa, err := s.irqPin(cfg.PinA)
	if err != nil {
		return err
	}
	pb, err := s.irqPin(cfg.PinB)
	if err != nil {
		return err
	}
	po, ok := s.pins.ByNumber(cfg.PinOut)
	if !ok {
		return &errcode.E{C: errcode.UnknownPin, Op: "motion.setup", Msg: "output pin"}
	}

	pull := hw.PullNone
	if cfg.PullUp {
		pull = hw.PullUp
	}
	_ = pa.ConfigureInput(pull)
	_ = pb.ConfigureInput(pull)

	mode := quadrature.Bounded
	if cfg.Range == "wrapped" {
		mode = quadrature.Wrapped
	}
	s.store = quadrature.NewStore(cfg.MinPos, cfg.MaxPos, mode)
	dec := quadrature.NewDecoder(s.store, quadrature.Config{
		HalfStep: cfg.HalfStep,
		Reverse:  cfg.Reverse,
	})
	dec.Prime(pa.Get(), pb.Get())

	// One statically distinct binding per channel; each handler reads
	// only its own line and passes an explicit channel tag.
	if err := pa.SetIRQ(hw.EdgeBoth, func() {
		dec.OnEdge(quadrature.ChanA, pa.Get())
	}); err != nil {
		return err
	}
	if err := pb.SetIRQ(hw.EdgeBoth, func() {
		dec.OnEdge(quadrature.ChanB, pb.Get())
	}); err != nil {
		return err
	}

	s.seq = NewSequencer(s.store, NewPinActuator(po), SequencerConfig{
		ActivePoll: time.Duration(cfg.ActivePollMs) * time.Millisecond,
		IdlePoll:   time.Duration(cfg.IdlePollMs) * time.Millisecond,
		ResetBelow: cfg.ResetBelow,
		RearmAbove: cfg.RearmAbove,
	}, s.publishUpdate)
	go s.seq.Run(ctx)

	s.publishUpdate(Snapshot{State: types.SeqIdle, Position: s.store.Load()}, "configured")
	return nil
}

func (s *service) irqPin(n int) (hw.IRQPin, error) {
	p, ok := s.pins.ByNumber(n)
	if !ok {
		return nil, &errcode.E{C: errcode.UnknownPin, Op: "motion.setup"}
	}
	ip, ok := p.(hw.IRQPin)
	if !ok {
		return nil, &errcode.E{C: errcode.InvalidParams, Op: "motion.setup", Msg: "pin lacks IRQ support"}
	}
	return ip, nil
}

// -----------------------------------------------------------------------------
// Status + events
// -----------------------------------------------------------------------------

var statusTopic = bus.T("status", "motion")

func (s *service) publishUpdate(snap Snapshot, tag string) {
	status := types.MotionStatus{
		State:       snap.State,
		Position:    snap.Position,
		Angle:       float32(snap.Position) / 2,
		Targets:     snap.Targets,
		TargetIndex: snap.TargetIndex,
		OutputOn:    snap.OutputOn,
		TS:          timex.NowMs(),
	}
	s.conn.Publish(s.conn.NewMessage(statusTopic, status, true))

	switch tag {
	case "position", "configured":
		return
	case "target_reached", "reset":
		var target int32
		if snap.TargetIndex < len(snap.Targets) {
			target = snap.Targets[snap.TargetIndex]
		}
		s.conn.Publish(s.conn.NewMessage(bus.T("motion", "event", tag), types.TargetEvent{
			Index:  snap.TargetIndex,
			Target: target,
			Angle:  float32(target) / 2,
			TS:     status.TS,
		}, false))
	default:
		s.conn.Publish(s.conn.NewMessage(bus.T("motion", "event", tag), status, false))
	}
}

// -----------------------------------------------------------------------------
// Config decoding
// -----------------------------------------------------------------------------

// decodeMotionConfig accepts either a typed MotionConfig (in-process
// callers) or a map[string]any (embedded JSON via the config service).
func decodeMotionConfig(payload any) (types.MotionConfig, error) {
	switch p := payload.(type) {
	case types.MotionConfig:
		return withConfigDefaults(p), nil
	case map[string]any:
		cfg := types.MotionConfig{
			PinA:         mapInt(p, "pin_a", -1),
			PinB:         mapInt(p, "pin_b", -1),
			PinOut:       mapInt(p, "pin_out", -1),
			PullUp:       mapBool(p, "pull_up", true),
			MinPos:       int32(mapInt(p, "min_pos", 0)),
			MaxPos:       int32(mapInt(p, "max_pos", 0)),
			Range:        mapStr(p, "range", "bounded"),
			HalfStep:     mapBool(p, "half_step", true),
			Reverse:      mapBool(p, "reverse", false),
			ActivePollMs: int32(mapInt(p, "active_poll_ms", 0)),
			IdlePollMs:   int32(mapInt(p, "idle_poll_ms", 0)),
			ResetBelow:   int32(mapInt(p, "reset_below", 0)),
			RearmAbove:   int32(mapInt(p, "rearm_above", 0)),
		}
		if cfg.PinA < 0 || cfg.PinB < 0 || cfg.PinOut < 0 {
			return cfg, errcode.InvalidParams
		}
		return withConfigDefaults(cfg), nil
	default:
		return types.MotionConfig{}, errcode.InvalidPayload
	}
}

func withConfigDefaults(cfg types.MotionConfig) types.MotionConfig {
	if cfg.MinPos == 0 && cfg.MaxPos == 0 {
		cfg.MaxPos = 720 // 360° at 0.5° per half-step
	}
	return cfg
}

func mapInt(m map[string]any, key string, def int) int {
	switch v := m[key].(type) {
	case float64:
		return int(v)
	case int:
		return v
	case int64:
		return int(v)
	default:
		return def
	}
}

func mapBool(m map[string]any, key string, def bool) bool {
	if v, ok := m[key].(bool); ok {
		return v
	}
	return def
}

func mapStr(m map[string]any, key, def string) string {
	if v, ok := m[key].(string); ok && v != "" {
		return v
	}
	return def
}
