package motion

import (
	"context"
	"testing"
	"time"

	"anglectl-go/bus"
	"anglectl-go/hw"
	"anglectl-go/types"
)

func waitStatus(t *testing.T, sub *bus.Subscription, pred func(types.MotionStatus) bool) types.MotionStatus {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		select {
		case msg := <-sub.Channel():
			st, ok := msg.Payload.(types.MotionStatus)
			if !ok {
				t.Fatalf("status payload %T, want MotionStatus", msg.Payload)
			}
			if pred(st) {
				return st
			}
		case <-deadline:
			t.Fatal("timed out waiting for status")
		}
	}
}

func requestReply(t *testing.T, ctx context.Context, cli *bus.Connection, topic bus.Topic, payload any) types.CommandReply {
	t.Helper()
	msg, err := cli.RequestWait(ctx, cli.NewMessage(topic, payload, false))
	if err != nil {
		t.Fatalf("request %v: %v", topic, err)
	}
	rep, ok := msg.Payload.(types.CommandReply)
	if !ok {
		t.Fatalf("reply payload %T, want CommandReply", msg.Payload)
	}
	return rep
}

// spin drives one full quadrature cycle on the fake encoder pins,
// 4 half-steps, clockwise when cw is true.
func spin(pa, pb *hw.FakePin, cw bool) {
	if cw {
		pb.Set(true)
		pa.Set(true)
		pb.Set(false)
		pa.Set(false)
	} else {
		pa.Set(true)
		pb.Set(true)
		pa.Set(false)
		pb.Set(false)
	}
}

func TestServiceEndToEndOverBus(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	b := bus.NewBus(64)
	fac := hw.NewFakeFactory()
	go Run(ctx, b.NewConnection("motion"), fac)

	cli := b.NewConnection("test")
	statusSub := cli.Subscribe(bus.T("status", "motion"))
	eventSub := cli.Subscribe(bus.T("motion", "event", "target_reached"))

	cli.Publish(cli.NewMessage(bus.T("config", "motion"), map[string]any{
		"pin_a":          21,
		"pin_b":          22,
		"pin_out":        32,
		"max_pos":        720,
		"active_poll_ms": 2,
		"idle_poll_ms":   5,
	}, true))
	waitStatus(t, statusSub, func(st types.MotionStatus) bool {
		return st.State == types.SeqIdle
	})

	rep := requestReply(t, ctx, cli, bus.T("motion", "sequence", "set"),
		types.SequenceRequest{Targets: []int32{8}})
	if !rep.OK {
		t.Fatalf("set rejected: %s", rep.Err)
	}

	pa, pb := fac.Pin(21), fac.Pin(22)
	spin(pa, pb, true)
	spin(pa, pb, true) // 8 half-steps

	st := waitStatus(t, statusSub, func(st types.MotionStatus) bool {
		return st.State == types.SeqTriggered
	})
	if !st.OutputOn {
		t.Fatal("output should be on at target")
	}

	select {
	case msg := <-eventSub.Channel():
		ev := msg.Payload.(types.TargetEvent)
		if ev.Target != 8 || ev.Angle != 4 {
			t.Fatalf("event = %+v, want target 8 / angle 4", ev)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no target_reached event")
	}

	spin(pa, pb, false)
	spin(pa, pb, false) // back to 0

	st = waitStatus(t, statusSub, func(st types.MotionStatus) bool {
		return st.State == types.SeqCompleted
	})
	if st.OutputOn {
		t.Fatal("output should be off when completed")
	}
	if st.Position != 0 {
		t.Fatalf("position = %d, want 0 after reset", st.Position)
	}
}

func TestServiceRejectsBeforeConfig(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	b := bus.NewBus(16)
	go Run(ctx, b.NewConnection("motion"), hw.NewFakeFactory())

	cli := b.NewConnection("test")
	rep := requestReply(t, ctx, cli, bus.T("motion", "sequence", "stop"), nil)
	if rep.OK || rep.Err != "not_configured" {
		t.Fatalf("reply = %+v, want not_configured", rep)
	}
}

func TestServiceRejectsEmptyAndBadPayload(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	b := bus.NewBus(16)
	fac := hw.NewFakeFactory()
	go Run(ctx, b.NewConnection("motion"), fac)

	cli := b.NewConnection("test")
	statusSub := cli.Subscribe(bus.T("status", "motion"))
	cli.Publish(cli.NewMessage(bus.T("config", "motion"), types.MotionConfig{
		PinA: 21, PinB: 22, PinOut: 32, MaxPos: 720, HalfStep: true,
	}, true))
	waitStatus(t, statusSub, func(st types.MotionStatus) bool {
		return st.State == types.SeqIdle
	})

	rep := requestReply(t, ctx, cli, bus.T("motion", "sequence", "set"),
		types.SequenceRequest{})
	if rep.OK || rep.Err != "empty_targets" {
		t.Fatalf("reply = %+v, want empty_targets", rep)
	}

	rep = requestReply(t, ctx, cli, bus.T("motion", "sequence", "set"), "45,90")
	if rep.OK || rep.Err != "invalid_payload" {
		t.Fatalf("reply = %+v, want invalid_payload", rep)
	}
}
