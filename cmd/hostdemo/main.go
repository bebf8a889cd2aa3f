//go:build !rp2040 && !rp2350

// hostdemo runs the whole angle rig against simulated hardware: a fake
// encoder that "turns" while a sequence is active, the stdin console,
// and the HTTP API on -addr.
package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"time"

	"anglectl-go/bus"
	"anglectl-go/hw"
	"anglectl-go/services/console"
	"anglectl-go/services/heartbeat"
	"anglectl-go/services/motion"
	"anglectl-go/services/web"
	"anglectl-go/types"
)

const (
	pinA   = 21
	pinB   = 22
	pinOut = 16
)

func main() {
	addr := flag.String("addr", "127.0.0.1:8080", "HTTP listen address")
	flag.Parse()

	ctx := context.Background()
	b := bus.NewBus(16)
	fac := hw.NewFakeFactory()

	go motion.Run(ctx, b.NewConnection("motion"), fac)
	hb := &heartbeat.Service{}
	_ = hb.Start(ctx, b.NewConnection("heartbeat"))

	boot := b.NewConnection("boot")
	boot.Publish(boot.NewMessage(bus.T("config", "motion"), types.MotionConfig{
		PinA:         pinA,
		PinB:         pinB,
		PinOut:       pinOut,
		MinPos:       0,
		MaxPos:       720,
		HalfStep:     true,
		ActivePollMs: 20,
		IdlePollMs:   100,
	}, true))

	go simulateMechanism(ctx, b, fac)

	go console.Run(ctx, b.NewConnection("console"),
		console.NewIOPort(os.Stdin, os.Stdout))

	println("Info: hostdemo listening on", *addr)
	router := web.Router(web.NewClient(ctx, b.NewConnection("web")))
	if err := http.ListenAndServe(*addr, router); err != nil {
		println("Error: http:", err.Error())
		os.Exit(1)
	}
}

// simulateMechanism plays the mechanism: while a sequence is running
// the shaft turns forward; once the output stage fires it returns to
// zero, which is what triggers the sequencer's reset.
func simulateMechanism(ctx context.Context, b *bus.Bus, fac *hw.FakeFactory) {
	cli := b.NewConnection("sim")
	stSub := cli.Subscribe(bus.T("status", "motion"))

	pa, pb := fac.Pin(pinA), fac.Pin(pinB)
	out := fac.Pin(pinOut)

	// Gray sequence for one forward step per tick.
	phases := [4][2]bool{{false, false}, {false, true}, {true, true}, {true, false}}
	phase := 0
	step := func(forward bool) {
		if forward {
			phase = (phase + 1) % 4
		} else {
			phase = (phase + 3) % 4
		}
		pa.Set(phases[phase][0])
		pb.Set(phases[phase][1])
	}

	var state types.SeqState = types.SeqIdle
	tick := time.NewTicker(5 * time.Millisecond)
	defer tick.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case msg := <-stSub.Channel():
			if st, ok := msg.Payload.(types.MotionStatus); ok {
				state = st.State
			}
		case <-tick.C:
			switch {
			case out.Get():
				// Return spring: actuator drives the shaft home.
				step(false)
			case state == types.SeqRunning:
				step(true)
			}
		}
	}
}
