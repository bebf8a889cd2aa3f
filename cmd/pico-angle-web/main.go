//go:build rp2040 || rp2350

// Wi-Fi variant of the angle rig: same services as pico-angle-main but
// with a small JSON status endpoint instead of the serial console.
// Set credentials at build time:
//
//	tinygo flash -target=pico-w -ldflags="-X main.ssid=NET -X main.pass=SECRET" ./cmd/pico-angle-web
package main

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"tinygo.org/x/drivers/netlink"
	"tinygo.org/x/drivers/netlink/probe"

	"anglectl-go/bus"
	"anglectl-go/platform"
	"anglectl-go/services/config"
	"anglectl-go/services/heartbeat"
	"anglectl-go/services/motion"
	"anglectl-go/types"
)

var (
	ssid string
	pass string
)

func main() {
	time.Sleep(2 * time.Second)
	println("[main] pico-angle-web boot")

	ctx := context.WithValue(context.Background(), config.CtxDeviceKey, "pico-angle")
	b := bus.NewBus(8)

	go motion.Run(ctx, b.NewConnection("motion"), platform.DefaultPinFactory())
	hb := &heartbeat.Service{}
	_ = hb.Start(ctx, b.NewConnection("heartbeat"))
	config.NewConfigService().Start(ctx, b.NewConnection("config"))

	println("[main] associating to", ssid)
	link, _ := probe.Probe()
	if err := link.NetConnect(&netlink.ConnectParams{
		Ssid:       ssid,
		Passphrase: pass,
	}); err != nil {
		println("Error: wifi:", err.Error())
		select {}
	}

	cli := b.NewConnection("web")
	stSub := cli.Subscribe(bus.T("status", "motion"))
	var (
		mu     sync.Mutex
		status types.MotionStatus
		has    bool
	)
	go func() {
		for msg := range stSub.Channel() {
			if st, ok := msg.Payload.(types.MotionStatus); ok {
				mu.Lock()
				status, has = st, true
				mu.Unlock()
			}
		}
	}()

	http.HandleFunc("/api/status", func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		st, ok := status, has
		mu.Unlock()
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(st)
	})

	println("[main] serving on :80")
	if err := http.ListenAndServe(":80", nil); err != nil {
		println("Error: http:", err.Error())
	}
	select {}
}
