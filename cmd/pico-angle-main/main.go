//go:build rp2040 || rp2350

package main

import (
	"context"
	"machine"
	"time"

	uartx "github.com/jangala-dev/tinygo-uartx/uartx"

	"anglectl-go/bus"
	"anglectl-go/platform"
	"anglectl-go/services/config"
	"anglectl-go/services/console"
	"anglectl-go/services/heartbeat"
	"anglectl-go/services/motion"
)

func main() {
	// Allow USB CDC to enumerate before we print.
	time.Sleep(2 * time.Second)
	println("[main] pico-angle boot")

	ctx := context.WithValue(context.Background(), config.CtxDeviceKey, "pico-angle")
	b := bus.NewBus(8)

	println("[main] starting motion service")
	go motion.Run(ctx, b.NewConnection("motion"), platform.DefaultPinFactory())

	println("[main] starting console on uart0")
	u := uartx.UART0
	_ = u.Configure(uartx.UARTConfig{
		BaudRate: 115200,
		TX:       machine.UART0_TX_PIN,
		RX:       machine.UART0_RX_PIN,
	})
	go console.Run(ctx, b.NewConnection("console"), u)

	hb := &heartbeat.Service{}
	_ = hb.Start(ctx, b.NewConnection("heartbeat"))

	println("[main] publishing embedded config")
	config.NewConfigService().Start(ctx, b.NewConnection("config"))

	select {}
}
