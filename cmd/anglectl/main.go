//go:build !rp2040 && !rp2350

// anglectl attaches a terminal to the device console over a serial
// port: lines typed here go to the firmware, replies come back.
package main

import (
	"bufio"
	"flag"
	"io"
	"os"

	"github.com/tarm/serial"
)

func main() {
	dev := flag.String("dev", "/dev/ttyACM0", "serial device")
	baud := flag.Int("baud", 115200, "baud rate")
	flag.Parse()

	port, err := serial.OpenPort(&serial.Config{Name: *dev, Baud: *baud})
	if err != nil {
		println("Error: open", *dev+":", err.Error())
		os.Exit(1)
	}
	defer port.Close()

	// Device -> terminal.
	go func() {
		if _, err := io.Copy(os.Stdout, port); err != nil {
			println("Error: read:", err.Error())
			os.Exit(1)
		}
		os.Exit(0)
	}()

	// Terminal -> device, line at a time.
	sc := bufio.NewScanner(os.Stdin)
	for sc.Scan() {
		if _, err := port.Write(append(sc.Bytes(), '\n')); err != nil {
			println("Error: write:", err.Error())
			os.Exit(1)
		}
	}
}
