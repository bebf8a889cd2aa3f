// platform/platform_host.go
//go:build !rp2040 && !rp2350

package platform

import "anglectl-go/hw"

// On standard Go builds there is no real GPIO; hand out fake pins so
// the same service wiring runs under tests and the host simulator.
func DefaultPinFactory() hw.PinFactory { return hw.NewFakeFactory() }
