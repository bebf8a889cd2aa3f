// services/motion/actuator.go
package motion

import "anglectl-go/hw"

// Actuator drives the single output line. The sequencer is its only
// caller; tests swap in a double.
type Actuator interface {
	SetLevel(on bool)
}

// PinActuator is the hardware-backed actuator.
type PinActuator struct {
	pin hw.GPIOPin
}

func NewPinActuator(pin hw.GPIOPin) *PinActuator {
	_ = pin.ConfigureOutput(false)
	return &PinActuator{pin: pin}
}

func (a *PinActuator) SetLevel(on bool) { a.pin.Set(on) }
