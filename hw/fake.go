// hw/fake.go
package hw

import "sync"

// FakePin implements GPIOPin and IRQPin for host builds. Set on an
// input pin synthesises an edge and invokes the registered IRQ handler
// synchronously, which makes interrupt-path code testable on any host.
type FakePin struct {
	mu      sync.Mutex
	number  int
	level   bool
	modeOut bool
	irqEdge Edge
	irqFunc func()
}

func NewFakePin(number int) *FakePin { return &FakePin{number: number} }

func (p *FakePin) ConfigureInput(_ Pull) error {
	p.mu.Lock()
	p.modeOut = false
	p.mu.Unlock()
	return nil
}

func (p *FakePin) ConfigureOutput(initial bool) error {
	p.mu.Lock()
	p.modeOut = true
	p.level = initial
	p.mu.Unlock()
	return nil
}

func (p *FakePin) Set(level bool) {
	p.mu.Lock()
	old := p.level
	p.level = level
	irq := p.irqFunc
	want := irqWanted(p.irqEdge, edgeFrom(old, level))
	p.mu.Unlock()
	if want && irq != nil {
		irq()
	}
}

func (p *FakePin) Get() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.level
}

func (p *FakePin) Number() int { return p.number }

func (p *FakePin) SetIRQ(edge Edge, handler func()) error {
	p.mu.Lock()
	p.irqEdge = edge
	p.irqFunc = handler
	p.mu.Unlock()
	return nil
}

func (p *FakePin) ClearIRQ() error {
	p.mu.Lock()
	p.irqEdge = EdgeNone
	p.irqFunc = nil
	p.mu.Unlock()
	return nil
}

func edgeFrom(old, new bool) Edge {
	switch {
	case !old && new:
		return EdgeRising
	case old && !new:
		return EdgeFalling
	default:
		return EdgeNone
	}
}

func irqWanted(configured, got Edge) bool {
	if got == EdgeNone {
		return false
	}
	return configured == EdgeBoth || configured == got
}

// FakeFactory hands out FakePins and remembers them so tests and the
// host simulator can wiggle inputs and observe outputs.
type FakeFactory struct {
	mu   sync.Mutex
	pins map[int]*FakePin
}

func NewFakeFactory() *FakeFactory {
	return &FakeFactory{pins: make(map[int]*FakePin)}
}

func (f *FakeFactory) ByNumber(n int) (GPIOPin, bool) {
	if n < 0 {
		return nil, false
	}
	return f.Pin(n), true
}

// Pin returns the FakePin for n, creating it on first use.
func (f *FakeFactory) Pin(n int) *FakePin {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.pins[n]
	if !ok {
		p = NewFakePin(n)
		f.pins[n] = p
	}
	return p
}
