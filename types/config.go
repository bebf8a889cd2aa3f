package types

// Motion configuration supplied on topic "config/motion".
// Positions and thresholds are half-steps; poll intervals milliseconds.

type MotionConfig struct {
	PinA   int  `json:"pin_a"`   // channel A (CLK)
	PinB   int  `json:"pin_b"`   // channel B (DT)
	PinOut int  `json:"pin_out"` // actuator output line
	PullUp bool `json:"pull_up"`

	MinPos   int32  `json:"min_pos"`
	MaxPos   int32  `json:"max_pos"` // 720 => 360° at 0.5°/half-step
	Range    string `json:"range"`   // "bounded" | "wrapped"
	HalfStep bool   `json:"half_step"`
	Reverse  bool   `json:"reverse"`

	ActivePollMs int32 `json:"active_poll_ms"`
	IdlePollMs   int32 `json:"idle_poll_ms"`
	ResetBelow   int32 `json:"reset_below"` // near-zero threshold
	RearmAbove   int32 `json:"rearm_above"` // clear threshold
}

// Console configuration supplied on topic "config/console".

type ConsoleConfig struct {
	UART   int  `json:"uart"` // UART index on MCU builds
	Baud   int  `json:"baud"`
	Echo   bool `json:"echo"`
	Prompt bool `json:"prompt"`
}
