package config

// -----------------------------------------------------------------------------
// Embedded configuration
//
// Populate embeddedConfigs at build time (e.g. via code generation) or
// manually during development.
// Key: device ID (same value placed in ctx under CtxDeviceKey)
// Val: raw JSON bytes for that device
// -----------------------------------------------------------------------------

// Pico angle rig: KY-040 encoder on GP21/GP22 with pull-ups, output
// stage on GP16. 0.5° per half-step over one 360° turn.
const cfgPicoAngle = `{
  "motion": {
      "pin_a": 21,
      "pin_b": 22,
      "pin_out": 16,
      "pull_up": true,
      "min_pos": 0,
      "max_pos": 720,
      "range": "bounded",
      "half_step": true,
      "reverse": true,
      "active_poll_ms": 50,
      "idle_poll_ms": 200,
      "reset_below": 4,
      "rearm_above": 10
  },
  "console": {
      "uart": 0,
      "baud": 115200,
      "echo": true,
      "prompt": true
  },
  "heartbeat": {
      "interval": 2
  }
}`

var embeddedConfigs = map[string][]byte{
	"pico-angle": []byte(cfgPicoAngle),
}
