package types

// ---- Sequencer state (retained on "status/motion") ----

// SeqState names the sequencer's externally visible state.
type SeqState string

const (
	SeqIdle      SeqState = "idle"
	SeqRunning   SeqState = "running"
	SeqTriggered SeqState = "triggered"
	SeqResetting SeqState = "resetting"
	SeqCompleted SeqState = "completed"
)

// MotionStatus is the retained status document for the motion service.
// Position and Targets are in half-steps; Angle is derived degrees.
type MotionStatus struct {
	State       SeqState `json:"state"`
	Position    int32    `json:"position"`
	Angle       float32  `json:"angle"`
	Targets     []int32  `json:"targets,omitempty"`
	TargetIndex int      `json:"target_index"`
	OutputOn    bool     `json:"output_on"`
	TS          int64    `json:"ts_ms"`
}

// ---- Sequencer control payloads ----

// SequenceRequest starts a new target sequence. Targets are half-steps
// (two per degree at 0.5° resolution) and must be non-empty. An active
// sequence is replaced, never overlapped.
type SequenceRequest struct {
	Targets []int32 `json:"targets"`
}

// CommandReply answers control requests on their ReplyTo topic.
type CommandReply struct {
	OK     bool   `json:"ok"`
	Err    string `json:"err,omitempty"`    // errcode string when !OK
	Detail string `json:"detail,omitempty"` // human-readable context
}

// ---- Events (fire-and-forget on "motion/event/<tag>") ----

type TargetEvent struct {
	Index  int     `json:"index"`
	Target int32   `json:"target"`
	Angle  float32 `json:"angle"`
	TS     int64   `json:"ts_ms"`
}
