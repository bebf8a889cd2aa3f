// services/console/console.go
package console

import (
	"context"
	"io"
	"time"

	"anglectl-go/bus"
	"anglectl-go/errcode"
	"anglectl-go/services/console/internal/linereader"
	"anglectl-go/types"
	"anglectl-go/x/strconvx"
)

const requestTimeout = 2 * time.Second

// Port is the console's byte stream: a uartx UART on device, or a
// wrapped stdin/stdout pair on host (see NewIOPort).
type Port interface {
	io.Writer
	linereader.Source
}

// Run serves the line-oriented command console on port until ctx is
// cancelled. Commands are forwarded to the motion service over the bus.
func Run(ctx context.Context, conn *bus.Connection, port Port) {
	s := &session{
		conn:   conn,
		port:   port,
		echo:   false,
		prompt: true,
	}
	s.loop(ctx)
}

type session struct {
	conn *bus.Connection
	port Port

	echo   bool
	prompt bool
	status types.MotionStatus
	hasSt  bool
}

func (s *session) loop(ctx context.Context) {
	cfgSub := s.conn.Subscribe(bus.T("config", "console"))
	stSub := s.conn.Subscribe(bus.T("status", "motion"))
	evSub := s.conn.Subscribe(bus.T("motion", "event", "+"))
	defer s.conn.Unsubscribe(cfgSub)
	defer s.conn.Unsubscribe(stSub)
	defer s.conn.Unsubscribe(evSub)

	lr := linereader.New(8)
	stop := lr.Start(ctx, s.port, linereader.Cfg{MaxLine: 128})
	defer stop()

	s.writeLine("angle console ready, 'help' for commands")
	s.writePrompt()

	for {
		select {
		case <-ctx.Done():
			return

		case msg := <-cfgSub.Channel():
			switch cfg := msg.Payload.(type) {
			case types.ConsoleConfig:
				s.echo, s.prompt = cfg.Echo, cfg.Prompt
			case map[string]any:
				if v, ok := cfg["echo"].(bool); ok {
					s.echo = v
				}
				if v, ok := cfg["prompt"].(bool); ok {
					s.prompt = v
				}
			}

		case msg := <-stSub.Channel():
			if st, ok := msg.Payload.(types.MotionStatus); ok {
				s.status = st
				s.hasSt = true
			}

		case msg := <-evSub.Channel():
			s.handleEvent(msg)

		case line := <-lr.Lines():
			if s.echo {
				s.writeLine(line)
			}
			s.handleLine(ctx, line)
			s.writePrompt()
		}
	}
}

func (s *session) handleLine(ctx context.Context, line string) {
	cmd, err := ParseLine(line)
	if err != nil {
		s.writeLine("error: " + err.Error())
		return
	}
	switch cmd.Kind {
	case KindNone:
	case KindHelp:
		s.writeLine("commands:")
		s.writeLine("  set <deg>[,<deg>...]  queue target angles (0-360)")
		s.writeLine("  stop                  cancel the active sequence")
		s.writeLine("  status                show sequencer state")
		s.writeLine("  debug on|off          toggle position trace")
	case KindSet:
		s.request(ctx, bus.T("motion", "sequence", "set"),
			types.SequenceRequest{Targets: cmd.Targets},
			"queued "+strconvx.Itoa(len(cmd.Targets))+" target(s)")
	case KindStop:
		s.request(ctx, bus.T("motion", "sequence", "stop"), nil, "stopped")
	case KindDebug:
		s.request(ctx, bus.T("motion", "debug"), cmd.DebugOn, "ok")
	case KindStatus:
		s.printStatus()
	}
}

func (s *session) request(ctx context.Context, topic bus.Topic, payload any, okText string) {
	rctx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()
	msg, err := s.conn.RequestWait(rctx, s.conn.NewMessage(topic, payload, false))
	if err != nil {
		s.writeLine("error: " + string(errcode.Timeout))
		return
	}
	rep, ok := msg.Payload.(types.CommandReply)
	if !ok {
		s.writeLine("error: " + string(errcode.InvalidPayload))
		return
	}
	if !rep.OK {
		out := "error: " + rep.Err
		if rep.Detail != "" {
			out += " (" + rep.Detail + ")"
		}
		s.writeLine(out)
		return
	}
	s.writeLine(okText)
}

func (s *session) handleEvent(msg *bus.Message) {
	tag := ""
	if n := msg.Topic.Len(); n > 0 {
		if v, ok := msg.Topic.At(n - 1).(string); ok {
			tag = v
		}
	}
	switch tag {
	case "target_reached":
		if ev, ok := msg.Payload.(types.TargetEvent); ok {
			s.writeLine("target " + strconvx.Itoa(ev.Index+1) + " reached at " +
				strconvx.FormatFloat(float64(ev.Angle), 'f', 1, 32) + " deg")
		}
	case "completed":
		s.writeLine("sequence complete")
		s.writePrompt()
	case "stopped", "started", "reset":
		// console initiated or routine; stay quiet
	}
}

func (s *session) printStatus() {
	if !s.hasSt {
		s.writeLine("no status yet")
		return
	}
	st := s.status
	out := "state=" + string(st.State) +
		" pos=" + strconvx.Itoa(int(st.Position)) +
		" angle=" + strconvx.FormatFloat(float64(st.Angle), 'f', 1, 32)
	if len(st.Targets) > 0 {
		out += " target=" + strconvx.Itoa(st.TargetIndex+1) + "/" +
			strconvx.Itoa(len(st.Targets))
	}
	if st.OutputOn {
		out += " out=on"
	} else {
		out += " out=off"
	}
	s.writeLine(out)
}

func (s *session) writeLine(text string) {
	_, _ = s.port.Write(append([]byte(text), '\r', '\n'))
}

func (s *session) writePrompt() {
	if s.prompt {
		_, _ = s.port.Write([]byte("> "))
	}
}

// -----------------------------------------------------------------------------
// Host port
// -----------------------------------------------------------------------------

type ioPort struct {
	linereader.Source
	w io.Writer
}

func (p *ioPort) Write(b []byte) (int, error) { return p.w.Write(b) }

// NewIOPort builds a Port from a reader/writer pair, for host builds
// where the console runs over stdin/stdout or a pty.
func NewIOPort(r io.Reader, w io.Writer) Port {
	return &ioPort{Source: linereader.Wrap(r), w: w}
}
