// services/console/parse.go
package console

import (
	"strings"

	"anglectl-go/errcode"
	"anglectl-go/x/strconvx"
)

// Angles arrive in degrees; the motion service works in half-steps
// (two counts per degree at 0.5° resolution).
const (
	halfStepsPerDegree = 2
	maxAngleDeg        = 360
)

type Kind uint8

const (
	KindNone Kind = iota
	KindSet
	KindStop
	KindStatus
	KindDebug
	KindHelp
)

// Command is one parsed console line.
type Command struct {
	Kind    Kind
	Targets []int32 // half-steps, KindSet only
	DebugOn bool    // KindDebug only
}

// ParseLine parses one input line. A blank line parses to KindNone.
// Angles may be separated by commas, spaces, or both.
func ParseLine(line string) (Command, error) {
	line = strings.TrimSpace(line)
	if line == "" {
		return Command{}, nil
	}

	verb := line
	rest := ""
	if i := strings.IndexByte(line, ' '); i >= 0 {
		verb, rest = line[:i], strings.TrimSpace(line[i+1:])
	}

	switch strings.ToLower(verb) {
	case "set":
		targets, err := parseAngles(rest)
		if err != nil {
			return Command{}, err
		}
		return Command{Kind: KindSet, Targets: targets}, nil
	case "stop":
		return Command{Kind: KindStop}, nil
	case "status":
		return Command{Kind: KindStatus}, nil
	case "help", "?":
		return Command{Kind: KindHelp}, nil
	case "debug":
		switch strings.ToLower(rest) {
		case "on":
			return Command{Kind: KindDebug, DebugOn: true}, nil
		case "off":
			return Command{Kind: KindDebug, DebugOn: false}, nil
		default:
			return Command{}, &errcode.E{C: errcode.InvalidParams, Op: "console.parse", Msg: "debug on|off"}
		}
	default:
		return Command{}, &errcode.E{C: errcode.UnknownCommand, Op: "console.parse", Msg: verb}
	}
}

func parseAngles(s string) ([]int32, error) {
	fields := strings.FieldsFunc(s, func(r rune) bool {
		return r == ',' || r == ' ' || r == '\t'
	})
	if len(fields) == 0 {
		return nil, errcode.EmptyTargets
	}
	targets := make([]int32, 0, len(fields))
	for _, f := range fields {
		deg, err := strconvx.ParseFloat(f, 64)
		if err != nil {
			return nil, &errcode.E{C: errcode.ParseError, Op: "console.parse", Msg: f, Err: err}
		}
		// Out-of-range angles pin to the valid band rather than erroring,
		// matching the firmware's tolerant input handling.
		if deg < 0 {
			deg = 0
		}
		if deg > maxAngleDeg {
			deg = maxAngleDeg
		}
		targets = append(targets, int32(deg*halfStepsPerDegree+0.5))
	}
	return targets, nil
}
