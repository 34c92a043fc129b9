package monitoring

import (
	"fmt"
	"io"
	"log"
	"strings"
)

// Logf is the package-level diagnostic logger. It defaults to log.Printf but may
// be replaced by SetLogger. Tests or production code can redirect or mute it.
var Logf func(format string, v ...interface{}) = log.Printf

// SetLogger replaces the package logger. Passing nil will set a no-op logger.
func SetLogger(f func(format string, v ...interface{})) {
	if f == nil {
		Logf = func(string, ...interface{}) {}
		return
	}
	Logf = f
}

// Level selects which logging streams are enabled.
type Level int

const (
	LevelOff   Level = iota // nothing
	LevelOps                // actionable warnings and data loss
	LevelDiag               // plus day-to-day diagnostics
	LevelTrace              // plus per-frame telemetry
)

func (l Level) String() string {
	switch l {
	case LevelOff:
		return "off"
	case LevelOps:
		return "ops"
	case LevelDiag:
		return "diag"
	case LevelTrace:
		return "trace"
	default:
		return fmt.Sprintf("Level(%d)", int(l))
	}
}

// ParseLevel parses "off", "ops", "diag" or "trace" (case-insensitive).
func ParseLevel(s string) (Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "off", "quiet", "none":
		return LevelOff, nil
	case "ops", "":
		return LevelOps, nil
	case "diag", "info":
		return LevelDiag, nil
	case "trace", "debug":
		return LevelTrace, nil
	default:
		return LevelOff, fmt.Errorf("unknown log level %q (want off, ops, diag or trace)", s)
	}
}

// Streams holds the writers for the ops, diag and trace logging streams.
// A nil writer disables that stream.
type Streams struct {
	Ops   io.Writer
	Diag  io.Writer
	Trace io.Writer
}

// StreamsForLevel routes every stream enabled at level to w.
func StreamsForLevel(level Level, w io.Writer) Streams {
	var s Streams
	if level >= LevelOps {
		s.Ops = w
	}
	if level >= LevelDiag {
		s.Diag = w
	}
	if level >= LevelTrace {
		s.Trace = w
	}
	return s
}

// ConfigureStreams applies s to every package setter in order. The setters
// are the packages' SetLogWriters functions.
func ConfigureStreams(s Streams, setters ...func(ops, diag, trace io.Writer)) {
	for _, set := range setters {
		if set != nil {
			set(s.Ops, s.Diag, s.Trace)
		}
	}
}
