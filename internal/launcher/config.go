package launcher

import (
	"fmt"
	"strings"
)

// State is a step of the launch state machine.
type State int

const (
	Idle State = iota
	Preparing
	CleanWipe
	Building
	Launching
	Running
	Failed
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Preparing:
		return "preparing"
	case CleanWipe:
		return "clean-wipe"
	case Building:
		return "building"
	case Launching:
		return "launching"
	case Running:
		return "running"
	case Failed:
		return "failed"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// DebugClasspath selects whether and how the classpath is dumped instead of
// launching.
type DebugClasspath int

const (
	DebugDisabled DebugClasspath = iota
	DebugNames
	DebugPaths
)

var debugNames = map[DebugClasspath]string{
	DebugDisabled: "disabled",
	DebugNames:    "names",
	DebugPaths:    "paths",
}

func (d DebugClasspath) String() string {
	if s, ok := debugNames[d]; ok {
		return s
	}
	return fmt.Sprintf("DebugClasspath(%d)", int(d))
}

// ParseDebugClasspath accepts disabled, names or paths. An empty string is
// disabled.
func ParseDebugClasspath(s string) (DebugClasspath, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return DebugDisabled, nil
	}
	for d, name := range debugNames {
		if name == s {
			return d, nil
		}
	}
	return DebugDisabled, fmt.Errorf("invalid debugClasspath %q (want disabled, names or paths)", s)
}

// DefaultDebugPort is where a suspended runtime waits for a debugger.
const DefaultDebugPort = 8000

// Config holds the launch flags.
type Config struct {
	Clean          bool
	InitOnly       bool
	ShowConsole    bool
	DebugClasspath DebugClasspath
	UseAtomos      bool
	DebugIde       bool
	// DebugPort overrides DefaultDebugPort when DebugIde is set.
	DebugPort int
}
