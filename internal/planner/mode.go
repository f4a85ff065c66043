package planner

import (
	"fmt"
	"strings"
)

// Mode labels which decision tier produced a waypoint.
type Mode int

const (
	ModeEscape Mode = iota + 1
	ModeRepulsion
	ModeAvoid
	ModeIntercept
)

// Modes lists every mode in priority order.
var Modes = []Mode{ModeEscape, ModeRepulsion, ModeAvoid, ModeIntercept}

func (m Mode) String() string {
	switch m {
	case ModeEscape:
		return "ESCAPE"
	case ModeRepulsion:
		return "REPULSION"
	case ModeAvoid:
		return "AVOID"
	case ModeIntercept:
		return "INTERCEPT"
	default:
		return fmt.Sprintf("Mode(%d)", int(m))
	}
}

// ParseMode converts a mode name into a Mode. Matching ignores case and
// surrounding whitespace.
func ParseMode(value string) (Mode, error) {
	switch strings.ToUpper(strings.TrimSpace(value)) {
	case "ESCAPE":
		return ModeEscape, nil
	case "REPULSION":
		return ModeRepulsion, nil
	case "AVOID":
		return ModeAvoid, nil
	case "INTERCEPT":
		return ModeIntercept, nil
	default:
		return 0, fmt.Errorf("unknown mode %q", value)
	}
}

// MarshalText encodes the mode as its name.
func (m Mode) MarshalText() ([]byte, error) {
	switch m {
	case ModeEscape, ModeRepulsion, ModeAvoid, ModeIntercept:
		return []byte(m.String()), nil
	default:
		return nil, fmt.Errorf("cannot marshal invalid mode %d", int(m))
	}
}

// UnmarshalText decodes a mode name.
func (m *Mode) UnmarshalText(b []byte) error {
	parsed, err := ParseMode(string(b))
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}
