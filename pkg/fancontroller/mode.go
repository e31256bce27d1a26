package fancontroller

import (
	"fmt"
	"strconv"
	"strings"
)

// Mode is the operating mode of the fan
type Mode int

const (
	ModeOff Mode = iota
	ModeOn
	ModeAuto
)

var modes = []Mode{ModeOff, ModeOn, ModeAuto}

func (m Mode) String() string {
	switch m {
	case ModeOff:
		return "off"
	case ModeOn:
		return "on"
	case ModeAuto:
		return "auto"
	default:
		return "unknown"
	}
}

// Valid reports whether m is one of the known modes
func (m Mode) Valid() bool {
	return m >= ModeOff && m <= ModeAuto
}

// ParseMode accepts a mode name (off, on, auto) or its integer code.
func ParseMode(s string) (Mode, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for _, m := range modes {
		if s == m.String() {
			return m, nil
		}
	}
	code, err := strconv.Atoi(s)
	if err != nil || !Mode(code).Valid() {
		return ModeOff, fmt.Errorf("%w: unknown mode %q", ErrInvalidArgument, s)
	}
	return Mode(code), nil
}
