package alarm

import (
	"errors"
	"fmt"
	"strings"
)

// Kind is the delivery tier of a message.
type Kind int

const (
	// Normal messages are delivered first-in-first-out among themselves.
	Normal Kind = iota + 1
	// Alarm messages are delivered before any normal message.
	// At most one alarm may be outstanding at a time.
	Alarm
)

// errUnknownKind is returned when a kind name cannot be parsed.
var errUnknownKind = errors.New("unknown message kind")

// Valid reports whether k is one of the supported kinds.
func (k Kind) Valid() bool {
	return k == Normal || k == Alarm
}

// String returns the lower-case name of the kind.
func (k Kind) String() string {
	switch k {
	case Normal:
		return "normal"
	case Alarm:
		return "alarm"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// ParseKind converts a kind name into a Kind.
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "normal":
		return Normal, nil
	case "alarm":
		return Alarm, nil
	default:
		return 0, fmt.Errorf("%w: %q", errUnknownKind, s)
	}
}
