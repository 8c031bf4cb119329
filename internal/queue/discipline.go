package queue

import (
	"errors"
	"fmt"
	"strings"
)

// Discipline selects how a queue reacts when an operation cannot proceed.
type Discipline int

const (
	// Blocking suspends the caller until the operation can complete.
	Blocking Discipline = iota
	// NonBlocking fails the operation immediately.
	NonBlocking
)

// errUnknownDiscipline is returned when a discipline name cannot be parsed.
var errUnknownDiscipline = errors.New("unknown queue discipline")

// String returns the configuration name of the discipline.
func (d Discipline) String() string {
	switch d {
	case Blocking:
		return "blocking"
	case NonBlocking:
		return "non-blocking"
	default:
		return fmt.Sprintf("discipline(%d)", int(d))
	}
}

// Valid reports whether d is a known discipline.
func (d Discipline) Valid() bool {
	return d == Blocking || d == NonBlocking
}

// ParseDiscipline converts a configuration name into a Discipline.
// The empty string selects Blocking.
func ParseDiscipline(s string) (Discipline, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "blocking":
		return Blocking, nil
	case "non-blocking", "nonblocking":
		return NonBlocking, nil
	default:
		return 0, fmt.Errorf("%w: %q", errUnknownDiscipline, s)
	}
}
