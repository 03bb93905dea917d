package monitor

import (
	"errors"
	"fmt"

	"github.com/jnesss/mptevents/mpi"
)

// Fetch errors a Fetcher reports for transient conditions. Anything else is fatal.
var (
	ErrInterrupted = errors.New("interrupted")
	ErrBusy        = errors.New("controller busy")
)

// Class is the retry class of a fetch error.
type Class int

const (
	ClassNone Class = iota
	ClassInterrupted
	ClassBusy
	ClassFatal
)

func (c Class) String() string {
	switch c {
	case ClassNone:
		return "none"
	case ClassInterrupted:
		return "interrupted"
	case ClassBusy:
		return "busy"
	default:
		return "fatal"
	}
}

// Classify maps err onto the retry class the poll loop and outer daemon act on.
func Classify(err error) Class {
	switch {
	case err == nil:
		return ClassNone
	case errors.Is(err, ErrInterrupted):
		return ClassInterrupted
	case errors.Is(err, ErrBusy):
		return ClassBusy
	default:
		return ClassFatal
	}
}

// FetchError is a fatal device failure for one controller.
type FetchError struct {
	Controller mpi.Controller
	Op         string
	Err        error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("%s: %s: %v", e.Controller, e.Op, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }
