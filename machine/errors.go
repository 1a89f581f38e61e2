package machine

import (
	"errors"

	"github.com/sarchlab/rv32vm/emu"
	"github.com/sarchlab/rv32vm/translate"
)

var f = translate.From

// ErrTerminated is returned by Run when the PC reaches TerminationPC.
var ErrTerminated = errors.New(f("program terminated"))

// CyclesLimitExceededError is returned by Run when the tick budget runs out.
type CyclesLimitExceededError struct {
	Limit  uint32
	LastPC uint32
}

func (e *CyclesLimitExceededError) Error() string {
	return f("cycle limit %d exceeded at pc 0x%08X", e.Limit, e.LastPC)
}

// ExceptionError is returned by Run when an exception is raised while dying
// on exceptions.
type ExceptionError struct {
	PC    uint32
	Cause emu.Cause
	TVal  uint32
}

func (e *ExceptionError) Error() string {
	return f("%s at pc 0x%08X (tval 0x%08X)", e.Cause.String(), e.PC, e.TVal)
}
