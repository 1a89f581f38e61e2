package emu

import (
	"fmt"
)

// Cause is the value recorded in mcause.
type Cause uint32

// InterruptFlag is set in mcause for asynchronous interrupts.
const InterruptFlag Cause = 1 << 31

// Exception causes.
const (
	CauseInstructionAddressMisaligned Cause = 0
	CauseInstructionAccessFault       Cause = 1
	CauseIllegalInstruction           Cause = 2
	CauseBreakpoint                   Cause = 3
	CauseLoadAddressMisaligned        Cause = 4
	CauseLoadAccessFault              Cause = 5
	CauseStoreAddressMisaligned       Cause = 6
	CauseStoreAccessFault             Cause = 7
	causeEnvironmentCallBase          Cause = 8
)

// CauseEnvironmentCall returns the environment-call cause for a level.
func CauseEnvironmentCall(from Level) Cause {
	return causeEnvironmentCallBase + Cause(from)
}

// IsInterrupt reports whether the cause is an interrupt.
func (c Cause) IsInterrupt() bool {
	return c&InterruptFlag != 0
}

// Code returns the cause without the interrupt flag.
func (c Cause) Code() uint32 {
	return uint32(c &^ InterruptFlag)
}

var exceptionNames = map[Cause]string{
	CauseInstructionAddressMisaligned: "instruction address misaligned",
	CauseInstructionAccessFault:       "instruction access fault",
	CauseIllegalInstruction:           "illegal instruction",
	CauseBreakpoint:                   "breakpoint",
	CauseLoadAddressMisaligned:        "load address misaligned",
	CauseLoadAccessFault:              "load access fault",
	CauseStoreAddressMisaligned:       "store address misaligned",
	CauseStoreAccessFault:             "store access fault",
}

// String returns a readable cause name.
func (c Cause) String() string {
	if c.IsInterrupt() {
		code := c.Code()
		level := Level(code & 0x3)
		switch code &^ 0x3 {
		case interruptSoftware:
			return fmt.Sprintf("%s software interrupt", level)
		case interruptTimer:
			return fmt.Sprintf("%s timer interrupt", level)
		case interruptExternal:
			return fmt.Sprintf("%s external interrupt", level)
		}
		return fmt.Sprintf("interrupt %d", code)
	}

	if name, ok := exceptionNames[c]; ok {
		return name
	}
	if c >= causeEnvironmentCallBase && c <= causeEnvironmentCallBase+Cause(LevelMachine) {
		return fmt.Sprintf("environment call from %s", Level(c-causeEnvironmentCallBase))
	}
	return fmt.Sprintf("exception %d", uint32(c))
}

// Exception describes a synchronous exception raised by one instruction.
type Exception struct {
	Cause Cause
	// PC is the address of the faulting instruction.
	PC uint32
	// TVal is the value recorded in mtval.
	TVal uint32
}

func (e *Exception) Error() string {
	return fmt.Sprintf("%s at pc=0x%08X (tval=0x%08X)", e.Cause, e.PC, e.TVal)
}
