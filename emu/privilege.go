package emu

import (
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/sarchlab/rv32vm/bitfield"
)

// Level is a privilege level.
type Level uint32

// Privilege levels. Level 2 is reserved.
const (
	LevelUser       Level = 0
	LevelSupervisor Level = 1
	LevelMachine    Level = 3
)

// Levels lists the implemented levels from lowest to highest.
var Levels = []Level{LevelUser, LevelSupervisor, LevelMachine}

// Valid reports whether l is an implemented level.
func (l Level) Valid() bool {
	return l == LevelUser || l == LevelSupervisor || l == LevelMachine
}

func (l Level) String() string {
	switch l {
	case LevelUser:
		return "user"
	case LevelSupervisor:
		return "supervisor"
	case LevelMachine:
		return "machine"
	}
	return fmt.Sprintf("level(%d)", uint32(l))
}

// mstatus layout.
const (
	StatusIEBase  = 0 // xIE bit = base + level
	StatusPIEBase = 4 // xPIE bit = base + level
)

var (
	statusSPP = bitfield.Field{Offset: 8, Length: 1}
	statusMPP = bitfield.Field{Offset: 11, Length: 2}
)

// Interrupt source bases in mip/mie. The bit for a level is base + level.
const (
	interruptSoftware = 0
	interruptTimer    = 4
	interruptExternal = 8
)

// mip/mie bits.
const (
	IPUSIP = 1 << (interruptSoftware + LevelUser)
	IPSSIP = 1 << (interruptSoftware + LevelSupervisor)
	IPMSIP = 1 << (interruptSoftware + LevelMachine)
	IPUTIP = 1 << (interruptTimer + LevelUser)
	IPSTIP = 1 << (interruptTimer + LevelSupervisor)
	IPMTIP = 1 << (interruptTimer + LevelMachine)
	IPUEIP = 1 << (interruptExternal + LevelUser)
	IPSEIP = 1 << (interruptExternal + LevelSupervisor)
	IPMEIP = 1 << (interruptExternal + LevelMachine)
)

// interruptPriority orders sources within one level.
var interruptPriority = []uint32{interruptExternal, interruptSoftware, interruptTimer}

func statusBit(status uint32, bit uint32) uint32 {
	return (status >> bit) & 1
}

func ppField(l Level) (bitfield.Field, bool) {
	switch l {
	case LevelSupervisor:
		return statusSPP, true
	case LevelMachine:
		return statusMPP, true
	}
	return bitfield.Field{}, false
}

// isInterruptPossible reports whether an interrupt targeting level may
// preempt the current level.
func (c *CPU) isInterruptPossible(level Level) bool {
	if level > c.level {
		return true
	}
	if level < c.level {
		return false
	}
	return statusBit(c.csr.Status, StatusIEBase+uint32(c.level)) == 1
}

// pendingInterrupt finds the interrupt to take this tick, scanning levels
// from highest to lowest.
func (c *CPU) pendingInterrupt() (Level, Cause, bool) {
	pending := c.csr.IP & c.csr.IE

	for i := len(Levels) - 1; i >= 0; i-- {
		level := Levels[i]
		if !c.isInterruptPossible(level) {
			break
		}

		for _, base := range interruptPriority {
			bit := base + uint32(level)
			if statusBit(pending, bit) == 1 {
				return level, Cause(bit) | InterruptFlag, true
			}
		}
	}

	return 0, 0, false
}

// trap enters level to. It saves the current level and its interrupt enable
// into to's previous-privilege fields, masks interrupts at to, records the
// PC in epc and jumps to the trap vector.
func (c *CPU) trap(to Level) {
	if to < c.level {
		panic(fmt.Sprintf("trap from %s to lower level %s", c.level, to))
	}

	from := c.level
	prevIE := statusBit(c.csr.Status, StatusIEBase+uint32(from))

	c.csr.Status = bitfield.Write(c.csr.Status, uint8(StatusIEBase+to), 1, 0)
	if pp, ok := ppField(to); ok {
		c.csr.Status = pp.Write(c.csr.Status, uint32(from))
	}
	c.csr.Status = bitfield.Write(c.csr.Status, uint8(StatusPIEBase+to), 1, prevIE)

	c.level = to
	c.csr.EPC = c.regFile.PC
	c.regFile.PC = c.csr.TVec &^ 0x3
}

// exception records cause and tval and traps to Machine level.
func (c *CPU) exception(cause Cause, tval uint32) {
	c.logger.WithFields(logrus.Fields{
		"cause": cause.String(),
		"pc":    fmt.Sprintf("0x%08X", c.regFile.PC),
		"tval":  fmt.Sprintf("0x%08X", tval),
	}).Debug("exception")

	c.csr.Cause = uint32(cause)
	c.csr.TVal = tval
	c.trap(LevelMachine)
}

// interrupt records an interrupt cause and traps to level to.
func (c *CPU) interrupt(to Level, cause Cause) {
	c.logger.WithFields(logrus.Fields{
		"cause": cause.String(),
		"pc":    fmt.Sprintf("0x%08X", c.regFile.PC),
	}).Debug("interrupt")

	c.csr.Cause = uint32(cause | InterruptFlag)
	c.trap(to)
}

// ret returns from a trap taken into level from. The caller has checked that
// from does not exceed the current level.
func (c *CPU) ret(from Level) {
	prev := LevelUser
	if pp, ok := ppField(from); ok {
		prev = Level(pp.Exchange(&c.csr.Status, uint32(LevelUser)))
	}

	if !prev.Valid() {
		panic(fmt.Sprintf("ret from %s to invalid level %d", from, uint32(prev)))
	}

	prevIE := statusBit(c.csr.Status, StatusPIEBase+uint32(from))
	c.csr.Status = bitfield.Write(c.csr.Status, uint8(StatusIEBase+prev), 1, prevIE)
	c.csr.Status = bitfield.Write(c.csr.Status, uint8(StatusPIEBase+from), 1, 1)

	c.level = prev
	c.regFile.PC = c.csr.EPC
}
