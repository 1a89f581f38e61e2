package emu

import (
	"github.com/sarchlab/rv32vm/insts"
)

// Bus is the CPU's view of the system bus. Addresses are word aligned; an
// error means no device answered.
type Bus interface {
	ReadWord(addr uint32) (uint32, error)
	WriteWord(addr uint32, value uint32) error
}

// LoadStoreUnit implements loads and stores over the bus. Alignment is
// checked before any bus access.
type LoadStoreUnit struct {
	regFile *RegFile
	bus     Bus
}

// NewLoadStoreUnit creates a new LoadStoreUnit connected to the given
// register file and bus.
func NewLoadStoreUnit(regFile *RegFile, bus Bus) *LoadStoreUnit {
	return &LoadStoreUnit{
		regFile: regFile,
		bus:     bus,
	}
}

func (lsu *LoadStoreUnit) fault(cause Cause, tval uint32) *Exception {
	return &Exception{Cause: cause, PC: lsu.regFile.PC, TVal: tval}
}

func accessWidth(funct3 uint32) uint32 {
	switch funct3 & 0x3 {
	case 0:
		return 1
	case 1:
		return 2
	}
	return 4
}

// Load performs rd = mem[rs1 + offset] with the width and extension chosen
// by funct3.
func (lsu *LoadStoreUnit) Load(funct3, rd, rs1, offset uint32) *Exception {
	switch funct3 {
	case insts.Funct3LB, insts.Funct3LH, insts.Funct3LW, insts.Funct3LBU, insts.Funct3LHU:
	default:
		return lsu.fault(CauseIllegalInstruction, 0)
	}

	addr := lsu.regFile.ReadReg(rs1) + offset
	if addr&(accessWidth(funct3)-1) != 0 {
		return lsu.fault(CauseLoadAddressMisaligned, addr)
	}

	word, err := lsu.bus.ReadWord(addr &^ 0x3)
	if err != nil {
		return lsu.fault(CauseLoadAccessFault, addr)
	}

	shifted := word >> ((addr & 0x3) * 8)

	var value uint32
	switch funct3 {
	case insts.Funct3LB:
		value = uint32(int32(int8(shifted)))
	case insts.Funct3LH:
		value = uint32(int32(int16(shifted)))
	case insts.Funct3LW:
		value = word
	case insts.Funct3LBU:
		value = shifted & 0xFF
	case insts.Funct3LHU:
		value = shifted & 0xFFFF
	}

	lsu.regFile.WriteReg(rd, value)

	return nil
}

// Store performs mem[rs1 + offset] = rs2 with the width chosen by funct3.
// Byte and half-word stores read the containing word, merge, and write it
// back. A failed read reports a load access fault.
func (lsu *LoadStoreUnit) Store(funct3, rs1, rs2, offset uint32) *Exception {
	switch funct3 {
	case insts.Funct3SB, insts.Funct3SH, insts.Funct3SW:
	default:
		return lsu.fault(CauseIllegalInstruction, 0)
	}

	addr := lsu.regFile.ReadReg(rs1) + offset
	width := accessWidth(funct3)
	if addr&(width-1) != 0 {
		return lsu.fault(CauseStoreAddressMisaligned, addr)
	}

	aligned := addr &^ 0x3
	value := lsu.regFile.ReadReg(rs2)

	if width < 4 {
		word, err := lsu.bus.ReadWord(aligned)
		if err != nil {
			return lsu.fault(CauseLoadAccessFault, addr)
		}

		shift := (addr & 0x3) * 8
		mask := uint32(1)<<(width*8) - 1
		value = (word &^ (mask << shift)) | (value&mask)<<shift
	}

	if err := lsu.bus.WriteWord(aligned, value); err != nil {
		return lsu.fault(CauseStoreAccessFault, addr)
	}

	return nil
}
