package emu

import (
	"github.com/sarchlab/rv32vm/insts"
)

// ALU implements the RV32I integer operations.
type ALU struct {
	regFile *RegFile
}

// NewALU creates a new ALU connected to the given register file.
func NewALU(regFile *RegFile) *ALU {
	return &ALU{regFile: regFile}
}

// Compute applies the operation selected by funct3 and the alternate flag.
// It reports false for combinations that do not exist.
func Compute(funct3 uint32, alt bool, a, b uint32) (uint32, bool) {
	if alt {
		switch funct3 {
		case insts.Funct3Sub:
			return a - b, true
		case insts.Funct3SRA:
			return uint32(int32(a) >> (b & 0x1F)), true
		}
		return 0, false
	}

	switch funct3 {
	case insts.Funct3Add:
		return a + b, true
	case insts.Funct3SLL:
		return a << (b & 0x1F), true
	case insts.Funct3SLT:
		return boolToWord(int32(a) < int32(b)), true
	case insts.Funct3SLTU:
		return boolToWord(a < b), true
	case insts.Funct3XOR:
		return a ^ b, true
	case insts.Funct3SRL:
		return a >> (b & 0x1F), true
	case insts.Funct3OR:
		return a | b, true
	case insts.Funct3AND:
		return a & b, true
	}
	return 0, false
}

func boolToWord(b bool) uint32 {
	if b {
		return 1
	}
	return 0
}

// Reg performs rd = rs1 op rs2.
func (a *ALU) Reg(funct3 uint32, alt bool, rd, rs1, rs2 uint32) bool {
	v, ok := Compute(funct3, alt, a.regFile.ReadReg(rs1), a.regFile.ReadReg(rs2))
	if !ok {
		return false
	}
	a.regFile.WriteReg(rd, v)
	return true
}

// Imm performs rd = rs1 op imm.
func (a *ALU) Imm(funct3 uint32, alt bool, rd, rs1, imm uint32) bool {
	v, ok := Compute(funct3, alt, a.regFile.ReadReg(rs1), imm)
	if !ok {
		return false
	}
	a.regFile.WriteReg(rd, v)
	return true
}
