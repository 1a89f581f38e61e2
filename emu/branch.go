package emu

import (
	"github.com/sarchlab/rv32vm/insts"
)

// BranchUnit implements jumps and conditional branches.
type BranchUnit struct {
	regFile *RegFile
}

// NewBranchUnit creates a new BranchUnit connected to the given register file.
func NewBranchUnit(regFile *RegFile) *BranchUnit {
	return &BranchUnit{regFile: regFile}
}

// Condition evaluates the branch predicate selected by funct3. It reports
// false in ok for funct3 values that are not branches.
func Condition(funct3 uint32, a, b uint32) (taken, ok bool) {
	switch funct3 {
	case insts.Funct3BEQ:
		return a == b, true
	case insts.Funct3BNE:
		return a != b, true
	case insts.Funct3BLT:
		return int32(a) < int32(b), true
	case insts.Funct3BGE:
		return int32(a) >= int32(b), true
	case insts.Funct3BLTU:
		return a < b, true
	case insts.Funct3BGEU:
		return a >= b, true
	}
	return false, false
}

// Branch compares rs1 with rs2 and, when taken, adds offset to PC.
func (b *BranchUnit) Branch(funct3, rs1, rs2, offset uint32) (taken, ok bool) {
	taken, ok = Condition(funct3, b.regFile.ReadReg(rs1), b.regFile.ReadReg(rs2))
	if taken {
		b.regFile.PC += offset
	}
	return taken, ok
}

// JAL links PC+4 into rd and jumps PC-relative.
func (b *BranchUnit) JAL(rd, offset uint32) {
	link := b.regFile.PC + 4
	b.regFile.PC += offset
	b.regFile.WriteReg(rd, link)
}

// JALR jumps to (rs1 + offset) with bit 0 cleared and links PC+4 into rd.
// rs1 is read before rd is written, so rd may equal rs1.
func (b *BranchUnit) JALR(rd, rs1, offset uint32) {
	target := (b.regFile.ReadReg(rs1) + offset) &^ 1
	link := b.regFile.PC + 4
	b.regFile.PC = target
	b.regFile.WriteReg(rd, link)
}
