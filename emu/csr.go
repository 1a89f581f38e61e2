package emu

import (
	"github.com/sarchlab/rv32vm/bitfield"
	"github.com/sarchlab/rv32vm/insts"
)

// MTVecReset is the trap vector after reset.
const MTVecReset uint32 = 0x10

// MISA reports RV32 with the I, S and U extensions.
const MISA uint32 = 1<<30 | 1<<('I'-'A') | 1<<('S'-'A') | 1<<('U'-'A')

// CSRFile holds the control and status registers.
type CSRFile struct {
	Status  uint32
	Scratch uint32
	EPC     uint32
	Cause   uint32
	TVal    uint32
	IP      uint32
	IE      uint32
	TVec    uint32
	Cycle   uint64
}

// Reset puts the CSRs in their reset state. The cycle counter keeps
// running.
func (f *CSRFile) Reset() {
	cycle := f.Cycle
	*f = CSRFile{TVec: MTVecReset, Cycle: cycle}
}

// Read returns the value of csr. It reports false for unimplemented CSRs.
func (f *CSRFile) Read(csr uint32) (uint32, bool) {
	switch csr {
	case insts.CSRMStatus:
		return f.Status, true
	case insts.CSRMISA:
		return MISA, true
	case insts.CSRMIE:
		return f.IE, true
	case insts.CSRMIP:
		return f.IP, true
	case insts.CSRMTVec:
		return f.TVec, true
	case insts.CSRMScratch:
		return f.Scratch, true
	case insts.CSRMEPC:
		return f.EPC, true
	case insts.CSRMCause:
		return f.Cause, true
	case insts.CSRMTVal:
		return f.TVal, true
	case insts.CSRMCycle, insts.CSRCycle:
		return uint32(f.Cycle), true
	case insts.CSRMCycleH, insts.CSRCycleH:
		return uint32(f.Cycle >> 32), true
	case insts.CSRMVendorID, insts.CSRMArchID, insts.CSRMImpID, insts.CSRMHartID:
		return 0, true
	}
	return 0, false
}

// Write stores v into csr. It reports false for unimplemented CSRs. The
// read-only address check is the caller's job.
func (f *CSRFile) Write(csr uint32, v uint32) bool {
	switch csr {
	case insts.CSRMStatus:
		if Level(statusMPP.Read(v)) == 2 {
			v = statusMPP.Write(v, statusMPP.Read(f.Status))
		}
		f.Status = v
	case insts.CSRMISA:
	case insts.CSRMIE:
		f.IE = v
	case insts.CSRMIP:
		f.IP = (v &^ IPMEIP) | (f.IP & IPMEIP)
	case insts.CSRMTVec:
		f.TVec = v
	case insts.CSRMScratch:
		f.Scratch = v
	case insts.CSRMEPC:
		f.EPC = v &^ 0x3
	case insts.CSRMCause:
		f.Cause = v
	case insts.CSRMTVal:
		f.TVal = v
	case insts.CSRMCycle:
		f.Cycle = f.Cycle&^0xFFFFFFFF | uint64(v)
	case insts.CSRMCycleH:
		f.Cycle = f.Cycle&0xFFFFFFFF | uint64(v)<<32
	default:
		return false
	}
	return true
}

// SetExternalInterrupt latches the machine external interrupt line.
func (f *CSRFile) SetExternalInterrupt(pending bool) {
	var v uint32
	if pending {
		v = 1
	}
	f.IP = bitfield.Write(f.IP, interruptExternal+uint8(LevelMachine), 1, v)
}

// csrInstruction executes the CSR read-modify-write family.
func (c *CPU) csrInstruction(funct3, rd, rs1, csr uint32) *Exception {
	if Level(insts.CSRLevel(csr)) > c.level {
		return c.illegal()
	}

	pureWrite := funct3 == insts.Funct3CSRRW || funct3 == insts.Funct3CSRRWI

	var old uint32
	if !(rd == 0 && pureWrite) {
		v, ok := c.csr.Read(csr)
		if !ok {
			return c.illegal()
		}
		old = v
	}

	src := c.regFile.ReadReg(rs1)
	if funct3 >= insts.Funct3CSRRWI {
		src = rs1 // zero-extended immediate
	}

	var (
		value uint32
		write bool
	)
	switch funct3 {
	case insts.Funct3CSRRW, insts.Funct3CSRRWI:
		value, write = src, true
	case insts.Funct3CSRRS, insts.Funct3CSRRSI:
		value, write = old|src, rs1 != 0
	case insts.Funct3CSRRC, insts.Funct3CSRRCI:
		value, write = old&^src, rs1 != 0
	default:
		return c.illegal()
	}

	if write {
		if insts.CSRReadOnly(csr) || !c.csr.Write(csr, value) {
			return c.illegal()
		}
	}

	c.regFile.WriteReg(rd, old)

	return nil
}
