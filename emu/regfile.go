// Package emu provides the RV32I execution core: register file, execution
// units, privilege and trap handling, and control/status registers.
package emu

// RegFile represents the RV32I integer register file.
type RegFile struct {
	// X holds general-purpose registers x0-x31.
	// X[0] is hardwired to zero; writes to it are discarded.
	X [32]uint32

	// PC is the program counter.
	PC uint32
}

// ReadReg reads a register value. Only the low five bits of reg are used.
func (r *RegFile) ReadReg(reg uint32) uint32 {
	return r.X[reg&0x1F]
}

// WriteReg writes a value to a register. Writes to x0 are ignored.
func (r *RegFile) WriteReg(reg uint32, value uint32) {
	reg &= 0x1F
	if reg == 0 {
		return
	}
	r.X[reg] = value
}

// Reset clears all registers and sets PC to pc.
func (r *RegFile) Reset(pc uint32) {
	r.X = [32]uint32{}
	r.PC = pc
}
