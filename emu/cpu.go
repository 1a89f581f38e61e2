package emu

import (
	"fmt"
	"io"

	"github.com/sirupsen/logrus"

	"github.com/sarchlab/rv32vm/bitfield"
	"github.com/sarchlab/rv32vm/insts"
)

// ResetVector is the PC after reset.
const ResetVector uint32 = 0

// StepResult represents the result of one CPU tick.
type StepResult struct {
	// Exception is set when the instruction raised a synchronous exception.
	Exception *Exception

	// Trapped is true if the tick entered a trap handler, either for
	// Exception or for an interrupt. It is false for exceptions held back by
	// die-on-exception.
	Trapped bool

	// Interrupt is the interrupt cause taken this tick, if any.
	Interrupt Cause

	// Exited is true if the program called exit.
	Exited bool

	// ExitCode is the exit status if Exited is true.
	ExitCode int32

	// WFI is true if the instruction was wait-for-interrupt.
	WFI bool
}

// CPU executes RV32I instructions one per tick. It owns the register file
// and CSR state exclusively.
type CPU struct {
	regFile *RegFile
	csr     *CSRFile
	level   Level
	wfi     bool

	bus Bus

	// Execution units
	alu        *ALU
	lsu        *LoadStoreUnit
	branchUnit *BranchUnit

	syscallHandler SyscallHandler
	logger         logrus.FieldLogger

	dieOnException bool
	trapVector     uint32
	lastWord       uint32
	ticks          uint64

	tracePCs bool
	pcTrail  []uint32
}

// CPUOption is a functional option for configuring the CPU.
type CPUOption func(*CPU)

// WithLogger sets the logger.
func WithLogger(l logrus.FieldLogger) CPUOption {
	return func(c *CPU) {
		c.logger = l
	}
}

// WithSyscallHandler installs a handler for ECALL.
func WithSyscallHandler(handler SyscallHandler) CPUOption {
	return func(c *CPU) {
		c.syscallHandler = handler
	}
}

// WithSyscalls installs the default syscall handler over the given streams.
func WithSyscalls(stdin io.Reader, stdout, stderr io.Writer) CPUOption {
	return func(c *CPU) {
		c.syscallHandler = NewDefaultSyscallHandler(c.regFile, c.bus, stdin, stdout, stderr)
	}
}

// WithDieOnException makes exceptions stop at the faulting instruction
// instead of entering the trap handler.
func WithDieOnException(die bool) CPUOption {
	return func(c *CPU) {
		c.dieOnException = die
	}
}

// WithTrapVector sets the mtvec value loaded on reset.
func WithTrapVector(vector uint32) CPUOption {
	return func(c *CPU) {
		c.trapVector = vector
	}
}

// WithPCTrail records the PC of every tick.
func WithPCTrail() CPUOption {
	return func(c *CPU) {
		c.tracePCs = true
	}
}

// NewCPU creates a CPU attached to bus and resets it.
func NewCPU(bus Bus, opts ...CPUOption) *CPU {
	regFile := &RegFile{}

	c := &CPU{
		regFile:    regFile,
		csr:        &CSRFile{},
		bus:        bus,
		alu:        NewALU(regFile),
		lsu:        NewLoadStoreUnit(regFile, bus),
		branchUnit: NewBranchUnit(regFile),
		logger:     logrus.StandardLogger(),
		trapVector: MTVecReset,
	}

	for _, opt := range opts {
		opt(c)
	}

	c.Reset()

	return c
}

// Reset puts the CPU in Machine mode at the reset vector with interrupts
// disabled and mtvec at the configured trap vector.
func (c *CPU) Reset() {
	c.regFile.Reset(ResetVector)
	c.csr.Reset()
	c.csr.TVec = c.trapVector
	c.level = LevelMachine
	c.wfi = false
}

// RegFile returns the register file.
func (c *CPU) RegFile() *RegFile {
	return c.regFile
}

// CSR returns the control and status registers.
func (c *CPU) CSR() *CSRFile {
	return c.csr
}

// Level returns the current privilege level.
func (c *CPU) Level() Level {
	return c.level
}

// WFI reports whether the last tick executed wait-for-interrupt.
func (c *CPU) WFI() bool {
	return c.wfi
}

// SetDieOnException changes the die-on-exception policy.
func (c *CPU) SetDieOnException(die bool) {
	c.dieOnException = die
}

// LastWord returns the most recently fetched instruction word.
func (c *CPU) LastWord() uint32 {
	return c.lastWord
}

// Ticks returns the number of ticks executed.
func (c *CPU) Ticks() uint64 {
	return c.ticks
}

// PCTrail returns the recorded PCs when WithPCTrail is set.
func (c *CPU) PCTrail() []uint32 {
	return c.pcTrail
}

// Tick executes one instruction or takes one interrupt.
func (c *CPU) Tick() StepResult {
	if c.tracePCs {
		c.pcTrail = append(c.pcTrail, c.regFile.PC)
	}

	c.wfi = false
	result := c.tick()

	c.csr.Cycle++
	c.ticks++

	return result
}

func (c *CPU) tick() StepResult {
	if level, cause, ok := c.pendingInterrupt(); ok {
		c.interrupt(level, cause)
		return StepResult{Trapped: true, Interrupt: cause}
	}

	pc := c.regFile.PC
	if pc&0x3 != 0 {
		return c.raise(&Exception{Cause: CauseInstructionAddressMisaligned, PC: pc, TVal: pc})
	}

	word, err := c.bus.ReadWord(pc)
	if err != nil {
		return c.raise(&Exception{Cause: CauseInstructionAccessFault, PC: pc, TVal: pc})
	}
	c.lastWord = word

	c.logger.WithFields(logrus.Fields{
		"pc":   fmt.Sprintf("0x%08X", pc),
		"word": fmt.Sprintf("0x%08X", word),
	}).Trace("cpu step")

	return c.execute(word)
}

// raise enters the trap handler for e, or holds it back under
// die-on-exception.
func (c *CPU) raise(e *Exception) StepResult {
	if e.Cause == CauseIllegalInstruction {
		e.TVal = c.lastWord
	}

	if c.dieOnException {
		c.logger.WithFields(logrus.Fields{
			"cause": e.Cause.String(),
			"pc":    fmt.Sprintf("0x%08X", e.PC),
			"word":  fmt.Sprintf("0x%08X", c.lastWord),
			"ticks": c.ticks,
		}).Debug("dying on exception")
		return StepResult{Exception: e}
	}

	c.exception(e.Cause, e.TVal)

	return StepResult{Exception: e, Trapped: true}
}

func (c *CPU) illegal() *Exception {
	return &Exception{Cause: CauseIllegalInstruction, PC: c.regFile.PC, TVal: c.lastWord}
}

func (c *CPU) execute(word uint32) StepResult {
	if bitfield.ILen.Read(word) != 0b11 {
		return c.raise(c.illegal())
	}

	var (
		result     StepResult
		redirected bool
		exc        *Exception
	)

	switch insts.FormatOf(insts.Opcode(bitfield.Opcode.Read(word))) {
	case insts.FormatR:
		exc = c.executeR(word)
	case insts.FormatI:
		result, redirected, exc = c.executeI(word)
	case insts.FormatS:
		exc = c.executeS(word)
	case insts.FormatB:
		redirected, exc = c.executeB(word)
	case insts.FormatU:
		c.executeU(word)
	case insts.FormatJ:
		c.branchUnit.JAL(insts.RD.Extract(word), insts.JImm20.Extract(word))
		redirected = true
	default:
		exc = c.illegal()
	}

	if exc != nil {
		return c.raise(exc)
	}

	if !redirected {
		c.regFile.PC += 4
	}

	return result
}

func (c *CPU) executeR(word uint32) *Exception {
	var alt bool
	switch bitfield.Funct7.Read(word) {
	case insts.Funct7Base:
	case insts.Funct7Alt:
		alt = true
	default:
		return c.illegal()
	}

	ok := c.alu.Reg(bitfield.Funct3.Read(word), alt,
		insts.RD.Extract(word), insts.RS1.Extract(word), insts.RS2.Extract(word))
	if !ok {
		return c.illegal()
	}

	return nil
}

func (c *CPU) executeI(word uint32) (StepResult, bool, *Exception) {
	rd := insts.RD.Extract(word)
	rs1 := insts.RS1.Extract(word)
	imm := insts.Imm12.Extract(word)
	funct3 := bitfield.Funct3.Read(word)

	switch insts.Opcode(bitfield.Opcode.Read(word)) {
	case insts.OpcodeLoad:
		return StepResult{}, false, c.lsu.Load(funct3, rd, rs1, imm)

	case insts.OpcodeOpImm:
		return StepResult{}, false, c.executeOpImm(word, funct3, rd, rs1, imm)

	case insts.OpcodeJALR:
		if funct3 != insts.Funct3JALR {
			return StepResult{}, false, c.illegal()
		}
		c.branchUnit.JALR(rd, rs1, imm)
		return StepResult{}, true, nil

	case insts.OpcodeSystem:
		if funct3 == insts.Funct3Priv {
			return c.executePriv(word, rd, rs1)
		}
		if funct3 == insts.Funct3SystemReserved {
			return StepResult{}, false, c.illegal()
		}
		return StepResult{}, false, c.csrInstruction(funct3, rd, rs1, insts.CSR.Extract(word))
	}

	return StepResult{}, false, c.illegal()
}

func (c *CPU) executeOpImm(word, funct3, rd, rs1, imm uint32) *Exception {
	var alt bool

	switch funct3 {
	case insts.Funct3SLL:
		if bitfield.Funct7.Read(word) != insts.Funct7Base {
			return c.illegal()
		}
		imm = insts.Shamt.Extract(word)
	case insts.Funct3SRL:
		switch bitfield.Funct7.Read(word) {
		case insts.Funct7Base:
		case insts.Funct7Alt:
			alt = true
		default:
			return c.illegal()
		}
		imm = insts.Shamt.Extract(word)
	}

	if !c.alu.Imm(funct3, alt, rd, rs1, imm) {
		return c.illegal()
	}

	return nil
}

func (c *CPU) executePriv(word, rd, rs1 uint32) (StepResult, bool, *Exception) {
	if rd != 0 || rs1 != 0 {
		return StepResult{}, false, c.illegal()
	}

	switch bitfield.Funct12.Read(word) {
	case insts.Funct12ECALL:
		if c.syscallHandler == nil {
			return StepResult{}, false, &Exception{
				Cause: CauseEnvironmentCall(c.level),
				PC:    c.regFile.PC,
			}
		}
		res := c.syscallHandler.Handle()
		return StepResult{Exited: res.Exited, ExitCode: res.ExitCode}, false, nil

	case insts.Funct12EBREAK:
		return StepResult{}, false, &Exception{
			Cause: CauseBreakpoint,
			PC:    c.regFile.PC,
			TVal:  c.regFile.PC,
		}

	case insts.Funct12URET:
		c.ret(LevelUser)
		return StepResult{}, true, nil

	case insts.Funct12SRET:
		if c.level < LevelSupervisor {
			return StepResult{}, false, c.illegal()
		}
		c.ret(LevelSupervisor)
		return StepResult{}, true, nil

	case insts.Funct12MRET:
		if c.level < LevelMachine {
			return StepResult{}, false, c.illegal()
		}
		c.ret(LevelMachine)
		return StepResult{}, true, nil

	case insts.Funct12WFI:
		c.wfi = true
		return StepResult{WFI: true}, false, nil
	}

	return StepResult{}, false, c.illegal()
}

func (c *CPU) executeS(word uint32) *Exception {
	return c.lsu.Store(bitfield.Funct3.Read(word),
		insts.RS1.Extract(word), insts.RS2.Extract(word), insts.SImm12.Extract(word))
}

func (c *CPU) executeB(word uint32) (bool, *Exception) {
	taken, ok := c.branchUnit.Branch(bitfield.Funct3.Read(word),
		insts.RS1.Extract(word), insts.RS2.Extract(word), insts.BImm12.Extract(word))
	if !ok {
		return false, c.illegal()
	}
	return taken, nil
}

func (c *CPU) executeU(word uint32) {
	rd := insts.RD.Extract(word)
	imm := insts.Imm20.Extract(word)

	if insts.Opcode(bitfield.Opcode.Read(word)) == insts.OpcodeAUIPC {
		imm += c.regFile.PC
	}

	c.regFile.WriteReg(rd, imm)
}
