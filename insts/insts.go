// Package insts provides the RV32I instruction catalog, encoder and decoder.
//
// Every instruction is described by an immutable Descriptor: the fixed field
// values (opcode and funct codes) that identify it, and an ordered list of
// operands whose bits are scattered across the word by Mappings. The same
// descriptors drive both directions:
//
//	word, _ := insts.EncodeName("lw", insts.RegT1, insts.RegT3, 0)
//	d, ok := insts.NewDecoder(insts.DefaultCatalog()).Decode(word)
//	fmt.Println(d) // (lw t1 t3 0)
//
// Catalog order is decode precedence. Pseudo-instructions are listed ahead of
// the general forms they specialize.
package insts

// Opcode is the major opcode, bits 2-6 of an instruction word.
type Opcode uint32

// Major opcodes.
const (
	OpcodeLoad    Opcode = 0
	OpcodeMiscMem Opcode = 3
	OpcodeOpImm   Opcode = 4
	OpcodeAUIPC   Opcode = 5
	OpcodeStore   Opcode = 8
	OpcodeOp      Opcode = 12
	OpcodeLUI     Opcode = 13
	OpcodeBranch  Opcode = 24
	OpcodeJALR    Opcode = 25
	OpcodeJAL     Opcode = 27
	OpcodeSystem  Opcode = 28
)

// Format identifies the instruction layout family.
type Format uint8

// Instruction formats.
const (
	FormatUnknown Format = iota
	FormatR              // register-register
	FormatI              // register-immediate, loads, jalr, system
	FormatS              // store
	FormatB              // conditional branch
	FormatU              // upper immediate
	FormatJ              // unconditional jump
)

var formatTable = map[Opcode]Format{
	OpcodeOp:     FormatR,
	OpcodeLoad:   FormatI,
	OpcodeOpImm:  FormatI,
	OpcodeJALR:   FormatI,
	OpcodeSystem: FormatI,
	OpcodeStore:  FormatS,
	OpcodeBranch: FormatB,
	OpcodeLUI:    FormatU,
	OpcodeAUIPC:  FormatU,
	OpcodeJAL:    FormatJ,
}

// FormatOf returns the format of an opcode, or FormatUnknown.
func FormatOf(op Opcode) Format {
	return formatTable[op]
}

// Funct3 values for loads.
const (
	Funct3LB  = 0
	Funct3LH  = 1
	Funct3LW  = 2
	Funct3LBU = 4
	Funct3LHU = 5
)

// Funct3 values for stores.
const (
	Funct3SB = 0
	Funct3SH = 1
	Funct3SW = 2
)

// Funct3 values for OP and OP-IMM.
const (
	Funct3Add  = 0
	Funct3SLL  = 1
	Funct3SLT  = 2
	Funct3SLTU = 3
	Funct3XOR  = 4
	Funct3SRL  = 5
	Funct3OR   = 6
	Funct3AND  = 7

	// Alternate encodings selected by Funct7Alt.
	Funct3Sub = 0
	Funct3SRA = 5
)

// Funct7 discriminators.
const (
	Funct7Base = 0x00
	Funct7Alt  = 0x20
)

// Funct3 values for branches.
const (
	Funct3BEQ  = 0
	Funct3BNE  = 1
	Funct3BLT  = 4
	Funct3BGE  = 5
	Funct3BLTU = 6
	Funct3BGEU = 7
)

// Funct3 values for the SYSTEM opcode.
const (
	Funct3Priv           = 0
	Funct3CSRRW          = 1
	Funct3CSRRS          = 2
	Funct3CSRRC          = 3
	Funct3SystemReserved = 4 // no instruction assigned
	Funct3CSRRWI         = 5
	Funct3CSRRSI         = 6
	Funct3CSRRCI         = 7
)

// Funct3JALR is the only funct3 value JALR accepts.
const Funct3JALR = 0

// Funct12 values for privileged SYSTEM instructions.
const (
	Funct12ECALL  = 0x000
	Funct12EBREAK = 0x001
	Funct12URET   = 0x002
	Funct12SRET   = 0x102
	Funct12MRET   = 0x302
	Funct12WFI    = 0x105
)
