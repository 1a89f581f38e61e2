package insts

import (
	"fmt"

	"github.com/sarchlab/rv32vm/bitfield"
)

// Constraint is a fixed field value that identifies an instruction.
type Constraint struct {
	Field bitfield.Field
	Value uint32
}

// Holds reports whether word carries the constraint's value.
func (c Constraint) Holds(word uint32) bool {
	return c.Field.Read(word) == c.Value
}

// Descriptor describes one instruction form. Descriptors are never mutated
// after the catalog that owns them is built.
type Descriptor struct {
	Name        string
	Operands    []*Operand
	Constraints []Constraint
}

// Matches reports whether every constraint holds for word.
func (d *Descriptor) Matches(word uint32) bool {
	for _, c := range d.Constraints {
		if !c.Holds(word) {
			return false
		}
	}
	return true
}

// Catalog is an ordered, read-only set of descriptors. Order is decode
// precedence.
type Catalog struct {
	descriptors []*Descriptor
	index       map[string]int
}

// NewCatalog builds a catalog from descriptors in precedence order. Duplicate
// names or descriptors without constraints panic.
func NewCatalog(descriptors ...*Descriptor) *Catalog {
	c := &Catalog{
		descriptors: make([]*Descriptor, len(descriptors)),
		index:       make(map[string]int, len(descriptors)),
	}
	copy(c.descriptors, descriptors)

	for i, d := range c.descriptors {
		if _, dup := c.index[d.Name]; dup {
			panic(fmt.Sprintf("catalog: duplicate instruction %q", d.Name))
		}
		if len(d.Constraints) == 0 {
			panic(fmt.Sprintf("catalog: instruction %q has no constraints", d.Name))
		}
		c.index[d.Name] = i
	}

	return c
}

// Len returns the number of descriptors.
func (c *Catalog) Len() int {
	return len(c.descriptors)
}

// At returns the i-th descriptor in precedence order.
func (c *Catalog) At(i int) *Descriptor {
	return c.descriptors[i]
}

// All returns the descriptors in precedence order. The returned slice is a
// copy.
func (c *Catalog) All() []*Descriptor {
	out := make([]*Descriptor, len(c.descriptors))
	copy(out, c.descriptors)
	return out
}

// Lookup finds a descriptor by mnemonic.
func (c *Catalog) Lookup(name string) (*Descriptor, bool) {
	i, ok := c.index[name]
	if !ok {
		return nil, false
	}
	return c.descriptors[i], true
}

// Precedence returns the position of the named descriptor, or -1.
func (c *Catalog) Precedence(name string) int {
	i, ok := c.index[name]
	if !ok {
		return -1
	}
	return i
}

var defaultCatalog = NewCatalog(baseDescriptors()...)

// DefaultCatalog returns the RV32I catalog.
func DefaultCatalog() *Catalog {
	return defaultCatalog
}

func is(f bitfield.Field, v uint32) Constraint {
	return Constraint{Field: f, Value: v}
}

func opcode(op Opcode) Constraint {
	return is(bitfield.Opcode, uint32(op))
}

func desc(name string, operands []*Operand, constraints ...Constraint) *Descriptor {
	all := make([]Constraint, 0, len(constraints)+1)
	all = append(all, is(bitfield.ILen, 0b11))
	all = append(all, constraints...)
	return &Descriptor{Name: name, Operands: operands, Constraints: all}
}

func ops(o ...*Operand) []*Operand {
	return o
}

func rType(name string, funct3, funct7 uint32) *Descriptor {
	return desc(name, ops(RD, RS1, RS2),
		opcode(OpcodeOp), is(bitfield.Funct3, funct3), is(bitfield.Funct7, funct7))
}

func iType(name string, op Opcode, funct3 uint32) *Descriptor {
	return desc(name, ops(RD, RS1, Imm12),
		opcode(op), is(bitfield.Funct3, funct3))
}

func shiftType(name string, funct3, funct7 uint32) *Descriptor {
	return desc(name, ops(RD, RS1, Shamt),
		opcode(OpcodeOpImm), is(bitfield.Funct3, funct3), is(bitfield.Funct7, funct7))
}

func sType(name string, funct3 uint32) *Descriptor {
	return desc(name, ops(RS1, RS2, SImm12),
		opcode(OpcodeStore), is(bitfield.Funct3, funct3))
}

func bType(name string, funct3 uint32) *Descriptor {
	return desc(name, ops(RS1, RS2, BImm12),
		opcode(OpcodeBranch), is(bitfield.Funct3, funct3))
}

func uType(name string, op Opcode) *Descriptor {
	return desc(name, ops(RD, Imm20), opcode(op))
}

func csrType(name string, funct3 uint32) *Descriptor {
	return desc(name, ops(RD, RS1, CSR),
		opcode(OpcodeSystem), is(bitfield.Funct3, funct3))
}

func csrImmType(name string, funct3 uint32) *Descriptor {
	return desc(name, ops(RD, Zimm, CSR),
		opcode(OpcodeSystem), is(bitfield.Funct3, funct3))
}

func envType(name string, funct12 uint32) *Descriptor {
	return desc(name, nil,
		opcode(OpcodeSystem),
		is(bitfield.RD, 0),
		is(bitfield.Funct3, Funct3Priv),
		is(bitfield.RS1, 0),
		is(bitfield.Funct12, funct12))
}

func pseudoDescriptors() []*Descriptor {
	opImm := opcode(OpcodeOpImm)
	addi := is(bitfield.Funct3, Funct3Add)
	jalr := []Constraint{opcode(OpcodeJALR), is(bitfield.Funct3, Funct3JALR)}
	system := opcode(OpcodeSystem)

	return []*Descriptor{
		desc("nop", nil, opImm, addi,
			is(bitfield.RD, 0), is(bitfield.RS1, 0), is(bitfield.Imm12, 0)),
		desc("mv", ops(RD, RS1), opImm, addi, is(bitfield.Imm12, 0)),
		desc("li", ops(RD, Imm12), opImm, addi, is(bitfield.RS1, 0)),
		desc("seqz", ops(RD, RS1), opImm,
			is(bitfield.Funct3, Funct3SLTU), is(bitfield.Imm12, 1)),
		desc("not", ops(RD, RS1), opImm,
			is(bitfield.Funct3, Funct3XOR), is(bitfield.Imm12, 0xFFF)),
		desc("snez", ops(RD, RS2), opcode(OpcodeOp),
			is(bitfield.Funct3, Funct3SLTU), is(bitfield.Funct7, Funct7Base), is(bitfield.RS1, 0)),
		desc("j", ops(JImm20), opcode(OpcodeJAL), is(bitfield.RD, 0)),
		desc("ret", nil, append(jalr,
			is(bitfield.RD, 0), is(bitfield.RS1, RegRA), is(bitfield.Imm12, 0))...),
		desc("jr", ops(RS1), append(jalr,
			is(bitfield.RD, 0), is(bitfield.Imm12, 0))...),
		desc("beqz", ops(RS1, BImm12), opcode(OpcodeBranch),
			is(bitfield.Funct3, Funct3BEQ), is(bitfield.RS2, 0)),
		desc("bnez", ops(RS1, BImm12), opcode(OpcodeBranch),
			is(bitfield.Funct3, Funct3BNE), is(bitfield.RS2, 0)),
		desc("csrr", ops(RD, CSR), system,
			is(bitfield.Funct3, Funct3CSRRS), is(bitfield.RS1, 0)),
		desc("csrw", ops(RS1, CSR), system,
			is(bitfield.Funct3, Funct3CSRRW), is(bitfield.RD, 0)),
		desc("csrs", ops(RS1, CSR), system,
			is(bitfield.Funct3, Funct3CSRRS), is(bitfield.RD, 0)),
		desc("csrc", ops(RS1, CSR), system,
			is(bitfield.Funct3, Funct3CSRRC), is(bitfield.RD, 0)),
		desc("csrwi", ops(Zimm, CSR), system,
			is(bitfield.Funct3, Funct3CSRRWI), is(bitfield.RD, 0)),
		desc("csrsi", ops(Zimm, CSR), system,
			is(bitfield.Funct3, Funct3CSRRSI), is(bitfield.RD, 0)),
		desc("csrci", ops(Zimm, CSR), system,
			is(bitfield.Funct3, Funct3CSRRCI), is(bitfield.RD, 0)),
	}
}

func baseDescriptors() []*Descriptor {
	d := pseudoDescriptors()

	d = append(d,
		iType("addi", OpcodeOpImm, Funct3Add),
		iType("slti", OpcodeOpImm, Funct3SLT),
		iType("sltiu", OpcodeOpImm, Funct3SLTU),
		iType("andi", OpcodeOpImm, Funct3AND),
		iType("ori", OpcodeOpImm, Funct3OR),
		iType("xori", OpcodeOpImm, Funct3XOR),
		shiftType("slli", Funct3SLL, Funct7Base),
		shiftType("srli", Funct3SRL, Funct7Base),
		shiftType("srai", Funct3SRA, Funct7Alt),

		uType("lui", OpcodeLUI),
		uType("auipc", OpcodeAUIPC),

		rType("add", Funct3Add, Funct7Base),
		rType("slt", Funct3SLT, Funct7Base),
		rType("sltu", Funct3SLTU, Funct7Base),
		rType("and", Funct3AND, Funct7Base),
		rType("or", Funct3OR, Funct7Base),
		rType("xor", Funct3XOR, Funct7Base),
		rType("sll", Funct3SLL, Funct7Base),
		rType("srl", Funct3SRL, Funct7Base),
		rType("sub", Funct3Sub, Funct7Alt),
		rType("sra", Funct3SRA, Funct7Alt),

		desc("jal", ops(RD, JImm20), opcode(OpcodeJAL)),
		iType("jalr", OpcodeJALR, Funct3JALR),

		bType("beq", Funct3BEQ),
		bType("bne", Funct3BNE),
		bType("blt", Funct3BLT),
		bType("bltu", Funct3BLTU),
		bType("bge", Funct3BGE),
		bType("bgeu", Funct3BGEU),

		iType("lb", OpcodeLoad, Funct3LB),
		iType("lh", OpcodeLoad, Funct3LH),
		iType("lw", OpcodeLoad, Funct3LW),
		iType("lbu", OpcodeLoad, Funct3LBU),
		iType("lhu", OpcodeLoad, Funct3LHU),

		sType("sb", Funct3SB),
		sType("sh", Funct3SH),
		sType("sw", Funct3SW),

		csrType("csrrw", Funct3CSRRW),
		csrType("csrrs", Funct3CSRRS),
		csrType("csrrc", Funct3CSRRC),
		csrImmType("csrrwi", Funct3CSRRWI),
		csrImmType("csrrsi", Funct3CSRRSI),
		csrImmType("csrrci", Funct3CSRRCI),

		envType("ecall", Funct12ECALL),
		envType("ebreak", Funct12EBREAK),
		envType("uret", Funct12URET),
		envType("sret", Funct12SRET),
		envType("mret", Funct12MRET),
		envType("wfi", Funct12WFI),
	)

	return d
}
