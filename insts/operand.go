package insts

import (
	"fmt"

	"github.com/sarchlab/rv32vm/bitfield"
)

// Mapping relocates a run of bits between an operand's own numbering and its
// position inside an instruction word.
type Mapping struct {
	SourceOffset uint8
	DestOffset   uint8
	Length       uint8
}

// OperandKind tells a formatter how to render an operand.
type OperandKind uint8

// Operand kinds.
const (
	KindRegister OperandKind = iota
	KindAddress
	KindGeneral
	KindCSR
)

// String returns the kind name.
func (k OperandKind) String() string {
	switch k {
	case KindRegister:
		return "register"
	case KindAddress:
		return "address"
	case KindGeneral:
		return "general"
	case KindCSR:
		return "csr"
	}
	return fmt.Sprintf("kind(%d)", uint8(k))
}

// Operand describes where an operand lives in the word and how to read it.
type Operand struct {
	Name     string
	Kind     OperandKind
	Mappings []Mapping

	// Signed operands are sign extended from SignBit after extraction.
	Signed  bool
	SignBit uint8

	width uint8
}

// NewOperand builds an operand and checks that its mappings cover exactly
// width bits. A mismatch is a static table defect and panics.
func NewOperand(
	name string,
	kind OperandKind,
	width uint8,
	mappings ...Mapping,
) *Operand {
	var sum uint8
	for _, m := range mappings {
		if m.SourceOffset+m.Length > 32 || m.DestOffset+m.Length > 32 {
			panic(fmt.Sprintf("operand %s: mapping %+v exceeds word", name, m))
		}
		sum += m.Length
	}
	if sum != width {
		panic(fmt.Sprintf("operand %s: mappings cover %d bits, want %d", name, sum, width))
	}
	return &Operand{Name: name, Kind: kind, Mappings: mappings, width: width}
}

// WithSignBit marks the operand as signed with the given sign bit.
func (o *Operand) WithSignBit(bit uint8) *Operand {
	o.Signed = true
	o.SignBit = bit
	return o
}

// Width returns the number of instruction bits the operand occupies.
func (o *Operand) Width() uint8 {
	return o.width
}

// Assemble copies raw into word following the mappings in order.
func (o *Operand) Assemble(word, raw uint32) uint32 {
	for _, m := range o.Mappings {
		v := bitfield.Read(raw, m.SourceOffset, m.Length)
		word = bitfield.Write(word, m.DestOffset, m.Length, v)
	}
	return word
}

// Extract rebuilds the operand value from word.
func (o *Operand) Extract(word uint32) uint32 {
	var v uint32
	for _, m := range o.Mappings {
		bits := bitfield.Read(word, m.DestOffset, m.Length)
		v = bitfield.Write(v, m.SourceOffset, m.Length, bits)
	}
	if o.Signed {
		v = bitfield.SignExtend(v, o.SignBit)
	}
	return v
}

func register(name string, offset uint8) *Operand {
	return NewOperand(name, KindRegister, 5, Mapping{0, offset, 5})
}

// Operands shared by the catalog and the CPU.
var (
	RD  = register("rd", 7)
	RS1 = register("rs1", 15)
	RS2 = register("rs2", 20)

	Shamt = NewOperand("shamt", KindGeneral, 5, Mapping{0, 20, 5})

	Imm12 = NewOperand("imm12", KindGeneral, 12,
		Mapping{0, 20, 12}).WithSignBit(11)

	SImm12 = NewOperand("simm12", KindGeneral, 12,
		Mapping{0, 7, 5},
		Mapping{5, 25, 7}).WithSignBit(11)

	BImm12 = NewOperand("bimm12", KindAddress, 12,
		Mapping{1, 8, 4},
		Mapping{5, 25, 6},
		Mapping{11, 7, 1},
		Mapping{12, 31, 1}).WithSignBit(12)

	Imm20 = NewOperand("imm20", KindGeneral, 20, Mapping{12, 12, 20})

	JImm20 = NewOperand("jimm20", KindAddress, 20,
		Mapping{1, 21, 10},
		Mapping{11, 20, 1},
		Mapping{12, 12, 8},
		Mapping{20, 31, 1}).WithSignBit(20)

	CSR = NewOperand("csr", KindCSR, 12, Mapping{0, 20, 12})

	Zimm = NewOperand("zimm", KindGeneral, 5, Mapping{0, 15, 5})
)
