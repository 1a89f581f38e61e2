package insts

import (
	"fmt"
)

// baseWord marks a full-width, non-compressed instruction.
const baseWord uint32 = 0b11

// Encode builds the instruction word for d. The number of args must match
// the number of operands; a mismatch is a caller defect and panics. Values
// wider than their field are truncated.
func Encode(d *Descriptor, args ...uint32) uint32 {
	if len(args) != len(d.Operands) {
		panic(fmt.Sprintf("encode %s: got %d operands, want %d",
			d.Name, len(args), len(d.Operands)))
	}

	word := baseWord
	for _, c := range d.Constraints {
		word = c.Field.Write(word, c.Value)
	}
	for i, o := range d.Operands {
		word = o.Assemble(word, args[i])
	}

	return word
}

// EncodeName looks up name in the default catalog and encodes it.
func EncodeName(name string, args ...uint32) (uint32, error) {
	d, ok := DefaultCatalog().Lookup(name)
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrUnknownInstruction, name)
	}
	if len(args) != len(d.Operands) {
		return 0, fmt.Errorf("%w: %s takes %d, got %d",
			ErrOperandCount, name, len(d.Operands), len(args))
	}
	return Encode(d, args...), nil
}

// MustEncode is EncodeName that panics on error. It is meant for tables of
// known-good instructions.
func MustEncode(name string, args ...uint32) uint32 {
	word, err := EncodeName(name, args...)
	if err != nil {
		panic(err)
	}
	return word
}
