// Package bitfield provides bit-level read, write and sign-extension
// primitives over 32-bit instruction and register words.
//
// Callers guarantee offset+length <= 32. The functions do not check it.
package bitfield

// Field is a contiguous run of bits inside a 32-bit word.
type Field struct {
	// Offset is the index of the least significant bit of the run.
	Offset uint8
	// Length is the number of bits in the run.
	Length uint8
}

// Instruction word fields shared by the encoder, decoder and CPU.
var (
	ILen    = Field{Offset: 0, Length: 2}
	Opcode  = Field{Offset: 2, Length: 5}
	RD      = Field{Offset: 7, Length: 5}
	Funct3  = Field{Offset: 12, Length: 3}
	RS1     = Field{Offset: 15, Length: 5}
	RS2     = Field{Offset: 20, Length: 5}
	Funct7  = Field{Offset: 25, Length: 7}
	Funct12 = Field{Offset: 20, Length: 12}
	Imm12   = Field{Offset: 20, Length: 12}
	Imm20   = Field{Offset: 12, Length: 20}
	Zimm    = Field{Offset: 15, Length: 5}
)

func mask(length uint8) uint32 {
	return uint32((uint64(1) << length) - 1)
}

// Read returns the length bits of word starting at offset, right aligned.
func Read(word uint32, offset, length uint8) uint32 {
	return (word >> offset) & mask(length)
}

// Write returns base with the run at offset replaced by the low length bits
// of value. All other bits of base are preserved.
func Write(base uint32, offset, length uint8, value uint32) uint32 {
	m := mask(length) << offset
	return (base &^ m) | ((value << offset) & m)
}

// SignExtend replicates bit signBit of value through bit 31.
func SignExtend(value uint32, signBit uint8) uint32 {
	if (value>>signBit)&1 == 0 {
		return value
	}
	return value | ^mask(signBit+1)
}

// Exchange writes value into the run and returns the previous run value
// along with the updated word.
func Exchange(base uint32, offset, length uint8, value uint32) (old, updated uint32) {
	old = Read(base, offset, length)
	updated = Write(base, offset, length, value)
	return old, updated
}

// Read returns the field's value within word.
func (f Field) Read(word uint32) uint32 {
	return Read(word, f.Offset, f.Length)
}

// Write returns base with the field replaced by value.
func (f Field) Write(base uint32, value uint32) uint32 {
	return Write(base, f.Offset, f.Length, value)
}

// Exchange replaces the field in *base with value and returns the previous
// field value.
func (f Field) Exchange(base *uint32, value uint32) uint32 {
	old, updated := Exchange(*base, f.Offset, f.Length, value)
	*base = updated
	return old
}
