package insts_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/rv32vm/insts"
)

// sampleArg returns a value that fits the operand and avoids the special
// cases pseudo-instructions match on.
func sampleArg(o *insts.Operand, i int) uint32 {
	switch o.Name {
	case "rd":
		return 7
	case "rs1":
		return 9
	case "rs2":
		return 11
	case "shamt":
		return 13
	case "imm12":
		return 0xFFFFF9C0 // -1600
	case "simm12":
		return 0xFFFFFFFC
	case "bimm12":
		return 0xFFFFFFF0
	case "imm20":
		return 0xABCDE000
	case "jimm20":
		return 0xFFFFF000
	case "csr":
		return insts.CSRMEPC
	case "zimm":
		return 21
	}
	Fail("no sample for operand " + o.Name)
	return uint32(i)
}

var _ = Describe("Decoder", func() {
	var (
		catalog *insts.Catalog
		decoder *insts.Decoder
	)

	BeforeEach(func() {
		catalog = insts.DefaultCatalog()
		decoder = insts.NewDecoder(catalog)
	})

	It("should round-trip every descriptor", func() {
		for _, d := range catalog.All() {
			args := make([]uint32, len(d.Operands))
			for i, o := range d.Operands {
				args[i] = sampleArg(o, i)
			}

			word := insts.Encode(d, args...)
			decoded, ok := decoder.Decode(word)

			Expect(ok).To(BeTrue(), d.Name)
			Expect(decoded.Descriptor).To(BeIdenticalTo(d), d.Name)
			Expect(decoded.Args).To(Equal(args), d.Name)
		}
	})

	It("should prefer earlier descriptors for special cases", func() {
		word := insts.MustEncode("addi", 0, 0, 0)
		d, ok := decoder.Decode(word)
		Expect(ok).To(BeTrue())
		Expect(d.Name()).To(Equal("nop"))

		d, _ = decoder.Decode(insts.MustEncode("addi", insts.RegT0, 0, 5))
		Expect(d.Name()).To(Equal("li"))
		Expect(d.Args).To(Equal([]uint32{insts.RegT0, 5}))

		d, _ = decoder.Decode(insts.MustEncode("sltiu", insts.RegA0, insts.RegA1, 1))
		Expect(d.Name()).To(Equal("seqz"))

		d, _ = decoder.Decode(insts.MustEncode("jalr", 0, insts.RegRA, 0))
		Expect(d.Name()).To(Equal("ret"))

		d, _ = decoder.Decode(insts.MustEncode("csrrs", insts.RegA0, 0, insts.CSRMStatus))
		Expect(d.Name()).To(Equal("csrr"))
	})

	It("should keep precedence consistent with re-encoding", func() {
		for _, d := range catalog.All() {
			args := make([]uint32, len(d.Operands))
			word := insts.Encode(d, args...)

			decoded, ok := decoder.Decode(word)
			Expect(ok).To(BeTrue(), d.Name)
			Expect(catalog.Precedence(decoded.Name())).
				To(BeNumerically("<=", catalog.Precedence(d.Name)), d.Name)
			Expect(insts.Encode(decoded.Descriptor, decoded.Args...)).To(Equal(word), d.Name)
		}
	})

	It("should sign extend immediates", func() {
		d, ok := decoder.Decode(insts.MustEncode("addi", insts.RegT0, insts.RegT1, 0xFFFFFFFF))
		Expect(ok).To(BeTrue())
		Expect(d.Args[2]).To(Equal(uint32(0xFFFFFFFF)))
	})

	It("should report a miss for unknown words", func() {
		_, ok := decoder.Decode(0xFFFFFFFF)
		Expect(ok).To(BeFalse())

		_, ok = decoder.Decode(0x00000000)
		Expect(ok).To(BeFalse())
	})

	It("should render decoded instructions", func() {
		d, ok := decoder.Decode(0x000E2303)
		Expect(ok).To(BeTrue())
		Expect(d.String()).To(Equal("(lw t1 t3 0)"))

		d, _ = decoder.Decode(insts.MustEncode("beq", insts.RegT1, 0, 0x120))
		Expect(d.String()).To(Equal("(beqz t1 0x00000120)"))

		d, _ = decoder.Decode(insts.MustEncode("csrrw", insts.RegA0, insts.RegA1, insts.CSRMTVec))
		Expect(d.String()).To(Equal("(csrrw a0 a1 mtvec)"))
	})
})
