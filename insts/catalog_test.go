package insts_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/rv32vm/bitfield"
	"github.com/sarchlab/rv32vm/insts"
)

var _ = Describe("Catalog", func() {
	It("should list pseudo-instructions first", func() {
		all := insts.DefaultCatalog().All()
		Expect(all[0].Name).To(Equal("nop"))
		Expect(insts.DefaultCatalog().Precedence("mv")).
			To(BeNumerically("<", insts.DefaultCatalog().Precedence("addi")))
		Expect(insts.DefaultCatalog().Precedence("csrr")).
			To(BeNumerically("<", insts.DefaultCatalog().Precedence("csrrs")))
	})

	It("should not be mutated through All", func() {
		all := insts.DefaultCatalog().All()
		all[0] = nil
		Expect(insts.DefaultCatalog().At(0)).NotTo(BeNil())
	})

	It("should look up descriptors by name", func() {
		d, ok := insts.DefaultCatalog().Lookup("sw")
		Expect(ok).To(BeTrue())
		Expect(d.Operands).To(Equal([]*insts.Operand{insts.RS1, insts.RS2, insts.SImm12}))

		_, ok = insts.DefaultCatalog().Lookup("mul")
		Expect(ok).To(BeFalse())
		Expect(insts.DefaultCatalog().Precedence("mul")).To(Equal(-1))
	})

	It("should use architectural load funct3 values", func() {
		d, _ := insts.DefaultCatalog().Lookup("lbu")
		Expect(bitfield.Funct3.Read(insts.Encode(d, 0, 0, 0))).To(Equal(uint32(insts.Funct3LBU)))
		d, _ = insts.DefaultCatalog().Lookup("lhu")
		Expect(bitfield.Funct3.Read(insts.Encode(d, 0, 0, 0))).To(Equal(uint32(5)))
	})

	It("should reject duplicate names", func() {
		d := &insts.Descriptor{
			Name:        "x",
			Constraints: []insts.Constraint{{Field: bitfield.Opcode, Value: 0}},
		}
		Expect(func() { insts.NewCatalog(d, d) }).To(Panic())
	})

	It("should reject descriptors without constraints", func() {
		Expect(func() { insts.NewCatalog(&insts.Descriptor{Name: "x"}) }).To(Panic())
	})
})

var _ = Describe("Operand", func() {
	It("should report its width", func() {
		Expect(insts.BImm12.Width()).To(Equal(uint8(12)))
		Expect(insts.JImm20.Width()).To(Equal(uint8(20)))
		Expect(insts.SImm12.Width()).To(Equal(uint8(12)))
	})

	It("should panic when mappings do not cover the width", func() {
		Expect(func() {
			insts.NewOperand("bad", insts.KindGeneral, 8, insts.Mapping{DestOffset: 20, Length: 5})
		}).To(Panic())
	})

	It("should assemble and extract fragmented immediates", func() {
		word := insts.JImm20.Assemble(0, 0x000FF7FE)
		Expect(insts.JImm20.Extract(word)).To(Equal(uint32(0x000FF7FE)))

		word = insts.BImm12.Assemble(0, 0xFFFFF000)
		Expect(word).To(Equal(uint32(0x80000000)))
		Expect(insts.BImm12.Extract(word)).To(Equal(uint32(0xFFFFF000)))

		word = insts.BImm12.Assemble(0, 0xFFFFF800)
		Expect(word).To(Equal(uint32(0x80000080)))
	})

	It("should place store offsets in two runs", func() {
		word := insts.SImm12.Assemble(0, 0x7FF)
		Expect(word).To(Equal(uint32(0x7E000F80)))
	})
})

var _ = Describe("Registers and CSRs", func() {
	It("should map ABI names", func() {
		Expect(insts.ABIName(6)).To(Equal("t1"))
		Expect(insts.ABIName(28)).To(Equal("t3"))

		r, ok := insts.RegisterIndex("fp")
		Expect(ok).To(BeTrue())
		Expect(r).To(Equal(uint32(insts.RegS0)))

		r, ok = insts.RegisterIndex("x31")
		Expect(ok).To(BeTrue())
		Expect(r).To(Equal(uint32(31)))

		_, ok = insts.RegisterIndex("x32")
		Expect(ok).To(BeFalse())
	})

	It("should derive CSR access from the address", func() {
		Expect(insts.CSRLevel(insts.CSRMStatus)).To(Equal(uint32(3)))
		Expect(insts.CSRLevel(insts.CSRSStatus)).To(Equal(uint32(1)))
		Expect(insts.CSRLevel(insts.CSRCycle)).To(Equal(uint32(0)))
		Expect(insts.CSRReadOnly(insts.CSRCycle)).To(BeTrue())
		Expect(insts.CSRReadOnly(insts.CSRMHartID)).To(BeTrue())
		Expect(insts.CSRReadOnly(insts.CSRMScratch)).To(BeFalse())
	})

	It("should resolve CSR names", func() {
		addr, ok := insts.CSRAddress("mtvec")
		Expect(ok).To(BeTrue())
		Expect(addr).To(Equal(uint32(insts.CSRMTVec)))

		name, ok := insts.CSRName(insts.CSRMCause)
		Expect(ok).To(BeTrue())
		Expect(name).To(Equal("mcause"))
	})
})

var _ = Describe("FormatOperand", func() {
	It("should render each kind", func() {
		Expect(insts.FormatOperand(insts.KindRegister, 1)).To(Equal("ra"))
		Expect(insts.FormatOperand(insts.KindAddress, 0x120)).To(Equal("0x00000120"))
		Expect(insts.FormatOperand(insts.KindGeneral, 0xFFFFFFFF)).To(Equal("-1"))
		Expect(insts.FormatOperand(insts.KindCSR, insts.CSRMEPC)).To(Equal("mepc"))
		Expect(insts.FormatOperand(insts.KindCSR, 0x7FF)).To(Equal("(csr 2047)"))
	})
})
