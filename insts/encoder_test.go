package insts_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/rv32vm/insts"
)

var _ = Describe("Encoder", func() {
	lookup := func(name string) *insts.Descriptor {
		d, ok := insts.DefaultCatalog().Lookup(name)
		Expect(ok).To(BeTrue(), name)
		return d
	}

	It("should encode nop", func() {
		Expect(insts.Encode(lookup("nop"))).To(Equal(uint32(0x00000013)))
	})

	It("should encode lw t1, t3, 0", func() {
		word := insts.Encode(lookup("lw"), insts.RegT1, insts.RegT3, 0)
		Expect(word).To(Equal(uint32(0x000E2303)))
	})

	It("should encode addi t0, t0, 1", func() {
		word := insts.Encode(lookup("addi"), insts.RegT0, insts.RegT0, 1)
		Expect(word).To(Equal(uint32(0x00128293)))
	})

	It("should encode ecall and mret", func() {
		Expect(insts.Encode(lookup("ecall"))).To(Equal(uint32(0x00000073)))
		Expect(insts.Encode(lookup("mret"))).To(Equal(uint32(0x30200073)))
		Expect(insts.Encode(lookup("wfi"))).To(Equal(uint32(0x10500073)))
	})

	It("should scatter a branch offset", func() {
		// beq zero, zero, -4
		word := insts.Encode(lookup("beq"), 0, 0, 0xFFFFFFFC)
		Expect(word).To(Equal(uint32(0xFE000EE3)))
	})

	It("should truncate wide values", func() {
		word := insts.Encode(lookup("addi"), 0xFF, 0, 0)
		Expect(word).To(Equal(insts.Encode(lookup("addi"), 31, 0, 0)))
	})

	It("should panic on an operand count mismatch", func() {
		Expect(func() { insts.Encode(lookup("add"), 1, 2) }).To(Panic())
	})

	Describe("EncodeName", func() {
		It("should reject unknown mnemonics", func() {
			_, err := insts.EncodeName("fence")
			Expect(err).To(MatchError(insts.ErrUnknownInstruction))
		})

		It("should reject a wrong operand count", func() {
			_, err := insts.EncodeName("add", 1)
			Expect(err).To(MatchError(insts.ErrOperandCount))
		})

		It("should encode known mnemonics", func() {
			word, err := insts.EncodeName("nop")
			Expect(err).NotTo(HaveOccurred())
			Expect(word).To(Equal(uint32(0x13)))
		})
	})
})
