package insts_test

import (
	"bytes"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/rv32vm/insts"
)

var _ = Describe("WriteListing", func() {
	It("should list decoded and raw words", func() {
		in := bytes.NewReader([]byte{
			0x13, 0x00, 0x00, 0x00,
			0xFF, 0xFF, 0xFF, 0xFF,
			0x01, 0x02,
		})
		var out bytes.Buffer

		Expect(insts.WriteListing(&out, in, nil)).To(Succeed())

		lines := strings.Split(strings.TrimSpace(out.String()), "\n")
		Expect(lines).To(HaveLen(2))
		Expect(lines[0]).To(Equal(
			"00000000 : 00000013 - 00000000 00000000 00000000 00010011    ; (nop)"))
		Expect(lines[1]).To(HaveSuffix("; 0xFFFFFFFF"))
		Expect(lines[1]).To(HavePrefix("00000004 : FFFFFFFF"))
	})

	It("should start offsets at the given base", func() {
		in := bytes.NewReader([]byte{0x73, 0x00, 0x50, 0x10})
		var out bytes.Buffer

		Expect(insts.WriteListingAt(&out, in, 0x1000, nil)).To(Succeed())
		Expect(out.String()).To(HavePrefix("00001000 : 10500073"))
		Expect(out.String()).To(ContainSubstring("; (wfi)"))
	})
})
