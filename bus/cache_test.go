package bus_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/rv32vm/bus"
)

var _ = Describe("CachedMemory", func() {
	var (
		c      *bus.CachedMemory
		memory *bus.Memory
	)

	BeforeEach(func() {
		memory = bus.NewMemory(12)
		// 256B, 2-way, 16B lines: 8 sets
		var err error
		c, err = bus.NewCachedMemory(bus.CacheConfig{
			Size:          256,
			Associativity: 2,
			BlockSize:     16,
		}, memory)
		Expect(err).NotTo(HaveOccurred())
	})

	It("should miss on a cold cache and hit afterwards", func() {
		memory.WriteWord(0x100, 0xDEADBEEF)

		Expect(c.ReadWord(0x100)).To(Equal(uint32(0xDEADBEEF)))
		Expect(c.ReadWord(0x104)).To(Equal(uint32(0)))

		stats := c.Stats()
		Expect(stats.Reads).To(Equal(uint64(2)))
		Expect(stats.Misses).To(Equal(uint64(1)))
		Expect(stats.Hits).To(Equal(uint64(1)))
	})

	It("should hold writes until flushed", func() {
		c.WriteWord(0x40, 0x12345678)
		Expect(c.ReadWord(0x40)).To(Equal(uint32(0x12345678)))
		Expect(memory.ReadWord(0x40)).To(Equal(uint32(0)))

		c.Flush()
		Expect(memory.ReadWord(0x40)).To(Equal(uint32(0x12345678)))
		Expect(c.Stats().Writebacks).To(Equal(uint64(1)))
	})

	It("should write back dirty victims", func() {
		// Three lines mapping to set 0 of a 2-way cache.
		c.WriteWord(0x000, 1)
		c.WriteWord(0x080, 2)
		c.WriteWord(0x100, 3)

		stats := c.Stats()
		Expect(stats.Evictions).To(Equal(uint64(1)))
		Expect(stats.Writebacks).To(Equal(uint64(1)))
		Expect(memory.ReadWord(0x000)).To(Equal(uint32(1)))

		Expect(c.ReadWord(0x000)).To(Equal(uint32(1)))
	})

	It("should reject bad geometry", func() {
		_, err := bus.NewCachedMemory(bus.CacheConfig{Size: 100, Associativity: 2, BlockSize: 16}, memory)
		Expect(err).To(HaveOccurred())

		_, err = bus.NewCachedMemory(bus.CacheConfig{Size: 64, Associativity: 2, BlockSize: 6}, memory)
		Expect(err).To(HaveOccurred())
	})

	It("should be attachable to a bus", func() {
		b := bus.New()
		Expect(b.Attach("memory", c, 0, 12)).To(Succeed())
		Expect(b.WriteWord(0x20, 9)).To(Succeed())
		v, err := b.ReadWord(0x20)
		Expect(err).NotTo(HaveOccurred())
		Expect(v).To(Equal(uint32(9)))
	})
})
