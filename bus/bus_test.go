package bus_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/rv32vm/bus"
)

type tickCounter struct {
	bus.Memory
	ticks       int
	interrupted bool
	order       *[]string
	name        string
}

func (t *tickCounter) Tick() {
	t.ticks++
	if t.order != nil {
		*t.order = append(*t.order, t.name)
	}
}

func (t *tickCounter) IsInterrupting() bool {
	return t.interrupted
}

var _ = Describe("Bus", func() {
	var (
		b   *bus.Bus
		mem *bus.Memory
	)

	BeforeEach(func() {
		b = bus.New()
		mem = bus.NewMemory(8)
		Expect(b.Attach("memory", mem, 0x0, 8)).To(Succeed())
	})

	Describe("Attach", func() {
		It("should reject widths below a word", func() {
			err := b.Attach("tiny", bus.NewMemory(2), 0x1000, 1)
			Expect(err).To(MatchError(bus.ErrWindowWidth))
		})

		It("should reject unaligned windows", func() {
			err := b.Attach("odd", bus.NewMemory(4), 0x1004, 4)
			Expect(err).To(MatchError(bus.ErrWindowAlignment))
		})

		It("should reject overlapping windows", func() {
			err := b.Attach("overlap", bus.NewMemory(4), 0x10, 4)
			Expect(err).To(MatchError(bus.ErrWindowOverlap))
		})

		It("should reject duplicate names", func() {
			err := b.Attach("memory", bus.NewMemory(4), 0x1000, 4)
			Expect(err).To(MatchError(bus.ErrDuplicateDevice))
		})

		It("should keep attach order", func() {
			Expect(b.Attach("out", bus.NewOutputDevice(GinkgoWriter), 0x100, 2)).To(Succeed())
			bindings := b.Bindings()
			Expect(bindings).To(HaveLen(2))
			Expect(bindings[0].Name).To(Equal("memory"))
			Expect(bindings[1].Name).To(Equal("out"))
			Expect(bindings[1].Size()).To(Equal(uint64(4)))

			dev, ok := b.Device("out")
			Expect(ok).To(BeTrue())
			Expect(dev).NotTo(BeNil())
		})
	})

	Describe("ReadWord and WriteWord", func() {
		It("should route to the device with window offsets", func() {
			other := bus.NewMemory(4)
			Expect(b.Attach("other", other, 0x1000, 4)).To(Succeed())

			Expect(b.WriteWord(0x1008, 0xCAFEBABE)).To(Succeed())
			Expect(other.ReadWord(0x8)).To(Equal(uint32(0xCAFEBABE)))

			v, err := b.ReadWord(0x1008)
			Expect(err).NotTo(HaveOccurred())
			Expect(v).To(Equal(uint32(0xCAFEBABE)))
		})

		It("should fault outside every window", func() {
			_, err := b.ReadWord(0x100)
			Expect(err).To(MatchError(bus.ErrBusFault))
			Expect(b.WriteWord(0x100, 1)).To(MatchError(bus.ErrBusFault))
		})

		It("should fault on unaligned addresses", func() {
			_, err := b.ReadWord(0x2)
			Expect(err).To(MatchError(bus.ErrBusFault))
		})

		It("should cover the last word of the window", func() {
			Expect(b.WriteWord(0xFC, 7)).To(Succeed())
			v, err := b.ReadWord(0xFC)
			Expect(err).NotTo(HaveOccurred())
			Expect(v).To(Equal(uint32(7)))
		})
	})

	Describe("TickDevices", func() {
		It("should tick in attach order and OR interrupts", func() {
			var order []string
			a := &tickCounter{Memory: *bus.NewMemory(4), order: &order, name: "a"}
			c := &tickCounter{Memory: *bus.NewMemory(4), order: &order, name: "c"}
			Expect(b.Attach("a", a, 0x1000, 4)).To(Succeed())
			Expect(b.Attach("c", c, 0x2000, 4)).To(Succeed())

			Expect(b.TickDevices()).To(BeFalse())
			c.interrupted = true
			Expect(b.TickDevices()).To(BeTrue())
			Expect(b.IsInterrupting()).To(BeTrue())

			Expect(order).To(Equal([]string{"a", "c", "a", "c"}))
		})
	})
})
