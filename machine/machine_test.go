package machine_test

import (
	"bytes"
	"errors"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/sirupsen/logrus"

	"github.com/sarchlab/rv32vm/bus"
	"github.com/sarchlab/rv32vm/emu"
	"github.com/sarchlab/rv32vm/insts"
	"github.com/sarchlab/rv32vm/machine"
)

const (
	zero = insts.RegZero
	t0   = insts.RegT0
	t1   = insts.RegT1
	t2   = insts.RegT2
	a0   = insts.RegA0
	a1   = insts.RegA1
	a7   = insts.RegA7

	outputStart uint32 = 0x00100000
	inputStart  uint32 = 0x00100004
)

var enc = insts.MustEncode

var _ = Describe("Machine", func() {
	var (
		m      *machine.Machine
		memory *bus.Memory
		input  *bus.InputDevice
		output *bytes.Buffer
	)

	program := func(addr uint32, words ...uint32) {
		for i, w := range words {
			memory.WriteWord(addr+uint32(i)*4, w)
		}
	}

	build := func(opts ...machine.Option) {
		logger := logrus.New()
		logger.SetLevel(logrus.WarnLevel)
		opts = append([]machine.Option{machine.WithLogger(logger)}, opts...)

		m = machine.New(opts...)
		memory = bus.NewMemory(16)
		output = &bytes.Buffer{}
		input = bus.NewInputDevice(nil)

		Expect(m.Attach("memory", memory, 0, 16)).To(Succeed())
		Expect(m.Attach("output", bus.NewOutputDevice(output), outputStart, 2)).To(Succeed())
		Expect(m.Attach("input", input, inputStart, 2)).To(Succeed())
	}

	BeforeEach(func() {
		build()
	})

	It("should sum 1 to 10 and write the result to the output device", func() {
		program(0,
			enc("addi", t0, zero, 10),
			enc("addi", t1, zero, 0),
			enc("add", t1, t1, t0),
			enc("addi", t0, t0, 0xFFFFFFFF),
			enc("bne", t0, zero, 0xFFFFFFF8),
			enc("lui", t2, outputStart),
			enc("sw", t2, t1, 0),
			enc("lui", t0, machine.TerminationPC),
			enc("jalr", zero, t0, 0),
		)

		cycles, err := m.Run(100, false)

		Expect(err).To(MatchError(machine.ErrTerminated))
		Expect(cycles).To(Equal(uint32(36)))
		Expect(output.Bytes()).To(Equal([]byte{55}))
		Expect(m.PC()).To(Equal(machine.TerminationPC))
	})

	It("should stop at the tick limit", func() {
		program(0, enc("j", 0))

		cycles, err := m.Run(5, false)

		Expect(cycles).To(Equal(uint32(5)))
		var limitErr *machine.CyclesLimitExceededError
		Expect(errors.As(err, &limitErr)).To(BeTrue())
		Expect(limitErr.LastPC).To(Equal(uint32(0)))
		Expect(limitErr.Limit).To(Equal(uint32(5)))
	})

	It("should report termination before spending a tick", func() {
		m.SetPC(machine.TerminationPC)
		cycles, err := m.Run(0, false)
		Expect(cycles).To(BeZero())
		Expect(err).To(MatchError(machine.ErrTerminated))
	})

	It("should abort on the first exception when dying", func() {
		program(0, enc("nop"), 0)

		cycles, err := m.Run(10, true)

		Expect(cycles).To(Equal(uint32(2)))
		var excErr *machine.ExceptionError
		Expect(errors.As(err, &excErr)).To(BeTrue())
		Expect(excErr.PC).To(Equal(uint32(4)))
		Expect(excErr.Cause).To(Equal(emu.CauseIllegalInstruction))
		Expect(m.PC()).To(Equal(uint32(4)))
	})

	It("should run the trap handler for a misaligned load", func() {
		program(0,
			enc("addi", t0, zero, 0x100),
			enc("lw", t1, t0, 2),
		)
		program(emu.MTVecReset,
			enc("csrr", a0, insts.CSRMCause),
			enc("csrr", a1, insts.CSRMTVal),
			enc("wfi"),
		)

		cycles, err := m.Run(100, false)

		Expect(err).NotTo(HaveOccurred())
		Expect(cycles).To(Equal(uint32(5)))
		Expect(m.CPU().RegFile().ReadReg(a0)).To(Equal(uint32(emu.CauseLoadAddressMisaligned)))
		Expect(m.CPU().RegFile().ReadReg(a1)).To(Equal(uint32(0x102)))
		Expect(m.CPU().CSR().EPC).To(Equal(uint32(4)))
		Expect(m.Stats().Exceptions).To(Equal(uint64(1)))
	})

	It("should wake from WFI on an input interrupt", func() {
		program(0,
			enc("addi", t0, zero, 1),
			enc("slli", t0, t0, 11),
			enc("j", 0x18),
			enc("nop"),
			// Handler: echo one input byte and terminate.
			enc("lw", a0, t1, 4),
			enc("sw", t1, a0, 0),
			enc("jalr", zero, t2, 0),
			enc("nop"),
			enc("csrw", t0, insts.CSRMIE),
			enc("csrsi", 8, insts.CSRMStatus),
			enc("lui", t1, outputStart),
			enc("lui", t2, machine.TerminationPC),
			enc("wfi"),
			enc("j", 0xFFFFFFFC),
		)

		cycles, err := m.Run(100, false)
		Expect(err).NotTo(HaveOccurred())
		Expect(cycles).To(Equal(uint32(8)))
		Expect(m.CPU().WFI()).To(BeTrue())

		input.Feed('A')
		cycles, err = m.Run(100, false)

		Expect(err).To(MatchError(machine.ErrTerminated))
		Expect(cycles).To(Equal(uint32(4)))
		Expect(output.String()).To(Equal("A"))
		Expect(m.CPU().CSR().EPC).To(Equal(uint32(0x34)))
		Expect(m.CPU().CSR().Cause).To(Equal(uint32(emu.InterruptFlag | 11)))
		Expect(m.Stats().Interrupts).To(Equal(uint64(1)))
		Expect(input.Pending()).To(BeZero())
	})

	It("should latch the device interrupt into mip every tick", func() {
		program(0, enc("nop"), enc("nop"))
		input.Feed(1)
		m.Tick()
		Expect(m.CPU().CSR().IP & emu.IPMEIP).NotTo(BeZero())

		_, _ = m.Bus().ReadWord(inputStart)
		m.Tick()
		Expect(m.CPU().CSR().IP & emu.IPMEIP).To(BeZero())
	})

	It("should terminate on the exit syscall", func() {
		build(machine.WithSyscalls(nil, output, output))
		program(0,
			enc("addi", a7, zero, emu.SyscallExit),
			enc("addi", a0, zero, 7),
			enc("ecall"),
			enc("j", 0),
		)

		cycles, err := m.Run(100, false)

		Expect(err).To(MatchError(machine.ErrTerminated))
		Expect(cycles).To(Equal(uint32(3)))
		Expect(m.Halted()).To(BeTrue())
		Expect(m.ExitCode()).To(Equal(int32(7)))

		m.Reset()
		Expect(m.Halted()).To(BeFalse())
		Expect(m.PC()).To(Equal(emu.ResetVector))
	})

	It("should record a PC trail", func() {
		build(machine.WithPCTrail())
		program(0, enc("nop"), enc("wfi"))

		_, err := m.Run(0, false)

		Expect(err).NotTo(HaveOccurred())
		Expect(m.PCTrail()).To(Equal([]uint32{0, 4}))
		Expect(m.Stats().Ticks).To(Equal(uint64(2)))
	})

	It("should wrap attach errors", func() {
		err := m.Attach("shadow", bus.NewMemory(4), 0x10, 4)
		Expect(errors.Is(err, bus.ErrWindowOverlap)).To(BeTrue())
	})
})
