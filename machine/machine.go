// Package machine ties a CPU to a bus and drives the run loop.
//
// One machine tick ticks every attached device in attach order, latches the
// aggregate device interrupt into the machine external interrupt line, and
// then ticks the CPU.
package machine

import (
	"fmt"
	"io"

	"github.com/sirupsen/logrus"

	"github.com/sarchlab/rv32vm/bus"
	"github.com/sarchlab/rv32vm/emu"
)

// TerminationPC is the sentinel address that ends a run.
const TerminationPC uint32 = 0x10000000

// Stats holds run statistics for the machine.
type Stats struct {
	// Ticks is the total number of machine ticks.
	Ticks uint64
	// Exceptions is the number of synchronous exceptions raised.
	Exceptions uint64
	// Interrupts is the number of interrupts taken.
	Interrupts uint64
}

// Machine is a CPU attached to a bus.
type Machine struct {
	cpu    *emu.CPU
	bus    *bus.Bus
	logger logrus.FieldLogger

	cpuOpts []emu.CPUOption

	exited   bool
	exitCode int32
	stats    Stats
}

// Option is a functional option for configuring the Machine.
type Option func(*Machine)

// WithLogger sets the logger shared by the machine, its bus and its CPU.
func WithLogger(l logrus.FieldLogger) Option {
	return func(m *Machine) {
		m.logger = l
	}
}

// WithCPUOptions passes options through to the CPU.
func WithCPUOptions(opts ...emu.CPUOption) Option {
	return func(m *Machine) {
		m.cpuOpts = append(m.cpuOpts, opts...)
	}
}

// WithPCTrail records the PC of every tick.
func WithPCTrail() Option {
	return WithCPUOptions(emu.WithPCTrail())
}

// WithSyscalls services ECALL with the read, write and exit handler over
// the given streams.
func WithSyscalls(stdin io.Reader, stdout, stderr io.Writer) Option {
	return WithCPUOptions(emu.WithSyscalls(stdin, stdout, stderr))
}

// New creates a machine with an empty bus.
func New(opts ...Option) *Machine {
	m := &Machine{logger: logrus.StandardLogger()}

	for _, opt := range opts {
		opt(m)
	}

	m.bus = bus.New(bus.WithLogger(m.logger))
	cpuOpts := append([]emu.CPUOption{emu.WithLogger(m.logger)}, m.cpuOpts...)
	m.cpu = emu.NewCPU(m.bus, cpuOpts...)

	return m
}

// CPU returns the processor.
func (m *Machine) CPU() *emu.CPU {
	return m.cpu
}

// Bus returns the system bus.
func (m *Machine) Bus() *bus.Bus {
	return m.bus
}

// Attach maps a device onto the bus. See bus.Bus.Attach.
func (m *Machine) Attach(name string, dev bus.Device, start uint32, width uint8) error {
	if err := m.bus.Attach(name, dev, start, width); err != nil {
		return fmt.Errorf("attach %s: %w", name, err)
	}

	m.logger.WithFields(logrus.Fields{
		"device": name,
		"start":  fmt.Sprintf("0x%08X", start),
		"width":  width,
	}).Debug("device attached")

	return nil
}

// SetPC sets the program counter.
func (m *Machine) SetPC(pc uint32) {
	m.cpu.RegFile().PC = pc
}

// PC returns the program counter.
func (m *Machine) PC() uint32 {
	return m.cpu.RegFile().PC
}

// Halted returns true if the program called exit.
func (m *Machine) Halted() bool {
	return m.exited
}

// ExitCode returns the exit status if the machine has halted.
func (m *Machine) ExitCode() int32 {
	return m.exitCode
}

// Stats returns run statistics.
func (m *Machine) Stats() Stats {
	return m.stats
}

// PCTrail returns the recorded PCs when WithPCTrail is set.
func (m *Machine) PCTrail() []uint32 {
	return m.cpu.PCTrail()
}

// Reset resets the CPU and clears the exit state. Device state is kept.
func (m *Machine) Reset() {
	m.cpu.Reset()
	m.exited = false
	m.exitCode = 0
}

// Tick advances the machine by one cycle.
func (m *Machine) Tick() emu.StepResult {
	irq := m.bus.TickDevices()
	m.cpu.CSR().SetExternalInterrupt(irq)

	res := m.cpu.Tick()
	m.stats.Ticks++

	if res.Exception != nil {
		m.stats.Exceptions++
	}
	if res.Interrupt != 0 {
		m.stats.Interrupts++
	}

	if res.Exited {
		m.exited = true
		m.exitCode = res.ExitCode
		m.cpu.RegFile().PC = TerminationPC

		m.logger.WithField("code", res.ExitCode).Debug("program exited")
	}

	return res
}

// Run ticks the machine until the PC reaches TerminationPC, limit ticks
// have run, the CPU executes WFI, or, with die set, an exception is raised.
// A limit of zero is unbounded. It returns the number of ticks executed.
//
// Reaching TerminationPC returns ErrTerminated. Running out of ticks returns
// a *CyclesLimitExceededError and an exception under die returns an
// *ExceptionError. WFI returns a nil error.
func (m *Machine) Run(limit uint32, die bool) (uint32, error) {
	m.cpu.SetDieOnException(die)

	var cycles uint32
	for {
		pc := m.cpu.RegFile().PC
		if pc == TerminationPC {
			return cycles, ErrTerminated
		}

		if limit != 0 && cycles >= limit {
			return cycles, &CyclesLimitExceededError{Limit: limit, LastPC: pc}
		}

		res := m.Tick()
		cycles++

		if die && res.Exception != nil {
			return cycles, &ExceptionError{
				PC:    res.Exception.PC,
				Cause: res.Exception.Cause,
				TVal:  res.Exception.TVal,
			}
		}

		if res.WFI {
			return cycles, nil
		}
	}
}
