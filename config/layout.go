package config

import (
	"fmt"
	"io"

	"github.com/sirupsen/logrus"

	"github.com/sarchlab/rv32vm/bus"
	"github.com/sarchlab/rv32vm/emu"
	"github.com/sarchlab/rv32vm/machine"
)

// Device names used on the bus.
const (
	MemoryDevice = "memory"
	OutputDevice = "output"
	InputDevice  = "input"
)

// streamWidth is the window width of the stream devices: one word.
const streamWidth = 2

// Layout is a Config with every expression evaluated.
type Layout struct {
	MemoryStart uint32
	MemoryWidth uint8
	// Watch is nil when no watch is configured.
	Watch *uint32
	// OutputStart and InputStart are nil for detached devices.
	OutputStart *uint32
	InputStart  *uint32
	TrapVector  uint32
}

// Resolve evaluates every address field.
func (c *Config) Resolve() (*Layout, error) {
	pred, err := c.predeclared()
	if err != nil {
		return nil, err
	}

	field := func(name, expr string) (*uint32, error) {
		if expr == "" {
			return nil, nil
		}
		v, err := evaluate(expr, pred)
		if err != nil {
			return nil, &ErrField{Field: name, Err: err}
		}
		return &v, nil
	}

	layout := &Layout{MemoryWidth: c.Memory.Width}

	start, err := field("memory.start", c.Memory.Start)
	if err != nil {
		return nil, err
	}
	if start != nil {
		layout.MemoryStart = *start
	}

	if layout.Watch, err = field("memory.watch", c.Memory.Watch); err != nil {
		return nil, err
	}
	if layout.OutputStart, err = field("output_start", c.OutputStart); err != nil {
		return nil, err
	}
	if layout.InputStart, err = field("input_start", c.InputStart); err != nil {
		return nil, err
	}

	vector, err := field("trap_vector", c.TrapVector)
	if err != nil {
		return nil, err
	}
	if vector != nil {
		layout.TrapVector = *vector
	} else {
		layout.TrapVector = emu.MTVecReset
	}

	return layout, nil
}

// Host connects the machine to the outside world. Nil streams are allowed.
type Host struct {
	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer
	Logger logrus.FieldLogger
}

// Build creates a machine with the configured devices attached and the trap
// vector set. The output device is only attached when Stdout is set.
func (c *Config) Build(host Host, opts ...machine.Option) (*machine.Machine, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}

	layout, err := c.Resolve()
	if err != nil {
		return nil, err
	}

	logger := host.Logger
	if logger == nil {
		logger = logrus.StandardLogger()
	}

	memOpts := []bus.MemoryOption{bus.WithMemoryLogger(logger)}
	if layout.Watch != nil {
		offset := uint64(*layout.Watch) - uint64(layout.MemoryStart)
		if *layout.Watch < layout.MemoryStart || offset >= uint64(1)<<layout.MemoryWidth {
			return nil, fmt.Errorf("memory watch 0x%08X is outside memory", *layout.Watch)
		}
		memOpts = append(memOpts, bus.WithWriteWatch(uint32(offset)))
	}

	opts = append([]machine.Option{
		machine.WithLogger(logger),
		machine.WithCPUOptions(emu.WithTrapVector(layout.TrapVector)),
	}, opts...)
	if c.Syscalls {
		opts = append(opts, machine.WithSyscalls(host.Stdin, host.Stdout, host.Stderr))
	}

	m := machine.New(opts...)

	memory := bus.NewMemory(layout.MemoryWidth, memOpts...)
	var memDev bus.Device = memory
	if c.Cache.Enabled {
		cached, err := bus.NewCachedMemory(c.cacheGeometry(), memory)
		if err != nil {
			return nil, err
		}
		memDev = cached
	}

	if err := m.Attach(MemoryDevice, memDev, layout.MemoryStart, layout.MemoryWidth); err != nil {
		return nil, err
	}

	if layout.OutputStart != nil && host.Stdout != nil {
		dev := bus.NewOutputDevice(host.Stdout)
		if err := m.Attach(OutputDevice, dev, *layout.OutputStart, streamWidth); err != nil {
			return nil, err
		}
	}

	if layout.InputStart != nil {
		dev := bus.NewInputDevice(host.Stdin)
		if err := m.Attach(InputDevice, dev, *layout.InputStart, streamWidth); err != nil {
			return nil, err
		}
	}

	return m, nil
}
