// Package bus provides the address-decoded system bus and its devices.
//
// Each device owns a disjoint, power-of-two sized, naturally aligned window.
// Devices see word offsets relative to the start of their window.
package bus

import (
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/sarchlab/rv32vm/translate"
)

var f = translate.From

var (
	// ErrBusFault is returned for accesses outside every window or not
	// word aligned.
	ErrBusFault = errors.New(f("bus fault"))

	// Attach errors.
	ErrWindowWidth     = errors.New(f("window width out of range"))
	ErrWindowAlignment = errors.New(f("window start not aligned to its size"))
	ErrWindowOverlap   = errors.New(f("window overlaps an attached device"))
	ErrDuplicateDevice = errors.New(f("device name already attached"))
)

// Device is a peripheral reachable through the bus.
type Device interface {
	// ReadWord reads the word at a word-aligned offset within the window.
	ReadWord(offset uint32) uint32
	// WriteWord writes the word at a word-aligned offset within the window.
	WriteWord(offset uint32, value uint32)
	// IsInterrupting reports whether the device requests an interrupt.
	IsInterrupting() bool
	// Tick advances the device by one machine cycle.
	Tick()
}

// Binding describes one attached device.
type Binding struct {
	Name   string
	Device Device
	Start  uint32
	Width  uint8
}

// Size returns the window size in bytes.
func (b Binding) Size() uint64 {
	return uint64(1) << b.Width
}

func (b Binding) contains(addr uint32) bool {
	return addr >= b.Start && uint64(addr) < uint64(b.Start)+b.Size()
}

// Bus routes word accesses to attached devices.
type Bus struct {
	bindings []Binding
	logger   logrus.FieldLogger
}

// Option configures a Bus.
type Option func(*Bus)

// WithLogger sets the logger used for fault reports.
func WithLogger(l logrus.FieldLogger) Option {
	return func(b *Bus) {
		b.logger = l
	}
}

// New creates an empty bus.
func New(opts ...Option) *Bus {
	b := &Bus{logger: logrus.StandardLogger()}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Attach maps dev into a window of 2^width bytes starting at start. Width
// must be between 2 and 32, start must be aligned to the window size, and
// the window must not overlap an existing one.
func (b *Bus) Attach(name string, dev Device, start uint32, width uint8) error {
	if width < 2 || width > 32 {
		return fmt.Errorf("%w: %s width %d", ErrWindowWidth, name, width)
	}

	nb := Binding{Name: name, Device: dev, Start: start, Width: width}
	if uint64(start)&(nb.Size()-1) != 0 {
		return fmt.Errorf("%w: %s at 0x%08X", ErrWindowAlignment, name, start)
	}

	for _, other := range b.bindings {
		if other.Name == name {
			return fmt.Errorf("%w: %s", ErrDuplicateDevice, name)
		}

		aStart, aEnd := uint64(start), uint64(start)+nb.Size()
		bStart, bEnd := uint64(other.Start), uint64(other.Start)+other.Size()
		if aStart < bEnd && bStart < aEnd {
			return fmt.Errorf("%w: %s and %s", ErrWindowOverlap, name, other.Name)
		}
	}

	b.bindings = append(b.bindings, nb)

	return nil
}

// Bindings returns the attached devices in attach order.
func (b *Bus) Bindings() []Binding {
	out := make([]Binding, len(b.bindings))
	copy(out, b.bindings)
	return out
}

// Device returns the device attached under name.
func (b *Bus) Device(name string) (Device, bool) {
	for _, binding := range b.bindings {
		if binding.Name == name {
			return binding.Device, true
		}
	}
	return nil, false
}

func (b *Bus) selectBinding(addr uint32) (Binding, bool) {
	if addr&0x3 != 0 {
		return Binding{}, false
	}
	for _, binding := range b.bindings {
		if binding.contains(addr) {
			return binding, true
		}
	}
	return Binding{}, false
}

// ReadWord reads the word at addr.
func (b *Bus) ReadWord(addr uint32) (uint32, error) {
	binding, ok := b.selectBinding(addr)
	if !ok {
		b.logger.WithField("addr", fmt.Sprintf("0x%08X", addr)).Debug("bus read fault")
		return 0, fmt.Errorf("%w: read 0x%08X", ErrBusFault, addr)
	}

	return binding.Device.ReadWord(addr - binding.Start), nil
}

// WriteWord writes value to addr.
func (b *Bus) WriteWord(addr uint32, value uint32) error {
	binding, ok := b.selectBinding(addr)
	if !ok {
		b.logger.WithField("addr", fmt.Sprintf("0x%08X", addr)).Debug("bus write fault")
		return fmt.Errorf("%w: write 0x%08X", ErrBusFault, addr)
	}

	binding.Device.WriteWord(addr-binding.Start, value)

	return nil
}

// IsInterrupting is the OR of every device's interrupt request.
func (b *Bus) IsInterrupting() bool {
	for _, binding := range b.bindings {
		if binding.Device.IsInterrupting() {
			return true
		}
	}
	return false
}

// TickDevices ticks every device in attach order and returns the aggregate
// interrupt request observed after the ticks.
func (b *Bus) TickDevices() bool {
	for _, binding := range b.bindings {
		binding.Device.Tick()
	}
	return b.IsInterrupting()
}
