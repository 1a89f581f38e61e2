package bus

import (
	"errors"
	"io"

	"github.com/sirupsen/logrus"
)

// EndOfInput is read from an InputDevice that has no more bytes.
const EndOfInput uint32 = 0xFFFFFFFF

// OutputDevice writes the low byte of every stored word to a writer. Reads
// return 0.
type OutputDevice struct {
	w      io.Writer
	logger logrus.FieldLogger
}

// NewOutputDevice creates an output device writing to w.
func NewOutputDevice(w io.Writer) *OutputDevice {
	return &OutputDevice{w: w, logger: logrus.StandardLogger()}
}

// ReadWord implements Device.
func (d *OutputDevice) ReadWord(uint32) uint32 {
	return 0
}

// WriteWord implements Device.
func (d *OutputDevice) WriteWord(_ uint32, value uint32) {
	if _, err := d.w.Write([]byte{byte(value)}); err != nil {
		d.logger.WithError(err).Warn("output device write failed")
	}
}

// IsInterrupting implements Device.
func (d *OutputDevice) IsInterrupting() bool {
	return false
}

// Tick implements Device.
func (d *OutputDevice) Tick() {}

// InputDevice delivers bytes one per read. Bytes come from a queue filled by
// Feed, then from an optional reader. It requests an interrupt while queued
// bytes are waiting.
type InputDevice struct {
	queue  []byte
	r      io.Reader
	eof    bool
	logger logrus.FieldLogger
}

// NewInputDevice creates an input device. r may be nil.
func NewInputDevice(r io.Reader) *InputDevice {
	return &InputDevice{r: r, logger: logrus.StandardLogger()}
}

// Feed queues bytes for the program to read.
func (d *InputDevice) Feed(data ...byte) {
	d.queue = append(d.queue, data...)
}

// Pending returns the number of queued bytes.
func (d *InputDevice) Pending() int {
	return len(d.queue)
}

// ReadWord implements Device. It pops one byte, or returns EndOfInput.
func (d *InputDevice) ReadWord(uint32) uint32 {
	if len(d.queue) > 0 {
		b := d.queue[0]
		d.queue = d.queue[1:]
		return uint32(b)
	}

	if d.r == nil || d.eof {
		return EndOfInput
	}

	var buf [1]byte
	n, err := io.ReadFull(d.r, buf[:])
	if n == 1 {
		return uint32(buf[0])
	}
	if err != nil && !errors.Is(err, io.EOF) {
		d.logger.WithError(err).Warn("input device read failed")
	}
	d.eof = true

	return EndOfInput
}

// WriteWord implements Device. Writes are ignored.
func (d *InputDevice) WriteWord(uint32, uint32) {}

// IsInterrupting implements Device.
func (d *InputDevice) IsInterrupting() bool {
	return len(d.queue) > 0
}

// Tick implements Device.
func (d *InputDevice) Tick() {}
