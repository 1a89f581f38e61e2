package bus

import (
	"encoding/binary"
	"fmt"

	"github.com/sirupsen/logrus"
)

// MaxMemoryWidth is the widest RAM window, 64 MiB. Memory is backed by a
// dense word array.
const MaxMemoryWidth uint8 = 26

// Memory is word-addressed RAM sized to its bus window.
type Memory struct {
	words  []uint32
	watch  *uint32
	logger logrus.FieldLogger
}

// MemoryOption configures a Memory.
type MemoryOption func(*Memory)

// WithWriteWatch logs every write to the given window offset.
func WithWriteWatch(offset uint32) MemoryOption {
	return func(m *Memory) {
		m.watch = &offset
	}
}

// WithMemoryLogger sets the logger for watch reports.
func WithMemoryLogger(l logrus.FieldLogger) MemoryOption {
	return func(m *Memory) {
		m.logger = l
	}
}

// NewMemory creates a zeroed memory of 2^width bytes. Width is clamped to
// [2, MaxMemoryWidth].
func NewMemory(width uint8, opts ...MemoryOption) *Memory {
	width = max(2, min(width, MaxMemoryWidth))

	m := &Memory{
		words:  make([]uint32, (uint64(1)<<width)/4),
		logger: logrus.StandardLogger(),
	}
	for _, opt := range opts {
		opt(m)
	}

	return m
}

// Size returns the memory size in bytes.
func (m *Memory) Size() uint32 {
	return uint32(len(m.words) * 4)
}

func (m *Memory) index(offset uint32) int {
	return int(offset/4) % len(m.words)
}

// ReadWord implements Device.
func (m *Memory) ReadWord(offset uint32) uint32 {
	return m.words[m.index(offset)]
}

// WriteWord implements Device.
func (m *Memory) WriteWord(offset uint32, value uint32) {
	i := m.index(offset)
	m.observe(offset, m.words[i], value)
	m.words[i] = value
}

// observe reports a store to the watched offset. Caches in front of the
// memory call it when the store happens, not when the line is written back.
func (m *Memory) observe(offset, old, value uint32) {
	if m.watch == nil || *m.watch != offset {
		return
	}

	m.logger.WithFields(logrus.Fields{
		"addr": fmt.Sprintf("0x%X", offset),
		"old":  old,
		"new":  value,
	}).Info("memory watch")
}

// IsInterrupting implements Device. Memory never interrupts.
func (m *Memory) IsInterrupting() bool {
	return false
}

// Tick implements Device.
func (m *Memory) Tick() {}

// Read8 reads one byte.
func (m *Memory) Read8(offset uint32) uint8 {
	return uint8(m.ReadWord(offset&^0x3) >> ((offset & 0x3) * 8))
}

// Write8 writes one byte.
func (m *Memory) Write8(offset uint32, value uint8) {
	shift := (offset & 0x3) * 8
	i := m.index(offset)
	m.words[i] = (m.words[i] &^ (0xFF << shift)) | uint32(value)<<shift
}

// Load copies data to the start of memory as little-endian words. A trailing
// partial word is zero padded.
func (m *Memory) Load(data []byte) error {
	return m.LoadAt(0, data)
}

// LoadAt copies data to memory starting at offset.
func (m *Memory) LoadAt(offset uint32, data []byte) error {
	if uint64(offset)+uint64(len(data)) > uint64(m.Size()) {
		return fmt.Errorf("image of %d bytes at 0x%X does not fit in %d bytes of memory",
			len(data), offset, m.Size())
	}

	if offset&0x3 == 0 {
		n := len(data) / 4
		for i := 0; i < n; i++ {
			m.words[int(offset/4)+i] = binary.LittleEndian.Uint32(data[i*4:])
		}
		data = data[n*4:]
		offset += uint32(n * 4)
	}

	for i, b := range data {
		m.Write8(offset+uint32(i), b)
	}

	return nil
}
