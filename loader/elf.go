// Package loader reads RV32 programs from ELF32 executables and raw binary
// images and installs them onto a bus.
package loader

import (
	"bytes"
	"debug/elf"
	"errors"
	"fmt"
	"io"
	"os"
)

// SegmentFlags is the access a segment is mapped with.
type SegmentFlags uint32

// Segment access bits.
const (
	SegmentFlagExecute SegmentFlags = 1 << iota
	SegmentFlagWrite
	SegmentFlagRead
)

var progFlagBits = [...]struct {
	prog elf.ProgFlag
	flag SegmentFlags
}{
	{elf.PF_X, SegmentFlagExecute},
	{elf.PF_W, SegmentFlagWrite},
	{elf.PF_R, SegmentFlagRead},
}

// Loader errors.
var (
	ErrEmptyProgram = errors.New("empty program file")
	ErrNotRV32      = errors.New("not an RV32 executable")
	ErrSegmentRange = errors.New("segment outside the 32-bit address space")
)

// Segment is one contiguous range of the guest address space.
type Segment struct {
	VirtAddr uint32
	// Data is the initialized prefix. The remaining MemSize-len(Data)
	// bytes are zero.
	Data    []byte
	MemSize uint32
	Flags   SegmentFlags
}

// Program is an entry point plus the segments to install.
type Program struct {
	EntryPoint uint32
	Segments   []Segment
}

// Target is the word-addressed space a program is installed into.
type Target interface {
	ReadWord(addr uint32) (uint32, error)
	WriteWord(addr uint32, value uint32) error
}

// Load reads the program at path. Files starting with the ELF magic are
// parsed as RV32 ELF executables; anything else is a raw image at address 0.
func Load(path string) (*Program, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open program file: %w", err)
	}

	if len(data) == 0 {
		return nil, fmt.Errorf("%s: %w", path, ErrEmptyProgram)
	}

	if bytes.HasPrefix(data, []byte(elf.ELFMAG)) {
		return LoadELF(bytes.NewReader(data))
	}

	return Raw(data, 0), nil
}

// Raw wraps a flat image loaded at base and entered at base.
func Raw(data []byte, base uint32) *Program {
	return &Program{
		EntryPoint: base,
		Segments: []Segment{{
			VirtAddr: base,
			Data:     data,
			MemSize:  uint32(len(data)),
			Flags:    SegmentFlagRead | SegmentFlagWrite | SegmentFlagExecute,
		}},
	}
}

// LoadELF parses a 32-bit little-endian RISC-V ELF executable and keeps its
// PT_LOAD segments.
func LoadELF(r io.ReaderAt) (*Program, error) {
	f, err := elf.NewFile(r)
	if err != nil {
		return nil, fmt.Errorf("failed to parse ELF file: %w", err)
	}
	defer func() { _ = f.Close() }()

	if err := checkHeader(&f.FileHeader); err != nil {
		return nil, err
	}

	prog := &Program{EntryPoint: uint32(f.Entry)}
	for _, phdr := range f.Progs {
		if phdr.Type != elf.PT_LOAD {
			continue
		}

		seg, err := readSegment(phdr)
		if err != nil {
			return nil, err
		}
		prog.Segments = append(prog.Segments, seg)
	}

	return prog, nil
}

func checkHeader(h *elf.FileHeader) error {
	switch {
	case h.Class != elf.ELFCLASS32:
		return fmt.Errorf("%w: not a 32-bit ELF file", ErrNotRV32)
	case h.Data != elf.ELFDATA2LSB:
		return fmt.Errorf("%w: not a little-endian ELF file", ErrNotRV32)
	case h.Machine != elf.EM_RISCV:
		return fmt.Errorf("%w: not a RISC-V ELF file (machine type: %v)", ErrNotRV32, h.Machine)
	}
	return nil
}

func readSegment(phdr *elf.Prog) (Segment, error) {
	if phdr.Filesz > phdr.Memsz || phdr.Vaddr+phdr.Memsz > 1<<32 {
		return Segment{}, fmt.Errorf("%w: 0x%x bytes at 0x%x (0x%x in file)",
			ErrSegmentRange, phdr.Memsz, phdr.Vaddr, phdr.Filesz)
	}

	data := make([]byte, phdr.Filesz)
	if _, err := io.ReadFull(phdr.Open(), data); err != nil {
		return Segment{}, fmt.Errorf("read segment at 0x%x: %w", phdr.Vaddr, err)
	}

	var flags SegmentFlags
	for _, bit := range progFlagBits {
		if phdr.Flags&bit.prog != 0 {
			flags |= bit.flag
		}
	}

	return Segment{
		VirtAddr: uint32(phdr.Vaddr),
		Data:     data,
		MemSize:  uint32(phdr.Memsz),
		Flags:    flags,
	}, nil
}

// Install copies every segment into t, zero-filling the BSS tail. Partial
// words at segment edges are merged with the existing contents.
func (p *Program) Install(t Target) error {
	for _, seg := range p.Segments {
		image := make([]byte, max(seg.MemSize, uint32(len(seg.Data))))
		copy(image, seg.Data)

		if err := writeBytes(t, seg.VirtAddr, image); err != nil {
			return fmt.Errorf("install segment at 0x%08X: %w", seg.VirtAddr, err)
		}
	}

	return nil
}

func writeBytes(t Target, addr uint32, data []byte) error {
	start := uint64(addr)
	end := start + uint64(len(data))

	for w := start &^ 0x3; w < end; w += 4 {
		var word uint32
		if w < start || w+4 > end {
			v, err := t.ReadWord(uint32(w))
			if err != nil {
				return err
			}
			word = v
		}

		for b := uint64(0); b < 4; b++ {
			a := w + b
			if a < start || a >= end {
				continue
			}
			shift := 8 * b
			word = word&^(0xFF<<shift) | uint32(data[a-start])<<shift
		}

		if err := t.WriteWord(uint32(w), word); err != nil {
			return err
		}
	}

	return nil
}
