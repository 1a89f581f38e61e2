package emu

import (
	"errors"
	"io"

	"github.com/sarchlab/rv32vm/insts"
)

// RISC-V Linux syscall numbers.
const (
	SyscallRead  uint32 = 63 // read(fd, buf, count)
	SyscallWrite uint32 = 64 // write(fd, buf, count)
	SyscallExit  uint32 = 93 // exit(status)
)

// Errno is a Linux error number. Failed syscalls return -errno in a0.
type Errno int32

// Linux error codes.
const (
	EIO    Errno = 5
	EBADF  Errno = 9
	EFAULT Errno = 14
	ENOSYS Errno = 38
)

// transferChunk bounds the host buffer used to move guest data.
const transferChunk = 512

// SyscallResult represents the result of a syscall execution.
type SyscallResult struct {
	// Exited is true if the syscall caused program termination.
	Exited bool

	// ExitCode is the exit status if Exited is true.
	ExitCode int32
}

// SyscallHandler services ECALL. Without a handler the CPU raises an
// environment-call exception instead.
type SyscallHandler interface {
	// Handle executes the syscall selected by a7 with arguments in a0-a2
	// and leaves the return value in a0.
	Handle() SyscallResult
}

// errGuestFault marks a guest buffer that runs into unmapped bus space.
var errGuestFault = errors.New("guest buffer fault")

// guestBuffer is the byte range [addr, addr+size) of the bus.
type guestBuffer struct {
	addr uint32
	size uint32
}

func newGuestBuffer(addr, size uint32) (guestBuffer, Errno) {
	if uint64(addr)+uint64(size) > 1<<32 {
		return guestBuffer{}, EFAULT
	}
	return guestBuffer{addr: addr, size: size}, 0
}

type syscallFunc func(h *DefaultSyscallHandler, fd uint32, buf guestBuffer) (uint32, Errno)

var streamSyscalls = map[uint32]syscallFunc{
	SyscallRead:  (*DefaultSyscallHandler).read,
	SyscallWrite: (*DefaultSyscallHandler).write,
}

// DefaultSyscallHandler implements read on stdin and write on stdout and
// stderr, moving bytes through the bus, plus exit.
type DefaultSyscallHandler struct {
	regFile *RegFile
	bus     Bus
	stdin   io.Reader
	stdout  io.Writer
	stderr  io.Writer
}

// NewDefaultSyscallHandler creates a default syscall handler. Any stream
// may be nil.
func NewDefaultSyscallHandler(
	regFile *RegFile,
	bus Bus,
	stdin io.Reader,
	stdout, stderr io.Writer,
) *DefaultSyscallHandler {
	return &DefaultSyscallHandler{
		regFile: regFile,
		bus:     bus,
		stdin:   stdin,
		stdout:  stdout,
		stderr:  stderr,
	}
}

// Handle executes the syscall indicated by the register file state.
func (h *DefaultSyscallHandler) Handle() SyscallResult {
	nr := h.regFile.ReadReg(insts.RegA7)
	a0 := h.regFile.ReadReg(insts.RegA0)

	if nr == SyscallExit {
		return SyscallResult{Exited: true, ExitCode: int32(a0)}
	}

	ret, errno := uint32(0), ENOSYS
	if fn, ok := streamSyscalls[nr]; ok {
		var buf guestBuffer
		buf, errno = newGuestBuffer(
			h.regFile.ReadReg(insts.RegA1), h.regFile.ReadReg(insts.RegA2))
		if errno == 0 {
			ret, errno = fn(h, a0, buf)
		}
	}

	if errno != 0 {
		ret = uint32(-int32(errno))
	}
	h.regFile.WriteReg(insts.RegA0, ret)

	return SyscallResult{}
}

// read performs at most one host read of up to transferChunk bytes.
func (h *DefaultSyscallHandler) read(fd uint32, buf guestBuffer) (uint32, Errno) {
	if fd != 0 {
		return 0, EBADF
	}
	if h.stdin == nil || buf.size == 0 {
		return 0, 0
	}

	// Fail before consuming input the guest cannot receive.
	if _, err := h.bus.ReadWord(buf.addr &^ 0x3); err != nil {
		return 0, EFAULT
	}

	chunk := make([]byte, min(buf.size, transferChunk))
	n, err := h.stdin.Read(chunk)
	if n == 0 {
		if err != nil && !errors.Is(err, io.EOF) {
			return 0, EIO
		}
		return 0, 0
	}

	copied, err := h.copyIn(buf.addr, chunk[:n])
	if err != nil && copied == 0 {
		return 0, EFAULT
	}

	return copied, 0
}

// write streams the buffer to the descriptor. A fault part way through
// returns the short count already written.
func (h *DefaultSyscallHandler) write(fd uint32, buf guestBuffer) (uint32, Errno) {
	var w io.Writer
	switch fd {
	case 1:
		w = h.stdout
	case 2:
		w = h.stderr
	}
	if w == nil {
		return 0, EBADF
	}

	written, err := h.copyOut(w, buf)
	switch {
	case err == nil, written > 0:
		return written, 0
	case errors.Is(err, errGuestFault):
		return 0, EFAULT
	default:
		return 0, EIO
	}
}

func (h *DefaultSyscallHandler) copyOut(w io.Writer, buf guestBuffer) (uint32, error) {
	chunk := make([]byte, 0, min(buf.size, transferChunk))
	var written uint32

	for written < buf.size {
		chunk = chunk[:0]
		var fault error
		for len(chunk) < cap(chunk) && written+uint32(len(chunk)) < buf.size {
			b, err := h.loadByte(buf.addr + written + uint32(len(chunk)))
			if err != nil {
				fault = err
				break
			}
			chunk = append(chunk, b)
		}

		n, err := w.Write(chunk)
		written += uint32(n)
		if err != nil {
			return written, err
		}
		if fault != nil {
			return written, fault
		}
	}

	return written, nil
}

func (h *DefaultSyscallHandler) copyIn(addr uint32, data []byte) (uint32, error) {
	for i, b := range data {
		if err := h.storeByte(addr+uint32(i), b); err != nil {
			return uint32(i), err
		}
	}
	return uint32(len(data)), nil
}

func (h *DefaultSyscallHandler) loadByte(addr uint32) (byte, error) {
	word, err := h.bus.ReadWord(addr &^ 0x3)
	if err != nil {
		return 0, errGuestFault
	}
	return byte(word >> ((addr & 0x3) * 8)), nil
}

func (h *DefaultSyscallHandler) storeByte(addr uint32, b byte) error {
	aligned := addr &^ 0x3
	word, err := h.bus.ReadWord(aligned)
	if err != nil {
		return errGuestFault
	}
	shift := (addr & 0x3) * 8
	word = (word &^ (0xFF << shift)) | uint32(b)<<shift
	if h.bus.WriteWord(aligned, word) != nil {
		return errGuestFault
	}
	return nil
}
