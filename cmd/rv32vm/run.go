package main

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"github.com/sirupsen/logrus"

	"github.com/sarchlab/rv32vm/config"
	"github.com/sarchlab/rv32vm/insts"
	"github.com/sarchlab/rv32vm/loader"
	"github.com/sarchlab/rv32vm/machine"
)

// Exit codes for run outcomes other than a program exit. They sit above
// the statuses guest programs use, and each is announced on stderr with
// its failure class.
const (
	exitTickLimit = 124
	exitUsage     = 125
	exitException = 126
)

// trailLength is the number of recent PCs shown after a failed run.
const trailLength = 16

// options holds the command line after parsing. Nil pointers leave the
// config value in place.
type options struct {
	programPath string
	configPath  string
	watch       string
	list        bool
	verbose     bool

	tickLimit *uint32
	die       *bool
	syscalls  *bool

	logger logrus.FieldLogger
}

func loadConfig(opts options) (*config.Config, error) {
	cfg := config.Default()
	if opts.configPath != "" {
		var err error
		cfg, err = config.LoadConfig(opts.configPath)
		if err != nil {
			return nil, err
		}
	}

	if opts.watch != "" {
		cfg.Memory.Watch = opts.watch
	}
	if opts.tickLimit != nil {
		cfg.TickLimit = *opts.tickLimit
	}
	if opts.die != nil {
		cfg.DieOnException = *opts.die
	}
	if opts.syscalls != nil {
		cfg.Syscalls = *opts.syscalls
	}

	return cfg, nil
}

// run loads and runs or lists the program and returns the process exit
// code.
func run(opts options, stdin io.Reader, stdout, stderr io.Writer) int {
	cfg, err := loadConfig(opts)
	if err != nil {
		return fail(stderr, exitUsage, "load config", err)
	}

	prog, err := loader.Load(opts.programPath)
	if err != nil {
		return fail(stderr, exitUsage, "load program", err)
	}

	if opts.verbose {
		fmt.Fprintf(stderr, "Loaded: %s\n", opts.programPath)
		fmt.Fprintf(stderr, "Entry point: 0x%08X\n", prog.EntryPoint)
		fmt.Fprintf(stderr, "Segments: %d\n", len(prog.Segments))
	}

	if opts.list {
		return listProgram(prog, stdout, stderr)
	}

	var machineOpts []machine.Option
	if opts.verbose {
		machineOpts = append(machineOpts, machine.WithPCTrail())
	}

	m, err := cfg.Build(config.Host{
		Stdin:  stdin,
		Stdout: stdout,
		Stderr: stderr,
		Logger: opts.logger,
	}, machineOpts...)
	if err != nil {
		return fail(stderr, exitUsage, "build machine", err)
	}

	if err := prog.Install(m.Bus()); err != nil {
		return fail(stderr, exitUsage, "install program", err)
	}
	m.SetPC(prog.EntryPoint)

	cycles, err := m.Run(cfg.TickLimit, cfg.DieOnException)

	if opts.verbose {
		stats := m.Stats()
		fmt.Fprintf(stderr, "\nProgram: %s\n", opts.programPath)
		fmt.Fprintf(stderr, "Cycles: %d\n", cycles)
		fmt.Fprintf(stderr, "Exceptions: %d\n", stats.Exceptions)
		fmt.Fprintf(stderr, "Interrupts: %d\n", stats.Interrupts)
	}

	var (
		limitErr *machine.CyclesLimitExceededError
		excErr   *machine.ExceptionError
	)

	switch {
	case err == nil:
		if opts.verbose {
			fmt.Fprintf(stderr, "Waiting for interrupt at 0x%08X\n", m.PC())
		}
		return 0

	case errors.Is(err, machine.ErrTerminated):
		return exitStatus(m.ExitCode(), stderr)

	case errors.As(err, &limitErr):
		dumpState(m, stderr)
		return fail(stderr, exitTickLimit, "tick limit", err)

	case errors.As(err, &excErr):
		dumpState(m, stderr)
		return fail(stderr, exitException, "exception", err)
	}

	return fail(stderr, exitUsage, "run", err)
}

// fail reports a machine failure with its class and returns code.
func fail(stderr io.Writer, code int, class string, err error) int {
	fmt.Fprintf(stderr, "rv32vm: %s: %v\n", class, err)
	return code
}

// exitStatus truncates a guest exit code to a process status. Statuses
// that collide with the machine failure codes are announced on stderr.
func exitStatus(code int32, stderr io.Writer) int {
	status := int(uint8(code))
	if status >= exitTickLimit && status <= exitException {
		fmt.Fprintf(stderr, "rv32vm: program exit status %d\n", status)
	}
	return status
}

func listProgram(prog *loader.Program, stdout, stderr io.Writer) int {
	decoder := insts.NewDecoder(nil)

	for _, seg := range prog.Segments {
		if seg.Flags&loader.SegmentFlagExecute == 0 {
			continue
		}

		err := insts.WriteListingAt(stdout, bytes.NewReader(seg.Data), seg.VirtAddr, decoder)
		if err != nil {
			return fail(stderr, exitUsage, "list program", err)
		}
	}

	return 0
}

// dumpState writes the registers and trap CSRs, then the most recent PCs
// when a trail was recorded.
func dumpState(m *machine.Machine, w io.Writer) {
	cpu := m.CPU()
	regs := cpu.RegFile()

	fmt.Fprintf(w, "pc   0x%08X  level %s  word 0x%08X\n", regs.PC, cpu.Level(), cpu.LastWord())
	for i := uint32(0); i < 32; i += 4 {
		for j := i; j < i+4; j++ {
			fmt.Fprintf(w, "%-4s 0x%08X  ", insts.ABIName(j), regs.ReadReg(j))
		}
		fmt.Fprintln(w)
	}

	csr := cpu.CSR()
	fmt.Fprintf(w, "mstatus 0x%08X  mcause 0x%08X  mepc 0x%08X  mtval 0x%08X\n",
		csr.Status, csr.Cause, csr.EPC, csr.TVal)

	trail := m.PCTrail()
	if len(trail) == 0 {
		return
	}
	if len(trail) > trailLength {
		trail = trail[len(trail)-trailLength:]
	}

	fmt.Fprintf(w, "last %d pcs:", len(trail))
	for _, pc := range trail {
		fmt.Fprintf(w, " %08X", pc)
	}
	fmt.Fprintln(w)
}
