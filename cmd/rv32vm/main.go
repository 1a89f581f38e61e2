// Package main provides the entry point for rv32vm.
// rv32vm loads an RV32 program, attaches it to a bus with memory and stream
// devices, and runs it until it terminates, waits for an interrupt, or runs
// out of ticks.
//
// The exit status is the program's exit code truncated to 8 bits. Machine
// failures use 124 (tick limit), 125 (load or configuration error) and 126
// (exception under -d).
package main

import (
	"flag"
	"fmt"
	"os"
	"runtime/pprof"

	"github.com/sirupsen/logrus"
)

var (
	tickLimit  = flag.Uint("t", 0, "Tick limit, 0 for unbounded (default from config: 100)")
	die        = flag.Bool("d", false, "Stop at the first exception instead of trapping")
	watch      = flag.String("p", "", "Log stores to this address expression")
	configPath = flag.String("config", "", "Path to machine configuration JSON file")
	list       = flag.Bool("l", false, "List the program instead of running it")
	syscalls   = flag.Bool("syscalls", false, "Service ECALL with read, write and exit")
	verbose    = flag.Bool("v", false, "Verbose output")
	trace      = flag.Bool("vv", false, "Trace every instruction")
	cpuProfile = flag.String("cpuprofile", "", "Write a CPU profile to file")
)

func main() {
	flag.Parse()

	if flag.NArg() < 1 {
		fmt.Fprintf(os.Stderr, "Usage: rv32vm [options] <program.elf|program.bin>\n")
		fmt.Fprintf(os.Stderr, "\nOptions:\n")
		flag.PrintDefaults()
		os.Exit(exitUsage)
	}

	if *cpuProfile != "" {
		f, err := os.Create(*cpuProfile)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error creating CPU profile: %v\n", err)
			os.Exit(exitUsage)
		}
		if err := pprof.StartCPUProfile(f); err != nil {
			fmt.Fprintf(os.Stderr, "Error starting CPU profile: %v\n", err)
			os.Exit(exitUsage)
		}
	}

	logger := logrus.New()
	logger.SetOutput(os.Stderr)
	logger.SetLevel(logrus.WarnLevel)
	if *verbose {
		logger.SetLevel(logrus.DebugLevel)
	}
	if *trace {
		logger.SetLevel(logrus.TraceLevel)
	}

	opts := options{
		programPath: flag.Arg(0),
		configPath:  *configPath,
		watch:       *watch,
		list:        *list,
		verbose:     *verbose || *trace,
		logger:      logger,
	}

	flag.Visit(func(fl *flag.Flag) {
		switch fl.Name {
		case "t":
			limit := uint32(*tickLimit)
			opts.tickLimit = &limit
		case "d":
			opts.die = die
		case "syscalls":
			opts.syscalls = syscalls
		}
	})

	code := run(opts, os.Stdin, os.Stdout, os.Stderr)

	if *cpuProfile != "" {
		pprof.StopCPUProfile()
	}

	os.Exit(code)
}
