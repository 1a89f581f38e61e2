// Package benchmarks runs small RV32I programs on configured machines and
// reports how many ticks, traps and cache accesses each one takes.
package benchmarks

import (
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/sarchlab/rv32vm/bus"
	"github.com/sarchlab/rv32vm/config"
	"github.com/sarchlab/rv32vm/loader"
	"github.com/sarchlab/rv32vm/machine"
)

// ProgramBase is the address benchmark programs are installed at.
const ProgramBase uint32 = 0x100

// Benchmark is a program that exits through the exit syscall.
type Benchmark struct {
	Name        string
	Description string
	// Handler is installed at the trap vector when set.
	Handler      []uint32
	Program      []uint32
	ExpectedExit int32
}

// BenchmarkResult is the outcome of one run. Cache is nil when the machine
// ran without a cache.
type BenchmarkResult struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Cycles      uint64          `json:"cycles"`
	Exceptions  uint64          `json:"exceptions"`
	Cache       *bus.CacheStats `json:"cache,omitempty"`
	ExitCode    int32           `json:"exit_code"`
	Passed      bool            `json:"passed"`
	Error       string          `json:"error,omitempty"`
	WallTime    time.Duration   `json:"wall_time_ns"`
}

// HarnessConfig configures the benchmark harness.
type HarnessConfig struct {
	EnableCache bool
	TickLimit   uint32
	Output      io.Writer
	Logger      logrus.FieldLogger
}

// DefaultConfig returns a default harness configuration.
func DefaultConfig() HarnessConfig {
	return HarnessConfig{
		EnableCache: true,
		TickLimit:   10000,
		Output:      os.Stdout,
	}
}

// Harness runs benchmarks and collects results.
type Harness struct {
	config     HarnessConfig
	benchmarks []Benchmark
}

// NewHarness creates a harness. Machine logs below warning level are
// dropped unless a logger is configured.
func NewHarness(config HarnessConfig) *Harness {
	if config.Output == nil {
		config.Output = os.Stdout
	}
	if config.Logger == nil {
		logger := logrus.New()
		logger.SetLevel(logrus.WarnLevel)
		config.Logger = logger
	}
	return &Harness{config: config}
}

// AddBenchmarks appends benchmarks to the run list.
func (h *Harness) AddBenchmarks(benchmarks ...Benchmark) {
	h.benchmarks = append(h.benchmarks, benchmarks...)
}

// RunAll runs every benchmark on a fresh machine, in order.
func (h *Harness) RunAll() []BenchmarkResult {
	results := make([]BenchmarkResult, 0, len(h.benchmarks))
	for _, bench := range h.benchmarks {
		results = append(results, h.run(bench))
	}
	return results
}

func (h *Harness) run(bench Benchmark) BenchmarkResult {
	result := BenchmarkResult{Name: bench.Name, Description: bench.Description}

	m, err := h.prepare(bench)
	if err != nil {
		result.Error = err.Error()
		return result
	}

	start := time.Now()
	cycles, err := m.Run(h.config.TickLimit, false)
	result.WallTime = time.Since(start)

	switch {
	case errors.Is(err, machine.ErrTerminated):
	case err == nil:
		result.Error = fmt.Sprintf("waiting for an interrupt at pc 0x%08X", m.PC())
	default:
		result.Error = err.Error()
	}

	result.Cycles = uint64(cycles)
	result.Exceptions = m.Stats().Exceptions
	result.ExitCode = m.ExitCode()
	result.Passed = result.Error == "" && result.ExitCode == bench.ExpectedExit

	if dev, ok := m.Bus().Device(config.MemoryDevice); ok {
		if cached, ok := dev.(*bus.CachedMemory); ok {
			stats := cached.Stats()
			result.Cache = &stats
		}
	}

	return result
}

// prepare builds a machine from the default layout and installs the
// handler and program.
func (h *Harness) prepare(bench Benchmark) (*machine.Machine, error) {
	cfg := config.Default()
	cfg.Syscalls = true
	cfg.Cache.Enabled = h.config.EnableCache

	m, err := cfg.Build(config.Host{Stdout: io.Discard, Logger: h.config.Logger})
	if err != nil {
		return nil, err
	}

	if bench.Handler != nil {
		vector := m.CPU().CSR().TVec
		if err := loader.Raw(words(bench.Handler), vector).Install(m.Bus()); err != nil {
			return nil, fmt.Errorf("install handler: %w", err)
		}
	}

	prog := loader.Raw(words(bench.Program), ProgramBase)
	if err := prog.Install(m.Bus()); err != nil {
		return nil, fmt.Errorf("install program: %w", err)
	}
	m.SetPC(prog.EntryPoint)

	return m, nil
}

// PrintResults prints one row per result.
func (h *Harness) PrintResults(results []BenchmarkResult) {
	w := h.config.Output
	_, _ = fmt.Fprintf(w, "%-24s %8s %6s %8s %8s %6s  %s\n",
		"benchmark", "cycles", "traps", "hits", "misses", "exit", "status")

	for _, r := range results {
		var hits, misses uint64
		if r.Cache != nil {
			hits, misses = r.Cache.Hits, r.Cache.Misses
		}

		status := "ok"
		switch {
		case r.Error != "":
			status = r.Error
		case !r.Passed:
			status = "wrong exit code"
		}

		_, _ = fmt.Fprintf(w, "%-24s %8d %6d %8d %8d %6d  %s\n",
			r.Name, r.Cycles, r.Exceptions, hits, misses, r.ExitCode, status)
	}
}

// PrintCSV prints benchmark results in CSV format.
func (h *Harness) PrintCSV(results []BenchmarkResult) {
	_, _ = fmt.Fprintln(h.config.Output, "name,cycles,exceptions,cache_hits,cache_misses,exit_code,passed")

	for _, r := range results {
		var hits, misses uint64
		if r.Cache != nil {
			hits, misses = r.Cache.Hits, r.Cache.Misses
		}
		_, _ = fmt.Fprintf(h.config.Output, "%s,%d,%d,%d,%d,%d,%t\n",
			r.Name, r.Cycles, r.Exceptions, hits, misses, r.ExitCode, r.Passed)
	}
}

// PrintJSON prints benchmark results as an indented JSON array.
func (h *Harness) PrintJSON(results []BenchmarkResult) error {
	enc := json.NewEncoder(h.config.Output)
	enc.SetIndent("", "  ")
	return enc.Encode(results)
}

func words(program []uint32) []byte {
	out := make([]byte, len(program)*4)
	for i, w := range program {
		binary.LittleEndian.PutUint32(out[i*4:], w)
	}
	return out
}
