package benchmarks_test

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/rv32vm/benchmarks"
	"github.com/sarchlab/rv32vm/insts"
)

var _ = Describe("Harness", func() {
	var (
		out     *bytes.Buffer
		harness *benchmarks.Harness
	)

	newHarness := func(cache bool) {
		out = &bytes.Buffer{}
		config := benchmarks.DefaultConfig()
		config.Output = out
		config.EnableCache = cache
		harness = benchmarks.NewHarness(config)
	}

	byName := func(results []benchmarks.BenchmarkResult, name string) benchmarks.BenchmarkResult {
		for _, r := range results {
			if r.Name == name {
				return r
			}
		}
		Fail("no result for " + name)
		return benchmarks.BenchmarkResult{}
	}

	BeforeEach(func() {
		newHarness(false)
		harness.AddBenchmarks(benchmarks.GetMicrobenchmarks()...)
	})

	It("should run every microbenchmark to its expected exit code", func() {
		results := harness.RunAll()

		Expect(results).To(HaveLen(len(benchmarks.GetMicrobenchmarks())))
		for _, r := range results {
			Expect(r.Error).To(BeEmpty(), r.Name)
			Expect(r.Cycles).NotTo(BeZero(), r.Name)
			Expect(r.Passed).To(BeTrue(), r.Name)
		}
	})

	It("should count ticks up to and including the exit call", func() {
		results := harness.RunAll()

		Expect(byName(results, "arithmetic_sequential").Cycles).To(Equal(uint64(9)))
		Expect(byName(results, "dependency_chain").Cycles).To(Equal(uint64(23)))
	})

	It("should count the traps taken by the handler benchmark", func() {
		r := byName(harness.RunAll(), "trap_round_trip")

		Expect(r.ExitCode).To(Equal(int32(5)))
		Expect(r.Exceptions).To(Equal(uint64(5)))
		Expect(r.Cycles).To(Equal(uint64(33)))
	})

	It("should not report cache stats without a cache", func() {
		r := byName(harness.RunAll(), "memory_sequential")

		Expect(r.Cache).To(BeNil())
	})

	It("should report cache stats with the cache enabled", func() {
		newHarness(true)
		harness.AddBenchmarks(benchmarks.GetMicrobenchmarks()...)

		r := byName(harness.RunAll(), "memory_sequential")

		Expect(r.ExitCode).To(Equal(int32(42)))
		Expect(r.Cache).NotTo(BeNil())
		Expect(r.Cache.Hits).NotTo(BeZero())
		Expect(r.Cache.Misses).NotTo(BeZero())
	})

	It("should record a tick limit as an error", func() {
		newHarness(false)
		harness.AddBenchmarks(benchmarks.Benchmark{
			Name:    "spin",
			Program: []uint32{insts.MustEncode("j", 0)},
		})

		r := harness.RunAll()[0]

		Expect(r.Error).To(ContainSubstring("0x00000100"))
		Expect(r.Cycles).To(Equal(uint64(10000)))
		Expect(r.Passed).To(BeFalse())
	})

	It("should fail a benchmark that exits with the wrong code", func() {
		newHarness(false)
		harness.AddBenchmarks(benchmarks.Benchmark{
			Name: "wrong_exit",
			Program: []uint32{
				insts.MustEncode("addi", insts.RegA0, insts.RegZero, 3),
				insts.MustEncode("addi", insts.RegA7, insts.RegZero, 93),
				insts.MustEncode("ecall"),
			},
			ExpectedExit: 4,
		})

		results := harness.RunAll()
		harness.PrintResults(results)

		Expect(results[0].Error).To(BeEmpty())
		Expect(results[0].Passed).To(BeFalse())
		Expect(out.String()).To(ContainSubstring("wrong exit code"))
	})

	Describe("output", func() {
		var results []benchmarks.BenchmarkResult

		BeforeEach(func() {
			results = harness.RunAll()
		})

		It("should print a readable report", func() {
			harness.PrintResults(results)

			lines := strings.Split(strings.TrimSpace(out.String()), "\n")
			Expect(lines).To(HaveLen(len(results) + 1))
			Expect(strings.Fields(lines[0])).To(HaveExactElements(
				"benchmark", "cycles", "traps", "hits", "misses", "exit", "status"))
			Expect(strings.Fields(lines[6])).To(HaveExactElements(
				"countdown_loop", strconv.FormatUint(results[5].Cycles, 10),
				"0", "0", "0", "55", "ok"))
		})

		It("should print one CSV row per result", func() {
			harness.PrintCSV(results)

			lines := strings.Split(strings.TrimSpace(out.String()), "\n")
			Expect(lines).To(HaveLen(len(results) + 1))
			Expect(lines[0]).To(HavePrefix("name,cycles"))
			Expect(lines[1]).To(Equal("arithmetic_sequential,9,0,0,0,4,true"))
		})

		It("should print JSON", func() {
			Expect(harness.PrintJSON(results)).To(Succeed())

			var decoded []benchmarks.BenchmarkResult
			Expect(json.Unmarshal(out.Bytes(), &decoded)).To(Succeed())
			Expect(decoded).To(HaveLen(len(results)))
			Expect(decoded[5].ExitCode).To(Equal(int32(55)))
			Expect(decoded[5].Passed).To(BeTrue())
			Expect(decoded[5].Cache).To(BeNil())
		})
	})
})
