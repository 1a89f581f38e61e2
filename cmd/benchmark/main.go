// Command benchmark runs the rv32vm microbenchmark harness.
//
// Usage:
//
//	go run ./cmd/benchmark [flags]
//
// Flags:
//
//	-csv       Output results in CSV format (default: human-readable)
//	-json      Output results as JSON
//	-no-cache  Run without the data cache in front of memory
//	-t         Tick limit per benchmark
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/sarchlab/rv32vm/benchmarks"
)

func main() {
	csvOutput := flag.Bool("csv", false, "Output results in CSV format")
	jsonOutput := flag.Bool("json", false, "Output results as JSON")
	noCache := flag.Bool("no-cache", false, "Disable the memory cache")
	tickLimit := flag.Uint("t", 10000, "Tick limit per benchmark")
	flag.Parse()

	config := benchmarks.DefaultConfig()
	config.EnableCache = !*noCache
	config.TickLimit = uint32(*tickLimit)
	config.Output = os.Stdout

	harness := benchmarks.NewHarness(config)
	harness.AddBenchmarks(benchmarks.GetMicrobenchmarks()...)

	human := !*csvOutput && !*jsonOutput
	if human {
		fmt.Println("rv32vm Benchmark Harness")
		fmt.Println("========================")
		fmt.Printf("Cache: %v\n", config.EnableCache)
		fmt.Println("")
	}

	results := harness.RunAll()

	switch {
	case *jsonOutput:
		if err := harness.PrintJSON(results); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	case *csvOutput:
		harness.PrintCSV(results)
	default:
		harness.PrintResults(results)
	}

	failed := 0
	for _, r := range results {
		if !r.Passed {
			failed++
			fmt.Fprintf(os.Stderr, "FAIL %s\n", r.Name)
		}
	}
	if failed > 0 {
		os.Exit(1)
	}
}
