// Package main provides the entry point for rv32vm.
// rv32vm is an RV32I emulator with machine, supervisor and user privilege
// levels and a memory-mapped device bus.
//
// For the full CLI, use: go run ./cmd/rv32vm
package main

import (
	"fmt"
	"os"
)

func main() {
	fmt.Println("rv32vm - RV32I Emulator")
	fmt.Println("")
	fmt.Println("Usage: rv32vm [options] <program>")
	fmt.Println("")
	fmt.Println("Options:")
	fmt.Println("  -t         Tick limit (0 runs until exit)")
	fmt.Println("  -d         Stop on the first exception")
	fmt.Println("  -config    Path to machine configuration JSON file")
	fmt.Println("  -l         Print a disassembly listing and exit")
	fmt.Println("  -v         Verbose output")
	fmt.Println("")
	fmt.Println("Run 'go run ./cmd/rv32vm' for the full CLI.")

	if len(os.Args) > 1 {
		fmt.Println("\nNote: You provided arguments. Use 'go run ./cmd/rv32vm' instead.")
	}
}
