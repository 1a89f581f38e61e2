package benchmarks

import (
	"github.com/sarchlab/rv32vm/emu"
	"github.com/sarchlab/rv32vm/insts"
)

var enc = insts.MustEncode

const (
	zero = insts.RegZero
	ra   = insts.RegRA
	t0   = insts.RegT0
	t1   = insts.RegT1
	t2   = insts.RegT2
	a0   = insts.RegA0
	a1   = insts.RegA1
	a7   = insts.RegA7
)

// exit returns the program tail that exits with a0.
func exit() []uint32 {
	return []uint32{
		enc("addi", a7, zero, emu.SyscallExit),
		enc("ecall"),
	}
}

func program(body ...uint32) []uint32 {
	return append(body, exit()...)
}

func repeat(n int, words ...uint32) []uint32 {
	out := make([]uint32, 0, n*len(words))
	for i := 0; i < n; i++ {
		out = append(out, words...)
	}
	return out
}

// GetMicrobenchmarks returns the standard set of microbenchmarks.
func GetMicrobenchmarks() []Benchmark {
	return []Benchmark{
		arithmeticSequential(),
		dependencyChain(),
		memorySequential(),
		functionCalls(),
		branchTaken(),
		countdownLoop(),
		trapRoundTrip(),
	}
}

// 1. Arithmetic Sequential - independent ALU operations
func arithmeticSequential() Benchmark {
	return Benchmark{
		Name:        "arithmetic_sequential",
		Description: "4 independent ADDIs summed into a0 - measures ALU throughput",
		Program: program(
			enc("addi", t0, zero, 1),
			enc("addi", t1, zero, 1),
			enc("addi", t2, zero, 1),
			enc("addi", a1, zero, 1),
			enc("add", a0, t0, t1),
			enc("add", a0, a0, t2),
			enc("add", a0, a0, a1),
		),
		ExpectedExit: 4,
	}
}

// 2. Dependency Chain - every ADDI reads the previous result
func dependencyChain() Benchmark {
	body := []uint32{enc("addi", a0, zero, 0)}
	body = append(body, repeat(20, enc("addi", a0, a0, 1))...)

	return Benchmark{
		Name:         "dependency_chain",
		Description:  "20 dependent ADDIs - measures back-to-back register reuse",
		Program:      program(body...),
		ExpectedExit: 20,
	}
}

// 3. Memory Sequential - store/load pairs to consecutive words
func memorySequential() Benchmark {
	body := []uint32{
		enc("lui", t0, 0x8000),
		enc("addi", a0, zero, 42),
	}
	for i := uint32(0); i < 10; i++ {
		body = append(body,
			enc("sw", t0, a0, i*4),
			enc("lw", a0, t0, i*4),
		)
	}

	return Benchmark{
		Name:         "memory_sequential",
		Description:  "10 SW/LW pairs to sequential words - measures memory path",
		Program:      program(body...),
		ExpectedExit: 42,
	}
}

// 4. Function Calls - JAL/RET pairs
func functionCalls() Benchmark {
	return Benchmark{
		Name:        "function_calls",
		Description: "5 calls to an add_one routine - measures call overhead",
		Program: []uint32{
			enc("addi", a0, zero, 0),
			enc("jal", ra, 28), // add_one
			enc("jal", ra, 24),
			enc("jal", ra, 20),
			enc("jal", ra, 16),
			enc("jal", ra, 12),
			enc("addi", a7, zero, emu.SyscallExit),
			enc("ecall"),

			// add_one
			enc("addi", a0, a0, 1),
			enc("ret"),
		},
		ExpectedExit: 5,
	}
}

// 5. Branch Taken - forward jumps over a poisoned instruction
func branchTaken() Benchmark {
	body := []uint32{enc("addi", a0, zero, 0)}
	body = append(body, repeat(5,
		enc("j", 8),
		enc("addi", t1, t1, 99), // skipped
		enc("addi", a0, a0, 1),
	)...)

	return Benchmark{
		Name:         "branch_taken",
		Description:  "5 unconditional forward jumps - measures jump overhead",
		Program:      program(body...),
		ExpectedExit: 5,
	}
}

// 6. Countdown Loop - sum 1..10 with a backward BNE
func countdownLoop() Benchmark {
	return Benchmark{
		Name:        "countdown_loop",
		Description: "sum 1..10 in a BNE loop - measures taken backward branches",
		Program: program(
			enc("addi", t0, zero, 10),
			enc("addi", a0, zero, 0),
			enc("add", a0, a0, t0),
			enc("addi", t0, t0, 0xFFFFFFFF),
			enc("bne", t0, zero, 0xFFFFFFF8),
		),
		ExpectedExit: 55,
	}
}

// 7. Trap Round Trip - EBREAK into a handler that skips it and returns
func trapRoundTrip() Benchmark {
	body := []uint32{enc("addi", a0, zero, 0)}
	body = append(body, repeat(5,
		enc("ebreak"),
		enc("addi", a0, a0, 1),
	)...)

	return Benchmark{
		Name:        "trap_round_trip",
		Description: "5 EBREAK traps through a machine handler - measures trap entry and MRET",
		Handler: []uint32{
			enc("csrr", t0, insts.CSRMEPC),
			enc("addi", t0, t0, 4),
			enc("csrw", t0, insts.CSRMEPC),
			enc("mret"),
		},
		Program:      program(body...),
		ExpectedExit: 5,
	}
}
