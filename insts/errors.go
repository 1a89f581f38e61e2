package insts

import (
	"errors"

	"github.com/sarchlab/rv32vm/translate"
)

var f = translate.From

var (
	// ErrUnknownInstruction is returned for a mnemonic not in the catalog.
	ErrUnknownInstruction = errors.New(f("unknown instruction"))
	// ErrOperandCount is returned when the operand count does not match.
	ErrOperandCount = errors.New(f("operand count mismatch"))
)
