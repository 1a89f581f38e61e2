package config

import (
	"go.starlark.net/starlark"
	"go.starlark.net/syntax"

	"github.com/sarchlab/rv32vm/emu"
	"github.com/sarchlab/rv32vm/machine"
)

// Builtins are predeclared in every expression.
var Builtins = map[string]uint32{
	"TERMINATION_PC": machine.TerminationPC,
	"RESET_VECTOR":   emu.ResetVector,
	"MTVEC_RESET":    emu.MTVecReset,
}

func builtins() starlark.StringDict {
	pred := starlark.StringDict{}
	for key, value := range Builtins {
		pred[key] = starlark.MakeUint(uint(value))
	}
	return pred
}

// evaluate runs "rc=<expr>" and returns rc as a 32-bit address.
func evaluate(expr string, pred starlark.StringDict) (uint32, error) {
	thread := starlark.Thread{Name: "config"}
	opts := syntax.FileOptions{}

	prog := "rc=" + expr + "\n"
	dict, err := starlark.ExecFileOptions(&opts, &thread, "expr", prog, pred)
	if err != nil {
		return 0, &ErrExpression{Expr: expr, Err: err}
	}

	rc, ok := dict["rc"].(starlark.Int)
	if !ok {
		return 0, ErrParseExpression(expr)
	}

	value, ok := rc.Int64()
	if !ok || value < 0 || value > 0xFFFFFFFF {
		return 0, ErrAddressRange(expr)
	}

	return uint32(value), nil
}

// predeclared returns the builtins plus every equate. Equates may only
// refer to builtins.
func (c *Config) predeclared() (starlark.StringDict, error) {
	pred := builtins()

	equates := starlark.StringDict{}
	for name, expr := range c.Equates {
		value, err := evaluate(expr, pred)
		if err != nil {
			return nil, &ErrEquate{Name: name, Err: err}
		}
		equates[name] = starlark.MakeUint(uint(value))
	}

	for name, value := range equates {
		pred[name] = value
	}

	return pred, nil
}

// Eval evaluates expr against the builtins and the equates.
func (c *Config) Eval(expr string) (uint32, error) {
	pred, err := c.predeclared()
	if err != nil {
		return 0, err
	}
	return evaluate(expr, pred)
}
