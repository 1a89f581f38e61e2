package config

import (
	"github.com/sarchlab/rv32vm/translate"
)

var f = translate.From

// ErrParseExpression is returned when an expression does not yield an
// integer.
type ErrParseExpression string

func (err ErrParseExpression) Error() string {
	return f("%v is not an integer expression", string(err))
}

// ErrAddressRange is returned when an expression falls outside the 32-bit
// address space.
type ErrAddressRange string

func (err ErrAddressRange) Error() string {
	return f("%v is outside the 32-bit address space", string(err))
}

// ErrExpression wraps a Starlark failure.
type ErrExpression struct {
	Expr string
	Err  error
}

func (err *ErrExpression) Error() string {
	return f("expression %v: %v", err.Expr, err.Err.Error())
}

func (err *ErrExpression) Unwrap() error {
	return err.Err
}

// ErrEquate reports the equate that failed to evaluate.
type ErrEquate struct {
	Name string
	Err  error
}

func (err *ErrEquate) Error() string {
	return f("equate %v: %v", err.Name, err.Err.Error())
}

func (err *ErrEquate) Unwrap() error {
	return err.Err
}

// ErrField reports the config field that failed to resolve.
type ErrField struct {
	Field string
	Err   error
}

func (err *ErrField) Error() string {
	return f("%v: %v", err.Field, err.Err.Error())
}

func (err *ErrField) Unwrap() error {
	return err.Err
}
