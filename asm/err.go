package asm

import (
	"errors"

	"github.com/aravk2005/ARMsimulator/translate"
)

var f = translate.From

var (
	// Directive errors
	ErrEquateSyntax     = errors.New(f(".equ syntax"))
	ErrEquateDuplicate  = errors.New(f(".equ duplicated"))
	ErrDirectiveInvalid = errors.New(f("directive invalid"))
	ErrRegionOrder      = errors.New(f(".arm after .thumb"))

	// Statement errors
	ErrLabelDuplicate  = errors.New(f("label duplicated"))
	ErrMnemonicInvalid = errors.New(f("mnemonic invalid"))
	ErrOperandCount    = errors.New(f("wrong number of operands"))
	ErrRegisterInvalid = errors.New(f("register invalid"))
	ErrAddressSyntax   = errors.New(f("address syntax"))
	ErrImmediateRange  = errors.New(f("immediate out of range"))
)

// ErrLabelMissing is a branch target that names no label.
type ErrLabelMissing string

func (err ErrLabelMissing) Error() string {
	return f("label %v missing", string(err))
}

// ErrParseNumber is a word that is not a number.
type ErrParseNumber string

func (err ErrParseNumber) Error() string {
	return f("'%v' is not a number", string(err))
}

// ErrParseExpression is a $(...) expression that did not evaluate to an
// integer.
type ErrParseExpression string

func (err ErrParseExpression) Error() string {
	return f("$(%v) is not a valid expression", string(err))
}

// SyntaxError locates an assembly error in the source.
type SyntaxError struct {
	Line int
	Text string
	Err  error
}

func (err *SyntaxError) Error() string {
	return f("line %d '%v' %v", err.Line, err.Text, err.Err)
}

func (err *SyntaxError) Unwrap() error {
	return err.Err
}
