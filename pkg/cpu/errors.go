package cpu

import (
	"errors"
	"fmt"
)

var (
	// ErrUnknownOpcode is reported through the unknown opcode handler. It is
	// never returned from Step.
	ErrUnknownOpcode = errors.New("unknown opcode")

	// ErrStackOverflow is raised by CALL with all stack levels in use.
	ErrStackOverflow = errors.New("stack overflow")
	// ErrStackUnderflow is raised by RET with an empty stack.
	ErrStackUnderflow = errors.New("stack underflow")

	// ErrMalformedROM is returned for ROM images that do not fit program memory.
	ErrMalformedROM = errors.New("malformed ROM")

	// ErrHalted is returned by Step after a fatal error until Reset is called.
	ErrHalted = errors.New("interpreter halted")
)

// ExecError describes a fatal error raised while executing an instruction.
type ExecError struct {
	PC     uint16 // address of the failing instruction
	Opcode uint16
	Err    error
}

// Error implements the error interface.
func (e *ExecError) Error() string {
	return fmt.Sprintf("executing opcode 0x%04X at 0x%03X: %v", e.Opcode, e.PC, e.Err)
}

func (e *ExecError) Unwrap() error {
	return e.Err
}
