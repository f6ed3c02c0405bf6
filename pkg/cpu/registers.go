package cpu

import "fmt"

const (
	// ProgramStart is where ROM images are loaded and execution begins.
	ProgramStart = 0x200

	// StackDepth is the maximum number of nested subroutine calls.
	StackDepth = 16

	// RegVF is the index of the flag register.
	RegVF = 0xF
)

// Registers is the CPU register state.
type Registers struct {
	V  [16]byte
	I  uint16 // only the low 12 bits address memory
	PC uint16

	Stack [StackDepth]uint16
	SP    int // number of return addresses on the stack

	Delay byte
	Sound byte
}

// Reset restores the power-on register state.
func (r *Registers) Reset() {
	*r = Registers{PC: ProgramStart}
}

// Push stores a return address.
func (r *Registers) Push(addr uint16) error {
	if r.SP >= StackDepth {
		return fmt.Errorf("push 0x%03X at depth %d: %w", addr, r.SP, ErrStackOverflow)
	}
	r.Stack[r.SP] = addr
	r.SP++
	return nil
}

// Pop removes and returns the most recent return address.
func (r *Registers) Pop() (uint16, error) {
	if r.SP == 0 {
		return 0, ErrStackUnderflow
	}
	r.SP--
	return r.Stack[r.SP], nil
}

// TickTimers decrements both timers by one, stopping at zero.
func (r *Registers) TickTimers() {
	if r.Delay > 0 {
		r.Delay--
	}
	if r.Sound > 0 {
		r.Sound--
	}
}
