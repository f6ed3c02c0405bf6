package cpu

import (
	"math/rand/v2"

	"github.com/retroenv/retrogolib/log"
)

// RandomSource supplies the random bytes for RND. *rand.Rand from
// math/rand/v2 satisfies it.
type RandomSource interface {
	Uint32() uint32
}

// UnknownOpcodeHandler is called once for every executed word that does not
// decode to an instruction. pc is the address the word was fetched from.
type UnknownOpcodeHandler func(pc, opcode uint16)

// Option configures an Interpreter.
type Option func(*Interpreter)

// WithLogger sets the logger used for diagnostics.
func WithLogger(logger *log.Logger) Option {
	return func(c *Interpreter) {
		c.logger = logger
	}
}

// WithRandom sets the random source used by RND.
func WithRandom(src RandomSource) Option {
	return func(c *Interpreter) {
		c.rng = src
	}
}

// WithSeed makes RND reproducible by seeding a PCG generator.
func WithSeed(seed uint64) Option {
	return WithRandom(rand.New(rand.NewPCG(seed, seed^0x9E3779B97F4A7C15)))
}

// WithUnknownOpcodeHandler installs a callback for unknown opcodes in addition
// to the log entry.
func WithUnknownOpcodeHandler(fn UnknownOpcodeHandler) Option {
	return func(c *Interpreter) {
		c.onUnknown = fn
	}
}

type globalRandom struct{}

func (globalRandom) Uint32() uint32 { return rand.Uint32() }
