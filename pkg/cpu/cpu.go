// Package cpu implements the CHIP-8 interpreter: registers, instruction
// decoding and the fetch-decode-execute cycle.
//
// The interpreter owns no goroutines or timers. A driver calls Step for every
// instruction and Tick at whatever cadence it wants the timers to run at.
// Keypad writes and Display reads must happen between Step calls.
package cpu

import (
	"context"
	"fmt"

	"github.com/retroenv/retrogolib/log"

	"gochip8/pkg/display"
	"gochip8/pkg/keypad"
	"gochip8/pkg/memory"
)

// Interpreter runs one CHIP-8 program against its own memory and devices.
type Interpreter struct {
	Regs Registers

	Memory  *memory.Memory
	Display *display.Display
	Keypad  *keypad.Keypad

	rom       []byte
	rng       RandomSource
	logger    *log.Logger
	onUnknown UnknownOpcodeHandler

	// awaitingKey is set by LD Vx, K while no key is down. PC points at the
	// LD Vx, K word for as long as it is set.
	awaitingKey bool
	waitReg     byte

	haltErr error
}

// NewInterpreter creates an interpreter with the font glyphs and rom loaded
// and PC at ProgramStart.
func NewInterpreter(rom []byte, opts ...Option) (*Interpreter, error) {
	if err := ValidateROM(rom); err != nil {
		return nil, err
	}

	c := &Interpreter{
		Memory:  memory.New(),
		Display: display.New(),
		Keypad:  keypad.New(),
		rom:     append([]byte(nil), rom...),
		rng:     globalRandom{},
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.logger == nil {
		c.logger = log.NewWithConfig(log.DefaultConfig())
	}

	if err := c.Reset(); err != nil {
		return nil, err
	}
	return c, nil
}

// Reset restores the power-on state and reloads the ROM.
func (c *Interpreter) Reset() error {
	c.Regs.Reset()
	c.Memory.Clear()
	c.Display.Clear()
	c.Keypad.Reset()
	c.awaitingKey = false
	c.waitReg = 0
	c.haltErr = nil

	if err := c.Memory.Load(FontAddress, fontGlyphs[:]); err != nil {
		return err
	}
	if err := c.Memory.Load(ProgramStart, c.rom); err != nil {
		return fmt.Errorf("%w: %w", ErrMalformedROM, err)
	}
	return nil
}

// AwaitingKey reports whether the interpreter is blocked on LD Vx, K.
func (c *Interpreter) AwaitingKey() bool {
	return c.awaitingKey
}

// Halted reports whether a fatal error stopped the interpreter.
func (c *Interpreter) Halted() bool {
	return c.haltErr != nil
}

// SoundActive reports whether the sound timer is running.
func (c *Interpreter) SoundActive() bool {
	return c.Regs.Sound > 0
}

// Tick decrements the delay and sound timers once.
func (c *Interpreter) Tick() {
	c.Regs.TickTimers()
}

// Run executes up to cycles instructions, stopping early on a fatal error or
// when ctx is done.
func (c *Interpreter) Run(ctx context.Context, cycles int) error {
	for i := 0; i < cycles; i++ {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		if err := c.Step(); err != nil {
			return err
		}
	}
	return nil
}

// Step executes one instruction. Unknown opcodes are reported and skipped;
// stack and memory faults are returned as *ExecError and halt the
// interpreter until Reset.
func (c *Interpreter) Step() error {
	if c.haltErr != nil {
		return fmt.Errorf("%w: %w", ErrHalted, c.haltErr)
	}

	if c.awaitingKey {
		c.pollKeypad()
		return nil
	}

	pc := c.Regs.PC
	word, err := c.Memory.ReadWord(pc)
	if err != nil {
		return c.fail(pc, 0, err)
	}
	c.Regs.PC += 2

	op := Decode(word)
	if err := c.execute(pc, op); err != nil {
		return c.fail(pc, word, err)
	}
	return nil
}

func (c *Interpreter) fail(pc, opcode uint16, err error) error {
	c.haltErr = &ExecError{PC: pc, Opcode: opcode, Err: err}
	c.logger.Debug("Interpreter halted",
		log.Hex("pc", pc),
		log.Hex("opcode", opcode),
		log.Err(err))
	return c.haltErr
}

func (c *Interpreter) skipIf(cond bool) {
	if cond {
		c.Regs.PC += 2
	}
}

func (c *Interpreter) execute(pc uint16, op Op) error {
	v := &c.Regs.V
	x, y := op.X, op.Y

	switch op.Kind {
	case OpCLS:
		c.Display.Clear()

	case OpRET:
		addr, err := c.Regs.Pop()
		if err != nil {
			return err
		}
		c.Regs.PC = addr

	case OpJP:
		c.Regs.PC = op.Addr

	case OpCALL:
		if err := c.Regs.Push(c.Regs.PC); err != nil {
			return err
		}
		c.Regs.PC = op.Addr

	case OpSEImm:
		c.skipIf(v[x] == op.KK)

	case OpSNEImm:
		c.skipIf(v[x] != op.KK)

	case OpSEReg:
		c.skipIf(v[x] == v[y])

	case OpSNEReg:
		c.skipIf(v[x] != v[y])

	case OpLDImm:
		v[x] = op.KK

	case OpADDImm:
		v[x] += op.KK

	case OpLDReg:
		v[x] = v[y]

	case OpOR:
		v[x] |= v[y]

	case OpAND:
		v[x] &= v[y]

	case OpXOR:
		v[x] ^= v[y]

	case OpADDReg:
		a, b := v[x], v[y]
		v[RegVF] = flag(uint16(a)+uint16(b) > 0xFF)
		v[x] = a + b

	case OpSUB:
		a, b := v[x], v[y]
		v[RegVF] = flag(a > b)
		v[x] = a - b

	case OpSUBN:
		a, b := v[x], v[y]
		v[RegVF] = flag(b > a)
		v[x] = b - a

	case OpSHR:
		v[RegVF] = v[x] & 0x01
		v[x] >>= 1

	case OpSHL:
		v[RegVF] = v[x] >> 7
		v[x] <<= 1

	case OpLDI:
		c.Regs.I = op.Addr

	case OpJPV0:
		c.Regs.PC = uint16(v[0]) + op.Addr

	case OpRND:
		v[x] = byte(c.rng.Uint32()) & op.KK

	case OpDRW:
		sprite, err := c.Memory.Slice(c.Regs.I, int(op.N))
		if err != nil {
			return err
		}
		v[RegVF] = flag(c.Display.Draw(v[x], v[y], sprite))

	case OpSKP:
		c.skipIf(c.Keypad.IsDown(v[x]))

	case OpSKNP:
		c.skipIf(!c.Keypad.IsDown(v[x]))

	case OpLDVxDT:
		v[x] = c.Regs.Delay

	case OpLDVxK:
		if key, ok := c.Keypad.FirstDown(); ok {
			v[x] = key
			return nil
		}
		c.awaitingKey = true
		c.waitReg = x
		c.Regs.PC -= 2
		c.logger.Debug("Waiting for key press", log.Hex("pc", c.Regs.PC), log.Int("register", int(x)))

	case OpLDDTVx:
		c.Regs.Delay = v[x]

	case OpLDSTVx:
		c.Regs.Sound = v[x]

	case OpADDI:
		v[RegVF] = flag(uint32(c.Regs.I)+uint32(v[x]) > 0xFFF)
		c.Regs.I += uint16(v[x])

	case OpLDF:
		c.Regs.I = GlyphAddress(v[x])

	case OpLDB:
		digits := [3]byte{v[x] / 100, (v[x] / 10) % 10, v[x] % 10}
		for i, d := range digits {
			if err := c.Memory.SetByte(c.Regs.I+uint16(i), d); err != nil {
				return err
			}
		}

	case OpLDMemVx:
		for i := byte(0); i <= x; i++ {
			if err := c.Memory.SetByte(c.Regs.I+uint16(i), v[i]); err != nil {
				return err
			}
		}

	case OpLDVxMem:
		for i := byte(0); i <= x; i++ {
			b, err := c.Memory.Byte(c.Regs.I + uint16(i))
			if err != nil {
				return err
			}
			v[i] = b
		}

	default:
		c.reportUnknown(pc, op.Word)
	}

	return nil
}

// pollKeypad is the whole cycle while awaiting a key: with no key down
// nothing changes.
func (c *Interpreter) pollKeypad() {
	key, ok := c.Keypad.FirstDown()
	if !ok {
		return
	}
	c.Regs.V[c.waitReg] = key
	c.awaitingKey = false
	c.Regs.PC += 2
	c.logger.Debug("Key press received", log.Int("key", int(key)), log.Int("register", int(c.waitReg)))
}

func (c *Interpreter) reportUnknown(pc, opcode uint16) {
	c.logger.Warn("Unknown opcode",
		log.Hex("pc", pc),
		log.Hex("opcode", opcode),
		log.Err(ErrUnknownOpcode))
	if c.onUnknown != nil {
		c.onUnknown(pc, opcode)
	}
}

func flag(b bool) byte {
	if b {
		return 1
	}
	return 0
}
