package cpu

import (
	"context"
	"errors"
	"testing"

	"github.com/retroenv/retrogolib/log"

	"gochip8/pkg/memory"
)

// romWords encodes instruction words big-endian.
func romWords(words ...uint16) []byte {
	rom := make([]byte, 0, len(words)*2)
	for _, w := range words {
		rom = append(rom, byte(w>>8), byte(w))
	}
	return rom
}

// newTestInterpreter loads words at ProgramStart.
func newTestInterpreter(t *testing.T, words ...uint16) *Interpreter {
	t.Helper()
	c, err := NewInterpreter(romWords(words...), WithLogger(log.NewTestLogger(t)), WithSeed(1))
	if err != nil {
		t.Fatalf("NewInterpreter: unexpected error %v", err)
	}
	return c
}

// steps executes n instructions and fails the test on any error.
func steps(t *testing.T, c *Interpreter, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		if err := c.Step(); err != nil {
			t.Fatalf("step %d: unexpected error %v", i, err)
		}
	}
}

type fixedRandom uint32

func (f fixedRandom) Uint32() uint32 { return uint32(f) }

func TestNewInterpreter(t *testing.T) {
	c := newTestInterpreter(t, 0x00E0)

	if c.Regs.PC != ProgramStart {
		t.Errorf("PC: expected 0x%03X, got 0x%03X", ProgramStart, c.Regs.PC)
	}
	word, _ := c.Memory.ReadWord(ProgramStart)
	if word != 0x00E0 {
		t.Errorf("ROM not loaded at 0x200: got 0x%04X", word)
	}
	glyph, _ := c.Memory.Slice(GlyphAddress(0xF), GlyphSize)
	if glyph[0] != 0xF0 || glyph[4] != 0x80 {
		t.Errorf("font glyph F not loaded: got % X", glyph)
	}
}

func TestNewInterpreter_OversizeROM(t *testing.T) {
	_, err := NewInterpreter(make([]byte, MaxROMSize+1))
	if !errors.Is(err, ErrMalformedROM) {
		t.Errorf("expected ErrMalformedROM, got %v", err)
	}
}

func TestAddImmediate(t *testing.T) {
	tests := []struct {
		start, kk, want byte
	}{
		{0x00, 0x01, 0x01},
		{0x10, 0x20, 0x30},
		{0xFF, 0x01, 0x00},
		{0xFF, 0x02, 0x01},
		{0x80, 0x80, 0x00},
	}

	for _, tc := range tests {
		c := newTestInterpreter(t, 0x7000|uint16(tc.kk))
		c.Regs.V[0] = tc.start
		c.Regs.V[RegVF] = 0x5A
		steps(t, c, 1)

		if c.Regs.V[0] != tc.want {
			t.Errorf("ADD V0, 0x%02X from 0x%02X: expected 0x%02X, got 0x%02X", tc.kk, tc.start, tc.want, c.Regs.V[0])
		}
		if c.Regs.V[RegVF] != 0x5A {
			t.Errorf("ADD V0, byte changed VF to 0x%02X", c.Regs.V[RegVF])
		}
	}
}

func TestArithmeticFlags(t *testing.T) {
	tests := []struct {
		name        string
		word        uint16
		vx, vy      byte
		wantVx      byte
		wantVF      byte
		checkVFOnly bool
	}{
		{"ADD no carry", 0x8014, 0x10, 0x20, 0x30, 0, false},
		{"ADD carry", 0x8014, 0xFF, 0x02, 0x01, 1, false},
		{"ADD exact 0x100", 0x8014, 0x80, 0x80, 0x00, 1, false},
		{"SUB no borrow", 0x8015, 0x05, 0x03, 0x02, 1, false},
		{"SUB borrow", 0x8015, 0x03, 0x05, 0xFE, 0, false},
		{"SUB equal", 0x8015, 0x07, 0x07, 0x00, 0, false},
		{"SUBN no borrow", 0x8017, 0x03, 0x05, 0x02, 1, false},
		{"SUBN borrow", 0x8017, 0x05, 0x03, 0xFE, 0, false},
		{"SHR odd", 0x8016, 0x05, 0x00, 0x02, 1, false},
		{"SHR even", 0x8016, 0x04, 0x00, 0x02, 0, false},
		{"SHL high bit", 0x801E, 0x81, 0x00, 0x02, 1, false},
		{"SHL no high bit", 0x801E, 0x41, 0x00, 0x82, 0, false},
		{"OR", 0x8011, 0xF0, 0x0F, 0xFF, 0, true},
		{"AND", 0x8012, 0xF0, 0x3C, 0x30, 0, true},
		{"XOR", 0x8013, 0xFF, 0x0F, 0xF0, 0, true},
		{"LD", 0x8010, 0x11, 0x22, 0x22, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestInterpreter(t, tt.word)
			c.Regs.V[0] = tt.vx
			c.Regs.V[1] = tt.vy
			c.Regs.V[RegVF] = 0x77
			steps(t, c, 1)

			if c.Regs.V[0] != tt.wantVx {
				t.Errorf("Vx: expected 0x%02X, got 0x%02X", tt.wantVx, c.Regs.V[0])
			}
			if tt.checkVFOnly {
				if c.Regs.V[RegVF] != 0x77 {
					t.Errorf("VF changed to 0x%02X", c.Regs.V[RegVF])
				}
				return
			}
			if c.Regs.V[RegVF] != tt.wantVF {
				t.Errorf("VF: expected %d, got %d", tt.wantVF, c.Regs.V[RegVF])
			}
		})
	}
}

func TestFlagWrittenBeforeResult(t *testing.T) {
	// ADD VF, V1: the sum overwrites the carry.
	c := newTestInterpreter(t, 0x8F14)
	c.Regs.V[RegVF] = 0xFF
	c.Regs.V[1] = 0x02
	steps(t, c, 1)
	if c.Regs.V[RegVF] != 0x01 {
		t.Errorf("ADD VF, V1: expected VF=0x01, got 0x%02X", c.Regs.V[RegVF])
	}

	// SHL VF: the shifted value overwrites the flag.
	c = newTestInterpreter(t, 0x8F0E)
	c.Regs.V[RegVF] = 0x81
	steps(t, c, 1)
	if c.Regs.V[RegVF] != 0x02 {
		t.Errorf("SHL VF: expected VF=0x02, got 0x%02X", c.Regs.V[RegVF])
	}
}

func TestSkips(t *testing.T) {
	tests := []struct {
		name   string
		word   uint16
		v0, v1 byte
		key    int // -1 for none
		skip   bool
	}{
		{"SE imm equal", 0x3042, 0x42, 0, -1, true},
		{"SE imm differ", 0x3042, 0x41, 0, -1, false},
		{"SNE imm equal", 0x4042, 0x42, 0, -1, false},
		{"SNE imm differ", 0x4042, 0x41, 0, -1, true},
		{"SE reg equal", 0x5010, 0x09, 0x09, -1, true},
		{"SE reg differ", 0x5010, 0x09, 0x08, -1, false},
		{"SNE reg equal", 0x9010, 0x09, 0x09, -1, false},
		{"SNE reg differ", 0x9010, 0x09, 0x08, -1, true},
		{"SKP down", 0xE09E, 0x0C, 0, 0xC, true},
		{"SKP up", 0xE09E, 0x0C, 0, -1, false},
		{"SKNP down", 0xE0A1, 0x0C, 0, 0xC, false},
		{"SKNP up", 0xE0A1, 0x0C, 0, -1, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestInterpreter(t, tt.word)
			c.Regs.V[0] = tt.v0
			c.Regs.V[1] = tt.v1
			if tt.key >= 0 {
				c.Keypad.SetKey(byte(tt.key), true)
			}
			steps(t, c, 1)

			want := uint16(ProgramStart + 2)
			if tt.skip {
				want += 2
			}
			if c.Regs.PC != want {
				t.Errorf("PC: expected 0x%03X, got 0x%03X", want, c.Regs.PC)
			}
		})
	}
}

func TestJumps(t *testing.T) {
	c := newTestInterpreter(t, 0x1234)
	steps(t, c, 1)
	if c.Regs.PC != 0x234 {
		t.Errorf("JP 0x234: expected PC=0x234, got 0x%03X", c.Regs.PC)
	}

	c = newTestInterpreter(t, 0x6004, 0xB300)
	steps(t, c, 2)
	if c.Regs.PC != 0x304 {
		t.Errorf("JP V0, 0x300: expected PC=0x304, got 0x%03X", c.Regs.PC)
	}
}

func TestCallReturn(t *testing.T) {
	// 0x200: CALL 0x206
	// 0x202: LD V1, 0x01
	// 0x204: JP 0x204
	// 0x206: LD V0, 0x33
	// 0x208: RET
	c := newTestInterpreter(t, 0x2206, 0x6101, 0x1204, 0x6033, 0x00EE)

	steps(t, c, 1)
	if c.Regs.PC != 0x206 {
		t.Errorf("after CALL: expected PC=0x206, got 0x%03X", c.Regs.PC)
	}
	if c.Regs.SP != 1 || c.Regs.Stack[0] != 0x202 {
		t.Errorf("after CALL: expected return address 0x202 on stack, got SP=%d top=0x%03X", c.Regs.SP, c.Regs.Stack[0])
	}

	steps(t, c, 2)
	if c.Regs.PC != 0x202 {
		t.Errorf("after RET: expected PC=0x202, got 0x%03X", c.Regs.PC)
	}
	if c.Regs.SP != 0 {
		t.Errorf("after RET: expected SP=0, got %d", c.Regs.SP)
	}
	if c.Regs.V[0] != 0x33 {
		t.Errorf("subroutine body did not run: V0=0x%02X", c.Regs.V[0])
	}

	steps(t, c, 1)
	if c.Regs.V[1] != 0x01 {
		t.Errorf("instruction after CALL did not run: V1=0x%02X", c.Regs.V[1])
	}
}

func TestStackOverflowHalts(t *testing.T) {
	// CALL 0x200 recurses forever.
	c := newTestInterpreter(t, 0x2200)
	steps(t, c, StackDepth)

	err := c.Step()
	var execErr *ExecError
	if !errors.As(err, &execErr) {
		t.Fatalf("expected *ExecError, got %v", err)
	}
	if !errors.Is(err, ErrStackOverflow) {
		t.Errorf("expected ErrStackOverflow, got %v", err)
	}
	if execErr.PC != 0x200 || execErr.Opcode != 0x2200 {
		t.Errorf("ExecError: expected pc=0x200 opcode=0x2200, got pc=0x%03X opcode=0x%04X", execErr.PC, execErr.Opcode)
	}
	if !c.Halted() {
		t.Error("expected interpreter to be halted")
	}

	err = c.Step()
	if !errors.Is(err, ErrHalted) || !errors.Is(err, ErrStackOverflow) {
		t.Errorf("Step after halt: expected ErrHalted wrapping the cause, got %v", err)
	}

	if err := c.Reset(); err != nil {
		t.Fatalf("Reset: unexpected error %v", err)
	}
	if c.Halted() || c.Regs.SP != 0 {
		t.Error("Reset did not clear halt state")
	}
	steps(t, c, 1)
}

func TestStackUnderflowHalts(t *testing.T) {
	c := newTestInterpreter(t, 0x00EE)

	err := c.Step()
	if !errors.Is(err, ErrStackUnderflow) {
		t.Errorf("expected ErrStackUnderflow, got %v", err)
	}
	if !c.Halted() {
		t.Error("expected interpreter to be halted")
	}
}

func TestBCD(t *testing.T) {
	tests := []struct {
		value byte
		want  [3]byte
	}{
		{234, [3]byte{2, 3, 4}},
		{7, [3]byte{0, 0, 7}},
		{100, [3]byte{1, 0, 0}},
		{255, [3]byte{2, 5, 5}},
	}

	for _, tc := range tests {
		// LD VA, value; LD I, 0x300; LD B, VA
		c := newTestInterpreter(t, 0x6A00|uint16(tc.value), 0xA300, 0xFA33)
		steps(t, c, 3)

		got, _ := c.Memory.Slice(0x300, 3)
		for i := range tc.want {
			if got[i] != tc.want[i] {
				t.Errorf("BCD of %d: digit %d expected %d, got %d", tc.value, i, tc.want[i], got[i])
			}
		}
		if c.Regs.I != 0x300 {
			t.Errorf("BCD changed I to 0x%03X", c.Regs.I)
		}
	}
}

func TestFontGlyphDraw(t *testing.T) {
	// LD VA, 0x0A; LD F, VA; LD V0, 0; DRW V0, V0, 5
	c := newTestInterpreter(t, 0x6A0A, 0xFA29, 0x6000, 0xD005)
	steps(t, c, 4)

	if c.Regs.I != GlyphAddress(0xA) {
		t.Errorf("LD F, VA: expected I=0x%03X, got 0x%03X", GlyphAddress(0xA), c.Regs.I)
	}
	if c.Regs.V[RegVF] != 0 {
		t.Errorf("first draw: expected VF=0, got %d", c.Regs.V[RegVF])
	}

	glyph := Glyph(0xA)
	for row := 0; row < GlyphSize; row++ {
		for col := 0; col < 8; col++ {
			want := glyph[row]&(0x80>>col) != 0
			if got := c.Display.Pixel(col, row); got != want {
				t.Errorf("pixel (%d,%d): expected %v, got %v", col, row, want, got)
			}
		}
	}
}

func TestDrawCollision(t *testing.T) {
	// LD I, glyph 0; DRW twice at (0,0)
	c := newTestInterpreter(t, 0xA000, 0xD005, 0xD005)
	steps(t, c, 2)
	if c.Regs.V[RegVF] != 0 {
		t.Errorf("first draw: expected VF=0, got %d", c.Regs.V[RegVF])
	}

	steps(t, c, 1)
	if c.Regs.V[RegVF] != 1 {
		t.Errorf("second draw: expected VF=1, got %d", c.Regs.V[RegVF])
	}
	if c.Display.Lit() != 0 {
		t.Errorf("drawing twice should clear the sprite, %d pixels lit", c.Display.Lit())
	}
}

func TestDrawOutOfBoundsHalts(t *testing.T) {
	c := newTestInterpreter(t, 0xAFFE, 0xD005)
	steps(t, c, 1)

	err := c.Step()
	if !errors.Is(err, memory.ErrOutOfBounds) {
		t.Errorf("expected ErrOutOfBounds, got %v", err)
	}
	if !c.Halted() {
		t.Error("expected interpreter to be halted")
	}
}

func TestFetchPastEndHalts(t *testing.T) {
	c := newTestInterpreter(t, 0x1FFF)
	steps(t, c, 1)

	err := c.Step()
	var execErr *ExecError
	if !errors.As(err, &execErr) || execErr.PC != 0xFFF {
		t.Errorf("expected *ExecError at 0xFFF, got %v", err)
	}
}

func TestClearScreen(t *testing.T) {
	c := newTestInterpreter(t, 0xA000, 0xD005, 0x00E0)
	steps(t, c, 2)
	if c.Display.Lit() == 0 {
		t.Fatal("expected pixels lit after draw")
	}
	steps(t, c, 1)
	if c.Display.Lit() != 0 {
		t.Errorf("CLS: expected 0 lit pixels, got %d", c.Display.Lit())
	}
}

func TestWaitForKey(t *testing.T) {
	// LD V3, K; LD V1, 0x01
	c := newTestInterpreter(t, 0xF30A, 0x6101)

	for i := 0; i < 5; i++ {
		steps(t, c, 1)
		if c.Regs.PC != 0x200 {
			t.Errorf("cycle %d without key: expected PC=0x200, got 0x%03X", i, c.Regs.PC)
		}
		if !c.AwaitingKey() {
			t.Errorf("cycle %d without key: expected AwaitingKey", i)
		}
	}

	c.Keypad.SetKey(0xB, true)
	c.Keypad.SetKey(0x4, true)
	steps(t, c, 1)

	if c.AwaitingKey() {
		t.Error("expected wait to end after key press")
	}
	if c.Regs.V[3] != 0x4 {
		t.Errorf("V3: expected lowest key index 4, got %d", c.Regs.V[3])
	}
	if c.Regs.PC != 0x202 {
		t.Errorf("PC after key: expected 0x202, got 0x%03X", c.Regs.PC)
	}

	steps(t, c, 1)
	if c.Regs.V[1] != 0x01 {
		t.Errorf("next instruction did not run: V1=0x%02X", c.Regs.V[1])
	}
}

func TestWaitForKeyAlreadyDown(t *testing.T) {
	c := newTestInterpreter(t, 0xF50A)
	c.Keypad.SetKey(0x9, true)
	steps(t, c, 1)

	if c.AwaitingKey() {
		t.Error("expected no wait when a key is already down")
	}
	if c.Regs.V[5] != 0x9 || c.Regs.PC != 0x202 {
		t.Errorf("expected V5=9 PC=0x202, got V5=%d PC=0x%03X", c.Regs.V[5], c.Regs.PC)
	}
}

func TestWaitForKeyTimersKeepRunning(t *testing.T) {
	c := newTestInterpreter(t, 0xF00A)
	c.Regs.Delay = 3
	steps(t, c, 1)

	c.Tick()
	if c.Regs.Delay != 2 {
		t.Errorf("delay while waiting: expected 2, got %d", c.Regs.Delay)
	}
}

func TestUnknownOpcode(t *testing.T) {
	var calls []uint16
	handler := func(pc, opcode uint16) {
		calls = append(calls, pc, opcode)
	}

	c, err := NewInterpreter(romWords(0x0FFF, 0x6001),
		WithLogger(log.NewTestLogger(t)),
		WithUnknownOpcodeHandler(handler))
	if err != nil {
		t.Fatalf("NewInterpreter: unexpected error %v", err)
	}

	steps(t, c, 1)
	if len(calls) != 2 || calls[0] != 0x200 || calls[1] != 0x0FFF {
		t.Errorf("handler: expected one call with (0x200, 0x0FFF), got %v", calls)
	}
	if c.Regs.PC != 0x202 {
		t.Errorf("PC after unknown opcode: expected 0x202, got 0x%03X", c.Regs.PC)
	}
	if c.Halted() {
		t.Error("unknown opcode must not halt")
	}

	steps(t, c, 1)
	if len(calls) != 2 {
		t.Errorf("handler called again for a known opcode")
	}
}

func TestAddI(t *testing.T) {
	c := newTestInterpreter(t, 0xAFFF, 0x6002, 0xF01E)
	steps(t, c, 3)
	if c.Regs.I != 0x1001 {
		t.Errorf("ADD I past 0xFFF: expected I=0x1001, got 0x%04X", c.Regs.I)
	}
	if c.Regs.V[RegVF] != 1 {
		t.Errorf("ADD I past 0xFFF: expected VF=1, got %d", c.Regs.V[RegVF])
	}

	c = newTestInterpreter(t, 0xA100, 0x6002, 0xF01E)
	steps(t, c, 3)
	if c.Regs.I != 0x102 || c.Regs.V[RegVF] != 0 {
		t.Errorf("ADD I: expected I=0x102 VF=0, got I=0x%04X VF=%d", c.Regs.I, c.Regs.V[RegVF])
	}

	// I wraps at 16 bits.
	c = newTestInterpreter(t, 0x6002, 0xF01E)
	c.Regs.I = 0xFFFF
	steps(t, c, 2)
	if c.Regs.I != 0x0001 {
		t.Errorf("ADD I at 0xFFFF: expected I=0x0001, got 0x%04X", c.Regs.I)
	}
}

func TestRandom(t *testing.T) {
	c, err := NewInterpreter(romWords(0xC30F, 0xC4F0),
		WithLogger(log.NewTestLogger(t)),
		WithRandom(fixedRandom(0x12AB)))
	if err != nil {
		t.Fatalf("NewInterpreter: unexpected error %v", err)
	}
	steps(t, c, 2)

	if c.Regs.V[3] != 0x0B {
		t.Errorf("RND V3, 0x0F: expected 0x0B, got 0x%02X", c.Regs.V[3])
	}
	if c.Regs.V[4] != 0xA0 {
		t.Errorf("RND V4, 0xF0: expected 0xA0, got 0x%02X", c.Regs.V[4])
	}
}

func TestRandomSeedReproducible(t *testing.T) {
	run := func() byte {
		c, err := NewInterpreter(romWords(0xC0FF), WithLogger(log.NewTestLogger(t)), WithSeed(42))
		if err != nil {
			t.Fatalf("NewInterpreter: unexpected error %v", err)
		}
		steps(t, c, 1)
		return c.Regs.V[0]
	}
	if a, b := run(), run(); a != b {
		t.Errorf("same seed produced 0x%02X and 0x%02X", a, b)
	}
}

func TestTimers(t *testing.T) {
	// LD V0, 5; LD DT, V0; LD ST, V0; LD V1, DT
	c := newTestInterpreter(t, 0x6005, 0xF015, 0xF018, 0xF107)
	steps(t, c, 3)
	if !c.SoundActive() {
		t.Error("expected sound to be active")
	}

	c.Tick()
	steps(t, c, 1)
	if c.Regs.V[1] != 4 {
		t.Errorf("LD V1, DT: expected 4, got %d", c.Regs.V[1])
	}

	for i := 0; i < 10; i++ {
		c.Tick()
	}
	if c.Regs.Delay != 0 || c.SoundActive() {
		t.Errorf("timers should stop at 0, got delay=%d sound=%d", c.Regs.Delay, c.Regs.Sound)
	}
}

func TestRegisterDumpLoad(t *testing.T) {
	// V0..V2 = 1,2,3; LD I, 0x300; LD [I], V2; clear; LD V2, [I]
	c := newTestInterpreter(t, 0x6001, 0x6102, 0x6203, 0xA300, 0xF255, 0x6000, 0x6100, 0x6200, 0xF265)
	steps(t, c, 5)

	mem, _ := c.Memory.Slice(0x300, 4)
	if mem[0] != 1 || mem[1] != 2 || mem[2] != 3 || mem[3] != 0 {
		t.Errorf("LD [I], V2: expected 01 02 03 00, got % X", mem)
	}
	if c.Regs.I != 0x300 {
		t.Errorf("LD [I], V2 changed I to 0x%03X", c.Regs.I)
	}

	steps(t, c, 4)
	if c.Regs.V[0] != 1 || c.Regs.V[1] != 2 || c.Regs.V[2] != 3 {
		t.Errorf("LD V2, [I]: expected 1 2 3, got %d %d %d", c.Regs.V[0], c.Regs.V[1], c.Regs.V[2])
	}
}

func TestRunStopsOnContext(t *testing.T) {
	c := newTestInterpreter(t, 0x1200)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := c.Run(ctx, 100); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}

	if err := c.Run(context.Background(), 100); err != nil {
		t.Errorf("Run: unexpected error %v", err)
	}
	if c.Regs.PC != 0x200 {
		t.Errorf("JP loop: expected PC=0x200, got 0x%03X", c.Regs.PC)
	}
}

func TestRunStopsOnFatalError(t *testing.T) {
	c := newTestInterpreter(t, 0x00EE)
	if err := c.Run(context.Background(), 10); !errors.Is(err, ErrStackUnderflow) {
		t.Errorf("expected ErrStackUnderflow, got %v", err)
	}
}
