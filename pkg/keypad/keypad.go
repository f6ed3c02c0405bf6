// Package keypad holds the state of the 16-key hexadecimal keypad.
//
// The original keypad layout:
//
//	+---+---+---+---+
//	| 1 | 2 | 3 | C |
//	+---+---+---+---+
//	| 4 | 5 | 6 | D |
//	+---+---+---+---+
//	| 7 | 8 | 9 | E |
//	+---+---+---+---+
//	| A | 0 | B | F |
//	+---+---+---+---+
//
// Key state is written by the host input layer between cycle batches and read
// by the interpreter during a cycle; the two never overlap.
package keypad

// Count is the number of keys.
const Count = 16

// Keypad tracks which of the Count keys are held down.
type Keypad struct {
	state [Count]bool
}

// New returns a keypad with every key up.
func New() *Keypad {
	return &Keypad{}
}

// SetKey marks key index as down or up. Only the low nibble of index is used.
func (k *Keypad) SetKey(index byte, down bool) {
	k.state[index&0x0F] = down
}

// IsDown reports whether key index is currently down.
func (k *Keypad) IsDown(index byte) bool {
	return k.state[index&0x0F]
}

// FirstDown returns the lowest key index that is down.
func (k *Keypad) FirstDown() (byte, bool) {
	for i, down := range k.state {
		if down {
			return byte(i), true
		}
	}
	return 0, false
}

// Reset releases every key.
func (k *Keypad) Reset() {
	k.state = [Count]bool{}
}

// Binding maps a host keyboard key name to a keypad index.
type Binding struct {
	Name  string
	Index byte
}

// Bindings is the default host layout: the left-hand 4x4 block of a QWERTY
// keyboard mirrors the keypad grid.
var Bindings = []Binding{
	{"1", 0x1}, {"2", 0x2}, {"3", 0x3}, {"4", 0xC},
	{"Q", 0x4}, {"W", 0x5}, {"E", 0x6}, {"R", 0xD},
	{"A", 0x7}, {"S", 0x8}, {"D", 0x9}, {"F", 0xE},
	{"Z", 0xA}, {"X", 0x0}, {"C", 0xB}, {"V", 0xF},
}
