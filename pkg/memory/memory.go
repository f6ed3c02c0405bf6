package memory

import (
	"errors"
	"fmt"
)

// Size is the number of addressable bytes.
const Size = 4096

// ErrOutOfBounds is returned for any access at or beyond Size.
var ErrOutOfBounds = errors.New("memory access out of bounds")

// Memory is a flat byte-addressable store.
type Memory struct {
	data [Size]byte
}

// New returns zeroed memory.
func New() *Memory {
	return &Memory{}
}

// Byte reads a single byte from addr.
func (m *Memory) Byte(addr uint16) (byte, error) {
	if int(addr) >= Size {
		return 0, fmt.Errorf("read byte at 0x%04X: %w", addr, ErrOutOfBounds)
	}
	return m.data[addr], nil
}

// SetByte writes a single byte to addr.
func (m *Memory) SetByte(addr uint16, val byte) error {
	if int(addr) >= Size {
		return fmt.Errorf("write byte at 0x%04X: %w", addr, ErrOutOfBounds)
	}
	m.data[addr] = val
	return nil
}

// ReadWord reads a big-endian uint16 from addr and addr+1.
func (m *Memory) ReadWord(addr uint16) (uint16, error) {
	if int(addr)+1 >= Size {
		return 0, fmt.Errorf("read word at 0x%04X: %w", addr, ErrOutOfBounds)
	}
	hi := uint16(m.data[addr])
	lo := uint16(m.data[addr+1])
	return hi<<8 | lo, nil
}

// Load copies src into memory starting at dst.
func (m *Memory) Load(dst uint16, src []byte) error {
	if int(dst)+len(src) > Size {
		return fmt.Errorf("load %d bytes at 0x%04X: %w", len(src), dst, ErrOutOfBounds)
	}
	copy(m.data[dst:], src)
	return nil
}

// Slice returns the n bytes starting at addr. The returned slice aliases
// memory and must not be written to.
func (m *Memory) Slice(addr uint16, n int) ([]byte, error) {
	if n < 0 || int(addr)+n > Size {
		return nil, fmt.Errorf("slice %d bytes at 0x%04X: %w", n, addr, ErrOutOfBounds)
	}
	return m.data[addr : int(addr)+n : int(addr)+n], nil
}

// Clear zeroes every byte.
func (m *Memory) Clear() {
	m.data = [Size]byte{}
}
