package cpu

import (
	"fmt"

	"gochip8/pkg/memory"
)

// MaxROMSize is the largest image that fits between ProgramStart and the top
// of memory.
const MaxROMSize = memory.Size - ProgramStart

// ValidateROM checks that rom fits into program memory.
func ValidateROM(rom []byte) error {
	if len(rom) > MaxROMSize {
		return fmt.Errorf("%w: %d bytes exceeds maximum of %d", ErrMalformedROM, len(rom), MaxROMSize)
	}
	return nil
}
