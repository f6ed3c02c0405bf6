// Package disasm renders CHIP-8 instruction words as assembler text.
package disasm

import (
	"fmt"
	"io"
	"strings"

	"github.com/retroenv/retrogolib/arch/cpu/chip8"

	"gochip8/pkg/cpu"
)

// Disassemble returns the text of a single instruction word, for example
// "drw V2, V3, $5". Words that do not decode are rendered as data bytes.
func Disassemble(word uint16) string {
	op := cpu.Decode(word)
	if op.Kind == cpu.OpUnknown {
		return formatData(byte(word>>8), byte(word))
	}

	name := instructionName(op)
	params := formatParams(op)
	if params == "" {
		return name
	}
	return name + " " + params
}

// Listing writes one line per word of rom, addressed from base:
//
//	200  00E0  cls
//
// A trailing odd byte is written as data.
func Listing(w io.Writer, rom []byte, base uint16) error {
	addr := uint32(base)
	for i := 0; i < len(rom); i += 2 {
		var line string
		if i+1 == len(rom) {
			line = fmt.Sprintf("%03X  %02X    %s\n", addr, rom[i], formatData(rom[i]))
		} else {
			word := uint16(rom[i])<<8 | uint16(rom[i+1])
			line = fmt.Sprintf("%03X  %04X  %s\n", addr, word, Disassemble(word))
		}
		if _, err := io.WriteString(w, line); err != nil {
			return fmt.Errorf("writing listing line at %03X: %w", addr, err)
		}
		addr += 2
	}
	return nil
}

// instructionName looks the word up in the CHIP-8 opcode table. Words the
// interpreter accepts beyond the table's strict masks (5xyN, 9xyN, 0nE0) fall
// back to the decoded kind.
func instructionName(op cpu.Op) string {
	fallback := strings.ToLower(strings.Fields(op.Kind.String())[0])

	for _, entry := range chip8.Opcodes[int(op.Word>>12)] {
		if entry.Info.Mask&op.Word == entry.Info.Value && entry.Instruction != nil {
			if strings.EqualFold(entry.Instruction.Name, fallback) {
				return entry.Instruction.Name
			}
			break
		}
	}
	return fallback
}

func formatParams(op cpu.Op) string {
	x, y := op.X, op.Y

	switch op.Kind {
	case cpu.OpCLS, cpu.OpRET:
		return ""
	case cpu.OpJP, cpu.OpCALL:
		return fmt.Sprintf("$%03X", op.Addr)
	case cpu.OpJPV0:
		return fmt.Sprintf("V0, $%03X", op.Addr)
	case cpu.OpSEImm, cpu.OpSNEImm, cpu.OpLDImm, cpu.OpADDImm, cpu.OpRND:
		return fmt.Sprintf("V%X, $%02X", x, op.KK)
	case cpu.OpSEReg, cpu.OpSNEReg, cpu.OpLDReg, cpu.OpADDReg,
		cpu.OpOR, cpu.OpAND, cpu.OpXOR, cpu.OpSUB, cpu.OpSUBN:
		return fmt.Sprintf("V%X, V%X", x, y)
	case cpu.OpSHR, cpu.OpSHL, cpu.OpSKP, cpu.OpSKNP:
		return fmt.Sprintf("V%X", x)
	case cpu.OpLDI:
		return fmt.Sprintf("I, $%03X", op.Addr)
	case cpu.OpDRW:
		return fmt.Sprintf("V%X, V%X, $%X", x, y, op.N)
	case cpu.OpLDVxDT:
		return fmt.Sprintf("V%X, DT", x)
	case cpu.OpLDVxK:
		return fmt.Sprintf("V%X, K", x)
	case cpu.OpLDDTVx:
		return fmt.Sprintf("DT, V%X", x)
	case cpu.OpLDSTVx:
		return fmt.Sprintf("ST, V%X", x)
	case cpu.OpADDI:
		return fmt.Sprintf("I, V%X", x)
	case cpu.OpLDF:
		return fmt.Sprintf("F, V%X", x)
	case cpu.OpLDB:
		return fmt.Sprintf("B, V%X", x)
	case cpu.OpLDMemVx:
		return fmt.Sprintf("[I], V%X", x)
	case cpu.OpLDVxMem:
		return fmt.Sprintf("V%X, [I]", x)
	}
	return ""
}

func formatData(b ...byte) string {
	parts := make([]string, len(b))
	for i, v := range b {
		parts[i] = fmt.Sprintf("$%02X", v)
	}
	return "db " + strings.Join(parts, ", ")
}
