// Package asm is a two-pass assembler for CHIP-8 source using the canonical
// mnemonics (CLS, LD Vx, byte, DRW Vx, Vy, nibble, ...). Output is big-endian
// and addressed from cpu.ProgramStart.
package asm

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"

	"gochip8/pkg/cpu"
	"gochip8/pkg/memory"
)

type operandKind int

const (
	operandReg  operandKind = iota // V0..VF
	operandImm                     // number or label
	operandI                       // I
	operandIndI                    // [I]
	operandDT                      // DT
	operandST                      // ST
	operandK                       // K
	operandF                       // F
	operandB                       // B
)

type operand struct {
	kind operandKind
	reg  byte
	text string
}

// form is one accepted operand shape of a mnemonic and the base word it
// encodes to.
type form struct {
	kinds []operandKind
	base  uint16
	enc   func(a *Assembler, base uint16, ops []operand, lineNo int) (uint16, error)
}

var (
	xOnly = func(_ *Assembler, base uint16, ops []operand, _ int) (uint16, error) {
		return base | uint16(ops[0].reg)<<8, nil
	}
	xy = func(_ *Assembler, base uint16, ops []operand, _ int) (uint16, error) {
		return base | uint16(ops[0].reg)<<8 | uint16(ops[1].reg)<<4, nil
	}
	xByte = func(a *Assembler, base uint16, ops []operand, lineNo int) (uint16, error) {
		kk, err := a.parseImmediate(ops[1].text, 0xFF, lineNo)
		if err != nil {
			return 0, err
		}
		return base | uint16(ops[0].reg)<<8 | kk, nil
	}
	addrOnly = func(a *Assembler, base uint16, ops []operand, lineNo int) (uint16, error) {
		nnn, err := a.parseImmediate(ops[len(ops)-1].text, 0xFFF, lineNo)
		if err != nil {
			return 0, err
		}
		return base | nnn, nil
	}
	// xSecond encodes the register of the second operand as x.
	xSecond = func(_ *Assembler, base uint16, ops []operand, _ int) (uint16, error) {
		return base | uint16(ops[1].reg)<<8, nil
	}
	none = func(_ *Assembler, base uint16, _ []operand, _ int) (uint16, error) {
		return base, nil
	}
)

var instructions = map[string][]form{
	"CLS":  {{nil, 0x00E0, none}},
	"RET":  {{nil, 0x00EE, none}},
	"JP":   {{[]operandKind{operandImm}, 0x1000, addrOnly}, {[]operandKind{operandReg, operandImm}, 0xB000, jpV0}},
	"CALL": {{[]operandKind{operandImm}, 0x2000, addrOnly}},
	"SE":   {{[]operandKind{operandReg, operandImm}, 0x3000, xByte}, {[]operandKind{operandReg, operandReg}, 0x5000, xy}},
	"SNE":  {{[]operandKind{operandReg, operandImm}, 0x4000, xByte}, {[]operandKind{operandReg, operandReg}, 0x9000, xy}},
	"LD": {
		{[]operandKind{operandReg, operandImm}, 0x6000, xByte},
		{[]operandKind{operandReg, operandReg}, 0x8000, xy},
		{[]operandKind{operandI, operandImm}, 0xA000, addrOnly},
		{[]operandKind{operandReg, operandDT}, 0xF007, xOnly},
		{[]operandKind{operandReg, operandK}, 0xF00A, xOnly},
		{[]operandKind{operandDT, operandReg}, 0xF015, xSecond},
		{[]operandKind{operandST, operandReg}, 0xF018, xSecond},
		{[]operandKind{operandF, operandReg}, 0xF029, xSecond},
		{[]operandKind{operandB, operandReg}, 0xF033, xSecond},
		{[]operandKind{operandIndI, operandReg}, 0xF055, xSecond},
		{[]operandKind{operandReg, operandIndI}, 0xF065, xOnly},
	},
	"ADD": {
		{[]operandKind{operandReg, operandImm}, 0x7000, xByte},
		{[]operandKind{operandReg, operandReg}, 0x8004, xy},
		{[]operandKind{operandI, operandReg}, 0xF01E, xSecond},
	},
	"OR":   {{[]operandKind{operandReg, operandReg}, 0x8001, xy}},
	"AND":  {{[]operandKind{operandReg, operandReg}, 0x8002, xy}},
	"XOR":  {{[]operandKind{operandReg, operandReg}, 0x8003, xy}},
	"SUB":  {{[]operandKind{operandReg, operandReg}, 0x8005, xy}},
	"SHR":  {{[]operandKind{operandReg}, 0x8006, xOnly}, {[]operandKind{operandReg, operandReg}, 0x8006, xy}},
	"SUBN": {{[]operandKind{operandReg, operandReg}, 0x8007, xy}},
	"SHL":  {{[]operandKind{operandReg}, 0x800E, xOnly}, {[]operandKind{operandReg, operandReg}, 0x800E, xy}},
	"RND":  {{[]operandKind{operandReg, operandImm}, 0xC000, xByte}},
	"DRW":  {{[]operandKind{operandReg, operandReg, operandImm}, 0xD000, drw}},
	"SKP":  {{[]operandKind{operandReg}, 0xE09E, xOnly}},
	"SKNP": {{[]operandKind{operandReg}, 0xE0A1, xOnly}},
}

func jpV0(a *Assembler, base uint16, ops []operand, lineNo int) (uint16, error) {
	if ops[0].reg != 0 {
		return 0, fmt.Errorf("JP with offset only accepts V0 on line %d", lineNo)
	}
	return addrOnly(a, base, ops, lineNo)
}

func drw(a *Assembler, base uint16, ops []operand, lineNo int) (uint16, error) {
	n, err := a.parseImmediate(ops[2].text, 0xF, lineNo)
	if err != nil {
		return 0, err
	}
	return base | uint16(ops[0].reg)<<8 | uint16(ops[1].reg)<<4 | n, nil
}

type Assembler struct {
	labels map[string]uint16
}

type parsedLine struct {
	lineNo   int
	labels   []string
	mnemonic string
	operands []string
}

func NewAssembler() *Assembler {
	return &Assembler{
		labels: make(map[string]uint16),
	}
}

// Assemble returns the ROM image to load at cpu.ProgramStart and a map of
// instruction address to source line.
func Assemble(code string) ([]byte, map[uint16]int, error) {
	return NewAssembler().Assemble(code)
}

func (a *Assembler) Assemble(code string) ([]byte, map[uint16]int, error) {
	lines := strings.Split(code, "\n")

	if err := a.pass1(lines); err != nil {
		return nil, nil, err
	}

	return a.pass2(lines)
}

func (a *Assembler) pass1(lines []string) error {
	address := uint32(cpu.ProgramStart)

	for i, raw := range lines {
		lineNo := i + 1
		p, err := parseLine(raw, lineNo)
		if err != nil {
			return err
		}

		for _, lbl := range p.labels {
			key := normalizeLabel(lbl)
			if _, exists := a.labels[key]; exists {
				return fmt.Errorf("duplicate label '%s' on line %d", lbl, lineNo)
			}
			a.labels[key] = uint16(address)
		}

		if p.mnemonic == "" {
			continue
		}

		if p.mnemonic == ".ORG" {
			target, err := parseOrigin(p.operands, address, lineNo)
			if err != nil {
				return err
			}
			address = target
			continue
		}

		length, err := statementLength(p)
		if err != nil {
			return err
		}
		if address+length > memory.Size {
			return fmt.Errorf("program too large near line %d", lineNo)
		}
		address += length
	}

	return nil
}

func (a *Assembler) pass2(lines []string) ([]byte, map[uint16]int, error) {
	program := make([]byte, 0)
	sourceMap := make(map[uint16]int)

	for i, raw := range lines {
		lineNo := i + 1
		p, err := parseLine(raw, lineNo)
		if err != nil {
			return nil, nil, err
		}

		if p.mnemonic == "" {
			continue
		}

		address := uint32(cpu.ProgramStart) + uint32(len(program))

		switch p.mnemonic {
		case ".ORG":
			target, err := parseOrigin(p.operands, address, lineNo)
			if err != nil {
				return nil, nil, err
			}
			program = append(program, make([]byte, target-address)...)
			continue

		case ".BYTE":
			sourceMap[uint16(address)] = lineNo
			for _, tok := range p.operands {
				val, err := a.parseImmediate(tok, 0xFF, lineNo)
				if err != nil {
					return nil, nil, err
				}
				program = append(program, byte(val))
			}
			continue

		case ".WORD":
			sourceMap[uint16(address)] = lineNo
			for _, tok := range p.operands {
				val, err := a.parseImmediate(tok, 0xFFFF, lineNo)
				if err != nil {
					return nil, nil, err
				}
				program = append(program, byte(val>>8), byte(val))
			}
			continue
		}

		sourceMap[uint16(address)] = lineNo
		word, err := a.encode(p)
		if err != nil {
			return nil, nil, err
		}
		program = append(program, byte(word>>8), byte(word))
	}

	return program, sourceMap, nil
}

func (a *Assembler) encode(p parsedLine) (uint16, error) {
	forms, ok := instructions[p.mnemonic]
	if !ok {
		return 0, fmt.Errorf("unknown instruction on line %d: %s", p.lineNo, p.mnemonic)
	}

	ops := make([]operand, len(p.operands))
	for i, tok := range p.operands {
		ops[i] = classifyOperand(tok)
	}

	for _, f := range forms {
		if matchForm(f.kinds, ops) {
			return f.enc(a, f.base, ops, p.lineNo)
		}
	}
	return 0, fmt.Errorf("invalid operands for %s on line %d: %s", p.mnemonic, p.lineNo, strings.Join(p.operands, ", "))
}

func matchForm(kinds []operandKind, ops []operand) bool {
	if len(kinds) != len(ops) {
		return false
	}
	for i, k := range kinds {
		if ops[i].kind != k {
			return false
		}
	}
	return true
}

func classifyOperand(tok string) operand {
	switch strings.ToUpper(tok) {
	case "I":
		return operand{kind: operandI, text: tok}
	case "[I]":
		return operand{kind: operandIndI, text: tok}
	case "DT":
		return operand{kind: operandDT, text: tok}
	case "ST":
		return operand{kind: operandST, text: tok}
	case "K":
		return operand{kind: operandK, text: tok}
	case "F":
		return operand{kind: operandF, text: tok}
	case "B":
		return operand{kind: operandB, text: tok}
	}
	if reg, ok := parseRegister(tok); ok {
		return operand{kind: operandReg, reg: reg, text: tok}
	}
	return operand{kind: operandImm, text: tok}
}

// statementLength returns the byte length of an instruction or data
// directive.
func statementLength(p parsedLine) (uint32, error) {
	switch p.mnemonic {
	case ".BYTE":
		if len(p.operands) == 0 {
			return 0, fmt.Errorf(".BYTE expects at least one operand on line %d", p.lineNo)
		}
		return uint32(len(p.operands)), nil
	case ".WORD":
		if len(p.operands) == 0 {
			return 0, fmt.Errorf(".WORD expects at least one operand on line %d", p.lineNo)
		}
		return uint32(len(p.operands)) * 2, nil
	}
	if _, ok := instructions[p.mnemonic]; !ok {
		return 0, fmt.Errorf("unknown instruction on line %d: %s", p.lineNo, p.mnemonic)
	}
	return 2, nil
}

func parseOrigin(operands []string, address uint32, lineNo int) (uint32, error) {
	if len(operands) != 1 {
		return 0, fmt.Errorf(".ORG expects exactly one operand on line %d", lineNo)
	}
	target, err := parseNumber(operands[0])
	if err != nil {
		return 0, fmt.Errorf("invalid .ORG value on line %d: %s", lineNo, operands[0])
	}
	if target >= memory.Size {
		return 0, fmt.Errorf(".ORG out of range on line %d: %s", lineNo, operands[0])
	}
	if uint32(target) < address {
		return 0, fmt.Errorf("cannot move origin backward on line %d", lineNo)
	}
	return uint32(target), nil
}

func parseLine(raw string, lineNo int) (parsedLine, error) {
	p := parsedLine{lineNo: lineNo}

	line := strings.TrimSpace(stripComments(raw))
	if line == "" {
		return p, nil
	}

	for {
		colon := strings.IndexByte(line, ':')
		if colon <= 0 {
			break
		}

		beforeColon := strings.TrimSpace(line[:colon])
		if strings.ContainsAny(beforeColon, " \t") {
			break
		}

		if !isIdentifier(beforeColon) {
			return p, fmt.Errorf("invalid label '%s' on line %d", beforeColon, lineNo)
		}

		p.labels = append(p.labels, beforeColon)
		line = strings.TrimSpace(line[colon+1:])
		if line == "" {
			return p, nil
		}
	}

	fields := strings.Fields(normalizeInstructionText(line))
	if len(fields) == 0 {
		return p, nil
	}

	p.mnemonic = strings.ToUpper(fields[0])
	if p.mnemonic == "DB" {
		p.mnemonic = ".BYTE"
	}
	if p.mnemonic == "DW" {
		p.mnemonic = ".WORD"
	}
	if len(fields) > 1 {
		p.operands = fields[1:]
	}

	return p, nil
}

func stripComments(line string) string {
	semicolon := strings.Index(line, ";")
	doubleSlash := strings.Index(line, "//")

	cut := -1
	if semicolon >= 0 {
		cut = semicolon
	}
	if doubleSlash >= 0 && (cut == -1 || doubleSlash < cut) {
		cut = doubleSlash
	}
	if cut >= 0 {
		return line[:cut]
	}
	return line
}

func normalizeInstructionText(line string) string {
	return strings.ReplaceAll(line, ",", " ")
}

func parseRegister(token string) (byte, bool) {
	if len(token) != 2 || (token[0] != 'V' && token[0] != 'v') {
		return 0, false
	}
	val, err := strconv.ParseUint(token[1:], 16, 8)
	if err != nil {
		return 0, false
	}
	return byte(val), true
}

// parseNumber accepts Go integer literals (0x1F, 0b101, 31) and $-prefixed
// hex (1F).
func parseNumber(token string) (uint64, error) {
	if hex, ok := strings.CutPrefix(token, "$"); ok {
		return strconv.ParseUint(hex, 16, 32)
	}
	return strconv.ParseUint(token, 0, 32)
}

func (a *Assembler) parseImmediate(token string, limit uint16, lineNo int) (uint16, error) {
	if value, err := parseNumber(token); err == nil {
		if value > uint64(limit) {
			return 0, fmt.Errorf("immediate out of range on line %d: %s", lineNo, token)
		}
		return uint16(value), nil
	}

	if addr, ok := a.labels[normalizeLabel(token)]; ok {
		if addr > limit {
			return 0, fmt.Errorf("label '%s' out of range on line %d", token, lineNo)
		}
		return addr, nil
	}

	if isIdentifier(token) {
		return 0, fmt.Errorf("undefined label '%s' on line %d", token, lineNo)
	}

	return 0, fmt.Errorf("invalid immediate '%s' on line %d", token, lineNo)
}

func isIdentifier(s string) bool {
	if s == "" {
		return false
	}

	for i, r := range s {
		if i == 0 {
			if !unicode.IsLetter(r) && r != '_' {
				return false
			}
			continue
		}

		if !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '_' {
			return false
		}
	}

	return true
}

func normalizeLabel(label string) string {
	return strings.ToUpper(label)
}
