package cpu

// OpKind identifies a decoded instruction.
type OpKind uint8

const (
	OpUnknown OpKind = iota
	OpCLS            // 00E0
	OpRET            // 00EE
	OpJP             // 1nnn
	OpCALL           // 2nnn
	OpSEImm          // 3xkk
	OpSNEImm         // 4xkk
	OpSEReg          // 5xy0
	OpLDImm          // 6xkk
	OpADDImm         // 7xkk
	OpLDReg          // 8xy0
	OpOR             // 8xy1
	OpAND            // 8xy2
	OpXOR            // 8xy3
	OpADDReg         // 8xy4
	OpSUB            // 8xy5
	OpSHR            // 8xy6
	OpSUBN           // 8xy7
	OpSHL            // 8xyE
	OpSNEReg         // 9xy0
	OpLDI            // Annn
	OpJPV0           // Bnnn
	OpRND            // Cxkk
	OpDRW            // Dxyn
	OpSKP            // Ex9E
	OpSKNP           // ExA1
	OpLDVxDT         // Fx07
	OpLDVxK          // Fx0A
	OpLDDTVx         // Fx15
	OpLDSTVx         // Fx18
	OpADDI           // Fx1E
	OpLDF            // Fx29
	OpLDB            // Fx33
	OpLDMemVx        // Fx55
	OpLDVxMem        // Fx65

	opKindCount
)

var opKindNames = [opKindCount]string{
	OpUnknown: "UNKNOWN",
	OpCLS:     "CLS",
	OpRET:     "RET",
	OpJP:      "JP addr",
	OpCALL:    "CALL addr",
	OpSEImm:   "SE Vx, byte",
	OpSNEImm:  "SNE Vx, byte",
	OpSEReg:   "SE Vx, Vy",
	OpLDImm:   "LD Vx, byte",
	OpADDImm:  "ADD Vx, byte",
	OpLDReg:   "LD Vx, Vy",
	OpOR:      "OR Vx, Vy",
	OpAND:     "AND Vx, Vy",
	OpXOR:     "XOR Vx, Vy",
	OpADDReg:  "ADD Vx, Vy",
	OpSUB:     "SUB Vx, Vy",
	OpSHR:     "SHR Vx",
	OpSUBN:    "SUBN Vx, Vy",
	OpSHL:     "SHL Vx",
	OpSNEReg:  "SNE Vx, Vy",
	OpLDI:     "LD I, addr",
	OpJPV0:    "JP V0, addr",
	OpRND:     "RND Vx, byte",
	OpDRW:     "DRW Vx, Vy, nibble",
	OpSKP:     "SKP Vx",
	OpSKNP:    "SKNP Vx",
	OpLDVxDT:  "LD Vx, DT",
	OpLDVxK:   "LD Vx, K",
	OpLDDTVx:  "LD DT, Vx",
	OpLDSTVx:  "LD ST, Vx",
	OpADDI:    "ADD I, Vx",
	OpLDF:     "LD F, Vx",
	OpLDB:     "LD B, Vx",
	OpLDMemVx: "LD [I], Vx",
	OpLDVxMem: "LD Vx, [I]",
}

// String returns the instruction form, e.g. "ADD Vx, Vy".
func (k OpKind) String() string {
	if k >= opKindCount {
		return opKindNames[OpUnknown]
	}
	return opKindNames[k]
}

// IsSkip reports whether the instruction conditionally skips the next one.
func (k OpKind) IsSkip() bool {
	switch k {
	case OpSEImm, OpSNEImm, OpSEReg, OpSNEReg, OpSKP, OpSKNP:
		return true
	}
	return false
}

// Op is a decoded instruction word.
type Op struct {
	Kind OpKind
	Word uint16

	Addr uint16 // nnn, low 12 bits
	N    byte   // low 4 bits
	X    byte   // bits 8-11
	Y    byte   // bits 4-7
	KK   byte   // low 8 bits
}

// primaryTable maps high nibbles that fully determine the instruction.
var primaryTable = [16]OpKind{
	0x1: OpJP,
	0x2: OpCALL,
	0x3: OpSEImm,
	0x4: OpSNEImm,
	0x5: OpSEReg,
	0x6: OpLDImm,
	0x7: OpADDImm,
	0x9: OpSNEReg,
	0xA: OpLDI,
	0xB: OpJPV0,
	0xC: OpRND,
	0xD: OpDRW,
}

type subTable struct {
	key   func(Op) byte
	kinds map[byte]OpKind
}

func byLowByte(op Op) byte   { return op.KK }
func byLowNibble(op Op) byte { return op.N }

// subTables holds the second decode level for high nibbles that share
// several instructions.
var subTables = map[byte]subTable{
	0x0: {byLowByte, map[byte]OpKind{
		0xE0: OpCLS,
		0xEE: OpRET,
	}},
	0x8: {byLowNibble, map[byte]OpKind{
		0x0: OpLDReg,
		0x1: OpOR,
		0x2: OpAND,
		0x3: OpXOR,
		0x4: OpADDReg,
		0x5: OpSUB,
		0x6: OpSHR,
		0x7: OpSUBN,
		0xE: OpSHL,
	}},
	0xE: {byLowByte, map[byte]OpKind{
		0x9E: OpSKP,
		0xA1: OpSKNP,
	}},
	0xF: {byLowByte, map[byte]OpKind{
		0x07: OpLDVxDT,
		0x0A: OpLDVxK,
		0x15: OpLDDTVx,
		0x18: OpLDSTVx,
		0x1E: OpADDI,
		0x29: OpLDF,
		0x33: OpLDB,
		0x55: OpLDMemVx,
		0x65: OpLDVxMem,
	}},
}

// Decode extracts the fields of word and looks up its instruction kind.
// Words without a table entry decode to OpUnknown.
func Decode(word uint16) Op {
	op := Op{
		Word: word,
		Addr: word & 0x0FFF,
		N:    byte(word & 0x000F),
		X:    byte(word>>8) & 0x0F,
		Y:    byte(word>>4) & 0x0F,
		KK:   byte(word & 0x00FF),
	}

	high := byte(word >> 12)
	if sub, ok := subTables[high]; ok {
		op.Kind = sub.kinds[sub.key(op)]
		return op
	}
	op.Kind = primaryTable[high]
	return op
}
