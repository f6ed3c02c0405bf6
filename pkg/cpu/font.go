package cpu

// FontAddress is where the built-in hex digit glyphs start in memory.
const FontAddress = 0x000

// GlyphSize is the number of bytes (rows) in one hex digit glyph.
const GlyphSize = 5

// fontGlyphs are the 4x5 sprites for the hex digits 0-F.
var fontGlyphs = [16 * GlyphSize]byte{
	0xF0, 0x90, 0x90, 0x90, 0xF0, // 0
	0x20, 0x60, 0x20, 0x20, 0x70, // 1
	0xF0, 0x10, 0xF0, 0x80, 0xF0, // 2
	0xF0, 0x10, 0xF0, 0x10, 0xF0, // 3
	0x90, 0x90, 0xF0, 0x10, 0x10, // 4
	0xF0, 0x80, 0xF0, 0x10, 0xF0, // 5
	0xF0, 0x80, 0xF0, 0x90, 0xF0, // 6
	0xF0, 0x10, 0x20, 0x40, 0x40, // 7
	0xF0, 0x90, 0xF0, 0x90, 0xF0, // 8
	0xF0, 0x90, 0xF0, 0x10, 0xF0, // 9
	0xF0, 0x90, 0xF0, 0x90, 0x90, // A
	0xE0, 0x90, 0xE0, 0x90, 0xE0, // B
	0xF0, 0x80, 0x80, 0x80, 0xF0, // C
	0xE0, 0x90, 0x90, 0x90, 0xE0, // D
	0xF0, 0x80, 0xF0, 0x80, 0xF0, // E
	0xF0, 0x80, 0xF0, 0x80, 0x80, // F
}

// GlyphAddress returns the address of the glyph for the low nibble of digit.
func GlyphAddress(digit byte) uint16 {
	return FontAddress + uint16(digit&0x0F)*GlyphSize
}

// Glyph returns a copy of the sprite bytes for the low nibble of digit.
func Glyph(digit byte) []byte {
	start := int(digit&0x0F) * GlyphSize
	out := make([]byte, GlyphSize)
	copy(out, fontGlyphs[start:start+GlyphSize])
	return out
}
